package common

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ID is a string alias for UUID v4.
type ID string

// NewID generates a new UUID v4.
func NewID() ID {
	return ID(uuid.New().String())
}

// String returns the raw identifier.
func (id ID) String() string {
	return string(id)
}

// Validate checks that the ID is a well-formed UUID.
func (id ID) Validate() error {
	if id == "" {
		return fmt.Errorf("ID cannot be empty")
	}
	if _, err := uuid.Parse(string(id)); err != nil {
		return fmt.Errorf("invalid ID format: %w", err)
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Pagination
// ─────────────────────────────────────────────────────────────────────────────

const (
	DefaultPageSize = 20
	MaxPageSize     = 500
)

// Pagination defines parameters for paginated requests.
type Pagination struct {
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
}

// Normalize fills zero values with defaults and caps the page size.
func (p Pagination) Normalize() Pagination {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = DefaultPageSize
	}
	if p.PageSize > MaxPageSize {
		p.PageSize = MaxPageSize
	}
	return p
}

// Validate checks if pagination parameters are within valid bounds.
func (p Pagination) Validate() error {
	if p.Page < 1 {
		return fmt.Errorf("page must be >= 1")
	}
	if p.PageSize < 1 || p.PageSize > MaxPageSize {
		return fmt.Errorf("page_size must be between 1 and %d", MaxPageSize)
	}
	return nil
}

// Offset returns the SQL OFFSET value.
func (p Pagination) Offset() int {
	return (p.Page - 1) * p.PageSize
}

// PaginationResult holds the pagination metadata for a response.
type PaginationResult struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// PaginatedResult wraps a page of items with its metadata.
type PaginatedResult[T any] struct {
	Items      []T              `json:"items"`
	Pagination PaginationResult `json:"pagination"`
}

// NewPaginatedResult computes TotalPages from total and the page request.
func NewPaginatedResult[T any](items []T, p Pagination, total int) PaginatedResult[T] {
	pages := 0
	if p.PageSize > 0 {
		pages = (total + p.PageSize - 1) / p.PageSize
	}
	if items == nil {
		items = []T{}
	}
	return PaginatedResult[T]{
		Items: items,
		Pagination: PaginationResult{
			Page:       p.Page,
			PageSize:   p.PageSize,
			Total:      total,
			TotalPages: pages,
		},
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Batch results
// ─────────────────────────────────────────────────────────────────────────────

// BatchFailure names one failed item of a batch operation.
type BatchFailure struct {
	ItemID  string `json:"itemId"`
	Message string `json:"message"`
}

// BatchResult is the partial-failure outcome of a batch operation. Items are
// committed independently; a failure never aborts the remaining items.
type BatchResult struct {
	SuccessCount int            `json:"successCount"`
	ErrorCount   int            `json:"errorCount"`
	Errors       []BatchFailure `json:"errors"`
}

// NewBatchResult returns an empty result with a non-nil error slice.
func NewBatchResult() *BatchResult {
	return &BatchResult{Errors: []BatchFailure{}}
}

// Succeed records one successful item.
func (r *BatchResult) Succeed() {
	r.SuccessCount++
}

// Fail records one failed item.
func (r *BatchResult) Fail(itemID string, err error) {
	r.ErrorCount++
	r.Errors = append(r.Errors, BatchFailure{ItemID: itemID, Message: err.Error()})
}

// TotalFailure reports a non-empty batch in which nothing succeeded.
func (r *BatchResult) TotalFailure() bool {
	return r.SuccessCount == 0 && r.ErrorCount > 0
}

// ─────────────────────────────────────────────────────────────────────────────
// Messaging
// ─────────────────────────────────────────────────────────────────────────────

// ProducerMessage is an outbound broker message.
type ProducerMessage struct {
	Topic     string
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Timestamp time.Time
	Partition int
}

// Message is an inbound broker message.
type Message struct {
	Topic     string
	Partition int
	Offset    int64
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Timestamp time.Time
}

// MessageHandler processes one inbound message.
type MessageHandler func(ctx context.Context, msg *Message) error

// TopicConfig describes a topic to provision.
type TopicConfig struct {
	Name              string
	Partitions        int
	ReplicationFactor int
	RetentionMs       int64
	CleanupPolicy     string
}

// ─────────────────────────────────────────────────────────────────────────────
// Request context
// ─────────────────────────────────────────────────────────────────────────────

// ContextKey namespaces values stored on a request context.
type ContextKey string

const (
	ContextKeyActorID        ContextKey = "actor_id"
	ContextKeyOrganizationID ContextKey = "organization_id"
)

// WithActor stores the acting user on ctx.
func WithActor(ctx context.Context, actorID string) context.Context {
	return context.WithValue(ctx, ContextKeyActorID, actorID)
}

// ActorFromContext returns the acting user, or "system" when none is set.
func ActorFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(ContextKeyActorID).(string); ok && v != "" {
		return v
	}
	return "system"
}

// WithOrganization stores the caller's organization on ctx.
func WithOrganization(ctx context.Context, orgID string) context.Context {
	return context.WithValue(ctx, ContextKeyOrganizationID, orgID)
}

// OrganizationFromContext returns the caller's organization, "" when unset.
func OrganizationFromContext(ctx context.Context) string {
	v, _ := ctx.Value(ContextKeyOrganizationID).(string)
	return v
}

//Personal.AI order the ending
