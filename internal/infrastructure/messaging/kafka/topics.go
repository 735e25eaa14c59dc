package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/aonawunmi/New-MinRisk-sub016/internal/infrastructure/monitoring/logging"
	"github.com/aonawunmi/New-MinRisk-sub016/pkg/errors"
	"github.com/aonawunmi/New-MinRisk-sub016/pkg/types/common"
)

const (
	TopicEventsIngested   = "minrisk.events.ingested"
	TopicAlertsLifecycle  = "minrisk.alerts.lifecycle"
	TopicPeriodsCommitted = "minrisk.periods.committed"

	deadLetterSuffix = ".dlq"
)

// Event types carried in EventEnvelope.EventType.
const (
	EventTypeExternalEventIngested = "external_event.ingested"
	EventTypeAlertCreated          = "alert.created"
	EventTypeAlertAccepted         = "alert.accepted"
	EventTypeAlertRejected         = "alert.rejected"
	EventTypeAlertApplied          = "alert.applied"
	EventTypeAlertUndone           = "alert.undone"
	EventTypePeriodCommitted       = "period.committed"
)

// DeadLetterTopic names the parking topic for messages that exhaust retries.
func DeadLetterTopic(topic string) string {
	if strings.HasSuffix(topic, deadLetterSuffix) {
		return topic
	}
	return topic + deadLetterSuffix
}

// EventEnvelope standardizes event messages.
type EventEnvelope struct {
	EventID       string            `json:"event_id"`
	EventType     string            `json:"event_type"`
	Source        string            `json:"source"`
	Timestamp     time.Time         `json:"timestamp"`
	SchemaVersion string            `json:"schema_version"`
	TraceID       string            `json:"trace_id,omitempty"`
	Payload       json.RawMessage   `json:"payload"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// EventIngestedPayload carries an external event from a feed collector to
// the ingestion worker.
type EventIngestedPayload struct {
	OrganizationID string    `json:"organization_id"`
	Source         string    `json:"source"`
	ExternalID     string    `json:"external_id,omitempty"`
	EventType      string    `json:"event_type"`
	Title          string    `json:"title"`
	Summary        string    `json:"summary"`
	URL            string    `json:"url,omitempty"`
	PublishedDate  time.Time `json:"published_date"`
}

// AlertTransitionPayload records one alert lifecycle step.
type AlertTransitionPayload struct {
	OrganizationID   string    `json:"organization_id"`
	AlertID          string    `json:"alert_id"`
	RiskCode         string    `json:"risk_code"`
	Status           string    `json:"status"`
	Actor            string    `json:"actor"`
	LikelihoodChange int       `json:"likelihood_change"`
	ImpactChange     int       `json:"impact_change"`
	OccurredAt       time.Time `json:"occurred_at"`
}

type PeriodCommittedPayload struct {
	OrganizationID string    `json:"organization_id"`
	CommitID       string    `json:"commit_id"`
	Period         string    `json:"period"`
	RisksCount     int       `json:"risks_count"`
	FormulaVersion string    `json:"formula_version"`
	CommittedBy    string    `json:"committed_by"`
	CommittedAt    time.Time `json:"committed_at"`
}

func NewEventEnvelope(eventType string, source string, payload interface{}) (*EventEnvelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to marshal payload")
	}
	return &EventEnvelope{
		EventID:       uuid.New().String(),
		EventType:     eventType,
		Source:        source,
		Timestamp:     time.Now().UTC(),
		SchemaVersion: "v1",
		Payload:       data,
	}, nil
}

// DecodePayload unmarshals the payload into target. An empty payload is an error.
func (e *EventEnvelope) DecodePayload(target interface{}) error {
	if len(e.Payload) == 0 || string(e.Payload) == "null" {
		return errors.New(errors.ErrCodeValidation, "envelope has no payload").WithDetail("event_type=" + e.EventType)
	}
	if err := json.Unmarshal(e.Payload, target); err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "failed to unmarshal payload")
	}
	return nil
}

func (e *EventEnvelope) ToMessage(topic string, key string) (*common.ProducerMessage, error) {
	val, err := json.Marshal(e)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to marshal envelope")
	}
	headers := map[string]string{
		"event_type":     e.EventType,
		"source_service": e.Source,
		"schema_version": e.SchemaVersion,
	}
	if e.TraceID != "" {
		headers["trace_id"] = e.TraceID
	}
	msg := &common.ProducerMessage{
		Topic:     topic,
		Value:     val,
		Headers:   headers,
		Timestamp: e.Timestamp,
	}
	if key != "" {
		msg.Key = []byte(key)
	}
	return msg, nil
}

func MessageToEventEnvelope(msg *common.Message) (*EventEnvelope, error) {
	if len(msg.Value) == 0 {
		return nil, errors.New(errors.ErrCodeValidation, "empty message value")
	}
	var env EventEnvelope
	if err := json.Unmarshal(msg.Value, &env); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to unmarshal envelope")
	}
	return &env, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Publishing
// ─────────────────────────────────────────────────────────────────────────────

// Publisher is the transport the envelope publisher writes through.
type Publisher interface {
	Publish(ctx context.Context, msg *common.ProducerMessage) error
}

// EnvelopePublisher wraps domain payloads in an EventEnvelope and writes
// them keyed for per-risk ordering.
type EnvelopePublisher struct {
	out    Publisher
	source string
	logger logging.Logger
}

func NewEnvelopePublisher(out Publisher, source string, logger logging.Logger) *EnvelopePublisher {
	return &EnvelopePublisher{out: out, source: source, logger: logger}
}

func (p *EnvelopePublisher) Publish(ctx context.Context, topic, key, eventType string, payload interface{}) error {
	env, err := NewEventEnvelope(eventType, p.source, payload)
	if err != nil {
		return err
	}
	msg, err := env.ToMessage(topic, key)
	if err != nil {
		return err
	}
	if err := p.out.Publish(ctx, msg); err != nil {
		p.logger.Warn("Event publish failed",
			logging.String("topic", topic),
			logging.String("event_type", eventType),
			logging.Err(err))
		return err
	}
	return nil
}

// NopPublisher drops every event. Used when Kafka is disabled.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, string, string, interface{}) error { return nil }

// ─────────────────────────────────────────────────────────────────────────────
// Topic management
// ─────────────────────────────────────────────────────────────────────────────

// ConnInterface abstracts kafka.Conn for testing.
type ConnInterface interface {
	CreateTopics(topics ...kafka.TopicConfig) error
	ReadPartitions(topics ...string) ([]kafka.Partition, error)
	Close() error
}

// TopicManager manages Kafka topics.
type TopicManager struct {
	conn   ConnInterface
	logger logging.Logger
}

func NewTopicManager(brokers []string, logger logging.Logger) (*TopicManager, error) {
	if len(brokers) == 0 {
		return nil, errors.New(errors.ErrCodeValidation, "brokers required")
	}
	conn, err := kafka.Dial("tcp", brokers[0])
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeExternalService, "failed to dial kafka")
	}
	return NewTopicManagerWithConn(conn, logger), nil
}

func NewTopicManagerWithConn(conn ConnInterface, logger logging.Logger) *TopicManager {
	return &TopicManager{conn: conn, logger: logger}
}

func (m *TopicManager) CreateTopic(ctx context.Context, cfg common.TopicConfig) error {
	if cfg.Name == "" {
		return errors.New(errors.ErrCodeValidation, "topic name required")
	}
	if cfg.Partitions <= 0 {
		return errors.New(errors.ErrCodeValidation, "partitions must be > 0")
	}
	if cfg.ReplicationFactor <= 0 {
		return errors.New(errors.ErrCodeValidation, "replication factor must be > 0")
	}

	kCfg := kafka.TopicConfig{
		Topic:             cfg.Name,
		NumPartitions:     cfg.Partitions,
		ReplicationFactor: cfg.ReplicationFactor,
	}
	if cfg.RetentionMs > 0 {
		kCfg.ConfigEntries = append(kCfg.ConfigEntries, kafka.ConfigEntry{ConfigName: "retention.ms", ConfigValue: fmt.Sprintf("%d", cfg.RetentionMs)})
	}
	if cfg.CleanupPolicy != "" {
		kCfg.ConfigEntries = append(kCfg.ConfigEntries, kafka.ConfigEntry{ConfigName: "cleanup.policy", ConfigValue: cfg.CleanupPolicy})
	}

	if err := m.conn.CreateTopics(kCfg); err != nil {
		if exists, _ := m.TopicExists(ctx, cfg.Name); exists {
			return nil
		}
		return errors.Wrap(err, errors.ErrCodeExternalService, "create topic failed").WithDetail("topic=" + cfg.Name)
	}
	m.logger.Info("Topic created", logging.String("topic", cfg.Name))
	return nil
}

func (m *TopicManager) TopicExists(ctx context.Context, name string) (bool, error) {
	partitions, err := m.conn.ReadPartitions(name)
	if err != nil {
		return false, nil
	}
	return len(partitions) > 0, nil
}

// ListTopics returns distinct topic names in broker order.
func (m *TopicManager) ListTopics(ctx context.Context) ([]string, error) {
	partitions, err := m.conn.ReadPartitions()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeExternalService, "read partitions failed")
	}
	seen := make(map[string]bool)
	var topics []string
	for _, p := range partitions {
		if !seen[p.Topic] {
			seen[p.Topic] = true
			topics = append(topics, p.Topic)
		}
	}
	return topics, nil
}

func (m *TopicManager) EnsureTopics(ctx context.Context, topics []common.TopicConfig) error {
	for _, topic := range topics {
		if err := m.CreateTopic(ctx, topic); err != nil {
			return err
		}
	}
	return nil
}

func (m *TopicManager) Close() error {
	return m.conn.Close()
}

// DefaultTopics lists every topic the engine uses with its dead-letter twin.
// Replication is capped by replicationFactor so single-broker setups work.
func DefaultTopics(replicationFactor int) []common.TopicConfig {
	if replicationFactor <= 0 {
		replicationFactor = 1
	}
	const day = int64(24 * 3600 * 1000)
	base := []common.TopicConfig{
		{Name: TopicEventsIngested, Partitions: 6, RetentionMs: 7 * day},
		{Name: TopicAlertsLifecycle, Partitions: 6, RetentionMs: 90 * day},
		{Name: TopicPeriodsCommitted, Partitions: 1, RetentionMs: 365 * day},
	}
	out := make([]common.TopicConfig, 0, len(base)*2)
	for _, t := range base {
		t.ReplicationFactor = replicationFactor
		out = append(out, t)
		out = append(out, common.TopicConfig{
			Name:              DeadLetterTopic(t.Name),
			Partitions:        1,
			ReplicationFactor: replicationFactor,
			RetentionMs:       30 * day,
		})
	}
	return out
}

//Personal.AI order the ending
