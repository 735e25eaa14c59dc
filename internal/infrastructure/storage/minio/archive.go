package minio

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"

	"github.com/aonawunmi/New-MinRisk-sub016/internal/infrastructure/monitoring/logging"
	"github.com/aonawunmi/New-MinRisk-sub016/pkg/errors"
)

const (
	metaChecksum = "Sha256"
	contentJSON  = "application/json"
)

var ErrArchiveCorrupt = errors.New(errors.ErrCodeArchiveUnavailable, "archived snapshot failed checksum verification")

// ArchiveKey is the object key of one committed period's snapshot document.
func ArchiveKey(orgID, period, commitID string) string {
	return fmt.Sprintf("snapshots/%s/%s/%s.json", orgID, period, commitID)
}

// ArchivedObject describes a stored snapshot document.
type ArchivedObject struct {
	Key        string    `json:"key"`
	Size       int64     `json:"size"`
	Checksum   string    `json:"sha256"`
	ETag       string    `json:"etag"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// SnapshotArchive stores immutable period snapshot documents. Every object
// carries its sha256 in user metadata and is verified on read.
type SnapshotArchive struct {
	client *Client
	logger logging.Logger
}

func NewSnapshotArchive(client *Client, log logging.Logger) *SnapshotArchive {
	return &SnapshotArchive{client: client, logger: log}
}

func (a *SnapshotArchive) Put(ctx context.Context, key string, doc []byte) (*ArchivedObject, error) {
	if a.client.isClosed() {
		return nil, ErrClientClosed
	}
	if key == "" || len(doc) == 0 {
		return nil, errors.NewValidation("archive key and document are required")
	}

	sum := sha256.Sum256(doc)
	checksum := hex.EncodeToString(sum[:])
	info, err := a.client.api.PutObject(ctx, a.client.Bucket(), key, bytes.NewReader(doc), int64(len(doc)), minio.PutObjectOptions{
		ContentType:  contentJSON,
		UserMetadata: map[string]string{metaChecksum: checksum},
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeArchiveUnavailable, "snapshot upload failed").WithDetail("key=" + key)
	}

	a.logger.Info("Snapshot archived", logging.String("key", key), logging.Int64("size", info.Size))
	return &ArchivedObject{
		Key:        key,
		Size:       int64(len(doc)),
		Checksum:   checksum,
		ETag:       info.ETag,
		UploadedAt: time.Now().UTC(),
	}, nil
}

// Get downloads a document and verifies it against its stored checksum.
func (a *SnapshotArchive) Get(ctx context.Context, key string) ([]byte, error) {
	if a.client.isClosed() {
		return nil, ErrClientClosed
	}
	data, info, err := a.client.api.ReadObject(ctx, a.client.Bucket(), key)
	if err != nil {
		if isNoSuchKey(err) {
			return nil, ErrObjectNotFound.WithDetail("key=" + key)
		}
		return nil, errors.Wrap(err, errors.ErrCodeArchiveUnavailable, "snapshot download failed")
	}

	want := metadataValue(info.UserMetadata, metaChecksum)
	sum := sha256.Sum256(data)
	if want == "" || want != hex.EncodeToString(sum[:]) {
		a.logger.Error("Snapshot checksum mismatch", logging.String("key", key))
		return nil, ErrArchiveCorrupt.WithDetail("key=" + key)
	}
	return data, nil
}

func (a *SnapshotArchive) Exists(ctx context.Context, key string) (bool, error) {
	_, err := a.client.api.StatObject(ctx, a.client.Bucket(), key, minio.StatObjectOptions{})
	if err == nil {
		return true, nil
	}
	if isNoSuchKey(err) {
		return false, nil
	}
	return false, errors.Wrap(err, errors.ErrCodeArchiveUnavailable, "snapshot stat failed")
}

// PresignedURL returns a time-limited download link. A zero expiry uses the
// configured default.
func (a *SnapshotArchive) PresignedURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	if expiry <= 0 {
		expiry = a.client.cfg.PresignExpiry
	}
	u, err := a.client.api.PresignedGetObject(ctx, a.client.Bucket(), key, expiry, nil)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodeArchiveUnavailable, "presign failed")
	}
	return u.String(), nil
}

// metadataValue looks up user metadata regardless of the X-Amz-Meta- prefix
// and header casing the server returned.
func metadataValue(md map[string]string, name string) string {
	for k, v := range md {
		k = strings.TrimPrefix(strings.ToLower(k), "x-amz-meta-")
		if k == strings.ToLower(name) {
			return v
		}
	}
	return ""
}

//Personal.AI order the ending
