// Package storage persists serialized snapshots to MinIO object storage.
// Objects live at a deterministic path keyed by space and save identifiers,
// so writing a new snapshot for a save atomically replaces the previous one.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	miniogo "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/google/uuid"
	storageconfig "github.com/pagekeep/pagekeep/internal/config/storage"
	"github.com/pagekeep/pagekeep/internal/logger"
	"github.com/pagekeep/pagekeep/internal/snapshot"
)

// snapshotContentType is the MIME type of stored snapshot objects.
const snapshotContentType = "application/gzip"

// Store reads and writes snapshot objects.
type Store struct {
	client *miniogo.Client
	cfg    *storageconfig.Config
	log    logger.Interface
}

// New creates a Store from config.
func New(cfg *storageconfig.Config, log logger.Interface) (*Store, error) {
	if cfg == nil {
		return nil, errors.New("storage config is nil")
	}

	if log == nil {
		log = logger.NewNoOp()
	}

	client, err := miniogo.New(cfg.Endpoint, &miniogo.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}

	return &Store{client: client, cfg: cfg, log: log}, nil
}

// Put serializes content and uploads it as the current snapshot for the
// given save. The content hash, a per-upload snapshot ID, and the capture
// time travel as object user-metadata.
func (s *Store) Put(ctx context.Context, spaceID, saveID string, content *snapshot.Content, meta *snapshot.Metadata) (string, error) {
	if spaceID == "" || saveID == "" {
		return "", errors.New("space and save IDs are required")
	}

	data, err := snapshot.Serialize(content)
	if err != nil {
		return "", err
	}

	objectPath := snapshot.ObjectPath(s.cfg.Prefix, spaceID, saveID)
	userMeta := map[string]string{
		"snapshot-id": uuid.NewString(),
		"captured-at": time.Now().UTC().Format(time.RFC3339),
	}

	if meta != nil {
		userMeta["content-sha256"] = meta.ContentSHA256
		userMeta["canonical-url"] = meta.CanonicalURL
	}

	_, err = s.client.PutObject(ctx, s.cfg.Bucket, objectPath,
		bytes.NewReader(data), int64(len(data)),
		miniogo.PutObjectOptions{
			ContentType:  snapshotContentType,
			UserMetadata: userMeta,
		})
	if err != nil {
		return "", fmt.Errorf("upload snapshot: %w", err)
	}

	s.log.Debug("stored snapshot",
		"object", objectPath,
		"bytes", len(data),
		"space_id", spaceID,
		"save_id", saveID)

	return objectPath, nil
}

// Get downloads and deserializes the current snapshot for a save.
func (s *Store) Get(ctx context.Context, spaceID, saveID string) (*snapshot.Content, error) {
	objectPath := snapshot.ObjectPath(s.cfg.Prefix, spaceID, saveID)

	object, err := s.client.GetObject(ctx, s.cfg.Bucket, objectPath, miniogo.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("open snapshot object: %w", err)
	}
	defer object.Close()

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(object); err != nil {
		return nil, fmt.Errorf("read snapshot object: %w", err)
	}

	return snapshot.Deserialize(buf.Bytes())
}
