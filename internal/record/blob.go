package record

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/podbrief/podbrief-api/internal/storage"
)

// Compile-time check that BlobMetadataStore implements MetadataStore.
var _ MetadataStore = (*BlobMetadataStore)(nil)

// BlobMetadataStore persists records as JSON documents in the artifact
// store's metadata container. It needs no database, which keeps the
// single-binary local deployment self-contained; the Postgres store is
// the alternative when a relational backend is available.
type BlobMetadataStore struct {
	blobs storage.Store
}

// NewBlobMetadataStore creates a metadata store backed by blobs.
func NewBlobMetadataStore(blobs storage.Store) *BlobMetadataStore {
	return &BlobMetadataStore{blobs: blobs}
}

func (s *BlobMetadataStore) getDoc(ctx context.Context, name string, v any) error {
	var buf bytes.Buffer
	if err := s.blobs.GetToWriter(ctx, storage.ContainerMetadata, name, &buf); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("read metadata document: %w", err)
	}
	if err := json.Unmarshal(buf.Bytes(), v); err != nil {
		return fmt.Errorf("decode metadata document %s: %w", name, err)
	}
	return nil
}

func (s *BlobMetadataStore) putDoc(ctx context.Context, name string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode metadata document %s: %w", name, err)
	}
	if _, err := s.blobs.Put(ctx, storage.ContainerMetadata, name, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("write metadata document: %w", err)
	}
	return nil
}

// GetEpisode retrieves the episode record for key.
func (s *BlobMetadataStore) GetEpisode(ctx context.Context, key string) (*Episode, error) {
	var ep Episode
	if err := s.getDoc(ctx, EpisodeDocName(key), &ep); err != nil {
		return nil, err
	}
	return &ep, nil
}

// SaveEpisode persists an episode record.
func (s *BlobMetadataStore) SaveEpisode(ctx context.Context, ep *Episode) error {
	return s.putDoc(ctx, EpisodeDocName(ep.CacheKey), ep)
}

// EpisodeExists reports whether an episode record exists for key.
func (s *BlobMetadataStore) EpisodeExists(ctx context.Context, key string) (bool, error) {
	return s.blobs.Exists(ctx, storage.ContainerMetadata, EpisodeDocName(key))
}

// GetSummary retrieves the summary record for key.
func (s *BlobMetadataStore) GetSummary(ctx context.Context, key string) (*Summary, error) {
	var sum Summary
	if err := s.getDoc(ctx, SummaryDocName(key), &sum); err != nil {
		return nil, err
	}
	return &sum, nil
}

// SaveSummary persists a summary record for key.
func (s *BlobMetadataStore) SaveSummary(ctx context.Context, key string, sum *Summary) error {
	sum.EpisodeKey = key
	return s.putDoc(ctx, SummaryDocName(key), sum)
}

// SummaryExists reports whether a summary record exists for key.
func (s *BlobMetadataStore) SummaryExists(ctx context.Context, key string) (bool, error) {
	return s.blobs.Exists(ctx, storage.ContainerMetadata, SummaryDocName(key))
}

// DeleteEpisode removes the episode record and, to honor the cascade
// semantics of the relational store, its summary record.
func (s *BlobMetadataStore) DeleteEpisode(ctx context.Context, key string) error {
	if err := s.DeleteSummary(ctx, key); err != nil {
		return err
	}
	if err := s.blobs.Delete(ctx, storage.ContainerMetadata, EpisodeDocName(key)); err != nil {
		return fmt.Errorf("delete episode document: %w", err)
	}
	return nil
}

// DeleteSummary removes the summary record for key.
func (s *BlobMetadataStore) DeleteSummary(ctx context.Context, key string) error {
	if err := s.blobs.Delete(ctx, storage.ContainerMetadata, SummaryDocName(key)); err != nil {
		return fmt.Errorf("delete summary document: %w", err)
	}
	return nil
}
