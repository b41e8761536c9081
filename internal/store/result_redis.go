package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/local/pdfextract/internal/reader"
)

// resultTTL bounds how long finished extraction results stay in Redis.
const resultTTL = 7 * 24 * time.Hour

// ResultStore persists extraction output per job: one entry per page plus
// the aggregated document.
type ResultStore struct {
	client *redis.Client
}

func NewResultStore(redisURL string) (*ResultStore, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	c := redis.NewClient(opt)
	if err := c.Ping(context.Background()).Err(); err != nil {
		return nil, err
	}
	return &ResultStore{client: c}, nil
}

func (s *ResultStore) Close() error { return s.client.Close() }

func (s *ResultStore) pageKey(jobID string, page int) string {
	return fmt.Sprintf("job:%s:page:%d", jobID, page)
}

func (s *ResultStore) resultKey(jobID string) string {
	return fmt.Sprintf("job:%s:result", jobID)
}

// SavePage stores one extracted page. Pages are 0-based to match the
// result document's page order.
func (s *ResultStore) SavePage(ctx context.Context, jobID string, page int, ep reader.ExtractedPage) error {
	b, err := json.Marshal(ep)
	if err != nil {
		return fmt.Errorf("marshal page %d: %w", page, err)
	}
	return s.client.Set(ctx, s.pageKey(jobID, page), b, resultTTL).Err()
}

// GetPage loads one extracted page. The bool reports presence.
func (s *ResultStore) GetPage(ctx context.Context, jobID string, page int) (reader.ExtractedPage, bool, error) {
	b, err := s.client.Get(ctx, s.pageKey(jobID, page)).Bytes()
	if err == redis.Nil {
		return reader.ExtractedPage{}, false, nil
	}
	if err != nil {
		return reader.ExtractedPage{}, false, err
	}
	var ep reader.ExtractedPage
	if err := json.Unmarshal(b, &ep); err != nil {
		return reader.ExtractedPage{}, false, fmt.Errorf("unmarshal page %d: %w", page, err)
	}
	return ep, true, nil
}

// SaveResult stores the aggregated document for a finished job.
func (s *ResultStore) SaveResult(ctx context.Context, jobID string, pages []reader.ExtractedPage) error {
	b, err := json.Marshal(pages)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	return s.client.Set(ctx, s.resultKey(jobID), b, resultTTL).Err()
}

// GetResult loads the aggregated document. The bool reports presence.
func (s *ResultStore) GetResult(ctx context.Context, jobID string) ([]reader.ExtractedPage, bool, error) {
	b, err := s.client.Get(ctx, s.resultKey(jobID)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var pages []reader.ExtractedPage
	if err := json.Unmarshal(b, &pages); err != nil {
		return nil, false, fmt.Errorf("unmarshal result: %w", err)
	}
	return pages, true, nil
}
