package llm

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"
	bolt "go.etcd.io/bbolt"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/smartfetcher/smartfetcher/pkg/contracts"
	"github.com/smartfetcher/smartfetcher/pkg/models"
)

const (
	cacheFile   = "responses.db"
	cacheBucket = "completions"
)

// CachedClient memoizes successful completions in a bbolt database keyed by
// the SHA-256 of the request. Cache failures never fail a request.
type CachedClient struct {
	next contracts.CompletionClient
	db   *bolt.DB
}

// NewCachedClient opens (or creates) {dir}/responses.db and wraps next.
func NewCachedClient(next contracts.CompletionClient, dir string) (*CachedClient, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	db, err := bolt.Open(filepath.Join(dir, cacheFile), 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open response cache: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(cacheBucket))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("init response cache: %w", err)
	}
	return &CachedClient{next: next, db: db}, nil
}

func (c *CachedClient) Model() string { return c.next.Model() }

// Close releases the database file lock.
func (c *CachedClient) Close() error {
	return c.db.Close()
}

// EnsureReady forwards to the wrapped client when it supports readiness checks.
func (c *CachedClient) EnsureReady(ctx context.Context) error {
	if r, ok := c.next.(interface{ EnsureReady(context.Context) error }); ok {
		return r.EnsureReady(ctx)
	}
	return nil
}

func (c *CachedClient) Complete(ctx context.Context, req *models.CompletionRequest) (*models.CompletionResponse, error) {
	keyReq := *req
	if keyReq.Model == "" {
		keyReq.Model = c.next.Model()
	}
	key, err := cacheKey(&keyReq)
	if err != nil {
		log.Warn().Err(err).Msg("Response cache key failed; calling backend")
		return c.next.Complete(ctx, req)
	}

	if hit := c.lookup(key); hit != nil {
		trace.SpanFromContext(ctx).SetAttributes(attribute.Bool("llm.cache_hit", true))
		log.Debug().Str("key", hex.EncodeToString(key[:8])).Msg("Response cache hit")
		return hit, nil
	}

	resp, err := c.next.Complete(ctx, req)
	if err != nil {
		return nil, err
	}
	c.store(key, resp)
	return resp, nil
}

func (c *CachedClient) lookup(key []byte) *models.CompletionResponse {
	var raw []byte
	err := c.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(cacheBucket))
		if b == nil {
			return nil
		}
		if v := b.Get(key); v != nil {
			raw = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil || raw == nil {
		if err != nil {
			log.Warn().Err(err).Msg("Response cache read failed")
		}
		return nil
	}
	var resp models.CompletionResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		log.Warn().Err(err).Msg("Response cache entry corrupt")
		return nil
	}
	resp.Cached = true
	return &resp
}

func (c *CachedClient) store(key []byte, resp *models.CompletionResponse) {
	raw, err := json.Marshal(resp)
	if err != nil {
		return
	}
	err = c.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(cacheBucket)).Put(key, raw)
	})
	if err != nil {
		log.Warn().Err(err).Msg("Response cache write failed")
	}
}

func cacheKey(req *models.CompletionRequest) ([]byte, error) {
	raw, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	sum := sha256.Sum256(raw)
	return sum[:], nil
}
