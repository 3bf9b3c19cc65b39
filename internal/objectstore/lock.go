package objectstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
)

// LockInfo is the body of a lock object.
type LockInfo struct {
	Owner     string    `json:"owner"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Lock is a lease held in a single object. Creation uses If-None-Match and
// every later write uses If-Match, so two owners can never both win. An
// expired lease may be taken over.
type Lock struct {
	client *Client
	key    string
	ttl    time.Duration
	owner  string
	now    func() time.Time

	mu   sync.Mutex
	etag string // set while held
}

// NewLock creates a Lock with a random owner id.
func NewLock(client *Client, key string, ttl time.Duration) *Lock {
	return &Lock{client: client, key: key, ttl: ttl, owner: uuid.NewString(), now: time.Now}
}

// Owner returns the owner id written into the lock object.
func (l *Lock) Owner() string { return l.owner }

// Held reports whether the last Acquire or Renew succeeded.
func (l *Lock) Held() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.etag != ""
}

// Acquire takes the lock if it is free or expired.
func (l *Lock) Acquire(ctx context.Context) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	body, err := l.body()
	if err != nil {
		return false, err
	}
	created, etag, err := l.client.PutIfAbsent(ctx, l.key, bytes.NewReader(body), "application/json")
	if err != nil {
		return false, fmt.Errorf("acquire lock: %w", err)
	}
	if created {
		l.etag = etag
		return true, nil
	}

	info, current, err := l.read(ctx)
	if errors.Is(err, ErrNotFound) {
		// released between our two calls; next attempt will create it
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("acquire lock: %w", err)
	}
	if info != nil && info.Owner != l.owner && l.now().Before(info.ExpiresAt) {
		return false, nil
	}

	taken, etag, err := l.client.PutIfMatch(ctx, l.key, bytes.NewReader(body), current, "application/json")
	if err != nil {
		return false, fmt.Errorf("acquire lock: take over: %w", err)
	}
	if taken {
		l.etag = etag
	}
	return taken, nil
}

// Renew extends a held lease. It reports false when the lock was lost.
func (l *Lock) Renew(ctx context.Context) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.etag == "" {
		return false, nil
	}
	body, err := l.body()
	if err != nil {
		return false, err
	}
	ok, etag, err := l.client.PutIfMatch(ctx, l.key, bytes.NewReader(body), l.etag, "application/json")
	if err != nil {
		return false, fmt.Errorf("renew lock: %w", err)
	}
	if !ok {
		l.etag = ""
		return false, nil
	}
	l.etag = etag
	return true, nil
}

// Release deletes the lock object if this instance still owns it.
func (l *Lock) Release(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.etag == "" {
		return nil
	}
	l.etag = ""

	info, _, err := l.read(ctx)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("release lock: %w", err)
	}
	if info != nil && info.Owner != l.owner {
		return nil
	}
	return l.client.Delete(ctx, l.key)
}

func (l *Lock) body() ([]byte, error) {
	data, err := json.Marshal(LockInfo{Owner: l.owner, ExpiresAt: l.now().Add(l.ttl)})
	if err != nil {
		return nil, fmt.Errorf("marshal lock: %w", err)
	}
	return data, nil
}

// read returns the current lock info and ETag. Unparseable content yields a
// nil info, which callers treat as expired.
func (l *Lock) read(ctx context.Context) (*LockInfo, string, error) {
	body, etag, err := l.client.Get(ctx, l.key)
	if err != nil {
		return nil, "", err
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, "", fmt.Errorf("read lock: %w", err)
	}
	var info LockInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, etag, nil
	}
	return &info, etag, nil
}
