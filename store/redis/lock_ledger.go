// Package redisstore keeps the lock ledger in Redis so that acquisitions are
// exclusive across hosts.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-qrmi/core"
	"github.com/redis/go-redis/v9"
)

const (
	DefaultAddr      = "localhost:6379"
	DefaultKeyPrefix = "qrmi:lock:"
)

// releaseScript deletes the key only while it still carries the caller's token.
var releaseScript = redis.NewScript(`
local current = redis.call("GET", KEYS[1])
if not current then
  return 0
end
local decoded = cjson.decode(current)
if decoded["token"] ~= ARGV[1] then
  return 0
end
return redis.call("DEL", KEYS[1])
`)

type Config struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
	// TTL bounds how long a crashed holder keeps a resource. Zero keeps
	// locks until released.
	TTL time.Duration
}

type LockLedger struct {
	client    redis.UniversalClient
	keyPrefix string
	ttl       time.Duration
	now       func() time.Time
}

type storedLock struct {
	Token        string            `json:"token"`
	ResourceName string            `json:"resource_name"`
	ResourceType string            `json:"resource_type"`
	AcquiredAt   time.Time         `json:"acquired_at"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

// NewLockLedger dials Redis and checks the connection.
func NewLockLedger(ctx context.Context, cfg Config) (*LockLedger, error) {
	opts := &redis.Options{
		Addr:     strings.TrimSpace(cfg.Addr),
		Password: cfg.Password,
		DB:       cfg.DB,
	}
	if opts.Addr == "" {
		opts.Addr = DefaultAddr
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redisstore: ping: %w", err)
	}
	return NewLockLedgerFromClient(client, cfg)
}

// NewLockLedgerFromURL accepts redis:// and rediss:// URLs.
func NewLockLedgerFromURL(ctx context.Context, rawURL string, cfg Config) (*LockLedger, error) {
	opts, err := redis.ParseURL(strings.TrimSpace(rawURL))
	if err != nil {
		return nil, fmt.Errorf("redisstore: parse url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redisstore: ping: %w", err)
	}
	return NewLockLedgerFromClient(client, cfg)
}

func NewLockLedgerFromClient(client redis.UniversalClient, cfg Config) (*LockLedger, error) {
	if client == nil {
		return nil, fmt.Errorf("redisstore: redis client is required")
	}
	prefix := cfg.KeyPrefix
	if strings.TrimSpace(prefix) == "" {
		prefix = DefaultKeyPrefix
	}
	return &LockLedger{
		client:    client,
		keyPrefix: prefix,
		ttl:       cfg.TTL,
		now:       func() time.Time { return time.Now().UTC() },
	}, nil
}

func (l *LockLedger) Key(resourceType core.ResourceType, resourceName string) string {
	return l.keyPrefix + core.LockKey(resourceType, resourceName)
}

func (l *LockLedger) Claim(ctx context.Context, lock core.AcquisitionLock) error {
	if l == nil || l.client == nil {
		return fmt.Errorf("redisstore: lock ledger is not configured")
	}
	if strings.TrimSpace(lock.Token) == "" {
		return fmt.Errorf("redisstore: lock token is required")
	}
	if lock.AcquiredAt.IsZero() {
		lock.AcquiredAt = l.now()
	}
	payload, err := json.Marshal(storedLock{
		Token:        lock.Token,
		ResourceName: strings.TrimSpace(lock.ResourceName),
		ResourceType: string(lock.ResourceType),
		AcquiredAt:   lock.AcquiredAt.UTC(),
		Metadata:     lock.Metadata,
	})
	if err != nil {
		return fmt.Errorf("redisstore: encode lock: %w", err)
	}
	key := l.Key(lock.ResourceType, lock.ResourceName)
	claimed, err := l.client.SetNX(ctx, key, payload, l.ttl).Result()
	if err != nil {
		return core.WrapError(err, core.ErrorTransport, "redisstore: claim lock")
	}
	if claimed {
		return nil
	}
	existing, err := l.Active(ctx, lock.ResourceType, lock.ResourceName)
	if errors.Is(err, core.ErrLockNotFound) {
		// expired between SETNX and GET
		return l.Claim(ctx, lock)
	}
	if err != nil {
		return err
	}
	if existing.Token == lock.Token {
		return nil
	}
	return core.ResourceUnavailableError(
		fmt.Sprintf("redisstore: resource %q is held by another acquisition", lock.ResourceName),
		map[string]any{"resource": lock.ResourceName, "resource_type": string(lock.ResourceType)},
	)
}

func (l *LockLedger) Active(ctx context.Context, resourceType core.ResourceType, resourceName string) (core.AcquisitionLock, error) {
	if l == nil || l.client == nil {
		return core.AcquisitionLock{}, fmt.Errorf("redisstore: lock ledger is not configured")
	}
	raw, err := l.client.Get(ctx, l.Key(resourceType, resourceName)).Bytes()
	if errors.Is(err, redis.Nil) {
		return core.AcquisitionLock{}, core.ErrLockNotFound
	}
	if err != nil {
		return core.AcquisitionLock{}, core.WrapError(err, core.ErrorTransport, "redisstore: read lock")
	}
	var stored storedLock
	if err := json.Unmarshal(raw, &stored); err != nil {
		return core.AcquisitionLock{}, fmt.Errorf("redisstore: decode lock: %w", err)
	}
	metadata := map[string]string{}
	for key, value := range stored.Metadata {
		metadata[key] = value
	}
	return core.AcquisitionLock{
		Token:        stored.Token,
		ResourceName: stored.ResourceName,
		ResourceType: core.ResourceType(stored.ResourceType),
		AcquiredAt:   stored.AcquiredAt,
		Metadata:     metadata,
	}, nil
}

func (l *LockLedger) Release(ctx context.Context, lock core.AcquisitionLock) error {
	if l == nil || l.client == nil {
		return fmt.Errorf("redisstore: lock ledger is not configured")
	}
	deleted, err := releaseScript.Run(ctx, l.client, []string{l.Key(lock.ResourceType, lock.ResourceName)}, lock.Token).Int()
	if err != nil {
		return core.WrapError(err, core.ErrorTransport, "redisstore: release lock")
	}
	if deleted == 0 {
		return core.ErrLockNotFound
	}
	return nil
}

func (l *LockLedger) Close() error {
	if l == nil || l.client == nil {
		return nil
	}
	return l.client.Close()
}

var _ core.LockLedger = (*LockLedger)(nil)
