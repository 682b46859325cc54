// Package cache memoizes target descriptions with go-repository-cache.
package cache

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/goliatone/go-qrmi/core"
	repositorycache "github.com/goliatone/go-repository-cache/cache"
)

const targetCacheKeyPrefix = "go-qrmi::target::v1"

// TargetCache is a core.TargetCache backed by a repository-cache service.
// Targets change rarely; Invalidate drops an entry explicitly.
type TargetCache struct {
	cache repositorycache.CacheService
}

func NewTargetCache(cacheService repositorycache.CacheService) (*TargetCache, error) {
	if cacheService == nil {
		return nil, fmt.Errorf("cache: target cache service is required")
	}
	return &TargetCache{cache: cacheService}, nil
}

// NewDefaultTargetCache builds a cache service with the given TTL.
func NewDefaultTargetCache(ttl time.Duration) (*TargetCache, error) {
	config := repositorycache.DefaultConfig()
	if ttl > 0 {
		config.TTL = ttl
	}
	service, err := repositorycache.NewCacheService(config)
	if err != nil {
		return nil, fmt.Errorf("cache: new cache service: %w", err)
	}
	return NewTargetCache(service)
}

// TargetCacheKey is go-qrmi::target::v1::<resource_type>::<resource_name>
// with each segment URL-path escaped.
func TargetCacheKey(resourceType core.ResourceType, resourceName string) (string, error) {
	name := strings.TrimSpace(resourceName)
	if name == "" {
		return "", fmt.Errorf("cache: resource name is required")
	}
	if !resourceType.Valid() {
		return "", fmt.Errorf("cache: resource type %q is invalid", resourceType)
	}
	return strings.Join([]string{
		targetCacheKeyPrefix,
		url.PathEscape(string(resourceType)),
		url.PathEscape(name),
	}, "::"), nil
}

func (c *TargetCache) GetOrFetch(
	ctx context.Context,
	resourceType core.ResourceType,
	resourceName string,
	fetch func(context.Context) (core.Target, error),
) (core.Target, error) {
	if c == nil || c.cache == nil {
		return core.Target{}, fmt.Errorf("cache: target cache is not configured")
	}
	if fetch == nil {
		return core.Target{}, fmt.Errorf("cache: fetch function is required")
	}
	key, err := TargetCacheKey(resourceType, resourceName)
	if err != nil {
		return core.Target{}, err
	}
	return repositorycache.GetOrFetch(ctx, c.cache, key, fetch)
}

func (c *TargetCache) Invalidate(ctx context.Context, resourceType core.ResourceType, resourceName string) error {
	if c == nil || c.cache == nil {
		return fmt.Errorf("cache: target cache is not configured")
	}
	key, err := TargetCacheKey(resourceType, resourceName)
	if err != nil {
		return err
	}
	return c.cache.Delete(ctx, key)
}

var _ core.TargetCache = (*TargetCache)(nil)
