package server

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/carstage/carstage/internal/config"
	"github.com/carstage/carstage/internal/logging"
	"github.com/carstage/carstage/pkg/types"
)

// BlendCache stores blend results keyed by the MD5 of the flattened
// composite. Identical composites blend identically, so a cache hit
// skips the slowest call in the workflow.
type BlendCache struct {
	client *redis.Client
	ttl    time.Duration
}

type cachedBlend struct {
	MimeType string `json:"mime_type"`
	ImageB64 string `json:"image"`
}

func NewBlendCache(cfg *config.RedisConfig) *BlendCache {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	return &BlendCache{
		client: client,
		ttl:    cfg.TTL,
	}
}

func (c *BlendCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Get returns the cached blend for a composite digest, or nil on miss.
func (c *BlendCache) Get(ctx context.Context, md5 string) (*types.BlendResult, error) {
	key := "blend:" + md5
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}

	var cached cachedBlend
	if err := json.Unmarshal(data, &cached); err != nil {
		logging.Logger.Error("failed to unmarshal cached blend",
			zap.String("md5", md5), zap.Error(err))
		return nil, err
	}

	raw, err := base64.StdEncoding.DecodeString(cached.ImageB64)
	if err != nil {
		return nil, err
	}

	return &types.BlendResult{Data: raw, MimeType: cached.MimeType}, nil
}

// Set stores a blend result under a composite digest.
func (c *BlendCache) Set(ctx context.Context, md5 string, result *types.BlendResult) error {
	key := "blend:" + md5
	data, err := json.Marshal(cachedBlend{
		MimeType: result.MimeType,
		ImageB64: base64.StdEncoding.EncodeToString(result.Data),
	})
	if err != nil {
		return err
	}

	return c.client.Set(ctx, key, data, c.ttl).Err()
}

func (c *BlendCache) Close() error {
	return c.client.Close()
}
