package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/stockyourlot/internal/config"

	"github.com/redis/go-redis/v9"
)

const defaultPrefix = "syl"

// store 进程内唯一的 Redis 连接，client 为 nil 表示缓存关闭
type store struct {
	client *redis.Client
	prefix string
}

var current = &store{prefix: defaultPrefix}

// InitRedis 按配置建立连接，未启用时所有操作为空操作
func InitRedis(cfg *config.RedisConfig) error {
	if cfg == nil || !cfg.Enabled {
		current = &store{prefix: defaultPrefix}
		return nil
	}
	host := strings.TrimSpace(cfg.Host)
	if host == "" {
		host = "127.0.0.1"
	}
	port := cfg.Port
	if port <= 0 {
		port = 6379
	}
	prefix := strings.TrimSpace(cfg.Prefix)
	if prefix == "" {
		prefix = defaultPrefix
	}
	current = &store{
		client: redis.NewClient(&redis.Options{
			Addr:     fmt.Sprintf("%s:%d", host, port),
			Password: cfg.Password,
			DB:       cfg.DB,
		}),
		prefix: prefix,
	}
	return nil
}

func Enabled() bool {
	return current.client != nil
}

// Client 供限流等直接使用 Redis 的组件，缓存关闭时为 nil
func Client() *redis.Client {
	return current.client
}

// Ping 缓存关闭时视为健康
func Ping(ctx context.Context) error {
	if !Enabled() {
		return nil
	}
	return current.client.Ping(ctx).Err()
}

func Close() error {
	client := current.client
	current = &store{prefix: defaultPrefix}
	if client == nil {
		return nil
	}
	return client.Close()
}

// GetJSON 未命中返回 false 且无错误
func GetJSON(ctx context.Context, key string, dest interface{}) (bool, error) {
	if !Enabled() {
		return false, nil
	}
	raw, err := current.client.Get(ctx, BuildKey(key)).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		return false, nil
	case err != nil:
		return false, err
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false, err
	}
	return true, nil
}

func SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if !Enabled() {
		return nil
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return current.client.Set(ctx, BuildKey(key), raw, ttl).Err()
}

func Del(ctx context.Context, keys ...string) error {
	if !Enabled() || len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, key := range keys {
		full[i] = BuildKey(key)
	}
	return current.client.Del(ctx, full...).Err()
}

// BuildKey 加上全局前缀
func BuildKey(key string) string {
	key = strings.TrimSpace(key)
	if key == "" {
		return current.prefix
	}
	return current.prefix + ":" + key
}

// IncentiveRuleKey 单条激励规则
func IncentiveRuleKey(id uint) string {
	return fmt.Sprintf("incentive:rule:%d", id)
}
