package router

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/stockyourlot/internal/config"
	handlershared "github.com/stockyourlot/internal/http/handlers/shared"
	"github.com/stockyourlot/internal/http/response"
	"github.com/stockyourlot/internal/i18n"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// RateLimitKeyFunc 从请求中提取限流维度
type RateLimitKeyFunc func(*gin.Context) string

// RateLimitRule 固定窗口限流，超限后可额外封禁一段时间
type RateLimitRule struct {
	Prefix        string
	WindowSeconds int
	MaxRequests   int
	BlockSeconds  int
	MessageKey    string
}

func newRateLimitRule(prefix string, cfg config.RateLimitConfig, messageKey string) RateLimitRule {
	return RateLimitRule{
		Prefix:        prefix,
		WindowSeconds: cfg.WindowSeconds,
		MaxRequests:   cfg.MaxRequests,
		BlockSeconds:  cfg.BlockSeconds,
		MessageKey:    messageKey,
	}
}

func (r RateLimitRule) enabled() bool {
	return r.WindowSeconds > 0 && r.MaxRequests > 0
}

func (r RateLimitRule) key(raw string) string {
	if r.Prefix == "" {
		return raw
	}
	return r.Prefix + ":" + raw
}

// KEYS: 计数 key、封禁 key；ARGV: 窗口秒数、上限、封禁秒数
// 返回 {计数, 剩余秒数}，封禁中计数为 -1
var rateLimitScript = redis.NewScript(`
local blocked = redis.call("TTL", KEYS[2])
if blocked > 0 then
	return {-1, blocked}
end
local current = redis.call("INCR", KEYS[1])
if current == 1 then
	redis.call("EXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("TTL", KEYS[1])
if current > tonumber(ARGV[2]) and tonumber(ARGV[3]) > 0 then
	redis.call("SET", KEYS[2], "1", "EX", ARGV[3])
	ttl = tonumber(ARGV[3])
end
return {current, ttl}
`)

type rateDecision struct {
	count int64
	ttl   int64
}

func (d rateDecision) rejected(rule RateLimitRule) bool {
	return d.count < 0 || d.count > int64(rule.MaxRequests)
}

// retryAfter 至少 1 秒
func (d rateDecision) retryAfter(rule RateLimitRule) int {
	wait := int(d.ttl)
	if wait < 1 {
		wait = rule.WindowSeconds
	}
	if wait < 1 {
		wait = 1
	}
	return wait
}

func decodeRateDecision(values []int64) (rateDecision, error) {
	if len(values) < 2 {
		return rateDecision{}, fmt.Errorf("unexpected rate limit reply: %v", values)
	}
	return rateDecision{count: values[0], ttl: values[1]}, nil
}

// RateLimitMiddleware 基于 Redis 的限流，未配置 Redis 或规则时直接放行
func RateLimitMiddleware(client *redis.Client, rule RateLimitRule, keyFunc RateLimitKeyFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		if client == nil || !rule.enabled() {
			c.Next()
			return
		}
		raw := ""
		if keyFunc != nil {
			raw = strings.TrimSpace(keyFunc(c))
		}
		if raw == "" {
			raw = c.ClientIP()
		}
		key := rule.key(raw)

		values, err := rateLimitScript.Run(c.Request.Context(), client,
			[]string{key, key + ":block"},
			rule.WindowSeconds, rule.MaxRequests, rule.BlockSeconds,
		).Int64Slice()
		if err == nil {
			var decision rateDecision
			decision, err = decodeRateDecision(values)
			if err == nil && decision.rejected(rule) {
				msgKey := rule.MessageKey
				if msgKey == "" {
					msgKey = "error.rate_limited"
				}
				response.TooManyRequests(c, i18n.Sprintf(i18n.ResolveLocale(c), msgKey, decision.retryAfter(rule)))
				c.Abort()
				return
			}
		}
		if err != nil {
			handlershared.RequestLog(c).Errorw("rate_limit_failed", "key", key, "error", err)
			response.Internal(c, i18n.T(i18n.ResolveLocale(c), "error.rate_limit_unavailable"))
			c.Abort()
			return
		}
		c.Next()
	}
}

// KeyByIP 按客户端 IP 限流
func KeyByIP(c *gin.Context) string {
	return c.ClientIP()
}

// KeyByUserID 已鉴权时按用户限流，否则退回 IP
func KeyByUserID(c *gin.Context) string {
	if userID := c.GetUint(userIDContextKey); userID != 0 {
		return fmt.Sprintf("user:%d", userID)
	}
	return c.ClientIP()
}

// KeyByUserAndJSONField 请求体字段（小写）与用户组合，字段缺失时仅按用户
func KeyByUserAndJSONField(field string) RateLimitKeyFunc {
	return func(c *gin.Context) string {
		owner := KeyByUserID(c)
		value := strings.ToLower(peekJSONString(c, field))
		if value == "" {
			return owner
		}
		return value + "|" + owner
	}
}

// peekJSONString 读取请求体中的字符串字段并回填请求体
func peekJSONString(c *gin.Context, field string) string {
	if c == nil || c.Request == nil || c.Request.Body == nil {
		return ""
	}
	body, err := io.ReadAll(c.Request.Body)
	c.Request.Body = io.NopCloser(bytes.NewReader(body))
	if err != nil || len(body) == 0 {
		return ""
	}
	var payload map[string]json.RawMessage
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	var value string
	if err := json.Unmarshal(payload[field], &value); err != nil {
		return ""
	}
	return strings.TrimSpace(value)
}
