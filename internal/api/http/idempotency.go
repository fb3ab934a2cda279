package http

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	apperrors "github.com/spec-kit/repair-desk/pkg/util/errorutil"
)

const (
	idempotencyHeader  = "Idempotency-Key"
	idempotencyPending = "PROCESSING"
	idempotencyLockTTL = 30 * time.Second
)

type storedResponse struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type"`
	Body        string `json:"body"`
}

// Idempotency replays the stored response when a request repeats an
// Idempotency-Key header within ttl. A request racing one still in flight
// gets 409. Redis errors fail open.
func Idempotency(client *redis.Client, scope string, ttl time.Duration, logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := c.Get(idempotencyHeader)
		if client == nil || key == "" {
			return c.Next()
		}
		if len(key) > 255 {
			return apperrors.NewValidationError("Idempotency-Key is too long", nil)
		}

		ctx := c.UserContext()
		redisKey := "idempotency:" + scope + ":" + key

		val, err := client.Get(ctx, redisKey).Result()
		switch {
		case err == nil:
			if val == idempotencyPending {
				return apperrors.NewConflict("a request with this Idempotency-Key is in progress", nil)
			}
			var stored storedResponse
			if jsonErr := json.Unmarshal([]byte(val), &stored); jsonErr == nil {
				c.Set("Idempotency-Replayed", "true")
				if stored.ContentType != "" {
					c.Set(fiber.HeaderContentType, stored.ContentType)
				}
				return c.Status(stored.Status).SendString(stored.Body)
			}
			logger.Warn("discarding unreadable idempotency record", zap.String("key", redisKey))
		case !errors.Is(err, redis.Nil):
			logger.Warn("idempotency lookup failed", zap.Error(err))
			return c.Next()
		}

		acquired, err := client.SetNX(ctx, redisKey, idempotencyPending, idempotencyLockTTL).Result()
		if err != nil {
			logger.Warn("idempotency lock failed", zap.Error(err))
			return c.Next()
		}
		if !acquired {
			return apperrors.NewConflict("a request with this Idempotency-Key is in progress", nil)
		}

		if err := c.Next(); err != nil {
			_ = client.Del(ctx, redisKey).Err()
			return err
		}

		status := c.Response().StatusCode()
		if status < 200 || status > 299 {
			_ = client.Del(ctx, redisKey).Err()
			return nil
		}
		payload, err := json.Marshal(storedResponse{
			Status:      status,
			ContentType: string(c.Response().Header.ContentType()),
			Body:        string(c.Response().Body()),
		})
		if err == nil {
			err = client.Set(ctx, redisKey, payload, ttl).Err()
		}
		if err != nil {
			logger.Warn("idempotency store failed", zap.Error(err))
		}
		return nil
	}
}
