package http

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newIdempotentApp(client *redis.Client, calls *int) *fiber.App {
	app := fiber.New(fiber.Config{Immutable: true, ErrorHandler: ErrorHandler(zap.NewNop(), nil)})
	app.Post("/echo", Idempotency(client, "echo", time.Minute, zap.NewNop()), func(c *fiber.Ctx) error {
		*calls++
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"call": *calls})
	})
	return app
}

func postEcho(t *testing.T, app *fiber.App, key string) (int, string) {
	t.Helper()
	req := httptest.NewRequest("POST", "/echo", nil)
	if key != "" {
		req.Header.Set("Idempotency-Key", key)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestIdempotency_ReplaysStoredResponse(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	calls := 0
	app := newIdempotentApp(client, &calls)

	status, first := postEcho(t, app, "k1")
	assert.Equal(t, fiber.StatusCreated, status)
	status, second := postEcho(t, app, "k1")
	assert.Equal(t, fiber.StatusCreated, status)
	assert.JSONEq(t, first, second)
	assert.Equal(t, 1, calls)
	assert.True(t, mr.Exists("idempotency:echo:k1"))

	_, _ = postEcho(t, app, "")
	_, _ = postEcho(t, app, "")
	assert.Equal(t, 3, calls)
}

func TestIdempotency_NilClientPassesThrough(t *testing.T) {
	calls := 0
	app := newIdempotentApp(nil, &calls)
	postEcho(t, app, "k1")
	postEcho(t, app, "k1")
	assert.Equal(t, 2, calls)
}

func TestIdempotency_RejectsLongKey(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	calls := 0
	app := newIdempotentApp(client, &calls)
	status, body := postEcho(t, app, strings.Repeat("x", 256))
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Contains(t, body, "VALIDATION_FAILED")
	assert.Zero(t, calls)
}

func TestIdempotency_FailsOpenWhenRedisDown(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	mr.Close()

	calls := 0
	app := newIdempotentApp(client, &calls)
	status, _ := postEcho(t, app, "k1")
	assert.Equal(t, fiber.StatusCreated, status)
	assert.Equal(t, 1, calls)
}
