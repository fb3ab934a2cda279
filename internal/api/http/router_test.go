package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	nethttp "net/http"
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

	"github.com/spec-kit/repair-desk/internal/api/http/handlers"
	"github.com/spec-kit/repair-desk/internal/auth"
	"github.com/spec-kit/repair-desk/internal/config"
	"github.com/spec-kit/repair-desk/internal/events"
	"github.com/spec-kit/repair-desk/internal/messaging"
	"github.com/spec-kit/repair-desk/internal/observability"
	"github.com/spec-kit/repair-desk/internal/persistence"
	"github.com/spec-kit/repair-desk/internal/report"
	"github.com/spec-kit/repair-desk/internal/repository"
	"github.com/spec-kit/repair-desk/internal/repository/memory"
	"github.com/spec-kit/repair-desk/internal/service"
	"github.com/spec-kit/repair-desk/internal/storage"
)

type testServer struct {
	app        *fiber.App
	store      *memory.Store
	redis      *miniredis.Miniredis
	adminToken string
	staffToken string
}

func newTestServer(t *testing.T, twilio config.TwilioConfig) *testServer {
	t.Helper()
	ctx := context.Background()
	logger := zap.NewNop()
	store := memory.NewStore()
	metrics := observability.NewMetrics("repair_desk_test")

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	uploadDir := t.TempDir()
	files, err := storage.NewLocalStore(uploadDir, "http://files.test", 1<<20)
	require.NoError(t, err)

	authService := service.NewAuthService(config.AuthConfig{JWTSecret: "test", AccessTokenTTLMinutes: 10, BcryptCost: 4}, store.Staff(), logger)
	require.NoError(t, authService.EnsureAdmin(ctx, "Admin", "admin@shop.test", "adminpass"))
	_, err = authService.CreateStaff(ctx, service.StaffCreateInput{Name: "Clerk", Email: "clerk@shop.test", Password: "clerkpass"})
	require.NoError(t, err)

	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo:   store.Tickets(),
		EngineerRepo: store.Engineers(),
		CostRepo:     store.Costs(),
		HistoryRepo:  store.History(),
		Files:        files,
		Printer:      report.NewPrinter("en", "EGP", time.UTC),
		Dispatcher:   events.NewInMemoryDispatcher(),
		Logger:       logger,
	})
	reportCfg := config.ReportConfig{TimeZone: "UTC", Locale: "en"}

	app := NewApp(config.AppConfig{Name: "repair-desk", BodyLimitMB: 4, RequestTimeoutSeconds: 5}, logger, metrics)
	RegisterRoutes(app, RouteConfig{
		Health:         handlers.NewHealthHandler("repair-desk", "test", &persistence.Postgres{}, &persistence.Redis{Client: rdb}, uploadDir),
		Auth:           handlers.NewAuthHandler(authService, store.Staff()),
		Tickets:        handlers.NewTicketsHandler(ticketService, service.NewWhatsAppService(store.Tickets(), messaging.NewTwilioClient(twilio), twilio, metrics, logger)),
		Engineers:      handlers.NewEngineersHandler(service.NewEngineerService(store.Engineers(), 10)),
		Costs:          handlers.NewCostsHandler(service.NewCostService(store.Tickets(), store.Costs(), store.History(), logger)),
		Reports:        handlers.NewReportsHandler(service.NewReportService(store.Tickets(), reportCfg)),
		AuthMiddleware: auth.NewAuthMiddleware(authService.TokenManager(), store.Staff()),
		Metrics:        metrics,
		Redis:          rdb,
		IdempotencyTTL: time.Hour,
		Logger:         logger,
	})

	srv := &testServer{app: app, store: store, redis: mr}
	srv.adminToken = srv.login(t, "admin@shop.test", "adminpass")
	srv.staffToken = srv.login(t, "clerk@shop.test", "clerkpass")
	return srv
}

func (s *testServer) do(t *testing.T, method, path, token string, body any, headers ...string) (*nethttp.Response, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	return s.send(t, req)
}

func (s *testServer) send(t *testing.T, req *nethttp.Request) (*nethttp.Response, map[string]any) {
	t.Helper()
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var decoded map[string]any
	_ = json.Unmarshal(raw, &decoded)
	return resp, decoded
}

func (s *testServer) login(t *testing.T, email, password string) string {
	t.Helper()
	resp, body := s.do(t, "POST", "/auth/login", "", map[string]string{"email": email, "password": password})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	return body["data"].(map[string]any)["token"].(string)
}

func (s *testServer) createTicket(t *testing.T) map[string]any {
	t.Helper()
	resp, body := s.do(t, "POST", "/tickets", "", map[string]any{
		"customer_name":     "Mona",
		"customer_phone":    "01001234567",
		"customer_email":    "mona@example.com",
		"customer_address":  "Cairo",
		"device_type":       "Washer",
		"fault_description": "Leaks",
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	return body["data"].(map[string]any)
}

func errorCode(body map[string]any) string {
	errObj, ok := body["error"].(map[string]any)
	if !ok {
		return ""
	}
	code, _ := errObj["code"].(string)
	return code
}

func TestPublicTicketCreation(t *testing.T) {
	srv := newTestServer(t, config.TwilioConfig{})
	ticket := srv.createTicket(t)
	assert.Regexp(t, `^MT-`, ticket["ticket_ref"])
	assert.Equal(t, "OPEN", ticket["status"])
	assert.Equal(t, "NORMAL", ticket["priority"])

	resp, body := srv.do(t, "POST", "/tickets", "", map[string]any{"customer_name": "x"})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "VALIDATION_FAILED", errorCode(body))
}

func TestUnauthenticatedAccess(t *testing.T) {
	srv := newTestServer(t, config.TwilioConfig{})
	resp, body := srv.do(t, "GET", "/tickets", "", nil)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "UNAUTHORIZED", errorCode(body))

	resp, body = srv.do(t, "GET", "/reports/accounts", srv.staffToken, nil)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "FORBIDDEN", errorCode(body))

	resp, _ = srv.do(t, "GET", "/reports/accounts", srv.adminToken, nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestIdempotentTicketCreation(t *testing.T) {
	srv := newTestServer(t, config.TwilioConfig{})
	payload := map[string]any{
		"customer_name":     "Mona",
		"customer_phone":    "0100",
		"customer_address":  "Cairo",
		"device_type":       "TV",
		"fault_description": "No sound",
	}

	first, firstBody := srv.do(t, "POST", "/tickets", "", payload, "Idempotency-Key", "abc-123")
	require.Equal(t, fiber.StatusCreated, first.StatusCode)
	second, secondBody := srv.do(t, "POST", "/tickets", "", payload, "Idempotency-Key", "abc-123")
	require.Equal(t, fiber.StatusCreated, second.StatusCode)
	assert.Equal(t, "true", second.Header.Get("Idempotency-Replayed"))
	assert.Equal(t, firstBody["data"].(map[string]any)["id"], secondBody["data"].(map[string]any)["id"])

	tickets, err := srv.store.Tickets().List(context.Background(), repository.TicketFilter{})
	require.NoError(t, err)
	assert.Len(t, tickets, 1)

	require.NoError(t, srv.redis.Set("idempotency:tickets:busy", idempotencyPending))
	resp, body := srv.do(t, "POST", "/tickets", "", payload, "Idempotency-Key", "busy")
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
	assert.Equal(t, "CONFLICT", errorCode(body))
}

func TestIdempotency_FailedRequestReleasesKey(t *testing.T) {
	srv := newTestServer(t, config.TwilioConfig{})
	resp, _ := srv.do(t, "POST", "/tickets", "", map[string]any{"customer_name": "x"}, "Idempotency-Key", "retry-me")
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.False(t, srv.redis.Exists("idempotency:tickets:retry-me"))
}

func TestTicketWorkflow(t *testing.T) {
	srv := newTestServer(t, config.TwilioConfig{})
	ticket := srv.createTicket(t)
	id := ticket["id"].(string)

	resp, body := srv.do(t, "POST", "/engineers", srv.staffToken, map[string]any{"name": "  Karim "})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	engineerID := body["data"].(map[string]any)["id"].(string)
	assert.Equal(t, "Karim", body["data"].(map[string]any)["name"])

	resp, body = srv.do(t, "PUT", "/tickets/"+id+"/engineer", srv.staffToken, map[string]any{"engineer_id": engineerID})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "Karim", body["data"].(map[string]any)["engineer_name"])

	resp, _ = srv.do(t, "POST", "/tickets/"+id+"/costs", srv.staffToken, map[string]any{"description": "Pump", "quantity": 1, "unit_price": 250})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	resp, body = srv.do(t, "POST", "/tickets/"+id+"/costs", srv.staffToken, map[string]any{"description": "Pump", "quantity": 0, "unit_price": 250})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "VALIDATION_FAILED", errorCode(body))

	resp, body = srv.do(t, "PUT", "/tickets/"+id+"/report", srv.staffToken, map[string]any{"repair_notes": "Replaced pump"})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "Replaced pump", body["data"].(map[string]any)["repair_notes"])

	// REPAIRED without a video is rejected.
	resp, body = srv.do(t, "PATCH", "/tickets/"+id+"/status", srv.staffToken, map[string]any{"status": "REPAIRED"})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "VALIDATION_FAILED", errorCode(body))

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("status", "REPAIRED"))
	part, err := mw.CreateFormFile("repair_video", "after.mp4")
	require.NoError(t, err)
	_, err = part.Write([]byte("fake video"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest("PATCH", "/tickets/"+id+"/status", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+srv.staffToken)
	resp, body = srv.send(t, req)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	data := body["data"].(map[string]any)
	assert.Equal(t, "REPAIRED", data["status"])
	assert.True(t, strings.HasPrefix(data["repair_video_url"].(string), "http://files.test/repair-videos/"))

	resp, body = srv.do(t, "GET", "/tickets/"+id, srv.staffToken, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, 250.0, body["data"].(map[string]any)["total_cost"])

	resp, body = srv.do(t, "GET", "/tickets/"+id+"/history", srv.staffToken, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Len(t, body["data"], 4)

	resp, _ = srv.do(t, "GET", "/tickets/"+id+"/print", srv.staffToken, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")

	resp, body = srv.do(t, "GET", "/reports/accounts", srv.adminToken, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	rows := body["data"].([]any)
	require.Len(t, rows, 1)
	row := rows[0].(map[string]any)
	assert.Equal(t, "Karim", row["engineer_name"])
	assert.Equal(t, 250.0, row["total_cost"])
	assert.Equal(t, 25.0, row["commission"])

	resp, body = srv.do(t, "GET", "/customers/history?email=MONA@example.com", srv.staffToken, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "Mona", body["data"].(map[string]any)["customer"].(map[string]any)["name"])

	resp, _ = srv.do(t, "DELETE", "/engineers/"+engineerID, srv.staffToken, nil)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	resp, _ = srv.do(t, "DELETE", "/engineers/"+engineerID, srv.adminToken, nil)
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)

	resp, body = srv.do(t, "GET", "/tickets/"+id, srv.staffToken, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Nil(t, body["data"].(map[string]any)["assigned_engineer_id"])
}

func TestSendWhatsAppVideo(t *testing.T) {
	twilioSrv := httptest.NewServer(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		w.WriteHeader(nethttp.StatusCreated)
		_, _ = w.Write([]byte(`{"sid":"SM900"}`))
	}))
	defer twilioSrv.Close()

	srv := newTestServer(t, config.TwilioConfig{
		AccountSID: "AC1", AuthToken: "tok", WhatsAppNumber: "whatsapp:+1555",
		BaseURL: twilioSrv.URL, CountryPrefix: "+2", TimeoutSeconds: 2,
	})
	id := srv.createTicket(t)["id"].(string)

	resp, body := srv.do(t, "POST", "/tickets/"+id+"/whatsapp", srv.staffToken, map[string]any{"video_type": "before"})
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "NOT_FOUND", errorCode(body))

	resp, body = srv.do(t, "POST", "/tickets/"+id+"/whatsapp", srv.staffToken, map[string]any{"video_type": "sideways"})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("video", "before.mp4")
	require.NoError(t, err)
	_, err = part.Write([]byte("clip"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	req := httptest.NewRequest("POST", "/tickets/"+id+"/before-video", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+srv.staffToken)
	resp, _ = srv.send(t, req)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, body = srv.do(t, "POST", "/tickets/"+id+"/whatsapp", srv.staffToken, map[string]any{"video_type": "before"})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "SM900", body["data"].(map[string]any)["message_sid"])
}

func TestHealthAndMetrics(t *testing.T) {
	srv := newTestServer(t, config.TwilioConfig{})
	resp, body := srv.do(t, "GET", "/health/ready", "", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	deps := body["dependencies"].(map[string]any)
	assert.Equal(t, "in-memory", deps["postgres"])
	assert.Equal(t, "ok", deps["redis"])
	assert.Equal(t, "ok", deps["storage"])

	srv.redis.Close()
	resp, body = srv.do(t, "GET", "/health/ready", "", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.NotEqual(t, "ok", body["dependencies"].(map[string]any)["redis"])

	resp, err := srv.app.Test(httptest.NewRequest("GET", "/metrics", nil), -1)
	require.NoError(t, err)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "repair_desk_test_http_requests_total")
}


func TestRequestValuesSurviveLaterRequests(t *testing.T) {
	srv := newTestServer(t, config.TwilioConfig{})
	id := srv.createTicket(t)["id"].(string)

	resp, body := srv.do(t, "POST", "/engineers", srv.staffToken, map[string]any{"name": "Samir", "commission_rate": 20})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	engineerID := body["data"].(map[string]any)["id"].(string)
	resp, _ = srv.do(t, "PUT", "/tickets/"+id+"/engineer", srv.staffToken, map[string]any{"engineer_id": engineerID})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	resp, _ = srv.do(t, "POST", "/tickets/"+id+"/costs", srv.staffToken, map[string]any{"description": "Motor", "quantity": 2, "unit_price": 100})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	// Unrelated traffic reuses the server's request buffers.
	for i := 0; i < 5; i++ {
		srv.createTicket(t)
		resp, _ = srv.do(t, "GET", "/tickets?page_size=1&page=1", srv.staffToken, nil)
		require.Equal(t, fiber.StatusOK, resp.StatusCode)
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("status", "REPAIRED"))
	part, err := mw.CreateFormFile("repair_video", "after.mp4")
	require.NoError(t, err)
	_, err = part.Write([]byte("clip"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	req := httptest.NewRequest("PATCH", "/tickets/"+id+"/status", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+srv.staffToken)
	resp, _ = srv.send(t, req)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	costs, err := srv.store.Costs().ListByTicket(context.Background(), id)
	require.NoError(t, err)
	require.Len(t, costs, 1)
	assert.Equal(t, id, costs[0].TicketID)

	resp, body = srv.do(t, "GET", "/tickets/"+id+"/costs", srv.staffToken, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, 200.0, body["data"].(map[string]any)["total"])

	resp, body = srv.do(t, "GET", "/reports/accounts", srv.adminToken, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	rows := body["data"].([]any)
	require.Len(t, rows, 1)
	assert.Equal(t, engineerID, rows[0].(map[string]any)["engineer_id"])
	assert.Equal(t, 40.0, rows[0].(map[string]any)["commission"])
}

func TestListTicketsPaginationUsesAppliedPageSize(t *testing.T) {
	srv := newTestServer(t, config.TwilioConfig{})
	for i := 0; i < 3; i++ {
		srv.createTicket(t)
	}

	resp, body := srv.do(t, "GET", "/tickets?page_size=1000&page=1", srv.staffToken, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	meta := body["meta"].(map[string]any)
	assert.Equal(t, 200.0, meta["page_size"])
	assert.Len(t, body["data"], 3)

	resp, body = srv.do(t, "GET", "/tickets?page_size=2&page=2", srv.staffToken, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Len(t, body["data"], 1)
	assert.Equal(t, 2.0, body["meta"].(map[string]any)["page"])
}
