package messaging

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/repair-desk/internal/config"
)

func twilioConfig(baseURL string) config.TwilioConfig {
	return config.TwilioConfig{
		AccountSID:     "AC123",
		AuthToken:      "secret",
		WhatsAppNumber: "whatsapp:+14155238886",
		BaseURL:        baseURL,
		CountryPrefix:  "+2",
		TimeoutSeconds: 5,
	}
}

func TestFormatWhatsAppNumber(t *testing.T) {
	assert.Equal(t, "whatsapp:+201001234567", FormatWhatsAppNumber("01001234567", "+2"))
	assert.Equal(t, "whatsapp:+966500000000", FormatWhatsAppNumber("+966500000000", "+2"))
	assert.Equal(t, "whatsapp:+201001234567", FormatWhatsAppNumber(" 01001234567 ", "+2"))
}

func TestVideoMessageBody(t *testing.T) {
	body := VideoMessageBody("منى", VideoAfter, "MT-ABCD1234")
	assert.Equal(t, "مرحباً منى،\n\nهذا هو فيديو بعد الإصلاح بخصوص طلب الصيانة رقم MT-ABCD1234.", body)
	assert.Contains(t, VideoMessageBody("x", VideoBefore, "MT-1"), "قبل الإصلاح")
}

func TestTwilioClient_Send(t *testing.T) {
	var captured *http.Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		captured = r
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"sid":"SM42","status":"queued"}`))
	}))
	defer srv.Close()

	client := NewTwilioClient(twilioConfig(srv.URL))
	sid, err := client.Send(context.Background(), WhatsAppMessage{
		To:       "whatsapp:+201001234567",
		Body:     "hello",
		MediaURL: "http://files.test/repair-videos/a.mp4",
	})
	require.NoError(t, err)
	assert.Equal(t, "SM42", sid)

	require.NotNil(t, captured)
	assert.Equal(t, http.MethodPost, captured.Method)
	assert.Equal(t, "/2010-04-01/Accounts/AC123/Messages.json", captured.URL.Path)
	user, pass, ok := captured.BasicAuth()
	require.True(t, ok)
	assert.Equal(t, "AC123", user)
	assert.Equal(t, "secret", pass)
	assert.Equal(t, "whatsapp:+201001234567", captured.PostForm.Get("To"))
	assert.Equal(t, "whatsapp:+14155238886", captured.PostForm.Get("From"))
	assert.Equal(t, "hello", captured.PostForm.Get("Body"))
	assert.Equal(t, "http://files.test/repair-videos/a.mp4", captured.PostForm.Get("MediaUrl"))
}

func TestTwilioClient_SendAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"code":21211,"message":"The 'To' number is not a valid phone number.","status":400}`))
	}))
	defer srv.Close()

	_, err := NewTwilioClient(twilioConfig(srv.URL)).Send(context.Background(), WhatsAppMessage{To: "whatsapp:+2"})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, "The 'To' number is not a valid phone number.", apiErr.Message)
}

func TestTwilioClient_NotConfigured(t *testing.T) {
	cfg := twilioConfig("http://unused")
	cfg.AuthToken = ""
	_, err := NewTwilioClient(cfg).Send(context.Background(), WhatsAppMessage{})
	assert.ErrorIs(t, err, ErrNotConfigured)
}
