package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/repair-desk/internal/config"
)

// VideoType selects which ticket video is sent.
type VideoType string

const (
	VideoBefore VideoType = "before"
	VideoAfter  VideoType = "after"
)

// Valid reports whether v is a known video type.
func (v VideoType) Valid() bool {
	return v == VideoBefore || v == VideoAfter
}

// Label returns the Arabic phrase naming the video.
func (v VideoType) Label() string {
	if v == VideoBefore {
		return "قبل الإصلاح"
	}
	return "بعد الإصلاح"
}

// WhatsAppMessage is one outbound media message.
type WhatsAppMessage struct {
	To       string
	Body     string
	MediaURL string
}

// WhatsAppSender delivers WhatsApp messages and returns the provider message id.
type WhatsAppSender interface {
	Send(ctx context.Context, msg WhatsAppMessage) (string, error)
}

// APIError is a non-2xx answer from the messaging provider.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("twilio responded %d: %s", e.Status, e.Message)
}

// ErrNotConfigured is returned when credentials are missing.
var ErrNotConfigured = errors.New("twilio credentials are not configured")

// TwilioClient posts messages to the Twilio Messages API.
type TwilioClient struct {
	cfg config.TwilioConfig
}

// NewTwilioClient builds a client from config.
func NewTwilioClient(cfg config.TwilioConfig) *TwilioClient {
	return &TwilioClient{cfg: cfg}
}

type twilioResponse struct {
	SID     string `json:"sid"`
	Message string `json:"message"`
}

// Send posts the message once. There is no retry.
func (t *TwilioClient) Send(ctx context.Context, msg WhatsAppMessage) (string, error) {
	if !t.cfg.Enabled() {
		return "", ErrNotConfigured
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	timeout := t.cfg.Timeout()
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", strings.TrimRight(t.cfg.BaseURL, "/"), t.cfg.AccountSID)

	args := fiber.AcquireArgs()
	defer fiber.ReleaseArgs(args)
	args.Set("To", msg.To)
	args.Set("From", t.cfg.WhatsAppNumber)
	args.Set("Body", msg.Body)
	args.Set("MediaUrl", msg.MediaURL)

	agent := fiber.Post(endpoint).
		BasicAuth(t.cfg.AccountSID, t.cfg.AuthToken).
		Form(args).
		Timeout(timeout)

	status, body, errs := agent.Bytes()
	if len(errs) > 0 {
		return "", fmt.Errorf("twilio request: %w", errors.Join(errs...))
	}

	var parsed twilioResponse
	decodeErr := json.Unmarshal(body, &parsed)

	if status < 200 || status > 299 {
		message := parsed.Message
		if decodeErr != nil || message == "" {
			message = "failed to send message via Twilio"
		}
		return "", &APIError{Status: status, Message: message}
	}
	if decodeErr != nil {
		return "", fmt.Errorf("decode twilio response: %w", decodeErr)
	}
	return parsed.SID, nil
}

// FormatWhatsAppNumber keeps numbers already in international form and
// prefixes local ones with the configured country prefix.
func FormatWhatsAppNumber(phone, countryPrefix string) string {
	phone = strings.TrimSpace(phone)
	if !strings.HasPrefix(phone, "+") {
		phone = countryPrefix + phone
	}
	return "whatsapp:" + phone
}

// VideoMessageBody greets the customer and names the video and ticket ref.
func VideoMessageBody(customerName string, video VideoType, ticketRef string) string {
	return fmt.Sprintf("مرحباً %s،\n\nهذا هو فيديو %s بخصوص طلب الصيانة رقم %s.", customerName, video.Label(), ticketRef)
}
