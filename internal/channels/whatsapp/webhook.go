package whatsapp

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/wolfman30/cybersathi/internal/intake"
	"github.com/wolfman30/cybersathi/internal/observability/metrics"
	"github.com/wolfman30/cybersathi/pkg/logging"
)

const (
	provider        = "whatsapp"
	maxWebhookBytes = 1 << 20
)

var webhookTracer = otel.Tracer("cybersathi.internal.channels.whatsapp")

// Deduper marks provider message ids as processed. MarkProcessed returns
// false when the id was seen before. Release undoes a mark for an event that
// could not be queued.
type Deduper interface {
	MarkProcessed(ctx context.Context, provider, messageID string) (bool, error)
	Release(ctx context.Context, provider, messageID string) error
}

// Submitter accepts decoded events for asynchronous handling.
type Submitter interface {
	Submit(ctx context.Context, ev intake.Event) error
}

// WebhookConfig wires the webhook handler.
type WebhookConfig struct {
	VerifyToken string
	// AppSecret enables X-Hub-Signature-256 checks when set.
	AppSecret string
	Queue     Submitter
	Dedupe    Deduper
	Metrics   *metrics.IntakeMetrics
	Logger    *logging.Logger
}

// WebhookHandler handles WhatsApp webhook verification and inbound messages.
type WebhookHandler struct {
	verifyToken string
	appSecret   string
	queue       Submitter
	dedupe      Deduper
	metrics     *metrics.IntakeMetrics
	logger      *logging.Logger
}

// NewWebhookHandler creates a new webhook handler.
func NewWebhookHandler(cfg WebhookConfig) *WebhookHandler {
	if cfg.Queue == nil {
		panic("whatsapp: event queue required")
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	return &WebhookHandler{
		verifyToken: cfg.VerifyToken,
		appSecret:   cfg.AppSecret,
		queue:       cfg.Queue,
		dedupe:      cfg.Dedupe,
		metrics:     cfg.Metrics,
		logger:      cfg.Logger.Component("whatsapp"),
	}
}

// HandleVerification handles the GET webhook verification challenge from Meta.
func (h *WebhookHandler) HandleVerification(w http.ResponseWriter, r *http.Request) {
	mode := r.URL.Query().Get("hub.mode")
	token := r.URL.Query().Get("hub.verify_token")
	challenge := r.URL.Query().Get("hub.challenge")

	if mode == "subscribe" && token != "" && token == h.verifyToken {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, challenge)
		return
	}

	h.logger.Warn("webhook verification rejected", "mode", mode)
	http.Error(w, "Forbidden", http.StatusForbidden)
}

// HandleInbound handles POST webhook notifications. Anything that parses is
// acknowledged with 200, including malformed bodies, so Meta does not retry.
func (h *WebhookHandler) HandleInbound(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	defer func() { h.metrics.ObserveWebhookLatency("inbound", time.Since(start).Seconds()) }()

	ctx, span := webhookTracer.Start(r.Context(), "whatsapp.inbound", trace.WithSpanKind(trace.SpanKindServer))
	defer span.End()

	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBytes))
	if err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	if h.appSecret != "" && !VerifySignature(h.appSecret, body, r.Header.Get("X-Hub-Signature-256")) {
		h.logger.Warn("webhook signature mismatch")
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	events, err := Decode(body)
	if err != nil {
		span.RecordError(err)
		h.logger.Warn("ignoring malformed webhook payload", "error", err)
		h.metrics.ObserveInbound("malformed", "ignored")
		writeAck(w)
		return
	}
	span.SetAttributes(attribute.Int("cybersathi.event_count", len(events)))

	for _, ev := range events {
		if ev.Kind == intake.EventMalformed {
			h.logger.Warn("ignoring malformed webhook message", "message_id", ev.MessageID, "sender", ev.Sender)
			h.metrics.ObserveInbound("malformed", "ignored")
			continue
		}
		h.enqueue(ctx, ev)
	}
	writeAck(w)
}

func (h *WebhookHandler) enqueue(ctx context.Context, ev intake.Event) {
	kind := ev.Kind.String()
	marked := false
	if h.dedupe != nil && ev.MessageID != "" {
		fresh, err := h.dedupe.MarkProcessed(ctx, provider, ev.MessageID)
		switch {
		case err != nil:
			h.logger.Warn("dedupe check failed, processing anyway", "error", err, "message_id", ev.MessageID)
		case !fresh:
			h.logger.Info("skipping duplicate webhook message", "message_id", ev.MessageID)
			h.metrics.ObserveInbound(kind, "duplicate")
			return
		default:
			marked = true
		}
	}
	if err := h.queue.Submit(ctx, ev); err != nil {
		h.logger.Error("failed to enqueue event", "error", err, "sender", ev.Sender, "message_id", ev.MessageID)
		h.metrics.ObserveInbound(kind, "dropped")
		if marked {
			// Let Meta's redelivery of this id through.
			if relErr := h.dedupe.Release(context.WithoutCancel(ctx), provider, ev.MessageID); relErr != nil {
				h.logger.Warn("failed to release dedupe mark", "error", relErr, "message_id", ev.MessageID)
			}
		}
		return
	}
	h.metrics.ObserveInbound(kind, "queued")
}

func writeAck(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

// VerifySignature verifies the X-Hub-Signature-256 header.
func VerifySignature(appSecret string, body []byte, signature string) bool {
	if appSecret == "" || signature == "" {
		return false
	}

	// Signature format: "sha256=<hex>"
	const prefix = "sha256="
	if len(signature) <= len(prefix) || signature[:len(prefix)] != prefix {
		return false
	}
	sigHex := signature[len(prefix):]

	mac := hmac.New(sha256.New, []byte(appSecret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(sigHex))
}
