package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/wolfman30/cybersathi/pkg/logging"
)

const (
	defaultGraphAPIBase = "https://graph.facebook.com/v20.0"
	defaultHTTPTimeout  = 15 * time.Second
	maxMediaBytes       = 16 << 20
)

// ErrMediaTooLarge is returned when a media file exceeds the download cap.
var ErrMediaTooLarge = errors.New("whatsapp: media exceeds size limit")

// Client talks to the WhatsApp Business Cloud API.
type Client struct {
	accessToken  string
	phoneID      string
	graphAPIBase string
	httpClient   *http.Client
}

// NewClient creates a Graph API client for the given business phone number id.
func NewClient(accessToken, phoneID string) *Client {
	return &Client{
		accessToken:  accessToken,
		phoneID:      phoneID,
		graphAPIBase: defaultGraphAPIBase,
		httpClient:   &http.Client{Timeout: defaultHTTPTimeout},
	}
}

// SetGraphAPIBase overrides the Graph API base URL.
func (c *Client) SetGraphAPIBase(base string) {
	if base = strings.TrimRight(strings.TrimSpace(base), "/"); base != "" {
		c.graphAPIBase = base
	}
}

// Send delivers a text message. It satisfies intake.Messenger.
func (c *Client) Send(ctx context.Context, to, text string) error {
	_, err := c.SendText(ctx, to, text)
	return err
}

// SendText sends a plain text message and returns the API response.
func (c *Client) SendText(ctx context.Context, to, text string) (*SendResponse, error) {
	ctx, span := webhookTracer.Start(ctx, "whatsapp.send_text", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	body, err := json.Marshal(SendRequest{
		MessagingProduct: "whatsapp",
		RecipientType:    "individual",
		To:               to,
		Type:             "text",
		Text:             SendTextBox{Body: text},
	})
	if err != nil {
		return nil, fmt.Errorf("whatsapp: marshal send request: %w", err)
	}

	url := fmt.Sprintf("%s/%s/messages", c.graphAPIBase, c.phoneID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("whatsapp: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("whatsapp: send message: %w", err)
	}
	defer resp.Body.Close()
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("whatsapp: read response: %w", err)
	}

	var sendResp SendResponse
	if err := json.Unmarshal(respBody, &sendResp); err != nil {
		return nil, fmt.Errorf("whatsapp: unmarshal response (status %d): %w", resp.StatusCode, err)
	}
	if sendResp.Error != nil {
		return &sendResp, fmt.Errorf("whatsapp: API error %d: %s", sendResp.Error.Code, sendResp.Error.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return &sendResp, fmt.Errorf("whatsapp: unexpected status %d: %s", resp.StatusCode, string(respBody))
	}
	return &sendResp, nil
}

// MediaInfo resolves a media id to its download URL.
func (c *Client) MediaInfo(ctx context.Context, mediaID string) (*MediaInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/%s", c.graphAPIBase, mediaID), nil)
	if err != nil {
		return nil, fmt.Errorf("whatsapp: create media request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("whatsapp: fetch media info: %w", err)
	}
	defer resp.Body.Close()

	var info MediaInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("whatsapp: decode media info (status %d): %w", resp.StatusCode, err)
	}
	if info.Error != nil {
		return nil, fmt.Errorf("whatsapp: media API error %d: %s", info.Error.Code, info.Error.Message)
	}
	if resp.StatusCode != http.StatusOK || info.URL == "" {
		return nil, fmt.Errorf("whatsapp: media info status %d", resp.StatusCode)
	}
	return &info, nil
}

// Fetch downloads a media file and returns its bytes and MIME type.
func (c *Client) Fetch(ctx context.Context, mediaID string) ([]byte, string, error) {
	ctx, span := webhookTracer.Start(ctx, "whatsapp.fetch_media", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	info, err := c.MediaInfo(ctx, mediaID)
	if err != nil {
		span.RecordError(err)
		return nil, "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, info.URL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("whatsapp: create download request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		span.RecordError(err)
		return nil, "", fmt.Errorf("whatsapp: download media: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("whatsapp: media download status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxMediaBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("whatsapp: read media: %w", err)
	}
	if len(data) > maxMediaBytes {
		return nil, "", ErrMediaTooLarge
	}
	mime := info.MimeType
	if mime == "" {
		mime = resp.Header.Get("Content-Type")
	}
	return data, mime, nil
}

// LogSender is a Messenger that only logs outbound text. It stands in for
// the Graph API client when no credentials are configured.
type LogSender struct {
	logger *logging.Logger
}

// NewLogSender creates a logging sender.
func NewLogSender(logger *logging.Logger) *LogSender {
	if logger == nil {
		logger = logging.Default()
	}
	return &LogSender{logger: logger.Component("whatsapp")}
}

// Send logs the message.
func (s *LogSender) Send(_ context.Context, to, text string) error {
	s.logger.Info("outbound message (whatsapp disabled)", "to", to, "text", text)
	return nil
}
