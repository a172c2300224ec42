package whatsapp

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/wolfman30/cybersathi/internal/intake"
)

// ErrMalformedPayload is returned when a webhook body is not valid JSON.
var ErrMalformedPayload = errors.New("whatsapp: malformed webhook payload")

// Decode converts a webhook body into intake events. Notifications without
// messages (delivery statuses) yield no events. A text, image or document
// message without its body decodes as intake.EventMalformed.
func Decode(body []byte) ([]intake.Event, error) {
	var payload WebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedPayload, err)
	}
	var events []intake.Event
	for _, entry := range payload.Entry {
		for _, change := range entry.Changes {
			for _, msg := range change.Value.Messages {
				events = append(events, toEvent(msg))
			}
		}
	}
	return events, nil
}

func toEvent(msg InboundMessage) intake.Event {
	ev := intake.Event{Sender: strings.TrimSpace(msg.From), MessageID: msg.ID}
	switch msg.Type {
	case "text":
		if msg.Text == nil {
			ev.Kind = intake.EventMalformed
			break
		}
		ev.Kind = intake.EventText
		ev.Text = msg.Text.Body
	case "image":
		if msg.Image == nil {
			ev.Kind = intake.EventMalformed
			break
		}
		ev.Kind = intake.EventImage
		ev.Media = mediaRef(msg.Image)
	case "document":
		if msg.Document == nil {
			ev.Kind = intake.EventMalformed
			break
		}
		ev.Kind = intake.EventDocument
		ev.Media = mediaRef(msg.Document)
	default:
		ev.Kind = intake.EventUnsupported
	}
	return ev
}

func mediaRef(m *MediaBody) *intake.MediaRef {
	return &intake.MediaRef{ID: m.ID, MimeType: m.MimeType, Caption: m.Caption}
}
