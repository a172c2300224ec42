package intake

// EventKind discriminates inbound webhook events.
type EventKind int

const (
	EventText EventKind = iota
	EventImage
	EventDocument
	EventUnsupported
	// EventMalformed is a text, image or document message missing its body.
	EventMalformed
)

func (k EventKind) String() string {
	switch k {
	case EventText:
		return "text"
	case EventImage:
		return "image"
	case EventDocument:
		return "document"
	case EventMalformed:
		return "malformed"
	default:
		return "unsupported"
	}
}

// MediaRef is an opaque provider reference to an uploaded file.
type MediaRef struct {
	ID       string
	MimeType string
	Caption  string
}

// Event is one inbound message from a citizen.
type Event struct {
	Kind      EventKind
	Sender    string
	MessageID string
	Text      string
	Media     *MediaRef
}

// IsMedia reports whether the event carries an image or document.
func (e Event) IsMedia() bool {
	return (e.Kind == EventImage || e.Kind == EventDocument) && e.Media != nil
}
