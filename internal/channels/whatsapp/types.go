package whatsapp

// WebhookPayload is the top-level structure Meta posts for WhatsApp Business
// Cloud API notifications.
type WebhookPayload struct {
	Object string  `json:"object"`
	Entry  []Entry `json:"entry"`
}

// Entry is one business account's batch of changes.
type Entry struct {
	ID      string   `json:"id"`
	Changes []Change `json:"changes"`
}

// Change wraps a single notification.
type Change struct {
	Field string `json:"field"`
	Value Value  `json:"value"`
}

// Value carries messages or delivery statuses. Status-only notifications
// have no Messages.
type Value struct {
	MessagingProduct string           `json:"messaging_product"`
	Metadata         Metadata         `json:"metadata"`
	Contacts         []Contact        `json:"contacts,omitempty"`
	Messages         []InboundMessage `json:"messages,omitempty"`
	Statuses         []Status         `json:"statuses,omitempty"`
}

// Metadata identifies the receiving business number.
type Metadata struct {
	DisplayPhoneNumber string `json:"display_phone_number"`
	PhoneNumberID      string `json:"phone_number_id"`
}

// Contact is the sender's WhatsApp profile.
type Contact struct {
	WaID    string `json:"wa_id"`
	Profile struct {
		Name string `json:"name"`
	} `json:"profile"`
}

// Status is a delivery receipt for an outbound message.
type Status struct {
	ID          string `json:"id"`
	Status      string `json:"status"`
	RecipientID string `json:"recipient_id"`
}

// InboundMessage is one message from a citizen.
type InboundMessage struct {
	From      string     `json:"from"`
	ID        string     `json:"id"`
	Timestamp string     `json:"timestamp"`
	Type      string     `json:"type"`
	Text      *TextBody  `json:"text,omitempty"`
	Image     *MediaBody `json:"image,omitempty"`
	Document  *MediaBody `json:"document,omitempty"`
}

// TextBody is the content of a text message.
type TextBody struct {
	Body string `json:"body"`
}

// MediaBody references an uploaded image or document.
type MediaBody struct {
	ID       string `json:"id"`
	MimeType string `json:"mime_type"`
	SHA256   string `json:"sha256,omitempty"`
	Caption  string `json:"caption,omitempty"`
	Filename string `json:"filename,omitempty"`
}

// SendRequest is the Graph API payload for an outbound text message.
type SendRequest struct {
	MessagingProduct string      `json:"messaging_product"`
	RecipientType    string      `json:"recipient_type"`
	To               string      `json:"to"`
	Type             string      `json:"type"`
	Text             SendTextBox `json:"text"`
}

// SendTextBox is the text content of an outbound message.
type SendTextBox struct {
	Body       string `json:"body"`
	PreviewURL bool   `json:"preview_url"`
}

// SendResponse is returned by the Graph API after sending a message.
type SendResponse struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
	Error *APIError `json:"error,omitempty"`
}

// APIError represents an error returned by the Graph API.
type APIError struct {
	Message   string `json:"message"`
	Type      string `json:"type"`
	Code      int    `json:"code"`
	FBTraceID string `json:"fbtrace_id"`
}

// MediaInfo is the metadata returned for a media id.
type MediaInfo struct {
	ID       string    `json:"id"`
	URL      string    `json:"url"`
	MimeType string    `json:"mime_type"`
	SHA256   string    `json:"sha256"`
	FileSize int64     `json:"file_size"`
	Error    *APIError `json:"error,omitempty"`
}
