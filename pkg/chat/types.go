package chat

// Message is one direct message between two accounts. Timestamp is epoch
// milliseconds.
type Message struct {
	ID         string `json:"id"`
	SenderID   string `json:"sender_id"`
	ReceiverID string `json:"receiver_id"`
	Content    string `json:"content"`
	Timestamp  int64  `json:"timestamp"`
	IsRead     bool   `json:"is_read"`
}

// Acknowledgement is sent back to the sender once a message is processed.
type Acknowledgement struct {
	MessageID string `json:"message_id"`
	Status    string `json:"status"` // "sent", "queued" or "error"
	Error     string `json:"error,omitempty"`
}

const (
	AckSent   = "sent"
	AckQueued = "queued"
	AckError  = "error"
)

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

const eventMessageRead = "message_read"

// inbound is everything a client may send over the socket. EventType is
// empty for a plain message.
type inbound struct {
	EventType  string   `json:"event_type"`
	ReceiverID string   `json:"receiver_id"`
	Content    string   `json:"content"`
	PeerID     string   `json:"peer_id"`
	MessageIDs []string `json:"message_ids"`
}

// ReadReceiptNotification tells a sender which of their messages were read.
type ReadReceiptNotification struct {
	EventType  string   `json:"event_type"`
	MessageIDs []string `json:"message_ids"`
	ReadBy     string   `json:"read_by"`
}
