package groups

// Group is keyed by its name. Timestamps are epoch milliseconds.
type Group struct {
	Name      string `json:"id"`
	CreatedBy string `json:"createdBy,omitempty"`
	CreatedAt int64  `json:"createdAt,omitempty"`
}

type Member struct {
	UserID   string `json:"userId"`
	Email    string `json:"email,omitempty"`
	JoinedAt int64  `json:"joinedAt"`
}

type Message struct {
	ID        string `json:"id"`
	SenderID  string `json:"senderId"`
	Email     string `json:"email"`
	Text      string `json:"text"`
	Timestamp int64  `json:"timestamp"`
}
