package posts

// Post is an image post. Timestamp is epoch milliseconds.
type Post struct {
	ID        string `json:"id"`
	UserID    string `json:"userId"`
	Email     string `json:"email"`
	ImageURL  string `json:"imageURL"`
	Caption   string `json:"caption"`
	Likes     int    `json:"likes"`
	Timestamp int64  `json:"timestamp"`
}

type likeRecord struct {
	Timestamp int64 `json:"timestamp"`
}
