package chat

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"launchpad/pkg/response"
	"launchpad/pkg/session"
)

const (
	maxContentLen = 10000
	pongWait      = 60 * time.Second
	pingPeriod    = 30 * time.Second
	writeWait     = 10 * time.Second
)

var (
	ErrEmptyContent    = errors.New("message content cannot be empty")
	ErrContentTooLong  = errors.New("message content too long (max 10000 characters)")
	ErrMissingReceiver = errors.New("receiver_id is required")
	ErrSelfMessage     = errors.New("cannot send messages to yourself")
)

// Upgrader turns an HTTP request into a websocket connection.
type Upgrader interface {
	Upgrade(w http.ResponseWriter, r *http.Request, responseHeader http.Header) (*websocket.Conn, error)
}

type Handler struct {
	manager  *ConnectionManager
	store    MessageStore // nil disables persistence and history
	logger   *zap.Logger
	upgrader Upgrader

	mu   sync.Mutex
	last int64
	now  func() time.Time
}

func NewHandler(manager *ConnectionManager, store MessageStore, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		manager: manager,
		store:   store,
		logger:  logger,
		upgrader: &websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		now: time.Now,
	}
}

func (h *Handler) SetWebSocketUpgrader(u Upgrader) {
	h.upgrader = u
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.GET("/ws/chat", session.Require(), h.serveWebSocket)
	router.GET("/chat/status", h.status)
	router.GET("/messages", session.Require(), h.history)
}

func (h *Handler) tick() int64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	ts := h.now().UnixMilli()
	if ts <= h.last {
		ts = h.last + 1
	}
	h.last = ts
	return ts
}

// @Summary      Direct chat socket
// @Description  Upgrades to a websocket. Send {receiver_id, content} to chat or {event_type:"message_read", peer_id, message_ids} to acknowledge.
// @Tags         chat
// @Param        token query string true "Session token"
// @Success      101
// @Failure      401 {object} response.APIResponse
// @Router       /ws/chat [get]
func (h *Handler) serveWebSocket(c *gin.Context) {
	userID := session.FromContext(c).User.ID

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.String("user_id", userID), zap.Error(err))
		return
	}

	client := h.manager.AddClient(userID, conn)
	h.logger.Info("chat connected", zap.String("user_id", userID))
	h.touch(userID)

	go h.writeLoop(client)
	go h.readLoop(client)
}

func (h *Handler) touch(userID string) {
	if h.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := h.store.UpdateLastActive(ctx, userID, h.now().UnixMilli()); err != nil {
		h.logger.Warn("last active update failed", zap.String("user_id", userID), zap.Error(err))
	}
}

func (h *Handler) readLoop(client *Client) {
	ctx, cancel := context.WithCancel(context.Background())
	defer func() {
		cancel()
		h.manager.RemoveClient(client)
		h.logger.Info("chat disconnected", zap.String("user_id", client.UserID))
		h.touch(client.UserID)
	}()

	client.Conn.SetReadLimit(64 << 10)
	client.Conn.SetReadDeadline(time.Now().Add(pongWait))
	client.Conn.SetPongHandler(func(string) error {
		return client.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := client.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn("chat read failed", zap.String("user_id", client.UserID), zap.Error(err))
			}
			return
		}
		var in inbound
		if err := json.Unmarshal(raw, &in); err != nil {
			h.reply(client, ErrorResponse{Error: "invalid message format", Code: "invalid_format"})
			continue
		}

		switch in.EventType {
		case "":
			h.processMessage(ctx, client, Message{ReceiverID: in.ReceiverID, Content: in.Content})
		case eventMessageRead:
			h.processReadReceipt(ctx, client, in)
		default:
			h.reply(client, ErrorResponse{Error: "unknown event_type", Code: "invalid_event"})
		}
	}
}

func (h *Handler) writeLoop(client *Client) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-client.Done:
			return

		case message := <-client.Send:
			client.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.Conn.WriteJSON(message); err != nil {
				h.logger.Debug("chat write failed", zap.String("user_id", client.UserID), zap.Error(err))
				h.manager.RemoveClient(client)
				return
			}

		case <-ticker.C:
			client.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.manager.RemoveClient(client)
				return
			}
		}
	}
}

func validateMessage(msg Message, senderID string) error {
	switch {
	case msg.Content == "":
		return ErrEmptyContent
	case utf8.RuneCountInString(msg.Content) > maxContentLen:
		return ErrContentTooLong
	case msg.ReceiverID == "":
		return ErrMissingReceiver
	case msg.ReceiverID == senderID:
		return ErrSelfMessage
	}
	return nil
}

// processMessage persists msg before forwarding it. The sender always gets
// exactly one reply: an error, or an ack that says whether the receiver was
// reached live.
func (h *Handler) processMessage(ctx context.Context, client *Client, msg Message) {
	if err := validateMessage(msg, client.UserID); err != nil {
		h.reply(client, ErrorResponse{Error: err.Error(), Code: "invalid_message"})
		return
	}

	msg.ID = newMessageID()
	msg.SenderID = client.UserID
	msg.Timestamp = h.tick()
	msg.IsRead = false

	if h.store != nil {
		if err := h.store.SaveMessage(ctx, msg); err != nil {
			h.logger.Error("persist message failed",
				zap.String("sender_id", msg.SenderID),
				zap.String("receiver_id", msg.ReceiverID),
				zap.Error(err))
			h.reply(client, Acknowledgement{MessageID: msg.ID, Status: AckError, Error: "failed to persist message"})
			return
		}
	}

	status := AckQueued
	if h.manager.IsOnline(msg.ReceiverID) {
		if err := h.manager.SendTo(msg.ReceiverID, msg); err != nil {
			h.logger.Debug("live delivery failed", zap.String("receiver_id", msg.ReceiverID), zap.Error(err))
		} else {
			status = AckSent
		}
	}
	h.reply(client, Acknowledgement{MessageID: msg.ID, Status: status})
}

func (h *Handler) processReadReceipt(ctx context.Context, client *Client, in inbound) {
	if h.store == nil {
		return
	}
	if in.PeerID == "" || len(in.MessageIDs) == 0 {
		h.reply(client, ErrorResponse{Error: "peer_id and message_ids required for read receipt", Code: "invalid_receipt"})
		return
	}

	marked, err := h.store.MarkRead(ctx, client.UserID, in.PeerID, in.MessageIDs)
	if err != nil {
		h.logger.Error("mark read failed", zap.String("user_id", client.UserID), zap.Error(err))
		h.reply(client, ErrorResponse{Error: "failed to mark messages as read"})
		return
	}
	if len(marked) == 0 || !h.manager.IsOnline(in.PeerID) {
		return
	}
	note := ReadReceiptNotification{EventType: eventMessageRead, MessageIDs: marked, ReadBy: client.UserID}
	if err := h.manager.SendTo(in.PeerID, note); err != nil {
		h.logger.Debug("read receipt not delivered", zap.String("peer_id", in.PeerID), zap.Error(err))
	}
}

func (h *Handler) reply(client *Client, v any) {
	select {
	case client.Send <- v:
	case <-client.Done:
	}
}

func newMessageID() string {
	if id, err := uuid.NewV7(); err == nil {
		return id.String()
	}
	return uuid.NewString()
}

// @Summary      Online users
// @Tags         chat
// @Produce      json
// @Success      200 {object} response.APIResponse
// @Router       /chat/status [get]
func (h *Handler) status(c *gin.Context) {
	users := h.manager.OnlineUsers()
	response.SendAPIResponse(c, http.StatusOK, true, "online status", gin.H{
		"online_users": users,
		"count":        len(users),
	})
}

// @Summary      Conversation history
// @Description  Messages between the signed-in user and peer_id, oldest first.
// @Tags         chat
// @Produce      json
// @Security     BearerAuth
// @Param        peer_id query string true "Peer user id"
// @Param        limit query int false "Maximum messages to return (max 100)"
// @Param        before query int false "Epoch milliseconds cursor"
// @Success      200 {object} response.APIResponse{data=[]Message}
// @Failure      400 {object} response.APIResponse
// @Failure      401 {object} response.APIResponse
// @Failure      503 {object} response.APIResponse
// @Router       /messages [get]
func (h *Handler) history(c *gin.Context) {
	if h.store == nil {
		response.SendAPIResponse(c, http.StatusServiceUnavailable, false, "message history not available", nil)
		return
	}
	userID := session.FromContext(c).User.ID

	peerID := c.Query("peer_id")
	if peerID == "" {
		response.SendAPIResponse(c, http.StatusBadRequest, false, "peer_id is required", nil)
		return
	}
	limit := defaultHistoryLimit
	if ls := c.Query("limit"); ls != "" {
		n, err := strconv.Atoi(ls)
		if err != nil {
			response.SendAPIResponse(c, http.StatusBadRequest, false, "invalid limit parameter", nil)
			return
		}
		limit = n
	}
	var before int64
	if bs := c.Query("before"); bs != "" {
		n, err := strconv.ParseInt(bs, 10, 64)
		if err != nil {
			response.SendAPIResponse(c, http.StatusBadRequest, false, "invalid before parameter", nil)
			return
		}
		before = n
	}

	messages, err := h.store.History(c.Request.Context(), userID, peerID, limit, before)
	if err != nil {
		code := response.StatusFor(err, http.StatusInternalServerError)
		h.logger.Error("fetch history failed", zap.String("user_id", userID), zap.String("peer_id", peerID), zap.Error(err))
		response.SendError(c, code, err)
		return
	}
	response.SendAPIResponse(c, http.StatusOK, true, "messages", gin.H{
		"messages": messages,
		"count":    len(messages),
	})
}
