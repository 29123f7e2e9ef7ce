package client

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"sealchat/pkg/chat"
	"sealchat/pkg/keys"
	"sealchat/pkg/logger"
	"sealchat/pkg/models"
	"sealchat/pkg/realtime"
	"sealchat/pkg/security"
	"sealchat/pkg/session"
	"sealchat/pkg/telemetry"
	"sealchat/pkg/utils"
)

// API is the slice of server operations the live client drives. The chat
// engine satisfies it directly, which keeps client tests free of HTTP.
type API interface {
	Send(req chat.SendRequest) (models.Message, error)
	MarkSeen(chatID, viewerID string, messageIDs []string) error
	Typing(chatID, userID, userName string, isTyping bool) error
}

type silenceEntry struct {
	UserID string
	Record models.SilenceRecord
}

// Client is one participant's live view of a single conversation. All
// local state updates are synchronous with respect to each network
// completion: the only suspension points are the API calls themselves.
type Client struct {
	UserID   string
	UserName string
	ChatID   string

	api      API
	sessions *session.Cache

	mu            sync.Mutex
	view          []models.Message
	partnerTyping bool
	silence       map[string]silenceEntry

	dispatcher *realtime.Dispatcher
	subs       []*realtime.Subscription
	done       chan struct{}

	typingMu     sync.Mutex
	typingActive bool
	typingTimer  *time.Timer
	debounce     time.Duration
}

// New returns a client for one conversation. Session keys are derived
// lazily via EnsureSession before the first encrypted send or receive.
func New(userID, userName, chatID string, api API, sessions *session.Cache) *Client {
	c := &Client{
		UserID:   userID,
		UserName: userName,
		ChatID:   chatID,
		api:      api,
		sessions: sessions,
		silence:  map[string]silenceEntry{},
		done:     make(chan struct{}),
		debounce: 2 * time.Second,
	}
	d := realtime.NewDispatcher()
	d.Bind(realtime.EventIncomingMessage, c.handleIncoming)
	d.Bind(realtime.EventMessageUpdate, c.handleUpdate)
	d.Bind(realtime.EventMessageStatus, c.handleStatus)
	d.Bind(realtime.EventTyping, c.handleTyping)
	d.Bind(realtime.EventSilenceStatus, c.handleSilence)
	d.Bind(realtime.EventSilenceCleared, c.handleSilenceCleared)
	c.dispatcher = d
	return c
}

// EnsureSession derives (or re-derives; the result is deterministic) the
// conversation's session keys from the local pair and the partner's
// published public key, and caches them for the life of the process.
func (c *Client) EnsureSession(local keys.Pair, partnerPub []byte) error {
	if c.sessions.Has(c.ChatID) {
		return nil
	}
	partnerID, err := chat.Partner(c.ChatID, c.UserID)
	if err != nil {
		return err
	}
	k, err := session.Derive(local.Private, local.Public, partnerPub, c.UserID, partnerID)
	if err != nil {
		return err
	}
	c.sessions.Put(c.ChatID, k)
	return nil
}

// Attach subscribes the client to its conversation and user channels on
// the hub and pumps events into the handler table until Close.
func (c *Client) Attach(hub *realtime.Hub) {
	chatSub := hub.Subscribe(realtime.ChatChannel(c.ChatID))
	userSub := hub.Subscribe(realtime.UserChannel(c.UserID))
	c.subs = []*realtime.Subscription{chatSub, userSub}
	for _, sub := range c.subs {
		go func(s *realtime.Subscription) {
			for {
				select {
				case <-c.done:
					return
				case env := <-s.C:
					c.dispatcher.Dispatch(env)
				}
			}
		}(sub)
	}
}

// Close detaches from the hub and wipes the conversation's session keys.
func (c *Client) Close() {
	close(c.done)
	for _, s := range c.subs {
		s.Close()
	}
	c.sessions.Delete(c.ChatID)
}

// Send encrypts plaintext under the conversation's tx key and submits it.
// The message is inserted into the local view optimistically with status
// "sending" before the network call; the incoming-message fan-out echoes
// it back with status "sent" and reconciliation by id replaces the
// optimistic copy. A failed send removes the optimistic entry and returns
// the error; no retry, no message stuck in "sending".
func (c *Client) Send(plaintext string, replyTo *models.ReplyRef) (models.Message, error) {
	sess, ok := c.sessions.Get(c.ChatID)
	if !ok {
		// fail fast before any network call
		return models.Message{}, security.ErrEncryptionUnavailable
	}
	sealed, err := security.Seal([]byte(plaintext), sess.TX)
	if err != nil {
		return models.Message{}, err
	}

	optimistic := models.Message{
		ID:        utils.GenID(),
		SenderID:  c.UserID,
		Text:      base64.StdEncoding.EncodeToString(sealed),
		Timestamp: time.Now().UnixMilli(),
		Status:    models.StatusSending,
		ReplyTo:   replyTo,
	}
	c.mu.Lock()
	c.view = append(c.view, optimistic)
	c.mu.Unlock()

	sent, err := c.api.Send(chat.SendRequest{
		ChatID:     c.ChatID,
		SenderID:   c.UserID,
		SenderName: c.UserName,
		Text:       optimistic.Text,
		MessageID:  optimistic.ID,
		Timestamp:  optimistic.Timestamp,
		ReplyTo:    replyTo,
	})
	if err != nil {
		c.removeMessage(optimistic.ID)
		return models.Message{}, err
	}
	return sent, nil
}

// Decrypt opens a received message body with the conversation's rx key.
// Authentication failures surface as errors; the raw bytes are never
// returned as if they were plaintext.
func (c *Client) Decrypt(m models.Message) (string, error) {
	sess, ok := c.sessions.Get(c.ChatID)
	if !ok {
		return "", security.ErrEncryptionUnavailable
	}
	sealed, err := base64.StdEncoding.DecodeString(m.Text)
	if err != nil {
		telemetry.DecryptFailures.Inc()
		return "", security.ErrAuthenticationFailed
	}
	plain, err := security.Open(sealed, sess.RX)
	if err != nil {
		telemetry.DecryptFailures.Inc()
		return "", err
	}
	return string(plain), nil
}

// MarkVisibleSeen submits a seen batch for every partner-authored message
// in the view not yet marked seen. Already-seen messages are excluded, so
// repeated calls settle to no-ops.
func (c *Client) MarkVisibleSeen() error {
	partnerID, err := chat.Partner(c.ChatID, c.UserID)
	if err != nil {
		return err
	}
	c.mu.Lock()
	var ids []string
	for _, m := range c.view {
		if m.SenderID == partnerID && m.EffectiveStatus() != models.StatusSeen {
			ids = append(ids, m.ID)
		}
	}
	c.mu.Unlock()
	if len(ids) == 0 {
		return nil
	}
	return c.api.MarkSeen(c.ChatID, c.UserID, ids)
}

// Messages returns a snapshot of the local view in timestamp order.
func (c *Client) Messages() []models.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]models.Message, len(c.view))
	copy(out, c.view)
	return out
}

// PartnerTyping reports the last typing indicator received from the
// partner.
func (c *Client) PartnerTyping() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.partnerTyping
}

func (c *Client) removeMessage(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, m := range c.view {
		if m.ID == id {
			c.view = append(c.view[:i], c.view[i+1:]...)
			return
		}
	}
}

// --- event handlers ---

func (c *Client) handleIncoming(data json.RawMessage) error {
	var m models.Message
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.view {
		if c.view[i].ID == m.ID {
			// reconcile the optimistic copy with the authoritative record
			c.view[i] = m
			return nil
		}
	}
	c.view = append(c.view, m)
	sort.SliceStable(c.view, func(i, j int) bool {
		return c.view[i].Timestamp < c.view[j].Timestamp
	})
	return nil
}

func (c *Client) handleUpdate(data json.RawMessage) error {
	var m models.Message
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.view {
		if c.view[i].ID == m.ID {
			c.view[i] = m
			return nil
		}
	}
	logger.Debug("update_for_unknown_message", "id", m.ID)
	return nil
}

func (c *Client) handleStatus(data json.RawMessage) error {
	var ev realtime.MessageStatus
	if err := json.Unmarshal(data, &ev); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.view {
		if c.view[i].ID == ev.MessageID {
			c.view[i].Status = ev.Status
			return nil
		}
	}
	return nil
}

func (c *Client) handleTyping(data json.RawMessage) error {
	var ev realtime.Typing
	if err := json.Unmarshal(data, &ev); err != nil {
		return err
	}
	if ev.UserID == c.UserID {
		return nil
	}
	c.mu.Lock()
	c.partnerTyping = ev.IsTyping
	c.mu.Unlock()
	return nil
}

func (c *Client) handleSilence(data json.RawMessage) error {
	var ev realtime.SilenceStatus
	if err := json.Unmarshal(data, &ev); err != nil {
		return err
	}
	c.mu.Lock()
	c.silence[ev.MessageID] = silenceEntry{
		UserID: ev.UserID,
		Record: models.SilenceRecord{Status: ev.Status, ExpiresAt: ev.ExpiresAt},
	}
	c.mu.Unlock()
	return nil
}

func (c *Client) handleSilenceCleared(data json.RawMessage) error {
	var ev realtime.SilenceCleared
	if err := json.Unmarshal(data, &ev); err != nil {
		return err
	}
	c.mu.Lock()
	delete(c.silence, ev.MessageID)
	c.mu.Unlock()
	return nil
}

// SilenceFor returns the live silence record for a message, if any.
func (c *Client) SilenceFor(messageID string) (models.SilenceRecord, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.silence[messageID]
	if !ok {
		return models.SilenceRecord{}, false
	}
	return e.Record, true
}

// PruneExpiredSilence drops silence entries past their expiry. The store
// emits no event on TTL expiry, so clients must prune on their own clock.
func (c *Client) PruneExpiredSilence(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, e := range c.silence {
		if now.UnixMilli() >= e.Record.ExpiresAt {
			delete(c.silence, id)
		}
	}
}

// String implements fmt.Stringer for debug logging.
func (c *Client) String() string {
	return fmt.Sprintf("client(%s@%s)", c.UserID, c.ChatID)
}
