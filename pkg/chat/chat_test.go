package chat

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"sealchat/pkg/models"
	"sealchat/pkg/realtime"
	"sealchat/pkg/store"
)

func TestMain(m *testing.M) {
	dir, err := os.MkdirTemp("", "sealchat-chat-test")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if err := store.Open(dir); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	code := m.Run()
	_ = store.Close()
	_ = os.RemoveAll(dir)
	os.Exit(code)
}

type publishedEvent struct {
	Channel string
	Payload realtime.Payload
}

// captureBroker records published events for assertions.
type captureBroker struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (b *captureBroker) Publish(channel string, p realtime.Payload) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, publishedEvent{Channel: channel, Payload: p})
	return nil
}

func (b *captureBroker) byEvent(name string) []publishedEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []publishedEvent
	for _, e := range b.events {
		if e.Payload.EventName() == name {
			out = append(out, e)
		}
	}
	return out
}

func (b *captureBroker) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.events)
}

func newTestEngine() (*Engine, *captureBroker) {
	b := &captureBroker{}
	return NewEngine(b, 6*time.Hour), b
}

func TestChatID(t *testing.T) {
	require.Equal(t, "adam--zoe", ID("zoe", "adam"))
	require.Equal(t, "adam--zoe", ID("adam", "zoe"), "both participants derive the same id")

	a, b, err := Participants("adam--zoe")
	require.NoError(t, err)
	require.Equal(t, "adam", a)
	require.Equal(t, "zoe", b)

	_, _, err = Participants("not-a-chat-id")
	require.Error(t, err)
}

func TestPartner(t *testing.T) {
	p, err := Partner("adam--zoe", "adam")
	require.NoError(t, err)
	require.Equal(t, "zoe", p)

	p, err = Partner("adam--zoe", "zoe")
	require.NoError(t, err)
	require.Equal(t, "adam", p)

	_, err = Partner("adam--zoe", "mallory")
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestSendAppendsAndFansOut(t *testing.T) {
	e, b := newTestEngine()
	chatID := ID("send-a", "send-b")

	m, err := e.Send(SendRequest{
		ChatID:     chatID,
		SenderID:   "send-a",
		SenderName: "Adam",
		Text:       "ciphertext-1",
		Timestamp:  1000,
	})
	require.NoError(t, err)
	require.NotEmpty(t, m.ID, "server assigns an id when the client did not")
	require.Equal(t, models.StatusSent, m.Status)
	require.Equal(t, int64(1000), m.Timestamp)

	msgs, err := Messages(chatID, false)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	require.Equal(t, "ciphertext-1", msgs[0].Text)
	require.Equal(t, models.StatusSent, msgs[0].Status)

	incoming := b.byEvent(realtime.EventIncomingMessage)
	require.Len(t, incoming, 1)
	require.Equal(t, realtime.ChatChannel(chatID), incoming[0].Channel)

	sidebar := b.byEvent(realtime.EventNewMessage)
	require.Len(t, sidebar, 1)
	require.Equal(t, realtime.UserChannel("send-b"), sidebar[0].Channel, "sidebar event goes to the recipient, not the sender")
	nm := sidebar[0].Payload.(realtime.NewMessage)
	require.Equal(t, "Adam", nm.SenderName)
}

func TestSendKeepsClientAssignedID(t *testing.T) {
	e, _ := newTestEngine()
	chatID := ID("keep-a", "keep-b")

	m, err := e.Send(SendRequest{
		ChatID:    chatID,
		SenderID:  "keep-a",
		Text:      "x",
		MessageID: "client-id-1",
		Timestamp: 42,
	})
	require.NoError(t, err)
	require.Equal(t, "client-id-1", m.ID)
}

func TestSendRejectsNonParticipant(t *testing.T) {
	e, b := newTestEngine()
	_, err := e.Send(SendRequest{
		ChatID:   "adam--zoe",
		SenderID: "mallory",
		Text:     "intrusion",
	})
	require.ErrorIs(t, err, ErrUnauthorized)
	require.Zero(t, b.count(), "rejected sends publish nothing")
}

func TestSendRejectsOversizedText(t *testing.T) {
	e, _ := newTestEngine()
	chatID := ID("big-a", "big-b")

	_, err := e.Send(SendRequest{
		ChatID:   chatID,
		SenderID: "big-a",
		Text:     strings.Repeat("局", 2001),
	})
	require.Error(t, err)

	// 2000 runes is still within bounds, regardless of byte length
	_, err = e.Send(SendRequest{
		ChatID:   chatID,
		SenderID: "big-a",
		Text:     strings.Repeat("局", 2000),
	})
	require.NoError(t, err)
}

func TestSendTruncatesReplySnapshot(t *testing.T) {
	e, _ := newTestEngine()
	chatID := ID("reply-a", "reply-b")

	m, err := e.Send(SendRequest{
		ChatID:   chatID,
		SenderID: "reply-a",
		Text:     "answer",
		ReplyTo: &models.ReplyRef{
			ID:       "orig-1",
			SenderID: "reply-b",
			Text:     strings.Repeat("q", 500),
		},
	})
	require.NoError(t, err)
	require.Len(t, []rune(m.ReplyTo.Text), 100)
}

func TestReplySnapshotIsIndependent(t *testing.T) {
	e, _ := newTestEngine()
	chatID := ID("snap-a", "snap-b")

	orig, err := e.Send(SendRequest{ChatID: chatID, SenderID: "snap-a", Text: "original"})
	require.NoError(t, err)

	reply, err := e.Send(SendRequest{
		ChatID:   chatID,
		SenderID: "snap-b",
		Text:     "reply",
		ReplyTo:  &models.ReplyRef{ID: orig.ID, SenderID: orig.SenderID, Text: orig.Text},
	})
	require.NoError(t, err)

	// mutate the original; the snapshot embedded in the reply must not move
	_, err = e.ToggleReaction(chatID, "snap-a", orig.ID, "👍")
	require.NoError(t, err)

	msgs, err := Messages(chatID, false)
	require.NoError(t, err)
	for _, m := range msgs {
		if m.ID == reply.ID {
			require.Equal(t, "original", m.ReplyTo.Text)
			return
		}
	}
	t.Fatal("reply not found in log")
}

func TestMarkSeenFlowAndIdempotency(t *testing.T) {
	e, b := newTestEngine()
	chatID := ID("seen-a", "seen-b")

	m, err := e.Send(SendRequest{ChatID: chatID, SenderID: "seen-a", Text: "hi", Timestamp: 1000})
	require.NoError(t, err)

	require.NoError(t, e.MarkSeen(chatID, "seen-b", []string{m.ID}))

	msgs, err := Messages(chatID, false)
	require.NoError(t, err)
	require.Equal(t, models.StatusSeen, msgs[0].Status)

	statusEvents := b.byEvent(realtime.EventMessageStatus)
	require.Len(t, statusEvents, 1)
	ev := statusEvents[0].Payload.(realtime.MessageStatus)
	require.Equal(t, m.ID, ev.MessageID)
	require.Equal(t, models.StatusSeen, ev.Status)

	// marking again is a silent no-op
	require.NoError(t, e.MarkSeen(chatID, "seen-b", []string{m.ID}))
	require.Len(t, b.byEvent(realtime.EventMessageStatus), 1, "duplicate seen must not re-publish")
}

func TestMarkSeenSkipsOwnAndMissing(t *testing.T) {
	e, b := newTestEngine()
	chatID := ID("skip-a", "skip-b")

	own, err := e.Send(SendRequest{ChatID: chatID, SenderID: "skip-b", Text: "mine"})
	require.NoError(t, err)

	// the viewer cannot mark its own message, and unknown ids are skipped
	require.NoError(t, e.MarkSeen(chatID, "skip-b", []string{own.ID, "ghost-id"}))
	require.Empty(t, b.byEvent(realtime.EventMessageStatus))

	msgs, err := Messages(chatID, false)
	require.NoError(t, err)
	require.Equal(t, models.StatusSent, msgs[0].Status)
}

func TestMarkSeenRejectsNonParticipant(t *testing.T) {
	e, _ := newTestEngine()
	require.ErrorIs(t, e.MarkSeen("adam--zoe", "mallory", []string{"x"}), ErrUnauthorized)
}

func TestToggleReactionRoundtrip(t *testing.T) {
	e, b := newTestEngine()
	chatID := ID("react-a", "react-b")

	m, err := e.Send(SendRequest{ChatID: chatID, SenderID: "react-a", Text: "hi"})
	require.NoError(t, err)

	updated, err := e.ToggleReaction(chatID, "react-b", m.ID, "❤️")
	require.NoError(t, err)
	require.True(t, updated.HasReaction("react-b", "❤️"))

	updates := b.byEvent(realtime.EventMessageUpdate)
	require.Len(t, updates, 1)
	require.Equal(t, realtime.ChatChannel(chatID), updates[0].Channel)

	// toggling the same emoji again restores the original state
	updated, err = e.ToggleReaction(chatID, "react-b", m.ID, "❤️")
	require.NoError(t, err)
	require.Nil(t, updated.Reactions, "emptied reaction map is dropped, not kept as {}")

	msgs, err := Messages(chatID, false)
	require.NoError(t, err)
	require.Nil(t, msgs[0].Reactions)
}

func TestToggleReactionMultipleUsers(t *testing.T) {
	e, _ := newTestEngine()
	chatID := ID("multi-a", "multi-b")

	m, err := e.Send(SendRequest{ChatID: chatID, SenderID: "multi-a", Text: "hi"})
	require.NoError(t, err)

	_, err = e.ToggleReaction(chatID, "multi-a", m.ID, "👍")
	require.NoError(t, err)
	updated, err := e.ToggleReaction(chatID, "multi-b", m.ID, "👍")
	require.NoError(t, err)

	require.True(t, updated.HasReaction("multi-a", "👍"))
	require.True(t, updated.HasReaction("multi-b", "👍"))

	// removing one user's reaction leaves the other's intact
	updated, err = e.ToggleReaction(chatID, "multi-a", m.ID, "👍")
	require.NoError(t, err)
	require.False(t, updated.HasReaction("multi-a", "👍"))
	require.True(t, updated.HasReaction("multi-b", "👍"))
}

func TestToggleReactionMissingMessage(t *testing.T) {
	e, _ := newTestEngine()
	_, err := e.ToggleReaction(ID("gone-a", "gone-b"), "gone-a", "no-such-id", "👍")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestMutatePreservesScoreAndOrder(t *testing.T) {
	e, _ := newTestEngine()
	chatID := ID("order-a", "order-b")

	first, err := e.Send(SendRequest{ChatID: chatID, SenderID: "order-a", Text: "one", Timestamp: 1000})
	require.NoError(t, err)
	_, err = e.Send(SendRequest{ChatID: chatID, SenderID: "order-a", Text: "two", Timestamp: 2000})
	require.NoError(t, err)

	_, changed, err := MutateMessage(chatID, first.ID, func(m *models.Message) bool {
		m.Status = models.StatusSeen
		return true
	})
	require.NoError(t, err)
	require.True(t, changed)

	msgs, err := Messages(chatID, false)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	require.Equal(t, "one", msgs[0].Text, "mutated message must stay at its original position")
	require.Equal(t, "two", msgs[1].Text)
	require.Equal(t, int64(1000), msgs[0].Timestamp)
}

func TestMutateNoOpRewritesNothing(t *testing.T) {
	e, _ := newTestEngine()
	chatID := ID("noop-a", "noop-b")

	m, err := e.Send(SendRequest{ChatID: chatID, SenderID: "noop-a", Text: "hi"})
	require.NoError(t, err)

	got, changed, err := MutateMessage(chatID, m.ID, func(*models.Message) bool { return false })
	require.NoError(t, err)
	require.False(t, changed)
	require.Equal(t, m.ID, got.ID)
}

func TestSilenceLifecycle(t *testing.T) {
	e, b := newTestEngine()
	chatID := ID("sil-a", "sil-b")

	m, err := e.Send(SendRequest{ChatID: chatID, SenderID: "sil-a", Text: "hi"})
	require.NoError(t, err)

	rec, err := e.SetSilence(chatID, "sil-b", "Zoe", m.ID, models.SilenceWillReplyLater)
	require.NoError(t, err)
	require.Greater(t, rec.ExpiresAt, time.Now().UnixMilli())

	events := b.byEvent(realtime.EventSilenceStatus)
	require.Len(t, events, 1)
	ev := events[0].Payload.(realtime.SilenceStatus)
	require.Equal(t, models.SilenceWillReplyLater, ev.Status)
	require.Equal(t, rec.ExpiresAt, ev.ExpiresAt)

	// the partner sees the setter's record
	recs, err := e.GetSilence(chatID, "sil-a", []string{m.ID})
	require.NoError(t, err)
	require.NotNil(t, recs[m.ID])
	require.Equal(t, models.SilenceWillReplyLater, recs[m.ID].Status)

	// the setter's own view looks up the partner's records, which are absent
	recs, err = e.GetSilence(chatID, "sil-b", []string{m.ID})
	require.NoError(t, err)
	require.Nil(t, recs[m.ID])

	require.NoError(t, e.ClearSilence(chatID, "sil-b", m.ID))
	require.Len(t, b.byEvent(realtime.EventSilenceCleared), 1, "explicit clear emits an event")

	recs, err = e.GetSilence(chatID, "sil-a", []string{m.ID})
	require.NoError(t, err)
	require.Nil(t, recs[m.ID])
}

func TestSilenceExpiryIsSilent(t *testing.T) {
	b := &captureBroker{}
	e := &Engine{Broker: b, SilenceTTL: 10 * time.Millisecond, now: time.Now}
	chatID := ID("exp-a", "exp-b")

	m, err := e.Send(SendRequest{ChatID: chatID, SenderID: "exp-a", Text: "hi"})
	require.NoError(t, err)

	_, err = e.SetSilence(chatID, "exp-b", "", m.ID, models.SilenceNoReplyNeeded)
	require.NoError(t, err)
	before := b.count()

	time.Sleep(20 * time.Millisecond)

	recs, err := e.GetSilence(chatID, "exp-a", []string{m.ID})
	require.NoError(t, err)
	require.Nil(t, recs[m.ID], "expired record reads as absent")
	require.Equal(t, before, b.count(), "TTL expiry must not emit any event")
}

func TestSilenceRejectsUnknownStatus(t *testing.T) {
	e, _ := newTestEngine()
	chatID := ID("bad-a", "bad-b")
	_, err := e.SetSilence(chatID, "bad-a", "", "msg-1", models.SilenceStatus("angry"))
	require.Error(t, err)
}

func TestTypingPublishesWithoutPersisting(t *testing.T) {
	e, b := newTestEngine()
	chatID := ID("type-a", "type-b")

	require.NoError(t, e.Typing(chatID, "type-a", "Adam", true))
	require.NoError(t, e.Typing(chatID, "type-a", "Adam", false))

	events := b.byEvent(realtime.EventTyping)
	require.Len(t, events, 2)
	require.True(t, events[0].Payload.(realtime.Typing).IsTyping)
	require.False(t, events[1].Payload.(realtime.Typing).IsTyping)

	msgs, err := Messages(chatID, false)
	require.NoError(t, err)
	require.Empty(t, msgs, "typing indicators never touch the log")
}

func TestBookmarkToggleAndList(t *testing.T) {
	e, _ := newTestEngine()

	bm := models.Bookmark{MessageID: "bm-1", ChatID: "a--b", Text: "note", Timestamp: 1000, SenderID: "a"}
	on, err := e.ToggleBookmark("bm-user", bm)
	require.NoError(t, err)
	require.True(t, on)

	bm2 := models.Bookmark{MessageID: "bm-2", ChatID: "a--b", Text: "later", Timestamp: 2000, SenderID: "b"}
	on, err = e.ToggleBookmark("bm-user", bm2)
	require.NoError(t, err)
	require.True(t, on)

	list, err := e.ListBookmarks("bm-user")
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, "bm-2", list[0].MessageID, "newest first")

	on, err = e.ToggleBookmark("bm-user", bm)
	require.NoError(t, err)
	require.False(t, on, "second toggle removes")

	list, err = e.ListBookmarks("bm-user")
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, "bm-2", list[0].MessageID)
}

func TestForward(t *testing.T) {
	e, _ := newTestEngine()

	results := e.Forward("fwd-a", "Adam", "", "look at this", []string{"fwd-b", "", "fwd-a"})
	require.Len(t, results, 3)

	require.True(t, results[0].Success)
	require.False(t, results[1].Success, "empty target is rejected")
	require.False(t, results[2].Success, "self-forward is rejected")

	msgs, err := Messages(ID("fwd-a", "fwd-b"), false)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	require.True(t, strings.HasPrefix(msgs[0].Text, "↪️ "))
}

func TestConversationScenario(t *testing.T) {
	// a full two-party exchange through one engine
	e, b := newTestEngine()
	chatID := ID("alice", "bob")

	hi, err := e.Send(SendRequest{ChatID: chatID, SenderID: "alice", SenderName: "Alice", Text: "hi", Timestamp: 1000})
	require.NoError(t, err)
	require.Equal(t, models.StatusSent, hi.Status)

	reply, err := e.Send(SendRequest{
		ChatID: chatID, SenderID: "bob", SenderName: "Bob", Text: "hey", Timestamp: 2000,
		ReplyTo: &models.ReplyRef{ID: hi.ID, SenderID: "alice", Text: "hi"},
	})
	require.NoError(t, err)

	require.NoError(t, e.MarkSeen(chatID, "bob", []string{hi.ID}))
	require.NoError(t, e.MarkSeen(chatID, "alice", []string{reply.ID}))

	msgs, err := Messages(chatID, false)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	require.Equal(t, models.StatusSeen, msgs[0].Status)
	require.Equal(t, models.StatusSeen, msgs[1].Status)
	require.Equal(t, hi.ID, msgs[1].ReplyTo.ID)

	require.Len(t, b.byEvent(realtime.EventIncomingMessage), 2)
	require.Len(t, b.byEvent(realtime.EventMessageStatus), 2)
	require.Len(t, b.byEvent(realtime.EventNewMessage), 2)
}
