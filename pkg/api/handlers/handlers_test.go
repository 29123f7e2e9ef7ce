package handlers_test

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"sealchat/pkg/api"
	"sealchat/pkg/api/handlers"
	"sealchat/pkg/auth"
	"sealchat/pkg/chat"
	"sealchat/pkg/config"
	"sealchat/pkg/keys"
	"sealchat/pkg/models"
	"sealchat/pkg/realtime"
	"sealchat/pkg/store"
)

const signingKey = "test-backend-key"

func TestMain(m *testing.M) {
	dir, err := os.MkdirTemp("", "sealchat-handlers-test")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if err := store.Open(dir); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	config.SetRuntime(&config.RuntimeConfig{
		BackendKeys: map[string]struct{}{signingKey: {}},
		SigningKeys: map[string]struct{}{signingKey: {}},
		JWTSecret:   "handlers-test-secret",
		JWTIssuer:   "sealchat-test",
	})
	code := m.Run()
	_ = store.Close()
	_ = os.RemoveAll(dir)
	os.Exit(code)
}

func newServer(t *testing.T) (*httptest.Server, *realtime.Hub) {
	t.Helper()
	hub := realtime.NewHub()
	deps := handlers.Deps{
		Engine: chat.NewEngine(hub, time.Hour),
		Hub:    hub,
		Keys:   keys.NewStore(t.TempDir(), keys.StoreDirectory{}),
	}
	srv := httptest.NewServer(api.Handler(deps))
	t.Cleanup(srv.Close)
	return srv, hub
}

// call performs a signed request and decodes the JSON response into out.
func call(t *testing.T, srv *httptest.Server, method, path, userID string, body any, out any) int {
	t.Helper()
	var buf io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		buf = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, srv.URL+path, buf)
	require.NoError(t, err)
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
		req.Header.Set("X-User-Signature", auth.SignUserID(signingKey, userID))
	}
	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer res.Body.Close()
	if out != nil && res.StatusCode == http.StatusOK {
		require.NoError(t, json.NewDecoder(res.Body).Decode(out))
	}
	return res.StatusCode
}

func TestSendAndList(t *testing.T) {
	srv, _ := newServer(t)
	chatID := chat.ID("h-alice", "h-bob")

	var sent models.Message
	code := call(t, srv, "POST", "/v1/messages/send", "h-alice", map[string]any{
		"chatId":     chatID,
		"text":       "ciphertext",
		"senderName": "Alice",
		"timestamp":  1000,
	}, &sent)
	require.Equal(t, http.StatusOK, code)
	require.NotEmpty(t, sent.ID)
	require.Equal(t, models.StatusSent, sent.Status)

	var listing struct {
		ChatID   string           `json:"chatId"`
		Messages []models.Message `json:"messages"`
	}
	code = call(t, srv, "GET", "/v1/chats/"+chatID+"/messages", "h-bob", nil, &listing)
	require.Equal(t, http.StatusOK, code)
	require.Len(t, listing.Messages, 1)
	require.Equal(t, "ciphertext", listing.Messages[0].Text)

	// a stranger cannot read the conversation
	code = call(t, srv, "GET", "/v1/chats/"+chatID+"/messages", "h-mallory", nil, nil)
	require.Equal(t, http.StatusUnauthorized, code)
}

func TestSendRequiresIdentity(t *testing.T) {
	srv, _ := newServer(t)
	code := call(t, srv, "POST", "/v1/messages/send", "", map[string]any{
		"chatId": "a--b",
		"text":   "x",
	}, nil)
	require.Equal(t, http.StatusUnauthorized, code)
}

func TestSeenEndpoint(t *testing.T) {
	srv, _ := newServer(t)
	chatID := chat.ID("h-seen-a", "h-seen-b")

	var sent models.Message
	code := call(t, srv, "POST", "/v1/messages/send", "h-seen-a", map[string]any{
		"chatId": chatID, "text": "hi",
	}, &sent)
	require.Equal(t, http.StatusOK, code)

	code = call(t, srv, "POST", "/v1/messages/seen", "h-seen-b", map[string]any{
		"chatId":     chatID,
		"messageIds": []string{sent.ID},
	}, nil)
	require.Equal(t, http.StatusOK, code)

	var listing struct {
		Messages []models.Message `json:"messages"`
	}
	code = call(t, srv, "GET", "/v1/chats/"+chatID+"/messages", "h-seen-a", nil, &listing)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, models.StatusSeen, listing.Messages[0].Status)
}

func TestReactionEndpoint(t *testing.T) {
	srv, _ := newServer(t)
	chatID := chat.ID("h-re-a", "h-re-b")

	var sent models.Message
	code := call(t, srv, "POST", "/v1/messages/send", "h-re-a", map[string]any{
		"chatId": chatID, "text": "hi",
	}, &sent)
	require.Equal(t, http.StatusOK, code)

	var updated models.Message
	code = call(t, srv, "POST", "/v1/messages/reaction", "h-re-b", map[string]any{
		"chatId": chatID, "messageId": sent.ID, "reaction": "🔥",
	}, &updated)
	require.Equal(t, http.StatusOK, code)
	require.True(t, updated.HasReaction("h-re-b", "🔥"))

	code = call(t, srv, "POST", "/v1/messages/reaction", "h-re-b", map[string]any{
		"chatId": chatID, "messageId": "no-such-message", "reaction": "🔥",
	}, nil)
	require.Equal(t, http.StatusNotFound, code)
}

func TestSilenceEndpoints(t *testing.T) {
	srv, _ := newServer(t)
	chatID := chat.ID("h-sil-a", "h-sil-b")

	var sent models.Message
	code := call(t, srv, "POST", "/v1/messages/send", "h-sil-a", map[string]any{
		"chatId": chatID, "text": "hi",
	}, &sent)
	require.Equal(t, http.StatusOK, code)

	code = call(t, srv, "POST", "/v1/messages/silence", "h-sil-b", map[string]any{
		"chatId": chatID, "messageId": sent.ID, "status": "not-a-status",
	}, nil)
	require.Equal(t, http.StatusUnprocessableEntity, code)

	var setRes struct {
		Success   bool  `json:"success"`
		ExpiresAt int64 `json:"expiresAt"`
	}
	code = call(t, srv, "POST", "/v1/messages/silence", "h-sil-b", map[string]any{
		"chatId": chatID, "messageId": sent.ID, "status": "waiting_for_info",
	}, &setRes)
	require.Equal(t, http.StatusOK, code)
	require.True(t, setRes.Success)
	require.Greater(t, setRes.ExpiresAt, time.Now().UnixMilli())

	var statuses map[string]*models.SilenceRecord
	code = call(t, srv, "GET", "/v1/messages/silence?chatId="+chatID+"&messageIds="+sent.ID, "h-sil-a", nil, &statuses)
	require.Equal(t, http.StatusOK, code)
	require.NotNil(t, statuses[sent.ID])
	require.Equal(t, models.SilenceWaitingForInfo, statuses[sent.ID].Status)

	code = call(t, srv, "DELETE", "/v1/messages/silence", "h-sil-b", map[string]any{
		"chatId": chatID, "messageId": sent.ID,
	}, nil)
	require.Equal(t, http.StatusOK, code)

	code = call(t, srv, "GET", "/v1/messages/silence?chatId="+chatID+"&messageIds="+sent.ID, "h-sil-a", nil, &statuses)
	require.Equal(t, http.StatusOK, code)
	require.Nil(t, statuses[sent.ID])
}

func TestForwardEndpoint(t *testing.T) {
	srv, _ := newServer(t)

	var res struct {
		Results []chat.ForwardResult `json:"results"`
	}
	code := call(t, srv, "POST", "/v1/messages/forward", "h-fwd-a", map[string]any{
		"text":            "check this out",
		"targetFriendIds": []string{"h-fwd-b", "h-fwd-c"},
		"senderName":      "A",
	}, &res)
	require.Equal(t, http.StatusOK, code)
	require.Len(t, res.Results, 2)
	require.True(t, res.Results[0].Success)
	require.True(t, res.Results[1].Success)
}

func TestKeyDirectoryEndpoints(t *testing.T) {
	srv, _ := newServer(t)
	pub := base64.StdEncoding.EncodeToString(bytes.Repeat([]byte{7}, 32))

	var pubRes struct {
		Published bool `json:"published"`
	}
	code := call(t, srv, "POST", "/v1/keys", "h-key-user", map[string]any{"publicKey": pub}, &pubRes)
	require.Equal(t, http.StatusOK, code)
	require.True(t, pubRes.Published)

	// second publish does not replace the first
	code = call(t, srv, "POST", "/v1/keys", "h-key-user", map[string]any{
		"publicKey": base64.StdEncoding.EncodeToString(bytes.Repeat([]byte{9}, 32)),
	}, &pubRes)
	require.Equal(t, http.StatusOK, code)
	require.False(t, pubRes.Published)

	var lookup struct {
		UserID    string `json:"userId"`
		PublicKey string `json:"publicKey"`
	}
	code = call(t, srv, "GET", "/v1/keys/h-key-user", "h-other", nil, &lookup)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, pub, lookup.PublicKey, "first published key wins")

	code = call(t, srv, "GET", "/v1/keys/h-nobody", "h-other", nil, nil)
	require.Equal(t, http.StatusNotFound, code)

	code = call(t, srv, "POST", "/v1/keys", "h-key-user2", map[string]any{"publicKey": "dG9vc2hvcnQ="}, nil)
	require.Equal(t, http.StatusBadRequest, code)
}

func TestKeyEnsureEndpoint(t *testing.T) {
	srv, _ := newServer(t)

	ensure := func(role string) (int, string) {
		b, err := json.Marshal(map[string]string{"userId": "h-bot"})
		require.NoError(t, err)
		req, err := http.NewRequest("POST", srv.URL+"/v1/keys/ensure", bytes.NewReader(b))
		require.NoError(t, err)
		req.Header.Set("X-User-ID", "h-caller")
		req.Header.Set("X-User-Signature", auth.SignUserID(signingKey, "h-caller"))
		if role != "" {
			req.Header.Set("X-Role-Name", role)
		}
		res, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer res.Body.Close()
		var out struct {
			PublicKey string `json:"publicKey"`
		}
		if res.StatusCode == http.StatusOK {
			require.NoError(t, json.NewDecoder(res.Body).Decode(&out))
		}
		return res.StatusCode, out.PublicKey
	}

	code, _ := ensure("")
	require.Equal(t, http.StatusForbidden, code, "frontend callers cannot provision identities")

	code, first := ensure("backend")
	require.Equal(t, http.StatusOK, code)
	raw, err := base64.StdEncoding.DecodeString(first)
	require.NoError(t, err)
	require.Len(t, raw, 32)

	// idempotent: the persisted pair is reused
	code, again := ensure("backend")
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, first, again)

	var lookup struct {
		PublicKey string `json:"publicKey"`
	}
	code = call(t, srv, "GET", "/v1/keys/h-bot", "h-other", nil, &lookup)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, first, lookup.PublicKey)
}

func TestTokenMintEndpoint(t *testing.T) {
	srv, _ := newServer(t)

	mint := func(role string, body map[string]string) (int, string) {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		req, err := http.NewRequest("POST", srv.URL+"/v1/auth/token", bytes.NewReader(b))
		require.NoError(t, err)
		req.Header.Set("X-User-ID", "h-minter")
		req.Header.Set("X-User-Signature", auth.SignUserID(signingKey, "h-minter"))
		if role != "" {
			req.Header.Set("X-Role-Name", role)
		}
		res, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer res.Body.Close()
		var out struct {
			Token string `json:"token"`
		}
		if res.StatusCode == http.StatusOK {
			require.NoError(t, json.NewDecoder(res.Body).Decode(&out))
		}
		return res.StatusCode, out.Token
	}

	code, _ := mint("", map[string]string{"userId": "h-jwt-user"})
	require.Equal(t, http.StatusForbidden, code)

	code, _ = mint("backend", map[string]string{"userId": "h-jwt-user", "ttl": "48h"})
	require.Equal(t, http.StatusBadRequest, code, "ttl above the cap is rejected")

	code, tok := mint("backend", map[string]string{"userId": "h-jwt-user", "ttl": "5m"})
	require.Equal(t, http.StatusOK, code)
	require.NotEmpty(t, tok)

	// the token stands in for signed headers on any v1 route
	req, err := http.NewRequest("GET", srv.URL+"/v1/bookmarks", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+tok)
	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)
}

func TestBookmarkEndpoints(t *testing.T) {
	srv, _ := newServer(t)

	var toggle struct {
		Bookmarked bool `json:"bookmarked"`
	}
	code := call(t, srv, "POST", "/v1/bookmarks", "h-bm-user", map[string]any{
		"chatId": "a--b", "messageId": "bm-msg-1", "text": "note", "timestamp": 1000, "senderId": "a",
	}, &toggle)
	require.Equal(t, http.StatusOK, code)
	require.True(t, toggle.Bookmarked)

	var list []models.Bookmark
	code = call(t, srv, "GET", "/v1/bookmarks", "h-bm-user", nil, &list)
	require.Equal(t, http.StatusOK, code)
	require.Len(t, list, 1)
	require.Equal(t, "bm-msg-1", list[0].MessageID)

	code = call(t, srv, "POST", "/v1/bookmarks", "h-bm-user", map[string]any{
		"chatId": "a--b", "messageId": "bm-msg-1",
	}, &toggle)
	require.Equal(t, http.StatusOK, code)
	require.False(t, toggle.Bookmarked)
}

func TestWSChannelAuthorization(t *testing.T) {
	srv, _ := newServer(t)

	code := call(t, srv, "GET", "/v1/ws", "h-ws-a", nil, nil)
	require.Equal(t, http.StatusBadRequest, code, "missing channels")

	code = call(t, srv, "GET", "/v1/ws?channels=chat:h-ws-b--h-ws-c", "h-ws-a", nil, nil)
	require.Equal(t, http.StatusUnauthorized, code, "not a participant")

	code = call(t, srv, "GET", "/v1/ws?channels=user:h-ws-b", "h-ws-a", nil, nil)
	require.Equal(t, http.StatusUnauthorized, code, "cannot attach to another user's channel")

	code = call(t, srv, "GET", "/v1/ws?channels=garbage", "h-ws-a", nil, nil)
	require.Equal(t, http.StatusBadRequest, code)
}

func TestTypingEndpoint(t *testing.T) {
	srv, hub := newServer(t)
	chatID := chat.ID("h-typ-a", "h-typ-b")
	sub := hub.Subscribe(realtime.ChatChannel(chatID))
	defer sub.Close()

	code := call(t, srv, "POST", "/v1/messages/typing", "h-typ-a", map[string]any{
		"chatId": chatID, "userName": "A", "isTyping": true,
	}, nil)
	require.Equal(t, http.StatusOK, code)

	select {
	case env := <-sub.C:
		require.Equal(t, realtime.EventTyping, env.Event)
	case <-time.After(time.Second):
		t.Fatal("typing event never reached the hub")
	}
}
