package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"sealchat/pkg/auth"
	"sealchat/pkg/chat"
	"sealchat/pkg/models"
	"sealchat/pkg/utils"
)

// RegisterMessages registers the conversation endpoints.
func RegisterMessages(r *mux.Router, d Deps) {
	r.HandleFunc("/messages/send", d.sendMessage).Methods(http.MethodPost)
	r.HandleFunc("/messages/seen", d.markSeen).Methods(http.MethodPost)
	r.HandleFunc("/messages/reaction", d.toggleReaction).Methods(http.MethodPost)
	r.HandleFunc("/messages/typing", d.typing).Methods(http.MethodPost)
	r.HandleFunc("/messages/silence", d.setSilence).Methods(http.MethodPost)
	r.HandleFunc("/messages/silence", d.getSilence).Methods(http.MethodGet)
	r.HandleFunc("/messages/silence", d.clearSilence).Methods(http.MethodDelete)
	r.HandleFunc("/messages/forward", d.forward).Methods(http.MethodPost)

	r.HandleFunc("/chats/{chatID}/messages", d.listMessages).Methods(http.MethodGet)
}

func (d Deps) sendMessage(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ChatID      string           `json:"chatId"`
		Text        string           `json:"text"`
		MessageID   string           `json:"messageId"`
		Timestamp   int64            `json:"timestamp"`
		ReplyTo     *models.ReplyRef `json:"replyTo"`
		SenderName  string           `json:"senderName"`
		SenderImage string           `json:"senderImage"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "invalid json")
		return
	}
	userID := auth.UserIDFromContext(r.Context())
	if userID == "" {
		utils.JSONError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	m, err := d.Engine.Send(chat.SendRequest{
		ChatID:      body.ChatID,
		SenderID:    userID,
		SenderName:  body.SenderName,
		SenderImage: body.SenderImage,
		Text:        body.Text,
		MessageID:   body.MessageID,
		Timestamp:   body.Timestamp,
		ReplyTo:     body.ReplyTo,
	})
	if err != nil {
		writeErr(w, err)
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, m)
}

func (d Deps) markSeen(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ChatID     string   `json:"chatId"`
		MessageIDs []string `json:"messageIds"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "invalid json")
		return
	}
	userID := auth.UserIDFromContext(r.Context())
	if err := d.Engine.MarkSeen(body.ChatID, userID, body.MessageIDs); err != nil {
		writeErr(w, err)
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, map[string]bool{"success": true})
}

func (d Deps) toggleReaction(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ChatID    string `json:"chatId"`
		MessageID string `json:"messageId"`
		Reaction  string `json:"reaction"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "invalid json")
		return
	}
	userID := auth.UserIDFromContext(r.Context())
	m, err := d.Engine.ToggleReaction(body.ChatID, userID, body.MessageID, body.Reaction)
	if err != nil {
		writeErr(w, err)
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, m)
}

func (d Deps) typing(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ChatID   string `json:"chatId"`
		UserName string `json:"userName"`
		IsTyping bool   `json:"isTyping"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "invalid json")
		return
	}
	userID := auth.UserIDFromContext(r.Context())
	if err := d.Engine.Typing(body.ChatID, userID, body.UserName, body.IsTyping); err != nil {
		writeErr(w, err)
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, map[string]bool{"success": true})
}

func (d Deps) setSilence(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ChatID    string               `json:"chatId"`
		MessageID string               `json:"messageId"`
		UserName  string               `json:"userName"`
		Status    models.SilenceStatus `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if !models.ValidSilenceStatus(body.Status) {
		utils.JSONError(w, http.StatusUnprocessableEntity, "invalid silence status")
		return
	}
	userID := auth.UserIDFromContext(r.Context())
	rec, err := d.Engine.SetSilence(body.ChatID, userID, body.UserName, body.MessageID, body.Status)
	if err != nil {
		writeErr(w, err)
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, map[string]any{"success": true, "expiresAt": rec.ExpiresAt})
}

func (d Deps) getSilence(w http.ResponseWriter, r *http.Request) {
	chatID := r.URL.Query().Get("chatId")
	rawIDs := r.URL.Query().Get("messageIds")
	if chatID == "" || rawIDs == "" {
		utils.JSONError(w, http.StatusBadRequest, "missing chatId or messageIds")
		return
	}
	userID := auth.UserIDFromContext(r.Context())
	statuses, err := d.Engine.GetSilence(chatID, userID, strings.Split(rawIDs, ","))
	if err != nil {
		writeErr(w, err)
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, statuses)
}

func (d Deps) clearSilence(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ChatID    string `json:"chatId"`
		MessageID string `json:"messageId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if body.MessageID == "" {
		utils.JSONError(w, http.StatusBadRequest, "missing messageId")
		return
	}
	userID := auth.UserIDFromContext(r.Context())
	if err := d.Engine.ClearSilence(body.ChatID, userID, body.MessageID); err != nil {
		writeErr(w, err)
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, map[string]bool{"success": true})
}

func (d Deps) forward(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Text            string   `json:"text"`
		TargetFriendIDs []string `json:"targetFriendIds"`
		SenderName      string   `json:"senderName"`
		SenderImage     string   `json:"senderImage"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "invalid json")
		return
	}
	userID := auth.UserIDFromContext(r.Context())
	if userID == "" {
		utils.JSONError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	results := d.Engine.Forward(userID, body.SenderName, body.SenderImage, body.Text, body.TargetFriendIDs)
	_ = utils.JSONWrite(w, http.StatusOK, map[string]any{"results": results})
}

func (d Deps) listMessages(w http.ResponseWriter, r *http.Request) {
	chatID := mux.Vars(r)["chatID"]
	userID := auth.UserIDFromContext(r.Context())
	if _, err := chat.Partner(chatID, userID); err != nil {
		writeErr(w, err)
		return
	}
	reverse := r.URL.Query().Get("reverse") == "true"
	msgs, err := chat.Messages(chatID, reverse)
	if err != nil {
		writeErr(w, err)
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, map[string]any{"chatId": chatID, "messages": msgs})
}
