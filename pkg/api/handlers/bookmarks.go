package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"sealchat/pkg/auth"
	"sealchat/pkg/models"
	"sealchat/pkg/utils"
)

// RegisterBookmarks registers the per-user bookmark endpoints.
func RegisterBookmarks(r *mux.Router, d Deps) {
	r.HandleFunc("/bookmarks", d.toggleBookmark).Methods(http.MethodPost)
	r.HandleFunc("/bookmarks", d.listBookmarks).Methods(http.MethodGet)
}

func (d Deps) toggleBookmark(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ChatID    string `json:"chatId"`
		MessageID string `json:"messageId"`
		Text      string `json:"text"`
		Timestamp int64  `json:"timestamp"`
		SenderID  string `json:"senderId"`
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
	if userID == "" {
		utils.JSONError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	bookmarked, err := d.Engine.ToggleBookmark(userID, models.Bookmark{
		MessageID: body.MessageID,
		ChatID:    body.ChatID,
		Text:      body.Text,
		Timestamp: body.Timestamp,
		SenderID:  body.SenderID,
	})
	if err != nil {
		writeErr(w, err)
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, map[string]bool{"bookmarked": bookmarked})
}

func (d Deps) listBookmarks(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	if userID == "" {
		utils.JSONError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	bms, err := d.Engine.ListBookmarks(userID)
	if err != nil {
		writeErr(w, err)
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, bms)
}
