package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"sealchat/pkg/auth"
	"sealchat/pkg/utils"
)

const (
	defaultTokenTTL = time.Hour
	maxTokenTTL     = 24 * time.Hour
)

// RegisterTokens registers the session-token mint endpoint. Trusted
// backends exchange a user id for a short-lived JWT their frontends can
// present instead of signed headers.
func RegisterTokens(r *mux.Router, d Deps) {
	r.HandleFunc("/auth/token", d.mintToken).Methods(http.MethodPost)
}

func (d Deps) mintToken(w http.ResponseWriter, r *http.Request) {
	role := r.Header.Get("X-Role-Name")
	if role != "backend" && role != "admin" {
		utils.JSONError(w, http.StatusForbidden, "backend role required")
		return
	}
	var body struct {
		UserID string `json:"userId"`
		TTL    string `json:"ttl"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.UserID == "" {
		utils.JSONError(w, http.StatusBadRequest, "userId required")
		return
	}
	ttl := defaultTokenTTL
	if body.TTL != "" {
		parsed, err := time.ParseDuration(body.TTL)
		if err != nil || parsed <= 0 || parsed > maxTokenTTL {
			utils.JSONError(w, http.StatusBadRequest, "ttl must be a positive duration up to 24h")
			return
		}
		ttl = parsed
	}
	tok, err := auth.IssueUserToken(body.UserID, ttl)
	if err != nil {
		writeErr(w, err)
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, map[string]any{
		"token":     tok,
		"expiresIn": int64(ttl.Seconds()),
	})
}
