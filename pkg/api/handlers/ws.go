package handlers

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"sealchat/pkg/auth"
	"sealchat/pkg/chat"
	"sealchat/pkg/logger"
	"sealchat/pkg/realtime"
	"sealchat/pkg/utils"
)

// RegisterRealtime registers the websocket attachment endpoint.
func RegisterRealtime(r *mux.Router, d Deps) {
	r.HandleFunc("/ws", d.serveWS).Methods(http.MethodGet)
}

// serveWS attaches the caller to one or more fan-out channels. A user may
// only attach to their own user channel and to chat channels of
// conversations they participate in.
func (d Deps) serveWS(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	if userID == "" {
		utils.JSONError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	raw := r.URL.Query().Get("channels")
	if raw == "" {
		utils.JSONError(w, http.StatusBadRequest, "missing channels")
		return
	}
	var channels []string
	for _, name := range strings.Split(raw, ",") {
		name = strings.TrimSpace(name)
		switch {
		case strings.HasPrefix(name, "chat:"):
			chatID := strings.TrimPrefix(name, "chat:")
			if _, err := chat.Partner(chatID, userID); err != nil {
				utils.JSONError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			channels = append(channels, realtime.ChatChannel(chatID))
		case strings.HasPrefix(name, "user:"):
			if strings.TrimPrefix(name, "user:") != userID {
				utils.JSONError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			channels = append(channels, realtime.UserChannel(userID))
		default:
			utils.JSONError(w, http.StatusBadRequest, "unknown channel "+name)
			return
		}
	}
	if err := realtime.ServeWS(r.Context(), d.Hub, w, r, channels); err != nil {
		logger.Debug("ws_session_ended", "user", userID, "error", err)
	}
}
