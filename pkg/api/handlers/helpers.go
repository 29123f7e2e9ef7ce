package handlers

import (
	"errors"
	"net/http"

	"sealchat/pkg/chat"
	"sealchat/pkg/keys"
	"sealchat/pkg/realtime"
	"sealchat/pkg/store"
	"sealchat/pkg/utils"
)

// Deps carries the wired components the handlers operate on.
type Deps struct {
	Engine *chat.Engine
	Hub    *realtime.Hub
	Keys   *keys.Store
}

// writeErr maps core errors onto HTTP statuses: participants-only
// violations are 401, missing mutation targets are 404, everything else
// is a 500.
func writeErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, chat.ErrUnauthorized):
		utils.JSONError(w, http.StatusUnauthorized, "unauthorized")
	case errors.Is(err, chat.ErrNotFound), errors.Is(err, store.ErrNotFound):
		utils.JSONError(w, http.StatusNotFound, "not found")
	default:
		utils.JSONError(w, http.StatusInternalServerError, err.Error())
	}
}
