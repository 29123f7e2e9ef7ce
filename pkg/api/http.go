package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"sealchat/pkg/api/handlers"
	"sealchat/pkg/auth"
)

// Handler builds the versioned API router. The user-identity middleware
// wraps every /v1 route; the outer key gateway is applied by the app.
func Handler(d handlers.Deps) http.Handler {
	root := mux.NewRouter()
	v1 := root.PathPrefix("/v1").Subrouter()
	handlers.RegisterMessages(v1, d)
	handlers.RegisterKeys(v1, d)
	handlers.RegisterBookmarks(v1, d)
	handlers.RegisterRealtime(v1, d)
	handlers.RegisterTokens(v1, d)
	v1.Use(auth.RequireVerifiedUser)
	return root
}
