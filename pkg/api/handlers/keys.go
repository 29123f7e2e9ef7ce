package handlers

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"sealchat/pkg/auth"
	"sealchat/pkg/store"
	"sealchat/pkg/utils"
)

// RegisterKeys registers the public-key directory endpoints. Only public
// halves ever cross this API; private keys stay on the originating device,
// except for server-managed identities provisioned through /keys/ensure.
func RegisterKeys(r *mux.Router, d Deps) {
	r.HandleFunc("/keys", d.publishKey).Methods(http.MethodPost)
	r.HandleFunc("/keys/ensure", d.ensureKey).Methods(http.MethodPost)
	r.HandleFunc("/keys/{userID}", d.lookupKey).Methods(http.MethodGet)
}

func (d Deps) publishKey(w http.ResponseWriter, r *http.Request) {
	var body struct {
		PublicKey string `json:"publicKey"`
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
	pub, err := base64.StdEncoding.DecodeString(body.PublicKey)
	if err != nil || len(pub) != 32 {
		utils.JSONError(w, http.StatusBadRequest, "public key must be 32 base64 bytes")
		return
	}
	// first writer wins: a second device's key is never established here
	wrote, err := store.PublishIdentityKey(userID, pub)
	if err != nil {
		writeErr(w, err)
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, map[string]bool{"published": wrote})
}

// ensureKey provisions a server-managed identity for users that never run
// a key-holding client, such as bots. The private half stays in the key
// store on disk; only the public half is returned. Trusted callers only.
func (d Deps) ensureKey(w http.ResponseWriter, r *http.Request) {
	role := r.Header.Get("X-Role-Name")
	if role != "backend" && role != "admin" {
		utils.JSONError(w, http.StatusForbidden, "backend role required")
		return
	}
	var body struct {
		UserID string `json:"userId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.UserID == "" {
		utils.JSONError(w, http.StatusBadRequest, "userId required")
		return
	}
	pair, err := d.Keys.Ensure(body.UserID)
	if err != nil {
		writeErr(w, err)
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, map[string]string{
		"userId":    body.UserID,
		"publicKey": base64.StdEncoding.EncodeToString(pair.Public),
	})
}

func (d Deps) lookupKey(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userID"]
	pub, err := store.LookupIdentityKey(userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			utils.JSONError(w, http.StatusNotFound, "no key published")
			return
		}
		writeErr(w, err)
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, map[string]string{
		"userId":    userID,
		"publicKey": base64.StdEncoding.EncodeToString(pub),
	})
}
