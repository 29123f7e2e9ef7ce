package auth

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"

	"sealchat/pkg/config"
	"sealchat/pkg/logger"
	"sealchat/pkg/utils"
)

type ctxUserKey struct{}

// RequireVerifiedUser establishes the acting user's identity and injects
// it into the request context. Two proofs are accepted: an HMAC-SHA256
// signature of the user id under a configured signing key
// (X-User-ID/X-User-Signature headers), or a JWT bearer token whose
// subject is the user id. Backend and admin callers may instead pass a
// bare X-User-ID, since they already authenticated with a trusted key.
func RequireVerifiedUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		role := r.Header.Get("X-Role-Name")
		userID := strings.TrimSpace(r.Header.Get("X-User-ID"))
		sig := strings.TrimSpace(r.Header.Get("X-User-Signature"))

		// JWT bearer path
		if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
			tok := strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
			if strings.Contains(tok, ".") {
				sub, err := VerifyUserToken(tok)
				if err != nil {
					logger.Warn("invalid_bearer_token", "path", r.URL.Path, "error", err)
					utils.JSONError(w, http.StatusUnauthorized, "invalid token")
					return
				}
				next.ServeHTTP(w, r.WithContext(withUser(r.Context(), sub)))
				return
			}
		}

		if role == "backend" || role == "admin" {
			if sig == "" {
				if userID != "" {
					r = r.WithContext(withUser(r.Context(), userID))
				}
				next.ServeHTTP(w, r)
				return
			}
		}

		if sig == "" || userID == "" {
			logger.Warn("missing_signature_headers", "path", r.URL.Path, "remote", r.RemoteAddr)
			utils.JSONError(w, http.StatusUnauthorized, "missing signature headers")
			return
		}

		keys := config.GetSigningKeys()
		if len(keys) == 0 {
			logger.Error("no_signing_keys_configured")
			utils.JSONError(w, http.StatusInternalServerError, "server misconfigured: no signing secrets available")
			return
		}
		ok := false
		for k := range keys {
			mac := hmac.New(sha256.New, []byte(k))
			mac.Write([]byte(userID))
			expected := hex.EncodeToString(mac.Sum(nil))
			if hmac.Equal([]byte(expected), []byte(sig)) {
				ok = true
				break
			}
		}
		if !ok {
			logger.Warn("invalid_signature", "user", userID)
			utils.JSONError(w, http.StatusUnauthorized, "invalid signature")
			return
		}
		next.ServeHTTP(w, r.WithContext(withUser(r.Context(), userID)))
	})
}

func withUser(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, ctxUserKey{}, userID)
}

// UserIDFromContext returns the verified acting user id or empty string.
func UserIDFromContext(ctx context.Context) string {
	if v := ctx.Value(ctxUserKey{}); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// SignUserID computes the hex HMAC-SHA256 signature a trusted backend
// attaches to a user id. Exposed for SDKs and tests.
func SignUserID(signingKey, userID string) string {
	mac := hmac.New(sha256.New, []byte(signingKey))
	mac.Write([]byte(userID))
	return hex.EncodeToString(mac.Sum(nil))
}
