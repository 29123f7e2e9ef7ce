package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"sealchat/pkg/config"
)

// IssueUserToken mints a signed session token whose subject is the user
// id. Token lifetime is the caller's choice; the chat core only reads the
// subject back out.
func IssueUserToken(userID string, ttl time.Duration) (string, error) {
	secret, issuer := config.GetJWT()
	if secret == "" {
		return "", fmt.Errorf("auth: no jwt secret configured")
	}
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		Issuer:    issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tok.SignedString([]byte(secret))
}

// VerifyUserToken validates a session token and returns its subject.
func VerifyUserToken(token string) (string, error) {
	secret, issuer := config.GetJWT()
	if secret == "" {
		return "", fmt.Errorf("auth: no jwt secret configured")
	}
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}
	parsed, err := jwt.ParseWithClaims(token, &jwt.RegisteredClaims{}, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, opts...)
	if err != nil {
		return "", err
	}
	claims, ok := parsed.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.Subject == "" {
		return "", fmt.Errorf("auth: token missing subject")
	}
	return claims.Subject, nil
}
