package utils

import "github.com/google/uuid"

// GenID returns a fresh globally unique message id.
func GenID() string {
	return uuid.NewString()
}
