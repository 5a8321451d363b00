package globals

import (
	"context"
	"os"
)

// Context keys
type ContextKey string

const UserIDKey ContextKey = "userId"

var JwtSecret = []byte(secretFromEnv())

func secretFromEnv() string {
	if s := os.Getenv("JWT_SECRET"); s != "" {
		return s
	}
	return "dev_secret_change_me"
}

var Ctx = context.Background()
