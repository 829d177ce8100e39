package utils

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

const oauthStateKey = "oauth_state"

// NewOAuthState stores a random OAuth state in the session and returns it
func NewOAuthState(c *gin.Context) (string, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate oauth state: %w", err)
	}
	state := base64.RawURLEncoding.EncodeToString(buf)

	session := sessions.Default(c)
	session.Set(oauthStateKey, state)
	if err := session.Save(); err != nil {
		return "", fmt.Errorf("save session: %w", err)
	}
	return state, nil
}

// ConsumeOAuthState checks state against the stored one and clears it
func ConsumeOAuthState(c *gin.Context, state string) bool {
	session := sessions.Default(c)
	stored, _ := session.Get(oauthStateKey).(string)
	session.Delete(oauthStateKey)
	if err := session.Save(); err != nil {
		LogError("Failed to clear oauth state: %v", err)
	}
	return stored != "" && stored == state
}
