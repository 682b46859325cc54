package auth

import (
	"encoding/hex"
	"strings"

	"github.com/zeebo/blake3"
)

// Fingerprint identifies a token in logs without revealing it.
func Fingerprint(token string) string {
	token = strings.TrimSpace(token)
	if token == "" {
		return ""
	}
	sum := blake3.Sum256([]byte(token))
	return "b3:" + hex.EncodeToString(sum[:6])
}
