package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// ExpiryFromJWT reads the exp claim of a JWT without verifying its
// signature; the API that receives the token still verifies it. Tokens that
// are not shaped like a JWT carry no expiry. exp may be a number or a
// numeric string.
func ExpiryFromJWT(token string) (*time.Time, error) {
	token = strings.TrimSpace(token)
	if !looksLikeJWT(token) {
		return nil, nil
	}

	claims := jwt.MapClaims{}
	parser := jwt.NewParser(jwt.WithJSONNumber())
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		var validationErr *jwt.ValidationError
		if !errors.As(err, &validationErr) || validationErr.Errors&jwt.ValidationErrorUnverifiable == 0 {
			return nil, fmt.Errorf("auth: malformed jwt: %w", err)
		}
	}

	raw, ok := claims["exp"]
	if !ok || raw == nil {
		return nil, nil
	}
	seconds, err := expSeconds(raw)
	if err != nil {
		return nil, err
	}
	expiresAt := time.Unix(seconds, 0).UTC()
	return &expiresAt, nil
}

func looksLikeJWT(token string) bool {
	parts := strings.Split(token, ".")
	if len(parts) < 3 {
		return false
	}
	return parts[0] != "" && parts[1] != ""
}

func expSeconds(raw any) (int64, error) {
	switch typed := raw.(type) {
	case json.Number:
		if value, err := typed.Int64(); err == nil {
			return value, nil
		}
		value, err := typed.Float64()
		if err != nil {
			return 0, fmt.Errorf("auth: jwt exp %q is not numeric", typed.String())
		}
		return int64(value), nil
	case float64:
		return int64(typed), nil
	case string:
		value, err := strconv.ParseInt(strings.TrimSpace(typed), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("auth: jwt exp %q is not numeric", typed)
		}
		return value, nil
	default:
		return 0, fmt.Errorf("auth: jwt exp has unsupported type %T", raw)
	}
}
