package utils

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// GenerateAccessToken creates an HMAC-SHA256 signed JWT with the standard
// iss, sub, iat and exp claims. A negative ttl produces an already-expired
// token.
//
// The Sync client never signs tokens itself; this is what the in-memory
// test server issues as an OAuth access token.
//
// Example usage:
//
//	token, err := utils.GenerateAccessToken("accounts", "uid-1", time.Hour, "secret")
func GenerateAccessToken(issuer, subject string, ttl time.Duration, signKey string) (string, error) {
	if issuer == "" || ttl == 0 || signKey == "" {
		return "", errors.New("invalid params for generating access token")
	}

	now := time.Now()
	claims := &jwt.RegisteredClaims{
		Issuer:    issuer,
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		IssuedAt:  jwt.NewNumericDate(now),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(signKey))
	if err != nil {
		return "", fmt.Errorf("error occurred during signing access token: %w", err)
	}
	return signed, nil
}

// AccessTokenExpiry reads the exp claim of an OAuth access token without
// verifying its signature. Opaque (non-JWT) tokens and tokens without exp
// return ok == false.
func AccessTokenExpiry(accessToken string) (time.Time, bool) {
	token, _, err := jwt.NewParser().ParseUnverified(accessToken, &jwt.RegisteredClaims{})
	if err != nil {
		return time.Time{}, false
	}
	exp, err := token.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

// ParseBearerToken extracts the credential from an "Authorization: Bearer x"
// header value.
func ParseBearerToken(authorizationHeader string) (string, error) {
	parts := strings.Split(strings.TrimSpace(authorizationHeader), " ")
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || parts[1] == "" {
		return "", errors.New("invalid authorization header")
	}
	return parts[1], nil
}
