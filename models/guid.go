package models

import (
	"crypto/rand"
	"encoding/base64"
)

// Guid is a Sync record identifier. Locally generated ids are 12 characters
// of URL-safe base64 (9 random bytes); ids received from the server are kept
// as-is.
type Guid string

// NewRandomGuid returns a fresh 12 character identifier.
func NewRandomGuid() Guid {
	b := make([]byte, 9)
	if _, err := rand.Read(b); err != nil {
		panic("crypto/rand unavailable: " + err.Error())
	}
	return Guid(base64.RawURLEncoding.EncodeToString(b))
}

// IsValidForSyncServer reports whether the id can be stored by the server:
// non-empty, at most 64 printable ASCII characters.
func (g Guid) IsValidForSyncServer() bool {
	if g == "" || len(g) > 64 {
		return false
	}
	for i := 0; i < len(g); i++ {
		if g[i] < ' ' || g[i] > '~' {
			return false
		}
	}
	return true
}

// IsValidForPlaces reports whether the id has the shape the history engine
// generates itself: 12 URL-safe base64 characters.
func (g Guid) IsValidForPlaces() bool {
	if len(g) != 12 {
		return false
	}
	for i := 0; i < len(g); i++ {
		c := g[i]
		isAlnum := (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
		if !isAlnum && c != '-' && c != '_' {
			return false
		}
	}
	return true
}

func (g Guid) String() string {
	return string(g)
}
