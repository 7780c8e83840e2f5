package models

import (
	"time"
)

// TokenserverToken is the body returned by GET <tokenserver>/1.0/sync/1.5.
//
// ID and Key are the Hawk credentials for storage requests, APIEndpoint is
// the storage node assigned to this user. Duration is in seconds.
type TokenserverToken struct {
	ID           string `json:"id"`
	Key          string `json:"key"`
	APIEndpoint  string `json:"api_endpoint"`
	UID          int64  `json:"uid"`
	Duration     int64  `json:"duration"`
	HashedFxaUID string `json:"hashed_fxa_uid"`
}

// Lifetime returns Duration as a [time.Duration].
func (t TokenserverToken) Lifetime() time.Duration {
	return time.Duration(t.Duration) * time.Second
}
