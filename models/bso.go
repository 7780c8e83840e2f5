// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package models

import (
	"encoding/json"
	"fmt"
)

// BsoRecord is the wire envelope ("Basic Storage Object") for one record.
//
// Payload is transmitted as a JSON string that itself contains the
// serialised T. Modified is assigned by the server and never sent back;
// Collection is implied by the request URL and is only kept locally.
type BsoRecord[T any] struct {
	ID         Guid
	Collection string
	Modified   ServerTimestamp
	SortIndex  *int32
	TTL        *uint32
	Payload    T
}

// EncryptedBso is a BSO whose payload has not been decrypted yet.
type EncryptedBso = BsoRecord[EncryptedPayload]

// CleartextBso is a decrypted BSO.
type CleartextBso = BsoRecord[Payload]

type bsoWire struct {
	ID        Guid             `json:"id"`
	Modified  *ServerTimestamp `json:"modified,omitempty"`
	SortIndex *int32           `json:"sortindex,omitempty"`
	TTL       *uint32          `json:"ttl,omitempty"`
	Payload   string           `json:"payload"`
}

// NewBsoRecord builds an envelope without auto fields.
func NewBsoRecord[T any](id Guid, collection string, payload T) BsoRecord[T] {
	return BsoRecord[T]{ID: id, Collection: collection, Payload: payload}
}

func (b BsoRecord[T]) MarshalJSON() ([]byte, error) {
	inner, err := json.Marshal(b.Payload)
	if err != nil {
		return nil, fmt.Errorf("encode bso payload: %w", err)
	}
	return json.Marshal(bsoWire{
		ID:        b.ID,
		SortIndex: b.SortIndex,
		TTL:       b.TTL,
		Payload:   string(inner),
	})
}

func (b *BsoRecord[T]) UnmarshalJSON(data []byte) error {
	var w bsoWire
	if err := json.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("decode bso envelope: %w", err)
	}
	var payload T
	if err := json.Unmarshal([]byte(w.Payload), &payload); err != nil {
		return fmt.Errorf("decode bso payload: %w", err)
	}
	b.ID = w.ID
	b.SortIndex = w.SortIndex
	b.TTL = w.TTL
	b.Payload = payload
	if w.Modified != nil {
		b.Modified = *w.Modified
	}
	return nil
}

// EncryptedPayload is the JSON object stored in an encrypted BSO's payload.
type EncryptedPayload struct {
	IV         string `json:"IV"`
	HMAC       string `json:"hmac"`
	Ciphertext string `json:"ciphertext"`
}

// SerializedLen is the size the payload occupies inside the BSO envelope.
// Upload limits are expressed in terms of this value.
func (e EncryptedPayload) SerializedLen() int {
	b, err := json.Marshal(e)
	if err != nil {
		return 0
	}
	return len(b)
}

// Payload is a decrypted record body: an id, a deletion flag and the
// remaining engine-specific fields.
//
// A tombstone is a payload whose only content is {"id":..., "deleted":true}.
type Payload struct {
	ID      Guid
	Deleted bool
	Data    map[string]any
}

// NewTombstone returns a deletion marker for id.
func NewTombstone(id Guid) Payload {
	return Payload{ID: id, Deleted: true, Data: map[string]any{}}
}

// NewTombstoneWithTTL returns a deletion marker carrying a ttl auto field.
func NewTombstoneWithTTL(id Guid, ttl uint32) Payload {
	p := NewTombstone(id)
	p.Data["ttl"] = ttl
	return p
}

// PayloadFromJSON parses a cleartext record body.
func PayloadFromJSON(raw []byte) (Payload, error) {
	var p Payload
	if err := json.Unmarshal(raw, &p); err != nil {
		return Payload{}, err
	}
	return p, nil
}

// PayloadFromRecord serialises an engine record into a [Payload]. The record
// must marshal into a JSON object with an "id" field.
func PayloadFromRecord(record any) (Payload, error) {
	raw, err := json.Marshal(record)
	if err != nil {
		return Payload{}, fmt.Errorf("encode record: %w", err)
	}
	return PayloadFromJSON(raw)
}

// IntoRecord decodes the payload into an engine record type.
func (p Payload) IntoRecord(dst any) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return err
	}
	if err = json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("decode record %s: %w", p.ID, err)
	}
	return nil
}

func (p Payload) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(p.Data)+2)
	for k, v := range p.Data {
		out[k] = v
	}
	out["id"] = p.ID
	if p.Deleted {
		out["deleted"] = true
	} else {
		delete(out, "deleted")
	}
	return json.Marshal(out)
}

func (p *Payload) UnmarshalJSON(b []byte) error {
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	id, ok := m["id"].(string)
	if !ok {
		return ErrPayloadMissingID
	}
	deleted, _ := m["deleted"].(bool)
	delete(m, "id")
	delete(m, "deleted")

	p.ID = Guid(id)
	p.Deleted = deleted
	p.Data = m
	return nil
}

// IntoBso moves the sortindex and ttl auto fields from the payload onto the
// envelope.
func (p Payload) IntoBso(collection string) CleartextBso {
	bso := CleartextBso{ID: p.ID, Collection: collection}
	data := make(map[string]any, len(p.Data))
	for k, v := range p.Data {
		data[k] = v
	}
	if v, ok := takeNumber(data, "sortindex"); ok {
		si := int32(v)
		bso.SortIndex = &si
	}
	if v, ok := takeNumber(data, "ttl"); ok && v >= 0 {
		ttl := uint32(v)
		bso.TTL = &ttl
	}
	p.Data = data
	bso.Payload = p
	return bso
}

// WithAutoFields copies the envelope's sortindex and ttl back into the
// payload. Existing payload values win.
func WithAutoFields(bso CleartextBso) Payload {
	p := bso.Payload
	data := make(map[string]any, len(p.Data)+2)
	for k, v := range p.Data {
		data[k] = v
	}
	if _, ok := data["sortindex"]; !ok && bso.SortIndex != nil {
		data["sortindex"] = *bso.SortIndex
	}
	if _, ok := data["ttl"]; !ok && bso.TTL != nil {
		data["ttl"] = *bso.TTL
	}
	p.Data = data
	return p
}

func takeNumber(m map[string]any, name string) (int64, bool) {
	v, ok := m[name]
	if !ok {
		return 0, false
	}
	delete(m, name)
	switch n := v.(type) {
	case float64:
		return int64(n), true
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint32:
		return int64(n), true
	default:
		return 0, false
	}
}
