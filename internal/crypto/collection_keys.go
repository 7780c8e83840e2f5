package crypto

import (
	"encoding/json"
	"fmt"

	"github.com/MKhiriev/go-sync15/models"
)

// Location of the keys record on the server.
const (
	KeysCollection = "crypto"
	KeysID         = "keys"
)

// CollectionKeys is the decrypted content of crypto/keys: a default bundle
// plus optional per-collection bundles.
type CollectionKeys struct {
	Timestamp   models.ServerTimestamp
	Default     *KeyBundle
	Collections map[string]*KeyBundle
}

// NewRandomCollectionKeys creates keys for a fresh start: a random default
// bundle and no per-collection keys.
func NewRandomCollectionKeys() (*CollectionKeys, error) {
	def, err := NewRandomKeyBundle()
	if err != nil {
		return nil, err
	}
	return &CollectionKeys{Default: def, Collections: map[string]*KeyBundle{}}, nil
}

// CollectionKeysFromEncryptedBso decrypts crypto/keys with the account's
// root key.
func CollectionKeysFromEncryptedBso(bso models.EncryptedBso, root *KeyBundle) (*CollectionKeys, error) {
	cleartext, err := DecryptBso(bso, root)
	if err != nil {
		return nil, fmt.Errorf("decrypt crypto/keys: %w", err)
	}
	var rec models.CryptoKeysRecord
	if err = cleartext.Payload.IntoRecord(&rec); err != nil {
		return nil, err
	}

	def, err := KeyBundleFromBase64(rec.Default[0], rec.Default[1])
	if err != nil {
		return nil, fmt.Errorf("default key: %w", err)
	}
	keys := &CollectionKeys{
		Timestamp:   bso.Modified,
		Default:     def,
		Collections: make(map[string]*KeyBundle, len(rec.Collections)),
	}
	for name, pair := range rec.Collections {
		kb, err := KeyBundleFromBase64(pair[0], pair[1])
		if err != nil {
			return nil, fmt.Errorf("key for %s: %w", name, err)
		}
		keys.Collections[name] = kb
	}
	return keys, nil
}

// ToEncryptedBso serialises the keys into a crypto/keys record encrypted
// with root.
func (c *CollectionKeys) ToEncryptedBso(root *KeyBundle) (models.EncryptedBso, error) {
	rec := models.CryptoKeysRecord{
		ID:          KeysID,
		Collection:  KeysCollection,
		Default:     c.Default.ToB64Array(),
		Collections: make(map[string][2]string, len(c.Collections)),
	}
	for name, kb := range c.Collections {
		rec.Collections[name] = kb.ToB64Array()
	}
	payload, err := models.PayloadFromRecord(rec)
	if err != nil {
		return models.EncryptedBso{}, err
	}
	return EncryptBso(payload.IntoBso(KeysCollection), root)
}

// KeyForCollection implements [KeyResolver].
func (c *CollectionKeys) KeyForCollection(collection string) *KeyBundle {
	if kb, ok := c.Collections[collection]; ok {
		return kb
	}
	return c.Default
}

// EncryptBso encrypts the cleartext payload; envelope fields are copied.
func EncryptBso(bso models.CleartextBso, key *KeyBundle) (models.EncryptedBso, error) {
	cleartext, err := json.Marshal(bso.Payload)
	if err != nil {
		return models.EncryptedBso{}, fmt.Errorf("encode payload %s: %w", bso.ID, err)
	}
	ciphertext, iv, mac, err := key.EncryptRandIV(cleartext)
	if err != nil {
		return models.EncryptedBso{}, err
	}
	return models.EncryptedBso{
		ID:         bso.ID,
		Collection: bso.Collection,
		Modified:   bso.Modified,
		SortIndex:  bso.SortIndex,
		TTL:        bso.TTL,
		Payload:    models.EncryptedPayload{IV: iv, HMAC: mac, Ciphertext: ciphertext},
	}, nil
}

// DecryptBso verifies and decrypts the payload. An [ErrHMACMismatch] means
// the key is wrong.
func DecryptBso(bso models.EncryptedBso, key *KeyBundle) (models.CleartextBso, error) {
	cleartext, err := key.Decrypt(bso.Payload.Ciphertext, bso.Payload.IV, bso.Payload.HMAC)
	if err != nil {
		return models.CleartextBso{}, err
	}
	payload, err := models.PayloadFromJSON(cleartext)
	if err != nil {
		return models.CleartextBso{}, fmt.Errorf("decode cleartext %s: %w", bso.ID, err)
	}
	return models.CleartextBso{
		ID:         bso.ID,
		Collection: bso.Collection,
		Modified:   bso.Modified,
		SortIndex:  bso.SortIndex,
		TTL:        bso.TTL,
		Payload:    payload,
	}, nil
}
