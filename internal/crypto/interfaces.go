// Package crypto implements the Sync 1.5 record encryption: key bundles,
// the per-collection keys stored in crypto/keys, and BSO payload
// encryption (AES-256-CBC with an HMAC-SHA256 over the base64 ciphertext).
package crypto

// KeyResolver picks the key bundle used for a collection.
// [CollectionKeys] is the implementation used during a sync.
type KeyResolver interface {
	// KeyForCollection returns the collection-specific bundle, or the
	// default bundle when the collection has none.
	KeyForCollection(collection string) *KeyBundle
}
