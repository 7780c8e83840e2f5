// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package crypto

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

const (
	keyLen   = 32
	kSyncLen = 64

	oldsyncInfo = "identity.mozilla.com/picl/v1/oldsync"
)

// KeyBundle is a pair of 256-bit keys: one for AES-CBC encryption and one
// for the HMAC-SHA256 that authenticates the ciphertext.
type KeyBundle struct {
	encKey []byte
	macKey []byte
}

// NewKeyBundle validates both key lengths.
func NewKeyBundle(enc, mac []byte) (*KeyBundle, error) {
	if len(enc) != keyLen {
		return nil, &BadKeyLengthError{Name: "enc_key", Got: len(enc), Want: keyLen}
	}
	if len(mac) != keyLen {
		return nil, &BadKeyLengthError{Name: "mac_key", Got: len(mac), Want: keyLen}
	}
	return &KeyBundle{
		encKey: append([]byte(nil), enc...),
		macKey: append([]byte(nil), mac...),
	}, nil
}

// NewRandomKeyBundle generates a fresh bundle from the OS CSPRNG.
func NewRandomKeyBundle() (*KeyBundle, error) {
	buf := make([]byte, kSyncLen)
	if _, err := io.ReadFull(rand.Reader, buf); err != nil {
		return nil, fmt.Errorf("generate key bundle: %w", err)
	}
	return KeyBundleFromKSyncBytes(buf)
}

// KeyBundleFromKSyncBytes splits a 64 byte kSync into encryption (first
// half) and HMAC (second half) keys.
func KeyBundleFromKSyncBytes(kSync []byte) (*KeyBundle, error) {
	if len(kSync) != kSyncLen {
		return nil, &BadKeyLengthError{Name: "kSync", Got: len(kSync), Want: kSyncLen}
	}
	return NewKeyBundle(kSync[:keyLen], kSync[keyLen:])
}

// KeyBundleFromKSyncBase64 decodes kSync from unpadded URL-safe base64, the
// form the account server hands out.
func KeyBundleFromKSyncBase64(kSync string) (*KeyBundle, error) {
	raw, err := base64.RawURLEncoding.DecodeString(kSync)
	if err != nil {
		return nil, fmt.Errorf("decode kSync: %w", err)
	}
	return KeyBundleFromKSyncBytes(raw)
}

// KeyBundleFromKB derives kSync from the account's kB with HKDF-SHA256 and
// returns the resulting root bundle.
func KeyBundleFromKB(kB []byte) (*KeyBundle, error) {
	if len(kB) != keyLen {
		return nil, &BadKeyLengthError{Name: "kB", Got: len(kB), Want: keyLen}
	}
	kSync := make([]byte, kSyncLen)
	r := hkdf.New(sha256.New, kB, nil, []byte(oldsyncInfo))
	if _, err := io.ReadFull(r, kSync); err != nil {
		return nil, fmt.Errorf("derive kSync: %w", err)
	}
	return KeyBundleFromKSyncBytes(kSync)
}

// KeyBundleFromBase64 decodes the standard base64 pair stored in crypto/keys.
func KeyBundleFromBase64(enc, mac string) (*KeyBundle, error) {
	encBytes, err := base64.StdEncoding.DecodeString(enc)
	if err != nil {
		return nil, fmt.Errorf("decode enc key: %w", err)
	}
	macBytes, err := base64.StdEncoding.DecodeString(mac)
	if err != nil {
		return nil, fmt.Errorf("decode mac key: %w", err)
	}
	return NewKeyBundle(encBytes, macBytes)
}

// ToB64Array is the inverse of [KeyBundleFromBase64].
func (k *KeyBundle) ToB64Array() [2]string {
	return [2]string{
		base64.StdEncoding.EncodeToString(k.encKey),
		base64.StdEncoding.EncodeToString(k.macKey),
	}
}

// Equal reports whether both bundles hold the same keys.
func (k *KeyBundle) Equal(other *KeyBundle) bool {
	if k == nil || other == nil {
		return k == other
	}
	return hmac.Equal(k.encKey, other.encKey) && hmac.Equal(k.macKey, other.macKey)
}

// String hides the key material.
func (k *KeyBundle) String() string {
	return "KeyBundle{}"
}

// Decrypt verifies the hex HMAC over the base64 ciphertext, then decrypts.
func (k *KeyBundle) Decrypt(ciphertextB64, ivB64, hmacHex string) ([]byte, error) {
	expected, err := hex.DecodeString(hmacHex)
	if err != nil || len(expected) != sha256.Size {
		return nil, ErrHMACMismatch
	}
	if !hmac.Equal(expected, k.mac(ciphertextB64)) {
		return nil, ErrHMACMismatch
	}

	iv, err := base64.StdEncoding.DecodeString(ivB64)
	if err != nil {
		return nil, fmt.Errorf("decode iv: %w", err)
	}
	if len(iv) != aes.BlockSize {
		return nil, ErrBadIV
	}
	ciphertext, err := base64.StdEncoding.DecodeString(ciphertextB64)
	if err != nil {
		return nil, fmt.Errorf("decode ciphertext: %w", err)
	}
	if len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return nil, ErrBadPadding
	}

	block, err := aes.NewCipher(k.encKey)
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(out, ciphertext)
	return pkcs7Unpad(out)
}

// EncryptWithIV encrypts cleartext with the given IV and returns the base64
// ciphertext and its hex HMAC.
func (k *KeyBundle) EncryptWithIV(cleartext, iv []byte) (ciphertextB64, hmacHex string, err error) {
	if len(iv) != aes.BlockSize {
		return "", "", ErrBadIV
	}
	block, err := aes.NewCipher(k.encKey)
	if err != nil {
		return "", "", err
	}
	padded := pkcs7Pad(cleartext)
	out := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out, padded)

	ciphertextB64 = base64.StdEncoding.EncodeToString(out)
	return ciphertextB64, hex.EncodeToString(k.mac(ciphertextB64)), nil
}

// EncryptRandIV encrypts cleartext with a fresh random IV.
func (k *KeyBundle) EncryptRandIV(cleartext []byte) (ciphertextB64, ivB64, hmacHex string, err error) {
	iv := make([]byte, aes.BlockSize)
	if _, err = io.ReadFull(rand.Reader, iv); err != nil {
		return "", "", "", fmt.Errorf("generate iv: %w", err)
	}
	ciphertextB64, hmacHex, err = k.EncryptWithIV(cleartext, iv)
	if err != nil {
		return "", "", "", err
	}
	return ciphertextB64, base64.StdEncoding.EncodeToString(iv), hmacHex, nil
}

func (k *KeyBundle) mac(ciphertextB64 string) []byte {
	h := hmac.New(sha256.New, k.macKey)
	h.Write([]byte(ciphertextB64))
	return h.Sum(nil)
}

func pkcs7Pad(b []byte) []byte {
	n := aes.BlockSize - len(b)%aes.BlockSize
	return append(append([]byte(nil), b...), bytes.Repeat([]byte{byte(n)}, n)...)
}

func pkcs7Unpad(b []byte) ([]byte, error) {
	if len(b) == 0 {
		return nil, ErrBadPadding
	}
	n := int(b[len(b)-1])
	if n == 0 || n > aes.BlockSize || n > len(b) {
		return nil, ErrBadPadding
	}
	for _, c := range b[len(b)-n:] {
		if int(c) != n {
			return nil, ErrBadPadding
		}
	}
	return b[:len(b)-n], nil
}
