package crypto

import (
	"errors"
	"fmt"
)

var (
	// ErrHMACMismatch is returned when a record's HMAC does not verify. It
	// usually means the record was encrypted with a different key.
	ErrHMACMismatch = errors.New("SHA256 HMAC mismatch")

	// ErrBadPadding is returned when decrypted data has invalid PKCS#7 padding.
	ErrBadPadding = errors.New("bad PKCS#7 padding")

	// ErrBadIV is returned when the IV is not one AES block long.
	ErrBadIV = errors.New("bad IV length")
)

// BadKeyLengthError reports a key of the wrong size.
type BadKeyLengthError struct {
	Name string
	Got  int
	Want int
}

func (e *BadKeyLengthError) Error() string {
	return fmt.Sprintf("key %s had wrong length, got %d, expected %d", e.Name, e.Got, e.Want)
}
