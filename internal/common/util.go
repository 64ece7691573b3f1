package common

import (
	"crypto/rand"
	"encoding/hex"
	"strconv"
	"strings"
)

// MakeRandHexString returns size random bytes encoded as hex, so the result
// is 2*size characters long.
func MakeRandHexString(size int) (string, error) {
	b := make([]byte, size)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// WipeByteArray overwrites b with zeros. Used for passwords read from the
// terminal. Nil is a no-op.
func WipeByteArray(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// ScopedKey builds a storage key of the form <prefix><userID>:<eventID>.
func ScopedKey(prefix string, userID, eventID int64) string {
	var sb strings.Builder
	sb.WriteString(prefix)
	sb.WriteString(strconv.FormatInt(userID, 10))
	sb.WriteByte(':')
	sb.WriteString(strconv.FormatInt(eventID, 10))
	return sb.String()
}
