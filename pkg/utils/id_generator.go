// Package utils holds small helpers shared by the ledger, the directory and
// the storage backends.
package utils

import (
	"github.com/google/uuid"
)

// GenerateID returns a random (v4) UUID string. Every backend uses it for
// documents created through Add, so ids look the same whichever store the
// server runs on.
//
// Go Learning Note — "github.com/google/uuid":
// uuid.New() panics only if the system's random source fails, which is
// treated as unrecoverable. uuid.NewString() is the same call returning the
// string form directly.
func GenerateID() string {
	return uuid.NewString()
}

// IsID reports whether s parses as a UUID. Handlers use it to reject
// obviously malformed notification ids before hitting the store.
func IsID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
