// Package id generates identifiers for requests and connections.
package id

import (
	"encoding/hex"
	"strings"

	"github.com/google/uuid"
)

// Sortable generates a version 7 UUID. Version 7 UUIDs start with a
// millisecond timestamp, so they sort in creation order.
func Sortable() string {
	u, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return u.String()
}

// Short generates a 16 character hex ID.
func Short() string {
	u := uuid.New()
	return hex.EncodeToString(u[:8])
}

// Prefixed returns prefix + "-" + Short().
func Prefixed(prefix string) string {
	return prefix + "-" + Short()
}

// RequestID returns a request ID, reusing incoming when it is a plausible
// client-supplied ID.
func RequestID(incoming string) string {
	incoming = strings.TrimSpace(incoming)
	if incoming != "" && len(incoming) <= 128 && isPrintable(incoming) {
		return incoming
	}
	return Sortable()
}

func isPrintable(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < 0x21 || s[i] > 0x7e {
			return false
		}
	}
	return true
}
