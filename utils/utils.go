package utils

import (
	"math/rand/v2"
	"strconv"
	"strings"
	"time"

	"storefront/errs"

	"github.com/google/uuid"
)

// GetUUID returns a new random identifier for stored documents.
func GetUUID() string {
	return uuid.NewString()
}

// ParseID validates a path or body identifier. what names the resource in the
// error message ("order", "payment").
func ParseID(what, id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", errs.Validation("%s ID is required", what)
	}
	if _, err := uuid.Parse(id); err != nil {
		return "", errs.Validation("Invalid %s ID", what)
	}
	return id, nil
}

var upperAlnum = []rune("ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789")

// GenerateRandomString creates a random upper-case alphanumeric string of length n.
func GenerateRandomString(n int) string {
	b := make([]rune, n)
	for i := range b {
		b[i] = upperAlnum[rand.IntN(len(upperAlnum))]
	}
	return string(b)
}

// TransactionID builds the opaque gateway reference: TXN, the unix time in
// milliseconds, then nine random characters.
func TransactionID(now time.Time) string {
	return "TXN" + strconv.FormatInt(now.UnixMilli(), 10) + GenerateRandomString(9)
}
