package domain

import (
	"strings"

	"github.com/google/uuid"
)

// NewPNR returns a candidate reservation code: "PNR" followed by eight
// uppercase hex characters. Uniqueness is enforced against the store,
// not assumed from entropy.
func NewPNR() string {
	return "PNR" + strings.ToUpper(uuid.NewString()[:8])
}
