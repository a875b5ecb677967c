package ids

import (
	"strings"

	"github.com/google/uuid"
)

// New returns "<prefix>_<12 hex chars>", e.g. user_3f9a0c2b7d1e.
func New(prefix string) string {
	hex := strings.ReplaceAll(uuid.NewString(), "-", "")
	return prefix + "_" + hex[:12]
}

// Token returns a random opaque token for sessions and states.
func Token() string {
	return strings.ReplaceAll(uuid.NewString()+uuid.NewString(), "-", "")
}

// OrderedPair returns the two ids sorted, used as the match key.
func OrderedPair(a, b string) (string, string) {
	if a < b {
		return a, b
	}
	return b, a
}
