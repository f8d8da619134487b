package cryptox

import (
	"strings"

	"github.com/google/uuid"
)

// VerificationCodeLength is the length of generated verification codes.
const VerificationCodeLength = 25

// GenerateVerificationCode returns a 25-character code derived from a random
// UUIDv4 with the hyphens stripped. The result is unguessable (122 bits of
// entropy before truncation) but not collision-proof; callers must rely on
// a store-level uniqueness constraint and retry on conflict.
func GenerateVerificationCode() string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return raw[:VerificationCodeLength]
}
