package logging

import (
	"crypto/sha256"
	"encoding/hex"

	"contactguard/internal/constants"
)

// ClientFingerprint is a short stable digest of a client identity. It is what
// logs and exported events carry in place of the address.
func ClientFingerprint(identity string) string {
	sum := sha256.Sum256([]byte(identity))
	return hex.EncodeToString(sum[:])[:constants.ClientFingerprintLen]
}
