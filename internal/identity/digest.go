package identity

import (
	"crypto/md5" //nolint:gosec // name-based UUID v3 is defined over MD5

	"github.com/google/uuid"
)

// CanonicalID derives a name-based (version 3) UUID from the raw bytes of an
// identifier. No namespace is prepended, so the result matches the
// java.util.UUID.nameUUIDFromBytes value for the same input and stays stable
// for identifiers already issued by older clients.
func CanonicalID(raw string) string {
	sum := md5.Sum([]byte(raw)) //nolint:gosec
	sum[6] = (sum[6] & 0x0f) | 0x30
	sum[8] = (sum[8] & 0x3f) | 0x80
	return uuid.UUID(sum).String()
}
