package donations

import (
	"crypto/rand"
	"fmt"

	"github.com/google/uuid"
)

// referenceAlphabet avoids characters donors misread on bank statements
// (0/O, 1/I/L).
const referenceAlphabet = "23456789ABCDEFGHJKMNPQRSTUVWXYZ"

// NewReference generates the EFT payment reference the donor types into
// their banking app, e.g. MPL-7KQ2M9XF.
func NewReference() string {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		// Fall back to a uuid fragment; uniqueness still holds.
		return fmt.Sprintf("MPL-%.8s", uuid.NewString())
	}
	for i := range b {
		b[i] = referenceAlphabet[int(b[i])%len(referenceAlphabet)]
	}
	return fmt.Sprintf("MPL-%s", b)
}
