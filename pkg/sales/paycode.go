package sales

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// NewPaymentCode returns a unique payment reference in the form
// PAG-<unix-millis>-<8 uppercase hex chars>. The random part carries 32 bits
// of entropy from crypto/rand, so collisions within the same millisecond are
// negligible.
func NewPaymentCode() string {
	buf := make([]byte, 4)
	if _, err := rand.Read(buf); err != nil {
		panic(fmt.Sprintf("crypto/rand unavailable: %v", err))
	}
	return fmt.Sprintf("PAG-%d-%s", time.Now().UnixMilli(), strings.ToUpper(hex.EncodeToString(buf)))
}
