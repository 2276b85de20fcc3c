package order

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// GenerateOrderNo returns a unique, roughly time-ordered order number,
// e.g. SF20261019-1f0c9a2b4e6d.
func GenerateOrderNo() string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return fmt.Sprintf("SF%s-%s", time.Now().UTC().Format("20060102"), id[:12])
}
