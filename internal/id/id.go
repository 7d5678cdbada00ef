// Package id derives stable identifiers for card printings.
package id

import (
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// printingNamespace scopes printing ids so they never collide with other UUIDv5 users.
var printingNamespace = uuid.MustParse("6f1c2f8e-4b7a-5d21-9c3e-1a2b3c4d5e6f")

// Fields are the identifying attributes of one printing.
type Fields struct {
	SetCode  string
	Upstream string // upstream product id, may be empty
	Number   string
	Name     string
	FaceName string
	Token    bool
}

// Printing returns the deterministic id for a printing. The same fields always
// yield the same id across runs. salt disambiguates printings whose fields are
// identical; pass 0 for the first occurrence.
func Printing(f Fields, salt int) string {
	var b strings.Builder
	b.Grow(len(f.SetCode) + len(f.Upstream) + len(f.Number) + len(f.Name) + len(f.FaceName) + 16)
	b.WriteString(strings.ToLower(f.SetCode))
	b.WriteByte(0)
	b.WriteString(f.Upstream)
	b.WriteByte(0)
	b.WriteString(f.Number)
	b.WriteByte(0)
	b.WriteString(f.Name)
	b.WriteByte(0)
	b.WriteString(f.FaceName)
	if f.Token {
		b.WriteString("\x00token")
	}
	if salt > 0 {
		b.WriteByte(0)
		b.WriteString(strconv.Itoa(salt))
	}

	u := uuid.NewSHA1(printingNamespace, []byte(b.String()))
	return strings.ReplaceAll(u.String(), "-", "")
}
