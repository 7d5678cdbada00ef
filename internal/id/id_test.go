package id

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPrinting_Deterministic(t *testing.T) {
	f := Fields{SetCode: "LEA", Upstream: "a1", Number: "161", Name: "Lightning Bolt"}

	first := Printing(f, 0)
	assert.Equal(t, first, Printing(f, 0))
	assert.Len(t, first, 32)
}

func TestPrinting_SetCodeCaseInsensitive(t *testing.T) {
	a := Printing(Fields{SetCode: "lea", Name: "Forest"}, 0)
	b := Printing(Fields{SetCode: "LEA", Name: "Forest"}, 0)
	assert.Equal(t, a, b)
}

func TestPrinting_DistinctInputs(t *testing.T) {
	base := Fields{SetCode: "M10", Number: "146", Name: "Lightning Bolt"}
	ids := map[string]struct{}{
		Printing(base, 0): {},
		Printing(base, 1): {},
		Printing(Fields{SetCode: "M10", Number: "147", Name: "Lightning Bolt"}, 0): {},
		Printing(Fields{SetCode: "M10", Number: "146", Name: "Lightning Bolt", Token: true}, 0): {},
		Printing(Fields{SetCode: "M10", Number: "146", Name: "Lightning", FaceName: "Bolt"}, 0): {},
	}
	assert.Len(t, ids, 5)
}
