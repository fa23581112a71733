package threshold

import (
	"fmt"

	"github.com/cofhe-project/cofhe/cofheerr"
	"github.com/cofhe-project/cofhe/group"
)

// CombineGroupElements reconstructs C1^secret from t partial decryptions
// D_i = C1^{share_i}, all drawn from a single combination's shares. Because
// Split's telescoping construction gives every position an implicit
// reconstruction coefficient of 1, combination is the plain group product
// Π D_i, with no per-share exponentiation needed.
//
// Callers (smpc.Client) are responsible for ensuring partials all come from
// the same combination and that there are at least t of them; a mismatched
// or incomplete set produces a combined element that will not decode to a
// valid F element downstream (group.Arith.DlogF returns group.ErrNotInF).
func CombineGroupElements(partials []group.Elem, arith group.Arith) (group.Elem, error) {
	if len(partials) == 0 {
		return group.Elem{}, fmt.Errorf("threshold: combine called with no partial decryptions: %w", cofheerr.ErrThresholdNotMet)
	}
	combined := arith.Identity()
	for _, d := range partials {
		combined = arith.Compose(combined, d)
	}
	return combined, nil
}
