package crypto

import (
	"fmt"

	"github.com/cofhe-project/cofhe/cofheerr"
)

func tensorShapeMismatch(a, b []int) error {
	return fmt.Errorf("crypto: tensor shapes %v and %v: %w", a, b, cofheerr.ErrShapeMismatch)
}
