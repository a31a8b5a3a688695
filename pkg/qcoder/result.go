package qcoder

import (
	"fmt"

	"avaneesh/qcoder-go/pkg/types"
)

// Result is the outcome of a successful pipeline call. Length is the
// encoded frame size for Encode and the application payload size for
// Decode.
type Result struct {
	Status types.Status
	Length int
}

// Done reports whether the call completed without pausing
func (r Result) Done() bool {
	return r.Status == types.StatusDone
}

// NeedsExternalSecurity reports whether the caller must run the security
// service and then call the matching continuation
func (r Result) NeedsExternalSecurity() bool {
	return r.Status == types.StatusNeedsExternalSecurity
}

func (r Result) String() string {
	return fmt.Sprintf("%s(%d)", r.Status, r.Length)
}
