package types

// Status is the non-error outcome of a codec step
type Status int

const (
	// StatusDone means the step completed and the next one may run
	StatusDone Status = iota
	// StatusNeedsExternalSecurity means the caller must sign, encrypt,
	// verify or decrypt the buffer in place and then call the matching
	// continuation entry point
	StatusNeedsExternalSecurity
)

// String returns string representation of Status
func (s Status) String() string {
	switch s {
	case StatusDone:
		return "Done"
	case StatusNeedsExternalSecurity:
		return "NeedsExternalSecurity"
	default:
		return "Unknown"
	}
}
