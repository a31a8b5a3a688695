package types

import "errors"

// Error taxonomy shared by every codec layer. Package-specific errors wrap
// one of these so callers can classify failures with errors.Is.
var (
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrInsufficientRoom  = errors.New("insufficient buffer room")
	ErrUnsupportedLength = errors.New("unsupported length")
	ErrMalformedInput    = errors.New("malformed input")
	ErrExternalCodec     = errors.New("external codec error")
)
