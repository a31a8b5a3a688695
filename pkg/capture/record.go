// Package capture records V2X frames seen on a channel. Records are
// written as a CBOR sequence, optionally zstd-compressed, and can be
// indexed into a SQLite store keyed by the frame digest.
package capture

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/zeebo/blake3"

	"avaneesh/qcoder-go/pkg/channel"
	"avaneesh/qcoder-go/pkg/types"
)

// DigestSize is the size of a blake3-256 frame digest
const DigestSize = 32

var (
	ErrDigestMismatch = fmt.Errorf("%w: frame digest mismatch", types.ErrMalformedInput)
	ErrRecordTooLarge = fmt.Errorf("%w: captured frame exceeds %d bytes", types.ErrMalformedInput, channel.MaxStreamFrame)
)

// Record is one captured link frame
type Record struct {
	Time      types.ItsTime `cbor:"1,keyasint"`
	Direction uint8         `cbor:"2,keyasint"` // channel.Direction
	Stack     types.Stack   `cbor:"3,keyasint"`
	MsgID     int           `cbor:"4,keyasint"`
	Status    types.Status  `cbor:"5,keyasint"`
	Frame     []byte        `cbor:"6,keyasint"`
	Digest    []byte        `cbor:"7,keyasint"`
}

// Digest returns the blake3-256 digest of frame
func Digest(frame []byte) []byte {
	sum := blake3.Sum256(frame)
	return sum[:]
}

// NewRecord captures a copy of frame stamped with the current time
func NewRecord(stack types.Stack, msgID int, status types.Status, frame []byte) *Record {
	f := append([]byte(nil), frame...)
	return &Record{
		Time:   types.Now(),
		Stack:  stack,
		MsgID:  msgID,
		Status: status,
		Frame:  f,
		Digest: Digest(f),
	}
}

// Verify checks that Frame fits a channel frame and that Digest matches it
func (r *Record) Verify() error {
	if len(r.Frame) > channel.MaxStreamFrame {
		return fmt.Errorf("%w: %d bytes", ErrRecordTooLarge, len(r.Frame))
	}
	if !bytes.Equal(r.Digest, Digest(r.Frame)) {
		return ErrDigestMismatch
	}
	return nil
}

// String returns string representation of Record
func (r *Record) String() string {
	return fmt.Sprintf("Record{%s, %s/%d, %s, %d bytes, %x}",
		r.Time.ToTime().UTC().Format("15:04:05.000"), r.Stack, r.MsgID, r.Status, len(r.Frame), r.Digest[:min(len(r.Digest), 4)])
}

// Core Deterministic Encoding keeps identical records byte-identical
var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("capture: CBOR encoder initialization failed: " + err.Error())
	}
	decMode, err = cbor.DecOptions{
		DupMapKey:   cbor.DupMapKeyEnforcedAPF,
		IndefLength: cbor.IndefLengthForbidden,
	}.DecMode()
	if err != nil {
		panic("capture: CBOR decoder initialization failed: " + err.Error())
	}
}

// Marshal encodes r as a single CBOR item
func Marshal(r *Record) ([]byte, error) {
	if r == nil {
		return nil, errors.New("nil record")
	}
	return encMode.Marshal(r)
}

// Unmarshal decodes one CBOR item into a Record
func Unmarshal(data []byte) (*Record, error) {
	var r Record
	if err := decMode.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("%w: %w", types.ErrMalformedInput, err)
	}
	return &r, nil
}
