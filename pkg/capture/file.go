package capture

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/fxamacker/cbor/v2"
	"github.com/klauspost/compress/zstd"

	"avaneesh/qcoder-go/pkg/types"
)

var zstdMagic = []byte{0x28, 0xB5, 0x2F, 0xFD}

// Writer appends records to a CBOR sequence
type Writer struct {
	enc    *cbor.Encoder
	zw     *zstd.Encoder
	closer io.Closer
	count  int
}

// NewWriter writes records to w, through zstd if compress is set.
// Close must be called to flush compressed output; it does not close w.
func NewWriter(w io.Writer, compress bool) (*Writer, error) {
	cw := &Writer{}
	if compress {
		zw, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			return nil, fmt.Errorf("zstd writer: %w", err)
		}
		cw.zw = zw
		w = zw
	}
	cw.enc = encMode.NewEncoder(w)
	return cw, nil
}

// Create creates the capture file at path
func Create(path string, compress bool) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	w, err := NewWriter(f, compress)
	if err != nil {
		f.Close()
		return nil, err
	}
	w.closer = f
	return w, nil
}

// Write appends r. A missing digest is computed.
func (w *Writer) Write(r *Record) error {
	if r == nil {
		return fmt.Errorf("%w: nil record", types.ErrInvalidArgument)
	}
	if len(r.Digest) == 0 {
		r.Digest = Digest(r.Frame)
	}
	if err := w.enc.Encode(r); err != nil {
		return err
	}
	w.count++
	return nil
}

// Count returns the number of records written
func (w *Writer) Count() int {
	return w.count
}

// Close flushes compressed output and closes the file opened by Create
func (w *Writer) Close() error {
	var errs []error
	if w.zw != nil {
		errs = append(errs, w.zw.Close())
	}
	if w.closer != nil {
		errs = append(errs, w.closer.Close())
	}
	return errors.Join(errs...)
}

// Reader iterates over a CBOR sequence of records. Compressed input is
// detected from the zstd frame magic.
type Reader struct {
	dec    *cbor.Decoder
	zr     *zstd.Decoder
	closer io.Closer
}

// NewReader reads records from r
func NewReader(r io.Reader) (*Reader, error) {
	br := bufio.NewReader(r)
	cr := &Reader{}

	head, err := br.Peek(len(zstdMagic))
	if err == nil && bytes.Equal(head, zstdMagic) {
		zr, err := zstd.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("zstd reader: %w", err)
		}
		cr.zr = zr
		cr.dec = decMode.NewDecoder(zr)
		return cr, nil
	}
	cr.dec = decMode.NewDecoder(br)
	return cr, nil
}

// Open opens the capture file at path
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	r, err := NewReader(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	r.closer = f
	return r, nil
}

// Next returns the next record, or io.EOF after the last one. Records
// whose digest does not match their frame are rejected.
func (r *Reader) Next() (*Record, error) {
	var rec Record
	if err := r.dec.Decode(&rec); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("%w: %w", types.ErrMalformedInput, err)
	}
	if err := rec.Verify(); err != nil {
		return nil, err
	}
	return &rec, nil
}

// ReadAll returns every remaining record
func (r *Reader) ReadAll() ([]*Record, error) {
	var out []*Record
	for {
		rec, err := r.Next()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, rec)
	}
}

// Close releases the decompressor and closes the file opened by Open
func (r *Reader) Close() error {
	if r.zr != nil {
		r.zr.Close()
	}
	if r.closer != nil {
		return r.closer.Close()
	}
	return nil
}
