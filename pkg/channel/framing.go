package channel

import (
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"avaneesh/qcoder-go/pkg/asn1len"
	"avaneesh/qcoder-go/pkg/bitbuf"
)

// Stream framing: every frame is preceded by its length in CER form
const (
	MaxStreamFrame  = 65535
	streamPrefixMax = 5
)

var (
	ErrFrameTooLarge = errors.New("frame exceeds maximum stream frame size")
	errIdle          = errors.New("no frame before poll deadline")
)

type deadlineReader interface {
	io.Reader
	SetReadDeadline(t time.Time) error
}

func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// encodeStreamFrame returns data with its length prefix
func encodeStreamFrame(data []byte) ([]byte, error) {
	if len(data) > MaxStreamFrame {
		return nil, ErrFrameTooLarge
	}
	buf, err := bitbuf.Allocate(len(data)+streamPrefixMax+1, streamPrefixMax)
	if err != nil {
		return nil, err
	}
	if err := buf.AppendBytes(data); err != nil {
		return nil, err
	}
	if err := asn1len.PrependCER(buf, len(data)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// readStreamFrame reads one length-prefixed frame. The first octet is
// awaited for at most poll and errIdle is returned if none arrives; the
// rest of the frame must follow within timeout.
func readStreamFrame(r deadlineReader, poll, timeout time.Duration) ([]byte, error) {
	var first [1]byte
	if poll > 0 {
		r.SetReadDeadline(time.Now().Add(poll))
	}
	if _, err := io.ReadFull(r, first[:]); err != nil {
		if isTimeout(err) {
			return nil, errIdle
		}
		return nil, err
	}

	if timeout > 0 {
		r.SetReadDeadline(time.Now().Add(timeout))
	} else {
		r.SetReadDeadline(time.Time{})
	}

	prefix := first[:]
	if first[0]&0x80 != 0 {
		k := int(first[0] & 0x7F)
		if k == 0 || k > 4 {
			_, _, err := asn1len.DecodeCERBytes(prefix)
			return nil, err
		}
		rest := make([]byte, k)
		if _, err := io.ReadFull(r, rest); err != nil {
			return nil, err
		}
		prefix = append(prefix, rest...)
	}

	length, _, err := asn1len.DecodeCERBytes(prefix)
	if err != nil {
		return nil, err
	}
	if length > MaxStreamFrame {
		return nil, fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, length)
	}

	frame := make([]byte, length)
	if _, err := io.ReadFull(r, frame); err != nil {
		return nil, err
	}
	return frame, nil
}
