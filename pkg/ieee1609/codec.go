package ieee1609

import (
	"fmt"

	"avaneesh/qcoder-go/pkg/asn1len"
	"avaneesh/qcoder-go/pkg/bitbuf"
	"avaneesh/qcoder-go/pkg/types"
)

var (
	ErrNilHeader      = fmt.Errorf("%w: nil security header", types.ErrInvalidArgument)
	ErrUnknownContent = fmt.Errorf("%w: unknown 1609.2 content type", types.ErrMalformedInput)
)

// Encode prepends the header in front of the payload already in buf. For
// signed or encrypted content nothing is written and
// StatusNeedsExternalSecurity is returned.
func Encode(buf *bitbuf.Buffer, h *Header) (types.Status, error) {
	if buf == nil || h == nil {
		return types.StatusDone, ErrNilHeader
	}
	if h.Content.NeedsExternalSecurity() {
		return types.StatusNeedsExternalSecurity, nil
	}
	if !h.Content.valid() || h.TagClass > TagPrivate {
		return types.StatusDone, fmt.Errorf("%w: tag class %d, content %d", types.ErrInvalidArgument, h.TagClass, h.Content)
	}

	size, err := Size(buf.ByteLength())
	if err != nil {
		return types.StatusDone, err
	}
	if buf.HeadroomBits() < size*8 {
		return types.StatusDone, bitbuf.ErrNoHeadroom
	}

	// Prepends go outward: length, content, tag class, version
	if err := asn1len.PrependCER(buf, buf.ByteLength()); err != nil {
		return types.StatusDone, err
	}
	if err := buf.PrependBits(uint32(h.Content), 6); err != nil {
		return types.StatusDone, err
	}
	if err := buf.PrependBits(uint32(h.TagClass), 2); err != nil {
		return types.StatusDone, err
	}
	if err := buf.PrependBits(uint32(h.ProtocolVersion), 8); err != nil {
		return types.StatusDone, err
	}
	return types.StatusDone, nil
}

// Decode consumes the header from the front of buf into h and returns the
// payload length it announces. The announced length is not enforced
// against the bytes that remain.
func Decode(buf *bitbuf.Buffer, h *Header) (int, error) {
	if buf == nil || h == nil {
		return 0, ErrNilHeader
	}
	if buf.HeadSpaceBits() != 0 {
		return 0, bitbuf.ErrNotAligned
	}

	c := bitbuf.NewCursor(buf.Bytes())
	version, err := c.NextByte()
	if err != nil {
		return 0, err
	}
	tag, err := c.NextBits(2)
	if err != nil {
		return 0, err
	}
	content, err := c.NextBits(6)
	if err != nil {
		return 0, err
	}
	if !ContentType(content).valid() {
		return 0, fmt.Errorf("%w: %d", ErrUnknownContent, content)
	}
	announced, err := asn1len.DecodeCER(c)
	if err != nil {
		return 0, err
	}

	if _, err := buf.ConsumeFront(c.ConsumedBytes()); err != nil {
		return 0, err
	}

	h.ProtocolVersion = version
	h.TagClass = TagClass(tag)
	h.Content = ContentType(content)
	return announced, nil
}
