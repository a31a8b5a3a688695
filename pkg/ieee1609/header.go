// Package ieee1609 implements the outer IEEE 1609.2 data header carried in
// front of every SAE application payload:
//
//	+-----------------+----------+---------+-------------+---------+
//	| protocolVersion | tagClass | content | CER length  | payload |
//	|     8 bits      |  2 bits  | 6 bits  | 1..5 octets |         |
//	+-----------------+----------+---------+-------------+---------+
//
// Only unsecured data is framed here. Signed and encrypted content is
// handed back to the caller, which applies the external security service
// and resumes the pipeline.
package ieee1609

import (
	"fmt"

	"avaneesh/qcoder-go/pkg/asn1len"
)

// ProtocolVersion is the version number written by default
const ProtocolVersion = 3

// TagClass is the ASN.1 tag class of the content choice
type TagClass uint8

const (
	TagUniversal       TagClass = 0
	TagApplication     TagClass = 1
	TagContextSpecific TagClass = 2
	TagPrivate         TagClass = 3
)

// String returns string representation of TagClass
func (t TagClass) String() string {
	switch t {
	case TagUniversal:
		return "Universal"
	case TagApplication:
		return "Application"
	case TagContextSpecific:
		return "ContextSpecific"
	case TagPrivate:
		return "Private"
	default:
		return fmt.Sprintf("Unknown(%d)", uint8(t))
	}
}

// ContentType identifies the Ieee1609Dot2Content choice
type ContentType uint8

const (
	ContentUnsecured                ContentType = 0
	ContentSigned                   ContentType = 1
	ContentEncrypted                ContentType = 2
	ContentSignedCertificateRequest ContentType = 3
)

// String returns string representation of ContentType
func (c ContentType) String() string {
	switch c {
	case ContentUnsecured:
		return "UnsecuredData"
	case ContentSigned:
		return "SignedData"
	case ContentEncrypted:
		return "EncryptedData"
	case ContentSignedCertificateRequest:
		return "SignedCertificateRequest"
	default:
		return fmt.Sprintf("Unknown(%d)", uint8(c))
	}
}

// NeedsExternalSecurity reports whether content must pass through the
// security service before it can be framed or read
func (c ContentType) NeedsExternalSecurity() bool {
	return c == ContentSigned || c == ContentEncrypted
}

func (c ContentType) valid() bool {
	return c <= ContentSignedCertificateRequest
}

// Header is the decoded form of the security header
type Header struct {
	ProtocolVersion uint8
	TagClass        TagClass
	Content         ContentType
}

// NewUnsecured returns the header used for plain application payloads
func NewUnsecured() *Header {
	return &Header{
		ProtocolVersion: ProtocolVersion,
		TagClass:        TagContextSpecific,
		Content:         ContentUnsecured,
	}
}

// String returns a diagnostic form of the header
func (h *Header) String() string {
	return fmt.Sprintf("1609.2{v=%d, tag=%s, content=%s}", h.ProtocolVersion, h.TagClass, h.Content)
}

// Size returns the number of octets the header adds in front of a payload
// of payloadLen bytes
func Size(payloadLen int) (int, error) {
	n, err := asn1len.CERSize(payloadLen)
	if err != nil {
		return 0, err
	}
	return 2 + n, nil
}
