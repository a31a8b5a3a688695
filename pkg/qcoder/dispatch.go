package qcoder

import (
	"avaneesh/qcoder-go/pkg/bitbuf"
	"avaneesh/qcoder-go/pkg/types"
)

// peekItsMessageID reads the messageID of the ItsPduHeader
// (protocolVersion 8 bits, messageID 8 bits, stationID 32 bits) at the
// front of p
func peekItsMessageID(p []byte) (types.ItsMessageID, error) {
	c := bitbuf.NewCursor(p)
	if _, err := c.NextBits(8); err != nil {
		return 0, err
	}
	id, err := c.NextBits(8)
	if err != nil {
		return 0, err
	}
	return types.ItsMessageID(id), nil
}
