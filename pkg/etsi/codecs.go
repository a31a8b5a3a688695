package etsi

import (
	"avaneesh/qcoder-go/pkg/bitbuf"
	"avaneesh/qcoder-go/pkg/types"
)

// CAMCodec handles Cooperative Awareness Messages
type CAMCodec struct{}

func (CAMCodec) EncodeApplication(msgID int, v any, buf *bitbuf.Buffer) (int, error) {
	return messageCodec{id: types.ItsMessageCAM}.encode(msgID, v, buf)
}

func (CAMCodec) DecodeApplication(stack types.Stack, buf *bitbuf.Buffer) (any, int, error) {
	return messageCodec{id: types.ItsMessageCAM}.decode(stack, buf)
}

// DENMCodec handles Decentralized Environmental Notification Messages
type DENMCodec struct{}

func (DENMCodec) EncodeApplication(msgID int, v any, buf *bitbuf.Buffer) (int, error) {
	return messageCodec{id: types.ItsMessageDENM}.encode(msgID, v, buf)
}

func (DENMCodec) DecodeApplication(stack types.Stack, buf *bitbuf.Buffer) (any, int, error) {
	return messageCodec{id: types.ItsMessageDENM}.decode(stack, buf)
}

// NewCAM builds a CAM from station and body
func NewCAM(stationID uint32, body []byte) *Message {
	return &Message{
		Header: ItsPduHeader{ProtocolVersion: ProtocolVersion, MessageID: types.ItsMessageCAM, StationID: stationID},
		Body:   body,
	}
}

// NewDENM builds a DENM from station and body
func NewDENM(stationID uint32, body []byte) *Message {
	return &Message{
		Header: ItsPduHeader{ProtocolVersion: ProtocolVersion, MessageID: types.ItsMessageDENM, StationID: stationID},
		Body:   body,
	}
}
