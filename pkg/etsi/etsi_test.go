package etsi

import (
	"bytes"
	"errors"
	"testing"

	"avaneesh/qcoder-go/pkg/bitbuf"
	"avaneesh/qcoder-go/pkg/types"
)

type appCodec interface {
	EncodeApplication(msgID int, v any, buf *bitbuf.Buffer) (int, error)
	DecodeApplication(stack types.Stack, buf *bitbuf.Buffer) (any, int, error)
}

func TestRoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		codec appCodec
		msg   *Message
		wire  []byte
	}{
		{
			name:  "cam",
			codec: CAMCodec{},
			msg:   NewCAM(0x01020304, []byte{0xAB, 0xCD}),
			wire:  []byte{0x02, 0x02, 0x01, 0x02, 0x03, 0x04, 0xAB, 0xCD},
		},
		{
			name:  "denm",
			codec: DENMCodec{},
			msg:   NewDENM(7, nil),
			wire:  []byte{0x02, 0x01, 0x00, 0x00, 0x00, 0x07},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf, err := bitbuf.Allocate(64, 8)
			if err != nil {
				t.Fatalf("Allocate failed: %v", err)
			}
			n, err := tt.codec.EncodeApplication(tt.msg.MessageID(), tt.msg, buf)
			if err != nil {
				t.Fatalf("EncodeApplication failed: %v", err)
			}
			if n != len(tt.wire) || !bytes.Equal(buf.Bytes(), tt.wire) {
				t.Errorf("Wire = % X (%d), want % X", buf.Bytes(), n, tt.wire)
			}

			v, consumed, err := tt.codec.DecodeApplication(types.StackETSI, buf)
			if err != nil {
				t.Fatalf("DecodeApplication failed: %v", err)
			}
			got := v.(*Message)
			if got.Header != tt.msg.Header || !bytes.Equal(got.Body, tt.msg.Body) {
				t.Errorf("Decoded %s, want %s", got, tt.msg)
			}
			if consumed != len(tt.wire) || buf.ByteLength() != 0 {
				t.Errorf("Consumed %d, remaining %d", consumed, buf.ByteLength())
			}
		})
	}
}

func TestWrongMessageType(t *testing.T) {
	buf, err := bitbuf.Allocate(64, 8)
	if err != nil {
		t.Fatalf("Allocate failed: %v", err)
	}
	if _, err := (CAMCodec{}).EncodeApplication(int(types.ItsMessageDENM), NewCAM(1, nil), buf); !errors.Is(err, types.ErrInvalidArgument) {
		t.Errorf("CAM codec encoding DENM id = %v", err)
	}
	if _, err := (DENMCodec{}).EncodeApplication(int(types.ItsMessageDENM), nil, buf); !errors.Is(err, ErrWrongValue) {
		t.Errorf("Nil message = %v", err)
	}

	if err := buf.Load([]byte{0x02, 0x02, 0, 0, 0, 1}); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if _, _, err := (DENMCodec{}).DecodeApplication(types.StackETSI, buf); !errors.Is(err, ErrUnexpectedType) {
		t.Errorf("DENM decode of CAM = %v", err)
	}
	if _, _, err := (CAMCodec{}).DecodeApplication(types.StackSAE, buf); !errors.Is(err, types.ErrInvalidArgument) {
		t.Errorf("CAM decode on SAE = %v", err)
	}
}
