// Package qcoder runs V2X messages through their layered codecs.
//
// Encoding builds a frame innermost first: the application payload is
// appended to the buffer tail and each wrapping header is then prepended
// into headroom. Decoding strips the outermost header first and hands the
// remainder inward.
//
//	SAE:  WSMP | IEEE 1609.2 | J2735 MessageFrame
//	ETSI: (GeoNetworking) | BTP | CAM or DENM
//
// Signed and encrypted SAE content pauses the pipeline with
// types.StatusNeedsExternalSecurity. The caller runs its security service
// over the buffer in place and resumes with EncodeContinue or
// DecodeContinue.
package qcoder

import (
	"fmt"

	"avaneesh/qcoder-go/pkg/btp"
	"avaneesh/qcoder-go/pkg/ieee1609"
	"avaneesh/qcoder-go/pkg/internal/logger"
	"avaneesh/qcoder-go/pkg/types"
)

var (
	ErrNilMessage         = fmt.Errorf("%w: nil message or buffer", types.ErrInvalidArgument)
	ErrMissingCodec       = fmt.Errorf("%w: codec not configured", types.ErrInvalidArgument)
	ErrMissingApplication = fmt.Errorf("%w: application structure missing", types.ErrInvalidArgument)
	ErrNoETSIContinuation = fmt.Errorf("%w: ETSI messages have no continuation", types.ErrInvalidArgument)
	ErrUnknownStack       = fmt.Errorf("%w: unknown stack", types.ErrInvalidArgument)
	ErrUnknownITSMessage  = fmt.Errorf("%w: unknown ITS message id", types.ErrMalformedInput)
)

// Config holds per-pipeline settings
type Config struct {
	Logger Logger

	// Verbose dumps the buffer after every encode and before every decode
	Verbose bool
}

// Pipeline encodes and decodes Messages. It only holds configuration and
// may be shared between goroutines; Messages may not.
type Pipeline struct {
	log     logger.Logger
	verbose bool
	codecs  Codecs
}

// New creates a pipeline using the given collaborators
func New(cfg Config, codecs Codecs) *Pipeline {
	return &Pipeline{
		log:     logger.OrNoOp(cfg.Logger),
		verbose: cfg.Verbose,
		codecs:  codecs,
	}
}

func checkMessage(m *Message) error {
	if m == nil || m.Buf == nil {
		return ErrNilMessage
	}
	return nil
}

func externalError(layer string, err error) error {
	return fmt.Errorf("%w: %s: %w", types.ErrExternalCodec, layer, err)
}

func (p *Pipeline) dump(label string, m *Message) {
	if p.verbose {
		logger.Dump(p.log, fmt.Sprintf("%s %s", m.Stack, label), m.Buf.Bytes())
	}
}

// Decode parses the frame loaded in m.Buf
func (p *Pipeline) Decode(m *Message) (Result, error) {
	if err := checkMessage(m); err != nil {
		return Result{}, err
	}
	p.dump("decode", m)

	switch m.Stack {
	case types.StackSAE:
		return p.decodeSAE(m)
	case types.StackETSI:
		return p.decodeETSI(m)
	default:
		return Result{}, fmt.Errorf("%w: %d", ErrUnknownStack, m.Stack)
	}
}

func (p *Pipeline) decodeSAE(m *Message) (Result, error) {
	if p.codecs.WSMP == nil {
		return Result{}, fmt.Errorf("%w: WSMP", ErrMissingCodec)
	}
	hdr, err := p.codecs.WSMP.DecodeHeader(m.Buf)
	if err != nil {
		return Result{}, externalError("WSMP decode", err)
	}
	m.WSMP = hdr

	if m.Security == nil {
		m.Security = &ieee1609.Header{}
	}
	announced, err := ieee1609.Decode(m.Buf, m.Security)
	if err != nil {
		return Result{}, err
	}
	if remaining := m.Buf.ByteLength(); announced != remaining {
		p.log.Warn("1609.2 header announces %d bytes, %d remain", announced, remaining)
	}
	p.log.Debug("Decoded %s", m.Security)

	if m.Security.Content != ieee1609.ContentUnsecured {
		return Result{Status: types.StatusNeedsExternalSecurity, Length: m.Buf.ByteLength()}, nil
	}
	return p.decodeApplication(m, p.codecs.J2735, "J2735")
}

func (p *Pipeline) decodeETSI(m *Message) (Result, error) {
	if err := btp.Decode(m.Buf, &m.BTP); err != nil {
		return Result{}, err
	}
	p.log.Debug("Decoded %s", m.BTP)

	id, err := peekItsMessageID(m.Buf.Bytes())
	if err != nil {
		return Result{}, err
	}
	m.MsgID = int(id)

	switch id {
	case types.ItsMessageDENM:
		return p.decodeApplication(m, p.codecs.DENM, "DENM")
	case types.ItsMessageCAM:
		return p.decodeApplication(m, p.codecs.CAM, "CAM")
	default:
		return Result{}, fmt.Errorf("%w: %d", ErrUnknownITSMessage, id)
	}
}

func (p *Pipeline) decodeApplication(m *Message, codec ApplicationCodec, layer string) (Result, error) {
	if codec == nil {
		return Result{}, fmt.Errorf("%w: %s", ErrMissingCodec, layer)
	}
	v, n, err := codec.DecodeApplication(m.Stack, m.Buf)
	if err != nil {
		return Result{}, externalError(layer+" decode", err)
	}

	m.Release()
	m.App = v
	m.PayloadLen = n
	if id, ok := v.(Identified); ok {
		m.MsgID = id.MessageID()
	}
	p.log.Debug("Decoded %s message %d (%d bytes)", layer, m.MsgID, n)
	return Result{Status: types.StatusDone, Length: n}, nil
}

// DecodeContinue finishes an SAE decode after the security service has
// verified or decrypted the buffer in place
func (p *Pipeline) DecodeContinue(m *Message) (Result, error) {
	if err := checkMessage(m); err != nil {
		return Result{}, err
	}
	if m.Stack != types.StackSAE {
		return Result{}, ErrNoETSIContinuation
	}
	return p.decodeApplication(m, p.codecs.J2735, "J2735")
}

// Encode builds the frame for m into m.Buf. On success Length is the
// frame size in bytes, counting a trailing partial byte as whole.
func (p *Pipeline) Encode(m *Message) (Result, error) {
	if err := checkMessage(m); err != nil {
		return Result{}, err
	}

	var (
		res Result
		err error
	)
	switch m.Stack {
	case types.StackSAE:
		res, err = p.encodeSAE(m)
	case types.StackETSI:
		res, err = p.encodeETSI(m)
	default:
		return Result{}, fmt.Errorf("%w: %d", ErrUnknownStack, m.Stack)
	}
	if err == nil && res.Done() {
		p.dump("encode", m)
	}
	return res, err
}

func (p *Pipeline) encodeSAE(m *Message) (Result, error) {
	if p.codecs.J2735 == nil {
		return Result{}, fmt.Errorf("%w: J2735", ErrMissingCodec)
	}
	n, err := p.codecs.J2735.EncodeApplication(m.MsgID, m.App, m.Buf)
	if err != nil {
		return Result{}, externalError("J2735 encode", err)
	}
	m.PayloadLen = n

	if m.Security == nil {
		m.Security = ieee1609.NewUnsecured()
	}
	status, err := ieee1609.Encode(m.Buf, m.Security)
	if err != nil {
		return Result{}, err
	}
	if status == types.StatusNeedsExternalSecurity {
		p.log.Debug("Pausing for %s", m.Security.Content)
		return Result{Status: status, Length: m.Buf.ByteLength()}, nil
	}
	return p.encodeWSMP(m)
}

func (p *Pipeline) encodeWSMP(m *Message) (Result, error) {
	if p.codecs.WSMP == nil {
		return Result{}, fmt.Errorf("%w: WSMP", ErrMissingCodec)
	}
	if err := p.codecs.WSMP.EncodeHeader(m.WSMP, m.Buf); err != nil {
		return Result{}, externalError("WSMP encode", err)
	}
	return Result{Status: types.StatusDone, Length: m.Buf.ByteLength()}, nil
}

func (p *Pipeline) encodeETSI(m *Message) (Result, error) {
	var (
		codec ApplicationCodec
		layer string
	)
	switch types.ItsMessageID(m.MsgID) {
	case types.ItsMessageDENM:
		codec, layer = p.codecs.DENM, "DENM"
	case types.ItsMessageCAM:
		codec, layer = p.codecs.CAM, "CAM"
	default:
		return Result{}, fmt.Errorf("%w: ITS message id %d", types.ErrInvalidArgument, m.MsgID)
	}
	if codec == nil {
		return Result{}, fmt.Errorf("%w: %s", ErrMissingCodec, layer)
	}
	if m.App == nil {
		return Result{}, fmt.Errorf("%w: %s", ErrMissingApplication, layer)
	}

	n, err := codec.EncodeApplication(m.MsgID, m.App, m.Buf)
	if err != nil {
		return Result{}, externalError(layer+" encode", err)
	}
	m.PayloadLen = n

	if err := btp.Encode(m.Buf, &m.BTP); err != nil {
		return Result{}, err
	}
	return Result{Status: types.StatusDone, Length: m.Buf.ByteLength()}, nil
}

// EncodeContinue finishes an SAE encode after the security service has
// written the secured content into the buffer
func (p *Pipeline) EncodeContinue(m *Message) (Result, error) {
	if err := checkMessage(m); err != nil {
		return Result{}, err
	}
	if m.Stack != types.StackSAE {
		return Result{}, ErrNoETSIContinuation
	}
	res, err := p.encodeWSMP(m)
	if err == nil {
		p.dump("encode", m)
	}
	return res, err
}
