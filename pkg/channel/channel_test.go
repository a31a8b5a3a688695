package channel

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"avaneesh/qcoder-go/pkg/asn1len"
	"avaneesh/qcoder-go/pkg/btp"
	"avaneesh/qcoder-go/pkg/etsi"
	"avaneesh/qcoder-go/pkg/ieee1609"
	"avaneesh/qcoder-go/pkg/j2735"
	"avaneesh/qcoder-go/pkg/qcoder"
	"avaneesh/qcoder-go/pkg/types"
	"avaneesh/qcoder-go/pkg/wsmp"
)

type received struct {
	stack   types.Stack
	msgID   int
	payload []byte
}

func newPipeline() *qcoder.Pipeline {
	return qcoder.New(qcoder.Config{}, qcoder.Codecs{
		WSMP:  wsmp.Codec{},
		J2735: j2735.Codec{},
		CAM:   etsi.CAMCodec{},
		DENM:  etsi.DENMCodec{},
	})
}

// collect copies every routed message into a channel
func collect(c *Channel) <-chan received {
	out := make(chan received, 16)
	c.Router().SetFallback(HandlerFunc(func(m *qcoder.Message) error {
		r := received{stack: m.Stack, msgID: m.MsgID}
		switch v := m.App.(type) {
		case *j2735.MessageFrame:
			r.payload = append([]byte(nil), v.Value...)
		case *etsi.Message:
			r.payload = append([]byte(nil), v.Body...)
		}
		out <- r
		return nil
	}))
	return out
}

func await(t *testing.T, ch <-chan received) received {
	t.Helper()
	select {
	case r := <-ch:
		return r
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for message")
		return received{}
	}
}

func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

// udpPair opens a server and a client Channel over loopback UDP
func udpPair(t *testing.T, serverOpts, clientOpts []Option) (*Channel, *Channel) {
	t.Helper()
	serverPhys, err := NewUDPChannel(UDPChannelConfig{Address: "127.0.0.1:0", IsServer: true, ReadTimeout: 50 * time.Millisecond})
	if err != nil {
		t.Fatalf("NewUDPChannel server failed: %v", err)
	}
	clientPhys, err := NewUDPChannel(UDPChannelConfig{Address: serverPhys.LocalAddr().String(), ReadTimeout: 50 * time.Millisecond})
	if err != nil {
		serverPhys.Close()
		t.Fatalf("NewUDPChannel client failed: %v", err)
	}

	server := New("server", serverPhys, newPipeline(), nil, serverOpts...)
	client := New("client", clientPhys, newPipeline(), nil, clientOpts...)
	for _, c := range []*Channel{server, client} {
		if err := c.Open(); err != nil {
			t.Fatalf("Open failed: %v", err)
		}
		t.Cleanup(func() { c.Close() })
	}
	return server, client
}

func newBSM(t *testing.T, payload []byte) *qcoder.Message {
	t.Helper()
	m, err := qcoder.NewSAE(j2735.BasicSafetyMessage, &j2735.MessageFrame{Value: payload}, wsmp.NewHeader(wsmp.PSIDBasicSafety))
	if err != nil {
		t.Fatalf("NewSAE failed: %v", err)
	}
	return m
}

func TestChannelUDPSAE(t *testing.T) {
	server, client := udpPair(t, nil, nil)
	inbox := collect(server)

	payload := []byte{0x11, 0x22, 0x33}
	m := newBSM(t, payload)
	defer m.Release()

	n, err := client.Send(context.Background(), m)
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	// family + WSMP + 1609.2 + MessageFrame
	if n != 1+4+3+6 {
		t.Errorf("Send wrote %d bytes, want 14", n)
	}

	got := await(t, inbox)
	if got.stack != types.StackSAE || got.msgID != j2735.BasicSafetyMessage {
		t.Errorf("received %s/%d, want SAE/%d", got.stack, got.msgID, j2735.BasicSafetyMessage)
	}
	if !bytes.Equal(got.payload, payload) {
		t.Errorf("payload = % X, want % X", got.payload, payload)
	}

	eventually(t, "rx statistics", func() bool { return server.Statistics().GetFramesRx() == 1 })
	if client.Statistics().GetFramesTx() != 1 {
		t.Errorf("client FramesTx = %d, want 1", client.Statistics().GetFramesTx())
	}
}

func TestChannelUDPETSI(t *testing.T) {
	server, client := udpPair(t, nil, nil)

	var mu sync.Mutex
	var ports []uint16
	denms := make(chan received, 4)
	err := server.Handle(types.StackETSI, int(types.ItsMessageDENM), HandlerFunc(func(m *qcoder.Message) error {
		mu.Lock()
		ports = append(ports, m.BTP.DestPort)
		mu.Unlock()
		denms <- received{stack: m.Stack, msgID: m.MsgID, payload: append([]byte(nil), m.App.(*etsi.Message).Body...)}
		return nil
	}))
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}

	body := []byte{0xDE, 0xAD}
	m, err := qcoder.NewETSI(types.ItsMessageDENM, etsi.NewDENM(42, body), btp.Header{Type: btp.TypeA, DestPort: btp.PortDENM, SrcPort: 4000})
	if err != nil {
		t.Fatalf("NewETSI failed: %v", err)
	}
	defer m.Release()

	if _, err := client.Send(context.Background(), m); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	got := await(t, denms)
	if got.msgID != int(types.ItsMessageDENM) || !bytes.Equal(got.payload, body) {
		t.Errorf("received id %d body % X", got.msgID, got.payload)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(ports) != 1 || ports[0] != btp.PortDENM {
		t.Errorf("BTP ports = %v, want [%d]", ports, btp.PortDENM)
	}
}

// passthroughSecurity wraps payloads in a signed-content header without a
// signature and accepts anything on verify
type passthroughSecurity struct {
	secured  int
	verified int
	mu       sync.Mutex
}

func (s *passthroughSecurity) Secure(m *qcoder.Message) error {
	s.mu.Lock()
	s.secured++
	s.mu.Unlock()
	if err := asn1len.PrependCER(m.Buf, m.Buf.ByteLength()); err != nil {
		return err
	}
	tag := uint32(ieee1609.TagContextSpecific)<<6 | uint32(ieee1609.ContentSigned)
	if err := m.Buf.PrependBits(tag, 8); err != nil {
		return err
	}
	return m.Buf.PrependBits(ieee1609.ProtocolVersion, 8)
}

func (s *passthroughSecurity) Verify(m *qcoder.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.verified++
	return nil
}

func signedBSM(t *testing.T, payload []byte) *qcoder.Message {
	m := newBSM(t, payload)
	m.Security = &ieee1609.Header{ProtocolVersion: ieee1609.ProtocolVersion, TagClass: ieee1609.TagContextSpecific, Content: ieee1609.ContentSigned}
	return m
}

func TestChannelSecured(t *testing.T) {
	sec := &passthroughSecurity{}
	server, client := udpPair(t, []Option{WithSecurity(sec)}, []Option{WithSecurity(sec)})
	inbox := collect(server)

	payload := []byte{0x01, 0x02}
	m := signedBSM(t, payload)
	defer m.Release()

	if _, err := client.Send(context.Background(), m); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	got := await(t, inbox)
	if !bytes.Equal(got.payload, payload) {
		t.Errorf("payload = % X, want % X", got.payload, payload)
	}

	sec.mu.Lock()
	defer sec.mu.Unlock()
	if sec.secured != 1 || sec.verified != 1 {
		t.Errorf("secured %d verified %d, want 1 and 1", sec.secured, sec.verified)
	}
}

func TestChannelPausedWithoutSecurity(t *testing.T) {
	sec := &passthroughSecurity{}
	server, client := udpPair(t, nil, []Option{WithSecurity(sec)})
	collect(server)

	m := signedBSM(t, []byte{0x01})
	defer m.Release()
	if _, err := client.Send(context.Background(), m); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	eventually(t, "paused frame", func() bool { return server.Statistics().GetPaused() == 1 })
	if server.Statistics().GetFramesRx() != 0 {
		t.Errorf("FramesRx = %d, want 0", server.Statistics().GetFramesRx())
	}
}

func TestChannelSendErrors(t *testing.T) {
	_, client := udpPair(t, nil, nil)

	t.Run("signed without security", func(t *testing.T) {
		m := signedBSM(t, []byte{0x01})
		if _, err := client.Send(context.Background(), m); !errors.Is(err, ErrNoSecurity) {
			t.Errorf("error = %v, want ErrNoSecurity", err)
		}
	})

	t.Run("ETSI without BTP type", func(t *testing.T) {
		m, err := qcoder.NewETSI(types.ItsMessageCAM, etsi.NewCAM(1, nil), btp.Header{})
		if err != nil {
			t.Fatalf("NewETSI failed: %v", err)
		}
		if _, err := client.Send(context.Background(), m); !errors.Is(err, types.ErrInvalidArgument) {
			t.Errorf("error = %v, want ErrInvalidArgument", err)
		}
	})

	if got := client.Statistics().GetEncodeErrors(); got != 2 {
		t.Errorf("EncodeErrors = %d, want 2", got)
	}
}

func TestChannelBadFrames(t *testing.T) {
	server, _ := udpPair(t, nil, nil)
	collect(server)

	raw, err := NewUDPChannel(UDPChannelConfig{Address: server.physicalChannel.(*UDPChannel).LocalAddr().String()})
	if err != nil {
		t.Fatalf("NewUDPChannel failed: %v", err)
	}
	defer raw.Close()

	frames := [][]byte{
		{0x02, 0x00},                   // ISO family
		{0x03, 0x03, 0x00},             // IPv6 next header
		{0x01, 0x04, 0x00, 0x20, 0x00}, // WSMP version 4
	}
	for _, f := range frames {
		if err := raw.Write(context.Background(), f); err != nil {
			t.Fatalf("Write failed: %v", err)
		}
	}

	stats := server.Statistics()
	eventually(t, "bad frames", func() bool {
		return stats.GetBadLinkFrames() == 2 && stats.GetDecodeErrors() == 1
	})
}

type frameLog struct {
	mu      sync.Mutex
	entries []Direction
}

func (l *frameLog) ObserveFrame(dir Direction, raw []byte, m *qcoder.Message, res qcoder.Result) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, dir)
}

func (l *frameLog) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

func TestChannelObserverAndUnrouted(t *testing.T) {
	rx, tx := &frameLog{}, &frameLog{}
	server, client := udpPair(t, []Option{WithObserver(rx)}, []Option{WithObserver(tx)})

	m := newBSM(t, []byte{0x07})
	defer m.Release()
	if _, err := client.Send(context.Background(), m); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	eventually(t, "unrouted message", func() bool { return server.Statistics().GetUnrouted() == 1 })
	if rx.count() != 1 || rx.entries[0] != Inbound {
		t.Errorf("server observed %v, want [rx]", rx.entries)
	}
	if tx.count() != 1 || tx.entries[0] != Outbound {
		t.Errorf("client observed %v, want [tx]", tx.entries)
	}
}

func TestChannelTCP(t *testing.T) {
	serverPhys, err := NewTCPChannel(TCPChannelConfig{Address: "127.0.0.1:0", IsServer: true})
	if err != nil {
		t.Fatalf("NewTCPChannel server failed: %v", err)
	}
	clientPhys, err := NewTCPChannel(TCPChannelConfig{Address: serverPhys.ListenAddr().String()})
	if err != nil {
		serverPhys.Close()
		t.Fatalf("NewTCPChannel client failed: %v", err)
	}

	server := New("server", serverPhys, newPipeline(), nil)
	client := New("client", clientPhys, newPipeline(), nil)
	for _, c := range []*Channel{server, client} {
		if err := c.Open(); err != nil {
			t.Fatalf("Open failed: %v", err)
		}
		defer c.Close()
	}
	inbox := collect(server)

	payloads := [][]byte{{0x01}, bytes.Repeat([]byte{0x02}, 400)}
	for _, p := range payloads {
		m, err := qcoder.NewETSI(types.ItsMessageCAM, etsi.NewCAM(7, p), btp.Header{Type: btp.TypeB, DestPort: btp.PortCAM})
		if err != nil {
			t.Fatalf("NewETSI failed: %v", err)
		}
		if _, err := client.Send(context.Background(), m); err != nil {
			t.Fatalf("Send failed: %v", err)
		}
		m.Release()
	}

	for _, want := range payloads {
		got := await(t, inbox)
		if got.stack != types.StackETSI || got.msgID != int(types.ItsMessageCAM) {
			t.Errorf("received %s/%d", got.stack, got.msgID)
		}
		if !bytes.Equal(got.payload, want) {
			t.Errorf("payload length %d, want %d", len(got.payload), len(want))
		}
	}
}

func TestChannelQUIC(t *testing.T) {
	serverPhys, err := NewQUICChannel(QUICChannelConfig{Address: "127.0.0.1:0", IsServer: true})
	if err != nil {
		t.Fatalf("NewQUICChannel server failed: %v", err)
	}
	clientPhys, err := NewQUICChannel(QUICChannelConfig{Address: serverPhys.ListenAddr().String()})
	if err != nil {
		serverPhys.Close()
		t.Fatalf("NewQUICChannel client failed: %v", err)
	}

	server := New("server", serverPhys, newPipeline(), nil)
	client := New("client", clientPhys, newPipeline(), nil)
	for _, c := range []*Channel{server, client} {
		if err := c.Open(); err != nil {
			t.Fatalf("Open failed: %v", err)
		}
		defer c.Close()
	}
	inbox := collect(server)

	payload := []byte{0xDE, 0xAD, 0xBE, 0xEF}
	m := newBSM(t, payload)
	defer m.Release()
	if _, err := client.Send(context.Background(), m); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	got := await(t, inbox)
	if got.stack != types.StackSAE || got.msgID != j2735.BasicSafetyMessage {
		t.Errorf("received %s/%d, want SAE/%d", got.stack, got.msgID, j2735.BasicSafetyMessage)
	}
	if !bytes.Equal(got.payload, payload) {
		t.Errorf("payload = % X, want % X", got.payload, payload)
	}
	if n := client.Statistics().GetFramesTx(); n != 1 {
		t.Errorf("FramesTx = %d, want 1", n)
	}
}

func TestChannelLifecycle(t *testing.T) {
	phys, err := NewUDPChannel(UDPChannelConfig{Address: "127.0.0.1:0", IsServer: true, ReadTimeout: 20 * time.Millisecond})
	if err != nil {
		t.Fatalf("NewUDPChannel failed: %v", err)
	}
	c := New("lifecycle", phys, newPipeline(), nil)

	if err := c.Write(context.Background(), []byte{0x01}); !errors.Is(err, ErrChannelClosed) {
		t.Errorf("Write before Open error = %v, want ErrChannelClosed", err)
	}
	if err := c.Open(); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if err := c.Open(); !errors.Is(err, ErrChannelOpen) {
		t.Errorf("second Open error = %v, want ErrChannelOpen", err)
	}
	if c.State() != ChannelStateOpen {
		t.Errorf("State = %s, want Open", c.State())
	}
	if err := c.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Errorf("second Close failed: %v", err)
	}
	if c.State() != ChannelStateClosed {
		t.Errorf("State = %s, want Closed", c.State())
	}
	if err := c.Open(); !errors.Is(err, ErrChannelClosed) {
		t.Errorf("Open after Close error = %v, want ErrChannelClosed", err)
	}
}
