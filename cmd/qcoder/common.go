package main

import (
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/pflag"

	"avaneesh/qcoder-go/pkg/capture"
	"avaneesh/qcoder-go/pkg/channel"
	"avaneesh/qcoder-go/pkg/config"
	"avaneesh/qcoder-go/pkg/etsi"
	"avaneesh/qcoder-go/pkg/j2735"
	"avaneesh/qcoder-go/pkg/qcoder"
	"avaneesh/qcoder-go/pkg/types"
	"avaneesh/qcoder-go/pkg/wsmp"
)

// globalFlags are accepted by every command
type globalFlags struct {
	configPath string
	stack      string
	logLevel   string
	verbose    bool
}

func (g *globalFlags) add(fs *pflag.FlagSet) {
	fs.StringVarP(&g.configPath, "config", "c", "", "YAML config file (default: $"+config.EnvVar+", else built-in defaults)")
	fs.StringVar(&g.stack, "stack", "", "override link.stack (sae or etsi)")
	fs.StringVar(&g.logLevel, "log-level", "", "override log.level")
	fs.BoolVarP(&g.verbose, "verbose", "v", false, "dump buffers while encoding and decoding")
}

// load returns the validated configuration with flag overrides applied
func (g *globalFlags) load() (*config.Config, error) {
	path := g.configPath
	if path == "" {
		path = os.Getenv(config.EnvVar)
	}
	cfg := config.Default()
	if path != "" {
		var err error
		if cfg, err = config.LoadFile(path); err != nil {
			return nil, err
		}
	}
	if g.stack != "" {
		cfg.Link.Stack = g.stack
	}
	if g.logLevel != "" {
		cfg.Log.Level = g.logLevel
	}
	if g.verbose {
		cfg.Log.Verbose = true
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func newFlagSet(name, usage string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage:\n  qcoder %s %s\n\nFlags:\n", name, usage)
		fs.PrintDefaults()
	}
	return fs
}

func newLogger(cfg *config.Config) qcoder.Logger {
	return qcoder.NewLogger(os.Stderr, cfg.LogLevel())
}

func newPipeline(cfg *config.Config, log qcoder.Logger) *qcoder.Pipeline {
	return qcoder.New(qcoder.Config{Logger: log, Verbose: cfg.Log.Verbose}, qcoder.Codecs{
		WSMP:  wsmp.Codec{},
		J2735: j2735.Codec{},
		CAM:   etsi.CAMCodec{},
		DENM:  etsi.DENMCodec{},
	})
}

// newMessage builds an outbound message carrying payload as the J2735
// value or the ITS PDU body
func newMessage(cfg *config.Config, payload []byte) (*qcoder.Message, error) {
	stack, err := cfg.Stack()
	if err != nil {
		return nil, err
	}

	var m *qcoder.Message
	switch stack {
	case types.StackSAE:
		hdr := wsmp.NewHeader(cfg.SAE.PSID)
		m, err = qcoder.NewSAE(cfg.SAE.MessageID, &j2735.MessageFrame{ID: cfg.SAE.MessageID, Value: payload}, hdr)
		if err != nil {
			return nil, err
		}
		if m.Security, err = cfg.SAE.SecurityHeader(); err != nil {
			return nil, err
		}
	case types.StackETSI:
		id, err := cfg.ETSI.MessageID()
		if err != nil {
			return nil, err
		}
		hdr, err := cfg.ETSI.BTPHeader()
		if err != nil {
			return nil, err
		}
		app := &etsi.Message{
			Header: etsi.ItsPduHeader{ProtocolVersion: etsi.ProtocolVersion, MessageID: id, StationID: cfg.ETSI.StationID},
			Body:   payload,
		}
		if m, err = qcoder.NewETSI(id, app, hdr); err != nil {
			return nil, err
		}
	}

	if cfg.Buffer.Size != qcoder.DefaultBufferSize || cfg.Buffer.Headroom != qcoder.DefaultHeadroom {
		sized, err := qcoder.NewMessage(m.Stack, cfg.Buffer.Size, cfg.Buffer.Headroom)
		if err != nil {
			return nil, err
		}
		m.Buf = sized.Buf
	}
	return m, nil
}

// newPhysical opens the configured transport. listen selects server mode.
func newPhysical(cfg *config.Config, listen bool) (channel.PhysicalChannel, error) {
	read, write, reconnect := cfg.Channel.Timeouts()
	switch cfg.Channel.Transport {
	case "udp":
		return channel.NewUDPChannel(channel.UDPChannelConfig{
			Address:      cfg.Channel.Address,
			IsServer:     listen,
			ReadTimeout:  read,
			WriteTimeout: write,
		})
	case "tcp":
		return channel.NewTCPChannel(channel.TCPChannelConfig{
			Address:        cfg.Channel.Address,
			IsServer:       listen,
			ReconnectDelay: reconnect,
			ReadTimeout:    read,
			WriteTimeout:   write,
		})
	case "quic":
		return channel.NewQUICChannel(channel.QUICChannelConfig{
			Address:        cfg.Channel.Address,
			IsServer:       listen,
			ReconnectDelay: reconnect,
			ReadTimeout:    read,
			WriteTimeout:   write,
		})
	default:
		return nil, fmt.Errorf("unknown transport %q", cfg.Channel.Transport)
	}
}

// openCapture opens the configured capture sinks. The returned function
// closes them.
func openCapture(cfg *config.Config, log qcoder.Logger) (*capture.Recorder, func(), error) {
	if cfg.Capture.Path == "" && cfg.Capture.Store == "" {
		return nil, func() {}, nil
	}

	var (
		w   *capture.Writer
		s   *capture.Store
		err error
	)
	if cfg.Capture.Path != "" {
		if w, err = capture.Create(cfg.Capture.Path, cfg.Capture.Compress); err != nil {
			return nil, nil, err
		}
	}
	if cfg.Capture.Store != "" {
		if s, err = capture.OpenStore(cfg.Capture.Store); err != nil {
			if w != nil {
				w.Close()
			}
			return nil, nil, err
		}
	}

	closeAll := func() {
		if w != nil {
			if err := w.Close(); err != nil {
				log.Error("closing capture file: %v", err)
			}
		}
		if s != nil {
			s.Close()
		}
	}
	return capture.NewRecorder(w, s, log), closeAll, nil
}

// parseHex accepts hex with optional spaces, colons or a 0x prefix
func parseHex(s string) ([]byte, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "0x")
	s = strings.NewReplacer(" ", "", ":", "", "\n", "").Replace(s)
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid hex: %w", err)
	}
	return b, nil
}

// describe summarizes a decoded message for output
func describe(m *qcoder.Message) string {
	switch app := m.App.(type) {
	case *j2735.MessageFrame:
		return fmt.Sprintf("%s %s(%d) psid=%v security=%v value=%X",
			m.Stack, j2735.Name(app.ID), app.ID, m.WSMP, m.Security, app.Value)
	case *etsi.Message:
		return fmt.Sprintf("%s %s station=%d %s body=%X",
			m.Stack, app.Header.MessageID, app.Header.StationID, m.BTP, app.Body)
	default:
		return m.String()
	}
}
