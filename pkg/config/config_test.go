package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"avaneesh/qcoder-go/pkg/btp"
	"avaneesh/qcoder-go/pkg/ieee1609"
	"avaneesh/qcoder-go/pkg/qcoder"
	"avaneesh/qcoder-go/pkg/types"
)

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Errorf("Default().Validate() = %v", err)
	}
}

func TestLoadFile(t *testing.T) {
	yamlText := `
log:
  level: debug
  verbose: true
link:
  stack: etsi
etsi:
  message: denm
  packet_type: A
  dest_port: 2002
  src_port: 4000
  station_id: 1234
channel:
  transport: quic
  address: 192.0.2.1:4751
  read_timeout: 2s
capture:
  path: ${QCODER_TEST_DIR}/frames.cbor
  compress: true
  store: ${QCODER_UNSET_VAR:-/tmp}/capture.db
`
	path := filepath.Join(t.TempDir(), "qcoder.yaml")
	if err := os.WriteFile(path, []byte(yamlText), 0o600); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	t.Setenv("QCODER_TEST_DIR", "/var/qcoder")

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}

	if cfg.LogLevel() != qcoder.LevelDebug || !cfg.Log.Verbose {
		t.Errorf("log = %+v", cfg.Log)
	}
	if s, _ := cfg.Stack(); s != types.StackETSI {
		t.Errorf("stack = %s, want ETSI", s)
	}
	if id, _ := cfg.ETSI.MessageID(); id != types.ItsMessageDENM {
		t.Errorf("message = %s, want DENM", id)
	}
	h, err := cfg.ETSI.BTPHeader()
	if err != nil {
		t.Fatalf("BTPHeader failed: %v", err)
	}
	if h.Type != btp.TypeA || h.DestPort != 2002 || h.SrcPort != 4000 {
		t.Errorf("BTP header = %+v", h)
	}
	if cfg.ETSI.StationID != 1234 {
		t.Errorf("station id = %d", cfg.ETSI.StationID)
	}

	read, write, reconnect := cfg.Channel.Timeouts()
	if read != 2*time.Second || write != 5*time.Second || reconnect != 2*time.Second {
		t.Errorf("timeouts = %v %v %v", read, write, reconnect)
	}
	if cfg.Capture.Path != "/var/qcoder/frames.cbor" {
		t.Errorf("capture.path = %q", cfg.Capture.Path)
	}
	if cfg.Capture.Store != "/tmp/capture.db" {
		t.Errorf("capture.store = %q", cfg.Capture.Store)
	}

	// untouched sections keep defaults
	if cfg.Buffer.Size != qcoder.DefaultBufferSize || cfg.SAE.MessageID != 20 {
		t.Errorf("defaults lost: buffer %+v sae %+v", cfg.Buffer, cfg.SAE)
	}
}

func TestParseEmpty(t *testing.T) {
	cfg, err := Parse(nil)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if cfg.Channel.Transport != "udp" {
		t.Errorf("transport = %q, want udp", cfg.Channel.Transport)
	}
}

func TestParseUnknownField(t *testing.T) {
	if _, err := Parse([]byte("channel:\n  transprot: udp\n")); err == nil {
		t.Error("unknown field accepted")
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv(EnvVar, "")
	if _, err := Load(); err == nil {
		t.Error("Load without env var succeeded")
	}

	path := filepath.Join(t.TempDir(), "qcoder.yaml")
	if err := os.WriteFile(path, []byte("log:\n  level: warn\n"), 0o600); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	t.Setenv(EnvVar, path)
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.LogLevel() != qcoder.LevelWarn {
		t.Errorf("level = %d, want warn", cfg.LogLevel())
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"buffer size", func(c *Config) { c.Buffer.Size = 0 }, "buffer.size"},
		{"headroom", func(c *Config) { c.Buffer.Headroom = 1 }, "buffer.headroom"},
		{"log level", func(c *Config) { c.Log.Level = "loud" }, "log.level"},
		{"stack", func(c *Config) { c.Link.Stack = "iso" }, "link.stack"},
		{"psid", func(c *Config) { c.SAE.PSID = 0xFFFFFFFF }, "sae.psid"},
		{"message id", func(c *Config) { c.SAE.MessageID = 40000 }, "sae.message_id"},
		{"content", func(c *Config) { c.SAE.Content = "sealed" }, "sae.content"},
		{"etsi message", func(c *Config) { c.ETSI.Message = "spat" }, "etsi.message"},
		{"packet type", func(c *Config) { c.ETSI.PacketType = "C" }, "etsi.packet_type"},
		{"transport", func(c *Config) { c.Channel.Transport = "sctp" }, "channel.transport"},
		{"address", func(c *Config) { c.Channel.Address = "" }, "channel.address"},
		{"duration", func(c *Config) { c.Channel.ReadTimeout = "soon" }, "channel.read_timeout"},
		{"negative duration", func(c *Config) { c.Channel.WriteTimeout = "-1s" }, "channel.write_timeout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("Validate succeeded")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestSecurityHeader(t *testing.T) {
	tests := []struct {
		content string
		want    ieee1609.ContentType
	}{
		{"unsecured", ieee1609.ContentUnsecured},
		{"", ieee1609.ContentUnsecured},
		{"Signed", ieee1609.ContentSigned},
		{"encrypted", ieee1609.ContentEncrypted},
	}
	for _, tt := range tests {
		c := SAEConfig{SecurityVersion: 3, Content: tt.content}
		h, err := c.SecurityHeader()
		if err != nil {
			t.Fatalf("SecurityHeader(%q) failed: %v", tt.content, err)
		}
		if h.Content != tt.want || h.ProtocolVersion != 3 || h.TagClass != ieee1609.TagContextSpecific {
			t.Errorf("SecurityHeader(%q) = %+v", tt.content, h)
		}
	}
}
