// Package config loads qcoder configuration from a single YAML file.
//
// The file is named by the --config flag or the QCODER_CONFIG environment
// variable. Values missing from the file keep their defaults.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"avaneesh/qcoder-go/pkg/btp"
	"avaneesh/qcoder-go/pkg/ieee1609"
	"avaneesh/qcoder-go/pkg/link"
	"avaneesh/qcoder-go/pkg/qcoder"
	"avaneesh/qcoder-go/pkg/types"
	"avaneesh/qcoder-go/pkg/wsmp"
)

// EnvVar names the environment variable holding the config path
const EnvVar = "QCODER_CONFIG"

// Config is the complete qcoder configuration
type Config struct {
	Buffer  BufferConfig  `yaml:"buffer"`
	Log     LogConfig     `yaml:"log"`
	Link    LinkConfig    `yaml:"link"`
	SAE     SAEConfig     `yaml:"sae"`
	ETSI    ETSIConfig    `yaml:"etsi"`
	Channel ChannelConfig `yaml:"channel"`
	Capture CaptureConfig `yaml:"capture"`
}

// BufferConfig sizes message buffers
type BufferConfig struct {
	Size     int `yaml:"size"`
	Headroom int `yaml:"headroom"`
}

// LogConfig configures diagnostics
type LogConfig struct {
	// Level is one of debug, info, warn, error
	Level string `yaml:"level"`

	// Verbose dumps every encoded and decoded buffer at debug level
	Verbose bool `yaml:"verbose"`
}

// LinkConfig selects the stack used for outbound messages
type LinkConfig struct {
	// Stack is sae or etsi
	Stack string `yaml:"stack"`
}

// SAEConfig configures outbound SAE messages
type SAEConfig struct {
	PSID      uint32 `yaml:"psid"`
	MessageID int    `yaml:"message_id"`

	// Security header fields
	SecurityVersion uint8 `yaml:"security_version"`
	// Content is unsecured, signed or encrypted
	Content string `yaml:"content"`
}

// ETSIConfig configures outbound ETSI messages
type ETSIConfig struct {
	// Message is cam or denm
	Message string `yaml:"message"`
	// PacketType is A or B
	PacketType   string `yaml:"packet_type"`
	DestPort     uint16 `yaml:"dest_port"`
	SrcPort      uint16 `yaml:"src_port"`
	DestPortInfo uint16 `yaml:"dest_port_info"`
	StationID    uint32 `yaml:"station_id"`
}

// ChannelConfig configures the transport
type ChannelConfig struct {
	// Transport is udp, tcp or quic
	Transport string `yaml:"transport"`
	Address   string `yaml:"address"`

	// Durations use time.ParseDuration syntax
	ReadTimeout    string `yaml:"read_timeout"`
	WriteTimeout   string `yaml:"write_timeout"`
	ReconnectDelay string `yaml:"reconnect_delay"`
}

// CaptureConfig configures frame capture. Empty paths disable the sink.
type CaptureConfig struct {
	Path     string `yaml:"path"`
	Compress bool   `yaml:"compress"`
	Store    string `yaml:"store"`
}

// Default returns a configuration that sends unsecured BSMs over UDP
func Default() *Config {
	return &Config{
		Buffer: BufferConfig{
			Size:     qcoder.DefaultBufferSize,
			Headroom: qcoder.DefaultHeadroom,
		},
		Log: LogConfig{
			Level: "info",
		},
		Link: LinkConfig{
			Stack: "sae",
		},
		SAE: SAEConfig{
			PSID:            wsmp.PSIDBasicSafety,
			MessageID:       20,
			SecurityVersion: ieee1609.ProtocolVersion,
			Content:         "unsecured",
		},
		ETSI: ETSIConfig{
			Message:    "cam",
			PacketType: "B",
			DestPort:   btp.PortCAM,
		},
		Channel: ChannelConfig{
			Transport:      "udp",
			Address:        "127.0.0.1:4750",
			ReadTimeout:    "500ms",
			WriteTimeout:   "5s",
			ReconnectDelay: "2s",
		},
	}
}

// Load loads the file named by QCODER_CONFIG
func Load() (*Config, error) {
	path := os.Getenv(EnvVar)
	if path == "" {
		return nil, fmt.Errorf("%s environment variable not set; "+
			"set it to the path of your qcoder.yaml or use --config", EnvVar)
	}
	return LoadFile(path)
}

// LoadFile loads configuration from path over the defaults
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes YAML over the defaults
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.expandVariables()
	return cfg, nil
}

func (c *Config) expandVariables() {
	c.Capture.Path = expandVars(c.Capture.Path)
	c.Capture.Store = expandVars(c.Capture.Store)
}

// expandVars expands ${VAR} and ${VAR:-default} from the environment
var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func expandVars(s string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if value := os.Getenv(parts[1]); value != "" {
			return value
		}
		return parts[2]
	})
}

// Validate checks the configuration for errors
func (c *Config) Validate() error {
	var errs []error

	if c.Buffer.Size <= 0 {
		errs = append(errs, fmt.Errorf("buffer.size must be positive"))
	}
	if c.Buffer.Headroom < link.MaxHeaderSize || c.Buffer.Headroom >= c.Buffer.Size {
		errs = append(errs, fmt.Errorf("buffer.headroom must be in [%d, buffer.size)", link.MaxHeaderSize))
	}
	if _, err := qcoder.ParseLogLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	if _, err := c.Stack(); err != nil {
		errs = append(errs, err)
	}

	if _, err := wsmp.PSIDSize(c.SAE.PSID); err != nil {
		errs = append(errs, fmt.Errorf("sae.psid: %w", err))
	}
	if c.SAE.MessageID < 0 || c.SAE.MessageID > 32767 {
		errs = append(errs, fmt.Errorf("sae.message_id %d out of range", c.SAE.MessageID))
	}
	if _, err := c.SAE.SecurityHeader(); err != nil {
		errs = append(errs, err)
	}

	if _, err := c.ETSI.MessageID(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.ETSI.BTPHeader(); err != nil {
		errs = append(errs, err)
	}

	switch c.Channel.Transport {
	case "udp", "tcp", "quic":
	default:
		errs = append(errs, fmt.Errorf("channel.transport must be udp, tcp or quic, got %q", c.Channel.Transport))
	}
	if c.Channel.Address == "" {
		errs = append(errs, fmt.Errorf("channel.address is required"))
	}
	for name, v := range map[string]string{
		"read_timeout":    c.Channel.ReadTimeout,
		"write_timeout":   c.Channel.WriteTimeout,
		"reconnect_delay": c.Channel.ReconnectDelay,
	} {
		if _, err := parseDuration(v); err != nil {
			errs = append(errs, fmt.Errorf("channel.%s: %w", name, err))
		}
	}

	return errors.Join(errs...)
}

// LogLevel returns the configured level, info if it does not parse
func (c *Config) LogLevel() qcoder.LogLevel {
	l, _ := qcoder.ParseLogLevel(c.Log.Level)
	return l
}

// Stack returns the stack for outbound messages
func (c *Config) Stack() (types.Stack, error) {
	s, ok := types.ParseStack(c.Link.Stack)
	if !ok {
		return 0, fmt.Errorf("link.stack must be sae or etsi, got %q", c.Link.Stack)
	}
	return s, nil
}

// SecurityHeader returns the 1609.2 header for outbound SAE messages
func (c *SAEConfig) SecurityHeader() (*ieee1609.Header, error) {
	h := ieee1609.NewUnsecured()
	h.ProtocolVersion = c.SecurityVersion
	switch strings.ToLower(c.Content) {
	case "", "unsecured":
		h.Content = ieee1609.ContentUnsecured
	case "signed":
		h.Content = ieee1609.ContentSigned
	case "encrypted":
		h.Content = ieee1609.ContentEncrypted
	default:
		return nil, fmt.Errorf("sae.content must be unsecured, signed or encrypted, got %q", c.Content)
	}
	return h, nil
}

// MessageID returns the ITS message id for outbound ETSI messages
func (c *ETSIConfig) MessageID() (types.ItsMessageID, error) {
	switch strings.ToLower(c.Message) {
	case "cam":
		return types.ItsMessageCAM, nil
	case "denm":
		return types.ItsMessageDENM, nil
	default:
		return 0, fmt.Errorf("etsi.message must be cam or denm, got %q", c.Message)
	}
}

// BTPHeader returns the BTP header for outbound ETSI messages
func (c *ETSIConfig) BTPHeader() (btp.Header, error) {
	h := btp.Header{DestPort: c.DestPort, SrcPort: c.SrcPort, DestPortInfo: c.DestPortInfo}
	switch strings.ToUpper(c.PacketType) {
	case "A":
		h.Type = btp.TypeA
	case "B":
		h.Type = btp.TypeB
	default:
		return btp.Header{}, fmt.Errorf("etsi.packet_type must be A or B, got %q", c.PacketType)
	}
	return h, nil
}

// Timeouts returns the parsed channel durations. Invalid values yield
// zero, which selects the transport default.
func (c *ChannelConfig) Timeouts() (read, write, reconnect time.Duration) {
	read, _ = parseDuration(c.ReadTimeout)
	write, _ = parseDuration(c.WriteTimeout)
	reconnect, _ = parseDuration(c.ReconnectDelay)
	return read, write, reconnect
}

func parseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("negative duration %s", s)
	}
	return d, nil
}
