package main

import (
	"fmt"

	"avaneesh/qcoder-go/pkg/config"
	"avaneesh/qcoder-go/pkg/link"
	"avaneesh/qcoder-go/pkg/qcoder"
	"avaneesh/qcoder-go/pkg/types"
)

func runDecode(args []string) error {
	var (
		g        globalFlags
		withLink bool
		btpType  string
	)
	fs := newFlagSet("decode", "[flags] HEX...")
	g.add(fs)
	fs.BoolVar(&withLink, "link", true, "frames start with the PC5 link header; otherwise --stack selects the stack")
	fs.StringVar(&btpType, "btp", "", "BTP packet type (A or B) for ETSI frames without link header, default etsi.packet_type")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return fmt.Errorf("no frames given")
	}

	cfg, err := g.load()
	if err != nil {
		return err
	}
	if btpType != "" {
		cfg.ETSI.PacketType = btpType
	}
	log := newLogger(cfg)
	p := newPipeline(cfg, log)

	failed := 0
	for i, arg := range fs.Args() {
		raw, err := parseHex(arg)
		if err != nil {
			return fmt.Errorf("frame %d: %w", i, err)
		}
		m, res, err := decodeFrame(cfg, p, raw, withLink)
		if err != nil {
			failed++
			fmt.Printf("%d: error: %v\n", i, err)
			continue
		}
		if res.NeedsExternalSecurity() {
			fmt.Printf("%d: %s %s, %d secured bytes not decoded\n", i, m.Stack, m.Security, res.Length)
		} else {
			fmt.Printf("%d: %s\n", i, describe(m))
		}
		m.Release()
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d frames failed to decode", failed, fs.NArg())
	}
	return nil
}

// decodeFrame runs raw through the link layer and the pipeline. Without
// a link header the configured stack and BTP packet type are assumed.
func decodeFrame(cfg *config.Config, p *qcoder.Pipeline, raw []byte, withLink bool) (*qcoder.Message, qcoder.Result, error) {
	size := cfg.Buffer.Size
	if need := len(raw) + 1; need > size {
		size = need
	}
	m, err := qcoder.NewMessage(types.StackSAE, size, 0)
	if err != nil {
		return nil, qcoder.Result{}, err
	}
	if err := m.Load(raw); err != nil {
		return nil, qcoder.Result{}, err
	}

	if withLink {
		f, err := link.Decode(m.Buf)
		if err != nil {
			return nil, qcoder.Result{}, err
		}
		m.Stack, _ = f.Stack()
		m.Link = f
		m.BTP.Type = f.BTPType()
	} else {
		if m.Stack, err = cfg.Stack(); err != nil {
			return nil, qcoder.Result{}, err
		}
		if m.Stack == types.StackETSI {
			hdr, err := cfg.ETSI.BTPHeader()
			if err != nil {
				return nil, qcoder.Result{}, err
			}
			m.BTP.Type = hdr.Type
		}
	}

	res, err := p.Decode(m)
	if err != nil {
		m.Release()
		return nil, qcoder.Result{}, err
	}
	return m, res, nil
}
