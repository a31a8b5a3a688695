package main

import (
	"encoding/hex"
	"fmt"

	"avaneesh/qcoder-go/pkg/link"
)

func runEncode(args []string) error {
	var (
		g        globalFlags
		payload  string
		withLink bool
	)
	fs := newFlagSet("encode", "[flags]")
	g.add(fs)
	fs.StringVarP(&payload, "payload", "p", "", "application payload as hex")
	fs.BoolVar(&withLink, "link", true, "prepend the PC5 link header")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := g.load()
	if err != nil {
		return err
	}
	data, err := parseHex(payload)
	if err != nil {
		return err
	}

	log := newLogger(cfg)
	p := newPipeline(cfg, log)

	m, err := newMessage(cfg, data)
	if err != nil {
		return err
	}
	defer m.Release()

	res, err := p.Encode(m)
	if err != nil {
		return err
	}
	if res.NeedsExternalSecurity() {
		return fmt.Errorf("%s content needs a security service; encode the payload as unsecured or secure it externally", m.Security.Content)
	}

	if withLink {
		f, err := link.NewFrame(m.Stack, m.BTP.Type)
		if err != nil {
			return err
		}
		if err := link.Encode(m.Buf, f); err != nil {
			return err
		}
	}
	fmt.Println(hex.EncodeToString(m.Bytes()))
	return nil
}
