package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"avaneesh/qcoder-go/pkg/capture"
	"avaneesh/qcoder-go/pkg/channel"
)

func runReplay(args []string) error {
	var (
		g         globalFlags
		storePath string
		send      bool
		interval  time.Duration
	)
	fs := newFlagSet("replay", "[flags] FILE")
	g.add(fs)
	fs.StringVar(&storePath, "store", "", "import the records into this SQLite store")
	fs.BoolVar(&send, "send", false, "retransmit the frames over the configured channel")
	fs.DurationVarP(&interval, "interval", "i", 0, "delay between retransmitted frames")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return fmt.Errorf("expected one capture file")
	}

	cfg, err := g.load()
	if err != nil {
		return err
	}
	log := newLogger(cfg)
	p := newPipeline(cfg, log)

	r, err := capture.Open(fs.Arg(0))
	if err != nil {
		return err
	}
	defer r.Close()

	var store *capture.Store
	if storePath != "" {
		if store, err = capture.OpenStore(storePath); err != nil {
			return err
		}
		defer store.Close()
	}

	var ch *channel.Channel
	if send {
		phys, err := newPhysical(cfg, false)
		if err != nil {
			return err
		}
		ch = channel.New("replay", phys, p, log)
		if err := ch.Open(); err != nil {
			phys.Close()
			return err
		}
		defer ch.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var total, imported, sent int
	for {
		rec, err := r.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("record %d: %w", total, err)
		}
		total++

		m, res, err := decodeFrame(cfg, p, rec.Frame, true)
		switch {
		case err != nil:
			fmt.Printf("%s %s: error: %v\n", rec.Time.ToTime().Format(time.RFC3339Nano), channel.Direction(rec.Direction), err)
		case res.NeedsExternalSecurity():
			fmt.Printf("%s %s: %s secured, %d bytes\n", rec.Time.ToTime().Format(time.RFC3339Nano), channel.Direction(rec.Direction), m.Stack, res.Length)
			m.Release()
		default:
			fmt.Printf("%s %s: %s\n", rec.Time.ToTime().Format(time.RFC3339Nano), channel.Direction(rec.Direction), describe(m))
			m.Release()
		}

		if store != nil {
			ok, err := store.Put(rec)
			if err != nil {
				return err
			}
			if ok {
				imported++
			}
		}
		if ch != nil {
			if err := ch.Write(ctx, rec.Frame); err != nil {
				return fmt.Errorf("retransmit record %d: %w", total-1, err)
			}
			sent++
			if interval > 0 {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(interval):
				}
			}
		}
	}

	fmt.Printf("%d records", total)
	if store != nil {
		fmt.Printf(", %d imported", imported)
	}
	if ch != nil {
		fmt.Printf(", %d retransmitted", sent)
	}
	fmt.Println()
	return nil
}
