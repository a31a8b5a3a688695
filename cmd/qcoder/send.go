package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"avaneesh/qcoder-go/pkg/channel"
)

func runSend(args []string) error {
	var (
		g        globalFlags
		payload  string
		count    int
		interval time.Duration
	)
	fs := newFlagSet("send", "[flags]")
	g.add(fs)
	fs.StringVarP(&payload, "payload", "p", "", "application payload as hex")
	fs.IntVarP(&count, "count", "n", 1, "number of messages to send, 0 sends until interrupted")
	fs.DurationVarP(&interval, "interval", "i", 100*time.Millisecond, "delay between messages")
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
	recorder, closeCapture, err := openCapture(cfg, log)
	if err != nil {
		return err
	}
	defer closeCapture()

	phys, err := newPhysical(cfg, false)
	if err != nil {
		return err
	}
	var opts []channel.Option
	if recorder != nil {
		opts = append(opts, channel.WithObserver(recorder))
	}
	ch := channel.New("send", phys, newPipeline(cfg, log), log, opts...)
	if err := ch.Open(); err != nil {
		phys.Close()
		return err
	}
	defer ch.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	sent := 0
	for count == 0 || sent < count {
		m, err := newMessage(cfg, data)
		if err != nil {
			return err
		}
		n, err := ch.Send(ctx, m)
		m.Release()
		if err != nil {
			return fmt.Errorf("send %d: %w", sent, err)
		}
		sent++
		log.Info("sent %d bytes to %s", n, cfg.Channel.Address)

		if count != 0 && sent == count {
			break
		}
		select {
		case <-ctx.Done():
			fmt.Printf("sent %d messages\n", sent)
			return nil
		case <-time.After(interval):
		}
	}
	fmt.Printf("sent %d messages\n", sent)
	return nil
}
