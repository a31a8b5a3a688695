package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"avaneesh/qcoder-go/pkg/channel"
	"avaneesh/qcoder-go/pkg/qcoder"
)

func runListen(args []string) error {
	var (
		g        globalFlags
		duration time.Duration
		quiet    bool
	)
	fs := newFlagSet("listen", "[flags]")
	g.add(fs)
	fs.DurationVarP(&duration, "duration", "d", 0, "stop after this long, 0 runs until interrupted")
	fs.BoolVarP(&quiet, "quiet", "q", false, "do not print received messages")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := g.load()
	if err != nil {
		return err
	}
	log := newLogger(cfg)

	recorder, closeCapture, err := openCapture(cfg, log)
	if err != nil {
		return err
	}
	defer closeCapture()

	phys, err := newPhysical(cfg, true)
	if err != nil {
		return err
	}
	var opts []channel.Option
	if recorder != nil {
		opts = append(opts, channel.WithObserver(recorder))
	}
	ch := channel.New("listen", phys, newPipeline(cfg, log), log, opts...)
	ch.Router().SetFallback(channel.HandlerFunc(func(m *qcoder.Message) error {
		if !quiet {
			fmt.Printf("%s %s\n", time.Now().Format("15:04:05.000"), describe(m))
		}
		return nil
	}))
	if err := ch.Open(); err != nil {
		phys.Close()
		return err
	}
	log.Info("listening on %s/%s", cfg.Channel.Transport, cfg.Channel.Address)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, duration)
		defer cancel()
	}
	<-ctx.Done()

	ch.Close()
	s := ch.Statistics().Snapshot()
	fmt.Printf("received %d, bad link %d, decode errors %d, paused %d\n",
		s.FramesRx, s.BadLinkFrames, s.DecodeErrors, s.Paused)
	if recorder != nil {
		written, inserted, failed := recorder.Stats()
		fmt.Printf("captured %d, stored %d, capture errors %d\n", written, inserted, failed)
	}
	return nil
}
