package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/chime-audio/chime/internal/config"
	"github.com/chime-audio/chime/internal/engine"
	"github.com/chime-audio/chime/internal/errmsg"
	"github.com/chime-audio/chime/internal/event"
	"github.com/chime-audio/chime/internal/loader"
	"github.com/chime-audio/chime/internal/logging"
	"github.com/chime-audio/chime/internal/sound"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	var (
		volume    = flag.Float64("volume", 1, "playback volume [0,1]")
		pan       = flag.Float64("pan", 0, "stereo pan [-1,1]")
		loop      = flag.Int("loop", 0, "extra loop passes (-1 loops forever)")
		delay     = flag.Duration("delay", 0, "wait before playback starts")
		offset    = flag.Duration("offset", 0, "playhead to start from")
		interrupt = flag.String("interrupt", "", "interrupt policy: none, any, early, late")
	)
	flag.Parse()
	if flag.NArg() == 0 {
		return errors.New("usage: chime [flags] <file|url> ...")
	}

	set := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })

	cfg, err := config.Load()
	if err != nil {
		return errors.New(errmsg.Format(errmsg.OpConfigLoad, err))
	}
	if !set["volume"] {
		*volume = cfg.DefaultVolume
	}
	if !set["interrupt"] {
		*interrupt = cfg.Interrupt
	}

	log, err := logging.New(cfg.LogLevel)
	if err != nil {
		return errors.New(errmsg.Format(errmsg.OpInitialize, err))
	}
	defer log.Sync() //nolint:errcheck // stderr sync failure is harmless

	policy, err := sound.ParseInterrupt(*interrupt)
	if err != nil {
		return err
	}

	spk := engine.NewSpeaker(log)
	ld := loader.New(log)
	mgr := sound.NewManager(spk, ld, sound.ManagerOptions{
		MaxChannels: cfg.MaxChannels,
		Log:         log,
	})

	ld.On(loader.EventFileError, func(e event.Event) {
		if le, ok := e.Data.(loader.LoadError); ok {
			fmt.Fprintln(os.Stderr, errmsg.FormatWith(errmsg.OpLoad, le.Source, le.Err))
		}
	})

	// Loads requested before the engine is up queue and replay on Start.
	for _, src := range flag.Args() {
		if err := mgr.RegisterSound(src); err != nil {
			return errors.New(errmsg.FormatWith(errmsg.OpRegister, src, err))
		}
	}

	if err := spk.Init(cfg.SampleRate, time.Duration(cfg.BufferMs)*time.Millisecond); err != nil {
		return errors.New(errmsg.Format(errmsg.OpEngineInit, err))
	}
	mgr.Start()

	opts := &sound.PlayOptions{
		Interrupt: policy,
		Delay:     *delay,
		Offset:    offset,
		Loop:      loop,
		Volume:    volume,
		Pan:       pan,
	}

	done := make(chan string, flag.NArg())
	for _, src := range flag.Args() {
		inst := mgr.CreateInstance(src, 0, 0)
		finish := func(outcome string) func(event.Event) {
			return func(event.Event) { done <- fmt.Sprintf("%s: %s", src, outcome) }
		}
		inst.On(sound.EventComplete, finish("complete"))
		inst.On(sound.EventFailed, finish("failed"))
		inst.On(sound.EventInterrupted, finish("interrupted"))
		inst.Play(opts)
	}

	for range flag.Args() {
		log.Infow("playback finished", "result", <-done)
	}
	mgr.StopAll()
	return nil
}
