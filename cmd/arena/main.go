package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/term"

	"arena/config"
	"arena/game"
	"arena/session"
	"arena/transport"
)

func main() {
	envFile := flag.String("env", ".env", "env file to load")
	room := flag.String("room", "", "room token to join; empty hosts a new room")
	backend := flag.String("backend", "", "mesh or relay (overrides ARENA_BACKEND)")
	codec := flag.String("codec", "", "json or msgpack (overrides ARENA_CODEC)")
	listen := flag.String("listen", "", "mesh host listen address")
	advertise := flag.String("advertise", "", "mesh host address placed in the room token")
	relayURL := flag.String("relay", "", "relay websocket URL")
	logFile := flag.String("log", "arena.log", "log file (the terminal is busy drawing)")
	flag.Parse()

	f, err := os.OpenFile(*logFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		log.Fatalf("open log: %v", err)
	}
	defer f.Close()
	log.SetOutput(f)

	if err := config.InitConfig(*envFile); err != nil {
		log.Fatal(err)
	}
	cfg, err := config.FromEnv()
	if err != nil {
		log.Fatal(err)
	}
	override(&cfg.Room, *room)
	override(&cfg.Backend, *backend)
	override(&cfg.Codec, *codec)
	override(&cfg.ListenAddr, *listen)
	override(&cfg.AdvertiseAddr, *advertise)
	override(&cfg.RelayURL, *relayURL)
	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}
	edge, err := game.ParseEdgePolicy(cfg.Edge)
	if err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fmt.Println("connecting...")
	t, err := transport.Open(ctx, cfg, log.Default())
	if err != nil {
		fmt.Fprintln(os.Stderr, "connect:", err)
		os.Exit(1)
	}
	defer t.Close()
	if t.IsHost() {
		log.Printf("hosting, share this token: %s", t.Token())
	}

	s := session.New(t, session.Options{
		Edge:       edge,
		Rocks:      cfg.Rocks,
		SnapshotHz: cfg.SnapshotHz,
		InputHz:    cfg.InputHz,
		FrameHz:    cfg.FrameHz,
	})

	kb := NewKeyboard()
	fd := int(os.Stdin.Fd())
	if old, err := term.MakeRaw(fd); err == nil {
		defer term.Restore(fd, old)
	} else {
		log.Println("raw mode:", err)
	}
	go kb.Read(os.Stdin)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-kb.Quit():
			cancel()
		case <-ctx.Done():
		}
	}()

	hud := NewHUD(os.Stdout, 100*time.Millisecond)
	if err := s.Run(ctx, kb, hud); err != nil && !errors.Is(err, context.Canceled) {
		log.Println("run:", err)
	}
}

func override(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
