package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"arena/config"
	"arena/room"
)

func main() {
	envFile := flag.String("env", ".env", "env file to load")
	listen := flag.String("listen", "", "listen address (overrides ARENA_RELAY_LISTEN)")
	flag.Parse()

	if err := config.InitConfig(*envFile); err != nil {
		log.Fatal(err)
	}
	cfg, err := config.FromEnv()
	if err != nil {
		log.Fatal(err)
	}
	addr := cfg.RelayListen
	if *listen != "" {
		addr = *listen
	}

	m := room.NewManager()
	defer m.Close()
	srv := &http.Server{Addr: addr, Handler: room.NewServer(m).Handler()}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdown)
	}()

	log.Printf("relay listening on %s (ws endpoint: /relay, rooms: /rooms)", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal(err)
	}
}
