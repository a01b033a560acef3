package main

import (
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"hailstone/internal/back"
	"hailstone/internal/bot"
	"hailstone/internal/config"
	"hailstone/internal/duel"
	"hailstone/internal/store"
	"hailstone/internal/web"
)

func serve(conf *config.Config) error {
	b, err := back.New("sqlite3", conf.DatabasePath)
	if err != nil {
		return err
	}

	conn := store.NewMemory().Connect()
	defer conn.Close()

	done := make(chan struct{})
	signaled := make(chan os.Signal, 1)
	signal.Notify(signaled, syscall.SIGINT, syscall.SIGTERM)

	var wg sync.WaitGroup
	go web.NewServer(b, conn, conf.WebAddr).Serve(&wg, done)
	go duel.NewJanitor(conn, 30*time.Minute).Run(&wg, done)

	if conf.DiscordToken != "" {
		discord, err := bot.New(b, conf)
		if err != nil {
			return err
		}
		go discord.Serve(&wg, done)
	} else {
		log.Print("warning: no Discord token, duel results won't be announced")
	}

	sig := <-signaled
	log.Printf("received signal %d", sig)
	close(done)
	wg.Wait()

	log.Print("info: shutdown complete")

	return nil
}
