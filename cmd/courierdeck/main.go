package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"courierdeck/chat"
	"courierdeck/config"
	"courierdeck/engine"
	"courierdeck/feed"
	"courierdeck/messaging"
	"courierdeck/session"
	"courierdeck/statcache"
	"courierdeck/store"
	"courierdeck/upstream"
	"courierdeck/www"
)

var Version = "dev"

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	configPath := flag.String("config", "courierdeck.yaml", "path to config file")
	flag.Parse()

	if *showVersion {
		fmt.Println("courierdeck", Version)
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	// Database
	db, err := store.Open(&cfg.Database)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()
	log.Printf("courierdeck: database open (%s)", cfg.Database.Driver)

	// Redis
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Printf("courierdeck: redis not available (%v), running without cache", err)
	} else {
		log.Printf("courierdeck: redis connected (%s)", cfg.Redis.Address)
	}
	cancel()
	defer redisClient.Close()
	stats := statcache.New(redisClient)

	// Upstream backend session + REST client
	sess := session.NewManager(db)
	client := upstream.NewClient(cfg.Upstream.BaseURL, cfg.Upstream.Timeout, sess)
	sess.AttachClient(client)
	if err := sess.Restore(); err != nil {
		log.Printf("courierdeck: restore session: %v", err)
	}
	if err := client.Ping(); err == nil {
		log.Printf("courierdeck: backend reachable (%s)", cfg.Upstream.BaseURL)
	} else {
		log.Printf("courierdeck: backend not available (%v)", err)
	}

	// Messaging client
	msgClient := messaging.NewClient(&cfg.Messaging)
	if err := msgClient.Connect(); err != nil {
		log.Printf("courierdeck: messaging connect failed (%v)", err)
	} else {
		log.Printf("courierdeck: messaging connected (%s)", cfg.Messaging.Backend)
	}
	defer msgClient.Close()

	// Engine
	eng := engine.New(engine.Config{
		AppConfig:  cfg,
		ConfigPath: *configPath,
		DB:         db,
		Upstream:   client,
		Session:    sess,
		Stats:      stats,
		MsgClient:  msgClient,
	})
	eng.Start()
	defer eng.Stop()

	// Live order feed
	fd := feed.New(cfg.Feed.EventsURL, cfg.Feed.InitialBackoff, cfg.Feed.MaxBackoff, sess, eng.FeedHandler())
	fd.Start()
	defer fd.Stop()

	// Outbox drainer (mirror events out to the depot bus)
	drainer := messaging.NewOutboxDrainer(db, msgClient, cfg.Messaging.OutboxDrainInterval)
	drainer.Start()
	defer drainer.Stop()

	// Chat helper
	var responder *chat.Responder
	if cfg.Chat.Enabled {
		responder = chat.Default()
	}

	// Web server
	handler, stopWeb := www.NewRouter(www.Config{
		Engine:    eng,
		Feed:      fd,
		Responder: responder,
	})

	addr := fmt.Sprintf("%s:%d", cfg.Web.Host, cfg.Web.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	go func() {
		log.Printf("courierdeck: web server listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("web server: %v", err)
		}
	}()

	log.Printf("courierdeck: ready")

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Printf("courierdeck: shutting down...")
	stopWeb()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	srv.Shutdown(shutdownCtx)

	log.Printf("courierdeck: stopped")
}
