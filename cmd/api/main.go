package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/zhouzirui/kawaii-watch/backend/internal/config"
	"github.com/zhouzirui/kawaii-watch/backend/internal/handler"
	"github.com/zhouzirui/kawaii-watch/backend/internal/model/persona"
	"github.com/zhouzirui/kawaii-watch/backend/internal/service/ai"
	"github.com/zhouzirui/kawaii-watch/backend/internal/service/broadcast"
	"github.com/zhouzirui/kawaii-watch/backend/internal/service/chat"
	"github.com/zhouzirui/kawaii-watch/backend/internal/service/session"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
		log.Println("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	if !cfg.AI.Enabled() {
		log.Fatal("Ark 凭证未配置：需要 Model 以及 ARK_API_KEY 或 AK/SK")
	}
	aiService, err := ai.NewService(ctx, cfg.AI)
	if err != nil {
		log.Fatalf("failed to initialize AI service: %v", err)
	}
	log.Println("AI service initialized successfully")

	personaStore := persona.NewMemoryStore(persona.Seed())
	hub := broadcast.NewHub(personaStore.Names())
	overlay := chat.NewOverlay(hub, chat.Config{
		MaxLength:    cfg.Session.ChatMaxLength,
		Cooldown:     cfg.Session.ChatCooldown,
		HistoryLimit: cfg.Session.ChatHistoryLimit,
	})
	orchestrator := session.New(session.Deps{
		Hub:     hub,
		Roster:  personaStore,
		Backend: aiService,
	}, session.NewConfig(cfg.Session, cfg.AI.Temperature))

	// Greeting order on join: init, stats, vote, then chat backlog.
	hub.Attach(orchestrator, overlay)
	hub.AddGreeter(orchestrator)
	hub.AddGreeter(overlay)

	router := handler.NewRouter(handler.Deps{
		Hub:            hub,
		Personas:       personaStore,
		Session:        orchestrator,
		Chat:           overlay,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	})

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Printf("kawaii.watch backend listening on %s", srv.Addr)
		return runServer(gctx, srv, hub)
	})
	g.Go(func() error {
		return orchestrator.Run(gctx)
	})

	if err := g.Wait(); err != nil {
		log.Fatalf("server error: %v", err)
	}
	log.Println("shutdown complete")
}

func runServer(ctx context.Context, srv *http.Server, hub *broadcast.Hub) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		// Hijacked websockets are not tracked by Shutdown; the hub closes them.
		hub.Close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
