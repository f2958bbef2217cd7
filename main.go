package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"pregnancyai/app/api"
	"pregnancyai/app/client/speechkit"
	"pregnancyai/app/config"
	"pregnancyai/app/service/completion"
	"pregnancyai/app/service/conversation"
	"pregnancyai/app/service/gestation"
	"pregnancyai/app/service/registry"
	"pregnancyai/app/service/voice"
	"pregnancyai/app/util/mylog"

	"github.com/gofiber/fiber/v2/log"
	"github.com/samber/do"
	"golang.org/x/sync/errgroup"
)

func main() {
	di := do.New()
	defer di.Shutdown()
	defer log.Info("Waiting for services to finish...")

	mylog.Preinit()

	appCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	do.ProvideValue(di, appCtx)

	cfg, err := config.Load(config.Path())
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	do.ProvideValue(di, cfg)

	if err = mylog.Init(cfg); err != nil {
		log.Fatalf("logging init failed: %v", err)
	}

	do.Provide(di, speechkit.NewClient)
	do.Provide(di, gestation.New)
	do.Provide(di, completion.New)
	do.Provide(di, voice.NewListener)
	do.Provide(di, voice.NewSpeaker)
	do.Provide(di, conversation.New)
	do.Provide(di, registry.New)
	do.Provide(di, api.NewHandler)
	do.Provide(di, api.NewServer)

	server := do.MustInvoke[*api.Server](di)
	speaker := do.MustInvoke[*voice.Speaker](di)

	slog.Info("Service started",
		"addr", cfg.HTTP.Addr,
		"backend", cfg.OpenAI.Backend,
		"recognizer", cfg.Voice.Recognizer,
	)

	go func() {
		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, os.Interrupt, syscall.SIGTERM)
		<-sigint

		log.Info("Shutting down...")

		cancel()
	}()

	g, ctx := errgroup.WithContext(appCtx)

	g.Go(func() error {
		return server.Run(ctx)
	})

	g.Go(func() error {
		return speaker.Run(ctx)
	})

	if err = g.Wait(); err != nil {
		slog.Error("Service stopped with error", "error", err)
	}
}
