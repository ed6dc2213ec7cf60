package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/caarlos0/env/v9"

	"github.com/dskvich/ai-chat-server/pkg/api/handler"
	"github.com/dskvich/ai-chat-server/pkg/auth"
	"github.com/dskvich/ai-chat-server/pkg/chatgpt"
	"github.com/dskvich/ai-chat-server/pkg/digitalocean"
	"github.com/dskvich/ai-chat-server/pkg/domain"
	"github.com/dskvich/ai-chat-server/pkg/language"
	"github.com/dskvich/ai-chat-server/pkg/logger"
	"github.com/dskvich/ai-chat-server/pkg/render"
	"github.com/dskvich/ai-chat-server/pkg/replicate"
	"github.com/dskvich/ai-chat-server/pkg/repository"
	"github.com/dskvich/ai-chat-server/pkg/service"
	"github.com/dskvich/ai-chat-server/pkg/services"
	"github.com/dskvich/ai-chat-server/pkg/storage"
	"github.com/dskvich/ai-chat-server/pkg/workers"
)

type Config struct {
	Addr                string        `env:"ADDR" envDefault:":8080"`
	OpenAIToken         string        `env:"OPEN_AI_TOKEN,required"`
	ReplicateToken      string        `env:"REPLICATE_TOKEN,required"`
	DigitalOceanToken   string        `env:"DIGITAL_OCEAN_TOKEN"`
	UserSalt            string        `env:"USER_SALT,required"`
	StreamTTL           time.Duration `env:"STREAM_TTL" envDefault:"1m"`
	StreamSweepInterval time.Duration `env:"STREAM_SWEEP_INTERVAL" envDefault:"30s"`
	SpacesEndpoint      string        `env:"SPACES_ENDPOINT,required"`
	SpacesRegion        string        `env:"SPACES_REGION" envDefault:"ams3"`
	SpacesKey           string        `env:"SPACES_KEY,required"`
	SpacesSecret        string        `env:"SPACES_SECRET,required"`
	SpacesBucket        string        `env:"SPACES_BUCKET,required"`
	SpacesPublicHost    string        `env:"SPACES_PUBLIC_HOST,required"`
}

func main() {
	slog.SetDefault(slog.New(logger.NewHandler(os.Stderr, logger.DefaultOptions)))

	if err := runMain(); err != nil {
		slog.Error("shutting down due to error", logger.Err(err))
		os.Exit(1)
	}
	slog.Info("shutdown complete")
}

func runMain() error {
	serviceGroup, err := setupServices()
	if err != nil {
		return err
	}

	ctx, cancelFn := context.WithCancel(context.Background())
	defer cancelFn()

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		select {
		case s := <-sigCh:
			slog.Info("shutting down due to signal", "signal", s.String())
			cancelFn()
		case <-ctx.Done():
		}
	}()

	return serviceGroup.Run(ctx)
}

func setupServices() (service.Group, error) {
	cfg := Config{}
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parsing env config: %w", err)
	}

	store, err := storage.NewClient(context.Background(), storage.Config{
		Endpoint:   cfg.SpacesEndpoint,
		Region:     cfg.SpacesRegion,
		Key:        cfg.SpacesKey,
		Secret:     cfg.SpacesSecret,
		Bucket:     cfg.SpacesBucket,
		PublicHost: cfg.SpacesPublicHost,
	})
	if err != nil {
		return nil, fmt.Errorf("creating storage client: %w", err)
	}

	completionClient, err := chatgpt.NewClient(cfg.OpenAIToken)
	if err != nil {
		return nil, fmt.Errorf("creating chat completion client: %w", err)
	}
	audioClient, err := chatgpt.NewAudioClient(cfg.OpenAIToken)
	if err != nil {
		return nil, fmt.Errorf("creating audio client: %w", err)
	}
	dallEClient, err := chatgpt.NewImageClient(cfg.OpenAIToken)
	if err != nil {
		return nil, fmt.Errorf("creating image client: %w", err)
	}
	tokenizer, err := chatgpt.NewTokenizer(domain.DefaultChatModel)
	if err != nil {
		return nil, fmt.Errorf("creating tokenizer: %w", err)
	}

	replicateClient := replicate.NewClient(cfg.ReplicateToken)
	doClient := digitalocean.NewClient(cfg.DigitalOceanToken)

	chatLogs := repository.NewChatLogRepository(store)
	streams := repository.NewStreamRepository(cfg.StreamTTL)

	chatService := services.NewChatService(completionClient, chatLogs, auth.NewHasher(cfg.UserSalt))
	imageService := services.NewImageService(dallEClient, replicateClient, store)
	streamService := services.NewStreamService(
		chatService,
		imageService,
		language.NewDetector(),
		render.NewRenderer(),
		chatLogs,
	)
	voiceService := services.NewVoiceService(audioClient, audioClient, store)
	summaryService := services.NewSummaryService(chatService, tokenizer)

	chatHandler := handler.NewChat(streams, streamService)
	imageHandler := handler.NewImage(streamService)
	voiceHandler := handler.NewVoice(voiceService, voiceService)
	summaryHandler := handler.NewSummary(summaryService)
	usageHandler := handler.NewUsage(doClient)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/chat", chatHandler.Submit)
	mux.HandleFunc("GET /api/chat/stream", chatHandler.Stream)
	mux.HandleFunc("POST /api/chat/image", imageHandler.Retry)
	mux.HandleFunc("POST /api/transcribe", voiceHandler.Transcribe)
	mux.HandleFunc("POST /api/synthesize", voiceHandler.Synthesize)
	mux.HandleFunc("POST /api/summarize", summaryHandler.Summarize)
	mux.HandleFunc("GET /api/usage", usageHandler.Balance)

	return service.Group{
		workers.NewHTTPServer(cfg.Addr, mux),
		workers.NewStreamJanitor(streams, cfg.StreamSweepInterval),
	}, nil
}
