package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"jarvis-backend/internal/api"
	"jarvis-backend/internal/api/routes"
	v1 "jarvis-backend/internal/api/routes/v1"
	"jarvis-backend/internal/config"
	"jarvis-backend/internal/jarvis/agents"
	"jarvis-backend/internal/jarvis/workflow"
	"jarvis-backend/internal/libraries"
	llmHandlers "jarvis-backend/internal/llm_handlers"
	"jarvis-backend/internal/repo"
	"jarvis-backend/internal/speech"

	openai "github.com/sashabaranov/go-openai"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// Connect to database
	if err := config.ConnectDB(cfg.DatabaseURL, cfg.IsProduction()); err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	defer config.CloseDB()

	// Run migrations
	if err := config.MigrateAllModels(config.DB, cfg.RunMigrations); err != nil {
		log.Fatal("Failed to migrate database:", err)
	}

	gcp, err := libraries.NewClients(ctx, cfg.GCPCredentials)
	if err != nil {
		log.Fatalf("failed to init gcp clients: %v", err)
	}
	defer gcp.Close()
	storage := libraries.NewGCSStorage(gcp.GCS, cfg.GCSBucket)

	llmClient, err := llmHandlers.New(ctx, llmHandlers.Config{
		Provider:    llmHandlers.Provider(cfg.LLMProvider),
		Model:       cfg.LLMModel,
		APIKey:      cfg.LLMAPIKey,
		BaseURL:     cfg.LLMBaseURL,
		MaxTokens:   cfg.LLMMaxTokens,
		Temperature: cfg.LLMTemperature,

		CredentialsJSON: gcp.CredentialsJSON,
		ProjectID:       cfg.VertexProject,
		Location:        cfg.VertexLocation,
	})
	if err != nil {
		log.Fatalf("Failed to initialize LLM client (%s): %v", cfg.LLMProvider, err)
	}

	openaiClient := openai.NewClient(cfg.OpenAIAPIKey)
	synthesizer, err := speech.NewSynthesizer(ctx, speech.SynthesizerConfig{
		Provider:        cfg.TTSProvider,
		OpenAI:          openaiClient,
		CredentialsJSON: gcp.CredentialsJSON,
		VoiceEN:         cfg.TTSVoiceEN,
		VoiceRU:         cfg.TTSVoiceRU,
	})
	if err != nil {
		log.Fatalf("Failed to initialize speech synthesizer (%s): %v", cfg.TTSProvider, err)
	}
	bridge := speech.NewBridge(speech.NewWhisperTranscriber(openaiClient), synthesizer, storage)

	userRepo := repo.NewUserRepository(config.DB)
	chatRepo := repo.NewChatRepository(config.DB)
	wf := workflow.NewWorkflow(userRepo, chatRepo, agents.NewAgent(llmClient), bridge, storage, workflow.Options{
		HistoryLimit: cfg.HistoryLimit,
		TurnTimeout:  cfg.TurnTimeout,
	})

	hub := libraries.NewHub()
	go hub.Run(ctx)

	// Create and configure Fiber app
	app := api.NewServer(cfg)

	// Register routes
	routes.Register(app, v1.Deps{
		DB:        config.DB,
		Users:     userRepo,
		Workflow:  wf,
		Hub:       hub,
		JWTSecret: cfg.JWTSecret,
		TokenTTL:  cfg.JWTExpiration,
	})

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := api.StartServer(app, cfg.Port); err != nil {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-quit
	log.Println("Shutting down...")
	// closing the hub cancels turns still streaming over sockets
	stop()
	_ = app.ShutdownWithTimeout(10 * time.Second)
	log.Println("Server stopped")
}
