package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"

	"medichat-backend/cmd"
	"medichat-backend/internal/api"
	"medichat-backend/internal/chat"
	"medichat-backend/internal/config"
	"medichat-backend/internal/database"
	"medichat-backend/internal/messaging"
	"medichat-backend/internal/retrieval"
	"medichat-backend/internal/router"
	"medichat-backend/internal/smalltalk"
	"medichat-backend/internal/storage"
	"medichat-backend/internal/text2sql"
)

type APIConfig struct {
	DatabaseURL         string `env:"DATABASE_URL,notEmpty,required"`
	HospitalDatabaseURL string `env:"HOSPITAL_DATABASE_URL"`
	VectorDatabaseURL   string `env:"VECTOR_DATABASE_URL"`

	OpenAIAPIKey         string  `env:"OPENAI_API_KEY,notEmpty,required"`
	OpenAIModel          string  `env:"OPENAI_MODEL" envDefault:"gpt-4o-mini"`
	OpenAIEmbeddingModel string  `env:"OPENAI_EMBEDDING_MODEL" envDefault:"text-embedding-3-small"`
	SmallTalkTemperature float64 `env:"SMALLTALK_TEMPERATURE" envDefault:"0.7"`

	BotConfigPath string `env:"BOT_CONFIG_PATH"`
	RabbitMQURL   string `env:"RABBITMQ_URL"`

	PolicyBucket      string `env:"POLICY_BUCKET" envDefault:"policies"`
	PolicyDir         string `env:"POLICY_DIR"`
	VectorCollection  string `env:"VECTOR_COLLECTION" envDefault:"hospital_policies"`
	S3EndpointURL     string `env:"S3_ENDPOINT_URL"`
	S3AccessKeyID     string `env:"AWS_ACCESS_KEY_ID"`
	S3SecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY"`
	S3Region          string `env:"AWS_REGION" envDefault:"us-east-1"`

	APIPort       string        `env:"API_PORT" envDefault:"8000"`
	EngineTimeout time.Duration `env:"ENGINE_TIMEOUT" envDefault:"50s"`
}

func main() {
	log.Println("Starting API Server...")

	cmd.LoadEnvFile()

	var cfg APIConfig
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("error parsing config: %v", err)
	}

	// The hospital records live in their own database in production, but
	// a single URL works for small deployments.
	if cfg.HospitalDatabaseURL == "" {
		cfg.HospitalDatabaseURL = cfg.DatabaseURL
	}
	if cfg.VectorDatabaseURL == "" {
		cfg.VectorDatabaseURL = cfg.HospitalDatabaseURL
	}

	db, err := database.NewDatabase(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	hospitalDB, err := database.Connect(cfg.HospitalDatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to hospital records database: %v", err)
	}

	botCfg, err := config.LoadBotConfig(cfg.BotConfigPath)
	if err != nil {
		log.Fatalf("Failed to load bot config: %v", err)
	}

	llm, err := openai.New(openai.WithToken(cfg.OpenAIAPIKey), openai.WithModel(cfg.OpenAIModel))
	if err != nil {
		log.Fatalf("Failed to create LLM client: %v", err)
	}

	embedClient, err := openai.New(
		openai.WithToken(cfg.OpenAIAPIKey),
		openai.WithModel(cfg.OpenAIModel),
		openai.WithEmbeddingModel(cfg.OpenAIEmbeddingModel),
	)
	if err != nil {
		log.Fatalf("Failed to create embedding client: %v", err)
	}
	embedder, err := embeddings.NewEmbedder(embedClient)
	if err != nil {
		log.Fatalf("Failed to create embedder: %v", err)
	}

	var provider storage.Provider
	if cfg.PolicyDir != "" {
		provider = storage.NewLocalProvider(cfg.PolicyDir)
	} else {
		provider, err = storage.NewS3Provider(&storage.S3ProviderConfig{
			S3EndpointURL:     cfg.S3EndpointURL,
			S3AccessKeyID:     cfg.S3AccessKeyID,
			S3SecretAccessKey: cfg.S3SecretAccessKey,
			S3Region:          cfg.S3Region,
		})
		if err != nil {
			log.Fatalf("Failed to create S3 provider: %v", err)
		}
	}

	var events messaging.Publisher
	if cfg.RabbitMQURL != "" {
		events, err = messaging.NewRabbitMQPublisher(cfg.RabbitMQURL)
		if err != nil {
			log.Fatalf("Failed to connect to RabbitMQ: %v", err)
		}
	} else {
		events = messaging.NewInMemoryQueue()
	}
	defer events.Close()

	classifier := router.New(llm, botCfg.Greetings, cfg.EngineTimeout)

	translator := text2sql.NewChainTranslator(llm, cfg.HospitalDatabaseURL)
	pipeline := text2sql.NewPipeline(translator, hospitalDB, cfg.EngineTimeout)

	docs := retrieval.NewIndex(retrieval.IndexConfig{
		LLM:        llm,
		Embedder:   embedder,
		PgDSN:      cfg.VectorDatabaseURL,
		Collection: cfg.VectorCollection,
		TopK:       botCfg.RetrievalTopK,
		Corpus: retrieval.CorpusSource{
			Provider:  provider,
			Bucket:    cfg.PolicyBucket,
			Documents: botCfg.PolicyDocuments,
		},
	})

	talk := smalltalk.NewResponder(smalltalk.NewOpenAIGenerator(cfg.OpenAIModel, cfg.SmallTalkTemperature))

	assistant := chat.NewAssistant(db, classifier, pipeline, docs, talk, events, botCfg.HistoryWindow)

	// --- Chi Router Setup ---
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"*"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.EngineTimeout + 10*time.Second))

	api.NewChatService(db, assistant).AddRoutes(r)

	server := &http.Server{
		Addr:    ":" + cfg.APIPort,
		Handler: r,
	}

	// Goroutine for graceful shutdown
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		log.Println("Shutting down server...")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			log.Fatalf("Server forced to shutdown: %v", err)
		}
	}()

	log.Printf("API server listening on port %s", cfg.APIPort)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Could not listen on %s: %v\n", cfg.APIPort, err)
	}

	log.Println("Server stopped.")
}
