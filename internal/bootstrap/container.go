package bootstrap

import (
	"context"
	"log"
	"time"

	"aura-chat-be/internal/config"
	"aura-chat-be/internal/constant"
	"aura-chat-be/internal/controller"
	"aura-chat-be/internal/handler"
	"aura-chat-be/internal/pkg/logger"
	"aura-chat-be/internal/pkg/serverutils"
	"aura-chat-be/internal/repository/memory"
	"aura-chat-be/internal/repository/unitofwork"
	"aura-chat-be/internal/service"
	"aura-chat-be/internal/websocket"
	"aura-chat-be/pkg/embedding"
	"aura-chat-be/pkg/events"
	"aura-chat-be/pkg/imaging"
	"aura-chat-be/pkg/llm/factory"
	"aura-chat-be/pkg/llm/gemini"
	"aura-chat-be/pkg/storage"
	"aura-chat-be/pkg/storage/imagekit"
	"aura-chat-be/pkg/storage/local"
	"aura-chat-be/pkg/vector"
	"aura-chat-be/pkg/vector/inmemory"
	"aura-chat-be/pkg/vector/pgvector"
	"aura-chat-be/pkg/vector/qdrant"

	pktNats "aura-chat-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"google.golang.org/genai"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	AuthController controller.IAuthController
	ChatController controller.IChatController
	AuthMiddleware fiber.Handler

	// Background Services (Exposed for main.go to run)
	ConsumerService service.IConsumerService
	TurnService     service.ITurnService

	// WebSockets
	ChatSocketHandler *handler.ChatSocketHandler
	WebSocketHub      *websocket.Hub

	Logger  logger.ILogger
	closers []func()
}

func NewContainer(ctx context.Context, db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core Facades
	uowFactory := unitofwork.NewRepositoryFactory(db)
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.IsProduction())
	zap.ReplaceGlobals(sysLogger.Zap())
	socketLogger := logger.NewIsolatedLogger(cfg.App.SocketLogFilePath)

	c := &Container{Logger: sysLogger}

	if cfg.App.JwtSecret == "" {
		log.Fatal("[FATAL] JWT_SECRET is required")
	}
	tokens := serverutils.NewTokenVerifier(cfg.App.JwtSecret, cfg.App.JwtTTL)

	// 2. Event Bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{OutputChannelBuffer: 256},
		watermillLogger,
	)
	c.closers = append(c.closers, func() { _ = pubSub.Close() })

	// 3. AI providers
	var genaiClient *genai.Client
	if cfg.Ai.LLMProvider != "ollama" || cfg.Ai.EmbeddingProvider != "ollama" {
		client, err := gemini.NewClient(ctx, cfg.Ai.GeminiAPIKey)
		if err != nil {
			log.Fatalf("[FATAL] Failed to initialize Gemini client: %v", err)
		}
		genaiClient = client
	}

	var embeddingProvider embedding.EmbeddingProvider
	if cfg.Ai.EmbeddingProvider == "ollama" {
		embeddingProvider = embedding.NewOllamaProvider(cfg.Ai.OllamaBaseURL, cfg.Ai.OllamaEmbedModel, cfg.Ai.EmbeddingDim)
	} else {
		embeddingProvider = embedding.NewGeminiProvider(genaiClient, cfg.Ai.EmbeddingModel, cfg.Ai.EmbeddingDim)
	}
	sysLogger.Info("Container", "Embedding provider ready", map[string]interface{}{
		"provider":  cfg.Ai.EmbeddingProvider,
		"dimension": embeddingProvider.Dimension(),
	})

	chatModel, thinkingModel, titleModel := cfg.Ai.Models()
	llmProvider, err := factory.NewLLMProvider(factory.Config{
		Provider:      cfg.Ai.LLMProvider,
		Model:         chatModel,
		Temperature:   cfg.Ai.Temperature,
		OllamaBaseURL: cfg.Ai.OllamaBaseURL,
	}, genaiClient)
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize LLM Provider: %v", err)
	}
	sysLogger.Info("Container", "LLM provider ready", map[string]interface{}{
		"provider": cfg.Ai.LLMProvider,
		"model":    chatModel,
	})

	// 4. Memory, storage and caches
	index := newVectorIndex(ctx, c, db, cfg, embeddingProvider.Dimension(), sysLogger)
	uploader := newUploader(cfg)
	processor := imaging.NewProcessor(cfg.Turn.MaxImageSide, cfg.Turn.MaxImagePixels)
	chatCache := memory.NewChatAccessCache(cfg.Turn.ChatCacheTTL)

	// 5. Infrastructure
	// NATS is optional; without it domain events are simply not published.
	var eventPublisher events.Publisher
	if cfg.App.NatsURL != "" {
		natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
		if err != nil {
			sysLogger.Warn("Container", "Failed to connect to NATS Publisher", map[string]interface{}{"error": err})
		} else {
			eventPublisher = natsPub
			c.closers = append(c.closers, natsPub.Close)
		}

		natsSub, err := pktNats.NewSubscriber(cfg.App.NatsURL)
		if err != nil {
			sysLogger.Warn("Container", "Failed to connect to NATS Subscriber", map[string]interface{}{"error": err})
		} else {
			durable := "chat-cache-" + uuid.NewString()
			if err := natsSub.Subscribe(ctx, events.TypeChatDeleted, durable, service.ChatDeletedHandler(chatCache)); err != nil {
				sysLogger.Warn("Container", "Failed to subscribe to chat deletions", map[string]interface{}{"error": err})
			}
			c.closers = append(c.closers, natsSub.Close)
		}
	}

	// Redis
	var rdb *redis.Client
	if cfg.App.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.App.RedisURL)
		if err != nil {
			sysLogger.Warn("Container", "Failed to parse Redis URL, using direct Addr", map[string]interface{}{"error": err})
			opt = &redis.Options{
				Addr: cfg.App.RedisURL,
			}
		}
		rdb = redis.NewClient(opt)
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		if _, err := rdb.Ping(pingCtx).Result(); err != nil {
			sysLogger.Warn("Container", "Failed to connect to Redis", map[string]interface{}{"error": err})
		}
		cancel()
		c.closers = append(c.closers, func() { _ = rdb.Close() })
	}

	// WebSocket Hub
	wsHub := websocket.NewHub(rdb, socketLogger)
	go wsHub.Run(ctx)

	// 6. Services
	publisherService := service.NewPublisherService(constant.MemoryIndexTopic, pubSub)
	memoryIndexer := service.NewMemoryIndexer(publisherService)
	consumerService := service.NewConsumerService(
		pubSub,
		constant.MemoryIndexTopic,
		embeddingProvider,
		index,
		cfg.Timeouts.Embedding,
		cfg.Timeouts.Vector,
		sysLogger,
	)

	authService := service.NewAuthService(uowFactory, tokens, eventPublisher, sysLogger)
	chatService := service.NewChatService(uowFactory, index, chatCache, eventPublisher, cfg.Timeouts.Store, cfg.Timeouts.Vector, sysLogger)
	turnService := service.NewTurnService(service.TurnConfig{
		ChatModel:         chatModel,
		ThinkingModel:     thinkingModel,
		TitleModel:        titleModel,
		Temperature:       cfg.Ai.Temperature,
		HistoryLimit:      cfg.Turn.HistoryLimit,
		MemoryTopK:        cfg.Turn.MemoryTopK,
		TitleMaxLength:    cfg.Turn.TitleMaxLength,
		FallbackPreview:   cfg.Turn.FallbackPreview,
		GenerationTimeout: cfg.Timeouts.Generation,
		EmbeddingTimeout:  cfg.Timeouts.Embedding,
		VectorTimeout:     cfg.Timeouts.Vector,
		StoreTimeout:      cfg.Timeouts.Store,
		UploadTimeout:     cfg.Timeouts.Upload,
		BackgroundTimeout: cfg.Timeouts.Background,
	}, service.TurnDependencies{
		UowFactory: uowFactory,
		Embedder:   embeddingProvider,
		LLM:        llmProvider,
		Index:      index,
		Indexer:    memoryIndexer,
		Uploader:   uploader,
		Processor:  processor,
		Cache:      chatCache,
		Events:     eventPublisher,
		Logger:     sysLogger,
	})

	// 7. Controllers and handlers
	c.AuthController = controller.NewAuthController(authService, cfg.App.JwtTTL, cfg.IsProduction())
	c.ChatController = controller.NewChatController(chatService, turnService, cfg.Turn.MaxSocketFrame)
	c.AuthMiddleware = serverutils.NewJwtMiddleware(tokens)
	c.ChatSocketHandler = handler.NewChatSocketHandler(ctx, tokens, wsHub, turnService, websocket.Options{
		ReadLimit: cfg.Turn.MaxSocketFrame,
		QueueSize: cfg.Turn.TurnQueueSize,
	}, socketLogger)
	c.WebSocketHub = wsHub
	c.ConsumerService = consumerService
	c.TurnService = turnService
	return c
}

// Close waits for in-flight background turn work, then releases connections.
func (c *Container) Close() {
	c.TurnService.Wait()
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	_ = c.Logger.Sync()
}

func newVectorIndex(ctx context.Context, c *Container, db *gorm.DB, cfg *config.Config, dim int, sysLogger logger.ILogger) vector.Index {
	switch cfg.Vector.Backend {
	case "qdrant":
		idx, err := qdrant.New(cfg.Vector.QdrantHost, cfg.Vector.QdrantPort, cfg.Vector.QdrantCollection, dim)
		if err != nil {
			sysLogger.Error("Container", "Failed to connect to Qdrant, using in-memory index", map[string]interface{}{"error": err})
			return inmemory.New()
		}
		if err := idx.EnsureCollection(ctx); err != nil {
			sysLogger.Warn("Container", "Failed to ensure Qdrant collection", map[string]interface{}{"error": err})
		}
		c.closers = append(c.closers, func() { _ = idx.Close() })
		return idx
	case "memory":
		return inmemory.New()
	default:
		return pgvector.New(db)
	}
}

func newUploader(cfg *config.Config) storage.Uploader {
	if cfg.Storage.Backend == "local" {
		up, err := local.NewUploader(cfg.Storage.LocalDir, cfg.App.BaseURL+"/uploads")
		if err != nil {
			log.Fatalf("[FATAL] Failed to prepare upload dir: %v", err)
		}
		return up
	}
	return imagekit.NewUploader(imagekit.Config{
		UploadURL:  cfg.Storage.ImageKitUploadURL,
		PrivateKey: cfg.Storage.ImageKitPrivateKey,
		Folder:     cfg.Storage.ImageKitFolder,
		Timeout:    cfg.Timeouts.Upload,
	})
}
