package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Ai       AIConfig
	Vector   VectorConfig
	Storage  StorageConfig
	Timeouts TimeoutConfig
	Turn     TurnConfig
}

type AppConfig struct {
	Port               string
	BaseURL            string
	Environment        string
	LogFilePath        string
	SocketLogFilePath  string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
	JwtSecret          string
	JwtTTL             time.Duration
}

type DatabaseConfig struct {
	Connection string
}

type AIConfig struct {
	LLMProvider         string // "gemini" or "ollama"
	GeminiAPIKey        string
	ChatModel           string
	ThinkingModel       string
	TitleModel          string
	Temperature         float64
	EmbeddingProvider   string // "gemini" or "ollama"
	EmbeddingModel      string
	EmbeddingDim        int
	OllamaBaseURL       string
	OllamaModel         string
	OllamaThinkingModel string
	OllamaTitleModel    string
	OllamaEmbedModel    string
}

// Models returns the chat, thinking and title model names for the active
// generation provider.
func (a AIConfig) Models() (chat, thinking, title string) {
	if a.LLMProvider == "ollama" {
		return a.OllamaModel, a.OllamaThinkingModel, a.OllamaTitleModel
	}
	return a.ChatModel, a.ThinkingModel, a.TitleModel
}

type VectorConfig struct {
	Backend          string // "pgvector", "qdrant" or "memory"
	QdrantHost       string
	QdrantPort       int
	QdrantCollection string
}

type StorageConfig struct {
	Backend            string // "imagekit" or "local"
	ImageKitPublicKey  string
	ImageKitPrivateKey string
	ImageKitUploadURL  string
	ImageKitFolder     string
	LocalDir           string
}

type TimeoutConfig struct {
	Generation time.Duration
	Embedding  time.Duration
	Vector     time.Duration
	Store      time.Duration
	Upload     time.Duration
	Background time.Duration
}

type TurnConfig struct {
	HistoryLimit    int
	MemoryTopK      int
	MaxImageSide    int
	MaxImagePixels  int
	TurnQueueSize   int
	MaxSocketFrame  int64
	ChatCacheTTL    time.Duration
	TitleMaxLength  int
	FallbackPreview int
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	ollamaModel := getEnv("OLLAMA_MODEL", "llama3")

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			BaseURL:            getEnv("APP_BASE_URL", "http://localhost:3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/app.log"),
			SocketLogFilePath:  getEnv("SOCKET_LOG_FILE_PATH", "logs/socket.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", ""),
			RedisURL:           getEnv("REDIS_URL", ""),
			JwtSecret:          getEnv("JWT_SECRET", ""),
			JwtTTL:             getEnvAsDuration("JWT_TTL", 7*24*time.Hour),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Ai: AIConfig{
			LLMProvider:         getEnv("LLM_PROVIDER", "gemini"),
			GeminiAPIKey:        getEnv("GEMINI_API_KEY", getEnv("GOOGLE_GEMINI_API_KEY", "")),
			ChatModel:           getEnv("LLM_MODEL", "gemini-2.0-flash"),
			ThinkingModel:       getEnv("LLM_THINKING_MODEL", "gemini-2.5-pro"),
			TitleModel:          getEnv("LLM_TITLE_MODEL", "gemini-2.0-flash-lite"),
			Temperature:         getEnvAsFloat("LLM_TEMPERATURE", 0.8),
			EmbeddingProvider:   getEnv("EMBEDDING_PROVIDER", "gemini"),
			EmbeddingModel:      getEnv("EMBEDDING_MODEL", "gemini-embedding-001"),
			EmbeddingDim:        getEnvAsInt("EMBEDDING_DIMENSION", 768),
			OllamaBaseURL:       getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			OllamaModel:         ollamaModel,
			OllamaThinkingModel: getEnv("OLLAMA_THINKING_MODEL", ollamaModel),
			OllamaTitleModel:    getEnv("OLLAMA_TITLE_MODEL", ollamaModel),
			OllamaEmbedModel:    getEnv("OLLAMA_EMBEDDING_MODEL", "nomic-embed-text"),
		},
		Vector: VectorConfig{
			Backend:          getEnv("VECTOR_BACKEND", "pgvector"),
			QdrantHost:       getEnv("QDRANT_HOST", "localhost"),
			QdrantPort:       getEnvAsInt("QDRANT_PORT", 6334),
			QdrantCollection: getEnv("QDRANT_COLLECTION", "aura_memory"),
		},
		Storage: StorageConfig{
			Backend:            getEnv("STORAGE_BACKEND", "imagekit"),
			ImageKitPublicKey:  getEnv("IMAGEKIT_PUBLICKEY", ""),
			ImageKitPrivateKey: getEnv("IMAGEKIT_PRIVATEKEY", ""),
			ImageKitUploadURL:  getEnv("IMAGEKIT_UPLOAD_URL", "https://upload.imagekit.io/api/v1/files/upload"),
			ImageKitFolder:     getEnv("IMAGEKIT_FOLDER", "Aura_User_Uploads"),
			LocalDir:           getEnv("UPLOAD_DIR", "./uploads"),
		},
		Timeouts: TimeoutConfig{
			Generation: getEnvAsDuration("TIMEOUT_GENERATION", 60*time.Second),
			Embedding:  getEnvAsDuration("TIMEOUT_EMBEDDING", 10*time.Second),
			Vector:     getEnvAsDuration("TIMEOUT_VECTOR", 5*time.Second),
			Store:      getEnvAsDuration("TIMEOUT_STORE", 5*time.Second),
			Upload:     getEnvAsDuration("TIMEOUT_UPLOAD", 30*time.Second),
			Background: getEnvAsDuration("TIMEOUT_BACKGROUND", 2*time.Minute),
		},
		Turn: TurnConfig{
			HistoryLimit:    getEnvAsInt("TURN_HISTORY_LIMIT", 20),
			MemoryTopK:      getEnvAsInt("TURN_MEMORY_TOP_K", 3),
			MaxImageSide:    getEnvAsInt("IMAGE_MAX_SIDE", 2048),
			MaxImagePixels:  getEnvAsInt("IMAGE_MAX_PIXELS", 40_000_000),
			TurnQueueSize:   getEnvAsInt("SOCKET_TURN_QUEUE", 16),
			MaxSocketFrame:  int64(getEnvAsInt("SOCKET_MAX_FRAME_BYTES", 16*1024*1024)),
			ChatCacheTTL:    getEnvAsDuration("CHAT_CACHE_TTL", 10*time.Minute),
			TitleMaxLength:  getEnvAsInt("TITLE_MAX_LENGTH", 60),
			FallbackPreview: getEnvAsInt("FALLBACK_PREVIEW_LENGTH", 200),
		},
	}
}

func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseFloat(strValue, 64); err == nil {
		return value
	}
	return fallback
}

// getEnvAsDuration accepts Go duration strings ("30s", "2m").
func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if value, err := time.ParseDuration(strValue); err == nil && value > 0 {
		return value
	}
	return fallback
}
