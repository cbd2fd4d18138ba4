package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Port          string
	AllowedOrigin string
	// Generation backends
	OpenAIAPIKey    string
	AnthropicAPIKey string
	GeminiAPIKey    string
	DeepSeekAPIKey  string
	GrokAPIKey      string
	DefaultModel    string
	// Per-chatbot content (catalog, flow graph, actions)
	ChatbotConfigDir string
	// Database
	DatabaseURL string
	// Redis cart storage (optional; memory store when empty)
	RedisAddr string
	// Order event publishing (optional)
	AMQPURL      string
	AMQPExchange string
	// Ledger (spreadsheet-style append) sync
	LedgerBaseURL string
	LedgerToken   string
	// Scheduling lookups
	SchedulingBaseURL string
	SchedulingAPIKey  string
	// Message credits granted per chatbot; -1 disables billing checks
	MessageCredits int
}

func Load() Config {
	_ = godotenv.Load()
	return Config{
		Port:              getEnvDefault("PORT", "8080"),
		AllowedOrigin:     getEnvDefault("ALLOWED_ORIGIN", "*"),
		OpenAIAPIKey:      os.Getenv("OPENAI_API_KEY"),
		AnthropicAPIKey:   os.Getenv("ANTHROPIC_API_KEY"),
		GeminiAPIKey:      os.Getenv("GEMINI_API_KEY"),
		DeepSeekAPIKey:    os.Getenv("DEEPSEEK_API_KEY"),
		GrokAPIKey:        os.Getenv("GROK_API_KEY"),
		DefaultModel:      getEnvDefault("DEFAULT_MODEL", "gpt-4o-mini"),
		ChatbotConfigDir:  getEnvDefault("CHATBOT_CONFIG_DIR", "./chatbots"),
		DatabaseURL:       os.Getenv("DB_URL"),
		RedisAddr:         os.Getenv("REDIS_ADDR"),
		AMQPURL:           os.Getenv("AMQP_URL"),
		AMQPExchange:      getEnvDefault("AMQP_EXCHANGE", "mesa.orders"),
		LedgerBaseURL:     getEnvDefault("LEDGER_BASE_URL", "https://sheets.googleapis.com"),
		LedgerToken:       os.Getenv("LEDGER_TOKEN"),
		SchedulingBaseURL: getEnvDefault("SCHEDULING_BASE_URL", "https://api.cal.com/v1"),
		SchedulingAPIKey:  os.Getenv("SCHEDULING_API_KEY"),
		MessageCredits:    getEnvIntDefault("MESSAGE_CREDITS", -1),
	}
}

func getEnvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvIntDefault(key string, def int) int {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
