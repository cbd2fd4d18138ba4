package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "ALLOWED_ORIGIN", "DEFAULT_MODEL", "CHATBOT_CONFIG_DIR", "AMQP_EXCHANGE", "MESSAGE_CREDITS"} {
		t.Setenv(key, "")
	}
	cfg := Load()
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "*", cfg.AllowedOrigin)
	assert.Equal(t, "gpt-4o-mini", cfg.DefaultModel)
	assert.Equal(t, "./chatbots", cfg.ChatbotConfigDir)
	assert.Equal(t, "mesa.orders", cfg.AMQPExchange)
	assert.Equal(t, -1, cfg.MessageCredits)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("DEFAULT_MODEL", "claude-3-haiku")
	t.Setenv("MESSAGE_CREDITS", "50")
	t.Setenv("REDIS_ADDR", "localhost:6379")

	cfg := Load()
	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, "claude-3-haiku", cfg.DefaultModel)
	assert.Equal(t, 50, cfg.MessageCredits)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
}

func TestLoadBadIntFallsBack(t *testing.T) {
	t.Setenv("MESSAGE_CREDITS", "lots")
	cfg := Load()
	assert.Equal(t, -1, cfg.MessageCredits)
}
