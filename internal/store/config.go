package store

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"mesa-chat-backend/internal/flow"
	"mesa-chat-backend/internal/order"
	"mesa-chat-backend/internal/types"
)

// ChatbotConfig is one chatbot's long-lived content: actions, menu catalog
// and flow graph. The core only reads it; an external editor owns mutation.
type ChatbotConfig struct {
	ChatbotID    string                   `yaml:"chatbotId"`
	SystemPrompt string                   `yaml:"systemPrompt,omitempty"`
	Model        string                   `yaml:"model,omitempty"`
	Actions      []types.ActionDescriptor `yaml:"actions,omitempty"`
	Catalog      *order.MenuCatalog       `yaml:"catalog,omitempty"`
	Flow         *flow.Graph              `yaml:"flow,omitempty"`
}

// FileConfigStore loads chatbot configuration from one YAML file per chatbot.
// Each request loads a fresh snapshot and treats it as immutable for the
// turn's duration.
type FileConfigStore struct {
	dir string
}

func NewFileConfigStore(dir string) *FileConfigStore {
	return &FileConfigStore{dir: dir}
}

// Load returns the chatbot's config, or nil when no such chatbot exists.
func (f *FileConfigStore) Load(chatbotID string) (*ChatbotConfig, error) {
	if chatbotID == "" || chatbotID != filepath.Base(chatbotID) {
		return nil, nil
	}
	path := filepath.Join(f.dir, chatbotID+".yaml")
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read chatbot config: %w", err)
	}
	var cfg ChatbotConfig
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse chatbot config %s: %w", path, err)
	}
	if cfg.ChatbotID == "" {
		cfg.ChatbotID = chatbotID
	}
	if cfg.Flow != nil {
		if err := cfg.Flow.Validate(); err != nil {
			return nil, fmt.Errorf("chatbot %s flow graph: %w", chatbotID, err)
		}
	}
	return &cfg, nil
}
