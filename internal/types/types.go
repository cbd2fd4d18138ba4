package types

// ChatMessage is one entry of the inbound conversation history.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is the inbound chat-turn body. For flow-graph turns the client
// sends nodeId/optionIndex instead of relying on free-form generation.
type ChatRequest struct {
	ConversationID string        `json:"conversationId,omitempty"`
	ChatbotID      string        `json:"chatbotId"`
	Messages       []ChatMessage `json:"messages,omitempty"`
	Message        string        `json:"message,omitempty"`
	Language       string        `json:"language,omitempty"`
	Model          string        `json:"model,omitempty"`
	Temperature    float32       `json:"temperature,omitempty"`
	MaxTokens      int           `json:"maxTokens,omitempty"`
	SystemPrompt   string        `json:"systemPrompt,omitempty"`
	NodeID         string        `json:"nodeId,omitempty"`
	SelectedOption string        `json:"selectedOption,omitempty"`
	OptionIndex    *int          `json:"optionIndex,omitempty"`
}

// FlowReply is the non-streaming response for a scripted flow-graph turn.
type FlowReply struct {
	ConversationID string   `json:"conversationId"`
	NodeID         string   `json:"nodeId"`
	Message        string   `json:"message"`
	Question       string   `json:"question,omitempty"`
	Options        []string `json:"options,omitempty"`
	Image          string   `json:"image,omitempty"`
	IsFlow         bool     `json:"isFlow"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

// ActionKind is the closed set of tool-action families a chatbot can enable.
type ActionKind string

const (
	ActionScheduling ActionKind = "scheduling"
	ActionOrders     ActionKind = "orders"
)

// ActionDescriptor is owned by configuration storage and read-only here.
type ActionDescriptor struct {
	Type      ActionKind     `json:"type" yaml:"type"`
	ChatbotID string         `json:"chatbotId" yaml:"chatbotId"`
	Enabled   bool           `json:"enabled" yaml:"enabled"`
	Metadata  map[string]any `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// FirstEnabled returns the first enabled descriptor of the given kind, or nil.
func FirstEnabled(actions []ActionDescriptor, kind ActionKind) *ActionDescriptor {
	for i := range actions {
		if actions[i].Enabled && actions[i].Type == kind {
			return &actions[i]
		}
	}
	return nil
}
