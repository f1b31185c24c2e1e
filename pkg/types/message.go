package types

// MessageRole identifies the author of a conversation message.
type MessageRole string

const (
	RoleSystem    MessageRole = "system"
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

// Message is one entry in the session conversation log.
type Message struct {
	Role    MessageRole `json:"role"`
	Content string      `json:"content"`
}

// NewMessage creates a message with the given role and content.
func NewMessage(role MessageRole, content string) *Message {
	return &Message{Role: role, Content: content}
}

// ContextSnippet is one ranked file excerpt handed to the planner. The
// retriever produces the initial snippets; the orchestration loop refreshes
// entries in place as files change during a run.
type ContextSnippet struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

// ModelInfo describes the LLM a provider is configured to use.
type ModelInfo struct {
	// Name is the model identifier (e.g. "claude-3-5-sonnet-20241022").
	Name string

	// Provider is the backing service ("anthropic", "openai", ...).
	Provider string

	// SupportsStreaming indicates whether the provider streams responses.
	SupportsStreaming bool

	// MaxTokens is the default completion token limit.
	MaxTokens int

	// Metadata holds provider-specific details (base URL, etc.).
	Metadata map[string]interface{}
}
