package llm

// ContentType distinguishes the kinds of content a provider can stream.
type ContentType string

const (
	// ContentTypeThinking marks reasoning content inside <thinking> tags.
	ContentTypeThinking ContentType = "thinking"

	// ContentTypeMessage marks regular response content.
	ContentTypeMessage ContentType = "message"
)

// StreamChunk is a single unit of streamed LLM output.
//
// A stream typically starts with a chunk carrying Role, continues with
// Content deltas, and ends with a chunk where Finished is true. Stream-time
// failures are delivered as a chunk with Error set, after which the channel
// closes.
type StreamChunk struct {
	// Role is the message author, set on the first chunk (e.g. "assistant").
	Role string

	// Content is the text delta carried by this chunk.
	Content string

	// Type classifies the content. An empty Type means message content.
	Type ContentType

	// Finished marks the final chunk of a completed response.
	Finished bool

	// Error carries a stream-time failure.
	Error error
}

// IsError reports whether this chunk carries an error.
func (c *StreamChunk) IsError() bool {
	return c.Error != nil
}

// IsThinking reports whether this chunk carries thinking content.
func (c *StreamChunk) IsThinking() bool {
	return c.Type == ContentTypeThinking
}
