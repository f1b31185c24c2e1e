// Package parser separates <thinking> tags from streamed LLM content so
// front ends can render reasoning apart from the response proper.
package parser

import (
	"strings"

	"github.com/craftd/anvil/pkg/llm"
)

// ThinkingParser splits streamed content into thinking and message parts.
// Tags may arrive split across deltas, so the parser buffers from '<'
// until '>' before deciding whether it saw a thinking tag. Content inside
// thinking blocks may itself contain '<' and '>' (code snippets do); a
// second '<' while buffering flushes the earlier text as plain content.
type ThinkingParser struct {
	inThinking bool
	inTag      bool
	text       strings.Builder // accumulated content outside any potential tag
	tag        strings.Builder // partial tag between '<' and '>'
}

// NewThinkingParser creates a parser for a single stream.
func NewThinkingParser() *ThinkingParser {
	return &ThinkingParser{}
}

// Parse consumes one streamed delta and returns the thinking and message
// content it completes. Either return may be nil when the delta produced
// no content of that kind.
func (p *ThinkingParser) Parse(content string) (thinking, message *llm.StreamChunk) {
	if content == "" {
		return nil, nil
	}

	var out splitContent
	for _, ch := range content {
		switch {
		case ch == '<':
			if p.inTag {
				// The buffered "<..." was not a tag after all.
				out.add(p.inThinking, p.tag.String())
				p.tag.Reset()
			}
			p.flushText(&out)
			p.inTag = true
			p.tag.WriteRune(ch)

		case ch == '>' && p.inTag:
			p.tag.WriteRune(ch)
			tag := p.tag.String()
			p.tag.Reset()
			p.inTag = false

			switch tag {
			case "<thinking>":
				p.inThinking = true
			case "</thinking>":
				p.inThinking = false
			default:
				// Some other tag; it is ordinary content.
				out.add(p.inThinking, tag)
			}

		case p.inTag:
			p.tag.WriteRune(ch)

		default:
			p.text.WriteRune(ch)
		}
	}

	p.flushText(&out)
	return out.chunks()
}

// IsInThinking reports whether the parser is inside a thinking block.
func (p *ThinkingParser) IsInThinking() bool {
	return p.inThinking
}

// Flush returns whatever is still buffered at end of stream, treating an
// unterminated tag as plain content. Call it once streaming completes.
func (p *ThinkingParser) Flush() (thinking, message *llm.StreamChunk) {
	var out splitContent

	if p.inTag && p.tag.Len() > 0 {
		out.add(p.inThinking, p.tag.String())
		p.tag.Reset()
		p.inTag = false
	}
	p.flushText(&out)

	return out.chunks()
}

// Reset clears all parser state for a new stream.
func (p *ThinkingParser) Reset() {
	p.text.Reset()
	p.tag.Reset()
	p.inThinking = false
	p.inTag = false
}

func (p *ThinkingParser) flushText(out *splitContent) {
	if p.text.Len() > 0 {
		out.add(p.inThinking, p.text.String())
		p.text.Reset()
	}
}

// splitContent accumulates parsed text into at most one thinking and one
// message chunk per call.
type splitContent struct {
	thinking strings.Builder
	message  strings.Builder
}

func (s *splitContent) add(isThinking bool, text string) {
	if text == "" {
		return
	}
	if isThinking {
		s.thinking.WriteString(text)
	} else {
		s.message.WriteString(text)
	}
}

func (s *splitContent) chunks() (thinking, message *llm.StreamChunk) {
	if s.thinking.Len() > 0 {
		thinking = &llm.StreamChunk{Content: s.thinking.String(), Type: llm.ContentTypeThinking}
	}
	if s.message.Len() > 0 {
		message = &llm.StreamChunk{Content: s.message.String(), Type: llm.ContentTypeMessage}
	}
	return thinking, message
}
