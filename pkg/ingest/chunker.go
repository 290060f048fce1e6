package ingest

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/pkoukk/tiktoken-go"

	"github.com/ragpipe/ragpipe/pkg/domain"
)

// tokenEncoding matches the tokenizer of the default embedding models.
const tokenEncoding = "cl100k_base"

// Chunker splits text into overlapping chunks using one of several
// strategies: sentence, paragraph, fixed, or token.
type Chunker struct{}

// NewChunker creates a new chunker.
func NewChunker() *Chunker {
	return &Chunker{}
}

// Split divides text into chunks according to options. Size and overlap are
// measured in characters, except for the token strategy where they are
// measured in tokens.
func (c *Chunker) Split(text string, options domain.ChunkOptions) ([]string, error) {
	if strings.TrimSpace(text) == "" {
		return []string{}, nil
	}
	if options.Size <= 0 {
		return nil, fmt.Errorf("%w: chunk size must be positive", domain.ErrChunkingFailed)
	}
	if options.Overlap < 0 || options.Overlap >= options.Size {
		return nil, fmt.Errorf("%w: overlap must be between 0 and chunk size", domain.ErrChunkingFailed)
	}

	switch options.Method {
	case "", "sentence":
		return c.combine(splitIntoSentences(text), options.Size, options.Overlap), nil
	case "paragraph":
		var sentences []string
		for _, para := range splitIntoParagraphs(text) {
			sentences = append(sentences, splitIntoSentences(para)...)
		}
		return c.combine(sentences, options.Size, options.Overlap), nil
	case "fixed":
		return c.splitFixed(text, options.Size, options.Overlap), nil
	case "token":
		return c.splitTokens(text, options.Size, options.Overlap)
	default:
		return nil, fmt.Errorf("%w: unsupported chunking strategy: %s", domain.ErrChunkingFailed, options.Method)
	}
}

// combine packs sentence units into chunks of at most size characters,
// carrying overlap characters of trailing context into the next chunk.
func (c *Chunker) combine(units []string, size, overlap int) []string {
	var chunks []string
	var current strings.Builder

	flush := func() {
		chunk := strings.TrimSpace(current.String())
		if chunk != "" {
			chunks = append(chunks, chunk)
		}
		current.Reset()
	}

	for _, unit := range units {
		unit = strings.TrimSpace(unit)
		if unit == "" {
			continue
		}

		// A single oversized unit becomes its own fixed-split chunks.
		if len([]rune(unit)) > size {
			flush()
			chunks = append(chunks, c.splitFixed(unit, size, overlap)...)
			continue
		}

		if current.Len() > 0 && current.Len()+len(unit)+1 > size {
			tail := overlapTail(current.String(), overlap)
			flush()
			if tail != "" {
				current.WriteString(tail)
				current.WriteByte(' ')
			}
		}

		if current.Len() > 0 {
			current.WriteByte(' ')
		}
		current.WriteString(unit)
	}
	flush()

	return chunks
}

func (c *Chunker) splitFixed(text string, size, overlap int) []string {
	runes := []rune(text)
	if len(runes) <= size {
		trimmed := strings.TrimSpace(text)
		if trimmed == "" {
			return nil
		}
		return []string{trimmed}
	}

	step := size - overlap
	var chunks []string
	for start := 0; start < len(runes); start += step {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		chunk := strings.TrimSpace(string(runes[start:end]))
		if chunk != "" {
			chunks = append(chunks, chunk)
		}
		if end == len(runes) {
			break
		}
	}
	return chunks
}

func (c *Chunker) splitTokens(text string, size, overlap int) ([]string, error) {
	encoding, err := tiktoken.GetEncoding(tokenEncoding)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to load tokenizer: %v", domain.ErrChunkingFailed, err)
	}

	tokens := encoding.Encode(text, nil, nil)
	if len(tokens) <= size {
		return []string{strings.TrimSpace(text)}, nil
	}

	step := size - overlap
	var chunks []string
	for start := 0; start < len(tokens); start += step {
		end := start + size
		if end > len(tokens) {
			end = len(tokens)
		}
		chunk := strings.TrimSpace(encoding.Decode(tokens[start:end]))
		if chunk != "" {
			chunks = append(chunks, chunk)
		}
		if end == len(tokens) {
			break
		}
	}
	return chunks, nil
}

// overlapTail returns the last overlap characters of text, aligned to a word
// boundary so chunks never start mid-word.
func overlapTail(text string, overlap int) string {
	if overlap <= 0 {
		return ""
	}
	runes := []rune(strings.TrimSpace(text))
	if len(runes) <= overlap {
		return string(runes)
	}
	tail := runes[len(runes)-overlap:]
	if idx := strings.IndexFunc(string(tail), unicode.IsSpace); idx >= 0 {
		return strings.TrimSpace(string(tail)[idx:])
	}
	return strings.TrimSpace(string(tail))
}

func splitIntoSentences(text string) []string {
	var sentences []string
	var current strings.Builder

	runes := []rune(text)
	for i, r := range runes {
		current.WriteRune(r)
		if isSentenceEnd(r) {
			// Lookahead: sentence ends only before whitespace or EOF.
			if i+1 >= len(runes) || unicode.IsSpace(runes[i+1]) {
				sentences = append(sentences, strings.TrimSpace(current.String()))
				current.Reset()
			}
		}
	}
	if remaining := strings.TrimSpace(current.String()); remaining != "" {
		sentences = append(sentences, remaining)
	}
	return sentences
}

func isSentenceEnd(r rune) bool {
	switch r {
	case '.', '!', '?', '。', '！', '？':
		return true
	}
	return false
}

func splitIntoParagraphs(text string) []string {
	var paragraphs []string
	for _, para := range strings.Split(text, "\n\n") {
		para = strings.TrimSpace(para)
		if para != "" {
			paragraphs = append(paragraphs, para)
		}
	}
	return paragraphs
}
