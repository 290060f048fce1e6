// Package generate builds grounded answers from retrieved context.
package generate

import (
	"context"
	"fmt"
	"strings"
	"text/template"

	"github.com/ragpipe/ragpipe/pkg/domain"
)

const answerTemplate = `Based on the following document content, please answer the user's question. If the documents do not contain relevant information, please indicate that you cannot find an answer from the provided documents.

Document Content:
{{- range $i, $chunk := .Chunks}}
[Document Fragment {{inc $i}}]
{{$chunk.Content}}
{{end}}
User Question: {{.Query}}

Please provide a detailed and accurate answer based on the document content:`

var promptTmpl = template.Must(template.New("answer").
	Funcs(template.FuncMap{"inc": func(i int) int { return i + 1 }}).
	Parse(answerTemplate))

// Generator renders retrieved chunks and the question into a grounded
// prompt and asks the LLM for an answer.
type Generator struct {
	llm domain.Generator
}

// New creates a Generator backed by the given LLM.
func New(llm domain.Generator) (*Generator, error) {
	if llm == nil {
		return nil, fmt.Errorf("%w: llm is required", domain.ErrConfigurationError)
	}
	return &Generator{llm: llm}, nil
}

// ComposePrompt renders the context chunks and query into the answer
// prompt. With no chunks the question is passed through directly.
func ComposePrompt(chunks []domain.Chunk, query string) (string, error) {
	if len(chunks) == 0 {
		return fmt.Sprintf("Please answer the following question:\n\n%s", query), nil
	}

	var sb strings.Builder
	data := struct {
		Chunks []domain.Chunk
		Query  string
	}{Chunks: chunks, Query: query}

	if err := promptTmpl.Execute(&sb, data); err != nil {
		return "", fmt.Errorf("%w: render prompt: %v", domain.ErrGenerationFailed, err)
	}
	return sb.String(), nil
}

// Answer generates a grounded answer for the query from the chunks.
func (g *Generator) Answer(ctx context.Context, query string, chunks []domain.Chunk, opts *domain.GenerationOptions) (string, error) {
	if query == "" {
		return "", fmt.Errorf("%w: empty query", domain.ErrInvalidInput)
	}

	prompt, err := ComposePrompt(chunks, query)
	if err != nil {
		return "", err
	}

	answer, err := g.llm.Generate(ctx, prompt, opts)
	if err != nil {
		return "", fmt.Errorf("generate answer: %w", err)
	}
	return strings.TrimSpace(answer), nil
}
