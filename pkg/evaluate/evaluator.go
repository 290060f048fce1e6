// Package evaluate scores generated answers against reference answers
// using the LLM as judge.
package evaluate

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/ragpipe/ragpipe/pkg/domain"
	"github.com/ragpipe/ragpipe/pkg/log"
)

// Metric names reported by the evaluator.
const (
	MetricFaithfulness     = "faithfulness"
	MetricAnswerRelevancy  = "answer_relevancy"
	MetricContextRecall    = "context_recall"
	MetricContextPrecision = "context_precision"
)

const judgePromptTemplate = `You are evaluating a retrieval-augmented answer. Score each criterion from 0.0 to 1.0.

- faithfulness: every claim in the answer is supported by the contexts.
- answer_relevancy: the answer directly addresses the question.
- context_recall: the contexts contain the information needed to produce the ground truth answer.
- context_precision: the contexts are relevant to the question, with little noise.

Question: %s

Contexts:
%s

Answer: %s

Ground truth: %s

Respond with only a JSON object, no prose:
{"faithfulness": <float>, "answer_relevancy": <float>, "context_recall": <float>, "context_precision": <float>}`

type judgeScores struct {
	Faithfulness     *float64 `json:"faithfulness"`
	AnswerRelevancy  *float64 `json:"answer_relevancy"`
	ContextRecall    *float64 `json:"context_recall"`
	ContextPrecision *float64 `json:"context_precision"`
}

// Evaluator scores evaluation records with an LLM judge.
type Evaluator struct {
	judge  domain.Generator
	logger *slog.Logger
}

// New creates an evaluator backed by the given judge LLM.
func New(judge domain.Generator) (*Evaluator, error) {
	if judge == nil {
		return nil, fmt.Errorf("%w: judge is required", domain.ErrConfigurationError)
	}
	return &Evaluator{judge: judge, logger: log.WithModule("evaluate")}, nil
}

// Dataset is a validated collection of evaluation records.
type Dataset struct {
	Records []domain.EvalRecord
}

// NewDataset builds a dataset from parallel arrays. All four slices must
// have the same length.
func NewDataset(questions []string, contexts [][]string, answers, groundTruths []string) (*Dataset, error) {
	n := len(questions)
	if len(contexts) != n || len(answers) != n || len(groundTruths) != n {
		return nil, fmt.Errorf("%w: mismatched lengths: %d questions, %d contexts, %d answers, %d ground truths",
			domain.ErrInvalidInput, n, len(contexts), len(answers), len(groundTruths))
	}
	if n == 0 {
		return nil, fmt.Errorf("%w: empty dataset", domain.ErrInvalidInput)
	}

	records := make([]domain.EvalRecord, n)
	for i := 0; i < n; i++ {
		records[i] = domain.EvalRecord{
			Question:    questions[i],
			Contexts:    contexts[i],
			Answer:      answers[i],
			GroundTruth: groundTruths[i],
		}
	}
	return &Dataset{Records: records}, nil
}

// LoadDataset reads a JSON array of evaluation records from path.
func LoadDataset(path string) (*Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read dataset: %w", err)
	}

	var records []domain.EvalRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("%w: parse dataset: %v", domain.ErrInvalidInput, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: empty dataset", domain.ErrInvalidInput)
	}
	for i, rec := range records {
		if rec.Question == "" {
			return nil, fmt.Errorf("%w: record %d has no question", domain.ErrInvalidInput, i)
		}
	}
	return &Dataset{Records: records}, nil
}

// Result holds per-metric averages over a dataset.
type Result struct {
	Metrics map[string]float64 `json:"metrics"`
	Records int                `json:"records"`
}

// Evaluate scores every record and returns the per-metric averages.
// A malformed judge response fails the run.
func (e *Evaluator) Evaluate(ctx context.Context, dataset *Dataset) (*Result, error) {
	if dataset == nil || len(dataset.Records) == 0 {
		return nil, fmt.Errorf("%w: empty dataset", domain.ErrInvalidInput)
	}

	totals := map[string]float64{
		MetricFaithfulness:     0,
		MetricAnswerRelevancy:  0,
		MetricContextRecall:    0,
		MetricContextPrecision: 0,
	}

	for i, rec := range dataset.Records {
		scores, err := e.judgeRecord(ctx, rec)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		for name, score := range scores {
			totals[name] += score
		}
		e.logger.Debug("record scored", "index", i, "scores", scores)
	}

	n := float64(len(dataset.Records))
	metrics := make(map[string]float64, len(totals))
	for name, total := range totals {
		metrics[name] = total / n
	}

	return &Result{Metrics: metrics, Records: len(dataset.Records)}, nil
}

func (e *Evaluator) judgeRecord(ctx context.Context, rec domain.EvalRecord) (map[string]float64, error) {
	var contextBlock strings.Builder
	for i, c := range rec.Contexts {
		fmt.Fprintf(&contextBlock, "[%d] %s\n", i+1, c)
	}

	prompt := fmt.Sprintf(judgePromptTemplate, rec.Question, contextBlock.String(), rec.Answer, rec.GroundTruth)

	response, err := e.judge.Generate(ctx, prompt, &domain.GenerationOptions{Temperature: 0})
	if err != nil {
		return nil, fmt.Errorf("judge call: %w", err)
	}

	return parseJudgeResponse(response)
}

// parseJudgeResponse extracts the metric scores from the judge output.
// Models sometimes wrap the JSON in a code fence; strip it before parsing.
func parseJudgeResponse(response string) (map[string]float64, error) {
	cleaned := strings.TrimSpace(response)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	var scores judgeScores
	if err := json.Unmarshal([]byte(cleaned), &scores); err != nil {
		return nil, fmt.Errorf("%w: judge returned invalid JSON: %v", domain.ErrEvaluationFailed, err)
	}

	out := make(map[string]float64, 4)
	for name, value := range map[string]*float64{
		MetricFaithfulness:     scores.Faithfulness,
		MetricAnswerRelevancy:  scores.AnswerRelevancy,
		MetricContextRecall:    scores.ContextRecall,
		MetricContextPrecision: scores.ContextPrecision,
	} {
		if value == nil {
			return nil, fmt.Errorf("%w: judge response missing %s", domain.ErrEvaluationFailed, name)
		}
		if *value < 0 || *value > 1 {
			return nil, fmt.Errorf("%w: %s score %.3f outside [0,1]", domain.ErrEvaluationFailed, name, *value)
		}
		out[name] = *value
	}
	return out, nil
}
