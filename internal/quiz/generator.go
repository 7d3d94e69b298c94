// Package quiz generates multiple-choice questions from tutoring session
// text and grades answers locally.
//
// Generation is one model call whose output must parse into a JSON array of
// question items. Models often wrap the array in prose, so parsing makes one
// recovery attempt — extracting the outermost array substring — before
// surfacing a [GenerationError] that carries the raw payload for diagnosis.
// Grading never leaves the process.
package quiz

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/studyloop/studyloop/pkg/provider/llm"
)

// DefaultQuestionCount is the number of questions requested per quiz.
const DefaultQuestionCount = 3

// optionCount is the number of choices per question.
const optionCount = 4

// MCQItem is a single multiple-choice question.
type MCQItem struct {
	// Question is the question text.
	Question string `json:"question"`

	// Options holds exactly four answer choices in display order.
	Options []string `json:"options"`

	// Answer is the correct choice; always one of Options.
	Answer string `json:"answer"`
}

// Validate checks the data contract for a generated item: four non-empty
// options and an answer that is one of them. A violation is an upstream
// payload defect, not a local bug.
func (m MCQItem) Validate() error {
	if strings.TrimSpace(m.Question) == "" {
		return fmt.Errorf("quiz: item has empty question")
	}
	if len(m.Options) != optionCount {
		return fmt.Errorf("quiz: item %q has %d options, want %d", m.Question, len(m.Options), optionCount)
	}
	for i, opt := range m.Options {
		if strings.TrimSpace(opt) == "" {
			return fmt.Errorf("quiz: item %q has empty option %d", m.Question, i)
		}
	}
	for _, opt := range m.Options {
		if opt == m.Answer {
			return nil
		}
	}
	return fmt.Errorf("quiz: item %q answer %q is not among its options", m.Question, m.Answer)
}

// GenerationError reports a failed or unparseable generation attempt.
// Raw preserves the model's verbatim output for diagnosis.
type GenerationError struct {
	// Raw is the unmodified model payload, empty when the call itself failed.
	Raw string

	// Err is the underlying cause.
	Err error
}

// Error implements error.
func (e *GenerationError) Error() string {
	return fmt.Sprintf("quiz: generation failed: %v", e.Err)
}

// Unwrap returns the underlying cause.
func (e *GenerationError) Unwrap() error {
	return e.Err
}

// Generator produces quizzes from source text via a language model.
type Generator struct {
	llm           llm.Provider
	questionCount int
}

// NewGenerator creates a Generator requesting questionCount questions per
// quiz. Non-positive counts default to [DefaultQuestionCount].
func NewGenerator(provider llm.Provider, questionCount int) *Generator {
	if questionCount <= 0 {
		questionCount = DefaultQuestionCount
	}
	return &Generator{llm: provider, questionCount: questionCount}
}

// approxBytesPerToken is the rough byte-per-token ratio used to convert the
// model's token-denominated context window into a source text byte budget.
const approxBytesPerToken = 4

// promptReserveTokens is held back from the context window for the
// instruction wrapper around the source text.
const promptReserveTokens = 512

// capSource trims sourceText so that instructions, source, and the response
// all fit the model's context window. Unknown capabilities (zero context
// window) leave the text untouched.
func capSource(sourceText string, caps llm.ModelCapabilities) string {
	if caps.ContextWindow <= 0 {
		return sourceText
	}
	budget := caps.ContextWindow - caps.MaxOutputTokens - promptReserveTokens
	if budget <= 0 {
		budget = promptReserveTokens
	}
	maxBytes := budget * approxBytesPerToken
	if len(sourceText) <= maxBytes {
		return sourceText
	}
	// Conversations repeat their themes; the head is enough to quiz on.
	return sourceText[:maxBytes]
}

// Generate makes one model call and returns the parsed, validated items.
// sourceText is either a free-form topic or accumulated conversation text,
// trimmed to the model's context window. All failures — transport, parse,
// shape, item contract — surface as a *GenerationError.
func (g *Generator) Generate(ctx context.Context, sourceText string) ([]MCQItem, error) {
	sourceText = capSource(sourceText, g.llm.Capabilities())

	prompt := fmt.Sprintf(
		"Generate %d multiple-choice questions (MCQs) with %d options each and the correct answer, "+
			"based on the following topic or conversation. Format the output as a JSON array with objects "+
			"containing 'question', 'options' (array), and 'answer' (string):\n\n%s",
		g.questionCount, optionCount, sourceText,
	)

	resp, err := g.llm.Complete(ctx, llm.CompletionRequest{
		Messages:    []llm.Message{{Role: "user", Content: prompt}},
		Temperature: 0.7,
	})
	if err != nil {
		return nil, &GenerationError{Err: err}
	}

	items, err := parseItems(resp.Content)
	if err != nil {
		return nil, &GenerationError{Raw: resp.Content, Err: err}
	}

	if len(items) != g.questionCount {
		return nil, &GenerationError{
			Raw: resp.Content,
			Err: fmt.Errorf("got %d items, want %d", len(items), g.questionCount),
		}
	}
	for _, item := range items {
		if err := item.Validate(); err != nil {
			return nil, &GenerationError{Raw: resp.Content, Err: err}
		}
	}
	return items, nil
}

// parseItems attempts a direct JSON parse, then falls back to extracting the
// outermost array substring from prose-wrapped output.
func parseItems(raw string) ([]MCQItem, error) {
	var items []MCQItem
	if err := json.Unmarshal([]byte(raw), &items); err == nil {
		return items, nil
	}

	sub, ok := extractArray(raw)
	if !ok {
		return nil, fmt.Errorf("no JSON array found in model output")
	}
	if err := json.Unmarshal([]byte(sub), &items); err != nil {
		return nil, fmt.Errorf("parse extracted array: %w", err)
	}
	return items, nil
}

// extractArray returns the substring spanning the first '[' to the last ']'
// of raw, so arrays wrapped in prose still parse.
func extractArray(raw string) (string, bool) {
	start := strings.Index(raw, "[")
	end := strings.LastIndex(raw, "]")
	if start == -1 || end == -1 || end < start {
		return "", false
	}
	return raw[start : end+1], true
}

// Score counts how many answers match the corresponding item's correct
// answer. answers[i] grades items[i]; an empty string means unanswered and
// never matches. Extra answers beyond the item count are ignored.
func Score(items []MCQItem, answers []string) int {
	score := 0
	for i, item := range items {
		if i >= len(answers) {
			break
		}
		if answers[i] != "" && answers[i] == item.Answer {
			score++
		}
	}
	return score
}
