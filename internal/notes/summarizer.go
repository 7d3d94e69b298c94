// Package notes condenses tutor utterances into terse study notes.
//
// The [LLMSummarizer] makes one model call per non-empty tutor turn and
// renders a whole conversation into the notes format the front-end displays:
// user turns pass through verbatim, tutor turns are replaced by their
// summaries. A failed model call affects only the turn (or request) it
// belongs to; nothing here is fatal to a session.
package notes

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/studyloop/studyloop/internal/transcript"
	"github.com/studyloop/studyloop/pkg/provider/llm"
)

// ErrSummarizationFailed indicates the model call for one turn failed.
// Callers match it with errors.Is.
var ErrSummarizationFailed = errors.New("summarization failed")

// notesPrompt instructs the model to produce terse, factual study notes.
// Prompt wording is configuration, not logic; tests only assert that a
// prompt is sent, never its text.
const notesPrompt = `You are a concise note-taker for a learning session. Extract and summarize only the essential information, concepts, definitions, and key points from the tutor's message.
Present this information directly as clear, factual notes.
Do NOT include conversational filler, descriptions of the tutor's actions, or acknowledgements.
Aim for brevity and directness, as if creating flashcards or study points. Use bullet points or short, descriptive sentences.

Example:
Tutor message: "Machine learning is a field of artificial intelligence that enables systems to learn from data without being explicitly programmed."
Notes: "Machine Learning (ML): Field of AI where systems learn from data without explicit programming."`

// Summarizer produces condensed notes from a text blob.
type Summarizer interface {
	// Summarize condenses text into study notes. Empty input returns ""
	// without making a model call.
	Summarize(ctx context.Context, text string) (string, error)
}

// LLMSummarizer uses a language model provider to produce notes.
type LLMSummarizer struct {
	llm llm.Provider
}

// NewLLMSummarizer creates an [LLMSummarizer] backed by the given provider.
func NewLLMSummarizer(provider llm.Provider) *LLMSummarizer {
	return &LLMSummarizer{llm: provider}
}

var _ Summarizer = (*LLMSummarizer)(nil)

// Summarize implements [Summarizer]. Provider failures are wrapped in
// [ErrSummarizationFailed] and scoped to this call only.
func (s *LLMSummarizer) Summarize(ctx context.Context, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", nil
	}

	resp, err := s.llm.Complete(ctx, llm.CompletionRequest{
		SystemPrompt: notesPrompt,
		Messages: []llm.Message{
			{Role: "user", Content: "Summarize the following message for learning notes:\n" + text},
		},
		Temperature: 0.3,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSummarizationFailed, err)
	}
	return strings.TrimSpace(resp.Content), nil
}

// SummarizeConversation segments a full speaker-tagged transcript and renders
// it as notes: user turns verbatim, tutor turns summarized. One model call is
// made per non-empty tutor utterance. The first failed call aborts the
// rendering and is returned to the caller; completed turns are discarded
// (the endpoint retries wholesale).
func SummarizeConversation(ctx context.Context, s Summarizer, conversationText string) (string, error) {
	turns := transcript.Parse(conversationText)

	var parts []string
	for _, turn := range turns {
		parts = append(parts, "**You:** "+turn.UserText)

		for _, tutorText := range turn.TutorTexts {
			summary, err := s.Summarize(ctx, tutorText)
			if err != nil {
				return "", err
			}
			// The label appears even when the summary is empty, so the
			// rendered notes keep the turn structure visible.
			parts = append(parts, "**AVATAR (Summarized):** "+summary)
		}
	}
	return strings.Join(parts, "\n\n"), nil
}
