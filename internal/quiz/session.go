package quiz

import (
	"errors"
	"fmt"
)

// Mode selects how a quiz is presented. Both modes share the same selection
// and scoring state; the mode only changes which items are visible and when
// submission is allowed.
type Mode string

const (
	// ModeAllAtOnce shows every question; submission is always available.
	ModeAllAtOnce Mode = "all"

	// ModeSingleQuestion shows one question at a time with next/previous
	// navigation; submission requires the visible question to be answered.
	ModeSingleQuestion Mode = "single"
)

// IsValid reports whether m is a recognised presentation mode.
func (m Mode) IsValid() bool {
	return m == ModeAllAtOnce || m == ModeSingleQuestion
}

// ErrAlreadySubmitted is returned by mutating calls after Submit.
var ErrAlreadySubmitted = errors.New("quiz: already submitted")

// Session tracks one quiz attempt: the items, the selected answers, and the
// submit-once lifecycle. Not safe for concurrent use; a quiz attempt belongs
// to a single caller.
type Session struct {
	items     []MCQItem
	selected  []string
	mode      Mode
	current   int
	submitted bool
	score     int
}

// NewSession creates a quiz attempt over items in the given mode.
func NewSession(items []MCQItem, mode Mode) *Session {
	if !mode.IsValid() {
		mode = ModeAllAtOnce
	}
	return &Session{
		items:    items,
		selected: make([]string, len(items)),
		mode:     mode,
	}
}

// Items returns the quiz items.
func (s *Session) Items() []MCQItem {
	return s.items
}

// Select records option as the answer for item index i. Selections may be
// changed freely until Submit.
func (s *Session) Select(i int, option string) error {
	if s.submitted {
		return ErrAlreadySubmitted
	}
	if i < 0 || i >= len(s.items) {
		return fmt.Errorf("quiz: question index %d out of range", i)
	}
	s.selected[i] = option
	return nil
}

// Visible returns the indexes of the currently presented items: all of them
// in [ModeAllAtOnce], only the current one in [ModeSingleQuestion].
func (s *Session) Visible() []int {
	if s.mode == ModeSingleQuestion {
		if len(s.items) == 0 {
			return nil
		}
		return []int{s.current}
	}
	idx := make([]int, len(s.items))
	for i := range idx {
		idx[i] = i
	}
	return idx
}

// Next advances to the next question in single-question mode. It reports
// whether the position changed.
func (s *Session) Next() bool {
	if s.mode != ModeSingleQuestion || s.current >= len(s.items)-1 {
		return false
	}
	s.current++
	return true
}

// Prev moves back to the previous question in single-question mode. It
// reports whether the position changed.
func (s *Session) Prev() bool {
	if s.mode != ModeSingleQuestion || s.current <= 0 {
		return false
	}
	s.current--
	return true
}

// CanSubmit reports whether submission is currently allowed. All-at-once
// quizzes may always submit; single-question quizzes require the visible
// question to have a selected answer.
func (s *Session) CanSubmit() bool {
	if s.submitted {
		return false
	}
	if s.mode == ModeSingleQuestion {
		return len(s.items) > 0 && s.selected[s.current] != ""
	}
	return true
}

// Submit locks the attempt and computes the score. Further Select and
// Submit calls fail with [ErrAlreadySubmitted].
func (s *Session) Submit() (int, error) {
	if s.submitted {
		return 0, ErrAlreadySubmitted
	}
	if !s.CanSubmit() {
		return 0, errors.New("quiz: current question has no selected answer")
	}
	s.submitted = true
	s.score = Score(s.items, s.selected)
	return s.score, nil
}

// Submitted reports whether the attempt has been submitted.
func (s *Session) Submitted() bool {
	return s.submitted
}
