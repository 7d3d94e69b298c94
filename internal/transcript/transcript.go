// Package transcript converts raw speaker-tagged tutoring transcripts into
// ordered conversational turns.
//
// A turn opens at a user (CLIENT) event and accumulates every subsequent
// tutor (AVATAR) event until the next user event closes it. Tutor events
// that arrive before any user event have no turn to belong to and are
// dropped. The [Segmenter] handles live event streams; [Parse] handles
// complete line-based transcripts where each line is prefixed with a
// speaker tag.
package transcript

import (
	"strconv"
	"strings"

	"github.com/studyloop/studyloop/pkg/provider/imagesearch"
)

// Speaker identifies who produced a transcript event.
type Speaker string

const (
	// SpeakerUser is the learner. The front-end tags these lines "CLIENT:".
	SpeakerUser Speaker = "CLIENT"

	// SpeakerTutor is the AI avatar. The front-end tags these lines "AVATAR:".
	SpeakerTutor Speaker = "AVATAR"
)

// IsValid reports whether s is a recognised speaker.
func (s Speaker) IsValid() bool {
	return s == SpeakerUser || s == SpeakerTutor
}

// Event is a single speaker-tagged utterance produced by the streaming
// avatar collaborator. Events are immutable once created.
type Event struct {
	// ID is an opaque token identifying this event.
	ID string `json:"id"`

	// Speaker attributes the event to the user or the tutor.
	Speaker Speaker `json:"speaker"`

	// Text is the utterance text.
	Text string `json:"text"`

	// Sequence is a monotonically increasing order key assigned by the
	// collaborator.
	Sequence uint64 `json:"sequence"`
}

// Turn is one user utterance plus all tutor responses before the next user
// utterance. The Turn ID equals the ID of its opening user event.
type Turn struct {
	// ID is the opaque token of the opening user event.
	ID string `json:"id"`

	// UserText is the user's utterance that opened the turn.
	UserText string `json:"userText"`

	// TutorTexts holds tutor utterances in arrival order.
	TutorTexts []string `json:"tutorTexts"`

	// Images holds illustrative images attached by the enrichment pipeline,
	// in attachment order.
	Images []imagesearch.Image `json:"images"`
}

// Segmenter converts an ordered stream of events into turns. It maintains at
// most one open turn at a time. Not safe for concurrent use; callers
// serialise access (the session pipeline processes events on one goroutine).
type Segmenter struct {
	open *Turn
}

// NewSegmenter creates an empty Segmenter.
func NewSegmenter() *Segmenter {
	return &Segmenter{}
}

// Push feeds the next event into the segmenter. When a user event seals a
// previously open turn, that turn is returned; otherwise Push returns nil.
// Tutor events with no open turn are dropped.
func (s *Segmenter) Push(ev Event) *Turn {
	switch ev.Speaker {
	case SpeakerUser:
		closed := s.open
		s.open = &Turn{
			ID:         ev.ID,
			UserText:   ev.Text,
			TutorTexts: []string{},
		}
		return closed

	case SpeakerTutor:
		if s.open == nil {
			// A tutor utterance with no preceding user turn is
			// unattributable. Defined edge case, not an error.
			return nil
		}
		s.open.TutorTexts = append(s.open.TutorTexts, ev.Text)
	}
	return nil
}

// Open returns the currently open (incomplete) turn, or nil.
func (s *Segmenter) Open() *Turn {
	return s.open
}

// Flush seals and returns the open turn at end-of-input, or nil if no turn
// is open. The segmenter is empty afterwards.
func (s *Segmenter) Flush() *Turn {
	closed := s.open
	s.open = nil
	return closed
}

// Parse segments a complete line-based transcript into turns. Each utterance
// line starts with "CLIENT:" or "AVATAR:"; a line without a speaker tag is a
// continuation of the previous line and is joined with a newline. Blank
// lines are skipped.
//
// Parse is idempotent under re-segmentation: parsing the [Render] output of
// its own result yields the same turns.
func Parse(text string) []*Turn {
	const (
		userTag  = string(SpeakerUser) + ":"
		tutorTag = string(SpeakerTutor) + ":"
	)

	seg := NewSegmenter()
	var turns []*Turn

	// Buffered current utterance, flushed when the speaker changes.
	var curSpeaker Speaker
	var buf strings.Builder
	seq := uint64(0)

	flushUtterance := func() {
		if curSpeaker == "" {
			return
		}
		seq++
		ev := Event{Speaker: curSpeaker, Text: strings.TrimSpace(buf.String()), Sequence: seq}
		if curSpeaker == SpeakerUser {
			ev.ID = turnID(seq)
		}
		if closed := seg.Push(ev); closed != nil {
			turns = append(turns, closed)
		}
		buf.Reset()
	}

	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		switch {
		case strings.HasPrefix(line, userTag):
			flushUtterance()
			curSpeaker = SpeakerUser
			buf.WriteString(strings.TrimSpace(line[len(userTag):]))
		case strings.HasPrefix(line, tutorTag):
			flushUtterance()
			curSpeaker = SpeakerTutor
			buf.WriteString(strings.TrimSpace(line[len(tutorTag):]))
		default:
			// Continuation of the current speaker's utterance.
			if curSpeaker == "" {
				continue
			}
			buf.WriteString("\n")
			buf.WriteString(strings.TrimSpace(line))
		}
	}
	flushUtterance()

	if closed := seg.Flush(); closed != nil {
		turns = append(turns, closed)
	}
	return turns
}

// Render serialises turns back into the tagged line format accepted by
// [Parse].
func Render(turns []*Turn) string {
	var sb strings.Builder
	for _, t := range turns {
		sb.WriteString(string(SpeakerUser))
		sb.WriteString(": ")
		sb.WriteString(t.UserText)
		sb.WriteString("\n")
		for _, tt := range t.TutorTexts {
			sb.WriteString(string(SpeakerTutor))
			sb.WriteString(": ")
			sb.WriteString(tt)
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

// turnID derives a deterministic turn ID for parsed (offline) transcripts,
// where no collaborator-assigned event IDs exist.
func turnID(seq uint64) string {
	return "turn-" + strconv.FormatUint(seq, 10)
}
