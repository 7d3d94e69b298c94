package transcript

import (
	"reflect"
	"testing"
)

func TestSegmenter_BasicTurns(t *testing.T) {
	seg := NewSegmenter()

	if closed := seg.Push(Event{ID: "u1", Speaker: SpeakerUser, Text: "what is a queue", Sequence: 1}); closed != nil {
		t.Fatalf("first user event should not close a turn, got %+v", closed)
	}
	if closed := seg.Push(Event{ID: "t1", Speaker: SpeakerTutor, Text: "A queue is FIFO.", Sequence: 2}); closed != nil {
		t.Fatalf("tutor event should not close a turn, got %+v", closed)
	}

	closed := seg.Push(Event{ID: "u2", Speaker: SpeakerUser, Text: "thanks", Sequence: 3})
	if closed == nil {
		t.Fatal("second user event should close the first turn")
	}
	if closed.ID != "u1" {
		t.Errorf("turn ID = %q, want u1 (opening event ID)", closed.ID)
	}
	if closed.UserText != "what is a queue" {
		t.Errorf("UserText = %q", closed.UserText)
	}
	if !reflect.DeepEqual(closed.TutorTexts, []string{"A queue is FIFO."}) {
		t.Errorf("TutorTexts = %v", closed.TutorTexts)
	}

	last := seg.Flush()
	if last == nil || last.ID != "u2" {
		t.Fatalf("Flush = %+v, want open turn u2", last)
	}
	if len(last.TutorTexts) != 0 {
		t.Errorf("TutorTexts = %v, want empty", last.TutorTexts)
	}
	if seg.Flush() != nil {
		t.Error("second Flush should return nil")
	}
}

func TestSegmenter_OrphanTutorEventsDropped(t *testing.T) {
	seg := NewSegmenter()

	// Tutor utterances before any user event are unattributable.
	seg.Push(Event{ID: "t0", Speaker: SpeakerTutor, Text: "Welcome!", Sequence: 1})
	seg.Push(Event{ID: "t1", Speaker: SpeakerTutor, Text: "Ready when you are.", Sequence: 2})

	if seg.Open() != nil {
		t.Error("no turn should be open after orphan tutor events")
	}
	if seg.Flush() != nil {
		t.Error("orphan prefix must produce zero turns")
	}
}

func TestParse_SpecTranscript(t *testing.T) {
	input := "CLIENT: what is a queue\nAVATAR: A queue is FIFO.\nCLIENT: thanks"

	turns := Parse(input)
	if len(turns) != 2 {
		t.Fatalf("got %d turns, want 2", len(turns))
	}
	if turns[0].UserText != "what is a queue" {
		t.Errorf("turn 1 UserText = %q", turns[0].UserText)
	}
	if !reflect.DeepEqual(turns[0].TutorTexts, []string{"A queue is FIFO."}) {
		t.Errorf("turn 1 TutorTexts = %v", turns[0].TutorTexts)
	}
	if turns[1].UserText != "thanks" {
		t.Errorf("turn 2 UserText = %q", turns[1].UserText)
	}
	if len(turns[1].TutorTexts) != 0 {
		t.Errorf("turn 2 TutorTexts = %v, want empty", turns[1].TutorTexts)
	}
}

func TestParse_Continuations(t *testing.T) {
	input := "CLIENT: explain\nmerge sort\nAVATAR: Divide the list.\nThen merge halves."

	turns := Parse(input)
	if len(turns) != 1 {
		t.Fatalf("got %d turns, want 1", len(turns))
	}
	if turns[0].UserText != "explain\nmerge sort" {
		t.Errorf("UserText = %q", turns[0].UserText)
	}
	if !reflect.DeepEqual(turns[0].TutorTexts, []string{"Divide the list.\nThen merge halves."}) {
		t.Errorf("TutorTexts = %v", turns[0].TutorTexts)
	}
}

func TestParse_LeadingTutorLinesDropped(t *testing.T) {
	input := "AVATAR: Hello there!\nCLIENT: hi\nAVATAR: How can I help?"

	turns := Parse(input)
	if len(turns) != 1 {
		t.Fatalf("got %d turns, want 1", len(turns))
	}
	if turns[0].UserText != "hi" {
		t.Errorf("UserText = %q", turns[0].UserText)
	}
	if !reflect.DeepEqual(turns[0].TutorTexts, []string{"How can I help?"}) {
		t.Errorf("TutorTexts = %v", turns[0].TutorTexts)
	}
}

func TestParse_SkipsBlankLines(t *testing.T) {
	input := "CLIENT: hello\n\n\nAVATAR: hi\n\n"

	turns := Parse(input)
	if len(turns) != 1 {
		t.Fatalf("got %d turns, want 1", len(turns))
	}
	if !reflect.DeepEqual(turns[0].TutorTexts, []string{"hi"}) {
		t.Errorf("TutorTexts = %v", turns[0].TutorTexts)
	}
}

func TestParse_Empty(t *testing.T) {
	if turns := Parse(""); len(turns) != 0 {
		t.Errorf("got %d turns, want 0", len(turns))
	}
	if turns := Parse("   \n  \n"); len(turns) != 0 {
		t.Errorf("got %d turns for whitespace input, want 0", len(turns))
	}
}

// Re-running the segmenter on its own re-serialised output must yield the
// same turns.
func TestParse_Idempotent(t *testing.T) {
	inputs := []string{
		"CLIENT: what is a queue\nAVATAR: A queue is FIFO.\nCLIENT: thanks",
		"AVATAR: orphan\nCLIENT: a\nAVATAR: b\nAVATAR: c\nCLIENT: d",
		"CLIENT: multi\nline question\nAVATAR: multi\nline answer",
	}

	for _, input := range inputs {
		first := Parse(input)
		second := Parse(Render(first))

		if len(first) != len(second) {
			t.Fatalf("input %q: turn count %d != %d", input, len(first), len(second))
		}
		for i := range first {
			if first[i].UserText != second[i].UserText {
				t.Errorf("input %q turn %d: UserText %q != %q", input, i, first[i].UserText, second[i].UserText)
			}
			if !reflect.DeepEqual(first[i].TutorTexts, second[i].TutorTexts) {
				t.Errorf("input %q turn %d: TutorTexts %v != %v", input, i, first[i].TutorTexts, second[i].TutorTexts)
			}
		}
	}
}
