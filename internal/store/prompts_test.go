package store_test

import "testing"

func TestRecordPrompt_DenseNumbering(t *testing.T) {
	s := newTestStore(t)
	s.StartSession("sess-1", "proj", "seed")

	p1, err := s.RecordPrompt("sess-1", "first prompt")
	if err != nil {
		t.Fatalf("RecordPrompt 1: %v", err)
	}
	p2, err := s.RecordPrompt("sess-1", "second prompt")
	if err != nil {
		t.Fatalf("RecordPrompt 2: %v", err)
	}
	if p1.PromptNumber != 1 || p2.PromptNumber != 2 {
		t.Fatalf("expected dense numbering 1,2 got %d,%d", p1.PromptNumber, p2.PromptNumber)
	}

	all, err := s.PromptsForSession("sess-1")
	if err != nil {
		t.Fatalf("PromptsForSession: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 prompts, got %d", len(all))
	}
}

func TestLatestPromptNumber_NoPrompts(t *testing.T) {
	s := newTestStore(t)
	s.StartSession("sess-1", "proj", "seed")

	n, err := s.LatestPromptNumber("sess-1")
	if err != nil {
		t.Fatalf("LatestPromptNumber: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected 0 for a session with no prompts, got %d", n)
	}
}

func TestRecordPrompt_IndependentPerSession(t *testing.T) {
	s := newTestStore(t)
	s.StartSession("sess-a", "proj", "seed")
	s.StartSession("sess-b", "proj", "seed")

	s.RecordPrompt("sess-a", "a1")
	p, err := s.RecordPrompt("sess-b", "b1")
	if err != nil {
		t.Fatalf("RecordPrompt: %v", err)
	}
	if p.PromptNumber != 1 {
		t.Fatalf("expected prompt numbering to restart per session, got %d", p.PromptNumber)
	}
}
