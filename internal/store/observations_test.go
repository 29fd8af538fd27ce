package store_test

import (
	"testing"

	"github.com/brindlecode/codemem/internal/store"
)

func TestAddObservation_BumpsSessionCount(t *testing.T) {
	s := newTestStore(t)
	s.StartSession("sess-1", "proj", "seed")

	o, err := s.AddObservation(store.Observation{
		SessionID:     "sess-1",
		ToolName:      "Edit",
		Type:          store.ObsWrite,
		FilesModified: []string{"main.go"},
	})
	if err != nil {
		t.Fatalf("AddObservation: %v", err)
	}
	if o.ID == "" {
		t.Fatal("expected generated id")
	}

	sess, _ := s.GetSession("sess-1")
	if sess.ObservationCount != 1 {
		t.Fatalf("expected observation count 1, got %d", sess.ObservationCount)
	}
}

func TestObservationsForSession_OrderedByTimestamp(t *testing.T) {
	s := newTestStore(t)
	s.StartSession("sess-1", "proj", "seed")

	s.AddObservation(store.Observation{SessionID: "sess-1", ToolName: "Read", Timestamp: 100})
	s.AddObservation(store.Observation{SessionID: "sess-1", ToolName: "Write", Timestamp: 200})

	all, err := s.ObservationsForSession("sess-1")
	if err != nil {
		t.Fatalf("ObservationsForSession: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 observations, got %d", len(all))
	}
	if all[0].ToolName != "Read" || all[1].ToolName != "Write" {
		t.Fatalf("expected ascending timestamp order, got %+v", all)
	}
}

func TestTimeline_BoundedByTimestampRange(t *testing.T) {
	s := newTestStore(t)
	s.StartSession("sess-1", "proj", "seed")

	s.AddObservation(store.Observation{SessionID: "sess-1", ToolName: "a", Timestamp: 100})
	s.AddObservation(store.Observation{SessionID: "sess-1", ToolName: "b", Timestamp: 200})
	s.AddObservation(store.Observation{SessionID: "sess-1", ToolName: "c", Timestamp: 300})

	mid, err := s.Timeline("sess-1", 100, 300, 10)
	if err != nil {
		t.Fatalf("Timeline: %v", err)
	}
	if len(mid) != 1 || mid[0].ToolName != "b" {
		t.Fatalf("expected only the middle observation, got %+v", mid)
	}
}
