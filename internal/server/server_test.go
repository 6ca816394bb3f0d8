package server

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/sgdevreal/stimmo/internal/pipeline"
)

// snapEngine serves a fresh snapshot ID on every call unless frozen.
type snapEngine struct {
	Engine
	calls  int
	frozen bool
	err    error
}

func (e *snapEngine) Snapshots(context.Context) ([]pipeline.Snapshot, error) {
	if e.err != nil {
		return nil, e.err
	}
	if !e.frozen {
		e.calls++
	}
	return []pipeline.Snapshot{{
		ID:        fmt.Sprintf("snap-%d", e.calls),
		Table:     "aggregated_table",
		Partition: "2024-07-01",
		FetchedAt: time.Date(2024, 7, 1, 9, 0, 0, 0, time.UTC),
		Rows:      10,
	}}, nil
}

func TestChanged(t *testing.T) {
	a := []SnapshotResponse{{ID: "a"}}
	tests := []struct {
		name       string
		prev, curr []SnapshotResponse
		want       bool
	}{
		{"first poll", nil, a, true},
		{"same", a, []SnapshotResponse{{ID: "a"}}, false},
		{"new id", a, []SnapshotResponse{{ID: "b"}}, true},
		{"extra table", a, []SnapshotResponse{{ID: "a"}, {ID: "c"}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := changed(tt.prev, tt.curr); got != tt.want {
				t.Fatalf("changed() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPollEventRingBuffer(t *testing.T) {
	e := &snapEngine{}
	s := New(e, Config{EventsBuffer: 2})

	for range 3 {
		s.pollOnce(context.Background())
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.events) != 2 {
		t.Fatalf("events len = %d, want 2", len(s.events))
	}
	if s.events[0].ID != 2 || s.events[1].ID != 3 {
		t.Fatalf("events ring contains IDs [%d, %d], want [2, 3]", s.events[0].ID, s.events[1].ID)
	}
	if s.events[1].Type != "refresh" {
		t.Fatalf("event type = %q, want refresh", s.events[1].Type)
	}
}

func TestPollUnchangedSnapshotNoEvent(t *testing.T) {
	e := &snapEngine{frozen: true}
	s := New(e, Config{})

	s.pollOnce(context.Background())
	s.pollOnce(context.Background())

	st := s.Status()
	if st.PollCount != 2 || st.EventCount != 1 {
		t.Fatalf("status = %+v, want 2 polls and 1 event", st)
	}
}

func TestPollErrorKeepsSnapshots(t *testing.T) {
	e := &snapEngine{}
	s := New(e, Config{})
	s.pollOnce(context.Background())

	e.err = errors.New("datastore down")
	s.pollOnce(context.Background())

	st := s.Status()
	if st.LastError != "datastore down" {
		t.Fatalf("LastError = %q", st.LastError)
	}
	if len(st.Snapshots) != 1 || st.Snapshots[0].ID != "snap-1" {
		t.Fatalf("snapshots = %+v, want previous snapshot kept", st.Snapshots)
	}
}
