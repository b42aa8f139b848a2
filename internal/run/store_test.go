package run

import (
	"testing"
	"time"
)

func TestStore_GetReturnsCopy(t *testing.T) {
	s := NewStore()
	s.Put(Run{ID: "a", Status: StatusPending})

	r, ok := s.Get("a")
	if !ok {
		t.Fatal("run missing")
	}
	r.Status = StatusFailed
	r.Progress = 99

	again, _ := s.Get("a")
	if again.Status != StatusPending || again.Progress != 0 {
		t.Fatalf("store record mutated through copy: %+v", again)
	}
}

func TestStore_UpdateUnknownRun(t *testing.T) {
	s := NewStore()
	if s.Update("nope", func(r *Run) { r.Progress = 1 }) {
		t.Fatal("update of unknown run must report false")
	}
}

func TestStore_ListNewestFirst(t *testing.T) {
	s := NewStore()
	base := time.Now()
	s.Put(Run{ID: "old", StartedAt: base.Add(-time.Hour)})
	s.Put(Run{ID: "new", StartedAt: base})

	list := s.List()
	if len(list) != 2 || list[0].ID != "new" || list[1].ID != "old" {
		t.Fatalf("order: %+v", list)
	}
}

func TestEventBroker_PublishKeepsLatest(t *testing.T) {
	b := NewEventBroker()
	b.Allocate("r1", 1)

	b.Publish(Event{Type: EventProgress, RunID: "r1", Progress: 5})
	b.Publish(Event{Type: EventProgress, RunID: "r1", Progress: 15})

	ch, _ := b.Get("r1")
	ev := <-ch
	if ev.Progress != 15 {
		t.Fatalf("expected latest event, got progress %d", ev.Progress)
	}
}

func TestEventBroker_PublishUnknownRunIsNoop(t *testing.T) {
	b := NewEventBroker()
	b.Publish(Event{Type: EventProgress, RunID: "ghost", Progress: 5})
}

func TestEventBroker_CloseTerminatesWatchers(t *testing.T) {
	b := NewEventBroker()
	ch := b.Allocate("r1", 4)
	b.Publish(Event{Type: EventCompleted, RunID: "r1", Progress: 100})
	b.Close("r1")

	var last Event
	for ev := range ch {
		last = ev
	}
	if last.Type != EventCompleted {
		t.Fatalf("last event: %+v", last)
	}
}
