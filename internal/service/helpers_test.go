package service

import (
	"context"
	"errors"
	"sort"
	"time"

	"parkgate/internal/device"
	"parkgate/internal/domain/parking"
)

// fakeLedger is an in-memory LedgerStore recording every mutation.
type fakeLedger struct {
	events    []*parking.Event
	incidents []*parking.Incident
	updates   map[int64]parking.SettlementUpdate

	nextID  int64
	findErr error
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{updates: map[int64]parking.SettlementUpdate{}}
}

func (l *fakeLedger) addEvent(plate string, paid bool, entry time.Time) *parking.Event {
	l.nextID++
	event := &parking.Event{
		ID:        l.nextID,
		Plate:     plate,
		Paid:      paid,
		EntryTime: entry,
	}
	l.events = append(l.events, event)
	return event
}

func (l *fakeLedger) InsertEntry(ctx context.Context, event *parking.Event) error {
	l.nextID++
	event.ID = l.nextID
	l.events = append(l.events, event)
	return nil
}

func (l *fakeLedger) UpdateEvent(ctx context.Context, id int64, update parking.SettlementUpdate) error {
	for _, event := range l.events {
		if event.ID == id {
			event.Paid = update.Paid
			exitTime := update.ExitTime
			amount := update.AmountPaid
			event.ExitTime = &exitTime
			event.AmountPaid = &amount
			l.updates[id] = update
			return nil
		}
	}
	return errors.New("event not found")
}

func (l *fakeLedger) FindLatestPaid(ctx context.Context, plate string) (*parking.Event, error) {
	if l.findErr != nil {
		return nil, l.findErr
	}
	var matches []*parking.Event
	for _, event := range l.events {
		if event.Plate == plate && event.Paid {
			matches = append(matches, event)
		}
	}
	if len(matches) == 0 {
		return nil, nil
	}
	sort.Slice(matches, func(i, j int) bool {
		return matches[i].EntryTime.After(matches[j].EntryTime)
	})
	return matches[0], nil
}

func (l *fakeLedger) FindOldestUnpaid(ctx context.Context, plate string) (*parking.Event, error) {
	if l.findErr != nil {
		return nil, l.findErr
	}
	var matches []*parking.Event
	for _, event := range l.events {
		if event.Plate == plate && !event.Paid {
			matches = append(matches, event)
		}
	}
	if len(matches) == 0 {
		return nil, nil
	}
	sort.Slice(matches, func(i, j int) bool {
		return matches[i].EntryTime.Before(matches[j].EntryTime)
	})
	return matches[0], nil
}

func (l *fakeLedger) InsertIncident(ctx context.Context, incident *parking.Incident) error {
	l.nextID++
	incident.ID = l.nextID
	l.incidents = append(l.incidents, incident)
	return nil
}

func (l *fakeLedger) ListEvents(ctx context.Context) ([]parking.Event, error) {
	out := make([]parking.Event, 0, len(l.events))
	for _, event := range l.events {
		out = append(out, *event)
	}
	return out, nil
}

func (l *fakeLedger) ListIncidents(ctx context.Context) ([]parking.Incident, error) {
	out := make([]parking.Incident, 0, len(l.incidents))
	for _, incident := range l.incidents {
		out = append(out, *incident)
	}
	return out, nil
}

// fakeTransport scripts the device side of an exchange; each write
// enqueues the next response batch, reads drain the queue and time out
// once empty.
type fakeTransport struct {
	writes  []string
	scripts [][]string
	queue   []string
}

func (t *fakeTransport) WriteLine(s string) error {
	t.writes = append(t.writes, s)
	if len(t.scripts) > 0 {
		t.queue = append(t.queue, t.scripts[0]...)
		t.scripts = t.scripts[1:]
	}
	return nil
}

func (t *fakeTransport) ReadLine(timeout time.Duration) (string, error) {
	if len(t.queue) == 0 {
		return "", device.ErrReadTimeout
	}
	line := t.queue[0]
	t.queue = t.queue[1:]
	return line, nil
}

func (t *fakeTransport) Close() error { return nil }

func (t *fakeTransport) wrote(cmd string) bool {
	for _, w := range t.writes {
		if w == cmd {
			return true
		}
	}
	return false
}

// fixedDistance always reports the same sensor reading.
type fixedDistance float64

func (d fixedDistance) Distance() (float64, error) { return float64(d), nil }
