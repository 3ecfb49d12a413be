package publisher

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/scholar-search/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/scholar-search/internal/ingestion"
	apperrors "github.com/Adithya-Monish-Kumar-K/scholar-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/scholar-search/pkg/kafka"
)

type capturePublisher struct {
	events []kafka.Event
	err    error
}

func (c *capturePublisher) Publish(ctx context.Context, events ...kafka.Event) error {
	if c.err != nil {
		return c.err
	}
	c.events = append(c.events, events...)
	return nil
}

func newStore(t *testing.T) corpus.Store {
	t.Helper()
	s, err := corpus.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "pubs.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

var pubs = []corpus.Publication{
	{Title: "Deep Learning", Year: "2020", Authors: []string{"A"}, PublicationURL: "u0"},
	corpus.Untitled(corpus.Publication{Year: "2018", PublicationURL: "u1"}),
}

func TestImportReplacesAndPublishes(t *testing.T) {
	store := newStore(t)
	prod := &capturePublisher{}
	p := New(store, prod, "sqlite")

	report, err := p.Import(context.Background(), pubs, Options{})
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if report.Documents != 2 || report.Untitled != 1 || report.Warnings != 1 || !report.Published {
		t.Errorf("report = %+v", report)
	}
	if n, _ := store.Count(context.Background()); n != 2 {
		t.Errorf("store count = %d", n)
	}
	if len(prod.events) != 1 {
		t.Fatalf("events = %d", len(prod.events))
	}
	ev := prod.events[0].Value.(ingestion.RefreshEvent)
	if ev.Documents != 2 || ev.ContentHash != report.ContentHash || ev.Source != "sqlite" {
		t.Errorf("event = %+v", ev)
	}
}

func TestImportUnchangedIsNoop(t *testing.T) {
	store := newStore(t)
	prod := &capturePublisher{}
	p := New(store, prod, "sqlite")
	if _, err := p.Import(context.Background(), pubs, Options{}); err != nil {
		t.Fatalf("first Import: %v", err)
	}
	report, err := p.Import(context.Background(), pubs, Options{})
	if err != nil {
		t.Fatalf("second Import: %v", err)
	}
	if !report.Unchanged || report.Published || len(prod.events) != 1 {
		t.Errorf("report = %+v events = %d", report, len(prod.events))
	}

	report, err = p.Import(context.Background(), pubs, Options{Force: true})
	if err != nil || !report.Published || len(prod.events) != 2 {
		t.Errorf("forced import: report = %+v err = %v", report, err)
	}
}

func TestImportStrictRejects(t *testing.T) {
	store := newStore(t)
	p := New(store, nil, "sqlite")
	_, err := p.Import(context.Background(), pubs, Options{Strict: true})
	if !errors.Is(err, apperrors.ErrInvalidInput) {
		t.Errorf("err = %v, want ErrInvalidInput", err)
	}
	if n, _ := store.Count(context.Background()); n != 0 {
		t.Errorf("store written despite strict failure: %d", n)
	}
}

func TestImportPublishFailureKeepsStore(t *testing.T) {
	store := newStore(t)
	p := New(store, &capturePublisher{err: errors.New("no brokers")}, "sqlite")
	report, err := p.Import(context.Background(), pubs[:1], Options{})
	if err == nil || report.Published {
		t.Errorf("report = %+v err = %v", report, err)
	}
	if n, _ := store.Count(context.Background()); n != 1 {
		t.Errorf("store count = %d, want 1", n)
	}
}

// lossyStore drops the last publication on Replace.
type lossyStore struct {
	corpus.Store
}

func (s lossyStore) Replace(ctx context.Context, pubs []corpus.Publication) error {
	return s.Store.Replace(ctx, pubs[:len(pubs)-1])
}

func TestImportDetectsShortWrite(t *testing.T) {
	prod := &capturePublisher{}
	p := New(lossyStore{Store: newStore(t)}, prod, "sqlite")
	_, err := p.Import(context.Background(), pubs, Options{Force: true})
	if !errors.Is(err, apperrors.ErrInternal) {
		t.Fatalf("err = %v, want ErrInternal", err)
	}
	if len(prod.events) != 0 {
		t.Errorf("refresh published after short write: %d events", len(prod.events))
	}
}
