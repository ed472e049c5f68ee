package review

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
)

type fakePresenter struct {
	mu  sync.Mutex
	ids []string
	err error
}

func (p *fakePresenter) PresentStars(_ context.Context, _, solicitationID, _ string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.ids = append(p.ids, solicitationID)
	return nil
}

func (p *fakePresenter) lastID() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.ids) == 0 {
		return ""
	}
	return p.ids[len(p.ids)-1]
}

type fakeSink struct {
	mu       sync.Mutex
	accepted []Review
	err      error
}

func (s *fakeSink) Publish(_ context.Context, r Review) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.accepted = append(s.accepted, r)
	return nil
}

type fakeArchive struct {
	mu    sync.Mutex
	saved []Review
	err   error
}

func (a *fakeArchive) SaveReview(_ context.Context, r Review) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.err != nil {
		return a.err
	}
	a.saved = append(a.saved, r)
	return nil
}

func newTestCollector() (*Collector, *fakePresenter, *fakeSink, *fakeArchive) {
	p := &fakePresenter{}
	s := &fakeSink{}
	a := &fakeArchive{}
	return NewCollector(p, s, a, time.Hour, zap.NewNop()), p, s, a
}

func TestSubmitHappyPath(t *testing.T) {
	t.Parallel()
	c, p, sink, archive := newTestCollector()

	c.Request(context.Background(), "opener-1", "supp-chan-1", "staff-1")
	sid := p.lastID()
	if sid == "" {
		t.Fatal("presenter never called")
	}
	if !c.Pending(sid) {
		t.Fatal("solicitation not pending after request")
	}

	r, err := c.Submit(context.Background(), sid, "opener-1", 4, "great help")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if r.Stars != 4 || r.Comment != "great help" {
		t.Errorf("review = %+v", r)
	}
	if r.TicketRef != "supp-chan-1" || r.CloserID != "staff-1" {
		t.Errorf("solicitation context lost: %+v", r)
	}
	if r.ID == "" {
		t.Error("review id missing")
	}

	if len(sink.accepted) != 1 {
		t.Errorf("sink got %d reviews", len(sink.accepted))
	}
	if len(archive.saved) != 1 {
		t.Errorf("archive got %d reviews", len(archive.saved))
	}
}

func TestSubmitConsumesOnce(t *testing.T) {
	t.Parallel()
	c, p, sink, _ := newTestCollector()

	c.Request(context.Background(), "opener-1", "supp-chan-1", "staff-1")
	sid := p.lastID()

	if _, err := c.Submit(context.Background(), sid, "opener-1", 5, ""); err != nil {
		t.Fatalf("first submit: %v", err)
	}
	if _, err := c.Submit(context.Background(), sid, "opener-1", 1, ""); !errors.Is(err, ErrExpired) {
		t.Errorf("second submit: got %v, want ErrExpired", err)
	}
	if c.Pending(sid) {
		t.Error("solicitation still pending after submit")
	}
	if len(sink.accepted) != 1 {
		t.Errorf("sink got %d reviews, want 1", len(sink.accepted))
	}
}

func TestSubmitValidatesStars(t *testing.T) {
	t.Parallel()
	c, p, _, _ := newTestCollector()

	c.Request(context.Background(), "opener-1", "supp-chan-1", "staff-1")
	sid := p.lastID()

	for _, stars := range []int{0, -1, 6} {
		if _, err := c.Submit(context.Background(), sid, "opener-1", stars, ""); !errors.Is(err, ErrInvalidStars) {
			t.Errorf("stars=%d: got %v, want ErrInvalidStars", stars, err)
		}
	}
	// The invalid attempts must not consume the solicitation.
	if !c.Pending(sid) {
		t.Error("invalid stars consumed the solicitation")
	}
}

func TestSubmitTruncatesComment(t *testing.T) {
	t.Parallel()
	c, p, _, _ := newTestCollector()

	c.Request(context.Background(), "opener-1", "supp-chan-1", "staff-1")
	r, err := c.Submit(context.Background(), p.lastID(), "opener-1", 3, strings.Repeat("x", MaxCommentLength+50))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if got := len([]rune(r.Comment)); got != MaxCommentLength {
		t.Errorf("comment length = %d, want %d", got, MaxCommentLength)
	}
}

func TestSubmitUnknownSolicitation(t *testing.T) {
	t.Parallel()
	c, _, _, _ := newTestCollector()

	if _, err := c.Submit(context.Background(), "nope", "opener-1", 3, ""); !errors.Is(err, ErrExpired) {
		t.Errorf("got %v, want ErrExpired", err)
	}
}

func TestRequestDropsOnPresentFailure(t *testing.T) {
	t.Parallel()
	p := &fakePresenter{err: errors.New("dms closed")}
	c := NewCollector(p, &fakeSink{}, &fakeArchive{}, time.Hour, zap.NewNop())

	c.Request(context.Background(), "opener-1", "supp-chan-1", "staff-1")

	// Nothing should be pending; the solicitation died with the delivery.
	c.mu.Lock()
	n := len(c.pending)
	c.mu.Unlock()
	if n != 0 {
		t.Errorf("%d solicitations pending after failed delivery", n)
	}
}

func TestSolicitationExpires(t *testing.T) {
	t.Parallel()
	p := &fakePresenter{}
	c := NewCollector(p, &fakeSink{}, &fakeArchive{}, 10*time.Millisecond, zap.NewNop())

	c.Request(context.Background(), "opener-1", "supp-chan-1", "staff-1")
	sid := p.lastID()

	deadline := time.Now().Add(2 * time.Second)
	for c.Pending(sid) {
		if time.Now().After(deadline) {
			t.Fatal("solicitation never expired")
		}
		time.Sleep(5 * time.Millisecond)
	}

	if _, err := c.Submit(context.Background(), sid, "opener-1", 5, ""); !errors.Is(err, ErrExpired) {
		t.Errorf("submit after expiry: got %v, want ErrExpired", err)
	}
}

func TestSubmitSurvivesSinkAndArchiveFailure(t *testing.T) {
	t.Parallel()
	p := &fakePresenter{}
	c := NewCollector(p, &fakeSink{err: errors.New("channel gone")}, &fakeArchive{err: errors.New("db down")}, time.Hour, zap.NewNop())

	c.Request(context.Background(), "opener-1", "supp-chan-1", "staff-1")
	if _, err := c.Submit(context.Background(), p.lastID(), "opener-1", 5, ""); err != nil {
		t.Errorf("submit should tolerate sink/archive failures, got %v", err)
	}
}

func TestStarsText(t *testing.T) {
	t.Parallel()

	cases := []struct {
		stars int
		want  string
	}{
		{1, "★☆☆☆☆"},
		{3, "★★★☆☆"},
		{5, "★★★★★"},
	}
	for _, tc := range cases {
		if got := (Review{Stars: tc.stars}).StarsText(); got != tc.want {
			t.Errorf("StarsText(%d) = %q, want %q", tc.stars, got, tc.want)
		}
	}
}
