// Package review collects post-closure star ratings from ticket openers.
// A solicitation offers exactly five star options; it accepts one submission
// and then goes inert, and expires silently after a bounded window.
package review

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MaxStars is the number of options offered; no partial stars exist.
const MaxStars = 5

// MaxCommentLength bounds the optional free-text comment.
const MaxCommentLength = 1000

var (
	// ErrExpired means the solicitation already expired or was consumed.
	ErrExpired = errors.New("review solicitation expired")
	// ErrInvalidStars should be unreachable through the UI, which offers
	// only the five valid options.
	ErrInvalidStars = errors.New("stars must be between 1 and 5")
)

// Review is an accepted, append-only rating.
type Review struct {
	ID          string    `json:"id" bson:"id"`
	RaterID     string    `json:"rater_id" bson:"rater_id"`
	TicketRef   string    `json:"ticket_ref" bson:"ticket_ref"`
	CloserID    string    `json:"closer_id" bson:"closer_id"`
	Stars       int       `json:"stars" bson:"stars"`
	Comment     string    `json:"comment,omitempty" bson:"comment,omitempty"`
	SubmittedAt time.Time `json:"submitted_at" bson:"submitted_at"`
}

// StarsText renders the classic filled/empty star row.
func (r Review) StarsText() string {
	out := ""
	for i := 1; i <= MaxStars; i++ {
		if i <= r.Stars {
			out += "★"
		} else {
			out += "☆"
		}
	}
	return out
}

// Presenter shows the star choice to the opener, typically as a private
// message with five buttons carrying the solicitation id.
type Presenter interface {
	PresentStars(ctx context.Context, openerID, solicitationID, ticketRef string) error
}

// Sink receives accepted reviews for announcement.
type Sink interface {
	Publish(ctx context.Context, r Review) error
}

// Archive persists accepted reviews.
type Archive interface {
	SaveReview(ctx context.Context, r Review) error
}

type solicitation struct {
	openerID  string
	ticketRef string
	closerID  string
	timer     *time.Timer
}

// Collector tracks in-flight solicitations.
type Collector struct {
	presenter Presenter
	sink      Sink
	archive   Archive
	timeout   time.Duration
	log       *zap.Logger

	mu      sync.Mutex
	pending map[string]*solicitation
}

func NewCollector(p Presenter, sink Sink, archive Archive, timeout time.Duration, log *zap.Logger) *Collector {
	return &Collector{
		presenter: p,
		sink:      sink,
		archive:   archive,
		timeout:   timeout,
		log:       log,
		pending:   make(map[string]*solicitation),
	}
}

// Request starts a solicitation for the ticket opener. Fire-and-forget: a
// failed delivery (closed DMs) just drops the solicitation, and an
// unanswered one expires with no retry and no error surfaced to staff.
func (c *Collector) Request(ctx context.Context, openerID, ticketRef, closerID string) {
	id := uuid.NewString()
	sol := &solicitation{openerID: openerID, ticketRef: ticketRef, closerID: closerID}
	sol.timer = time.AfterFunc(c.timeout, func() { c.expire(id) })

	c.mu.Lock()
	c.pending[id] = sol
	c.mu.Unlock()

	if err := c.presenter.PresentStars(ctx, openerID, id, ticketRef); err != nil {
		c.log.Debug("review solicitation not delivered",
			zap.String("opener", openerID), zap.Error(err))
		c.expire(id)
	}
}

func (c *Collector) expire(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if sol, ok := c.pending[id]; ok {
		sol.timer.Stop()
		delete(c.pending, id)
	}
}

// Pending reports whether a solicitation is still open. The UI uses it to
// keep already-consumed prompts inert.
func (c *Collector) Pending(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.pending[id]
	return ok
}

// Submit consumes the solicitation and constructs the Review. The first
// submission wins; any further attempt on the same solicitation gets
// ErrExpired. Comments beyond the bound are truncated.
func (c *Collector) Submit(ctx context.Context, id, raterID string, stars int, comment string) (Review, error) {
	if stars < 1 || stars > MaxStars {
		return Review{}, ErrInvalidStars
	}

	c.mu.Lock()
	sol, ok := c.pending[id]
	if ok {
		sol.timer.Stop()
		delete(c.pending, id)
	}
	c.mu.Unlock()
	if !ok {
		return Review{}, ErrExpired
	}

	if cr := []rune(comment); len(cr) > MaxCommentLength {
		comment = string(cr[:MaxCommentLength])
	}

	r := Review{
		ID:          uuid.NewString(),
		RaterID:     raterID,
		TicketRef:   sol.ticketRef,
		CloserID:    sol.closerID,
		Stars:       stars,
		Comment:     comment,
		SubmittedAt: time.Now().UTC(),
	}

	if c.archive != nil {
		if err := c.archive.SaveReview(ctx, r); err != nil {
			c.log.Warn("review archive write failed", zap.Error(err))
		}
	}
	if c.sink != nil {
		if err := c.sink.Publish(ctx, r); err != nil {
			c.log.Warn("review sink delivery failed", zap.Error(err))
		}
	}
	c.log.Info("review accepted",
		zap.String("ticket", r.TicketRef),
		zap.Int("stars", r.Stars))
	return r, nil
}
