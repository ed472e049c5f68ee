package ticket

import (
	"fmt"
	"time"
)

// Priority is an orthogonal tag on an open ticket, not a lifecycle state.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityNormal   Priority = "normal"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// ParsePriority validates a priority level name.
func ParsePriority(s string) (Priority, error) {
	switch Priority(s) {
	case PriorityLow, PriorityNormal, PriorityHigh, PriorityCritical:
		return Priority(s), nil
	}
	return "", fmt.Errorf("invalid priority %q", s)
}

// Ticket is the live record of an open ticket. Its id is the backing
// container's id; when the container goes away, so does the ticket. Closed
// tickets survive only as transcript artifacts and log lines.
type Ticket struct {
	ChannelID   string
	CategoryKey string
	OpenerID    string
	AssignedID  string
	Priority    Priority
	Locked      bool
	CreatedAt   time.Time

	openingMessageID string
	openingBody      string
}

const noAssignee = "none"

// openingContent renders the opening message with the current assignee marker.
func (t *Ticket) openingContent() string {
	assignee := noAssignee
	if t.AssignedID != "" {
		assignee = fmt.Sprintf("<@%s>", t.AssignedID)
	}
	return t.openingBody + "\n**Assigned staff:** " + assignee
}
