package ticket

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"nuvix-tickets/access"
	"nuvix-tickets/config"
	"nuvix-tickets/events"
	"nuvix-tickets/transcript"
)

// containerNameLimit is the platform's channel name length cap.
const containerNameLimit = 100

// openerNameLimit bounds the opener's name inside the channel name.
const openerNameLimit = 18

// Blacklist is the read side the manager needs for the create precondition.
type Blacklist interface {
	IsBlacklisted(actorID string) bool
}

// ReviewSolicitor starts an asynchronous review request for the ticket
// opener. Fire-and-forget; the manager never waits on it.
type ReviewSolicitor interface {
	Request(ctx context.Context, openerID, ticketName, closerID string)
}

// Manager owns all ticket state transitions. Operations that mutate one
// ticket's container are serialized per ticket so two staff acting at once do
// not lose updates; container creation is not serialized globally.
type Manager struct {
	platform  Platform
	registry  *Registry
	store     *config.Store
	blacklist Blacklist
	solicitor ReviewSolicitor
	publisher events.Publisher
	log       *zap.Logger

	mu      sync.Mutex
	tickets map[string]*Ticket
	locks   map[string]*sync.Mutex
}

func NewManager(p Platform, reg *Registry, store *config.Store, bl Blacklist, sol ReviewSolicitor, pub events.Publisher, log *zap.Logger) *Manager {
	return &Manager{
		platform:  p,
		registry:  reg,
		store:     store,
		blacklist: bl,
		solicitor: sol,
		publisher: pub,
		log:       log,
		tickets:   make(map[string]*Ticket),
		locks:     make(map[string]*sync.Mutex),
	}
}

func (m *Manager) policy() access.Policy {
	ac := m.store.Get().Access
	return access.Policy{StaffRoles: ac.StaffRoles, OwnerID: ac.OwnerID, CoOwnerID: ac.CoOwnerID}
}

// Get returns the live ticket for a channel, if any.
func (m *Manager) Get(channelID string) (*Ticket, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tickets[channelID]
	return t, ok
}

// List returns the open tickets ordered by creation time.
func (m *Manager) List() []*Ticket {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Ticket, 0, len(m.tickets))
	for _, t := range m.tickets {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (m *Manager) ticketLock(channelID string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.locks[channelID]
	if !ok {
		l = &sync.Mutex{}
		m.locks[channelID] = l
	}
	return l
}

// Create provisions a new ticket: container, access grants, opening message.
// A blacklisted actor or unresolvable category aborts before any platform
// call; a failed container creation leaves no partial state behind.
func (m *Manager) Create(ctx context.Context, actor access.Actor, kind string, submitted map[string]string) (*Ticket, error) {
	if m.blacklist != nil && m.blacklist.IsBlacklisted(actor.ID) {
		return nil, ErrBlacklisted
	}

	cat, err := m.registry.Category(kind)
	if err != nil {
		return nil, err
	}
	parent, err := m.registry.Container(cat)
	if err != nil {
		return nil, err
	}
	fields, err := ValidateForm(cat.Fields, submitted)
	if err != nil {
		return nil, err
	}

	cfg := m.store.Get()
	maxOpen := cfg.Tickets.MaxOpenPerUser
	if !m.policy().IsStaff(actor) && m.openCountFor(actor.ID) >= maxOpen {
		return nil, ErrTooManyOpen
	}

	name := containerName(cat.Prefix, actor.DisplayName)
	grants := m.creationGrants(actor.ID)

	chID, err := m.platform.CreateContainer(ctx, name, parent, grants)
	if err != nil {
		return nil, platformErr("create container", err)
	}

	label := cat.Label
	if cat.Emoji != "" {
		label = cat.Emoji + " " + label
	}
	body := fmt.Sprintf("**Category:** %s\n%s", label, strings.TrimRight(fields.Lines(), "\n"))

	t := &Ticket{
		ChannelID:   chID,
		CategoryKey: cat.Key,
		OpenerID:    actor.ID,
		Priority:    PriorityNormal,
		CreatedAt:   time.Now().UTC(),
		openingBody: body,
	}

	msgID, err := m.platform.PostMessage(ctx, chID, Message{Content: t.openingContent()})
	if err != nil {
		// The channel exists but the opening message failed; tear the
		// channel down again so no half-created ticket survives.
		_ = m.platform.DeleteContainer(ctx, chID)
		return nil, platformErr("post opening message", err)
	}
	t.openingMessageID = msgID

	m.mu.Lock()
	m.tickets[chID] = t
	m.mu.Unlock()

	m.log.Info("ticket opened",
		zap.String("channel", chID),
		zap.String("category", cat.Key),
		zap.String("opener", actor.ID))
	m.notify(ctx, cfg.Sinks.TicketLog,
		fmt.Sprintf("🆕 **Ticket opened** <#%s> by %s (%s) — `%s`", chID, actor.DisplayName, actor.ID, cat.Key))
	m.publish(ctx, events.TicketOpened, chID, actor.ID, map[string]string{"category": cat.Key})

	return t, nil
}

func (m *Manager) openCountFor(openerID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, t := range m.tickets {
		if t.OpenerID == openerID {
			n++
		}
	}
	return n
}

// creationGrants builds the access set for a new ticket channel: default role
// hidden, opener and every configured staff role granted.
func (m *Manager) creationGrants(openerID string) []Grant {
	cfg := m.store.Get()
	grants := []Grant{
		{TargetID: "", Role: true, Access: AccessDefaultHidden},
		{TargetID: openerID, Access: AccessParticipant},
	}
	for _, rid := range cfg.Access.StaffRoles {
		grants = append(grants, Grant{TargetID: rid, Role: true, Access: AccessStaff})
	}
	return grants
}

// Assign sets the assigned staff member, overwriting any prior assignment,
// and updates the visible marker in the opening message in place.
func (m *Manager) Assign(ctx context.Context, actor access.Actor, channelID, targetStaffID string) error {
	err := m.setAssignee(ctx, actor, channelID, targetStaffID)
	if err == nil {
		m.log.Info("ticket assigned", zap.String("channel", channelID), zap.String("staff", targetStaffID))
	}
	return err
}

// Unassign clears the marker back to none.
func (m *Manager) Unassign(ctx context.Context, actor access.Actor, channelID string) error {
	return m.setAssignee(ctx, actor, channelID, "")
}

// setAssignee edits the marker first and records the new assignee only once
// the edit succeeded, so a failed edit leaves the in-memory assignment
// matching what the channel still shows.
func (m *Manager) setAssignee(ctx context.Context, actor access.Actor, channelID, assigneeID string) error {
	return m.withTicket(actor, channelID, func(t *Ticket) error {
		prev := t.AssignedID
		t.AssignedID = assigneeID
		if err := m.platform.EditMessage(ctx, channelID, t.openingMessageID, t.openingContent()); err != nil {
			t.AssignedID = prev
			return platformErr("update assignee marker", err)
		}
		return nil
	})
}

// AddParticipant grants a user access to the ticket channel.
func (m *Manager) AddParticipant(ctx context.Context, actor access.Actor, channelID, userID string) error {
	return m.withTicket(actor, channelID, func(t *Ticket) error {
		grant := Grant{TargetID: userID, Access: AccessParticipant}
		if err := m.platform.SetContainerAccess(ctx, channelID, grant); err != nil {
			return platformErr("add participant", err)
		}
		return nil
	})
}

// RemoveParticipant clears the user's explicit overwrite. The user reverts to
// the category's default visibility; this is not an explicit deny, matching
// the observed product behavior.
func (m *Manager) RemoveParticipant(ctx context.Context, actor access.Actor, channelID, userID string) error {
	return m.withTicket(actor, channelID, func(t *Ticket) error {
		grant := Grant{TargetID: userID, Access: AccessClear}
		if err := m.platform.SetContainerAccess(ctx, channelID, grant); err != nil {
			return platformErr("remove participant", err)
		}
		return nil
	})
}

// Rename renames the ticket channel, truncated to the platform limit.
func (m *Manager) Rename(ctx context.Context, actor access.Actor, channelID, newName string) error {
	return m.withTicket(actor, channelID, func(t *Ticket) error {
		if err := m.platform.RenameContainer(ctx, channelID, truncateRunes(newName, containerNameLimit)); err != nil {
			return platformErr("rename", err)
		}
		return nil
	})
}

var priorityTag = regexp.MustCompile(`\s*\[priority: [a-z]+\]`)

// SetPriority embeds the level as a tag in the channel topic, replacing any
// prior tag so exactly one is visible at a time.
func (m *Manager) SetPriority(ctx context.Context, actor access.Actor, channelID string, level Priority) error {
	return m.withTicket(actor, channelID, func(t *Ticket) error {
		topic, err := m.platform.ContainerTopic(ctx, channelID)
		if err != nil {
			return platformErr("read topic", err)
		}
		topic = strings.TrimSpace(priorityTag.ReplaceAllString(topic, ""))
		tag := fmt.Sprintf("[priority: %s]", level)
		if topic != "" {
			tag = topic + " " + tag
		}
		if err := m.platform.SetContainerTopic(ctx, channelID, tag); err != nil {
			return platformErr("set topic", err)
		}
		t.Priority = level
		return nil
	})
}

// Move reparents the ticket channel under another category's container and
// rebinds the ticket's category key. The opening message is not rewritten.
func (m *Manager) Move(ctx context.Context, actor access.Actor, channelID, kind string) error {
	return m.withTicket(actor, channelID, func(t *Ticket) error {
		cat, err := m.registry.Category(kind)
		if err != nil {
			return err
		}
		parent, err := m.registry.Container(cat)
		if err != nil {
			return err
		}
		if err := m.platform.MoveContainer(ctx, channelID, parent); err != nil {
			return platformErr("move container", err)
		}
		t.CategoryKey = cat.Key
		return nil
	})
}

// Delete tears the ticket channel down immediately, skipping the transcript,
// opener DM and review flow. Owner/co-owner or admin only.
func (m *Manager) Delete(ctx context.Context, actor access.Actor, channelID string) error {
	if !m.policy().IsOwnerOrCoOwner(actor) {
		return ErrPermissionDenied
	}
	l := m.ticketLock(channelID)
	l.Lock()
	defer l.Unlock()

	if _, ok := m.Get(channelID); !ok {
		return ErrNotATicket
	}
	if err := m.platform.DeleteContainer(ctx, channelID); err != nil {
		return platformErr("delete container", err)
	}

	m.mu.Lock()
	delete(m.tickets, channelID)
	delete(m.locks, channelID)
	m.mu.Unlock()

	m.notify(ctx, m.store.Get().Sinks.TicketLog,
		fmt.Sprintf("🗑️ **Ticket deleted** <#%s> by <@%s> (no transcript)", channelID, actor.ID))
	m.log.Info("ticket deleted", zap.String("channel", channelID), zap.String("actor", actor.ID))
	m.publish(ctx, events.TicketClosed, channelID, actor.ID, map[string]string{"reason": "deleted"})
	return nil
}

// Lock stops non-staff from posting; read visibility is untouched.
func (m *Manager) Lock(ctx context.Context, actor access.Actor, channelID string) error {
	return m.setLocked(ctx, actor, channelID, true)
}

// Unlock restores the default posting state.
func (m *Manager) Unlock(ctx context.Context, actor access.Actor, channelID string) error {
	return m.setLocked(ctx, actor, channelID, false)
}

func (m *Manager) setLocked(ctx context.Context, actor access.Actor, channelID string, locked bool) error {
	return m.withTicket(actor, channelID, func(t *Ticket) error {
		acc := AccessDefaultHidden
		if locked {
			acc = AccessDefaultHiddenLocked
		}
		if err := m.platform.SetContainerAccess(ctx, channelID, Grant{TargetID: "", Role: true, Access: acc}); err != nil {
			return platformErr("set lock state", err)
		}
		t.Locked = locked
		return nil
	})
}

// Close runs the closure sequence: transcript, sink delivery, opener DM and
// review request, log line, container deletion. Notification steps are
// best-effort; only a failed deletion aborts, in which case the ticket stays
// open until deletion succeeds.
func (m *Manager) Close(ctx context.Context, actor access.Actor, channelID, reason string) error {
	return m.withTicket(actor, channelID, func(t *Ticket) error {
		cfg := m.store.Get()
		if reason == "" {
			reason = "No reason provided"
		}

		history, err := m.platform.FetchHistory(ctx, channelID, cfg.Tickets.HistoryFetchLimit)
		if err != nil {
			m.log.Warn("history fetch failed; transcript will be empty",
				zap.String("channel", channelID), zap.Error(err))
			history = nil
		}
		doc := transcript.Render(channelName(t, channelID), channelID, history)
		files := []File{
			{Name: fmt.Sprintf("transcript_%s.txt", channelID), ContentType: "text/plain", Data: []byte(doc.Text)},
			{Name: fmt.Sprintf("transcript_%s.html", channelID), ContentType: "text/html", Data: []byte(doc.HTML)},
		}

		if sink := cfg.Sinks.Transcripts; sink != "" {
			_, err := m.platform.PostMessage(ctx, sink, Message{
				Content: fmt.Sprintf("🧾 Transcript for <#%s> — closed by <@%s> • Reason: %s", channelID, actor.ID, reason),
				Files:   files,
			})
			if err != nil {
				m.log.Warn("transcript sink delivery failed", zap.Error(err))
			}
		}

		opener := t.OpenerID
		if opener == "" {
			opener = fallbackOpener(history)
		}
		if opener != "" {
			// DM failures (closed DMs and the like) are swallowed.
			_ = m.platform.SendPrivateMessage(ctx, opener, Message{
				Content: fmt.Sprintf("🔒 Your ticket was closed.\n**Reason:** %s\nHere is your transcript:", reason),
				Files:   files,
			})
			if m.solicitor != nil {
				m.solicitor.Request(ctx, opener, channelName(t, channelID), actor.ID)
			}
		}

		m.notify(ctx, cfg.Sinks.TicketLog,
			fmt.Sprintf("🔒 **Ticket closed** <#%s> by <@%s> • Reason: %s", channelID, actor.ID, reason))
		m.log.Info("ticket closing",
			zap.String("channel", channelID),
			zap.String("actor", actor.ID),
			zap.String("reason", reason))

		if err := m.platform.DeleteContainer(ctx, channelID); err != nil {
			// The channel is still there, so the ticket is still open.
			return platformErr("delete container", err)
		}

		m.mu.Lock()
		delete(m.tickets, channelID)
		delete(m.locks, channelID)
		m.mu.Unlock()

		m.publish(ctx, events.TicketClosed, channelID, actor.ID, map[string]string{"reason": reason})
		return nil
	})
}

// withTicket gates a mutating operation on staff permission and serializes it
// against other mutations of the same ticket.
func (m *Manager) withTicket(actor access.Actor, channelID string, fn func(*Ticket) error) error {
	if !m.policy().IsStaff(actor) {
		return ErrPermissionDenied
	}
	l := m.ticketLock(channelID)
	l.Lock()
	defer l.Unlock()

	t, ok := m.Get(channelID)
	if !ok {
		return ErrNotATicket
	}
	return fn(t)
}

func (m *Manager) notify(ctx context.Context, sinkID, line string) {
	if sinkID == "" {
		return
	}
	if _, err := m.platform.PostMessage(ctx, sinkID, Message{Content: line}); err != nil {
		m.log.Debug("sink delivery failed", zap.String("sink", sinkID), zap.Error(err))
	}
}

func (m *Manager) publish(ctx context.Context, typ events.Type, ticketRef, actorID string, detail map[string]string) {
	if m.publisher == nil {
		return
	}
	if err := m.publisher.Publish(ctx, events.Event{
		Type:      typ,
		TicketRef: ticketRef,
		ActorID:   actorID,
		At:        time.Now().UTC(),
		Detail:    detail,
	}); err != nil {
		m.log.Debug("event publish failed", zap.Error(err))
	}
}

// fallbackOpener is the history heuristic for tickets created before the
// opener id was tracked: the earliest non-bot author.
func fallbackOpener(history []transcript.Message) string {
	for _, msg := range history {
		if !msg.Bot {
			return msg.AuthorID
		}
	}
	return ""
}

func channelName(t *Ticket, channelID string) string {
	// The manager does not track renames; the ref shown to the opener and
	// the sinks is category-prefix plus channel id.
	return t.CategoryKey + "-" + channelID
}

// containerName builds the deterministic channel name. Collisions are left to
// the platform to disambiguate.
func containerName(prefix, openerName string) string {
	name := strings.ToLower(prefix + "-" + truncateRunes(openerName, openerNameLimit))
	name = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-':
			return r
		case r == ' ', r == '_', r == '.':
			return '-'
		}
		return -1
	}, name)
	return truncateRunes(name, containerNameLimit)
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
