package handlers

import (
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"nuvix-tickets/access"
	"nuvix-tickets/config"
	"nuvix-tickets/storage"
	"nuvix-tickets/ticket"
)

// Handlers routes interactions to the ticket core.
type Handlers struct {
	store     *config.Store
	manager   *ticket.Manager
	registry  *ticket.Registry
	blacklist *storage.Blacklist
	db        storage.Database
	reviews   *ReviewUI
	log       *zap.Logger
	startedAt time.Time
}

func New(store *config.Store, mgr *ticket.Manager, reg *ticket.Registry, bl *storage.Blacklist, db storage.Database, reviews *ReviewUI, log *zap.Logger) *Handlers {
	return &Handlers{
		store:     store,
		manager:   mgr,
		registry:  reg,
		blacklist: bl,
		db:        db,
		reviews:   reviews,
		log:       log,
		startedAt: time.Now().UTC(),
	}
}

type requirement int

const (
	reqNone requirement = iota
	reqStaff
	reqOwner
	reqAdmin
)

// commandEntry makes the command surface declarative: name, required role and
// handler in one place, so variants are config rather than copies.
type commandEntry struct {
	cmd      *discordgo.ApplicationCommand
	requires requirement
	handler  func(h *Handlers, s *discordgo.Session, i *discordgo.InteractionCreate)
}

var adminPerm int64 = discordgo.PermissionAdministrator

func commandTable() []commandEntry {
	user := func(name, desc string) *discordgo.ApplicationCommandOption {
		return &discordgo.ApplicationCommandOption{Type: discordgo.ApplicationCommandOptionUser, Name: name, Description: desc, Required: true}
	}
	str := func(name, desc string, required bool) *discordgo.ApplicationCommandOption {
		return &discordgo.ApplicationCommandOption{Type: discordgo.ApplicationCommandOptionString, Name: name, Description: desc, Required: required}
	}
	channel := func(name, desc string) *discordgo.ApplicationCommandOption {
		return &discordgo.ApplicationCommandOption{Type: discordgo.ApplicationCommandOptionChannel, Name: name, Description: desc, Required: true}
	}

	return []commandEntry{
		{cmd: &discordgo.ApplicationCommand{Name: "ping", Description: "Check if the bot is alive"},
			handler: (*Handlers).handlePing},
		{cmd: &discordgo.ApplicationCommand{Name: "help", Description: "Show basic help"},
			handler: (*Handlers).handleHelp},
		{cmd: &discordgo.ApplicationCommand{Name: "stats", Description: "Show basic stats"},
			handler: (*Handlers).handleStats},
		{cmd: &discordgo.ApplicationCommand{
			Name: "panel", Description: "Post the ticket panel in this channel",
			DefaultMemberPermissions: &adminPerm,
		}, requires: reqAdmin, handler: (*Handlers).handlePanel},

		{cmd: &discordgo.ApplicationCommand{
			Name: "ticket_close", Description: "Close the current ticket and send transcript & review",
			Options: []*discordgo.ApplicationCommandOption{str("reason", "Close reason", false)},
		}, requires: reqStaff, handler: (*Handlers).handleClose},
		{cmd: &discordgo.ApplicationCommand{Name: "ticket_claim", Description: "Claim the current ticket"},
			requires: reqStaff, handler: (*Handlers).handleClaim},
		{cmd: &discordgo.ApplicationCommand{
			Name: "assign", Description: "Assign this ticket to a staff member",
			Options: []*discordgo.ApplicationCommandOption{user("staff", "Staff member to assign")},
		}, requires: reqStaff, handler: (*Handlers).handleAssign},
		{cmd: &discordgo.ApplicationCommand{Name: "unassign", Description: "Remove the assignment"},
			requires: reqStaff, handler: (*Handlers).handleUnassign},
		{cmd: &discordgo.ApplicationCommand{
			Name: "ticket_add", Description: "Add a user to this ticket",
			Options: []*discordgo.ApplicationCommandOption{user("user", "User to add")},
		}, requires: reqStaff, handler: (*Handlers).handleAddUser},
		{cmd: &discordgo.ApplicationCommand{
			Name: "ticket_remove", Description: "Remove a user from this ticket",
			Options: []*discordgo.ApplicationCommandOption{user("user", "User to remove")},
		}, requires: reqStaff, handler: (*Handlers).handleRemoveUser},
		{cmd: &discordgo.ApplicationCommand{
			Name: "ticket_rename", Description: "Rename this ticket",
			Options: []*discordgo.ApplicationCommandOption{str("new_name", "New channel name", true)},
		}, requires: reqStaff, handler: (*Handlers).handleRename},
		{cmd: &discordgo.ApplicationCommand{
			Name: "ticket_priority", Description: "Mark ticket priority",
			Options: []*discordgo.ApplicationCommandOption{{
				Type: discordgo.ApplicationCommandOptionString, Name: "level", Description: "Priority level", Required: true,
				Choices: []*discordgo.ApplicationCommandOptionChoice{
					{Name: "Low", Value: "low"},
					{Name: "Normal", Value: "normal"},
					{Name: "High", Value: "high"},
					{Name: "Critical", Value: "critical"},
				},
			}},
		}, requires: reqStaff, handler: (*Handlers).handlePriority},
		{cmd: &discordgo.ApplicationCommand{
			Name: "ticket_move", Description: "Move this ticket to another category",
			Options: []*discordgo.ApplicationCommandOption{str("category", "Destination category key", true)},
		}, requires: reqStaff, handler: (*Handlers).handleMove},
		{cmd: &discordgo.ApplicationCommand{
			Name: "delete", Description: "Delete this ticket immediately, without a transcript",
			DefaultMemberPermissions: &adminPerm,
		}, requires: reqOwner, handler: (*Handlers).handleDelete},
		{cmd: &discordgo.ApplicationCommand{Name: "ticket_lock", Description: "Lock the ticket (members cannot type)"},
			requires: reqStaff, handler: (*Handlers).handleLock},
		{cmd: &discordgo.ApplicationCommand{Name: "ticket_unlock", Description: "Unlock the ticket"},
			requires: reqStaff, handler: (*Handlers).handleUnlock},
		{cmd: &discordgo.ApplicationCommand{Name: "transcript", Description: "Generate and send the transcript now"},
			requires: reqStaff, handler: (*Handlers).handleTranscript},
		{cmd: &discordgo.ApplicationCommand{
			Name: "ticket_note", Description: "Add an internal note (visible to staff only)",
			Options: []*discordgo.ApplicationCommandOption{str("note", "Note text", true)},
		}, requires: reqStaff, handler: (*Handlers).handleNote},
		{cmd: &discordgo.ApplicationCommand{
			Name: "note_dm", Description: "Send a DM note to the ticket opener",
			Options: []*discordgo.ApplicationCommandOption{str("message", "Note text", true)},
		}, requires: reqStaff, handler: (*Handlers).handleNoteDM},
		{cmd: &discordgo.ApplicationCommand{Name: "tickets", Description: "List all open tickets"},
			requires: reqStaff, handler: (*Handlers).handleTicketList},
		{cmd: &discordgo.ApplicationCommand{Name: "list_reviews", Description: "Show the most recent reviews"},
			requires: reqStaff, handler: (*Handlers).handleListReviews},

		{cmd: &discordgo.ApplicationCommand{
			Name: "blacklist", Description: "Blacklist a user from opening tickets",
			DefaultMemberPermissions: &adminPerm,
			Options:                  []*discordgo.ApplicationCommandOption{user("user", "User to blacklist")},
		}, requires: reqOwner, handler: (*Handlers).handleBlacklistAdd},
		{cmd: &discordgo.ApplicationCommand{
			Name: "unblacklist", Description: "Remove a user from the blacklist",
			DefaultMemberPermissions: &adminPerm,
			Options:                  []*discordgo.ApplicationCommandOption{user("user", "User to remove")},
		}, requires: reqOwner, handler: (*Handlers).handleBlacklistRemove},
		{cmd: &discordgo.ApplicationCommand{
			Name: "blacklist_list", Description: "Show the blacklist",
			DefaultMemberPermissions: &adminPerm,
		}, requires: reqOwner, handler: (*Handlers).handleBlacklistList},

		{cmd: &discordgo.ApplicationCommand{
			Name: "set_category", Description: "Set the default ticket category container",
			DefaultMemberPermissions: &adminPerm,
			Options:                  []*discordgo.ApplicationCommandOption{channel("category", "Category for ticket channels")},
		}, requires: reqAdmin, handler: (*Handlers).handleSetCategory},
		{cmd: &discordgo.ApplicationCommand{
			Name: "set_logs", Description: "Set the ticket log channel",
			DefaultMemberPermissions: &adminPerm,
			Options:                  []*discordgo.ApplicationCommandOption{channel("channel", "Channel for ticket logs")},
		}, requires: reqAdmin, handler: (*Handlers).handleSetLogs},
		{cmd: &discordgo.ApplicationCommand{
			Name: "set_reviews", Description: "Set the reviews channel",
			DefaultMemberPermissions: &adminPerm,
			Options:                  []*discordgo.ApplicationCommandOption{channel("channel", "Channel for reviews")},
		}, requires: reqAdmin, handler: (*Handlers).handleSetReviews},
		{cmd: &discordgo.ApplicationCommand{
			Name: "set_transcripts", Description: "Set the transcripts channel",
			DefaultMemberPermissions: &adminPerm,
			Options:                  []*discordgo.ApplicationCommandOption{channel("channel", "Channel for transcripts")},
		}, requires: reqAdmin, handler: (*Handlers).handleSetTranscripts},
		{cmd: &discordgo.ApplicationCommand{
			Name: "add_staff_role", Description: "Add a role to the staff list",
			DefaultMemberPermissions: &adminPerm,
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionRole, Name: "role", Description: "Role to add", Required: true},
			},
		}, requires: reqAdmin, handler: (*Handlers).handleAddStaffRole},
		{cmd: &discordgo.ApplicationCommand{
			Name: "remove_staff_role", Description: "Remove a role from the staff list",
			DefaultMemberPermissions: &adminPerm,
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionRole, Name: "role", Description: "Role to remove", Required: true},
			},
		}, requires: reqAdmin, handler: (*Handlers).handleRemoveStaffRole},
	}
}

// Commands returns the slash command definitions for bulk registration.
func Commands() []*discordgo.ApplicationCommand {
	table := commandTable()
	cmds := make([]*discordgo.ApplicationCommand, 0, len(table))
	for _, e := range table {
		cmds = append(cmds, e.cmd)
	}
	return cmds
}

// Register wires the interaction handler into the session.
func (h *Handlers) Register(s *discordgo.Session) {
	byName := make(map[string]commandEntry)
	for _, e := range commandTable() {
		byName[e.cmd.Name] = e
	}

	s.AddHandler(func(s *discordgo.Session, i *discordgo.InteractionCreate) {
		switch i.Type {
		case discordgo.InteractionApplicationCommand:
			name := i.ApplicationCommandData().Name
			entry, ok := byName[name]
			if !ok {
				h.log.Warn("unknown command", zap.String("name", name))
				return
			}
			if !h.allowed(i, entry.requires) {
				respond(s, i, "You don’t have permission to use this command.", true)
				return
			}
			h.logCommandUse(s, i, name)
			entry.handler(h, s, i)
		case discordgo.InteractionMessageComponent:
			h.handleComponent(s, i)
		case discordgo.InteractionModalSubmit:
			h.handleModalSubmit(s, i)
		}
	})
}

func (h *Handlers) handleComponent(s *discordgo.Session, i *discordgo.InteractionCreate) {
	customID := i.MessageComponentData().CustomID
	switch {
	case customID == "ticket_category_select":
		h.handleCategorySelect(s, i)
	case strings.HasPrefix(customID, "review_star:"):
		h.reviews.handleStarButton(s, i)
	default:
		h.log.Warn("unknown component", zap.String("custom_id", customID))
	}
}

func (h *Handlers) handleModalSubmit(s *discordgo.Session, i *discordgo.InteractionCreate) {
	customID := i.ModalSubmitData().CustomID
	switch {
	case strings.HasPrefix(customID, "ticket_modal:"):
		h.handleIntakeSubmit(s, i)
	case strings.HasPrefix(customID, "review_modal:"):
		h.reviews.handleReviewSubmit(s, i)
	default:
		h.log.Warn("unknown modal", zap.String("custom_id", customID))
	}
}

// actor builds the access snapshot for the interaction's invoker. Member is
// nil for DM interactions.
func actorFrom(i *discordgo.InteractionCreate) access.Actor {
	if i.Member != nil && i.Member.User != nil {
		return access.Actor{
			ID:          i.Member.User.ID,
			DisplayName: i.Member.User.Username,
			RoleIDs:     i.Member.Roles,
			Admin:       i.Member.Permissions&discordgo.PermissionAdministrator != 0,
		}
	}
	if i.User != nil {
		return access.Actor{ID: i.User.ID, DisplayName: i.User.Username}
	}
	return access.Actor{}
}

func (h *Handlers) policy() access.Policy {
	ac := h.store.Get().Access
	return access.Policy{StaffRoles: ac.StaffRoles, OwnerID: ac.OwnerID, CoOwnerID: ac.CoOwnerID}
}

func (h *Handlers) allowed(i *discordgo.InteractionCreate, req requirement) bool {
	a := actorFrom(i)
	p := h.policy()
	switch req {
	case reqStaff:
		return p.IsStaff(a)
	case reqOwner:
		return p.IsOwnerOrCoOwner(a)
	case reqAdmin:
		return p.IsAdmin(a)
	default:
		return true
	}
}

// logCommandUse sends a best-effort line to the command-log sink.
func (h *Handlers) logCommandUse(s *discordgo.Session, i *discordgo.InteractionCreate, name string) {
	sink := h.store.Get().Sinks.CommandLog
	if sink == "" {
		return
	}
	a := actorFrom(i)
	_, _ = s.ChannelMessageSend(sink, fmt.Sprintf("🧪 /%s by %s (%s)", name, a.DisplayName, a.ID))
}

func respond(s *discordgo.Session, i *discordgo.InteractionCreate, content string, ephemeral bool) {
	flags := discordgo.MessageFlags(0)
	if ephemeral {
		flags = discordgo.MessageFlagsEphemeral
	}
	_ = s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Content: content, Flags: flags},
	})
}

func followup(s *discordgo.Session, i *discordgo.InteractionCreate, content string) {
	_, _ = s.FollowupMessageCreate(i.Interaction, true, &discordgo.WebhookParams{
		Content: content,
		Flags:   discordgo.MessageFlagsEphemeral,
	})
}

func optionMap(i *discordgo.InteractionCreate) map[string]*discordgo.ApplicationCommandInteractionDataOption {
	m := make(map[string]*discordgo.ApplicationCommandInteractionDataOption)
	for _, opt := range i.ApplicationCommandData().Options {
		m[opt.Name] = opt
	}
	return m
}
