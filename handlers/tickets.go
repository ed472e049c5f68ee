package handlers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	"nuvix-tickets/ticket"
	"nuvix-tickets/transcript"
)

// opText maps a manager error to the actor-facing failure line. Permission
// and not-a-ticket cases get their own wording; platform failures are shown
// verbatim so staff can act on them.
func opText(err error) string {
	switch {
	case errors.Is(err, ticket.ErrPermissionDenied):
		return "You need Staff+ to do that."
	case errors.Is(err, ticket.ErrNotATicket):
		return "Use this inside a ticket channel."
	default:
		return fmt.Sprintf("Failed: %v", err)
	}
}

func (h *Handlers) handleClose(s *discordgo.Session, i *discordgo.InteractionCreate) {
	reason := ""
	if opt, ok := optionMap(i)["reason"]; ok {
		reason = opt.StringValue()
	}

	// Closing deletes the channel, so acknowledge first and follow up only
	// on failure: a success followup would land in a deleted channel.
	respond(s, i, "🔒 Closing ticket...", true)

	if err := h.manager.Close(context.Background(), actorFrom(i), i.ChannelID, reason); err != nil {
		followup(s, i, opText(err))
	}
}

func (h *Handlers) handleClaim(s *discordgo.Session, i *discordgo.InteractionCreate) {
	a := actorFrom(i)
	if err := h.manager.Assign(context.Background(), a, i.ChannelID, a.ID); err != nil {
		respond(s, i, opText(err), true)
		return
	}
	respond(s, i, fmt.Sprintf("Ticket claimed by <@%s>.", a.ID), false)
}

func (h *Handlers) handleAssign(s *discordgo.Session, i *discordgo.InteractionCreate) {
	target := optionMap(i)["staff"].UserValue(s)
	if err := h.manager.Assign(context.Background(), actorFrom(i), i.ChannelID, target.ID); err != nil {
		respond(s, i, opText(err), true)
		return
	}
	respond(s, i, fmt.Sprintf("Ticket assigned to <@%s>.", target.ID), false)
}

func (h *Handlers) handleUnassign(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if err := h.manager.Unassign(context.Background(), actorFrom(i), i.ChannelID); err != nil {
		respond(s, i, opText(err), true)
		return
	}
	respond(s, i, "Ticket unassigned.", false)
}

func (h *Handlers) handleAddUser(s *discordgo.Session, i *discordgo.InteractionCreate) {
	target := optionMap(i)["user"].UserValue(s)
	if err := h.manager.AddParticipant(context.Background(), actorFrom(i), i.ChannelID, target.ID); err != nil {
		respond(s, i, opText(err), true)
		return
	}
	respond(s, i, fmt.Sprintf("Added <@%s> to this ticket.", target.ID), false)
}

func (h *Handlers) handleRemoveUser(s *discordgo.Session, i *discordgo.InteractionCreate) {
	target := optionMap(i)["user"].UserValue(s)
	if err := h.manager.RemoveParticipant(context.Background(), actorFrom(i), i.ChannelID, target.ID); err != nil {
		respond(s, i, opText(err), true)
		return
	}
	respond(s, i, fmt.Sprintf("Removed <@%s> from this ticket.", target.ID), false)
}

func (h *Handlers) handleRename(s *discordgo.Session, i *discordgo.InteractionCreate) {
	newName := optionMap(i)["new_name"].StringValue()
	if err := h.manager.Rename(context.Background(), actorFrom(i), i.ChannelID, newName); err != nil {
		respond(s, i, opText(err), true)
		return
	}
	respond(s, i, fmt.Sprintf("Renamed to `%s`.", newName), false)
}

func (h *Handlers) handlePriority(s *discordgo.Session, i *discordgo.InteractionCreate) {
	level, err := ticket.ParsePriority(optionMap(i)["level"].StringValue())
	if err != nil {
		respond(s, i, "Unknown priority level.", true)
		return
	}
	if err := h.manager.SetPriority(context.Background(), actorFrom(i), i.ChannelID, level); err != nil {
		respond(s, i, opText(err), true)
		return
	}
	respond(s, i, fmt.Sprintf("Priority set: %s", level), false)
}

func (h *Handlers) handleLock(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if err := h.manager.Lock(context.Background(), actorFrom(i), i.ChannelID); err != nil {
		respond(s, i, opText(err), true)
		return
	}
	respond(s, i, "Ticket locked.", false)
}

func (h *Handlers) handleUnlock(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if err := h.manager.Unlock(context.Background(), actorFrom(i), i.ChannelID); err != nil {
		respond(s, i, opText(err), true)
		return
	}
	respond(s, i, "Ticket unlocked.", false)
}

// handleTranscript renders and delivers the transcript on demand, without
// closing the ticket.
func (h *Handlers) handleTranscript(s *discordgo.Session, i *discordgo.InteractionCreate) {
	t, ok := h.manager.Get(i.ChannelID)
	if !ok {
		respond(s, i, "Use this inside a ticket channel.", true)
		return
	}
	cfg := h.store.Get()
	sink := cfg.Sinks.Transcripts
	if sink == "" {
		respond(s, i, "No transcripts channel configured.", true)
		return
	}

	// History paging can outlast the interaction window, so acknowledge now
	// and deliver the outcome as a followup.
	respond(s, i, "🧾 Generating transcript...", true)

	platform := NewDiscordPlatform(s, i.GuildID)
	history, err := platform.FetchHistory(context.Background(), i.ChannelID, cfg.Tickets.HistoryFetchLimit)
	if err != nil {
		followup(s, i, fmt.Sprintf("Failed to fetch history: %v", err))
		return
	}
	doc := transcript.Render(t.CategoryKey+"-"+i.ChannelID, i.ChannelID, history)

	_, err = platform.PostMessage(context.Background(), sink, ticket.Message{
		Content: fmt.Sprintf("🧾 Transcript generated by <@%s> for <#%s>", actorFrom(i).ID, i.ChannelID),
		Files: []ticket.File{
			{Name: fmt.Sprintf("transcript_%s.txt", i.ChannelID), ContentType: "text/plain", Data: []byte(doc.Text)},
			{Name: fmt.Sprintf("transcript_%s.html", i.ChannelID), ContentType: "text/html", Data: []byte(doc.HTML)},
		},
	})
	if err != nil {
		followup(s, i, fmt.Sprintf("Failed to deliver transcript: %v", err))
		return
	}
	followup(s, i, "Transcript sent to <#"+sink+">.")
}

func (h *Handlers) handleNote(s *discordgo.Session, i *discordgo.InteractionCreate) {
	note := optionMap(i)["note"].StringValue()
	sink := h.store.Get().Sinks.TicketLog
	if sink != "" {
		_, _ = s.ChannelMessageSend(sink,
			fmt.Sprintf("📝 Note by <@%s> in <#%s>: %s", actorFrom(i).ID, i.ChannelID, note))
	}
	respond(s, i, "Noted.", true)
}

// handleNoteDM sends a staff note to the ticket opener via DM, preferring the
// stored opener id and falling back to the history heuristic.
func (h *Handlers) handleNoteDM(s *discordgo.Session, i *discordgo.InteractionCreate) {
	message := optionMap(i)["message"].StringValue()
	platform := NewDiscordPlatform(s, i.GuildID)

	opener := ""
	if t, ok := h.manager.Get(i.ChannelID); ok {
		opener = t.OpenerID
	}
	if opener == "" {
		history, err := platform.FetchHistory(context.Background(), i.ChannelID, 100)
		if err == nil {
			for _, m := range history {
				if !m.Bot {
					opener = m.AuthorID
					break
				}
			}
		}
	}
	if opener == "" {
		respond(s, i, "Could not detect the opener.", true)
		return
	}

	_ = platform.SendPrivateMessage(context.Background(), opener, ticket.Message{Content: "Staff note: " + message})
	respond(s, i, "Note sent via DM.", true)
}

func (h *Handlers) handleTicketList(s *discordgo.Session, i *discordgo.InteractionCreate) {
	tickets := h.manager.List()
	if len(tickets) == 0 {
		respond(s, i, "No open tickets.", true)
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "**Open Tickets** (%d):\n", len(tickets))
	for _, t := range tickets {
		flags := ""
		if t.AssignedID != "" {
			flags += fmt.Sprintf(" → <@%s>", t.AssignedID)
		}
		if t.Locked {
			flags += " 🔒"
		}
		fmt.Fprintf(&sb, "• <#%s> — by <@%s> [%s / %s]%s\n", t.ChannelID, t.OpenerID, t.CategoryKey, t.Priority, flags)
	}
	respond(s, i, sb.String(), true)
}

// handleMove reparents the ticket under the destination category's container.
func (h *Handlers) handleMove(s *discordgo.Session, i *discordgo.InteractionCreate) {
	key := optionMap(i)["category"].StringValue()
	if err := h.manager.Move(context.Background(), actorFrom(i), i.ChannelID, key); err != nil {
		switch {
		case errors.Is(err, ticket.ErrUnknownCategory):
			respond(s, i, "Category not found.", true)
		case errors.Is(err, ticket.ErrMisconfiguredCategory):
			respond(s, i, "That category has no container configured.", true)
		default:
			respond(s, i, opText(err), true)
		}
		return
	}
	respond(s, i, fmt.Sprintf("Ticket moved to `%s`.", key), false)
}

// handleDelete removes the ticket channel immediately, skipping the
// transcript and review flow.
func (h *Handlers) handleDelete(s *discordgo.Session, i *discordgo.InteractionCreate) {
	// Same shape as close: the channel is about to disappear, so acknowledge
	// first and follow up only on failure.
	respond(s, i, "🗑️ Deleting ticket...", true)

	if err := h.manager.Delete(context.Background(), actorFrom(i), i.ChannelID); err != nil {
		followup(s, i, opText(err))
	}
}

func (h *Handlers) handleStats(s *discordgo.Session, i *discordgo.InteractionCreate) {
	cfg := h.store.Get()
	embed := &discordgo.MessageEmbed{
		Title: "Stats",
		Description: fmt.Sprintf("Connected since: %s\nOpen tickets: %d",
			h.startedAt.Format("2006-01-02 15:04:05 UTC"), len(h.manager.List())),
		Color:  cfg.Branding.EmbedColor,
		Footer: &discordgo.MessageEmbedFooter{Text: cfg.Branding.FooterText},
	}
	_ = s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{embed},
			Flags:  discordgo.MessageFlagsEphemeral,
		},
	})
}

func (h *Handlers) handlePing(s *discordgo.Session, i *discordgo.InteractionCreate) {
	respond(s, i, fmt.Sprintf("Pong! %dms", s.HeartbeatLatency().Milliseconds()), true)
}

func (h *Handlers) handleHelp(s *discordgo.Session, i *discordgo.InteractionCreate) {
	cfg := h.store.Get()
	embed := &discordgo.MessageEmbed{
		Title:       cfg.Branding.PanelTitle + " — Help",
		Description: "Use `/panel` to post the panel. Open a ticket via the selector. Staff manage tickets with the `/ticket_*` commands.",
		Color:       cfg.Branding.EmbedColor,
		Footer:      &discordgo.MessageEmbedFooter{Text: cfg.Branding.FooterText},
	}
	_ = s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{embed},
			Flags:  discordgo.MessageFlagsEphemeral,
		},
	})
}
