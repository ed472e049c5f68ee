package handlers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"nuvix-tickets/config"
)

func (h *Handlers) handleBlacklistAdd(s *discordgo.Session, i *discordgo.InteractionCreate) {
	target := optionMap(i)["user"].UserValue(s)
	if err := h.blacklist.Add(target.ID); err != nil {
		respond(s, i, fmt.Sprintf("Failed to save the blacklist: %v", err), true)
		return
	}
	respond(s, i, fmt.Sprintf("⛔ <@%s> can no longer open tickets.", target.ID), false)
}

func (h *Handlers) handleBlacklistRemove(s *discordgo.Session, i *discordgo.InteractionCreate) {
	target := optionMap(i)["user"].UserValue(s)
	if err := h.blacklist.Remove(target.ID); err != nil {
		respond(s, i, fmt.Sprintf("Failed to save the blacklist: %v", err), true)
		return
	}
	respond(s, i, fmt.Sprintf("✅ <@%s> can open tickets again.", target.ID), false)
}

func (h *Handlers) handleBlacklistList(s *discordgo.Session, i *discordgo.InteractionCreate) {
	ids := h.blacklist.List()
	if len(ids) == 0 {
		respond(s, i, "The blacklist is empty.", true)
		return
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "**Blacklisted users** (%d):\n", len(ids))
	for _, id := range ids {
		fmt.Fprintf(&sb, "• <@%s> (%s)\n", id, id)
	}
	respond(s, i, sb.String(), true)
}

func (h *Handlers) handleListReviews(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if h.db == nil {
		respond(s, i, "No review archive configured.", true)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	reviews, err := h.db.RecentReviews(ctx, 10)
	if err != nil {
		respond(s, i, fmt.Sprintf("Failed to load reviews: %v", err), true)
		return
	}
	if len(reviews) == 0 {
		respond(s, i, "No reviews yet.", true)
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "**Recent reviews** (%d):\n", len(reviews))
	for _, r := range reviews {
		line := fmt.Sprintf("• %s by <@%s> for `%s`", r.StarsText(), r.RaterID, r.TicketRef)
		if r.Comment != "" {
			comment := r.Comment
			if rn := []rune(comment); len(rn) > 80 {
				comment = string(rn[:80]) + "…"
			}
			line += " — " + comment
		}
		sb.WriteString(line + "\n")
	}
	respond(s, i, sb.String(), true)
}

// updateSink mutates one configured channel id and persists the config.
func (h *Handlers) updateSink(s *discordgo.Session, i *discordgo.InteractionCreate, optName, what string, set func(cfg *config.Config, id string)) {
	ch := optionMap(i)[optName].ChannelValue(s)
	if err := h.store.Update(func(cfg *config.Config) { set(cfg, ch.ID) }); err != nil {
		respond(s, i, fmt.Sprintf("Failed to save config: %v", err), true)
		return
	}
	respond(s, i, fmt.Sprintf("%s set to <#%s>.", what, ch.ID), true)
}

func (h *Handlers) handleSetCategory(s *discordgo.Session, i *discordgo.InteractionCreate) {
	h.updateSink(s, i, "category", "Ticket category", func(cfg *config.Config, id string) {
		cfg.Tickets.DefaultCategory = id
	})
}

func (h *Handlers) handleSetLogs(s *discordgo.Session, i *discordgo.InteractionCreate) {
	h.updateSink(s, i, "channel", "Ticket log channel", func(cfg *config.Config, id string) {
		cfg.Sinks.TicketLog = id
	})
}

func (h *Handlers) handleSetReviews(s *discordgo.Session, i *discordgo.InteractionCreate) {
	h.updateSink(s, i, "channel", "Reviews channel", func(cfg *config.Config, id string) {
		cfg.Sinks.Reviews = id
	})
}

func (h *Handlers) handleSetTranscripts(s *discordgo.Session, i *discordgo.InteractionCreate) {
	h.updateSink(s, i, "channel", "Transcripts channel", func(cfg *config.Config, id string) {
		cfg.Sinks.Transcripts = id
	})
}

func (h *Handlers) handleAddStaffRole(s *discordgo.Session, i *discordgo.InteractionCreate) {
	role := optionMap(i)["role"].RoleValue(s, i.GuildID)
	err := h.store.Update(func(cfg *config.Config) {
		for _, id := range cfg.Access.StaffRoles {
			if id == role.ID {
				return
			}
		}
		cfg.Access.StaffRoles = append(cfg.Access.StaffRoles, role.ID)
	})
	if err != nil {
		respond(s, i, fmt.Sprintf("Failed to save config: %v", err), true)
		return
	}
	respond(s, i, fmt.Sprintf("Role <@&%s> added to staff.", role.ID), true)
}

func (h *Handlers) handleRemoveStaffRole(s *discordgo.Session, i *discordgo.InteractionCreate) {
	role := optionMap(i)["role"].RoleValue(s, i.GuildID)
	err := h.store.Update(func(cfg *config.Config) {
		kept := make([]string, 0, len(cfg.Access.StaffRoles))
		for _, id := range cfg.Access.StaffRoles {
			if id != role.ID {
				kept = append(kept, id)
			}
		}
		cfg.Access.StaffRoles = kept
	})
	if err != nil {
		respond(s, i, fmt.Sprintf("Failed to save config: %v", err), true)
		return
	}
	respond(s, i, fmt.Sprintf("Role <@&%s> removed from staff.", role.ID), true)
}
