package handlers

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"nuvix-tickets/ticket"
)

// handlePanel posts the category select panel into the invoking channel.
func (h *Handlers) handlePanel(s *discordgo.Session, i *discordgo.InteractionCreate) {
	cfg := h.store.Get()
	categories := h.registry.All()
	if len(categories) == 0 {
		respond(s, i, "No ticket categories configured.", true)
		return
	}

	embed := &discordgo.MessageEmbed{
		Title:       cfg.Branding.PanelTitle,
		Description: cfg.Branding.PanelSubtitle,
		Color:       cfg.Branding.EmbedColor,
		Footer:      &discordgo.MessageEmbedFooter{Text: cfg.Branding.FooterText},
	}
	if cfg.Branding.IconURL != "" {
		embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: cfg.Branding.IconURL}
	}
	if cfg.Branding.BannerURL != "" {
		embed.Image = &discordgo.MessageEmbedImage{URL: cfg.Branding.BannerURL}
	}

	opts := make([]discordgo.SelectMenuOption, 0, len(categories))
	for _, cat := range categories {
		opt := discordgo.SelectMenuOption{
			Label:       cat.Label,
			Value:       cat.Key,
			Description: cat.Description,
		}
		if cat.Emoji != "" {
			opt.Emoji = &discordgo.ComponentEmoji{Name: cat.Emoji}
		}
		opts = append(opts, opt)
	}

	_, err := s.ChannelMessageSendComplex(i.ChannelID, &discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{embed},
		Components: []discordgo.MessageComponent{
			discordgo.ActionsRow{Components: []discordgo.MessageComponent{
				discordgo.SelectMenu{
					MenuType:    discordgo.StringSelectMenu,
					CustomID:    "ticket_category_select",
					Placeholder: "Select a ticket category",
					Options:     opts,
				},
			}},
		},
	})
	if err != nil {
		respond(s, i, fmt.Sprintf("Failed to send panel: %v", err), true)
		return
	}
	respond(s, i, "Panel posted.", true)
}

// handleCategorySelect opens the intake modal for the selected category.
func (h *Handlers) handleCategorySelect(s *discordgo.Session, i *discordgo.InteractionCreate) {
	data := i.MessageComponentData()
	if len(data.Values) == 0 {
		return
	}
	cat, err := h.registry.Category(data.Values[0])
	if err != nil {
		respond(s, i, "Category not found.", true)
		return
	}

	rows := make([]discordgo.MessageComponent, 0, len(cat.Fields))
	for idx, f := range cat.Fields {
		if idx >= 5 {
			break
		}
		style := discordgo.TextInputShort
		if f.Multiline {
			style = discordgo.TextInputParagraph
		}
		label := f.Label
		if r := []rune(label); len(r) > 45 {
			label = string(r[:45])
		}
		rows = append(rows, discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			discordgo.TextInput{
				CustomID:  "f" + strconv.Itoa(idx),
				Label:     label,
				Style:     style,
				Required:  f.Required,
				MaxLength: f.MaxLength,
			},
		}})
	}

	err = s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseModal,
		Data: &discordgo.InteractionResponseData{
			CustomID:   "ticket_modal:" + cat.Key,
			Title:      "Create your ticket",
			Components: rows,
		},
	})
	if err != nil {
		h.log.Warn("modal present failed", zap.String("category", cat.Key), zap.Error(err))
	}
}

// handleIntakeSubmit validates the submitted form and creates the ticket.
func (h *Handlers) handleIntakeSubmit(s *discordgo.Session, i *discordgo.InteractionCreate) {
	data := i.ModalSubmitData()
	key := strings.TrimPrefix(data.CustomID, "ticket_modal:")

	fields, err := h.registry.Fields(key)
	if err != nil {
		respond(s, i, "Category not found.", true)
		return
	}

	submitted := make(map[string]string, len(fields))
	for _, row := range data.Components {
		ar, ok := row.(*discordgo.ActionsRow)
		if !ok || len(ar.Components) == 0 {
			continue
		}
		in, ok := ar.Components[0].(*discordgo.TextInput)
		if !ok {
			continue
		}
		idx, err := strconv.Atoi(strings.TrimPrefix(in.CustomID, "f"))
		if err != nil || idx < 0 || idx >= len(fields) {
			continue
		}
		submitted[fields[idx].Label] = in.Value
	}

	t, err := h.manager.Create(context.Background(), actorFrom(i), key, submitted)
	if err != nil {
		respond(s, i, createErrorText(err), true)
		return
	}
	respond(s, i, fmt.Sprintf("Ticket created: <#%s>", t.ChannelID), true)
}

func createErrorText(err error) string {
	var verr *ticket.ValidationError
	switch {
	case errors.Is(err, ticket.ErrBlacklisted):
		return "You are blacklisted from opening tickets."
	case errors.Is(err, ticket.ErrMisconfiguredCategory):
		return "The ticket category is not configured. Please contact an administrator."
	case errors.Is(err, ticket.ErrUnknownCategory):
		return "Category not found."
	case errors.Is(err, ticket.ErrTooManyOpen):
		return "You already have the maximum number of open tickets."
	case errors.As(err, &verr):
		return fmt.Sprintf("Invalid submission — %v.", verr)
	default:
		return fmt.Sprintf("Failed creating the ticket: %v", err)
	}
}
