package handlers

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"nuvix-tickets/config"
	"nuvix-tickets/events"
	"nuvix-tickets/review"
)

// ReviewUI is the Discord face of review collection. It delivers the star
// prompt as a DM, turns button presses into the comment modal, and announces
// accepted reviews in the configured channel.
type ReviewUI struct {
	session   *discordgo.Session
	store     *config.Store
	publisher events.Publisher
	log       *zap.Logger

	// set after construction; the collector needs the presenter first
	collector *review.Collector

	mu      sync.Mutex
	prompts map[string]promptRef
}

type promptRef struct {
	channelID string
	messageID string
}

func NewReviewUI(s *discordgo.Session, store *config.Store, pub events.Publisher, log *zap.Logger) *ReviewUI {
	return &ReviewUI{
		session:   s,
		store:     store,
		publisher: pub,
		log:       log,
		prompts:   make(map[string]promptRef),
	}
}

// SetCollector closes the construction cycle between the UI and collector.
func (r *ReviewUI) SetCollector(c *review.Collector) { r.collector = c }

// PresentStars DMs the opener a five-button star row. A delivery failure is
// returned so the collector can drop the solicitation.
func (r *ReviewUI) PresentStars(ctx context.Context, openerID, solicitationID, ticketRef string) error {
	dm, err := r.session.UserChannelCreate(openerID, discordgo.WithContext(ctx))
	if err != nil {
		return err
	}

	cfg := r.store.Get()
	buttons := make([]discordgo.MessageComponent, 0, review.MaxStars)
	for n := 1; n <= review.MaxStars; n++ {
		buttons = append(buttons, discordgo.Button{
			Style:    discordgo.SecondaryButton,
			Emoji:    &discordgo.ComponentEmoji{Name: "⭐"},
			Label:    strconv.Itoa(n),
			CustomID: fmt.Sprintf("review_star:%s:%d", solicitationID, n),
		})
	}

	msg, err := r.session.ChannelMessageSendComplex(dm.ID, &discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{{
			Title:       "How was your support experience?",
			Description: fmt.Sprintf("Your ticket `%s` was closed. Rate us from 1 to 5 stars!", ticketRef),
			Color:       cfg.Branding.EmbedColor,
			Footer:      &discordgo.MessageEmbedFooter{Text: cfg.Branding.FooterText},
		}},
		Components: []discordgo.MessageComponent{
			discordgo.ActionsRow{Components: buttons},
		},
	}, discordgo.WithContext(ctx))
	if err != nil {
		return err
	}

	r.mu.Lock()
	r.prompts[solicitationID] = promptRef{channelID: dm.ID, messageID: msg.ID}
	r.mu.Unlock()
	return nil
}

// handleStarButton opens the comment modal for the pressed star count.
func (r *ReviewUI) handleStarButton(s *discordgo.Session, i *discordgo.InteractionCreate) {
	parts := strings.Split(i.MessageComponentData().CustomID, ":")
	if len(parts) != 3 {
		return
	}
	sid, starsRaw := parts[1], parts[2]
	stars, err := strconv.Atoi(starsRaw)
	if err != nil || stars < 1 || stars > review.MaxStars {
		return
	}

	if !r.collector.Pending(sid) {
		respond(s, i, "This review prompt has expired.", true)
		r.disablePrompt(sid)
		return
	}

	err = s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseModal,
		Data: &discordgo.InteractionResponseData{
			CustomID: fmt.Sprintf("review_modal:%s:%d", sid, stars),
			Title:    "Leave a review",
			Components: []discordgo.MessageComponent{
				discordgo.ActionsRow{Components: []discordgo.MessageComponent{
					discordgo.TextInput{
						CustomID:    "comment",
						Label:       "Comment (optional)",
						Style:       discordgo.TextInputParagraph,
						Placeholder: "Tell us more about your experience",
						MaxLength:   review.MaxCommentLength,
					},
				}},
			},
		},
	})
	if err != nil {
		r.log.Warn("review modal present failed", zap.Error(err))
	}
}

// handleReviewSubmit consumes the solicitation and thanks the rater.
func (r *ReviewUI) handleReviewSubmit(s *discordgo.Session, i *discordgo.InteractionCreate) {
	data := i.ModalSubmitData()
	parts := strings.Split(data.CustomID, ":")
	if len(parts) != 3 {
		return
	}
	sid := parts[1]
	stars, err := strconv.Atoi(parts[2])
	if err != nil {
		return
	}

	comment := ""
	for _, row := range data.Components {
		ar, ok := row.(*discordgo.ActionsRow)
		if !ok || len(ar.Components) == 0 {
			continue
		}
		if in, ok := ar.Components[0].(*discordgo.TextInput); ok && in.CustomID == "comment" {
			comment = in.Value
		}
	}

	rater := actorFrom(i)
	accepted, err := r.collector.Submit(context.Background(), sid, rater.ID, stars, comment)
	if err != nil {
		if errors.Is(err, review.ErrExpired) {
			respond(s, i, "This review prompt has expired.", true)
		} else {
			respond(s, i, fmt.Sprintf("Could not record the review: %v", err), true)
		}
		r.disablePrompt(sid)
		return
	}

	respond(s, i, fmt.Sprintf("Thanks for your feedback! %s", accepted.StarsText()), true)
	r.disablePrompt(sid)
}

// disablePrompt greys out the star buttons on the original DM so the prompt
// reads as consumed.
func (r *ReviewUI) disablePrompt(sid string) {
	r.mu.Lock()
	ref, ok := r.prompts[sid]
	delete(r.prompts, sid)
	r.mu.Unlock()
	if !ok {
		return
	}

	buttons := make([]discordgo.MessageComponent, 0, review.MaxStars)
	for n := 1; n <= review.MaxStars; n++ {
		buttons = append(buttons, discordgo.Button{
			Style:    discordgo.SecondaryButton,
			Emoji:    &discordgo.ComponentEmoji{Name: "⭐"},
			Label:    strconv.Itoa(n),
			CustomID: fmt.Sprintf("review_star:%s:%d", sid, n),
			Disabled: true,
		})
	}
	_, err := r.session.ChannelMessageEditComplex(&discordgo.MessageEdit{
		Channel: ref.channelID,
		ID:      ref.messageID,
		Components: &[]discordgo.MessageComponent{
			discordgo.ActionsRow{Components: buttons},
		},
	})
	if err != nil {
		r.log.Debug("review prompt disable failed", zap.Error(err))
	}
}

// Publish announces an accepted review in the reviews channel and fans out
// the lifecycle event.
func (r *ReviewUI) Publish(ctx context.Context, rev review.Review) error {
	if r.publisher != nil {
		_ = r.publisher.Publish(ctx, events.Event{
			Type:      events.ReviewSubmitted,
			TicketRef: rev.TicketRef,
			ActorID:   rev.RaterID,
			At:        time.Now().UTC(),
			Detail:    map[string]string{"stars": strconv.Itoa(rev.Stars)},
		})
	}

	cfg := r.store.Get()
	sink := cfg.Sinks.Reviews
	if sink == "" {
		return nil
	}

	embed := &discordgo.MessageEmbed{
		Title:       "New review " + rev.StarsText(),
		Description: rev.Comment,
		Color:       cfg.Branding.EmbedColor,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "From", Value: fmt.Sprintf("<@%s>", rev.RaterID), Inline: true},
			{Name: "Ticket", Value: fmt.Sprintf("`%s`", rev.TicketRef), Inline: true},
			{Name: "Closed by", Value: fmt.Sprintf("<@%s>", rev.CloserID), Inline: true},
		},
		Footer:    &discordgo.MessageEmbedFooter{Text: cfg.Branding.FooterText},
		Timestamp: rev.SubmittedAt.Format(time.RFC3339),
	}
	_, err := r.session.ChannelMessageSendComplex(sink, &discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{embed},
	}, discordgo.WithContext(ctx))
	return err
}
