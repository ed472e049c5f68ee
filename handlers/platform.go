package handlers

import (
	"bytes"
	"context"

	"github.com/bwmarrin/discordgo"

	"nuvix-tickets/ticket"
	"nuvix-tickets/transcript"
)

// DiscordPlatform implements ticket.Platform on a discordgo session.
type DiscordPlatform struct {
	session *discordgo.Session
	guildID string
}

func NewDiscordPlatform(s *discordgo.Session, guildID string) *DiscordPlatform {
	return &DiscordPlatform{session: s, guildID: guildID}
}

const (
	participantAllow = discordgo.PermissionViewChannel | discordgo.PermissionSendMessages |
		discordgo.PermissionAttachFiles | discordgo.PermissionReadMessageHistory
	staffAllow = participantAllow | discordgo.PermissionManageMessages
)

// target resolves a grant target; an empty id addresses the everyone role,
// whose id equals the guild id.
func (p *DiscordPlatform) target(g ticket.Grant) (string, discordgo.PermissionOverwriteType) {
	id := g.TargetID
	if id == "" {
		id = p.guildID
	}
	typ := discordgo.PermissionOverwriteTypeMember
	if g.Role || g.TargetID == "" {
		typ = discordgo.PermissionOverwriteTypeRole
	}
	return id, typ
}

func bits(a ticket.Access) (allow, deny int64) {
	switch a {
	case ticket.AccessDefaultHidden:
		return 0, discordgo.PermissionViewChannel
	case ticket.AccessDefaultHiddenLocked:
		return 0, discordgo.PermissionViewChannel | discordgo.PermissionSendMessages
	case ticket.AccessParticipant:
		return participantAllow, 0
	case ticket.AccessStaff:
		return staffAllow, 0
	}
	return 0, 0
}

func (p *DiscordPlatform) CreateContainer(ctx context.Context, name, parentID string, grants []ticket.Grant) (string, error) {
	overwrites := make([]*discordgo.PermissionOverwrite, 0, len(grants))
	for _, g := range grants {
		id, typ := p.target(g)
		allow, deny := bits(g.Access)
		overwrites = append(overwrites, &discordgo.PermissionOverwrite{
			ID: id, Type: typ, Allow: allow, Deny: deny,
		})
	}

	ch, err := p.session.GuildChannelCreateComplex(p.guildID, discordgo.GuildChannelCreateData{
		Name:                 name,
		Type:                 discordgo.ChannelTypeGuildText,
		ParentID:             parentID,
		PermissionOverwrites: overwrites,
	}, discordgo.WithContext(ctx))
	if err != nil {
		return "", err
	}
	return ch.ID, nil
}

func (p *DiscordPlatform) DeleteContainer(ctx context.Context, containerID string) error {
	_, err := p.session.ChannelDelete(containerID, discordgo.WithContext(ctx))
	return err
}

func (p *DiscordPlatform) SetContainerAccess(ctx context.Context, containerID string, g ticket.Grant) error {
	id, typ := p.target(g)
	if g.Access == ticket.AccessClear {
		return p.session.ChannelPermissionDelete(containerID, id, discordgo.WithContext(ctx))
	}
	allow, deny := bits(g.Access)
	return p.session.ChannelPermissionSet(containerID, id, typ, allow, deny, discordgo.WithContext(ctx))
}

func (p *DiscordPlatform) RenameContainer(ctx context.Context, containerID, name string) error {
	_, err := p.session.ChannelEdit(containerID, &discordgo.ChannelEdit{Name: name}, discordgo.WithContext(ctx))
	return err
}

func (p *DiscordPlatform) MoveContainer(ctx context.Context, containerID, parentID string) error {
	_, err := p.session.ChannelEdit(containerID, &discordgo.ChannelEdit{ParentID: parentID}, discordgo.WithContext(ctx))
	return err
}

func (p *DiscordPlatform) ContainerTopic(ctx context.Context, containerID string) (string, error) {
	ch, err := p.session.Channel(containerID, discordgo.WithContext(ctx))
	if err != nil {
		return "", err
	}
	return ch.Topic, nil
}

func (p *DiscordPlatform) SetContainerTopic(ctx context.Context, containerID, topic string) error {
	_, err := p.session.ChannelEdit(containerID, &discordgo.ChannelEdit{Topic: topic}, discordgo.WithContext(ctx))
	return err
}

func toMessageSend(msg ticket.Message) *discordgo.MessageSend {
	send := &discordgo.MessageSend{Content: msg.Content}
	for _, f := range msg.Files {
		send.Files = append(send.Files, &discordgo.File{
			Name:        f.Name,
			ContentType: f.ContentType,
			Reader:      bytes.NewReader(f.Data),
		})
	}
	return send
}

func (p *DiscordPlatform) PostMessage(ctx context.Context, containerID string, msg ticket.Message) (string, error) {
	m, err := p.session.ChannelMessageSendComplex(containerID, toMessageSend(msg), discordgo.WithContext(ctx))
	if err != nil {
		return "", err
	}
	return m.ID, nil
}

func (p *DiscordPlatform) EditMessage(ctx context.Context, containerID, messageID, content string) error {
	_, err := p.session.ChannelMessageEdit(containerID, messageID, content, discordgo.WithContext(ctx))
	return err
}

// FetchHistory pages forwards from the start of the channel and returns up to
// limit records, oldest first. Paging from the oldest end means a channel
// longer than the limit keeps its earliest messages, which the opener
// fallback heuristic depends on.
func (p *DiscordPlatform) FetchHistory(ctx context.Context, containerID string, limit int) ([]transcript.Message, error) {
	msgs, err := collectHistory(limit, func(batchSize int, after string) ([]*discordgo.Message, error) {
		return p.session.ChannelMessages(containerID, batchSize, "", after, "", discordgo.WithContext(ctx))
	})
	if err != nil {
		return nil, err
	}

	out := make([]transcript.Message, 0, len(msgs))
	for _, m := range msgs {
		rec := transcript.Message{
			ID:        m.ID,
			Timestamp: m.Timestamp,
			Content:   m.Content,
		}
		if m.Author != nil {
			rec.AuthorID = m.Author.ID
			rec.AuthorName = m.Author.Username
			rec.Bot = m.Author.Bot
		}
		for _, a := range m.Attachments {
			rec.Attachments = append(rec.Attachments, transcript.Attachment{Name: a.Filename, URL: a.URL})
		}
		out = append(out, rec)
	}
	return out, nil
}

// collectHistory drives the after-cursor pagination. The API returns each
// batch newest first; batches are reversed and stitched so the result is
// oldest first overall. fetch receives the id of the newest message seen so
// far ("0" for the first call).
func collectHistory(limit int, fetch func(batchSize int, after string) ([]*discordgo.Message, error)) ([]*discordgo.Message, error) {
	var out []*discordgo.Message
	after := "0"
	for len(out) < limit {
		batchSize := limit - len(out)
		if batchSize > 100 {
			batchSize = 100
		}
		batch, err := fetch(batchSize, after)
		if err != nil {
			return nil, err
		}
		if len(batch) == 0 {
			break
		}
		for idx := len(batch) - 1; idx >= 0; idx-- {
			out = append(out, batch[idx])
		}
		after = batch[0].ID
		if len(batch) < batchSize {
			break
		}
	}
	return out, nil
}

func (p *DiscordPlatform) SendPrivateMessage(ctx context.Context, actorID string, msg ticket.Message) error {
	dm, err := p.session.UserChannelCreate(actorID, discordgo.WithContext(ctx))
	if err != nil {
		return err
	}
	_, err = p.session.ChannelMessageSendComplex(dm.ID, toMessageSend(msg), discordgo.WithContext(ctx))
	return err
}
