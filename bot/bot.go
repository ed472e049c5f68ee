package bot

import (
	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"nuvix-tickets/config"
)

// Bot owns the gateway session and slash-command registration lifecycle.
type Bot struct {
	Session *discordgo.Session
	store   *config.Store
	log     *zap.Logger
	ready   chan struct{}
}

func New(store *config.Store, log *zap.Logger) (*Bot, error) {
	cfg := store.Get()
	s, err := discordgo.New("Bot " + cfg.Discord.Token)
	if err != nil {
		return nil, err
	}
	s.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildMessages | discordgo.IntentsDirectMessages
	return &Bot{
		Session: s,
		store:   store,
		log:     log,
		ready:   make(chan struct{}),
	}, nil
}

func (b *Bot) Start() error {
	b.Session.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		b.log.Info("bot online",
			zap.String("username", r.User.Username),
			zap.String("id", r.User.ID))
		select {
		case <-b.ready:
		default:
			close(b.ready)
		}
	})
	return b.Session.Open()
}

func (b *Bot) Stop() {
	_ = b.Session.Close()
}

// RegisterCommands bulk-overwrites the guild's slash commands once the
// gateway reports ready.
func (b *Bot) RegisterCommands(cmds []*discordgo.ApplicationCommand) []*discordgo.ApplicationCommand {
	<-b.ready

	appID := b.Session.State.User.ID
	guildID := b.store.Get().Discord.GuildID

	registered, err := b.Session.ApplicationCommandBulkOverwrite(appID, guildID, cmds)
	if err != nil {
		b.log.Error("command registration failed", zap.Error(err))
		return nil
	}

	b.log.Info("slash commands registered", zap.Int("count", len(registered)))
	return registered
}

func (b *Bot) CleanupCommands() {
	<-b.ready
	appID := b.Session.State.User.ID
	guildID := b.store.Get().Discord.GuildID
	if _, err := b.Session.ApplicationCommandBulkOverwrite(appID, guildID, []*discordgo.ApplicationCommand{}); err != nil {
		b.log.Error("command cleanup failed", zap.Error(err))
		return
	}
	b.log.Info("slash commands removed")
}
