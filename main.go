package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"nuvix-tickets/bot"
	"nuvix-tickets/config"
	"nuvix-tickets/events"
	"nuvix-tickets/handlers"
	"nuvix-tickets/logging"
	"nuvix-tickets/review"
	"nuvix-tickets/storage"
	"nuvix-tickets/ticket"
)

func main() {
	configPath := flag.String("config", "config.json", "Path to config file")
	cleanup := flag.Bool("cleanup", false, "Remove slash commands on shutdown")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if cfg.Discord.Token == "" {
		log.Fatal("Set the bot token via NUVIX_TICKETS_TOKEN or discord.token in the config file")
	}

	logger, err := logging.New(cfg.Logging.Level)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync()

	for _, warn := range cfg.Validate() {
		logger.Warn("config: " + warn)
	}

	store := config.NewStore(cfg, *configPath)
	blacklist := storage.LoadBlacklist(cfg.Tickets.BlacklistPath, logger)

	db, err := storage.OpenDatabase(&cfg.Database, logger)
	if err != nil {
		logger.Warn("review archive unavailable; reviews will not be persisted", zap.Error(err))
		db = nil
	} else {
		defer db.Close()
	}

	dispatcher := events.NewDispatcher()
	if cfg.Events.AMQPURL != "" {
		amqpPub, err := events.NewAMQPPublisher(cfg.Events.AMQPURL, cfg.Events.Exchange, logger)
		if err != nil {
			logger.Warn("amqp connect failed; events stay in-process", zap.Error(err))
		} else {
			defer amqpPub.Close()
			forward := func(t events.Type) {
				dispatcher.Subscribe(t, amqpPub.Publish)
			}
			forward(events.TicketOpened)
			forward(events.TicketClosed)
			forward(events.ReviewSubmitted)
		}
	}

	b, err := bot.New(store, logger)
	if err != nil {
		logger.Fatal("session create failed", zap.Error(err))
	}

	reviewUI := handlers.NewReviewUI(b.Session, store, dispatcher, logger)

	var archive review.Archive
	if db != nil {
		archive = db
	}
	collector := review.NewCollector(
		reviewUI,
		reviewUI,
		archive,
		time.Duration(cfg.Tickets.ReviewTimeoutMinutes)*time.Minute,
		logger,
	)
	reviewUI.SetCollector(collector)

	platform := handlers.NewDiscordPlatform(b.Session, cfg.Discord.GuildID)
	registry := ticket.NewRegistry(store)
	manager := ticket.NewManager(platform, registry, store, blacklist, collector, dispatcher, logger)

	h := handlers.New(store, manager, registry, blacklist, db, reviewUI, logger)
	h.Register(b.Session)

	if err := b.Start(); err != nil {
		logger.Fatal("gateway open failed", zap.Error(err))
	}
	defer b.Stop()

	b.RegisterCommands(handlers.Commands())

	if sink := store.Get().Sinks.BotLog; sink != "" {
		_, _ = b.Session.ChannelMessageSend(sink, "✅ Nuvix Tickets is online.")
	}

	logger.Info("running; press Ctrl+C to exit")

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	if *cleanup {
		b.CleanupCommands()
	}
}
