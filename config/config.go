package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Discord  DiscordConfig  `json:"discord" yaml:"discord"`
	Logging  LoggingConfig  `json:"logging" yaml:"logging"`
	Access   AccessConfig   `json:"access" yaml:"access"`
	Sinks    SinksConfig    `json:"sinks" yaml:"sinks"`
	Tickets  TicketsConfig  `json:"tickets" yaml:"tickets"`
	Database DatabaseConfig `json:"database" yaml:"database"`
	Events   EventsConfig   `json:"events" yaml:"events"`
	Branding BrandingConfig `json:"branding" yaml:"branding"`
}

type DiscordConfig struct {
	Token   string `json:"token" yaml:"token"`
	GuildID string `json:"guild_id" yaml:"guild_id"`
}

type LoggingConfig struct {
	Level string `json:"level" yaml:"level"`
}

type AccessConfig struct {
	StaffRoles []string `json:"staff_roles" yaml:"staff_roles"`
	OwnerID    string   `json:"owner_id" yaml:"owner_id"`
	CoOwnerID  string   `json:"coowner_id" yaml:"coowner_id"`
}

// SinksConfig lists the channels the bot delivers notifications to. Every
// sink is optional; an empty id means the delivery is skipped.
type SinksConfig struct {
	CommandLog  string `json:"command_log" yaml:"command_log"`
	TicketLog   string `json:"ticket_log" yaml:"ticket_log"`
	Transcripts string `json:"transcripts" yaml:"transcripts"`
	Reviews     string `json:"reviews" yaml:"reviews"`
	BotLog      string `json:"bot_log" yaml:"bot_log"`
}

type TicketsConfig struct {
	DefaultCategory      string           `json:"default_category" yaml:"default_category"`
	MaxOpenPerUser       int              `json:"max_open_per_user" yaml:"max_open_per_user"`
	HistoryFetchLimit    int              `json:"history_fetch_limit" yaml:"history_fetch_limit"`
	ReviewTimeoutMinutes int              `json:"review_timeout_minutes" yaml:"review_timeout_minutes"`
	BlacklistPath        string           `json:"blacklist_path" yaml:"blacklist_path"`
	Categories           []TicketCategory `json:"categories" yaml:"categories"`
}

type TicketCategory struct {
	Key         string      `json:"key" yaml:"key"`
	Label       string      `json:"label" yaml:"label"`
	Emoji       string      `json:"emoji" yaml:"emoji"`
	Description string      `json:"description" yaml:"description"`
	Prefix      string      `json:"prefix" yaml:"prefix"`
	Container   string      `json:"container" yaml:"container"`
	Fields      []FieldSpec `json:"fields" yaml:"fields"`
}

type FieldSpec struct {
	Label     string `json:"label" yaml:"label"`
	Required  bool   `json:"required" yaml:"required"`
	MaxLength int    `json:"max_length" yaml:"max_length"`
	Multiline bool   `json:"multiline" yaml:"multiline"`
}

type DatabaseConfig struct {
	Driver  string        `json:"driver" yaml:"driver"`
	SQLite  SQLiteConfig  `json:"sqlite" yaml:"sqlite"`
	MongoDB MongoDBConfig `json:"mongodb" yaml:"mongodb"`
}

type SQLiteConfig struct {
	Path string `json:"path" yaml:"path"`
}

type MongoDBConfig struct {
	URI      string `json:"uri" yaml:"uri"`
	Database string `json:"database" yaml:"database"`
}

// EventsConfig enables the AMQP fan-out of lifecycle events when a URL is set.
type EventsConfig struct {
	AMQPURL  string `json:"amqp_url" yaml:"amqp_url"`
	Exchange string `json:"exchange" yaml:"exchange"`
}

type BrandingConfig struct {
	IconURL       string `json:"icon_url" yaml:"icon_url"`
	BannerURL     string `json:"banner_url" yaml:"banner_url"`
	EmbedColor    int    `json:"embed_color" yaml:"embed_color"`
	FooterText    string `json:"footer_text" yaml:"footer_text"`
	PanelTitle    string `json:"panel_title" yaml:"panel_title"`
	PanelSubtitle string `json:"panel_subtitle" yaml:"panel_subtitle"`
}

// LoadConfig reads the config file (JSON or YAML by extension), applies
// environment overrides and fills in defaults. A missing file is an error;
// a missing .env is not.
func LoadConfig(path string) (*Config, error) {
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	default:
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	if tok := os.Getenv("NUVIX_TICKETS_TOKEN"); tok != "" {
		cfg.Discord.Token = tok
	}
	if gid := os.Getenv("GUILD_ID"); gid != "" {
		cfg.Discord.GuildID = gid
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Tickets.MaxOpenPerUser <= 0 {
		cfg.Tickets.MaxOpenPerUser = 1
	}
	if cfg.Tickets.HistoryFetchLimit <= 0 {
		cfg.Tickets.HistoryFetchLimit = 2000
	}
	if cfg.Tickets.ReviewTimeoutMinutes <= 0 {
		cfg.Tickets.ReviewTimeoutMinutes = 30
	}
	if cfg.Tickets.BlacklistPath == "" {
		cfg.Tickets.BlacklistPath = "data/blacklist.json"
	}
	if len(cfg.Tickets.Categories) == 0 {
		cfg.Tickets.Categories = DefaultCategories()
	}
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "sqlite"
	}
	if cfg.Database.SQLite.Path == "" {
		cfg.Database.SQLite.Path = "data/tickets.db"
	}
	if cfg.Events.Exchange == "" {
		cfg.Events.Exchange = "nuvix.tickets"
	}
	if cfg.Branding.EmbedColor == 0 {
		cfg.Branding.EmbedColor = 0x2F6FE4
	}
	if cfg.Branding.FooterText == "" {
		cfg.Branding.FooterText = "Nuvix Market • Your wishes, more cheap!"
	}
	if cfg.Branding.PanelTitle == "" {
		cfg.Branding.PanelTitle = "Nuvix Tickets"
	}
	if cfg.Branding.PanelSubtitle == "" {
		cfg.Branding.PanelSubtitle = "Select a ticket category"
	}
}

// DefaultCategories returns the stock category set with its intake fields.
func DefaultCategories() []TicketCategory {
	return []TicketCategory{
		{
			Key: "purchases", Label: "Purchases", Emoji: "🧾", Prefix: "purch",
			Description: "Order and billing issues",
			Fields: []FieldSpec{
				{Label: "Order ID", Required: true, MaxLength: 64},
				{Label: "Product", Required: true, MaxLength: 128},
				{Label: "Payment method", Required: true, MaxLength: 64},
				{Label: "Describe the issue", Required: true, MaxLength: 1000, Multiline: true},
			},
		},
		{
			Key: "not_received", Label: "Product not received", Emoji: "📦", Prefix: "nrecv",
			Description: "Tracking or delivery delays",
			Fields: []FieldSpec{
				{Label: "Order ID", Required: true, MaxLength: 64},
				{Label: "Expected date (YYYY-MM-DD)", MaxLength: 32},
				{Label: "Tracking Number (optional)", MaxLength: 64},
				{Label: "Extra details", MaxLength: 1000, Multiline: true},
			},
		},
		{
			Key: "replace", Label: "Replace", Emoji: "🔁", Prefix: "repl",
			Description: "Defective or wrong item",
			Fields: []FieldSpec{
				{Label: "Order ID", Required: true, MaxLength: 64},
				{Label: "Product", Required: true, MaxLength: 128},
				{Label: "Reason for replacement", Required: true, MaxLength: 1000, Multiline: true},
				{Label: "Proof link (image/video)", MaxLength: 300},
			},
		},
		{
			Key: "support", Label: "Support", Emoji: "🛠️", Prefix: "supp",
			Description: "General help and questions",
			Fields: []FieldSpec{
				{Label: "Topic", Required: true, MaxLength: 100},
				{Label: "Describe your issue", Required: true, MaxLength: 1000, Multiline: true},
			},
		},
	}
}

// Validate returns human-readable configuration warnings. None of these stop
// startup: absent staff config just means only administrators count as staff.
func (cfg *Config) Validate() []string {
	var warns []string
	if len(cfg.Access.StaffRoles) == 0 && cfg.Access.OwnerID == "" && cfg.Access.CoOwnerID == "" {
		warns = append(warns, "no staff roles or owner configured: only administrators will count as staff")
	}
	if cfg.Tickets.DefaultCategory == "" {
		for _, cat := range cfg.Tickets.Categories {
			if cat.Container == "" {
				warns = append(warns, fmt.Sprintf("category %q has no container and no default_category is set: ticket creation for it will fail", cat.Key))
			}
		}
	}
	for _, cat := range cfg.Tickets.Categories {
		if cat.Prefix == "" {
			warns = append(warns, fmt.Sprintf("category %q has no channel name prefix", cat.Key))
		}
		if len(cat.Fields) == 0 {
			warns = append(warns, fmt.Sprintf("category %q has no intake fields", cat.Key))
		}
		if len(cat.Fields) > 5 {
			warns = append(warns, fmt.Sprintf("category %q has %d intake fields; the platform shows at most 5", cat.Key, len(cat.Fields)))
		}
	}
	if cfg.Sinks.Reviews == "" {
		warns = append(warns, "no reviews sink configured: accepted reviews are only archived, not announced")
	}
	return warns
}

// SaveConfig writes the configuration back in the format the extension names.
func SaveConfig(cfg *Config, path string) error {
	var (
		data []byte
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(cfg)
	default:
		data, err = json.MarshalIndent(cfg, "", "  ")
	}
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
