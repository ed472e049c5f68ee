package config

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfigJSON(t *testing.T) {
	path := writeFile(t, "config.json", `{
		"discord": {"token": "tok-json", "guild_id": "g1"},
		"access": {"staff_roles": ["r1"], "owner_id": "o1"},
		"tickets": {"default_category": "cat-1"}
	}`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Discord.Token != "tok-json" || cfg.Discord.GuildID != "g1" {
		t.Errorf("discord = %+v", cfg.Discord)
	}
	if len(cfg.Access.StaffRoles) != 1 || cfg.Access.OwnerID != "o1" {
		t.Errorf("access = %+v", cfg.Access)
	}
}

func TestLoadConfigYAML(t *testing.T) {
	path := writeFile(t, "config.yaml", `
discord:
  token: tok-yaml
  guild_id: g2
tickets:
  max_open_per_user: 3
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Discord.Token != "tok-yaml" {
		t.Errorf("token = %q", cfg.Discord.Token)
	}
	if cfg.Tickets.MaxOpenPerUser != 3 {
		t.Errorf("max_open_per_user = %d", cfg.Tickets.MaxOpenPerUser)
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(writeFile(t, "config.json", `{}`))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Logging.Level != "info" {
		t.Errorf("log level = %q", cfg.Logging.Level)
	}
	if cfg.Tickets.MaxOpenPerUser != 1 {
		t.Errorf("max open = %d", cfg.Tickets.MaxOpenPerUser)
	}
	if cfg.Tickets.HistoryFetchLimit != 2000 {
		t.Errorf("history limit = %d", cfg.Tickets.HistoryFetchLimit)
	}
	if cfg.Tickets.ReviewTimeoutMinutes != 30 {
		t.Errorf("review timeout = %d", cfg.Tickets.ReviewTimeoutMinutes)
	}
	if cfg.Database.Driver != "sqlite" {
		t.Errorf("driver = %q", cfg.Database.Driver)
	}
	if cfg.Branding.EmbedColor != 0x2F6FE4 {
		t.Errorf("embed color = %#x", cfg.Branding.EmbedColor)
	}
	if len(cfg.Tickets.Categories) == 0 {
		t.Fatal("no default categories")
	}

	// The stock categories all need a prefix and at least one intake field.
	for _, cat := range cfg.Tickets.Categories {
		if cat.Prefix == "" {
			t.Errorf("category %q missing prefix", cat.Key)
		}
		if len(cat.Fields) == 0 {
			t.Errorf("category %q has no fields", cat.Key)
		}
		if len(cat.Fields) > 5 {
			t.Errorf("category %q exceeds the 5-field modal limit", cat.Key)
		}
	}
}

func TestLoadConfigEnvOverride(t *testing.T) {
	t.Setenv("NUVIX_TICKETS_TOKEN", "tok-env")
	t.Setenv("GUILD_ID", "g-env")

	cfg, err := LoadConfig(writeFile(t, "config.json", `{"discord": {"token": "tok-file", "guild_id": "g-file"}}`))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Discord.Token != "tok-env" {
		t.Errorf("token = %q, env should win", cfg.Discord.Token)
	}
	if cfg.Discord.GuildID != "g-env" {
		t.Errorf("guild = %q, env should win", cfg.Discord.GuildID)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Error("missing config file should be an error")
	}
}

func TestValidateWarnings(t *testing.T) {
	cfg, err := LoadConfig(writeFile(t, "config.json", `{}`))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	warns := cfg.Validate()
	if len(warns) == 0 {
		t.Fatal("empty config should produce warnings")
	}

	// The stock categories have no containers and no default is set.
	foundContainer := false
	for _, w := range warns {
		if w == "" {
			t.Error("empty warning string")
		}
		if strings.Contains(w, "container") && strings.Contains(w, "default_category") {
			foundContainer = true
		}
	}
	if !foundContainer {
		t.Errorf("no container warning in %v", warns)
	}
}

func TestSaveConfigRoundTrip(t *testing.T) {
	for _, ext := range []string{"json", "yaml"} {
		t.Run(ext, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config."+ext)
			cfg := &Config{}
			applyDefaults(cfg)
			cfg.Discord.GuildID = "g-round"

			if err := SaveConfig(cfg, path); err != nil {
				t.Fatalf("save: %v", err)
			}
			loaded, err := LoadConfig(path)
			if err != nil {
				t.Fatalf("load: %v", err)
			}
			if loaded.Discord.GuildID != "g-round" {
				t.Errorf("guild = %q after round trip", loaded.Discord.GuildID)
			}
			if len(loaded.Tickets.Categories) != len(cfg.Tickets.Categories) {
				t.Errorf("categories lost in round trip")
			}
		})
	}
}

func TestStoreUpdateDoesNotAliasSnapshots(t *testing.T) {
	cfg := &Config{}
	applyDefaults(cfg)
	cfg.Access.StaffRoles = []string{"role-a", "role-b", "role-c"}
	store := NewStore(cfg, "")

	held := store.Get()

	// In-place compaction inside the update closure must act on a private
	// copy: a snapshot handed out before the update keeps its contents.
	if err := store.Update(func(c *Config) {
		kept := c.Access.StaffRoles[:0]
		for _, id := range c.Access.StaffRoles {
			if id != "role-a" {
				kept = append(kept, id)
			}
		}
		c.Access.StaffRoles = kept
	}); err != nil {
		t.Fatalf("update: %v", err)
	}

	want := []string{"role-a", "role-b", "role-c"}
	if len(held.Access.StaffRoles) != len(want) {
		t.Fatalf("held snapshot mutated: %v", held.Access.StaffRoles)
	}
	for i := range want {
		if held.Access.StaffRoles[i] != want[i] {
			t.Fatalf("held snapshot mutated: %v, want %v", held.Access.StaffRoles, want)
		}
	}

	got := store.Get().Access.StaffRoles
	if len(got) != 2 || got[0] != "role-b" || got[1] != "role-c" {
		t.Errorf("updated roles = %v, want [role-b role-c]", got)
	}
}

func TestStoreUpdateDoesNotAliasCategories(t *testing.T) {
	cfg := &Config{}
	applyDefaults(cfg)
	store := NewStore(cfg, "")

	held := store.Get()
	origLabel := held.Tickets.Categories[0].Label

	if err := store.Update(func(c *Config) {
		c.Tickets.Categories[0].Label = "Changed"
		c.Tickets.Categories[0].Fields[0].Label = "Changed field"
	}); err != nil {
		t.Fatalf("update: %v", err)
	}

	if held.Tickets.Categories[0].Label != origLabel {
		t.Error("held snapshot's category mutated through the update copy")
	}
	if held.Tickets.Categories[0].Fields[0].Label == "Changed field" {
		t.Error("held snapshot's field spec mutated through the update copy")
	}
	if store.Get().Tickets.Categories[0].Label != "Changed" {
		t.Error("update not visible through Get")
	}
}

func TestStoreConcurrentUpdatesPersistLatest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	cfg := &Config{}
	applyDefaults(cfg)
	store := NewStore(cfg, path)

	var wg sync.WaitGroup
	for n := 0; n < 20; n++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_ = store.Update(func(c *Config) {
				c.Tickets.MaxOpenPerUser = n + 1
				c.Access.StaffRoles = append(c.Access.StaffRoles, "r")
			})
		}(n)
	}
	wg.Wait()

	// Whatever interleaving happened, the file must hold the final state.
	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	final := store.Get()
	if loaded.Tickets.MaxOpenPerUser != final.Tickets.MaxOpenPerUser {
		t.Errorf("file holds max_open=%d, memory holds %d",
			loaded.Tickets.MaxOpenPerUser, final.Tickets.MaxOpenPerUser)
	}
	if len(final.Access.StaffRoles) != 20 {
		t.Errorf("lost updates: %d roles appended, want 20", len(final.Access.StaffRoles))
	}
	if len(loaded.Access.StaffRoles) != 20 {
		t.Errorf("file lost updates: %d roles, want 20", len(loaded.Access.StaffRoles))
	}
}

func TestStoreUpdate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	cfg := &Config{}
	applyDefaults(cfg)
	store := NewStore(cfg, path)

	if err := store.Update(func(c *Config) { c.Sinks.Reviews = "chan-r" }); err != nil {
		t.Fatalf("update: %v", err)
	}
	if store.Get().Sinks.Reviews != "chan-r" {
		t.Error("update not visible through Get")
	}

	// The update also persisted.
	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load after update: %v", err)
	}
	if loaded.Sinks.Reviews != "chan-r" {
		t.Error("update not persisted")
	}
}
