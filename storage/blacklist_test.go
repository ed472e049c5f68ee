package storage

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"
)

func TestBlacklistRoundTrip(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "blacklist.json")

	bl := LoadBlacklist(path, zap.NewNop())
	if bl.IsBlacklisted("u1") {
		t.Error("fresh blacklist should be empty")
	}

	if err := bl.Add("u1"); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := bl.Add("u2"); err != nil {
		t.Fatalf("add: %v", err)
	}
	if !bl.IsBlacklisted("u1") {
		t.Error("u1 not blacklisted after Add")
	}

	// A fresh load sees the persisted state.
	reloaded := LoadBlacklist(path, zap.NewNop())
	if !reloaded.IsBlacklisted("u1") || !reloaded.IsBlacklisted("u2") {
		t.Error("persisted ids lost on reload")
	}

	if err := reloaded.Remove("u1"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if reloaded.IsBlacklisted("u1") {
		t.Error("u1 still blacklisted after Remove")
	}

	final := LoadBlacklist(path, zap.NewNop())
	if final.IsBlacklisted("u1") {
		t.Error("removal not persisted")
	}
	if !final.IsBlacklisted("u2") {
		t.Error("u2 lost during removal of u1")
	}
}

func TestBlacklistListSorted(t *testing.T) {
	t.Parallel()
	bl := LoadBlacklist(filepath.Join(t.TempDir(), "bl.json"), zap.NewNop())

	for _, id := range []string{"30", "10", "20"} {
		if err := bl.Add(id); err != nil {
			t.Fatalf("add: %v", err)
		}
	}
	got := bl.List()
	want := []string{"10", "20", "30"}
	if len(got) != len(want) {
		t.Fatalf("got %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("List() = %v, want %v", got, want)
		}
	}
}

func TestBlacklistFileFormat(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "bl.json")
	bl := LoadBlacklist(path, zap.NewNop())
	if err := bl.Add("u1"); err != nil {
		t.Fatalf("add: %v", err)
	}

	// On disk: a plain JSON array of ids, nothing else.
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		t.Fatalf("file is not a JSON string array: %v", err)
	}
	if len(ids) != 1 || ids[0] != "u1" {
		t.Errorf("file content = %v", ids)
	}

	// No leftover temp file after the rename.
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("temp file left behind")
	}
}

func TestBlacklistCorruptFile(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "bl.json")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}

	bl := LoadBlacklist(path, zap.NewNop())
	if bl.IsBlacklisted("anyone") {
		t.Error("corrupt file should degrade to an empty set")
	}
	if err := bl.Add("u1"); err != nil {
		t.Errorf("add after corrupt load: %v", err)
	}
}

func TestBlacklistCreatesParentDir(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "nested", "deeper", "bl.json")

	bl := LoadBlacklist(path, zap.NewNop())
	if err := bl.Add("u1"); err != nil {
		t.Fatalf("add with missing parent dir: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("file not written: %v", err)
	}
}
