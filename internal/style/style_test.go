package style

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefault(t *testing.T) {
	t.Parallel()

	p := Default()
	if p.Name != "Laura Paris" || p.DisplayName() != "Laura" || p.Signature != "Laura" {
		t.Fatalf("unexpected default profile: %#v", p)
	}
	if len(p.PrioritySenders) != 3 || p.PrioritySenders[0] != "laura.paris" {
		t.Fatalf("unexpected priority senders: %#v", p.PrioritySenders)
	}
	if !strings.Contains(p.Guide, "Close with just \"Laura\"") {
		t.Fatalf("guide missing reply guidelines")
	}
}

func TestLoadFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "profile.yaml")
	body := "name: \" Pat Lee \"\nguide: |\n  Short and kind.\npriority_senders: [\" pat.lee \", \"\"]\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write profile: %v", err)
	}
	p, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if p.Name != "Pat Lee" || p.ShortName != "Pat" || p.Signature != "Pat" {
		t.Fatalf("unexpected names: %#v", p)
	}
	if p.Guide != "Short and kind." {
		t.Fatalf("Guide = %q", p.Guide)
	}
	if len(p.PrioritySenders) != 1 || p.PrioritySenders[0] != "pat.lee" {
		t.Fatalf("PrioritySenders = %#v", p.PrioritySenders)
	}
}

func TestLoadEmptyPathUsesDefault(t *testing.T) {
	t.Parallel()

	p, err := Load("  ")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if p.Name != "Laura Paris" {
		t.Fatalf("Load(\"\") name = %q", p.Name)
	}
}

func TestParseRejectsIncompleteProfile(t *testing.T) {
	t.Parallel()

	if _, err := Parse([]byte("name: Pat\n")); err == nil {
		t.Fatalf("expected missing guide error")
	}
	if _, err := Parse([]byte("guide: hi\n")); err == nil {
		t.Fatalf("expected missing name error")
	}
	if _, err := Parse([]byte("name: [\n")); err == nil {
		t.Fatalf("expected yaml error")
	}
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatalf("expected read error")
	}
}
