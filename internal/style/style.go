// Package style loads the writing-style profile drafts are written in.
package style

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed profiles/default.yaml
var defaultProfileSource []byte

// Profile describes whose voice drafts imitate.
type Profile struct {
	Name            string   `yaml:"name"`
	ShortName       string   `yaml:"short_name"`
	Role            string   `yaml:"role"`
	Signature       string   `yaml:"signature"`
	PrioritySenders []string `yaml:"priority_senders"`
	Guide           string   `yaml:"guide"`
}

// Default returns the embedded profile.
func Default() Profile {
	p, err := Parse(defaultProfileSource)
	if err != nil {
		panic(fmt.Sprintf("embedded style profile: %v", err))
	}
	return p
}

// Load reads a profile from path. An empty path selects the embedded default.
func Load(path string) (Profile, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Profile{}, fmt.Errorf("read style profile: %w", err)
	}
	p, err := Parse(data)
	if err != nil {
		return Profile{}, fmt.Errorf("style profile %s: %w", path, err)
	}
	return p, nil
}

func Parse(data []byte) (Profile, error) {
	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Profile{}, err
	}
	p = p.normalized()
	if err := p.Validate(); err != nil {
		return Profile{}, err
	}
	return p, nil
}

func (p Profile) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("style profile name is required")
	}
	if p.Guide == "" {
		return fmt.Errorf("style profile guide is required")
	}
	return nil
}

// DisplayName is the short name used in post footers.
func (p Profile) DisplayName() string {
	if p.ShortName != "" {
		return p.ShortName
	}
	return p.Name
}

func (p Profile) normalized() Profile {
	p.Name = strings.TrimSpace(p.Name)
	p.ShortName = strings.TrimSpace(p.ShortName)
	p.Role = strings.TrimSpace(p.Role)
	p.Signature = strings.TrimSpace(p.Signature)
	p.Guide = strings.TrimSpace(p.Guide)
	if p.ShortName == "" {
		if first, _, _ := strings.Cut(p.Name, " "); first != "" {
			p.ShortName = first
		}
	}
	if p.Signature == "" {
		p.Signature = p.ShortName
	}
	senders := make([]string, 0, len(p.PrioritySenders))
	for _, s := range p.PrioritySenders {
		if s = strings.TrimSpace(s); s != "" {
			senders = append(senders, s)
		}
	}
	p.PrioritySenders = senders
	return p
}
