// Package catalog decodes the seed list of activities offered at startup.
package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/dascally/skills-getting-started-with-github-copilot/internal/domain"
)

//go:embed activities.toml
var embeddedCatalog []byte

type document struct {
	Activities []entry `toml:"activity"`
}

type entry struct {
	Name            string   `toml:"name"`
	Description     string   `toml:"description"`
	Schedule        string   `toml:"schedule"`
	MaxParticipants int      `toml:"max_participants"`
	Participants    []string `toml:"participants"`
}

// Load returns the embedded seed activities.
func Load() ([]domain.Activity, error) {
	return Parse(embeddedCatalog)
}

// LoadFile reads a seed catalog from disk. An empty path selects the embedded catalog.
func LoadFile(path string) ([]domain.Activity, error) {
	if strings.TrimSpace(path) == "" {
		return Load()
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: read %s: %w", path, err)
	}
	return Parse(raw)
}

// Parse decodes and validates a TOML catalog.
func Parse(raw []byte) ([]domain.Activity, error) {
	var doc document
	if err := toml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("catalog: decode: %w", err)
	}
	if len(doc.Activities) == 0 {
		return nil, errors.New("catalog: no activities defined")
	}

	seen := make(map[string]struct{}, len(doc.Activities))
	out := make([]domain.Activity, 0, len(doc.Activities))
	for i, e := range doc.Activities {
		if err := e.validate(); err != nil {
			return nil, fmt.Errorf("catalog: activity #%d: %w", i+1, err)
		}
		if _, dup := seen[e.Name]; dup {
			return nil, fmt.Errorf("catalog: duplicate activity %q", e.Name)
		}
		seen[e.Name] = struct{}{}

		participants := e.Participants
		if participants == nil {
			participants = []string{}
		}
		out = append(out, domain.Activity{
			Name:            e.Name,
			Description:     e.Description,
			Schedule:        e.Schedule,
			MaxParticipants: e.MaxParticipants,
			Participants:    participants,
		})
	}
	return out, nil
}

func (e entry) validate() error {
	if strings.TrimSpace(e.Name) == "" {
		return errors.New("name is required")
	}
	if e.MaxParticipants <= 0 {
		return fmt.Errorf("%q: max_participants must be > 0", e.Name)
	}
	emails := make(map[string]struct{}, len(e.Participants))
	for _, email := range e.Participants {
		if _, dup := emails[email]; dup {
			return fmt.Errorf("%q: participant %s listed twice", e.Name, email)
		}
		emails[email] = struct{}{}
	}
	return nil
}
