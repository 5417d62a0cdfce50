package config

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/fairyhunter13/ai-interview-coach/internal/domain"
)

//go:embed positions.yaml
var defaultPositionsYAML []byte

// PositionEntry maps one or more position titles onto a JD analysis.
type PositionEntry struct {
	Titles   []string          `yaml:"titles"`
	Analysis domain.JDAnalysis `yaml:"analysis"`
}

// PositionCatalog is the static JD analysis table used as a fallback.
type PositionCatalog struct {
	Positions []PositionEntry   `yaml:"positions"`
	Default   domain.JDAnalysis `yaml:"default"`
}

// LoadPositionCatalog reads the catalog from path, or the embedded default
// when path is empty.
func LoadPositionCatalog(path string) (*PositionCatalog, error) {
	data := defaultPositionsYAML
	if path != "" {
		b, err := os.ReadFile(path) //nolint:gosec // operator supplied path
		if err != nil {
			return nil, fmt.Errorf("op=config.LoadPositionCatalog: %w", err)
		}
		data = b
	}
	return ParsePositionCatalog(data)
}

// ParsePositionCatalog decodes a catalog document.
func ParsePositionCatalog(data []byte) (*PositionCatalog, error) {
	var pc PositionCatalog
	if err := yaml.Unmarshal(data, &pc); err != nil {
		return nil, fmt.Errorf("op=config.ParsePositionCatalog: %w", err)
	}
	for i, p := range pc.Positions {
		if len(p.Titles) == 0 {
			return nil, fmt.Errorf("op=config.ParsePositionCatalog: entry %d has no titles", i)
		}
	}
	return &pc, nil
}

// Lookup returns the analysis for position, matching titles
// case-insensitively, or the default entry.
func (pc *PositionCatalog) Lookup(position string) domain.JDAnalysis {
	want := strings.ToLower(strings.TrimSpace(position))
	for _, p := range pc.Positions {
		for _, t := range p.Titles {
			if strings.ToLower(strings.TrimSpace(t)) == want {
				return cloneAnalysis(p.Analysis)
			}
		}
	}
	return cloneAnalysis(pc.Default)
}

func cloneAnalysis(a domain.JDAnalysis) domain.JDAnalysis {
	a.KeyRequirements = cloneList(a.KeyRequirements)
	a.TechnicalSkills = cloneList(a.TechnicalSkills)
	a.SoftSkills = cloneList(a.SoftSkills)
	a.FocusAreas = cloneList(a.FocusAreas)
	a.Highlights = cloneList(a.Highlights)
	return a
}

func cloneList(l domain.LooseList) domain.LooseList {
	out := make(domain.LooseList, len(l))
	copy(out, l)
	return out
}
