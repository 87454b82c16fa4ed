package persona

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jwebster45206/persona-engine/pkg/prompts"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

//go:embed personas.yaml
var builtinPersonas []byte

// Store resolves personas by mode key. Unknown modes fall back to the default
// persona, so lookups never fail.
type Store struct {
	personas map[string]*Config
}

// NewStore returns a store holding only the built-in personas.
func NewStore() (*Store, error) {
	var defs map[string]*Config
	if err := yaml.Unmarshal(builtinPersonas, &defs); err != nil {
		return nil, fmt.Errorf("failed to parse built-in personas: %w", err)
	}
	s := &Store{personas: make(map[string]*Config, len(defs))}
	for mode, def := range defs {
		if err := s.add(mode, def); err != nil {
			return nil, fmt.Errorf("built-in persona %s: %w", mode, err)
		}
	}
	if _, ok := s.personas[ModeDefault]; !ok {
		return nil, fmt.Errorf("built-in personas are missing %q", ModeDefault)
	}
	return s, nil
}

// LoadStore returns the built-in personas overlaid with any *.yaml or *.yml
// files found in dirs. The file stem is the mode key. Missing directories are
// skipped; a malformed file is an error.
func LoadStore(dirs ...string) (*Store, error) {
	s, err := NewStore()
	if err != nil {
		return nil, err
	}
	for _, dir := range dirs {
		dir = strings.TrimSpace(dir)
		if dir == "" {
			continue
		}
		entries, err := os.ReadDir(dir)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("failed to read persona dir %s: %w", dir, err)
		}
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			ext := strings.ToLower(filepath.Ext(entry.Name()))
			if ext != ".yaml" && ext != ".yml" {
				continue
			}
			path := filepath.Join(dir, entry.Name())
			def, err := LoadFile(path)
			if err != nil {
				return nil, err
			}
			mode := strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name()))
			if def.Name == "" {
				def.Name = displayName(mode)
			}
			if err := s.add(mode, def); err != nil {
				return nil, fmt.Errorf("persona %s: %w", path, err)
			}
		}
	}
	return s, nil
}

// LoadFile reads a single persona definition. Callers validate it.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read persona file: %w", err)
	}
	var def Config
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("failed to parse persona file %s: %w", path, err)
	}
	return &def, nil
}

func (s *Store) add(mode string, def *Config) error {
	if def == nil {
		return fmt.Errorf("empty definition")
	}
	if def.Name == "" {
		def.Name = displayName(mode)
	}
	if err := def.Validate(); err != nil {
		return err
	}
	s.personas[mode] = def
	return nil
}

// Get returns the persona for mode, or the default persona when mode is unknown.
func (s *Store) Get(mode string) Config {
	if p, ok := s.personas[mode]; ok {
		return *p
	}
	return *s.personas[ModeDefault]
}

// Has reports whether mode has its own persona.
func (s *Store) Has(mode string) bool {
	_, ok := s.personas[mode]
	return ok
}

// Modes lists the known mode keys in sorted order.
func (s *Store) Modes() []string {
	modes := make([]string, 0, len(s.personas))
	for m := range s.personas {
		modes = append(modes, m)
	}
	sort.Strings(modes)
	return modes
}

// Render produces the full model prompt: persona preamble, prior context,
// the JSON reply contract, then the user turn. It never fails.
func (s *Store) Render(mode, name, context, userInput string) string {
	p := s.Get(mode)
	return prompts.New().
		WithPersona(p.Intro(name)).
		WithContext(context).
		WithUserInput(userInput).
		Build()
}

func displayName(mode string) string {
	return cases.Title(language.English).String(strings.NewReplacer("-", " ", "_", " ").Replace(mode))
}
