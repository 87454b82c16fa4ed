package persona

import (
	"errors"
	"fmt"
	"strings"
	"text/template"
)

const (
	ModeDefault    = "default"
	ModeGameMaster = "game_master"

	GameMasterName = "The Game Master"
)

// Config describes one persona. It is immutable once loaded into a Store.
type Config struct {
	Name        string  `yaml:"name" json:"name"`
	Prompt      string  `yaml:"prompt" json:"prompt"`
	Temperature float64 `yaml:"temperature" json:"temperature"`
	TopP        float64 `yaml:"top_p" json:"top_p"`
	// ContentRating, when set to G/PG/PG13, filters profanity out of replies.
	ContentRating string `yaml:"content_rating,omitempty" json:"content_rating,omitempty"`

	tmpl *template.Template
}

// Validate checks sampling ranges and that the prompt template parses.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Prompt) == "" {
		return errors.New("prompt cannot be empty")
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("temperature must be between 0 and 2, got %v", c.Temperature)
	}
	if c.TopP < 0 || c.TopP > 1 {
		return fmt.Errorf("top_p must be between 0 and 1, got %v", c.TopP)
	}
	return c.compile()
}

func (c *Config) compile() error {
	t, err := template.New("persona").Option("missingkey=zero").Parse(c.Prompt)
	if err != nil {
		return fmt.Errorf("invalid prompt template: %w", err)
	}
	c.tmpl = t
	return nil
}

// Intro renders the persona preamble with the given display name.
// Execution failures fall back to the raw prompt text.
func (c *Config) Intro(name string) string {
	if name == "" {
		name = c.Name
	}
	if c.tmpl == nil {
		return strings.TrimSpace(c.Prompt)
	}
	var sb strings.Builder
	if err := c.tmpl.Execute(&sb, struct{ Name string }{Name: name}); err != nil {
		return strings.TrimSpace(c.Prompt)
	}
	return strings.TrimSpace(sb.String())
}
