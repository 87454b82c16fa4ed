package main

import (
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/jwebster45206/persona-engine/pkg/persona"
	"github.com/spf13/cobra"
)

var validModeRegex = regexp.MustCompile(`^[a-z][a-z0-9_]*[a-z0-9]$|^[a-z]$`)

func personaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "persona <file.yaml>...",
		Short: "Validate persona YAML files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPersona(cmd.OutOrStdout(), args)
		},
	}
}

func runPersona(out io.Writer, files []string) error {
	var failed []string
	for _, file := range files {
		if err := validatePersonaFile(file); err != nil {
			failed = append(failed, fmt.Sprintf("  - %s: %v", file, err))
			continue
		}
		fmt.Fprintf(out, "%s is valid\n", file)
	}
	if len(failed) > 0 {
		return fmt.Errorf("validation errors:\n%s", strings.Join(failed, "\n"))
	}
	return nil
}

func validatePersonaFile(file string) error {
	base := filepath.Base(file)
	ext := strings.ToLower(filepath.Ext(base))
	if ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("persona file must have .yaml or .yml extension: %s", base)
	}
	mode := strings.TrimSuffix(base, filepath.Ext(base))
	if !validModeRegex.MatchString(mode) {
		return fmt.Errorf("persona filename '%s' must be lowercase snake_case (it becomes the mode key)", base)
	}

	cfg, err := persona.LoadFile(file)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg.ContentRating != "" && !validRating(cfg.ContentRating) {
		return fmt.Errorf("unknown content_rating %q", cfg.ContentRating)
	}
	return nil
}

func validRating(r string) bool {
	switch strings.ToUpper(r) {
	case "G", "PG", "PG13", "PG-13", "R", "NC17", "NC-17":
		return true
	}
	return false
}
