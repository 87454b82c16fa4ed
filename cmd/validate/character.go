package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jwebster45206/persona-engine/pkg/character"
	"github.com/spf13/cobra"
)

func characterCmd() *cobra.Command {
	var strict bool
	cmd := &cobra.Command{
		Use:   "character <sheet.json>...",
		Short: "Validate character sheet JSON files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCharacter(cmd.OutOrStdout(), args, strict)
		},
	}
	cmd.Flags().BoolVar(&strict, "strict", true, "Reject unknown fields")
	return cmd
}

func runCharacter(out io.Writer, files []string, strict bool) error {
	var failed []string
	for _, file := range files {
		sheet, err := loadSheet(file, strict)
		if err != nil {
			failed = append(failed, fmt.Sprintf("  - %s: %v", file, err))
			continue
		}
		fmt.Fprintf(out, "%s is valid (%s, level %d %s %s)\n",
			file, sheet.DisplayName(), sheet.DisplayLevel(), sheet.DisplayRace(), sheet.DisplayClass())
	}
	if len(failed) > 0 {
		return fmt.Errorf("validation errors:\n%s", strings.Join(failed, "\n"))
	}
	return nil
}

func loadSheet(file string, strict bool) (*character.Sheet, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	if !json.Valid(data) {
		return nil, fmt.Errorf("file contains invalid JSON")
	}

	var sheet character.Sheet
	dec := json.NewDecoder(bytes.NewReader(data))
	if strict {
		dec.DisallowUnknownFields()
	}
	if err := dec.Decode(&sheet); err != nil {
		return nil, fmt.Errorf("failed strict JSON unmarshaling: %w", err)
	}
	if err := sheet.Validate(); err != nil {
		return nil, err
	}
	return &sheet, nil
}
