package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const nannyYAML = `name: Nanny
temperature: 0.7
top_p: 0.9
content_rating: PG
prompt: |
  You are {{.Name}}, a patient caretaker.
`

func TestValidatePersonaFile(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		file    string
		content string
		wantErr string
	}{
		{name: "valid", file: "nanny.yaml", content: nannyYAML},
		{name: "yml extension", file: "night_nurse.yml", content: nannyYAML},
		{name: "wrong extension", file: "nanny.json", content: nannyYAML, wantErr: "extension"},
		{name: "bad filename", file: "Night-Nurse.yaml", content: nannyYAML, wantErr: "snake_case"},
		{name: "empty prompt", file: "empty.yaml", content: "name: Empty\ntemperature: 1\n", wantErr: "prompt"},
		{name: "temperature out of range", file: "hot.yaml", content: "prompt: hi\ntemperature: 3\n", wantErr: "temperature"},
		{name: "broken template", file: "broken.yaml", content: "prompt: \"{{.Name\"\n", wantErr: "template"},
		{name: "unknown rating", file: "rated.yaml", content: "prompt: hi\ncontent_rating: X\n", wantErr: "content_rating"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, dir, tt.file, tt.content)
			err := validatePersonaFile(path)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestRunPersona_ReportsEveryFailure(t *testing.T) {
	dir := t.TempDir()
	good := writeFile(t, dir, "nanny.yaml", nannyYAML)
	bad1 := writeFile(t, dir, "Bad.yaml", nannyYAML)
	bad2 := writeFile(t, dir, "empty.yaml", "name: x\n")

	var out bytes.Buffer
	err := runPersona(&out, []string{good, bad1, bad2})
	require.Error(t, err)
	assert.Contains(t, err.Error(), bad1)
	assert.Contains(t, err.Error(), bad2)
	assert.Contains(t, out.String(), good+" is valid")
}

func TestLoadSheet(t *testing.T) {
	dir := t.TempDir()

	valid := writeFile(t, dir, "aldric.json", `{
		"name": "Aldric", "race": "Human", "class": "Fighter", "level": 3,
		"stats": {"strength": 16},
		"hp": {"current": 22, "max": 28},
		"inventory": ["Longsword", {"name": "Torch", "quantity": 3}]
	}`)
	sheet, err := loadSheet(valid, true)
	require.NoError(t, err)
	assert.Equal(t, "Aldric", sheet.DisplayName())

	unknown := writeFile(t, dir, "unknown.json", `{"name": "Aldric", "stats": {}, "hp": {}, "mana": 5}`)
	_, err = loadSheet(unknown, true)
	assert.Error(t, err)
	_, err = loadSheet(unknown, false)
	assert.NoError(t, err)

	overHP := writeFile(t, dir, "over.json", `{"stats": {}, "hp": {"current": 30, "max": 10}}`)
	_, err = loadSheet(overHP, true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds max hp")

	broken := writeFile(t, dir, "broken.json", `{"name":`)
	_, err = loadSheet(broken, true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid JSON")
}

func TestRunCharacter(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "mira.json", `{"name": "Mira", "class": "Rogue", "level": 2, "stats": {}, "hp": {}}`)

	var out bytes.Buffer
	require.NoError(t, runCharacter(&out, []string{path}, true))
	assert.Contains(t, out.String(), "Mira, level 2")
}
