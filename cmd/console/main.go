package main

import (
	"fmt"
	"net/http"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/jwebster45206/persona-engine/pkg/persona"
)

type ConsoleConfig struct {
	APIBaseURL string
	Owner      string
	Timeout    time.Duration
}

func main() {
	cfg := &ConsoleConfig{
		APIBaseURL: getEnv("API_BASE_URL", "http://localhost:8080"),
		Owner:      getEnv("CONSOLE_OWNER", os.Getenv("USER")),
		Timeout:    3 * time.Minute,
	}

	client := &http.Client{
		Timeout: cfg.Timeout,
	}

	if !testConnection(client, cfg.APIBaseURL) {
		fmt.Fprintf(os.Stderr, "Could not connect to API at %s. Please ensure the API is running.\n", cfg.APIBaseURL)
		os.Exit(1)
	}

	store, err := persona.NewStore()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load personas: %v\n", err)
		os.Exit(1)
	}

	p := tea.NewProgram(NewConsoleUI(cfg, client, store.Modes()),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running program: %v\n", err)
		os.Exit(1)
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
