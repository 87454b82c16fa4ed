package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:          "validate",
		Short:        "Validate persona definitions and character sheets",
		SilenceUsage: true,
	}
	root.AddCommand(personaCmd())
	root.AddCommand(characterCmd())
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
