package main

import (
	"context"
	"fmt"
	"os"

	"github.com/andy/casetrail/internal/app"
	"github.com/andy/casetrail/internal/cli"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	// Help output must not open the database (which may prompt for a password)
	skipInit := false
	for _, a := range os.Args[1:] {
		if a == "-h" || a == "--help" || a == "help" {
			skipInit = true
			break
		}
	}

	if !skipInit {
		a, err := app.New(context.Background(), os.Getenv("CASETRAIL_CONFIG"))
		if err != nil {
			return fmt.Errorf("failed to initialize app: %w", err)
		}
		defer a.Close()
		cli.SetApp(a)
	}

	return cli.Execute()
}
