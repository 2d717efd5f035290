// Command gitwit augments everyday git workflows with AI-generated
// commit messages, PR descriptions and changelog entries.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/sweetpotato0/gitwit/pkg/logging"
	"github.com/sweetpotato0/gitwit/pkg/telemetry"
)

const usage = `Usage: gitwit <command> [flags]

Commands:
  init       Configure the AI backend
  add        Stage files and start the commit flow
  commit     Generate a commit message for the staged changes
  pr         Generate and create a pull request
  changelog  Generate a changelog section from recent commits

Run 'gitwit <command> --help' for command flags.`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	ctx := context.Background()
	logger := logging.WithComponent("main")

	shutdown, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName: "gitwit",
		Disable:     os.Getenv("GITWIT_TRACE") != "1",
	})
	if err != nil {
		logger.Warn("telemetry disabled", "error", err)
		shutdown = func(context.Context) error { return nil }
	}
	defer shutdown(ctx)

	app := newApp()

	var runErr error
	switch cmd := os.Args[1]; cmd {
	case "init":
		runErr = app.runInit(ctx, os.Args[2:])
	case "add":
		runErr = app.runAdd(ctx, os.Args[2:])
	case "commit":
		runErr = app.runCommit(ctx, os.Args[2:])
	case "pr":
		runErr = app.runPR(ctx, os.Args[2:])
	case "changelog":
		runErr = app.runChangelog(ctx, os.Args[2:])
	case "help", "--help", "-h":
		fmt.Println(usage)
	default:
		fmt.Fprintf(os.Stderr, "gitwit: unknown command %q\n\n%s\n", cmd, usage)
		os.Exit(2)
	}

	if runErr != nil {
		if runErr == pflag.ErrHelp {
			return
		}
		app.console.Error("%v", runErr)
		os.Exit(1)
	}
}
