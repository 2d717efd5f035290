package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/sweetpotato0/gitwit/changelog"
	"github.com/sweetpotato0/gitwit/commit"
	"github.com/sweetpotato0/gitwit/config"
	"github.com/sweetpotato0/gitwit/generate"
	"github.com/sweetpotato0/gitwit/git"
	"github.com/sweetpotato0/gitwit/llm"
	"github.com/sweetpotato0/gitwit/pr"
	"github.com/sweetpotato0/gitwit/ui"
)

type app struct {
	console *ui.Console
	git     *git.Client
	router  *llm.Router
}

func newApp() *app {
	console := ui.NewConsole()
	return &app{
		console: console,
		git:     git.New(""),
		router:  llm.NewRouter(newBackendFactory(console)),
	}
}

// ensureConfigured loads the config, offering to run init when the
// tool has not been set up yet.
func (a *app) ensureConfigured(ctx context.Context) error {
	_, err := config.Load()
	if err == nil {
		return nil
	}
	if !errors.Is(err, config.ErrNotConfigured) {
		return err
	}
	a.console.Warning("%v", err)
	if a.console.Confirm("Run 'gitwit init' now?", true) {
		return a.runInit(ctx, nil)
	}
	return err
}

func (a *app) runInit(_ context.Context, args []string) error {
	flags := pflag.NewFlagSet("init", pflag.ContinueOnError)
	global := flags.Bool("global", true, "Write the global config instead of the repository-local one")
	if err := flags.Parse(args); err != nil {
		return err
	}

	cfg := config.Default()

	a.console.Section("gitwit setup")
	a.console.Info("Backends: ollama (local server), offline (local model), openrouter (remote API)")
	cfg.Backend = a.console.PromptText("Which backend should gitwit use?", config.BackendOffline)

	switch cfg.ActiveBackend() {
	case config.BackendOllama:
		cfg.OllamaURL = a.console.PromptText("Ollama generate URL", cfg.OllamaURL)
		cfg.OllamaModel = a.console.PromptText("Ollama model", cfg.OllamaModel)
	case config.BackendOpenRouter:
		if key := os.Getenv("OPENROUTER_API_KEY"); key != "" {
			if a.console.Confirm("Use the OPENROUTER_API_KEY from your environment?", true) {
				cfg.OpenRouterAPIKey = key
			}
		}
		if cfg.OpenRouterAPIKey == "" {
			cfg.OpenRouterAPIKey = a.console.PromptText("OpenRouter API key", "")
		}
		cfg.OpenRouterModel = a.console.PromptText("OpenRouter model", cfg.OpenRouterModel)
	case config.BackendOffline:
		cfg.OfflineModel = a.console.PromptText("Local model name", cfg.OfflineModel)
	default:
		return fmt.Errorf("unknown backend %q", cfg.Backend)
	}

	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := cfg.Save(*global); err != nil {
		return err
	}
	a.console.Success("Configuration saved.")
	return nil
}

func (a *app) runAdd(ctx context.Context, args []string) error {
	flags := pflag.NewFlagSet("add", pflag.ContinueOnError)
	yes := flags.BoolP("yes", "y", false, "Skip confirmation prompts")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if err := a.ensureConfigured(ctx); err != nil {
		return err
	}

	files := flags.Args()
	if len(files) == 0 || (len(files) == 1 && files[0] == ".") {
		if err := a.git.StageAll(ctx); err != nil {
			return err
		}
	} else if err := a.git.StageFiles(ctx, files); err != nil {
		return err
	}

	staged, err := a.git.StagedFiles(ctx)
	if err != nil {
		return err
	}
	if len(staged) == 0 {
		a.console.Warning("No changes found to stage.")
		return nil
	}

	a.console.Section("Staged Changes")
	for _, f := range staged {
		a.console.Print("  %s", f)
	}
	if !a.console.Confirm("Create a commit with these changes?", true) {
		a.console.Warning("Operation cancelled. Files remain staged.")
		return nil
	}

	feature := commit.NewFeature(a.git, a.router, a.console)
	return feature.Run(ctx, commit.Options{AutoConfirm: *yes})
}

func (a *app) runCommit(ctx context.Context, args []string) error {
	flags := pflag.NewFlagSet("commit", pflag.ContinueOnError)
	group := flags.BoolP("group", "g", false, "Group related changes into logical commits")
	yes := flags.BoolP("yes", "y", false, "Skip confirmation prompts")
	withPR := flags.Bool("pr", false, "Create a pull request after committing")
	guidance := flags.StringP("guidance", "m", "", "Extra guidance for the generated text")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if err := a.ensureConfigured(ctx); err != nil {
		return err
	}

	if *group && *withPR {
		return a.runGroupedWithPR(ctx, *guidance, *yes)
	}

	feature := commit.NewFeature(a.git, a.router, a.console)
	opts := commit.Options{Group: *group, AutoConfirm: *yes, Guidance: *guidance}
	if err := feature.Run(ctx, opts); err != nil {
		return err
	}

	if *withPR {
		if err := a.git.Push(ctx); err != nil {
			return err
		}
		return pr.NewFeature(a.git, a.router, a.console).Run(ctx, *guidance, *yes)
	}
	return nil
}

// runGroupedWithPR is the combined flow: cluster the staged files,
// generate the PR and every commit message in one extractor call, then
// commit per group, push and create the PR.
func (a *app) runGroupedWithPR(ctx context.Context, guidance string, yes bool) error {
	staged, err := a.git.StagedFiles(ctx)
	if err != nil {
		return err
	}
	if len(staged) == 0 {
		a.console.Warning("No files staged for commit.")
		return nil
	}

	groups, err := commit.NewGrouper(a.git, a.router).Group(ctx, staged)
	if err != nil {
		return err
	}
	if len(groups) == 0 {
		a.console.Warning("No usable staged changes to group.")
		return nil
	}

	out, err := generate.NewExtractor(a.router).PRAndCommits(ctx, groups, guidance)
	if err != nil {
		return err
	}

	messages := make(map[string]string, len(out.Commits))
	for _, c := range out.Commits {
		messages[c.GroupID] = c.Message
	}

	for _, g := range groups {
		a.console.Section("Group %s", g.ID)
		a.console.Info("%s", messages[g.ID])
		if !yes && !a.console.Confirm("Commit this group?", true) {
			a.console.Warning("Skipped %s.", g.ID)
			continue
		}
		if err := a.git.CommitPaths(ctx, messages[g.ID], g.Files); err != nil {
			return err
		}
	}

	if err := a.git.Push(ctx); err != nil {
		return err
	}
	return pr.NewFeature(a.git, a.router, a.console).CreateFromOutput(ctx, out, yes)
}

func (a *app) runPR(ctx context.Context, args []string) error {
	flags := pflag.NewFlagSet("pr", pflag.ContinueOnError)
	yes := flags.BoolP("yes", "y", false, "Skip confirmation prompts")
	guidance := flags.StringP("guidance", "m", "", "Extra guidance for the generated text")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if err := a.ensureConfigured(ctx); err != nil {
		return err
	}

	return pr.NewFeature(a.git, a.router, a.console).Run(ctx, *guidance, *yes)
}

func (a *app) runChangelog(ctx context.Context, args []string) error {
	flags := pflag.NewFlagSet("changelog", pflag.ContinueOnError)
	guidance := flags.StringP("guidance", "m", "", "Extra guidance for the generated text")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if err := a.ensureConfigured(ctx); err != nil {
		return err
	}

	section, err := changelog.NewFeature(a.git, a.router).Generate(ctx, *guidance)
	if err != nil {
		return err
	}
	fmt.Println(section)
	return nil
}
