// ABOUTME: CLI entrypoint for the canvasflow workflow engine with run and server modes.
// ABOUTME: Wires together config, the LLM client, the SQLite store, and signal handling.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/draftforge/canvasflow/config"
	"github.com/draftforge/canvasflow/llm"
	"github.com/draftforge/canvasflow/server"
	"github.com/draftforge/canvasflow/store"
	"github.com/draftforge/canvasflow/workflow"
)

var version = "dev"

// cliConfig holds all CLI configuration parsed from flags and positional arguments.
type cliConfig struct {
	serverMode  bool
	addr        string
	configFile  string
	dbPath      string
	model       string
	baseURL     string
	verbose     bool
	showVersion bool
	prompt      string
}

func main() {
	loadDotEnv(".env")

	cli := parseFlags()

	if cli.showVersion {
		fmt.Printf("canvasflow %s\n", version)
		os.Exit(0)
	}

	os.Exit(run(cli))
}

// parseFlags parses command-line flags and returns a populated cliConfig.
func parseFlags() cliConfig {
	var cli cliConfig

	fs := flag.NewFlagSet("canvasflow", flag.ContinueOnError)
	fs.BoolVar(&cli.serverMode, "server", false, "Start HTTP server mode")
	fs.StringVar(&cli.addr, "addr", "", "Listen address (default from config)")
	fs.StringVar(&cli.configFile, "config", "", "Path to YAML config file")
	fs.StringVar(&cli.dbPath, "db", "", "Path to the SQLite run database")
	fs.StringVar(&cli.model, "model", "", "Model name for the LLM provider")
	fs.StringVar(&cli.baseURL, "base-url", "", "Custom API base URL for the LLM provider")
	fs.BoolVar(&cli.verbose, "verbose", false, "Verbose output")
	fs.BoolVar(&cli.showVersion, "version", false, "Print version and exit")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: canvasflow [flags] [prompt]\n\n")
		fmt.Fprintf(os.Stderr, "Runs a design workflow for the given prompt, or serves the step API with -server.\n\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		os.Exit(2)
	}

	if fs.NArg() > 0 {
		cli.prompt = fs.Arg(0)
	}
	return cli
}

// run dispatches to the appropriate mode. Returns an exit code.
func run(cli cliConfig) int {
	cfg, err := config.Load(cli.configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	applyFlagOverrides(&cfg, cli)

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		fmt.Fprintln(os.Stderr, "Set OPENAI_API_KEY or provide llm.apiKey in the config file.")
		return 1
	}

	engine := buildEngine(cfg, cli.verbose)

	if cli.serverMode {
		return runServer(cfg, engine)
	}

	if cli.prompt == "" {
		fmt.Fprintln(os.Stderr, "error: a prompt is required (or use -server)")
		return 2
	}
	return runOnce(cfg, engine, cli.prompt)
}

// applyFlagOverrides lets flags win over file and environment values.
func applyFlagOverrides(cfg *config.Config, cli cliConfig) {
	if cli.addr != "" {
		cfg.Server.Addr = cli.addr
	}
	if cli.dbPath != "" {
		cfg.Store.Path = cli.dbPath
	}
	if cli.model != "" {
		cfg.LLM.Model = cli.model
	}
	if cli.baseURL != "" {
		cfg.LLM.BaseURL = cli.baseURL
	}
}

// buildEngine wires the retrying LLM client and validator into a workflow engine.
func buildEngine(cfg config.Config, verbose bool) *workflow.Engine {
	client := llm.NewOpenAIClient(cfg.LLM.APIKey, cfg.LLM.Model, cfg.LLM.BaseURL)

	policy := llm.DefaultRetryPolicy()
	policy.MaxRetries = cfg.LLM.MaxRetries
	completion := llm.WithRetry(client, policy)

	var handler workflow.EventHandler
	if verbose {
		handler = func(ev workflow.Event) {
			fmt.Fprintf(os.Stderr, "[%s] %s %s %s\n", ev.Timestamp.Format("15:04:05"), ev.Type, ev.Step, ev.Summary)
		}
	}

	return workflow.NewEngine(completion, nil, workflow.Config{
		Model:            cfg.LLM.Model,
		MaxRetries:       cfg.Workflow.MaxRetries,
		VerifyThreshold:  cfg.Workflow.VerifyThreshold,
		VerifyMaxRetries: cfg.Workflow.VerifyMaxRetries,
		StepTimeout:      cfg.Workflow.StepTimeout.Std(),
	}, handler)
}

// runOnce drives a single workflow run from the command line until it
// completes or needs context only an interactive caller could supply.
func runOnce(cfg config.Config, engine *workflow.Engine, prompt string) int {
	ctx, cancel := signalContext()
	defer cancel()

	st, err := store.Open(cfg.Store.Path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	defer st.Close()

	state := engine.Start(prompt, workflow.ContextSnapshot{}, nil, "")
	result, err := engine.Run(ctx, state)

	if saveErr := st.SaveRun(context.Background(), state); saveErr != nil {
		fmt.Fprintf(os.Stderr, "warning: could not persist run: %v\n", saveErr)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}

	fmt.Print(workflow.RenderRunLog(state))

	if !result.Completed && !result.Requested.Empty() {
		fmt.Fprintf(os.Stderr, "\nRun %s is waiting for external context; continue it through the step API.\n", state.RunID)
		return 0
	}
	if result.Error != "" {
		return 1
	}
	return 0
}

// runServer serves the step API until interrupted.
func runServer(cfg config.Config, engine *workflow.Engine) int {
	st, err := store.Open(cfg.Store.Path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	defer st.Close()

	srv := server.New(engine, st, nil)
	httpServer := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, cancel := signalContext()
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		fmt.Fprintf(os.Stderr, "canvasflow listening on %s\n", cfg.Server.Addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			fmt.Fprintf(os.Stderr, "shutdown: %v\n", err)
			return 1
		}
		return 0
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			return 1
		}
		return 0
	}
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}
