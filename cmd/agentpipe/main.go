// Command agentpipe runs a child process from a YAML session file, sends it a
// prompt and prints every frame it answers with as one JSON line.
//
//	agentpipe -config session.yaml [-timeout 2m] [-v] [-session id] prompt...
//
// Without a prompt argument, prompts are read from stdin one per line, each
// run as its own turn.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/wagiedev/agentpipe"
)

// Exit codes.
const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	os.Exit(run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

type cliConfig struct {
	configPath string
	timeout    time.Duration
	verbose    bool
	sessionID  string
	prompt     string
}

func parseFlags(args []string, stderr io.Writer) (*cliConfig, error) {
	fs := flag.NewFlagSet("agentpipe", flag.ContinueOnError)
	fs.SetOutput(stderr)

	cfg := &cliConfig{}
	fs.StringVar(&cfg.configPath, "config", "", "path to the YAML session file (required)")
	fs.DurationVar(&cfg.timeout, "timeout", 0, "deadline for the whole run, 0 for none")
	fs.BoolVar(&cfg.verbose, "v", false, "debug logging to stderr")
	fs.StringVar(&cfg.sessionID, "session", "", "session id sent with each prompt (default: random UUID)")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if cfg.configPath == "" {
		fs.Usage()

		return nil, errors.New("-config is required")
	}

	if cfg.sessionID == "" {
		cfg.sessionID = uuid.NewString()
	}

	cfg.prompt = strings.Join(fs.Args(), " ")

	return cfg, nil
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	cfg, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}

		fmt.Fprintln(stderr, "agentpipe:", err)

		return exitUsage
	}

	level := slog.LevelWarn
	if cfg.verbose {
		level = slog.LevelDebug
	}

	log := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	file, err := agentpipe.LoadConfigFile(cfg.configPath)
	if err != nil {
		fmt.Fprintln(stderr, "agentpipe:", err)

		return exitUsage
	}

	if cfg.timeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, cfg.timeout)
		defer cancel()
	}

	if err := session(ctx, log, file, cfg, stdin, stdout); err != nil {
		log.Error("Session failed", "error", err)
		fmt.Fprintln(stderr, "agentpipe:", err)

		if exitErr, ok := errors.AsType[*agentpipe.ProcessExitError](err); ok && exitErr.Code > 0 {
			return exitErr.Code
		}

		return exitFailure
	}

	return exitOK
}

// session connects, runs each prompt as a turn and closes the child.
// Cancelling ctx interrupts the running turn before the child is closed.
func session(
	ctx context.Context,
	log *slog.Logger,
	file *agentpipe.ConfigFile,
	cfg *cliConfig,
	stdin io.Reader,
	stdout io.Writer,
) error {
	client := agentpipe.NewClient()
	defer func() {
		if err := client.Close(); err != nil {
			log.Debug("Close failed", "error", err)
		}
	}()

	if err := client.Start(ctx,
		agentpipe.WithLogger(log),
		agentpipe.WithConfigFile(file),
	); err != nil {
		return err
	}

	log.Info("Connected", "session_id", cfg.sessionID, "server", client.GetServerInfo())

	turnsDone := make(chan struct{})

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(turnsDone)

		return runTurns(gctx, client, cfg, stdin, stdout)
	})

	g.Go(func() error {
		select {
		case <-turnsDone:
			return nil
		case <-ctx.Done():
		}

		// Give the child a chance to stop cleanly. The turn loop observes
		// ctx and returns on its own.
		interruptCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()

		if err := client.Interrupt(interruptCtx); err != nil {
			log.Debug("Interrupt failed", "error", err)
		}

		return nil
	})

	return g.Wait()
}

func runTurns(ctx context.Context, client agentpipe.Client, cfg *cliConfig, stdin io.Reader, stdout io.Writer) error {
	enc := json.NewEncoder(stdout)

	if cfg.prompt != "" {
		return turn(ctx, client, cfg.prompt, cfg.sessionID, enc)
	}

	scanner := bufio.NewScanner(stdin)
	for scanner.Scan() {
		prompt := strings.TrimSpace(scanner.Text())
		if prompt == "" {
			continue
		}

		if err := turn(ctx, client, prompt, cfg.sessionID, enc); err != nil {
			return err
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read prompts: %w", err)
	}

	return nil
}

// turn sends one prompt and prints frames up to and including the result.
func turn(ctx context.Context, client agentpipe.Client, prompt, sessionID string, enc *json.Encoder) error {
	if err := client.Query(ctx, prompt, sessionID); err != nil {
		return err
	}

	for frame, err := range client.ReceiveResponse(ctx) {
		if err != nil {
			return err
		}

		if err := enc.Encode(frame); err != nil {
			return fmt.Errorf("write frame: %w", err)
		}
	}

	return nil
}
