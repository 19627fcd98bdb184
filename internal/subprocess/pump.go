package subprocess

import (
	"bufio"
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/wagiedev/agentpipe/internal/config"
	"github.com/wagiedev/agentpipe/internal/errors"
	"github.com/wagiedev/agentpipe/internal/frame"
)

const (
	// QueueSize is the capacity of the inbound and outbound frame queues.
	QueueSize = 256

	// stderrTailSize is how much recent stderr is kept for ProcessExitError.
	stderrTailSize = 64 * 1024

	// stdinFailureGrace is how long a child that stopped reading stdin may
	// take to exit on its own before it is killed.
	stdinFailureGrace = 250 * time.Millisecond
)

// Compile-time verification that Pump implements the Transport interface.
var _ config.Transport = (*Pump)(nil)

// Pump runs a child process and moves frames across its standard streams.
type Pump struct {
	log    *slog.Logger
	cmd    *config.Command
	stderr func(string)

	frames    chan frame.Frame
	outbound  chan []byte
	done      chan struct{}
	stdinDead chan struct{}
	tail      *tailBuffer

	mu         sync.Mutex
	proc       *exec.Cmd
	stdout     io.ReadCloser
	stderrPipe io.ReadCloser
	cancel     context.CancelFunc
	started    bool
	inputEnded bool
	killed     bool
	stdinErr   error
	err        error

	stopOnce sync.Once
}

// NewPump creates a pump for cmd. When stderrSink is nil, stderr lines are
// logged at debug level.
func NewPump(log *slog.Logger, cmd *config.Command, stderrSink func(string)) *Pump {
	return &Pump{
		log:       log.With("component", "pump"),
		cmd:       cmd,
		stderr:    stderrSink,
		frames:    make(chan frame.Frame, QueueSize),
		outbound:  make(chan []byte, QueueSize),
		done:      make(chan struct{}),
		stdinDead: make(chan struct{}),
		tail:      newTailBuffer(stderrTailSize),
	}
}

// Start spawns the child and starts the loops. The context only bounds the
// spawn; the pump keeps running until Stop or until the child goes away.
func (p *Pump) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started {
		return errors.ErrAlreadyConnected
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	if p.cmd == nil || p.cmd.Path == "" {
		return &errors.SpawnError{Err: fmt.Errorf("no command configured")}
	}

	path, err := Locate(p.log, p.cmd.Path, p.cmd.Cwd)
	if err != nil {
		return err
	}

	//nolint:gosec // G204: the command is supplied by the embedding application
	proc := exec.Command(path, p.cmd.Args...)
	proc.Dir = p.cmd.Cwd
	proc.Env = p.cmd.Environment()

	stdin, err := proc.StdinPipe()
	if err != nil {
		return &errors.SpawnError{Path: p.cmd.Path, Err: fmt.Errorf("stdin pipe: %w", err)}
	}

	stdout, err := proc.StdoutPipe()
	if err != nil {
		return &errors.SpawnError{Path: p.cmd.Path, Err: fmt.Errorf("stdout pipe: %w", err)}
	}

	stderrPipe, err := proc.StderrPipe()
	if err != nil {
		return &errors.SpawnError{Path: p.cmd.Path, Err: fmt.Errorf("stderr pipe: %w", err)}
	}

	if err := proc.Start(); err != nil {
		p.log.Error("Failed to start child process", "path", p.cmd.Path, "error", err)

		return &errors.SpawnError{Path: p.cmd.Path, Err: err}
	}

	p.log.Info("Child process started", "path", p.cmd.Path, "pid", proc.Process.Pid)

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	g, gctx := errgroup.WithContext(runCtx)

	p.proc = proc
	p.stdout = stdout
	p.stderrPipe = stderrPipe
	p.cancel = cancel
	p.started = true

	stderrDone := make(chan struct{})

	g.Go(func() error {
		defer close(stderrDone)

		return p.readStderr(gctx, stderrPipe)
	})
	g.Go(func() error { return p.writeStdin(gctx, stdin) })
	g.Go(func() error { return p.readStdout(gctx, stdout, stderrDone) })

	go func() {
		err := g.Wait()
		cancel()

		if err == nil || stderrors.Is(err, context.Canceled) {
			err = errors.ErrTransportClosed
		}

		p.mu.Lock()
		p.err = err
		p.mu.Unlock()

		p.log.Debug("Pump stopped", "reason", err)
		close(p.done)
	}()

	return nil
}

// Frames implements config.Transport.
func (p *Pump) Frames() <-chan frame.Frame { return p.frames }

// Done implements config.Transport.
func (p *Pump) Done() <-chan struct{} { return p.done }

// Err implements config.Transport.
func (p *Pump) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.err
}

// Send encodes f and queues it for the stdin writer. It blocks while the
// queue is full.
func (p *Pump) Send(ctx context.Context, f frame.Frame) error {
	data, err := frame.Encode(f)
	if err != nil {
		return err
	}

	p.mu.Lock()
	started, ended, stdinErr := p.started, p.inputEnded, p.stdinErr
	p.mu.Unlock()

	if !started {
		return errors.ErrNotConnected
	}

	if ended {
		return errors.ErrStdinClosed
	}

	if stdinErr != nil {
		return stdinErr
	}

	select {
	case <-p.done:
		return p.Err()
	default:
	}

	select {
	case p.outbound <- data:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-p.done:
		return p.Err()
	case <-p.stdinDead:
		return p.stdinFailure()
	}
}

func (p *Pump) stdinFailure() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.stdinErr
}

// EndInput closes stdin once every frame queued before it has been written.
func (p *Pump) EndInput() error {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()

		return errors.ErrNotConnected
	}

	if p.inputEnded {
		p.mu.Unlock()

		return nil
	}

	p.inputEnded = true
	p.mu.Unlock()

	select {
	case p.outbound <- nil:
		return nil
	case <-p.done:
		return nil
	}
}

// Stop cancels the loops, kills the child and waits for the loops to exit.
// It is safe to call more than once.
func (p *Pump) Stop() error {
	p.stopOnce.Do(func() {
		p.mu.Lock()
		started := p.started

		if !started {
			p.started = true
			p.inputEnded = true
			p.err = errors.ErrTransportClosed
			close(p.frames)
			close(p.done)
			p.mu.Unlock()

			return
		}

		p.mu.Unlock()

		p.cancel()
		p.terminate()
	})

	<-p.done

	return nil
}

// terminate kills the child and closes its output pipes. The stdout reader
// still reaps it.
func (p *Pump) terminate() {
	p.mu.Lock()
	proc := p.proc
	p.killed = true
	p.mu.Unlock()

	if proc.Process != nil {
		p.log.Debug("Killing child process", "pid", proc.Process.Pid)

		if err := proc.Process.Kill(); err != nil && !stderrors.Is(err, os.ErrProcessDone) {
			p.log.Debug("Kill failed", "error", err)
		}
	}

	// Unblock scanners held open by descendants that inherited the pipes.
	_ = p.stdout.Close()
	_ = p.stderrPipe.Close()
}

func (p *Pump) wasKilled() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.killed
}

// reap collects the exit status of a child whose output is no longer read.
func (p *Pump) reap() {
	if err := p.proc.Wait(); err != nil {
		p.log.Debug("Reaped child process", "error", err)
	}
}

// readStdout scans frames until the child closes stdout, then reaps it.
func (p *Pump) readStdout(ctx context.Context, stdout io.Reader, stderrDone <-chan struct{}) error {
	defer close(p.frames)

	limit := p.cmd.LineLimit()
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, min(limit, 64*1024)), limit)

	count := 0

	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		f, err := frame.Decode(line)
		if err != nil {
			p.log.Warn("Skipping undecodable stdout line", "error", err, "bytes", len(line))

			continue
		}

		count++

		select {
		case p.frames <- f:
		case <-ctx.Done():
			p.reap()

			return nil
		}
	}

	scanErr := scanner.Err()
	if scanErr != nil && ctx.Err() == nil {
		p.log.Error("Stdout scanner failed", "error", scanErr)
	}

	select {
	case <-stderrDone:
	case <-ctx.Done():
	}

	waitErr := p.proc.Wait()

	if ctx.Err() != nil || p.wasKilled() {
		return nil
	}

	p.log.Debug("Stdout closed", "frames", count)

	if waitErr != nil {
		code := -1
		if exitErr, ok := stderrors.AsType[*exec.ExitError](waitErr); ok {
			code = exitErr.ExitCode()
		}

		stderr := p.tail.String()
		p.log.Error("Child process exited with error", "exit_code", code, "stderr", stderr)

		return &errors.ProcessExitError{Code: code, Stderr: stderr, Err: waitErr}
	}

	if scanErr != nil {
		return fmt.Errorf("%w: read stdout: %w", errors.ErrTransportClosed, scanErr)
	}

	p.log.Info("Child process exited")

	return errors.ErrTransportClosed
}

// writeStdin is the only writer of stdin. A nil entry closes stdin.
func (p *Pump) writeStdin(ctx context.Context, stdin io.WriteCloser) error {
	defer func() { _ = stdin.Close() }()

	w := bufio.NewWriter(stdin)

	for {
		select {
		case <-ctx.Done():
			return nil
		case data := <-p.outbound:
			if data == nil {
				p.log.Debug("Closing stdin")

				if err := w.Flush(); err != nil {
					p.log.Debug("Stdin flush failed", "error", err)
				}

				_ = stdin.Close()

				<-ctx.Done()

				return nil
			}

			_, err := w.Write(data)
			if err == nil {
				err = w.Flush()
			}

			if err != nil {
				return p.failStdin(ctx, err)
			}
		}
	}
}

// failStdin ends the writer after a failed write. Send reports the failure
// from now on. A child that exits within the grace period has its exit status
// reported by the stdout reader; one that keeps running is killed and the
// transport ends with the write error.
func (p *Pump) failStdin(ctx context.Context, err error) error {
	werr := fmt.Errorf("%w: write stdin: %w", errors.ErrTransportClosed, err)

	p.mu.Lock()
	p.stdinErr = werr
	p.mu.Unlock()
	close(p.stdinDead)

	p.log.Warn("Stdin write failed", "error", err)

	timer := time.NewTimer(stdinFailureGrace)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return nil
	case <-timer.C:
	}

	p.log.Warn("Child stopped reading stdin but is still running, terminating")
	p.terminate()

	return werr
}

// readStderr forwards stderr lines and records the tail.
func (p *Pump) readStderr(ctx context.Context, stderr io.Reader) error {
	scanner := bufio.NewScanner(stderr)
	scanner.Buffer(make([]byte, 0, 4096), stderrTailSize)

	for scanner.Scan() {
		line := scanner.Text()
		p.tail.WriteLine(line)

		if ctx.Err() != nil {
			continue
		}

		if p.stderr != nil {
			p.stderr(line)
		} else {
			p.log.Debug("stderr", "line", line)
		}
	}

	if err := scanner.Err(); err != nil {
		p.log.Debug("Stderr scanner stopped", "error", err)
	}

	return nil
}
