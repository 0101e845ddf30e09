// Package analyzer runs the external audioid binary and exposes its stdout
// as a channel of trimmed lines.
package analyzer

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
)

type Config struct {
	BinaryPath string
	EventsFile string
	StateFile  string
	Args       []string
}

// CommandArgs returns the arguments passed to the binary.
func (c Config) CommandArgs() []string {
	var args []string
	if c.EventsFile != "" {
		args = append(args, "--events", c.EventsFile)
	}
	if c.StateFile != "" {
		args = append(args, "--state", c.StateFile)
	}
	return append(args, c.Args...)
}

// Process is a running analyzer.
type Process struct {
	cmd    *exec.Cmd
	lines  chan string
	done   chan struct{}
	err    error
	logger *slog.Logger
}

// Start launches the binary. The process is killed when ctx is cancelled.
func Start(ctx context.Context, cfg Config, logger *slog.Logger) (*Process, error) {
	if cfg.BinaryPath == "" {
		return nil, fmt.Errorf("analyzer: no binary configured")
	}
	cmd := exec.CommandContext(ctx, cfg.BinaryPath, cfg.CommandArgs()...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("analyzer: stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("analyzer: stderr pipe: %w", err)
	}

	logger.Info("analyzer: starting", "binary", cfg.BinaryPath, "args", cmd.Args[1:])
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("analyzer: start %s: %w", cfg.BinaryPath, err)
	}

	p := &Process{
		cmd:    cmd,
		lines:  make(chan string, 64),
		done:   make(chan struct{}),
		logger: logger,
	}
	stderrDone := make(chan struct{})
	go func() {
		defer close(stderrDone)
		p.logStderr(stderr)
	}()
	go func() {
		p.readStdout(ctx, stdout)
		<-stderrDone
		p.err = cmd.Wait()
		if p.err != nil {
			logger.Warn("analyzer: process exited", "err", p.err)
		} else {
			logger.Warn("analyzer: process exited", "status", 0)
		}
		close(p.done)
		close(p.lines)
	}()
	return p, nil
}

// Lines yields trimmed stdout lines in order, blank ones included. It is
// closed after the process exits.
func (p *Process) Lines() <-chan string {
	return p.lines
}

// Wait blocks until the process has exited and returns its exit error.
func (p *Process) Wait() error {
	<-p.done
	return p.err
}

// ExitError describes how the process ended. It never returns nil: the
// analyzer is not expected to stop, even cleanly.
func (p *Process) ExitError() error {
	if err := p.Wait(); err != nil {
		return fmt.Errorf("analyzer exited: %w", err)
	}
	return errors.New("analyzer exited cleanly")
}

func (p *Process) Pid() int {
	return p.cmd.Process.Pid
}

func (p *Process) readStdout(ctx context.Context, r io.Reader) {
	// Whatever is left unread is discarded so the child never blocks on a
	// full pipe.
	defer io.Copy(io.Discard, r)

	// Lines have no length limit. Blank lines are forwarded too; they
	// parse as events with NaN fields.
	br := bufio.NewReader(r)
	for {
		raw, err := br.ReadString('\n')
		if raw != "" {
			select {
			case p.lines <- strings.TrimSpace(raw):
			case <-ctx.Done():
				return
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				p.logger.Warn("analyzer: read stdout", "err", err)
			}
			return
		}
	}
}

func (p *Process) logStderr(r io.Reader) {
	br := bufio.NewReader(r)
	for {
		line, err := br.ReadString('\n')
		if line != "" {
			p.logger.Debug("analyzer: stderr", "line", strings.TrimRight(line, "\r\n"))
		}
		if err != nil {
			return
		}
	}
}
