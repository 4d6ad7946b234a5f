// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package backend

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/jeranaias/chatdesk/internal/events"
)

// maxStreamLine bounds a single NDJSON line from a streaming script.
const maxStreamLine = 1 << 20

// =============================================================================
// PROCESS BACKEND
// =============================================================================

// ProcessConfig configures the process backend.
type ProcessConfig struct {
	// Interpreter is the executable, e.g. "python3".
	Interpreter string
	// Script is passed as the interpreter's first argument.
	Script string
	// Dir is the working directory for the child (empty = current).
	Dir string
}

// Process runs a handler script once per message.
type Process struct {
	cfg    ProcessConfig
	pub    events.Publisher
	logger zerolog.Logger
}

// NewProcess creates a process backend.
func NewProcess(cfg ProcessConfig, pub events.Publisher, logger zerolog.Logger) *Process {
	return &Process{
		cfg:    cfg,
		pub:    pub,
		logger: logger.With().Str("backend", "process").Logger(),
	}
}

func (p *Process) Name() string { return "process" }

func (p *Process) InstallHint() string {
	return fmt.Sprintf("%s is not available. Please install it to use this chat.", p.cfg.Interpreter)
}

// CheckAvailable runs `<interpreter> --version`. A missing interpreter or a
// non-zero exit is reported as unavailable, not as an error.
func (p *Process) CheckAvailable(ctx context.Context) (bool, error) {
	err := p.command(ctx, "--version").Run()
	if err == nil {
		return true, nil
	}
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	p.logger.Debug().Err(err).Str("interpreter", p.cfg.Interpreter).Msg("interpreter check failed")
	return false, nil
}

// Info returns the interpreter's version line.
func (p *Process) Info(ctx context.Context) (string, error) {
	out, err := p.command(ctx, "--version").CombinedOutput()
	if err != nil {
		return "", errors.Wrapf(err, "%s --version", p.cfg.Interpreter)
	}
	return strings.TrimSpace(string(out)), nil
}

// Send runs `<interpreter> <script> <text>` and decodes its stdout.
func (p *Process) Send(ctx context.Context, text string) (*Reply, error) {
	if err := p.checkScript(); err != nil {
		return nil, err
	}

	var stdout, stderr bytes.Buffer
	cmd := p.command(ctx, p.cfg.Script, text)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	if err := cmd.Run(); err != nil {
		return nil, p.runError(ctx, err, &stderr)
	}
	p.logger.Debug().Dur("elapsed", time.Since(start)).Int("bytes", stdout.Len()).Msg("script finished")

	var reply Reply
	if err := json.Unmarshal(bytes.TrimSpace(stdout.Bytes()), &reply); err != nil {
		return nil, &CallError{Kind: KindDecode, Message: "failed to parse script response", Cause: err}
	}
	return &reply, nil
}

// StartStream runs `<interpreter> <script> --stream <text>` and republishes
// each line it prints. Returns once the child has started.
func (p *Process) StartStream(ctx context.Context, req StreamRequest) error {
	if err := p.checkScript(); err != nil {
		return err
	}

	var stderr bytes.Buffer
	cmd := p.command(ctx, p.cfg.Script, "--stream", req.Text)
	cmd.Stderr = &stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return &CallError{Kind: KindExec, Message: "failed to open script output", Cause: err}
	}
	if err := cmd.Start(); err != nil {
		return &CallError{Kind: KindExec, Message: "failed to execute " + p.cfg.Interpreter, Cause: err}
	}

	go p.pump(ctx, cmd, stdout, &stderr, newEmitter(p.pub, req.ID, p.logger))
	return nil
}

func (p *Process) pump(ctx context.Context, cmd *exec.Cmd, stdout io.Reader, stderr *bytes.Buffer, em *emitter) {
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), maxStreamLine)

	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		ev, err := events.Decode(line)
		if err != nil {
			p.logger.Warn().Err(err).Str("line", string(line)).Msg("skipping malformed stream line")
			continue
		}
		if !em.emit(ev) {
			break
		}
	}
	scanErr := scanner.Err()

	// Keep the child from blocking on a full pipe after we stop reading.
	io.Copy(io.Discard, stdout)
	waitErr := cmd.Wait()

	if em.done || ctx.Err() != nil {
		return
	}
	switch {
	case waitErr != nil && stderr.Len() > 0:
		em.fail("script failed: " + strings.TrimSpace(stderr.String()))
	case waitErr != nil:
		em.fail("script failed: " + waitErr.Error())
	case scanErr != nil:
		em.fail("failed to read stream: " + scanErr.Error())
	default:
		em.fail("stream ended without completion")
	}
}

// =============================================================================
// HELPERS
// =============================================================================

func (p *Process) command(ctx context.Context, args ...string) *exec.Cmd {
	cmd := exec.CommandContext(ctx, p.cfg.Interpreter, args...)
	cmd.Dir = p.cfg.Dir
	// Grandchildren holding the pipes must not keep Wait blocked after a kill.
	cmd.WaitDelay = 2 * time.Second
	return cmd
}

func (p *Process) checkScript() error {
	path := p.cfg.Script
	if p.cfg.Dir != "" && !filepath.IsAbs(path) {
		path = filepath.Join(p.cfg.Dir, path)
	}
	if _, err := os.Stat(path); err != nil {
		return &CallError{Kind: KindNotFound, Message: "script not found at: " + p.cfg.Script}
	}
	return nil
}

func (p *Process) runError(ctx context.Context, err error, stderr *bytes.Buffer) error {
	if ctx.Err() != nil {
		return &CallError{Kind: KindCanceled, Message: "request canceled", Cause: ctx.Err()}
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = exitErr.Error()
		}
		return &CallError{Kind: KindExit, Message: "script failed: " + msg}
	}
	return &CallError{Kind: KindExec, Message: "failed to execute " + p.cfg.Interpreter, Cause: err}
}
