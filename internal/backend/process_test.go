// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package backend_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/chatdesk/internal/backend"
	"github.com/jeranaias/chatdesk/internal/backend/backendtest"
	"github.com/jeranaias/chatdesk/internal/events"
)

// fakeInterpreter answers --version like python and otherwise runs its
// first argument as a shell script.
const fakeInterpreter = `#!/bin/sh
if [ "$1" = "--version" ]; then
  echo "Python 3.12.1"
  exit 0
fi
script="$1"
shift
exec /bin/sh "$script" "$@"
`

type processFixture struct {
	dir    string
	interp string
	rec    *backendtest.Recorder
}

func newProcessFixture(t *testing.T) *processFixture {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell-script interpreter fixture requires a POSIX shell")
	}
	dir := t.TempDir()
	interp := filepath.Join(dir, "fakepy")
	require.NoError(t, os.WriteFile(interp, []byte(fakeInterpreter), 0755))
	return &processFixture{dir: dir, interp: interp, rec: backendtest.NewRecorder()}
}

func (f *processFixture) backend(t *testing.T, script string) *backend.Process {
	t.Helper()
	path := filepath.Join(f.dir, "handler.sh")
	require.NoError(t, os.WriteFile(path, []byte(script), 0644))
	return backend.NewProcess(backend.ProcessConfig{Interpreter: f.interp, Script: path}, f.rec, zerolog.Nop())
}

// =============================================================================
// AVAILABILITY
// =============================================================================

func TestProcess_CheckAvailableAndInfo(t *testing.T) {
	f := newProcessFixture(t)
	p := f.backend(t, "")

	ok, err := p.CheckAvailable(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)

	info, err := p.Info(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Python 3.12.1", info)
}

func TestProcess_MissingInterpreterIsUnavailable(t *testing.T) {
	p := backend.NewProcess(backend.ProcessConfig{
		Interpreter: filepath.Join(t.TempDir(), "no-such-python"),
		Script:      "x.py",
	}, backendtest.NewRecorder(), zerolog.Nop())

	ok, err := p.CheckAvailable(context.Background())
	assert.NoError(t, err)
	assert.False(t, ok)
	assert.Contains(t, p.InstallHint(), "no-such-python is not available")

	_, err = p.Info(context.Background())
	assert.Error(t, err)
}

// =============================================================================
// ONE-SHOT
// =============================================================================

func TestProcess_Send(t *testing.T) {
	tests := []struct {
		name   string
		script string
		want   backend.Reply
	}{
		{
			name:   "success",
			script: `printf '{"success": true, "message": "you said %s"}\n' "$1"`,
			want:   backend.Reply{Success: true, Message: "you said hello"},
		},
		{
			name:   "logical failure",
			script: `echo '{"success": false, "error": "model offline"}'`,
			want:   backend.Reply{Success: false, Error: "model offline"},
		},
		{
			name:   "missing message",
			script: `echo '{"success": true}'`,
			want:   backend.Reply{Success: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newProcessFixture(t)
			reply, err := f.backend(t, tt.script).Send(context.Background(), "hello")
			require.NoError(t, err)
			assert.Equal(t, tt.want, *reply)
		})
	}
}

func TestProcess_SendFailures(t *testing.T) {
	tests := []struct {
		name     string
		script   string
		wantKind backend.ErrorKind
		wantText string
	}{
		{"non-zero exit", "echo 'Traceback: boom' >&2\nexit 1", backend.KindExit, "script failed: Traceback: boom"},
		{"bad json", "echo 'not json'", backend.KindDecode, "failed to parse script response"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newProcessFixture(t)
			_, err := f.backend(t, tt.script).Send(context.Background(), "hi")
			require.Error(t, err)
			assert.Equal(t, tt.wantKind, backend.KindOf(err))
			assert.Contains(t, err.Error(), tt.wantText)
		})
	}
}

func TestProcess_SendMissingScript(t *testing.T) {
	f := newProcessFixture(t)
	p := backend.NewProcess(backend.ProcessConfig{Interpreter: f.interp, Script: filepath.Join(f.dir, "gone.py")}, f.rec, zerolog.Nop())

	_, err := p.Send(context.Background(), "hi")
	assert.True(t, errors.Is(err, backend.ErrNoScript))
	assert.Contains(t, err.Error(), "script not found at:")

	err = p.StartStream(context.Background(), backend.StreamRequest{ID: "s1", Text: "hi"})
	assert.True(t, errors.Is(err, backend.ErrNoScript))
}

func TestProcess_SendCanceled(t *testing.T) {
	f := newProcessFixture(t)
	p := f.backend(t, "exec sleep 10")

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := p.Send(ctx, "hi")
	assert.Equal(t, backend.KindCanceled, backend.KindOf(err))
	assert.Less(t, time.Since(start), 5*time.Second)
}

// =============================================================================
// STREAMING
// =============================================================================

const streamingScript = `if [ "$1" != "--stream" ]; then exit 2; fi
echo '{"type":"chunk","content":"Hi"}'
echo ''
echo 'garbage'
echo '{"type":"chunk","content":" there"}'
echo '{"type":"complete"}'
echo '{"type":"chunk","content":"after the end"}'
`

func TestProcess_StartStream(t *testing.T) {
	f := newProcessFixture(t)
	p := f.backend(t, streamingScript)

	require.NoError(t, p.StartStream(context.Background(), backend.StreamRequest{ID: "s1", Text: "hello"}))
	evs := waitTerminal(t, f.rec)

	require.Len(t, evs, 3)
	assert.Equal(t, "Hi there", joinChunks(evs))
	assert.Equal(t, events.KindComplete, evs[2].Kind)
	for _, ev := range evs {
		assert.Equal(t, "s1", ev.StreamID)
	}
}

func TestProcess_StartStreamWithoutTerminal(t *testing.T) {
	tests := []struct {
		name    string
		script  string
		wantMsg string
	}{
		{"eof", `echo '{"type":"chunk","content":"partial"}'`, "stream ended without completion"},
		{"crash", "echo '{\"type\":\"chunk\",\"content\":\"p\"}'\necho 'ImportError: openai' >&2\nexit 1", "script failed: ImportError: openai"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newProcessFixture(t)
			require.NoError(t, f.backend(t, tt.script).StartStream(context.Background(), backend.StreamRequest{ID: "s2"}))

			evs := waitTerminal(t, f.rec)
			last := evs[len(evs)-1]
			assert.Equal(t, events.KindError, last.Kind)
			assert.True(t, strings.HasPrefix(last.Message, tt.wantMsg), last.Message)
			assert.Equal(t, "s2", last.StreamID)
		})
	}
}
