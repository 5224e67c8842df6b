package encode

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	abp "github.com/rmera/abpmovie"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

//fake writes a shell script standing in for ffmpeg and returns an
//assembler that runs it.
func fake(Te *testing.T, body string) *Assembler {
	Te.Helper()
	if runtime.GOOS == "windows" {
		Te.Skip("the fake encoder is a shell script")
	}
	path := filepath.Join(Te.TempDir(), "fakeffmpeg")
	script := "#!/bin/sh\nfor a; do out=\"$a\"; done\n" + body + "\n"
	require.NoError(Te, os.WriteFile(path, []byte(script), 0o755))
	A := NewAssembler()
	A.SetCommand(path)
	return A
}

//frames makes a directory with a few frame files.
func frames(Te *testing.T) string {
	dir := filepath.Join(Te.TempDir(), "frames")
	require.NoError(Te, os.Mkdir(dir, 0o755))
	for _, n := range []string{"frame_0000.png", "frame_0001.png"} {
		require.NoError(Te, os.WriteFile(filepath.Join(dir, n), []byte("png"), 0o644))
	}
	return dir
}

func TestArgs(Te *testing.T) {
	A := NewAssembler()
	assert.Equal(Te, "ffmpeg", A.Command())
	want := []string{"-y", "-framerate", "30", "-i", filepath.Join("tmp", "frame_%04d.png"),
		"-c:v", "libx264", "-pix_fmt", "yuv420p", "-crf", "23", "out.mp4"}
	assert.Equal(Te, want, A.Args("tmp", "frame_%04d.png", "out.mp4"))
}

func TestAssembleSuccess(Te *testing.T) {
	A := fake(Te, `echo encoding >&2; : > "$out"; exit 0`)
	dir := frames(Te)
	out := filepath.Join(Te.TempDir(), "videos", "standard.mp4")
	require.NoError(Te, A.Assemble(context.Background(), dir, "frame_%04d.png", out))
	assert.NoDirExists(Te, dir)
	assert.FileExists(Te, out)
}

func TestAssembleFailure(Te *testing.T) {
	A := fake(Te, `echo "Could not find codec parameters" >&2; exit 1`)
	dir := frames(Te)
	err := A.Assemble(context.Background(), dir, "frame_%04d.png", filepath.Join(Te.TempDir(), "x.mp4"))
	require.True(Te, errors.Is(err, abp.ErrEncodingFailure), "got %v", err)
	var ee *abp.EncodeError
	require.True(Te, errors.As(err, &ee))
	assert.Contains(Te, ee.Diagnostics, "Could not find codec parameters")
	assert.NotEmpty(Te, ee.Diagnostics)
	assert.FileExists(Te, filepath.Join(dir, "frame_0000.png"))
	assert.FileExists(Te, filepath.Join(dir, "frame_0001.png"))
}

func TestAssembleCancelled(Te *testing.T) {
	A := fake(Te, `exec sleep 30`)
	dir := frames(Te)
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(200 * time.Millisecond)
		cancel()
	}()
	start := time.Now()
	err := A.Assemble(ctx, dir, "frame_%04d.png", filepath.Join(Te.TempDir(), "x.mp4"))
	assert.ErrorIs(Te, err, context.Canceled)
	assert.False(Te, errors.Is(err, abp.ErrEncodingFailure))
	assert.Less(Te, time.Since(start), 20*time.Second)
	assert.DirExists(Te, dir)
}

func TestAssembleTimeout(Te *testing.T) {
	A := fake(Te, `exec sleep 30`)
	A.Timeout = 100 * time.Millisecond
	dir := frames(Te)
	err := A.Assemble(context.Background(), dir, "frame_%04d.png", filepath.Join(Te.TempDir(), "x.mp4"))
	assert.ErrorIs(Te, err, context.DeadlineExceeded)
	assert.DirExists(Te, dir)
}

//expiredAfterExit never cancels the process, but reports a deadline
//once asked, as a context that expires just after the encoder exits.
type expiredAfterExit struct{ context.Context }

func (expiredAfterExit) Err() error { return context.DeadlineExceeded }

func TestAssembleSuccessOutlivesContext(Te *testing.T) {
	A := fake(Te, `: > "$out"`)
	dir := frames(Te)
	out := filepath.Join(Te.TempDir(), "x.mp4")
	err := A.Assemble(expiredAfterExit{context.Background()}, dir, "frame_%04d.png", out)
	require.NoError(Te, err)
	assert.FileExists(Te, out)
	assert.NoDirExists(Te, dir)
}

func TestCheck(Te *testing.T) {
	err := Check("surely-not-an-installed-encoder")
	require.True(Te, errors.Is(err, abp.ErrMissingDependency))
	var de *abp.DependencyError
	require.True(Te, errors.As(err, &de))
	assert.Equal(Te, "surely-not-an-installed-encoder", de.Name)
	A := fake(Te, "exit 0")
	assert.NoError(Te, A.Check())
}
