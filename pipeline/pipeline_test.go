package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	abp "github.com/rmera/abpmovie"
	"github.com/rmera/abpmovie/config"
	"github.com/rmera/abpmovie/render"
	"github.com/rmera/abpmovie/traj/bin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

//fakeEncoder writes the list of frames it was given as the "video".
type fakeEncoder struct {
	sync.Mutex
	checkErr  error
	failFor   string //outputs containing this fail
	encoded   []string
	cleanedUp []string
}

func (f *fakeEncoder) Check() error { return f.checkErr }

func (f *fakeEncoder) Encode(ctx context.Context, dir, pattern, output string) error {
	f.Lock()
	f.encoded = append(f.encoded, output)
	f.Unlock()
	if f.failFor != "" && strings.Contains(output, f.failFor) {
		return &abp.EncodeError{Output: output, Diagnostics: "fake failure", Err: errors.New("exit status 1")}
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	if err := os.MkdirAll(filepath.Dir(output), 0o755); err != nil {
		return err
	}
	return os.WriteFile(output, []byte(strings.Join(names, "\n")), 0o644)
}

func (f *fakeEncoder) Cleanup(dir string) error {
	f.Lock()
	f.cleanedUp = append(f.cleanedUp, dir)
	f.Unlock()
	return os.RemoveAll(dir)
}

type countingRenderer struct {
	sync.Mutex
	titles []string
}

func (c *countingRenderer) Render(S *render.Scene, w io.Writer) error {
	c.Lock()
	c.titles = append(c.titles, S.Title)
	c.Unlock()
	_, err := fmt.Fprintf(w, "%s %d", S.Title, len(S.Points))
	return err
}

//setup writes a 200-particle, 3-frame trajectory and a parameter file and
//returns a valid configuration using them.
func setup(Te *testing.T) *config.Config {
	dir := Te.TempDir()
	var frames []abp.Frame
	for _, ts := range []int32{20, 0, 10} {
		f := abp.NewFrame(200)
		f.Timestep = ts
		for i := range f.Pos {
			f.Pos[i] = r3.Vec{X: float64(i%10) - 5, Y: float64(i%7) - 3, Z: float64(i) / 20}
		}
		frames = append(frames, *f)
	}
	T, err := abp.NewTrajectory(abp.Header{Particles: 200, Frames: 3}, frames)
	require.NoError(Te, err)
	require.NoError(Te, bin.Write(filepath.Join(dir, "simulation.bin"), T))
	params := "1\t2\t3\t4\t5\t6\t8.5\t12\n"
	require.NoError(Te, os.WriteFile(filepath.Join(dir, "parameter.txt"), []byte(params), 0o644))
	con := config.Default()
	con.Input.Trajectory = filepath.Join(dir, "simulation.bin")
	con.Input.Params = filepath.Join(dir, "parameter.txt")
	con.Output.Dir = filepath.Join(dir, "figures")
	con.Output.FramesDir = filepath.Join(dir, "frames")
	con.Render.Vertical = "data"
	con.Render.Workers = 2
	con.Tracking.Fraction = 0.02
	con.Tracking.Seed = 7
	require.NoError(Te, con.Validate())
	return con
}

func logger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func TestRunBoth(Te *testing.T) {
	for _, concurrent := range []bool{false, true} {
		con := setup(Te)
		con.Pipeline.Concurrent = concurrent
		enc := &fakeEncoder{}
		R := &countingRenderer{}
		var logs bytes.Buffer
		res, err := Run(context.Background(), con, Deps{Renderer: R, Encoder: enc, Logger: logger(&logs)})
		require.NoError(Te, err)
		require.Len(Te, res, 2)
		assert.Equal(Te, Standard, res[0].Kind)
		assert.Equal(Te, []Stage{Idle, Reading, Estimating, Rendering, Encoding, Cleanup, Done}, res[0].History)
		assert.Equal(Te, []Stage{Idle, Reading, Estimating, Sampling, Rendering, Encoding, Cleanup, Done}, res[1].History)
		for _, r := range res {
			assert.Equal(Te, Done, r.Stage)
			assert.Equal(Te, 3, r.Frames)
			assert.Empty(Te, r.FramesDir)
			data, err := os.ReadFile(r.Output)
			require.NoError(Te, err)
			assert.Equal(Te, "frame_0000.png\nframe_0001.png\nframe_0002.png", string(data))
		}
		assert.Len(Te, enc.cleanedUp, 2)
		for _, d := range enc.cleanedUp {
			assert.NoDirExists(Te, d)
		}
		assert.Contains(Te, R.titles, "Particle Tracking - 4 Particles - Frame 10")
		assert.Contains(Te, R.titles, "Active Brownian Particles - Frame 20")
		assert.Contains(Te, logs.String(), "Cylinder: radius=8.5")
	}
}

func TestPreflightFirst(Te *testing.T) {
	con := setup(Te)
	reads := 0
	deps := Deps{
		Renderer: &countingRenderer{},
		Encoder:  &fakeEncoder{checkErr: &abp.DependencyError{Name: "ffmpeg", Err: errors.New("not found")}},
		Read: func(string) (*abp.Trajectory, error) {
			reads++
			return nil, errors.New("should not be called")
		},
	}
	res, err := Run(context.Background(), con, deps)
	assert.Nil(Te, res)
	assert.True(Te, errors.Is(err, abp.ErrMissingDependency))
	assert.Zero(Te, reads)
}

type brokenRenderer struct{ countingRenderer }

func (b *brokenRenderer) Check() error { return errors.New("no fonts") }

func TestPreflightRenderer(Te *testing.T) {
	con := setup(Te)
	_, err := Run(context.Background(), con, Deps{Renderer: &brokenRenderer{}, Encoder: &fakeEncoder{}})
	assert.True(Te, errors.Is(err, abp.ErrMissingDependency))
	assert.Contains(Te, err.Error(), "no fonts")
}

func TestReadFailureFailsBoth(Te *testing.T) {
	con := setup(Te)
	con.Input.Trajectory = filepath.Join(Te.TempDir(), "missing.bin")
	res, err := Run(context.Background(), con, Deps{Renderer: &countingRenderer{}, Encoder: &fakeEncoder{}})
	assert.True(Te, errors.Is(err, abp.ErrInputNotFound))
	require.Len(Te, res, 2)
	for _, r := range res {
		assert.Equal(Te, []Stage{Idle, Reading, Failed}, r.History)
		assert.True(Te, errors.Is(r.Err, abp.ErrInputNotFound))
	}
}

func TestEncodingFailureIsolated(Te *testing.T) {
	con := setup(Te)
	enc := &fakeEncoder{failFor: "standard"}
	res, err := Run(context.Background(), con, Deps{Renderer: &countingRenderer{}, Encoder: enc})
	require.Error(Te, err)
	assert.True(Te, errors.Is(err, abp.ErrEncodingFailure))
	assert.Equal(Te, Failed, res[0].Stage)
	assert.Equal(Te, []Stage{Idle, Reading, Estimating, Rendering, Encoding, Failed}, res[0].History)
	//frames are kept for the failed video
	assert.FileExists(Te, filepath.Join(res[0].FramesDir, "frame_0002.png"))
	assert.Equal(Te, Done, res[1].Stage)
	assert.Len(Te, enc.cleanedUp, 1)
}

func TestRenderFailureKeepsFrames(Te *testing.T) {
	con := setup(Te)
	con.Pipeline.Standard = false
	R := render.Func(func(S *render.Scene, w io.Writer) error {
		if strings.HasSuffix(S.Title, "Frame 20") {
			return errors.New("cannot draw")
		}
		_, err := w.Write([]byte("img"))
		return err
	})
	enc := &fakeEncoder{}
	res, err := Run(context.Background(), con, Deps{Renderer: R, Encoder: enc})
	require.Len(Te, res, 1)
	assert.True(Te, errors.Is(err, abp.ErrRenderFailure))
	var re *abp.RenderError
	require.True(Te, errors.As(err, &re))
	assert.Equal(Te, 2, re.Index)
	assert.Equal(Te, []Stage{Idle, Reading, Estimating, Sampling, Rendering, Failed}, res[0].History)
	assert.DirExists(Te, res[0].FramesDir)
	assert.Empty(Te, enc.encoded)
}

func TestSeedReproducible(Te *testing.T) {
	titles := func(seed int64) []string {
		con := setup(Te)
		con.Pipeline.Standard = false
		con.Render.Workers = 1
		var ids []string
		R := render.Func(func(S *render.Scene, w io.Writer) error {
			if strings.HasSuffix(S.Title, "Frame 0") {
				for _, p := range S.Points {
					ids = append(ids, fmt.Sprint(p.ID, p.Color))
				}
			}
			return nil
		})
		_, err := Run(context.Background(), con, Deps{Renderer: R, Encoder: &fakeEncoder{}, Rand: rand.New(rand.NewSource(seed))})
		require.NoError(Te, err)
		return ids
	}
	a, b := titles(3), titles(3)
	assert.Len(Te, a, 4)
	assert.Equal(Te, a, b)
}

func TestStageString(Te *testing.T) {
	assert.Equal(Te, "cleanup", Cleanup.String())
	assert.Equal(Te, "stage(42)", Stage(42).String())
}
