package traj

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	abp "github.com/rmera/abpmovie"
	"github.com/rmera/abpmovie/traj/bin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const small = "id,x,y,z,time\n0,1,2,3,7\n1,4,5,6,7\n"

func smallTraj(Te *testing.T) *abp.Trajectory {
	f := abp.NewFrame(3)
	f.Timestep = 4
	T, err := abp.NewTrajectory(abp.Header{Particles: 3, Frames: 1}, []abp.Frame{*f})
	require.NoError(Te, err)
	return T
}

func TestCSVPath(Te *testing.T) {
	assert.Equal(Te, "dir/sim.csv", CSVPath("dir/sim.bin"))
	assert.Equal(Te, "dir/sim.csv", CSVPath("dir/sim.bin.zst"))
	assert.Equal(Te, "sim.csv", CSVPath("sim"))
}

func TestReadPrefersBinary(Te *testing.T) {
	dir := Te.TempDir()
	path := filepath.Join(dir, "sim.bin")
	require.NoError(Te, bin.Write(path, smallTraj(Te)))
	require.NoError(Te, os.WriteFile(filepath.Join(dir, "sim.csv"), []byte(small), 0o644))
	T, used, err := ReadWith(path, Probes)
	require.NoError(Te, err)
	assert.Equal(Te, path, used)
	assert.Equal(Te, 3, T.Particles())
}

func TestReadFallsBackToCSV(Te *testing.T) {
	dir := Te.TempDir()
	require.NoError(Te, os.WriteFile(filepath.Join(dir, "sim.csv"), []byte(small), 0o644))
	T, err := Read(filepath.Join(dir, "sim.bin"))
	require.NoError(Te, err)
	assert.Equal(Te, 2, T.Particles())
	assert.Equal(Te, []int32{7}, T.Timesteps())
	//a CSV path is read as CSV, never as binary
	T, err = Read(filepath.Join(dir, "sim.csv"))
	require.NoError(Te, err)
	assert.Equal(Te, 2, T.Particles())
}

func TestReadNotFound(Te *testing.T) {
	path := filepath.Join(Te.TempDir(), "sim.bin")
	T, err := Read(path)
	assert.Nil(Te, T)
	require.True(Te, errors.Is(err, abp.ErrInputNotFound))
	var nf *abp.NotFoundError
	require.True(Te, errors.As(err, &nf))
	assert.Equal(Te, []string{path, CSVPath(path)}, nf.Tried)
}

func TestDecodeErrorsAreNotFallbacks(Te *testing.T) {
	dir := Te.TempDir()
	path := filepath.Join(dir, "sim.bin")
	require.NoError(Te, os.WriteFile(path, []byte{1, 0}, 0o644))
	require.NoError(Te, os.WriteFile(filepath.Join(dir, "sim.csv"), []byte(small), 0o644))
	_, err := Read(path)
	assert.True(Te, errors.Is(err, abp.ErrTruncatedData), "got %v", err)
}
