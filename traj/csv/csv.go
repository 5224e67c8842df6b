// Package csv reads the text trajectories written by the older versions of
// the simulation: a header row and one row per particle and timestep.
//
// Columns are found by name. The particle identifier may be a number or a
// label with a number in it (Particles12); x, y and z positions and the
// time are required; orientations are optional and default to zero.
package csv

import (
	"bufio"
	ecsv "encoding/csv"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"

	abp "github.com/rmera/abpmovie"
	"gonum.org/v1/gonum/spatial/r3"
)

//Accepted names for each column, lowercase.
var (
	idNames   = []string{"particles", "particle", "id"}
	xNames    = []string{"x-position", "x"}
	yNames    = []string{"y-position", "y"}
	zNames    = []string{"z-position", "z"}
	timeNames = []string{"time", "timestep"}
	exNames   = []string{"ex-orientation", "ex"}
	eyNames   = []string{"ey-orientation", "ey"}
	ezNames   = []string{"ez-orientation", "ez"}
)

var digits = regexp.MustCompile(`\d+`)

type columns struct {
	id, x, y, z, t int
	ex, ey, ez     int //-1 if absent
}

//record is one decoded row.
type record struct {
	row    int
	id     int
	pos    r3.Vec
	orient r3.Vec
}

type frameRows struct {
	timestep int32
	first    int //row where the frame first appears
	recs     []record
}

func find(header map[string]int, names []string) int {
	for _, n := range names {
		if i, ok := header[n]; ok {
			return i
		}
	}
	return -1
}

func readHeader(row []string, name string) (columns, error) {
	header := make(map[string]int, len(row))
	for i, v := range row {
		header[strings.ToLower(strings.TrimSpace(v))] = i
	}
	c := columns{
		id: find(header, idNames),
		x:  find(header, xNames),
		y:  find(header, yNames),
		z:  find(header, zNames),
		t:  find(header, timeNames),
		ex: find(header, exNames),
		ey: find(header, eyNames),
		ez: find(header, ezNames),
	}
	required := []struct {
		col  int
		name string
	}{{c.id, "particle identifier"}, {c.x, "x position"}, {c.y, "y position"}, {c.z, "z position"}, {c.t, "time"}}
	for _, r := range required {
		if r.col < 0 {
			return c, &abp.RowError{File: name, Row: 1, Msg: "no " + r.name + " column in header"}
		}
	}
	return c, nil
}

// ParticleID decodes a particle identifier. Plain integers are used as they
// are; otherwise the first group of digits in the label is used.
func ParticleID(s string) (int, error) {
	s = strings.TrimSpace(s)
	if id, err := strconv.Atoi(s); err == nil {
		if id < 0 {
			return 0, fmt.Errorf("negative particle identifier %d", id)
		}
		return id, nil
	}
	d := digits.FindString(s)
	if d == "" {
		return 0, fmt.Errorf("particle identifier %q contains no number", s)
	}
	return strconv.Atoi(d)
}

func field(rec []string, i int) (string, bool) {
	if i < 0 || i >= len(rec) {
		return "", false
	}
	return strings.TrimSpace(rec[i]), true
}

func (c columns) decode(rec []string, row int, name string) (record, int32, error) {
	r := record{row: row}
	bad := func(msg string, a ...interface{}) (record, int32, error) {
		return r, 0, &abp.RowError{File: name, Row: row, Msg: fmt.Sprintf(msg, a...)}
	}
	s, ok := field(rec, c.id)
	if !ok {
		return bad("missing particle identifier")
	}
	var err error
	if r.id, err = ParticleID(s); err != nil {
		return bad("%v", err)
	}
	coords := [6]float64{}
	for k, col := range [6]int{c.x, c.y, c.z, c.ex, c.ey, c.ez} {
		s, ok := field(rec, col)
		if !ok {
			if k < 3 {
				return bad("missing position field %d", col)
			}
			continue
		}
		if coords[k], err = strconv.ParseFloat(s, 64); err != nil {
			return bad("bad number %q", s)
		}
	}
	r.pos = r3.Vec{X: coords[0], Y: coords[1], Z: coords[2]}
	r.orient = r3.Vec{X: coords[3], Y: coords[4], Z: coords[5]}
	s, ok = field(rec, c.t)
	if !ok {
		return bad("missing time")
	}
	t, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return bad("bad time %q", s)
	}
	return r, int32(t), nil
}

// Decode reads a CSV trajectory from r. name is only used in error messages.
// Frames are returned in the order their time first appears in the file.
func Decode(r io.Reader, name string) (*abp.Trajectory, error) {
	cr := ecsv.NewReader(bufio.NewReader(r))
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true
	head, err := cr.Read()
	if err == io.EOF {
		return nil, &abp.RowError{File: name, Row: 1, Msg: "empty file, no header"}
	}
	if err != nil {
		return nil, &abp.RowError{File: name, Row: 1, Msg: err.Error()}
	}
	cols, err := readHeader(head, name)
	if err != nil {
		return nil, err
	}
	var order []*frameRows
	byTime := make(map[int32]*frameRows)
	natoms := 0
	for row := 2; ; row++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &abp.RowError{File: name, Row: row, Msg: err.Error()}
		}
		if len(rec) == 1 && strings.TrimSpace(rec[0]) == "" {
			continue
		}
		r, t, err := cols.decode(rec, row, name)
		if err != nil {
			return nil, err
		}
		fr, ok := byTime[t]
		if !ok {
			fr = &frameRows{timestep: t, first: row}
			byTime[t] = fr
			order = append(order, fr)
		}
		fr.recs = append(fr.recs, r)
		if r.id+1 > natoms {
			natoms = r.id + 1
		}
	}
	//Every frame is checked against its own rows before anything is
	//allocated, so a huge label can't size the frames.
	for _, fr := range order {
		seen := make(map[int]bool, len(fr.recs))
		for _, r := range fr.recs {
			if seen[r.id] {
				return nil, &abp.RowError{File: name, Row: r.row, Msg: fmt.Sprintf("particle %d appears twice at time %d", r.id, fr.timestep)}
			}
			seen[r.id] = true
		}
		if len(fr.recs) != natoms {
			id := 0
			for seen[id] {
				id++
			}
			return nil, &abp.RowError{File: name, Row: fr.first, Msg: fmt.Sprintf("time %d has no row for particle %d", fr.timestep, id)}
		}
	}
	frames := make([]abp.Frame, len(order))
	for i, fr := range order {
		f := abp.NewFrame(natoms)
		f.Timestep = fr.timestep
		for _, r := range fr.recs {
			f.Pos[r.id] = r.pos
			f.Orient[r.id] = r.orient
		}
		frames[i] = *f
	}
	return abp.NewTrajectory(abp.Header{Particles: natoms, Frames: len(frames)}, frames)
}

// Read decodes the CSV trajectory in the file name.
func Read(name string) (*abp.Trajectory, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Decode(f, name)
}
