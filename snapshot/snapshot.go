// Package snapshot persists full-domain field state as NumPy .npy
// files, one file per field per snapshot tag, so runs can be plotted
// offline and resumed from any saved time.
package snapshot

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/sbinet/npyio"
	"gonum.org/v1/gonum/mat"

	"github.com/jmreppsUWGrad/2D-Research/mesh"
	"github.com/jmreppsUWGrad/2D-Research/props"
)

// ErrNoSnapshot is returned when a restart marker matches no saved tag.
var ErrNoSnapshot = errors.New("snapshot: no matching snapshot")

// State is one snapshot's field set. Temperature is persisted rather
// than conserved energy; energy is rebuilt from it on load.
type State struct {
	T       *mesh.Grid
	Eta     *mesh.Grid
	Species [props.NumSpecies]*mesh.Grid
}

// Store reads and writes snapshots under one output directory.
// Tags are elapsed times in milliseconds formatted as %f, matching the
// T_<tag>.npy naming of the file layout.
type Store struct {
	dir string
}

// NewStore creates the output directory if needed.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("snapshot: ensure output dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Tag formats an elapsed time in seconds as a snapshot tag.
func Tag(t float64) string { return strconv.FormatFloat(t*1000, 'f', 6, 64) }

// TagTime parses a snapshot tag back to elapsed seconds.
func TagTime(tag string) (float64, error) {
	ms, err := strconv.ParseFloat(tag, 64)
	if err != nil {
		return 0, fmt.Errorf("snapshot: bad tag %q: %w", tag, err)
	}
	return ms / 1000, nil
}

// Save writes every field of the state under the given tag.
func (s *Store) Save(tag string, st State) error {
	if err := s.writeGrid("T_"+tag, st.T); err != nil {
		return err
	}
	if err := s.writeGrid("eta_"+tag, st.Eta); err != nil {
		return err
	}
	for i, g := range st.Species {
		if err := s.writeGrid("m_"+props.SpeciesNames[i]+"_"+tag, g); err != nil {
			return err
		}
	}
	return nil
}

// Load reads the state saved under the given tag.
func (s *Store) Load(tag string) (State, error) {
	var st State
	var err error
	if st.T, err = s.readGrid("T_" + tag); err != nil {
		return State{}, err
	}
	if st.Eta, err = s.readGrid("eta_" + tag); err != nil {
		return State{}, err
	}
	for i := range st.Species {
		if st.Species[i], err = s.readGrid("m_" + props.SpeciesNames[i] + "_" + tag); err != nil {
			return State{}, err
		}
	}
	return st, nil
}

// SaveCoords writes the node coordinate fields once per run.
func (s *Store) SaveCoords(x, y *mesh.Grid) error {
	if err := s.writeGrid("X", x); err != nil {
		return err
	}
	return s.writeGrid("Y", y)
}

// Tags lists the saved snapshot tags in ascending time order.
func (s *Store) Tags() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("snapshot: list %s: %w", s.dir, err)
	}
	var tags []string
	for _, e := range entries {
		name := e.Name()
		if strings.HasPrefix(name, "T_") && strings.HasSuffix(name, ".npy") {
			tags = append(tags, strings.TrimSuffix(strings.TrimPrefix(name, "T_"), ".npy"))
		}
	}
	sort.Slice(tags, func(i, j int) bool {
		a, _ := strconv.ParseFloat(tags[i], 64)
		b, _ := strconv.ParseFloat(tags[j], 64)
		return a < b
	})
	return tags, nil
}

// Latest returns the newest saved tag whose text starts with marker.
// An empty marker matches every tag.
func (s *Store) Latest(marker string) (string, error) {
	tags, err := s.Tags()
	if err != nil {
		return "", err
	}
	for i := len(tags) - 1; i >= 0; i-- {
		if strings.HasPrefix(tags[i], marker) {
			return tags[i], nil
		}
	}
	return "", fmt.Errorf("%w for marker %q", ErrNoSnapshot, marker)
}

func (s *Store) writeGrid(name string, g *mesh.Grid) error {
	f, err := os.Create(filepath.Join(s.dir, name+".npy"))
	if err != nil {
		return fmt.Errorf("snapshot: create %s: %w", name, err)
	}
	m := mat.NewDense(g.Ny(), g.Nx(), append([]float64(nil), g.Data()...))
	if err := npyio.Write(f, m); err != nil {
		f.Close()
		return fmt.Errorf("snapshot: write %s: %w", name, err)
	}
	return f.Close()
}

func (s *Store) readGrid(name string) (*mesh.Grid, error) {
	f, err := os.Open(filepath.Join(s.dir, name+".npy"))
	if err != nil {
		return nil, fmt.Errorf("snapshot: open %s: %w", name, err)
	}
	defer f.Close()
	var m mat.Dense
	if err := npyio.Read(f, &m); err != nil {
		return nil, fmt.Errorf("snapshot: read %s: %w", name, err)
	}
	rows, cols := m.Dims()
	g := mesh.NewGrid(cols, rows)
	for iy := 0; iy < rows; iy++ {
		for ix := 0; ix < cols; ix++ {
			g.Set(ix, iy, m.At(iy, ix))
		}
	}
	return g, nil
}
