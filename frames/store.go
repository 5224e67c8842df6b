package frames

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// Prefix is the name of every frame file, before the index.
const Prefix = "frame_"

//minDigits is the padding of the frame indexes, unless there are
//too many frames for it.
const minDigits = 4

// Store is the directory holding the frames of one video. It is created
// empty for each run and belongs to that run only.
type Store struct {
	dir    string
	digits int
}

// NewStore creates a new, empty, directory under parent (the system
// temporary directory if parent is "") for n frames. The name of the
// directory starts with name.
func NewStore(parent, name string, n int) (*Store, error) {
	if parent != "" {
		if err := os.MkdirAll(parent, 0o755); err != nil {
			return nil, err
		}
	}
	dir, err := os.MkdirTemp(parent, name+"-*")
	if err != nil {
		return nil, err
	}
	digits := minDigits
	if l := len(strconv.Itoa(n - 1)); n > 0 && l > digits {
		digits = l
	}
	return &Store{dir: dir, digits: digits}, nil
}

// Dir returns the directory of the store.
func (S *Store) Dir() string {
	return S.dir
}

// Pattern returns the printf-style name of the frame files, as the
// encoder expects it: frame_%04d.png.
func (S *Store) Pattern() string {
	return fmt.Sprintf("%s%%0%dd.png", Prefix, S.digits)
}

// Path returns the file of the frame with index i.
func (S *Store) Path(i int) string {
	return filepath.Join(S.dir, fmt.Sprintf(S.Pattern(), i))
}

// Remove deletes the store and every frame in it.
func (S *Store) Remove() error {
	return os.RemoveAll(S.dir)
}
