package iofile

import (
	"fmt"
	"os"

	"github.com/roach88/dutkit/internal/ir"
)

// Set owns the exchange files of one run and the run's work directory.
//
// Close releases everything the set holds: staged buffers are dropped and,
// unless Preserve is set, the work directory is removed. Close is safe to
// call more than once and is meant to be deferred right after creation so
// that files are released on success and failure alike.
type Set struct {
	Dir      string
	Preserve bool

	files  []*File
	byName map[string]*File
	closed bool
}

// NewSet creates a set rooted at dir. The directory must already exist.
func NewSet(dir string, preserve bool) *Set {
	return &Set{Dir: dir, Preserve: preserve, byName: make(map[string]*File)}
}

// Add registers a file. Names must be unique within a set.
func (s *Set) Add(f *File) error {
	if s.closed {
		return fmt.Errorf("exchange file set %s is closed", s.Dir)
	}
	if _, ok := s.byName[f.Name]; ok {
		return fmt.Errorf("duplicate exchange file %q", f.Name)
	}
	s.files = append(s.files, f)
	s.byName[f.Name] = f
	return nil
}

// Get returns the file bound to a port, or nil.
func (s *Set) Get(name string) *File {
	return s.byName[name]
}

// Files returns all files in insertion order.
func (s *Set) Files() []*File {
	return s.files
}

// Inputs returns the input files in insertion order.
func (s *Set) Inputs() []*File {
	return s.filter(ir.In)
}

// Outputs returns the output files in insertion order.
func (s *Set) Outputs() []*File {
	return s.filter(ir.Out)
}

func (s *Set) filter(dir ir.Direction) []*File {
	var out []*File
	for _, f := range s.files {
		if f.Dir == dir {
			out = append(out, f)
		}
	}
	return out
}

// Stage writes every input file. Inputs must exist and be well-formed
// before the backend is invoked.
func (s *Set) Stage() error {
	for _, f := range s.Inputs() {
		if err := f.Write(); err != nil {
			return err
		}
	}
	return nil
}

// Close releases the set.
func (s *Set) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	for _, f := range s.files {
		f.release()
	}
	s.files = nil
	s.byName = nil
	if s.Preserve {
		return nil
	}
	if err := os.RemoveAll(s.Dir); err != nil {
		return fmt.Errorf("release exchange files in %s: %w", s.Dir, err)
	}
	return nil
}
