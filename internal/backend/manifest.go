package backend

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/dutkit/internal/iofile"
)

// ManifestName is the file written into the work directory before an
// external tool starts.
const ManifestName = "manifest.yaml"

// Manifest is the on-disk description of an invocation for external tools.
type Manifest struct {
	Entity     string               `yaml:"entity"`
	Instance   string               `yaml:"instance"`
	Design     string               `yaml:"design"`
	Tool       string               `yaml:"tool"`
	Variant    string               `yaml:"variant"`
	WorkDir    string               `yaml:"workdir"`
	Files      []ManifestFile       `yaml:"files"`
	Parameters map[string]Parameter `yaml:"parameters,omitempty"`
	Options    map[string]string    `yaml:"options,omitempty"`
	Extras     []string             `yaml:"extras,omitempty"`
	Probes     []string             `yaml:"probes,omitempty"`
	NProc      int                  `yaml:"nproc,omitempty"`
}

// ManifestFile describes one exchange file with its rendered gate.
type ManifestFile struct {
	Name       string             `yaml:"name"`
	Path       string             `yaml:"path"`
	Direction  string             `yaml:"direction"`
	Kind       string             `yaml:"kind"`
	Type       string             `yaml:"type"`
	Signals    []string           `yaml:"signals"`
	Sync       string             `yaml:"sync,omitempty"`
	Condition  string             `yaml:"condition,omitempty"`
	Electrical *iofile.Electrical `yaml:"electrical,omitempty"`
	Control    bool               `yaml:"control,omitempty"`
}

// Manifest builds the manifest of an invocation.
func (inv *Invocation) Manifest() Manifest {
	m := Manifest{
		Entity:     inv.Entity,
		Instance:   inv.Instance,
		Design:     inv.Design,
		Tool:       inv.Tool,
		Variant:    string(inv.Variant),
		WorkDir:    inv.WorkDir,
		Parameters: inv.Parameters,
		Options:    inv.Options,
		Extras:     inv.Extras,
		Probes:     inv.Probes,
		NProc:      inv.NProc,
	}
	add := func(f *iofile.File, control bool) {
		mf := ManifestFile{
			Name:       f.Name,
			Path:       f.Path,
			Direction:  string(f.Dir),
			Kind:       string(f.Kind),
			Type:       string(f.Type),
			Signals:    f.Signals,
			Electrical: f.Electrical,
			Control:    control,
		}
		if !control {
			mf.Sync, mf.Condition = f.Rendered(inv.Variant)
		}
		m.Files = append(m.Files, mf)
	}
	if inv.Control != nil {
		add(inv.Control, true)
	}
	for _, f := range inv.Inputs {
		add(f, false)
	}
	for _, f := range inv.Outputs {
		add(f, false)
	}
	return m
}

// WriteManifest writes the manifest into the work directory and returns its path.
func (inv *Invocation) WriteManifest() (string, error) {
	data, err := yaml.Marshal(inv.Manifest())
	if err != nil {
		return "", fmt.Errorf("marshal manifest: %w", err)
	}
	path := filepath.Join(inv.WorkDir, ManifestName)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write manifest: %w", err)
	}
	return path, nil
}

// ReadManifest parses a manifest file, rejecting unknown fields.
func ReadManifest(path string) (*Manifest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	defer f.Close()

	var m Manifest
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	return &m, nil
}
