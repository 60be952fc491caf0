// Package testutil provides test helpers shared across packages.
package testutil

// FixedGenerator returns the same instance ID every time.
//
// Two runs with the same ID collide on their work directory, which makes
// FixedGenerator useful for exercising resource errors. For deterministic
// IDs across repeated runs use entity.SequenceGenerator.
//
// Thread-safety: FixedGenerator is stateless and safe for concurrent use.
type FixedGenerator struct {
	id string
}

// NewFixedGenerator creates a generator returning id.
// If id is empty, Generate returns "test-run-default".
func NewFixedGenerator(id string) *FixedGenerator {
	if id == "" {
		id = "test-run-default"
	}
	return &FixedGenerator{id: id}
}

// Generate returns the fixed ID.
//
// Implements entity.IDGenerator.
func (g *FixedGenerator) Generate() string {
	return g.id
}
