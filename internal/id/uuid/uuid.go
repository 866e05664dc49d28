// Package uuid generates the run identifiers attached to extractor logs.
package uuid

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/JakeFAU/tika-extractor/internal/annotate"
)

// Generator creates UUID v7 strings.
type Generator struct{}

var _ annotate.IDGenerator = Generator{}

// New creates a new Generator.
func New() Generator {
	return Generator{}
}

// NewID returns a UUID7 string. UUID7 values sort by creation time, so run
// IDs order the same way runs do.
func (Generator) NewID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate uuid7: %w", err)
	}
	return id.String(), nil
}
