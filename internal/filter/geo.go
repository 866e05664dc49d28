// Package filter holds result filters applied to successful annotation responses.
package filter

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/JakeFAU/tika-extractor/internal/annotate"
)

// GeographicNameKey marks a GeoTopic result that resolved at least one location.
const GeographicNameKey = "Geographic_NAME"

// ErrEmptyResult is returned when the response array has no elements.
var ErrEmptyResult = errors.New("empty result array")

// Geo keeps GeoTopic responses whose first metadata object names a location.
type Geo struct{}

var _ annotate.Filter = Geo{}

// Accept parses body as a JSON array of objects and reports whether the first
// object carries GeographicNameKey. Any shape mismatch is an error.
func (Geo) Accept(body string) (bool, error) {
	var results []json.RawMessage
	if err := json.Unmarshal([]byte(body), &results); err != nil {
		return false, fmt.Errorf("decode geo result: %w", err)
	}
	if len(results) == 0 {
		return false, ErrEmptyResult
	}
	var first map[string]json.RawMessage
	if err := json.Unmarshal(results[0], &first); err != nil {
		return false, fmt.Errorf("decode first geo result: %w", err)
	}
	_, ok := first[GeographicNameKey]
	return ok, nil
}
