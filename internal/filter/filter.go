// Package filter implements the selectable capture filters and the fixed
// order in which a user cycles through them.
package filter

import (
	"fmt"
	"strings"
)

// ID selects one filter. It carries no parameters.
type ID int

const (
	None ID = iota
	Difference
	ResolutionBoost
	Enhance
	Blur
	Outlines
	Laplacian
	Unsharp

	count
)

var names = [count]string{
	None:            "NONE",
	Difference:      "DIFFERENCE",
	ResolutionBoost: "RESOLUTION_BOOST",
	Enhance:         "ENHANCE",
	Blur:            "BLUR",
	Outlines:        "OUTLINES",
	Laplacian:       "LAPLACIAN",
	Unsharp:         "UNSHARP",
}

// aliases accepted by Parse in addition to the canonical names.
var aliases = map[string]ID{
	"RES":     ResolutionBoost,
	"DEFAULT": None,
}

// Count is the number of filters in the cycle.
const Count = int(count)

// String returns the display name.
func (id ID) String() string {
	if !id.Valid() {
		return fmt.Sprintf("ID(%d)", int(id))
	}
	return names[id]
}

// Valid reports whether id names a known filter.
func (id ID) Valid() bool {
	return id >= None && id < count
}

// Next returns the successor in the cycle; UNSHARP wraps to NONE.
func (id ID) Next() ID {
	if !id.Valid() {
		return None
	}
	return (id + 1) % count
}

// All returns every filter in cycle order, starting at NONE.
func All() []ID {
	ids := make([]ID, Count)
	for i := range ids {
		ids[i] = ID(i)
	}
	return ids
}

// Parse resolves a display name (case-insensitive) to an ID.
func Parse(name string) (ID, error) {
	n := strings.ToUpper(strings.TrimSpace(name))
	for i, candidate := range names {
		if candidate == n {
			return ID(i), nil
		}
	}
	if id, ok := aliases[n]; ok {
		return id, nil
	}
	return None, fmt.Errorf("unknown filter %q", name)
}

// MarshalText implements encoding.TextMarshaler so IDs serialize by name.
func (id ID) MarshalText() ([]byte, error) {
	if !id.Valid() {
		return nil, fmt.Errorf("invalid filter id %d", int(id))
	}
	return []byte(id.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *ID) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
