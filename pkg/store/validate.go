package store

import (
	"fmt"

	"github.com/getmockd/kbase/pkg/entity"
)

// Warning describes a record whose location reference does not resolve.
type Warning struct {
	Kind      entity.Kind `json:"kind"`
	Name      string      `json:"name"`
	Field     string      `json:"field"`
	Reference string      `json:"reference"`
}

// String renders the warning for logs and API responses.
func (w Warning) String() string {
	switch w.Kind {
	case entity.KindViewpoint:
		return fmt.Sprintf("viewpoint %q: parent location %q is unknown", w.Name, w.Reference)
	case entity.KindObject:
		return fmt.Sprintf("object %q: default location %q is unknown", w.Name, w.Reference)
	default:
		return fmt.Sprintf("%s %q: %s %q is unknown", w.Kind, w.Name, w.Field, w.Reference)
	}
}

// ValidateReferences checks the viewpoints and objects of a batch against a
// set of known location names. It has no side effects.
func ValidateReferences(batch entity.Batch, known func(name string) bool) []Warning {
	var warnings []Warning
	for _, v := range batch.Viewpoints {
		if !known(v.Parent) {
			warnings = append(warnings, Warning{
				Kind:      entity.KindViewpoint,
				Name:      v.Name,
				Field:     "parent",
				Reference: v.Parent,
			})
		}
	}
	for _, o := range batch.Objects {
		if !known(o.DefaultLoc) {
			warnings = append(warnings, Warning{
				Kind:      entity.KindObject,
				Name:      o.Name,
				Field:     "default_loc",
				Reference: o.DefaultLoc,
			})
		}
	}
	return warnings
}

// Strings renders a list of warnings.
func Strings(warnings []Warning) []string {
	if len(warnings) == 0 {
		return nil
	}
	out := make([]string, len(warnings))
	for i, w := range warnings {
		out[i] = w.String()
	}
	return out
}
