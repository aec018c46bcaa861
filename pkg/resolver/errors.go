package resolver

import (
	"fmt"
	"strings"
)

// ImportNotFoundError is returned when a document or one of its base
// fragments does not exist.
type ImportNotFoundError struct {
	Path string
	From string
}

func (e *ImportNotFoundError) Error() string {
	if e.From == "" {
		return fmt.Sprintf("document not found: %s", e.Path)
	}
	return fmt.Sprintf("import not found: %s (imported from %s)", e.Path, e.From)
}

type ImportCycleError struct {
	Chain []string
}

func (e *ImportCycleError) Error() string {
	return fmt.Sprintf("import cycle: %s", strings.Join(e.Chain, " -> "))
}
