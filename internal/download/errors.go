package download

import (
	"fmt"
	"strings"
)

// InvalidFormatError reports a requested output format outside the
// accepted set. It is raised before any subprocess is spawned.
type InvalidFormatError struct {
	Format string
	Valid  []string
}

func (e *InvalidFormatError) Error() string {
	return fmt.Sprintf("invalid format: %s. Supported formats are: %s",
		e.Format, strings.Join(e.Valid, ", "))
}

// ExtractionError reports a failed extraction run: the tool exited
// nonzero, or exited cleanly without ever naming a destination file.
// Diagnostic carries the tool's last stderr line, when there was one.
type ExtractionError struct {
	ExitCode   int
	Diagnostic string
}

func (e *ExtractionError) Error() string {
	if e.Diagnostic != "" {
		return fmt.Sprintf("extraction process exited with code %d: %s", e.ExitCode, e.Diagnostic)
	}
	return fmt.Sprintf("extraction process exited with code %d", e.ExitCode)
}
