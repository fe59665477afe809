package deps

import (
	"fmt"
	"os"
	"strings"
)

// CheckFile reports whether a required data file, such as model weights,
// exists and is a regular file.
func CheckFile(name, path, description string) Status {
	result := Status{
		Name:        name,
		Command:     strings.TrimSpace(path),
		Description: description,
	}
	if result.Command == "" {
		result.Detail = "path not configured"
		return result
	}
	info, err := os.Stat(result.Command)
	switch {
	case err != nil:
		result.Detail = fmt.Sprintf("file %q not found", result.Command)
	case info.IsDir():
		result.Detail = fmt.Sprintf("%q is a directory", result.Command)
	case info.Size() == 0:
		result.Detail = fmt.Sprintf("%q is empty", result.Command)
	default:
		result.Available = true
	}
	return result
}
