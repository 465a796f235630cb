package deps

import (
	"fmt"
	"os/exec"
	"strings"

	"mediavault/internal/config"
)

// Requirement defines an external binary MediaVault relies on.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of one requirement.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// Requirements returns the external binaries the configured installation
// needs. Only ffprobe is mandatory; the scanner cannot probe without it.
func Requirements(cfg *config.Config) []Requirement {
	binary := "ffprobe"
	if cfg != nil {
		binary = cfg.FFprobeBinary()
	}
	return []Requirement{
		{
			Name:        "ffprobe",
			Command:     binary,
			Description: "Extracts container, stream, and language metadata during scans",
		},
	}
}

// CheckBinaries evaluates the provided requirements and reports availability.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		if cmd == "" {
			status.Available = false
			status.Detail = "command not configured"
			results = append(results, status)
			continue
		}
		if _, err := exec.LookPath(cmd); err != nil {
			status.Available = false
			status.Detail = fmt.Sprintf("binary %q not found", cmd)
			results = append(results, status)
			continue
		}
		status.Available = true
		results = append(results, status)
	}
	return results
}
