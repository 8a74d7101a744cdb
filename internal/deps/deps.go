package deps

import (
	"os/exec"
	"slices"
	"strings"
)

// Requirement names an external binary wildcam shells out to.
type Requirement struct {
	Name        string `json:"name"`
	Command     string `json:"command"`
	Description string `json:"description,omitempty"`
	Optional    bool   `json:"optional,omitempty"`
}

// Status is a Requirement together with the outcome of resolving it on PATH.
type Status struct {
	Requirement
	Path      string `json:"path,omitempty"`
	Available bool   `json:"available"`
	Detail    string `json:"detail,omitempty"`
}

// Missing is true for an unavailable dependency that is not optional.
func (s Status) Missing() bool { return !s.Available && !s.Optional }

// CheckBinaries resolves each requirement with exec.LookPath.
func CheckBinaries(requirements []Requirement) []Status {
	out := make([]Status, len(requirements))
	for i, req := range requirements {
		req.Command = strings.TrimSpace(req.Command)
		req.Description = strings.TrimSpace(req.Description)
		out[i] = resolve(req)
	}
	return out
}

func resolve(req Requirement) Status {
	st := Status{Requirement: req}
	if req.Command == "" {
		st.Detail = "command not configured"
		return st
	}
	path, err := exec.LookPath(req.Command)
	if err != nil {
		st.Detail = "binary " + `"` + req.Command + `"` + " not found"
		return st
	}
	st.Path, st.Available = path, true
	return st
}

// AnyMissing reports whether a required dependency is unavailable.
func AnyMissing(statuses []Status) bool {
	return slices.ContainsFunc(statuses, Status.Missing)
}
