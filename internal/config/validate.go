package config

import (
	"errors"
	"fmt"
)

var dewarPositions = map[string]bool{"supine": true, "upright": true}

// Validate reports every unusable setting at once.
func (c *Config) Validate() error {
	var problems []error
	if c.Paths.StateDir == "" {
		problems = append(problems, errors.New("paths.state_dir must be set"))
	}
	if c.Paths.LogDir == "" {
		problems = append(problems, errors.New("paths.log_dir must be set"))
	}
	if c.Association.MaxMarkers < 1 {
		problems = append(problems, fmt.Errorf("association.max_markers must be at least 1, got %d", c.Association.MaxMarkers))
	}
	if !dewarPositions[c.Project.DewarPosition] {
		problems = append(problems, fmt.Errorf("project.dewar_position must be supine or upright, got %q", c.Project.DewarPosition))
	}
	return errors.Join(problems...)
}
