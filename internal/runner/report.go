package runner

import (
	"os"
	"time"

	"github.com/goccy/go-yaml"
)

// Report summarizes one refresh run for operators. It is written as YAML
// when the run is invoked with --report.
type Report struct {
	RunID      string    `yaml:"run_id"`
	DryRun     bool      `yaml:"dry_run,omitempty"`
	StartedAt  time.Time `yaml:"started_at"`
	FinishedAt time.Time `yaml:"finished_at"`

	Feeds []string `yaml:"feeds"`

	Rows      int `yaml:"rows"`
	Rejected  int `yaml:"rejected"`
	Updated   int `yaml:"updated"`
	Unchanged int `yaml:"unchanged"`
	Unknown   int `yaml:"unknown"`

	Candidates       int  `yaml:"candidates"`
	CandidatesFailed bool `yaml:"candidates_failed,omitempty"`

	Applied         int      `yaml:"applied"`
	NoOps           int      `yaml:"no_ops"`
	Failed          int      `yaml:"failed"`
	AuditIncomplete []string `yaml:"audit_incomplete,omitempty"`
}

// Write marshals the report as YAML to the given path.
func (r *Report) Write(path string) error {
	data, err := yaml.Marshal(r)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
