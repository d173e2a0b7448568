package workflow

import (
	"fmt"

	"github.com/deploymenttheory/go-api-runner/internal/logger"
)

// Status is the result of executing one step
type Status string

const (
	StatusOK        Status = "ok"
	StatusPassed    Status = "passed"
	StatusFailed    Status = "failed"
	StatusVerified  Status = "verified"
	StatusNoVerdict Status = "no_verdict"
	StatusError     Status = "error"
	StatusSkipped   Status = "skipped"
)

// Outcome describes what happened when a step ran
type Outcome struct {
	Action   string `yaml:"action" json:"action"`
	Resource string `yaml:"resource" json:"resource"`
	Status   Status `yaml:"status" json:"status"`
	Detail   string `yaml:"detail,omitempty" json:"detail,omitempty"`
	Fetched  int    `yaml:"fetched,omitempty" json:"fetched,omitempty"`
	Err      error  `yaml:"-" json:"-"`
}

// StageReport collects the outcomes of one stage in execution order
type StageReport struct {
	Name     string    `yaml:"stage" json:"stage"`
	Outcomes []Outcome `yaml:"outcomes" json:"outcomes"`
}

// Summary counts outcomes by status
type Summary struct {
	Steps     int `yaml:"steps" json:"steps"`
	OK        int `yaml:"ok" json:"ok"`
	Passed    int `yaml:"passed" json:"passed"`
	Failed    int `yaml:"failed" json:"failed"`
	Verified  int `yaml:"verified" json:"verified"`
	NoVerdict int `yaml:"no_verdict" json:"no_verdict"`
	Errors    int `yaml:"errors" json:"errors"`
	Skipped   int `yaml:"skipped" json:"skipped"`
}

// Report is the record of one run
type Report struct {
	Stages []*StageReport `yaml:"stages" json:"stages"`
}

func (r *Report) startStage(name string) *StageReport {
	stage := &StageReport{Name: name}
	r.Stages = append(r.Stages, stage)
	return stage
}

func (s *StageReport) add(outcome Outcome) {
	s.Outcomes = append(s.Outcomes, outcome)
}

// Outcomes returns every outcome of the run in execution order
func (r *Report) Outcomes() []Outcome {
	var all []Outcome
	for _, stage := range r.Stages {
		all = append(all, stage.Outcomes...)
	}
	return all
}

// Summary counts the outcomes of the run
func (r *Report) Summary() Summary {
	var s Summary
	for _, outcome := range r.Outcomes() {
		s.Steps++
		switch outcome.Status {
		case StatusOK:
			s.OK++
		case StatusPassed:
			s.Passed++
		case StatusFailed:
			s.Failed++
		case StatusVerified:
			s.Verified++
		case StatusNoVerdict:
			s.NoVerdict++
		case StatusError:
			s.Errors++
		case StatusSkipped:
			s.Skipped++
		}
	}
	return s
}

// Log writes the summary line for the run
func (r *Report) Log() {
	s := r.Summary()
	logger.LogInfo(fmt.Sprintf("Run finished: %d steps, %d passed, %d failed, %d verified, %d without verdict, %d errors",
		s.Steps, s.Passed, s.Failed, s.Verified, s.NoVerdict, s.Errors), map[string]interface{}{
		"stages":  len(r.Stages),
		"skipped": s.Skipped,
	})
}
