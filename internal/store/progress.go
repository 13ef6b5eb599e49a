package store

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"
)

// Step is one stage of an influencer campaign
type Step string

const (
	StepDataCollection   Step = "data_collection"
	StepDataAnalysis     Step = "data_analysis"
	StepBrandMatching    Step = "brand_matching"
	StepOutreach         Step = "outreach"
	StepCampaignTracking Step = "campaign_tracking"
)

// Steps lists every step in campaign order
var Steps = []Step{
	StepDataCollection,
	StepDataAnalysis,
	StepBrandMatching,
	StepOutreach,
	StepCampaignTracking,
}

// Status of a step
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
)

const progressFile = "project_progress.json"

// Progress tracks campaign steps in <data>/project_progress.json
type Progress struct {
	Steps     map[Step]Status `json:"steps"`
	UpdatedAt time.Time       `json:"updated_at"`

	path string
}

// LoadProgress reads the progress file in dir, starting every step as pending
// when the file does not exist yet.
func LoadProgress(dir string) (*Progress, error) {
	p := &Progress{
		Steps: make(map[Step]Status, len(Steps)),
		path:  filepath.Join(dir, progressFile),
	}
	for _, s := range Steps {
		p.Steps[s] = StatusPending
	}

	var saved Progress
	err := readJSON(p.path, &saved)
	if errors.Is(err, ErrNoData) {
		return p, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load progress: %w", err)
	}
	for s, st := range saved.Steps {
		if validStep(s) && validStatus(st) {
			p.Steps[s] = st
		}
	}
	p.UpdatedAt = saved.UpdatedAt
	return p, nil
}

// SetStatus updates a step and persists the file
func (p *Progress) SetStatus(step Step, status Status) error {
	if !validStep(step) {
		return fmt.Errorf("unknown step %q", step)
	}
	if !validStatus(status) {
		return fmt.Errorf("unknown status %q", status)
	}
	p.Steps[step] = status
	p.UpdatedAt = time.Now()
	return writeJSONAtomic(p.path, p)
}

// Status returns the current status of step
func (p *Progress) Status(step Step) Status {
	if st, ok := p.Steps[step]; ok {
		return st
	}
	return StatusPending
}

func validStep(s Step) bool {
	for _, known := range Steps {
		if s == known {
			return true
		}
	}
	return false
}

func validStatus(s Status) bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}
