package reconcile

import (
	"time"

	"github.com/cyverse/ckan-migrator/internal/runlog"
)

// Action is what happened to one dataset.
type Action string

const (
	ActionCreated  Action = "created"
	ActionReplaced Action = "replaced"
	ActionCurrent  Action = "current"
	ActionSkipped  Action = "skipped"
	ActionFailed   Action = "failed"
)

// Outcome is the result of reconciling one dataset.
type Outcome struct {
	Index      int
	Path       string
	Title      string
	Action     Action
	FilesAdded int
	Err        error
}

// Report collects the outcomes of a run.
type Report struct {
	RunID    string
	Started  time.Time
	Finished time.Time
	Outcomes []Outcome
}

// Count returns how many datasets ended with action a.
func (r *Report) Count(a Action) int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Action == a {
			n++
		}
	}
	return n
}

// Summary converts the report into its YAML form.
func (r *Report) Summary(cfg runlog.RunConfig) runlog.Summary {
	cfg.RunID = r.RunID
	cfg.Started = r.Started.Format(time.RFC3339)
	if !r.Finished.IsZero() {
		cfg.Finished = r.Finished.Format(time.RFC3339)
	}

	s := runlog.Summary{
		Config:  cfg,
		Totals:  make(map[string]int),
		Results: make([]runlog.Result, 0, len(r.Outcomes)),
	}
	for _, o := range r.Outcomes {
		res := runlog.Result{
			Index:      o.Index,
			Path:       o.Path,
			Title:      o.Title,
			Action:     string(o.Action),
			FilesAdded: o.FilesAdded,
		}
		if o.Err != nil {
			res.Error = o.Err.Error()
		}
		s.Results = append(s.Results, res)
		s.Totals[res.Action]++
	}
	return s
}
