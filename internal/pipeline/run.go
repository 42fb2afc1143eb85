package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/SWORDIntel/Z-FORGE/internal/fsatomic"
)

// RunRecord is the journal of one build run, persisted atomically after
// every step transition so an aborted run can be inspected and resumed.
type RunRecord struct {
	ID        string       `json:"id"`
	StartedAt time.Time    `json:"startedAt"`
	Steps     []StepRecord `json:"steps"`
	OK        bool         `json:"ok"`
	Error     string       `json:"error,omitempty"`
}

type StepRecord struct {
	ID         string     `json:"id"`
	Status     string     `json:"status"` // pending|running|ok|error|skipped
	StartedAt  *time.Time `json:"startedAt,omitempty"`
	FinishedAt *time.Time `json:"finishedAt,omitempty"`
	Message    string     `json:"message,omitempty"`
}

// JournalPath returns the journal location inside a workspace.
func JournalPath(workspace string) string {
	return filepath.Join(workspace, "run.json")
}

// Run executes the enabled steps of spec in order, journaling progress. A
// step failure stops the run; completed steps stay recorded. Steps already
// marked ok in resume are skipped.
func Run(ctx context.Context, spec BuildSpec, deps Deps, resume *RunRecord) (*RunRecord, error) {
	rec := &RunRecord{ID: uuid.NewString(), StartedAt: time.Now().UTC()}
	done := map[string]bool{}
	if resume != nil {
		rec.ID = resume.ID
		for _, st := range resume.Steps {
			if st.Status == "ok" {
				done[st.ID] = true
			}
		}
	}

	ids := spec.EnabledIDs()
	steps := make([]Step, 0, len(ids))
	for _, id := range ids {
		step, err := New(id, deps)
		if err != nil {
			return rec, err
		}
		steps = append(steps, step)
		status := "pending"
		if done[id] {
			status = "skipped"
		}
		rec.Steps = append(rec.Steps, StepRecord{ID: id, Status: status})
	}

	journal := JournalPath(spec.Workspace)
	save := func() {
		if err := fsatomic.SaveJSON(journal, rec, 0o644); err != nil {
			deps.Log.Warn().Err(err).Msg("run journal not written")
		}
	}
	save()

	run := &Context{Workspace: spec.Workspace, Plan: deps.Plan}
	for i, step := range steps {
		if rec.Steps[i].Status == "skipped" {
			deps.Log.Info().Str("step", step.ID()).Msg("step already completed, skipping")
			continue
		}
		now := time.Now().UTC()
		rec.Steps[i].Status = "running"
		rec.Steps[i].StartedAt = &now
		save()

		deps.Log.Info().Str("step", step.ID()).Msg("step starting")
		err := step.Execute(ctx, run)
		finished := time.Now().UTC()
		rec.Steps[i].FinishedAt = &finished
		if err != nil {
			rec.Steps[i].Status = "error"
			rec.Steps[i].Message = err.Error()
			rec.Error = fmt.Sprintf("step %s failed", step.ID())
			save()
			return rec, fmt.Errorf("step %s: %w", step.ID(), err)
		}
		rec.Steps[i].Status = "ok"
		save()
	}
	rec.OK = true
	save()
	return rec, nil
}
