package runner

import (
	"context"
	"fmt"
	"time"

	"crudgomodule/shared/logging"

	"github.com/bytedance/sonic"
	"github.com/samber/lo"
)

// Step is one named operation of a run script
type Step struct {
	Name string
	Run  func(ctx context.Context) (interface{}, error)
}

// Outcome represents the result of a single step execution
type Outcome struct {
	Name     string        `json:"name"`
	Result   interface{}   `json:"result,omitempty"`
	Err      error         `json:"-"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration"`
}

// Succeeded reports whether the step returned without error
func (o Outcome) Succeeded() bool {
	return o.Err == nil
}

// Report represents a complete script execution
type Report struct {
	Timestamp time.Time `json:"timestamp"`
	Outcomes  []Outcome `json:"outcomes"`
}

// Failures returns the outcomes whose step returned an error
func (r *Report) Failures() []Outcome {
	return lo.Filter(r.Outcomes, func(o Outcome, _ int) bool { return !o.Succeeded() })
}

// Outcome returns the outcome recorded for the named step
func (r *Report) Outcome(name string) (Outcome, bool) {
	return lo.Find(r.Outcomes, func(o Outcome) bool { return o.Name == name })
}

// JSON renders the report
func (r *Report) JSON() ([]byte, error) {
	data, err := sonic.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal run report: %w", err)
	}
	return data, nil
}

// Sequencer executes steps strictly in order. A failing step is logged and
// the remaining steps still run.
type Sequencer struct {
	logger logging.Logger
	now    func() time.Time
}

func NewSequencer(logger logging.Logger) *Sequencer {
	return &Sequencer{logger: logger, now: time.Now}
}

// Run executes every step and returns their outcomes in script order
func (s *Sequencer) Run(ctx context.Context, steps []Step) *Report {
	report := &Report{
		Timestamp: s.now(),
		Outcomes:  make([]Outcome, 0, len(steps)),
	}
	for _, step := range steps {
		report.Outcomes = append(report.Outcomes, s.runStep(ctx, step))
	}

	failed := len(report.Failures())
	s.logger.Infow("Run completed", "steps", len(report.Outcomes), "failed", failed)
	return report
}

func (s *Sequencer) runStep(ctx context.Context, step Step) Outcome {
	log := s.logger.WithField("step", step.Name)
	start := s.now()
	result, err := step.Run(ctx)
	outcome := Outcome{
		Name:     step.Name,
		Result:   result,
		Err:      err,
		Duration: s.now().Sub(start),
	}
	if err != nil {
		outcome.Error = err.Error()
		log.Errorw("Step failed", "error", err)
		return outcome
	}

	if data, mErr := sonic.Marshal(result); mErr == nil {
		log.Infow("Step succeeded", "result", string(data), "duration", outcome.Duration.String())
	} else {
		log.Infow("Step succeeded", "result", fmt.Sprintf("%+v", result), "duration", outcome.Duration.String())
	}
	return outcome
}
