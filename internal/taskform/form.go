package taskform

import (
	"context"
	"fmt"
	"time"

	"github.com/hiroki-koketsu/go-taskboard/internal/model"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("github.com/hiroki-koketsu/go-taskboard/internal/taskform")

// Scenario selects which field rules run.
type Scenario string

const (
	ScenarioAdd  Scenario = "add"
	ScenarioList Scenario = "list"
)

// Input is the raw task request. IDs are kept as received so that
// malformed values can be reported per field.
type Input struct {
	Title            string   `json:"title"`
	Detail           string   `json:"detail"`
	TaskCategoryID   string   `json:"taskCategoryId"`
	WorkerIDs        []string `json:"workerIds"`
	RelatedMemberIDs []string `json:"relatedMemberIds"`
	LimitTime        string   `json:"limitTime"`
}

// Resolved is the cross-referenced form of a valid Input.
type Resolved struct {
	Scenario         Scenario
	Title            string
	Detail           string
	Category         *model.TaskCategory
	WorkerIDs        []int64
	RelatedMemberIDs []int64
	Workers          []model.Worker
	RelatedMembers   []model.Worker
	// LimitTime is in model.LimitTimeLayout.
	LimitTime string
}

// WorkerFinder resolves worker ids. Unknown ids are omitted from the result.
type WorkerFinder interface {
	FindWorkers(ctx context.Context, ids []int64) ([]model.Worker, error)
}

// CategoryFinder resolves a task category with its project. It returns nil, nil
// when the category does not exist.
type CategoryFinder interface {
	FindCategory(ctx context.Context, id int64) (*model.TaskCategory, error)
}

// Lookup is the set of look-ups the form needs.
type Lookup interface {
	WorkerFinder
	CategoryFinder
}

// Clock returns the current instant.
type Clock func() time.Time

// Form validates task inputs against a Lookup.
type Form struct {
	lookup   Lookup
	now      Clock
	location *time.Location
}

// Option configures a Form.
type Option func(*Form)

// WithClock overrides the clock used by the limit time rule.
func WithClock(c Clock) Option {
	return func(f *Form) {
		f.now = c
	}
}

// WithLocation sets the zone limit times without an offset are read in.
func WithLocation(loc *time.Location) Option {
	return func(f *Form) {
		if loc != nil {
			f.location = loc
		}
	}
}

// New creates a Form.
func New(lookup Lookup, opts ...Option) *Form {
	f := &Form{
		lookup:   lookup,
		now:      time.Now,
		location: time.Local,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Validate runs the rules registered for scenario against in. On success it
// returns the resolved state and a nil error. When any rule fails the error is
// ValidationErrors with every failure collected. Any other error comes from the
// look-ups.
func (f *Form) Validate(ctx context.Context, in Input, scenario Scenario) (*Resolved, error) {
	ctx, span := tracer.Start(ctx, "Form.Validate",
		trace.WithAttributes(
			attribute.String("taskform.scenario", string(scenario)),
			attribute.String("taskform.state", StateValidating.String()),
		),
	)
	defer span.End()

	rules, ok := scenarioRules[scenario]
	if !ok {
		err := fmt.Errorf("unknown scenario %q", scenario)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	out := &Resolved{Scenario: scenario}
	var errs ValidationErrors
	failed := make(map[string]bool)

	for _, r := range rules {
		if r.check == nil {
			continue
		}
		if fe := r.check(&in); fe != nil {
			errs = append(errs, *fe)
			failed[r.field] = true
		}
	}

	for _, r := range rules {
		if r.resolve == nil || failed[r.field] {
			continue
		}
		fe, err := r.resolve(f, ctx, &in, out)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "lookup failed")
			return nil, err
		}
		if fe != nil {
			errs = append(errs, *fe)
		}
	}

	span.SetAttributes(attribute.Int("taskform.errors", len(errs)))
	if len(errs) > 0 {
		span.SetAttributes(attribute.String("taskform.state", StateInvalid.String()))
		span.SetStatus(codes.Error, "validation failed")
		return nil, errs
	}

	out.Title = in.Title
	out.Detail = in.Detail
	span.SetAttributes(attribute.String("taskform.state", StateValid.String()))
	return out, nil
}
