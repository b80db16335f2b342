package taskform

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/hiroki-koketsu/go-taskboard/internal/model"
)

// Field names as they appear in requests and error sets.
const (
	FieldTitle            = "title"
	FieldDetail           = "detail"
	FieldTaskCategoryID   = "taskCategoryId"
	FieldWorkerIDs        = "workerIds"
	FieldRelatedMemberIDs = "relatedMemberIds"
	FieldLimitTime        = "limitTime"
)

const (
	msgInvalidWorker        = "invalid worker ID"
	msgInvalidRelatedMember = "invalid related member ID"
	msgInvalidCategory      = "invalid task category"
	msgLimitTimeNotFuture   = "limit time must be in the future"
)

// rule is one field's validation. check is the structural phase, resolve the
// cross-reference phase. resolve is skipped when check failed for the same field.
type rule struct {
	field   string
	check   func(in *Input) *FieldError
	resolve func(f *Form, ctx context.Context, in *Input, out *Resolved) (*FieldError, error)
}

var (
	titleRule = rule{
		field: FieldTitle,
		check: structural(FieldTitle, "required,min=4,max=30", func(in *Input) any { return in.Title },
			"title must be between 4 and 30 characters"),
	}
	detailRule = rule{
		field: FieldDetail,
		check: structural(FieldDetail, "omitempty,min=4,max=65535", func(in *Input) any { return in.Detail },
			"detail must be between 4 and 65535 characters"),
	}
	categoryRule = rule{
		field:   FieldTaskCategoryID,
		check:   structural(FieldTaskCategoryID, "required,integer", func(in *Input) any { return in.TaskCategoryID }, ""),
		resolve: (*Form).resolveCategory,
	}
	workerIDsRule = rule{
		field: FieldWorkerIDs,
		check: structural(FieldWorkerIDs, "omitempty,dive,integer", func(in *Input) any { return in.WorkerIDs }, ""),
		resolve: resolveMembers(FieldWorkerIDs, true, msgInvalidWorker, func(in *Input) []string { return in.WorkerIDs },
			func(out *Resolved, ids []int64, workers []model.Worker) {
				out.WorkerIDs = ids
				out.Workers = workers
			}),
	}
	relatedMemberIDsRule = rule{
		field: FieldRelatedMemberIDs,
		check: structural(FieldRelatedMemberIDs, "omitempty,dive,integer", func(in *Input) any { return in.RelatedMemberIDs }, ""),
		resolve: resolveMembers(FieldRelatedMemberIDs, false, msgInvalidRelatedMember, func(in *Input) []string { return in.RelatedMemberIDs },
			func(out *Resolved, ids []int64, workers []model.Worker) {
				out.RelatedMemberIDs = ids
				out.RelatedMembers = workers
			}),
	}
	limitTimeRule = rule{
		field:   FieldLimitTime,
		check:   structural(FieldLimitTime, "required", func(in *Input) any { return in.LimitTime }, ""),
		resolve: (*Form).resolveLimitTime,
	}
)

// scenarioRules lists the active rules of each scenario in evaluation order.
var scenarioRules = map[Scenario][]rule{
	ScenarioAdd: {
		titleRule,
		detailRule,
		categoryRule,
		workerIDsRule,
		relatedMemberIDsRule,
		limitTimeRule,
	},
	ScenarioList: {
		categoryRule,
	},
}

var validate *validator.Validate

func init() {
	validate = validator.New()
	if err := validate.RegisterValidation("integer", isInteger); err != nil {
		panic(err)
	}
}

func isInteger(fl validator.FieldLevel) bool {
	_, err := parseID(fl.Field().String())
	return err == nil
}

func parseID(s string) (int64, error) {
	return strconv.ParseInt(strings.TrimSpace(s), 10, 64)
}

func parseIDs(raw []string) ([]int64, error) {
	ids := make([]int64, 0, len(raw))
	for _, s := range raw {
		id, err := parseID(s)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// structural builds a check running the validator tag against one field.
// lengthMsg, when set, replaces the message of min and max failures.
func structural(field, tag string, value func(in *Input) any, lengthMsg string) func(in *Input) *FieldError {
	return func(in *Input) *FieldError {
		err := validate.Var(value(in), tag)
		if err == nil {
			return nil
		}
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) || len(verrs) == 0 {
			return &FieldError{Field: field, Kind: KindStructural, Message: fmt.Sprintf("%s is invalid", field)}
		}
		return &FieldError{Field: field, Kind: KindStructural, Message: message(field, verrs[0], lengthMsg)}
	}
}

func message(field string, e validator.FieldError, lengthMsg string) string {
	switch e.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min", "max":
		if lengthMsg != "" {
			return lengthMsg
		}
		return fmt.Sprintf("%s length is out of range", field)
	case "integer":
		if strings.HasSuffix(field, "Ids") {
			return fmt.Sprintf("%s must contain only integers", field)
		}
		return fmt.Sprintf("%s must be an integer", field)
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}

func (f *Form) resolveCategory(ctx context.Context, in *Input, out *Resolved) (*FieldError, error) {
	id, err := parseID(in.TaskCategoryID)
	if err != nil {
		return &FieldError{Field: FieldTaskCategoryID, Kind: KindStructural, Message: msgInvalidCategory}, nil
	}
	category, err := f.lookup.FindCategory(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to find task category: %w", err)
	}
	if category == nil {
		return &FieldError{Field: FieldTaskCategoryID, Kind: KindReference, Message: msgInvalidCategory}, nil
	}
	out.Category = category
	return nil, nil
}

// resolveMembers looks up a list of worker ids. Any non-empty match set is
// accepted and only the matched workers are kept, so ids that do not exist are
// dropped silently as long as one of them resolves. An empty list is an error
// only when required is set.
func resolveMembers(
	field string,
	required bool,
	invalidMsg string,
	raw func(in *Input) []string,
	assign func(out *Resolved, ids []int64, workers []model.Worker),
) func(f *Form, ctx context.Context, in *Input, out *Resolved) (*FieldError, error) {
	return func(f *Form, ctx context.Context, in *Input, out *Resolved) (*FieldError, error) {
		values := raw(in)
		if len(values) == 0 {
			if required {
				return &FieldError{Field: field, Kind: KindReference, Message: invalidMsg}, nil
			}
			return nil, nil
		}
		ids, err := parseIDs(values)
		if err != nil {
			return &FieldError{Field: field, Kind: KindStructural, Message: fmt.Sprintf("%s must contain only integers", field)}, nil
		}
		workers, err := f.lookup.FindWorkers(ctx, ids)
		if err != nil {
			return nil, fmt.Errorf("failed to find %s: %w", field, err)
		}
		if len(workers) == 0 {
			return &FieldError{Field: field, Kind: KindReference, Message: invalidMsg}, nil
		}
		assign(out, ids, workers)
		return nil, nil
	}
}

func (f *Form) resolveLimitTime(_ context.Context, in *Input, out *Resolved) (*FieldError, error) {
	now := f.now()
	t := parseLimitTime(in.LimitTime, now, f.location)
	if !t.Truncate(limitTimePrecision).After(now) {
		return &FieldError{Field: FieldLimitTime, Kind: KindTemporal, Message: msgLimitTimeNotFuture}, nil
	}
	out.LimitTime = t.In(f.location).Format(model.LimitTimeLayout)
	return nil, nil
}
