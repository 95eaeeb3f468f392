// Package filter evaluates user supplied CEL expressions against study items,
// for example `status == "review" && importance >= 4`.
package filter

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/cel-go/cel"

	"github.com/hrygo/studyhub/store"
)

// ErrInvalidFilter is returned for expressions that do not compile to a boolean.
var ErrInvalidFilter = errors.New("filter: invalid expression")

// MaxExpressionLength bounds user input.
const MaxExpressionLength = 1024

// Variables available to expressions.
var itemVariables = []cel.EnvOption{
	cel.Variable("status", cel.StringType),
	cel.Variable("importance", cel.IntType),
	cel.Variable("difficulty", cel.IntType),
	cel.Variable("interval", cel.IntType),
	cel.Variable("ease", cel.DoubleType),
	cel.Variable("total_reviews", cel.IntType),
	cel.Variable("average_rating", cel.DoubleType),
	cel.Variable("consecutive_correct", cel.IntType),
	cel.Variable("consecutive_failed", cel.IntType),
	cel.Variable("article_id", cel.IntType),
	cel.Variable("notes", cel.StringType),
	cel.Variable("scheduled", cel.BoolType),
	cel.Variable("next_review_ts", cel.IntType),
}

// Filter is a compiled expression. It is safe for concurrent use.
type Filter struct {
	expr    string
	program cel.Program
}

// Compile parses and type-checks expr.
func Compile(expr string) (*Filter, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidFilter)
	}
	if len(expr) > MaxExpressionLength {
		return nil, fmt.Errorf("%w: longer than %d bytes", ErrInvalidFilter, MaxExpressionLength)
	}

	env, err := cel.NewEnv(itemVariables...)
	if err != nil {
		return nil, err
	}
	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFilter, issues.Err())
	}
	if ast.OutputType() != cel.BoolType {
		return nil, fmt.Errorf("%w: result must be bool, got %v", ErrInvalidFilter, ast.OutputType())
	}
	program, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFilter, err)
	}
	return &Filter{expr: expr, program: program}, nil
}

func (f *Filter) String() string {
	return f.expr
}

// Match evaluates the filter for one item.
func (f *Filter) Match(item *store.StudyItem) (bool, error) {
	out, _, err := f.program.Eval(activation(item))
	if err != nil {
		return false, fmt.Errorf("failed to evaluate filter %q: %w", f.expr, err)
	}
	matched, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("filter %q did not return bool", f.expr)
	}
	return matched, nil
}

// Apply returns the items matching the filter, preserving order.
func (f *Filter) Apply(items []*store.StudyItem) ([]*store.StudyItem, error) {
	matched := make([]*store.StudyItem, 0, len(items))
	for _, item := range items {
		ok, err := f.Match(item)
		if err != nil {
			return nil, err
		}
		if ok {
			matched = append(matched, item)
		}
	}
	return matched, nil
}

func activation(item *store.StudyItem) map[string]any {
	var nextReview int64
	if item.NextReviewTs != nil {
		nextReview = *item.NextReviewTs
	}
	return map[string]any{
		"status":              string(item.Status),
		"importance":          int64(item.ImportanceLevel),
		"difficulty":          int64(item.DifficultyLevel),
		"interval":            int64(item.CurrentInterval),
		"ease":                item.EaseFactor,
		"total_reviews":       int64(item.TotalReviews),
		"average_rating":      item.AverageRating,
		"consecutive_correct": int64(item.ConsecutiveCorrect),
		"consecutive_failed":  int64(item.ConsecutiveFailed),
		"article_id":          int64(item.ArticleID),
		"notes":               item.Notes,
		"scheduled":           item.NextReviewTs != nil,
		"next_review_ts":      nextReview,
	}
}
