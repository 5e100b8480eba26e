package batch

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"
)

// Result status values
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// DefaultConcurrency bounds in-flight operations per batch.
const DefaultConcurrency = 4

// Result represents the result of a single operation in a batch
type Result struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Result string `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}

// BatchResult represents the aggregated results of a batch operation
type BatchResult struct {
	Total      int      `json:"total"`
	Successful int      `json:"successful"`
	Failed     int      `json:"failed"`
	Results    []Result `json:"results"`
}

// ParseIDs parses a parameter that can be a single id or an array of ids.
// Ids may be strings or JSON numbers. Some clients send arrays as a JSON
// encoded string, which is unwrapped when it parses.
func ParseIDs(param any, paramName string) ([]string, error) {
	if param == nil {
		return nil, fmt.Errorf("%s is required", paramName)
	}

	if s, ok := param.(string); ok && strings.HasPrefix(strings.TrimSpace(s), "[") {
		var arr []any
		if err := json.Unmarshal([]byte(s), &arr); err == nil {
			param = arr
		}
	}

	switch v := param.(type) {
	case []any:
		if len(v) == 0 {
			return nil, fmt.Errorf("%s cannot be empty", paramName)
		}
		out := make([]string, 0, len(v))
		for i, item := range v {
			id, err := parseID(item)
			if err != nil {
				return nil, fmt.Errorf("%s[%d] %w", paramName, i, err)
			}
			out = append(out, id)
		}
		return out, nil
	default:
		id, err := parseID(v)
		if err != nil {
			return nil, fmt.Errorf("%s %w", paramName, err)
		}
		return []string{id}, nil
	}
}

func parseID(v any) (string, error) {
	switch id := v.(type) {
	case string:
		if id == "" {
			return "", fmt.Errorf("cannot be empty")
		}
		return id, nil
	case float64:
		if id != float64(int64(id)) {
			return "", fmt.Errorf("must be an integer, got %v", id)
		}
		return strconv.FormatInt(int64(id), 10), nil
	default:
		return "", fmt.Errorf("must be a string, number or array of those")
	}
}

// Summarize aggregates results.
func Summarize(results []Result) BatchResult {
	br := BatchResult{
		Total:   len(results),
		Results: results,
	}
	for _, r := range results {
		if r.Status == StatusSuccess {
			br.Successful++
		} else {
			br.Failed++
		}
	}
	return br
}

// FormatResults creates a formatted JSON string from batch results
func FormatResults(results []Result) string {
	jsonBytes, _ := json.MarshalIndent(Summarize(results), "", "  ")
	return string(jsonBytes)
}

// Process runs fn for each id with at most limit calls in flight and
// returns one result per id in input order. A failing id does not stop the
// others. limit <= 0 means DefaultConcurrency.
func Process(ctx context.Context, ids []string, limit int, fn func(ctx context.Context, id string) (string, error)) []Result {
	if limit <= 0 {
		limit = DefaultConcurrency
	}

	results := make([]Result, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i, id := range ids {
		g.Go(func() error {
			res, err := fn(gctx, id)
			if err != nil {
				results[i] = NewErrorResult(id, err)
			} else {
				results[i] = NewSuccessResult(id, res)
			}
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// NewSuccessResult creates a success result
func NewSuccessResult(id, message string) Result {
	return Result{
		ID:     id,
		Status: StatusSuccess,
		Result: message,
	}
}

// NewErrorResult creates an error result
func NewErrorResult(id string, err error) Result {
	return Result{
		ID:     id,
		Status: StatusError,
		Error:  err.Error(),
	}
}
