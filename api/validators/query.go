package validators

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	pkgerrors "github.com/angelmondragon/auditmagic/pkg/errors"
)

func ParseQueryInt(r *http.Request, key string, defaultVal, min, max int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return defaultVal, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "query parameter must be numeric").WithDetails(map[string]any{"field": key})
	}
	if value < min || value > max {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "query parameter out of range").WithDetails(map[string]any{"field": key, "min": min, "max": max})
	}
	return value, nil
}

// ParseQueryIDs reads positive ids from repeated or comma separated values,
// e.g. ?type_id=1&type_id=2 or ?type_id=1,2.
func ParseQueryIDs(r *http.Request, key string) ([]int64, error) {
	var ids []int64
	for _, raw := range r.URL.Query()[key] {
		for _, part := range strings.Split(raw, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			id, err := strconv.ParseInt(part, 10, 64)
			if err != nil || id <= 0 {
				return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid id %q", part).WithDetails(map[string]any{"field": key})
			}
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// ParseQueryTime reads a time bound from the query string. See ParseTimeBound.
func ParseQueryTime(r *http.Request, key string, endOfDay bool) (time.Time, error) {
	return ParseTimeBound(key, r.URL.Query().Get(key), endOfDay)
}

// ParseTimeBound accepts RFC3339 timestamps or plain dates. A plain date used
// as an upper bound covers the whole day. Blank input is the zero time.
func ParseTimeBound(key, raw string, endOfDay bool) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	if ts, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return ts.UTC(), nil
	}
	day, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return time.Time{}, pkgerrors.New(pkgerrors.CodeValidation, "value must be a date or RFC3339 timestamp").WithDetails(map[string]any{"field": key})
	}
	if endOfDay {
		return day.Add(24*time.Hour - time.Nanosecond), nil
	}
	return day, nil
}

// PathID parses a positive integer route parameter.
func PathID(r *http.Request, key string) (int64, error) {
	raw := chi.URLParam(r, key)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid %s", key).WithDetails(map[string]any{"field": key, "value": raw})
	}
	return id, nil
}
