package service

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sakif/flashdeck/internal/apperror"
	"github.com/sakif/flashdeck/internal/clock"
	"github.com/sakif/flashdeck/internal/model"
	"github.com/sakif/flashdeck/internal/repository"
)

// parsePage validates raw limit/offset query values. Both must be
// non-negative integers when present; the offset only takes effect with a
// limit.
func parsePage(limit, offset string) (repository.Page, error) {
	var p repository.Page

	if limit != "" {
		n, err := parseNonNegative("limit", limit)
		if err != nil {
			return p, err
		}
		p.Limit = &n
	}
	if offset != "" {
		n, err := parseNonNegative("offset", offset)
		if err != nil {
			return p, err
		}
		p.Offset = n
	}
	return p, nil
}

func parseNonNegative(field, raw string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 0 {
		return 0, apperror.ValidationFailed(field, fmt.Sprintf("%s must be a non-negative integer", field))
	}
	return n, nil
}

// ParseCountCategories splits a comma separated card_count value such as
// "all,new,due". Blank entries are skipped, repeats collapse, and an unknown
// name is a validation error.
func ParseCountCategories(raw string) ([]string, error) {
	var (
		out  []string
		seen = map[string]bool{}
	)
	for _, part := range strings.Split(raw, ",") {
		c := strings.ToLower(strings.TrimSpace(part))
		if c == "" || seen[c] {
			continue
		}
		switch c {
		case model.CountAll, model.CountNew, model.CountDue:
		default:
			return nil, apperror.ValidationFailed("card_count",
				fmt.Sprintf("unknown card_count category %q (want all, new or due)", c))
		}
		seen[c] = true
		out = append(out, c)
	}
	return out, nil
}

// parseTimestamp parses an ISO-8601 query or body value for field.
func parseTimestamp(field, raw string) (time.Time, error) {
	t, err := clock.ParseISO(raw)
	if err != nil {
		return time.Time{}, apperror.ValidationFailed(field,
			fmt.Sprintf("field %q must be an ISO-8601 date", field))
	}
	return t, nil
}

// parseJSONInt accepts a JSON integer or a string holding one. null or an
// absent value yields nil.
func parseJSONInt(field string, raw json.RawMessage) (*int, error) {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return nil, nil
	}

	var n int
	if err := json.Unmarshal(raw, &n); err != nil {
		var str string
		if err := json.Unmarshal(raw, &str); err != nil {
			return nil, apperror.ValidationFailed(field, fmt.Sprintf("field %q must be an integer", field))
		}
		if n, err = strconv.Atoi(strings.TrimSpace(str)); err != nil {
			return nil, apperror.ValidationFailed(field, fmt.Sprintf("field %q must be an integer", field))
		}
	}
	return &n, nil
}

// ParseTZUTCDelta reads the tzutcdelta login field. Range checks happen in
// UserService.Authenticate.
func ParseTZUTCDelta(raw json.RawMessage) (*int, error) {
	return parseJSONInt("tzutcdelta", raw)
}

// parseLevel reads knowledge_level. null or an absent value means
// "unchanged".
func parseLevel(raw json.RawMessage) (*int, error) {
	n, err := parseJSONInt("knowledge_level", raw)
	if err != nil || (n != nil && *n < 0) {
		return nil, apperror.ValidationFailed("knowledge_level", `field "knowledge_level" must be a non-negative integer`)
	}
	return n, nil
}
