// Package query turns listing query parameters into store filters.
package query

import (
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
)

// ParamError reports a query parameter or body field that could not be parsed.
type ParamError struct {
	Param string
	Value string
}

func (e *ParamError) Error() string {
	return fmt.Sprintf("invalid value %q for %s", e.Value, e.Param)
}

// dateLayouts are tried in order. Values without a zone are read as UTC.
var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
}

// ParseDate parses a calendar date or an RFC 3339 timestamp.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", s)
}

// ChallengeFilter is the set of optional constraints on a challenge listing.
// Nil or empty fields impose no constraint; set fields are combined with AND.
type ChallengeFilter struct {
	Categories      []string
	MinParticipants *float64
	MaxParticipants *float64
	StartFrom       *time.Time
	StartTo         *time.Time
}

// ParseChallengeFilter reads category, minParticipants, maxParticipants,
// startFrom and startTo from v. Bounds are inclusive.
func ParseChallengeFilter(v url.Values) (ChallengeFilter, error) {
	var f ChallengeFilter

	if raw := v.Get("category"); raw != "" {
		for _, c := range strings.Split(raw, ",") {
			if c = strings.TrimSpace(c); c != "" {
				f.Categories = append(f.Categories, c)
			}
		}
	}

	var err error
	if f.MinParticipants, err = parseNumber(v, "minParticipants"); err != nil {
		return ChallengeFilter{}, err
	}
	if f.MaxParticipants, err = parseNumber(v, "maxParticipants"); err != nil {
		return ChallengeFilter{}, err
	}
	if f.StartFrom, err = parseDateParam(v, "startFrom"); err != nil {
		return ChallengeFilter{}, err
	}
	if f.StartTo, err = parseDateParam(v, "startTo"); err != nil {
		return ChallengeFilter{}, err
	}

	return f, nil
}

func parseNumber(v url.Values, key string) (*float64, error) {
	raw := strings.TrimSpace(v.Get(key))
	if raw == "" {
		return nil, nil
	}
	n, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
		return nil, &ParamError{Param: key, Value: raw}
	}
	return &n, nil
}

func parseDateParam(v url.Values, key string) (*time.Time, error) {
	raw := strings.TrimSpace(v.Get(key))
	if raw == "" {
		return nil, nil
	}
	t, err := ParseDate(raw)
	if err != nil {
		return nil, &ParamError{Param: key, Value: raw}
	}
	return &t, nil
}

// BSON renders the filter as a single find predicate on the challenges collection.
func (f ChallengeFilter) BSON() bson.M {
	filter := bson.M{}

	if len(f.Categories) > 0 {
		filter["category"] = bson.M{"$in": f.Categories}
	}

	if f.MinParticipants != nil || f.MaxParticipants != nil {
		participants := bson.M{}
		if f.MinParticipants != nil {
			participants["$gte"] = *f.MinParticipants
		}
		if f.MaxParticipants != nil {
			participants["$lte"] = *f.MaxParticipants
		}
		filter["participants"] = participants
	}

	if f.StartFrom != nil || f.StartTo != nil {
		startDate := bson.M{}
		if f.StartFrom != nil {
			startDate["$gte"] = *f.StartFrom
		}
		if f.StartTo != nil {
			startDate["$lte"] = *f.StartTo
		}
		filter["startDate"] = startDate
	}

	return filter
}

// UserChallengeFilter narrows enrollments to one owner when UserID is set.
type UserChallengeFilter struct {
	UserID string
}

func ParseUserChallengeFilter(v url.Values) UserChallengeFilter {
	return UserChallengeFilter{UserID: v.Get("userId")}
}

func (f UserChallengeFilter) BSON() bson.M {
	filter := bson.M{}
	if f.UserID != "" {
		filter["userId"] = f.UserID
	}
	return filter
}

// UpcomingEvents matches events dated at or after now.
func UpcomingEvents(now time.Time) bson.M {
	return bson.M{"date": bson.M{"$gte": now}}
}
