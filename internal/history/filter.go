package history

import (
	"fmt"
	"strings"

	"github.com/visionqc/visionqc/pkg/models"
)

// All matches every camera or result.
const All = "all"

// Filter narrows the history list. Empty fields behave like All.
type Filter struct {
	// Query matches case-insensitively against the record id or defect type.
	Query  string
	Camera string
	Result string
}

// Match reports whether rec passes every criterion.
func (f Filter) Match(rec models.InspectionRecord) bool {
	if q := strings.ToLower(f.Query); q != "" {
		inID := strings.Contains(strings.ToLower(rec.ID), q)
		inDefect := rec.DefectType != "" && strings.Contains(strings.ToLower(rec.DefectType), q)
		if !inID && !inDefect {
			return false
		}
	}
	if f.Camera != "" && f.Camera != All && rec.Camera != f.Camera {
		return false
	}
	if f.Result != "" && f.Result != All && string(rec.Result) != f.Result {
		return false
	}
	return true
}

// Apply returns the matching records in their original order.
func (f Filter) Apply(records []models.InspectionRecord) []models.InspectionRecord {
	out := make([]models.InspectionRecord, 0, len(records))
	for _, rec := range records {
		if f.Match(rec) {
			out = append(out, rec)
		}
	}
	return out
}

// IsZero reports whether the filter matches everything.
func (f Filter) IsZero() bool {
	return f.Query == "" && (f.Camera == "" || f.Camera == All) && (f.Result == "" || f.Result == All)
}

// ParseResult accepts the displayed verdicts and their English aliases.
func ParseResult(s string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", All:
		return All, nil
	case "pass", "passed", "ok", string(models.ResultPass):
		return string(models.ResultPass), nil
	case "fail", "failed", "ng", string(models.ResultFail):
		return string(models.ResultFail), nil
	default:
		return "", fmt.Errorf("unknown result %q: want all, pass or fail", s)
	}
}

// ParseCamera accepts a station label, a bare station number, or all.
func ParseCamera(s string) (string, error) {
	s = strings.TrimSpace(s)
	switch s {
	case "", All:
		return All, nil
	case "1", "2":
		return StationLabel(int(s[0] - '0')), nil
	case StationLabel(1), StationLabel(2):
		return s, nil
	default:
		return "", fmt.Errorf("unknown camera %q: want all, 1 or 2", s)
	}
}

// CameraChoices lists the camera filter values in cycle order.
func CameraChoices() []string {
	return []string{All, StationLabel(1), StationLabel(2)}
}

// ResultChoices lists the result filter values in cycle order.
func ResultChoices() []string {
	return []string{All, string(models.ResultPass), string(models.ResultFail)}
}
