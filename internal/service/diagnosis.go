package service

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/iliyamo/ubs-backend/internal/model"
)

// Validation codes reported in model.FieldError.Code.
const (
	CodeRequired  = "required"
	CodeRange     = "range"
	CodeDateLogic = "date_logic"
)

// ValidateForSubmit lists every reason the diagnosis cannot be submitted
// yet.  An empty result means it can.  territory and needs may be nil when
// they were never filled in.
func ValidateForSubmit(u model.UBS, territory *model.TerritoryProfile, needs *model.UBSNeeds) []model.FieldError {
	var errs []model.FieldError
	add := func(field, msg, code string) {
		errs = append(errs, model.FieldError{Field: field, Message: msg, Code: code})
	}

	if strings.TrimSpace(u.Name) == "" {
		add("name", "unit name is required", CodeRequired)
	}
	if strings.TrimSpace(u.CNES) == "" {
		add("cnes", "CNES is required", CodeRequired)
	}
	if strings.TrimSpace(u.CoverageArea) == "" {
		add("coverage_area", "coverage area is required", CodeRequired)
	}

	counts := []struct {
		field string
		v     *int
	}{
		{"active_residents", u.ActiveResidents},
		{"microareas", u.Microareas},
		{"registered_families", u.RegisteredFamilies},
		{"households", u.Households},
	}
	for _, c := range counts {
		switch {
		case c.v == nil:
			add(c.field, "numeric field is required for submission", CodeRequired)
		case *c.v < 0:
			add(c.field, "value must not be negative", CodeRange)
		}
	}

	if territory == nil || strings.TrimSpace(territory.Description) == "" {
		add("territory.description", "territory description is required", CodeRequired)
	}
	if needs == nil || strings.TrimSpace(needs.IdentifiedProblems) == "" {
		add("needs.identified_problems", "identified problems are required", CodeRequired)
	}

	if u.InauguratedOn != nil && u.LastRenovatedOn != nil && u.LastRenovatedOn.Before(*u.InauguratedOn) {
		add("last_renovated_on", "last renovation cannot be before the inauguration date", CodeDateLogic)
	}
	return errs
}

// SortProblems orders by GUT score, highest first, then by id.
func SortProblems(ps []model.Problem) {
	sort.SliceStable(ps, func(i, j int) bool {
		if ps[i].Score != ps[j].Score {
			return ps[i].Score > ps[j].Score
		}
		return ps[i].ID < ps[j].ID
	})
}

// TerritoryKPIs derives the team indicators from microarea aggregates.
// Coverage is the share of covered microareas, in percent with one decimal,
// and zero when there are none.
func TerritoryKPIs(population, families, total, uncovered int) model.TerritoryKPIs {
	k := model.TerritoryKPIs{
		Population: population,
		Families:   families,
		Microareas: total,
		Uncovered:  uncovered,
	}
	if total > 0 {
		covered := total - uncovered
		k.CoveragePercent = math.Round(float64(covered)/float64(total)*1000) / 10
	}
	return k
}

// NormalizeAllDay stretches an all-day entry over whole days: start moves
// to 00:00:00 of its day and end to 23:59:59 of the end day, or of the
// start day when there is no end.
func NormalizeAllDay(start time.Time, end *time.Time) (time.Time, *time.Time) {
	y, m, d := start.Date()
	s := time.Date(y, m, d, 0, 0, 0, 0, start.Location())
	last := s
	if end != nil {
		last = *end
	}
	y, m, d = last.Date()
	e := time.Date(y, m, d, 23, 59, 59, 0, last.Location())
	return s, &e
}
