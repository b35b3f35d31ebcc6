// Package report aggregates assessed units into portfolio metrics.
package report

import (
	"fmt"
	"slices"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/receivables/internal/lifecycle"
	"github.com/MrJamesThe3rd/receivables/internal/unit"
)

// AgingBucket groups unfinished plans by days late. MaxDays is -1 for the open-ended bucket.
type AgingBucket struct {
	Label   string
	MinDays int
	MaxDays int
	Units   int
	Arrears int64
	Balance int64
}

// ProjectSummary is the per-project slice of a Summary.
type ProjectSummary struct {
	Project   string
	Units     int
	Sold      int
	Aging     int
	Arrears   int64
	Collected int64
}

// Summary is a portfolio snapshot at a reference date. Amounts are in centavos.
type Summary struct {
	TotalUnits     int
	Sold           int
	Unsold         int
	ByStatus       map[lifecycle.Status]int
	TotalArrears   int64
	ContractValue  int64
	Collected      int64
	DueToDate      int64
	Outstanding    int64
	CollectionRate decimal.Decimal
	Aging          []AgingBucket
	Projects       []ProjectSummary
}

// Buckets returns the empty aging buckets for a policy: current, 1 to at-risk,
// at-risk to overdue, overdue to critical, critical and beyond.
func Buckets(p lifecycle.Policy) []AgingBucket {
	return []AgingBucket{
		{Label: "current", MinDays: 0, MaxDays: 0},
		{Label: fmt.Sprintf("1-%d", p.AtRiskDays-1), MinDays: 1, MaxDays: p.AtRiskDays - 1},
		{Label: fmt.Sprintf("%d-%d", p.AtRiskDays, p.OverdueDays-1), MinDays: p.AtRiskDays, MaxDays: p.OverdueDays - 1},
		{Label: fmt.Sprintf("%d-%d", p.OverdueDays, p.CriticalDays-1), MinDays: p.OverdueDays, MaxDays: p.CriticalDays - 1},
		{Label: fmt.Sprintf("%d+", p.CriticalDays), MinDays: p.CriticalDays, MaxDays: -1},
	}
}

func (b AgingBucket) contains(daysLate int) bool {
	return daysLate >= b.MinDays && (b.MaxDays < 0 || daysLate <= b.MaxDays)
}

// Summarize computes the portfolio metrics of already assessed units.
func Summarize(units []unit.Assessed, p lifecycle.Policy) Summary {
	s := Summary{
		TotalUnits: len(units),
		ByStatus:   make(map[lifecycle.Status]int, len(lifecycle.Statuses)),
		Aging:      Buckets(p),
	}

	for _, st := range lifecycle.Statuses {
		s.ByStatus[st] = 0
	}

	projects := make(map[string]*ProjectSummary)

	for _, u := range units {
		a := u.Assessment
		s.ByStatus[a.Status]++

		key := strings.TrimSpace(u.Project)

		ps, ok := projects[key]
		if !ok {
			ps = &ProjectSummary{Project: key}
			projects[key] = ps
		}

		ps.Units++

		if u.Buyer == nil {
			s.Unsold++
			continue
		}

		s.Sold++
		ps.Sold++
		s.ContractValue += u.SellingPrice

		if u.PaymentTerms == nil {
			continue
		}

		s.Collected += a.AmountPaid
		s.TotalArrears += a.Arrears
		s.Outstanding += a.Balance
		ps.Collected += a.AmountPaid
		ps.Arrears += a.Arrears

		if a.Status.IsAging() {
			ps.Aging++
		}

		if a.Status == lifecycle.StatusFullyPaid {
			continue
		}

		for i := range s.Aging {
			if s.Aging[i].contains(a.DaysLate) {
				s.Aging[i].Units++
				s.Aging[i].Arrears += a.Arrears
				s.Aging[i].Balance += a.Balance

				break
			}
		}
	}

	s.DueToDate = s.Collected + s.TotalArrears
	s.CollectionRate = CollectionRate(s.Collected, s.DueToDate)

	s.Projects = make([]ProjectSummary, 0, len(projects))
	for _, ps := range projects {
		s.Projects = append(s.Projects, *ps)
	}

	slices.SortFunc(s.Projects, func(a, b ProjectSummary) int {
		return strings.Compare(a.Project, b.Project)
	})

	return s
}

var hundred = decimal.NewFromInt(100)

// CollectionRate returns collected/due as a percentage with two places. With
// nothing due yet the portfolio is fully collected.
func CollectionRate(collected, due int64) decimal.Decimal {
	if due <= 0 {
		return hundred
	}

	return decimal.NewFromInt(collected).
		Mul(hundred).
		Div(decimal.NewFromInt(due)).
		Round(2)
}
