package lifecycle

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Status is the display label of a unit in its sales and payment lifecycle.
type Status string

const (
	StatusAvailable       Status = "Available"
	StatusReserved        Status = "Reserved"
	StatusMoveInScheduled Status = "Move-in Scheduled"
	StatusMoveInConfirmed Status = "Move-in Confirmed"
	StatusInPaymentCycle  Status = "In Payment Cycle"
	StatusAtRisk          Status = "At Risk"
	StatusOverdue         Status = "Overdue"
	StatusCritical        Status = "Critical"
	StatusFullyPaid       Status = "Fully Paid"
)

// Statuses lists every status in lifecycle order.
var Statuses = []Status{
	StatusAvailable,
	StatusReserved,
	StatusMoveInScheduled,
	StatusMoveInConfirmed,
	StatusInPaymentCycle,
	StatusAtRisk,
	StatusOverdue,
	StatusCritical,
	StatusFullyPaid,
}

// IsPreSale reports whether s describes a unit that has no payment plan yet.
func (s Status) IsPreSale() bool {
	switch s {
	case StatusAvailable, StatusReserved, StatusMoveInScheduled, StatusMoveInConfirmed:
		return true
	}

	return false
}

// IsAging reports whether s is one of the delinquency buckets.
func (s Status) IsAging() bool {
	return s == StatusAtRisk || s == StatusOverdue || s == StatusCritical
}

// Schedule is the installment plan of a financed unit.
type Schedule struct {
	TotalMonths   int
	MonthsPaid    int
	MonthlyAmount int64
	NextDueDate   time.Time
}

// Policy holds the aging thresholds, in days late.
type Policy struct {
	CycleDays    int
	AtRiskDays   int
	OverdueDays  int
	CriticalDays int
}

const (
	DefaultCycleDays    = 30
	DefaultAtRiskDays   = 45
	DefaultOverdueDays  = 75
	DefaultCriticalDays = 120
)

var ErrInvalidPolicy = errors.New("invalid aging policy")

func DefaultPolicy() Policy {
	return Policy{
		CycleDays:    DefaultCycleDays,
		AtRiskDays:   DefaultAtRiskDays,
		OverdueDays:  DefaultOverdueDays,
		CriticalDays: DefaultCriticalDays,
	}
}

// Validate checks that the cycle is positive and the thresholds strictly ascend.
func (p Policy) Validate() error {
	if p.CycleDays <= 0 {
		return fmt.Errorf("%w: cycle days must be positive, got %d", ErrInvalidPolicy, p.CycleDays)
	}

	if p.AtRiskDays <= 0 || p.AtRiskDays >= p.OverdueDays || p.OverdueDays >= p.CriticalDays {
		return fmt.Errorf("%w: thresholds must ascend (at risk %d, overdue %d, critical %d)",
			ErrInvalidPolicy, p.AtRiskDays, p.OverdueDays, p.CriticalDays)
	}

	return nil
}

// Assessment is the derived aging picture of a unit at a reference date.
type Assessment struct {
	Status          Status
	DaysLate        int
	MonthsMissed    int
	MonthsRemaining int
	Arrears         int64
	AmountPaid      int64
	Balance         int64
	PercentPaid     decimal.Decimal
}

// Bucket maps a days-late figure of an unfinished plan to its status.
func (p Policy) Bucket(daysLate int) Status {
	switch {
	case daysLate >= p.CriticalDays:
		return StatusCritical
	case daysLate >= p.OverdueDays:
		return StatusOverdue
	case daysLate >= p.AtRiskDays:
		return StatusAtRisk
	default:
		return StatusInPaymentCycle
	}
}

// Assess classifies a unit. A nil schedule never enters an aging bucket: the
// pre-sale stage is returned as the status.
func (p Policy) Assess(stage Status, s *Schedule, now time.Time) Assessment {
	if s == nil {
		if !stage.IsPreSale() {
			stage = StatusAvailable
		}

		return Assessment{Status: stage, PercentPaid: decimal.Zero}
	}

	paid := min(max(s.MonthsPaid, 0), max(s.TotalMonths, 0))
	remaining := max(s.TotalMonths, 0) - paid

	a := Assessment{
		MonthsRemaining: remaining,
		AmountPaid:      int64(paid) * s.MonthlyAmount,
		Balance:         int64(remaining) * s.MonthlyAmount,
		PercentPaid:     PercentPaid(paid, s.TotalMonths),
	}

	if remaining == 0 {
		a.Status = StatusFullyPaid
		return a
	}

	a.DaysLate = DaysLate(s.NextDueDate, now)
	a.MonthsMissed = min(a.DaysLate/p.CycleDays, remaining)
	a.Arrears = int64(a.MonthsMissed) * s.MonthlyAmount
	a.Status = p.Bucket(a.DaysLate)

	return a
}

// DaysLate counts whole calendar days from due to now, or 0 if now is not past due.
func DaysLate(due, now time.Time) int {
	d := DaysBetween(due, now)
	if d < 0 {
		return 0
	}

	return d
}

// DaysBetween returns the signed number of calendar days from a to b, ignoring time of day.
func DaysBetween(a, b time.Time) int {
	da := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	db := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)

	return int(db.Sub(da).Hours() / 24)
}

var hundred = decimal.NewFromInt(100)

// PercentPaid returns paid/total as a percentage rounded to two places. A
// zero-month plan has nothing left to pay and reports 100.
func PercentPaid(paid, total int) decimal.Decimal {
	if total <= 0 {
		return hundred
	}

	return decimal.NewFromInt(int64(paid)).
		Mul(hundred).
		Div(decimal.NewFromInt(int64(total))).
		Round(2)
}
