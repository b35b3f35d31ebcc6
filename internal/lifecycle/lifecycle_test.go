package lifecycle_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/receivables/internal/lifecycle"
)

var now = time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)

func daysAgo(n int) time.Time {
	return now.AddDate(0, 0, -n)
}

func TestPolicy_Assess(t *testing.T) {
	policy := lifecycle.DefaultPolicy()

	type testCase struct {
		name         string
		schedule     lifecycle.Schedule
		wantStatus   lifecycle.Status
		wantDaysLate int
		wantArrears  int64
	}

	tests := []testCase{
		{
			name: "At risk after one missed cycle",
			schedule: lifecycle.Schedule{
				TotalMonths: 24, MonthsPaid: 19, MonthlyAmount: 35000, NextDueDate: daysAgo(45),
			},
			wantStatus:   lifecycle.StatusAtRisk,
			wantDaysLate: 45,
			wantArrears:  35000,
		},
		{
			name: "Critical after four missed cycles",
			schedule: lifecycle.Schedule{
				TotalMonths: 18, MonthsPaid: 2, MonthlyAmount: 30000, NextDueDate: daysAgo(136),
			},
			wantStatus:   lifecycle.StatusCritical,
			wantDaysLate: 136,
			wantArrears:  120000,
		},
		{
			name: "Overdue after two missed cycles",
			schedule: lifecycle.Schedule{
				TotalMonths: 36, MonthsPaid: 10, MonthlyAmount: 25000, NextDueDate: daysAgo(75),
			},
			wantStatus:   lifecycle.StatusOverdue,
			wantDaysLate: 75,
			wantArrears:  50000,
		},
		{
			name: "Current when due date is ahead",
			schedule: lifecycle.Schedule{
				TotalMonths: 24, MonthsPaid: 5, MonthlyAmount: 20000, NextDueDate: now.AddDate(0, 0, 10),
			},
			wantStatus: lifecycle.StatusInPaymentCycle,
		},
		{
			name: "Late within grace stays in payment cycle",
			schedule: lifecycle.Schedule{
				TotalMonths: 24, MonthsPaid: 5, MonthlyAmount: 20000, NextDueDate: daysAgo(31),
			},
			wantStatus:   lifecycle.StatusInPaymentCycle,
			wantDaysLate: 31,
			wantArrears:  20000,
		},
		{
			name: "Fully paid ignores a stale due date",
			schedule: lifecycle.Schedule{
				TotalMonths: 12, MonthsPaid: 12, MonthlyAmount: 40000, NextDueDate: daysAgo(400),
			},
			wantStatus: lifecycle.StatusFullyPaid,
		},
		{
			name: "Missed months are capped at the remaining months",
			schedule: lifecycle.Schedule{
				TotalMonths: 12, MonthsPaid: 10, MonthlyAmount: 10000, NextDueDate: daysAgo(200),
			},
			wantStatus:   lifecycle.StatusCritical,
			wantDaysLate: 200,
			wantArrears:  20000,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := policy.Assess(lifecycle.StatusReserved, &tt.schedule, now)

			assert.Equal(t, tt.wantStatus, got.Status)
			assert.Equal(t, tt.wantDaysLate, got.DaysLate)
			assert.Equal(t, tt.wantArrears, got.Arrears)
			assert.Equal(t, int64(got.MonthsMissed)*tt.schedule.MonthlyAmount, got.Arrears)
		})
	}
}

func TestPolicy_Assess_NoSchedule(t *testing.T) {
	policy := lifecycle.DefaultPolicy()

	for _, stage := range lifecycle.Statuses {
		t.Run(string(stage), func(t *testing.T) {
			got := policy.Assess(stage, nil, now)

			assert.True(t, got.Status.IsPreSale(), "status %q must be pre-sale", got.Status)
			assert.Zero(t, got.Arrears)
			assert.Zero(t, got.DaysLate)
		})
	}
}

func TestPolicy_Assess_FullyPaidInvariant(t *testing.T) {
	policy := lifecycle.DefaultPolicy()

	for total := 1; total <= 60; total += 7 {
		for _, days := range []int{-30, 0, 45, 90, 365} {
			got := policy.Assess(lifecycle.StatusMoveInConfirmed, &lifecycle.Schedule{
				TotalMonths:   total,
				MonthsPaid:    total,
				MonthlyAmount: 15000,
				NextDueDate:   daysAgo(days),
			}, now)

			require.Equal(t, lifecycle.StatusFullyPaid, got.Status)
			assert.Zero(t, got.Arrears)
			assert.Zero(t, got.DaysLate)
			assert.Equal(t, "100", got.PercentPaid.String())
		}
	}
}

func TestPercentPaid(t *testing.T) {
	assert.Equal(t, "100", lifecycle.PercentPaid(0, 0).String())
	assert.Equal(t, "79.17", lifecycle.PercentPaid(19, 24).String())
	assert.Equal(t, "0", lifecycle.PercentPaid(0, 18).String())
}

func TestPolicy_Validate(t *testing.T) {
	assert.NoError(t, lifecycle.DefaultPolicy().Validate())

	bad := lifecycle.DefaultPolicy()
	bad.OverdueDays = bad.AtRiskDays
	assert.ErrorIs(t, bad.Validate(), lifecycle.ErrInvalidPolicy)

	bad = lifecycle.DefaultPolicy()
	bad.CycleDays = 0
	assert.ErrorIs(t, bad.Validate(), lifecycle.ErrInvalidPolicy)
}

func TestDaysBetween_IgnoresTimeOfDay(t *testing.T) {
	a := time.Date(2025, 12, 1, 23, 59, 0, 0, time.UTC)
	b := time.Date(2025, 12, 2, 0, 1, 0, 0, time.UTC)

	assert.Equal(t, 1, lifecycle.DaysBetween(a, b))
	assert.Equal(t, -1, lifecycle.DaysBetween(b, a))
	assert.Equal(t, 0, lifecycle.DaysLate(b, a))
}
