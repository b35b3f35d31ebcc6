package view

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/MrJamesThe3rd/receivables/internal/lifecycle"
	"github.com/MrJamesThe3rd/receivables/internal/unit"
)

func assessed(blockLot string, status lifecycle.Status, daysLate int, arrears int64) unit.Assessed {
	return unit.Assessed{
		Unit:       &unit.Unit{BlockLot: blockLot},
		Assessment: lifecycle.Assessment{Status: status, DaysLate: daysLate, Arrears: arrears},
	}
}

func TestAgingQueue(t *testing.T) {
	got := AgingQueue([]unit.Assessed{
		assessed("B1-L1", lifecycle.StatusAtRisk, 50, 100),
		assessed("B1-L2", lifecycle.StatusInPaymentCycle, 10, 0),
		assessed("B1-L3", lifecycle.StatusCritical, 130, 400),
		assessed("B1-L4", lifecycle.StatusAtRisk, 50, 300),
		assessed("B1-L5", lifecycle.StatusAvailable, 0, 0),
		assessed("B1-L6", lifecycle.StatusOverdue, 80, 200),
	})

	var order []string
	for _, u := range got {
		order = append(order, u.BlockLot)
	}

	assert.Equal(t, []string{"B1-L3", "B1-L6", "B1-L4", "B1-L1"}, order)
}
