package unit

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/receivables/internal/lifecycle"
	"github.com/MrJamesThe3rd/receivables/internal/unit"
)

type buyerResponse struct {
	Name    string `json:"name"`
	Contact string `json:"contact,omitempty"`
	Email   string `json:"email,omitempty"`
}

type termsResponse struct {
	TotalMonths   int    `json:"total_months"`
	MonthsPaid    int    `json:"months_paid"`
	MonthlyAmount int64  `json:"monthly_amount"`
	NextDueDate   string `json:"next_due_date"`
}

type propertyManagementResponse struct {
	MonthlyDues     int64   `json:"monthly_dues"`
	LastPaymentDate *string `json:"last_payment_date,omitempty"`
}

type assessmentResponse struct {
	DaysLate        int             `json:"days_late"`
	MonthsMissed    int             `json:"months_missed"`
	MonthsRemaining int             `json:"months_remaining"`
	Arrears         int64           `json:"arrears"`
	AmountPaid      int64           `json:"amount_paid"`
	Balance         int64           `json:"balance"`
	PercentPaid     decimal.Decimal `json:"percent_paid"`
}

type unitResponse struct {
	ID                 uuid.UUID                   `json:"id"`
	BlockLot           string                      `json:"block_lot"`
	Project            string                      `json:"project"`
	Phase              string                      `json:"phase,omitempty"`
	UnitType           string                      `json:"unit_type,omitempty"`
	SellingPrice       int64                       `json:"selling_price"`
	Stage              lifecycle.Status            `json:"stage"`
	Status             lifecycle.Status            `json:"status"`
	Buyer              *buyerResponse              `json:"buyer,omitempty"`
	PaymentTerms       *termsResponse              `json:"payment_terms,omitempty"`
	PropertyManagement *propertyManagementResponse `json:"property_management,omitempty"`
	Assessment         assessmentResponse          `json:"assessment"`
	Notes              []string                    `json:"notes"`
	CreatedAt          time.Time                   `json:"created_at"`
	UpdatedAt          *time.Time                  `json:"updated_at,omitempty"`
}

func toResponse(a unit.Assessed) unitResponse {
	resp := unitResponse{
		ID:           a.ID,
		BlockLot:     a.BlockLot,
		Project:      a.Project,
		Phase:        a.Phase,
		UnitType:     a.UnitType,
		SellingPrice: a.SellingPrice,
		Stage:        a.Stage,
		Status:       a.Status(),
		Assessment: assessmentResponse{
			DaysLate:        a.Assessment.DaysLate,
			MonthsMissed:    a.Assessment.MonthsMissed,
			MonthsRemaining: a.Assessment.MonthsRemaining,
			Arrears:         a.Assessment.Arrears,
			AmountPaid:      a.Assessment.AmountPaid,
			Balance:         a.Assessment.Balance,
			PercentPaid:     a.Assessment.PercentPaid,
		},
		Notes:     a.Notes,
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}

	if resp.Notes == nil {
		resp.Notes = []string{}
	}

	if b := a.Buyer; b != nil {
		resp.Buyer = &buyerResponse{Name: b.Name, Contact: b.Contact, Email: b.Email}
	}

	if pt := a.PaymentTerms; pt != nil {
		resp.PaymentTerms = &termsResponse{
			TotalMonths:   pt.TotalMonths,
			MonthsPaid:    pt.MonthsPaid,
			MonthlyAmount: pt.MonthlyAmount,
			NextDueDate:   pt.NextDueDate.Format(time.DateOnly),
		}
	}

	if pm := a.PropertyManagement; pm != nil {
		resp.PropertyManagement = &propertyManagementResponse{MonthlyDues: pm.MonthlyDues}
		if pm.LastPaymentDate != nil {
			resp.PropertyManagement.LastPaymentDate = new(pm.LastPaymentDate.Format(time.DateOnly))
		}
	}

	return resp
}

func toResponseList(units []unit.Assessed) []unitResponse {
	resp := make([]unitResponse, len(units))
	for i, u := range units {
		resp[i] = toResponse(u)
	}

	return resp
}
