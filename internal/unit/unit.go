package unit

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/receivables/internal/lifecycle"
)

var (
	ErrNotFound          = errors.New("unit not found")
	ErrInvalidTransition = errors.New("invalid unit transition")
	ErrInvalidTerms      = errors.New("invalid payment terms")
	ErrEmptyNote         = errors.New("note cannot be empty")
)

// Buyer is the customer a unit is reserved for or sold to.
type Buyer struct {
	Name    string
	Contact string
	Email   string
}

// PaymentTerms is the installment plan of a financed unit. Arrears and days
// late are derived by the lifecycle classifier and never stored.
type PaymentTerms struct {
	TotalMonths   int
	MonthsPaid    int
	MonthlyAmount int64 // Amount in centavos
	NextDueDate   time.Time
}

// PropertyManagement tracks recurring association dues of an occupied unit.
type PropertyManagement struct {
	MonthlyDues     int64
	LastPaymentDate *time.Time
}

// Unit is a sellable lot, house or townhouse.
type Unit struct {
	ID           uuid.UUID
	BlockLot     string
	Project      string
	Phase        string
	UnitType     string
	SellingPrice int64 // Amount in centavos

	// Stage is the stored pre-financing stage. The display status is derived.
	Stage              lifecycle.Status
	Buyer              *Buyer
	PaymentTerms       *PaymentTerms
	PropertyManagement *PropertyManagement
	Notes              []string

	CreatedAt time.Time
	UpdatedAt *time.Time
}

// Schedule converts the payment terms into the classifier input.
func (u *Unit) Schedule() *lifecycle.Schedule {
	if u.PaymentTerms == nil {
		return nil
	}

	return &lifecycle.Schedule{
		TotalMonths:   u.PaymentTerms.TotalMonths,
		MonthsPaid:    u.PaymentTerms.MonthsPaid,
		MonthlyAmount: u.PaymentTerms.MonthlyAmount,
		NextDueDate:   u.PaymentTerms.NextDueDate,
	}
}

// Clone returns a deep copy of the unit.
func (u *Unit) Clone() *Unit {
	c := *u

	if u.Buyer != nil {
		b := *u.Buyer
		c.Buyer = &b
	}

	if u.PaymentTerms != nil {
		pt := *u.PaymentTerms
		c.PaymentTerms = &pt
	}

	if u.PropertyManagement != nil {
		pm := *u.PropertyManagement
		if pm.LastPaymentDate != nil {
			pm.LastPaymentDate = new(*pm.LastPaymentDate)
		}

		c.PropertyManagement = &pm
	}

	if u.UpdatedAt != nil {
		c.UpdatedAt = new(*u.UpdatedAt)
	}

	c.Notes = append([]string(nil), u.Notes...)

	return &c
}

// Assessed pairs a unit with its derived lifecycle assessment.
type Assessed struct {
	*Unit
	Assessment lifecycle.Assessment
}

func (a Assessed) Status() lifecycle.Status {
	return a.Assessment.Status
}
