package unit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/receivables/internal/lifecycle"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=unit
type Repository interface {
	CreateUnit(ctx context.Context, u *Unit) error
	CreateUnits(ctx context.Context, units []*Unit) error
	GetUnit(ctx context.Context, id uuid.UUID) (*Unit, error)
	ListUnits(ctx context.Context, filter ListFilter) ([]*Unit, error)
	// UpdateUnit applies fn to the stored unit and saves the result. No other
	// update of the same unit interleaves between the read and the write.
	UpdateUnit(ctx context.Context, id uuid.UUID, fn func(u *Unit) error) (*Unit, error)
	DeleteUnit(ctx context.Context, id uuid.UUID) error
	AppendNote(ctx context.Context, id uuid.UUID, note string) error
}

type Service struct {
	repo   Repository
	policy lifecycle.Policy
	now    func() time.Time
}

type Option func(*Service)

// WithPolicy overrides the default aging thresholds.
func WithPolicy(p lifecycle.Policy) Option {
	return func(s *Service) { s.policy = p }
}

// WithClock fixes the reference date used for classification.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(repo Repository, opts ...Option) *Service {
	s := &Service{
		repo:   repo,
		policy: lifecycle.DefaultPolicy(),
		now:    time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

type CreateParams struct {
	BlockLot     string
	Project      string
	Phase        string
	UnitType     string
	SellingPrice int64
	MonthlyDues  int64
}

// ListFilter narrows a listing. Status is derived, so it is applied after
// classification rather than by the repository.
type ListFilter struct {
	Project    *string
	Stage      *lifecycle.Status
	BuyerEmail *string
	Status     *lifecycle.Status
}

// Now returns the reference date the service classifies against.
func (s *Service) Now() time.Time {
	return s.now()
}

func (s *Service) Policy() lifecycle.Policy {
	return s.policy
}

func (s *Service) Create(ctx context.Context, params CreateParams) (*Unit, error) {
	u := newUnit(params)
	if err := s.repo.CreateUnit(ctx, u); err != nil {
		return nil, err
	}

	return u, nil
}

// CreateBatch creates all units atomically.
func (s *Service) CreateBatch(ctx context.Context, params []CreateParams) ([]*Unit, error) {
	if len(params) == 0 {
		return nil, nil
	}

	units := make([]*Unit, len(params))
	for i, p := range params {
		units[i] = newUnit(p)
	}

	if err := s.repo.CreateUnits(ctx, units); err != nil {
		return nil, fmt.Errorf("create units: %w", err)
	}

	return units, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Unit, error) {
	return s.repo.GetUnit(ctx, id)
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.DeleteUnit(ctx, id)
}

// List returns the assessed units matching the filter.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Assessed, error) {
	repoFilter := filter
	repoFilter.Status = nil

	units, err := s.repo.ListUnits(ctx, repoFilter)
	if err != nil {
		return nil, err
	}

	assessed := s.AssessAll(units)
	if filter.Status == nil {
		return assessed, nil
	}

	out := assessed[:0]

	for _, a := range assessed {
		if a.Status() == *filter.Status {
			out = append(out, a)
		}
	}

	return out, nil
}

// Assess classifies a unit against the service clock.
func (s *Service) Assess(u *Unit) Assessed {
	return Assessed{
		Unit:       u,
		Assessment: s.policy.Assess(u.Stage, u.Schedule(), s.now()),
	}
}

func (s *Service) AssessAll(units []*Unit) []Assessed {
	out := make([]Assessed, len(units))
	for i, u := range units {
		out[i] = s.Assess(u)
	}

	return out
}

// Reserve attaches a buyer to an available unit.
func (s *Service) Reserve(ctx context.Context, id uuid.UUID, buyer Buyer) (*Unit, error) {
	if strings.TrimSpace(buyer.Name) == "" {
		return nil, fmt.Errorf("%w: buyer name is required", ErrInvalidTransition)
	}

	return s.mutate(ctx, id, func(u *Unit) error {
		if u.Stage != lifecycle.StatusAvailable || u.PaymentTerms != nil {
			return fmt.Errorf("%w: cannot reserve a unit in stage %q", ErrInvalidTransition, u.Stage)
		}

		u.Buyer = &buyer
		u.Stage = lifecycle.StatusReserved

		return nil
	})
}

func (s *Service) ScheduleMoveIn(ctx context.Context, id uuid.UUID) (*Unit, error) {
	return s.mutate(ctx, id, func(u *Unit) error {
		if u.Stage != lifecycle.StatusReserved {
			return fmt.Errorf("%w: move-in requires a reserved unit, got %q", ErrInvalidTransition, u.Stage)
		}

		u.Stage = lifecycle.StatusMoveInScheduled

		return nil
	})
}

func (s *Service) ConfirmMoveIn(ctx context.Context, id uuid.UUID) (*Unit, error) {
	return s.mutate(ctx, id, func(u *Unit) error {
		if u.Stage != lifecycle.StatusMoveInScheduled {
			return fmt.Errorf("%w: move-in was not scheduled, got %q", ErrInvalidTransition, u.Stage)
		}

		u.Stage = lifecycle.StatusMoveInConfirmed

		return nil
	})
}

type PlanParams struct {
	TotalMonths   int
	MonthlyAmount int64
	FirstDueDate  time.Time
	MonthlyDues   int64
}

// StartPaymentPlan initialises the installment plan of a buyer-attached unit.
func (s *Service) StartPaymentPlan(ctx context.Context, id uuid.UUID, params PlanParams) (*Unit, error) {
	if params.TotalMonths < 1 {
		return nil, fmt.Errorf("%w: total months must be at least 1", ErrInvalidTerms)
	}

	if params.MonthlyAmount <= 0 {
		return nil, fmt.Errorf("%w: monthly amount must be positive", ErrInvalidTerms)
	}

	if params.FirstDueDate.IsZero() {
		return nil, fmt.Errorf("%w: first due date is required", ErrInvalidTerms)
	}

	return s.mutate(ctx, id, func(u *Unit) error {
		if u.Buyer == nil || u.PaymentTerms != nil || u.Stage == lifecycle.StatusAvailable {
			return fmt.Errorf("%w: payment plan requires a reserved unit without a plan", ErrInvalidTransition)
		}

		u.PaymentTerms = &PaymentTerms{
			TotalMonths:   params.TotalMonths,
			MonthlyAmount: params.MonthlyAmount,
			NextDueDate:   params.FirstDueDate,
		}

		if u.PropertyManagement == nil {
			u.PropertyManagement = &PropertyManagement{}
		}

		if params.MonthlyDues > 0 {
			u.PropertyManagement.MonthlyDues = params.MonthlyDues
		}

		return nil
	})
}

// RecordPayment credits months installments, capped at the months remaining,
// and advances the next due date by one calendar month per installment.
func (s *Service) RecordPayment(ctx context.Context, id uuid.UUID, months int) (*Unit, error) {
	if months < 1 {
		return nil, fmt.Errorf("%w: months must be at least 1", ErrInvalidTerms)
	}

	return s.mutate(ctx, id, func(u *Unit) error {
		pt := u.PaymentTerms
		if pt == nil {
			return fmt.Errorf("%w: unit has no payment plan", ErrInvalidTransition)
		}

		remaining := pt.TotalMonths - pt.MonthsPaid
		if remaining <= 0 {
			return fmt.Errorf("%w: unit is fully paid", ErrInvalidTransition)
		}

		n := min(months, remaining)
		pt.MonthsPaid += n
		pt.NextDueDate = pt.NextDueDate.AddDate(0, n, 0)

		return nil
	})
}

func (s *Service) RecordDuesPayment(ctx context.Context, id uuid.UUID, paidAt time.Time) (*Unit, error) {
	return s.mutate(ctx, id, func(u *Unit) error {
		if u.PropertyManagement == nil {
			return fmt.Errorf("%w: unit has no property management dues", ErrInvalidTransition)
		}

		u.PropertyManagement.LastPaymentDate = &paidAt

		return nil
	})
}

// AddNote appends a note to the unit's log.
func (s *Service) AddNote(ctx context.Context, id uuid.UUID, note string) error {
	note = strings.TrimSpace(note)
	if note == "" {
		return ErrEmptyNote
	}

	return s.repo.AppendNote(ctx, id, note)
}

func newUnit(p CreateParams) *Unit {
	u := &Unit{
		BlockLot:     strings.TrimSpace(p.BlockLot),
		Project:      strings.TrimSpace(p.Project),
		Phase:        strings.TrimSpace(p.Phase),
		UnitType:     strings.TrimSpace(p.UnitType),
		SellingPrice: p.SellingPrice,
		Stage:        lifecycle.StatusAvailable,
	}

	if p.MonthlyDues > 0 {
		u.PropertyManagement = &PropertyManagement{MonthlyDues: p.MonthlyDues}
	}

	return u
}

func (s *Service) mutate(ctx context.Context, id uuid.UUID, fn func(u *Unit) error) (*Unit, error) {
	return s.repo.UpdateUnit(ctx, id, fn)
}
