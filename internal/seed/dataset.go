// Package seed builds a deterministic demo portfolio and loads it into Postgres.
package seed

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/receivables/internal/auth"
	"github.com/MrJamesThe3rd/receivables/internal/lifecycle"
	"github.com/MrJamesThe3rd/receivables/internal/reminder"
	"github.com/MrJamesThe3rd/receivables/internal/unit"
)

// Credential is a seeded login, printed once the job finishes.
type Credential struct {
	Email    string
	Password string
	Role     auth.Role
}

// UnitSeed is a generated unit and the status its narrative calls for.
type UnitSeed struct {
	Unit       *unit.Unit
	ProjectID  uuid.UUID
	CustomerID *uuid.UUID
	Intended   lifecycle.Status
}

// Dataset is everything the seed job writes, in foreign key order.
type Dataset struct {
	OrgID       uuid.UUID
	OrgSlug     string
	Credentials []Credential
	Users       []*auth.User
	Units       []UnitSeed
	Tables      []Table
}

type project struct {
	id       uuid.UUID
	name     string
	location string
	phases   int
	units    int
}

var (
	firstNames = []string{
		"Maria", "Jose", "Ana", "Juan", "Liza", "Mark", "Grace", "Paolo",
		"Carmela", "Rafael", "Bea", "Miguel", "Andrea", "Carlo", "Patricia",
	}
	lastNames = []string{
		"Santos", "Reyes", "Cruz", "Bautista", "Garcia", "Mendoza",
		"Torres", "Villanueva", "Ramos", "Aquino", "Dela Cruz", "Navarro",
	}
	unitTypes = []struct {
		name     string
		minPrice int64
		maxPrice int64
	}{
		{"Lot Only", 80_000_000, 150_000_000},
		{"Townhouse", 180_000_000, 280_000_000},
		{"Single Attached", 250_000_000, 400_000_000},
		{"Single Detached", 380_000_000, 650_000_000},
	}
	termOptions = []int{12, 24, 36, 48, 60}

	// narrative covers every status within its first nine entries, then
	// weights the rest of the portfolio toward healthy accounts.
	narrative = []lifecycle.Status{
		lifecycle.StatusAvailable,
		lifecycle.StatusReserved,
		lifecycle.StatusMoveInScheduled,
		lifecycle.StatusMoveInConfirmed,
		lifecycle.StatusInPaymentCycle,
		lifecycle.StatusAtRisk,
		lifecycle.StatusOverdue,
		lifecycle.StatusCritical,
		lifecycle.StatusFullyPaid,
		lifecycle.StatusAvailable,
		lifecycle.StatusInPaymentCycle,
		lifecycle.StatusInPaymentCycle,
	}
)

// builder carries the shared state of one Build call.
type builder struct {
	p   Params
	rng *rand.Rand
	ns  uuid.UUID
	ds  *Dataset

	users, orgs, projectsT, customers, programs, methods, units, notes,
	schedules, payments, intents, milestones, announcements, reminders,
	dispatches, feedback, defects, checklist Table

	projects  []project
	methodIDs []uuid.UUID
}

// Build generates the dataset for p. Identical params give identical ids and
// identical narrative; only password hashes differ between runs.
func Build(p Params) (*Dataset, error) {
	p.withDefaults()

	if err := p.Validate(); err != nil {
		return nil, err
	}

	b := &builder{
		p:   p,
		rng: rand.New(rand.NewPCG(p.Seed, p.Seed^0x9e3779b97f4a7c15)),
		ns:  uuid.NewSHA1(uuid.NameSpaceURL, []byte("receivables:org:"+p.OrgSlug)),
		ds:  &Dataset{OrgSlug: p.OrgSlug},
	}

	b.ds.OrgID = b.id("organization")
	b.initTables()

	steps := []func() error{
		b.buildOrganization,
		b.buildUsers,
		b.buildProjects,
		b.buildReference,
		b.buildUnits,
		b.buildReminders,
	}

	for _, step := range steps {
		if err := step(); err != nil {
			return nil, err
		}
	}

	b.ds.Tables = []Table{
		b.orgs, b.users, b.projectsT, b.customers, b.programs, b.methods,
		b.units, b.notes, b.schedules, b.payments, b.intents, b.milestones,
		b.announcements, b.reminders, b.dispatches, b.feedback, b.defects, b.checklist,
	}

	return b.ds, nil
}

// id derives a stable uuid v5 under the organisation namespace.
func (b *builder) id(parts ...any) uuid.UUID {
	return uuid.NewSHA1(b.ns, []byte(fmt.Sprint(parts...)))
}

func (b *builder) between(lo, hi int) int {
	return lo + b.rng.IntN(hi-lo+1)
}

func (b *builder) daysAgo(n int) time.Time {
	return b.p.Now.AddDate(0, 0, -n)
}

func (b *builder) initTables() {
	b.orgs = Table{Name: "organizations", ChunkSize: chunkTiny,
		Columns: []string{"id", "name", "slug", "currency", "created_at"}}
	b.users = Table{Name: "users", ChunkSize: chunkTiny,
		Columns: []string{"id", "organization_id", "email", "full_name", "role", "password_hash", "created_at"}}
	b.projectsT = Table{Name: "projects", ChunkSize: chunkTiny,
		Columns: []string{"id", "organization_id", "name", "location", "phase_count", "created_at"}}
	b.customers = Table{Name: "customers", ChunkSize: chunkSmall,
		Columns: []string{"id", "organization_id", "full_name", "email", "phone", "created_at"}}
	b.programs = Table{Name: "financing_programs", ChunkSize: chunkTiny,
		Columns: []string{"id", "organization_id", "name", "max_months", "down_payment_bp"}}
	b.methods = Table{Name: "payment_methods", ChunkSize: chunkTiny,
		Columns: []string{"id", "organization_id", "name", "kind"}}
	b.units = Table{Name: "units", ChunkSize: chunkSmall,
		Columns: []string{
			"id", "project_id", "customer_id", "project", "block_lot", "phase", "unit_type",
			"selling_price", "stage", "buyer_name", "buyer_contact", "buyer_email",
			"total_months", "months_paid", "monthly_amount", "next_due_date",
			"monthly_dues", "dues_paid_at", "created_at",
		}}
	b.notes = Table{Name: "unit_notes", ChunkSize: chunkMedium,
		Columns: []string{"id", "unit_id", "position", "body", "created_at"}}
	b.schedules = Table{Name: "payment_schedules", ChunkSize: chunkLarge,
		Columns: []string{"id", "unit_id", "installment_no", "due_date", "amount", "paid"}}
	b.payments = Table{Name: "payments", ChunkSize: chunkLarge,
		Columns: []string{"id", "unit_id", "schedule_id", "payment_method_id", "amount", "paid_at"}}
	b.intents = Table{Name: "payment_intents", ChunkSize: chunkSmall,
		Columns: []string{"id", "unit_id", "amount", "status", "created_at"}}
	b.milestones = Table{Name: "milestones", ChunkSize: chunkTiny,
		Columns: []string{"id", "project_id", "title", "target_date", "done"}}
	b.announcements = Table{Name: "announcements", ChunkSize: chunkTiny,
		Columns: []string{"id", "organization_id", "title", "body", "published_at"}}
	b.reminders = Table{Name: "reminders", ChunkSize: chunkSmall,
		Columns: []string{"id", "unit_id", "channel", "recipient", "subject", "body", "created_at"}}
	b.dispatches = Table{Name: "dispatch_records", ChunkSize: chunkSmall,
		Columns: []string{"id", "reminder_id", "status", "error", "sent_at"}}
	b.feedback = Table{Name: "feedback", ChunkSize: chunkSmall,
		Columns: []string{"id", "customer_id", "rating", "comment", "created_at"}}
	b.defects = Table{Name: "defects", ChunkSize: chunkSmall,
		Columns: []string{"id", "unit_id", "description", "severity", "resolved", "reported_at"}}
	b.checklist = Table{Name: "checklist_items", ChunkSize: chunkMedium,
		Columns: []string{"id", "unit_id", "label", "done"}}
}

func (b *builder) buildOrganization() error {
	b.orgs.add(b.ds.OrgID, b.p.OrgName, b.p.OrgSlug, "PHP", b.daysAgo(720))

	b.announcements.add(b.id("announcement", 1), b.ds.OrgID,
		"Office hours during the holidays",
		"Our collections office is closed on regular holidays. Online payments remain available.",
		b.daysAgo(20))
	b.announcements.add(b.id("announcement", 2), b.ds.OrgID,
		"New payment channel",
		"Monthly amortizations can now be paid through GCash. Include your block and lot in the reference.",
		b.daysAgo(45))
	b.announcements.add(b.id("announcement", 3), b.ds.OrgID,
		"Association dues adjustment",
		"Monthly association dues will be adjusted starting next quarter following the board resolution.",
		b.daysAgo(90))

	return nil
}

func (b *builder) buildUsers() error {
	domain := strings.SplitN(b.p.AdminEmail, "@", 2)[1]

	staff := []Credential{
		{Email: strings.ToLower(b.p.AdminEmail), Password: b.p.AdminPassword, Role: auth.RoleAdmin},
		{Email: "manager@" + domain, Password: b.p.AdminPassword, Role: auth.RoleManager},
		{Email: "collector@" + domain, Password: b.p.AdminPassword, Role: auth.RoleCollector},
		{Email: "encoder@" + domain, Password: b.p.AdminPassword, Role: auth.RoleEncoder},
	}

	for _, c := range staff {
		if err := b.addUser(c, string(c.Role)+" User"); err != nil {
			return err
		}
	}

	return nil
}

func (b *builder) addUser(c Credential, fullName string) error {
	hash, err := auth.HashPassword(c.Password, b.p.HashCost)
	if err != nil {
		return fmt.Errorf("seeding user %s: %w", c.Email, err)
	}

	id := b.id("user", c.Email)
	b.users.add(id, b.ds.OrgID, c.Email, fullName, string(c.Role), hash, b.daysAgo(700))
	b.ds.Credentials = append(b.ds.Credentials, c)
	b.ds.Users = append(b.ds.Users, &auth.User{
		ID:             id,
		OrganizationID: b.ds.OrgID,
		Email:          c.Email,
		FullName:       fullName,
		Role:           c.Role,
		PasswordHash:   hash,
	})

	return nil
}

func (b *builder) buildProjects() error {
	defs := []struct {
		name, location string
		phases         int
	}{
		{"Palm Grove Residences", "General Trias, Cavite", 3},
		{"Casa Verde Estates", "Santa Rosa, Laguna", 2},
		{"Vista Alta Heights", "Lipa, Batangas", 2},
	}

	for i, d := range defs {
		p := project{id: b.id("project", i), name: d.name, location: d.location, phases: d.phases}
		b.projects = append(b.projects, p)
		b.projectsT.add(p.id, b.ds.OrgID, p.name, p.location, p.phases, b.daysAgo(700))

		titles := []string{"Land development", "Model house turnover", "Clubhouse completion"}
		for j, title := range titles {
			target := b.p.Now.AddDate(0, 3*(j-1), 0)
			b.milestones.add(b.id("milestone", i, j), p.id, title, target, target.Before(b.p.Now))
		}
	}

	return nil
}

func (b *builder) buildReference() error {
	programs := []struct {
		name   string
		months int
		bp     int
	}{
		{"In-house 12 months", 12, 2000},
		{"In-house 36 months", 36, 1500},
		{"Bank financing", 60, 2000},
		{"Pag-IBIG housing loan", 60, 1000},
	}

	for i, pr := range programs {
		b.programs.add(b.id("program", i), b.ds.OrgID, pr.name, pr.months, pr.bp)
	}

	methods := []struct{ name, kind string }{
		{"Cash", "cash"},
		{"Bank transfer", "bank"},
		{"GCash", "ewallet"},
		{"Post-dated check", "check"},
	}

	for i, m := range methods {
		id := b.id("payment_method", i)
		b.methodIDs = append(b.methodIDs, id)
		b.methods.add(id, b.ds.OrgID, m.name, m.kind)
	}

	return nil
}

func (b *builder) buildUnits() error {
	for i := range b.p.Units {
		intended := narrative[i%len(narrative)]
		proj := &b.projects[i%len(b.projects)]
		seq := proj.units
		proj.units++

		kind := unitTypes[b.rng.IntN(len(unitTypes))]
		price := (kind.minPrice + b.rng.Int64N(kind.maxPrice-kind.minPrice)) / 10_000_00 * 10_000_00

		u := &unit.Unit{
			ID:           b.id("unit", i),
			BlockLot:     fmt.Sprintf("B%d-L%d", seq/10+1, seq%10+1),
			Project:      proj.name,
			Phase:        fmt.Sprintf("Phase %d", seq%proj.phases+1),
			UnitType:     kind.name,
			SellingPrice: price,
			Stage:        lifecycle.StatusAvailable,
			CreatedAt:    b.daysAgo(b.between(400, 700)),
		}

		s := UnitSeed{Unit: u, ProjectID: proj.id, Intended: intended}

		if intended != lifecycle.StatusAvailable {
			s.CustomerID = b.addCustomer(i, u)
		}

		switch {
		case intended.IsPreSale():
			u.Stage = intended
		default:
			b.finance(u, intended)
		}

		b.addUnitExtras(i, s)
		b.addUnitRow(s)
		b.ds.Units = append(b.ds.Units, s)
	}

	return nil
}

func (b *builder) addCustomer(i int, u *unit.Unit) *uuid.UUID {
	first := firstNames[b.rng.IntN(len(firstNames))]
	last := lastNames[b.rng.IntN(len(lastNames))]
	email := fmt.Sprintf("%s.%s%d@mail.test",
		strings.ToLower(first), strings.ToLower(strings.ReplaceAll(last, " ", "")), i)

	u.Buyer = &unit.Buyer{
		Name:    first + " " + last,
		Contact: fmt.Sprintf("09%02d %03d %04d", b.between(15, 99), b.rng.IntN(1000), b.rng.IntN(10000)),
		Email:   email,
	}

	id := b.id("customer", i)
	b.customers.add(id, b.ds.OrgID, u.Buyer.Name, u.Buyer.Email, u.Buyer.Contact, b.daysAgo(b.between(300, 600)))

	if i%4 == 0 {
		b.feedback.add(b.id("feedback", i), id, b.between(3, 5),
			"Smooth turnover process and responsive collections staff.", b.daysAgo(b.between(5, 120)))
	}

	return &id
}

// finance gives u a payment plan whose classification at Now is intended.
func (b *builder) finance(u *unit.Unit, intended lifecycle.Status) {
	pol := b.p.Policy
	total := termOptions[b.rng.IntN(len(termOptions))]
	monthly := u.SellingPrice / int64(total) / 100 * 100

	var paid, daysLate int

	switch intended {
	case lifecycle.StatusFullyPaid:
		paid, daysLate = total, -b.between(1, 28)
	case lifecycle.StatusInPaymentCycle:
		daysLate = b.between(-25, pol.AtRiskDays-1)
	case lifecycle.StatusAtRisk:
		daysLate = b.between(pol.AtRiskDays, pol.OverdueDays-1)
	case lifecycle.StatusOverdue:
		daysLate = b.between(pol.OverdueDays, pol.CriticalDays-1)
	case lifecycle.StatusCritical:
		daysLate = b.between(pol.CriticalDays, pol.CriticalDays+180)
	}

	if paid == 0 {
		paid = b.rng.IntN(total - 1)
	}

	stages := []lifecycle.Status{lifecycle.StatusReserved, lifecycle.StatusMoveInScheduled, lifecycle.StatusMoveInConfirmed}
	u.Stage = stages[b.rng.IntN(len(stages))]

	if intended == lifecycle.StatusFullyPaid {
		u.Stage = lifecycle.StatusMoveInConfirmed
	}

	u.PaymentTerms = &unit.PaymentTerms{
		TotalMonths:   total,
		MonthsPaid:    paid,
		MonthlyAmount: monthly,
		NextDueDate:   b.daysAgo(daysLate),
	}

	u.PropertyManagement = &unit.PropertyManagement{
		MonthlyDues:     int64(b.between(15, 30)) * 100_00,
		LastPaymentDate: new(b.daysAgo(b.between(1, 60))),
	}
}

func (b *builder) addUnitExtras(i int, s UnitSeed) {
	u := s.Unit

	var notes []string

	switch s.Intended {
	case lifecycle.StatusReserved:
		notes = append(notes, "Reservation fee received, awaiting loan documents.")
	case lifecycle.StatusMoveInScheduled:
		notes = append(notes, "Turnover walk-through booked with the buyer.")
	case lifecycle.StatusAtRisk, lifecycle.StatusOverdue:
		notes = append(notes, "Called buyer, promised to settle by end of month.")
	case lifecycle.StatusCritical:
		notes = append(notes, "Demand letter sent.", "Buyer requested restructuring of the remaining balance.")
	}

	for pos, body := range notes {
		b.notes.add(b.id("note", i, pos), u.ID, pos+1, body, b.daysAgo(b.between(1, 30)))
	}

	u.Notes = notes

	if u.Stage == lifecycle.StatusMoveInScheduled || u.Stage == lifecycle.StatusMoveInConfirmed {
		done := u.Stage == lifecycle.StatusMoveInConfirmed
		labels := []string{"Keys handed over", "Meter readings recorded", "Punch list walk-through", "Turnover documents signed"}

		for j, label := range labels {
			b.checklist.add(b.id("checklist", i, j), u.ID, label, done)
		}

		if done && i%5 == 0 {
			b.defects.add(b.id("defect", i), u.ID, "Hairline cracks on the master bedroom wall.", "minor",
				i%10 == 0, b.daysAgo(b.between(5, 90)))
		}
	}

	if u.PaymentTerms != nil {
		b.addLedger(i, u)
	}
}

// addLedger writes one schedule row per installment and a payment per paid one.
func (b *builder) addLedger(i int, u *unit.Unit) {
	pt := u.PaymentTerms
	first := pt.NextDueDate.AddDate(0, -pt.MonthsPaid, 0)

	for k := range pt.TotalMonths {
		due := first.AddDate(0, k, 0)
		paid := k < pt.MonthsPaid
		scheduleID := b.id("schedule", i, k)

		b.schedules.add(scheduleID, u.ID, k+1, due, pt.MonthlyAmount, paid)

		if paid {
			b.payments.add(b.id("payment", i, k), u.ID, scheduleID,
				b.methodIDs[b.rng.IntN(len(b.methodIDs))], pt.MonthlyAmount, due.AddDate(0, 0, b.rng.IntN(6)))
		}
	}
}

func (b *builder) addUnitRow(s UnitSeed) {
	u := s.Unit

	var (
		buyerName, buyerContact, buyerEmail       any
		totalMonths, monthsPaid, monthly, nextDue any
		dues, duesPaidAt, customerID              any
	)

	if s.CustomerID != nil {
		customerID = *s.CustomerID
	}

	if u.Buyer != nil {
		buyerName, buyerContact, buyerEmail = u.Buyer.Name, u.Buyer.Contact, u.Buyer.Email
	}

	if pt := u.PaymentTerms; pt != nil {
		totalMonths, monthsPaid, monthly, nextDue = pt.TotalMonths, pt.MonthsPaid, pt.MonthlyAmount, pt.NextDueDate
	}

	if pm := u.PropertyManagement; pm != nil {
		dues = pm.MonthlyDues
		if pm.LastPaymentDate != nil {
			duesPaidAt = *pm.LastPaymentDate
		}
	}

	b.units.add(
		u.ID, s.ProjectID, customerID, u.Project, u.BlockLot, u.Phase, u.UnitType,
		u.SellingPrice, string(u.Stage), buyerName, buyerContact, buyerEmail,
		totalMonths, monthsPaid, monthly, nextDue,
		dues, duesPaidAt, u.CreatedAt,
	)
}

// buildReminders composes reminders for the aging units with the same
// composer the dashboard uses, then marks them dispatched. The first buyer
// with an aging account also gets a portal login.
func (b *builder) buildReminders() error {
	assessed := make([]unit.Assessed, len(b.ds.Units))
	for i, s := range b.ds.Units {
		assessed[i] = unit.Assessed{
			Unit:       s.Unit,
			Assessment: b.p.Policy.Assess(s.Unit.Stage, s.Unit.Schedule(), b.p.Now),
		}

		if a := assessed[i].Assessment; a.Status.IsAging() {
			b.intents.add(b.id("intent", i), s.Unit.ID, max(a.Arrears, s.Unit.PaymentTerms.MonthlyAmount),
				"pending", b.daysAgo(b.between(0, 10)))
		}
	}

	for _, r := range reminder.Compose(assessed, b.p.Now) {
		id := b.id("reminder", r.UnitID)
		b.reminders.add(id, r.UnitID, string(r.Channel), r.Recipient, r.Subject, r.Body, r.CreatedAt)
		b.dispatches.add(b.id("dispatch", r.UnitID), id, string(reminder.DispatchSent), "", r.CreatedAt)
	}

	for _, a := range assessed {
		if a.Status().IsAging() && a.Buyer != nil {
			return b.addUser(Credential{
				Email:    a.Buyer.Email,
				Password: b.p.AdminPassword,
				Role:     auth.RoleCustomer,
			}, a.Buyer.Name)
		}
	}

	return nil
}
