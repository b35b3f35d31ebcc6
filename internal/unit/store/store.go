package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/receivables/internal/lifecycle"
	"github.com/MrJamesThe3rd/receivables/internal/unit"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

const selectUnitColumns = `
	u.id, u.block_lot, u.project, u.phase, u.unit_type, u.selling_price, u.stage,
	u.buyer_name, u.buyer_contact, u.buyer_email,
	u.total_months, u.months_paid, u.monthly_amount, u.next_due_date,
	u.monthly_dues, u.dues_paid_at,
	COALESCE((SELECT json_agg(n.body ORDER BY n.position) FROM unit_notes n WHERE n.unit_id = u.id), '[]')::text,
	u.created_at, u.updated_at
`

// scanUnit reads a unit row in selectUnitColumns order.
func scanUnit(s scanner) (*unit.Unit, error) {
	var (
		u                                unit.Unit
		stage                            string
		buyerName, buyerContact, buyerEm sql.NullString
		totalMonths, monthsPaid          sql.NullInt32
		monthlyAmount, monthlyDues       sql.NullInt64
		nextDue, duesPaidAt              sql.NullTime
		notesJSON                        string
	)

	if err := s.Scan(
		&u.ID, &u.BlockLot, &u.Project, &u.Phase, &u.UnitType, &u.SellingPrice, &stage,
		&buyerName, &buyerContact, &buyerEm,
		&totalMonths, &monthsPaid, &monthlyAmount, &nextDue,
		&monthlyDues, &duesPaidAt,
		&notesJSON,
		&u.CreatedAt, &u.UpdatedAt,
	); err != nil {
		return nil, err
	}

	u.Stage = lifecycle.Status(stage)

	if buyerName.Valid {
		u.Buyer = &unit.Buyer{
			Name:    buyerName.String,
			Contact: buyerContact.String,
			Email:   buyerEm.String,
		}
	}

	if totalMonths.Valid {
		u.PaymentTerms = &unit.PaymentTerms{
			TotalMonths:   int(totalMonths.Int32),
			MonthsPaid:    int(monthsPaid.Int32),
			MonthlyAmount: monthlyAmount.Int64,
			NextDueDate:   nextDue.Time,
		}
	}

	if monthlyDues.Valid {
		u.PropertyManagement = &unit.PropertyManagement{MonthlyDues: monthlyDues.Int64}
		if duesPaidAt.Valid {
			u.PropertyManagement.LastPaymentDate = new(duesPaidAt.Time)
		}
	}

	if err := json.Unmarshal([]byte(notesJSON), &u.Notes); err != nil {
		return nil, fmt.Errorf("decoding notes: %w", err)
	}

	return &u, nil
}

// unitArgs flattens the mutable columns of a unit, nullable groups as NULL.
func unitArgs(u *unit.Unit) []any {
	var (
		buyerName, buyerContact, buyerEmail *string
		totalMonths, monthsPaid             *int
		monthlyAmount, monthlyDues          *int64
		nextDue, duesPaidAt                 *time.Time
	)

	if b := u.Buyer; b != nil {
		buyerName, buyerContact, buyerEmail = &b.Name, &b.Contact, &b.Email
	}

	if pt := u.PaymentTerms; pt != nil {
		totalMonths, monthsPaid = &pt.TotalMonths, &pt.MonthsPaid
		monthlyAmount, nextDue = &pt.MonthlyAmount, &pt.NextDueDate
	}

	if pm := u.PropertyManagement; pm != nil {
		monthlyDues, duesPaidAt = &pm.MonthlyDues, pm.LastPaymentDate
	}

	return []any{
		u.BlockLot, u.Project, u.Phase, u.UnitType, u.SellingPrice, string(u.Stage),
		buyerName, buyerContact, buyerEmail,
		totalMonths, monthsPaid, monthlyAmount, nextDue,
		monthlyDues, duesPaidAt,
	}
}

const insertUnitQuery = `
	INSERT INTO units (
		block_lot, project, phase, unit_type, selling_price, stage,
		buyer_name, buyer_contact, buyer_email,
		total_months, months_paid, monthly_amount, next_due_date,
		monthly_dues, dues_paid_at, created_at
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, NOW())
	RETURNING id, created_at
`

func (s *Store) CreateUnit(ctx context.Context, u *unit.Unit) error {
	err := s.db.QueryRowContext(ctx, insertUnitQuery, unitArgs(u)...).Scan(&u.ID, &u.CreatedAt)
	if err != nil {
		return fmt.Errorf("creating unit: %w", err)
	}

	return nil
}

// CreateUnits inserts all units in one database transaction.
func (s *Store) CreateUnits(ctx context.Context, units []*unit.Unit) error {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer dbTx.Rollback()

	for _, u := range units {
		if err := dbTx.QueryRowContext(ctx, insertUnitQuery, unitArgs(u)...).Scan(&u.ID, &u.CreatedAt); err != nil {
			return fmt.Errorf("creating unit %s: %w", u.BlockLot, err)
		}
	}

	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	return nil
}

func (s *Store) GetUnit(ctx context.Context, id uuid.UUID) (*unit.Unit, error) {
	query := `SELECT ` + selectUnitColumns + `
		FROM units u
		WHERE u.id = $1 AND u.deleted_at IS NULL`

	u, err := scanUnit(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, unit.ErrNotFound
		}

		return nil, fmt.Errorf("getting unit: %w", err)
	}

	return u, nil
}

func (s *Store) ListUnits(ctx context.Context, filter unit.ListFilter) ([]*unit.Unit, error) {
	query := `SELECT ` + selectUnitColumns + `
		FROM units u
		WHERE u.deleted_at IS NULL`

	var args []any

	argIdx := 1

	if filter.Project != nil {
		query += fmt.Sprintf(" AND lower(u.project) = lower($%d)", argIdx)

		args = append(args, *filter.Project)
		argIdx++
	}

	if filter.Stage != nil {
		query += fmt.Sprintf(" AND u.stage = $%d", argIdx)

		args = append(args, string(*filter.Stage))
		argIdx++
	}

	if filter.BuyerEmail != nil {
		query += fmt.Sprintf(" AND lower(u.buyer_email) = lower($%d)", argIdx)

		args = append(args, *filter.BuyerEmail)
		argIdx++
	}

	query += " ORDER BY u.project ASC, u.block_lot ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing units: %w", err)
	}
	defer rows.Close()

	var units []*unit.Unit

	for rows.Next() {
		u, err := scanUnit(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning unit: %w", err)
		}

		units = append(units, u)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating unit rows: %w", err)
	}

	return units, nil
}

// UpdateUnit locks the unit row for the length of the transaction, so
// concurrent updates of one unit apply one after the other.
func (s *Store) UpdateUnit(ctx context.Context, id uuid.UUID, fn func(u *unit.Unit) error) (*unit.Unit, error) {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer dbTx.Rollback()

	query := `SELECT ` + selectUnitColumns + `
		FROM units u
		WHERE u.id = $1 AND u.deleted_at IS NULL
		FOR UPDATE OF u`

	u, err := scanUnit(dbTx.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, unit.ErrNotFound
		}

		return nil, fmt.Errorf("locking unit: %w", err)
	}

	if err := fn(u); err != nil {
		return nil, err
	}

	update := `
		UPDATE units
		SET block_lot = $1, project = $2, phase = $3, unit_type = $4, selling_price = $5, stage = $6,
			buyer_name = $7, buyer_contact = $8, buyer_email = $9,
			total_months = $10, months_paid = $11, monthly_amount = $12, next_due_date = $13,
			monthly_dues = $14, dues_paid_at = $15, updated_at = NOW()
		WHERE id = $16
		RETURNING updated_at
	`

	args := append(unitArgs(u), id)

	if err := dbTx.QueryRowContext(ctx, update, args...).Scan(&u.UpdatedAt); err != nil {
		return nil, fmt.Errorf("updating unit: %w", err)
	}

	if err := dbTx.Commit(); err != nil {
		return nil, fmt.Errorf("committing transaction: %w", err)
	}

	u.ID = id

	return u, nil
}

func (s *Store) DeleteUnit(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE units
		SET deleted_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
	`

	return expectOne(s.db.ExecContext(ctx, query, id))
}

// AppendNote adds a note at the next position. Appends to the same unit are
// serialised with a transaction-scoped advisory lock.
func (s *Store) AppendNote(ctx context.Context, id uuid.UUID, note string) error {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer dbTx.Rollback()

	if err := appendNote(ctx, dbTx, id, note); err != nil {
		return err
	}

	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	return nil
}

func appendNote(ctx context.Context, tx *sql.Tx, id uuid.UUID, note string) error {
	if _, err := tx.ExecContext(ctx, "SELECT pg_advisory_xact_lock($1)", noteLockKey(id)); err != nil {
		return fmt.Errorf("acquiring note lock: %w", err)
	}

	var exists bool
	if err := tx.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM units WHERE id = $1 AND deleted_at IS NULL)`, id,
	).Scan(&exists); err != nil {
		return fmt.Errorf("checking unit: %w", err)
	}

	if !exists {
		return unit.ErrNotFound
	}

	query := `
		INSERT INTO unit_notes (unit_id, position, body, created_at)
		SELECT $1, COALESCE(MAX(position), 0) + 1, $2, NOW()
		FROM unit_notes
		WHERE unit_id = $1
	`

	if _, err := tx.ExecContext(ctx, query, id, note); err != nil {
		return fmt.Errorf("appending note: %w", err)
	}

	return nil
}

func noteLockKey(id uuid.UUID) int64 {
	h := fnv.New64a()
	h.Write([]byte("unit_notes"))
	h.Write([]byte{0})
	h.Write(id[:])

	return int64(h.Sum64())
}

func expectOne(res sql.Result, err error) error {
	if err != nil {
		return fmt.Errorf("writing unit: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reading affected rows: %w", err)
	}

	if n == 0 {
		return unit.ErrNotFound
	}

	return nil
}
