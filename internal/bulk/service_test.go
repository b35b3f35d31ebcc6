package bulk_test

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/receivables/internal/bulk"
	"github.com/MrJamesThe3rd/receivables/internal/lifecycle"
	"github.com/MrJamesThe3rd/receivables/internal/unit"
	"github.com/MrJamesThe3rd/receivables/internal/unit/memstore"
)

func TestService_Import(t *testing.T) {
	units := unit.NewService(memstore.New())
	svc := bulk.NewService(units)

	res, err := svc.Import(context.Background(), strings.NewReader(`Block/Lot;Project;Price
B1-L1;Palm Grove;1.500.000,00
B1-L2;Palm Grove;bad
B1-L3;Palm Grove;1.600.000,00
`))
	require.NoError(t, err)
	require.Len(t, res.Created, 2)
	require.Len(t, res.Parsed.Errors, 1)
	assert.Equal(t, 3, res.Parsed.Errors[0].Row)

	all, err := units.List(context.Background(), unit.ListFilter{})
	require.NoError(t, err)
	require.Len(t, all, 2)

	for _, a := range all {
		assert.Equal(t, lifecycle.StatusAvailable, a.Status())
	}
}

func TestService_AddNote(t *testing.T) {
	ctx := context.Background()
	units := unit.NewService(memstore.New())

	u1, err := units.Create(ctx, unit.CreateParams{BlockLot: "B1-L1", Project: "Palm Grove"})
	require.NoError(t, err)

	u2, err := units.Create(ctx, unit.CreateParams{BlockLot: "B1-L2", Project: "Palm Grove"})
	require.NoError(t, err)

	missing := uuid.New()
	svc := bulk.NewService(units)

	results, err := svc.AddNote(ctx, []uuid.UUID{u1.ID, u2.ID, u1.ID, missing}, "Site visit on Saturday")
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.NoError(t, results[0].Err)
	assert.NoError(t, results[1].Err)
	assert.ErrorIs(t, results[2].Err, unit.ErrNotFound)

	got, err := units.Get(ctx, u1.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"Site visit on Saturday"}, got.Notes)

	_, err = svc.AddNote(ctx, []uuid.UUID{u1.ID}, "   ")
	assert.ErrorIs(t, err, unit.ErrEmptyNote)

	_, err = svc.AddNote(ctx, nil, "note")
	assert.Error(t, err)
}
