package reminder_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MrJamesThe3rd/receivables/internal/lifecycle"
	"github.com/MrJamesThe3rd/receivables/internal/reminder"
	"github.com/MrJamesThe3rd/receivables/internal/unit"
	"github.com/MrJamesThe3rd/receivables/internal/unit/memstore"
)

var now = time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)

func financed(blockLot string, buyer *unit.Buyer, monthly int64, paid, total, daysLate int) *unit.Unit {
	return &unit.Unit{
		ID:       uuid.New(),
		BlockLot: blockLot,
		Project:  "Palm Grove",
		Stage:    lifecycle.StatusMoveInConfirmed,
		Buyer:    buyer,
		PaymentTerms: &unit.PaymentTerms{
			TotalMonths:   total,
			MonthsPaid:    paid,
			MonthlyAmount: monthly,
			NextDueDate:   now.AddDate(0, 0, -daysLate),
		},
	}
}

func assessAll(units ...*unit.Unit) []unit.Assessed {
	p := lifecycle.DefaultPolicy()

	out := make([]unit.Assessed, len(units))
	for i, u := range units {
		out[i] = unit.Assessed{Unit: u, Assessment: p.Assess(u.Stage, u.Schedule(), now)}
	}

	return out
}

func TestCompose(t *testing.T) {
	email := &unit.Buyer{Name: "Maria Santos", Email: "maria@example.com", Contact: "0917 000 0000"}
	phone := &unit.Buyer{Name: "Jose Cruz", Contact: "0918 111 1111"}
	unreachable := &unit.Buyer{Name: "No Contact"}

	units := assessAll(
		financed("B1-L1", email, 3500000, 19, 24, 45),
		financed("B1-L2", phone, 3000000, 2, 18, 136),
		financed("B1-L3", email, 2000000, 3, 10, 10),
		financed("B1-L4", email, 2000000, 10, 10, 200),
		financed("B1-L5", unreachable, 2000000, 1, 10, 90),
		&unit.Unit{ID: uuid.New(), BlockLot: "B1-L6", Stage: lifecycle.StatusReserved, Buyer: email},
	)

	got := reminder.Compose(units, now)
	require.Len(t, got, 2)

	critical := got[0]
	assert.Equal(t, "B1-L2", critical.BlockLot)
	assert.Equal(t, lifecycle.StatusCritical, critical.Status)
	assert.Equal(t, reminder.ChannelSMS, critical.Channel)
	assert.Equal(t, "0918 111 1111", critical.Recipient)
	assert.Equal(t, int64(12000000), critical.AmountDue)
	assert.Equal(t, 136, critical.DaysLate)
	assert.Contains(t, critical.Subject, "Final notice")
	assert.Contains(t, critical.Body, "₱120,000.00")
	assert.Contains(t, critical.Body, "136 days late")

	atRisk := got[1]
	assert.Equal(t, "B1-L1", atRisk.BlockLot)
	assert.Equal(t, reminder.ChannelEmail, atRisk.Channel)
	assert.Equal(t, "maria@example.com", atRisk.Recipient)
	assert.Equal(t, int64(3500000), atRisk.AmountDue)
	assert.Contains(t, atRisk.Body, "Maria Santos")
	assert.Equal(t, now, atRisk.CreatedAt)
	assert.NotEqual(t, uuid.Nil, atRisk.ID)
}

func TestDispatcher_Dispatch(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	ok := reminder.Reminder{ID: uuid.New(), UnitID: uuid.New(), BlockLot: "B1-L1"}
	bad := reminder.Reminder{ID: uuid.New(), UnitID: uuid.New(), BlockLot: "B1-L2"}

	pub := reminder.NewMockPublisher(ctrl)
	gomock.InOrder(
		pub.EXPECT().Publish(gomock.Any(), ok).Return(nil),
		pub.EXPECT().Publish(gomock.Any(), bad).Return(errors.New("broker unavailable")),
	)

	records, err := reminder.NewDispatcher(pub).Dispatch(context.Background(), []reminder.Reminder{ok, bad})
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, ok.ID, records[0].ReminderID)
	assert.Equal(t, reminder.DispatchSent, records[0].Status)
	assert.Empty(t, records[0].Error)
	assert.False(t, records[0].SentAt.IsZero())

	assert.Equal(t, bad.UnitID, records[1].UnitID)
	assert.Equal(t, reminder.DispatchFailed, records[1].Status)
	assert.Equal(t, "broker unavailable", records[1].Error)
}

func TestDispatcher_Dispatch_Cancelled(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	records, err := reminder.NewDispatcher(reminder.NewMockPublisher(ctrl)).
		Dispatch(ctx, []reminder.Reminder{{ID: uuid.New()}})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, records)
}

type fakeHistory struct {
	reminders []reminder.Reminder
	records   []reminder.Record
}

func (f *fakeHistory) SaveDispatch(_ context.Context, reminders []reminder.Reminder, records []reminder.Record) error {
	f.reminders = append(f.reminders, reminders...)
	f.records = append(f.records, records...)

	return nil
}

func TestService_Send(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	buyer := &unit.Buyer{Name: "Maria Santos", Email: "maria@example.com"}
	store := memstore.New(
		financed("B2-L1", buyer, 3500000, 19, 24, 45),
		financed("B2-L2", buyer, 3500000, 1, 24, 5),
	)

	units := unit.NewService(store, unit.WithClock(func() time.Time { return now }))

	pub := reminder.NewMockPublisher(ctrl)
	pub.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(nil).Times(1)

	history := &fakeHistory{}
	svc := reminder.NewService(units, pub, history)

	preview, err := svc.Preview(context.Background(), unit.ListFilter{})
	require.NoError(t, err)
	require.Len(t, preview, 1)

	reminders, records, err := svc.Send(context.Background(), unit.ListFilter{})
	require.NoError(t, err)
	require.Len(t, reminders, 1)
	require.Len(t, records, 1)
	assert.Equal(t, "B2-L1", reminders[0].BlockLot)
	assert.Equal(t, reminder.DispatchSent, records[0].Status)

	assert.Len(t, history.reminders, 1)
	assert.Len(t, history.records, 1)
}

func TestFanout_Publish(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	r := reminder.Reminder{ID: uuid.New(), BlockLot: "B1-L1"}

	first := reminder.NewMockPublisher(ctrl)
	second := reminder.NewMockPublisher(ctrl)

	first.EXPECT().Publish(gomock.Any(), r).Return(errors.New("smtp down"))
	second.EXPECT().Publish(gomock.Any(), r).Return(nil)

	err := reminder.Fanout{first, second}.Publish(context.Background(), r)
	assert.EqualError(t, err, "smtp down")

	assert.NoError(t, reminder.Fanout{}.Publish(context.Background(), r))
}

func TestScheduler(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	buyer := &unit.Buyer{Name: "Jose Cruz", Contact: "+639171234567"}
	store := memstore.New(
		financed("B5-L1", buyer, 2000000, 3, 24, 80),
		financed("B5-L2", buyer, 2000000, 3, 24, 130),
	)

	units := unit.NewService(store, unit.WithClock(func() time.Time { return now }))

	pub := reminder.NewMockPublisher(ctrl)
	gomock.InOrder(
		pub.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(nil),
		pub.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(errors.New("undeliverable")),
	)

	_, err := reminder.NewScheduler(reminder.NewService(units, pub, nil), "not a schedule")
	require.Error(t, err)

	s, err := reminder.NewScheduler(reminder.NewService(units, pub, nil), "0 9 * * *")
	require.NoError(t, err)

	sent, failed := s.RunOnce(context.Background())
	assert.Equal(t, 1, sent)
	assert.Equal(t, 1, failed)

	s.Start()
	assert.False(t, s.Next().IsZero())
	s.Stop()
}
