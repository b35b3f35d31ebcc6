// Package reminder composes payment reminders for delinquent units and
// dispatches them through a Publisher.
package reminder

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/receivables/internal/lifecycle"
	"github.com/MrJamesThe3rd/receivables/internal/money"
	"github.com/MrJamesThe3rd/receivables/internal/unit"
)

type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
)

// Reminder is a single message to the buyer of an aging unit.
type Reminder struct {
	ID        uuid.UUID        `json:"id"`
	UnitID    uuid.UUID        `json:"unit_id"`
	BlockLot  string           `json:"block_lot"`
	Project   string           `json:"project"`
	Status    lifecycle.Status `json:"status"`
	Channel   Channel          `json:"channel"`
	Recipient string           `json:"recipient"`
	Subject   string           `json:"subject"`
	Body      string           `json:"body"`
	AmountDue int64            `json:"amount_due"`
	DaysLate  int              `json:"days_late"`
	CreatedAt time.Time        `json:"created_at"`
}

// Compose builds one reminder per At Risk, Overdue or Critical unit whose buyer
// can be reached, most days late first. Email is preferred over SMS.
func Compose(units []unit.Assessed, now time.Time) []Reminder {
	var out []Reminder

	for _, u := range units {
		a := u.Assessment
		if !a.Status.IsAging() || u.Buyer == nil || u.PaymentTerms == nil {
			continue
		}

		channel, recipient := contact(u.Buyer)
		if recipient == "" {
			continue
		}

		due := a.Arrears
		if due == 0 {
			due = u.PaymentTerms.MonthlyAmount
		}

		out = append(out, Reminder{
			ID:        uuid.New(),
			UnitID:    u.ID,
			BlockLot:  u.BlockLot,
			Project:   u.Project,
			Status:    a.Status,
			Channel:   channel,
			Recipient: recipient,
			Subject:   subject(a.Status, u.Unit),
			Body:      body(u.Buyer.Name, u.Unit, due, a.DaysLate, u.PaymentTerms.NextDueDate),
			AmountDue: due,
			DaysLate:  a.DaysLate,
			CreatedAt: now,
		})
	}

	slices.SortStableFunc(out, func(a, b Reminder) int {
		return b.DaysLate - a.DaysLate
	})

	return out
}

func contact(b *unit.Buyer) (Channel, string) {
	if email := strings.TrimSpace(b.Email); email != "" {
		return ChannelEmail, email
	}

	return ChannelSMS, strings.TrimSpace(b.Contact)
}

func subject(status lifecycle.Status, u *unit.Unit) string {
	switch status {
	case lifecycle.StatusCritical:
		return fmt.Sprintf("Final notice: %s %s account is critically past due", u.Project, u.BlockLot)
	case lifecycle.StatusOverdue:
		return fmt.Sprintf("Overdue payment for %s %s", u.Project, u.BlockLot)
	default:
		return fmt.Sprintf("Payment reminder for %s %s", u.Project, u.BlockLot)
	}
}

func body(name string, u *unit.Unit, due int64, daysLate int, nextDue time.Time) string {
	return fmt.Sprintf(
		"Good day %s,\n\nOur records show %s outstanding on %s %s, due since %s (%d days late).\n"+
			"Please settle the amount or contact our collections team to arrange payment.\n",
		name, money.Format(due), u.Project, u.BlockLot, nextDue.Format(time.DateOnly), daysLate,
	)
}
