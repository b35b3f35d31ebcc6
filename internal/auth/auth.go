package auth

import (
	"errors"
	"slices"

	"github.com/google/uuid"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
	ErrForbidden          = errors.New("forbidden")
	ErrUnknownRole        = errors.New("unknown role")
)

// Role is the job function of a user.
type Role string

const (
	RoleAdmin     Role = "Admin"
	RoleManager   Role = "Manager"
	RoleCollector Role = "Collector"
	RoleEncoder   Role = "Encoder"
	RoleCustomer  Role = "Customer"
)

// Capability is a single permission checked on the server.
type Capability string

const (
	CapUnitsRead      Capability = "units:read"
	CapUnitsWrite     Capability = "units:write"
	CapUnitsDelete    Capability = "units:delete"
	CapPaymentsRecord Capability = "payments:record"
	CapReportsRead    Capability = "reports:read"
	CapRemindersSend  Capability = "reminders:send"
	CapPortalRead     Capability = "portal:read"
)

var policy = map[Role][]Capability{
	RoleAdmin: {
		CapUnitsRead, CapUnitsWrite, CapUnitsDelete, CapPaymentsRecord,
		CapReportsRead, CapRemindersSend,
	},
	RoleManager: {
		CapUnitsRead, CapUnitsWrite, CapUnitsDelete, CapPaymentsRecord,
		CapReportsRead, CapRemindersSend,
	},
	RoleCollector: {CapUnitsRead, CapPaymentsRecord, CapReportsRead, CapRemindersSend},
	RoleEncoder:   {CapUnitsRead, CapUnitsWrite, CapPaymentsRecord},
	RoleCustomer:  {CapPortalRead},
}

func ParseRole(s string) (Role, error) {
	r := Role(s)
	if _, ok := policy[r]; !ok {
		return "", ErrUnknownRole
	}

	return r, nil
}

// Can reports whether the role is granted the capability.
func (r Role) Can(c Capability) bool {
	return slices.Contains(policy[r], c)
}

// User is an account that can sign in.
type User struct {
	ID             uuid.UUID
	OrganizationID uuid.UUID
	Email          string
	FullName       string
	Role           Role
	PasswordHash   string
}
