package seed

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/MrJamesThe3rd/receivables/internal/lifecycle"
)

var validate = validator.New()

// Params drive dataset generation. The same params always yield the same ids
// and the same narrative.
type Params struct {
	OrgName       string `validate:"required"`
	OrgSlug       string `validate:"required,lowercase"`
	AdminEmail    string `validate:"required,email"`
	AdminPassword string `validate:"required,min=8"`
	Units         int    `validate:"min=9,max=5000"`
	Seed          uint64
	HashCost      int `validate:"omitempty,min=4,max=31"`

	// Now is the reference date the narrative statuses are anchored to.
	Now    time.Time
	Policy lifecycle.Policy
}

func (p *Params) Validate() error {
	if err := validate.Struct(p); err != nil {
		return fmt.Errorf("invalid seed params: %w", err)
	}

	if p.Now.IsZero() {
		return errors.New("invalid seed params: reference date is required")
	}

	if err := p.Policy.Validate(); err != nil {
		return fmt.Errorf("invalid seed params: %w", err)
	}

	return nil
}

func (p *Params) withDefaults() {
	if p.HashCost == 0 {
		p.HashCost = bcrypt.DefaultCost
	}

	if p.Policy == (lifecycle.Policy{}) {
		p.Policy = lifecycle.DefaultPolicy()
	}

	p.Now = time.Date(p.Now.Year(), p.Now.Month(), p.Now.Day(), 0, 0, 0, 0, time.UTC)
}
