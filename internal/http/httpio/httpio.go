// Package httpio holds the request decoding and response writing shared by
// the API handlers.
package httpio

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/MrJamesThe3rd/receivables/internal/auth"
	"github.com/MrJamesThe3rd/receivables/internal/bulk"
	"github.com/MrJamesThe3rd/receivables/internal/unit"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Decode reads a JSON body into v and validates its struct tags.
func Decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("decoding body: %w", err)
	}

	if err := validate.Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("field %s failed %q validation", fe.Field(), fe.Tag())
		}

		return err
	}

	return nil
}

// JSON writes v with the given status code.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// Error maps domain errors to status codes. Unknown errors are logged and
// reported as a bare 500.
func Error(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, unit.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, unit.ErrInvalidTransition):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, unit.ErrInvalidTerms),
		errors.Is(err, unit.ErrEmptyNote),
		errors.Is(err, bulk.ErrUnknownFormat):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, auth.ErrInvalidCredentials), errors.Is(err, auth.ErrInvalidToken):
		http.Error(w, err.Error(), http.StatusUnauthorized)
	case errors.Is(err, auth.ErrForbidden):
		http.Error(w, err.Error(), http.StatusForbidden)
	default:
		slog.Error("request failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
