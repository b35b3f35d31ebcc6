package reminder

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MrJamesThe3rd/receivables/internal/auth"
	"github.com/MrJamesThe3rd/receivables/internal/http/httpio"
	"github.com/MrJamesThe3rd/receivables/internal/http/middleware"
	unitHandler "github.com/MrJamesThe3rd/receivables/internal/http/unit"
	"github.com/MrJamesThe3rd/receivables/internal/reminder"
)

type Handler struct {
	svc   *reminder.Service
	authn *middleware.Authenticator
}

func NewHandler(svc *reminder.Service, authn *middleware.Authenticator) *Handler {
	return &Handler{svc: svc, authn: authn}
}

func (h *Handler) Routes(r chi.Router) {
	can := h.authn.Require

	r.With(can(auth.CapReportsRead)).Get("/preview", h.preview)
	r.With(can(auth.CapRemindersSend)).Post("/dispatch", h.dispatch)
}

type dispatchResponse struct {
	Reminders []reminder.Reminder `json:"reminders"`
	Records   []reminder.Record   `json:"records"`
	Sent      int                 `json:"sent"`
	Failed    int                 `json:"failed"`
}

func (h *Handler) preview(w http.ResponseWriter, r *http.Request) {
	filter, err := unitHandler.ParseFilter(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	reminders, err := h.svc.Preview(r.Context(), filter)
	if err != nil {
		httpio.Error(w, err)
		return
	}

	if reminders == nil {
		reminders = []reminder.Reminder{}
	}

	httpio.JSON(w, http.StatusOK, reminders)
}

// dispatch sends reminders for the aging units matching the query filter.
func (h *Handler) dispatch(w http.ResponseWriter, r *http.Request) {
	filter, err := unitHandler.ParseFilter(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	reminders, records, err := h.svc.Send(r.Context(), filter)
	if err != nil {
		httpio.Error(w, err)
		return
	}

	resp := dispatchResponse{
		Reminders: reminders,
		Records:   records,
	}

	if resp.Reminders == nil {
		resp.Reminders = []reminder.Reminder{}
	}

	if resp.Records == nil {
		resp.Records = []reminder.Record{}
	}

	for _, rec := range records {
		if rec.Status == reminder.DispatchSent {
			resp.Sent++
		} else {
			resp.Failed++
		}
	}

	httpio.JSON(w, http.StatusOK, resp)
}
