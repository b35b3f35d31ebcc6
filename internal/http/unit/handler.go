package unit

import (
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/receivables/internal/auth"
	"github.com/MrJamesThe3rd/receivables/internal/bulk"
	"github.com/MrJamesThe3rd/receivables/internal/http/httpio"
	"github.com/MrJamesThe3rd/receivables/internal/http/middleware"
	"github.com/MrJamesThe3rd/receivables/internal/lifecycle"
	"github.com/MrJamesThe3rd/receivables/internal/unit"
)

const maxUploadSize = 10 << 20

type Handler struct {
	svc   *unit.Service
	bulk  *bulk.Service
	authn *middleware.Authenticator
}

func NewHandler(svc *unit.Service, bulkSvc *bulk.Service, authn *middleware.Authenticator) *Handler {
	return &Handler{svc: svc, bulk: bulkSvc, authn: authn}
}

func (h *Handler) Routes(r chi.Router) {
	can := h.authn.Require

	r.With(can(auth.CapUnitsWrite)).Post("/import", h.importCSV)

	r.Group(func(r chi.Router) {
		r.Use(chimw.AllowContentType("application/json"))

		r.With(can(auth.CapUnitsRead)).Get("/", h.list)
		r.With(can(auth.CapUnitsWrite)).Post("/", h.create)
		r.With(can(auth.CapUnitsWrite)).Post("/notes", h.bulkNote)

		r.With(can(auth.CapUnitsRead)).Get("/{id}", h.get)
		r.With(can(auth.CapUnitsDelete)).Delete("/{id}", h.delete)
		r.With(can(auth.CapUnitsWrite)).Post("/{id}/reserve", h.reserve)
		r.With(can(auth.CapUnitsWrite)).Post("/{id}/move-in/schedule", h.scheduleMoveIn)
		r.With(can(auth.CapUnitsWrite)).Post("/{id}/move-in/confirm", h.confirmMoveIn)
		r.With(can(auth.CapUnitsWrite)).Post("/{id}/payment-plan", h.startPaymentPlan)
		r.With(can(auth.CapPaymentsRecord)).Post("/{id}/payments", h.recordPayment)
		r.With(can(auth.CapPaymentsRecord)).Post("/{id}/dues-payments", h.recordDuesPayment)
		r.With(can(auth.CapUnitsWrite)).Post("/{id}/notes", h.addNote)
	})
}

// PortalRoutes serves the signed-in customer's own units.
func (h *Handler) PortalRoutes(r chi.Router) {
	r.With(h.authn.Require(auth.CapPortalRead)).Get("/units", h.portalUnits)
}

// ParseFilter reads the project, stage, status and buyer_email query parameters.
func ParseFilter(r *http.Request) (unit.ListFilter, error) {
	var filter unit.ListFilter

	q := r.URL.Query()

	if s := q.Get("project"); s != "" {
		filter.Project = new(s)
	}

	if s := q.Get("buyer_email"); s != "" {
		filter.BuyerEmail = new(s)
	}

	if s := q.Get("stage"); s != "" {
		st := lifecycle.Status(s)
		if !st.IsPreSale() {
			return filter, fmt.Errorf("unknown stage %q", s)
		}

		filter.Stage = &st
	}

	if s := q.Get("status"); s != "" {
		st := lifecycle.Status(s)
		if !slices.Contains(lifecycle.Statuses, st) {
			return filter, fmt.Errorf("unknown status %q", s)
		}

		filter.Status = &st
	}

	return filter, nil
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	filter, err := ParseFilter(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	units, err := h.svc.List(r.Context(), filter)
	if err != nil {
		httpio.Error(w, err)
		return
	}

	httpio.JSON(w, http.StatusOK, toResponseList(units))
}

type createUnitRequest struct {
	BlockLot     string `json:"block_lot" validate:"required"`
	Project      string `json:"project" validate:"required"`
	Phase        string `json:"phase"`
	UnitType     string `json:"unit_type"`
	SellingPrice int64  `json:"selling_price" validate:"gt=0"`
	MonthlyDues  int64  `json:"monthly_dues" validate:"gte=0"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createUnitRequest
	if err := httpio.Decode(r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	u, err := h.svc.Create(r.Context(), unit.CreateParams{
		BlockLot:     req.BlockLot,
		Project:      req.Project,
		Phase:        req.Phase,
		UnitType:     req.UnitType,
		SellingPrice: req.SellingPrice,
		MonthlyDues:  req.MonthlyDues,
	})
	if err != nil {
		httpio.Error(w, err)
		return
	}

	httpio.JSON(w, http.StatusCreated, toResponse(h.svc.Assess(u)))
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	u, err := h.svc.Get(r.Context(), id)
	if err != nil {
		httpio.Error(w, err)
		return
	}

	httpio.JSON(w, http.StatusOK, toResponse(h.svc.Assess(u)))
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	if err := h.svc.Delete(r.Context(), id); err != nil {
		httpio.Error(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type reserveRequest struct {
	Name    string `json:"name" validate:"required"`
	Contact string `json:"contact"`
	Email   string `json:"email" validate:"omitempty,email"`
}

func (h *Handler) reserve(w http.ResponseWriter, r *http.Request) {
	var req reserveRequest

	h.transition(w, r, &req, func(id uuid.UUID) (*unit.Unit, error) {
		return h.svc.Reserve(r.Context(), id, unit.Buyer{
			Name:    strings.TrimSpace(req.Name),
			Contact: strings.TrimSpace(req.Contact),
			Email:   strings.ToLower(strings.TrimSpace(req.Email)),
		})
	})
}

func (h *Handler) scheduleMoveIn(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, nil, func(id uuid.UUID) (*unit.Unit, error) {
		return h.svc.ScheduleMoveIn(r.Context(), id)
	})
}

func (h *Handler) confirmMoveIn(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, nil, func(id uuid.UUID) (*unit.Unit, error) {
		return h.svc.ConfirmMoveIn(r.Context(), id)
	})
}

type paymentPlanRequest struct {
	TotalMonths   int    `json:"total_months" validate:"min=1"`
	MonthlyAmount int64  `json:"monthly_amount" validate:"gt=0"`
	FirstDueDate  string `json:"first_due_date" validate:"required,datetime=2006-01-02"`
	MonthlyDues   int64  `json:"monthly_dues" validate:"gte=0"`
}

func (h *Handler) startPaymentPlan(w http.ResponseWriter, r *http.Request) {
	var req paymentPlanRequest

	h.transition(w, r, &req, func(id uuid.UUID) (*unit.Unit, error) {
		due, err := time.Parse(time.DateOnly, req.FirstDueDate)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", unit.ErrInvalidTerms, err)
		}

		return h.svc.StartPaymentPlan(r.Context(), id, unit.PlanParams{
			TotalMonths:   req.TotalMonths,
			MonthlyAmount: req.MonthlyAmount,
			FirstDueDate:  due,
			MonthlyDues:   req.MonthlyDues,
		})
	})
}

type paymentRequest struct {
	Months int `json:"months" validate:"min=1"`
}

func (h *Handler) recordPayment(w http.ResponseWriter, r *http.Request) {
	var req paymentRequest

	h.transition(w, r, &req, func(id uuid.UUID) (*unit.Unit, error) {
		return h.svc.RecordPayment(r.Context(), id, req.Months)
	})
}

type duesPaymentRequest struct {
	PaidAt string `json:"paid_at" validate:"omitempty,datetime=2006-01-02"`
}

func (h *Handler) recordDuesPayment(w http.ResponseWriter, r *http.Request) {
	var req duesPaymentRequest

	h.transition(w, r, &req, func(id uuid.UUID) (*unit.Unit, error) {
		paidAt := h.svc.Now()

		if req.PaidAt != "" {
			t, err := time.Parse(time.DateOnly, req.PaidAt)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", unit.ErrInvalidTerms, err)
			}

			paidAt = t
		}

		return h.svc.RecordDuesPayment(r.Context(), id, paidAt)
	})
}

type noteRequest struct {
	Note string `json:"note" validate:"required"`
}

func (h *Handler) addNote(w http.ResponseWriter, r *http.Request) {
	var req noteRequest

	h.transition(w, r, &req, func(id uuid.UUID) (*unit.Unit, error) {
		if err := h.svc.AddNote(r.Context(), id, req.Note); err != nil {
			return nil, err
		}

		return h.svc.Get(r.Context(), id)
	})
}

// transition decodes req (when non-nil), applies fn to the unit in the path
// and responds with the updated, reassessed unit.
func (h *Handler) transition(w http.ResponseWriter, r *http.Request, req any, fn func(uuid.UUID) (*unit.Unit, error)) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	if req != nil {
		if err := httpio.Decode(r, req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	u, err := fn(id)
	if err != nil {
		httpio.Error(w, err)
		return
	}

	httpio.JSON(w, http.StatusOK, toResponse(h.svc.Assess(u)))
}

type bulkNoteRequest struct {
	UnitIDs []uuid.UUID `json:"unit_ids" validate:"min=1"`
	Note    string      `json:"note" validate:"required"`
}

type bulkNoteResult struct {
	UnitID uuid.UUID `json:"unit_id"`
	OK     bool      `json:"ok"`
	Error  string    `json:"error,omitempty"`
}

func (h *Handler) bulkNote(w http.ResponseWriter, r *http.Request) {
	var req bulkNoteRequest
	if err := httpio.Decode(r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	results, err := h.bulk.AddNote(r.Context(), req.UnitIDs, req.Note)
	if err != nil {
		httpio.Error(w, err)
		return
	}

	resp := make([]bulkNoteResult, len(results))
	for i, res := range results {
		resp[i] = bulkNoteResult{UnitID: res.UnitID, OK: res.Err == nil}
		if res.Err != nil {
			resp[i].Error = res.Err.Error()
		}
	}

	httpio.JSON(w, http.StatusOK, resp)
}

type rowErrorResponse struct {
	Row   int    `json:"row"`
	Error string `json:"error"`
}

type importResponse struct {
	Profile  string             `json:"profile"`
	Charset  string             `json:"charset"`
	Imported int                `json:"imported"`
	Units    []unitResponse     `json:"units"`
	Rejected []rowErrorResponse `json:"rejected"`
}

func (h *Handler) importCSV(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		http.Error(w, "failed to parse form: "+err.Error(), http.StatusBadRequest)
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "missing file: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer file.Close()

	res, err := h.bulk.Import(r.Context(), file)
	if err != nil {
		httpio.Error(w, err)
		return
	}

	resp := importResponse{
		Profile:  res.Parsed.Profile,
		Charset:  string(res.Parsed.Charset),
		Imported: len(res.Created),
		Units:    toResponseList(h.svc.AssessAll(res.Created)),
		Rejected: make([]rowErrorResponse, len(res.Parsed.Errors)),
	}

	for i, re := range res.Parsed.Errors {
		resp.Rejected[i] = rowErrorResponse{Row: re.Row, Error: re.Err.Error()}
	}

	httpio.JSON(w, http.StatusCreated, resp)
}

func (h *Handler) portalUnits(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFrom(r.Context())
	if !ok {
		httpio.Error(w, errors.New("claims missing from context"))
		return
	}

	email := strings.TrimSpace(claims.Email)
	if email == "" {
		httpio.Error(w, fmt.Errorf("%w: token carries no email", auth.ErrForbidden))
		return
	}

	units, err := h.svc.List(r.Context(), unit.ListFilter{BuyerEmail: &email})
	if err != nil {
		httpio.Error(w, err)
		return
	}

	httpio.JSON(w, http.StatusOK, toResponseList(units))
}
