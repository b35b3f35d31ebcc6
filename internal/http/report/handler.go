package report

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/receivables/internal/auth"
	"github.com/MrJamesThe3rd/receivables/internal/http/httpio"
	"github.com/MrJamesThe3rd/receivables/internal/http/middleware"
	unitHandler "github.com/MrJamesThe3rd/receivables/internal/http/unit"
	"github.com/MrJamesThe3rd/receivables/internal/lifecycle"
	"github.com/MrJamesThe3rd/receivables/internal/report"
	"github.com/MrJamesThe3rd/receivables/internal/unit"
)

type Handler struct {
	units *unit.Service
	authn *middleware.Authenticator
}

func NewHandler(units *unit.Service, authn *middleware.Authenticator) *Handler {
	return &Handler{units: units, authn: authn}
}

func (h *Handler) Routes(r chi.Router) {
	r.With(h.authn.Require(auth.CapReportsRead)).Get("/summary", h.summary)
}

type bucketResponse struct {
	Label   string `json:"label"`
	MinDays int    `json:"min_days"`
	MaxDays *int   `json:"max_days"`
	Units   int    `json:"units"`
	Arrears int64  `json:"arrears"`
	Balance int64  `json:"balance"`
}

type projectResponse struct {
	Project   string `json:"project"`
	Units     int    `json:"units"`
	Sold      int    `json:"sold"`
	Aging     int    `json:"aging"`
	Arrears   int64  `json:"arrears"`
	Collected int64  `json:"collected"`
}

type summaryResponse struct {
	AsOf           string                   `json:"as_of"`
	TotalUnits     int                      `json:"total_units"`
	Sold           int                      `json:"sold"`
	Unsold         int                      `json:"unsold"`
	ByStatus       map[lifecycle.Status]int `json:"by_status"`
	TotalArrears   int64                    `json:"total_arrears"`
	ContractValue  int64                    `json:"contract_value"`
	Collected      int64                    `json:"collected"`
	DueToDate      int64                    `json:"due_to_date"`
	Outstanding    int64                    `json:"outstanding"`
	CollectionRate decimal.Decimal          `json:"collection_rate"`
	Aging          []bucketResponse         `json:"aging"`
	Projects       []projectResponse        `json:"projects"`
}

func (h *Handler) summary(w http.ResponseWriter, r *http.Request) {
	filter, err := unitHandler.ParseFilter(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	units, err := h.units.List(r.Context(), filter)
	if err != nil {
		httpio.Error(w, err)
		return
	}

	s := report.Summarize(units, h.units.Policy())

	resp := summaryResponse{
		AsOf:           h.units.Now().Format("2006-01-02"),
		TotalUnits:     s.TotalUnits,
		Sold:           s.Sold,
		Unsold:         s.Unsold,
		ByStatus:       s.ByStatus,
		TotalArrears:   s.TotalArrears,
		ContractValue:  s.ContractValue,
		Collected:      s.Collected,
		DueToDate:      s.DueToDate,
		Outstanding:    s.Outstanding,
		CollectionRate: s.CollectionRate,
		Aging:          make([]bucketResponse, len(s.Aging)),
		Projects:       make([]projectResponse, len(s.Projects)),
	}

	for i, b := range s.Aging {
		resp.Aging[i] = bucketResponse{
			Label:   b.Label,
			MinDays: b.MinDays,
			Units:   b.Units,
			Arrears: b.Arrears,
			Balance: b.Balance,
		}
		if b.MaxDays >= 0 {
			resp.Aging[i].MaxDays = new(b.MaxDays)
		}
	}

	for i, p := range s.Projects {
		resp.Projects[i] = projectResponse(p)
	}

	httpio.JSON(w, http.StatusOK, resp)
}
