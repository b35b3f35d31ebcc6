package http_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/MrJamesThe3rd/receivables/internal/auth"
	authStore "github.com/MrJamesThe3rd/receivables/internal/auth/memstore"
	"github.com/MrJamesThe3rd/receivables/internal/bulk"
	receivablesHttp "github.com/MrJamesThe3rd/receivables/internal/http"
	authHandler "github.com/MrJamesThe3rd/receivables/internal/http/auth"
	"github.com/MrJamesThe3rd/receivables/internal/http/middleware"
	reminderHandler "github.com/MrJamesThe3rd/receivables/internal/http/reminder"
	reportHandler "github.com/MrJamesThe3rd/receivables/internal/http/report"
	unitHandler "github.com/MrJamesThe3rd/receivables/internal/http/unit"
	"github.com/MrJamesThe3rd/receivables/internal/lifecycle"
	"github.com/MrJamesThe3rd/receivables/internal/reminder"
	"github.com/MrJamesThe3rd/receivables/internal/unit"
	"github.com/MrJamesThe3rd/receivables/internal/unit/memstore"
)

const password = "demo1234"

var refDate = time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)

var (
	criticalID  = uuid.MustParse("6b1f6a2e-0000-4000-8000-000000000001")
	availableID = uuid.MustParse("6b1f6a2e-0000-4000-8000-000000000002")
	otherID     = uuid.MustParse("6b1f6a2e-0000-4000-8000-000000000003")
)

func newRouter(t *testing.T) http.Handler {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)

	orgID := uuid.New()

	var users []*auth.User
	for _, u := range []struct {
		email string
		role  auth.Role
	}{
		{"admin@sunrise.test", auth.RoleAdmin},
		{"encoder@sunrise.test", auth.RoleEncoder},
		{"collector@sunrise.test", auth.RoleCollector},
		{"buyer@example.com", auth.RoleCustomer},
	} {
		users = append(users, &auth.User{
			ID: uuid.New(), OrganizationID: orgID, Email: u.email,
			FullName: string(u.role), Role: u.role, PasswordHash: string(hash),
		})
	}

	units := memstore.New(
		&unit.Unit{
			ID: criticalID, BlockLot: "B1-L1", Project: "Palm Grove", SellingPrice: 54000000,
			Stage: lifecycle.StatusMoveInConfirmed,
			Buyer: &unit.Buyer{Name: "Jose Cruz", Email: "buyer@example.com"},
			PaymentTerms: &unit.PaymentTerms{
				TotalMonths: 18, MonthsPaid: 2, MonthlyAmount: 3000000,
				NextDueDate: refDate.AddDate(0, 0, -136),
			},
		},
		&unit.Unit{
			ID: availableID, BlockLot: "B1-L2", Project: "Palm Grove", SellingPrice: 98000000,
			Stage: lifecycle.StatusAvailable,
		},
		&unit.Unit{
			ID: otherID, BlockLot: "B2-L1", Project: "Casa Verde", SellingPrice: 72000000,
			Stage: lifecycle.StatusMoveInConfirmed,
			Buyer: &unit.Buyer{Name: "Ana Reyes", Email: "ana@example.com"},
			PaymentTerms: &unit.PaymentTerms{
				TotalMonths: 24, MonthsPaid: 5, MonthlyAmount: 3000000,
				NextDueDate: refDate.AddDate(0, 0, 10),
			},
		},
	)

	var (
		unitSvc     = unit.NewService(units, unit.WithClock(func() time.Time { return refDate }))
		authSvc     = auth.NewService(authStore.New(users...), auth.NewTokens("test-secret", time.Hour))
		reminderSvc = reminder.NewService(unitSvc, reminder.NewLogPublisher(slog.New(slog.DiscardHandler)), nil)
		authn       = middleware.NewAuthenticator(authSvc)
	)

	return receivablesHttp.New(
		[]string{"http://localhost:5173"},
		authHandler.NewHandler(authSvc, time.Hour),
		unitHandler.NewHandler(unitSvc, bulk.NewService(unitSvc), authn),
		reportHandler.NewHandler(unitSvc, authn),
		reminderHandler.NewHandler(reminderSvc, authn),
	)
}

func do(t *testing.T, h http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	return rec
}

func login(t *testing.T, h http.Handler, email string) string {
	t.Helper()

	rec := do(t, h, http.MethodPost, "/api/v1/auth/login", "", map[string]string{"email": email, "password": password})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		AccessToken string `json:"access_token"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))

	return resp.AccessToken
}

type unitBody struct {
	ID         uuid.UUID        `json:"id"`
	BlockLot   string           `json:"block_lot"`
	Stage      lifecycle.Status `json:"stage"`
	Status     lifecycle.Status `json:"status"`
	Notes      []string         `json:"notes"`
	Assessment struct {
		DaysLate    int    `json:"days_late"`
		Arrears     int64  `json:"arrears"`
		PercentPaid string `json:"percent_paid"`
	} `json:"assessment"`
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()

	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v), rec.Body.String())

	return v
}

func TestLogin(t *testing.T) {
	h := newRouter(t)

	tests := []struct {
		name string
		body map[string]string
		want int
	}{
		{"Success", map[string]string{"email": "Admin@Sunrise.test", "password": password}, http.StatusOK},
		{"WrongPassword", map[string]string{"email": "admin@sunrise.test", "password": "nope"}, http.StatusUnauthorized},
		{"UnknownUser", map[string]string{"email": "ghost@sunrise.test", "password": password}, http.StatusUnauthorized},
		{"InvalidEmail", map[string]string{"email": "not-an-email", "password": password}, http.StatusBadRequest},
		{"MissingPassword", map[string]string{"email": "admin@sunrise.test"}, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, http.MethodPost, "/api/v1/auth/login", "", tt.body)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}
}

func TestAuthorization(t *testing.T) {
	h := newRouter(t)

	admin := login(t, h, "admin@sunrise.test")
	encoder := login(t, h, "encoder@sunrise.test")
	customer := login(t, h, "buyer@example.com")

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		want   int
	}{
		{"NoToken", http.MethodGet, "/api/v1/units", "", http.StatusUnauthorized},
		{"GarbageToken", http.MethodGet, "/api/v1/units", "garbage", http.StatusUnauthorized},
		{"EncoderCannotDelete", http.MethodDelete, "/api/v1/units/" + availableID.String(), encoder, http.StatusForbidden},
		{"EncoderCannotReadReports", http.MethodGet, "/api/v1/reports/summary", encoder, http.StatusForbidden},
		{"CustomerCannotListUnits", http.MethodGet, "/api/v1/units", customer, http.StatusForbidden},
		{"AdminHasNoPortal", http.MethodGet, "/api/v1/portal/units", admin, http.StatusForbidden},
		{"AdminDeletes", http.MethodDelete, "/api/v1/units/" + availableID.String(), admin, http.StatusNoContent},
		{"DeletedIsGone", http.MethodGet, "/api/v1/units/" + availableID.String(), admin, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, tt.method, tt.path, tt.token, nil)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}
}

func TestUnits_ListAndGet(t *testing.T) {
	h := newRouter(t)
	token := login(t, h, "collector@sunrise.test")

	rec := do(t, h, http.MethodGet, "/api/v1/units", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]unitBody](t, rec), 3)

	rec = do(t, h, http.MethodGet, "/api/v1/units?status=Critical", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	critical := decode[[]unitBody](t, rec)
	require.Len(t, critical, 1)
	assert.Equal(t, criticalID, critical[0].ID)
	assert.Equal(t, 136, critical[0].Assessment.DaysLate)
	assert.Equal(t, int64(12000000), critical[0].Assessment.Arrears)
	assert.Equal(t, "11.11", critical[0].Assessment.PercentPaid)

	rec = do(t, h, http.MethodGet, "/api/v1/units?project=casa+verde", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]unitBody](t, rec), 1)

	rec = do(t, h, http.MethodGet, "/api/v1/units?status=Late", token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/v1/units?stage=Critical", token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/v1/units/not-a-uuid", token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/v1/units/"+uuid.NewString(), token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUnits_Lifecycle(t *testing.T) {
	h := newRouter(t)
	token := login(t, h, "encoder@sunrise.test")

	rec := do(t, h, http.MethodPost, "/api/v1/units", token, map[string]any{
		"block_lot": "B5-L9", "project": "Palm Grove", "unit_type": "Townhouse", "selling_price": 210000000,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	created := decode[unitBody](t, rec)
	assert.Equal(t, lifecycle.StatusAvailable, created.Status)

	base := "/api/v1/units/" + created.ID.String()

	rec = do(t, h, http.MethodPost, base+"/move-in/confirm", token, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	steps := []struct {
		path string
		body any
		want lifecycle.Status
	}{
		{"/reserve", map[string]string{"name": "Liza Ramos", "email": "liza@example.com"}, lifecycle.StatusReserved},
		{"/move-in/schedule", nil, lifecycle.StatusMoveInScheduled},
		{"/move-in/confirm", nil, lifecycle.StatusMoveInConfirmed},
		{"/payment-plan", map[string]any{
			"total_months": 2, "monthly_amount": 105000000, "first_due_date": "2025-11-01",
		}, lifecycle.StatusOverdue},
		{"/payments", map[string]int{"months": 1}, lifecycle.StatusAtRisk},
		{"/payments", map[string]int{"months": 5}, lifecycle.StatusFullyPaid},
	}

	for _, step := range steps {
		rec := do(t, h, http.MethodPost, base+step.path, token, step.body)
		require.Equal(t, http.StatusOK, rec.Code, "%s: %s", step.path, rec.Body.String())
		assert.Equal(t, step.want, decode[unitBody](t, rec).Status, step.path)
	}

	rec = do(t, h, http.MethodPost, base+"/payments", token, map[string]int{"months": 1})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, h, http.MethodPost, base+"/dues-payments", token, map[string]string{"paid_at": "2026-01-10"})
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, h, http.MethodPost, base+"/notes", token, map[string]string{"note": "Turned over keys"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"Turned over keys"}, decode[unitBody](t, rec).Notes)
}

func TestUnits_PaymentPlanValidation(t *testing.T) {
	h := newRouter(t)
	token := login(t, h, "admin@sunrise.test")

	base := "/api/v1/units/" + availableID.String()
	require.Equal(t, http.StatusOK, do(t, h, http.MethodPost, base+"/reserve", token, map[string]string{"name": "Grace"}).Code)

	tests := []struct {
		name string
		body map[string]any
	}{
		{"ZeroMonths", map[string]any{"total_months": 0, "monthly_amount": 100, "first_due_date": "2026-02-01"}},
		{"ZeroAmount", map[string]any{"total_months": 12, "monthly_amount": 0, "first_due_date": "2026-02-01"}},
		{"BadDate", map[string]any{"total_months": 12, "monthly_amount": 100, "first_due_date": "02/01/2026"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, http.MethodPost, base+"/payment-plan", token, tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
		})
	}
}

func TestUnits_BulkNote(t *testing.T) {
	h := newRouter(t)
	token := login(t, h, "admin@sunrise.test")

	missing := uuid.New()

	rec := do(t, h, http.MethodPost, "/api/v1/units/notes", token, map[string]any{
		"unit_ids": []uuid.UUID{criticalID, otherID, criticalID, missing},
		"note":     "Called about January statement",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	results := decode[[]struct {
		UnitID uuid.UUID `json:"unit_id"`
		OK     bool      `json:"ok"`
	}](t, rec)
	require.Len(t, results, 3)
	assert.True(t, results[0].OK)
	assert.True(t, results[1].OK)
	assert.False(t, results[2].OK)

	rec = do(t, h, http.MethodPost, "/api/v1/units/notes", token, map[string]any{"unit_ids": []uuid.UUID{}, "note": "x"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUnits_Import(t *testing.T) {
	h := newRouter(t)
	token := login(t, h, "encoder@sunrise.test")

	var body bytes.Buffer

	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", "inventory.csv")
	require.NoError(t, err)

	_, err = fw.Write([]byte("Block/Lot;Project;Type;Price\nB9-L1;Palm Grove;Townhouse;1.500.000,00\nB9-L2;Palm Grove;Townhouse;abc\n"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/units/import", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	resp := decode[struct {
		Imported int `json:"imported"`
		Rejected []struct {
			Row int `json:"row"`
		} `json:"rejected"`
	}](t, rec)
	assert.Equal(t, 1, resp.Imported)
	require.Len(t, resp.Rejected, 1)
	assert.Equal(t, 3, resp.Rejected[0].Row)
}

func TestPortal_OwnUnitsOnly(t *testing.T) {
	h := newRouter(t)
	token := login(t, h, "buyer@example.com")

	rec := do(t, h, http.MethodGet, "/api/v1/portal/units", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	units := decode[[]unitBody](t, rec)
	require.Len(t, units, 1)
	assert.Equal(t, criticalID, units[0].ID)
	assert.Equal(t, lifecycle.StatusCritical, units[0].Status)
}

func TestPortal_TokenWithoutEmail(t *testing.T) {
	h := newRouter(t)

	token, err := auth.NewTokens("test-secret", time.Hour).Issue(&auth.User{
		ID:   uuid.New(),
		Role: auth.RoleCustomer,
	})
	require.NoError(t, err)

	rec := do(t, h, http.MethodGet, "/api/v1/portal/units", token, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestReports_Summary(t *testing.T) {
	h := newRouter(t)
	token := login(t, h, "collector@sunrise.test")

	rec := do(t, h, http.MethodGet, "/api/v1/reports/summary", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	s := decode[struct {
		AsOf         string                   `json:"as_of"`
		TotalUnits   int                      `json:"total_units"`
		Sold         int                      `json:"sold"`
		ByStatus     map[lifecycle.Status]int `json:"by_status"`
		TotalArrears int64                    `json:"total_arrears"`
		Aging        []struct {
			Label   string `json:"label"`
			Units   int    `json:"units"`
			MaxDays *int   `json:"max_days"`
		} `json:"aging"`
	}](t, rec)

	assert.Equal(t, "2026-01-15", s.AsOf)
	assert.Equal(t, 3, s.TotalUnits)
	assert.Equal(t, 2, s.Sold)
	assert.Equal(t, 1, s.ByStatus[lifecycle.StatusCritical])
	assert.Equal(t, int64(12000000), s.TotalArrears)
	require.Len(t, s.Aging, 5)
	assert.Equal(t, "120+", s.Aging[4].Label)
	assert.Equal(t, 1, s.Aging[4].Units)
	assert.Nil(t, s.Aging[4].MaxDays)
}

func TestReminders_Dispatch(t *testing.T) {
	h := newRouter(t)
	token := login(t, h, "collector@sunrise.test")

	rec := do(t, h, http.MethodGet, "/api/v1/reminders/preview", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]reminder.Reminder](t, rec), 1)

	rec = do(t, h, http.MethodPost, "/api/v1/reminders/dispatch", token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decode[struct {
		Sent      int                 `json:"sent"`
		Failed    int                 `json:"failed"`
		Reminders []reminder.Reminder `json:"reminders"`
	}](t, rec)
	assert.Equal(t, 1, resp.Sent)
	assert.Zero(t, resp.Failed)
	require.Len(t, resp.Reminders, 1)
	assert.Equal(t, "buyer@example.com", resp.Reminders[0].Recipient)

	encoder := login(t, h, "encoder@sunrise.test")
	assert.Equal(t, http.StatusForbidden, do(t, h, http.MethodPost, "/api/v1/reminders/dispatch", encoder, nil).Code)
}
