package v1_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"weighbridge/internal/core/apperror"
	appctx "weighbridge/internal/core/context"
	"weighbridge/internal/core/types"
	"weighbridge/internal/domain/auth"
	"weighbridge/internal/domain/catalogs/material"
	"weighbridge/internal/domain/catalogs/plant"
	"weighbridge/internal/domain/catalogs/vehicle"
	"weighbridge/internal/domain/catalogs/vendor"
	"weighbridge/internal/domain/consistency"
	"weighbridge/internal/domain/documents/entry"
	"weighbridge/internal/domain/documents/invoice"
	"weighbridge/internal/domain/reports"
	v1 "weighbridge/internal/infrastructure/http/v1"
	"weighbridge/internal/infrastructure/http/v1/dto"
	infranum "weighbridge/internal/infrastructure/numerator"
	"weighbridge/internal/infrastructure/storage/memory"
)

type apiFixture struct {
	router *gin.Engine
	jwt    *auth.JWTService
	plant  *plant.Plant
	vendor *vendor.Vendor
	truck  *vehicle.Vehicle
	lime   *material.Material
}

func newAPI(t *testing.T) *apiFixture {
	t.Helper()

	store := memory.NewStore()
	f := &apiFixture{jwt: auth.NewJWTService(auth.DefaultJWTConfig("test-secret"))}

	f.plant = plant.NewPlant("P1", "North plant")
	f.vendor = vendor.NewVendor("V1", "Acme Minerals", f.plant.ID)
	f.truck = vehicle.NewVehicle("KA-01-1234", "Tipper")
	f.truck.TareWeight = types.Ptr(types.Kg(4000))
	f.lime = material.NewMaterial("LIME", "Limestone")
	store.AddPlant(f.plant)
	store.AddVendor(f.vendor)
	store.AddVehicle(f.truck)
	store.AddMaterial(f.lime)

	numbers := infranum.New(infranum.NewMemoryStore())
	txm := memory.NewTxManager(store)

	entries := entry.NewService(entry.ServiceConfig{
		Repo:      store.Entries(),
		Vehicles:  store.Vehicles(),
		Vendors:   store.Vendors(),
		Plants:    store.Plants(),
		Materials: store.Materials(),
		Numerator: numbers,
		TxManager: txm,
	})
	invoices := invoice.NewService(invoice.ServiceConfig{
		Repo:      store.Invoices(),
		Entries:   store.Entries(),
		Vendors:   store.Vendors(),
		Plants:    store.Plants(),
		Materials: store.Materials(),
		Numerator: numbers,
		TxManager: txm,
	})
	consistency.Attach(consistency.NewCoordinator(nil, invoices), entries, invoices)

	f.router = v1.NewRouter(v1.RouterConfig{
		Entries:      entries,
		Invoices:     invoices,
		Reports:      reports.NewService(store.Entries(), nil, 0),
		JWTValidator: f.jwt,
		Registry:     prometheus.NewRegistry(),
	})
	return f
}

func (f *apiFixture) token(t *testing.T, roles ...string) string {
	t.Helper()
	token, _, err := f.jwt.GenerateAccessToken(appctx.UserContext{UserID: "user-" + strings.Join(roles, "-"), Roles: roles})
	require.NoError(t, err)
	return token
}

func (f *apiFixture) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

type entryBody struct {
	ID           string          `json:"id"`
	Number       string          `json:"number"`
	State        string          `json:"state"`
	ExactWeight  decimal.Decimal `json:"exactWeight"`
	VarianceFlag *bool           `json:"varianceFlag"`
	CreatedBy    string          `json:"createdBy"`
}

type invoiceBody struct {
	ID            string          `json:"id"`
	Number        string          `json:"number"`
	TotalQuantity decimal.Decimal `json:"totalQuantity"`
	TotalAmount   decimal.Decimal `json:"totalAmount"`
	EntryIDs      []string        `json:"entryIds"`
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func (f *apiFixture) createPurchase(t *testing.T, token string, weight int64) entryBody {
	t.Helper()
	rec := f.do(t, http.MethodPost, "/api/v1/entries", token, map[string]any{
		"entryType":   "purchase",
		"entryDate":   "2026-03-05",
		"vendorId":    f.vendor.ID.String(),
		"vehicleId":   f.truck.ID.String(),
		"plantId":     f.plant.ID.String(),
		"materialId":  f.lime.ID.String(),
		"entryWeight": weight,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[entryBody](t, rec)
}

func TestHealthAndMetrics(t *testing.T) {
	f := newAPI(t)

	rec := f.do(t, http.MethodGet, "/health/live", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodGet, "/health/ready", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "weighbridge_http_requests_total")
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	f := newAPI(t)

	rec := f.do(t, http.MethodGet, "/api/v1/entries", "", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, apperror.CodeUnauthorized, decode[dto.ErrorResponse](t, rec).Code)

	rec = f.do(t, http.MethodGet, "/api/v1/entries", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestEntryLifecycleOverHTTP(t *testing.T) {
	f := newAPI(t)
	operator := f.token(t, auth.RoleOperator)
	supervisor := f.token(t, auth.RoleSupervisor)

	created := f.createPurchase(t, operator, 10000)
	assert.Equal(t, "open", created.State)
	assert.NotEmpty(t, created.Number)
	assert.Equal(t, "user-operator", created.CreatedBy)

	exitPath := "/api/v1/entries/" + created.ID + "/exit-weight"
	rec := f.do(t, http.MethodPost, exitPath, operator, map[string]any{"exitWeight": 4000})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	settled := decode[entryBody](t, rec)
	assert.Equal(t, "settled", settled.State)
	assert.True(t, settled.ExactWeight.Equal(decimal.NewFromInt(6000)))
	require.NotNil(t, settled.VarianceFlag)
	assert.False(t, *settled.VarianceFlag)

	rec = f.do(t, http.MethodPost, exitPath, operator, map[string]any{"exitWeight": 4100})
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, apperror.CodeInvariantViolation, decode[dto.ErrorResponse](t, rec).Code)

	// Operators cannot review.
	reviewPath := "/api/v1/entries/" + created.ID + "/review"
	rec = f.do(t, http.MethodPost, reviewPath, operator, map[string]any{})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.do(t, http.MethodPost, reviewPath, supervisor, map[string]any{"notes": "ok"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "reviewed", decode[entryBody](t, rec).State)

	rec = f.do(t, http.MethodGet, "/api/v1/entries?entryType=purchase&reviewed=true", operator, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	list := decode[dto.ListResponse[entryBody]](t, rec)
	assert.EqualValues(t, 1, list.TotalCount)
}

func TestUpdateRejectsExitWeight(t *testing.T) {
	f := newAPI(t)
	operator := f.token(t, auth.RoleOperator)
	created := f.createPurchase(t, operator, 10000)

	rec := f.do(t, http.MethodPatch, "/api/v1/entries/"+created.ID, operator, map[string]any{"exitWeight": 4000})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, apperror.CodeValidation, decode[dto.ErrorResponse](t, rec).Code)
}

func TestInvalidIDAndUnknownEntry(t *testing.T) {
	f := newAPI(t)
	operator := f.token(t, auth.RoleOperator)

	rec := f.do(t, http.MethodGet, "/api/v1/entries/not-a-uuid", operator, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/v1/entries/"+f.lime.ID.String(), operator, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, apperror.CodeNotFound, decode[dto.ErrorResponse](t, rec).Code)
}

func TestInvoiceOverHTTP(t *testing.T) {
	f := newAPI(t)
	operator := f.token(t, auth.RoleOperator)
	accountant := f.token(t, auth.RoleAccountant)

	created := f.createPurchase(t, operator, 10000)
	rec := f.do(t, http.MethodPost, "/api/v1/entries/"+created.ID+"/exit-weight", operator, map[string]any{"exitWeight": 4000})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := map[string]any{
		"vendorId":    f.vendor.ID.String(),
		"plantId":     f.plant.ID.String(),
		"invoiceType": "purchase",
		"startDate":   "2026-03-01",
		"endDate":     "2026-03-31",
		"materialRates": []map[string]any{
			{"materialId": f.lime.ID.String(), "rate": "10"},
		},
	}

	rec = f.do(t, http.MethodPost, "/api/v1/invoices", operator, body)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/v1/invoices", accountant, body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	inv := decode[invoiceBody](t, rec)
	assert.Equal(t, []string{created.ID}, inv.EntryIDs)
	assert.True(t, inv.TotalQuantity.Equal(decimal.NewFromInt(6000)))
	assert.True(t, inv.TotalAmount.Equal(decimal.NewFromInt(60000)))

	// The same entry cannot be billed twice.
	rec = f.do(t, http.MethodPost, "/api/v1/invoices", accountant, body)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, apperror.CodeIneligibleForInvoicing, decode[dto.ErrorResponse](t, rec).Code)

	rec = f.do(t, http.MethodPost, "/api/v1/invoices/"+inv.ID+"/recompute", accountant, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, decode[invoiceBody](t, rec).TotalAmount.Equal(decimal.NewFromInt(60000)))

	rec = f.do(t, http.MethodDelete, "/api/v1/invoices/"+inv.ID, accountant, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	// Deleting released the claim.
	rec = f.do(t, http.MethodPost, "/api/v1/invoices", accountant, body)
	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

func TestEntrySummaryOverHTTP(t *testing.T) {
	f := newAPI(t)
	operator := f.token(t, auth.RoleOperator)
	f.createPurchase(t, operator, 10000)
	f.createPurchase(t, operator, 9000)

	rec := f.do(t, http.MethodGet, "/api/v1/reports/entry-summary?dateFrom=2026-03-01&dateTo=2026-03-31", operator, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	summary := decode[reports.EntrySummary](t, rec)
	assert.Equal(t, 2, summary.TotalCount)
	assert.Equal(t, 2, summary.States.Open)

	rec = f.do(t, http.MethodGet, "/api/v1/reports/entry-summary?dateFrom=yesterday", operator, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
