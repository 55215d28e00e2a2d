package httpgin

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yuriwinchest/arena-courts/internal/calendar"
	"github.com/yuriwinchest/arena-courts/internal/domain"
	"github.com/yuriwinchest/arena-courts/internal/repository/memory"
	"github.com/yuriwinchest/arena-courts/internal/service"
)

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cal, err := calendar.New(calendar.Config{
		OpenMinute:  8 * 60,
		CloseMinute: 22 * 60,
		SlotMinutes: 60,
		Location:    time.UTC,
	})
	require.NoError(t, err)

	store := memory.New()
	require.NoError(t, store.CreateCourt(context.Background(), &domain.Court{
		ID: "quadra-1", Name: "Quadra 1", Category: domain.CategoryBeachTennis, HourlyRateCents: 9000,
	}))

	clock := fixedClock{now: time.Date(2024, 10, 25, 9, 0, 0, 0, time.UTC)}
	svcs := service.NewServices(store, cal, nil, nil, nil, clock, service.Config{})

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewRouter(svcs, nil, logger)
}

func do(t *testing.T, r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	}

	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func reserveBody(slots ...SlotInput) ReserveRequest {
	return ReserveRequest{
		ClientID: "ana",
		CourtID:  "quadra-1",
		Date:     "2024-10-25",
		Slots:    slots,
	}
}

func TestReserveFlow(t *testing.T) {
	r := newTestRouter(t)

	w := do(t, r, http.MethodPost, "/reservations", reserveBody(SlotInput{Start: "18:00", End: "19:00"}))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var created ReservationResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, "pending", created.Status)
	assert.EqualValues(t, 9000, created.AmountCents)
	require.Len(t, created.Slots, 1)
	assert.Equal(t, "18:00", created.Slots[0].Start)

	w = do(t, r, http.MethodGet, "/reservations/"+created.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = do(t, r, http.MethodPost, "/reservations/"+created.ID+"/confirm", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var confirmed ReservationResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &confirmed))
	assert.Equal(t, "confirmed", confirmed.Status)

	// second confirm lost the race against the first
	w = do(t, r, http.MethodPost, "/reservations/"+created.ID+"/confirm", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestReserveConflictNamesSlots(t *testing.T) {
	r := newTestRouter(t)

	w := do(t, r, http.MethodPost, "/reservations", reserveBody(SlotInput{Start: "18:00", End: "19:00"}))
	require.Equal(t, http.StatusCreated, w.Code)

	w = do(t, r, http.MethodPost, "/reservations", reserveBody(SlotInput{Start: "18:00", End: "19:00"}))
	require.Equal(t, http.StatusConflict, w.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, []string{"18:00-19:00"}, resp.Slots)
}

func TestReserveValidation(t *testing.T) {
	r := newTestRouter(t)

	// missing slots fails binding
	w := do(t, r, http.MethodPost, "/reservations", ReserveRequest{ClientID: "ana", CourtID: "quadra-1", Date: "2024-10-25"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// slot outside the operating window
	w = do(t, r, http.MethodPost, "/reservations", reserveBody(SlotInput{Start: "06:00", End: "07:00"}))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// unknown court
	body := reserveBody(SlotInput{Start: "18:00", End: "19:00"})
	body.CourtID = "nope"
	w = do(t, r, http.MethodPost, "/reservations", body)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetReservationErrors(t *testing.T) {
	r := newTestRouter(t)

	w := do(t, r, http.MethodGet, "/reservations/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, r, http.MethodGet, "/reservations/6ba7b810-9dad-11d1-80b4-00c04fd430c8", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAvailabilityEndpoint(t *testing.T) {
	r := newTestRouter(t)

	w := do(t, r, http.MethodGet, "/availability?date=2024-10-25", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("ETag"))

	var grid []CourtAvailabilityResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &grid))
	require.Len(t, grid, 1)
	assert.Equal(t, "quadra-1", grid[0].Court.ID)
	assert.Len(t, grid[0].Slots, 14)

	// conditional request with the returned ETag short circuits
	req := httptest.NewRequest(http.MethodGet, "/availability?date=2024-10-25", nil)
	req.Header.Set("If-None-Match", w.Header().Get("ETag"))
	w2 := httptest.NewRecorder()
	r.ServeHTTP(w2, req)
	assert.Equal(t, http.StatusNotModified, w2.Code)

	w = do(t, r, http.MethodGet, "/availability", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code, "date is required")

	w = do(t, r, http.MethodGet, "/availability?date=garbage", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAdminEndpoints(t *testing.T) {
	r := newTestRouter(t)

	w := do(t, r, http.MethodPost, "/admin/courts", CreateCourtRequest{
		Name: "Quadra 2", Category: "volleyball", HourlyRateCents: 8000,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = do(t, r, http.MethodPost, "/admin/courts", CreateCourtRequest{
		Name: "Quadra 2", Category: "volleyball", HourlyRateCents: 8000,
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = do(t, r, http.MethodPost, "/admin/courts", CreateCourtRequest{
		Name: "Quadra 3", Category: "squash", HourlyRateCents: 8000,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, r, http.MethodGet, "/admin/reports/revenue?from=2024-10-01&to=2024-10-31", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var rev RevenueResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rev))
	assert.EqualValues(t, 0, rev.TotalCents)

	w = do(t, r, http.MethodGet, "/admin/reports/revenue?from=2024-10-31&to=2024-10-01", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, r, http.MethodGet, "/admin/reports/status-counts?from=2024-10-01&to=2024-10-31", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(t, r, http.MethodGet, "/admin/reports/upcoming", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestClientReservations(t *testing.T) {
	r := newTestRouter(t)

	w := do(t, r, http.MethodPost, "/reservations", reserveBody(SlotInput{Start: "18:00", End: "19:00"}))
	require.Equal(t, http.StatusCreated, w.Code)

	w = do(t, r, http.MethodGet, "/clients/ana/reservations", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var list []ReservationResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Len(t, list, 1)

	w = do(t, r, http.MethodGet, "/clients/bruno/reservations", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Empty(t, list)
}
