package httpgin

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/yuriwinchest/arena-courts/internal/domain"
	"github.com/yuriwinchest/arena-courts/internal/repository"
	redisrepo "github.com/yuriwinchest/arena-courts/internal/repository/redis"
	"github.com/yuriwinchest/arena-courts/internal/service"
	"github.com/yuriwinchest/arena-courts/internal/service/admin"
	"github.com/yuriwinchest/arena-courts/internal/service/availability"
	"github.com/yuriwinchest/arena-courts/internal/service/booking"
	"github.com/yuriwinchest/arena-courts/internal/service/query"
)

func NewRouter(
	svcs *service.Services,
	idem *redisrepo.IdempotencyStore,
	logger *slog.Logger,
	middlewares ...gin.HandlerFunc,
) *gin.Engine {
	r := gin.New()

	r.Use(gin.Recovery(), LoggingMiddleware(logger), RequestIDMiddleware(), CORS())
	for _, m := range middlewares {
		if m != nil {
			r.Use(m)
		}
	}

	// Swagger UI
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// health
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Public API
	r.GET("/courts", handleListCourts(svcs))
	r.GET("/availability", handleAvailability(svcs))

	r.POST("/reservations", handleReserve(svcs, idem, logger))
	r.GET("/reservations/:id", handleGetReservation(svcs))
	r.POST("/reservations/:id/confirm", handleTransition(svcs, logger, transitionConfirm))
	r.POST("/reservations/:id/cancel", handleTransition(svcs, logger, transitionCancel))
	r.POST("/reservations/:id/checkin", handleTransition(svcs, logger, transitionCheckIn))

	r.GET("/clients/:id/reservations", handleListByClient(svcs))

	// Admin API
	// TODO: add admin middleware once the identity collaborator exposes roles
	adm := r.Group("/admin")
	{
		adm.POST("/courts", handleCreateCourt(svcs))
		adm.GET("/reports/revenue", handleRevenue(svcs))
		adm.GET("/reports/status-counts", handleStatusCounts(svcs))
		adm.GET("/reports/upcoming", handleUpcoming(svcs))
	}

	return r
}

// --- Handlers with Swagger annotations ---

// @Summary  List courts
// @Success  200  {array}  CourtResponse
// @Router   /courts [get]
func handleListCourts(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		courts, err := svcs.Query.ListCourts(c.Request.Context())
		if err != nil {
			respondErr(c, err)
			return
		}
		out := make([]CourtResponse, 0, len(courts))
		for _, court := range courts {
			out = append(out, toCourtResponse(court))
		}
		writeJSONWithCache(c, http.StatusOK, out, "public, max-age=60", true)
	}
}

// @Summary  Availability grid for a date
// @Param    court  query  string  false  "court id, defaults to all"
// @Param    date   query  string  true   "YYYY-MM-DD"
// @Success  200  {array}   CourtAvailabilityResponse
// @Failure  400  {object}  ErrorResponse
// @Router   /availability [get]
func handleAvailability(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		courtID := c.Query("court")
		if courtID == "" {
			courtID = availability.AllCourts
		}
		date := c.Query("date")
		if date == "" {
			badRequest(c, "missing date")
			return
		}

		grid, err := svcs.Availability.Resolve(c.Request.Context(), courtID, date)
		if err != nil {
			respondErr(c, err)
			return
		}
		writeJSONWithCache(c, http.StatusOK, toAvailabilityResponse(date, grid), "public, max-age=15", true)
	}
}

// @Summary  Reserve slots (idempotent)
// @Param    req body  ReserveRequest true "payload"
// @Header   201 {string} Idempotency-Key "echo"
// @Success  201 {object} ReservationResponse
// @Failure  400 {object} ErrorResponse
// @Failure  409 {object} ErrorResponse "slots unavailable / idem in progress"
// @Failure  429 {object} ErrorResponse "rate limited"
// @Router   /reservations [post]
func handleReserve(
	svcs *service.Services,
	idem *redisrepo.IdempotencyStore,
	logger *slog.Logger,
) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ReserveRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		idemKey := strings.TrimSpace(c.GetHeader("Idempotency-Key"))
		var idemStorageKey string
		if idem != nil && idemKey != "" {
			idemStorageKey = redisrepo.KeyIdemReserve(req.CourtID, req.Date, idemKey)

			if payload, ok, _ := idem.GetResult(c.Request.Context(), idemStorageKey); ok {
				c.Header("Idempotency-Key", idemKey)
				c.Data(http.StatusCreated, "application/json; charset=utf-8", []byte(payload))
				return
			}

			locked, err := idem.AcquireLock(c.Request.Context(), idemStorageKey, 60*time.Second)
			if err != nil {
				respondErr(c, err)
				return
			}
			if !locked {
				if payload, ok, _ := idem.GetResult(c.Request.Context(), idemStorageKey); ok {
					c.Header("Idempotency-Key", idemKey)
					c.Data(http.StatusCreated, "application/json; charset=utf-8", []byte(payload))
					return
				}
				c.Header("Retry-After", "1")
				c.JSON(http.StatusConflict, ErrorResponse{Error: "idempotency key in progress"})
				return
			}
		}

		slots := make([]booking.SlotRequest, 0, len(req.Slots))
		for _, s := range req.Slots {
			slots = append(slots, booking.SlotRequest{Start: s.Start, End: s.End})
		}
		rlKey := "ip:" + c.ClientIP()

		res, err := svcs.Booking.Reserve(
			c.Request.Context(),
			req.ClientID,
			req.CourtID,
			req.Date,
			slots,
			req.PaymentIntent,
			rlKey,
		)
		if err != nil {
			if idemStorageKey != "" && idem != nil {
				_ = idem.Release(c.Request.Context(), idemStorageKey)
			}
			if errors.Is(err, booking.ErrRateLimited) {
				c.Header("Retry-After", "60")
				c.JSON(http.StatusTooManyRequests, ErrorResponse{Error: err.Error()})
				return
			}
			logErr(logger, err)
			respondErr(c, err)
			return
		}

		resp := toReservationResponse(res)

		if idemStorageKey != "" && idem != nil {
			b, _ := json.Marshal(resp)
			_ = idem.SaveResult(c.Request.Context(), idemStorageKey, string(b))
			c.Header("Idempotency-Key", idemKey)
		}

		c.JSON(http.StatusCreated, resp)
	}
}

// @Summary  Get reservation
// @Param    id  path  string  true  "Reservation ID (uuid)"
// @Success  200 {object} ReservationResponse
// @Failure  404 {object} ErrorResponse
// @Router   /reservations/{id} [get]
func handleGetReservation(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseUUIDParam(c, "id")
		if !ok {
			return
		}
		r, err := svcs.Query.GetReservation(c.Request.Context(), id)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, toReservationResponse(r))
	}
}

type transitionKind int

const (
	transitionConfirm transitionKind = iota
	transitionCancel
	transitionCheckIn
)

// @Summary  Transition reservation status
// @Param    id  path  string  true  "Reservation ID (uuid)"
// @Success  200 {object} ReservationResponse
// @Failure  409 {object} ErrorResponse
// @Router   /reservations/{id}/confirm [post]
func handleTransition(svcs *service.Services, logger *slog.Logger, kind transitionKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseUUIDParam(c, "id")
		if !ok {
			return
		}

		var (
			r   *domain.Reservation
			err error
		)
		switch kind {
		case transitionConfirm:
			r, err = svcs.Booking.Confirm(c.Request.Context(), id)
		case transitionCancel:
			r, err = svcs.Booking.Cancel(c.Request.Context(), id)
		case transitionCheckIn:
			r, err = svcs.Booking.CheckIn(c.Request.Context(), id)
		}
		if err != nil {
			logErr(logger, err)
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, toReservationResponse(r))
	}
}

// @Summary  List client reservations
// @Param    id  path  string  true  "Client ID"
// @Success  200 {array} ReservationResponse
// @Router   /clients/{id}/reservations [get]
func handleListByClient(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		out, err := svcs.Query.ListByClient(c.Request.Context(), c.Param("id"))
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, toReservationResponses(out))
	}
}

// @Summary  Create court
// @Param    req body  CreateCourtRequest true "payload"
// @Success  201 {object} CourtResponse
// @Failure  409 {object} ErrorResponse
// @Router   /admin/courts [post]
func handleCreateCourt(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateCourtRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		court, err := svcs.Admin.CreateCourt(
			c.Request.Context(),
			req.ID,
			req.Name,
			domain.CourtCategory(req.Category),
			req.HourlyRateCents,
		)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusCreated, toCourtResponse(*court))
	}
}

// @Summary  Revenue summary
// @Param    from  query  string  true  "YYYY-MM-DD"
// @Param    to    query  string  true  "YYYY-MM-DD"
// @Success  200 {object} RevenueResponse
// @Router   /admin/reports/revenue [get]
func handleRevenue(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		sum, err := svcs.Query.TotalRevenue(c.Request.Context(), c.Query("from"), c.Query("to"))
		if err != nil {
			respondErr(c, err)
			return
		}
		writeJSONWithCache(c, http.StatusOK, RevenueResponse{
			From:         sum.From,
			To:           sum.To,
			Reservations: sum.Reservations,
			TotalCents:   sum.TotalCents,
		}, "private, max-age=60", true)
	}
}

// @Summary  Reservation counts by status
// @Param    from  query  string  true  "YYYY-MM-DD"
// @Param    to    query  string  true  "YYYY-MM-DD"
// @Success  200 {object} StatusCountsResponse
// @Router   /admin/reports/status-counts [get]
func handleStatusCounts(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		counts, err := svcs.Query.CountByStatus(c.Request.Context(), c.Query("from"), c.Query("to"))
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, StatusCountsResponse{
			Pending:   counts.Pending,
			Confirmed: counts.Confirmed,
			Cancelled: counts.Cancelled,
			Completed: counts.Completed,
			Total:     counts.Total,
		})
	}
}

// @Summary  Upcoming reservations
// @Param    limit  query  int  false  "page size"
// @Success  200 {array} ReservationResponse
// @Router   /admin/reports/upcoming [get]
func handleUpcoming(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := parseIntDefault(c.Query("limit"), 0)
		out, err := svcs.Query.Upcoming(c.Request.Context(), limit)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, toReservationResponses(out))
	}
}

// --- Helpers ---

func parseUUIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		badRequest(c, "invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: msg})
}

func logErr(logger *slog.Logger, err error) {
	var transition booking.InvalidTransitionError
	if errors.As(err, &transition) {
		// protocol violation, a bug signal rather than user error
		logger.Error("invalid status transition", "error", err)
	}
}

func respondErr(c *gin.Context, err error) {
	if err == nil {
		c.Status(http.StatusNoContent)
		return
	}

	var (
		invalidTime   booking.InvalidTimeError
		invalidTimeAv availability.InvalidTimeError
		invalidSlots  booking.InvalidSlotError
		unavailable   booking.SlotUnavailableError
		badTransition booking.InvalidTransitionError
	)

	switch {
	// caller input errors
	case errors.Is(err, booking.ErrEmptySelection):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "no slots selected"})
	case errors.As(err, &invalidTime):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: invalidTime.Error()})
	case errors.As(err, &invalidTimeAv):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: invalidTimeAv.Error()})
	case errors.As(err, &invalidSlots):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "slots not in calendar", Slots: invalidSlots.Slots})
	case errors.Is(err, query.ErrInvalidRange):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid date range"})
	case errors.Is(err, admin.ErrInvalidCategory), errors.Is(err, admin.ErrInvalidRate):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})

	// not found
	case errors.Is(err, booking.ErrCourtNotFound), errors.Is(err, availability.ErrCourtNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "court not found"})
	case errors.Is(err, booking.ErrReservationNotFound), errors.Is(err, query.ErrReservationNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "reservation not found"})

	// business conflicts
	case errors.As(err, &unavailable):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "slots unavailable", Slots: unavailable.Slots})
	case errors.Is(err, booking.ErrStatusConflict):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "reservation changed, please retry"})
	case errors.Is(err, booking.ErrCancelAfterStart):
		c.JSON(http.StatusConflict, ErrorResponse{Error: err.Error()})
	case errors.Is(err, admin.ErrCourtConflict):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "court already exists"})

	// protocol violation
	case errors.As(err, &badTransition):
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: badTransition.Error()})

	// retryable infrastructure
	case errors.Is(err, repository.ErrTimeout):
		c.Header("Retry-After", "1")
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "store timeout, please retry"})

	default:
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
	}
}
