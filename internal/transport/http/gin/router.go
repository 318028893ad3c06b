package httpgin

import (
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kirinyoku/cinebook/internal/domain"
	redisrepo "github.com/kirinyoku/cinebook/internal/repository/redis"
	"github.com/kirinyoku/cinebook/internal/service"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// WSServer attaches an authenticated websocket connection. *realtime.Hub
// implements it.
type WSServer interface {
	ServeWS(w http.ResponseWriter, r *http.Request, userID int64) error
}

type Deps struct {
	Services *service.Services
	Tokens   TokenParser
	// Idem and Hub are optional.
	Idem   *redisrepo.IdempotencyStore
	Hub    WSServer
	Logger *slog.Logger
	// CORSOrigins empty allows any origin.
	CORSOrigins []string
}

func NewRouter(d Deps, middlewares ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()

	r.Use(gin.Recovery(), RequestIDMiddleware(), LoggingMiddleware(d.Logger), CORS(d.CORSOrigins), MetricsMiddleware())
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

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	if d.Hub != nil {
		r.GET("/ws", handleWS(d.Hub, d.Tokens, d.Logger))
	}

	// Public API
	r.GET("/showtimes/:id", handleGetShowtime(d.Services))
	r.GET("/showtimes/:id/seats", handleGetSeatMap(d.Services))

	bookings := r.Group("/bookings", RequireAuth(d.Tokens))
	{
		bookings.POST("", handleCreateBooking(d.Services, d.Idem, d.Logger))
		bookings.POST("/payment", handleProcessPayment(d.Services))
		bookings.GET("", handleListBookings(d.Services))
		bookings.GET("/:id", handleGetBooking(d.Services))
		bookings.DELETE("/:id", handleCancelBooking(d.Services))
	}

	admin := r.Group("/admin", RequireAuth(d.Tokens), RequireAdmin())
	{
		admin.POST("/movies", handleCreateMovie(d.Services))
		admin.POST("/screens", handleCreateScreen(d.Services))
		admin.POST("/screens/:id/seats", handleAddSeats(d.Services))
		admin.POST("/showtimes", handleCreateShowtime(d.Services))
		admin.PUT("/showtimes/:id/prices", handleUpdatePrices(d.Services))
		admin.DELETE("/showtimes/:id", handleDeactivateShowtime(d.Services))
	}

	return r
}

// --- Helpers ---

func parseInt64Param(c *gin.Context, name string) (int64, bool) {
	s := c.Param(name)
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil || v <= 0 {
		badRequest(c, "invalid "+name)
		return 0, false
	}
	return v, true
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
	c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{Error: msg, Code: domain.CodeInvalid})
}

func statusOf(code domain.Code) int {
	switch code {
	case domain.CodeNotFound:
		return http.StatusNotFound
	case domain.CodeInvalid:
		return http.StatusBadRequest
	case domain.CodeSeatUnavailable, domain.CodeTooLate, domain.CodeAlreadyProcessed, domain.CodeConflict:
		return http.StatusConflict
	case domain.CodeUnauthorized:
		return http.StatusForbidden
	case domain.CodePaymentFailed:
		return http.StatusPaymentRequired
	case domain.CodeUnauthenticated:
		return http.StatusUnauthorized
	case domain.CodeRateLimited:
		return http.StatusTooManyRequests
	}
	return http.StatusInternalServerError
}

// retrySeconds rounds up so a client never retries early.
func retrySeconds(d time.Duration) int {
	return max(int(math.Ceil(d.Seconds())), 1)
}

func respondErr(c *gin.Context, err error) {
	if err == nil {
		c.Status(http.StatusNoContent)
		return
	}

	code := domain.CodeOf(err)
	status := statusOf(code)

	if status == http.StatusInternalServerError {
		_ = c.Error(err)
		c.AbortWithStatusJSON(status, ErrorResponse{Error: "internal error", Code: domain.CodeInternal})
		return
	}

	if after, ok := domain.RetryAfterOf(err); ok {
		c.Header("Retry-After", strconv.Itoa(retrySeconds(after)))
	} else if code == domain.CodeRateLimited {
		c.Header("Retry-After", "60")
	}

	c.AbortWithStatusJSON(status, ErrorResponse{Error: domain.MessageOf(err), Code: code})
}
