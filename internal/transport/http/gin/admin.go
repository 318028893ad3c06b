package httpgin

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kirinyoku/cinebook/internal/domain"
	"github.com/kirinyoku/cinebook/internal/service"
)

// @Summary  Create movie
// @Security BearerAuth
// @Param    req body  CreateMovieRequest true "payload"
// @Success  201 {object} CreatedResponse
// @Router   /admin/movies [post]
func handleCreateMovie(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateMovieRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		id, err := svcs.Admin.CreateMovie(c.Request.Context(), req.Title, req.DurationMinutes)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusCreated, CreatedResponse{ID: id})
	}
}

// @Summary  Create screen
// @Security BearerAuth
// @Param    req body  CreateScreenRequest true "payload"
// @Success  201 {object} CreatedResponse
// @Failure  409 {object} ErrorResponse
// @Router   /admin/screens [post]
func handleCreateScreen(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateScreenRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		id, err := svcs.Admin.CreateScreen(c.Request.Context(), req.Name)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusCreated, CreatedResponse{ID: id})
	}
}

// @Summary  Add seats to a screen
// @Security BearerAuth
// @Param    id  path  int  true  "Screen ID"
// @Param    req body  AddSeatsRequest true "payload"
// @Success  201 {object} AddSeatsResponse
// @Router   /admin/screens/{id}/seats [post]
func handleAddSeats(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		screenID, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		var req AddSeatsRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		seats := make([]domain.Seat, 0, len(req.Seats))
		for _, s := range req.Seats {
			seats = append(seats, domain.Seat{
				ScreenID: screenID,
				Row:      s.Row,
				Number:   s.Number,
				Class:    s.Class,
			})
		}
		n, err := svcs.Admin.AddSeats(c.Request.Context(), screenID, seats)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusCreated, AddSeatsResponse{Created: n})
	}
}

// @Summary  Create showtime and init its seats
// @Security BearerAuth
// @Param    req body  CreateShowtimeRequest true "payload"
// @Success  201 {object} domain.Showtime
// @Failure  409 {object} ErrorResponse "overlaps another showtime"
// @Router   /admin/showtimes [post]
func handleCreateShowtime(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateShowtimeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		st, err := svcs.Admin.CreateShowtime(c.Request.Context(), req.MovieID, req.ScreenID, req.StartsAt, req.Prices)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusCreated, st)
	}
}

// @Summary  Replace showtime prices
// @Security BearerAuth
// @Param    id  path  int  true  "Showtime ID"
// @Param    req body  UpdatePricesRequest true "payload"
// @Success  204
// @Router   /admin/showtimes/{id}/prices [put]
func handleUpdatePrices(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		var req UpdatePricesRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		if err := svcs.Admin.UpdatePrices(c.Request.Context(), id, req.Prices); err != nil {
			respondErr(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// @Summary  Deactivate showtime
// @Security BearerAuth
// @Param    id  path  int  true  "Showtime ID"
// @Success  204
// @Router   /admin/showtimes/{id} [delete]
func handleDeactivateShowtime(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		if err := svcs.Admin.DeactivateShowtime(c.Request.Context(), id); err != nil {
			respondErr(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}
