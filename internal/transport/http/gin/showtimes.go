package httpgin

import (
	"github.com/gin-gonic/gin"
	"github.com/kirinyoku/cinebook/internal/service"
)

// @Summary  Get showtime
// @Param    id  path  int  true  "Showtime ID"
// @Success  200  {object}  domain.Showtime
// @Failure  404  {object}  ErrorResponse
// @Router   /showtimes/{id} [get]
func handleGetShowtime(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		st, err := svcs.Query.GetShowtime(c.Request.Context(), id)
		if err != nil {
			respondErr(c, err)
			return
		}
		// ETag + Cache-Control 60s
		writeConditionalJSON(c, st, cacheCatalog)
	}
}

// @Summary  Seat map grouped by row
// @Param    id  path  int  true  "Showtime ID"
// @Success  200  {object}  domain.SeatMap
// @Success  304  "not modified"
// @Failure  404  {object}  ErrorResponse
// @Router   /showtimes/{id}/seats [get]
func handleGetSeatMap(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		m, err := svcs.Query.GetSeatMap(c.Request.Context(), id)
		if err != nil {
			respondErr(c, err)
			return
		}
		// Live data: revalidate every time, the ETag saves the body.
		writeConditionalJSON(c, m, cacheRevalidate)
	}
}
