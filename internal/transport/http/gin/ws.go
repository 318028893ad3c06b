package httpgin

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/kirinyoku/cinebook/internal/domain"
)

// @Summary  Realtime seat updates (websocket)
// @Param    token query string true "access token"
// @Success  101
// @Failure  401 {object} ErrorResponse
// @Router   /ws [get]
func handleWS(hub WSServer, tokens TokenParser, log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := wsToken(c.Request)
		if raw == "" {
			respondErr(c, domain.ErrUnauthenticated)
			return
		}
		p, err := tokens.Parse(raw)
		if err != nil {
			respondErr(c, domain.NewError(domain.CodeUnauthenticated, "invalid or expired token"))
			return
		}

		if err := hub.ServeWS(c.Writer, c.Request, p.UserID); err != nil {
			// The upgrader already wrote the error response.
			log.Warn("websocket upgrade failed",
				slog.Int64("user_id", p.UserID),
				slog.Any("err", err),
			)
		}
	}
}
