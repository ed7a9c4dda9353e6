package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog/log"

	"github.com/nie11kun/price-comparator/internal/service"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// MapError translates domain and database errors into HTTP responses.
func MapError(err error) (int, ErrorResponse) {
	switch {
	case errors.Is(err, service.ErrUpdateRunning):
		return http.StatusConflict, ErrorResponse{Error: service.ErrUpdateRunning.Error()}
	case errors.Is(err, service.ErrUnknownApp):
		return http.StatusBadRequest, ErrorResponse{Error: service.ErrUnknownApp.Error()}
	case errors.Is(err, pgx.ErrNoRows):
		return http.StatusNotFound, ErrorResponse{Error: "resource not found"}
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			return http.StatusConflict, ErrorResponse{
				Error:   "duplicate price record",
				Details: pgErr.Detail,
			}
		case "23514": // check_violation
			return http.StatusBadRequest, ErrorResponse{
				Error:   "constraint violation",
				Details: pgErr.Detail,
			}
		}
	}

	log.Error().Err(err).Msg("unhandled error")
	return http.StatusInternalServerError, ErrorResponse{Error: "internal server error"}
}

func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 {
			status, resp := MapError(c.Errors.Last().Err)
			c.JSON(status, resp)
		}
	}
}
