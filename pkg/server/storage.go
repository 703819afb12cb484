package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"fillstorage/pkg/filler"
	"fillstorage/pkg/log"
	"fillstorage/pkg/models"
	"fillstorage/pkg/runner"
)

// getFreeSpace handles GET /storage/free requests.
func (srv *FillServer) getFreeSpace(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, srv.runner.FreeSpace())
}

// getStatus handles GET /storage/status requests.
func (srv *FillServer) getStatus(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, srv.runner.Status())
}

// listFiles handles GET /storage/files requests.
func (srv *FillServer) listFiles(ctx echo.Context) error {
	list, err := srv.runner.Files()
	if err != nil {
		log.Error().Err(err).Msg("Failed to list dummy files")
		return ctx.JSON(http.StatusInternalServerError, map[string]string{
			"error": "Failed to list dummy files",
		})
	}
	return ctx.JSON(http.StatusOK, list)
}

// startFill handles POST /storage/fill requests. The fill outlives the request.
func (srv *FillServer) startFill(ctx echo.Context) error {
	log.Info().
		Str("method", "POST").
		Str("path", ctx.Request().URL.Path).
		Msg("Fill request")

	if err := srv.runner.StartFill(context.WithoutCancel(ctx.Request().Context())); err != nil {
		if errors.Is(err, runner.ErrBusy) {
			log.Warn().Msg("Fill requested while a job is running")
			return ctx.JSON(http.StatusConflict, map[string]string{
				"error": "A job is already running",
			})
		}
		log.Error().Err(err).Msg("Failed to start fill")
		return ctx.JSON(http.StatusInternalServerError, map[string]string{
			"error": "Internal server error",
		})
	}

	return ctx.JSON(http.StatusAccepted, srv.runner.Status())
}

// resetStorage handles POST /storage/reset requests. While a fill is running
// the fill is cancelled instead.
func (srv *FillServer) resetStorage(ctx echo.Context) error {
	log.Info().
		Str("method", "POST").
		Str("path", ctx.Request().URL.Path).
		Msg("Reset request")

	outcome, deleted, err := srv.runner.RequestReset()
	if err != nil {
		var removeErr *filler.RemoveError
		switch {
		case errors.Is(err, runner.ErrBusy):
			log.Warn().Msg("Reset requested while a reset is running")
			return ctx.JSON(http.StatusConflict, map[string]string{
				"error": "A job is already running",
			})
		case errors.As(err, &removeErr):
			log.Error().Err(err).Str("file", removeErr.Path).Msg("Reset stopped")
			return ctx.JSON(http.StatusInternalServerError, map[string]interface{}{
				"error":   "Failed to delete " + removeErr.Path,
				"deleted": deleted,
			})
		default:
			log.Error().Err(err).Msg("Reset failed")
			return ctx.JSON(http.StatusInternalServerError, map[string]string{
				"error": "Internal server error",
			})
		}
	}

	return ctx.JSON(http.StatusOK, models.ResetResponse{
		Outcome: string(outcome),
		Deleted: deleted,
	})
}
