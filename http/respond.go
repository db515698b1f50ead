package httpapi

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"github.com/yourorg/homely-api/internal/app"
	"github.com/yourorg/homely-api/internal/dataset"
	"github.com/yourorg/homely-api/internal/session"
	"github.com/yourorg/homely-api/internal/valuation"
)

// Messages shown to users. Details stay in the log.
const (
	msgNotReady    = "Data is still loading."
	msgNotFound    = "Address not found."
	msgNoSelection = "Please select a house first."
	msgPrediction  = "Prediction failed."
	msgSuperseded  = "A newer submission replaced this one."
	msgNoHistory   = "Scenario history is not enabled."
	msgInternal    = "Something went wrong."
)

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, req *http.Request, status int, code, message string) {
	render.Status(req, status)
	render.JSON(w, req, errorBody{Error: code, Message: message})
}

// writeServiceError maps app errors to status codes.
func writeServiceError(w http.ResponseWriter, req *http.Request, log *slog.Logger, err error) {
	if log == nil {
		log = slog.Default()
	}
	switch {
	case errors.Is(err, dataset.ErrNotReady):
		writeError(w, req, http.StatusServiceUnavailable, "not_ready", msgNotReady)
	case errors.Is(err, app.ErrNotFound):
		writeError(w, req, http.StatusNotFound, "not_found", msgNotFound)
	case errors.Is(err, app.ErrNoSelection):
		writeError(w, req, http.StatusConflict, "no_selection", msgNoSelection)
	case errors.Is(err, valuation.ErrServiceFailure):
		writeError(w, req, http.StatusBadGateway, "prediction_failed", msgPrediction)
	case errors.Is(err, session.ErrSuperseded):
		writeError(w, req, http.StatusConflict, "superseded", msgSuperseded)
	case errors.Is(err, app.ErrNoHistory):
		writeError(w, req, http.StatusNotImplemented, "history_unavailable", msgNoHistory)
	default:
		log.Error("request failed", slog.String("path", req.URL.Path), slog.String("error", err.Error()))
		writeError(w, req, http.StatusInternalServerError, "internal_error", msgInternal)
	}
}
