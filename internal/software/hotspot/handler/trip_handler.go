package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"fleet-track/internal/domain/hotspot"
	"fleet-track/internal/general/jwt"
	"fleet-track/internal/ports"

	"github.com/jackc/pgx/v5/pgconn"
)

type tripTakenRequest struct {
	AssignmentID string `json:"assignment_id"`
}

// ----- Handler: POST /drivers/{driver_id}/trip -----

func (handler *HotspotHTTPHandler) handleTripTaken(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)

	if !strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		handler.httpError(ctx, w, http.StatusUnsupportedMediaType, "Content-Type must be application/json", nil)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1 MiB
	defer r.Body.Close()

	var req tripTakenRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		handler.httpError(ctx, w, http.StatusBadRequest, "invalid JSON: "+err.Error(), err)
		return
	}

	if strings.TrimSpace(req.AssignmentID) == "" {
		handler.httpError(ctx, w, http.StatusBadRequest, "assignment_id is required", nil)
		return
	}

	claims := jwt.RequireClaims(r)
	if claims == nil {
		handler.httpError(ctx, w, http.StatusUnauthorized, "missing auth claims", errors.New("no claims"))
		return
	}

	driverID := strings.TrimSpace(r.PathValue("driver_id"))
	if driverID == "" {
		driverID = strings.TrimSpace(claims.Subject)
	} else if driverID != strings.TrimSpace(claims.Subject) {
		handler.httpError(ctx, w, http.StatusForbidden, "driver_id does not match token subject", errors.New("driver/token mismatch"))
		return
	}

	in := ports.TripTakenInput{
		DriverID:     driverID,
		AssignmentID: strings.TrimSpace(req.AssignmentID),
	}

	ctxWithTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	res, err := handler.svc.MarkTripTaken(ctxWithTimeout, in)
	if err != nil {
		if errors.Is(err, hotspot.ErrAssignmentNotFound) {
			handler.httpError(ctxWithTimeout, w, http.StatusNotFound, "assignment not found", err)
			return
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			handler.httpError(ctxWithTimeout, w, http.StatusInternalServerError, "database error", err)
			return
		}
		handler.httpError(ctxWithTimeout, w, http.StatusBadRequest, err.Error(), err)
		return
	}

	handler.jsonResponse(ctxWithTimeout, w, http.StatusOK, res)
}
