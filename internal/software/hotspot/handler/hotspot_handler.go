package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"fleet-track/internal/domain/hotspot"
	"fleet-track/internal/general/jwt"
	"fleet-track/internal/ports"

	"github.com/jackc/pgx/v5/pgconn"
)

// --- Request DTO (HTTP boundary) ---

type requestHotspotRequest struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// ----- Handler: POST /drivers/{driver_id}/hotspot -----

func (handler *HotspotHTTPHandler) handleRequestHotspot(w http.ResponseWriter, r *http.Request) {
	// generate a context with request ID
	ctx := handler.withReqID(r.Context(), r)

	// check the content type
	if !strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		handler.httpError(ctx, w, http.StatusUnsupportedMediaType, "Content-Type must be application/json", nil)
		return
	}

	// limit body size
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1 MiB
	defer r.Body.Close()

	// decode strictly
	var req requestHotspotRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			handler.httpError(ctx, w, http.StatusRequestEntityTooLarge, "request body too large", err)
			return
		}
		handler.httpError(ctx, w, http.StatusBadRequest, "invalid JSON: "+err.Error(), err)
		return
	}

	// obtain the JWT claims
	claims := jwt.RequireClaims(r)
	if claims == nil {
		handler.httpError(ctx, w, http.StatusUnauthorized, "missing auth claims", errors.New("no claims"))
		return
	}

	// path param must match the token subject
	driverID := strings.TrimSpace(r.PathValue("driver_id"))
	if driverID == "" {
		driverID = strings.TrimSpace(claims.Subject)
	} else if driverID != strings.TrimSpace(claims.Subject) {
		handler.httpError(ctx, w, http.StatusForbidden, "driver_id does not match token subject", errors.New("driver/token mismatch"))
		return
	}

	in := ports.RequestHotspotInput{
		DriverID:  driverID,
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
	}

	// bound service call; ranking plus route planning can take a while
	ctxWithTimeout, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	res, err := handler.svc.RequestHotspot(ctxWithTimeout, in)
	if err != nil {
		var cde *hotspot.CoolDownError
		if errors.As(err, &cde) {
			handler.httpError(ctxWithTimeout, w, http.StatusForbidden,
				fmt.Sprintf("Please wait %d mins before requesting another hotspot", cde.RemainingMinutes()), err)
			return
		}
		if errors.Is(err, hotspot.ErrRouteUnavailable) {
			handler.httpError(ctxWithTimeout, w, http.StatusBadGateway, "no route to hotspot", err)
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

	if res.Found {
		ctxWithTimeout = handler.logger.WithAssignmentID(ctxWithTimeout, res.AssignmentID)
	}

	handler.jsonResponse(ctxWithTimeout, w, http.StatusOK, res)
}
