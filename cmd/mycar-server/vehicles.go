package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"mycar-backend/internal/vehicle"
)

// Vehicles is the lookup surface the http api exposes.
type Vehicles interface {
	LookupVehicle(ctx context.Context, vin, zip string, hint *vehicle.Coordinates) (*vehicle.Record, bool)
	UpdateVehicle(ctx context.Context, record *vehicle.Record) bool
}

type errorBody struct {
	Error string `json:"error"`
}

func writeJson(w http.ResponseWriter, status int, value any) {
	w.Header().Set("content-type", "application/json")
	w.WriteHeader(status)
	err := json.NewEncoder(w).Encode(value)
	if err != nil {
		slog.Warn("failed to write response", "err", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJson(w, status, errorBody{Error: message})
}

// parseHint reads the lat/lon query pair, both or neither must be given.
func parseHint(r *http.Request) (*vehicle.Coordinates, bool) {
	lat := r.URL.Query().Get("lat")
	lon := r.URL.Query().Get("lon")
	if lat == "" && lon == "" {
		return nil, true
	}
	latitude, err := strconv.ParseFloat(lat, 64)
	if err != nil {
		return nil, false
	}
	longitude, err := strconv.ParseFloat(lon, 64)
	if err != nil {
		return nil, false
	}
	return &vehicle.Coordinates{Latitude: latitude, Longitude: longitude}, true
}

func RegisterVehicles(mux *http.ServeMux, vehicles Vehicles) {
	mux.HandleFunc("GET /v1/vehicles/{vin}", func(w http.ResponseWriter, r *http.Request) {
		vin := strings.TrimSpace(r.PathValue("vin"))
		if vin == "" {
			writeError(w, http.StatusBadRequest, "missing vin")
			return
		}
		hint, ok := parseHint(r)
		if !ok {
			writeError(w, http.StatusBadRequest, "lat and lon must both be numbers")
			return
		}

		record, ok := vehicles.LookupVehicle(r.Context(), vin, r.URL.Query().Get("zip"), hint)
		if !ok {
			writeError(w, http.StatusBadGateway, "vehicle lookup failed")
			return
		}
		writeJson(w, http.StatusOK, record)
	})

	mux.HandleFunc("PUT /v1/vehicles/{vin}", func(w http.ResponseWriter, r *http.Request) {
		var record vehicle.Record
		err := json.NewDecoder(r.Body).Decode(&record)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid vehicle record")
			return
		}
		record.VIN = r.PathValue("vin")

		if !vehicles.UpdateVehicle(r.Context(), &record) {
			writeError(w, http.StatusInternalServerError, "vehicle update failed")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
}
