package domain

import (
	"context"
	"log/slog"
)

// StationLocator resolves an ICAO station identifier to a location.
type StationLocator interface {
	// LocateStation returns a zero StationLocation, not an error, when the
	// station is unknown to the provider.
	LocateStation(ctx context.Context, icao string) (StationLocation, error)
}

// EnrichWithStation attaches the station location to r. A nil locator or a
// report without a station leaves r untouched; lookup failures are logged and
// recorded in LocationSource without failing the report.
func EnrichWithStation(ctx context.Context, r DecodedReport, locator StationLocator, logger *slog.Logger) DecodedReport {
	if locator == nil || r.Station == "" {
		return r
	}

	loc, err := locator.LocateStation(ctx, r.Station)
	if err != nil {
		logger.Warn("station lookup failed",
			"report_id", r.ID,
			"station", r.Station,
			"error", err,
		)
		r.LocationSource = LocationFailed
		return r
	}
	if loc.Lat == 0 && loc.Lon == 0 {
		r.LocationSource = LocationNotFound
		return r
	}

	r.Location = &loc
	r.LocationSource = LocationGeocoded
	return r
}
