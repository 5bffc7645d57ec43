// Package dashboard assembles backend resources into consistent snapshots
// and runs the commands that change them.
package dashboard

import (
	"time"

	"merchantdash/internal/backend"
)

// UnknownLocation labels a snapshot when no forecast carried a location.
const UnknownLocation = "Unknown Location"

type (
	Product         = backend.Product
	ForecastDay     = backend.ForecastDay
	ProductForecast = backend.ProductForecast
	SalesRecord     = backend.SalesRecord
	Summary         = backend.Summary
)

// Snapshot is one complete sync cycle. Values handed out by the Store are
// shared between readers and must be treated as read-only.
type Snapshot struct {
	Generation    uint64            `json:"generation"`
	Products      []Product         `json:"products"`
	Forecasts     []ProductForecast `json:"forecasts"`
	History       []SalesRecord     `json:"history"`
	Summary       *Summary          `json:"summary"`
	LocationLabel string            `json:"location"`
	SyncedAt      time.Time         `json:"syncedAt"`
}

func emptySnapshot() Snapshot {
	return Snapshot{
		Products:      []Product{},
		Forecasts:     []ProductForecast{},
		History:       []SalesRecord{},
		LocationLabel: UnknownLocation,
	}
}
