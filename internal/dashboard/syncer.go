package dashboard

import (
	"context"
	"log"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"merchantdash/internal/advice"
	"merchantdash/internal/backend"
	"merchantdash/internal/location"
	"merchantdash/internal/session"
	"merchantdash/internal/util"
)

// Backend is the read side of the merchant API.
type Backend interface {
	ListProducts(ctx context.Context, userID string) ([]backend.Product, error)
	Predict(ctx context.Context, userID string, productID int64, coord *location.Coordinate) (backend.ProductForecast, error)
	SalesHistory(ctx context.Context, userID string) ([]backend.SalesRecord, error)
	Summary(ctx context.Context, userID string) (backend.Summary, error)
}

type SyncOptions struct {
	// ForecastConcurrency caps in-flight forecast requests; <= 0 means 8.
	ForecastConcurrency int
	// Timeout bounds a whole sync cycle; 0 disables it.
	Timeout time.Duration
	Metrics *Metrics
}

type Syncer struct {
	backend     Backend
	store       *Store
	metrics     *Metrics
	concurrency int64
	timeout     time.Duration
}

func NewSyncer(b Backend, store *Store, opts SyncOptions) *Syncer {
	concurrency := opts.ForecastConcurrency
	if concurrency <= 0 {
		concurrency = 8
	}
	return &Syncer{
		backend:     b,
		store:       store,
		metrics:     opts.Metrics,
		concurrency: int64(concurrency),
		timeout:     opts.Timeout,
	}
}

// Store returns the store the syncer publishes to.
func (s *Syncer) Store() *Store { return s.store }

// Sync runs one full cycle and publishes the result. The returned snapshot
// is what this cycle assembled; the store may already hold a newer one.
func (s *Syncer) Sync(ctx context.Context, id session.Identity, coord *location.Coordinate) (Snapshot, error) {
	gen := s.store.Begin()
	defer s.store.End(gen)

	trace := util.ShortID("sync")
	started := time.Now()
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	snap, err := s.assemble(ctx, trace, id, coord)
	if err != nil {
		s.metrics.observeSync("error", started)
		log.Printf("sync: %s gen=%d failed after %s: %v", trace, gen, time.Since(started).Round(time.Millisecond), err)
		return Snapshot{}, err
	}
	snap.SyncedAt = time.Now()
	snap.Generation = gen

	if !s.store.Replace(gen, snap) {
		s.metrics.observeSync("stale", started)
		log.Printf("sync: %s gen=%d superseded, result discarded", trace, gen)
		return snap, nil
	}
	s.metrics.observeSync("ok", started)
	log.Printf("sync: %s gen=%d products=%d forecasts=%d in %s", trace, gen, len(snap.Products), len(snap.Forecasts), time.Since(started).Round(time.Millisecond))
	return snap, nil
}

func (s *Syncer) assemble(ctx context.Context, trace string, id session.Identity, coord *location.Coordinate) (Snapshot, error) {
	snap := emptySnapshot()

	products, err := s.backend.ListProducts(ctx, id.UserID)
	if err != nil {
		return Snapshot{}, &SyncFailure{Stage: "products", Err: err}
	}
	if len(products) == 0 {
		return snap, nil
	}
	snap.Products = products

	results := s.fetchForecasts(ctx, id.UserID, products, coord)
	forecasts, label, failed := collectForecasts(results)
	for _, r := range results {
		if r.err != nil {
			log.Printf("sync: %s dropped forecast for product %d: %v", trace, r.productID, r.err)
		}
	}
	s.metrics.forecastFailed(failed)
	snap.Forecasts = forecasts
	if label != "" {
		snap.LocationLabel = label
	}

	history, err := s.backend.SalesHistory(ctx, id.UserID)
	if err != nil {
		return Snapshot{}, &SyncFailure{Stage: "history", Err: err}
	}
	if history != nil {
		snap.History = history
	}

	summary, err := s.backend.Summary(ctx, id.UserID)
	if err != nil {
		return Snapshot{}, &SyncFailure{Stage: "summary", Err: err}
	}
	snap.Summary = &summary
	return snap, nil
}

type forecastResult struct {
	productID int64
	forecast  ProductForecast
	err       error
}

// fetchForecasts requests every product's forecast and waits for all of
// them. A failure never cancels its siblings. Results are in completion order.
func (s *Syncer) fetchForecasts(ctx context.Context, userID string, products []Product, coord *location.Coordinate) []forecastResult {
	sem := semaphore.NewWeighted(s.concurrency)
	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		results = make([]forecastResult, 0, len(products))
	)
	record := func(r forecastResult) {
		mu.Lock()
		results = append(results, r)
		mu.Unlock()
	}

	for _, p := range products {
		if err := sem.Acquire(ctx, 1); err != nil {
			record(forecastResult{productID: p.ID, err: err})
			continue
		}
		wg.Add(1)
		go func(p Product) {
			defer wg.Done()
			defer sem.Release(1)
			fc, err := s.backend.Predict(ctx, userID, p.ID, coord)
			if err != nil {
				record(forecastResult{productID: p.ID, err: err})
				return
			}
			record(forecastResult{productID: p.ID, forecast: decorate(fc, p)})
		}(p)
	}
	wg.Wait()
	return results
}

// collectForecasts drops failed results, takes the last non-empty location
// label seen, and orders survivors by product id.
func collectForecasts(results []forecastResult) ([]ProductForecast, string, int) {
	forecasts := make([]ProductForecast, 0, len(results))
	var label string
	failed := 0
	for _, r := range results {
		if r.err != nil {
			failed++
			continue
		}
		if r.forecast.Location != "" {
			label = r.forecast.Location
		}
		forecasts = append(forecasts, r.forecast)
	}
	sort.SliceStable(forecasts, func(i, j int) bool {
		return forecasts[i].ProductID < forecasts[j].ProductID
	})
	return forecasts, label, failed
}

func decorate(fc ProductForecast, p Product) ProductForecast {
	fc.ProductID = p.ID
	fc.ProductName = p.Name
	days := make([]ForecastDay, len(fc.Forecast))
	for i, day := range fc.Forecast {
		day.Category = advice.Classify(day.Advice)
		days[i] = day
	}
	fc.Forecast = days
	return fc
}
