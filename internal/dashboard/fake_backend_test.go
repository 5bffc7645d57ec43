package dashboard

import (
	"context"
	"errors"
	"sync"

	"merchantdash/internal/backend"
	"merchantdash/internal/location"
)

// fakeBackend is an in-memory merchant API. Hooks override individual calls.
type fakeBackend struct {
	mu       sync.Mutex
	products []backend.Product
	history  []backend.SalesRecord
	summary  backend.Summary
	location string

	listFn    func(ctx context.Context, call int) ([]backend.Product, error)
	predictFn func(ctx context.Context, productID int64, coord *location.Coordinate) (backend.ProductForecast, error)
	historyFn func(ctx context.Context) ([]backend.SalesRecord, error)
	summaryFn func(ctx context.Context) (backend.Summary, error)
	saleFn    func(ctx context.Context, req backend.SaleRequest) error
	restockFn func(ctx context.Context, req backend.RestockRequest) error
	retrainFn func(ctx context.Context) (backend.RetrainResponse, error)

	calls  map[string]int
	coords []*location.Coordinate
}

func newFakeBackend(products ...backend.Product) *fakeBackend {
	return &fakeBackend{products: products, location: "Jakarta", calls: make(map[string]int)}
}

func (f *fakeBackend) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[name]++
	return f.calls[name]
}

func (f *fakeBackend) Calls(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeBackend) ListProducts(ctx context.Context, _ string) ([]backend.Product, error) {
	call := f.count("products")
	if f.listFn != nil {
		return f.listFn(ctx, call)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]backend.Product, len(f.products))
	copy(out, f.products)
	return out, nil
}

func (f *fakeBackend) Predict(ctx context.Context, _ string, productID int64, coord *location.Coordinate) (backend.ProductForecast, error) {
	f.count("predict")
	f.mu.Lock()
	f.coords = append(f.coords, coord)
	f.mu.Unlock()
	if f.predictFn != nil {
		return f.predictFn(ctx, productID, coord)
	}
	return backend.ProductForecast{
		ProductID: productID,
		Location:  f.location,
		Forecast: []backend.ForecastDay{
			{Date: "14 Oct", Weather: "Cerah", PredictedSales: 40, Advice: "Stok Banyak 🔥"},
			{Date: "15 Oct", Weather: "Hujan", PredictedSales: 10, Advice: "Kurangi ⚠️"},
			{Date: "16 Oct", Weather: "Berawan", PredictedSales: 20, Advice: "Normal"},
		},
	}, nil
}

func (f *fakeBackend) SalesHistory(ctx context.Context, _ string) ([]backend.SalesRecord, error) {
	f.count("history")
	if f.historyFn != nil {
		return f.historyFn(ctx)
	}
	return f.history, nil
}

func (f *fakeBackend) Summary(ctx context.Context, _ string) (backend.Summary, error) {
	f.count("summary")
	if f.summaryFn != nil {
		return f.summaryFn(ctx)
	}
	return f.summary, nil
}

func (f *fakeBackend) RecordSale(ctx context.Context, _ string, req backend.SaleRequest, _ *location.Coordinate) error {
	f.count("sale")
	if f.saleFn != nil {
		return f.saleFn(ctx, req)
	}
	return nil
}

func (f *fakeBackend) Restock(ctx context.Context, _ string, req backend.RestockRequest) error {
	f.count("restock")
	if f.restockFn != nil {
		return f.restockFn(ctx, req)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.products {
		if f.products[i].ID == req.ProductID {
			f.products[i].Stock += req.Quantity
			return nil
		}
	}
	return &backend.APIError{Status: 404, Detail: "Akses ditolak"}
}

func (f *fakeBackend) Retrain(ctx context.Context, _ string) (backend.RetrainResponse, error) {
	f.count("retrain")
	if f.retrainFn != nil {
		return f.retrainFn(ctx)
	}
	return backend.RetrainResponse{}, errors.New("not configured")
}
