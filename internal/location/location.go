// Package location acquires an optional geographic coordinate. Every failure
// mode collapses to "no coordinate"; callers never see a location error.
package location

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"
)

type Coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

var (
	ErrUnsupported = errors.New("location: capability unavailable")
	ErrDenied      = errors.New("location: lookup denied")
)

// Resolver makes one location attempt.
type Resolver interface {
	Resolve(ctx context.Context) (*Coordinate, error)
}

// Resolve runs a single bounded attempt and normalizes every failure to nil.
// The bound holds even for a resolver that ignores ctx; its late answer is dropped.
func Resolve(ctx context.Context, r Resolver, timeout time.Duration) *Coordinate {
	if r == nil {
		return nil
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	type result struct {
		coord *Coordinate
		err   error
	}
	done := make(chan result, 1)
	go func() {
		coord, err := r.Resolve(ctx)
		done <- result{coord, err}
	}()

	var coord *Coordinate
	var err error
	select {
	case res := <-done:
		coord, err = res.coord, res.err
	case <-ctx.Done():
		err = ctx.Err()
	}
	if err != nil {
		if !errors.Is(err, ErrUnsupported) {
			log.Printf("location: falling back to none: %v", err)
		}
		return nil
	}
	if coord == nil {
		return nil
	}
	c := *coord
	return &c
}

// Noop stands in when no location capability exists.
type Noop struct{}

func (Noop) Resolve(context.Context) (*Coordinate, error) { return nil, ErrUnsupported }

// Static always answers with a configured coordinate.
type Static struct {
	Coordinate Coordinate
}

func (s Static) Resolve(context.Context) (*Coordinate, error) {
	c := s.Coordinate
	return &c, nil
}

// IPLookup asks an IP geolocation service (ip-api.com JSON shape).
type IPLookup struct {
	URL  string
	HTTP *http.Client
}

func NewIPLookup(url string) *IPLookup {
	return &IPLookup{URL: url, HTTP: http.DefaultClient}
}

func (l *IPLookup) Resolve(ctx context.Context) (*Coordinate, error) {
	if l == nil || l.URL == "" {
		return nil, ErrUnsupported
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("build lookup request: %w", err)
	}
	client := l.HTTP
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("lookup: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrDenied, resp.StatusCode)
	}

	var body struct {
		Status  string   `json:"status"`
		Message string   `json:"message"`
		Lat     *float64 `json:"lat"`
		Lon     *float64 `json:"lon"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode lookup: %w", err)
	}
	if body.Status != "" && body.Status != "success" {
		return nil, fmt.Errorf("%w: %s", ErrDenied, body.Message)
	}
	if body.Lat == nil || body.Lon == nil {
		return nil, fmt.Errorf("%w: no coordinate in response", ErrDenied)
	}
	return &Coordinate{Latitude: *body.Lat, Longitude: *body.Lon}, nil
}
