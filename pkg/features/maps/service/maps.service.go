package mapservice

import (
	"context"
	"errors"
	"sync"

	"github.com/Gamequic/ProfileDirectory/pkg/features/geocode"

	"go.uber.org/zap"
)

const (
	DefaultZoom = 13
	MaxZoom     = 19
)

// DefaultCenter is where the map sits before, or without, a marker.
var DefaultCenter = geocode.Coordinates{Lat: 51.505, Lon: -0.09}

type Locator interface {
	Locate(ctx context.Context, address string) (geocode.Coordinates, error)
}

// State is everything the page needs to draw the map.
type State struct {
	Address  string               `json:"address"`
	Center   geocode.Coordinates  `json:"center"`
	Zoom     int                  `json:"zoom"`
	MaxZoom  int                  `json:"maxZoom"`
	TileURL  string               `json:"tileUrl"`
	Marker   *geocode.Coordinates `json:"marker,omitempty"`
	Pending  bool                 `json:"pending,omitempty"`
	NotFound bool                 `json:"notFound,omitempty"`
}

// BaseState is the map before the lookup finishes: default center and no marker.
func BaseState(tileURL, address string) State {
	return State{
		Address: address,
		Center:  DefaultCenter,
		Zoom:    DefaultZoom,
		MaxZoom: MaxZoom,
		TileURL: tileURL,
		Pending: true,
	}
}

// Resolve applies a lookup outcome to base. Failures keep the base map and
// mark the address as not found.
func Resolve(base State, coords geocode.Coordinates, err error, logger *zap.Logger) State {
	if logger == nil {
		logger = zap.NewNop()
	}
	state := base
	state.Pending = false
	if err != nil {
		if errors.Is(err, geocode.ErrAddressNotFound) {
			logger.Warn("Address not found", zap.String("address", base.Address))
		} else {
			logger.Error("Error fetching geocode", zap.String("address", base.Address), zap.Error(err))
		}
		state.NotFound = true
		return state
	}
	state.Center = coords
	state.Marker = &coords
	return state
}

// Locate looks the address up and waits for the outcome.
func Locate(ctx context.Context, locator Locator, tileURL, address string, logger *zap.Logger) State {
	coords, err := locator.Locate(ctx, address)
	return Resolve(BaseState(tileURL, address), coords, err, logger)
}

// View is one open map popup. It shows one address at a time. Opening a new
// address replaces the old one, and lookups that finish after being replaced,
// or after Close, are dropped.
type View struct {
	mu         sync.Mutex
	locator    Locator
	tileURL    string
	logger     *zap.Logger
	emit       func(State)
	generation uint64
	closed     bool
	wg         sync.WaitGroup
}

// NewView returns a view that reports every state change to emit. emit is
// never called concurrently and never after Close returns.
func NewView(locator Locator, tileURL string, logger *zap.Logger, emit func(State)) *View {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &View{locator: locator, tileURL: tileURL, logger: logger, emit: emit}
}

// Open emits the base map at once and looks up address in the background.
func (v *View) Open(ctx context.Context, address string) {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return
	}
	v.generation++
	gen := v.generation
	base := BaseState(v.tileURL, address)
	v.emit(base)
	v.mu.Unlock()

	v.wg.Add(1)
	go func() {
		defer v.wg.Done()
		coords, err := v.locator.Locate(ctx, address)

		v.mu.Lock()
		defer v.mu.Unlock()
		if v.closed || gen != v.generation {
			v.logger.Debug("Discarding stale geocode result", zap.String("address", address))
			return
		}
		v.emit(Resolve(base, coords, err, v.logger))
	}()
}

func (v *View) Close() {
	v.mu.Lock()
	v.closed = true
	v.mu.Unlock()
}

// Wait blocks until every lookup started by Open has returned.
func (v *View) Wait() {
	v.wg.Wait()
}
