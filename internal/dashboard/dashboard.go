// Package dashboard renders the delivery service and config node lists of a
// CDN configuration server and drives cache invalidation against it.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/HerbHall/cdndash/internal/backend"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Invalidation outcomes reported by Dashboard.Invalidate.
var (
	ErrEmptyPattern       = errors.New("empty invalidation pattern")
	ErrInvalidationFailed = errors.New("invalidation request failed")
	ErrRateLimited        = errors.New("too many invalidation requests, try again later")
	ErrUnknownButton      = errors.New("unknown navigation button")
)

// invalidationFailed is shown for any non-OK invalidation response.
const invalidationFailed = "Invalidation request failed."

// Backend is the subset of the configuration server API the dashboard uses.
type Backend interface {
	URL(path string) string
	ListDeliveryServices(ctx context.Context) (*backend.ServiceList, error)
	ListConfigNodes(ctx context.Context) (*backend.NodeList, error)
	Invalidate(ctx context.Context, pattern string) (*backend.InvalidateResult, error)
}

// Option configures a Dashboard.
type Option func(*Dashboard)

// WithMarkup replaces the default HTML markup.
func WithMarkup(m Markup) Option {
	return func(d *Dashboard) { d.markup = m }
}

// WithInvalidateLimit caps how often invalidations reach the backend. A
// non-positive rps leaves invalidation unlimited.
func WithInvalidateLimit(rps float64, burst int) Option {
	return func(d *Dashboard) {
		if rps <= 0 {
			d.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		d.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// Dashboard implements the dashboard operations against a View.
type Dashboard struct {
	api     Backend
	markup  Markup
	limiter *rate.Limiter
	logger  *zap.Logger
}

// New creates a Dashboard backed by api.
func New(api Backend, logger *zap.Logger, opts ...Option) *Dashboard {
	d := &Dashboard{
		api:    api,
		markup: HTMLMarkup{},
		logger: logger,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Load fetches both lists concurrently and renders each into its container.
// A failure of one list does not affect the other.
func (d *Dashboard) Load(ctx context.Context, v View) {
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		d.LoadServices(ctx, v)
	}()
	go func() {
		defer wg.Done()
		d.LoadNodes(ctx, v)
	}()
	wg.Wait()
}

// LoadServices renders the delivery service table into TargetServices.
func (d *Dashboard) LoadServices(ctx context.Context, v View) {
	list, err := d.api.ListDeliveryServices(ctx)
	if err != nil {
		d.renderError(v, Services, err)
		return
	}
	d.logger.Debug("delivery services loaded",
		zap.Int("count", len(list.Names)),
		zap.Int("config_version", list.Version),
	)
	d.render(v, Services.Target, d.markup.Table(Services, list.Names))
}

// LoadNodes renders the config node table into TargetNodes.
func (d *Dashboard) LoadNodes(ctx context.Context, v View) {
	list, err := d.api.ListConfigNodes(ctx)
	if err != nil {
		d.renderError(v, Nodes, err)
		return
	}
	d.logger.Debug("config nodes loaded",
		zap.Int("count", len(list.Names)),
		zap.Int("config_version", list.Version),
	)
	d.render(v, Nodes.Target, d.markup.Table(Nodes, list.Names))
}

// Navigate sends the view to the page behind a navigation button.
func (d *Dashboard) Navigate(v View, buttonID string) error {
	page, ok := PageFor(buttonID)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownButton, buttonID)
	}
	v.Navigate(page)
	return nil
}

// Invalidate reads the pattern from the view, asks the backend to invalidate
// matching entries and writes the outcome into OutputInvalidate. An empty
// pattern raises an alert and sends nothing.
func (d *Dashboard) Invalidate(ctx context.Context, v View) (*backend.InvalidateResult, error) {
	pattern := v.Value(InputPattern)
	if pattern == "" {
		v.Alert(emptyPatternAlert)
		return nil, ErrEmptyPattern
	}

	if d.limiter != nil && !d.limiter.Allow() {
		d.logger.Warn("invalidation rate limited", zap.String("pattern", pattern))
		v.SetText(OutputInvalidate, StatusText(ErrRateLimited))
		return nil, ErrRateLimited
	}

	res, err := d.api.Invalidate(ctx, pattern)
	if err != nil {
		d.logger.Error("invalidating cache", zap.String("pattern", pattern), zap.Error(err))
		var se *backend.StatusError
		if errors.As(err, &se) {
			v.SetText(OutputInvalidate, "Error: "+invalidationFailed)
			return nil, fmt.Errorf("%w: backend returned %d", ErrInvalidationFailed, se.Code)
		}
		v.SetText(OutputInvalidate, StatusText(err))
		return nil, err
	}

	d.logger.Info("cache invalidation requested",
		zap.String("pattern", pattern),
		zap.String("status_id", res.StatusID),
	)
	v.SetText(OutputInvalidate, res.Message)
	return res, nil
}

// StatusText is the invalidation status line for a failure.
func StatusText(err error) string {
	return "Error: " + err.Error()
}

func (d *Dashboard) renderError(v View, l List, err error) {
	url := d.api.URL(l.Path)
	d.logger.Warn("loading "+l.Label,
		zap.String("url", url),
		zap.Error(err),
	)
	d.render(v, l.Target, d.markup.LoadError(l, url, err))
}

func (d *Dashboard) render(v View, target, content string) {
	if d.markup.HTML() {
		v.SetHTML(target, content)
		return
	}
	v.SetText(target, content)
}
