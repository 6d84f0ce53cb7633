package listing

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/vanderheijden86/taxa/pkg/debug"
	"github.com/vanderheijden86/taxa/pkg/logging"
	"github.com/vanderheijden86/taxa/pkg/metrics"
	"github.com/vanderheijden86/taxa/pkg/model"
	"github.com/vanderheijden86/taxa/pkg/viewstate"
)

// DefaultSlowAfter is how long a request may run before it is reported as
// taking too long.
const DefaultSlowAfter = 10 * time.Second

// Request is one issued listing fetch.
type Request struct {
	Seq   uint64
	Query viewstate.QueryState
}

// Result is the outcome of a Request.
type Result struct {
	Seq     uint64
	Query   viewstate.QueryState
	Page    model.ResultPage
	Err     error
	Elapsed time.Duration
}

// Gateway issues listing requests and applies only the answer to the most
// recently issued one. Older answers are dropped on arrival, so a slow
// response can never overwrite a newer page. Safe for concurrent use.
type Gateway struct {
	src       Source
	slowAfter time.Duration
	log       logrus.FieldLogger

	onLoaded func(model.ResultPage)
	onError  func(error)
	onSlow   func(bool)

	mu        sync.Mutex
	latest    uint64
	page      model.ResultPage
	query     viewstate.QueryState
	err       error
	inFlight  bool
	slow      bool
	slowTimer *time.Timer
}

// GatewayOption configures a Gateway.
type GatewayOption func(*Gateway)

// WithSlowAfter sets the "taking too long" threshold. Zero disables it.
func WithSlowAfter(d time.Duration) GatewayOption {
	return func(g *Gateway) { g.slowAfter = d }
}

// WithOnLoaded registers a hook for applied pages.
func WithOnLoaded(fn func(model.ResultPage)) GatewayOption {
	return func(g *Gateway) { g.onLoaded = fn }
}

// WithOnError registers a hook for failed latest requests.
func WithOnError(fn func(error)) GatewayOption {
	return func(g *Gateway) { g.onError = fn }
}

// WithOnSlow registers a hook toggled when the latest request crosses the
// slow threshold and again when it resolves.
func WithOnSlow(fn func(bool)) GatewayOption {
	return func(g *Gateway) { g.onSlow = fn }
}

// WithLogger sets the logger for failed requests.
func WithLogger(l logrus.FieldLogger) GatewayOption {
	return func(g *Gateway) { g.log = l }
}

// NewGateway returns a gateway over src.
func NewGateway(src Source, opts ...GatewayOption) *Gateway {
	g := &Gateway{
		src:       src,
		slowAfter: DefaultSlowAfter,
		log:       logging.Discard(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Source returns the underlying source.
func (g *Gateway) Source() Source {
	return g.src
}

// SlowAfter returns the slow threshold.
func (g *Gateway) SlowAfter() time.Duration {
	return g.slowAfter
}

// Begin issues a new request for q and makes it the latest. A slow flag
// raised for the superseded request is cleared; the new request gets its
// own threshold.
func (g *Gateway) Begin(q viewstate.QueryState) Request {
	g.mu.Lock()
	g.latest++
	g.inFlight = true
	g.query = q
	wasSlow := g.slow
	g.slow = false
	if g.slowTimer != nil {
		g.slowTimer.Stop()
		g.slowTimer = nil
	}
	req := Request{Seq: g.latest, Query: q}
	g.mu.Unlock()

	if wasSlow && g.onSlow != nil {
		g.onSlow(false)
	}
	return req
}

// Execute performs the blocking fetch for req. It does not touch gateway
// state; pass the result to Resolve.
func (g *Gateway) Execute(ctx context.Context, req Request) Result {
	start := time.Now()
	page, err := g.src.Items(ctx, req.Query)
	elapsed := time.Since(start)
	metrics.ListingFetch.Record(elapsed)
	return Result{Seq: req.Seq, Query: req.Query, Page: page, Err: err, Elapsed: elapsed}
}

// Resolve applies res if it answers the latest request and reports whether
// it did. A failed latest request keeps the previous page.
func (g *Gateway) Resolve(res Result) bool {
	g.mu.Lock()
	if res.Seq != g.latest {
		latest := g.latest
		g.mu.Unlock()
		debug.Log("listing: dropping stale result %d (latest %d)", res.Seq, latest)
		return false
	}
	g.inFlight = false
	wasSlow := g.slow
	g.slow = false
	if g.slowTimer != nil {
		g.slowTimer.Stop()
		g.slowTimer = nil
	}
	if res.Err != nil {
		g.err = res.Err
	} else {
		g.err = nil
		g.page = res.Page
	}
	g.mu.Unlock()

	if wasSlow && g.onSlow != nil {
		g.onSlow(false)
	}
	if res.Err != nil {
		g.log.WithError(res.Err).WithField("seq", res.Seq).Warn("listing request failed")
		if g.onError != nil {
			g.onError(res.Err)
		}
		return true
	}
	if g.onLoaded != nil {
		g.onLoaded(res.Page)
	}
	return true
}

// MarkSlow flags request seq as taking too long if it is still the latest
// unresolved request, and reports whether it did.
func (g *Gateway) MarkSlow(seq uint64) bool {
	g.mu.Lock()
	if seq != g.latest || !g.inFlight || g.slow {
		g.mu.Unlock()
		return false
	}
	g.slow = true
	g.mu.Unlock()

	if g.onSlow != nil {
		g.onSlow(true)
	}
	return true
}

// FetchPage issues a request for q, runs it in the background and applies
// the result if it is still the latest. The returned channel delivers the
// result once resolution has happened.
func (g *Gateway) FetchPage(ctx context.Context, q viewstate.QueryState) <-chan Result {
	req := g.Begin(q)
	if g.slowAfter > 0 {
		t := time.AfterFunc(g.slowAfter, func() { g.MarkSlow(req.Seq) })
		g.mu.Lock()
		if g.slowTimer != nil {
			g.slowTimer.Stop()
		}
		g.slowTimer = t
		g.mu.Unlock()
	}

	done := make(chan Result, 1)
	go func() {
		res := g.Execute(ctx, req)
		g.Resolve(res)
		done <- res
		close(done)
	}()
	return done
}

// Lookup returns the row with id from the current page.
func (g *Gateway) Lookup(id string) (model.RecordSummary, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.page.Find(id)
}

// Page returns the current page.
func (g *Gateway) Page() model.ResultPage {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.page
}

// Total returns the unpaged row count of the current page's query.
func (g *Gateway) Total() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.page.Total
}

// Query returns the query of the latest issued request.
func (g *Gateway) Query() viewstate.QueryState {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.query
}

// Err returns the error of the latest resolved request.
func (g *Gateway) Err() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.err
}

// InFlight reports whether the latest request is unresolved.
func (g *Gateway) InFlight() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.inFlight
}

// Slow reports whether the latest request crossed the slow threshold.
func (g *Gateway) Slow() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.slow
}

// Latest returns the sequence number of the latest issued request.
func (g *Gateway) Latest() uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.latest
}
