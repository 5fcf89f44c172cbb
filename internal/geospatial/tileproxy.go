package geospatial

import (
	"context"
	"io"
	"net/http"
	"path"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/sponge-spot/internal/resilience"
)

// DefaultTileTemplate is the public OpenStreetMap raster endpoint.
const DefaultTileTemplate = "https://{s}.tile.openstreetmap.org/{z}/{x}/{y}.png"

// DefaultMaxTileBytes bounds a single upstream tile body.
const DefaultMaxTileBytes = 2 << 20

// TileProxyOptions configures the basemap proxy.
type TileProxyOptions struct {
	// Template holds {s}, {z}, {x} and {y} placeholders.
	Template   string
	Subdomains []string
	MaxZoom    int
	UserAgent  string
	Timeout    time.Duration
	// MaxBytes rejects larger tile bodies; zero means DefaultMaxTileBytes.
	MaxBytes int64

	// RatePerSecond limits upstream requests; zero disables limiting.
	RatePerSecond float64
	Burst         int

	Retry   resilience.RetryConfig
	Breaker *resilience.Breaker
}

// TileProxy proxies basemap raster tiles from an upstream tile server.
type TileProxy struct {
	opts    TileProxyOptions
	client  *http.Client
	cache   *TileCache
	limiter *rate.Limiter
	next    atomic.Uint64
}

// NewTileProxy creates a basemap tile proxy. cache may be nil.
func NewTileProxy(opts TileProxyOptions, cache *TileCache) *TileProxy {
	if opts.Template == "" {
		opts.Template = DefaultTileTemplate
	}
	if opts.MaxZoom <= 0 {
		opts.MaxZoom = 19
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = DefaultMaxTileBytes
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "sponge-spot/1.0"
	}
	if opts.Retry.MaxAttempts == 0 {
		opts.Retry = resilience.DefaultRetryConfig()
	}
	if opts.Retry.OnRetry == nil {
		opts.Retry.OnRetry = resilience.RetryLogger("basemap tile")
	}

	var limiter *rate.Limiter
	if opts.RatePerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RatePerSecond), max(opts.Burst, 1))
	}

	return &TileProxy{
		opts:    opts,
		client:  &http.Client{Timeout: opts.Timeout},
		cache:   cache,
		limiter: limiter,
	}
}

// URL expands the template for coord, rotating through the subdomains.
func (p *TileProxy) URL(coord TileCoord) string {
	sub := ""
	if n := len(p.opts.Subdomains); n > 0 {
		sub = p.opts.Subdomains[int(p.next.Add(1)-1)%n]
	}
	return strings.NewReplacer(
		"{s}", sub,
		"{z}", strconv.Itoa(coord.Z),
		"{x}", strconv.Itoa(coord.X),
		"{y}", strconv.Itoa(coord.Y),
	).Replace(p.opts.Template)
}

// Fetch retrieves a basemap tile from the cache or the upstream server.
func (p *TileProxy) Fetch(ctx context.Context, coord TileCoord) ([]byte, string, error) {
	if !coord.Valid(p.opts.MaxZoom) {
		return nil, "", eris.Errorf("geo: invalid tile %d/%d/%d", coord.Z, coord.X, coord.Y)
	}

	if p.cache != nil {
		if cached := p.cache.Get(coord); cached != nil {
			return cached, p.contentType(), nil
		}
	}

	if err := p.opts.Breaker.Allow(); err != nil {
		return nil, "", err
	}
	data, err := resilience.DoVal(ctx, p.opts.Retry, func(ctx context.Context) ([]byte, error) {
		return p.fetchOnce(ctx, coord)
	})
	if err != nil && ctx.Err() != nil {
		p.opts.Breaker.Release()
		return nil, "", eris.Wrap(err, "geo: basemap tile request ended")
	}
	p.opts.Breaker.Record(err)
	if err != nil {
		return nil, "", err
	}

	if p.cache != nil {
		p.cache.Put(coord, data)
	}
	return data, p.contentType(), nil
}

func (p *TileProxy) fetchOnce(ctx context.Context, coord TileCoord) ([]byte, error) {
	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "geo: wait for tile rate limit")
		}
	}

	url := p.URL(coord)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, eris.Wrap(err, "geo: create basemap request")
	}
	req.Header.Set("User-Agent", p.opts.UserAgent)

	resp, err := p.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, eris.Wrap(err, "geo: fetch basemap tile")
		}
		return nil, resilience.NewTransientError(eris.Wrap(err, "geo: fetch basemap tile"), 0)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, resilience.StatusError(resp.StatusCode, url)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, p.opts.MaxBytes+1))
	if err != nil {
		return nil, resilience.NewTransientError(eris.Wrap(err, "geo: read basemap tile body"), 0)
	}
	if int64(len(data)) > p.opts.MaxBytes {
		return nil, eris.Errorf("geo: basemap tile %s exceeds %d bytes", url, p.opts.MaxBytes)
	}

	zap.L().Debug("geo: fetched basemap tile", zap.String("url", url), zap.Int("bytes", len(data)))
	return data, nil
}

// contentType derives the MIME type from the template's file extension.
func (p *TileProxy) contentType() string {
	switch strings.TrimPrefix(path.Ext(p.opts.Template), ".") {
	case "png":
		return "image/png"
	case "jpg", "jpeg":
		return "image/jpeg"
	case "webp":
		return "image/webp"
	default:
		return "application/octet-stream"
	}
}

// ServeHTTP serves /{z}/{x}/{y}.{ext} relative to the mount point.
func (p *TileProxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	coord, err := ParseTilePath(r.URL.Path)
	if err != nil || !coord.Valid(p.opts.MaxZoom) {
		http.Error(w, "invalid tile path", http.StatusBadRequest)
		return
	}

	data, ct, err := p.Fetch(r.Context(), coord)
	if err != nil {
		zap.L().Error("basemap tile fetch failed",
			zap.Int("z", coord.Z), zap.Int("x", coord.X), zap.Int("y", coord.Y),
			zap.Error(err),
		)
		status := http.StatusBadGateway
		if eris.Is(err, resilience.ErrBreakerOpen) {
			status = http.StatusServiceUnavailable
		}
		http.Error(w, "upstream fetch failed", status)
		return
	}

	w.Header().Set("Content-Type", ct)
	w.Header().Set("Cache-Control", "public, max-age=3600")
	_, _ = w.Write(data)
}

// ParseTilePath parses "/{z}/{x}/{y}.{ext}" (a leading prefix is ignored).
func ParseTilePath(p string) (TileCoord, error) {
	parts := strings.Split(strings.Trim(p, "/"), "/")
	if len(parts) < 3 {
		return TileCoord{}, eris.Errorf("geo: invalid tile path %q", p)
	}
	parts = parts[len(parts)-3:]

	z, err := strconv.Atoi(parts[0])
	if err != nil {
		return TileCoord{}, eris.Wrap(err, "geo: invalid z")
	}
	x, err := strconv.Atoi(parts[1])
	if err != nil {
		return TileCoord{}, eris.Wrap(err, "geo: invalid x")
	}
	yStr := parts[2]
	if dot := strings.IndexByte(yStr, '.'); dot >= 0 {
		yStr = yStr[:dot]
	}
	y, err := strconv.Atoi(yStr)
	if err != nil {
		return TileCoord{}, eris.Wrap(err, "geo: invalid y")
	}
	return TileCoord{Z: z, X: x, Y: y}, nil
}
