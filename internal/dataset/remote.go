package dataset

import (
	"bytes"
	"context"
	"io"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/sponge-spot/internal/resilience"
)

// maxRemoteSize bounds a downloaded catalog.
const maxRemoteSize = 16 << 20

// RemoteOptions configures catalog downloads.
type RemoteOptions struct {
	UserAgent string
	Timeout   time.Duration
	Retry     resilience.RetryConfig
}

// LoadSource loads a catalog from an http(s) URL, a local file, or the
// embedded catalog when src is empty.
func LoadSource(ctx context.Context, src string, opts RemoteOptions) (*Dataset, error) {
	if strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://") {
		return LoadURL(ctx, src, opts)
	}
	return LoadFile(src)
}

// LoadURL downloads a catalog, retrying transient failures. The format is
// JSON when the response says so or the URL path ends in .json, YAML
// otherwise.
func LoadURL(ctx context.Context, rawURL string, opts RemoteOptions) (*Dataset, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, eris.Wrapf(err, "dataset: parse url %s", rawURL)
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "sponge-spot/1.0"
	}
	if opts.Retry.MaxAttempts == 0 {
		opts.Retry = resilience.DefaultRetryConfig()
	}
	if opts.Retry.OnRetry == nil {
		opts.Retry.OnRetry = resilience.RetryLogger("dataset download")
	}
	client := &http.Client{Timeout: opts.Timeout}

	type payload struct {
		body        []byte
		contentType string
	}
	p, err := resilience.DoVal(ctx, opts.Retry, func(ctx context.Context) (payload, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return payload{}, eris.Wrap(err, "dataset: create request")
		}
		req.Header.Set("User-Agent", opts.UserAgent)

		resp, err := client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return payload{}, eris.Wrap(err, "dataset: download")
			}
			return payload{}, resilience.NewTransientError(eris.Wrap(err, "dataset: download"), 0)
		}
		defer func() { _ = resp.Body.Close() }()

		if resp.StatusCode != http.StatusOK {
			return payload{}, resilience.StatusError(resp.StatusCode, rawURL)
		}
		body, err := io.ReadAll(io.LimitReader(resp.Body, maxRemoteSize+1))
		if err != nil {
			return payload{}, resilience.NewTransientError(eris.Wrap(err, "dataset: read body"), 0)
		}
		if len(body) > maxRemoteSize {
			return payload{}, eris.Errorf("dataset: %s exceeds %d bytes", rawURL, maxRemoteSize)
		}
		return payload{body: body, contentType: resp.Header.Get("Content-Type")}, nil
	})
	if err != nil {
		return nil, err
	}

	var d *Dataset
	if isJSON(p.contentType, u.Path) {
		d, err = LoadJSON(bytes.NewReader(p.body))
	} else {
		d, err = Load(bytes.NewReader(p.body))
	}
	if err != nil {
		return nil, err
	}
	zap.L().Info("dataset downloaded", zap.String("url", rawURL), zap.Int("locations", d.Len()))
	return d, nil
}

func isJSON(contentType, urlPath string) bool {
	if mt, _, err := mime.ParseMediaType(contentType); err == nil {
		if mt == "application/json" || strings.HasSuffix(mt, "+json") {
			return true
		}
	}
	return strings.EqualFold(path.Ext(urlPath), ".json")
}
