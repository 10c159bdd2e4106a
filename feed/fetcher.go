package feed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/creativeprojects/feedme/lib"
	"github.com/creativeprojects/feedme/limitio"
	"github.com/hashicorp/go-cleanhttp"
)

const (
	DefaultConnectTimeout = 10 * time.Second
	DefaultReadTimeout    = 30 * time.Second
	DefaultMaxRedirects   = 10
	DefaultMaxBodySize    = 20 * 1024 * 1024
	DefaultUserAgent      = "feedme"

	rateLimitBurst = 4096
)

var (
	ErrTooManyRedirects = errors.New("too many redirects")
	ErrMissingLocation  = errors.New("redirect without location")
	ErrBodyTooLarge     = errors.New("response body too large")
)

type FetcherConfig struct {
	ConnectTimeout time.Duration
	// ReadTimeout bounds each response, headers and body
	ReadTimeout time.Duration
	// MaxRedirects defaults to DefaultMaxRedirects when zero
	MaxRedirects int
	// NoRedirects refuses any redirection, whatever MaxRedirects
	NoRedirects bool
	MaxBodySize int64
	// RateLimit in bytes per second, zero is unlimited
	RateLimit float64
	UserAgent string
}

// Fetcher downloads feeds over HTTP(S). Redirects are followed by the fetcher itself, up to a bound.
type Fetcher struct {
	client *http.Client
	config FetcherConfig
	log    lib.Logger
}

func NewFetcher(config FetcherConfig, logger lib.Logger) *Fetcher {
	if config.ConnectTimeout <= 0 {
		config.ConnectTimeout = DefaultConnectTimeout
	}
	if config.ReadTimeout <= 0 {
		config.ReadTimeout = DefaultReadTimeout
	}
	if config.NoRedirects {
		config.MaxRedirects = 0
	} else if config.MaxRedirects <= 0 {
		config.MaxRedirects = DefaultMaxRedirects
	}
	if config.MaxBodySize <= 0 {
		config.MaxBodySize = DefaultMaxBodySize
	}
	if config.UserAgent == "" {
		config.UserAgent = DefaultUserAgent
	}

	transport := cleanhttp.DefaultPooledTransport()
	transport.DialContext = (&net.Dialer{
		Timeout:   config.ConnectTimeout,
		KeepAlive: 30 * time.Second,
	}).DialContext
	transport.TLSHandshakeTimeout = config.ConnectTimeout
	transport.ResponseHeaderTimeout = config.ReadTimeout

	return &Fetcher{
		client: &http.Client{
			Transport: transport,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		config: config,
		log:    lib.OrNoLog(logger),
	}
}

// Fetch returns the content at uri. Any failure returns no content and a *lib.TransportError.
func (f *Fetcher) Fetch(ctx context.Context, uri string) ([]byte, error) {
	current, err := url.Parse(uri)
	if err != nil {
		return f.fail(&lib.TransportError{URL: uri, Err: err})
	}
	for redirects := 0; ; redirects++ {
		data, location, err := f.get(ctx, current)
		if err != nil {
			return f.fail(err)
		}
		if location == nil {
			return data, nil
		}
		if redirects >= f.config.MaxRedirects {
			return f.fail(&lib.TransportError{URL: uri, Err: fmt.Errorf("%w (%d)", ErrTooManyRedirects, redirects)})
		}
		f.log.Debugf("redirected from %s to %s", current, location)
		current = location
	}
}

func (f *Fetcher) fail(err *lib.TransportError) ([]byte, error) {
	f.log.Warnf("%s", err)
	return nil, err
}

// get returns either the content or the location of a redirection
func (f *Fetcher) get(ctx context.Context, uri *url.URL) ([]byte, *url.URL, *lib.TransportError) {
	ctx, cancel := context.WithTimeout(ctx, f.config.ConnectTimeout+f.config.ReadTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri.String(), nil)
	if err != nil {
		return nil, nil, &lib.TransportError{URL: uri.String(), Err: err}
	}
	req.Header.Set("User-Agent", f.config.UserAgent)
	req.Header.Set("Accept", "application/rss+xml, application/atom+xml, application/xml;q=0.9, text/xml;q=0.9, */*;q=0.8")

	f.log.Debugf("requesting %s", uri)
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, nil, &lib.TransportError{URL: uri.String(), Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		data, err := f.read(ctx, resp.Body)
		if err != nil {
			return nil, nil, &lib.TransportError{URL: uri.String(), Err: err}
		}
		f.log.Debugf("received %d bytes from %s", len(data), uri)
		return data, nil, nil

	case resp.StatusCode >= 300 && resp.StatusCode < 400 && resp.StatusCode != http.StatusNotModified:
		location := resp.Header.Get("Location")
		if location == "" {
			return nil, nil, &lib.TransportError{URL: uri.String(), StatusCode: resp.StatusCode, Err: ErrMissingLocation}
		}
		next, err := uri.Parse(location)
		if err != nil {
			return nil, nil, &lib.TransportError{URL: uri.String(), StatusCode: resp.StatusCode, Err: err}
		}
		return nil, next, nil

	default:
		return nil, nil, &lib.TransportError{URL: uri.String(), StatusCode: resp.StatusCode, Err: errors.New(resp.Status)}
	}
}

func (f *Fetcher) read(ctx context.Context, body io.Reader) ([]byte, error) {
	reader := limitio.NewReader(ctx, body)
	reader.SetRateLimit(f.config.RateLimit, rateLimitBurst)
	data, err := io.ReadAll(io.LimitReader(reader, f.config.MaxBodySize+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > f.config.MaxBodySize {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrBodyTooLarge, f.config.MaxBodySize)
	}
	return data, nil
}
