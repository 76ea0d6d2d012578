// Package api provides a client for the Tankerkönig fuel price API: typed
// requests for station search, station details, current prices and data
// corrections, and the decoding of the API's loosely typed JSON into
// domain values.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultBaseURL = "https://creativecommons.tankerkoenig.de/json/"
	// DemoAPIKey is the public key documented by Tankerkönig. It returns
	// fake data.
	DemoAPIKey     = "00000000-0000-0000-0000-000000000002"
	DefaultTimeout = 30 * time.Second
)

var ErrMissingAPIKey = errors.New("the API key must not be empty")

// Client executes requests against the API. Distinct calls share no mutable
// state.
type Client struct {
	apiKey    string
	baseURL   string
	transport Transport
	decoder   *Decoder
	log       *slog.Logger
	now       func() time.Time
}

// Option configures a Client.
type Option func(*Client)

func WithBaseURL(baseURL string) Option {
	return func(c *Client) { c.baseURL = baseURL }
}

// WithTransport replaces the HTTP transport.
func WithTransport(t Transport) Option {
	return func(c *Client) { c.transport = t }
}

// WithHTTPClient uses client for the default HTTP transport.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) { c.transport = NewHTTPTransport(client) }
}

func WithDecoder(d *Decoder) Option {
	return func(c *Client) { c.decoder = d }
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.log = logger }
}

// NewClient creates a client for the given API key.
func NewClient(apiKey string, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	c := &Client{
		apiKey:  apiKey,
		baseURL: DefaultBaseURL,
		log:     slog.New(slog.DiscardHandler),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.transport == nil {
		c.transport = NewHTTPTransport(nil)
	}
	if c.decoder == nil {
		c.decoder = NewDecoder(WithDecoderLogger(c.log))
	}
	if !strings.HasSuffix(c.baseURL, "/") {
		c.baseURL += "/"
	}
	return c, nil
}

// StationList searches stations around a coordinate.
func (c *Client) StationList(ctx context.Context, r StationListRequest) (*StationListResult, error) {
	return execute(ctx, c, r, c.decoder.DecodeStationList)
}

// StationDetail fetches a single station.
func (c *Client) StationDetail(ctx context.Context, r StationDetailRequest) (*StationDetailResult, error) {
	return execute(ctx, c, r, c.decoder.DecodeStationDetail)
}

// Prices fetches the current prices of up to MaxPriceIDs stations.
func (c *Client) Prices(ctx context.Context, r PricesRequest) (*PricesResult, error) {
	return execute(ctx, c, r, c.decoder.DecodePrices)
}

// Correction submits a correction of a station's data.
func (c *Client) Correction(ctx context.Context, r CorrectionRequest) (*CorrectionResult, error) {
	return execute(ctx, c, r, c.decoder.DecodeCorrection)
}

// execute runs one request through validation, parameter assembly, a single
// transport call and decoding. Every failure is returned as *RequestError.
func execute[T any](ctx context.Context, c *Client, r request, decode func([]byte) (T, error)) (T, error) {
	var zero T
	ep := r.endpoint()

	if err := r.validate(); err != nil {
		return zero, &RequestError{Endpoint: ep, Kind: KindValidation, Err: err}
	}

	p := c.assembleParams(r)
	reqURL := c.baseURL + ep
	c.log.Debug("Executing request", "endpoint", ep, "method", r.method())

	var body []byte
	var err error
	switch m := r.method(); m {
	case http.MethodGet:
		body, err = c.transport.Get(ctx, reqURL, p.values())
	case http.MethodPost:
		body, err = c.transport.Post(ctx, reqURL, p.values())
	default:
		return zero, &RequestError{Endpoint: ep, Kind: KindUnknown, Err: errors.New("unsupported method " + m)}
	}
	if err != nil {
		return zero, &RequestError{Endpoint: ep, Kind: classify(err), Err: err}
	}

	res, err := decode(body)
	if err != nil {
		kind := KindDecode
		var perr *ParseError
		if errors.As(err, &perr) {
			kind = KindParse
		}
		return zero, &RequestError{Endpoint: ep, Kind: kind, Err: err}
	}
	return res, nil
}

// assembleParams adds the API key and, unless the request set one, the
// current unix timestamp to the request parameters.
func (c *Client) assembleParams(r request) params {
	p := r.params().clone()
	p.add(paramAPIKey, c.apiKey)
	if _, ok := p[paramTimestamp]; !ok {
		p.add(paramTimestamp, strconv.FormatInt(c.now().Unix(), 10))
	}
	return p
}

func classify(err error) ErrorKind {
	var terr *TransportError
	if errors.As(err, &terr) {
		return KindTransport
	}
	return KindUnknown
}
