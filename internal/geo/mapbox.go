package geo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"huellas/internal/catalog"
	"huellas/internal/observability"
)

const providerTimeout = 8 * time.Second

// ErrNoResults is returned by a Provider when the query matched nothing.
var ErrNoResults = errors.New("geo: no results")

// Provider is a forward and reverse geocoding backend.
type Provider interface {
	Forward(ctx context.Context, q ForwardQuery) (Feature, error)
	Reverse(ctx context.Context, at LatLng) (Feature, error)
}

// ForwardQuery narrows a text lookup.
type ForwardQuery struct {
	Text  string
	BBox  *catalog.BBox
	Types []string
}

// Feature is the first match of a provider response.
type Feature struct {
	PlaceName string
	Center    LatLng
	BBox      *catalog.BBox
}

// MapboxClient talks to the Mapbox places API.
type MapboxClient struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewMapboxClient returns a client for baseURL. A nil httpClient gets a default
// with a bounded timeout.
func NewMapboxClient(baseURL, token string, httpClient *http.Client) *MapboxClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: providerTimeout}
	}
	return &MapboxClient{baseURL: baseURL, token: token, http: httpClient}
}

type mapboxResponse struct {
	Features []struct {
		PlaceName string    `json:"place_name"`
		Center    []float64 `json:"center"`
		BBox      []float64 `json:"bbox"`
	} `json:"features"`
	Message string `json:"message"`
}

// Forward geocodes free text.
func (c *MapboxClient) Forward(ctx context.Context, q ForwardQuery) (Feature, error) {
	params := url.Values{}
	if q.BBox != nil {
		params.Set("bbox", q.BBox.String())
	}
	for _, t := range q.Types {
		params.Add("types", t)
	}
	return c.lookup(ctx, "forward", q.Text, params)
}

// Reverse finds the place at a coordinate.
func (c *MapboxClient) Reverse(ctx context.Context, at LatLng) (Feature, error) {
	term := strconv.FormatFloat(at.Lng, 'f', 6, 64) + "," + strconv.FormatFloat(at.Lat, 'f', 6, 64)
	return c.lookup(ctx, "reverse", term, url.Values{})
}

func (c *MapboxClient) lookup(ctx context.Context, op, term string, params url.Values) (f Feature, err error) {
	if c.token == "" {
		return Feature{}, errors.New("geo: mapbox token is not configured")
	}

	ctx, span := observability.StartClientSpan(ctx, "mapbox."+op, attribute.String("geo.operation", op))
	start := time.Now()
	defer func() {
		observability.ObserveGeocode(op, start, err)
		span.SetError(err)
		span.End()
	}()

	params.Set("access_token", c.token)
	params.Set("limit", "1")
	endpoint := fmt.Sprintf("%s/geocoding/v5/mapbox.places/%s.json?%s", c.baseURL, url.PathEscape(term), params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Feature{}, fmt.Errorf("geo: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return Feature{}, fmt.Errorf("geo: %s request: %w", op, err)
	}
	defer resp.Body.Close()

	span.AddAttributes(attribute.Int("http.response.status_code", resp.StatusCode))
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Feature{}, fmt.Errorf("geo: provider returned %d: %s", resp.StatusCode, body)
	}

	var payload mapboxResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return Feature{}, fmt.Errorf("geo: decode response: %w", err)
	}
	if len(payload.Features) == 0 {
		return Feature{}, ErrNoResults
	}

	first := payload.Features[0]
	if len(first.Center) != 2 {
		return Feature{}, fmt.Errorf("geo: malformed center %v", first.Center)
	}
	f = Feature{
		PlaceName: first.PlaceName,
		Center:    LatLng{Lat: first.Center[1], Lng: first.Center[0]},
	}
	if len(first.BBox) == 4 {
		box := catalog.BBox{first.BBox[0], first.BBox[1], first.BBox[2], first.BBox[3]}
		f.BBox = &box
	}
	return f, nil
}
