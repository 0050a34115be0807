// Package rest is the JSON transport for the DPD PUDO (ParcelShop) API.
package rest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const maxBodySize = 8 << 20

// Options configure Dial.
type Options struct {
	HTTPClient *http.Client
	Login      string
	Password   string
	// Timeout bounds the reachability check performed by Dial.
	Timeout time.Duration
	// SkipProbe disables the reachability check.
	SkipProbe bool
}

// Route maps a procedure name to an HTTP request.
type Route struct {
	Method string
	// Path may reference arguments as {name}; they are path-escaped.
	Path string
	// Query lists arguments sent as query parameters.
	Query []string
}

// Routes exposed by the PUDO API.
var Routes = map[string]Route{
	"findParcelShops": {
		Method: http.MethodGet,
		Path:   "/parcelshops",
		Query: []string{
			"address", "city", "postalCode", "countryCode", "limit",
			"services", "hideClosed", "latitude", "longitude", "radius",
		},
	},
	"getParcelShop": {
		Method: http.MethodGet,
		Path:   "/parcelshops/{pudoId}",
	},
}

// Conn is a connection to a JSON API.
type Conn struct {
	baseURL  string
	client   *http.Client
	login    string
	password string
}

// Dial returns a Conn for baseURL. Unless opts.SkipProbe is set, it checks
// the API is reachable; any HTTP response counts as reachable.
func Dial(ctx context.Context, baseURL string, opts Options) (*Conn, error) {
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("parsing base URL: %w", err)
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{}
	}
	c := &Conn{
		baseURL:  strings.TrimRight(baseURL, "/"),
		client:   client,
		login:    opts.Login,
		password: opts.Password,
	}
	if opts.SkipProbe {
		return c, nil
	}

	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.baseURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	resp.Body.Close()
	return c, nil
}

// HasProcedure reports whether a route exists for name.
func (c *Conn) HasProcedure(name string) bool {
	_, ok := Routes[name]
	return ok
}

// Call performs the request routed for procedure and returns the decoded
// JSON body.
func (c *Conn) Call(ctx context.Context, procedure string, args map[string]any) (any, error) {
	route, ok := Routes[procedure]
	if !ok {
		return nil, fmt.Errorf("no route for %s", procedure)
	}

	target, err := c.target(route, args)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, route.Method, target, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.SetBasicAuth(c.login, c.password)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{StatusCode: resp.StatusCode, Status: resp.Status, Body: strings.TrimSpace(string(body))}
	}

	var out any
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	return out, nil
}

func (c *Conn) target(route Route, args map[string]any) (string, error) {
	path := route.Path
	for key, val := range args {
		placeholder := "{" + key + "}"
		if strings.Contains(path, placeholder) {
			path = strings.ReplaceAll(path, placeholder, url.PathEscape(fmt.Sprint(val)))
		}
	}
	if strings.Contains(path, "{") {
		return "", fmt.Errorf("missing path argument in %s", route.Path)
	}

	q := url.Values{}
	for _, key := range route.Query {
		val, ok := args[key]
		if !ok || val == nil {
			continue
		}
		switch v := val.(type) {
		case []string:
			q.Set(key, strings.Join(v, ","))
		case []any:
			parts := make([]string, len(v))
			for i, p := range v {
				parts[i] = fmt.Sprint(p)
			}
			q.Set(key, strings.Join(parts, ","))
		default:
			q.Set(key, fmt.Sprint(v))
		}
	}

	target := c.baseURL + path
	if encoded := q.Encode(); encoded != "" {
		target += "?" + encoded
	}
	return target, nil
}

// StatusError is a non-2xx response.
type StatusError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("PUDO API error: %s", e.Status)
}

// NotFound reports a 404 response.
func (e *StatusError) NotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

// Temporary reports whether the status suggests a retry may succeed.
func (e *StatusError) Temporary() bool {
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}
