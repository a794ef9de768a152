package recordhttp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"myinstanceserver/domain"
	"myinstanceserver/helpers"
	"myinstanceserver/service"
)

const defaultTimeout = 10 * time.Second

// skippedHeaders are hop-by-hop or body headers that must not be copied from the inbound request.
var skippedHeaders = map[string]bool{
	"Connection":               true,
	"Content-Length":           true,
	"Content-Type":             true,
	"Host":                     true,
	"Upgrade":                  true,
	"Sec-Websocket-Key":        true,
	"Sec-Websocket-Version":    true,
	"Sec-Websocket-Extensions": true,
}

// Client calls the REST record service.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a Client for the record service at baseURL. httpClient may be nil.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	return &Client{
		baseURL:    strings.TrimRight(helpers.StrPanic(baseURL, "recordhttp.client.go: base url is required"), "/"),
		httpClient: httpClient,
	}
}

// do sends one request and decodes the JSON response into out (when out is not nil).
func (c *Client) do(ctx context.Context, method, path string, query url.Values, headers domain.Headers, body, out any) error {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return service.NewInternalServerError("record request marshal error", err)
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return service.NewInternalServerError("record request build error", err)
	}
	for name, values := range headers {
		if skippedHeaders[http.CanonicalHeaderKey(name)] {
			continue
		}
		for _, v := range values {
			req.Header.Add(name, v)
		}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return service.NewTransientRecordError("record service unreachable", fmt.Errorf("%s %s: %w", method, path, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return statusError(method, path, resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return service.NewTransientRecordError("record response decode error", fmt.Errorf("%s %s: %w", method, path, err))
	}
	return nil
}

func statusError(method, path string, resp *http.Response) error {
	msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	inner := fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(msg)))
	switch resp.StatusCode {
	case http.StatusNotFound:
		return service.NewEntityNotFoundError("record not found", inner)
	case http.StatusBadRequest:
		return service.NewBadParameterError("record service rejected the request", inner)
	case http.StatusUnauthorized, http.StatusForbidden:
		return service.NewNotAuthenticatedError("record service refused the caller", inner)
	case http.StatusConflict:
		return service.NewConflictError("record already exists", inner)
	default:
		return service.NewTransientRecordError("record service error", inner)
	}
}

// encodeQuery renders a query the way the record service parses it: one parameter per field,
// null for nil.
func encodeQuery(query domain.Query) url.Values {
	values := url.Values{}
	for k, v := range query {
		switch val := v.(type) {
		case nil:
			values.Set(k, "null")
		case *string:
			if val == nil {
				values.Set(k, "null")
			} else {
				values.Set(k, *val)
			}
		default:
			values.Set(k, fmt.Sprint(val))
		}
	}
	return values
}
