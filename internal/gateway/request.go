// ABOUTME: Builds authenticated HTTP requests against the gateway base URL
// ABOUTME: Normalizes slash boundaries and sets auth, accept and session headers

package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

const (
	// HeaderSessionKey routes a request to a specific gateway session.
	HeaderSessionKey = "x-openclaw-session-key"

	// DefaultUserAgent identifies this client when no user agent is configured.
	DefaultUserAgent = "mission-control/dev"

	contentTypeJSON = "application/json"
	contentTypeSSE  = "text/event-stream"
)

// RequestParams describes one outbound gateway request.
type RequestParams struct {
	BaseURL    string
	Path       string
	Method     string // defaults to GET
	Token      string
	Body       any // JSON-encoded when non-nil
	Stream     bool
	SessionKey string
	UserAgent  string
}

// BuildRequest assembles an authenticated request from p.
// It returns an *Error of kind KindInvalidBaseURL when the base URL is unusable.
func BuildRequest(ctx context.Context, p RequestParams) (*http.Request, error) {
	target, err := JoinURL(p.BaseURL, p.Path)
	if err != nil {
		return nil, err
	}

	method := p.Method
	if method == "" {
		method = http.MethodGet
	}

	var body io.Reader
	if p.Body != nil {
		data, err := json.Marshal(p.Body)
		if err != nil {
			return nil, fmt.Errorf("marshaling request body: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+p.Token)
	if p.Stream {
		req.Header.Set("Accept", contentTypeSSE)
	} else {
		req.Header.Set("Accept", contentTypeJSON)
	}
	req.Header.Set("Cache-Control", "no-store")

	userAgent := p.UserAgent
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	req.Header.Set("User-Agent", userAgent)

	if p.SessionKey != "" {
		req.Header.Set(HeaderSessionKey, p.SessionKey)
	}
	if p.Body != nil {
		req.Header.Set("Content-Type", contentTypeJSON)
	}

	return req, nil
}

// JoinURL appends path to baseURL with exactly one slash between them.
// A query string in path is carried over to the result.
func JoinURL(baseURL, path string) (string, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmed == "" {
		return "", invalidBaseURL(errors.New("base URL is empty"))
	}

	u, err := url.Parse(trimmed)
	if err != nil {
		return "", invalidBaseURL(err)
	}
	if !u.IsAbs() || u.Host == "" {
		return "", invalidBaseURL(fmt.Errorf("%q is not an absolute URL", trimmed))
	}

	rawPath, rawQuery, _ := strings.Cut(path, "?")
	rawPath = strings.Trim(rawPath, "/")

	basePath := strings.TrimRight(u.Path, "/")
	if rawPath != "" {
		u.Path = basePath + "/" + rawPath
	} else {
		u.Path = basePath
	}
	u.RawPath = ""
	if rawQuery != "" {
		u.RawQuery = rawQuery
	}

	return u.String(), nil
}
