package transport

import (
	"net/http"
	"strings"
)

// Authenticator attaches the API key of a rule service to a request.
type Authenticator interface {
	Apply(req *http.Request, apiKey string)
}

// NoAuth sends no credentials.
type NoAuth struct{}

func (*NoAuth) Apply(*http.Request, string) {}

// BearerAuth sends "Authorization: Bearer <key>".
type BearerAuth struct{}

func (*BearerAuth) Apply(req *http.Request, apiKey string) {
	req.Header.Set("Authorization", "Bearer "+apiKey)
}

// HeaderAuth sends the key as the value of Header.
type HeaderAuth struct {
	Header string
}

func (a *HeaderAuth) Apply(req *http.Request, apiKey string) {
	req.Header.Set(a.Header, apiKey)
}

// QueryAuth sends the key as query parameter Param, keeping other
// parameters.
type QueryAuth struct {
	Param string
}

func (a *QueryAuth) Apply(req *http.Request, apiKey string) {
	if req.URL == nil {
		return
	}
	q := req.URL.Query()
	q.Set(a.Param, apiKey)
	req.URL.RawQuery = q.Encode()
}

// AuthForHeader returns the authenticator for a configured header name.
// An empty name or "Authorization" means a bearer token, "?name" a query
// parameter, anything else a raw header value.
func AuthForHeader(header string) Authenticator {
	switch {
	case header == "" || strings.EqualFold(header, "Authorization"):
		return &BearerAuth{}
	case strings.HasPrefix(header, "?"):
		return &QueryAuth{Param: strings.TrimPrefix(header, "?")}
	default:
		return &HeaderAuth{Header: header}
	}
}
