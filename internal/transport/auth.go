package transport

import (
	"net/http"
)

// Authenticator applies a credential to HTTP requests.
type Authenticator interface {
	Apply(req *http.Request, credential string)
}

// NoAuth implements no authentication.
type NoAuth struct{}

// Apply implements the Authenticator interface for NoAuth.
func (a *NoAuth) Apply(_ *http.Request, _ string) {
	// No authentication applied
}

// HeaderAuth implements custom header authentication. Prefix is prepended
// to the credential, e.g. "Bearer " for X-Esri-Authorization.
type HeaderAuth struct {
	Header string
	Prefix string
}

// Apply implements the Authenticator interface for HeaderAuth.
func (a *HeaderAuth) Apply(req *http.Request, credential string) {
	if credential == "" {
		return
	}
	req.Header.Set(a.Header, a.Prefix+credential)
}

// QueryAuth implements credential as query parameter authentication.
type QueryAuth struct {
	Param string
}

// Apply implements the Authenticator interface for QueryAuth.
func (a *QueryAuth) Apply(req *http.Request, credential string) {
	if req.URL == nil || credential == "" {
		return
	}

	query := req.URL.Query()
	query.Set(a.Param, credential)
	req.URL.RawQuery = query.Encode()
}

// TokenAuth passes a portal token as the "token" query parameter, which
// every sharing REST endpoint accepts for GET and POST alike.
type TokenAuth struct{}

// Apply implements the Authenticator interface for TokenAuth.
func (a *TokenAuth) Apply(req *http.Request, credential string) {
	(&QueryAuth{Param: "token"}).Apply(req, credential)
}

// EsriAuth sends the token in the X-Esri-Authorization header, keeping it
// out of URLs and logs.
func EsriAuth() *HeaderAuth {
	return &HeaderAuth{Header: "X-Esri-Authorization", Prefix: "Bearer "}
}
