package portal

import (
	"context"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/agentstation/layersync/internal/transport"
	"github.com/agentstation/layersync/pkg/constants"
	"github.com/agentstation/layersync/pkg/errors"
	"github.com/agentstation/layersync/pkg/logging"
)

// Credentials identify the portal user. Either Username and Password or
// APIKey must be set. Referer, when set, binds generated tokens to it.
type Credentials struct {
	Username string
	Password string
	APIKey   string
	Referer  string
}

// Method returns "api_key" or "token".
func (c Credentials) Method() string {
	if c.APIKey != "" {
		return "api_key"
	}
	return "token"
}

// Validate checks that a usable credential is present.
func (c Credentials) Validate() error {
	if c.APIKey != "" {
		return nil
	}
	if c.Username == "" || c.Password == "" {
		return &errors.AuthenticationError{
			Method:  c.Method(),
			Message: "username and password, or an API key, are required",
			Err:     errors.ErrCredentialsRequired,
		}
	}
	return nil
}

// Session holds the credentials and the current token for one portal.
// It is safe for concurrent use.
type Session struct {
	portal string
	creds  Credentials
	http   *transport.Client
	now    func() time.Time

	mu      sync.Mutex
	token   string
	expires time.Time
}

// NewSession creates a session. No request is made until Token is called.
func NewSession(portalURL string, creds Credentials, hc *transport.Client) (*Session, error) {
	if err := creds.Validate(); err != nil {
		return nil, err
	}
	if hc == nil {
		hc = transport.New(&transport.NoAuth{}, transport.WithReferer(creds.Referer))
	}
	return &Session{
		portal: portalURL,
		creds:  creds,
		http:   hc,
		now:    time.Now,
	}, nil
}

// Username returns the configured user, empty for API key sessions.
func (s *Session) Username() string {
	return s.creds.Username
}

// Token returns a valid token, generating a new one when none is cached or
// the cached one expires within a minute. API keys are returned as is.
func (s *Session) Token(ctx context.Context) (string, error) {
	if s.creds.APIKey != "" {
		return s.creds.APIKey, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.token != "" && s.now().Before(s.expires.Add(-constants.TokenRefreshMargin)) {
		return s.token, nil
	}

	token, expires, err := s.generate(ctx)
	if err != nil {
		return "", err
	}
	s.token = token
	s.expires = expires
	return token, nil
}

// Expires returns the expiry of the cached token, zero if none.
func (s *Session) Expires() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.expires
}

// Invalidate drops the cached token.
func (s *Session) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	s.expires = time.Time{}
}

type tokenResponse struct {
	Token   string `json:"token"`
	Expires int64  `json:"expires"` // epoch milliseconds
}

func (s *Session) generate(ctx context.Context) (string, time.Time, error) {
	form := url.Values{
		"username":   {s.creds.Username},
		"password":   {s.creds.Password},
		"expiration": {strconv.Itoa(constants.TokenExpiration)},
	}
	if s.creds.Referer != "" {
		form.Set("client", "referer")
		form.Set("referer", s.creds.Referer)
	} else {
		form.Set("client", "requestip")
	}

	req, err := transport.NewFormRequest(ctx, s.portal+"/sharing/rest/generateToken", form)
	if err != nil {
		return "", time.Time{}, err
	}

	var resp tokenResponse
	if err := s.http.DoJSON(ctx, req, "", &resp); err != nil {
		return "", time.Time{}, &errors.AuthenticationError{
			Portal:  s.portal,
			Method:  "token",
			Message: "generateToken failed",
			Err:     err,
		}
	}
	if resp.Token == "" {
		return "", time.Time{}, &errors.AuthenticationError{
			Portal:  s.portal,
			Method:  "token",
			Message: "portal returned no token",
			Err:     errors.ErrCredentialsInvalid,
		}
	}

	expires := time.UnixMilli(resp.Expires)
	if resp.Expires == 0 {
		expires = s.now().Add(time.Duration(constants.TokenExpiration) * time.Minute)
	}
	logging.FromContext(ctx).Debug().
		Str("user", s.creds.Username).
		Time("expires", expires).
		Msg("Generated portal token")
	return resp.Token, expires, nil
}
