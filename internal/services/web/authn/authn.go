// Package authn adapts the external account service to the login form.
package authn

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"

	platformotel "github.com/louisbranch/newsgate/internal/platform/otel"
	"github.com/louisbranch/newsgate/internal/platform/timeouts"
	"github.com/louisbranch/newsgate/internal/services/web/component/gate"
	"github.com/louisbranch/newsgate/internal/services/web/component/loginform"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// LoginPath is the account service endpoint that exchanges credentials for a token.
const LoginPath = "/api/login"

// maxResponseBytes bounds how much of a response body is read.
const maxResponseBytes = 1 << 20

// ErrUnavailable indicates the account service could not answer.
var ErrUnavailable = errors.New("account service unavailable")

// HTTPClient calls the account service over HTTP.
type HTTPClient struct {
	endpoint string
	client   *http.Client
}

// NewHTTPClient returns a client for the account service at baseURL.
func NewHTTPClient(baseURL string, client *http.Client) (*HTTPClient, error) {
	base, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("auth base url must be absolute: %q", baseURL)
	}
	if client == nil {
		client = &http.Client{Timeout: timeouts.AuthRequest}
	}
	endpoint := strings.TrimRight(base.String(), "/") + LoginPath
	return &HTTPClient{endpoint: endpoint, client: client}, nil
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
	User  struct {
		Email string `json:"email"`
		Name  string `json:"name"`
	} `json:"user"`
}

type errorResponse struct {
	Message string              `json:"message"`
	Errors  map[string][]string `json:"errors"`
}

// Authenticate posts the credentials and maps the response to a session or
// a *loginform.Rejection.
func (c *HTTPClient) Authenticate(ctx context.Context, email string, password string) (loginform.Session, error) {
	ctx, span := platformotel.Tracer().Start(ctx, "authn.Authenticate")
	defer span.End()

	body, err := json.Marshal(loginRequest{Email: email, Password: password})
	if err != nil {
		return loginform.Session{}, fmt.Errorf("encode login request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return loginform.Session{}, fmt.Errorf("build login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "transport")
		return loginform.Session{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return loginform.Session{}, fmt.Errorf("%w: read response: %v", ErrUnavailable, err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		var decoded loginResponse
		if err := json.Unmarshal(payload, &decoded); err != nil {
			return loginform.Session{}, fmt.Errorf("%w: decode login response: %v", ErrUnavailable, err)
		}
		if strings.TrimSpace(decoded.Token) == "" {
			return loginform.Session{}, fmt.Errorf("%w: login response has no token", ErrUnavailable)
		}
		return loginform.Session{Token: decoded.Token, Email: decoded.User.Email, Name: decoded.User.Name}, nil
	case resp.StatusCode == http.StatusUnauthorized,
		resp.StatusCode == http.StatusUnprocessableEntity,
		resp.StatusCode == http.StatusTooManyRequests:
		return loginform.Session{}, rejectionFrom(resp.StatusCode, payload)
	default:
		span.SetStatus(codes.Error, resp.Status)
		return loginform.Session{}, fmt.Errorf("%w: unexpected status %d", ErrUnavailable, resp.StatusCode)
	}
}

// rejectionFrom prefers the top-level message and falls back to the first
// field error. Wrong credentials clear the password; validation errors keep it.
func rejectionFrom(status int, payload []byte) *loginform.Rejection {
	var decoded errorResponse
	_ = json.Unmarshal(payload, &decoded)

	message := strings.TrimSpace(decoded.Message)
	if message == "" {
		fields := make([]string, 0, len(decoded.Errors))
		for field := range decoded.Errors {
			fields = append(fields, field)
		}
		sort.Strings(fields)
		for _, field := range fields {
			if msgs := decoded.Errors[field]; len(msgs) > 0 && strings.TrimSpace(msgs[0]) != "" {
				message = strings.TrimSpace(msgs[0])
				break
			}
		}
	}
	if message == "" {
		message = http.StatusText(status)
	}
	return &loginform.Rejection{Message: message, ClearPassword: status != http.StatusUnprocessableEntity}
}

// CredentialWriter stores secure values for one device.
type CredentialWriter interface {
	Set(ctx context.Context, key string, value string) error
}

// StoringAuthenticator saves the session token after a successful login.
type StoringAuthenticator struct {
	next   loginform.Authenticator
	writer CredentialWriter
}

// NewStoringAuthenticator wraps next so successful sessions are written to writer.
func NewStoringAuthenticator(next loginform.Authenticator, writer CredentialWriter) *StoringAuthenticator {
	return &StoringAuthenticator{next: next, writer: writer}
}

// Authenticate delegates to the wrapped authenticator and persists the token.
func (a *StoringAuthenticator) Authenticate(ctx context.Context, email string, password string) (loginform.Session, error) {
	session, err := a.next.Authenticate(ctx, email, password)
	if err != nil {
		return loginform.Session{}, err
	}
	if err := a.writer.Set(ctx, gate.CredentialKey, session.Token); err != nil {
		return loginform.Session{}, fmt.Errorf("store session credential: %w", err)
	}
	return session, nil
}
