// Package gateway implements the REST transport behind ports.Gateway. It
// carries no business logic: requests go out with the current bearer token,
// and every outcome comes back as either data or a *ports.RemoteError.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/taskboard/tracker-core/internal/core/domain"
	"github.com/taskboard/tracker-core/internal/core/ports"
	"github.com/taskboard/tracker-core/internal/metrics"
)

// Client is the HTTP implementation of ports.Gateway.
type Client struct {
	base    string
	http    *http.Client
	session ports.SessionState
	log     zerolog.Logger
}

// New creates a gateway client for the API rooted at baseURL. The session
// state is attached later via Bind because the session store itself needs
// the gateway to log in.
func New(baseURL string, timeout time.Duration, log zerolog.Logger) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		base: strings.TrimRight(baseURL, "/"),
		http: &http.Client{Timeout: timeout},
		log:  log,
	}
}

// Bind attaches the session state used for bearer tokens and 401 handling.
func (c *Client) Bind(session ports.SessionState) { c.session = session }

// loginResponse mirrors POST /users/login.
type loginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	Username    string `json:"username"`
	Role        string `json:"role"`
}

// Login exchanges credentials for a token, then resolves the full profile
// with that token. The server response is the sole source of role.
func (c *Client) Login(ctx context.Context, creds ports.Credentials) (*ports.LoginResult, error) {
	form := url.Values{}
	form.Set("email", creds.Email)
	form.Set("password", creds.Password)

	var lr loginResponse
	if err := c.do(ctx, http.MethodPost, "/users/login", request{form: form, entity: "auth", verb: "login"}, &lr); err != nil {
		return nil, err
	}

	user, err := c.currentUserWithToken(ctx, lr.AccessToken)
	if err != nil {
		// The token is valid even if the profile endpoint is down; degrade to
		// what the login response carried.
		c.log.Warn().Err(err).Msg("profile fetch after login failed, using login payload")
		user = &domain.User{Username: lr.Username, Role: domain.ParseRole(lr.Role)}
	}
	return &ports.LoginResult{Token: lr.AccessToken, User: *user}, nil
}

// Register creates an account. Unauthenticated by contract.
func (c *Client) Register(ctx context.Context, input ports.RegisterInput) (*domain.User, error) {
	var out domain.User
	if err := c.do(ctx, http.MethodPost, "/users/", request{body: input, entity: "users", verb: "register", noAuth: true}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CurrentUser fetches the authenticated profile.
func (c *Client) CurrentUser(ctx context.Context) (*domain.User, error) {
	return c.currentUserWithToken(ctx, "")
}

func (c *Client) currentUserWithToken(ctx context.Context, token string) (*domain.User, error) {
	var out domain.User
	if err := c.do(ctx, http.MethodGet, "/users/me", request{token: token, entity: "users", verb: "me"}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateProfile updates the authenticated user's own username/email.
func (c *Client) UpdateProfile(ctx context.Context, input ports.ProfileInput) (*domain.User, error) {
	var out domain.User
	if err := c.do(ctx, http.MethodPut, "/users/me", request{body: input, entity: "users", verb: "update_me"}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Users() ports.Remote[domain.User] {
	return entityClient[domain.User]{c: c, name: "users", path: "/users/"}
}

func (c *Client) Projects() ports.Remote[domain.Project] {
	return entityClient[domain.Project]{c: c, name: "projects", path: "/projects/"}
}

func (c *Client) Tasks() ports.Remote[domain.Task] {
	return entityClient[domain.Task]{c: c, name: "tasks", path: "/tasks/"}
}

// AssignTask posts an assignment. The backend answers with a confirmation
// body, not the task itself; only the confirmed assignee id comes back.
func (c *Client) AssignTask(ctx context.Context, taskID, userID int64) (int64, error) {
	var out struct {
		Detail     string `json:"detail"`
		AssigneeID int64  `json:"assignee_id"`
	}
	path := fmt.Sprintf("/tasks/%d/assign", taskID)
	body := map[string]int64{"user_id": userID}
	if err := c.do(ctx, http.MethodPost, path, request{body: body, entity: "tasks", verb: "assign"}, &out); err != nil {
		return 0, err
	}
	return out.AssigneeID, nil
}

// request carries per-call options for do.
type request struct {
	body   any        // JSON body, if non-nil
	form   url.Values // form body, takes precedence over body
	token  string     // explicit bearer token; empty means use the session's
	noAuth bool       // suppress the Authorization header entirely
	entity string     // metrics label
	verb   string     // metrics label
}

// do runs one HTTP exchange and normalises the outcome. out may be nil for
// calls without a response body.
func (c *Client) do(ctx context.Context, method, path string, r request, out any) error {
	start := time.Now()
	err := c.exchange(ctx, method, path, r, out)
	metrics.RequestDuration.WithLabelValues(r.entity, r.verb).Observe(time.Since(start).Seconds())

	outcome := "ok"
	if err != nil {
		outcome = ports.KindOf(err).String()
	}
	metrics.RequestsTotal.WithLabelValues(r.entity, r.verb, outcome).Inc()
	return err
}

func (c *Client) exchange(ctx context.Context, method, path string, r request, out any) error {
	var body io.Reader
	contentType := ""
	switch {
	case r.form != nil:
		body = strings.NewReader(r.form.Encode())
		contentType = "application/x-www-form-urlencoded"
	case r.body != nil:
		raw, err := json.Marshal(r.body)
		if err != nil {
			return ports.UnknownErr(0, fmt.Errorf("encode request: %w", err))
		}
		body = bytes.NewReader(raw)
		contentType = "application/json"
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return ports.UnknownErr(0, err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	tokenSent := false
	if !r.noAuth {
		token := r.token
		if token == "" && c.session != nil {
			token = c.session.Token()
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
			tokenSent = r.token == "" // only a session token can be invalidated
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return ports.NetworkErr(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return c.normalizeStatus(resp, tokenSent)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return ports.UnknownErr(resp.StatusCode, fmt.Errorf("decode response: %w", err))
	}
	return nil
}

// normalizeStatus maps an HTTP failure status to the error taxonomy. A 401
// on a request that carried the session token invalidates the session.
func (c *Client) normalizeStatus(resp *http.Response, tokenSent bool) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 8<<10))

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		if tokenSent && c.session != nil {
			c.log.Warn().Str("path", resp.Request.URL.Path).Msg("token rejected, invalidating session")
			metrics.SessionExpiriesTotal.Inc()
			c.session.Invalidate()
		}
		return ports.UnauthorizedErr()
	case http.StatusNotFound:
		return ports.NotFoundErr()
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return ports.ValidationErr(parseFieldErrors(raw))
	default:
		return ports.UnknownErr(resp.StatusCode, fmt.Errorf("unexpected status: %s", snippet(raw)))
	}
}

// parseFieldErrors extracts field messages from the backend's error body.
// Two shapes occur in the wild: {"detail": "message"} and FastAPI-style
// {"detail": [{"loc": ["body", "field"], "msg": "message"}]}.
func parseFieldErrors(raw []byte) map[string]string {
	fields := map[string]string{}

	var structured struct {
		Detail []struct {
			Loc []json.RawMessage `json:"loc"`
			Msg string            `json:"msg"`
		} `json:"detail"`
	}
	if err := json.Unmarshal(raw, &structured); err == nil && len(structured.Detail) > 0 {
		for _, d := range structured.Detail {
			field := "body"
			if n := len(d.Loc); n > 0 {
				var name string
				if json.Unmarshal(d.Loc[n-1], &name) == nil && name != "" {
					field = name
				}
			}
			fields[field] = d.Msg
		}
		return fields
	}

	var plain struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(raw, &plain); err == nil && plain.Detail != "" {
		fields["detail"] = plain.Detail
		return fields
	}
	fields["detail"] = snippet(raw)
	return fields
}

func snippet(raw []byte) string {
	s := strings.TrimSpace(string(raw))
	if len(s) > 200 {
		s = s[:200]
	}
	if s == "" {
		s = "(empty body)"
	}
	return s
}

// entityClient adapts one REST collection to ports.Remote[T].
type entityClient[T any] struct {
	c    *Client
	name string
	path string
}

func (e entityClient[T]) List(ctx context.Context) ([]T, error) {
	var out []T
	if err := e.c.do(ctx, http.MethodGet, e.path, request{entity: e.name, verb: "list"}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (e entityClient[T]) Create(ctx context.Context, item T) (*T, error) {
	var out T
	if err := e.c.do(ctx, http.MethodPost, e.path, request{body: item, entity: e.name, verb: "create"}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (e entityClient[T]) Update(ctx context.Context, id int64, item T) (*T, error) {
	var out T
	path := e.path + strconv.FormatInt(id, 10)
	if err := e.c.do(ctx, http.MethodPut, path, request{body: item, entity: e.name, verb: "update"}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (e entityClient[T]) Delete(ctx context.Context, id int64) error {
	path := e.path + strconv.FormatInt(id, 10)
	return e.c.do(ctx, http.MethodDelete, path, request{entity: e.name, verb: "delete"}, nil)
}
