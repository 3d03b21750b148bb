// Package smoke проверяет живой API снаружи: регистрация, вход, сессия,
// ролевые ворота и выход. Каждая проверка печатает строку ✅ или ❌
package smoke

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"
)

const (
	passMark = "✅"
	failMark = "❌"
)

// Check одна проверка сценария; state общий для всего прогона
type Check struct {
	Name string
	Run  func(ctx context.Context, c *Client, st *State) error
}

// State данные, которые проверки передают друг другу
type State struct {
	Email    string
	Password string
	Token    string
}

// Result итог одной проверки
type Result struct {
	Name     string
	Err      error
	Duration time.Duration
}

// Client тонкая обёртка над http.Client с базовым адресом API
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTP:    &http.Client{Timeout: timeout},
	}
}

// Do выполняет запрос и декодирует JSON-ответ в out (если out != nil)
func (c *Client) Do(ctx context.Context, method, path, token string, body, out any) (*http.Response, error) {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, rd)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if out != nil && resp.StatusCode < http.StatusBadRequest {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp, fmt.Errorf("decode %s %s: %w", method, path, err)
		}
	} else {
		_, _ = io.Copy(io.Discard, resp.Body)
	}
	return resp, nil
}

func expectStatus(resp *http.Response, want int) error {
	if resp.StatusCode != want {
		return fmt.Errorf("expected status %d, got %d", want, resp.StatusCode)
	}
	return nil
}

type session struct {
	AccessToken string `json:"access_token"`
	Principal   struct {
		Role string `json:"role"`
	} `json:"principal"`
}

type principal struct {
	Role    string `json:"role"`
	Profile struct {
		Email string `json:"email"`
	} `json:"profile"`
}

// DefaultChecks сценарий от регистрации до выхода для нового пользователя
func DefaultChecks() []Check {
	return []Check{
		{Name: "health", Run: checkHealth},
		{Name: "public catalog", Run: checkCatalog},
		{Name: "sign-up", Run: checkSignUp},
		{Name: "sign-in", Run: checkSignIn},
		{Name: "session role", Run: checkSession},
		{Name: "anonymous redirected to sign-in", Run: checkAnonymousGate},
		{Name: "user forbidden on admin tree", Run: checkRoleGate},
		{Name: "sign-out", Run: checkSignOut},
		{Name: "revoked token rejected", Run: checkRevoked},
	}
}

func checkHealth(ctx context.Context, c *Client, _ *State) error {
	resp, err := c.Do(ctx, http.MethodGet, "/healthz", "", nil, nil)
	if err != nil {
		return err
	}
	return expectStatus(resp, http.StatusOK)
}

func checkCatalog(ctx context.Context, c *Client, _ *State) error {
	var products []json.RawMessage
	resp, err := c.Do(ctx, http.MethodGet, "/api/store/products", "", nil, &products)
	if err != nil {
		return err
	}
	return expectStatus(resp, http.StatusOK)
}

func checkSignUp(ctx context.Context, c *Client, st *State) error {
	if st.Email == "" {
		st.Email = fmt.Sprintf("smoke-%s@iwanyu.test", uuid.NewString()[:8])
		st.Password = "smoke-" + uuid.NewString()[:12]
	}
	var s session
	resp, err := c.Do(ctx, http.MethodPost, "/api/auth/signup", "", map[string]string{
		"email":     st.Email,
		"password":  st.Password,
		"full_name": "Smoke Test",
	}, &s)
	if err != nil {
		return err
	}
	if err := expectStatus(resp, http.StatusCreated); err != nil {
		return err
	}
	if s.Principal.Role != "user" {
		return fmt.Errorf("new profile has role %q, want user", s.Principal.Role)
	}
	return nil
}

func checkSignIn(ctx context.Context, c *Client, st *State) error {
	var s session
	resp, err := c.Do(ctx, http.MethodPost, "/api/auth/signin", "", map[string]string{
		"email":    st.Email,
		"password": st.Password,
	}, &s)
	if err != nil {
		return err
	}
	if err := expectStatus(resp, http.StatusOK); err != nil {
		return err
	}
	if s.AccessToken == "" {
		return fmt.Errorf("empty access token")
	}
	st.Token = s.AccessToken
	return nil
}

func checkSession(ctx context.Context, c *Client, st *State) error {
	var p principal
	resp, err := c.Do(ctx, http.MethodGet, "/api/auth/session", st.Token, nil, &p)
	if err != nil {
		return err
	}
	if err := expectStatus(resp, http.StatusOK); err != nil {
		return err
	}
	if !strings.EqualFold(p.Profile.Email, st.Email) {
		return fmt.Errorf("session belongs to %q, want %q", p.Profile.Email, st.Email)
	}
	return nil
}

func checkAnonymousGate(ctx context.Context, c *Client, _ *State) error {
	resp, err := c.Do(ctx, http.MethodGet, "/api/vendor/dashboard", "", nil, nil)
	if err != nil {
		return err
	}
	if err := expectStatus(resp, http.StatusUnauthorized); err != nil {
		return err
	}
	if loc := resp.Header.Get("Location"); loc != "/api/auth/signin" {
		return fmt.Errorf("redirect location %q, want /api/auth/signin", loc)
	}
	return nil
}

func checkRoleGate(ctx context.Context, c *Client, st *State) error {
	resp, err := c.Do(ctx, http.MethodGet, "/api/admin/dashboard", st.Token, nil, nil)
	if err != nil {
		return err
	}
	return expectStatus(resp, http.StatusForbidden)
}

func checkSignOut(ctx context.Context, c *Client, st *State) error {
	resp, err := c.Do(ctx, http.MethodPost, "/api/auth/signout", st.Token, nil, nil)
	if err != nil {
		return err
	}
	return expectStatus(resp, http.StatusOK)
}

func checkRevoked(ctx context.Context, c *Client, st *State) error {
	resp, err := c.Do(ctx, http.MethodGet, "/api/auth/session", st.Token, nil, nil)
	if err != nil {
		return err
	}
	return expectStatus(resp, http.StatusUnauthorized)
}

// Run выполняет проверки по порядку и печатает строку на каждую.
// После первой неудачи остальные помечаются пропущенными: они зависят от состояния
func Run(ctx context.Context, out io.Writer, c *Client, checks []Check) []Result {
	pass := color.New(color.FgGreen).SprintFunc()
	fail := color.New(color.FgRed).SprintFunc()
	dim := color.New(color.Faint).SprintFunc()

	st := &State{}
	results := make([]Result, 0, len(checks))
	var failed bool
	for _, chk := range checks {
		if failed {
			res := Result{Name: chk.Name, Err: fmt.Errorf("skipped")}
			results = append(results, res)
			fmt.Fprintf(out, "%s %s %s\n", failMark, fail(chk.Name), dim("skipped"))
			continue
		}

		start := time.Now()
		err := chk.Run(ctx, c, st)
		res := Result{Name: chk.Name, Err: err, Duration: time.Since(start)}
		results = append(results, res)

		if err != nil {
			failed = true
			fmt.Fprintf(out, "%s %s: %v\n", failMark, fail(chk.Name), err)
			continue
		}
		fmt.Fprintf(out, "%s %s %s\n", passMark, pass(chk.Name), dim(res.Duration.Round(time.Millisecond).String()))
	}
	return results
}

// ExitCode 0 если все проверки прошли, иначе 1
func ExitCode(results []Result) int {
	for _, r := range results {
		if r.Err != nil {
			return 1
		}
	}
	return 0
}
