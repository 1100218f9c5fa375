package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"kasir-sync/internal/models"

	"github.com/gofiber/fiber/v2"
)

// TokenSource hands out the bearer token for the current session.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// Client talks to the sync server over HTTP using fiber's fasthttp agent.
type Client struct {
	baseURL string
	timeout time.Duration
	tokens  TokenSource
}

var _ Gateway = (*Client)(nil)

// NewClient returns a Client rooted at baseURL, e.g. http://host:8080/api.
// tokens may be nil for servers that do not require authentication.
func NewClient(baseURL string, timeout time.Duration, tokens TokenSource) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: timeout,
		tokens:  tokens,
	}
}

func (c *Client) PushProducts(ctx context.Context, batch []models.Product) (PushResponse, error) {
	body := make([]ProductPayload, 0, len(batch))
	for _, p := range batch {
		body = append(body, ProductToWire(p))
	}
	return c.push(ctx, "/products/sync", body)
}

func (c *Client) PushTransactions(ctx context.Context, batch []models.Transaction) (PushResponse, error) {
	body := make([]TransactionPayload, 0, len(batch))
	for _, t := range batch {
		body = append(body, TransactionToWire(t))
	}
	return c.push(ctx, "/transactions/sync", body)
}

func (c *Client) PushSuppliers(ctx context.Context, batch []models.Supplier) (PushResponse, error) {
	body := make([]SupplierPayload, 0, len(batch))
	for _, s := range batch {
		body = append(body, SupplierToWire(s))
	}
	return c.push(ctx, "/suppliers/sync", body)
}

func (c *Client) PushPurchases(ctx context.Context, batch []models.Purchase) (PushResponse, error) {
	body := make([]PurchasePayload, 0, len(batch))
	for _, p := range batch {
		body = append(body, PurchaseToWire(p))
	}
	return c.push(ctx, "/purchases/sync", body)
}

func (c *Client) PullProducts(ctx context.Context) ([]models.Product, error) {
	var body []ProductPayload
	if err := c.do(ctx, fiber.MethodGet, "/products", nil, &body, true); err != nil {
		return nil, err
	}
	out := make([]models.Product, 0, len(body))
	for _, p := range body {
		out = append(out, p.Model())
	}
	return out, nil
}

func (c *Client) PullSuppliers(ctx context.Context) ([]models.Supplier, error) {
	var body []SupplierPayload
	if err := c.do(ctx, fiber.MethodGet, "/suppliers", nil, &body, true); err != nil {
		return nil, err
	}
	out := make([]models.Supplier, 0, len(body))
	for _, s := range body {
		out = append(out, s.Model())
	}
	return out, nil
}

func (c *Client) PullTransactions(ctx context.Context) ([]models.Transaction, error) {
	var body []TransactionPayload
	if err := c.do(ctx, fiber.MethodGet, "/transactions", nil, &body, true); err != nil {
		return nil, err
	}
	out := make([]models.Transaction, 0, len(body))
	for _, t := range body {
		out = append(out, t.Model())
	}
	return out, nil
}

// DeleteProduct asks the server to drop a product. It is sent once; callers do not retry.
func (c *Client) DeleteProduct(ctx context.Context, id string) error {
	var resp PushResponse
	path := "/products/" + url.PathEscape(id)
	if err := c.do(ctx, fiber.MethodDelete, path, nil, &resp, true); err != nil {
		return err
	}
	if !resp.OK() {
		return &RejectionError{Op: "DELETE " + path, Status: resp.Status}
	}
	return nil
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
	User  struct {
		Name string `json:"name"`
		Role string `json:"role"`
	} `json:"user"`
}

// Login exchanges credentials for a bearer token. It implements session.Authenticator.
func (c *Client) Login(ctx context.Context, email, password string) (Credentials, error) {
	var resp loginResponse
	err := c.do(ctx, fiber.MethodPost, "/auth/login", loginRequest{Email: email, Password: password}, &resp, false)
	if err != nil {
		return Credentials{}, err
	}
	if resp.Token == "" {
		return Credentials{}, &NetworkError{Op: "POST /auth/login", Err: errors.New("response carries no token")}
	}
	return Credentials{Token: resp.Token, UserName: resp.User.Name, Role: resp.User.Role}, nil
}

func (c *Client) push(ctx context.Context, path string, body any) (PushResponse, error) {
	var resp PushResponse
	if err := c.do(ctx, fiber.MethodPost, path, body, &resp, true); err != nil {
		return PushResponse{}, err
	}
	if !resp.OK() {
		return resp, &RejectionError{Op: "POST " + path, Status: resp.Status}
	}
	return resp, nil
}

// do performs one request and decodes a 2xx JSON answer into out.
// The agent has no context support, so the deadline of ctx caps the timeout.
func (c *Client) do(ctx context.Context, method, path string, body, out any, authenticated bool) error {
	op := method + " " + path
	if err := ctx.Err(); err != nil {
		return &NetworkError{Op: op, Err: err}
	}

	var token string
	if authenticated && c.tokens != nil {
		t, err := c.tokens.Token(ctx)
		if err != nil {
			return &NetworkError{Op: op, Err: fmt.Errorf("token: %w", err)}
		}
		token = t
	}

	timeout := c.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if left := time.Until(deadline); left < timeout {
			timeout = left
		}
	}
	if timeout <= 0 {
		return &NetworkError{Op: op, Err: context.DeadlineExceeded}
	}

	a := fiber.AcquireAgent()
	req := a.Request()
	req.Header.SetMethod(method)
	req.SetRequestURI(c.baseURL + path)
	a.Timeout(timeout)
	a.Set(fiber.HeaderAccept, fiber.MIMEApplicationJSON)
	if token != "" {
		a.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}
	if body != nil {
		a.JSON(body)
	}
	if err := a.Parse(); err != nil {
		fiber.ReleaseAgent(a)
		return &NetworkError{Op: op, Err: err}
	}

	code, respBody, errs := a.Bytes()
	if len(errs) > 0 {
		return &NetworkError{Op: op, Err: errors.Join(errs...)}
	}
	if code < 200 || code > 299 {
		return &NetworkError{Op: op, StatusCode: code, Err: fmt.Errorf("unexpected answer: %s", snippet(respBody))}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return &NetworkError{Op: op, StatusCode: code, Err: fmt.Errorf("malformed body: %w", err)}
	}
	return nil
}

func snippet(b []byte) string {
	const max = 200
	s := strings.TrimSpace(string(b))
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}
