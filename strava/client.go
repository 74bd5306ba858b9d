// Package strava is a client for the Strava.cz school-canteen ordering
// service. It logs a user in, fetches and normalizes the per-day meal
// menu and toggles meal orders, always re-fetching after a save so the
// in-memory menu reflects the last confirmed remote state.
package strava

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"

	"strava-canteen/models"
)

const (
	// BaseURL is the public Strava.cz application host.
	BaseURL = "https://app.strava.cz"
	// DefaultCanteenNumber is used when Login gets an empty canteen number.
	DefaultCanteenNumber = "3753"

	loginPagePath = "/en/prihlasit-se?jidelna"
)

// Client talks to the Strava.cz API. One Client owns one session, one
// User and one Menu; it is not safe for concurrent use.
type Client struct {
	httpc   *http.Client
	baseURL string
	apiURL  string
	headers map[string]string

	User *models.User
	Menu *Menu
}

// New creates a Client against the public service and issues the
// handshake request that establishes the session cookie.
func New() (*Client, error) {
	return NewWithBase(BaseURL)
}

// NewWithBase is New against a different base URL. Used by tests.
func NewWithBase(base string) (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("cookie jar: %w", err)
	}
	c := &Client{
		httpc:   &http.Client{Jar: jar},
		baseURL: base,
		apiURL:  base + "/api",
	}
	c.headers = map[string]string{
		"User-Agent": "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
			"(KHTML, like Gecko) Chrome/138.0.0.0 Safari/537.36",
		"Accept":          "*/*",
		"Accept-Language": "en-US,en;q=0.9,de-DE;q=0.8,de;q=0.7,cs;q=0.6",
		"Content-Type":    "text/plain;charset=UTF-8",
		"Origin":          base,
		"Referer":         base + loginPagePath,
		"sec-fetch-dest":  "empty",
		"sec-fetch-mode":  "cors",
		"sec-fetch-site":  "same-origin",
	}
	c.User = &models.User{}
	c.Menu = newMenu(c)

	if err := c.handshake(); err != nil {
		return nil, err
	}
	return c, nil
}

// Connect is New followed by Login, for the common one-account case.
func Connect(username, password, canteenNumber string) (*Client, error) {
	c, err := New()
	if err != nil {
		return nil, err
	}
	if _, err := c.Login(username, password, canteenNumber); err != nil {
		return nil, err
	}
	return c, nil
}

// handshake loads the login page once so the service sets its session
// cookie on the jar. Every later API call rides on that cookie.
func (c *Client) handshake() error {
	req, err := http.NewRequest(http.MethodGet, c.baseURL+loginPagePath, nil)
	if err != nil {
		return fmt.Errorf("handshake: %w", err)
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		return &APIError{Endpoint: loginPagePath, Err: err}
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	return nil
}

// apiRequest posts a JSON payload to an API endpoint and returns the
// status code and raw body. Transport failures come back as *APIError.
func (c *Client) apiRequest(endpoint string, payload any) (int, []byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return 0, nil, fmt.Errorf("marshal %s payload: %w", endpoint, err)
	}
	req, err := http.NewRequest(http.MethodPost, c.apiURL+"/"+endpoint, bytes.NewReader(body))
	if err != nil {
		return 0, nil, fmt.Errorf("build %s request: %w", endpoint, err)
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		return 0, nil, &APIError{Endpoint: endpoint, Err: err}
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, &APIError{Endpoint: endpoint, Err: err}
	}
	return resp.StatusCode, data, nil
}

type loginResponse struct {
	SID   string `json:"sid"`
	S5URL string `json:"s5url"`
	User  struct {
		FullName    string  `json:"jmeno"`
		Email       string  `json:"email"`
		Balance     float64 `json:"konto"`
		ID          int64   `json:"id"`
		Currency    string  `json:"mena"`
		CanteenName string  `json:"nazevJidelny"`
	} `json:"uzivatel"`
}

// Login exchanges credentials for a session and populates c.User.
// Fails with ErrEmptyCredentials or ErrAlreadyLoggedIn before any
// network call, and with *AuthError when the service rejects the login.
func (c *Client) Login(username, password, canteenNumber string) (*models.User, error) {
	if c.User.LoggedIn {
		return nil, ErrAlreadyLoggedIn
	}
	if username == "" || password == "" {
		return nil, ErrEmptyCredentials
	}
	if canteenNumber == "" {
		canteenNumber = DefaultCanteenNumber
	}

	payload := map[string]any{
		"cislo":           canteenNumber,
		"jmeno":           username,
		"heslo":           password,
		"zustatPrihlasen": true,
		"environment":     "W",
		"lang":            "EN",
	}
	status, body, err := c.apiRequest("login", payload)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, &AuthError{Message: errorMessage(body)}
	}

	var lr loginResponse
	if err := json.Unmarshal(body, &lr); err != nil {
		return nil, &APIError{Endpoint: "login", Err: fmt.Errorf("decode response: %w", err)}
	}

	currency := lr.User.Currency
	if currency == "" {
		currency = "Kč"
	}
	c.User = &models.User{
		Username:      username,
		Password:      password,
		CanteenNumber: canteenNumber,
		SID:           lr.SID,
		S5URL:         lr.S5URL,
		FullName:      lr.User.FullName,
		Email:         lr.User.Email,
		Balance:       lr.User.Balance,
		ID:            lr.User.ID,
		Currency:      currency,
		CanteenName:   lr.User.CanteenName,
		LoggedIn:      true,
	}
	return c.User, nil
}

// Logout ends the session. Calling it while logged out is a no-op.
// On success the User is reset and all menu collections are cleared.
func (c *Client) Logout() error {
	if !c.User.LoggedIn {
		return nil
	}
	payload := map[string]any{
		"sid":        c.User.SID,
		"cislo":      c.User.CanteenNumber,
		"url":        c.User.S5URL,
		"lang":       "EN",
		"ignoreCert": "false",
	}
	status, _, err := c.apiRequest("logOut", payload)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return &APIError{Endpoint: "logOut", Status: status, Message: "failed to log out"}
	}
	c.User = &models.User{}
	c.Menu = newMenu(c)
	return nil
}

// errorMessage pulls the error message out of a failed response body.
func errorMessage(body []byte) string {
	var em struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &em); err == nil && em.Message != "" {
		return em.Message
	}
	return "Unknown error"
}
