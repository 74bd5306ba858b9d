package strava

import (
	"errors"
	"testing"
)

func TestNewEstablishesSession(t *testing.T) {
	f := newFakeService(t)
	f.newClient(t)
	if f.handshakes != 1 {
		t.Errorf("handshakes = %d, want 1", f.handshakes)
	}
}

func TestLoginEmptyCredentials(t *testing.T) {
	f := newFakeService(t)
	c := f.newClient(t)

	if _, err := c.Login("", "x", ""); !errors.Is(err, ErrEmptyCredentials) {
		t.Errorf("Login(\"\", \"x\") = %v, want ErrEmptyCredentials", err)
	}
	if _, err := c.Login("x", "", ""); !errors.Is(err, ErrEmptyCredentials) {
		t.Errorf("Login(\"x\", \"\") = %v, want ErrEmptyCredentials", err)
	}
	if f.loginCalls != 0 {
		t.Errorf("login endpoint hit %d times before validation", f.loginCalls)
	}
}

func TestLoginSuccess(t *testing.T) {
	f := newFakeService(t)
	c := f.newClient(t)

	user, err := c.Login("test.user", "password", "3753")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if !user.LoggedIn {
		t.Error("user not marked logged in")
	}
	if user.SID != "SID123" || user.S5URL != "https://wss52.strava.cz/secure" {
		t.Errorf("session fields = %q, %q", user.SID, user.S5URL)
	}
	if user.FullName != "Test User" || user.Email != "test@example.com" {
		t.Errorf("profile fields = %q, %q", user.FullName, user.Email)
	}
	if user.Balance != 500 || user.Currency != "Kč" || user.CanteenName != "Test Canteen" {
		t.Errorf("account fields = %v, %q, %q", user.Balance, user.Currency, user.CanteenName)
	}
	if user.CanteenNumber != "3753" {
		t.Errorf("canteen number = %q", user.CanteenNumber)
	}

	if _, err := c.Login("test.user", "password", "3753"); !errors.Is(err, ErrAlreadyLoggedIn) {
		t.Errorf("second login = %v, want ErrAlreadyLoggedIn", err)
	}
}

func TestLoginDefaults(t *testing.T) {
	f := newFakeService(t)
	f.currency = ""
	c := f.newClient(t)

	user, err := c.Login("test.user", "password", "")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if user.Currency != "Kč" {
		t.Errorf("currency = %q, want default Kč", user.Currency)
	}
	if user.CanteenNumber != DefaultCanteenNumber {
		t.Errorf("canteen number = %q, want default %s", user.CanteenNumber, DefaultCanteenNumber)
	}
}

func TestLoginRejected(t *testing.T) {
	f := newFakeService(t)
	f.failLogin = true
	c := f.newClient(t)

	_, err := c.Login("test.user", "wrong", "3753")
	var authErr *AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("login = %v, want *AuthError", err)
	}
	if authErr.Message != "Invalid credentials" {
		t.Errorf("message = %q, want remote message", authErr.Message)
	}
	if c.User.LoggedIn {
		t.Error("user marked logged in after rejected login")
	}
}

func TestFetchBeforeLogin(t *testing.T) {
	f := newFakeService(t)
	c := f.newClient(t)

	if _, err := c.Menu.Fetch(); !errors.Is(err, ErrNotLoggedIn) {
		t.Errorf("Fetch = %v, want ErrNotLoggedIn", err)
	}
	if f.menuCalls != 0 {
		t.Errorf("menu endpoint hit %d times without a session", f.menuCalls)
	}
}

func TestFetchBuildsCollections(t *testing.T) {
	f := newFakeService(t)
	c := f.loggedInClient(t)

	menu, err := c.Menu.Fetch()
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if menu != c.Menu {
		t.Error("Fetch should return the menu itself for chaining")
	}
	if len(menu.Orderable) != 3 {
		t.Errorf("orderable days = %d, want 3", len(menu.Orderable))
	}
	if len(menu.Restricted) != 1 || len(menu.Optional) != 1 {
		t.Errorf("restricted/optional days = %d/%d, want 1/1", len(menu.Restricted), len(menu.Optional))
	}
	if !menu.IsOrdered(2, true, true) {
		t.Error("meal 2 should come back ordered")
	}
}

func TestLogout(t *testing.T) {
	f := newFakeService(t)
	c := f.loggedInClient(t)
	if _, err := c.Menu.Fetch(); err != nil {
		t.Fatalf("fetch: %v", err)
	}

	if err := c.Logout(); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if c.User.LoggedIn || c.User.SID != "" {
		t.Error("user not reset after logout")
	}
	if len(c.Menu.Orderable) != 0 || len(c.Menu.Complete) != 0 {
		t.Error("menu collections not cleared after logout")
	}

	// Logged out already: success without another remote call.
	if err := c.Logout(); err != nil {
		t.Errorf("second logout = %v, want nil", err)
	}
	if f.logoutCalls != 1 {
		t.Errorf("logout endpoint hit %d times, want 1", f.logoutCalls)
	}
}
