package strava

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
)

// svcMeal is one meal row held by the fake service.
type svcMeal struct {
	veta  int
	name  string
	label string
	desc  string
	den   string
	datum string // dd-mm.yyyy as the real service sends it
	cena  string
	count int
}

// fakeService stands in for the remote API: it hands out a session
// cookie, answers login/menu/order/save/logout and keeps staged order
// toggles separate from saved ones, like the real thing.
type fakeService struct {
	mu sync.Mutex

	balance    float64
	currency   string
	failLogin  bool
	failToggle map[int]bool // veta -> respond 500 to the toggle
	dropAtSave map[int]bool // veta -> silently lose the staged toggle

	meals  []*svcMeal
	staged map[int]int

	handshakes  int
	loginCalls  int
	menuCalls   int
	toggleCalls int
	saveCalls   int
	logoutCalls int

	srv *httptest.Server
}

func newFakeService(t *testing.T) *fakeService {
	t.Helper()
	f := &fakeService{
		balance:    500,
		currency:   "Kč",
		failToggle: make(map[int]bool),
		dropAtSave: make(map[int]bool),
		staged:     make(map[int]int),
		meals: []*svcMeal{
			{veta: 1, name: "Čočková polévka", label: "Polévka", desc: "Čočková polévka", datum: "02-06.2025", cena: "15"},
			{veta: 2, name: "Guláš", label: "Oběd 1", desc: "Hovězí guláš", datum: "02-06.2025", cena: "89", count: 1},
			{veta: 3, name: "Svíčková", label: "Oběd 2", desc: "Svíčková na smetaně", datum: "02-06.2025", cena: "95"},
			{veta: 4, name: "Kuřecí vývar", label: "Polévka", desc: "Kuřecí vývar", datum: "03-06.2025", cena: "15"},
			{veta: 5, name: "Smažený sýr", label: "Oběd 1", desc: "Smažený sýr", den: "CO", datum: "03-06.2025", cena: "89"},
			{veta: 6, name: "Salát", label: "Oběd 2", desc: "Zeleninový salát", den: "T", datum: "03-06.2025", cena: "80"},
			{veta: 7, name: "Rizoto", label: "Oběd 1", desc: "Kuřecí rizoto", datum: "04-06.2025", cena: "92"},
		},
	}
	f.srv = httptest.NewServer(http.HandlerFunc(f.handle))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeService) handle(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if r.Method == http.MethodGet {
		f.handshakes++
		http.SetCookie(w, &http.Cookie{Name: "SESSION", Value: "fake", Path: "/"})
		return
	}

	switch r.URL.Path {
	case "/api/login":
		f.loginCalls++
		if f.failLogin {
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]string{"message": "Invalid credentials"})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"sid":   "SID123",
			"s5url": "https://wss52.strava.cz/secure",
			"uzivatel": map[string]any{
				"jmeno":        "Test User",
				"email":        "test@example.com",
				"konto":        f.balance,
				"id":           7,
				"mena":         f.currency,
				"nazevJidelny": "Test Canteen",
			},
		})
	case "/api/objednavky":
		f.menuCalls++
		rows := make([]map[string]any, 0, len(f.meals))
		for _, m := range f.meals {
			rows = append(rows, map[string]any{
				"nazev":            m.name,
				"druh_popis":       m.label,
				"delsiPopis":       m.desc,
				"alergeny":         []string{"01"},
				"zakazaneAlergeny": []string{},
				"omezeniObj":       map[string]any{"den": m.den},
				"datum":            m.datum,
				"pocet":            m.count,
				"veta":             strconv.Itoa(m.veta),
				"cena":             m.cena,
			})
		}
		json.NewEncoder(w).Encode(map[string]any{
			"podminka": "",
			"table0":   rows,
		})
	case "/api/pridejJidloS5":
		f.toggleCalls++
		var req struct {
			Veta  string `json:"veta"`
			Pocet string `json:"pocet"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		id, _ := strconv.Atoi(req.Veta)
		if f.failToggle[id] {
			w.WriteHeader(http.StatusInternalServerError)
			json.NewEncoder(w).Encode(map[string]string{"message": "toggle failed"})
			return
		}
		count, _ := strconv.Atoi(req.Pocet)
		f.staged[id] = count
		w.Write([]byte("{}"))
	case "/api/saveOrders":
		f.saveCalls++
		for id, count := range f.staged {
			if f.dropAtSave[id] {
				continue
			}
			for _, m := range f.meals {
				if m.veta == id {
					m.count = count
				}
			}
		}
		f.staged = make(map[int]int)
		w.Write([]byte("{}"))
	case "/api/logOut":
		f.logoutCalls++
		w.Write([]byte("{}"))
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (f *fakeService) newClient(t *testing.T) *Client {
	t.Helper()
	c, err := NewWithBase(f.srv.URL)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return c
}

func (f *fakeService) loggedInClient(t *testing.T) *Client {
	t.Helper()
	c := f.newClient(t)
	if _, err := c.Login("test.user", "password", "3753"); err != nil {
		t.Fatalf("login: %v", err)
	}
	return c
}
