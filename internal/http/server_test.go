package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"creatorfin/internal/core"
	"creatorfin/internal/ledger/memory"
	"creatorfin/internal/log"
	"creatorfin/internal/services"
	"creatorfin/internal/youtube"
)

type fakeYouTube struct {
	callbackUser string
	callbackErr  error
	syncResult   youtube.SyncResult
	syncErr      error
	status       youtube.Status
	connected    map[string]string
	disconnected []string
}

func (f *fakeYouTube) AuthURL(userID string) (string, error) {
	return "https://accounts.example.com/auth?state=" + userID, nil
}

func (f *fakeYouTube) HandleCallback(_ context.Context, code, state string) (string, error) {
	return f.callbackUser, f.callbackErr
}

func (f *fakeYouTube) Connect(_ context.Context, userID, access, refresh string, ident *core.AccountIdentity) error {
	if access == "" {
		return &core.ValidationError{Field: "accessToken", Reason: "is required"}
	}
	if f.connected == nil {
		f.connected = map[string]string{}
	}
	f.connected[userID] = access
	return nil
}

func (f *fakeYouTube) Sync(_ context.Context, userID string) (youtube.SyncResult, error) {
	return f.syncResult, f.syncErr
}

func (f *fakeYouTube) Status(_ context.Context, userID string) (youtube.Status, error) {
	return f.status, nil
}

func (f *fakeYouTube) Disconnect(_ context.Context, userID string) error {
	if f.status.Connected {
		f.disconnected = append(f.disconnected, userID)
		return nil
	}
	return core.ErrNotConnected
}

type failingPinger struct{}

func (failingPinger) Ping(context.Context) error { return errors.New("db down") }

type testEnv struct {
	srv   *Server
	store *memory.Store
	yt    *fakeYouTube
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := memory.New()
	taxes := services.NewTaxService(store, nil)
	yt := &fakeYouTube{}
	logger := log.New(log.Config{Format: "json", Output: io.Discard})

	srv := NewServer(Config{
		Addr:           ":0",
		AllowedOrigins: []string{"http://localhost:5173"},
		RateLimitRPM:   1000,
		FrontendURL:    "http://localhost:5173",
	}, Deps{
		Tax:       taxes,
		Ledger:    services.NewLedgerService(store, taxes, nil, nil),
		Dashboard: services.NewDashboardService(store),
		YouTube:   yt,
		Ready:     store,
		Logger:    logger,
	})
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return &testEnv{srv: srv, store: store, yt: yt}
}

// do sends a request as user; an empty user sends no Authorization header.
func (e *testEnv) do(t *testing.T, method, target, user, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rdr io.Reader
	if body != "" {
		rdr = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, rdr)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if user != "" {
		req.Header.Set("Authorization", "Bearer "+user)
	}
	rr := httptest.NewRecorder()
	e.srv.Handler.ServeHTTP(rr, req)
	return rr
}

func decode(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", rr.Body.String(), err)
	}
	return out
}

func TestHealthAndReady(t *testing.T) {
	env := newTestEnv(t)

	for _, path := range []string{"/healthz", "/api/health", "/readyz"} {
		rr := env.do(t, http.MethodGet, path, "", "")
		if rr.Code != http.StatusOK {
			t.Fatalf("%s status=%d", path, rr.Code)
		}
		if rr.Header().Get("X-Request-ID") == "" {
			t.Fatalf("%s missing request id", path)
		}
	}

	env.srv.ready = failingPinger{}
	rr := env.do(t, http.MethodGet, "/readyz", "", "")
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("readyz with failing store status=%d", rr.Code)
	}
	if got := decode(t, rr)["status"]; got != "not_ready" {
		t.Fatalf("status=%v", got)
	}
}

func TestAPIRequiresBearerToken(t *testing.T) {
	env := newTestEnv(t)

	for _, path := range []string{"/api/tax/quarterly-estimate", "/api/earnings", "/api/youtube/status"} {
		rr := env.do(t, http.MethodGet, path, "", "")
		if rr.Code != http.StatusUnauthorized {
			t.Fatalf("%s status=%d", path, rr.Code)
		}
		if decode(t, rr)["error"] == "" {
			t.Fatalf("%s missing error body", path)
		}
	}
}

func TestCreateEarning(t *testing.T) {
	env := newTestEnv(t)

	cases := []struct {
		name string
		body string
		want int
	}{
		{"valid", `{"source":"Sponsor","amount":"1200.50","date":"2024-03-10"}`, http.StatusCreated},
		{"duplicate key", `{"source":"Sponsor","amount":99,"date":"2024-03-10"}`, http.StatusConflict},
		{"numeric amount", `{"source":"Merch","amount":35.2,"date":"2024-03-10","platform":"Shop"}`, http.StatusCreated},
		{"negative amount", `{"source":"Sponsor","amount":"-5","date":"2024-03-11"}`, http.StatusBadRequest},
		{"bad date", `{"source":"Sponsor","amount":"5","date":"03/11/2024"}`, http.StatusBadRequest},
		{"missing source", `{"amount":"5","date":"2024-03-11"}`, http.StatusBadRequest},
		{"malformed", `{"source":`, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr := env.do(t, http.MethodPost, "/api/earnings", "user-1", tc.body)
			if rr.Code != tc.want {
				t.Fatalf("status=%d want %d body=%s", rr.Code, tc.want, rr.Body.String())
			}
		})
	}

	rr := env.do(t, http.MethodGet, "/api/earnings", "user-1", "")
	var items []earningResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &items); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("earnings=%d, want 2", len(items))
	}
	for _, it := range items {
		if it.Source == "Sponsor" && (it.Platform != core.PlatformManual || it.Amount != 1200.5) {
			t.Fatalf("unexpected sponsor row %+v", it)
		}
		if it.Source == "Merch" && it.Platform != "shop" {
			t.Fatalf("platform not normalised: %+v", it)
		}
	}

	if rr := env.do(t, http.MethodGet, "/api/earnings", "user-2", ""); strings.TrimSpace(rr.Body.String()) != "[]" {
		t.Fatalf("other user sees %s", rr.Body.String())
	}
}

func TestCreateExpense(t *testing.T) {
	env := newTestEnv(t)

	cases := []struct {
		name string
		body string
		want int
	}{
		{"valid", `{"category":"Equipment","amount":"800","date":"2024-02-01","description":"Camera"}`, http.StatusCreated},
		{"home office spacing", `{"category":"Home Office","amount":"100","date":"2024-02-02"}`, http.StatusCreated},
		{"not deductible", `{"category":"Travel","amount":"50","date":"2024-02-03","isDeductible":false}`, http.StatusCreated},
		{"unknown category", `{"category":"Snacks","amount":"5","date":"2024-02-03"}`, http.StatusBadRequest},
		{"three decimals rounded", `{"category":"Software","amount":"9.999","date":"2024-02-04"}`, http.StatusCreated},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr := env.do(t, http.MethodPost, "/api/expenses", "user-1", tc.body)
			if rr.Code != tc.want {
				t.Fatalf("status=%d want %d body=%s", rr.Code, tc.want, rr.Body.String())
			}
		})
	}

	rr := env.do(t, http.MethodGet, "/api/expenses", "user-1", "")
	var items []expenseResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &items); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(items) != 4 {
		t.Fatalf("expenses=%d, want 4", len(items))
	}
	if items[0].Category != string(core.CategorySoftware) || items[0].Amount != 10 {
		t.Fatalf("newest first expected, got %+v", items[0])
	}
}

func TestQuarterlyEstimate(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, http.MethodPost, "/api/earnings", "user-1", `{"source":"AdSense","amount":"50000","date":"2024-06-30"}`)
	env.do(t, http.MethodPost, "/api/expenses", "user-1", `{"category":"Equipment","amount":"5000","date":"2024-04-01"}`)
	env.do(t, http.MethodPost, "/api/earnings", "user-1", `{"source":"AdSense","amount":"999","date":"2023-06-30"}`)

	rr := env.do(t, http.MethodGet, "/api/tax/quarterly-estimate?year=2024", "user-1", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	got := decode(t, rr)

	want := map[string]float64{
		"year":              2024,
		"currentQuarter":    4,
		"totalEarnings":     50000,
		"totalExpenses":     5000,
		"netIncome":         45000,
		"standardDeduction": 14600,
		"taxableIncome":     30400,
		"federalIncomeTax":  3416,
		"selfEmploymentTax": 6358.3,
		"totalTaxLiability": 9774.3,
		"quarterlyEstimate": 2443.57,
		"effectiveTaxRate":  21.72,
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("%s = %v, want %v", k, got[k], v)
		}
	}
	if got["disclaimer"] != Disclaimer {
		t.Errorf("disclaimer = %v", got["disclaimer"])
	}
}

func TestBreakdownAndDeductions(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, http.MethodPost, "/api/earnings", "user-1", `{"source":"AdSense","amount":"80000","date":"2024-01-15"}`)
	env.do(t, http.MethodPost, "/api/expenses", "user-1", `{"category":"Equipment","amount":"15000","date":"2024-01-20"}`)
	env.do(t, http.MethodPost, "/api/expenses", "user-1", `{"category":"Software","amount":"1000","date":"2024-01-21"}`)
	env.do(t, http.MethodPost, "/api/expenses", "user-1", `{"category":"Travel","amount":"700","date":"2024-01-22","isDeductible":false}`)

	rr := env.do(t, http.MethodGet, "/api/tax/breakdown?year=2024", "user-1", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("breakdown status=%d", rr.Code)
	}
	b := decode(t, rr)
	if b["businessExpenses"] != 16700.0 || b["netIncome"] != 63300.0 || b["marginalRate"] != 22.0 {
		t.Fatalf("unexpected breakdown %v", b)
	}
	if b["federalIncomeTax"] != 5767.0 || b["selfEmploymentTax"] != 8944.01 || b["takeHome"] != 48588.99 {
		t.Fatalf("unexpected tax figures %v", b)
	}

	rr = env.do(t, http.MethodGet, "/api/tax/deductions?year=2024", "user-1", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("deductions status=%d", rr.Code)
	}
	var d deductionsResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &d); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(d.DeductionsByCategory) != 3 || d.DeductionsByCategory[0].Category != string(core.CategoryEquipment) {
		t.Fatalf("categories = %+v", d.DeductionsByCategory)
	}
	// Deductions and the breakdown see the same expenses.
	if d.TotalDeductions != b["businessExpenses"] || d.TotalDeductions != 16700 || d.DeductionSavings != 504 {
		t.Fatalf("totals = %+v", d)
	}
}

func TestDeductionsMatchBreakdownExpenses(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, http.MethodPost, "/api/expenses", "user-1", `{"category":"Travel","amount":"20000","date":"2024-03-01","isDeductible":false}`)

	b := decode(t, env.do(t, http.MethodGet, "/api/tax/breakdown?year=2024", "user-1", ""))
	if b["businessExpenses"] != 20000.0 || b["netIncome"] != -20000.0 {
		t.Fatalf("breakdown = %v", b)
	}

	rr := env.do(t, http.MethodGet, "/api/tax/deductions?year=2024", "user-1", "")
	var d deductionsResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &d); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if d.TotalDeductions != 20000 || len(d.DeductionsByCategory) != 1 {
		t.Fatalf("deductions = %+v", d)
	}
	if d.DeductionSavings != 1296 {
		t.Fatalf("savings = %v, want (20000-14600)*0.24", d.DeductionSavings)
	}
}

func TestTaxRejectsBadYear(t *testing.T) {
	env := newTestEnv(t)
	for _, q := range []string{"abc", "12", "30000"} {
		rr := env.do(t, http.MethodGet, "/api/tax/breakdown?year="+q, "user-1", "")
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("year=%s status=%d", q, rr.Code)
		}
	}
}

func TestDashboardSummary(t *testing.T) {
	env := newTestEnv(t)
	rr := env.do(t, http.MethodGet, "/api/dashboard/summary", "user-1", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	got := decode(t, rr)
	if got["accountStatus"] != "active" || got["totalEarnings"] != 0.0 {
		t.Fatalf("summary = %v", got)
	}
	if platforms, ok := got["connectedPlatforms"].([]any); !ok || len(platforms) != 0 {
		t.Fatalf("connectedPlatforms = %v", got["connectedPlatforms"])
	}
}

func TestYouTubeCallbackRedirects(t *testing.T) {
	cases := []struct {
		name    string
		query   string
		user    string
		err     error
		wantKey string
		wantVal string
	}{
		{"success", "code=abc&state=s", "user-1", nil, "youtube_connected", "true"},
		{"consent denied", "error=access_denied", "", nil, "youtube_error", "access_denied"},
		{"bad state", "code=abc&state=x", "", &youtube.CallbackError{Reason: youtube.ReasonInvalidState}, "youtube_error", youtube.ReasonInvalidState},
		{"unclassified failure", "code=abc&state=s", "user-1", errors.New("disk full"), "youtube_error", youtube.ReasonPersistFailed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			env := newTestEnv(t)
			env.yt.callbackUser, env.yt.callbackErr = tc.user, tc.err

			rr := env.do(t, http.MethodGet, "/api/youtube/callback?"+tc.query, "", "")
			if rr.Code != http.StatusFound {
				t.Fatalf("status=%d", rr.Code)
			}
			loc, err := url.Parse(rr.Header().Get("Location"))
			if err != nil {
				t.Fatalf("location: %v", err)
			}
			if loc.Host != "localhost:5173" || loc.Path != "/settings" {
				t.Fatalf("redirect target %s", loc)
			}
			if got := loc.Query().Get(tc.wantKey); got != tc.wantVal {
				t.Fatalf("%s=%q, want %q", tc.wantKey, got, tc.wantVal)
			}
		})
	}
}

func TestYouTubeRoutes(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, http.MethodGet, "/api/youtube/auth-url", "user-1", "")
	if rr.Code != http.StatusOK || !strings.Contains(decode(t, rr)["authUrl"].(string), "state=user-1") {
		t.Fatalf("auth-url status=%d body=%s", rr.Code, rr.Body.String())
	}

	rr = env.do(t, http.MethodPost, "/api/youtube/sync", "user-1", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("sync status=%d", rr.Code)
	}

	env.yt.syncErr = core.ErrNotConnected
	rr = env.do(t, http.MethodPost, "/api/youtube/sync", "user-1", "")
	if rr.Code != http.StatusBadRequest || decode(t, rr)["error"] != "YouTube not connected" {
		t.Fatalf("sync not connected status=%d body=%s", rr.Code, rr.Body.String())
	}

	env.yt.syncErr = fmt.Errorf("%w: analytics quota exceeded", core.ErrUpstreamFailure)
	rr = env.do(t, http.MethodPost, "/api/youtube/sync", "user-1", "")
	if rr.Code != http.StatusInternalServerError || decode(t, rr)["error"] != "Failed to sync YouTube earnings" {
		t.Fatalf("sync upstream status=%d body=%s", rr.Code, rr.Body.String())
	}

	env.yt.syncErr = fmt.Errorf("refresh youtube token: %w", core.ErrUpstreamAuthExpired)
	rr = env.do(t, http.MethodPost, "/api/youtube/sync", "user-1", "")
	if rr.Code != http.StatusInternalServerError || !strings.Contains(decode(t, rr)["error"].(string), "reconnect") {
		t.Fatalf("sync refresh failure status=%d body=%s", rr.Code, rr.Body.String())
	}
	env.yt.syncErr = nil

	rr = env.do(t, http.MethodPost, "/api/youtube/connect", "user-1", `{"accessToken":"at","refreshToken":"rt","channelId":"UC1"}`)
	if rr.Code != http.StatusOK || env.yt.connected["user-1"] != "at" {
		t.Fatalf("connect status=%d body=%s", rr.Code, rr.Body.String())
	}
	if rr = env.do(t, http.MethodPost, "/api/youtube/connect", "user-1", `{"refreshToken":"rt"}`); rr.Code != http.StatusBadRequest {
		t.Fatalf("connect without access token status=%d", rr.Code)
	}

	rr = env.do(t, http.MethodGet, "/api/youtube/status", "user-1", "")
	if got := decode(t, rr); got["connected"] != false || got["channelId"] != nil {
		t.Fatalf("status = %v", got)
	}

	if rr = env.do(t, http.MethodDelete, "/api/youtube/disconnect", "user-1", ""); rr.Code != http.StatusBadRequest {
		t.Fatalf("disconnect without connection status=%d", rr.Code)
	}
	channel := "UC1"
	env.yt.status = youtube.Status{Connected: true, ChannelID: &channel}
	if rr = env.do(t, http.MethodDelete, "/api/youtube/disconnect", "user-1", ""); rr.Code != http.StatusOK {
		t.Fatalf("disconnect status=%d", rr.Code)
	}
}

func TestYouTubeNotConfigured(t *testing.T) {
	env := newTestEnv(t)
	env.srv.youtube = nil

	if rr := env.do(t, http.MethodPost, "/api/youtube/sync", "user-1", ""); rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("sync status=%d", rr.Code)
	}
	rr := env.do(t, http.MethodGet, "/api/youtube/callback?code=x&state=y", "", "")
	if rr.Code != http.StatusFound || !strings.Contains(rr.Header().Get("Location"), "youtube_error=not_configured") {
		t.Fatalf("callback status=%d location=%s", rr.Code, rr.Header().Get("Location"))
	}
}

func TestCORSPreflight(t *testing.T) {
	env := newTestEnv(t)
	req := httptest.NewRequest(http.MethodOptions, "/api/earnings", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rr := httptest.NewRecorder()
	env.srv.Handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Fatalf("preflight status=%d", rr.Code)
	}
	if rr.Header().Get("Access-Control-Allow-Origin") != "http://localhost:5173" {
		t.Fatalf("allow origin = %q", rr.Header().Get("Access-Control-Allow-Origin"))
	}
}

func TestRateLimitOnMutations(t *testing.T) {
	store := memory.New()
	taxes := services.NewTaxService(store, nil)
	srv := NewServer(Config{RateLimitRPM: 1, FrontendURL: "http://localhost"}, Deps{
		Tax:       taxes,
		Ledger:    services.NewLedgerService(store, taxes, nil, nil),
		Dashboard: services.NewDashboardService(store),
		Logger:    log.New(log.Config{Output: io.Discard}),
	})
	defer srv.Shutdown(context.Background())

	post := func(date string) int {
		req := httptest.NewRequest(http.MethodPost, "/api/earnings",
			strings.NewReader(`{"source":"s","amount":"1","date":"`+date+`"}`))
		req.Header.Set("Authorization", "Bearer u")
		rr := httptest.NewRecorder()
		srv.Handler.ServeHTTP(rr, req)
		return rr.Code
	}
	if code := post("2024-01-01"); code != http.StatusCreated {
		t.Fatalf("first post status=%d", code)
	}
	if code := post("2024-01-02"); code != http.StatusTooManyRequests {
		t.Fatalf("second post status=%d", code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/earnings", nil)
	req.Header.Set("Authorization", "Bearer u")
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("reads are not limited, got %d", rr.Code)
	}
}
