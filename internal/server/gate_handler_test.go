package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"meetgate/internal/config"
	"meetgate/internal/dataType"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

type stubMeetingLookup struct {
	cfg *dataType.MeetingConfig
	err error
}

func (l *stubMeetingLookup) MeetingConfig(_ context.Context, _ string) (*dataType.MeetingConfig, error) {
	return l.cfg, l.err
}

type stubLocationLookup struct {
	signal *dataType.LocationSignal
	err    error
}

func (l *stubLocationLookup) LocationSignal(_ context.Context) (*dataType.LocationSignal, error) {
	return l.signal, l.err
}

type stubMailer struct {
	mu       sync.Mutex
	fail     bool
	lastCode string
	lastTo   string
}

func (m *stubMailer) SendOtp(_ context.Context, email, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errors.New("mail relay down")
	}
	m.lastTo = email
	m.lastCode = code
	return nil
}

func (m *stubMailer) code() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastCode
}

type stubStore struct {
	mu   sync.Mutex
	fail bool
	recs []dataType.AccessRequest
}

func (s *stubStore) CreateRequest(_ context.Context, rec dataType.AccessRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errors.New("store down")
	}
	s.recs = append(s.recs, rec)
	return nil
}

type stubEvents struct {
	mu   sync.Mutex
	recs []dataType.AccessRequest
}

func (e *stubEvents) PublishRequestCreated(rec dataType.AccessRequest) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.recs = append(e.recs, rec)
	return nil
}

// writeTestPages drops minimal state pages into a temp page dir.
func writeTestPages(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	pages := map[string]string{
		"loading.html":        "loading {{.NodeName}}",
		"403.html":            "forbidden {{.ConnectIP}}",
		"request_access.html": "request-access button={{.ButtonLabel}} otpSent={{.OtpSent}}",
		"authorized.html":     "authorized meeting={{.MeetingID}}",
	}
	for name, body := range pages {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0644); err != nil {
			t.Fatalf("write page %s: %v", name, err)
		}
	}
	return dir
}

type testEnv struct {
	srv    *Server
	ts     *httptest.Server
	client *http.Client
	mailer *stubMailer
	store  *stubStore
	events *stubEvents
}

func setupTestEnv(t *testing.T, meetings *stubMeetingLookup, locations *stubLocationLookup) *testEnv {
	t.Helper()

	cfg := &config.MainConfig{
		Port:                "0",
		WebPath:             "/gate",
		PagePath:            writeTestPages(t),
		NodeName:            "Test Gate",
		HomeRoute:           "/",
		ConnectingIPHeaders: []string{"Gate-Real-IP"},
	}
	ruleSet := &config.RuleSet{OTPRule: &dataType.OTPRule{FailureLimit: map[int64]int64{}}}

	srv := NewServer(cfg, ruleSet)
	t.Cleanup(srv.registry.Stop)

	mailer := &stubMailer{}
	store := &stubStore{}
	events := &stubEvents{}
	srv.meetings = meetings
	srv.locations = locations
	srv.mailer = mailer
	srv.store = store
	srv.events = events

	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)

	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookiejar: %v", err)
	}
	client := &http.Client{
		Jar: jar,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	return &testEnv{srv: srv, ts: ts, client: client, mailer: mailer, store: store, events: events}
}

func (e *testEnv) join(t *testing.T, meetingID string) (*http.Response, string) {
	t.Helper()
	resp, err := e.client.Get(e.ts.URL + "/gate/join?meetingId=" + meetingID)
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	return resp, string(body)
}

// joinUntilSettled polls the join page until the gate leaves Loading.
func (e *testEnv) joinUntilSettled(t *testing.T, meetingID string) (*http.Response, string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		resp, body := e.join(t, meetingID)
		if !strings.HasPrefix(body, "loading") {
			return resp, body
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("gate never left Loading")
	return nil, ""
}

func (e *testEnv) postJSON(t *testing.T, path string, payload any) (*http.Response, map[string]any) {
	t.Helper()
	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	resp, err := e.client.Post(e.ts.URL+path, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("post %s: %v", path, err)
	}
	defer resp.Body.Close()
	var out map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp, out
}

func TestJoinAuthorizedByCity(t *testing.T) {
	env := setupTestEnv(t,
		&stubMeetingLookup{cfg: &dataType.MeetingConfig{Cities: []string{"Bangalore", "Pune"}}},
		&stubLocationLookup{signal: &dataType.LocationSignal{City: " bangalore "}},
	)

	// The first join may still catch the gate mid-load; either way it must
	// settle on the authorized page.
	resp, body := env.joinUntilSettled(t, "m1")
	if resp.StatusCode != http.StatusOK {
		t.Errorf("settled join status = %d, want 200", resp.StatusCode)
	}
	if body != "authorized meeting=m1" {
		t.Errorf("settled join body = %q", body)
	}
}

func TestJoinVpnBlockedRedirects(t *testing.T) {
	env := setupTestEnv(t,
		&stubMeetingLookup{cfg: &dataType.MeetingConfig{Cities: []string{"Bangalore"}}},
		&stubLocationLookup{signal: &dataType.LocationSignal{City: "Bangalore", VPNDetected: true}},
	)

	deadline := time.Now().Add(2 * time.Second)
	for {
		resp, _ := env.join(t, "m1")
		if resp.StatusCode == http.StatusFound {
			if loc := resp.Header.Get("Location"); loc != "/" {
				t.Errorf("redirect Location = %q, want /", loc)
			}
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("join status = %d, want 302", resp.StatusCode)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestJoinPendingRequestShowsForm(t *testing.T) {
	env := setupTestEnv(t,
		&stubMeetingLookup{cfg: &dataType.MeetingConfig{Cities: []string{"Bangalore"}}},
		&stubLocationLookup{signal: &dataType.LocationSignal{City: "Mumbai"}},
	)

	resp, body := env.joinUntilSettled(t, "m1")
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("join status = %d, want 403", resp.StatusCode)
	}
	if body != "request-access button=Send OTP otpSent=false" {
		t.Errorf("join body = %q", body)
	}
}

func TestJoinMissingMeetingID(t *testing.T) {
	env := setupTestEnv(t,
		&stubMeetingLookup{cfg: &dataType.MeetingConfig{}},
		&stubLocationLookup{signal: &dataType.LocationSignal{}},
	)
	resp, err := env.client.Get(env.ts.URL + "/gate/join")
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestContextFetchFailureStaysLoading(t *testing.T) {
	env := setupTestEnv(t,
		&stubMeetingLookup{err: errors.New("meeting api down")},
		&stubLocationLookup{signal: &dataType.LocationSignal{City: "Pune"}},
	)

	time.Sleep(50 * time.Millisecond)
	resp, body := env.join(t, "m1")
	if resp.StatusCode != http.StatusOK || !strings.HasPrefix(body, "loading") {
		t.Errorf("join = %d %q, want the loading page", resp.StatusCode, body)
	}
}

func TestRequestAccessFlow(t *testing.T) {
	env := setupTestEnv(t,
		&stubMeetingLookup{cfg: &dataType.MeetingConfig{Cities: []string{"Bangalore"}}},
		&stubLocationLookup{signal: &dataType.LocationSignal{City: "Mumbai"}},
	)

	env.joinUntilSettled(t, "m1")

	// Send OTP
	resp, out := env.postJSON(t, "/gate/send_otp", map[string]string{
		"meetingId": "m1",
		"name":      "Asha",
		"empid":     "E1042",
		"desg":      "Engineer",
		"email":     "asha@example.com",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("send_otp status = %d, body %v", resp.StatusCode, out)
	}
	if env.mailer.lastTo != "asha@example.com" {
		t.Errorf("otp sent to %q", env.mailer.lastTo)
	}

	// Form now offers Submit Request
	_, body := env.join(t, "m1")
	if body != "request-access button=Submit Request otpSent=true" {
		t.Errorf("join body after otp = %q", body)
	}

	// Wrong code is rejected with no submission
	resp, _ = env.postJSON(t, "/gate/submit_request", map[string]string{
		"meetingId": "m1", "otp": "999999x",
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("mismatch status = %d, want 400", resp.StatusCode)
	}
	if len(env.store.recs) != 0 {
		t.Fatalf("mismatched code persisted a request")
	}

	// Matching code persists and authorizes
	resp, out = env.postJSON(t, "/gate/submit_request", map[string]string{
		"meetingId": "m1", "otp": env.mailer.code(),
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("submit status = %d, body %v", resp.StatusCode, out)
	}
	if len(env.store.recs) != 1 {
		t.Fatalf("store has %d records, want 1", len(env.store.recs))
	}
	rec := env.store.recs[0]
	if rec.City != "Mumbai" || rec.MeetingID != "m1" || rec.EmployeeID != "E1042" {
		t.Errorf("persisted record = %+v", rec)
	}
	if len(env.events.recs) != 1 {
		t.Errorf("published %d events, want 1", len(env.events.recs))
	}

	// The session now reaches the call view without re-evaluation.
	resp, body = env.join(t, "m1")
	if resp.StatusCode != http.StatusOK || body != "authorized meeting=m1" {
		t.Errorf("join after override = %d %q", resp.StatusCode, body)
	}
}

func TestSendOtpValidation(t *testing.T) {
	env := setupTestEnv(t,
		&stubMeetingLookup{cfg: &dataType.MeetingConfig{}},
		&stubLocationLookup{signal: &dataType.LocationSignal{}},
	)

	resp, _ := env.postJSON(t, "/gate/send_otp", map[string]string{
		"meetingId": "m1",
		"name":      "Asha",
		"empid":     "E1042",
		"desg":      "Engineer",
		"email":     "not-an-email",
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("invalid email status = %d, want 400", resp.StatusCode)
	}
}

func TestSendOtpDispatchFailure(t *testing.T) {
	env := setupTestEnv(t,
		&stubMeetingLookup{cfg: &dataType.MeetingConfig{Cities: []string{"Bangalore"}}},
		&stubLocationLookup{signal: &dataType.LocationSignal{City: "Mumbai"}},
	)
	env.mailer.fail = true

	resp, out := env.postJSON(t, "/gate/send_otp", map[string]string{
		"meetingId": "m1",
		"name":      "Asha",
		"empid":     "E1042",
		"desg":      "Engineer",
		"email":     "asha@example.com",
	})
	if resp.StatusCode != http.StatusBadGateway {
		t.Fatalf("status = %d, body %v, want 502", resp.StatusCode, out)
	}

	// Re-trigger succeeds once the relay recovers.
	env.mailer.fail = false
	resp, _ = env.postJSON(t, "/gate/send_otp", map[string]string{
		"meetingId": "m1",
		"name":      "Asha",
		"empid":     "E1042",
		"desg":      "Engineer",
		"email":     "asha@example.com",
	})
	if resp.StatusCode != http.StatusOK {
		t.Errorf("retry status = %d, want 200", resp.StatusCode)
	}
}

func TestSubmitRequestPersistenceFailureKeepsFormOpen(t *testing.T) {
	env := setupTestEnv(t,
		&stubMeetingLookup{cfg: &dataType.MeetingConfig{Cities: []string{"Bangalore"}}},
		&stubLocationLookup{signal: &dataType.LocationSignal{City: "Mumbai"}},
	)
	env.joinUntilSettled(t, "m1")
	env.store.fail = true

	env.postJSON(t, "/gate/send_otp", map[string]string{
		"meetingId": "m1", "name": "Asha", "empid": "E1042", "desg": "Engineer", "email": "asha@example.com",
	})
	resp, _ := env.postJSON(t, "/gate/submit_request", map[string]string{
		"meetingId": "m1", "otp": env.mailer.code(),
	})
	if resp.StatusCode != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", resp.StatusCode)
	}

	// Still pending, form still rendered.
	resp, body := env.join(t, "m1")
	if resp.StatusCode != http.StatusForbidden || !strings.HasPrefix(body, "request-access") {
		t.Errorf("join after failed persist = %d %q", resp.StatusCode, body)
	}
}

func TestDismissHidesFormWithoutAuthorizing(t *testing.T) {
	env := setupTestEnv(t,
		&stubMeetingLookup{cfg: &dataType.MeetingConfig{Cities: []string{"Bangalore"}}},
		&stubLocationLookup{signal: &dataType.LocationSignal{City: "Mumbai"}},
	)
	env.joinUntilSettled(t, "m1")

	resp, _ := env.postJSON(t, "/gate/dismiss", map[string]string{"meetingId": "m1"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("dismiss status = %d", resp.StatusCode)
	}

	resp, body := env.join(t, "m1")
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("join after dismiss status = %d, want 403", resp.StatusCode)
	}
	if !strings.HasPrefix(body, "forbidden") {
		t.Errorf("join after dismiss body = %q, want bare forbidden page", body)
	}
}

func TestOtpFailureLimit(t *testing.T) {
	env := setupTestEnv(t,
		&stubMeetingLookup{cfg: &dataType.MeetingConfig{Cities: []string{"Bangalore"}}},
		&stubLocationLookup{signal: &dataType.LocationSignal{City: "Mumbai"}},
	)
	env.srv.ruleSet.OTPRule.Enabled = true
	env.srv.ruleSet.OTPRule.FailureLimit = map[int64]int64{60: 2}

	env.joinUntilSettled(t, "m1")
	env.postJSON(t, "/gate/send_otp", map[string]string{
		"meetingId": "m1", "name": "Asha", "empid": "E1042", "desg": "Engineer", "email": "asha@example.com",
	})

	var last *http.Response
	for i := 0; i < 5; i++ {
		last, _ = env.postJSON(t, "/gate/submit_request", map[string]string{
			"meetingId": "m1", "otp": fmt.Sprintf("bad-%d", i),
		})
	}
	if last.StatusCode != http.StatusForbidden {
		t.Errorf("status after repeated mismatches = %d, want 403", last.StatusCode)
	}
}

func TestHealthCheck(t *testing.T) {
	env := setupTestEnv(t,
		&stubMeetingLookup{cfg: &dataType.MeetingConfig{}},
		&stubLocationLookup{signal: &dataType.LocationSignal{}},
	)

	resp, err := env.client.Get(env.ts.URL + "/gate/health_check")
	if err != nil {
		t.Fatalf("health_check: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}
	if !strings.HasPrefix(string(body), "ok\nversion=") {
		t.Errorf("body = %q", body)
	}
	if !strings.Contains(string(body), "node=Test Gate") {
		t.Errorf("body missing node name: %q", body)
	}
}
