package cmd

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmcleod/focusflow/apperr"
	"github.com/jmcleod/focusflow/auth"
	"github.com/jmcleod/focusflow/session"
)

func runCLI(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func signedToken(t *testing.T, sub string, exp time.Time) string {
	t.Helper()
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   sub,
		ExpiresAt: jwt.NewNumericDate(exp),
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return raw
}

func TestCLISessionFlow(t *testing.T) {
	access := signedToken(t, "u-1", time.Now().Add(time.Hour))

	r := chi.NewRouter()
	r.Post(auth.EndpointLogin, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["password"] != "hunter2" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"accessToken":  access,
			"refreshToken": "refresh-1",
			"userName":     "zoe",
			"fullName":     "Zoe Park",
			"email":        body["email"],
		})
	})
	r.Get("/api/ToDo", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+access {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode([]map[string]any{{"title": "plan week", "date": r.URL.Query().Get("date")}})
	})
	srv := httptest.NewServer(r)
	defer srv.Close()

	global := []string{"--base-url", srv.URL, "--data-dir", t.TempDir(), "--retry-delay", "1ms", "--log-level", "error"}
	run := func(stdin string, args ...string) (string, error) {
		return runCLI(t, stdin, append(args, global...)...)
	}

	_, err := run("wrong\n", "login", "--email", "zoe@example.com")
	assert.ErrorIs(t, err, apperr.ErrAuthentication)

	out, err := run("hunter2\n", "login", "--email", "Zoe@Example.com")
	require.NoError(t, err)
	assert.Equal(t, "Logged in as Zoe Park (zoe@example.com)\n", out)

	out, err = run("", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "Authenticated:  yes")
	assert.Contains(t, out, "Refresh token:  yes")
	assert.Contains(t, out, "User:           u-1")
	assert.Contains(t, out, "accessToken")
	assert.Contains(t, out, "refreshToken")

	out, err = run("", "get", "/api/ToDo", "--query", "date=2026-03-01")
	require.NoError(t, err)
	assert.Contains(t, out, `"title": "plan week"`)
	assert.Contains(t, out, `"date": "2026-03-01"`)

	out, err = run("", "logout")
	require.NoError(t, err)
	assert.Equal(t, "Logged out\n", out)

	out, err = run("", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "Authenticated:  no")
	assert.NotContains(t, out, "Cookies:")
}

func TestFlagsOverrideInvalidEnvironment(t *testing.T) {
	t.Setenv("TIMEOUT", "0")
	args := []string{"status", "--base-url", "http://localhost:1", "--data-dir", t.TempDir(), "--log-level", "error"}

	_, err := runCLI(t, "", append(args, "--timeout", "0s")...)
	assert.Error(t, err, "an invalid timeout with no usable override fails")

	out, err := runCLI(t, "", append(args, "--timeout", "5s")...)
	require.NoError(t, err)
	assert.Contains(t, out, "Authenticated:  no")
}

func TestRenderStatus(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	var buf bytes.Buffer
	renderStatus(&buf, statusReport{
		BaseURL: "https://api.focusflow.test",
		State:   session.State{HasAccess: true, HasRefresh: true},
		Claims: &auth.Claims{RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "u-9",
			ExpiresAt: jwt.NewNumericDate(now.Add(90 * time.Minute)),
		}},
		Cookies: []*http.Cookie{{Name: "accessToken", Expires: now.Add(24 * time.Hour), Secure: true}},
		Now:     now,
	})

	want := `API:            https://api.focusflow.test
Authenticated:  yes
Refresh token:  yes
User:           u-9
Access expires: 2026-03-01T13:30:00Z (in 1h30m0s)
Cookies:
  accessToken   expires 2026-03-02T12:00:00Z secure=true
`
	assert.Equal(t, want, buf.String())
}

func TestParseHelpers(t *testing.T) {
	m, err := parseMethod("patch")
	require.NoError(t, err)
	assert.Equal(t, http.MethodPatch, m)
	_, err = parseMethod("TRACE")
	assert.Error(t, err)

	q, err := parseQuery([]string{"date=2026-03-01", "tag=a=b"})
	require.NoError(t, err)
	assert.Equal(t, "2026-03-01", q.Get("date"))
	assert.Equal(t, "a=b", q.Get("tag"))
	_, err = parseQuery([]string{"=x"})
	assert.Error(t, err)
}

func TestDescribeError(t *testing.T) {
	assert.Equal(t,
		"Invalid email. Please check your input and try again.",
		describeError(apperr.FromHTTPStatus(400, "Invalid email", nil)))
	assert.Equal(t, "plain", describeError(errors.New("plain")))
}

func TestPrintJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printJSON(&buf, json.RawMessage(`{"a":[1,2]}`)))
	assert.Equal(t, "{\n  \"a\": [\n    1,\n    2\n  ]\n}\n", buf.String())

	buf.Reset()
	require.NoError(t, printJSON(&buf, nil))
	assert.Empty(t, buf.String())
}
