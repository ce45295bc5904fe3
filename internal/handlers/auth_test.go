// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veriauth/veriauth/internal/handlers"
	"github.com/veriauth/veriauth/internal/middleware"
	"github.com/veriauth/veriauth/internal/services/auth"
	"github.com/veriauth/veriauth/internal/services/otp"
	"github.com/veriauth/veriauth/internal/testutil"
)

// newTestServer wires the full /auth route table against an in-memory
// database and a recording mailer.
func newTestServer(t *testing.T) (*echo.Echo, *testutil.FakeMailer) {
	t.Helper()
	_, repo := testutil.NewTestDB(t)
	mailer := &testutil.FakeMailer{}
	authSvc := auth.NewService(repo, otp.NewIssuer(repo, mailer))
	sessions := testutil.NewSessionManager(t, repo)

	e := echo.New()
	ah := handlers.NewAuth(authSvc, sessions)
	g := e.Group("/auth")
	g.POST("/register", ah.Register)
	g.POST("/verify-otp", ah.VerifyOTP)
	g.POST("/resend-otp", ah.ResendOTP)
	g.POST("/login", ah.Login)
	g.POST("/logout", ah.Logout)
	g.GET("/dashboard", ah.Dashboard, middleware.RequireSession(sessions))

	return e, mailer
}

func doJSON(e *echo.Echo, method, path, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == "_test_session" && c.Value != "" {
			return c
		}
	}
	t.Fatal("no session cookie in response")
	return nil
}

func TestRegister(t *testing.T) {
	e, mailer := newTestServer(t)

	rec := doJSON(e, http.MethodPost, "/auth/register",
		`{"name":"Jonas","email":"j@x.com","password":"pw1","dob":"2000-01-01"}`)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), "Please verify OTP")
	require.Len(t, mailer.Codes, 1)
	assert.Equal(t, []string{"j@x.com"}, mailer.To)
}

func TestRegister_Duplicate(t *testing.T) {
	e, _ := newTestServer(t)

	doJSON(e, http.MethodPost, "/auth/register",
		`{"name":"Jonas","email":"j@x.com","password":"pw1"}`)
	rec := doJSON(e, http.MethodPost, "/auth/register",
		`{"name":"Jonas","email":"j@x.com","password":"pw1"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "User already exists")
}

func TestRegister_MissingFields(t *testing.T) {
	e, mailer := newTestServer(t)

	rec := doJSON(e, http.MethodPost, "/auth/register", `{"name":"Jonas"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, mailer.Codes)
}

func TestRegister_InvalidDOB(t *testing.T) {
	e, _ := newTestServer(t)

	rec := doJSON(e, http.MethodPost, "/auth/register",
		`{"name":"Jonas","email":"j@x.com","password":"pw1","dob":"01.01.2000"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRegister_WeakPassword(t *testing.T) {
	e, _ := newTestServer(t)

	rec := doJSON(e, http.MethodPost, "/auth/register",
		`{"name":"Jonas","email":"j@x.com","password":"123456"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestVerifyOTP_Unknown(t *testing.T) {
	e, _ := newTestServer(t)

	rec := doJSON(e, http.MethodPost, "/auth/verify-otp",
		`{"email":"nobody@x.com","otp":"123456"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "User not found")
}

func TestResendOTP(t *testing.T) {
	e, mailer := newTestServer(t)

	doJSON(e, http.MethodPost, "/auth/register",
		`{"name":"Jonas","email":"j@x.com","password":"pw1"}`)
	rec := doJSON(e, http.MethodPost, "/auth/resend-otp", `{"email":"j@x.com"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "OTP resent successfully")
	assert.Len(t, mailer.Codes, 2)
}

func TestLogin_NotVerified(t *testing.T) {
	e, _ := newTestServer(t)

	doJSON(e, http.MethodPost, "/auth/register",
		`{"name":"Jonas","email":"j@x.com","password":"pw1"}`)
	rec := doJSON(e, http.MethodPost, "/auth/login",
		`{"email":"j@x.com","password":"pw1"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Email not verified")
}

func TestDashboard_WithoutSession(t *testing.T) {
	e, _ := newTestServer(t)

	rec := doJSON(e, http.MethodGet, "/auth/dashboard", "")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLogout_WithoutSession(t *testing.T) {
	e, _ := newTestServer(t)

	rec := doJSON(e, http.MethodPost, "/auth/logout", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Logged out successfully")
}

// TestFullFlow walks the whole lifecycle: register, fail a wrong code,
// verify with the right one, log in, reach the dashboard, log out and
// get locked out again.
func TestFullFlow(t *testing.T) {
	e, mailer := newTestServer(t)

	rec := doJSON(e, http.MethodPost, "/auth/register",
		`{"name":"Jonas","email":"j@x.com","password":"pw1","dob":"2000-01-01"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	code := mailer.LastCode()
	wrong := "000000"
	if code == wrong {
		wrong = "000001"
	}

	rec = doJSON(e, http.MethodPost, "/auth/verify-otp",
		`{"email":"j@x.com","otp":"`+wrong+`"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid or expired OTP")

	rec = doJSON(e, http.MethodPost, "/auth/verify-otp",
		`{"email":"j@x.com","otp":"`+code+`"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(e, http.MethodPost, "/auth/login",
		`{"email":"j@x.com","password":"pw1"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Login successful")
	cookie := sessionCookie(t, rec)

	rec = doJSON(e, http.MethodGet, "/auth/dashboard", "", cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Welcome to the dashboard, Jonas")

	rec = doJSON(e, http.MethodPost, "/auth/logout", "", cookie)
	require.Equal(t, http.StatusOK, rec.Code)

	// The prior session token is dead after logout.
	rec = doJSON(e, http.MethodGet, "/auth/dashboard", "", cookie)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLogin_WrongPassword(t *testing.T) {
	e, mailer := newTestServer(t)

	doJSON(e, http.MethodPost, "/auth/register",
		`{"name":"Jonas","email":"j@x.com","password":"pw1"}`)
	doJSON(e, http.MethodPost, "/auth/verify-otp",
		`{"email":"j@x.com","otp":"`+mailer.LastCode()+`"}`)

	rec := doJSON(e, http.MethodPost, "/auth/login",
		`{"email":"j@x.com","password":"nope"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Incorrect password")
}
