package api

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"vigil-irs/config"
	"vigil-irs/core/auth"
	"vigil-irs/core/imports"
	"vigil-irs/core/rbac"
	"vigil-irs/core/store"
	"vigil-irs/core/utils"
)

type testEnv struct {
	server  *Server
	handler http.Handler
	db      *store.DB
	users   store.UsersStore
	manager *auth.SessionManager
	cfg     *config.AppConfig
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	cfg := &config.AppConfig{DBPath: filepath.Join(t.TempDir(), "api.db"), Pepper: "pepper"}
	logger := utils.NewLogger()
	db, err := store.NewDB(cfg, logger)
	if err != nil {
		t.Fatalf("db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := store.ApplyMigrations(context.Background(), db, logger); err != nil {
		t.Fatalf("migrations: %v", err)
	}
	users := store.NewUsersStore(db)
	sessions := store.NewSessionsStore(db)
	audits := store.NewAuditStore(db)
	reports := store.NewReportsStore(db)
	policy, err := rbac.NewPolicy()
	if err != nil {
		t.Fatalf("rbac: %v", err)
	}
	manager := auth.NewSessionManager(sessions, cfg, logger)
	deps := ServerDeps{
		Users:     users,
		Sessions:  sessions,
		Reports:   reports,
		Audits:    audits,
		Analyzer:  imports.NewAnalyzer(reports, "", logger),
		Committer: imports.NewCommitter(reports),
	}
	server := NewServer(cfg, deps, policy, manager, logger)
	return &testEnv{server: server, handler: server.Handler(), db: db, users: users, manager: manager, cfg: cfg}
}

func (env *testEnv) createUser(t *testing.T, username, role string) *store.User {
	t.Helper()
	ph := auth.MustHashPassword("secret", env.cfg.Pepper)
	user := &store.User{Username: username, PasswordHash: ph.Hash, Salt: ph.Salt, Role: role, Active: true}
	if _, err := env.users.Create(context.Background(), user); err != nil {
		t.Fatalf("create user: %v", err)
	}
	return user
}

func (env *testEnv) sessionCookie(t *testing.T, user *store.User) *http.Cookie {
	t.Helper()
	sess, err := env.manager.Create(context.Background(), user)
	if err != nil {
		t.Fatalf("session: %v", err)
	}
	return &http.Cookie{Name: "vigil_session", Value: sess.ID}
}

func multipartUpload(t *testing.T, csvData string) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", "upload.csv")
	if err != nil {
		t.Fatalf("form file: %v", err)
	}
	if _, err := part.Write([]byte(csvData)); err != nil {
		t.Fatalf("write: %v", err)
	}
	writer.Close()
	return &body, writer.FormDataContentType()
}

const testCSV = "case_no,occurred_on,time_of_day,day_of_week,district,city,province,region,category,category_group\n" +
	"C-API,2024-05-01,21:30,Wednesday,Poblacion,Davao,Davao del Sur,Region XI,Theft,Property\n"

func TestLoginAndAnalyzeConfirmFlow(t *testing.T) {
	env := newTestEnv(t)
	env.createUser(t, "boss", "admin")

	// login
	loginBody := strings.NewReader(`{"username":"boss","password":"secret"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", loginBody)
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("login status %d: %s", rec.Code, rec.Body.String())
	}
	var cookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == "vigil_session" {
			cookie = c
		}
	}
	if cookie == nil {
		t.Fatalf("expected session cookie")
	}

	// analyze
	body, contentType := multipartUpload(t, testCSV)
	req = httptest.NewRequest(http.MethodPost, "/api/imports/analyze", body)
	req.Header.Set("Content-Type", contentType)
	req.AddCookie(cookie)
	rec = httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("analyze status %d: %s", rec.Code, rec.Body.String())
	}
	var report imports.AnalysisReport
	if err := json.Unmarshal(rec.Body.Bytes(), &report); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if report.Counts.New != 1 {
		t.Fatalf("unexpected counts: %+v", report.Counts)
	}

	// confirm
	confirmPayload, _ := json.Marshal(imports.ConfirmationRequest{Action: imports.ActionImportNewOnly, NewRows: report.NewValid})
	req = httptest.NewRequest(http.MethodPost, "/api/imports/confirm", bytes.NewReader(confirmPayload))
	req.Header.Set("Content-Type", "application/json")
	req.AddCookie(cookie)
	rec = httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("confirm status %d: %s", rec.Code, rec.Body.String())
	}
	var result imports.ConfirmationResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if result.Created != 1 {
		t.Fatalf("unexpected result: %+v", result)
	}

	// retrievable by natural key
	req = httptest.NewRequest(http.MethodGet, "/api/reports/case/C-API", nil)
	req.AddCookie(cookie)
	rec = httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("get status %d: %s", rec.Code, rec.Body.String())
	}
}

func TestRouteGuards(t *testing.T) {
	env := newTestEnv(t)
	viewer := env.createUser(t, "viewer", "viewer")
	analyst := env.createUser(t, "analyst", "analyst")

	body, contentType := multipartUpload(t, testCSV)
	req := httptest.NewRequest(http.MethodPost, "/api/imports/analyze", body)
	req.Header.Set("Content-Type", contentType)
	req.AddCookie(env.sessionCookie(t, viewer))
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("viewer analyze status %d", rec.Code)
	}

	confirmPayload := `{"action":"import_new_only","new_rows":[]}`
	req = httptest.NewRequest(http.MethodPost, "/api/imports/confirm", strings.NewReader(confirmPayload))
	req.AddCookie(env.sessionCookie(t, analyst))
	rec = httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("analyst confirm status %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/reports", nil)
	rec = httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous reports status %d", rec.Code)
	}
}

func TestAnalyzeMissingColumnsResponse(t *testing.T) {
	env := newTestEnv(t)
	admin := env.createUser(t, "admin2", "admin")

	body, contentType := multipartUpload(t, "case_no,occurred_on\nC-1,2024-05-01\n")
	req := httptest.NewRequest(http.MethodPost, "/api/imports/analyze", body)
	req.Header.Set("Content-Type", contentType)
	req.AddCookie(env.sessionCookie(t, admin))
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d: %s", rec.Code, rec.Body.String())
	}
	var payload struct {
		Code           string   `json:"code"`
		MissingColumns []string `json:"missing_columns"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.Code != "imports.missing_columns" || len(payload.MissingColumns) == 0 {
		t.Fatalf("unexpected payload: %+v", payload)
	}
}
