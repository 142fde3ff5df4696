package routes_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"amlguard/internal/metrics"
	"amlguard/internal/models"
	"amlguard/internal/recipients"
	"amlguard/internal/repositories"
	"amlguard/internal/routes"
	"amlguard/internal/services/alert"
	"amlguard/internal/services/auth"
	"amlguard/internal/services/report"
	"amlguard/internal/services/risk"
	"amlguard/internal/services/transaction"
	"amlguard/internal/testutil"
	"amlguard/internal/utils"
)

type env struct {
	app  *fiber.App
	auth auth.Service
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db := testutil.NewSQLiteDB(t)
	store := repositories.NewStore(db, nil)
	prom := metrics.NewPrometheus()

	tokens, err := utils.NewTokenIssuer("routes-test-secret", time.Minute, time.Hour)
	require.NoError(t, err)
	authService := auth.NewService(store.Users, tokens)

	txs := transaction.NewService(transaction.Dependencies{
		Store: store,
		Processor: transaction.NewProcessor(transaction.ProcessorConfig{
			Engine:  risk.NewDefaultEngine(),
			Tracker: recipients.NewMemoryTracker(0),
		}),
		Metrics: prom,
	})

	app := routes.NewApp(routes.AppOptions{Metrics: prom})
	routes.SetupRoutes(app, routes.Dependencies{
		DB:                 db,
		AuthService:        authService,
		TransactionService: txs,
		AlertService:       alert.NewService(store, prom),
		ReportService:      report.NewService(txs, store.Transactions, prom),
		MetricsHandler:     prom.Handler(),
		RefreshTTL:         time.Hour,
	})
	return &env{app: app, auth: authService}
}

// login provisions a user with role and returns an access token.
func (e *env) login(t *testing.T, username, role string) string {
	t.Helper()
	ctx := context.Background()
	_, err := e.auth.CreateUser(ctx, &models.RegisterInput{
		Username: username,
		Email:    username + "@example.com",
		Password: "s3cret!pass",
	}, role)
	require.NoError(t, err)

	_, pair, err := e.auth.Login(ctx, username, "s3cret!pass")
	require.NoError(t, err)
	return pair.AccessToken
}

func (e *env) do(t *testing.T, method, path, token string, body interface{}) (*http.Response, map[string]interface{}) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}
	return e.send(t, req)
}

func (e *env) send(t *testing.T, req *http.Request) (*http.Response, map[string]interface{}) {
	t.Helper()
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var out map[string]interface{}
	_ = json.Unmarshal(raw, &out)
	return resp, out
}

func flaggedTx(id string) fiber.Map {
	return fiber.Map{
		"id":           id,
		"date":         "2024-03-05",
		"from_account": "ACC-100",
		"to_account":   risk.SentinelRecipient,
		"amount":       "55000",
		"description":  "offshore cash transfer",
	}
}

func TestHealth(t *testing.T) {
	e := newEnv(t)
	resp, body := e.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])
}

func TestAuthFlow(t *testing.T) {
	e := newEnv(t)

	resp, body := e.do(t, http.MethodPost, "/api/register", "", fiber.Map{
		"username": "alice", "email": "alice@example.com", "password": "s3cret!pass",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	tokens := body["tokens"].(map[string]interface{})
	access := tokens["access_token"].(string)

	resp, _ = e.do(t, http.MethodPost, "/api/register", "", fiber.Map{
		"username": "alice", "email": "other@example.com", "password": "s3cret!pass",
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, body = e.do(t, http.MethodPost, "/api/register", "", fiber.Map{
		"username": "bob", "email": "bob@example.com", "password": "short",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body["fields"], "password")

	resp, _ = e.do(t, http.MethodPost, "/api/login", "", fiber.Map{"username": "alice", "password": "nope!nope"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, body = e.do(t, http.MethodGet, "/api/user", access, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "alice", body["username"])
	assert.Equal(t, models.RoleAnalyst, body["role"])

	resp, body = e.do(t, http.MethodPost, "/api/refresh", "", fiber.Map{"refresh_token": tokens["refresh_token"]})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, body["access_token"])

	resp, _ = e.do(t, http.MethodPost, "/api/logout", access, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body = e.do(t, http.MethodGet, "/api/user", access, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "session expired", body["error"])
}

func TestTransactionRoutes(t *testing.T) {
	e := newEnv(t)
	analyst := e.login(t, "analyst", models.RoleAnalyst)
	admin := e.login(t, "admin", models.RoleAdmin)

	resp, _ := e.do(t, http.MethodGet, "/api/transactions", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, body := e.do(t, http.MethodPost, "/api/transactions", analyst, flaggedTx("T-1"))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, 9.0, body["risk_score"])
	assert.Equal(t, "flagged", body["status"])
	assert.Equal(t, "55000.00", body["amount"])

	resp, _ = e.do(t, http.MethodPost, "/api/transactions", analyst, flaggedTx("T-1"))
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, body = e.do(t, http.MethodPost, "/api/transactions", analyst, fiber.Map{"id": "T-2", "date": "March 5"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body["fields"], "date")

	resp, body = e.do(t, http.MethodPatch, "/api/transactions/T-1", analyst, fiber.Map{"amount": "100", "description": "rent"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "normal", body["status"])

	resp, _ = e.do(t, http.MethodGet, "/api/transactions/missing", analyst, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, body = e.do(t, http.MethodGet, "/api/transactions?status=normal&limit=10", analyst, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, body["data"], 1)
	assert.Equal(t, 1.0, body["pagination"].(map[string]interface{})["total"])

	resp, _ = e.do(t, http.MethodGet, "/api/transactions?status=bogus", analyst, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body = e.do(t, http.MethodGet, "/api/transactions/summary", analyst, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1.0, body["total"])

	resp, _ = e.do(t, http.MethodDelete, "/api/transactions", analyst, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, body = e.do(t, http.MethodDelete, "/api/transactions", admin, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1.0, body["deleted"])
}

func TestRiskRoutes(t *testing.T) {
	e := newEnv(t)
	investigator := e.login(t, "ivy", models.RoleInvestigator)

	resp, body := e.do(t, http.MethodPost, "/api/risk/evaluate", investigator, flaggedTx(""))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 9.0, body["risk_score"])

	resp, body = e.do(t, http.MethodGet, "/api/risk/rules", investigator, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, body["rules"], 4)

	// dry runs never store anything
	resp, body = e.do(t, http.MethodGet, "/api/transactions/summary", investigator, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 0.0, body["total"])
}

func TestAlertRoutes(t *testing.T) {
	e := newEnv(t)
	analyst := e.login(t, "analyst", models.RoleAnalyst)
	investigator := e.login(t, "ivy", models.RoleInvestigator)

	resp, _ := e.do(t, http.MethodPost, "/api/transactions", analyst, flaggedTx("T-1"))
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, body := e.do(t, http.MethodGet, "/api/alerts?status=active", investigator, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	data := body["data"].([]interface{})
	require.Len(t, data, 1)
	id := int(data[0].(map[string]interface{})["id"].(float64))
	path := fmt.Sprintf("/api/alerts/%d", id)

	resp, _ = e.do(t, http.MethodPatch, path, analyst, fiber.Map{"status": "investigating"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, _ = e.do(t, http.MethodPatch, path, investigator, fiber.Map{"status": "resolved"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, body = e.do(t, http.MethodPatch, path, investigator, fiber.Map{"status": "investigating", "note": "calling bank"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ivy", body["assignee"])

	resp, body = e.do(t, http.MethodGet, path, analyst, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "investigating", body["status"])

	resp, _ = e.do(t, http.MethodGet, "/api/alerts/999", analyst, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = e.do(t, http.MethodGet, "/api/alerts/abc", analyst, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestUploadAndExport(t *testing.T) {
	e := newEnv(t)
	analyst := e.login(t, "analyst", models.RoleAnalyst)

	var form bytes.Buffer
	mw := multipart.NewWriter(&form)
	part, err := mw.CreateFormFile("file", "batch.csv")
	require.NoError(t, err)
	_, err = part.Write([]byte("id,date,from_account,to_account,amount,description\n" +
		"U-1,2024-03-02,ACC-100,ACC-1,60000,payment\n" +
		"U-2,2024-03-02,ACC-100,ACC-1,oops,payment\n"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/transactions/upload", &form)
	req.Header.Set(fiber.HeaderContentType, mw.FormDataContentType())
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+analyst)
	resp, body := e.send(t, req)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, 1.0, body["created"])
	assert.Equal(t, 1.0, body["failed"])

	req = httptest.NewRequest(http.MethodGet, "/api/export-all-transactions-csv", nil)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+analyst)
	resp, err = e.app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get(fiber.HeaderContentType), "text/csv")
	assert.Contains(t, resp.Header.Get(fiber.HeaderContentDisposition), report.ExportFilename)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "U-1,2024-03-02,ACC-100,ACC-1,60000.00,payment,3.0,normal,Large amount transaction", lines[1])
}

func TestAdminRoutes(t *testing.T) {
	e := newEnv(t)
	analyst := e.login(t, "analyst", models.RoleAnalyst)
	admin := e.login(t, "admin", models.RoleAdmin)

	resp, _ := e.do(t, http.MethodPost, "/api/admin/reassess", analyst, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, body := e.do(t, http.MethodPost, "/api/admin/reassess", admin, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 0.0, body["processed"])

	resp, body = e.do(t, http.MethodPost, "/api/admin/users", admin, fiber.Map{
		"username": "ivy", "email": "ivy@example.com", "password": "s3cret!pass", "role": models.RoleInvestigator,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, models.RoleInvestigator, body["role"])

	resp, body = e.do(t, http.MethodGet, "/api/admin/cache-stats", admin, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, false, body["enabled"])
}

func TestMetricsEndpoint(t *testing.T) {
	e := newEnv(t)
	e.do(t, http.MethodGet, "/health", "", nil)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `amlguard_http_requests_total{code="200",method="GET",route="/health"} 1`)
}
