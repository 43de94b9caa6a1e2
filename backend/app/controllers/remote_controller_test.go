package controllers_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"flowgate/backend/app/controllers"
	"flowgate/backend/app/dto"
	jwtutil "flowgate/backend/app/jwt"
	"flowgate/backend/app/middleware"
	"flowgate/backend/app/models"
	"flowgate/backend/app/presence"
	"flowgate/backend/app/repo"
	"flowgate/backend/app/services"
	"flowgate/backend/router"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const testAPIKey = "test-shared-secret"

func setup(t *testing.T) (http.Handler, *jwtutil.Signer) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "queue.db")
	db, err := gorm.Open(sqlite.Open("file:"+path+"?_busy_timeout=5000"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.RemoteCommand{}))

	signer := &jwtutil.Signer{Secret: []byte("test-secret"), Issuer: "flowgate-test", ExpMin: 60}
	userSvc := services.NewUserService(repo.NewUserRepository(db))
	cmdSvc := services.NewRemoteCommandService(repo.NewRemoteCommandRepository(db))
	tracker := presence.NewTracker(nil)

	authCtrl := controllers.NewAuthController(userSvc, signer)
	remoteCtrl := controllers.NewRemoteController(cmdSvc, tracker)
	mw := &middleware.Auth{Signer: signer, APIKey: testAPIKey}
	return router.NewRouter(authCtrl, remoteCtrl, mw), signer
}

func adminToken(t *testing.T, signer *jwtutil.Signer) string {
	t.Helper()
	token, err := signer.Sign(1, "alice", "admin", false)
	require.NoError(t, err)
	return token
}

func viewerToken(t *testing.T, signer *jwtutil.Signer) string {
	t.Helper()
	token, err := signer.Sign(2, "bob", "viewer", false)
	require.NoError(t, err)
	return token
}

func doJSON(h http.Handler, method, target, bearer, apiKey string, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	if apiKey != "" {
		req.Header.Set("X-API-Key", apiKey)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestSubmitRequiresCredentials(t *testing.T) {
	h, signer := setup(t)

	w := doJSON(h, http.MethodPost, "/api/remote/command", "", "", `{"device_id":"GW-1","command":"uptime"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(h, http.MethodPost, "/api/remote/command", viewerToken(t, signer), "", `{"device_id":"GW-1","command":"uptime"}`)
	assert.Equal(t, http.StatusForbidden, w.Code)
	var e dto.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &e))
	assert.Equal(t, "Forbidden", e.Error)
}

func TestSubmitDistinguishesRejections(t *testing.T) {
	h, signer := setup(t)
	token := adminToken(t, signer)

	// blocked command: 403 but with its own error name, not Forbidden
	w := doJSON(h, http.MethodPost, "/api/remote/command", token, "", `{"device_id":"GW-1","command":"rm -rf /"}`)
	assert.Equal(t, http.StatusForbidden, w.Code)
	var e dto.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &e))
	assert.Equal(t, "Blocked", e.Error)

	w = doJSON(h, http.MethodPost, "/api/remote/command", token, "", `{"device_id":"GW-1","command":"   "}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(h, http.MethodPost, "/api/remote/command", token, "", `not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	for i := 0; i < services.MaxPendingPerDevice; i++ {
		w = doJSON(h, http.MethodPost, "/api/remote/command", token, "", `{"device_id":"GW-1","command":"uptime"}`)
		require.Equal(t, http.StatusOK, w.Code)
	}
	w = doJSON(h, http.MethodPost, "/api/remote/command", token, "", `{"device_id":"GW-1","command":"uptime"}`)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestAgentEndpointsRejectSessions(t *testing.T) {
	h, signer := setup(t)
	token := adminToken(t, signer)

	// operators never claim or report, even as admin
	w := doJSON(h, http.MethodGet, "/api/remote/pending?device_id=GW-1", token, "", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(h, http.MethodPost, "/api/remote/result", token, "", `{"command_id":"x","exit_code":0}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(h, http.MethodGet, "/api/remote/pending?device_id=GW-1", "", "wrong-key", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestFullDispatchLifecycle(t *testing.T) {
	h, signer := setup(t)
	token := adminToken(t, signer)

	// operator submits
	w := doJSON(h, http.MethodPost, "/api/remote/command", token, "", `{"device_id":"GW-1","command":"uptime"}`)
	require.Equal(t, http.StatusOK, w.Code)
	var submitted dto.SubmitCommandResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &submitted))
	require.NotNil(t, submitted.Command)
	assert.Equal(t, models.CommandPending, submitted.Command.Status)

	// agent polls and claims
	w = doJSON(h, http.MethodGet, "/api/remote/pending?device_id=GW-1", "", testAPIKey, "")
	require.Equal(t, http.StatusOK, w.Code)
	var claimed dto.ClaimResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &claimed))
	require.NotNil(t, claimed.Command)
	assert.Equal(t, submitted.Command.ID, claimed.Command.ID)
	assert.Equal(t, models.CommandRunning, claimed.Command.Status)

	// an immediate second poll sees nothing
	w = doJSON(h, http.MethodGet, "/api/remote/pending?device_id=GW-1", "", testAPIKey, "")
	require.Equal(t, http.StatusOK, w.Code)
	var empty dto.ClaimResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &empty))
	assert.Nil(t, empty.Command)

	// agent reports success
	w = doJSON(h, http.MethodPost, "/api/remote/result", "", testAPIKey,
		`{"command_id":"`+claimed.Command.ID+`","exit_code":0,"output":"up 3 days"}`)
	require.Equal(t, http.StatusOK, w.Code)
	var done dto.SubmitCommandResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &done))
	assert.Equal(t, models.CommandCompleted, done.Command.Status)
	assert.Equal(t, "up 3 days", done.Command.Output)

	// a repeat report is rejected and the stored result stays
	w = doJSON(h, http.MethodPost, "/api/remote/result", "", testAPIKey,
		`{"command_id":"`+claimed.Command.ID+`","exit_code":1,"output":"stale"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)

	// dashboard observes completion through history
	w = doJSON(h, http.MethodGet, "/api/remote/history?device_id=GW-1", token, "", "")
	require.Equal(t, http.StatusOK, w.Code)
	var hist dto.HistoryResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &hist))
	assert.EqualValues(t, 1, hist.Total)
	require.Len(t, hist.Commands, 1)
	assert.Equal(t, models.CommandCompleted, hist.Commands[0].Status)
	require.NotNil(t, hist.Commands[0].ExitCode)
	assert.Equal(t, 0, *hist.Commands[0].ExitCode)
}

func TestResultValidation(t *testing.T) {
	h, _ := setup(t)

	w := doJSON(h, http.MethodPost, "/api/remote/result", "", testAPIKey, `{"command_id":"x"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(h, http.MethodPost, "/api/remote/result", "", testAPIKey, `{"exit_code":0}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(h, http.MethodPost, "/api/remote/result", "", testAPIKey, `{"command_id":"missing","exit_code":0}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestClaimValidation(t *testing.T) {
	h, _ := setup(t)

	w := doJSON(h, http.MethodGet, "/api/remote/pending", "", testAPIKey, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// empty queue answers null, not an error
	w = doJSON(h, http.MethodGet, "/api/remote/pending?device_id=GW-9", "", testAPIKey, "")
	require.Equal(t, http.StatusOK, w.Code)
	var out dto.ClaimResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	assert.Nil(t, out.Command)
}

func TestHistoryClampsPaging(t *testing.T) {
	h, signer := setup(t)
	token := adminToken(t, signer)

	w := doJSON(h, http.MethodGet, "/api/remote/history?device_id=GW-1&limit=9999&offset=-3", token, "", "")
	require.Equal(t, http.StatusOK, w.Code)
	var hist dto.HistoryResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &hist))
	assert.Equal(t, services.MaxHistoryLimit, hist.Limit)
	assert.Equal(t, 0, hist.Offset)
	assert.NotNil(t, hist.Commands)

	w = doJSON(h, http.MethodGet, "/api/remote/history", token, "", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestOnlineEndpoint(t *testing.T) {
	h, signer := setup(t)

	w := doJSON(h, http.MethodGet, "/api/remote/online?device_id=GW-1", "", "", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(h, http.MethodGet, "/api/remote/online?device_id=GW-1", viewerToken(t, signer), "", "")
	assert.Equal(t, http.StatusForbidden, w.Code)

	// no presence backend configured: the device reads as offline
	w = doJSON(h, http.MethodGet, "/api/remote/online?device_id=GW-1", adminToken(t, signer), "", "")
	require.Equal(t, http.StatusOK, w.Code)
	var out dto.OnlineResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	assert.False(t, out.Online)
}
