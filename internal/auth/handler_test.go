package auth

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*httptest.Server, *stubRepo) {
	t.Helper()
	svc, repo := newTestService(t)
	mw := NewMiddleware(discardLogger(), svc)
	handler := NewHandler(discardLogger(), svc, mw)

	router := chi.NewRouter()
	router.Route("/auth", handler.MountRoutes)
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return server, repo
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(payload))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestRegisterLoginFlow(t *testing.T) {
	server, _ := newTestServer(t)

	resp := postJSON(t, server.URL+"/auth/register", RegisterRequest{
		Name: "Alice", Email: "alice@example.com", Password: "Abc123",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var registered AuthResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&registered))
	require.NotEmpty(t, registered.Token)
	require.Equal(t, "alice@example.com", registered.User.Email)

	resp = postJSON(t, server.URL+"/auth/login", LoginRequest{
		Email: "alice@example.com", Password: "Abc123",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var logged AuthResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&logged))
	require.Equal(t, registered.User.ID, logged.User.ID)

	req, err := http.NewRequest(http.MethodGet, server.URL+"/auth/me", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+logged.Token)
	meResp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer meResp.Body.Close()
	require.Equal(t, http.StatusOK, meResp.StatusCode)

	var me User
	require.NoError(t, json.NewDecoder(meResp.Body).Decode(&me))
	require.Equal(t, registered.User.ID, me.ID)
}

func TestRegisterValidation(t *testing.T) {
	server, _ := newTestServer(t)

	resp := postJSON(t, server.URL+"/auth/register", RegisterRequest{
		Name: "Alice", Email: "not-an-email", Password: "Abc123",
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var problem struct {
		Title  string            `json:"title"`
		Fields map[string]string `json:"fields"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&problem))
	require.Equal(t, "Validation Failed", problem.Title)
	require.Contains(t, problem.Fields, "Email")
}

func TestLoginWrongPassword(t *testing.T) {
	server, _ := newTestServer(t)

	resp := postJSON(t, server.URL+"/auth/register", RegisterRequest{
		Name: "Alice", Email: "alice@example.com", Password: "Abc123",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = postJSON(t, server.URL+"/auth/login", LoginRequest{
		Email: "alice@example.com", Password: "Wrong123",
	})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestVerifyEndpointRejectsGarbage(t *testing.T) {
	server, _ := newTestServer(t)

	resp := postJSON(t, server.URL+"/auth/verify", VerifyTokenRequest{Token: "not.a.token"})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	server, _ := newTestServer(t)

	resp, err := http.Get(server.URL + "/auth/me")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
