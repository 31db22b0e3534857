package server

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hongminglow/record-archive/internal/config"
	"github.com/hongminglow/record-archive/internal/service"
	"github.com/hongminglow/record-archive/internal/storage/archive"
)

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type apiClient struct {
	t   *testing.T
	url string
}

func newAPI(t *testing.T, authEnabled bool) apiClient {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	dir := t.TempDir()
	st, err := archive.New(dir, archive.WithLogger(log))
	require.NoError(t, err)

	cfg := config.Config{ArchiveDir: dir, AuthEnabled: authEnabled, CORSOrigins: []string{"*"}}
	ts := httptest.NewServer(Routes(cfg, service.New(st, service.Options{Logger: log}), log))
	t.Cleanup(ts.Close)
	return apiClient{t: t, url: ts.URL}
}

func (c apiClient) do(method, path, token string, body any, out any) int {
	c.t.Helper()
	var rdr io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(c.t, err)
		rdr = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, c.url+path, rdr)
	require.NoError(c.t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(c.t, err)
	defer resp.Body.Close()

	var env envelope
	require.NoError(c.t, json.NewDecoder(resp.Body).Decode(&env))
	assert.Equal(c.t, resp.StatusCode, env.Code)
	if out != nil && len(env.Data) > 0 {
		require.NoError(c.t, json.Unmarshal(env.Data, out))
	}
	return resp.StatusCode
}

type loginData struct {
	Token string `json:"token"`
	User  struct {
		ID   string `json:"id"`
		Role string `json:"role"`
	} `json:"user"`
}

func (c apiClient) register(email, role string) loginData {
	c.t.Helper()
	var out loginData
	status := c.do(http.MethodPost, "/api/v2/auth/register", "", map[string]any{
		"email": email, "password": "pw", "role": role,
	}, &out)
	require.Equal(c.t, http.StatusOK, status)
	return out
}

func TestHealthEndpoints(t *testing.T) {
	api := newAPI(t, false)

	var health map[string]any
	assert.Equal(t, http.StatusOK, api.do(http.MethodGet, "/healthz", "", nil, &health))
	assert.Equal(t, "ok", health["status"])
	assert.Equal(t, false, health["auth_enabled"])

	var check map[string]any
	assert.Equal(t, http.StatusOK, api.do(http.MethodGet, "/api/v2/check/health", "", nil, &check))
	assert.Equal(t, true, check["ok"])

	var info map[string]any
	assert.Equal(t, http.StatusOK, api.do(http.MethodGet, "/api/v2/system/info", "", nil, &info))
	assert.Equal(t, "archive", info["mode"])
}

func TestAuthDisabled_DevAdmin(t *testing.T) {
	api := newAPI(t, false)

	var me struct {
		User struct {
			ID   string `json:"id"`
			Role string `json:"role"`
		} `json:"user"`
	}
	assert.Equal(t, http.StatusOK, api.do(http.MethodGet, "/api/v2/auth/me", "", nil, &me))
	assert.Equal(t, "dev_admin", me.User.ID)
	assert.Equal(t, "admin", me.User.Role)

	var created map[string]any
	assert.Equal(t, http.StatusOK, api.do(http.MethodPost, "/api/v2/stores/", "", map[string]any{"name": "Open"}, &created))
	assert.NotEmpty(t, created["id"])
}

func TestRegisterLoginFlow(t *testing.T) {
	api := newAPI(t, true)

	reg := api.register("owner@x.com", "owner")
	assert.Equal(t, "owner", reg.User.Role)

	var login loginData
	assert.Equal(t, http.StatusOK, api.do(http.MethodPost, "/api/v2/auth/login", "", map[string]any{
		"email": "owner@x.com", "password": "pw",
	}, &login))
	assert.Equal(t, reg.Token, login.Token)

	assert.Equal(t, http.StatusUnauthorized, api.do(http.MethodPost, "/api/v2/auth/login", "", map[string]any{
		"email": "owner@x.com", "password": "wrong",
	}, nil))
	assert.Equal(t, http.StatusConflict, api.do(http.MethodPost, "/api/v2/auth/register", "", map[string]any{
		"email": "owner@x.com", "password": "pw",
	}, nil))

	assert.Equal(t, http.StatusUnauthorized, api.do(http.MethodGet, "/api/v2/auth/me", "", nil, nil))
	assert.Equal(t, http.StatusUnauthorized, api.do(http.MethodPost, "/api/v2/stores/find/", "bogus", map[string]any{}, nil))
}

func TestOwnershipOverHTTP(t *testing.T) {
	api := newAPI(t, true)
	a := api.register("a@x.com", "owner")
	b := api.register("b@x.com", "owner")
	cust := api.register("c@x.com", "customer")

	var store map[string]any
	require.Equal(t, http.StatusOK, api.do(http.MethodPost, "/api/v2/stores/", a.Token, map[string]any{"name": "A's"}, &store))
	storeID := store["id"].(string)
	assert.Equal(t, a.User.ID, store["owner_user_id"])

	assert.Equal(t, http.StatusForbidden, api.do(http.MethodGet, "/api/v2/stores/"+storeID+"/", b.Token, nil, nil))
	assert.Equal(t, http.StatusForbidden, api.do(http.MethodPut, "/api/v2/stores/"+storeID+"/", b.Token, map[string]any{"name": "mine"}, nil))
	assert.Equal(t, http.StatusForbidden, api.do(http.MethodDelete, "/api/v2/stores/"+storeID+"/", b.Token, nil, nil))
	assert.Equal(t, http.StatusForbidden, api.do(http.MethodPost, "/api/v2/stores/", cust.Token, map[string]any{"name": "x"}, nil))

	var found struct {
		Items []map[string]any `json:"items"`
	}
	require.Equal(t, http.StatusOK, api.do(http.MethodPost, "/api/v2/stores/find/", b.Token, map[string]any{"where": map[string]any{}}, &found))
	assert.Empty(t, found.Items)

	assert.Equal(t, http.StatusNotFound, api.do(http.MethodGet, "/api/v2/stores/nope/", a.Token, nil, nil))

	var del struct {
		Deleted bool `json:"deleted"`
	}
	require.Equal(t, http.StatusOK, api.do(http.MethodDelete, "/api/v2/stores/"+storeID+"/", a.Token, nil, &del))
	assert.True(t, del.Deleted)
}

func TestOrderWorkflowOverHTTP(t *testing.T) {
	api := newAPI(t, true)
	owner := api.register("o@x.com", "owner")
	cust := api.register("c@x.com", "customer")

	var store map[string]any
	require.Equal(t, http.StatusOK, api.do(http.MethodPost, "/api/v2/stores/", owner.Token, map[string]any{"name": "Shop"}, &store))

	assert.Equal(t, http.StatusBadRequest, api.do(http.MethodPost, "/api/v2/orders/create", cust.Token, map[string]any{"store_id": "missing"}, nil))

	var order map[string]any
	require.Equal(t, http.StatusOK, api.do(http.MethodPost, "/api/v2/orders/create", cust.Token, map[string]any{
		"store_id":   store["id"],
		"line_items": []map[string]any{{"product_id": "p1", "qty": 2}},
	}, &order))
	assert.Equal(t, "pending", order["status"])
	orderID := order["id"].(string)

	assert.Equal(t, http.StatusForbidden, api.do(http.MethodPost, "/api/v2/order/"+orderID+"/approve", cust.Token, nil, nil))

	var approved map[string]any
	require.Equal(t, http.StatusOK, api.do(http.MethodPost, "/api/v2/order/"+orderID+"/approve", owner.Token, nil, &approved))
	assert.Equal(t, "approved", approved["status"])
	assert.NotNil(t, approved["approved_at"])

	var feed struct {
		Items []map[string]any `json:"items"`
	}
	require.Equal(t, http.StatusOK, api.do(http.MethodPost, "/api/v2/notification/find/", cust.Token, map[string]any{}, &feed))
	require.Len(t, feed.Items, 1)
	assert.Equal(t, "Order approved", feed.Items[0]["title"])

	var seen struct {
		Updated int `json:"updated"`
	}
	require.Equal(t, http.StatusOK, api.do(http.MethodPost, "/api/v2/notification/mark_seen", cust.Token, map[string]any{"all": true}, &seen))
	assert.Equal(t, 1, seen.Updated)
	require.Equal(t, http.StatusOK, api.do(http.MethodPost, "/api/v2/notification/mark_seen", cust.Token, map[string]any{"all": true}, &seen))
	assert.Equal(t, 0, seen.Updated)
}

func TestSettingsOverHTTP(t *testing.T) {
	api := newAPI(t, false)

	var cur map[string]any
	require.Equal(t, http.StatusOK, api.do(http.MethodGet, "/api/v2/system/settings", "", nil, &cur))
	assert.Equal(t, false, cur["order_auto_approve"])

	require.Equal(t, http.StatusOK, api.do(http.MethodPut, "/api/v2/system/settings", "", map[string]any{"order_auto_approve": true}, &cur))
	assert.Equal(t, true, cur["order_auto_approve"])
	assert.Equal(t, "system", cur["id"])
}

func TestStoreWizardOverHTTP(t *testing.T) {
	api := newAPI(t, false)

	var out struct {
		Store      map[string]any   `json:"store"`
		Categories []map[string]any `json:"categories"`
		Products   []map[string]any `json:"products"`
	}
	require.Equal(t, http.StatusOK, api.do(http.MethodPost, "/api/v2/store-wizard", "", map[string]any{
		"store": map[string]any{"name": "Bakery"},
		"categories": []map[string]any{{
			"name":     "Bread",
			"products": []map[string]any{{"name": "Challah", "price_cents": 1800, "stock_qty": 5}},
		}},
	}, &out))
	assert.Equal(t, "Bakery", out.Store["name"])
	require.Len(t, out.Categories, 1)
	require.Len(t, out.Products, 1)
	assert.Equal(t, "ILS", out.Products[0]["currency"])
	assert.EqualValues(t, 1800, out.Products[0]["price_cents"])

	assert.Equal(t, http.StatusBadRequest, api.do(http.MethodPost, "/api/v2/store-wizard", "", map[string]any{
		"categories": []map[string]any{{"name": ""}},
	}, nil))
}

func TestBadJSON(t *testing.T) {
	api := newAPI(t, false)
	req, err := http.NewRequest(http.MethodPost, api.url+"/api/v2/stores/", bytes.NewBufferString("{not json"))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestProtectedCollectionsOverHTTP(t *testing.T) {
	api := newAPI(t, true)
	admin := api.register("root@x.com", "admin")
	owner := api.register("o@x.com", "owner")
	cust := api.register("c@x.com", "customer")

	assert.Equal(t, http.StatusForbidden, api.do(http.MethodPost, "/api/v2/users/find/", cust.Token, map[string]any{
		"where": map[string]any{"email": "root@x.com", "password": "pw"},
	}, nil))
	assert.Equal(t, http.StatusForbidden, api.do(http.MethodPost, "/api/v2/users/find/", owner.Token, map[string]any{
		"where": map[string]any{"token": admin.Token},
	}, nil))

	assert.Equal(t, http.StatusForbidden, api.do(http.MethodPut, "/api/v2/system_settings/system/", owner.Token, map[string]any{"order_auto_approve": true}, nil))
	assert.Equal(t, http.StatusForbidden, api.do(http.MethodPut, "/api/v2/users/"+cust.User.ID+"/", owner.Token, map[string]any{"role": "admin"}, nil))

	var cur map[string]any
	require.Equal(t, http.StatusOK, api.do(http.MethodGet, "/api/v2/system/settings", owner.Token, nil, &cur))
	assert.Equal(t, false, cur["order_auto_approve"])

	var me struct {
		User struct {
			Role string `json:"role"`
		} `json:"user"`
	}
	require.Equal(t, http.StatusOK, api.do(http.MethodGet, "/api/v2/auth/me", cust.Token, nil, &me))
	assert.Equal(t, "customer", me.User.Role)
}
