package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"catalog_system/internal/accounts"
	"catalog_system/internal/config"
	"catalog_system/internal/db"
	"catalog_system/internal/domain"
	"catalog_system/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type testEnv struct {
	t      *testing.T
	db     *gorm.DB
	cfg    *config.Config
	router *gin.Engine
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newCachedTestEnv(t, nil)
}

// newCachedTestEnv builds the router on top of rdb; nil runs without a cache
func newCachedTestEnv(t *testing.T, rdb *redis.Client) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	database, err := db.OpenSQLite(filepath.Join(t.TempDir(), "catalog.db"))
	require.NoError(t, err)
	require.NoError(t, db.Migrate(database))
	t.Cleanup(func() {
		if sqlDB, err := database.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	cfg := &config.Config{
		JWTSecret:     "test-secret",
		SessionCookie: "catalog_session",
		CacheTTL:      time.Minute,
	}
	return &testEnv{t: t, db: database, cfg: cfg, router: NewRouter(database, rdb, cfg)}
}

// login creates an account with role and returns its session cookie
func (e *testEnv) login(username string, role domain.Role) (*domain.User, *http.Cookie) {
	e.t.Helper()
	user, err := accounts.Upsert(context.Background(), e.db, accounts.Seed{Username: username, Password: "secret", Role: role})
	require.NoError(e.t, err)
	token, err := utils.GenerateJWT(user.ID, e.cfg.JWTSecret)
	require.NoError(e.t, err)
	return user, &http.Cookie{Name: e.cfg.SessionCookie, Value: token}
}

func (e *testEnv) do(method, path string, form url.Values, cookie *http.Cookie) *httptest.ResponseRecorder {
	e.t.Helper()
	var body *strings.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	} else {
		body = strings.NewReader("")
	}
	req := httptest.NewRequest(method, path, body)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) seedProduct(name, sku string, price int64) domain.Product {
	e.t.Helper()
	p := domain.Product{Name: name, SKU: sku, Price: decimal.NewFromInt(price)}
	require.NoError(e.t, e.db.Create(&p).Error)
	return p
}

func (e *testEnv) seedPickupPoint(address string) domain.PickupPoint {
	e.t.Helper()
	p := domain.PickupPoint{Address: address}
	require.NoError(e.t, e.db.Create(&p).Error)
	return p
}

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, dest any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), dest))
}

func cookieNamed(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestRegisterLoginLogout(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPost, "/register/", url.Values{
		"username":  {"alice"},
		"password1": {"wonderland"},
		"password2": {"wonderland"},
	}, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	session := cookieNamed(rec, env.cfg.SessionCookie)
	require.NotNil(t, session)
	assert.True(t, session.HttpOnly)

	var user domain.User
	require.NoError(t, env.db.Preload("Profile").Where("username = ?", "alice").First(&user).Error)
	require.NotNil(t, user.Profile)
	assert.Equal(t, domain.RoleAuthorized, user.Profile.Role)

	rec = env.do(http.MethodPost, "/login/", url.Values{"username": {"alice"}, "password": {"wonderland"}}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var auth AuthResponse
	decode(t, rec, &auth)
	assert.NotEmpty(t, auth.Token)
	assert.Equal(t, "/", auth.Redirect)

	// The issued token opens guarded pages
	rec = env.do(http.MethodGet, "/orders/", nil, &http.Cookie{Name: env.cfg.SessionCookie, Value: auth.Token})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(http.MethodPost, "/logout/", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	cleared := cookieNamed(rec, env.cfg.SessionCookie)
	require.NotNil(t, cleared)
	assert.Empty(t, cleared.Value)
	assert.Negative(t, cleared.MaxAge)
}

func TestRegisterRejectsMismatchedPasswords(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(http.MethodPost, "/register/", url.Values{
		"username":  {"bob"},
		"password1": {"first"},
		"password2": {"second"},
	}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Passwords do not match")
	assert.Nil(t, cookieNamed(rec, env.cfg.SessionCookie))

	var count int64
	require.NoError(t, env.db.Model(&domain.User{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	env := newTestEnv(t)
	env.login("carol", domain.RoleAuthorized)

	rec := env.do(http.MethodPost, "/login/", url.Values{"username": {"carol"}, "password": {"wrong"}}, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid username or password")

	rec = env.do(http.MethodPost, "/login/", url.Values{"username": {""}, "password": {""}}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCatalogIgnoresFiltersForAnonymousViewers(t *testing.T) {
	env := newTestEnv(t)
	env.seedProduct("Laptop", "LP-1", 1000)
	env.seedProduct("Mouse", "MS-1", 20)

	rec := env.do(http.MethodGet, "/?search=mouse&price_max=50", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var listing struct {
		Products []domain.Product `json:"products"`
		UserRole domain.Role      `json:"user_role"`
		ShowEdit bool             `json:"show_edit"`
	}
	decode(t, rec, &listing)
	assert.Equal(t, domain.RoleUnauthorized, listing.UserRole)
	assert.Len(t, listing.Products, 2)
	assert.False(t, listing.ShowEdit)
}

func TestCatalogFiltersForAuthorizedViewers(t *testing.T) {
	env := newTestEnv(t)
	env.seedProduct("Laptop", "LP-1", 1000)
	env.seedProduct("Mouse", "MS-1", 20)
	_, cookie := env.login("dave", domain.RoleAuthorized)

	rec := env.do(http.MethodGet, "/?search=MOUSE&price_max=50", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	var listing struct {
		Products []domain.Product `json:"products"`
		UserRole domain.Role      `json:"user_role"`
	}
	decode(t, rec, &listing)
	assert.Equal(t, domain.RoleAuthorized, listing.UserRole)
	require.Len(t, listing.Products, 1)
	assert.Equal(t, "MS-1", listing.Products[0].SKU)
}

func TestForbiddenProductActionsChangeNothing(t *testing.T) {
	env := newTestEnv(t)
	product := env.seedProduct("Laptop", "LP-1", 1000)
	_, user := env.login("erin", domain.RoleAuthorized)
	_, editor := env.login("frank", domain.RoleEditor)

	rec := env.do(http.MethodPost, "/product/add/", url.Values{"name": {"Tablet"}, "sku": {"TB-1"}}, user)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(http.MethodPost, "/product/"+itoa(product.ID)+"/delete/", nil, editor)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	var count int64
	require.NoError(t, env.db.Model(&domain.Product{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestProductManagement(t *testing.T) {
	env := newTestEnv(t)
	_, editor := env.login("grace", domain.RoleEditor)
	_, admin := env.login("heidi", domain.RoleAdmin)

	rec := env.do(http.MethodPost, "/product/add/", url.Values{"name": {"Tablet"}, "sku": {"TB-0"}}, editor)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(http.MethodPost, "/product/add/", url.Values{
		"name":  {"Tablet"},
		"price": {"199.99"},
		"sku":   {"TB-1"},
	}, admin)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created struct {
		Product domain.Product `json:"product"`
	}
	decode(t, rec, &created)
	id := itoa(created.Product.ID)

	rec = env.do(http.MethodPost, "/product/add/", url.Values{"name": {"Copy"}, "sku": {"TB-1"}}, admin)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = env.do(http.MethodPost, "/product/add/", url.Values{"name": {"Bad"}, "price": {"abc"}, "sku": {"BD-1"}}, admin)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(http.MethodGet, "/product/"+id+"/edit/", nil, editor)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(http.MethodPost, "/product/"+id+"/edit/", url.Values{"price": {"149.50"}}, editor)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var stored domain.Product
	require.NoError(t, env.db.First(&stored, created.Product.ID).Error)
	assert.True(t, decimal.RequireFromString("149.50").Equal(stored.Price))
	assert.Equal(t, "Tablet", stored.Name)

	rec = env.do(http.MethodGet, "/product/"+id+"/delete/", nil, admin)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"object_type":"product"`)

	rec = env.do(http.MethodPost, "/product/"+id+"/delete/", nil, admin)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.ErrorIs(t, env.db.First(&stored, created.Product.ID).Error, gorm.ErrRecordNotFound)
}

func TestNonNumericIDIsNotFound(t *testing.T) {
	env := newTestEnv(t)
	_, admin := env.login("ivan", domain.RoleAdmin)

	rec := env.do(http.MethodGet, "/product/abc/edit/", nil, admin)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(http.MethodGet, "/product/999/edit/", nil, admin)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAnonymousBuyRedirectsToLogin(t *testing.T) {
	env := newTestEnv(t)
	product := env.seedProduct("Laptop", "LP-1", 1000)
	point := env.seedPickupPoint("Main st. 1")

	path := "/buy/" + itoa(product.ID) + "/" + itoa(point.ID) + "/"
	rec := env.do(http.MethodPost, path, nil, nil)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/login/?next="+url.QueryEscape(path), rec.Header().Get("Location"))

	var count int64
	require.NoError(t, env.db.Model(&domain.Order{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestBuyAndListOrders(t *testing.T) {
	env := newTestEnv(t)
	product := env.seedProduct("Laptop", "LP-1", 1000)
	point := env.seedPickupPoint("Main st. 1")
	_, cookie := env.login("judy", domain.RoleAuthorized)
	_, other := env.login("mallory", domain.RoleAuthorized)

	rec := env.do(http.MethodPost, "/buy/"+itoa(product.ID)+"/"+itoa(point.ID)+"/", nil, cookie)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = env.do(http.MethodGet, "/orders/", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Orders []OrderResponse `json:"orders"`
	}
	decode(t, rec, &list)
	require.Len(t, list.Orders, 1)
	order := list.Orders[0]
	assert.Len(t, order.ReceiveCode, domain.ReceiveCodeLength)
	assert.Equal(t, "LP-1", order.SKUs)
	require.NotNil(t, order.PickupPoint)
	assert.Equal(t, "Main st. 1", order.PickupPoint.Address)

	// Orders are private to their owner
	rec = env.do(http.MethodGet, "/orders/", nil, other)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &list)
	assert.Empty(t, list.Orders)
}

func TestBuyWithMissingPickupPoint(t *testing.T) {
	env := newTestEnv(t)
	product := env.seedProduct("Laptop", "LP-1", 1000)
	_, cookie := env.login("niaj", domain.RoleAuthorized)

	rec := env.do(http.MethodPost, "/buy/"+itoa(product.ID)+"/42/", nil, cookie)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	var count int64
	require.NoError(t, env.db.Model(&domain.Order{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestUnauthorizedRoleCannotBuy(t *testing.T) {
	env := newTestEnv(t)
	product := env.seedProduct("Laptop", "LP-1", 1000)
	point := env.seedPickupPoint("Main st. 1")
	_, guest := env.login("olivia", domain.RoleUnauthorized)

	rec := env.do(http.MethodPost, "/buy/"+itoa(product.ID)+"/"+itoa(point.ID)+"/", nil, guest)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "Access denied")
}

func TestAdminManagesUsers(t *testing.T) {
	env := newTestEnv(t)
	admin, adminCookie := env.login("peggy", domain.RoleAdmin)
	target, _ := env.login("rupert", domain.RoleAuthorized)
	_, editor := env.login("sybil", domain.RoleEditor)

	rec := env.do(http.MethodGet, "/manage-users/", nil, editor)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(http.MethodGet, "/manage-users/?page_size=2", nil, adminCookie)
	require.Equal(t, http.StatusOK, rec.Code)
	var page struct {
		Users      []UserAdminResponse `json:"users"`
		Total      int64               `json:"total"`
		TotalPages int                 `json:"total_pages"`
	}
	decode(t, rec, &page)
	assert.Len(t, page.Users, 2)
	assert.Equal(t, int64(3), page.Total)
	assert.Equal(t, 2, page.TotalPages)

	rec = env.do(http.MethodPost, "/manage-users/"+itoa(target.ID)+"/role/", url.Values{"role": {"editor"}}, adminCookie)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var profile domain.Profile
	require.NoError(t, env.db.Where("user_id = ?", target.ID).First(&profile).Error)
	assert.Equal(t, domain.RoleEditor, profile.Role)

	rec = env.do(http.MethodPost, "/manage-users/"+itoa(target.ID)+"/role/", url.Values{"role": {"superuser"}}, adminCookie)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(http.MethodPost, "/manage-users/"+itoa(admin.ID)+"/delete/", nil, adminCookie)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(http.MethodPost, "/manage-users/"+itoa(target.ID)+"/delete/", nil, adminCookie)
	require.Equal(t, http.StatusOK, rec.Code)
	var count int64
	require.NoError(t, env.db.Model(&domain.User{}).Where("id = ?", target.ID).Count(&count).Error)
	assert.Zero(t, count)
}

func TestPickupPointManagement(t *testing.T) {
	env := newTestEnv(t)
	_, admin := env.login("trent", domain.RoleAdmin)
	_, editor := env.login("victor", domain.RoleEditor)

	rec := env.do(http.MethodPost, "/pickup-point/add/", url.Values{"address": {"Main st. 1"}}, editor)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(http.MethodPost, "/pickup-point/add/", url.Values{"address": {"  "}}, admin)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(http.MethodPost, "/pickup-point/add/", url.Values{"address": {"Main st. 1"}}, admin)
	require.Equal(t, http.StatusCreated, rec.Code)
	var created struct {
		PickupPoint domain.PickupPoint `json:"pickup_point"`
	}
	decode(t, rec, &created)

	rec = env.do(http.MethodGet, "/pickup-points/", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Main st. 1")

	rec = env.do(http.MethodPost, "/pickup-point/"+itoa(created.PickupPoint.ID)+"/delete/", nil, admin)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = env.do(http.MethodPost, "/pickup-point/"+itoa(created.PickupPoint.ID)+"/delete/", nil, admin)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/healthz", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = env.do(http.MethodGet, "/metrics", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "catalog_http_requests_total")
}
