package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/fekuna/omnipos-boutique-service/internal/auth"
	authH "github.com/fekuna/omnipos-boutique-service/internal/auth/handler"
	authRepoPkg "github.com/fekuna/omnipos-boutique-service/internal/auth/repository"
	authUCPkg "github.com/fekuna/omnipos-boutique-service/internal/auth/usecase"
	invH "github.com/fekuna/omnipos-boutique-service/internal/inventory/handler"
	invRepoPkg "github.com/fekuna/omnipos-boutique-service/internal/inventory/repository"
	invUCPkg "github.com/fekuna/omnipos-boutique-service/internal/inventory/usecase"
	prodH "github.com/fekuna/omnipos-boutique-service/internal/product/handler"
	prodRepoPkg "github.com/fekuna/omnipos-boutique-service/internal/product/repository"
	prodUCPkg "github.com/fekuna/omnipos-boutique-service/internal/product/usecase"
	saleH "github.com/fekuna/omnipos-boutique-service/internal/sale/handler"
	saleRepoPkg "github.com/fekuna/omnipos-boutique-service/internal/sale/repository"
	saleUCPkg "github.com/fekuna/omnipos-boutique-service/internal/sale/usecase"
	shopH "github.com/fekuna/omnipos-boutique-service/internal/shop/handler"
	shopRepoPkg "github.com/fekuna/omnipos-boutique-service/internal/shop/repository"
	shopUCPkg "github.com/fekuna/omnipos-boutique-service/internal/shop/usecase"
	"github.com/fekuna/omnipos-boutique-service/internal/testutil"
	"github.com/fekuna/omnipos-boutique-service/pkg/logger"
	"github.com/fekuna/omnipos-boutique-service/pkg/postgres"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

type revokedSet struct {
	mu  sync.Mutex
	ids map[string]bool
}

func (r *revokedSet) Revoke(_ context.Context, id string, _ time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ids[id] = true
	return nil
}

func (r *revokedSet) IsRevoked(_ context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ids[id], nil
}

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.NewDB(t)
	log := logger.NewNop()
	tx := postgres.NewTxManager(db)
	userRepo := authRepoPkg.NewPGRepository(db)
	saleRepo := saleRepoPkg.NewPGRepository(db)
	hasher := auth.NewPasswordHasher(bcrypt.MinCost)

	authUC := authUCPkg.NewAuthUseCase(userRepo,
		auth.NewJWTManager(auth.JWTConfig{SecretKey: "router-test"}), hasher,
		&revokedSet{ids: map[string]bool{}}, log)
	require.NoError(t, authUC.EnsureAdmin(context.Background(), "admin", "admin-pass"))

	shopUC := shopUCPkg.NewShopUseCase(shopRepoPkg.NewPGRepository(db), userRepo, hasher, tx, log)
	prodUC := prodUCPkg.NewProductUseCase(prodRepoPkg.NewPGRepository(db), tx, nil, nil, log)
	invUC := invUCPkg.NewInventoryUseCase(invRepoPkg.NewPGRepository(db), saleRepo, tx, nil, prodUC, log, invUCPkg.Options{})
	saleUC := saleUCPkg.NewSaleUseCase(saleRepo, nil, log)

	return NewRouter("boutique-test", &Handlers{
		Auth:      authH.NewAuthHandler(authUC, log),
		Shop:      shopH.NewShopHandler(shopUC, log),
		Product:   prodH.NewProductHandler(prodUC, log),
		Inventory: invH.NewInventoryHandler(invUC, log),
		Sale:      saleH.NewSaleHandler(saleUC, log),
	}, authUC, log)
}

func request(t *testing.T, r *gin.Engine, method, path, token, body string, out interface{}) int {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if out != nil {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), out), w.Body.String())
	}
	return w.Code
}

func login(t *testing.T, r *gin.Engine, username, password string) string {
	t.Helper()
	var res struct {
		Token string `json:"token"`
	}
	require.Equal(t, http.StatusOK, request(t, r, http.MethodPost, "/api/auth/login", "",
		`{"username":"`+username+`","password":"`+password+`"}`, &res))
	return res.Token
}

func TestHealthAndAuthGate(t *testing.T) {
	r := newTestRouter(t)

	assert.Equal(t, http.StatusOK, request(t, r, http.MethodGet, "/health", "", "", nil))
	assert.Equal(t, http.StatusUnauthorized, request(t, r, http.MethodGet, "/api/products", "", "", nil))
	assert.Equal(t, http.StatusUnauthorized, request(t, r, http.MethodPost, "/api/auth/login", "",
		`{"username":"admin","password":"wrong"}`, nil))
}

func TestShopLifecycleThroughHTTP(t *testing.T) {
	r := newTestRouter(t)
	admin := login(t, r, "admin", "admin-pass")

	var seeded struct {
		Created []struct {
			Shop struct {
				ID string `json:"id"`
			} `json:"shop"`
		} `json:"created"`
	}
	status := request(t, r, http.MethodPost, "/api/shops/seed", admin,
		`[{"name":"Plateau","manager":{"username":"awa","password":"secret1"}}]`, &seeded)
	require.Equal(t, http.StatusCreated, status)
	require.Len(t, seeded.Created, 1)
	shopID := seeded.Created[0].Shop.ID

	manager := login(t, r, "awa", "secret1")
	assert.Equal(t, http.StatusForbidden, request(t, r, http.MethodPost, "/api/shops", manager, `{"name":"Cocody"}`, nil))

	// The manager creates a product without naming a shop; it lands in theirs.
	var created struct {
		Product struct {
			ID     string `json:"id"`
			ShopID string `json:"shop_id"`
		} `json:"product"`
	}
	status = request(t, r, http.MethodPost, "/api/products", manager,
		`{"name":"Rice","unit":"kg","base_price":"500","stock":100}`, &created)
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, shopID, created.Product.ShopID)

	var sold struct {
		NewStock   float64 `json:"new_stock"`
		TotalPrice string  `json:"total_price"`
	}
	status = request(t, r, http.MethodPost, "/api/products/"+created.Product.ID+"/sell", manager,
		`{"quantity":500,"unit":"g"}`, &sold)
	require.Equal(t, http.StatusCreated, status)
	assert.InDelta(t, 99.5, sold.NewStock, 1e-9)
	assert.Equal(t, "250", sold.TotalPrice)

	var history struct {
		Sales []json.RawMessage `json:"sales"`
		Count int               `json:"count"`
	}
	require.Equal(t, http.StatusOK, request(t, r, http.MethodGet, "/api/sales", manager, "", &history))
	assert.Len(t, history.Sales, 1)
	assert.Equal(t, 1, history.Count)

	assert.Equal(t, http.StatusConflict, request(t, r, http.MethodPost, "/api/products/"+created.Product.ID+"/sell", manager,
		`{"quantity":1000}`, nil))

	assert.Equal(t, http.StatusOK, request(t, r, http.MethodPost, "/api/auth/logout", manager, "", nil))
	assert.Equal(t, http.StatusUnauthorized, request(t, r, http.MethodGet, "/api/auth/me", manager, "", nil))
}

func TestHealthServer(t *testing.T) {
	grpcServer, hs := NewHealthServer("boutique-test")
	defer grpcServer.Stop()

	res, err := hs.Check(context.Background(), &healthpb.HealthCheckRequest{Service: "boutique-test"})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, res.Status)

	hs.Shutdown()
	res, err = hs.Check(context.Background(), &healthpb.HealthCheckRequest{Service: "boutique-test"})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, res.Status)
}
