package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/GTDGit/gtd_catalog/internal/cache"
	"github.com/GTDGit/gtd_catalog/internal/combination"
	"github.com/GTDGit/gtd_catalog/internal/docstore"
	"github.com/GTDGit/gtd_catalog/internal/middleware"
	"github.com/GTDGit/gtd_catalog/internal/repository"
	"github.com/GTDGit/gtd_catalog/internal/service"
	"github.com/GTDGit/gtd_catalog/internal/utils"
)

const testSecret = "test-secret"

type envelope struct {
	Success bool             `json:"success"`
	Code    int              `json:"code"`
	Data    json.RawMessage  `json:"data"`
	Error   *utils.ErrorInfo `json:"error"`
	Meta    utils.Meta       `json:"meta"`
}

type testServer struct {
	router *gin.Engine
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := docstore.NewMemoryStore()
	repos := repository.NewRepositories(store)
	templates := service.NewTemplateService(repos)
	if _, err := templates.SeedTemplates(context.Background()); err != nil {
		t.Fatalf("seed: %v", err)
	}
	products := service.NewProductService(repos, docstore.NewMemoryFileStorage(), combination.NewGenerator(0, true),
		cache.NewMemoryWriteGuard(time.Minute, time.Hour), service.ProductServiceConfig{})
	filter := service.NewProductFilterService(repos, 0, 0)
	index := service.NewFilterIndexService(repos, service.NewQueryUsageCounter(repos.Variants), nil, 0)

	router := gin.New()
	router.Use(middleware.LoggingMiddleware())
	RegisterRoutes(router, &Handlers{
		Health:         NewHealthHandler(store, "memory", nil),
		Catalog:        NewCatalogHandler(templates),
		Product:        NewProductHandler(products, filter, index),
		VirtualProduct: NewVirtualProductHandler(service.NewVirtualProductService(repos)),
	}, middleware.NewJWTMiddleware(testSecret, nil))
	return &testServer{router: router}
}

func (s *testServer) do(t *testing.T, method, path, storeID string, body any) (int, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if storeID != "" {
		token, err := utils.GenerateJWT(testSecret, "user-"+storeID, storeID, time.Hour)
		if err != nil {
			t.Fatalf("token: %v", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var env envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("%s %s: decode %q: %v", method, path, w.Body.String(), err)
	}
	return w.Code, env
}

func tshirt(sku string, sizes, colors []string) map[string]any {
	return map[string]any{
		"title":       "T-Shirt",
		"sku":         sku,
		"basePrice":   100,
		"hasVariants": true,
		"variants": []map[string]any{
			{"templateId": "size", "selectedValues": sizes},
			{"templateId": "color", "selectedValues": colors},
		},
	}
}

type productBody struct {
	ID           string `json:"id"`
	StoreID      string `json:"storeId"`
	CreatedBy    string `json:"createdBy"`
	Combinations []struct {
		SKU   string `json:"sku"`
		Price string `json:"price"`
	} `json:"combinations"`
}

func TestCreateAndFilterProducts(t *testing.T) {
	s := newTestServer(t)

	code, env := s.do(t, http.MethodPost, "/v1/products", "store-1", tshirt("TSHIRT", []string{"S", "M"}, []string{"Red", "White"}))
	if code != http.StatusCreated {
		t.Fatalf("create = %d %+v", code, env.Error)
	}
	var created productBody
	if err := json.Unmarshal(env.Data, &created); err != nil {
		t.Fatalf("decode product: %v", err)
	}
	if created.StoreID != "store-1" || created.CreatedBy != "user-store-1" {
		t.Fatalf("identity not applied: %+v", created)
	}
	if len(created.Combinations) != 4 || created.Combinations[0].SKU != "TSHIRT-S-RED" {
		t.Fatalf("combinations = %+v", created.Combinations)
	}

	code, _ = s.do(t, http.MethodPost, "/v1/products", "store-1", tshirt("POLO", []string{"L"}, []string{"White"}))
	if code != http.StatusCreated {
		t.Fatalf("second create = %d", code)
	}

	code, env = s.do(t, http.MethodGet, "/v1/products?attr.size=S,M&attr.color=White", "", nil)
	if code != http.StatusOK {
		t.Fatalf("filter = %d %+v", code, env.Error)
	}
	var listed []productBody
	if err := json.Unmarshal(env.Data, &listed); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(listed) != 1 || listed[0].ID != created.ID {
		t.Fatalf("filtered = %+v", listed)
	}
	if p := env.Meta.Pagination; p == nil || p.TotalItems != 1 || p.Limit != 20 {
		t.Fatalf("pagination = %+v", env.Meta.Pagination)
	}

	code, env = s.do(t, http.MethodGet, "/v1/products/"+created.ID, "", nil)
	if code != http.StatusOK {
		t.Fatalf("get = %d", code)
	}

	code, env = s.do(t, http.MethodGet, "/v1/filters", "", nil)
	if code != http.StatusOK {
		t.Fatalf("filters = %d %+v", code, env.Error)
	}
	var index struct {
		TotalVariants       int      `json:"totalVariants"`
		AvailableAttributes []string `json:"availableAttributes"`
	}
	if err := json.Unmarshal(env.Data, &index); err != nil {
		t.Fatalf("decode index: %v", err)
	}
	if index.TotalVariants != 2 {
		t.Fatalf("index = %+v", index)
	}
}

func TestProductWriteErrors(t *testing.T) {
	s := newTestServer(t)

	if code, env := s.do(t, http.MethodPost, "/v1/products", "", tshirt("A", []string{"S"}, []string{"Red"})); code != http.StatusUnauthorized {
		t.Fatalf("no token = %d %+v", code, env.Error)
	}

	req := tshirt("A", []string{"S"}, []string{"Red"})
	req["storeId"] = "store-2"
	if code, _ := s.do(t, http.MethodPost, "/v1/products", "store-1", req); code != http.StatusForbidden {
		t.Fatalf("foreign store = %d", code)
	}

	req = tshirt("A", []string{"S"}, []string{"Red"})
	req["combinations"] = []map[string]any{{"variantValues": map[string]string{"size": "S", "color": "Red"}, "price": 90}}
	code, env := s.do(t, http.MethodPost, "/v1/products", "store-1", req)
	if code != http.StatusBadRequest || env.Error == nil || env.Error.Code != "PRICE_BELOW_BASE" {
		t.Fatalf("below base = %d %+v", code, env.Error)
	}

	if code, _ := s.do(t, http.MethodPost, "/v1/products", "store-1", tshirt("DUP", []string{"S"}, []string{"Red"})); code != http.StatusCreated {
		t.Fatalf("create = %d", code)
	}
	code, env = s.do(t, http.MethodPost, "/v1/products", "store-1", tshirt("DUP", []string{"M"}, []string{"Red"}))
	if code != http.StatusConflict || env.Error.Code != "DUPLICATE_SKU" {
		t.Fatalf("duplicate sku = %d %+v", code, env.Error)
	}

	if code, _ := s.do(t, http.MethodGet, "/v1/products/missing", "", nil); code != http.StatusNotFound {
		t.Fatalf("missing product = %d", code)
	}
	if code, env := s.do(t, http.MethodGet, "/v1/products?range.screen-size=abc", "", nil); code != http.StatusBadRequest {
		t.Fatalf("bad range = %d %+v", code, env.Error)
	}
}

func TestDeleteProductRequiresOwner(t *testing.T) {
	s := newTestServer(t)

	_, env := s.do(t, http.MethodPost, "/v1/products", "store-1", tshirt("TEE", []string{"S"}, []string{"Red"}))
	var created productBody
	if err := json.Unmarshal(env.Data, &created); err != nil {
		t.Fatalf("decode: %v", err)
	}

	if code, _ := s.do(t, http.MethodDelete, "/v1/products/"+created.ID, "store-2", nil); code != http.StatusForbidden {
		t.Fatalf("foreign delete = %d", code)
	}
	if code, _ := s.do(t, http.MethodDelete, "/v1/products/"+created.ID, "store-1", nil); code != http.StatusOK {
		t.Fatalf("delete = %d", code)
	}
	if code, _ := s.do(t, http.MethodGet, "/v1/products/"+created.ID, "", nil); code != http.StatusNotFound {
		t.Fatalf("get after delete = %d", code)
	}
}

func TestGenerateCombinations(t *testing.T) {
	s := newTestServer(t)

	code, env := s.do(t, http.MethodPost, "/v1/combinations/generate", "", map[string]any{
		"basePrice": 100,
		"skuPrefix": "tshirt",
		"variants": []map[string]any{
			{"templateId": "size", "selectedValues": []string{"S", "L"}},
			{"templateId": "color", "selectedValues": []string{"Red"}},
		},
	})
	if code != http.StatusOK {
		t.Fatalf("generate = %d %+v", code, env.Error)
	}
	var out struct {
		Total        int `json:"total"`
		Combinations []struct {
			SKU string `json:"sku"`
		} `json:"combinations"`
	}
	if err := json.Unmarshal(env.Data, &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Total != 2 || out.Combinations[1].SKU != "TSHIRT-L-RED" {
		t.Fatalf("combinations = %+v", out)
	}
}

func TestCatalogRoutes(t *testing.T) {
	s := newTestServer(t)

	if code, _ := s.do(t, http.MethodGet, "/v1/catalog/taxonomy", "", nil); code != http.StatusOK {
		t.Fatalf("taxonomy = %d", code)
	}
	code, env := s.do(t, http.MethodGet, "/v1/catalog/recommended-templates?category=Electronics&subcategory=Phones&productType=Smartphone", "", nil)
	if code != http.StatusOK {
		t.Fatalf("recommended = %d %+v", code, env.Error)
	}
	if code, _ := s.do(t, http.MethodGet, "/v1/catalog/recommended-templates?category=Electronics", "", nil); code != http.StatusBadRequest {
		t.Fatalf("missing params = %d", code)
	}
	if code, _ := s.do(t, http.MethodGet, "/v1/templates/size/options", "", nil); code != http.StatusOK {
		t.Fatalf("options = %d", code)
	}
	if code, _ := s.do(t, http.MethodGet, "/v1/templates/nope/options", "", nil); code != http.StatusNotFound {
		t.Fatalf("unknown template options = %d", code)
	}

	code, env = s.do(t, http.MethodPost, "/v1/templates", "store-1", map[string]any{
		"id":        "sleeve",
		"name":      "Sleeve",
		"inputType": "select",
		"options":   []map[string]any{{"value": "Short"}, {"value": "Long"}},
	})
	if code != http.StatusCreated {
		t.Fatalf("create template = %d %+v", code, env.Error)
	}
	var tpl struct {
		StoreID *string `json:"storeId"`
	}
	if err := json.Unmarshal(env.Data, &tpl); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if tpl.StoreID == nil || *tpl.StoreID != "store-1" {
		t.Fatalf("template not bound to token store: %+v", tpl)
	}
}

func TestVirtualProductRoutes(t *testing.T) {
	s := newTestServer(t)

	_, env := s.do(t, http.MethodPost, "/v1/products", "store-1", tshirt("TEE", []string{"S"}, []string{"Red"}))
	var original productBody
	if err := json.Unmarshal(env.Data, &original); err != nil {
		t.Fatalf("decode: %v", err)
	}

	code, env := s.do(t, http.MethodPost, "/v1/virtual-products", "reseller", map[string]any{
		"storeId":           "reseller",
		"originalProductId": original.ID,
		"commission":        15,
	})
	if code != http.StatusCreated {
		t.Fatalf("create = %d %+v", code, env.Error)
	}
	var vp struct {
		ID           string `json:"id"`
		SellingPrice string `json:"sellingPrice"`
	}
	if err := json.Unmarshal(env.Data, &vp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if vp.SellingPrice != "115" {
		t.Fatalf("sellingPrice = %q", vp.SellingPrice)
	}

	if code, _ := s.do(t, http.MethodPut, "/v1/virtual-products/"+vp.ID, "store-1", map[string]any{"title": "x"}); code != http.StatusForbidden {
		t.Fatalf("foreign update = %d", code)
	}
	if code, env := s.do(t, http.MethodPut, "/v1/virtual-products/"+vp.ID, "reseller", map[string]any{"commission": 20}); code != http.StatusOK {
		t.Fatalf("update = %d %+v", code, env.Error)
	}
	code, env = s.do(t, http.MethodGet, "/v1/virtual-products?storeId=reseller", "", nil)
	if code != http.StatusOK || env.Meta.Pagination == nil || env.Meta.Pagination.TotalItems != 1 {
		t.Fatalf("list = %d %+v", code, env.Meta)
	}
	if code, _ := s.do(t, http.MethodDelete, "/v1/virtual-products/"+vp.ID, "reseller", nil); code != http.StatusOK {
		t.Fatalf("delete = %d", code)
	}
	if code, _ := s.do(t, http.MethodGet, "/v1/virtual-products/"+vp.ID, "", nil); code != http.StatusNotFound {
		t.Fatalf("get after delete = %d", code)
	}
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	code, env := s.do(t, http.MethodGet, "/v1/health", "", nil)
	if code != http.StatusOK || !env.Success {
		t.Fatalf("health = %d %+v", code, env)
	}
}
