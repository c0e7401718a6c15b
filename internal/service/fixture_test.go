package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/GTDGit/gtd_catalog/internal/cache"
	"github.com/GTDGit/gtd_catalog/internal/combination"
	"github.com/GTDGit/gtd_catalog/internal/docstore"
	"github.com/GTDGit/gtd_catalog/internal/models"
	"github.com/GTDGit/gtd_catalog/internal/repository"
)

var errInjected = errors.New("injected store failure")

// failingStore lets the first `allowed` creates in `collection` through and
// fails every later one.
type failingStore struct {
	docstore.Store
	collection string
	allowed    int

	mu      sync.Mutex
	creates int
}

func (f *failingStore) CreateDocument(ctx context.Context, collection, id string, data map[string]any) (*docstore.Document, error) {
	if collection == f.collection {
		f.mu.Lock()
		f.creates++
		n := f.creates
		f.mu.Unlock()
		if n > f.allowed {
			return nil, errInjected
		}
	}
	return f.Store.CreateDocument(ctx, collection, id, data)
}

// lateStore commits creates in `collection` and then reports a deadline
// error, as a store call that finishes after its caller stopped waiting.
type lateStore struct {
	docstore.Store
	collection string
}

func (l *lateStore) CreateDocument(ctx context.Context, collection, id string, data map[string]any) (*docstore.Document, error) {
	doc, err := l.Store.CreateDocument(ctx, collection, id, data)
	if err == nil && collection == l.collection {
		return nil, context.DeadlineExceeded
	}
	return doc, err
}

type testEnv struct {
	store    *docstore.MemoryStore
	files    *docstore.MemoryFileStorage
	repos    *repository.Repositories
	guard    *cache.MemoryWriteGuard
	products *ProductService
}

func newTestEnv(t *testing.T, wrap func(docstore.Store) docstore.Store) *testEnv {
	t.Helper()
	mem := docstore.NewMemoryStore()
	var store docstore.Store = mem
	if wrap != nil {
		store = wrap(mem)
	}
	env := &testEnv{
		store: mem,
		files: docstore.NewMemoryFileStorage(),
		repos: repository.NewRepositories(store),
		guard: cache.NewMemoryWriteGuard(time.Minute, time.Hour),
	}
	env.products = NewProductService(env.repos, env.files, combination.NewGenerator(0, true), env.guard, ProductServiceConfig{
		OperationTimeout: 5 * time.Second,
		RollbackTimeout:  5 * time.Second,
	})
	seedApparel(t, repository.NewRepositories(mem))
	return env
}

// seedApparel stores Size (M, L +10), Color (White, Black +5) and a numeric
// Screen Size template.
func seedApparel(t *testing.T, repos *repository.Repositories) {
	t.Helper()
	ctx := context.Background()
	templates := []models.VariantTemplate{
		{ID: "size", Name: "Size", InputType: models.InputTypeSelect, IsFilterable: true, FilterOrder: 1},
		{ID: "color", Name: "Color", InputType: models.InputTypeColor, IsFilterable: true, FilterOrder: 1},
		{ID: "screen", Name: "Screen Size", InputType: models.InputTypeRange, IsFilterable: true, FilterGroup: GroupDisplay},
	}
	for i := range templates {
		if err := repos.Templates.Create(ctx, &templates[i]); err != nil {
			t.Fatalf("seed template: %v", err)
		}
	}
	options := []models.VariantOption{
		{TemplateID: "size", Value: "M", Name: "Medium", SortOrder: 0},
		{TemplateID: "size", Value: "L", Name: "Large", AdditionalPrice: decimal.NewFromInt(10), SortOrder: 1},
		{TemplateID: "color", Value: "White", SortOrder: 0},
		{TemplateID: "color", Value: "Black", AdditionalPrice: decimal.NewFromInt(5), SortOrder: 1},
	}
	for i := range options {
		if err := repos.Options.Create(ctx, &options[i]); err != nil {
			t.Fatalf("seed option: %v", err)
		}
	}
}

func teeRequest(storeID, sku string) *models.CreateProductRequest {
	return &models.CreateProductRequest{
		StoreID:     storeID,
		Title:       "Basic Tee",
		SKU:         sku,
		BasePrice:   decimal.NewFromInt(100),
		Category:    "Fashion",
		HasVariants: true,
		Images:      []models.ImageUpload{{Name: "front.jpg", ContentType: "image/jpeg", Data: []byte("jpeg")}},
		Variants: []models.VariantInput{
			{TemplateID: "size", SelectedValues: []string{"M", "L"}},
			{TemplateID: "color", SelectedValues: []string{"White", "Black"}},
		},
	}
}

func productRequest(storeID, title string, variants ...models.VariantInput) *models.CreateProductRequest {
	return &models.CreateProductRequest{
		StoreID:     storeID,
		Title:       title,
		BasePrice:   decimal.NewFromInt(50),
		HasVariants: len(variants) > 0,
		Variants:    variants,
	}
}

func (e *testEnv) mustCreate(t *testing.T, req *models.CreateProductRequest) *models.ProductDetail {
	t.Helper()
	detail, err := e.products.CreateProduct(context.Background(), req)
	if err != nil {
		t.Fatalf("create %s: %v", req.Title, err)
	}
	return detail
}
