package service

import (
	"context"
	"errors"
	"sort"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/GTDGit/gtd_catalog/internal/docstore"
	"github.com/GTDGit/gtd_catalog/internal/models"
	"github.com/GTDGit/gtd_catalog/internal/repository"
	"github.com/GTDGit/gtd_catalog/internal/utils"
)

type recordingUsage struct {
	deltas map[string]int
}

func (r *recordingUsage) Add(_ context.Context, templateID string, values []string, delta int) error {
	if r.deltas == nil {
		r.deltas = make(map[string]int)
	}
	for _, v := range values {
		r.deltas[templateID+"/"+v] += delta
	}
	return nil
}

func TestCreateProductWritesEverything(t *testing.T) {
	env := newTestEnv(t, nil)
	usage := &recordingUsage{}
	env.products.SetUsageRecorder(usage)

	detail := env.mustCreate(t, teeRequest("store-1", "TEE"))

	if len(detail.Variants) != 2 || len(detail.Options) != 4 || len(detail.Combinations) != 4 {
		t.Fatalf("got %d variants, %d options, %d combinations", len(detail.Variants), len(detail.Options), len(detail.Combinations))
	}
	if len(detail.VariantIDs) != 2 || len(detail.CombinationIDs) != 4 {
		t.Fatalf("product refs = %v / %v", detail.VariantIDs, detail.CombinationIDs)
	}
	if len(detail.Images) != 1 {
		t.Fatalf("images = %v", detail.Images)
	}

	var prices []string
	for _, c := range detail.Combinations {
		prices = append(prices, c.Price.String())
		if c.ProductID != detail.ID {
			t.Errorf("combination %s has productId %q", c.ID, c.ProductID)
		}
	}
	sort.Strings(prices)
	want := []string{"100", "105", "110", "115"}
	for i := range want {
		if prices[i] != want[i] {
			t.Fatalf("prices = %v, want %v", prices, want)
		}
	}

	counts := map[string]int{
		repository.CollectionProducts:            1,
		repository.CollectionProductVariants:     2,
		repository.CollectionVariantOptions:      8,
		repository.CollectionVariantCombinations: 4,
		repository.CollectionCombinationValues:   8,
	}
	for collection, n := range counts {
		if got := env.store.Count(collection); got != n {
			t.Errorf("%s holds %d documents, want %d", collection, got, n)
		}
	}
	if env.files.Len() != 1 {
		t.Errorf("files = %d, want 1", env.files.Len())
	}
	if usage.deltas["size/M"] != 1 || usage.deltas["color/Black"] != 1 {
		t.Errorf("usage deltas = %v", usage.deltas)
	}

	for _, v := range detail.Variants {
		if v.TemplateID == "size" && (len(v.Tokens) != 2 || v.Tokens[0] != "size-m") {
			t.Errorf("size tokens = %v", v.Tokens)
		}
	}
	for _, o := range detail.Options {
		if o.ProductID != detail.ID || o.VariantID == "" {
			t.Errorf("option %s not linked: product %q variant %q", o.Value, o.ProductID, o.VariantID)
		}
	}
}

func TestCreateProductRejectsPriceBelowBase(t *testing.T) {
	env := newTestEnv(t, nil)
	req := teeRequest("store-1", "")
	req.Variants = req.Variants[:1]
	req.Combinations = []models.CombinationInput{
		{VariantValues: map[string]string{"size": "M"}, Price: decimal.NewFromInt(90)},
		{VariantValues: map[string]string{"size": "L"}, Price: decimal.NewFromInt(120)},
	}

	_, err := env.products.CreateProduct(context.Background(), req)
	if !errors.Is(err, utils.ErrValidation) {
		t.Fatalf("err = %v, want validation error", err)
	}
	if code := utils.ErrorCode(err, ""); code != "PRICE_BELOW_BASE" {
		t.Fatalf("code = %q", code)
	}
	if n := env.store.Count(repository.CollectionProducts); n != 0 {
		t.Fatalf("%d products written", n)
	}
	if env.files.Len() != 0 {
		t.Fatalf("%d files uploaded", env.files.Len())
	}
}

func TestCreateProductRollsBackOnFailure(t *testing.T) {
	for _, tc := range []struct {
		name       string
		collection string
		allowed    int
	}{
		{"third combination", repository.CollectionVariantCombinations, 2},
		{"first combination value", repository.CollectionCombinationValues, 0},
		{"second variant", repository.CollectionProductVariants, 1},
		{"product option", repository.CollectionVariantOptions, 3},
	} {
		t.Run(tc.name, func(t *testing.T) {
			env := newTestEnv(t, func(s docstore.Store) docstore.Store {
				return &failingStore{Store: s, collection: tc.collection, allowed: tc.allowed}
			})

			_, err := env.products.CreateProduct(context.Background(), teeRequest("store-1", "TEE"))
			if !errors.Is(err, utils.ErrPartialWrite) {
				t.Fatalf("err = %v, want partial write", err)
			}
			if !errors.Is(err, errInjected) {
				t.Fatalf("cause lost: %v", err)
			}

			for _, collection := range []string{
				repository.CollectionProducts,
				repository.CollectionProductVariants,
				repository.CollectionVariantCombinations,
				repository.CollectionCombinationValues,
			} {
				if n := env.store.Count(collection); n != 0 {
					t.Errorf("%s left with %d documents", collection, n)
				}
			}
			// Only the four template-level options remain.
			if n := env.store.Count(repository.CollectionVariantOptions); n != 4 {
				t.Errorf("options = %d, want 4", n)
			}
			if env.files.Len() != 0 {
				t.Errorf("%d files left behind", env.files.Len())
			}
		})
	}
}

func TestCreateProductRollsBackCommittedTimeouts(t *testing.T) {
	for _, collection := range []string{
		repository.CollectionProducts,
		repository.CollectionProductVariants,
		repository.CollectionVariantCombinations,
		repository.CollectionCombinationValues,
	} {
		t.Run(collection, func(t *testing.T) {
			env := newTestEnv(t, func(s docstore.Store) docstore.Store {
				return &lateStore{Store: s, collection: collection}
			})

			_, err := env.products.CreateProduct(context.Background(), teeRequest("store-1", "TEE"))
			if !errors.Is(err, utils.ErrPartialWrite) || !errors.Is(err, context.DeadlineExceeded) {
				t.Fatalf("err = %v, want partial write caused by deadline", err)
			}
			for _, c := range []string{
				repository.CollectionProducts,
				repository.CollectionProductVariants,
				repository.CollectionVariantCombinations,
				repository.CollectionCombinationValues,
			} {
				if n := env.store.Count(c); n != 0 {
					t.Errorf("%s left with %d documents", c, n)
				}
			}
			if n := env.store.Count(repository.CollectionVariantOptions); n != 4 {
				t.Errorf("options = %d, want 4", n)
			}
		})
	}
}

func TestCreateProductValidation(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	cases := map[string]func(*models.CreateProductRequest){
		"TITLE_REQUIRED":         func(r *models.CreateProductRequest) { r.Title = " " },
		"STORE_REQUIRED":         func(r *models.CreateProductRequest) { r.StoreID = "" },
		"INVALID_BASE_PRICE":     func(r *models.CreateProductRequest) { r.BasePrice = decimal.NewFromInt(-1) },
		"VARIANTS_REQUIRED":      func(r *models.CreateProductRequest) { r.Variants = nil },
		"VARIANTS_NOT_ENABLED":   func(r *models.CreateProductRequest) { r.HasVariants = false },
		"UNKNOWN_TEMPLATE":       func(r *models.CreateProductRequest) { r.Variants[0].TemplateID = "missing" },
		"DUPLICATE_TEMPLATE":     func(r *models.CreateProductRequest) { r.Variants[1].TemplateID = "size" },
		"INVALID_NUMERIC_VALUE":  func(r *models.CreateProductRequest) { r.Variants[0] = models.VariantInput{TemplateID: "screen", SelectedValues: []string{"big"}} },
		"REQUIRED_VARIANT_EMPTY": func(r *models.CreateProductRequest) { r.Variants[0].SelectedValues = nil; r.Variants[0].IsRequired = true },
		"TOKEN_COLLISION":        func(r *models.CreateProductRequest) { r.Variants[1].SelectedValues = []string{"Red", "red!"} },
		"INVALID_VALUE":          func(r *models.CreateProductRequest) { r.Variants[1].SelectedValues = []string{"White", "!!"} },
		"INVALID_COMBINATION": func(r *models.CreateProductRequest) {
			r.Combinations = []models.CombinationInput{{VariantValues: map[string]string{"size": "XL", "color": "White"}}}
		},
	}
	for code, mutate := range cases {
		t.Run(code, func(t *testing.T) {
			req := teeRequest("store-1", "")
			mutate(req)
			_, err := env.products.CreateProduct(ctx, req)
			if !errors.Is(err, utils.ErrValidation) || utils.ErrorCode(err, "") != code {
				t.Fatalf("err = %v, want %s", err, code)
			}
		})
	}
	if n := env.store.Count(repository.CollectionProducts); n != 0 {
		t.Fatalf("%d products written by rejected requests", n)
	}
}

func TestCreateProductDuplicateSKU(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	env.mustCreate(t, teeRequest("store-1", "TEE"))

	_, err := env.products.CreateProduct(ctx, teeRequest("store-1", "TEE"))
	if !errors.Is(err, utils.ErrConflict) {
		t.Fatalf("err = %v, want conflict", err)
	}
	if _, err := env.products.CreateProduct(ctx, teeRequest("store-2", "TEE")); err != nil {
		t.Fatalf("same sku in another store: %v", err)
	}
}

func TestCreateProductReplaysRequestID(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	req := teeRequest("store-1", "")
	req.RequestID = "req-1"
	first := env.mustCreate(t, req)

	again, err := env.products.CreateProduct(ctx, req)
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if again.ID != first.ID {
		t.Fatalf("replay created %s, want %s", again.ID, first.ID)
	}
	if n := env.store.Count(repository.CollectionProducts); n != 1 {
		t.Fatalf("products = %d, want 1", n)
	}
}

func TestCreateProductFailedRequestCanRetry(t *testing.T) {
	fs := &failingStore{collection: repository.CollectionVariantCombinations, allowed: 0}
	env := newTestEnv(t, func(s docstore.Store) docstore.Store {
		fs.Store = s
		return fs
	})
	ctx := context.Background()

	req := teeRequest("store-1", "TEE")
	req.RequestID = "req-retry"
	if _, err := env.products.CreateProduct(ctx, req); !errors.Is(err, utils.ErrPartialWrite) {
		t.Fatalf("err = %v, want partial write", err)
	}

	fs.allowed = 1 << 20
	if _, err := env.products.CreateProduct(ctx, req); err != nil {
		t.Fatalf("retry after failure: %v", err)
	}
}

func TestCreateProductSuppliedCombinations(t *testing.T) {
	env := newTestEnv(t, nil)
	req := teeRequest("store-1", "TEE")
	req.Combinations = []models.CombinationInput{
		{VariantValues: map[string]string{"size": "M", "color": "White"}, SKU: "TEE-1", StockQuantity: 3},
		{VariantValues: map[string]string{"size": "L", "color": "Black"}, Price: decimal.NewFromInt(130)},
	}

	detail := env.mustCreate(t, req)
	if len(detail.Combinations) != 2 {
		t.Fatalf("combinations = %d, want 2", len(detail.Combinations))
	}
	byName := map[string]models.VariantCombination{}
	for _, c := range detail.Combinations {
		byName[c.DisplayName] = c
	}
	if c := byName["Medium - White"]; !c.Price.Equal(decimal.NewFromInt(100)) || c.SKU != "TEE-1" || c.StockQuantity != 3 {
		t.Fatalf("Medium - White = %+v", c)
	}
	if c := byName["Large - Black"]; !c.AdditionalPrice.Equal(decimal.NewFromInt(30)) || c.SKU != "TEE-L-BLA" {
		t.Fatalf("Large - Black = %+v", c)
	}
}

func TestCreateProductWithoutVariants(t *testing.T) {
	env := newTestEnv(t, nil)
	req := &models.CreateProductRequest{StoreID: "store-1", Title: "Mug", BasePrice: decimal.NewFromInt(20), StockQuantity: 7}

	detail := env.mustCreate(t, req)
	if detail.HasVariants || len(detail.Combinations) != 0 || detail.StockQuantity != 7 {
		t.Fatalf("detail = %+v", detail)
	}
	if detail.Status != models.ProductStatusActive {
		t.Fatalf("status = %q", detail.Status)
	}
}

func TestRangeVariantRecordsBounds(t *testing.T) {
	env := newTestEnv(t, nil)
	detail := env.mustCreate(t, productRequest("store-1", "Phone",
		models.VariantInput{TemplateID: "screen", SelectedValues: []string{"6.1", "6.7"}}))

	v := detail.Variants[0]
	if v.MinValue == nil || v.MaxValue == nil || *v.MinValue != 6.1 || *v.MaxValue != 6.7 {
		t.Fatalf("bounds = %v..%v", v.MinValue, v.MaxValue)
	}
}

func TestPreviewCombinationsWritesNothing(t *testing.T) {
	env := newTestEnv(t, nil)
	combos, err := env.products.PreviewCombinations(context.Background(), &models.GenerateCombinationsRequest{
		BasePrice: decimal.NewFromInt(100),
		SKUPrefix: "tee",
		Variants:  teeRequest("", "").Variants,
	})
	if err != nil {
		t.Fatalf("preview: %v", err)
	}
	if len(combos) != 4 {
		t.Fatalf("combinations = %d, want 4", len(combos))
	}
	if combos[0].SKU != "TEE-M-WHI" {
		t.Fatalf("first sku = %q", combos[0].SKU)
	}
	if n := env.store.Count(repository.CollectionVariantCombinations); n != 0 {
		t.Fatalf("preview wrote %d combinations", n)
	}
}

func TestDeleteProductCascades(t *testing.T) {
	env := newTestEnv(t, nil)
	usage := &recordingUsage{}
	env.products.SetUsageRecorder(usage)
	ctx := context.Background()

	detail := env.mustCreate(t, teeRequest("store-1", "TEE"))
	if err := env.products.DeleteProduct(ctx, detail.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	for _, collection := range []string{
		repository.CollectionProducts,
		repository.CollectionProductVariants,
		repository.CollectionVariantCombinations,
		repository.CollectionCombinationValues,
	} {
		if n := env.store.Count(collection); n != 0 {
			t.Errorf("%s left with %d documents", collection, n)
		}
	}
	if n := env.store.Count(repository.CollectionVariantOptions); n != 4 {
		t.Errorf("options = %d, want the 4 template-level ones", n)
	}
	if env.files.Len() != 0 {
		t.Errorf("files = %d", env.files.Len())
	}
	if usage.deltas["size/M"] != 0 {
		t.Errorf("usage not decremented: %v", usage.deltas)
	}

	if err := env.products.DeleteProduct(ctx, detail.ID); !errors.Is(err, utils.ErrNotFound) {
		t.Fatalf("second delete err = %v, want not found", err)
	}
}
