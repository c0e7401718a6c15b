package service

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/GTDGit/gtd_catalog/internal/catalog"
	"github.com/GTDGit/gtd_catalog/internal/docstore"
	"github.com/GTDGit/gtd_catalog/internal/models"
	"github.com/GTDGit/gtd_catalog/internal/repository"
	"github.com/GTDGit/gtd_catalog/internal/utils"
)

func TestCreateTemplateWithOptions(t *testing.T) {
	env := newTestEnv(t, nil)
	svc := NewTemplateService(env.repos)
	ctx := context.Background()

	created, err := svc.CreateTemplate(ctx, &models.CreateTemplateRequest{
		ID:           "sleeve",
		Name:         "Sleeve Length",
		InputType:    models.InputTypeSelect,
		IsFilterable: true,
		StoreID:      "store-1",
		Options: []models.OptionInput{
			{Value: "Short"},
			{Value: "Long", AdditionalPrice: decimal.NewFromInt(8)},
		},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.StoreID == nil || *created.StoreID != "store-1" {
		t.Fatalf("storeId = %v", created.StoreID)
	}
	if len(created.Options) != 2 || created.Options[1].ID != "sleeve-long" {
		t.Fatalf("options = %+v", created.Options)
	}

	opts, err := svc.ListOptions(ctx, "sleeve")
	if err != nil || len(opts) != 2 {
		t.Fatalf("list options = %v, %v", opts, err)
	}

	global, err := svc.ListTemplates(ctx, models.TemplateQuery{Scope: models.GlobalScope()})
	if err != nil {
		t.Fatalf("list global: %v", err)
	}
	for _, tpl := range global {
		if tpl.ID == "sleeve" {
			t.Fatalf("store template listed in global scope")
		}
	}
	scoped, err := svc.ListTemplates(ctx, models.TemplateQuery{Scope: models.StoreScope("store-1")})
	if err != nil {
		t.Fatalf("list scoped: %v", err)
	}
	if len(scoped) != len(global)+1 {
		t.Fatalf("scoped = %d templates, global = %d", len(scoped), len(global))
	}
}

func TestCreateTemplateValidation(t *testing.T) {
	env := newTestEnv(t, nil)
	svc := NewTemplateService(env.repos)
	ctx := context.Background()

	for code, req := range map[string]*models.CreateTemplateRequest{
		"NAME_REQUIRED":      {InputType: models.InputTypeSelect, Options: []models.OptionInput{{Value: "a"}}},
		"INVALID_INPUT_TYPE": {Name: "X", InputType: "slider"},
		"OPTIONS_REQUIRED":   {Name: "X", InputType: models.InputTypeSelect},
		"DUPLICATE_OPTION":   {Name: "X", InputType: models.InputTypeSelect, Options: []models.OptionInput{{Value: "Wi-Fi"}, {Value: "wi fi"}}},
	} {
		if _, err := svc.CreateTemplate(ctx, req); utils.ErrorCode(err, "") != code {
			t.Errorf("%s: err = %v", code, err)
		}
	}
}

func TestCreateTemplateRollsBackOptions(t *testing.T) {
	env := newTestEnv(t, func(s docstore.Store) docstore.Store {
		return &failingStore{Store: s, collection: repository.CollectionVariantOptions, allowed: 1}
	})
	svc := NewTemplateService(env.repos)

	_, err := svc.CreateTemplate(context.Background(), &models.CreateTemplateRequest{
		ID:        "finish",
		Name:      "Finish",
		InputType: models.InputTypeSelect,
		Options:   []models.OptionInput{{Value: "Matte"}, {Value: "Gloss"}},
	})
	if !errors.Is(err, utils.ErrPartialWrite) {
		t.Fatalf("err = %v, want partial write", err)
	}
	if _, err := env.repos.Templates.GetByID(context.Background(), "finish"); !errors.Is(err, utils.ErrNotFound) {
		t.Fatalf("template survived rollback: %v", err)
	}
	if n := env.store.Count(repository.CollectionVariantOptions); n != 4 {
		t.Fatalf("options = %d, want the 4 seeded ones", n)
	}
}

func TestSeedTemplatesIsIdempotent(t *testing.T) {
	env := newTestEnv(t, nil)
	svc := NewTemplateService(env.repos)
	ctx := context.Background()

	created, err := svc.SeedTemplates(ctx)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	// "size" and "color" already exist in the fixture.
	if want := len(catalog.Seeds()) - 2; created != want {
		t.Fatalf("created = %d, want %d", created, want)
	}
	again, err := svc.SeedTemplates(ctx)
	if err != nil || again != 0 {
		t.Fatalf("second seed = %d, %v", again, err)
	}

	recs, err := svc.RecommendedTemplates(ctx, "electronics", "phones", "smartphone")
	if err != nil {
		t.Fatalf("recommended: %v", err)
	}
	if len(recs) == 0 || recs[0].ID != catalog.TemplateStorage {
		t.Fatalf("recommended = %+v", recs)
	}
	if _, err := svc.RecommendedTemplates(ctx, "Fashion", "Clothing", "Kimono"); !errors.Is(err, utils.ErrNotFound) {
		t.Fatalf("unknown product type: %v", err)
	}
}
