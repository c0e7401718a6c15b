package worker

import (
	"context"
	"testing"
	"time"

	"github.com/GTDGit/gtd_catalog/internal/docstore"
	"github.com/GTDGit/gtd_catalog/internal/models"
	"github.com/GTDGit/gtd_catalog/internal/repository"
)

type recordingReplacer map[string]map[string]int

func (r recordingReplacer) Replace(_ context.Context, templateID string, counts map[string]int) error {
	r[templateID] = counts
	return nil
}

func mustVariant(t *testing.T, repos *repository.Repositories, productID, templateID string, values ...string) models.ProductVariant {
	t.Helper()
	v := models.ProductVariant{ProductID: productID, TemplateID: templateID, Name: templateID, Values: values}
	if err := repos.Variants.Create(context.Background(), &v); err != nil {
		t.Fatalf("create variant: %v", err)
	}
	return v
}

func TestUsageSyncCountsAcrossPages(t *testing.T) {
	repos := repository.NewRepositories(docstore.NewMemoryStore())
	mustVariant(t, repos, "p1", "size", "M", "L")
	mustVariant(t, repos, "p2", "size", "M")
	mustVariant(t, repos, "p3", "color", "White")

	counter := recordingReplacer{}
	w := NewUsageSyncWorker(repos.Variants, counter, time.Hour, 2)

	written, err := w.Sync(context.Background())
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if written != 2 {
		t.Fatalf("written = %d, want 2", written)
	}
	if counter["size"]["M"] != 2 || counter["size"]["L"] != 1 || counter["color"]["White"] != 1 {
		t.Fatalf("counts = %v", counter)
	}
}

func TestUsageSyncClearsVanishedTemplates(t *testing.T) {
	store := docstore.NewMemoryStore()
	repos := repository.NewRepositories(store)
	v := mustVariant(t, repos, "p1", "color", "White")

	counter := recordingReplacer{}
	w := NewUsageSyncWorker(repos.Variants, counter, time.Hour, 0)
	if _, err := w.Sync(context.Background()); err != nil {
		t.Fatalf("sync: %v", err)
	}

	if err := repos.Variants.Delete(context.Background(), v.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := w.Sync(context.Background()); err != nil {
		t.Fatalf("second sync: %v", err)
	}
	if c, ok := counter["color"]; !ok || len(c) != 0 {
		t.Fatalf("color counter = %v, want emptied", c)
	}
}

func TestOrphanReaperDeletesRowsOfMissingProducts(t *testing.T) {
	ctx := context.Background()
	store := docstore.NewMemoryStore()
	repos := repository.NewRepositories(store)

	live := models.OriginalProduct{StoreID: "store-1", Title: "Live", Status: models.ProductStatusActive}
	if err := repos.Products.Create(ctx, &live); err != nil {
		t.Fatalf("create product: %v", err)
	}
	for _, productID := range []string{live.ID, "gone"} {
		mustVariant(t, repos, productID, "size", "M")
		opt := models.VariantOption{TemplateID: "size", ProductID: productID, Value: "M"}
		if err := repos.Options.Create(ctx, &opt); err != nil {
			t.Fatalf("create option: %v", err)
		}
		combo := models.VariantCombination{ProductID: productID, DisplayName: "M"}
		if err := repos.Combinations.Create(ctx, &combo); err != nil {
			t.Fatalf("create combination: %v", err)
		}
		value := models.CombinationValue{CombinationID: combo.ID, ProductID: productID}
		if err := repos.Combinations.CreateValue(ctx, &value); err != nil {
			t.Fatalf("create value: %v", err)
		}
	}
	templateOption := models.VariantOption{TemplateID: "size", Value: "L"}
	if err := repos.Options.Create(ctx, &templateOption); err != nil {
		t.Fatalf("create template option: %v", err)
	}

	w := NewOrphanReaperWorker(repos, time.Hour, 10*time.Minute, 1)

	// Everything is younger than the grace period; only values, which carry
	// no timestamp, are reaped.
	reaped, err := w.Reap(ctx)
	if err != nil {
		t.Fatalf("reap: %v", err)
	}
	if reaped != 1 {
		t.Fatalf("reaped %d young rows, want 1", reaped)
	}

	w.now = func() time.Time { return time.Now().Add(time.Hour) }
	reaped, err = w.Reap(ctx)
	if err != nil {
		t.Fatalf("reap: %v", err)
	}
	if reaped != 3 {
		t.Fatalf("reaped = %d, want 3", reaped)
	}

	for collection, want := range map[string]int{
		repository.CollectionProductVariants:     1,
		repository.CollectionVariantOptions:      2,
		repository.CollectionVariantCombinations: 1,
		repository.CollectionCombinationValues:   1,
		repository.CollectionProducts:            1,
	} {
		if n := store.Count(collection); n != want {
			t.Errorf("%s = %d, want %d", collection, n, want)
		}
	}
}
