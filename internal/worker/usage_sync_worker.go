package worker

import (
    "context"
    "time"

    "github.com/rs/zerolog/log"

    "github.com/GTDGit/gtd_catalog/internal/models"
)

const defaultPageSize = 500

// VariantLister pages through every stored product variant.
type VariantLister interface {
    List(ctx context.Context, limit, offset int) ([]models.ProductVariant, int, error)
}

// UsageReplacer overwrites the usage counts of one template.
type UsageReplacer interface {
    Replace(ctx context.Context, templateID string, counts map[string]int) error
}

// UsageSyncWorker periodically rebuilds the option usage counters from the
// stored product variants, correcting drift left by failed best-effort updates.
type UsageSyncWorker struct {
    variants VariantLister
    counter  UsageReplacer
    interval time.Duration
    pageSize int

    // templates synced by the previous run; emptied when they lose all variants.
    synced map[string]bool
}

// NewUsageSyncWorker constructs a UsageSyncWorker.
func NewUsageSyncWorker(variants VariantLister, counter UsageReplacer, interval time.Duration, pageSize int) *UsageSyncWorker {
    if pageSize <= 0 {
        pageSize = defaultPageSize
    }
    return &UsageSyncWorker{
        variants: variants,
        counter:  counter,
        interval: interval,
        pageSize: pageSize,
        synced:   map[string]bool{},
    }
}

// Start begins the periodic sync loop and listens for context cancellation.
func (w *UsageSyncWorker) Start(ctx context.Context) {
    log.Info().Dur("interval", w.interval).Msg("Starting usage sync worker")

    // Run immediately on start
    w.run(ctx)

    ticker := time.NewTicker(w.interval)
    defer ticker.Stop()

    for {
        select {
        case <-ticker.C:
            w.run(ctx)
        case <-ctx.Done():
            log.Info().Msg("Usage sync worker stopped")
            return
        }
    }
}

func (w *UsageSyncWorker) run(ctx context.Context) {
    start := time.Now()
    templates, err := w.Sync(ctx)
    if err != nil {
        log.Error().Err(err).Msg("Failed to sync usage counters")
        return
    }
    log.Info().Int("templates", templates).Dur("duration", time.Since(start)).Msg("Usage counter sync completed")
}

// Sync recounts every template's option usage and returns how many templates
// were written.
func (w *UsageSyncWorker) Sync(ctx context.Context) (int, error) {
    counts, err := w.count(ctx)
    if err != nil {
        return 0, err
    }

    for templateID := range w.synced {
        if _, ok := counts[templateID]; !ok {
            counts[templateID] = map[string]int{}
        }
    }

    written := 0
    next := make(map[string]bool, len(counts))
    for templateID, c := range counts {
        if err := w.counter.Replace(ctx, templateID, c); err != nil {
            log.Warn().Err(err).Str("template_id", templateID).Msg("Failed to replace usage counter")
            next[templateID] = true
            continue
        }
        written++
        if len(c) > 0 {
            next[templateID] = true
        }
    }
    w.synced = next
    return written, nil
}

func (w *UsageSyncWorker) count(ctx context.Context) (map[string]map[string]int, error) {
    counts := map[string]map[string]int{}
    for offset := 0; ; offset += w.pageSize {
        if err := ctx.Err(); err != nil {
            return nil, err
        }
        page, total, err := w.variants.List(ctx, w.pageSize, offset)
        if err != nil {
            return nil, err
        }
        for _, v := range page {
            c := counts[v.TemplateID]
            if c == nil {
                c = map[string]int{}
                counts[v.TemplateID] = c
            }
            for _, value := range v.Values {
                c[value]++
            }
        }
        if len(page) < w.pageSize || offset+len(page) >= total {
            return counts, nil
        }
    }
}
