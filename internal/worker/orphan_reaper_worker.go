package worker

import (
    "context"
    "errors"
    "time"

    "github.com/rs/zerolog/log"

    "github.com/GTDGit/gtd_catalog/internal/repository"
    "github.com/GTDGit/gtd_catalog/internal/utils"
)

// OrphanReaperWorker deletes variant, option, combination and combination
// value rows whose product no longer exists. Such rows are left behind when a
// product delete or a rollback is interrupted.
type OrphanReaperWorker struct {
    repos     *repository.Repositories
    interval  time.Duration
    grace     time.Duration
    batchSize int
    now       func() time.Time
}

// NewOrphanReaperWorker constructs an OrphanReaperWorker. Rows younger than
// grace are never reaped.
func NewOrphanReaperWorker(repos *repository.Repositories, interval, grace time.Duration, batchSize int) *OrphanReaperWorker {
    if batchSize <= 0 {
        batchSize = defaultPageSize
    }
    return &OrphanReaperWorker{
        repos:     repos,
        interval:  interval,
        grace:     grace,
        batchSize: batchSize,
        now:       time.Now,
    }
}

// Start begins the periodic reap loop until context is canceled.
func (w *OrphanReaperWorker) Start(ctx context.Context) {
    log.Info().Dur("interval", w.interval).Dur("grace", w.grace).Msg("Starting orphan reaper worker")

    ticker := time.NewTicker(w.interval)
    defer ticker.Stop()

    for {
        select {
        case <-ticker.C:
            w.run(ctx)
        case <-ctx.Done():
            log.Info().Msg("Orphan reaper worker stopped")
            return
        }
    }
}

func (w *OrphanReaperWorker) run(ctx context.Context) {
    reaped, err := w.Reap(ctx)
    if err != nil {
        log.Error().Err(err).Msg("Failed to reap orphaned rows")
        return
    }
    if reaped > 0 {
        log.Info().Int("count", reaped).Msg("Reaped orphaned variant rows")
    }
}

// orphan is a row owned by a product.
type orphan struct {
    id        string
    productID string
}

// Reap deletes orphaned rows and returns how many were removed. Values go
// before combinations so a partial run never strands a value.
func (w *OrphanReaperWorker) Reap(ctx context.Context) (int, error) {
    cutoff := w.now().Add(-w.grace)
    total := 0

    steps := []struct {
        name   string
        scan   func(ctx context.Context, limit, offset int) ([]orphan, int, error)
        delete func(ctx context.Context, id string) error
    }{
        {"combination value", w.scanValues, w.repos.Combinations.DeleteValue},
        {"combination", w.scanCombinations(cutoff), w.repos.Combinations.Delete},
        {"option", w.scanOptions(cutoff), w.repos.Options.Delete},
        {"variant", w.scanVariants(cutoff), w.repos.Variants.Delete},
    }
    for _, step := range steps {
        rows, err := w.collect(ctx, step.scan)
        if err != nil {
            return total, err
        }
        for _, row := range rows {
            if err := step.delete(ctx, row.id); err != nil && !errors.Is(err, utils.ErrNotFound) {
                log.Warn().Err(err).Str("kind", step.name).Str("id", row.id).Msg("Failed to delete orphaned row")
                continue
            }
            total++
        }
    }
    return total, nil
}

// collect pages through a collection and returns the rows whose product is
// missing. Deletion happens after the scan so offsets stay stable.
func (w *OrphanReaperWorker) collect(ctx context.Context, scan func(ctx context.Context, limit, offset int) ([]orphan, int, error)) ([]orphan, error) {
    var orphans []orphan
    for offset := 0; ; offset += w.batchSize {
        if err := ctx.Err(); err != nil {
            return nil, err
        }
        page, total, err := scan(ctx, w.batchSize, offset)
        if err != nil {
            return nil, err
        }

        ids := make([]string, 0, len(page))
        for _, row := range page {
            ids = append(ids, row.productID)
        }
        existing, err := w.repos.Products.ExistingIDs(ctx, ids)
        if err != nil {
            return nil, err
        }
        for _, row := range page {
            if !existing[row.productID] {
                orphans = append(orphans, row)
            }
        }
        if offset+w.batchSize >= total {
            return orphans, nil
        }
    }
}

func (w *OrphanReaperWorker) scanValues(ctx context.Context, limit, offset int) ([]orphan, int, error) {
    values, total, err := w.repos.Combinations.ListValues(ctx, limit, offset)
    if err != nil {
        return nil, 0, err
    }
    out := make([]orphan, 0, len(values))
    for _, v := range values {
        out = append(out, orphan{id: v.ID, productID: v.ProductID})
    }
    return out, total, nil
}

// The scanners below only report rows older than cutoff, so one can scan
// pages of young rows and still return fewer entries than limit.

func (w *OrphanReaperWorker) scanCombinations(cutoff time.Time) func(context.Context, int, int) ([]orphan, int, error) {
    return func(ctx context.Context, limit, offset int) ([]orphan, int, error) {
        combos, total, err := w.repos.Combinations.List(ctx, limit, offset)
        if err != nil {
            return nil, 0, err
        }
        out := make([]orphan, 0, len(combos))
        for _, c := range combos {
            if c.CreatedAt.Before(cutoff) {
                out = append(out, orphan{id: c.ID, productID: c.ProductID})
            }
        }
        return out, total, nil
    }
}

func (w *OrphanReaperWorker) scanOptions(cutoff time.Time) func(context.Context, int, int) ([]orphan, int, error) {
    return func(ctx context.Context, limit, offset int) ([]orphan, int, error) {
        options, total, err := w.repos.Options.ListProductLevel(ctx, limit, offset)
        if err != nil {
            return nil, 0, err
        }
        out := make([]orphan, 0, len(options))
        for _, o := range options {
            if o.CreatedAt.Before(cutoff) {
                out = append(out, orphan{id: o.ID, productID: o.ProductID})
            }
        }
        return out, total, nil
    }
}

func (w *OrphanReaperWorker) scanVariants(cutoff time.Time) func(context.Context, int, int) ([]orphan, int, error) {
    return func(ctx context.Context, limit, offset int) ([]orphan, int, error) {
        variants, total, err := w.repos.Variants.List(ctx, limit, offset)
        if err != nil {
            return nil, 0, err
        }
        out := make([]orphan, 0, len(variants))
        for _, v := range variants {
            if v.CreatedAt.Before(cutoff) {
                out = append(out, orphan{id: v.ID, productID: v.ProductID})
            }
        }
        return out, total, nil
    }
}
