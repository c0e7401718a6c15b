package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/GTDGit/gtd_catalog/internal/combination"
	"github.com/GTDGit/gtd_catalog/internal/docstore"
	"github.com/GTDGit/gtd_catalog/internal/models"
	"github.com/GTDGit/gtd_catalog/internal/repository"
	"github.com/GTDGit/gtd_catalog/internal/utils"
)

// fanOutLimit bounds concurrent store calls within one operation.
const fanOutLimit = 16

// DefaultImageBucket holds product and combination images.
const DefaultImageBucket = "product-images"

// ProductServiceConfig tunes the product write pipeline.
type ProductServiceConfig struct {
	OperationTimeout time.Duration
	RollbackTimeout  time.Duration
	ImageBucket      string
}

// ProductService writes, reads and deletes original products together with
// their variants, options, combinations and combination values.
type ProductService struct {
	repos     *repository.Repositories
	files     docstore.FileStorage
	generator *combination.Generator
	guard     WriteGuard
	usage     UsageRecorder
	cache     FilterIndexCache
	cfg       ProductServiceConfig
}

// NewProductService constructs a ProductService.
func NewProductService(repos *repository.Repositories, files docstore.FileStorage, generator *combination.Generator, guard WriteGuard, cfg ProductServiceConfig) *ProductService {
	if cfg.ImageBucket == "" {
		cfg.ImageBucket = DefaultImageBucket
	}
	if cfg.RollbackTimeout <= 0 {
		cfg.RollbackTimeout = 30 * time.Second
	}
	return &ProductService{
		repos:     repos,
		files:     files,
		generator: generator,
		guard:     guard,
		cfg:       cfg,
	}
}

// SetUsageRecorder makes successful writes and deletes update usage counts.
func (s *ProductService) SetUsageRecorder(u UsageRecorder) { s.usage = u }

// SetFilterCache makes writes invalidate cached filter indexes.
func (s *ProductService) SetFilterCache(c FilterIndexCache) { s.cache = c }

type variantPlan struct {
	variant models.ProductVariant
	options []models.VariantOption
}

type combinationPlan struct {
	combination models.VariantCombination
	images      []models.ImageUpload
	values      []models.CombinationValue
}

// writePlan is everything a create request writes, resolved before the first
// side effect.
type writePlan struct {
	product      models.OriginalProduct
	images       []models.ImageUpload
	variants     []variantPlan
	combinations []combinationPlan
}

// CreateProduct validates req, generates the missing combinations and writes
// the product with everything it owns. A failure after the first write undoes
// every completed write and returns a PartialWriteError.
func (s *ProductService) CreateProduct(ctx context.Context, req *models.CreateProductRequest) (*models.ProductDetail, error) {
	ctx, cancel := s.withDeadline(ctx)
	defer cancel()

	plan, err := s.prepare(ctx, req)
	if err != nil {
		return nil, err
	}

	if req.RequestID != "" {
		existingID, err := s.guard.Begin(ctx, req.RequestID)
		if err != nil {
			return nil, err
		}
		if existingID != "" {
			log.Info().Str("request_id", req.RequestID).Str("product_id", existingID).Msg("Replaying completed product request")
			return s.GetProduct(ctx, existingID)
		}
	}

	detail, err := s.createGuarded(ctx, plan)

	if req.RequestID != "" {
		bg := context.WithoutCancel(ctx)
		if err != nil {
			if abortErr := s.guard.Abort(bg, req.RequestID); abortErr != nil {
				log.Warn().Err(abortErr).Str("request_id", req.RequestID).Msg("Failed to release request id")
			}
		} else if completeErr := s.guard.Complete(bg, req.RequestID, detail.ID); completeErr != nil {
			log.Warn().Err(completeErr).Str("request_id", req.RequestID).Msg("Failed to record completed request")
		}
	}
	if err != nil {
		return nil, err
	}

	s.afterWrite(ctx, detail.Variants, 1)
	log.Info().
		Str("product_id", detail.ID).
		Str("store_id", detail.StoreID).
		Int("variants", len(detail.Variants)).
		Int("combinations", len(detail.Combinations)).
		Msg("Product created")
	return detail, nil
}

// PreviewCombinations resolves a variant selection into the combinations
// CreateProduct would generate for it, without writing anything.
func (s *ProductService) PreviewCombinations(ctx context.Context, req *models.GenerateCombinationsRequest) ([]models.VariantCombination, error) {
	if req.BasePrice.IsNegative() {
		return nil, utils.ValidationError("INVALID_BASE_PRICE", "basePrice must not be negative")
	}
	if len(req.Variants) == 0 {
		return nil, utils.ValidationError("VARIANTS_REQUIRED", "at least one variant is required")
	}
	if err := checkDistinctTemplates(req.Variants); err != nil {
		return nil, err
	}
	_, combos, err := s.resolveVariants(ctx, req.BasePrice, strings.ToUpper(req.SKUPrefix), s.autoSKU(req.AutoSKU), req.Variants, nil)
	if err != nil {
		return nil, err
	}
	out := make([]models.VariantCombination, 0, len(combos))
	for _, c := range combos {
		out = append(out, c.combination)
	}
	return out, nil
}

// GetProduct returns a product with the rows it owns.
func (s *ProductService) GetProduct(ctx context.Context, id string) (*models.ProductDetail, error) {
	product, err := s.repos.Products.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	detail := &models.ProductDetail{OriginalProduct: product}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		v, err := s.repos.Variants.ListByProduct(gctx, id)
		detail.Variants = v
		return err
	})
	g.Go(func() error {
		o, err := s.repos.Options.ListByProduct(gctx, id)
		detail.Options = o
		return err
	})
	g.Go(func() error {
		c, err := s.repos.Combinations.ListByProduct(gctx, id)
		detail.Combinations = c
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("load product %s: %w", id, err)
	}
	return detail, nil
}

// DeleteProduct removes a product, the rows it owns and its images.
// Children go first so an interrupted delete leaves orphans for the reaper
// rather than a product with missing rows.
func (s *ProductService) DeleteProduct(ctx context.Context, id string) error {
	ctx, cancel := s.withDeadline(ctx)
	defer cancel()

	detail, err := s.GetProduct(ctx, id)
	if err != nil {
		return err
	}
	values, err := s.repos.Combinations.ListValuesByProduct(ctx, id)
	if err != nil {
		return err
	}

	if err := deleteEach(ctx, values, func(ctx context.Context, v models.CombinationValue) error {
		return s.repos.Combinations.DeleteValue(ctx, v.ID)
	}); err != nil {
		return fmt.Errorf("delete combination values: %w", err)
	}
	if err := deleteEach(ctx, detail.Combinations, func(ctx context.Context, c models.VariantCombination) error {
		if err := s.deleteFiles(ctx, c.Images); err != nil {
			return err
		}
		return s.repos.Combinations.Delete(ctx, c.ID)
	}); err != nil {
		return fmt.Errorf("delete combinations: %w", err)
	}
	if err := deleteEach(ctx, detail.Options, func(ctx context.Context, o models.VariantOption) error {
		return s.repos.Options.Delete(ctx, o.ID)
	}); err != nil {
		return fmt.Errorf("delete options: %w", err)
	}
	if err := deleteEach(ctx, detail.Variants, func(ctx context.Context, v models.ProductVariant) error {
		return s.repos.Variants.Delete(ctx, v.ID)
	}); err != nil {
		return fmt.Errorf("delete variants: %w", err)
	}
	if err := s.deleteFiles(ctx, detail.Images); err != nil {
		return fmt.Errorf("delete product images: %w", err)
	}
	if err := s.repos.Products.Delete(ctx, id); err != nil && !isNotFound(err) {
		return err
	}

	s.afterWrite(ctx, detail.Variants, -1)
	log.Info().Str("product_id", id).Int("combinations", len(detail.Combinations)).Msg("Product deleted")
	return nil
}

func (s *ProductService) withDeadline(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.cfg.OperationTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.cfg.OperationTimeout)
}

func (s *ProductService) autoSKU(override *bool) bool {
	if override != nil {
		return *override
	}
	return s.generator.AutoSKU()
}

// prepare validates req and resolves it into a write plan. It never writes.
func (s *ProductService) prepare(ctx context.Context, req *models.CreateProductRequest) (*writePlan, error) {
	if err := validateProductRequest(req); err != nil {
		return nil, err
	}

	status := req.Status
	if status == "" {
		status = models.ProductStatusActive
	}
	plan := &writePlan{
		product: models.OriginalProduct{
			StoreID:       strings.TrimSpace(req.StoreID),
			CreatedBy:     req.CreatedBy,
			Title:         strings.TrimSpace(req.Title),
			Description:   req.Description,
			SKU:           strings.TrimSpace(req.SKU),
			BasePrice:     req.BasePrice,
			Category:      req.Category,
			Subcategory:   req.Subcategory,
			ProductType:   req.ProductType,
			Categories:    req.Categories,
			HasVariants:   req.HasVariants,
			Location:      req.Location,
			StockQuantity: req.StockQuantity,
			Status:        status,
		},
		images: req.Images,
	}
	if !req.HasVariants {
		return plan, nil
	}

	prefix := plan.product.SKU
	if prefix == "" {
		prefix = strings.ToUpper(combination.Slug(plan.product.Title))
	}
	variants, combos, err := s.resolveVariants(ctx, req.BasePrice, prefix, s.autoSKU(req.AutoSKU), req.Variants, req.Combinations)
	if err != nil {
		return nil, err
	}
	plan.variants = variants
	plan.combinations = combos
	return plan, nil
}

func validateProductRequest(req *models.CreateProductRequest) error {
	if strings.TrimSpace(req.Title) == "" {
		return utils.ValidationError("TITLE_REQUIRED", "title is required")
	}
	if strings.TrimSpace(req.StoreID) == "" {
		return utils.ValidationError("STORE_REQUIRED", "storeId is required")
	}
	if req.BasePrice.IsNegative() {
		return utils.ValidationError("INVALID_BASE_PRICE", "basePrice must not be negative")
	}
	if req.StockQuantity < 0 {
		return utils.ValidationError("INVALID_STOCK", "stockQuantity must not be negative")
	}
	switch req.Status {
	case "", models.ProductStatusActive, models.ProductStatusDraft, models.ProductStatusArchived:
	default:
		return utils.ValidationError("INVALID_STATUS", "unknown status %q", req.Status)
	}
	for i, img := range req.Images {
		if len(img.Data) == 0 {
			return utils.ValidationError("EMPTY_IMAGE", "image %d has no data", i)
		}
	}
	if !req.HasVariants {
		if len(req.Variants) > 0 || len(req.Combinations) > 0 {
			return utils.ValidationError("VARIANTS_NOT_ENABLED", "variants were sent for a product without hasVariants")
		}
		return nil
	}
	if len(req.Variants) == 0 {
		return utils.ValidationError("VARIANTS_REQUIRED", "hasVariants requires at least one variant")
	}
	return checkDistinctTemplates(req.Variants)
}

func checkDistinctTemplates(variants []models.VariantInput) error {
	seen := make(map[string]bool, len(variants))
	for _, v := range variants {
		if v.TemplateID == "" {
			return utils.ValidationError("TEMPLATE_REQUIRED", "every variant needs a templateId")
		}
		if seen[v.TemplateID] {
			return utils.ValidationError("DUPLICATE_TEMPLATE", "template %s is selected twice", v.TemplateID)
		}
		seen[v.TemplateID] = true
	}
	return nil
}

// resolveVariants builds the variant rows of a selection and its
// combinations, generated unless supplied.
func (s *ProductService) resolveVariants(ctx context.Context, basePrice decimal.Decimal, skuPrefix string, autoSKU bool, inputs []models.VariantInput, supplied []models.CombinationInput) ([]variantPlan, []combinationPlan, error) {
	ids := make([]string, 0, len(inputs))
	for _, v := range inputs {
		ids = append(ids, v.TemplateID)
	}
	templates, err := s.repos.Templates.GetByIDs(ctx, ids)
	if err != nil {
		return nil, nil, err
	}
	templateOptions, err := s.repos.Options.ListTemplateLevel(ctx, ids...)
	if err != nil {
		return nil, nil, err
	}
	byTemplate := make(map[string][]models.VariantOption)
	for _, o := range templateOptions {
		byTemplate[o.TemplateID] = append(byTemplate[o.TemplateID], o)
	}

	variants := make([]variantPlan, 0, len(inputs))
	instances := make([]combination.Instance, 0, len(inputs))
	for _, in := range inputs {
		t, ok := templates[in.TemplateID]
		if !ok {
			return nil, nil, utils.ValidationError("UNKNOWN_TEMPLATE", "variant template %s does not exist", in.TemplateID)
		}
		values := selectedValues(in)
		if err := checkDistinctTokens(t.Name, values); err != nil {
			return nil, nil, err
		}
		required := in.IsRequired || t.IsRequired
		if len(values) == 0 && required {
			return nil, nil, utils.ValidationError("REQUIRED_VARIANT_EMPTY", "required variant %s has no selected values", t.Name)
		}
		options := variantOptions(in, byTemplate[t.ID], values)

		pv := models.ProductVariant{
			TemplateID: t.ID,
			Name:       t.Name,
			InputType:  t.InputType,
			Values:     values,
			Tokens:     combination.Tokens(t.Name, values),
			IsRequired: required,
			SortOrder:  in.SortOrder,
		}
		if t.InputType.IsNumeric() && len(values) > 0 {
			lo, hi, err := numericBounds(t.Name, values)
			if err != nil {
				return nil, nil, err
			}
			pv.MinValue, pv.MaxValue = &lo, &hi
		}
		variants = append(variants, variantPlan{variant: pv, options: options})
		instances = append(instances, combination.Instance{
			TemplateID:     t.ID,
			Template:       t,
			SelectedValues: values,
			Options:        options,
		})
	}

	var combos []combinationPlan
	if len(supplied) == 0 {
		generated, err := s.generator.GenerateWithSKU(instances, basePrice, skuPrefix, autoSKU)
		if err != nil {
			return nil, nil, err
		}
		combos = make([]combinationPlan, 0, len(generated))
		for _, g := range generated {
			combos = append(combos, combinationPlan{
				combination: models.VariantCombination{
					VariantStrings:  g.VariantStrings,
					VariantValues:   g.VariantValues,
					DisplayName:     g.DisplayName,
					SKU:             g.SKU,
					Price:           g.Price,
					AdditionalPrice: g.AdditionalPrice,
					IsActive:        true,
				},
				values: choiceValues(g.Choices),
			})
		}
	} else {
		combos, err = suppliedCombinations(instances, supplied, basePrice, skuPrefix, autoSKU)
		if err != nil {
			return nil, nil, err
		}
	}

	if err := checkCombinations(combos, basePrice); err != nil {
		return nil, nil, err
	}
	return variants, combos, nil
}

// checkDistinctTokens rejects values of one template that share a filter
// token, such as "Red" and "red!", or that have no token text at all.
func checkDistinctTokens(templateName string, values []string) error {
	seen := make(map[string]string, len(values))
	for _, v := range values {
		if combination.Slug(v) == "" {
			return utils.ValidationError("INVALID_VALUE", "value %q of %s has no letters or digits", v, templateName)
		}
		token := combination.Token(templateName, v)
		if prev, ok := seen[token]; ok {
			return utils.ValidationError("TOKEN_COLLISION", "values %q and %q of %s both filter as %s", prev, v, templateName, token)
		}
		seen[token] = v
	}
	return nil
}

// selectedValues returns the trimmed distinct values of in. Option values
// stand in when nothing is selected explicitly.
func selectedValues(in models.VariantInput) []string {
	raw := in.SelectedValues
	if len(raw) == 0 {
		for _, o := range in.Options {
			raw = append(raw, o.Value)
		}
	}
	seen := make(map[string]bool, len(raw))
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		v = strings.TrimSpace(v)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}

// variantOptions returns one option per selected value: the request's own
// option, else the template-level option, else a plain option named by value.
func variantOptions(in models.VariantInput, templateLevel []models.VariantOption, values []string) []models.VariantOption {
	custom := make(map[string]models.OptionInput, len(in.Options))
	for _, o := range in.Options {
		custom[strings.TrimSpace(o.Value)] = o
	}
	shared := make(map[string]models.VariantOption, len(templateLevel))
	for _, o := range templateLevel {
		shared[o.Value] = o
	}

	out := make([]models.VariantOption, 0, len(values))
	for i, v := range values {
		opt := models.VariantOption{TemplateID: in.TemplateID, Value: v, Name: v, SortOrder: i}
		if c, ok := custom[v]; ok {
			opt.Name = c.Name
			opt.ColorCode = c.ColorCode
			opt.AdditionalPrice = c.AdditionalPrice
			opt.IsDefault = c.IsDefault
			opt.SortOrder = c.SortOrder
		} else if t, ok := shared[v]; ok {
			opt.Name = t.Name
			opt.ColorCode = t.ColorCode
			opt.AdditionalPrice = t.AdditionalPrice
			opt.IsDefault = t.IsDefault
			opt.SortOrder = t.SortOrder
		}
		if opt.Name == "" {
			opt.Name = v
		}
		out = append(out, opt)
	}
	return out
}

func numericBounds(templateName string, values []string) (float64, float64, error) {
	var lo, hi float64
	for i, v := range values {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, 0, utils.ValidationError("INVALID_NUMERIC_VALUE", "%s value %q is not a number", templateName, v)
		}
		if i == 0 || f < lo {
			lo = f
		}
		if i == 0 || f > hi {
			hi = f
		}
	}
	return lo, hi, nil
}

func choiceValues(choices []combination.Choice) []models.CombinationValue {
	out := make([]models.CombinationValue, 0, len(choices))
	for _, ch := range choices {
		out = append(out, models.CombinationValue{
			TemplateID: ch.TemplateID,
			Value:      ch.Value,
			Token:      ch.Token,
		})
	}
	return out
}

// suppliedCombinations checks client combinations against the selection.
// Every combination must pick exactly one selected value per variant.
func suppliedCombinations(instances []combination.Instance, supplied []models.CombinationInput, basePrice decimal.Decimal, skuPrefix string, autoSKU bool) ([]combinationPlan, error) {
	options := make(map[string]map[string]models.VariantOption, len(instances))
	active := make([]combination.Instance, 0, len(instances))
	for _, inst := range instances {
		if len(inst.SelectedValues) == 0 {
			continue
		}
		byValue := make(map[string]models.VariantOption, len(inst.Options))
		for _, o := range inst.Options {
			byValue[o.Value] = o
		}
		options[inst.TemplateID] = byValue
		active = append(active, inst)
	}

	out := make([]combinationPlan, 0, len(supplied))
	for i, in := range supplied {
		if len(in.VariantValues) != len(active) {
			return nil, utils.ValidationError("INVALID_COMBINATION",
				"combination %d sets %d variants, product has %d", i, len(in.VariantValues), len(active))
		}
		c := models.VariantCombination{
			VariantValues:   make(map[string]string, len(active)),
			VariantStrings:  make([]string, 0, len(active)),
			SKU:             strings.TrimSpace(in.SKU),
			StockQuantity:   in.StockQuantity,
			IsActive:        in.IsActive == nil || *in.IsActive,
			Weight:          in.Weight,
			Dimensions:      in.Dimensions,
			AdditionalPrice: decimal.Zero,
		}
		var names, values []string
		var cvs []models.CombinationValue
		for _, inst := range active {
			value, ok := in.VariantValues[inst.TemplateID]
			if !ok {
				return nil, utils.ValidationError("INVALID_COMBINATION",
					"combination %d has no value for %s", i, inst.Template.Name)
			}
			value = strings.TrimSpace(value)
			opt, ok := options[inst.TemplateID][value]
			if !ok {
				return nil, utils.ValidationError("INVALID_COMBINATION",
					"combination %d uses %q which is not selected for %s", i, value, inst.Template.Name)
			}
			token := combination.Token(inst.Template.Name, value)
			c.VariantValues[inst.TemplateID] = value
			c.VariantStrings = append(c.VariantStrings, token)
			c.AdditionalPrice = c.AdditionalPrice.Add(opt.AdditionalPrice)
			names = append(names, opt.DisplayName())
			values = append(values, value)
			cvs = append(cvs, models.CombinationValue{TemplateID: inst.TemplateID, Value: value, Token: token})
		}
		c.DisplayName = strings.Join(names, " - ")
		if in.Price.IsZero() {
			c.Price = basePrice.Add(c.AdditionalPrice)
		} else {
			c.Price = in.Price
			c.AdditionalPrice = in.Price.Sub(basePrice)
		}
		if c.SKU == "" && autoSKU {
			c.SKU = combination.SKU(skuPrefix, values)
		}
		for _, img := range in.Images {
			if len(img.Data) == 0 {
				return nil, utils.ValidationError("EMPTY_IMAGE", "combination %d has an image without data", i)
			}
		}
		out = append(out, combinationPlan{combination: c, images: in.Images, values: cvs})
	}
	return out, nil
}

// checkCombinations enforces the price floor and uniqueness of value tuples
// and SKUs.
func checkCombinations(combos []combinationPlan, basePrice decimal.Decimal) error {
	tuples := make(map[string]bool, len(combos))
	skus := make(map[string]bool, len(combos))
	for _, cp := range combos {
		c := cp.combination
		if c.Price.LessThan(basePrice) {
			return utils.ValidationError("PRICE_BELOW_BASE",
				"combination %q price %s is below base price %s", c.DisplayName, c.Price.String(), basePrice.String())
		}
		key := strings.Join(c.VariantStrings, "|")
		if tuples[key] {
			return utils.ValidationError("DUPLICATE_COMBINATION", "combination %q appears twice", c.DisplayName)
		}
		tuples[key] = true
		if c.SKU != "" {
			if skus[c.SKU] {
				return utils.ValidationError("DUPLICATE_COMBINATION_SKU", "sku %s is used by two combinations", c.SKU)
			}
			skus[c.SKU] = true
		}
	}
	return nil
}

// createGuarded runs the write under the store/sku lock.
func (s *ProductService) createGuarded(ctx context.Context, plan *writePlan) (*models.ProductDetail, error) {
	if sku := plan.product.SKU; sku != "" {
		release, err := s.guard.Lock(ctx, plan.product.StoreID+":"+sku)
		if err != nil {
			return nil, err
		}
		defer release()

		exists, err := s.repos.Products.ExistsWithSKU(ctx, plan.product.StoreID, sku)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, utils.ConflictError("DUPLICATE_SKU", "store already has a product with sku %s", sku)
		}
	}

	ledger := NewRollbackLedger()
	detail, err := s.execute(ctx, plan, ledger)
	if err != nil {
		s.rollback(ctx, ledger, err)
		return nil, utils.PartialWriteError("failed to create product", err)
	}
	return detail, nil
}

func (s *ProductService) rollback(ctx context.Context, ledger *RollbackLedger, cause error) {
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.RollbackTimeout)
	defer cancel()

	steps := ledger.Len()
	failures := ledger.Rollback(rctx)
	evt := log.Warn()
	if len(failures) > 0 {
		evt = log.Error()
	}
	evt.Err(cause).Int("steps", steps).Int("failed_steps", len(failures)).Msg("Product write rolled back")
}

// execute performs the writes of plan, recording an undo action for each.
func (s *ProductService) execute(ctx context.Context, plan *writePlan, ledger *RollbackLedger) (*models.ProductDetail, error) {
	product := plan.product
	for _, img := range plan.images {
		id, err := s.upload(ctx, img, ledger)
		if err != nil {
			return nil, err
		}
		product.Images = append(product.Images, id)
	}

	product.ID = reserve(ledger, "product", s.repos.Products.Delete)
	if err := s.repos.Products.Create(ctx, &product); err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}
	productID := product.ID

	detail := &models.ProductDetail{
		Variants:     make([]models.ProductVariant, len(plan.variants)),
		Combinations: make([]models.VariantCombination, len(plan.combinations)),
	}
	optionsByVariant := make([][]models.VariantOption, len(plan.variants))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fanOutLimit)
	for i := range plan.variants {
		i := i
		vp := plan.variants[i]
		g.Go(func() error {
			v, opts, err := s.createVariant(gctx, productID, vp, ledger)
			if err != nil {
				return err
			}
			detail.Variants[i] = v
			optionsByVariant[i] = opts
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	for _, opts := range optionsByVariant {
		detail.Options = append(detail.Options, opts...)
	}

	g, gctx = errgroup.WithContext(ctx)
	g.SetLimit(fanOutLimit)
	for i := range plan.combinations {
		i := i
		cp := plan.combinations[i]
		g.Go(func() error {
			c, err := s.createCombination(gctx, productID, cp, ledger)
			if err != nil {
				return err
			}
			detail.Combinations[i] = c
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if len(detail.Variants) > 0 || len(detail.Combinations) > 0 {
		variantIDs := make([]string, 0, len(detail.Variants))
		for _, v := range detail.Variants {
			variantIDs = append(variantIDs, v.ID)
		}
		combinationIDs := make([]string, 0, len(detail.Combinations))
		for _, c := range detail.Combinations {
			combinationIDs = append(combinationIDs, c.ID)
		}
		updated, err := s.repos.Products.SetVariantRefs(ctx, productID, variantIDs, combinationIDs)
		if err != nil {
			return nil, fmt.Errorf("link product rows: %w", err)
		}
		product = updated
	}
	detail.OriginalProduct = product
	return detail, nil
}

func (s *ProductService) createVariant(ctx context.Context, productID string, vp variantPlan, ledger *RollbackLedger) (models.ProductVariant, []models.VariantOption, error) {
	v := vp.variant
	v.ProductID = productID
	v.ID = reserve(ledger, "variant", s.repos.Variants.Delete)
	if err := s.repos.Variants.Create(ctx, &v); err != nil {
		return v, nil, fmt.Errorf("create variant %s: %w", v.Name, err)
	}
	variantID := v.ID

	options := make([]models.VariantOption, len(vp.options))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fanOutLimit)
	for i := range vp.options {
		i := i
		o := vp.options[i]
		o.ProductID = productID
		o.VariantID = variantID
		o.ID = reserve(ledger, "option", s.repos.Options.Delete)
		g.Go(func() error {
			if err := s.repos.Options.Create(gctx, &o); err != nil {
				return fmt.Errorf("create option %s: %w", o.Value, err)
			}
			options[i] = o
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return v, nil, err
	}
	return v, options, nil
}

func (s *ProductService) createCombination(ctx context.Context, productID string, cp combinationPlan, ledger *RollbackLedger) (models.VariantCombination, error) {
	c := cp.combination
	c.ProductID = productID
	for _, img := range cp.images {
		id, err := s.upload(ctx, img, ledger)
		if err != nil {
			return c, err
		}
		c.Images = append(c.Images, id)
	}

	c.ID = reserve(ledger, "combination", s.repos.Combinations.Delete)
	if err := s.repos.Combinations.Create(ctx, &c); err != nil {
		return c, fmt.Errorf("create combination %s: %w", c.DisplayName, err)
	}
	combinationID := c.ID

	for _, cv := range cp.values {
		cv.CombinationID = combinationID
		cv.ProductID = productID
		cv.ID = reserve(ledger, "combination value", s.repos.Combinations.DeleteValue)
		if err := s.repos.Combinations.CreateValue(ctx, &cv); err != nil {
			return c, fmt.Errorf("create combination value %s: %w", cv.Token, err)
		}
	}
	return c, nil
}

func (s *ProductService) upload(ctx context.Context, img models.ImageUpload, ledger *RollbackLedger) (string, error) {
	bucket := s.cfg.ImageBucket
	id := reserve(ledger, "file "+bucket, func(ctx context.Context, id string) error {
		return s.files.DeleteFile(ctx, bucket, id)
	})
	fileID, err := s.files.CreateFile(ctx, bucket, id, docstore.File{
		Name:        img.Name,
		ContentType: img.ContentType,
		Data:        img.Data,
	})
	if err != nil {
		return "", fmt.Errorf("upload image %s: %w", img.Name, err)
	}
	return fileID, nil
}

func (s *ProductService) deleteFiles(ctx context.Context, ids []string) error {
	for _, id := range ids {
		if err := s.files.DeleteFile(ctx, s.cfg.ImageBucket, id); err != nil && !isNotFound(err) {
			return err
		}
	}
	return nil
}

// afterWrite updates usage counts and drops cached filter indexes. Both are
// best effort; the sync worker repairs drifted counts.
func (s *ProductService) afterWrite(ctx context.Context, variants []models.ProductVariant, delta int) {
	ctx = context.WithoutCancel(ctx)
	if s.usage != nil {
		for _, v := range variants {
			if len(v.Values) == 0 {
				continue
			}
			if err := s.usage.Add(ctx, v.TemplateID, v.Values, delta); err != nil {
				log.Warn().Err(err).Str("template_id", v.TemplateID).Msg("Failed to update usage counts")
			}
		}
	}
	if s.cache != nil {
		if err := s.cache.InvalidateAll(ctx); err != nil {
			log.Warn().Err(err).Msg("Failed to invalidate filter cache")
		}
	}
}

// reserve assigns a fresh id and records its undo before the create is sent,
// so a create that commits after its caller gave up is still reversed. An undo
// that finds nothing to delete succeeds.
func reserve(ledger *RollbackLedger, kind string, del func(context.Context, string) error) string {
	id := uuid.New().String()
	ledger.Record(kind+" "+id, func(ctx context.Context) error {
		if err := del(ctx, id); err != nil && !isNotFound(err) {
			return err
		}
		return nil
	})
	return id
}

func isNotFound(err error) bool {
	return errors.Is(err, utils.ErrNotFound) || errors.Is(err, docstore.ErrNotFound)
}

// deleteEach deletes items concurrently. Rows that are already gone count as deleted.
func deleteEach[T any](ctx context.Context, items []T, del func(context.Context, T) error) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fanOutLimit)
	for _, item := range items {
		item := item
		g.Go(func() error {
			if err := del(gctx, item); err != nil && !isNotFound(err) {
				return err
			}
			return nil
		})
	}
	return g.Wait()
}
