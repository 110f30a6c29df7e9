package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"mercaplaza/internal/caching"
	"mercaplaza/internal/common"
	"mercaplaza/internal/models"
	"mercaplaza/internal/pricing"
	"mercaplaza/internal/repositories"

	"github.com/google/uuid"
)

const productCacheTTL = 5 * time.Minute

// ProductServiceInterface is the thin catalog surface this engine owns:
// cached reads for checkout and the pricing recompute that must run whenever
// a product's price or VAT category changes. Full catalog CRUD lives in the
// catalog subsystem.
type ProductServiceInterface interface {
	GetByID(ctx context.Context, productID uuid.UUID) (*models.Product, error)
	Create(ctx context.Context, product *models.Product) error
	Update(ctx context.Context, product *models.Product) error
}

type productService struct {
	productRepo repositories.ProductRepository
	cacheSvc    caching.CacheService
}

func NewProductService(productRepo repositories.ProductRepository, cacheSvc caching.CacheService) ProductServiceInterface {
	return &productService{productRepo: productRepo, cacheSvc: cacheSvc}
}

func (s *productService) GetByID(ctx context.Context, productID uuid.UUID) (*models.Product, error) {
	if s.cacheSvc != nil {
		if cached, err := s.cacheSvc.GetProduct(ctx, productID); err == nil && cached != nil {
			return cached, nil
		}
	}
	product, err := s.productRepo.GetByID(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("load product %s: %w", productID, err)
	}
	if product == nil {
		return nil, common.NewNotFoundError("product")
	}
	if s.cacheSvc != nil {
		if err := s.cacheSvc.SetProduct(ctx, product, productCacheTTL); err != nil {
			log.Printf("product %s: cache set failed: %v", productID, err)
		}
	}
	return product, nil
}

// applyPricing derives the base price and VAT amount from the VAT-inclusive
// price. Runs on every create and update so the derived fields can never
// drift from the price.
func applyPricing(product *models.Product) error {
	base, vat, err := pricing.Split(product.Price, product.VATCategory)
	if err != nil {
		return common.NewValidationError("price", err.Error())
	}
	product.BasePrice = base
	product.VATAmount = vat
	return nil
}

func (s *productService) Create(ctx context.Context, product *models.Product) error {
	if err := common.ValidateRequiredString(product.Name, "name"); err != nil {
		return err
	}
	if product.Stock < 0 {
		return common.NewValidationError("stock", "must not be negative")
	}
	if err := applyPricing(product); err != nil {
		return err
	}
	if product.ID == uuid.Nil {
		product.ID = uuid.New()
	}
	if product.Status == "" {
		product.Status = models.ProductStatusActive
	}
	return s.productRepo.Create(ctx, product)
}

func (s *productService) Update(ctx context.Context, product *models.Product) error {
	if err := applyPricing(product); err != nil {
		return err
	}
	if err := s.productRepo.Update(ctx, product); err != nil {
		return fmt.Errorf("update product %s: %w", product.ID, err)
	}
	if s.cacheSvc != nil {
		if err := s.cacheSvc.DeleteProduct(ctx, product.ID); err != nil {
			log.Printf("product %s: cache eviction failed: %v", product.ID, err)
		}
	}
	return nil
}
