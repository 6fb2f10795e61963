package services

import (
	"context"
	"fmt"
	"time"

	"github.com/Tesseract-Nexus/go-shared/cache"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"storybook-service/internal/clients/woocommerce"
	"storybook-service/internal/models"
)

// Cache TTL constants for products
const (
	ProductCacheTTL     = 15 * time.Minute
	ProductListCacheTTL = 2 * time.Minute
)

// ProductList is a page of WooCommerce products.
type ProductList struct {
	Products   []models.WooProduct `json:"products"`
	Total      int                 `json:"total"`
	TotalPages int                 `json:"totalPages"`
}

// ProductService reads the WooCommerce catalog with optional Redis caching
type ProductService struct {
	woo    WooCommerceAPI
	cache  *cache.CacheLayer
	logger *logrus.Entry
}

// NewProductService creates a product service. redisClient may be nil.
func NewProductService(woo WooCommerceAPI, redisClient *redis.Client, logger *logrus.Logger) *ProductService {
	s := &ProductService{
		woo:    woo,
		logger: logger.WithField("component", "product_service"),
	}
	if redisClient != nil {
		s.cache = cache.NewCacheLayerFromClient(redisClient, cache.CacheConfig{
			L1Enabled:  true,
			L1MaxItems: 1000,
			L1TTL:      30 * time.Second,
			DefaultTTL: ProductCacheTTL,
			KeyPrefix:  "storybook:products:",
		})
	}
	return s
}

func productListCacheKey(p woocommerce.ListParams) string {
	return fmt.Sprintf("product:list:%d:%d:%s", p.Page, p.PerPage, p.Search)
}

func productCacheKey(id int64) string {
	return fmt.Sprintf("product:%d", id)
}

// ListProducts returns a page of products
func (s *ProductService) ListProducts(ctx context.Context, p woocommerce.ListParams) (*ProductList, error) {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PerPage < 1 || p.PerPage > 100 {
		p.PerPage = 20
	}

	load := func() (any, error) {
		products, totals, err := s.woo.ListProducts(ctx, p)
		if err != nil {
			return nil, err
		}
		if products == nil {
			products = []models.WooProduct{}
		}
		return &ProductList{Products: products, Total: totals.Total, TotalPages: totals.TotalPages}, nil
	}

	if s.cache == nil {
		v, err := load()
		if err != nil {
			return nil, err
		}
		return v.(*ProductList), nil
	}

	var result ProductList
	if err := s.cache.GetOrSetJSON(ctx, productListCacheKey(p), &result, ProductListCacheTTL, load); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetProduct returns a single product
func (s *ProductService) GetProduct(ctx context.Context, id int64) (*models.WooProduct, error) {
	if s.cache == nil {
		return s.woo.GetProduct(ctx, id)
	}

	var product models.WooProduct
	err := s.cache.GetOrSetJSON(ctx, productCacheKey(id), &product, ProductCacheTTL, func() (any, error) {
		return s.woo.GetProduct(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// InvalidateCache drops every cached product entry
func (s *ProductService) InvalidateCache(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	if err := s.cache.DeletePattern(ctx, "product:*"); err != nil {
		return fmt.Errorf("failed to invalidate product cache: %w", err)
	}
	s.logger.Info("Product cache invalidated")
	return nil
}

// CacheStats returns cache statistics
func (s *ProductService) CacheStats() *cache.CacheStats {
	if s.cache == nil {
		return nil
	}
	stats := s.cache.Stats()
	return &stats
}
