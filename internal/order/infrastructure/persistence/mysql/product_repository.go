package mysql

import (
	"context"
	"errors"
	"fmt"

	"github.com/wyfcoding/goldtrade/internal/order/domain"
	"github.com/wyfcoding/goldtrade/pkg/contextx"
	"gorm.io/gorm"
)

// productRepositoryImpl 是 domain.ProductRepository 接口的 GORM 实现。
type productRepositoryImpl struct {
	db *gorm.DB
}

// NewProductRepository 创建商品仓储实例
func NewProductRepository(db *gorm.DB) domain.ProductRepository {
	return &productRepositoryImpl{db: db}
}

func (r *productRepositoryImpl) session(ctx context.Context) *gorm.DB {
	if tx, ok := contextx.GetTx(ctx).(*gorm.DB); ok && tx != nil {
		return tx
	}
	return r.db.WithContext(ctx)
}

// GetByType 实现 domain.ProductRepository.GetByType
func (r *productRepositoryImpl) GetByType(ctx context.Context, productType domain.ProductType) (*domain.Product, error) {
	var product domain.Product
	err := r.session(ctx).Where("type = ?", productType).First(&product).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrProductUnavailable
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return &product, nil
}
