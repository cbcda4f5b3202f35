package postgres

import (
	"fmt"
	"sort"

	"customerSegments/business/segmentation"
	"customerSegments/domain"
	"customerSegments/pkg/dbctx"

	"gorm.io/gorm"
)

const historyBatchSize = 1000

type OrderHistoryRepository struct {
	DB *gorm.DB
}

var _ segmentation.HistoryStore = (*OrderHistoryRepository)(nil)

func NewOrderHistoryRepository(db *gorm.DB) *OrderHistoryRepository {
	return &OrderHistoryRepository{DB: db}
}

func (r *OrderHistoryRepository) CustomerHistory(dc dbctx.Context, tenantID, customerID string) (domain.CustomerHistory, error) {
	var orders []domain.OrderRecord
	err := dc.DB(r.DB).
		Preload("Items").
		Where("tenant_id = ? AND customer_id = ?", tenantID, customerID).
		Order("placed_at").
		Find(&orders).Error
	if err != nil {
		return domain.CustomerHistory{}, fmt.Errorf("failed to load orders of %s: %w", customerID, err)
	}
	return domain.CustomerHistory{CustomerID: customerID, Orders: orders}, nil
}

// TenantHistories streams a tenant's orders in batches and groups them per
// customer, sorted by customer id.
func (r *OrderHistoryRepository) TenantHistories(dc dbctx.Context, tenantID string) ([]domain.CustomerHistory, error) {
	byCustomer := make(map[string][]domain.OrderRecord)

	var batch []domain.OrderRecord
	res := dc.DB(r.DB).
		Preload("Items").
		Where("tenant_id = ?", tenantID).
		FindInBatches(&batch, historyBatchSize, func(tx *gorm.DB, _ int) error {
			for _, o := range batch {
				byCustomer[o.CustomerID] = append(byCustomer[o.CustomerID], o)
			}
			return nil
		})
	if res.Error != nil {
		return nil, fmt.Errorf("failed to stream orders of tenant %s: %w", tenantID, res.Error)
	}

	out := make([]domain.CustomerHistory, 0, len(byCustomer))
	for id, orders := range byCustomer {
		sort.SliceStable(orders, func(i, j int) bool { return orders[i].PlacedAt.Before(orders[j].PlacedAt) })
		out = append(out, domain.CustomerHistory{CustomerID: id, Orders: orders})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CustomerID < out[j].CustomerID })
	return out, nil
}
