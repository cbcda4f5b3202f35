package postgres

import (
	"fmt"
	"sort"
	"time"

	"customerSegments/business/segmentation"
	"customerSegments/domain"
	"customerSegments/pkg/dbctx"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const profileBatchSize = 500

// CustomerProfileRow is one customer on one axis.
type CustomerProfileRow struct {
	TenantID        string                                 `gorm:"column:tenant_id;primaryKey"`
	CustomerID      string                                 `gorm:"column:customer_id;primaryKey"`
	Axis            string                                 `gorm:"column:axis;primaryKey"`
	Memberships     datatypes.JSONType[map[string]float64] `gorm:"column:memberships"`
	DominantSegment string                                 `gorm:"column:dominant_segment"`
	TopSegments     datatypes.JSONType[[]string]           `gorm:"column:top_segments"`
	Strength        string                                 `gorm:"column:strength"`
	Features        datatypes.JSONType[map[string]float64] `gorm:"column:features"`
	Interpretation  string                                 `gorm:"column:interpretation"`
	UpdatedAt       time.Time                              `gorm:"column:updated_at"`
}

func (CustomerProfileRow) TableName() string {
	return "customer_profiles"
}

type ProfileRepository struct {
	DB *gorm.DB
}

var _ segmentation.ProfileStore = (*ProfileRepository)(nil)

func NewProfileRepository(db *gorm.DB) *ProfileRepository {
	return &ProfileRepository{DB: db}
}

// UpsertProfiles writes every axis of every profile and drops axes a
// customer no longer has.
func (r *ProfileRepository) UpsertProfiles(dc dbctx.Context, tenantID string, profiles []domain.CustomerMultiAxisProfile) error {
	db := dc.DB(r.DB)

	var rows []CustomerProfileRow
	for _, p := range profiles {
		axes := make([]string, 0, len(p.Axes))
		for axis, ap := range p.Axes {
			axes = append(axes, axis)
			rows = append(rows, CustomerProfileRow{
				TenantID:        tenantID,
				CustomerID:      p.CustomerID,
				Axis:            axis,
				Memberships:     datatypes.NewJSONType(ap.Memberships),
				DominantSegment: ap.DominantSegment,
				TopSegments:     datatypes.NewJSONType(ap.TopSegments),
				Strength:        string(ap.Strength),
				Features:        datatypes.NewJSONType(ap.Features),
				Interpretation:  p.Interpretation,
				UpdatedAt:       p.UpdatedAt,
			})
		}

		stale := db.Where("tenant_id = ? AND customer_id = ?", tenantID, p.CustomerID)
		if len(axes) > 0 {
			stale = stale.Where("axis NOT IN ?", axes)
		}
		if err := stale.Delete(&CustomerProfileRow{}).Error; err != nil {
			return fmt.Errorf("failed to drop stale axes of %s: %w", p.CustomerID, err)
		}
	}
	if len(rows) == 0 {
		return nil
	}

	err := db.
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "tenant_id"}, {Name: "customer_id"}, {Name: "axis"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"memberships",
				"dominant_segment",
				"top_segments",
				"strength",
				"features",
				"interpretation",
				"updated_at",
			}),
		}).
		CreateInBatches(&rows, profileBatchSize).Error
	if err != nil {
		return fmt.Errorf("failed to upsert profiles: %w", err)
	}
	return nil
}

func (r *ProfileRepository) GetProfile(dc dbctx.Context, tenantID, customerID string) (domain.CustomerMultiAxisProfile, error) {
	var rows []CustomerProfileRow
	err := dc.DB(r.DB).
		Where("tenant_id = ? AND customer_id = ?", tenantID, customerID).
		Find(&rows).Error
	if err != nil {
		return domain.CustomerMultiAxisProfile{}, fmt.Errorf("failed to load profile: %w", err)
	}
	if len(rows) == 0 {
		return domain.CustomerMultiAxisProfile{}, fmt.Errorf("profile of %s: %w", customerID, segmentation.ErrNotFound)
	}

	sort.Slice(rows, func(i, j int) bool { return rows[i].Axis < rows[j].Axis })
	p := domain.CustomerMultiAxisProfile{
		TenantID:   tenantID,
		CustomerID: customerID,
		Axes:       make(map[string]domain.CustomerAxisProfile, len(rows)),
	}
	for _, row := range rows {
		p.Axes[row.Axis] = domain.CustomerAxisProfile{
			CustomerID:      customerID,
			Axis:            row.Axis,
			Memberships:     row.Memberships.Data(),
			DominantSegment: row.DominantSegment,
			TopSegments:     row.TopSegments.Data(),
			Strength:        domain.MembershipStrength(row.Strength),
			Features:        row.Features.Data(),
			UpdatedAt:       row.UpdatedAt,
		}
		p.Interpretation = row.Interpretation
		if row.UpdatedAt.After(p.UpdatedAt) {
			p.UpdatedAt = row.UpdatedAt
		}
	}
	return p, nil
}
