package postgres

import (
	"fmt"
	"time"

	"customerSegments/business/segmentation"
	"customerSegments/domain"
	"customerSegments/pkg/dbctx"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// SegmentRow is the stored form of a discovered segment. Position keeps the
// discovery order within an axis.
type SegmentRow struct {
	ID                 string                                   `gorm:"column:id;primaryKey"`
	TenantID           string                                   `gorm:"column:tenant_id;not null;index:idx_segments_tenant_axis"`
	Axis               string                                   `gorm:"column:axis;not null;index:idx_segments_tenant_axis"`
	RunID              string                                   `gorm:"column:run_id"`
	Position           int                                      `gorm:"column:position"`
	Name               string                                   `gorm:"column:name;not null"`
	Description        string                                   `gorm:"column:description"`
	Center             datatypes.JSONType[[]float64]            `gorm:"column:center"`
	FeatureNames       datatypes.JSONType[[]string]             `gorm:"column:feature_names"`
	Scaler             datatypes.JSONType[*domain.ScalerParams] `gorm:"column:scaler"`
	PopulationCount    int                                      `gorm:"column:population_count"`
	PopulationPct      float64                                  `gorm:"column:population_pct"`
	ParentID           string                                   `gorm:"column:parent_id"`
	Depth              int                                      `gorm:"column:depth"`
	QualityBelowTarget bool                                     `gorm:"column:quality_below_target"`
	CreatedAt          time.Time                                `gorm:"column:created_at"`
}

func (SegmentRow) TableName() string {
	return "segments"
}

func segmentToRow(s domain.DiscoveredSegment, position int) SegmentRow {
	return SegmentRow{
		ID:                 s.ID,
		TenantID:           s.TenantID,
		Axis:               s.Axis,
		RunID:              s.RunID,
		Position:           position,
		Name:               s.Name,
		Description:        s.Description,
		Center:             datatypes.NewJSONType(s.Center),
		FeatureNames:       datatypes.NewJSONType(s.FeatureNames),
		Scaler:             datatypes.NewJSONType(s.Scaler),
		PopulationCount:    s.PopulationCount,
		PopulationPct:      s.PopulationPct,
		ParentID:           s.ParentID,
		Depth:              s.Depth,
		QualityBelowTarget: s.QualityBelowTarget,
		CreatedAt:          s.CreatedAt,
	}
}

func (row SegmentRow) toDomain() domain.DiscoveredSegment {
	return domain.DiscoveredSegment{
		ID:                 row.ID,
		TenantID:           row.TenantID,
		RunID:              row.RunID,
		Axis:               row.Axis,
		Name:               row.Name,
		Description:        row.Description,
		Center:             row.Center.Data(),
		FeatureNames:       row.FeatureNames.Data(),
		Scaler:             row.Scaler.Data(),
		PopulationCount:    row.PopulationCount,
		PopulationPct:      row.PopulationPct,
		ParentID:           row.ParentID,
		Depth:              row.Depth,
		QualityBelowTarget: row.QualityBelowTarget,
		CreatedAt:          row.CreatedAt,
	}
}

type SegmentRepository struct {
	DB *gorm.DB
}

var _ segmentation.SegmentStore = (*SegmentRepository)(nil)

func NewSegmentRepository(db *gorm.DB) *SegmentRepository {
	return &SegmentRepository{DB: db}
}

// ReplaceAxisSegments deletes then inserts. It is only atomic when dc
// carries a transaction.
func (r *SegmentRepository) ReplaceAxisSegments(dc dbctx.Context, tenantID, axis string, segments []domain.DiscoveredSegment) error {
	db := dc.DB(r.DB)

	if err := db.Where("tenant_id = ? AND axis = ?", tenantID, axis).Delete(&SegmentRow{}).Error; err != nil {
		return fmt.Errorf("failed to clear segments of %s: %w", axis, err)
	}
	if len(segments) == 0 {
		return nil
	}

	rows := make([]SegmentRow, len(segments))
	for i, s := range segments {
		s.TenantID = tenantID
		s.Axis = axis
		rows[i] = segmentToRow(s, i)
	}
	if err := db.Create(&rows).Error; err != nil {
		return fmt.Errorf("failed to insert segments of %s: %w", axis, err)
	}
	return nil
}

func (r *SegmentRepository) ListSegments(dc dbctx.Context, tenantID, axis string) ([]domain.DiscoveredSegment, error) {
	q := dc.DB(r.DB).Where("tenant_id = ?", tenantID)
	if axis != "" {
		q = q.Where("axis = ?", axis)
	}

	var rows []SegmentRow
	if err := q.Order("axis").Order("position").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list segments: %w", err)
	}

	out := make([]domain.DiscoveredSegment, len(rows))
	for i, row := range rows {
		out[i] = row.toDomain()
	}
	return out, nil
}
