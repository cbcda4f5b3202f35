package postgres

import (
	"context"
	"testing"
	"time"

	"customerSegments/business/segmentation"
	"customerSegments/domain"
	"customerSegments/pkg/dbctx"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleProfile(customerID string, axes ...string) domain.CustomerMultiAxisProfile {
	p := domain.CustomerMultiAxisProfile{
		TenantID:       "t1",
		CustomerID:     customerID,
		Axes:           map[string]domain.CustomerAxisProfile{},
		Interpretation: "Purchase Value: big spenders",
		UpdatedAt:      time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC),
	}
	for _, axis := range axes {
		p.Axes[axis] = domain.CustomerAxisProfile{
			CustomerID:      customerID,
			Axis:            axis,
			Memberships:     map[string]float64{"a": 0.8, "b": 0.2},
			DominantSegment: "a",
			TopSegments:     []string{"a", "b"},
			Strength:        domain.StrengthStrong,
			Features:        map[string]float64{"f1": 3},
		}
	}
	return p
}

func TestProfileRepository_UpsertAndGet(t *testing.T) {
	repo := NewProfileRepository(newTestDB(t))
	dc := dbctx.New(context.Background())

	require.NoError(t, repo.UpsertProfiles(dc, "t1", []domain.CustomerMultiAxisProfile{
		sampleProfile("c1", "value", "frequency"),
		sampleProfile("c2", "value"),
	}))

	p, err := repo.GetProfile(dc, "t1", "c1")
	require.NoError(t, err)
	require.Len(t, p.Axes, 2)
	ap := p.Axes["value"]
	assert.Equal(t, "a", ap.DominantSegment)
	assert.Equal(t, 0.8, ap.Memberships["a"])
	assert.Equal(t, []string{"a", "b"}, ap.TopSegments)
	assert.Equal(t, domain.StrengthStrong, ap.Strength)
	assert.Equal(t, 3.0, ap.Features["f1"])
	assert.Equal(t, "Purchase Value: big spenders", p.Interpretation)
	assert.True(t, p.UpdatedAt.Equal(time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)))
}

func TestProfileRepository_ReplacesAxesPerCustomer(t *testing.T) {
	repo := NewProfileRepository(newTestDB(t))
	dc := dbctx.New(context.Background())

	require.NoError(t, repo.UpsertProfiles(dc, "t1", []domain.CustomerMultiAxisProfile{sampleProfile("c1", "value", "frequency")}))

	updated := sampleProfile("c1", "value")
	ap := updated.Axes["value"]
	ap.DominantSegment = "b"
	updated.Axes["value"] = ap
	require.NoError(t, repo.UpsertProfiles(dc, "t1", []domain.CustomerMultiAxisProfile{updated}))

	p, err := repo.GetProfile(dc, "t1", "c1")
	require.NoError(t, err)
	require.Len(t, p.Axes, 1)
	assert.Equal(t, "b", p.Axes["value"].DominantSegment)
}

func TestProfileRepository_NotFound(t *testing.T) {
	repo := NewProfileRepository(newTestDB(t))
	_, err := repo.GetProfile(dbctx.New(context.Background()), "t1", "ghost")
	assert.ErrorIs(t, err, segmentation.ErrNotFound)
}
