package main

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"customerSegments/business/segmentation"
	"customerSegments/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleResult() *segmentation.DiscoveryResult {
	return &segmentation.DiscoveryResult{
		RunID:       "run-1",
		TenantID:    "acme",
		AxisOrder:   []string{"purchase_value", "channel"},
		CustomerIDs: []string{"c1", "c2", "c3"},
		Axes: map[string]*segmentation.AxisResult{
			"purchase_value": {
				Axis: "purchase_value",
				Diagnostics: segmentation.AxisDiagnostics{
					Axis: "purchase_value", Status: segmentation.AxisOK, K: 3, Silhouette: 0.41,
					LargestShare: 0.5, SmallestShare: 0.2, Leaves: 3,
				},
			},
			"channel": {
				Axis: "channel",
				Diagnostics: segmentation.AxisDiagnostics{
					Axis: "channel", Status: segmentation.AxisSkipped, Error: "population below minimum",
				},
			},
		},
	}
}

func TestWriteDiagnostics_Table(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeDiagnostics(&buf, sampleResult(), false))

	out := buf.String()
	assert.Contains(t, out, "run run-1  tenant acme  customers 3")
	assert.Contains(t, out, "purchase_value")
	assert.Contains(t, out, "0.410")
	assert.Contains(t, out, "population below minimum")
	assert.Less(t, bytes.Index(buf.Bytes(), []byte("purchase_value")), bytes.Index(buf.Bytes(), []byte("channel")))
}

func TestWriteDiagnostics_JSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeDiagnostics(&buf, sampleResult(), true))

	var got struct {
		RunID     string                         `json:"run_id"`
		Customers int                            `json:"customers"`
		Axes      []segmentation.AxisDiagnostics `json:"axes"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "run-1", got.RunID)
	assert.Equal(t, 3, got.Customers)
	require.Len(t, got.Axes, 2)
	assert.Equal(t, "channel", got.Axes[1].Axis)
}

func TestWriteProfile(t *testing.T) {
	p := domain.CustomerMultiAxisProfile{
		TenantID:   "acme",
		CustomerID: "c1",
		Axes: map[string]domain.CustomerAxisProfile{
			"timing":         {DominantSegment: "Weekend Shoppers", Strength: domain.StrengthStrong, TopSegments: []string{"Weekend Shoppers"}},
			"purchase_value": {DominantSegment: "Big Spenders", Strength: domain.StrengthWeak, TopSegments: []string{"Big Spenders", "Bargain Hunters"}},
		},
		Interpretation: "Big Spenders who shop on weekends.",
		UpdatedAt:      time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC),
	}

	var buf bytes.Buffer
	require.NoError(t, writeProfile(&buf, p, false))
	out := buf.String()
	assert.Contains(t, out, "customer c1 (acme)")
	assert.Contains(t, out, "Big Spenders, Bargain Hunters")
	assert.Less(t, bytes.Index(buf.Bytes(), []byte("purchase_value")), bytes.Index(buf.Bytes(), []byte("timing")))
	assert.Contains(t, out, "shop on weekends")
}
