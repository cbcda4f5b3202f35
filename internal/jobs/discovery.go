// Package jobs runs batch work outside the request path. It owns every
// transaction it opens; the repositories it drives never commit on their own.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"customerSegments/business/segmentation"
	"customerSegments/domain"
	"customerSegments/pkg/dbctx"
	"customerSegments/pkg/logger"
	"customerSegments/pkg/metrics"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	profileWriteBatch = 1000
	defaultLockTTL    = 2 * time.Hour
)

var ErrRunInProgress = errors.New("discovery already running for tenant")

// RunLock keeps overlapping runs of one tenant apart. Optional.
type RunLock interface {
	Acquire(ctx context.Context, tenantID, owner string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, tenantID, owner string) error
}

type DiscoveryJob struct {
	db        *gorm.DB
	discovery *segmentation.DiscoveryService
	histories segmentation.HistoryStore
	segments  segmentation.SegmentStore
	profiles  segmentation.ProfileStore
	cache     segmentation.SegmentCache
	lock      RunLock
	lockTTL   time.Duration

	// Now is the reference time handed to feature extraction.
	Now func() time.Time
}

// NewDiscoveryJob accepts a nil cache and a nil lock.
func NewDiscoveryJob(db *gorm.DB, discovery *segmentation.DiscoveryService, histories segmentation.HistoryStore, segments segmentation.SegmentStore, profiles segmentation.ProfileStore, cache segmentation.SegmentCache, lock RunLock) *DiscoveryJob {
	return &DiscoveryJob{
		db:        db,
		discovery: discovery,
		histories: histories,
		segments:  segments,
		profiles:  profiles,
		cache:     cache,
		lock:      lock,
		lockTTL:   defaultLockTTL,
		Now:       time.Now,
	}
}

// Report summarises one persisted run.
type Report struct {
	Result          *segmentation.DiscoveryResult `json:"result"`
	AxesReplaced    []string                      `json:"axes_replaced"`
	ProfilesWritten int                           `json:"profiles_written"`
}

// Run discovers segments for one tenant and persists them. All axes that did
// not fail are replaced in a single transaction, so readers see either the
// previous segment set or the new one. A failed axis keeps its previous
// segments. When persisting fails the in-memory result is still returned
// together with the error. Customers are rescored on failed axes against the
// segments those axes kept.
func (j *DiscoveryJob) Run(ctx context.Context, tenantID string) (rep *Report, err error) {
	start := time.Now()
	defer func() {
		status := "ok"
		if err != nil {
			status = "error"
		}
		if errors.Is(err, ErrRunInProgress) {
			status = "locked"
		}
		metrics.DiscoveryJobs.WithLabelValues(status).Inc()
		metrics.DiscoveryJobDuration.Observe(time.Since(start).Seconds())
	}()

	owner := uuid.NewString()
	if j.lock != nil {
		ok, err := j.lock.Acquire(ctx, tenantID, owner, j.lockTTL)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("tenant %s: %w", tenantID, ErrRunInProgress)
		}
		defer func() {
			if err := j.lock.Release(context.WithoutCancel(ctx), tenantID, owner); err != nil {
				logger.Warn("discovery_lock_release_failed", "tenant_id", tenantID, "error", err)
			}
		}()
	}

	histories, err := j.histories.TenantHistories(dbctx.New(ctx), tenantID)
	if err != nil {
		return nil, fmt.Errorf("load histories: %w", err)
	}

	res, err := j.discovery.Discover(ctx, tenantID, histories, j.Now())
	if err != nil {
		return nil, err
	}
	rep = &Report{Result: res}

	rep.AxesReplaced, err = j.replaceSegments(ctx, res)
	if err != nil {
		logger.Error("discovery_persist_failed", "tenant_id", tenantID, "run_id", res.RunID, "error", err)
		return rep, err
	}
	j.invalidate(ctx, tenantID)

	segments, err := j.scoringSegments(ctx, res)
	if err != nil {
		return rep, err
	}
	profiles, err := j.discovery.ScoreWith(ctx, res, segments)
	if err != nil {
		return rep, err
	}
	rep.ProfilesWritten, err = j.writeProfiles(ctx, tenantID, profiles)
	if err != nil {
		logger.Error("discovery_profiles_failed", "tenant_id", tenantID, "run_id", res.RunID, "written", rep.ProfilesWritten, "error", err)
		return rep, err
	}

	logger.Info("discovery_job_finished",
		"tenant_id", tenantID,
		"run_id", res.RunID,
		"customers", len(res.CustomerIDs),
		"axes_replaced", len(rep.AxesReplaced),
		"failed_axes", res.FailedAxes(),
		"profiles", rep.ProfilesWritten,
		"duration", time.Since(start).String(),
	)
	return rep, nil
}

func (j *DiscoveryJob) replaceSegments(ctx context.Context, res *segmentation.DiscoveryResult) ([]string, error) {
	var replaced []string
	err := j.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dc := dbctx.WithTx(ctx, tx)
		for _, axis := range res.AxisOrder {
			ar, ok := res.Axes[axis]
			if !ok || ar.Diagnostics.Status == segmentation.AxisFailed {
				continue
			}
			if err := j.segments.ReplaceAxisSegments(dc, res.TenantID, axis, ar.Segments); err != nil {
				return fmt.Errorf("replace %s segments: %w", axis, err)
			}
			replaced = append(replaced, axis)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return replaced, nil
}

// scoringSegments is the run's segments plus, for each failed axis, the
// segments still stored from an earlier run. Profiles on those axes survive.
func (j *DiscoveryJob) scoringSegments(ctx context.Context, res *segmentation.DiscoveryResult) (map[string][]domain.DiscoveredSegment, error) {
	out := res.Segments()
	for _, axis := range res.FailedAxes() {
		kept, err := j.segments.ListSegments(dbctx.New(ctx), res.TenantID, axis)
		if err != nil {
			return nil, fmt.Errorf("load kept %s segments: %w", axis, err)
		}
		out[axis] = kept
	}
	return out, nil
}

func (j *DiscoveryJob) writeProfiles(ctx context.Context, tenantID string, profiles []domain.CustomerMultiAxisProfile) (int, error) {
	written := 0
	for start := 0; start < len(profiles); start += profileWriteBatch {
		end := min(start+profileWriteBatch, len(profiles))
		batch := make([]domain.CustomerMultiAxisProfile, 0, end-start)
		for _, p := range profiles[start:end] {
			if len(p.Axes) > 0 {
				batch = append(batch, p)
			}
		}
		if err := j.profiles.UpsertProfiles(dbctx.New(ctx), tenantID, batch); err != nil {
			return written, fmt.Errorf("write profiles %d..%d: %w", start, end, err)
		}
		written += len(batch)
		metrics.ProfilesWritten.Add(float64(len(batch)))
	}
	return written, nil
}

func (j *DiscoveryJob) invalidate(ctx context.Context, tenantID string) {
	if j.cache == nil {
		return
	}
	if err := j.cache.Invalidate(ctx, tenantID); err != nil {
		logger.Warn("segment_cache_invalidate_failed", "tenant_id", tenantID, "error", err)
	}
}

// RunAll runs every tenant in turn and keeps going past failures. It returns
// the joined errors.
func (j *DiscoveryJob) RunAll(ctx context.Context, tenantIDs []string) error {
	var errs []error
	for _, tenantID := range tenantIDs {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if _, err := j.Run(ctx, tenantID); err != nil {
			logger.Error("discovery_job_failed", "tenant_id", tenantID, "error", err)
			errs = append(errs, fmt.Errorf("tenant %s: %w", tenantID, err))
		}
	}
	return errors.Join(errs...)
}
