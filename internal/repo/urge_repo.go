// Package repo implements the data persistence layer for the urge counter,
// backed by GORM. This file provides the urge operations: aggregate reads,
// limit-window evaluation, the transactional urge commit, statistics, and
// retention cleanup.
//
// The repository follows a "thin" approach: it performs persistence and
// window arithmetic, leaving policy (cache coordination, validation,
// user-facing messages) to the services package.
//
// Error semantics:
//   - Absence of a row is a valid zero state for reads (GetUrgeCount and
//     GetUrgeStats return zeros, GetLimitStatus returns full quota); it is
//     never reported as an error.
//   - On DB errors (connectivity, constraints, transaction conflicts) the
//     raw gorm error is propagated; the service layer translates it into
//     the external DATABASE_ERROR taxonomy.
package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/qlzhou/go-urge-backend/internal/domain"
)

// LimitStatus is the result of evaluating the rolling-window policy for one
// (tutorial, client) pair. NextAllowedAt is only set when the quota is
// exhausted.
type LimitStatus struct {
	CanUrge       bool       `json:"canUrge"`
	Remaining     int64      `json:"remainingUrges"`
	NextAllowedAt *time.Time `json:"nextUrgeTime,omitempty"`
}

// UrgeOutcome reports the state right after a committed urge: the new
// aggregate count and the client's remaining quota, both read back inside
// the same transaction that performed the writes.
type UrgeOutcome struct {
	UrgeCount int64
	Remaining int64
}

// UrgeStats aggregates read-only statistics for one tutorial.
type UrgeStats struct {
	TotalUrges    int64 `json:"totalUrges"`
	TodayUrges    int64 `json:"todayUrges"`
	UniqueClients int64 `json:"uniqueClients"`
}

// GetUrgeCount returns the all-time urge total for tutorialID, or 0 when no
// row exists. Absence is not an error.
func GetUrgeCount(ctx context.Context, db *gorm.DB, tutorialID string) (int64, error) {
	var row domain.UrgeCount
	err := db.WithContext(ctx).
		Where("tutorial_id = ?", tutorialID).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return row.Count, nil
}

// GetLimitStatus evaluates the rolling-window policy for the pair without
// writing anything.
//
// Rules (window is typically 24h, maxPerDay typically 2):
//   - No row: full quota.
//   - Last urge >= window ago: full quota (logical reset, no write).
//   - Otherwise remaining = max(0, maxPerDay - stored count); when the
//     quota is exhausted, NextAllowedAt = lastUrgeAt + window.
func GetLimitStatus(ctx context.Context, db *gorm.DB, tutorialID, ipAddress string, maxPerDay int64, window time.Duration, now time.Time) (LimitStatus, error) {
	var row domain.UrgeLimit
	err := db.WithContext(ctx).
		Where("tutorial_id = ? AND ip_address = ?", tutorialID, ipAddress).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return LimitStatus{CanUrge: true, Remaining: maxPerDay}, nil
	}
	if err != nil {
		return LimitStatus{}, err
	}

	if now.Sub(row.LastUrgeAt) >= window {
		return LimitStatus{CanUrge: true, Remaining: maxPerDay}, nil
	}

	remaining := maxPerDay - row.Count
	if remaining < 0 {
		remaining = 0
	}
	st := LimitStatus{CanUrge: remaining > 0, Remaining: remaining}
	if remaining == 0 {
		next := row.LastUrgeAt.Add(window)
		st.NextAllowedAt = &next
	}
	return st, nil
}

// PerformUrge commits one urge atomically: aggregate upsert, history
// append, limit upsert (window reset or increment), and the read-back of
// both counters, all inside a single transaction. A failure at any step
// rolls the whole operation back, so the aggregate is never incremented
// without its matching history and limit rows.
//
// The limit upsert serializes concurrent writers for the same pair through
// the unique (tutorial_id, ip_address) index: a lost create race degrades
// into an increment rather than a failed request.
func PerformUrge(ctx context.Context, db *gorm.DB, tutorialID, ipAddress, userAgent string, maxPerDay int64, window time.Duration, now time.Time) (UrgeOutcome, error) {
	var out UrgeOutcome

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 1) Aggregate upsert: insert count=1 or increment in place.
		if err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "tutorial_id"}},
			DoUpdates: clause.Assignments(map[string]any{
				"urge_count": gorm.Expr("urge_count + 1"),
				"updated_at": now,
			}),
		}).Create(&domain.UrgeCount{
			TutorialID: tutorialID,
			Count:      1,
			CreatedAt:  now,
			UpdatedAt:  now,
		}).Error; err != nil {
			return err
		}

		// 2) History append.
		if err := tx.Create(&domain.UrgeHistory{
			TutorialID: tutorialID,
			IPAddress:  ipAddress,
			UserAgent:  userAgent,
			CreatedAt:  now,
		}).Error; err != nil {
			return err
		}

		// 3) Limit upsert with window reset.
		limitCount, err := upsertLimit(tx, tutorialID, ipAddress, window, now)
		if err != nil {
			return err
		}

		// 4) Read back the new aggregate inside the same transaction.
		var agg domain.UrgeCount
		if err := tx.Where("tutorial_id = ?", tutorialID).First(&agg).Error; err != nil {
			return err
		}

		out.UrgeCount = agg.Count
		out.Remaining = maxPerDay - limitCount
		if out.Remaining < 0 {
			out.Remaining = 0
		}
		return nil
	})

	return out, err
}

// upsertLimit creates or updates the limit row for the pair and returns the
// new in-window count. When the previous urge is older than the window the
// counter resets to 1, otherwise it increments.
func upsertLimit(tx *gorm.DB, tutorialID, ipAddress string, window time.Duration, now time.Time) (int64, error) {
	var row domain.UrgeLimit
	err := tx.Where("tutorial_id = ? AND ip_address = ?", tutorialID, ipAddress).First(&row).Error

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		row = domain.UrgeLimit{
			TutorialID: tutorialID,
			IPAddress:  ipAddress,
			Count:      1,
			LastUrgeAt: now,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if cerr := tx.Create(&row).Error; cerr != nil {
			// Lost a first-urge race against another transaction holding
			// the same pair; fall through to the increment path.
			if !isDuplicate(cerr) {
				return 0, cerr
			}
			if rerr := tx.Where("tutorial_id = ? AND ip_address = ?", tutorialID, ipAddress).First(&row).Error; rerr != nil {
				return 0, rerr
			}
			return bumpLimit(tx, &row, window, now)
		}
		return row.Count, nil
	case err != nil:
		return 0, err
	default:
		return bumpLimit(tx, &row, window, now)
	}
}

// bumpLimit applies the reset-vs-increment rule to an existing row.
func bumpLimit(tx *gorm.DB, row *domain.UrgeLimit, window time.Duration, now time.Time) (int64, error) {
	if now.Sub(row.LastUrgeAt) >= window {
		row.Count = 1
	} else {
		row.Count++
	}
	row.LastUrgeAt = now
	row.UpdatedAt = now
	if err := tx.Model(&domain.UrgeLimit{}).
		Where("id = ?", row.ID).
		Updates(map[string]any{
			"urge_count":   row.Count,
			"last_urge_at": row.LastUrgeAt,
			"updated_at":   row.UpdatedAt,
		}).Error; err != nil {
		return 0, err
	}
	return row.Count, nil
}

// GetUrgeStats returns read-only aggregates for one tutorial: the all-time
// total, today's urge count (since UTC midnight), and the number of
// distinct client addresses in the history. Zero rows yield zeros. The
// queries are not transactional with PerformUrge.
func GetUrgeStats(ctx context.Context, db *gorm.DB, tutorialID string, now time.Time) (UrgeStats, error) {
	// "Today" is a UTC day regardless of the zone now arrived in.
	now = now.UTC()

	var stats UrgeStats

	total, err := GetUrgeCount(ctx, db, tutorialID)
	if err != nil {
		return stats, err
	}
	stats.TotalUrges = total

	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if err := db.WithContext(ctx).
		Model(&domain.UrgeHistory{}).
		Where("tutorial_id = ? AND created_at >= ?", tutorialID, dayStart).
		Count(&stats.TodayUrges).Error; err != nil {
		return stats, err
	}

	if err := db.WithContext(ctx).
		Model(&domain.UrgeHistory{}).
		Where("tutorial_id = ?", tutorialID).
		Distinct("ip_address").
		Count(&stats.UniqueClients).Error; err != nil {
		return stats, err
	}

	return stats, nil
}

// CleanupOldData deletes history rows older than the retention period and
// limit rows not updated within it. The aggregate table is never touched.
// The two deletes are independent statements: a failure in one does not
// roll back the other, which is acceptable for a maintenance sweep. Both
// deletion counts are returned for logging.
func CleanupOldData(ctx context.Context, db *gorm.DB, retention time.Duration, now time.Time) (historyDeleted, limitsDeleted int64, err error) {
	cutoff := now.Add(-retention)

	res := db.WithContext(ctx).
		Where("created_at < ?", cutoff).
		Delete(&domain.UrgeHistory{})
	historyDeleted = res.RowsAffected
	if res.Error != nil {
		err = res.Error
	}

	res = db.WithContext(ctx).
		Where("updated_at < ?", cutoff).
		Delete(&domain.UrgeLimit{})
	limitsDeleted = res.RowsAffected
	if res.Error != nil && err == nil {
		err = res.Error
	}

	return historyDeleted, limitsDeleted, err
}

// isDuplicate attempts to detect unique-constraint violations across drivers
// that may not map to gorm.ErrDuplicatedKey.
func isDuplicate(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	// SQLite typically: "UNIQUE constraint failed"
	// MySQL typically: "Duplicate entry ... for key ..."
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "duplicate entry") ||
		strings.Contains(msg, "constraint failed: unique")
}
