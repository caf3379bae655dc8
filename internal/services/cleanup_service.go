// Package services – retention cleanup
//
// Old history rows and stale limit counters are pruned on a schedule (the
// scheduler lives in cmd/server). Aggregate counts are kept forever.
package services

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/qlzhou/go-urge-backend/internal/repo"
)

// CleanupService prunes aged rows from the history and limit tables.
type CleanupService struct {
	DB        *gorm.DB
	Retention time.Duration // rows older than this are removed

	// Now is the clock; nil means time.Now.
	Now func() time.Time
}

// Run performs one cleanup pass. Partial failures are logged and returned,
// but a failed history delete does not prevent the limit delete from being
// attempted: the sweep is best-effort maintenance, each delete atomic on
// its own.
func (s *CleanupService) Run(ctx context.Context) error {
	now := time.Now().UTC()
	if s.Now != nil {
		now = s.Now().UTC()
	}

	hist, lims, err := repo.CleanupOldData(ctx, s.DB, s.Retention, now)
	if err != nil {
		log.Error().
			Err(err).
			Int64("history_deleted", hist).
			Int64("limits_deleted", lims).
			Msg("retention cleanup finished with errors")
		return err
	}

	log.Info().
		Int64("history_deleted", hist).
		Int64("limits_deleted", lims).
		Dur("retention", s.Retention).
		Msg("retention cleanup completed")
	return nil
}
