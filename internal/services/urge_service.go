// Package services – UrgeService
//
// This file implements the urge coordinator. A single Urge call walks the
// request through validation, the cache-assisted limit check, the policy
// decision, the transactional commit, and cache invalidation, and builds
// the localized user-facing receipt. The cached read path (current count,
// detailed stats) lives here too, because invalidation after a write and
// population after a read must be coordinated on the same cache instances.
//
// Cache discipline:
//   - limit:<tutorial>:<addr> — short TTL (~30s). The limit pre-check may
//     therefore lag true state by up to that TTL under concurrency for the
//     same client; the transactional counter stays correct, the policy may
//     transiently admit one extra urge. Accepted trade-off.
//   - count:<tutorial> — the aggregate read path (~2m TTL).
//   - stats:<tutorial> — detailed stats read path (~5m TTL).
//
// After a successful commit the coordinator deletes the count and limit
// entries for the affected keys so subsequent reads observe fresh data.
// That invalidation is the critical correctness step; population is merely
// an optimization.
package services

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/text/language"
	"gorm.io/gorm"

	"github.com/qlzhou/go-urge-backend/internal/cache"
	"github.com/qlzhou/go-urge-backend/internal/repo"
)

var (
	// urgesTotal counts committed urges.
	urgesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "urges_total",
		Help: "Total number of successfully committed urges.",
	})

	// urgesDenied counts policy denials (daily cap reached).
	urgesDenied = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "urges_denied_total",
		Help: "Total number of urge requests denied by the daily limit.",
	})
)

func init() {
	prometheus.MustRegister(urgesTotal, urgesDenied)
}

// messageLangs are the supported receipt locales, in matcher priority
// order. The first entry is the fallback.
var messageLangs = language.NewMatcher([]language.Tag{
	language.English,
	language.Chinese,
})

// UrgeService coordinates the cache layer and the persistence layer to
// implement the externally visible urge operation and its read path.
//
// Construct it once at startup and share it across requests: it owns no
// per-request state and is safe for concurrent use. The caches must be the
// same instances for the write and read paths, otherwise invalidation
// cannot reach the stale entries.
type UrgeService struct {
	DB *gorm.DB

	Limits *cache.Cache[repo.LimitStatus]
	Counts *cache.Cache[int64]
	Stats  *cache.Cache[repo.UrgeStats]

	// Policy
	MaxPerDay int64
	Window    time.Duration

	// Cache TTLs
	LimitTTL time.Duration
	CountTTL time.Duration
	StatsTTL time.Duration

	// Now is the clock; nil means time.Now. Injected for window tests.
	Now func() time.Time
}

// UrgeRequest carries one inbound urge.
type UrgeRequest struct {
	TutorialID     string
	ClientAddr     string
	UserAgent      string
	AcceptLanguage string // raw Accept-Language header, may be empty
}

// UrgeReceipt is the success result of an urge.
type UrgeReceipt struct {
	UrgeCount     int64
	Remaining     int64
	Message       string
	NextAllowedAt *time.Time
}

// now returns the injected or wall clock in UTC.
func (s *UrgeService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// Urge performs one urge for the given tutorial and client.
//
// Returns:
//   - ErrInvalidTutorialID / ErrInvalidClientAddr for malformed input
//     (checked before any cache or database access);
//   - *RateLimitError when the daily quota is exhausted (no mutation);
//   - the underlying DB error when the transactional commit fails (no
//     cache is invalidated in that case, state is unchanged);
//   - otherwise a receipt with the new aggregate count, remaining quota,
//     and a localized message.
func (s *UrgeService) Urge(ctx context.Context, req UrgeRequest) (UrgeReceipt, error) {
	if !ValidTutorialID(req.TutorialID) {
		return UrgeReceipt{}, ErrInvalidTutorialID
	}
	if !ValidClientAddr(req.ClientAddr) {
		return UrgeReceipt{}, ErrInvalidClientAddr
	}

	now := s.now()

	// Limit check, cache first. A miss populates the cache so bursts for
	// the same pair fan in on one database read.
	key := limitKey(req.TutorialID, req.ClientAddr)
	status, ok := s.Limits.Get(key)
	if !ok {
		var err error
		status, err = repo.GetLimitStatus(ctx, s.DB, req.TutorialID, req.ClientAddr, s.MaxPerDay, s.Window, now)
		if err != nil {
			return UrgeReceipt{}, err
		}
		s.Limits.Set(key, status, s.LimitTTL)
	}

	if !status.CanUrge {
		urgesDenied.Inc()
		return UrgeReceipt{}, &RateLimitError{NextAllowedAt: status.NextAllowedAt}
	}

	out, err := repo.PerformUrge(ctx, s.DB, req.TutorialID, req.ClientAddr, req.UserAgent, s.MaxPerDay, s.Window, now)
	if err != nil {
		// Nothing was committed; cached state is still accurate.
		return UrgeReceipt{}, err
	}

	// Invalidate before responding so a read that races the response never
	// observes the pre-commit snapshot.
	s.Counts.Delete(countKey(req.TutorialID))
	s.Limits.Delete(key)

	urgesTotal.Inc()

	receipt := UrgeReceipt{
		UrgeCount: out.UrgeCount,
		Remaining: out.Remaining,
		Message:   receiptMessage(req.AcceptLanguage, out.Remaining, s.MaxPerDay),
	}
	if out.Remaining == 0 {
		next := now.Add(s.Window)
		receipt.NextAllowedAt = &next
	}
	return receipt, nil
}

// Count returns the current aggregate count for tutorialID through the
// count cache. Absence of a row is a legitimate zero, not an error;
// connectivity failures propagate as errors and are never masked by a
// cached zero.
func (s *UrgeService) Count(ctx context.Context, tutorialID string) (int64, error) {
	if !ValidTutorialID(tutorialID) {
		return 0, ErrInvalidTutorialID
	}

	key := countKey(tutorialID)
	if n, ok := s.Counts.Get(key); ok {
		return n, nil
	}

	n, err := repo.GetUrgeCount(ctx, s.DB, tutorialID)
	if err != nil {
		return 0, err
	}
	s.Counts.Set(key, n, s.CountTTL)
	return n, nil
}

// DetailedStats returns total/today/unique statistics for tutorialID
// through the longer-lived stats cache.
func (s *UrgeService) DetailedStats(ctx context.Context, tutorialID string) (repo.UrgeStats, error) {
	if !ValidTutorialID(tutorialID) {
		return repo.UrgeStats{}, ErrInvalidTutorialID
	}

	key := statsKey(tutorialID)
	if st, ok := s.Stats.Get(key); ok {
		return st, nil
	}

	st, err := repo.GetUrgeStats(ctx, s.DB, tutorialID, s.now())
	if err != nil {
		return repo.UrgeStats{}, err
	}
	s.Stats.Set(key, st, s.StatsTTL)
	return st, nil
}

// CacheStats snapshots all three caches for the health endpoint.
func (s *UrgeService) CacheStats() map[string]cache.Stats {
	return map[string]cache.Stats{
		"limits": s.Limits.Stats(),
		"counts": s.Counts.Stats(),
		"stats":  s.Stats.Stats(),
	}
}

func limitKey(tutorialID, addr string) string { return "limit:" + tutorialID + ":" + addr }
func countKey(tutorialID string) string       { return "count:" + tutorialID }
func statsKey(tutorialID string) string       { return "stats:" + tutorialID }

// receiptMessage picks the success message in the best-matching supported
// language (English fallback, Chinese kept from the site this backend
// serves). The exhausted variant tells the client to come back tomorrow.
func receiptMessage(acceptLanguage string, remaining, maxPerDay int64) string {
	zh := false
	if acceptLanguage != "" {
		// Index 1 in the matcher's tag list is Chinese.
		_, idx := language.MatchStrings(messageLangs, acceptLanguage)
		zh = idx == 1
	}
	switch {
	case remaining > 0 && zh:
		return "催更成功！作者会加快进度的~"
	case remaining > 0:
		return "Urge received! The author will pick up the pace."
	case zh:
		return "催更成功！您今天的催更次数已用完，明天再来吧~"
	default:
		return "Urge received! You have used all your urges for today, come back tomorrow."
	}
}
