package deps

import (
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mkrenek/adwatch/internal/engine"
	"github.com/mkrenek/adwatch/internal/logger"
	"github.com/mkrenek/adwatch/internal/singleflight"
	"github.com/mkrenek/adwatch/internal/stats"
	"github.com/mkrenek/adwatch/internal/store/postgres"
)

type Deps struct {
	Logger    logger.Logger
	StartTime time.Time
	Version   string
	Commit    string
	BuildDate string
	GoVersion string

	Store        *postgres.Store     // listing and term persistence
	RedisClient  *redis.Client       // pub/sub + stats mirror, pinged by readyz
	Stats        *stats.Recorder     // in-process counters
	Engine       *engine.Engine      // reconciliation core, used for term seeding
	CheckGuard   *singleflight.Guard // advisory view of the running sweep
	CheckTrigger chan struct{}       // non-blocking manual sweep trigger

	SeedTimeout     time.Duration // budget for the background seed after POST /terms
	AdsDefaultLimit int           // listing page size when ?limit is absent
	TrustProxy      bool          // resolve client IP from proxy headers when true
	TriggerBurst    int           // rate limit burst for POST /check
	TriggerPerMin   int           // rate limit refill for POST /check
}
