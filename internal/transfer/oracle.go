package transfer

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"mediacheck/internal/config"
	"mediacheck/internal/logging"
	"mediacheck/internal/services"
)

const cacheSize = 1024

// Lister is the RPC surface the oracle depends on.
type Lister interface {
	Ping(ctx context.Context) error
	Torrents(ctx context.Context) ([]Torrent, error)
}

// Oracle answers liveness queries for release directories.
type Oracle struct {
	lister    Lister
	cache     *expirable.LRU[string, bool]
	available atomic.Bool
	logger    *slog.Logger
}

// NewOracle builds an oracle from config. When the transfer client is
// disabled or cannot be built the returned oracle reports every directory
// inactive.
func NewOracle(cfg *config.Config, logger *slog.Logger) *Oracle {
	var lister Lister
	if cfg.Transmission.Enabled {
		client, err := NewClient(
			cfg.TransmissionEndpoint(),
			cfg.Transmission.Username,
			cfg.Transmission.Password,
			time.Duration(cfg.Transmission.TimeoutSeconds)*time.Second,
		)
		if err != nil {
			logging.WarnWithContext(logging.NewComponentLogger(logger, "transfer"), "transfer client unavailable", "transfer_unreachable",
				logging.Error(err),
				logging.String(logging.FieldImpact, "archive directories are processed without a liveness check"),
			)
		} else {
			lister = client
		}
	}
	return NewOracleWithLister(lister, time.Duration(cfg.Transmission.CacheTTLSeconds)*time.Second, logger)
}

// NewOracleWithLister builds an oracle over an arbitrary lister. A nil lister
// disables the oracle.
func NewOracleWithLister(lister Lister, ttl time.Duration, logger *slog.Logger) *Oracle {
	if ttl <= 0 {
		ttl = time.Second
	}
	return &Oracle{
		lister: lister,
		cache:  expirable.NewLRU[string, bool](cacheSize, nil, ttl),
		logger: logging.NewComponentLogger(logger, "transfer"),
	}
}

// Connect probes the service once. Failure is logged and leaves the oracle
// answering "not active" for the rest of the run; the error is returned only
// for reporting.
func (o *Oracle) Connect(ctx context.Context) error {
	if o.lister == nil {
		o.logger.Debug("transfer oracle disabled")
		return nil
	}
	logger := logging.WithContext(ctx, o.logger)
	if err := o.lister.Ping(ctx); err != nil {
		o.available.Store(false)
		logging.WarnWithContext(logger, "transfer service unreachable", "transfer_unreachable",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check transmission host, port, and credentials"),
			logging.String(logging.FieldImpact, "archive directories are processed without a liveness check"),
		)
		return err
	}
	o.available.Store(true)
	logger.Info("transfer service connected", logging.String(logging.FieldEventType, "transfer_connected"))
	return nil
}

// Enabled reports whether queries reach the service.
func (o *Oracle) Enabled() bool {
	return o != nil && o.lister != nil && o.available.Load()
}

// IsActive reports whether dirPath belongs to a downloading or seeding
// torrent. A torrent matches when its download directory joined with its name
// equals dirPath, or when its name equals the leaf of dirPath. Errors answer
// false.
func (o *Oracle) IsActive(ctx context.Context, dirPath string) bool {
	if !o.Enabled() {
		return false
	}
	if active, ok := o.cache.Get(dirPath); ok {
		return active
	}

	logger := logging.WithContext(services.WithPath(ctx, dirPath), o.logger)
	torrents, err := o.lister.Torrents(ctx)
	if err != nil {
		logging.WarnWithContext(logger, "transfer lookup failed", "transfer_lookup_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "directory treated as inactive"),
		)
		return false
	}

	active := false
	for _, t := range torrents {
		if !Matches(t, dirPath) {
			continue
		}
		if t.Active() {
			active = true
			break
		}
	}
	o.cache.Add(dirPath, active)
	logger.Debug("transfer lookup",
		logging.Bool("active", active),
		logging.Int("torrents", len(torrents)),
	)
	return active
}

// Matches reports whether torrent t owns dirPath.
func Matches(t Torrent, dirPath string) bool {
	if t.Name == "" {
		return false
	}
	cleaned := filepath.Clean(dirPath)
	if t.DownloadDir != "" && filepath.Join(t.DownloadDir, t.Name) == cleaned {
		return true
	}
	return t.Name == filepath.Base(cleaned)
}
