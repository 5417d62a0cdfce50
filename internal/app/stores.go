package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/fairyhunter13/ai-interview-coach/internal/adapter/repo/memory"
	"github.com/fairyhunter13/ai-interview-coach/internal/adapter/repo/postgres"
	"github.com/fairyhunter13/ai-interview-coach/internal/adapter/repo/redisstore"
	"github.com/fairyhunter13/ai-interview-coach/internal/config"
	"github.com/fairyhunter13/ai-interview-coach/internal/domain"
)

// Stores is the persistence backend selected by STORE_DRIVER.
type Stores struct {
	Resumes    domain.ResumeRepository
	Interviews domain.InterviewRepository
	Settings   domain.SettingsRepository
	Ping       func(ctx context.Context) error
	// Redis is set only for the redis driver; the completion rate limiter
	// keeps its bucket there.
	Redis redis.Scripter
	Close func()
}

// OpenStores connects to the configured backend. Postgres tables are
// created on open.
func OpenStores(ctx context.Context, cfg config.Config) (Stores, error) {
	switch cfg.StoreDriver {
	case config.StoreMemory, "":
		st := memory.NewStore()
		return Stores{
			Resumes:    st.Resumes(),
			Interviews: st.Interviews(),
			Settings:   st.Settings(),
			Ping:       st.Ping,
			Close:      func() {},
		}, nil
	case config.StoreRedis:
		st, rdb, err := redisstore.Open(cfg.RedisURL, cfg.RedisPrefix)
		if err != nil {
			return Stores{}, err
		}
		if err := st.Ping(ctx); err != nil {
			_ = rdb.Close()
			return Stores{}, fmt.Errorf("op=app.OpenStores: redis ping: %w", err)
		}
		return Stores{
			Resumes:    st.Resumes(),
			Interviews: st.Interviews(),
			Settings:   st.Settings(),
			Ping:       st.Ping,
			Redis:      rdb,
			Close: func() {
				if err := rdb.Close(); err != nil {
					slog.Error("failed to close redis client", slog.Any("error", err))
				}
			},
		}, nil
	case config.StorePostgres:
		pool, err := postgres.NewPool(ctx, cfg.DBURL)
		if err != nil {
			return Stores{}, fmt.Errorf("op=app.OpenStores: %w", err)
		}
		if err := postgres.Migrate(ctx, pool); err != nil {
			pool.Close()
			return Stores{}, err
		}
		return Stores{
			Resumes:    postgres.NewResumeRepo(pool),
			Interviews: postgres.NewInterviewRepo(pool),
			Settings:   postgres.NewSettingsRepo(pool),
			Ping:       pool.Ping,
			Close:      pool.Close,
		}, nil
	}
	return Stores{}, fmt.Errorf("%w: unknown store driver %q", domain.ErrInvalidArgument, cfg.StoreDriver)
}
