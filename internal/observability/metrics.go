package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"gorm.io/gorm"
)

// Domain event labels for DomainEvents.
const (
	EventSignup         = "signup"
	EventLogin          = "login"
	EventLoginFailed    = "login_failed"
	EventLogout         = "logout"
	EventMessageCreated = "message_created"
	EventMessageDeleted = "message_deleted"
	EventFollow         = "follow"
	EventUnfollow       = "unfollow"
	EventLike           = "like"
	EventUnlike         = "unlike"
	EventAccountDeleted = "account_deleted"
	EventUnauthorized   = "unauthorized"
)

var (
	// DomainEvents counts state changes and auth outcomes by event.
	DomainEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "warbler_domain_events_total",
		Help: "Total number of domain events by type",
	}, []string{"event"})

	// RedisErrorRate counts Redis errors by operation type.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "warbler_redis_error_rate_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "warbler_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})
)

// RecordEvent increments the counter for a domain event.
func RecordEvent(event string) {
	DomainEvents.WithLabelValues(event).Inc()
}

const queryStartKey = "observability:query_start"

// RegisterDatabaseMetrics installs GORM callbacks that record query latency per operation and table.
func RegisterDatabaseMetrics(db *gorm.DB) error {
	before := func(tx *gorm.DB) {
		tx.InstanceSet(queryStartKey, time.Now())
	}
	after := func(operation string) func(*gorm.DB) {
		return func(tx *gorm.DB) {
			v, ok := tx.InstanceGet(queryStartKey)
			if !ok {
				return
			}
			start, ok := v.(time.Time)
			if !ok {
				return
			}
			table := tx.Statement.Table
			if table == "" {
				table = "unknown"
			}
			DatabaseQueryLatency.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
		}
	}

	cb := db.Callback()
	steps := []struct {
		name     string
		register func() error
	}{
		{"create", func() error {
			if err := cb.Create().Before("gorm:create").Register("observability:before_create", before); err != nil {
				return err
			}
			return cb.Create().After("gorm:create").Register("observability:after_create", after("create"))
		}},
		{"query", func() error {
			if err := cb.Query().Before("gorm:query").Register("observability:before_query", before); err != nil {
				return err
			}
			return cb.Query().After("gorm:query").Register("observability:after_query", after("query"))
		}},
		{"update", func() error {
			if err := cb.Update().Before("gorm:update").Register("observability:before_update", before); err != nil {
				return err
			}
			return cb.Update().After("gorm:update").Register("observability:after_update", after("update"))
		}},
		{"delete", func() error {
			if err := cb.Delete().Before("gorm:delete").Register("observability:before_delete", before); err != nil {
				return err
			}
			return cb.Delete().After("gorm:delete").Register("observability:after_delete", after("delete"))
		}},
		{"raw", func() error {
			if err := cb.Raw().Before("gorm:raw").Register("observability:before_raw", before); err != nil {
				return err
			}
			return cb.Raw().After("gorm:raw").Register("observability:after_raw", after("raw"))
		}},
	}

	for _, step := range steps {
		if err := step.register(); err != nil {
			return err
		}
	}
	return nil
}
