package database

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/ian-yc-kim/fs-flowstate-svc/internal/metrics"
)

// MetricsTracer implements pgx.QueryTracer to collect per-query metrics.
type MetricsTracer struct{}

var _ pgx.QueryTracer = (*MetricsTracer)(nil)

type queryContextKey struct{}

type queryContext struct {
	startTime time.Time
	queryName string
}

func (t *MetricsTracer) TraceQueryStart(ctx context.Context, conn *pgx.Conn, data pgx.TraceQueryStartData) context.Context {
	qctx := queryContext{
		startTime: time.Now(),
		queryName: extractQueryName(data.SQL),
	}
	return context.WithValue(ctx, queryContextKey{}, qctx)
}

func (t *MetricsTracer) TraceQueryEnd(ctx context.Context, conn *pgx.Conn, data pgx.TraceQueryEndData) {
	qctx, ok := ctx.Value(queryContextKey{}).(queryContext)
	if !ok {
		return
	}

	metrics.DBQueryDuration.WithLabelValues(qctx.queryName).Observe(time.Since(qctx.startTime).Seconds())

	// ErrNoRows is a normal lookup miss, not a database failure.
	if data.Err != nil && !errors.Is(data.Err, pgx.ErrNoRows) {
		metrics.DBErrorsTotal.WithLabelValues(qctx.queryName).Inc()
	}
}

// extractQueryName reduces SQL to its leading verb (select, insert, ...)
// to keep metric cardinality bounded.
func extractQueryName(sql string) string {
	fields := strings.Fields(sql)
	if len(fields) == 0 {
		return "unknown"
	}
	verb := strings.ToLower(fields[0])
	if len(verb) > 20 {
		verb = verb[:20]
	}
	return verb
}
