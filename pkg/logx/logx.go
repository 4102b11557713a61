// Package logx provides structured JSON logging with correlation IDs,
// grounded on pkg/middleware/logging.go's request-logging shape (JSON
// entry, stdlib log.Printf, google/uuid correlation IDs), generalized
// into a reusable logger handle instead of an HTTP-middleware-only
// helper, and extended with WARN/ERROR mirroring into a kvstore.Store so
// operators can inspect recent failures without a log aggregator.
package logx

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"encore.app/pkg/kvstore"
)

// Level is one of the four structured-log severities.
type Level string

const (
	LevelDebug Level = "DEBUG"
	LevelInfo  Level = "INFO"
	LevelWarn  Level = "WARN"
	LevelError Level = "ERROR"
)

// mirrorTTL is how long WARN/ERROR entries survive in the KV mirror.
const mirrorTTL = 7 * 24 * time.Hour

// entry is one structured log record, written synchronously to stderr
// and, for WARN/ERROR, mirrored into the KV store.
type entry struct {
	ID            string         `json:"id"`
	Timestamp     string         `json:"timestamp"`
	Level         Level          `json:"level"`
	Message       string         `json:"message"`
	Context       map[string]any `json:"context,omitempty"`
	Error         string         `json:"error,omitempty"`
	CorrelationID string         `json:"correlationId,omitempty"`
}

// Logger is a correlation-ID-scoped structured logger. The zero value is
// not usable; construct one with New (NewCorrelationID mints an ID for
// it).
type Logger struct {
	correlationID string
	mirror        kvstore.Store
}

// New returns a Logger carrying correlationID. mirror may be nil, in
// which case WARN/ERROR entries are only written to stderr.
func New(correlationID string, mirror kvstore.Store) *Logger {
	return &Logger{correlationID: correlationID, mirror: mirror}
}

// NewCorrelationID mints a fresh correlation ID for a new logical
// request, matching the uuid.New().String() convention used for
// request IDs elsewhere in this codebase.
func NewCorrelationID() string {
	return uuid.New().String()
}

// CorrelationID returns the logger's correlation ID.
func (l *Logger) CorrelationID() string { return l.correlationID }

func (l *Logger) log(ctx context.Context, level Level, err error, format string, args ...any) {
	e := entry{
		ID:            fmt.Sprintf("%d_%06d", time.Now().UnixNano(), rand.Intn(1_000_000)),
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		Level:         level,
		Message:       fmt.Sprintf(format, args...),
		CorrelationID: l.correlationID,
	}
	if err != nil {
		e.Error = err.Error()
	}

	data, marshalErr := json.Marshal(e)
	if marshalErr != nil {
		log.Printf("[ERROR] logx: failed to marshal log entry: %v", marshalErr)
		return
	}
	log.Printf("[%s] %s", level, data)

	if (level == LevelWarn || level == LevelError) && l.mirror != nil && ctx != nil {
		key := fmt.Sprintf("logs_%s_%06d", time.Now().UTC().Format("20060102T150405.000Z"), rand.Intn(1_000_000))
		if putErr := l.mirror.Put(ctx, key, data, mirrorTTL); putErr != nil {
			log.Printf("[ERROR] logx: failed to mirror log entry to KV: %v", putErr)
		}
	}
}

// Debugf logs at DEBUG; never mirrored to KV.
func (l *Logger) Debugf(format string, args ...any) {
	l.log(nil, LevelDebug, nil, format, args...)
}

// Infof logs at INFO; never mirrored to KV.
func (l *Logger) Infof(format string, args ...any) {
	l.log(nil, LevelInfo, nil, format, args...)
}

// Warnf logs at WARN and mirrors the entry to KV if ctx and a mirror
// store are both available.
func (l *Logger) Warnf(format string, args ...any) {
	l.log(context.Background(), LevelWarn, nil, format, args...)
}

// Errorf logs at ERROR with the underlying error attached, and mirrors
// the entry to KV if a mirror store is configured.
func (l *Logger) Errorf(err error, format string, args ...any) {
	l.log(context.Background(), LevelError, err, format, args...)
}

// WarnfCtx is like Warnf but mirrors under ctx's deadline/cancellation
// instead of a detached background context.
func (l *Logger) WarnfCtx(ctx context.Context, format string, args ...any) {
	l.log(ctx, LevelWarn, nil, format, args...)
}

// ErrorfCtx is like Errorf but mirrors under ctx's deadline/cancellation
// instead of a detached background context.
func (l *Logger) ErrorfCtx(ctx context.Context, err error, format string, args ...any) {
	l.log(ctx, LevelError, err, format, args...)
}
