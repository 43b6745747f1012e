package telemetry

import (
	"time"

	"go.uber.org/zap"
)

const (
	FieldEvent      = "event"
	FieldRecordID   = "recordId"
	FieldQuery      = "query"
	FieldRevision   = "revision"
	FieldDurationMs = "duration_ms"
	FieldRequestID  = "request_id"
)

const (
	EventRecommendFailed = "recommend_failed"
	EventIndexBuilt      = "index_built"
	EventCatalogReload   = "catalog_reload"
	EventReloadFailed    = "catalog_reload_failed"
	EventRetentionRun    = "retention_run"
	EventRetentionFailed = "retention_failed"
)

func EventField(event string) zap.Field {
	return zap.String(FieldEvent, event)
}

func RecordIDField(id string) zap.Field {
	return zap.String(FieldRecordID, id)
}

func QueryField(query string) zap.Field {
	return zap.String(FieldQuery, query)
}

func RevisionField(revision uint64) zap.Field {
	return zap.Uint64(FieldRevision, revision)
}

func DurationField(duration time.Duration) zap.Field {
	return zap.Int64(FieldDurationMs, duration.Milliseconds())
}

func RequestIDField(value string) zap.Field {
	return zap.String(FieldRequestID, value)
}
