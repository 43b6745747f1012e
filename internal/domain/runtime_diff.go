package domain

import (
	"sort"
)

// RuntimeDiff captures runtime-level changes that can be applied dynamically or require restart.
type RuntimeDiff struct {
	DynamicFields         []string
	RestartRequiredFields []string
}

// IsEmpty reports whether the runtime diff contains any changes.
func (d RuntimeDiff) IsEmpty() bool {
	return len(d.DynamicFields) == 0 && len(d.RestartRequiredFields) == 0
}

// RequiresRestart reports whether any runtime changes require a restart.
func (d RuntimeDiff) RequiresRestart() bool {
	return len(d.RestartRequiredFields) > 0
}

// DiffRuntimeConfig compares runtime configs and returns a classification of
// changed fields. Per-call recommendation defaults are read from the current
// snapshot; everything else is bound when the runtime is built.
func DiffRuntimeConfig(prev, next RuntimeConfig) RuntimeDiff {
	diff := RuntimeDiff{}

	if prev.Recommend.Limit != next.Recommend.Limit {
		diff.DynamicFields = append(diff.DynamicFields, "recommend.limit")
	}
	if prev.Recommend.Threshold != next.Recommend.Threshold {
		diff.DynamicFields = append(diff.DynamicFields, "recommend.threshold")
	}
	if prev.Recommend.CacheTTLSeconds != next.Recommend.CacheTTLSeconds {
		diff.RestartRequiredFields = append(diff.RestartRequiredFields, "recommend.cacheTTLSeconds")
	}
	if prev.Recommend.Kind != next.Recommend.Kind {
		diff.RestartRequiredFields = append(diff.RestartRequiredFields, "recommend.kind")
	}
	if prev.Store != next.Store {
		diff.RestartRequiredFields = append(diff.RestartRequiredFields, "store")
	}
	if prev.Retention != next.Retention {
		diff.RestartRequiredFields = append(diff.RestartRequiredFields, "retention")
	}
	if prev.Observability != next.Observability {
		diff.RestartRequiredFields = append(diff.RestartRequiredFields, "observability")
	}
	if prev.Watch != next.Watch {
		diff.RestartRequiredFields = append(diff.RestartRequiredFields, "watch")
	}

	sort.Strings(diff.DynamicFields)
	sort.Strings(diff.RestartRequiredFields)
	return diff
}
