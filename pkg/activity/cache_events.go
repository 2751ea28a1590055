package activity

import (
	"strings"
	"time"
)

const (
	VerbRecordCommitted   = "record.committed"
	VerbVersionRegression = "record.version_regression"
	VerbRefreshStarted    = "refresh.started"
	VerbRefreshCompleted  = "refresh.completed"
	VerbRefreshFailed     = "refresh.failed"
	VerbRefreshDiscarded  = "refresh.discarded"
	VerbNegativeCached    = "fetch.negative_cached"

	ObjectTypeRecord    = "record"
	ObjectTypeSelection = "selection"
)

// RecordEventInput carries the fields shared by record level events.
type RecordEventInput struct {
	Identity   string
	PassID     string
	Field      string
	Version    any
	OldVersion any
	Fields     []string
	Metadata   map[string]any
	OccurredAt time.Time
}

// BuildRecordCommittedEvent describes the final commit of one record at the
// end of an ingestion pass.
func BuildRecordCommittedEvent(input RecordEventInput) Event {
	event := buildRecordEvent(VerbRecordCommitted, input)
	if len(input.Fields) > 0 {
		event.Metadata = ensureMetadata(event.Metadata)
		event.Metadata["fields"] = append([]string{}, input.Fields...)
	}
	return event
}

// BuildVersionRegressionEvent describes a field write that was dropped
// because the stored record carries a newer version.
func BuildVersionRegressionEvent(input RecordEventInput) Event {
	event := buildRecordEvent(VerbVersionRegression, input)
	if input.Field != "" {
		event.Metadata = ensureMetadata(event.Metadata)
		event.Metadata["field"] = input.Field
	}
	return event
}

func buildRecordEvent(verb string, input RecordEventInput) Event {
	metadata := cloneMap(input.Metadata)
	if input.Version != nil {
		metadata = ensureMetadata(metadata)
		metadata["version"] = input.Version
	}
	if input.OldVersion != nil {
		metadata = ensureMetadata(metadata)
		metadata["old_version"] = input.OldVersion
	}
	return Event{
		Verb:       verb,
		ObjectType: ObjectTypeRecord,
		ObjectID:   strings.TrimSpace(input.Identity),
		PassID:     strings.TrimSpace(input.PassID),
		Metadata:   metadata,
		OccurredAt: input.OccurredAt,
	}
}

// SelectionEventInput identifies one cached (identity, field selection) pair.
type SelectionEventInput struct {
	Key        string
	Identity   string
	Status     int
	Err        error
	Metadata   map[string]any
	OccurredAt time.Time
}

// BuildRefreshEvent describes a background refresh transition. verb must be
// one of the refresh verbs.
func BuildRefreshEvent(verb string, input SelectionEventInput) Event {
	return buildSelectionEvent(verb, input)
}

// BuildNegativeCachedEvent describes a transport failure stored as a negative
// result.
func BuildNegativeCachedEvent(input SelectionEventInput) Event {
	return buildSelectionEvent(VerbNegativeCached, input)
}

func buildSelectionEvent(verb string, input SelectionEventInput) Event {
	metadata := cloneMap(input.Metadata)
	if input.Identity != "" {
		metadata = ensureMetadata(metadata)
		metadata["identity"] = input.Identity
	}
	if input.Status != 0 {
		metadata = ensureMetadata(metadata)
		metadata["status"] = input.Status
	}
	if input.Err != nil {
		metadata = ensureMetadata(metadata)
		metadata["error"] = input.Err.Error()
	}
	objectID := strings.TrimSpace(input.Key)
	if objectID == "" {
		objectID = strings.TrimSpace(input.Identity)
	}
	return Event{
		Verb:       verb,
		ObjectType: ObjectTypeSelection,
		ObjectID:   objectID,
		Metadata:   metadata,
		OccurredAt: input.OccurredAt,
	}
}

func ensureMetadata(meta map[string]any) map[string]any {
	if meta == nil {
		return map[string]any{}
	}
	return meta
}
