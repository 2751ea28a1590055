package graphcache

import "sort"

// MergeOutcome reports which rule decided a MergeField call.
type MergeOutcome int

const (
	// OutcomeIncoming means the incoming value replaced the existing one.
	OutcomeIncoming MergeOutcome = iota
	// OutcomeDisplayPreserved means the incoming value won but the existing
	// display value was kept because the incoming one was dropped upstream.
	OutcomeDisplayPreserved
	// OutcomeKeptExisting means an empty write from an older version was
	// rejected.
	OutcomeKeptExisting
)

func (o MergeOutcome) String() string {
	switch o {
	case OutcomeIncoming:
		return "incoming"
	case OutcomeDisplayPreserved:
		return "display_preserved"
	case OutcomeKeptExisting:
		return "kept_existing"
	default:
		return "unknown"
	}
}

// MergeField decides the stored value of one field. Rules apply in order:
//
//  1. nothing stored: incoming wins.
//  2. incoming wrapper lost its display value while carrying a real value and
//     a display value is stored: incoming wins but keeps the stored display.
//  3. incoming is null or a placeholder link and the stored record is newer:
//     the stored field is kept whole.
//  4. otherwise incoming wins.
func MergeField(existing *FieldValue, incoming FieldValue, existingVersion, incomingVersion Version) (FieldValue, MergeOutcome) {
	if existing == nil {
		return incoming, OutcomeIncoming
	}
	if displayDropped(incoming) && existing.DisplayValue != nil {
		merged := incoming
		merged.DisplayValue = existing.DisplayValue
		return merged, OutcomeDisplayPreserved
	}
	if isEmptyValue(incoming.Value) && existingVersion.After(incomingVersion) {
		return *existing, OutcomeKeptExisting
	}
	return incoming, OutcomeIncoming
}

// displayDropped matches a {value, displayValue: null} wrapper with a real
// value. Bare values never carried a display value, so they are not
// anomalies.
func displayDropped(v FieldValue) bool {
	return !v.Direct && v.DisplayValue == nil && v.Value != nil && !isEmptyValue(v.Value)
}

// isEmptyValue is true for null and for links that were never dereferenced.
func isEmptyValue(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case Link:
		return v.Pending
	default:
		return false
	}
}

// mergeRecord folds one pending write into existing. Fields the write does
// not carry are kept, so repeated partial writes accumulate.
func mergeRecord(existing *Record, write PendingWrite) (Record, []Regression) {
	if existing == nil {
		out := Record{
			Identity:  write.Identity,
			Kind:      write.Kind,
			ID:        write.ID,
			Fields:    make(map[string]FieldValue, len(write.Fields)),
			Version:   write.Version,
			FetchedAt: write.Version.Stamp,
		}
		for name, value := range write.Fields {
			out.Fields[name] = value
		}
		return out, nil
	}

	out := existing.Clone()
	if out.Fields == nil {
		out.Fields = make(map[string]FieldValue, len(write.Fields))
	}
	if write.Kind != "" {
		out.Kind = write.Kind
	}
	if write.ID != "" {
		out.ID = write.ID
	}

	var regressions []Regression
	for _, name := range sortedFieldNames(write.Fields) {
		incoming := write.Fields[name]
		var current *FieldValue
		if stored, ok := out.Fields[name]; ok {
			current = &stored
		}
		merged, outcome := MergeField(current, incoming, existing.Version, write.Version)
		if outcome == OutcomeKeptExisting {
			regressions = append(regressions, Regression{
				Identity: write.Identity,
				Field:    name,
				Existing: existing.Version,
				Incoming: write.Version,
			})
		}
		out.Fields[name] = merged
	}

	out.Version = MaxVersion(existing.Version, write.Version)
	if write.Version.Stamp > out.FetchedAt {
		out.FetchedAt = write.Version.Stamp
	}
	out.dropMissingFor(write.Fields)
	return out, regressions
}

func sortedFieldNames(fields map[string]FieldValue) []string {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
