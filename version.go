package graphcache

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Version orders writes to one entity. ETag is the server supplied entity
// version when the payload carries one; Stamp is the ingestion time in Unix
// milliseconds and only breaks ties between equal ETags.
type Version struct {
	ETag  int64 `json:"etag,omitempty"`
	Stamp int64 `json:"stamp"`
}

// Compare returns -1, 0 or 1 as v is older than, equal to or newer than other.
func (v Version) Compare(other Version) int {
	switch {
	case v.ETag < other.ETag:
		return -1
	case v.ETag > other.ETag:
		return 1
	case v.Stamp < other.Stamp:
		return -1
	case v.Stamp > other.Stamp:
		return 1
	default:
		return 0
	}
}

// After reports whether v is strictly newer than other.
func (v Version) After(other Version) bool {
	return v.Compare(other) > 0
}

func (v Version) IsZero() bool {
	return v.ETag == 0 && v.Stamp == 0
}

func (v Version) String() string {
	return fmt.Sprintf("%d/%d", v.ETag, v.Stamp)
}

// MaxVersion returns the newer of a and b.
func MaxVersion(a, b Version) Version {
	if b.After(a) {
		return b
	}
	return a
}

// versionKeys are payload keys that may carry a server entity version.
var versionKeys = []string{"weakEtag", "version"}

// etagFrom extracts a server version from obj. The key that supplied it is
// returned so the normalizer can leave it out of the record fields.
func etagFrom(obj map[string]any) (int64, string) {
	for _, key := range versionKeys {
		raw, ok := obj[key]
		if !ok {
			continue
		}
		if n, ok := asInt64(raw); ok {
			return n, key
		}
	}
	return 0, ""
}

func asInt64(value any) (int64, bool) {
	switch v := value.(type) {
	case int:
		return int64(v), true
	case int32:
		return int64(v), true
	case int64:
		return v, true
	case float64:
		if v != float64(int64(v)) {
			return 0, false
		}
		return int64(v), true
	case json.Number:
		n, err := v.Int64()
		return n, err == nil
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		return n, err == nil
	default:
		return 0, false
	}
}
