package graphcache

import (
	"encoding/json"
)

// PassReport summarizes one ingestion pass for logging or diagnostics.
type PassReport struct {
	PassID             string       `json:"pass_id"`
	ServerRequestCount int          `json:"server_request_count"`
	References         []Reference  `json:"references"`
	Committed          []Identity   `json:"committed"`
	Regressions        []Regression `json:"regressions,omitempty"`
}

// ToJSON serialises the report into JSON for logging or transport helpers.
func (r PassReport) ToJSON() ([]byte, error) {
	type alias PassReport
	return json.Marshal(alias(r))
}

// PassReportFromJSON deserialises a payload produced by ToJSON.
func PassReportFromJSON(payload []byte) (PassReport, error) {
	type alias PassReport
	var report alias
	if err := json.Unmarshal(payload, &report); err != nil {
		return PassReport{}, err
	}
	return PassReport(report), nil
}
