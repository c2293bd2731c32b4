package model

import "time"

// TimestampLayout renders instants as ISO-8601 UTC with millisecond
// precision, e.g. 2024-05-01T10:04:05.123Z.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// ReportRecord is one entry of the report log. Field names match the
// persisted JSON document.
type ReportRecord struct {
	Waktu string `json:"waktu"`
	Path  string `json:"path"`
	IP    string `json:"ip"`
}

// NewReportRecord stamps a record with the given instant in UTC.
func NewReportRecord(at time.Time, path, ip string) ReportRecord {
	return ReportRecord{
		Waktu: FormatTimestamp(at),
		Path:  path,
		IP:    ip,
	}
}

// FormatTimestamp formats t using TimestampLayout.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}
