// Package domain models the reports that flow through the METAR ETL service.
//
// # Source messages
//
// Each message on the source topic carries one aviation weather report,
// either as plain text:
//
//	METAR ZBAA 311400Z 01002MPS CAVOK 14/12 Q1009 NOSIG=
//
// or wrapped in JSON:
//
//	{"report": "METAR ZBAA 311400Z ...", "year": 2024, "month": 3}
//
// # Report period
//
// A report only encodes the day of month of its issue time (ddhhmmZ). The
// year and month come, in order of preference, from the JSON payload, the
// report_year and report_month message headers, or the message timestamp.
// When falling back to the timestamp, a report day later than the timestamp
// day is taken to belong to the previous month, so a report issued at
// 312330Z and consumed on the 1st resolves to the month before.
//
// # Output
//
// Every accepted or rejected report produces one DecodedReport on the sink
// topic. Rejected reports carry the validator's verdict and no observation;
// NIL reports are marked with no_observation. IDs are derived from the
// station, issue time and report text so that replays are idempotent.
package domain
