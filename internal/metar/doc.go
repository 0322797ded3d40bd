// Package metar decodes and validates aviation weather reports (METAR, SPECI
// and TAF) in the fixed-token grammar of WMO FM 15/16/51.
//
// # Engines
//
// Two independent engines share a single read-only [Lexicon]:
//
//   - [Decoder] turns a report into an [Observation] with normalized units.
//   - [Validator] walks the same tokens through an ordered cascade of
//     positional and lexical checks and reports the first violation.
//
// Both start from [Lexicon.Segment], which splits a report into header, body,
// trend and remarks spans. Semantic fields are only ever read from the body,
// so trend and remarks content never leaks into decoded values.
//
// # Report Layout
//
//	METAR ZBAA 311400Z 01002MPS CAVOK 14/12 Q1009 NOSIG RMK ...=
//	└──────header─────┘└──────────body──────────┘└trend┘└remarks┘
//
// # Units
//
// Wind speed and gust are meters per second (knots are multiplied by
// 0.5144444 and truncated). Visibility is meters, with 99999 standing for
// 10 km or more and 50 for less than 50 m. Pressure is hectopascals; inHg
// groups such as A2992 are converted with 33.8638 hPa per inHg. Cloud heights
// are encoded hundreds of feet scaled at 20 m per unit.
//
// The year and month are not part of the grammar; callers supply them.
package metar
