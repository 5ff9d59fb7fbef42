// Package sink delivers identification events to their configured
// destinations: an SSE broadcast stream, a rate-limited HTTP POST
// webhook, and/or a styled CLI renderer.
package sink

import "time"

// Match mirrors identifier.MatchInfo in the wire/display schema, kept
// independent of the identifier package so sinks only depend on plain
// data.
type Match struct {
	Title       string  `json:"title"`
	Probability float64 `json:"probability"`
	Position    float64 `json:"position_seconds"`
}

// Event is the schema posted to subscribers: one entry per segment
// ingested by the identifier, carrying up to three ranked candidates.
type Event struct {
	Src          string    `json:"ip_src"`
	Dst          string    `json:"ip_dst"`
	CapturedSize int64     `json:"captured_segment"`
	Elapsed      float64   `json:"elapsed"`
	State        string    `json:"state"`
	Best         *Match    `json:"match,omitempty"`
	SecondBest   *Match    `json:"match_2,omitempty"`
	ThirdBest    *Match    `json:"match_3,omitempty"`
	At           time.Time `json:"at"`
}
