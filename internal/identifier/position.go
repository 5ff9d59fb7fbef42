package identifier

import "math"

// DefaultBufferTimeSeconds is the lookahead offset subtracted from the
// estimated playback position.
const DefaultBufferTimeSeconds = 60

// EstimatePosition approximates playback time for a matched window: the
// first matched window describes a point roughly W segments into
// playback, offset by buffered lookahead.
func EstimatePosition(windowStart uint32, fingerprintLen int, durationSeconds int64, segmentLength float64, w int, bufferTimeSeconds float64) float64 {
	if fingerprintLen == 0 {
		return 0
	}
	factor := float64(windowStart) / float64(fingerprintLen)
	return math.Round(factor*float64(durationSeconds)) + segmentLength*float64(w) - bufferTimeSeconds
}
