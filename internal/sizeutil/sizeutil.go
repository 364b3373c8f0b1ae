// Package sizeutil holds the byte-size estimation helpers shared by the
// pipeline stages.
package sizeutil

// gzipJSRatio approximates gzip output over minified JavaScript. Real
// compression ratios vary by content; the pipeline only needs a consistent
// estimate so relative comparisons stay meaningful.
const gzipJSRatio = 0.3

// assumedBandwidthBps is the 10 Mbps reference connection the load-time
// projections assume.
const assumedBandwidthBps = 10_000_000

// EstimateCompressedSize projects the on-the-wire size of a bundle.
func EstimateCompressedSize(size int64) int64 {
	if size <= 0 {
		return 0
	}
	compressed := int64(float64(size) * gzipJSRatio)
	if compressed < 1 {
		compressed = 1
	}
	return compressed
}

// EstimateLoadTimeMS projects the transfer time for compressed bytes on the
// reference connection.
func EstimateLoadTimeMS(compressedSize int64) int64 {
	if compressedSize <= 0 {
		return 0
	}
	bits := compressedSize * 8
	ms := bits * 1000 / assumedBandwidthBps
	if ms < 1 {
		ms = 1
	}
	return ms
}

// CeilDiv returns ceil(a/b) for positive b.
func CeilDiv(a, b int) int {
	if b <= 0 {
		return 0
	}
	return (a + b - 1) / b
}
