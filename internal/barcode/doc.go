// Package barcode provides an optional second-opinion EAN-13 decoder used to
// cross-check results of the ray pipeline.
//
// The default build links no backend and NewBackend returns one that fails
// with ErrNoBackend. Enable the gozxing-backed decoder with the build tag
// `barcode_gozxing`.
//
// Example:
//
//	go build -tags=barcode_gozxing ./...
package barcode
