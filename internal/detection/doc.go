// Package detection submits stored evidence frames to the external image
// detection service.
//
// The interaction is deliberately one-way: POST the evidence id and relative
// file path with a short timeout, ignore the response. The service writes its
// analysis back to the evidence row out-of-band; this worker neither waits
// for nor validates that write.
package detection
