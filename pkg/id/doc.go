// Package id generates sortable 128-bit identifiers, used as job IDs by
// producers that do not bring their own.
//
// The ID is 16 bytes big-endian: [8 bytes ms_timestamp][8 bytes sequence],
// so byte order is creation order within a process. String renders 32 hex
// characters and Parse reverses it.
//
//	jobID := id.New().String()
package id
