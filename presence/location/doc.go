// Package location implements mode-aware RFID tag resolution: tag to book,
// book to shelf, with duplicate-scan suppression and a TTL cache for the
// reader-to-shelf mapping used in automatic mode.
//
// The scanning mode is a runtime configuration toggle, threaded into ScanTag
// as an explicit Mode parameter rather than dispatched on types.
package location
