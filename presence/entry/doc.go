// Package entry implements the entry/exit decision policy: a linear gate
// sequence of library-hours check, per-user debounce, exit geofence
// validation, confidence scoring, and the auto/manual/reject decision.
//
// All domain rejections are returned as structured errors; unexpected I/O
// failures propagate to the caller unmodified. The debounce check has a
// read-then-write race between near-simultaneous requests of the same user;
// this is accepted and intentionally not serialized here.
package entry
