// Package syncer keeps a cache.Cache in step with the remote calendar service.
//
// IncrementalSync mirrors one calendar: it requests a full listing when no
// sync token is stored and a delta since the token otherwise, applies every
// page as it arrives, and stores the sync token of the final page. Engine
// runs a whole pass: calendar list, every calendar in list order, the colour
// palette, then persistence.
//
// A failing calendar aborts the pass. Mutations already applied stay in the
// in-memory cache, nothing is persisted, and the returned *SyncError names
// the calendar and its index in the list. IsTransient tells callers whether
// retrying later is worthwhile.
package syncer
