// Package storage persists the downloads ledger.
//
// The rendering engine keeps its own history and cache inside its profile
// directory; the ledger only records downloads initiated through the
// shell, so the user can review them and clear-on-exit can wipe them.
package storage
