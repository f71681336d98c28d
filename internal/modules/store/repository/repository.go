package repository

import (
	"github.com/reshetovitsme/channel-admin-bot/internal/modules/store/domain"
)

// Store defines the interface for state persistence. The document is
// read and written as a single unit, a global block and the queue cursor
// it affects can never go out of sync across partial writes.
type Store interface {
	// View runs fn with read access to the current document. Nothing
	// reachable from the document may be mutated through it; Update works
	// on a copy and swaps it in, so values read here are stable snapshots
	// even when kept past the call.
	View(fn func(doc *domain.Document))

	// Update runs fn against a working copy of the document and persists
	// the result. When fn returns an error nothing is changed on disk or
	// in memory.
	Update(fn func(doc *domain.Document) error) error
}
