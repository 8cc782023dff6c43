/*
store.go - Persistence interface for course and invoice snapshots

PURPOSE:
  The calculators work on in-memory snapshots. Store is where the HTTP layer
  keeps the snapshots it was given (imported from the CMS or loaded from a
  demo scenario) between requests. It owns no derived data: reports are
  recomputed on every read.

IMPLEMENTATIONS:
  - store/sqlite: SQLite, used by the server
  - store/memory: In-memory, for tests and dev

SEE ALSO:
  - report.go: BuildReport consumes ListInvoices output
*/
package settlement

import (
	"context"

	"github.com/warp/course-settlement/generic"
)

// InvoiceFilter narrows ListInvoices. Empty fields match everything.
type InvoiceFilter struct {
	CourseID generic.DocumentID
	OwnerID  generic.DocumentID
}

// Store persists snapshots. Invoices are returned with Course (and its
// Teacher) and Owner resolved.
type Store interface {
	SaveUser(ctx context.Context, u User) error
	GetUser(ctx context.Context, id generic.DocumentID) (*User, error)
	ListUsers(ctx context.Context) ([]User, error)

	SaveCourse(ctx context.Context, c Course) error
	GetCourse(ctx context.Context, id generic.DocumentID) (*Course, error)
	ListCourses(ctx context.Context) ([]Course, error)

	SaveInvoice(ctx context.Context, inv Invoice) error
	GetInvoice(ctx context.Context, id string) (*Invoice, error)
	ListInvoices(ctx context.Context, filter InvoiceFilter) ([]*Invoice, error)

	// Reset removes every snapshot.
	Reset(ctx context.Context) error
}
