// Package memory provides an in-memory settlement.Store.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/warp/course-settlement/generic"
	"github.com/warp/course-settlement/schedule"
	"github.com/warp/course-settlement/settlement"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu       sync.RWMutex
	users    map[generic.DocumentID]settlement.User
	courses  map[generic.DocumentID]settlement.Course
	invoices map[string]settlement.Invoice

	// references stored by id, resolved on read like the SQL store
	courseTeacher map[generic.DocumentID]generic.DocumentID
	invoiceCourse map[string]generic.DocumentID
	invoiceOwner  map[string]generic.DocumentID
}

var _ settlement.Store = (*Memory)(nil)

func NewMemory() *Memory {
	m := &Memory{}
	m.init()
	return m
}

func (m *Memory) init() {
	m.users = make(map[generic.DocumentID]settlement.User)
	m.courses = make(map[generic.DocumentID]settlement.Course)
	m.invoices = make(map[string]settlement.Invoice)
	m.courseTeacher = make(map[generic.DocumentID]generic.DocumentID)
	m.invoiceCourse = make(map[string]generic.DocumentID)
	m.invoiceOwner = make(map[string]generic.DocumentID)
}

func (m *Memory) SaveUser(_ context.Context, u settlement.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.DocumentID] = u
	return nil
}

func (m *Memory) GetUser(_ context.Context, id generic.DocumentID) (*settlement.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", id, generic.ErrUserNotFound)
	}
	return &u, nil
}

func (m *Memory) ListUsers(_ context.Context) ([]settlement.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]settlement.User, 0, len(m.users))
	for _, u := range m.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].DocumentID < out[j].DocumentID
	})
	return out, nil
}

func (m *Memory) SaveCourse(_ context.Context, c settlement.Course) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.courseTeacher[c.DocumentID] = c.TeacherID()
	c.Teacher = nil
	c.Weekdays = append([]string(nil), c.Weekdays...)
	m.courses[c.DocumentID] = c
	return nil
}

func (m *Memory) GetCourse(_ context.Context, id generic.DocumentID) (*settlement.Course, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c := m.courseLocked(id)
	if c == nil {
		return nil, fmt.Errorf("course %s: %w", id, generic.ErrCourseNotFound)
	}
	return c, nil
}

func (m *Memory) ListCourses(_ context.Context) ([]settlement.Course, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]settlement.Course, 0, len(m.courses))
	for id := range m.courses {
		out = append(out, *m.courseLocked(id))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Title != out[j].Title {
			return out[i].Title < out[j].Title
		}
		return out[i].DocumentID < out[j].DocumentID
	})
	return out, nil
}

// courseLocked returns a copy with the teacher resolved, nil if unknown.
func (m *Memory) courseLocked(id generic.DocumentID) *settlement.Course {
	c, ok := m.courses[id]
	if !ok {
		return nil
	}
	c.Weekdays = append([]string(nil), c.Weekdays...)
	if tid := m.courseTeacher[id]; tid != "" {
		if u, ok := m.users[tid]; ok {
			c.Teacher = &u
		} else {
			c.Teacher = &settlement.User{DocumentID: tid}
		}
	}
	return &c
}

func (m *Memory) SaveInvoice(_ context.Context, inv settlement.Invoice) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.invoiceCourse[inv.ID] = inv.CourseID()
	if inv.Owner != nil {
		m.invoiceOwner[inv.ID] = inv.Owner.DocumentID
	} else {
		delete(m.invoiceOwner, inv.ID)
	}
	inv.Course = nil
	inv.Owner = nil
	if inv.Attendance != nil {
		marks := make(map[string]schedule.AttendanceStatus, len(inv.Attendance))
		for k, v := range inv.Attendance {
			marks[k] = v
		}
		inv.Attendance = marks
	}
	m.invoices[inv.ID] = inv
	return nil
}

func (m *Memory) GetInvoice(_ context.Context, id string) (*settlement.Invoice, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	inv := m.invoiceLocked(id)
	if inv == nil {
		return nil, fmt.Errorf("invoice %s: %w", id, generic.ErrInvoiceNotFound)
	}
	return inv, nil
}

func (m *Memory) ListInvoices(_ context.Context, filter settlement.InvoiceFilter) ([]*settlement.Invoice, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*settlement.Invoice
	for id := range m.invoices {
		if filter.CourseID != "" && m.invoiceCourse[id] != filter.CourseID {
			continue
		}
		if filter.OwnerID != "" && m.invoiceOwner[id] != filter.OwnerID {
			continue
		}
		out = append(out, m.invoiceLocked(id))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartDate.Equal(out[j].StartDate) {
			return out[i].StartDate.Before(out[j].StartDate)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *Memory) invoiceLocked(id string) *settlement.Invoice {
	inv, ok := m.invoices[id]
	if !ok {
		return nil
	}
	if cid := m.invoiceCourse[id]; cid != "" {
		inv.Course = m.courseLocked(cid)
	}
	if oid := m.invoiceOwner[id]; oid != "" {
		if u, ok := m.users[oid]; ok {
			inv.Owner = &u
		} else {
			inv.Owner = &settlement.User{DocumentID: oid}
		}
	}
	return &inv
}

func (m *Memory) Reset(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.init()
	return nil
}
