/*
Package sqlite provides a SQLite-backed implementation of settlement.Store.

PURPOSE:
  Keeps the user, course and invoice snapshots the server was given between
  requests. Derived figures (lesson dates, rent, payouts) are never stored;
  every report is recomputed from these rows.

KEY TABLES:
  users:    teachers and students
  courses:  schedule, interval, pricing; weekdays as a JSON array
  invoices: enrollment/payment records; attendance as a JSON object

AMOUNTS:
  Stored as TEXT decimal strings so values round-trip exactly.

DATES:
  Stored as "YYYY-MM-DD" TEXT, which sorts and compares correctly.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) so readers don't block.

USAGE:
  store, err := sqlite.New("./data/settlement.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - settlement/store.go: Interface definition
  - store/memory: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/warp/course-settlement/generic"
	"github.com/warp/course-settlement/schedule"
	"github.com/warp/course-settlement/settlement"
)

// Store implements settlement.Store using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

var _ settlement.Store = (*Store)(nil)

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// Each new connection to ":memory:" is a fresh database.
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS courses (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		weekdays_json TEXT NOT NULL,
		start_date TEXT,
		end_date TEXT,
		is_online BOOLEAN NOT NULL DEFAULT FALSE,
		rental_price TEXT NOT NULL DEFAULT '0',
		price_per_lesson TEXT NOT NULL DEFAULT '0',
		teacher_id TEXT,
		currency TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_courses_teacher
		ON courses(teacher_id);

	CREATE TABLE IF NOT EXISTS invoices (
		id TEXT PRIMARY KEY,
		document_id TEXT,
		owner_id TEXT,
		course_id TEXT,
		sum TEXT NOT NULL,
		currency TEXT NOT NULL,
		status_payment BOOLEAN NOT NULL DEFAULT FALSE,
		start_date TEXT,
		end_date TEXT,
		attendance_json TEXT,
		discount TEXT NOT NULL DEFAULT '0',
		bonus TEXT NOT NULL DEFAULT '0',
		referral_code TEXT,
		created_at TEXT NOT NULL
	);

	-- Period reports filter on start_date within a course
	CREATE INDEX IF NOT EXISTS idx_invoices_course_start
		ON invoices(course_id, start_date);
	CREATE INDEX IF NOT EXISTS idx_invoices_owner
		ON invoices(owner_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// USERS
// =============================================================================

// SaveUser inserts or replaces a user.
func (s *Store) SaveUser(ctx context.Context, u settlement.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO users (id, name, email, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			email = excluded.email
	`
	_, err := s.db.ExecContext(ctx, query,
		u.DocumentID, u.Name, nullString(u.Email),
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to save user: %w", err)
	}
	return nil
}

// GetUser retrieves a user by id.
func (s *Store) GetUser(ctx context.Context, id generic.DocumentID) (*settlement.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getUser(ctx, id)
}

func (s *Store) getUser(ctx context.Context, id generic.DocumentID) (*settlement.User, error) {
	var (
		u     settlement.User
		email sql.NullString
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, email FROM users WHERE id = ?", id,
	).Scan(&u.DocumentID, &u.Name, &email)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("user %s: %w", id, generic.ErrUserNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	u.Email = email.String
	return &u, nil
}

// ListUsers returns all users ordered by name.
func (s *Store) ListUsers(ctx context.Context) ([]settlement.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users, err := s.loadUsers(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]settlement.User, 0, len(users))
	for _, u := range users {
		out = append(out, *u)
	}
	return out, nil
}

func (s *Store) loadUsers(ctx context.Context) ([]*settlement.User, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, name, email FROM users ORDER BY name, id")
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []*settlement.User
	for rows.Next() {
		var (
			u     settlement.User
			email sql.NullString
		)
		if err := rows.Scan(&u.DocumentID, &u.Name, &email); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		u.Email = email.String
		users = append(users, &u)
	}
	return users, rows.Err()
}

// =============================================================================
// COURSES
// =============================================================================

// SaveCourse inserts or replaces a course. Only the teacher's id is stored;
// the teacher record itself is saved with SaveUser.
func (s *Store) SaveCourse(ctx context.Context, c settlement.Course) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	weekdaysJSON, err := json.Marshal(c.Weekdays)
	if err != nil {
		return fmt.Errorf("failed to encode weekdays: %w", err)
	}

	query := `
		INSERT INTO courses
		(id, title, weekdays_json, start_date, end_date, is_online, rental_price,
		 price_per_lesson, teacher_id, currency, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			weekdays_json = excluded.weekdays_json,
			start_date = excluded.start_date,
			end_date = excluded.end_date,
			is_online = excluded.is_online,
			rental_price = excluded.rental_price,
			price_per_lesson = excluded.price_per_lesson,
			teacher_id = excluded.teacher_id,
			currency = excluded.currency
	`
	_, err = s.db.ExecContext(ctx, query,
		c.DocumentID, c.Title, string(weekdaysJSON),
		nullString(c.StartDate.String()), nullString(c.EndDate.String()),
		c.IsOnline, c.RentalPrice.String(), c.PricePerLesson.String(),
		nullString(string(c.TeacherID())), string(c.Currency),
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to save course: %w", err)
	}
	return nil
}

// GetCourse retrieves a course with its teacher resolved.
func (s *Store) GetCourse(ctx context.Context, id generic.DocumentID) (*settlement.Course, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	courses, err := s.queryCourses(ctx, courseSelect+" WHERE id = ?", id)
	if err != nil {
		return nil, err
	}
	if len(courses) == 0 {
		return nil, fmt.Errorf("course %s: %w", id, generic.ErrCourseNotFound)
	}
	if err := s.attachTeachers(ctx, courses); err != nil {
		return nil, err
	}
	return courses[0], nil
}

// ListCourses returns all courses with teachers resolved.
func (s *Store) ListCourses(ctx context.Context) ([]settlement.Course, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	courses, err := s.queryCourses(ctx, courseSelect+" ORDER BY title, id")
	if err != nil {
		return nil, err
	}
	if err := s.attachTeachers(ctx, courses); err != nil {
		return nil, err
	}
	out := make([]settlement.Course, 0, len(courses))
	for _, c := range courses {
		out = append(out, *c)
	}
	return out, nil
}

const courseSelect = `
	SELECT id, title, weekdays_json, start_date, end_date, is_online, rental_price,
	       price_per_lesson, teacher_id, currency
	FROM courses`

func (s *Store) queryCourses(ctx context.Context, query string, args ...any) ([]*settlement.Course, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query courses: %w", err)
	}
	defer rows.Close()

	var courses []*settlement.Course
	for rows.Next() {
		var (
			c            settlement.Course
			weekdaysJSON string
			startDate    sql.NullString
			endDate      sql.NullString
			rentalPrice  string
			pricePer     string
			teacherID    sql.NullString
			currency     string
		)
		err := rows.Scan(&c.DocumentID, &c.Title, &weekdaysJSON, &startDate, &endDate,
			&c.IsOnline, &rentalPrice, &pricePer, &teacherID, &currency)
		if err != nil {
			return nil, fmt.Errorf("failed to scan course: %w", err)
		}
		if err := json.Unmarshal([]byte(weekdaysJSON), &c.Weekdays); err != nil {
			return nil, fmt.Errorf("course %s: bad weekdays: %w", c.DocumentID, err)
		}
		c.StartDate = parseDate(startDate)
		c.EndDate = parseDate(endDate)
		if c.RentalPrice, err = parseAmount(rentalPrice); err != nil {
			return nil, fmt.Errorf("course %s: bad rental_price: %w", c.DocumentID, err)
		}
		if c.PricePerLesson, err = parseAmount(pricePer); err != nil {
			return nil, fmt.Errorf("course %s: bad price_per_lesson: %w", c.DocumentID, err)
		}
		c.Currency = generic.Currency(currency)
		if teacherID.Valid {
			// placeholder until attachTeachers resolves the name
			c.Teacher = &settlement.User{DocumentID: generic.DocumentID(teacherID.String)}
		}
		courses = append(courses, &c)
	}
	return courses, rows.Err()
}

// attachTeachers replaces teacher placeholders with stored user records.
// A teacher id with no user row keeps its bare placeholder.
func (s *Store) attachTeachers(ctx context.Context, courses []*settlement.Course) error {
	users, err := s.loadUsers(ctx)
	if err != nil {
		return err
	}
	byID := make(map[generic.DocumentID]*settlement.User, len(users))
	for _, u := range users {
		byID[u.DocumentID] = u
	}
	for _, c := range courses {
		if c.Teacher == nil {
			continue
		}
		if u, ok := byID[c.Teacher.DocumentID]; ok {
			c.Teacher = u
		}
	}
	return nil
}

// =============================================================================
// INVOICES
// =============================================================================

// SaveInvoice inserts or replaces an invoice. Course and owner are stored by
// id only.
func (s *Store) SaveInvoice(ctx context.Context, inv settlement.Invoice) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var attendanceJSON sql.NullString
	if len(inv.Attendance) > 0 {
		b, err := json.Marshal(inv.Attendance)
		if err != nil {
			return fmt.Errorf("failed to encode attendance: %w", err)
		}
		attendanceJSON = sql.NullString{String: string(b), Valid: true}
	}

	var ownerID string
	if inv.Owner != nil {
		ownerID = string(inv.Owner.DocumentID)
	}

	query := `
		INSERT INTO invoices
		(id, document_id, owner_id, course_id, sum, currency, status_payment, start_date,
		 end_date, attendance_json, discount, bonus, referral_code, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			document_id = excluded.document_id,
			owner_id = excluded.owner_id,
			course_id = excluded.course_id,
			sum = excluded.sum,
			currency = excluded.currency,
			status_payment = excluded.status_payment,
			start_date = excluded.start_date,
			end_date = excluded.end_date,
			attendance_json = excluded.attendance_json,
			discount = excluded.discount,
			bonus = excluded.bonus,
			referral_code = excluded.referral_code
	`
	_, err := s.db.ExecContext(ctx, query,
		inv.ID, nullString(string(inv.DocumentID)), nullString(ownerID),
		nullString(string(inv.CourseID())), inv.Sum.String(), string(inv.Currency),
		inv.StatusPayment, nullString(inv.StartDate.String()), nullString(inv.EndDate.String()),
		attendanceJSON, inv.Discount.String(), inv.Bonus.String(), nullString(inv.ReferralCode),
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to save invoice: %w", err)
	}
	return nil
}

// GetInvoice retrieves an invoice with course, teacher and owner resolved.
func (s *Store) GetInvoice(ctx context.Context, id string) (*settlement.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	invoices, err := s.queryInvoices(ctx, invoiceSelect+" WHERE id = ?", id)
	if err != nil {
		return nil, err
	}
	if len(invoices) == 0 {
		return nil, fmt.Errorf("invoice %s: %w", id, generic.ErrInvoiceNotFound)
	}
	return invoices[0], nil
}

// ListInvoices returns invoices ordered by start date, then id.
func (s *Store) ListInvoices(ctx context.Context, filter settlement.InvoiceFilter) ([]*settlement.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		where []string
		args  []any
	)
	if filter.CourseID != "" {
		where = append(where, "course_id = ?")
		args = append(args, filter.CourseID)
	}
	if filter.OwnerID != "" {
		where = append(where, "owner_id = ?")
		args = append(args, filter.OwnerID)
	}

	query := invoiceSelect
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY start_date, id"

	return s.queryInvoices(ctx, query, args...)
}

const invoiceSelect = `
	SELECT id, document_id, owner_id, course_id, sum, currency, status_payment,
	       start_date, end_date, attendance_json, discount, bonus, referral_code
	FROM invoices`

func (s *Store) queryInvoices(ctx context.Context, query string, args ...any) ([]*settlement.Invoice, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query invoices: %w", err)
	}

	type refs struct {
		owner, course sql.NullString
	}
	var (
		invoices []*settlement.Invoice
		links    []refs
	)
	for rows.Next() {
		var (
			inv            settlement.Invoice
			r              refs
			documentID     sql.NullString
			sum            string
			currency       string
			startDate      sql.NullString
			endDate        sql.NullString
			attendanceJSON sql.NullString
			discount       string
			bonus          string
			referralCode   sql.NullString
		)
		err := rows.Scan(&inv.ID, &documentID, &r.owner, &r.course, &sum, &currency,
			&inv.StatusPayment, &startDate, &endDate, &attendanceJSON, &discount, &bonus, &referralCode)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan invoice: %w", err)
		}
		inv.DocumentID = generic.DocumentID(documentID.String)
		if inv.Sum, err = parseAmount(sum); err != nil {
			rows.Close()
			return nil, fmt.Errorf("invoice %s: bad sum: %w", inv.ID, err)
		}
		inv.Currency = generic.Currency(currency)
		inv.StartDate = parseDate(startDate)
		inv.EndDate = parseDate(endDate)
		if inv.Discount, err = parseAmount(discount); err != nil {
			rows.Close()
			return nil, fmt.Errorf("invoice %s: bad discount: %w", inv.ID, err)
		}
		if inv.Bonus, err = parseAmount(bonus); err != nil {
			rows.Close()
			return nil, fmt.Errorf("invoice %s: bad bonus: %w", inv.ID, err)
		}
		inv.ReferralCode = referralCode.String
		if attendanceJSON.Valid && attendanceJSON.String != "" {
			var marks map[string]schedule.AttendanceStatus
			if err := json.Unmarshal([]byte(attendanceJSON.String), &marks); err != nil {
				rows.Close()
				return nil, fmt.Errorf("invoice %s: bad attendance: %w", inv.ID, err)
			}
			inv.Attendance = marks
		}
		invoices = append(invoices, &inv)
		links = append(links, r)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	if len(invoices) == 0 {
		return invoices, nil
	}

	courses, err := s.queryCourses(ctx, courseSelect)
	if err != nil {
		return nil, err
	}
	if err := s.attachTeachers(ctx, courses); err != nil {
		return nil, err
	}
	users, err := s.loadUsers(ctx)
	if err != nil {
		return nil, err
	}

	courseByID := make(map[string]*settlement.Course, len(courses))
	for _, c := range courses {
		courseByID[string(c.DocumentID)] = c
	}
	userByID := make(map[string]*settlement.User, len(users))
	for _, u := range users {
		userByID[string(u.DocumentID)] = u
	}

	for i, inv := range invoices {
		if id := links[i].course; id.Valid {
			inv.Course = courseByID[id.String]
		}
		if id := links[i].owner; id.Valid {
			if u, ok := userByID[id.String]; ok {
				inv.Owner = u
			} else {
				inv.Owner = &settlement.User{DocumentID: generic.DocumentID(id.String)}
			}
		}
	}
	return invoices, nil
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{"invoices", "courses", "users"}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

// Helper functions

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// parseAmount treats an empty column as zero.
func parseAmount(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s)
}

func parseDate(s sql.NullString) generic.Date {
	if !s.Valid {
		return generic.Date{}
	}
	d, err := generic.ParseDate(s.String)
	if err != nil {
		return generic.Date{}
	}
	return d
}
