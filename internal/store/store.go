package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/rs/zerolog"

	"velora/internal/models"
)

var bookingColumns = []string{
	"id", "center_id", "lane_id", "service_id", "client_id",
	"start_time", "duration_minutes", "status", "payment_status",
	"price_cents", "notes", "payment_method", "method_status",
	"paid_at", "reminder_sent", "version", "created_at", "updated_at",
}

// Store implements the record-store contracts of the engine, the client
// directory, and the reminder sweep over one sqlite database.
type Store struct {
	db     *DB
	logger *zerolog.Logger
}

// New creates a store over an opened database.
func New(db *DB, logger *zerolog.Logger) *Store {
	return &Store{db: db, logger: logger}
}

// Ping reports whether the database answers.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// GetBooking returns the booking or nil when the id is unknown.
func (s *Store) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	query, args, err := sq.Select(bookingColumns...).
		From("bookings").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build booking query: %w", err)
	}

	b, err := scanBooking(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get booking %d: %w", id, err)
	}
	return b, nil
}

// CreateBooking inserts the booking and fills in its assigned id.
func (s *Store) CreateBooking(ctx context.Context, b *models.Booking) error {
	query, args, err := sq.Insert("bookings").
		Columns("center_id", "lane_id", "service_id", "client_id",
			"start_time", "duration_minutes", "status", "payment_status",
			"price_cents", "notes", "payment_method", "method_status", "paid_at").
		Values(b.CenterID, b.LaneID, b.ServiceID, b.ClientID,
			b.StartTime, b.DurationMinutes, b.Status, b.PaymentStatus,
			b.PriceCents, b.Notes, b.PaymentMethod, b.MethodStatus, b.PaidAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build booking insert: %w", err)
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("insert booking: %w", err)
	}
	b.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("booking id: %w", err)
	}
	b.Version = 1
	return nil
}

// UpdateBooking overwrites the stored record and bumps its version. Last
// write wins; the version column is informational, not a CAS guard.
func (s *Store) UpdateBooking(ctx context.Context, b *models.Booking) error {
	query, args, err := sq.Update("bookings").
		Set("center_id", b.CenterID).
		Set("lane_id", b.LaneID).
		Set("service_id", b.ServiceID).
		Set("client_id", b.ClientID).
		Set("start_time", b.StartTime).
		Set("duration_minutes", b.DurationMinutes).
		Set("status", b.Status).
		Set("payment_status", b.PaymentStatus).
		Set("price_cents", b.PriceCents).
		Set("notes", b.Notes).
		Set("payment_method", b.PaymentMethod).
		Set("method_status", b.MethodStatus).
		Set("paid_at", b.PaidAt).
		Set("reminder_sent", b.ReminderSent).
		Set("version", sq.Expr("version + 1")).
		Set("updated_at", sq.Expr("CURRENT_TIMESTAMP")).
		Where(sq.Eq{"id": b.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build booking update: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("update booking %d: %w", b.ID, err)
	}
	b.Version++
	return nil
}

// DeleteBooking removes the record. Deleting an unknown id is not an error
// here; existence checks belong to the engine.
func (s *Store) DeleteBooking(ctx context.Context, id int64) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM bookings WHERE id = ?", id); err != nil {
		return fmt.Errorf("delete booking %d: %w", id, err)
	}
	return nil
}

// ListBookings returns every booking of the center starting on the given
// calendar day, ordered by start time.
func (s *Store) ListBookings(ctx context.Context, centerID int64, day time.Time) ([]models.Booking, error) {
	from, to := dayBounds(day)
	query, args, err := sq.Select(bookingColumns...).
		From("bookings").
		Where(sq.Eq{"center_id": centerID}).
		Where(sq.GtOrEq{"start_time": from}).
		Where(sq.Lt{"start_time": to}).
		OrderBy("start_time").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build bookings query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	defer rows.Close()
	return collectBookings(rows)
}

// ClientBookings returns all bookings referencing the client, most recent
// start time first.
func (s *Store) ClientBookings(ctx context.Context, clientID int64) ([]models.Booking, error) {
	query, args, err := sq.Select(bookingColumns...).
		From("bookings").
		Where(sq.Eq{"client_id": clientID}).
		OrderBy("start_time DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build client bookings query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("client bookings: %w", err)
	}
	defer rows.Close()
	return collectBookings(rows)
}

// UpcomingUnreminded returns live bookings starting within [from, to) that
// have not been reminded yet.
func (s *Store) UpcomingUnreminded(ctx context.Context, from, to time.Time) ([]models.Booking, error) {
	query, args, err := sq.Select(bookingColumns...).
		From("bookings").
		Where(sq.GtOrEq{"start_time": from}).
		Where(sq.Lt{"start_time": to}).
		Where(sq.Eq{"reminder_sent": false}).
		Where(sq.NotEq{"status": models.StatusCancelled}).
		OrderBy("start_time").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build reminder query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("upcoming bookings: %w", err)
	}
	defer rows.Close()
	return collectBookings(rows)
}

// MarkReminded flags the booking so the sweep skips it next round.
func (s *Store) MarkReminded(ctx context.Context, id int64) error {
	if _, err := s.db.ExecContext(ctx, "UPDATE bookings SET reminder_sent = 1, updated_at = CURRENT_TIMESTAMP WHERE id = ?", id); err != nil {
		return fmt.Errorf("mark reminded %d: %w", id, err)
	}
	return nil
}

// GetBlock returns the block or nil when the id is unknown.
func (s *Store) GetBlock(ctx context.Context, id int64) (*models.LaneBlock, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, center_id, lane_id, start_time, end_time, reason, created_by, created_at, updated_at
		 FROM lane_blocks WHERE id = ?`, id)

	b, err := scanBlock(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get block %d: %w", id, err)
	}
	return b, nil
}

// CreateBlock inserts the block and fills in its assigned id.
func (s *Store) CreateBlock(ctx context.Context, b *models.LaneBlock) error {
	query, args, err := sq.Insert("lane_blocks").
		Columns("center_id", "lane_id", "start_time", "end_time", "reason", "created_by").
		Values(b.CenterID, b.LaneID, b.StartTime, b.EndTime, b.Reason, b.CreatedBy).
		ToSql()
	if err != nil {
		return fmt.Errorf("build block insert: %w", err)
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("insert block: %w", err)
	}
	b.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("block id: %w", err)
	}
	return nil
}

// UpdateBlock overwrites the stored block.
func (s *Store) UpdateBlock(ctx context.Context, b *models.LaneBlock) error {
	query, args, err := sq.Update("lane_blocks").
		Set("center_id", b.CenterID).
		Set("lane_id", b.LaneID).
		Set("start_time", b.StartTime).
		Set("end_time", b.EndTime).
		Set("reason", b.Reason).
		Set("updated_at", sq.Expr("CURRENT_TIMESTAMP")).
		Where(sq.Eq{"id": b.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build block update: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("update block %d: %w", b.ID, err)
	}
	return nil
}

// DeleteBlock removes the block record.
func (s *Store) DeleteBlock(ctx context.Context, id int64) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM lane_blocks WHERE id = ?", id); err != nil {
		return fmt.Errorf("delete block %d: %w", id, err)
	}
	return nil
}

// ListBlocks returns every block of the center touching the given day.
func (s *Store) ListBlocks(ctx context.Context, centerID int64, day time.Time) ([]models.LaneBlock, error) {
	from, to := dayBounds(day)
	query, args, err := sq.Select("id", "center_id", "lane_id", "start_time", "end_time", "reason", "created_by", "created_at", "updated_at").
		From("lane_blocks").
		Where(sq.Eq{"center_id": centerID}).
		Where(sq.Lt{"start_time": to}).
		Where(sq.Gt{"end_time": from}).
		OrderBy("start_time").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build blocks query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list blocks: %w", err)
	}
	defer rows.Close()

	var blocks []models.LaneBlock
	for rows.Next() {
		b, err := scanBlock(rows)
		if err != nil {
			return nil, fmt.Errorf("scan block: %w", err)
		}
		blocks = append(blocks, *b)
	}
	return blocks, rows.Err()
}

// ListLanes returns every lane of the center, active or not, in position
// order. Callers filter on IsActive where it matters.
func (s *Store) ListLanes(ctx context.Context, centerID int64) ([]models.Lane, error) {
	query, args, err := sq.Select("id", "center_id", "name", "capacity", "allowed_groups", "position", "is_active").
		From("lanes").
		Where(sq.Eq{"center_id": centerID}).
		OrderBy("position").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build lanes query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list lanes: %w", err)
	}
	defer rows.Close()

	var lanes []models.Lane
	for rows.Next() {
		var l models.Lane
		var groups sql.NullString
		if err := rows.Scan(&l.ID, &l.CenterID, &l.Name, &l.Capacity, &groups, &l.Position, &l.IsActive); err != nil {
			return nil, fmt.Errorf("scan lane: %w", err)
		}
		l.AllowedGroups = parseGroups(groups.String)
		lanes = append(lanes, l)
	}
	return lanes, rows.Err()
}

// ListServices returns the service catalogue.
func (s *Store) ListServices(ctx context.Context) ([]models.Service, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, duration_minutes, price_cents, treatment_group, group_id, is_active
		 FROM services ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list services: %w", err)
	}
	defer rows.Close()

	var services []models.Service
	for rows.Next() {
		svc, err := scanService(rows)
		if err != nil {
			return nil, fmt.Errorf("scan service: %w", err)
		}
		services = append(services, *svc)
	}
	return services, rows.Err()
}

// GetService returns the service or nil when the id is unknown.
func (s *Store) GetService(ctx context.Context, id int64) (*models.Service, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, duration_minutes, price_cents, treatment_group, group_id, is_active
		 FROM services WHERE id = ?`, id)

	svc, err := scanService(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get service %d: %w", id, err)
	}
	return svc, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBooking(row rowScanner) (*models.Booking, error) {
	var b models.Booking
	var laneID, clientID sql.NullInt64
	var notes, method, methodStatus sql.NullString
	var paidAt sql.NullTime

	err := row.Scan(&b.ID, &b.CenterID, &laneID, &b.ServiceID, &clientID,
		&b.StartTime, &b.DurationMinutes, &b.Status, &b.PaymentStatus,
		&b.PriceCents, &notes, &method, &methodStatus,
		&paidAt, &b.ReminderSent, &b.Version, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if laneID.Valid {
		b.LaneID = &laneID.Int64
	}
	if clientID.Valid {
		b.ClientID = &clientID.Int64
	}
	if paidAt.Valid {
		b.PaidAt = &paidAt.Time
	}
	b.Notes = notes.String
	b.PaymentMethod = method.String
	b.MethodStatus = methodStatus.String
	return &b, nil
}

func collectBookings(rows *sql.Rows) ([]models.Booking, error) {
	var bookings []models.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		bookings = append(bookings, *b)
	}
	return bookings, rows.Err()
}

func scanBlock(row rowScanner) (*models.LaneBlock, error) {
	var b models.LaneBlock
	var reason, createdBy sql.NullString
	err := row.Scan(&b.ID, &b.CenterID, &b.LaneID, &b.StartTime, &b.EndTime, &reason, &createdBy, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}
	b.Reason = reason.String
	b.CreatedBy = createdBy.String
	return &b, nil
}

func scanService(row rowScanner) (*models.Service, error) {
	var svc models.Service
	var group sql.NullString
	var groupID sql.NullInt64
	err := row.Scan(&svc.ID, &svc.Name, &svc.DurationMinutes, &svc.PriceCents, &group, &groupID, &svc.IsActive)
	if err != nil {
		return nil, err
	}
	svc.TreatmentGroup = group.String
	if groupID.Valid {
		svc.GroupID = &groupID.Int64
	}
	return &svc, nil
}

// parseGroups decodes the comma-separated allowed_groups column.
func parseGroups(raw string) []int64 {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	groups := make([]int64, 0, len(parts))
	for _, p := range parts {
		id, err := strconv.ParseInt(strings.TrimSpace(p), 10, 64)
		if err != nil {
			continue
		}
		groups = append(groups, id)
	}
	return groups
}

// formatGroups encodes AllowedGroups for the lanes table.
func formatGroups(groups []int64) string {
	parts := make([]string, len(groups))
	for i, g := range groups {
		parts[i] = strconv.FormatInt(g, 10)
	}
	return strings.Join(parts, ",")
}

func dayBounds(day time.Time) (time.Time, time.Time) {
	from := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	return from, from.Add(24 * time.Hour)
}
