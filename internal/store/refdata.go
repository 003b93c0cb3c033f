package store

import (
	"context"
	"database/sql"
	"fmt"

	"velora/internal/models"
)

// SyncCenters upserts the config-defined centers by id. Reference data is
// owned by configuration; the database copy exists for foreign keys and
// reporting joins.
func (s *Store) SyncCenters(ctx context.Context, centers []models.Center) error {
	for _, c := range centers {
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO centers (id, name, address) VALUES (?, ?, ?)
			 ON CONFLICT(id) DO UPDATE SET name = excluded.name, address = excluded.address,
			 updated_at = CURRENT_TIMESTAMP`,
			c.ID, c.Name, c.Address)
		if err != nil {
			return fmt.Errorf("sync center %d: %w", c.ID, err)
		}
	}
	return nil
}

// ListCenters returns every known center.
func (s *Store) ListCenters(ctx context.Context) ([]models.Center, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, address FROM centers ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list centers: %w", err)
	}
	defer rows.Close()

	var centers []models.Center
	for rows.Next() {
		var c models.Center
		var address sql.NullString
		if err := rows.Scan(&c.ID, &c.Name, &address); err != nil {
			return nil, fmt.Errorf("scan center: %w", err)
		}
		c.Address = address.String
		centers = append(centers, c)
	}
	return centers, rows.Err()
}

// SyncLanes upserts the config-defined lanes by id.
func (s *Store) SyncLanes(ctx context.Context, lanes []models.Lane) error {
	for _, l := range lanes {
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO lanes (id, center_id, name, capacity, allowed_groups, position, is_active)
			 VALUES (?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT(id) DO UPDATE SET center_id = excluded.center_id, name = excluded.name,
			 capacity = excluded.capacity, allowed_groups = excluded.allowed_groups,
			 position = excluded.position, is_active = excluded.is_active,
			 updated_at = CURRENT_TIMESTAMP`,
			l.ID, l.CenterID, l.Name, l.Capacity, formatGroups(l.AllowedGroups), l.Position, l.IsActive)
		if err != nil {
			return fmt.Errorf("sync lane %d: %w", l.ID, err)
		}
	}
	return nil
}

// SyncServices upserts the config-defined service catalogue by id.
func (s *Store) SyncServices(ctx context.Context, services []models.Service) error {
	for _, svc := range services {
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO services (id, name, duration_minutes, price_cents, treatment_group, group_id, is_active)
			 VALUES (?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT(id) DO UPDATE SET name = excluded.name,
			 duration_minutes = excluded.duration_minutes, price_cents = excluded.price_cents,
			 treatment_group = excluded.treatment_group, group_id = excluded.group_id,
			 is_active = excluded.is_active, updated_at = CURRENT_TIMESTAMP`,
			svc.ID, svc.Name, svc.DurationMinutes, svc.PriceCents, svc.TreatmentGroup, svc.GroupID, svc.IsActive)
		if err != nil {
			return fmt.Errorf("sync service %d: %w", svc.ID, err)
		}
	}
	return nil
}
