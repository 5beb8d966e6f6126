package postgres

import (
	"context"
	"fmt"
)

// HealthCheck implements ports.HealthChecker for PostgreSQL.
// Beyond connectivity it confirms the schema has been applied.
type HealthCheck struct {
	pool Pool
}

// NewHealthCheck creates a PostgreSQL health checker.
func NewHealthCheck(pool Pool) *HealthCheck {
	return &HealthCheck{pool: pool}
}

// Ping checks that the counter row is readable.
func (h *HealthCheck) Ping(ctx context.Context) error {
	var value int64
	if err := h.pool.QueryRow(ctx, `SELECT value FROM registry_counter WHERE id = 1`).Scan(&value); err != nil {
		return fmt.Errorf("read registry counter: %w", err)
	}
	return nil
}

// Name returns the dependency name.
func (h *HealthCheck) Name() string {
	return "postgresql"
}
