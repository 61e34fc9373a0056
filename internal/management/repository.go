package management

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	pkgerrors "sessionmgr/pkg/errors"
)

type Repository interface {
	CreateSessionRule(ctx context.Context, rule *SessionRule) error
	ListSessionRules(ctx context.Context) ([]SessionRule, error)
	GetSessionRule(ctx context.Context, id string) (*SessionRule, error)
	UpdateSessionRule(ctx context.Context, rule *SessionRule) error
	DeleteSessionRule(ctx context.Context, id string) error
}

type PostgresRepository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) CreateSessionRule(ctx context.Context, rule *SessionRule) error {
	if rule.ID == "" {
		rule.ID = uuid.New().String()
	}
	now := time.Now()
	rule.CreatedAt = now
	rule.UpdatedAt = now

	specJSON, err := json.Marshal(rule.Spec)
	if err != nil {
		return fmt.Errorf("failed to marshal spec: %w", err)
	}

	query := `
		INSERT INTO session_rules (id, name, description, spec, priority, enabled, created_by, updated_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err = r.db.ExecContext(ctx, query,
		rule.ID, rule.Name, rule.Description, specJSON,
		rule.Priority, rule.Enabled, rule.CreatedBy, rule.UpdatedBy,
		rule.CreatedAt, rule.UpdatedAt,
	)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			if pqErr.Code == "23505" {
				return pkgerrors.ErrConflict.WithCause(err).WithDetail("message", fmt.Sprintf("rule with name '%s' already exists", rule.Name))
			}
		}
		if strings.Contains(err.Error(), "duplicate key") || strings.Contains(err.Error(), "unique constraint") {
			return pkgerrors.ErrConflict.WithCause(err).WithDetail("message", fmt.Sprintf("rule with name '%s' already exists", rule.Name))
		}
		return fmt.Errorf("failed to create rule: %w", err)
	}

	return nil
}

func (r *PostgresRepository) GetSessionRule(ctx context.Context, id string) (*SessionRule, error) {
	query := `
		SELECT id, name, description, spec, priority, enabled, created_by, updated_by, created_at, updated_at
		FROM session_rules
		WHERE id = $1
	`

	row := r.db.QueryRowContext(ctx, query, id)

	rule, err := scanSessionRule(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("rule not found: %w", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get rule: %w", err)
	}

	return rule, nil
}

func (r *PostgresRepository) ListSessionRules(ctx context.Context) ([]SessionRule, error) {
	query := `
		SELECT id, name, description, spec, priority, enabled, created_by, updated_by, created_at, updated_at
		FROM session_rules
		ORDER BY priority ASC, created_at ASC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list rules: %w", err)
	}
	defer rows.Close()

	var sessionRules []SessionRule
	for rows.Next() {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("context cancelled: %w", ctx.Err())
		default:
		}

		rule, err := scanSessionRule(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan rule: %w", err)
		}
		sessionRules = append(sessionRules, *rule)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return sessionRules, nil
}

func (r *PostgresRepository) UpdateSessionRule(ctx context.Context, rule *SessionRule) error {
	rule.UpdatedAt = time.Now()

	specJSON, err := json.Marshal(rule.Spec)
	if err != nil {
		return fmt.Errorf("failed to marshal spec: %w", err)
	}

	query := `
		UPDATE session_rules
		SET name = $1, description = $2, spec = $3, priority = $4, enabled = $5, updated_by = $6, updated_at = $7
		WHERE id = $8
	`

	res, err := r.db.ExecContext(ctx, query,
		rule.Name, rule.Description, specJSON,
		rule.Priority, rule.Enabled, rule.UpdatedBy, rule.UpdatedAt, rule.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update rule: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("rule not found")
	}

	return nil
}

func (r *PostgresRepository) DeleteSessionRule(ctx context.Context, id string) error {
	query := `DELETE FROM session_rules WHERE id = $1`

	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete rule: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("rule not found")
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSessionRule(row rowScanner) (*SessionRule, error) {
	var rule SessionRule
	var specJSON []byte

	if err := row.Scan(
		&rule.ID, &rule.Name, &rule.Description, &specJSON,
		&rule.Priority, &rule.Enabled, &rule.CreatedBy, &rule.UpdatedBy,
		&rule.CreatedAt, &rule.UpdatedAt,
	); err != nil {
		return nil, err
	}

	if err := json.Unmarshal(specJSON, &rule.Spec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal spec: %w", err)
	}

	return &rule, nil
}
