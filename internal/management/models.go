package management

import (
	"time"

	"sessionmgr/internal/rules"
)

type SessionRule struct {
	ID          string     `json:"id" db:"id"`
	Name        string     `json:"name" db:"name"`
	Description string     `json:"description" db:"description"`
	Spec        rules.Spec `json:"spec" db:"spec"`
	Priority    int        `json:"priority" db:"priority"`
	Enabled     bool       `json:"enabled" db:"enabled"`
	CreatedBy   string     `json:"created_by,omitempty" db:"created_by"`
	UpdatedBy   string     `json:"updated_by,omitempty" db:"updated_by"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
}

type CreateSessionRuleRequest struct {
	Name        string     `json:"name" binding:"required"`
	Description string     `json:"description"`
	Spec        rules.Spec `json:"spec"`
	Priority    int        `json:"priority"`
	Enabled     *bool      `json:"enabled"`
}

type UpdateSessionRuleRequest struct {
	Name        *string     `json:"name"`
	Description *string     `json:"description"`
	Spec        *rules.Spec `json:"spec"`
	Priority    *int        `json:"priority"`
	Enabled     *bool       `json:"enabled"`
}
