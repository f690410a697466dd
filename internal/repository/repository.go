package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/ChristiaanHPutter/Skripsie/internal/models"
)

// EventRepo is the append-only journal of cook milestones. Control state is
// volatile and lives in the run loop; only events persist.
type EventRepo interface {
	Append(ctx context.Context, e models.CookEvent) error
	List(ctx context.Context, from, to time.Time, typ string, chamber int) ([]models.CookEvent, error)
}

type Repository struct {
	EventRepo EventRepo
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{
		EventRepo: NewEventSQLite(db),
	}
}
