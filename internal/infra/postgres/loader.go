package postgres

import (
	"context"
	"errors"
	"fmt"

	"code-session-service/internal/domain"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// Loader reads assignment metadata and backend-held code progress from
// Postgres. It backs both the assignment cache and the resolution
// policy's remote tier.
type Loader struct {
	pool *pgxpool.Pool
}

func NewLoader(pool *pgxpool.Pool) *Loader {
	return &Loader{pool: pool}
}

func (l *Loader) LoadAssignment(ctx context.Context, sectionID int64) (domain.Assignment, error) {
	a := domain.Assignment{SectionID: sectionID}
	err := l.pool.QueryRow(ctx,
		`SELECT end_at, active FROM assignments WHERE section_id=$1`,
		sectionID,
	).Scan(&a.EndAt, &a.Active)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Assignment{}, domain.ErrAssignmentNotFound
	}
	if err != nil {
		return domain.Assignment{}, fmt.Errorf("load assignment: %w", err)
	}
	return a, nil
}

// GetAssignment satisfies the assignment repository contract directly for
// cache-less deployments.
func (l *Loader) GetAssignment(ctx context.Context, sectionID int64) (domain.Assignment, error) {
	return l.LoadAssignment(ctx, sectionID)
}

// LoadProgress returns the most recently submitted code for the identity,
// or "" when the user never submitted anything for it.
func (l *Loader) LoadProgress(ctx context.Context, id domain.DraftIdentity) (string, error) {
	var code string
	err := l.pool.QueryRow(ctx,
		`SELECT code FROM submission_progress
		 WHERE problem_id=$1 AND section_id=$2 AND language=$3
		 ORDER BY submitted_at DESC LIMIT 1`,
		id.ProblemID, id.SectionID, id.Language,
	).Scan(&code)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("load progress: %w", err)
	}
	return code, nil
}
