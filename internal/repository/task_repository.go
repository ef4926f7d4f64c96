package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/task-service/internal/domain"
)

// TaskFilter captures listing parameters.
type TaskFilter struct {
	AssignedTo *string
	Statuses   []domain.TaskStatus
	Limit      int
	Offset     int
}

// StatusChange is a guarded single-row status update. It applies only when
// the task is assigned to AssignedTo (if set) and its current status is not
// one of Exclude.
type StatusChange struct {
	TaskID     string
	To         domain.TaskStatus
	AssignedTo *string
	Exclude    []domain.TaskStatus
}

// TaskPatch is a field-level merge patch. Nil fields are left untouched.
type TaskPatch struct {
	Title            *string
	Description      *string
	AssignedTo       *string
	Priority         *domain.TaskPriority
	Status           *domain.TaskStatus
	Deadline         *time.Time
	SetAttributes    map[string]any
	RemoveAttributes []string
}

// Empty reports whether the patch changes nothing.
func (p TaskPatch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.AssignedTo == nil &&
		p.Priority == nil && p.Status == nil && p.Deadline == nil &&
		len(p.SetAttributes) == 0 && len(p.RemoveAttributes) == 0
}

// TaskRepository encapsulates task persistence.
type TaskRepository interface {
	// CreateMany inserts all tasks or none.
	CreateMany(ctx context.Context, tasks []*domain.Task) error
	GetByID(ctx context.Context, id string) (*domain.Task, error)
	List(ctx context.Context, filter TaskFilter) ([]domain.Task, error)
	// SetStatus returns the status the task had before the update.
	SetStatus(ctx context.Context, change StatusChange) (domain.TaskStatus, error)
	Patch(ctx context.Context, id string, patch TaskPatch) (*domain.Task, error)
	Delete(ctx context.Context, id string) error
	CountByStatus(ctx context.Context, assignedTo *string) (domain.StatusSummary, error)
}

type taskRepository struct {
	pool *pgxpool.Pool
}

// NewTaskRepository instantiates repository.
func NewTaskRepository(pool *pgxpool.Pool) TaskRepository {
	return &taskRepository{pool: pool}
}

const taskColumns = `id, title, description, assigned_to, priority, status, deadline,
               created_by, created_at, updated_at, attributes`

func (r *taskRepository) CreateMany(ctx context.Context, tasks []*domain.Task) error {
	const query = `
        INSERT INTO tasks (title, description, assigned_to, priority, status, deadline, created_by, attributes)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        RETURNING id, created_at, updated_at`
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		for _, task := range tasks {
			attrs := task.Attributes
			if attrs == nil {
				attrs = map[string]any{}
			}
			if err := tx.QueryRow(ctx, query,
				task.Title,
				task.Description,
				task.AssignedTo,
				task.Priority,
				task.Status,
				task.Deadline,
				task.CreatedBy,
				attrs,
			).Scan(&task.ID, &task.CreatedAt, &task.UpdatedAt); err != nil {
				return fmt.Errorf("insert task for %s: %w", task.AssignedTo, err)
			}
		}
		return nil
	})
}

func (r *taskRepository) GetByID(ctx context.Context, id string) (*domain.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id=$1`
	return scanTask(r.pool.QueryRow(ctx, query, id))
}

func (r *taskRepository) List(ctx context.Context, filter TaskFilter) ([]domain.Task, error) {
	base := `SELECT ` + taskColumns + ` FROM tasks`
	clauses := []string{"1=1"}
	args := []any{}

	if filter.AssignedTo != nil {
		args = append(args, *filter.AssignedTo)
		clauses = append(clauses, fmt.Sprintf("assigned_to=$%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}

	query := fmt.Sprintf(`%s WHERE %s ORDER BY created_at DESC`, base, strings.Join(clauses, " AND "))
	if filter.Limit > 0 {
		offset := filter.Offset
		if offset < 0 {
			offset = 0
		}
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", filter.Limit, offset)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.Task{}
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *task)
	}
	return result, rows.Err()
}

func (r *taskRepository) SetStatus(ctx context.Context, change StatusChange) (domain.TaskStatus, error) {
	const query = `
        WITH prev AS (SELECT id, status FROM tasks WHERE id=$1 FOR UPDATE)
        UPDATE tasks t SET status=$2, updated_at=NOW()
        FROM prev
        WHERE t.id = prev.id
          AND ($3::text IS NULL OR t.assigned_to = $3)
          AND NOT (prev.status = ANY($4::text[]))
        RETURNING prev.status`

	exclude := make([]string, 0, len(change.Exclude))
	for _, s := range change.Exclude {
		exclude = append(exclude, string(s))
	}

	var previous domain.TaskStatus
	err := r.pool.QueryRow(ctx, query, change.TaskID, change.To, change.AssignedTo, exclude).Scan(&previous)
	if err == nil {
		return previous, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return "", err
	}

	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM tasks WHERE id=$1)`, change.TaskID).Scan(&exists); err != nil {
		return "", err
	}
	if !exists {
		return "", pgx.ErrNoRows
	}
	return "", ErrConditionNotMet
}

func (r *taskRepository) Patch(ctx context.Context, id string, patch TaskPatch) (*domain.Task, error) {
	query := `
        UPDATE tasks SET
            title       = COALESCE($2, title),
            description = COALESCE($3, description),
            assigned_to = COALESCE($4, assigned_to),
            priority    = COALESCE($5, priority),
            status      = COALESCE($6, status),
            deadline    = COALESCE($7, deadline),
            attributes  = (attributes || $8::jsonb) - $9::text[],
            updated_at  = NOW()
        WHERE id=$1
        RETURNING ` + taskColumns

	set := patch.SetAttributes
	if set == nil {
		set = map[string]any{}
	}
	remove := patch.RemoveAttributes
	if remove == nil {
		remove = []string{}
	}

	return scanTask(r.pool.QueryRow(ctx, query,
		id,
		patch.Title,
		patch.Description,
		patch.AssignedTo,
		patch.Priority,
		patch.Status,
		patch.Deadline,
		set,
		remove,
	))
}

func (r *taskRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM tasks WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *taskRepository) CountByStatus(ctx context.Context, assignedTo *string) (domain.StatusSummary, error) {
	query := `SELECT status, COUNT(*) FROM tasks`
	args := []any{}
	if assignedTo != nil {
		args = append(args, *assignedTo)
		query += ` WHERE assigned_to=$1`
	}
	query += ` GROUP BY status`

	var summary domain.StatusSummary
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return summary, err
	}
	defer rows.Close()

	for rows.Next() {
		var status domain.TaskStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return summary, err
		}
		summary.Add(status, count)
	}
	return summary, rows.Err()
}

func scanTask(row pgx.Row) (*domain.Task, error) {
	var task domain.Task
	if err := row.Scan(
		&task.ID,
		&task.Title,
		&task.Description,
		&task.AssignedTo,
		&task.Priority,
		&task.Status,
		&task.Deadline,
		&task.CreatedBy,
		&task.CreatedAt,
		&task.UpdatedAt,
		&task.Attributes,
	); err != nil {
		return nil, err
	}
	return &task, nil
}
