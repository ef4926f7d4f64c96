package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/task-service/internal/domain"
)

// NotificationRepository persists the in-app notification log. Every
// mutating call is scoped to a recipient so users only touch their own rows.
type NotificationRepository interface {
	Create(ctx context.Context, record *domain.NotificationRecord) error
	ListByRecipient(ctx context.Context, recipient string, limit int) ([]domain.NotificationRecord, error)
	MarkRead(ctx context.Context, recipient string, ids []string) (int64, error)
	Delete(ctx context.Context, recipient, id string) (int64, error)
	CountUnread(ctx context.Context, recipient string) (int64, error)
}

type notificationRepository struct {
	pool *pgxpool.Pool
}

// NewNotificationRepository returns a Postgres-backed implementation.
func NewNotificationRepository(pool *pgxpool.Pool) NotificationRepository {
	return &notificationRepository{pool: pool}
}

func (r *notificationRepository) Create(ctx context.Context, record *domain.NotificationRecord) error {
	const query = `
        INSERT INTO email_notifications
            (sender, recipient, subject, message, is_read, status, task_id, title, employee_id, username, meta, delivery, delivery_error)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		record.From,
		record.Recipient,
		record.Subject,
		record.Message,
		record.Read,
		record.Status,
		record.TaskID,
		record.Title,
		record.EmployeeID,
		record.Username,
		record.Meta,
		record.Delivery,
		record.DeliveryError,
	).Scan(&record.ID, &record.Timestamp)
}

func (r *notificationRepository) ListByRecipient(ctx context.Context, recipient string, limit int) ([]domain.NotificationRecord, error) {
	const query = `
        SELECT id, sender, recipient, subject, message, is_read, created_at,
               COALESCE(status, ''), COALESCE(task_id, ''), COALESCE(title, ''),
               COALESCE(employee_id, ''), COALESCE(username, ''), meta, delivery, delivery_error
        FROM email_notifications
        WHERE recipient=$1
        ORDER BY created_at DESC
        LIMIT $2`
	rows, err := r.pool.Query(ctx, query, recipient, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.NotificationRecord{}
	for rows.Next() {
		record, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *record)
	}
	return result, rows.Err()
}

func (r *notificationRepository) MarkRead(ctx context.Context, recipient string, ids []string) (int64, error) {
	const query = `
        UPDATE email_notifications SET is_read = TRUE
        WHERE recipient=$1 AND id = ANY($2::uuid[])`
	cmd, err := r.pool.Exec(ctx, query, recipient, ids)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

func (r *notificationRepository) Delete(ctx context.Context, recipient, id string) (int64, error) {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM email_notifications WHERE recipient=$1 AND id=$2`, recipient, id)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

func (r *notificationRepository) CountUnread(ctx context.Context, recipient string) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM email_notifications WHERE recipient=$1 AND NOT is_read`,
		recipient,
	).Scan(&count)
	return count, err
}

func scanNotification(row pgx.Row) (*domain.NotificationRecord, error) {
	var record domain.NotificationRecord
	if err := row.Scan(
		&record.ID,
		&record.From,
		&record.Recipient,
		&record.Subject,
		&record.Message,
		&record.Read,
		&record.Timestamp,
		&record.Status,
		&record.TaskID,
		&record.Title,
		&record.EmployeeID,
		&record.Username,
		&record.Meta,
		&record.Delivery,
		&record.DeliveryError,
	); err != nil {
		return nil, err
	}
	return &record, nil
}
