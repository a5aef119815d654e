package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hitoshi/aircnc/internal/model"
)

// PostgresBookingRepo はPostgreSQLを使用した予約リポジトリ。
type PostgresBookingRepo struct {
	db *sql.DB
}

// NewPostgresBookingRepo はPostgresBookingRepoを生成する。
func NewPostgresBookingRepo(db *sql.DB) *PostgresBookingRepo {
	return &PostgresBookingRepo{db: db}
}

const bookingColumns = `id, guest_email, price_cents, home_id, check_in, check_out, details,
	notification_status, notification_attempts, notification_error,
	next_attempt_at, notified_at, created_at`

// Create は予約を作成する。
// 通知状態はbooking.NotificationStatus（未設定ならpending）で保存する。
func (r *PostgresBookingRepo) Create(ctx context.Context, booking *model.Booking) error {
	details, err := marshalJSONB(booking.Details)
	if err != nil {
		return err
	}
	if booking.NotificationStatus == "" {
		booking.NotificationStatus = model.NotificationPending
	}

	err = r.db.QueryRowContext(ctx,
		`INSERT INTO bookings (id, guest_email, price_cents, home_id, check_in, check_out, details, notification_status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING created_at`,
		booking.ID, booking.GuestEmail, booking.Price.Cents(), nullString(booking.HomeID),
		nullTime(booking.CheckIn), nullTime(booking.CheckOut), details, string(booking.NotificationStatus),
	).Scan(&booking.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert booking: %w", err)
	}
	return nil
}

// List は全予約を返す。
func (r *PostgresBookingRepo) List(ctx context.Context) ([]*model.Booking, error) {
	return r.query(ctx, `SELECT `+bookingColumns+` FROM bookings ORDER BY created_at`)
}

// ListByGuestEmail はguest_emailが完全一致する予約を返す。
func (r *PostgresBookingRepo) ListByGuestEmail(ctx context.Context, email string) ([]*model.Booking, error) {
	return r.query(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE guest_email = $1 ORDER BY created_at`,
		email,
	)
}

// RecordNotification は通知試行の結果を記録し、試行回数をインクリメントする。
// sentの場合のみnotified_atを更新する。
func (r *PostgresBookingRepo) RecordNotification(ctx context.Context, bookingID string, result NotificationResult) error {
	var notifiedAt sql.NullTime
	if result.Status == model.NotificationSent {
		notifiedAt = sql.NullTime{Time: result.At, Valid: true}
	}

	res, err := r.db.ExecContext(ctx,
		`UPDATE bookings SET
		    notification_status = $2,
		    notification_error = $3,
		    next_attempt_at = $4,
		    notified_at = COALESCE($5, notified_at),
		    notification_attempts = notification_attempts + 1
		 WHERE id = $1`,
		bookingID, string(result.Status), result.Error, nullTime(result.NextAttemptAt), notifiedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record notification result: %w", err)
	}
	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("booking not found: %s", bookingID)
	}
	return nil
}

// ClaimDueNotifications は再配信対象の予約をFOR UPDATE SKIP LOCKEDで排他的に取得し、
// next_attempt_atをリース期間だけ先送りした上で返す。
// 対象:
//   - pendingのままGrace以上経過した予約
//   - failedで試行回数がMaxAttempts未満、かつnext_attempt_atが到来した予約
func (r *PostgresBookingRepo) ClaimDueNotifications(ctx context.Context, q DueNotificationQuery) ([]*model.Booking, error) {
	return r.query(ctx,
		`UPDATE bookings SET next_attempt_at = now() + $4::interval
		 WHERE id IN (
		     SELECT id FROM bookings
		     WHERE (next_attempt_at IS NULL OR next_attempt_at <= now())
		       AND (
		           (notification_status = 'pending' AND created_at <= now() - $1::interval)
		        OR (notification_status = 'failed' AND notification_attempts < $2)
		       )
		     ORDER BY created_at ASC
		     LIMIT $3
		     FOR UPDATE SKIP LOCKED
		 )
		 RETURNING `+bookingColumns,
		intervalString(q.Grace), q.MaxAttempts, q.Limit, intervalString(q.Lease),
	)
}

func (r *PostgresBookingRepo) query(ctx context.Context, query string, args ...any) ([]*model.Booking, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query bookings: %w", err)
	}
	defer rows.Close()

	bookings := []*model.Booking{}
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}
		bookings = append(bookings, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate bookings: %w", err)
	}
	return bookings, nil
}

func scanBooking(s rowScanner) (*model.Booking, error) {
	b := &model.Booking{}
	var price int64
	var homeID sql.NullString
	var checkIn, checkOut, nextAttempt, notifiedAt sql.NullTime
	var details []byte
	var status string
	if err := s.Scan(
		&b.ID, &b.GuestEmail, &price, &homeID, &checkIn, &checkOut, &details,
		&status, &b.NotificationAttempts, &b.NotificationError,
		&nextAttempt, &notifiedAt, &b.CreatedAt,
	); err != nil {
		return nil, err
	}

	b.Price = model.Money(price)
	b.HomeID = homeID.String
	b.CheckIn = timePtr(checkIn)
	b.CheckOut = timePtr(checkOut)
	b.NotificationStatus = model.NotificationStatus(status)
	b.NextAttemptAt = timePtr(nextAttempt)
	b.NotifiedAt = timePtr(notifiedAt)

	var err error
	if b.Details, err = unmarshalJSONB(details); err != nil {
		return nil, err
	}
	return b, nil
}

// intervalString はtime.DurationをPostgreSQLのinterval文字列に変換する。
func intervalString(d time.Duration) string {
	return fmt.Sprintf("%d milliseconds", d.Milliseconds())
}

// compile-time interface check
var _ BookingRepository = (*PostgresBookingRepo)(nil)
