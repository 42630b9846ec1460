package checkin

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"kidgate/pkg/domain"
	"kidgate/pkg/platform/sentinel"
)

// Partial unique indexes scoped to live records enforce the two uniqueness
// invariants in the database, see schema.sql.
const (
	constraintLiveChild = "checkins_live_child_idx"
	constraintLiveCode  = "checkins_live_code_idx"
)

// casAttempts bounds the optimistic-transition retry loop. A miss means a
// concurrent writer won; re-evaluating against the fresh row yields the
// correct no-op or invalid-transition outcome.
const casAttempts = 3

// PostgresStore is the durable registry implementation.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresDB opens a pgx-backed connection pool with sane defaults.
func NewPostgresDB(connString string) (*sql.DB, error) {
	db, err := sql.Open("pgx", connString)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)
	return db, db.PingContext(context.Background())
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const checkInColumns = `id, child_id, responsible_id, security_code, status, checkin_time, checkout_time, photos`

func (s *PostgresStore) Create(ctx context.Context, record CheckIn) error {
	if record.Photos == nil {
		record.Photos = []string{}
	}
	photos, err := json.Marshal(record.Photos)
	if err != nil {
		return fmt.Errorf("marshal photos: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO checkins (id, child_id, responsible_id, security_code, status, checkin_time, photos)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, record.ID.String(), record.ChildID.String(), record.ResponsibleID.String(),
		record.SecurityCode, string(record.Status), record.CheckinTime, photos)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			switch pgErr.ConstraintName {
			case constraintLiveChild:
				return ErrChildActive
			case constraintLiveCode:
				return ErrCodeTaken
			}
		}
		return translatePg(err, "insert check-in")
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id domain.CheckInID) (CheckIn, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+checkInColumns+` FROM checkins WHERE id = $1`, id.String())
	return scanCheckIn(row)
}

func (s *PostgresStore) Transition(ctx context.Context, id domain.CheckInID, action Action, now time.Time) (CheckIn, Status, bool, error) {
	for attempt := 0; attempt < casAttempts; attempt++ {
		current, err := s.Get(ctx, id)
		if err != nil {
			return CheckIn{}, "", false, err
		}
		next, changed, err := Next(current.Status, action)
		if err != nil {
			return CheckIn{}, current.Status, false, err
		}
		if !changed {
			return current, current.Status, false, nil
		}

		// Compare-and-set on the observed status: of two racing writers
		// exactly one updates, the other loops and re-evaluates.
		row := s.db.QueryRowContext(ctx, `
			UPDATE checkins
			SET status = $3,
			    checkout_time = CASE WHEN $3 = 'completed' THEN $4 ELSE checkout_time END
			WHERE id = $1 AND status = $2
			RETURNING `+checkInColumns,
			id.String(), string(current.Status), string(next), now.UTC())
		updated, err := scanCheckIn(row)
		if errors.Is(err, sentinel.ErrNotFound) {
			continue
		}
		if err != nil {
			return CheckIn{}, current.Status, false, err
		}
		return updated, current.Status, true, nil
	}
	return CheckIn{}, "", false, fmt.Errorf("transition contention on %s: %w", id, sentinel.ErrUnavailable)
}

func (s *PostgresStore) AppendPhoto(ctx context.Context, id domain.CheckInID, photoRef string) (CheckIn, error) {
	row := s.db.QueryRowContext(ctx, `
		UPDATE checkins
		SET photos = photos || to_jsonb($2::text)
		WHERE id = $1 AND status <> 'completed'
		RETURNING `+checkInColumns,
		id.String(), photoRef)
	updated, err := scanCheckIn(row)
	if errors.Is(err, sentinel.ErrNotFound) {
		// Distinguish a missing record from a completed one.
		if _, getErr := s.Get(ctx, id); getErr == nil {
			return CheckIn{}, sentinel.ErrInvalidState
		}
		return CheckIn{}, sentinel.ErrNotFound
	}
	return updated, err
}

func (s *PostgresStore) ListLiveByResponsible(ctx context.Context, responsibleID domain.AdultID, limit int) ([]CheckIn, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+checkInColumns+`
		FROM checkins
		WHERE responsible_id = $1 AND status <> 'completed'
		ORDER BY checkin_time DESC
		LIMIT $2
	`, responsibleID.String(), limit)
	if err != nil {
		return nil, translatePg(err, "list by responsible")
	}
	return collect(rows)
}

func (s *PostgresStore) ListLive(ctx context.Context) ([]CheckIn, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+checkInColumns+`
		FROM checkins
		WHERE status <> 'completed'
		ORDER BY checkin_time DESC
	`)
	if err != nil {
		return nil, translatePg(err, "list live")
	}
	return collect(rows)
}

func (s *PostgresStore) ListAlerts(ctx context.Context) ([]CheckIn, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+checkInColumns+`
		FROM checkins
		WHERE status = 'alert'
		ORDER BY checkin_time DESC
	`)
	if err != nil {
		return nil, translatePg(err, "list alerts")
	}
	return collect(rows)
}

func (s *PostgresStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCheckIn(row rowScanner) (CheckIn, error) {
	var (
		record       CheckIn
		idStr        string
		childStr     string
		adultStr     string
		status       string
		checkoutTime sql.NullTime
		photos       []byte
	)
	err := row.Scan(&idStr, &childStr, &adultStr, &record.SecurityCode,
		&status, &record.CheckinTime, &checkoutTime, &photos)
	if errors.Is(err, sql.ErrNoRows) {
		return CheckIn{}, sentinel.ErrNotFound
	}
	if err != nil {
		return CheckIn{}, translatePg(err, "scan check-in")
	}

	if record.ID, err = domain.ParseCheckInID(idStr); err != nil {
		return CheckIn{}, err
	}
	if record.ChildID, err = domain.ParseChildID(childStr); err != nil {
		return CheckIn{}, err
	}
	if record.ResponsibleID, err = domain.ParseAdultID(adultStr); err != nil {
		return CheckIn{}, err
	}
	record.Status = Status(status)
	if checkoutTime.Valid {
		t := checkoutTime.Time
		record.CheckoutTime = &t
	}
	if len(photos) > 0 {
		if err := json.Unmarshal(photos, &record.Photos); err != nil {
			return CheckIn{}, fmt.Errorf("unmarshal photos: %w", err)
		}
	}
	return record, nil
}

func collect(rows *sql.Rows) ([]CheckIn, error) {
	defer rows.Close()
	var out []CheckIn
	for rows.Next() {
		record, err := scanCheckIn(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, record)
	}
	return out, rows.Err()
}

// translatePg wraps backend failures as unavailable so services map them onto
// the operational error code instead of an internal one.
func translatePg(err error, op string) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s: %w", op, sentinel.ErrUnavailable)
	}
	return fmt.Errorf("%s: %v: %w", op, err, sentinel.ErrUnavailable)
}
