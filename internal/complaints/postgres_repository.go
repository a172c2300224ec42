package complaints

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepository stores complaints in the relational database.
type PostgresRepository struct {
	pool querier
}

// NewPostgresRepository initializes a repo backed by pgxpool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	if pool == nil {
		panic("complaints: pgx pool required")
	}
	return &PostgresRepository{pool: pool}
}

func newPostgresRepositoryWithQuerier(q querier) *PostgresRepository {
	if q == nil {
		panic("complaints: querier required")
	}
	return &PostgresRepository{pool: q}
}

var _ Repository = (*PostgresRepository)(nil)

const complaintColumns = `id::text, ticket_number, sender_id, name, father_name, dob, phone, email,
		village, post_office, police_station, district, pincode, fraud_category,
		description, COALESCE(media_path, ''), status, created_at, updated_at`

// Create inserts a new row. A ticket collision is reported as ErrDuplicateTicket.
func (r *PostgresRepository) Create(ctx context.Context, c *Complaint) (*Complaint, error) {
	if strings.TrimSpace(c.TicketNumber) == "" {
		return nil, ErrMissingTicket
	}
	out := *c
	out.ID = uuid.New().String()
	if out.Status == "" {
		out.Status = StatusRegistered
	}

	query := `
		INSERT INTO complaints (
			id, ticket_number, sender_id, name, father_name, dob, phone, phone_key, email,
			village, post_office, police_station, district, pincode, fraud_category,
			description, media_path, status
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, NULLIF($17, ''), $18)
		RETURNING created_at, updated_at
	`
	err := r.pool.QueryRow(ctx, query,
		out.ID,
		out.TicketNumber,
		out.SenderID,
		out.Name,
		out.FatherName,
		out.DOB,
		out.Phone,
		phoneKey(out.Phone),
		out.Email,
		out.Village,
		out.PostOffice,
		out.PoliceStation,
		out.District,
		out.Pincode,
		out.FraudCategory,
		out.Description,
		out.MediaPath,
		out.Status,
	).Scan(&out.CreatedAt, &out.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, ErrDuplicateTicket
		}
		return nil, fmt.Errorf("complaints: insert failed: %w", err)
	}
	return &out, nil
}

// GetByTicket fetches one complaint by its ticket number.
func (r *PostgresRepository) GetByTicket(ctx context.Context, ticket string) (*Complaint, error) {
	query := `SELECT ` + complaintColumns + ` FROM complaints WHERE ticket_number = $1`
	c, err := scanComplaint(r.pool.QueryRow(ctx, query, strings.ToUpper(strings.TrimSpace(ticket))))
	if err != nil {
		return nil, wrapLookup(err)
	}
	return c, nil
}

// FindByPhoneOrTicket resolves a ticket number, or the most recent complaint
// whose phone shares the query's last ten digits.
func (r *PostgresRepository) FindByPhoneOrTicket(ctx context.Context, query string) (*Complaint, error) {
	if isTicketQuery(query) {
		return r.GetByTicket(ctx, query)
	}
	key := phoneKey(query)
	if key == "" {
		return nil, ErrComplaintNotFound
	}
	sql := `SELECT ` + complaintColumns + ` FROM complaints WHERE phone_key = $1 ORDER BY created_at DESC LIMIT 1`
	c, err := scanComplaint(r.pool.QueryRow(ctx, sql, key))
	if err != nil {
		return nil, wrapLookup(err)
	}
	return c, nil
}

// UpdateStatus overwrites the status of a complaint.
func (r *PostgresRepository) UpdateStatus(ctx context.Context, ticket, status string) (*Complaint, error) {
	status, err := NormalizeStatus(status)
	if err != nil {
		return nil, err
	}
	query := `
		UPDATE complaints SET status = $2, updated_at = now()
		WHERE ticket_number = $1
		RETURNING ` + complaintColumns
	c, err := scanComplaint(r.pool.QueryRow(ctx, query, strings.ToUpper(strings.TrimSpace(ticket)), status))
	if err != nil {
		return nil, wrapLookup(err)
	}
	return c, nil
}

// List returns complaints newest first.
func (r *PostgresRepository) List(ctx context.Context, filter ListFilter) ([]*Complaint, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT ` + complaintColumns + `
		FROM complaints
		WHERE ($1 = '' OR status = $1)
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`
	rows, err := r.pool.Query(ctx, query, filter.Status, limit, filter.Offset)
	if err != nil {
		return nil, fmt.Errorf("complaints: list failed: %w", err)
	}
	defer rows.Close()

	out := []*Complaint{}
	for rows.Next() {
		c, err := scanComplaint(rows)
		if err != nil {
			return nil, fmt.Errorf("complaints: scan failed: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("complaints: list rows: %w", err)
	}
	return out, nil
}

func scanComplaint(row pgx.Row) (*Complaint, error) {
	var c Complaint
	if err := row.Scan(
		&c.ID,
		&c.TicketNumber,
		&c.SenderID,
		&c.Name,
		&c.FatherName,
		&c.DOB,
		&c.Phone,
		&c.Email,
		&c.Village,
		&c.PostOffice,
		&c.PoliceStation,
		&c.District,
		&c.Pincode,
		&c.FraudCategory,
		&c.Description,
		&c.MediaPath,
		&c.Status,
		&c.CreatedAt,
		&c.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &c, nil
}

func wrapLookup(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrComplaintNotFound
	}
	return fmt.Errorf("complaints: select failed: %w", err)
}
