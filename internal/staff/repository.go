package staff

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/arcadia-sms/arcadia/internal/authz"
)

// ErrNotFound indicates the staff record does not exist.
var ErrNotFound = errors.New("staff: record not found")

var listColumns = map[string]string{
	"branch_id": "branch_id",
	"position":  "position",
}

// Repository defines data access for staff records.
type Repository interface {
	Get(ctx context.Context, id string) (*Member, error)
	List(ctx context.Context, filter authz.Filter) ([]Member, error)
	Create(ctx context.Context, m Member) (string, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a postgres-backed Repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const memberColumns = `id, branch_id, user_id, full_name, position, salary, bank_account, created_at, updated_at`

func (r *repository) Get(ctx context.Context, id string) (*Member, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+memberColumns+` FROM staff WHERE id = $1`, id)
	return scanMember(row)
}

func (r *repository) List(ctx context.Context, filter authz.Filter) ([]Member, error) {
	where := make([]string, 0, len(filter))
	args := make([]any, 0, len(filter))
	for field, value := range filter {
		column, ok := listColumns[field]
		if !ok {
			continue
		}
		args = append(args, value)
		where = append(where, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	rows, err := r.pool.Query(ctx, `SELECT `+memberColumns+` FROM staff`+clause+` ORDER BY full_name`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Member
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *m)
	}
	return result, rows.Err()
}

func (r *repository) Create(ctx context.Context, m Member) (string, error) {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	_, err := r.pool.Exec(ctx,
		`INSERT INTO staff (id, branch_id, user_id, full_name, position, salary, bank_account)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		m.ID, m.BranchID, m.UserID, m.FullName, m.Position, m.Salary, m.BankAccount)
	if err != nil {
		return "", err
	}
	return m.ID, nil
}

func scanMember(row pgx.Row) (*Member, error) {
	var m Member
	err := row.Scan(&m.ID, &m.BranchID, &m.UserID, &m.FullName, &m.Position, &m.Salary, &m.BankAccount, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &m, nil
}
