package students

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/arcadia-sms/arcadia/internal/authz"
	"github.com/arcadia-sms/arcadia/internal/platform/db"
)

var (
	ErrNotFound      = errors.New("students: record not found")
	ErrAlreadyExists = errors.New("students: record already exists")
)

// listColumns whitelists the filter fields List accepts. Anything else in the
// filter map is ignored rather than interpolated.
var listColumns = map[string]string{
	"branch_id": "branch_id",
	"class_id":  "class_id",
	"parent_id": "parent_id",
}

// Repository defines data access for student records.
type Repository interface {
	Get(ctx context.Context, id string) (*Student, error)
	List(ctx context.Context, filter authz.Filter, page, pageSize int) ([]Student, int, error)
	Create(ctx context.Context, s Student) (string, error)
	Update(ctx context.Context, s Student) error
	Delete(ctx context.Context, id string) error
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a postgres-backed Repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const studentColumns = `id, branch_id, number, full_name, user_id, parent_id, class_id, medical_info, created_at, updated_at`

func (r *repository) Get(ctx context.Context, id string) (*Student, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+studentColumns+` FROM students WHERE id = $1`, id)
	return scanStudent(row)
}

func (r *repository) List(ctx context.Context, filter authz.Filter, page, pageSize int) ([]Student, int, error) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 25
	}

	where := make([]string, 0, len(filter))
	args := make([]any, 0, len(filter)+2)
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

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM students`+clause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, pageSize, (page-1)*pageSize)
	query := fmt.Sprintf(`SELECT %s FROM students%s ORDER BY full_name LIMIT $%d OFFSET $%d`,
		studentColumns, clause, len(args)-1, len(args))
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var result []Student
	for rows.Next() {
		s, err := scanStudent(rows)
		if err != nil {
			return nil, 0, err
		}
		result = append(result, *s)
	}
	return result, total, rows.Err()
}

func (r *repository) Create(ctx context.Context, s Student) (string, error) {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	_, err := r.pool.Exec(ctx,
		`INSERT INTO students (id, branch_id, number, full_name, user_id, parent_id, class_id, medical_info)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		s.ID, s.BranchID, s.Number, s.FullName, s.UserID, s.ParentID, s.ClassID, s.MedicalInfo)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return "", ErrAlreadyExists
		}
		return "", err
	}
	return s.ID, nil
}

func (r *repository) Update(ctx context.Context, s Student) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE students SET full_name = $2, parent_id = $3, class_id = $4, medical_info = $5, updated_at = NOW()
		 WHERE id = $1`,
		s.ID, s.FullName, s.ParentID, s.ClassID, s.MedicalInfo)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes the student and their attendance marks in one transaction.
func (r *repository) Delete(ctx context.Context, id string) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM attendance WHERE student_id = $1`, id); err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, `DELETE FROM students WHERE id = $1`, id)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		return nil
	})
}

func scanStudent(row pgx.Row) (*Student, error) {
	var s Student
	err := row.Scan(&s.ID, &s.BranchID, &s.Number, &s.FullName, &s.UserID, &s.ParentID, &s.ClassID, &s.MedicalInfo, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &s, nil
}
