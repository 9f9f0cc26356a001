package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/flashdeck/internal/apperror"
	"github.com/sakif/flashdeck/internal/model"
	"github.com/sakif/flashdeck/internal/repository"
)

type userRepo struct{ conn }

// compile-time check that *userRepo implements repository.UserRepository
var _ repository.UserRepository = (*userRepo)(nil)

const userColumns = `id, username, password_hash, admin, tzutcdelta, created_at, updated_at`

// Create inserts user, assigning its ID and timestamps. A taken username is
// reported as apperror.ErrConflict.
func (r *userRepo) Create(ctx context.Context, user *model.User) error {
	now := time.Now().UTC().Truncate(time.Second)
	user.ID = xid.New().String()
	user.CreatedAt = now
	user.UpdatedAt = now

	_, err := r.exec(ctx,
		`INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		user.ID,
		user.Username,
		user.PasswordHash,
		user.Admin,
		user.TZUTCDelta,
		r.d.timeArg(user.CreatedAt),
		r.d.timeArg(user.UpdatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("user", user.Username)
		}
		return fmt.Errorf("sqlstore: inserting user %q: %w", user.Username, err)
	}
	return nil
}

// GetByID returns apperror.ErrNotFound if no user has that ID.
func (r *userRepo) GetByID(ctx context.Context, id string) (*model.User, error) {
	u, err := scanUser(r.queryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", id)
		}
		return nil, fmt.Errorf("sqlstore: getting user %s: %w", id, err)
	}
	return u, nil
}

// GetByUsername returns apperror.ErrNotFound if nobody has that username.
func (r *userRepo) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	u, err := scanUser(r.queryRow(ctx, `SELECT `+userColumns+` FROM users WHERE username = ?`, username))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", username)
		}
		return nil, fmt.Errorf("sqlstore: getting user %q: %w", username, err)
	}
	return u, nil
}

func (r *userRepo) Search(ctx context.Context, f repository.UserFilter) ([]model.User, error) {
	var (
		where []string
		args  []any
	)
	if f.Query != "" {
		where = append(where, r.d.contains(`username`))
		args = append(args, likePattern(f.Query))
	}

	q := `SELECT ` + userColumns + ` FROM users` + whereClause(where) + ` ORDER BY created_at, id`
	q, args = paginate(q, args, f.Page)

	rows, err := r.query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: searching users: %w", err)
	}
	defer rows.Close()

	users := []model.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlstore: scanning user: %w", err)
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlstore: iterating users: %w", err)
	}
	return users, nil
}

// Update writes every mutable column of user.
func (r *userRepo) Update(ctx context.Context, user *model.User) error {
	user.UpdatedAt = time.Now().UTC().Truncate(time.Second)

	res, err := r.exec(ctx,
		`UPDATE users SET username = ?, password_hash = ?, admin = ?, tzutcdelta = ?, updated_at = ?
		 WHERE id = ?`,
		user.Username,
		user.PasswordHash,
		user.Admin,
		user.TZUTCDelta,
		r.d.timeArg(user.UpdatedAt),
		user.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("user", user.Username)
		}
		return fmt.Errorf("sqlstore: updating user %s: %w", user.ID, err)
	}
	return expectOne(res, "user", user.ID)
}

// Delete removes the user; decks and cards go with it through ON DELETE CASCADE.
func (r *userRepo) Delete(ctx context.Context, id string) error {
	res, err := r.exec(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlstore: deleting user %s: %w", id, err)
	}
	return expectOne(res, "user", id)
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanUser(s scanner) (*model.User, error) {
	var (
		u                model.User
		created, updated nullTime
	)
	if err := s.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Admin, &u.TZUTCDelta, &created, &updated); err != nil {
		return nil, err
	}
	u.CreatedAt, u.UpdatedAt = created.Time, updated.Time
	return &u, nil
}

// expectOne turns "no row affected" into apperror.ErrNotFound.
func expectOne(res sql.Result, resource, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlstore: rows affected: %w", err)
	}
	if n == 0 {
		return apperror.NotFound(resource, id)
	}
	return nil
}

func whereClause(conds []string) string {
	if len(conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(conds, " AND ")
}

// paginate appends LIMIT/OFFSET when the page has a limit. Without a limit
// the offset is ignored.
func paginate(q string, args []any, p repository.Page) (string, []any) {
	limit, offset, ok := p.Window()
	if !ok {
		return q, args
	}
	return q + ` LIMIT ? OFFSET ?`, append(args, limit, offset)
}
