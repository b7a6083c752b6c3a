package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/jrsteele09/go-video-server/internal/errors"
	"github.com/jrsteele09/go-video-server/users"
)

var _ users.Repo = (*UserRepo)(nil)

const userColumns = "id, username, email, full_name, password_hash, refresh_token, avatar_url, cover_image_url, created_at, updated_at"

type UserRepo struct {
	db      DBTX
	dialect Dialect
	nowFunc func() time.Time
}

func NewUserRepo(db DBTX, dialect Dialect) *UserRepo {
	return &UserRepo{db: db, dialect: dialect, nowFunc: time.Now}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*users.Account, error) {
	var a users.Account
	if err := row.Scan(
		&a.ID, &a.Username, &a.Email, &a.FullName, &a.PasswordHash, &a.RefreshToken,
		&a.AvatarURL, &a.CoverImageURL, &a.CreatedAt, &a.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &a, nil
}

// FindByIdentifier prefers a username match over an email match.
func (r *UserRepo) FindByIdentifier(ctx context.Context, username, email string) (*users.Account, error) {
	if username == "" && email == "" {
		return nil, users.ErrNotFound
	}
	query := "SELECT " + userColumns + " FROM users WHERE username = $1 OR email = $2 " +
		"ORDER BY CASE WHEN username = $1 THEN 0 ELSE 1 END LIMIT 1"
	account, err := scanAccount(r.db.QueryRowContext(ctx, r.dialect.rebind(query), username, email))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, users.ErrNotFound
	}
	if err != nil {
		return nil, apperrors.Wrapf(err, "UserRepo.FindByIdentifier")
	}
	return account, nil
}

func (r *UserRepo) FindByID(ctx context.Context, id string) (*users.Account, error) {
	query := "SELECT " + userColumns + " FROM users WHERE id = $1"
	account, err := scanAccount(r.db.QueryRowContext(ctx, r.dialect.rebind(query), id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, users.ErrNotFound
	}
	if err != nil {
		return nil, apperrors.Wrapf(err, "UserRepo.FindByID")
	}
	return account, nil
}

func (r *UserRepo) Insert(ctx context.Context, account *users.Account) (*users.Account, error) {
	stored := account.Clone()
	if stored.ID == "" {
		stored.ID = uuid.New().String()
	}
	now := r.now()
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = now
	}
	stored.UpdatedAt = now

	query := "INSERT INTO users (" + userColumns + ") VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)"
	_, err := r.db.ExecContext(ctx, r.dialect.rebind(query),
		stored.ID, stored.Username, stored.Email, stored.FullName, stored.PasswordHash, stored.RefreshToken,
		stored.AvatarURL, stored.CoverImageURL, stored.CreatedAt, stored.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return nil, users.ErrDuplicate
	}
	if err != nil {
		return nil, apperrors.Wrapf(err, "UserRepo.Insert")
	}
	return stored, nil
}

// Patch updates the set fields in one statement. With IfRefreshToken the
// update only applies while the stored token still matches.
func (r *UserRepo) Patch(ctx context.Context, id string, patch users.Patch) (*users.Account, error) {
	var (
		sets []string
		args []any
	)
	set := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	setIf := func(column string, value *string) {
		if value != nil {
			set(column, *value)
		}
	}
	setIf("username", patch.Username)
	setIf("full_name", patch.FullName)
	setIf("password_hash", patch.PasswordHash)
	setIf("refresh_token", patch.RefreshToken)
	setIf("avatar_url", patch.AvatarURL)
	setIf("cover_image_url", patch.CoverImageURL)
	set("updated_at", r.now())

	args = append(args, id)
	where := fmt.Sprintf("id = $%d", len(args))
	if patch.IfRefreshToken != nil {
		args = append(args, *patch.IfRefreshToken)
		where += fmt.Sprintf(" AND refresh_token = $%d", len(args))
	}

	query := "UPDATE users SET " + strings.Join(sets, ", ") + " WHERE " + where + " RETURNING " + userColumns
	account, err := scanAccount(r.db.QueryRowContext(ctx, r.dialect.rebind(query), args...))
	switch {
	case err == nil:
		return account, nil
	case errors.Is(err, sql.ErrNoRows):
		return nil, r.missedPatch(ctx, id, patch)
	case isUniqueViolation(err):
		return nil, users.ErrDuplicate
	default:
		return nil, apperrors.Wrapf(err, "UserRepo.Patch")
	}
}

// missedPatch tells a missing account apart from a lost compare-and-set.
func (r *UserRepo) missedPatch(ctx context.Context, id string, patch users.Patch) error {
	if patch.IfRefreshToken == nil {
		return users.ErrNotFound
	}
	if _, err := r.FindByID(ctx, id); err != nil {
		return err
	}
	return users.ErrStaleRefreshToken
}

// now is truncated to the precision Postgres keeps.
func (r *UserRepo) now() time.Time {
	return r.nowFunc().UTC().Truncate(time.Microsecond)
}
