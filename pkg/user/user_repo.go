package user

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
)

var ErrUserNotFound = errors.New("user not found")

type Repo interface {
	CreateUser(ctx context.Context, user User) (int, error)
	GetUser(ctx context.Context, id int) (User, error)
	GetUserByUid(ctx context.Context, uid string) (User, error)
	GetUserByUsername(ctx context.Context, username string) (User, error)
	// GetChildren returns the children of a parent ordered by display name.
	GetChildren(ctx context.Context, parentId int) ([]User, error)
	IsUsernameAvailable(ctx context.Context, username string) (bool, error)
}

const userColumns = `id, uid, username, display_name, role, parent_id, password_hash`

type UserRepoImpl struct {
	db *pgxpool.Pool
}

func NewUserRepo(db *pgxpool.Pool) *UserRepoImpl {
	return &UserRepoImpl{db: db}
}

func (u *UserRepoImpl) CreateUser(ctx context.Context, user User) (int, error) {
	query := `INSERT INTO users (uid, username, display_name, role, parent_id, password_hash)
				VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`
	var id int
	err := u.db.QueryRow(ctx, query,
		user.Uid,
		user.Username,
		user.DisplayName,
		string(user.Role),
		nullableId(user.ParentId),
		user.PasswordHash,
	).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return 0, ErrUsernameTaken
		}
		log.Errorf("failed to create user: %v", err)
		return 0, err
	}
	return id, nil
}

func (u *UserRepoImpl) GetUser(ctx context.Context, id int) (User, error) {
	return u.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (u *UserRepoImpl) GetUserByUid(ctx context.Context, uid string) (User, error) {
	return u.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE uid = $1`, uid)
}

func (u *UserRepoImpl) GetUserByUsername(ctx context.Context, username string) (User, error) {
	return u.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username)
}

func (u *UserRepoImpl) getOne(ctx context.Context, query string, arg any) (User, error) {
	user, err := scanUser(u.db.QueryRow(ctx, query, arg))
	if errors.Is(err, pgx.ErrNoRows) {
		log.Debugf("user %v not found", arg)
		return User{}, ErrUserNotFound
	} else if err != nil {
		log.Errorf("failed to get user: %v", err)
		return User{}, err
	}
	return user, nil
}

func (u *UserRepoImpl) GetChildren(ctx context.Context, parentId int) ([]User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE parent_id = $1 ORDER BY display_name, id`
	rows, err := u.db.Query(ctx, query, parentId)
	if err != nil {
		log.Errorf("failed to get children: %v", err)
		return nil, err
	}
	defer rows.Close()
	children := make([]User, 0, 4)
	for rows.Next() {
		child, err := scanUser(rows)
		if err != nil {
			log.Errorf("failed to scan user: %v", err)
			return nil, err
		}
		children = append(children, child)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over rows: %w", err)
	}
	return children, nil
}

func (u *UserRepoImpl) IsUsernameAvailable(ctx context.Context, username string) (bool, error) {
	query := `SELECT COUNT(*) FROM users WHERE username = $1`
	var count int
	err := u.db.QueryRow(ctx, query, username).Scan(&count)
	if err != nil {
		log.Errorf("failed to check username availability: %v", err)
		return false, err
	}
	return count == 0, nil
}

func scanUser(row pgx.Row) (User, error) {
	var user User
	var role string
	var parentId *int
	err := row.Scan(&user.Id, &user.Uid, &user.Username, &user.DisplayName, &role, &parentId, &user.PasswordHash)
	if err != nil {
		return User{}, err
	}
	user.Role = Role(role)
	if parentId != nil {
		user.ParentId = *parentId
	}
	return user, nil
}

func nullableId(id int) *int {
	if id == 0 {
		return nil
	}
	return &id
}
