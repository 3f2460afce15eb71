package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

// SqliteUserRepo keeps accounts in a local SQLite database.
type SqliteUserRepo struct {
	db *sql.DB
}

func NewSqliteUserRepo(db *sql.DB) *SqliteUserRepo {
	return &SqliteUserRepo{db: db}
}

func (r *SqliteUserRepo) CreateUser(ctx context.Context, user User) (int, error) {
	query := `INSERT INTO users (uid, username, display_name, role, parent_id, password_hash, created_at_ms)
				VALUES (?, ?, ?, ?, ?, ?, ?)`
	var parentId sql.NullInt64
	if user.ParentId != 0 {
		parentId = sql.NullInt64{Int64: int64(user.ParentId), Valid: true}
	}
	result, err := r.db.ExecContext(ctx, query,
		user.Uid,
		user.Username,
		user.DisplayName,
		string(user.Role),
		parentId,
		user.PasswordHash,
		time.Now().UnixMilli(),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return 0, ErrUsernameTaken
		}
		log.Errorf("failed to create user: %v", err)
		return 0, err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, err
	}
	return int(id), nil
}

func (r *SqliteUserRepo) GetUser(ctx context.Context, id int) (User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
}

func (r *SqliteUserRepo) GetUserByUid(ctx context.Context, uid string) (User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE uid = ?`, uid)
}

func (r *SqliteUserRepo) GetUserByUsername(ctx context.Context, username string) (User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE username = ?`, username)
}

func (r *SqliteUserRepo) getOne(ctx context.Context, query string, arg any) (User, error) {
	user, err := scanSqliteUser(r.db.QueryRowContext(ctx, query, arg))
	if errors.Is(err, sql.ErrNoRows) {
		log.Debugf("user %v not found", arg)
		return User{}, ErrUserNotFound
	} else if err != nil {
		log.Errorf("failed to get user: %v", err)
		return User{}, err
	}
	return user, nil
}

func (r *SqliteUserRepo) GetChildren(ctx context.Context, parentId int) ([]User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE parent_id = ? ORDER BY display_name, id`
	rows, err := r.db.QueryContext(ctx, query, parentId)
	if err != nil {
		log.Errorf("failed to get children: %v", err)
		return nil, err
	}
	defer rows.Close()
	children := make([]User, 0, 4)
	for rows.Next() {
		child, err := scanSqliteUser(rows)
		if err != nil {
			return nil, err
		}
		children = append(children, child)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over rows: %w", err)
	}
	return children, nil
}

func (r *SqliteUserRepo) IsUsernameAvailable(ctx context.Context, username string) (bool, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE username = ?`, username).Scan(&count)
	if err != nil {
		log.Errorf("failed to check username availability: %v", err)
		return false, err
	}
	return count == 0, nil
}

type sqlScanner interface {
	Scan(dest ...any) error
}

func scanSqliteUser(row sqlScanner) (User, error) {
	var user User
	var role string
	var parentId sql.NullInt64
	err := row.Scan(&user.Id, &user.Uid, &user.Username, &user.DisplayName, &role, &parentId, &user.PasswordHash)
	if err != nil {
		return User{}, err
	}
	user.Role = Role(role)
	if parentId.Valid {
		user.ParentId = int(parentId.Int64)
	}
	return user, nil
}
