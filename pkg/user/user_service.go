package user

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserDataInvalid    = errors.New("invalid user data")
	ErrUsernameTaken      = errors.New("username already taken")
	ErrNotParent          = errors.New("only parents can manage children")
)

type Service interface {
	// VerifyCredentials returns the account matching identity and secret, or ErrInvalidCredentials.
	VerifyCredentials(ctx context.Context, identity, secret string) (User, error)
	// CreateAccount registers a parent account.
	CreateAccount(ctx context.Context, identity, secret, displayName string) (User, error)
	// CreateChild registers a child account for the current (parent) user.
	CreateChild(ctx context.Context, username, secret, name string) (User, error)
	GetChildren(ctx context.Context) ([]User, error)
	GetUser(ctx context.Context, id int) (User, error)
	GetUserByUid(ctx context.Context, uid string) (User, error)
	IsUsernameAvailable(ctx context.Context, username string) (bool, error)
}

type UserServiceImpl struct {
	repo       Repo
	bcryptCost int
}

func NewUserService(repo Repo) *UserServiceImpl {
	return &UserServiceImpl{repo: repo, bcryptCost: bcrypt.DefaultCost}
}

// WithBcryptCost changes the hashing cost; tests use bcrypt.MinCost.
func (u *UserServiceImpl) WithBcryptCost(cost int) *UserServiceImpl {
	u.bcryptCost = cost
	return u
}

func (u *UserServiceImpl) VerifyCredentials(ctx context.Context, identity, secret string) (User, error) {
	identity = normalizeIdentity(identity)
	if identity == "" || secret == "" {
		return User{}, ErrInvalidCredentials
	}
	account, err := u.repo.GetUserByUsername(ctx, identity)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return User{}, ErrInvalidCredentials
		}
		return User{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(secret)); err != nil {
		log.Debugf("password mismatch for %s", identity)
		return User{}, ErrInvalidCredentials
	}
	return account, nil
}

func (u *UserServiceImpl) CreateAccount(ctx context.Context, identity, secret, displayName string) (User, error) {
	identity = normalizeIdentity(identity)
	if displayName == "" {
		displayName = identity
	}
	return u.create(ctx, User{
		Username:    identity,
		DisplayName: displayName,
		Role:        RoleParent,
	}, secret)
}

func (u *UserServiceImpl) CreateChild(ctx context.Context, username, secret, name string) (User, error) {
	parent, err := CurrentUser(ctx)
	if err != nil {
		return User{}, fmt.Errorf("failed to get current user: %w", err)
	}
	if !parent.IsParent() {
		return User{}, ErrNotParent
	}
	if strings.TrimSpace(name) == "" {
		return User{}, fmt.Errorf("%w: name is required", ErrUserDataInvalid)
	}
	return u.create(ctx, User{
		Username:    normalizeIdentity(username),
		DisplayName: strings.TrimSpace(name),
		Role:        RoleChild,
		ParentId:    parent.Id,
	}, secret)
}

func (u *UserServiceImpl) create(ctx context.Context, account User, secret string) (User, error) {
	if account.Username == "" {
		return User{}, fmt.Errorf("%w: identity is required", ErrUserDataInvalid)
	}
	if secret == "" {
		return User{}, fmt.Errorf("%w: secret is required", ErrUserDataInvalid)
	}
	available, err := u.repo.IsUsernameAvailable(ctx, account.Username)
	if err != nil {
		return User{}, err
	}
	if !available {
		return User{}, ErrUsernameTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(secret), u.bcryptCost)
	if err != nil {
		return User{}, fmt.Errorf("failed to hash secret: %w", err)
	}
	account.Uid = uuid.NewString()
	account.PasswordHash = string(hash)

	id, err := u.repo.CreateUser(ctx, account)
	if err != nil {
		return User{}, err
	}
	account.Id = id
	log.Infof("created %s account %s", account.Role, account.Uid)
	return account, nil
}

func (u *UserServiceImpl) GetChildren(ctx context.Context) ([]User, error) {
	parent, err := CurrentUser(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get current user: %w", err)
	}
	if !parent.IsParent() {
		return nil, ErrNotParent
	}
	return u.repo.GetChildren(ctx, parent.Id)
}

func (u *UserServiceImpl) GetUser(ctx context.Context, id int) (User, error) {
	return u.repo.GetUser(ctx, id)
}

func (u *UserServiceImpl) GetUserByUid(ctx context.Context, uid string) (User, error) {
	return u.repo.GetUserByUid(ctx, uid)
}

func (u *UserServiceImpl) IsUsernameAvailable(ctx context.Context, username string) (bool, error) {
	return u.repo.IsUsernameAvailable(ctx, normalizeIdentity(username))
}

func normalizeIdentity(identity string) string {
	return strings.ToLower(strings.TrimSpace(identity))
}
