package user

import (
	"context"
	"sort"
	"sync"
)

type StubUserRepository struct {
	mu     sync.Mutex
	nextId int
	data   map[int]User
}

func NewStubUserRepository() *StubUserRepository {
	return &StubUserRepository{nextId: 0, data: map[int]User{}}
}

func (s *StubUserRepository) CreateUser(ctx context.Context, user User) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.data {
		if existing.Username == user.Username || existing.Uid == user.Uid {
			return 0, ErrUsernameTaken
		}
	}
	s.nextId++
	user.Id = s.nextId
	s.data[s.nextId] = user
	return s.nextId, nil
}

func (s *StubUserRepository) GetUser(ctx context.Context, id int) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.data[id]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return user, nil
}

func (s *StubUserRepository) GetUserByUid(ctx context.Context, uid string) (User, error) {
	return s.find(func(u User) bool { return u.Uid == uid })
}

func (s *StubUserRepository) GetUserByUsername(ctx context.Context, username string) (User, error) {
	return s.find(func(u User) bool { return u.Username == username })
}

func (s *StubUserRepository) GetChildren(ctx context.Context, parentId int) ([]User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	children := make([]User, 0)
	for _, u := range s.data {
		if u.ParentId == parentId {
			children = append(children, u)
		}
	}
	sort.Slice(children, func(i, j int) bool {
		if children[i].DisplayName != children[j].DisplayName {
			return children[i].DisplayName < children[j].DisplayName
		}
		return children[i].Id < children[j].Id
	})
	return children, nil
}

func (s *StubUserRepository) IsUsernameAvailable(ctx context.Context, username string) (bool, error) {
	_, err := s.GetUserByUsername(ctx, username)
	return err != nil, nil
}

func (s *StubUserRepository) find(match func(User) bool) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.data {
		if match(u) {
			return u, nil
		}
	}
	return User{}, ErrUserNotFound
}
