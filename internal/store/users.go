package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"evdealer/backend/internal/domain"
)

const userIndexKey = "user-index"

var ErrUserExists = errors.New("user already exists")

// Users keeps login accounts in a RecordStore.
type Users struct {
	mu      sync.Mutex
	records RecordStore
}

func NewUsers(records RecordStore) *Users {
	return &Users{records: records}
}

func userKey(username string) string {
	return "user:" + strings.ToLower(strings.TrimSpace(username))
}

func (u *Users) CreateUser(ctx context.Context, user domain.UserAccount) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	key := userKey(user.Username)
	if key == "user:" {
		return ErrEmptyKey
	}
	_, exists, err := u.records.Get(ctx, key)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("%s: %w", user.Username, ErrUserExists)
	}
	if err := PutJSON(ctx, u.records, key, storedUser(user)); err != nil {
		return err
	}
	return AppendIndex(ctx, u.records, userIndexKey, strings.ToLower(strings.TrimSpace(user.Username)))
}

func (u *Users) ListUsers(ctx context.Context) ([]domain.UserAccount, error) {
	names, err := LoadIndex(ctx, u.records, userIndexKey)
	if err != nil {
		return nil, err
	}
	users := make([]domain.UserAccount, 0, len(names))
	for _, name := range names {
		var rec userRecord
		if err := GetJSON(ctx, u.records, userKey(name), &rec); err != nil {
			if errors.Is(err, ErrNotFound) {
				continue
			}
			return nil, err
		}
		users = append(users, rec.account())
	}
	return users, nil
}

func (u *Users) UpdateUserPassword(ctx context.Context, username string, password string) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	var rec userRecord
	if err := GetJSON(ctx, u.records, userKey(username), &rec); err != nil {
		return err
	}
	rec.Password = password
	return PutJSON(ctx, u.records, userKey(username), rec)
}

// userRecord exists because domain.UserAccount hides the password from JSON.
type userRecord struct {
	domain.UserAccount
	Password string `json:"password"`
}

func storedUser(user domain.UserAccount) userRecord {
	return userRecord{UserAccount: user, Password: user.Password}
}

func (r userRecord) account() domain.UserAccount {
	acc := r.UserAccount
	acc.Password = r.Password
	return acc
}
