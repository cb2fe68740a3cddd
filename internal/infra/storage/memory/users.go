package memory

import (
	"context"
	"slices"
	"strings"
	"sync"

	domainuser "rentwheels/internal/domain/user"
)

// UserRepository is the account directory of the in-memory backend. Accounts
// are kept by value so callers never share role slices with the store.
type UserRepository struct {
	mu       sync.RWMutex
	accounts map[domainuser.ID]domainuser.User
	emails   map[string]domainuser.ID
}

func NewUserRepository() *UserRepository {
	return &UserRepository{
		accounts: make(map[domainuser.ID]domainuser.User),
		emails:   make(map[string]domainuser.ID),
	}
}

func (r *UserRepository) ByID(_ context.Context, id domainuser.ID) (*domainuser.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lookup(id)
}

func (r *UserRepository) ByEmail(_ context.Context, email string) (*domainuser.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.emails[domainuser.NormalizeEmail(email)]
	if !ok {
		return nil, domainuser.ErrNotFound
	}
	return r.lookup(id)
}

// Save inserts or replaces an account. An email stays bound to the first
// account that claimed it; changing an account's email releases the old one.
func (r *UserRepository) Save(_ context.Context, user *domainuser.User) error {
	if user == nil || strings.TrimSpace(string(user.ID)) == "" {
		return domainuser.ErrIDRequired
	}
	email := domainuser.NormalizeEmail(user.Email)
	if email == "" {
		return domainuser.ErrEmailRequired
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if holder, taken := r.emails[email]; taken && holder != user.ID {
		return domainuser.ErrEmailAlreadyUsed
	}
	if previous, ok := r.accounts[user.ID]; ok {
		delete(r.emails, domainuser.NormalizeEmail(previous.Email))
	}
	account := *user
	account.Roles = slices.Clone(user.Roles)
	r.accounts[user.ID] = account
	r.emails[email] = user.ID
	return nil
}

// lookup returns a detached copy. Callers hold r.mu.
func (r *UserRepository) lookup(id domainuser.ID) (*domainuser.User, error) {
	account, ok := r.accounts[id]
	if !ok {
		return nil, domainuser.ErrNotFound
	}
	account.Roles = slices.Clone(account.Roles)
	return &account, nil
}

var _ domainuser.Repository = (*UserRepository)(nil)
