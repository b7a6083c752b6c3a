package fakeuserrepo

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-video-server/users"
)

var _ users.Repo = (*FakeUserRepo)(nil)

type FakeUserRepo struct {
	users       map[string]*users.Account
	usernameIds map[string]string // username to account id
	emailIds    map[string]string // email to account id
	lock        sync.RWMutex
	nowFunc     func() time.Time
}

func NewFakeUserRepo() *FakeUserRepo {
	return &FakeUserRepo{
		users:       make(map[string]*users.Account),
		usernameIds: make(map[string]string),
		emailIds:    make(map[string]string),
		nowFunc:     time.Now,
	}
}

func (ur *FakeUserRepo) FindByIdentifier(_ context.Context, username, email string) (*users.Account, error) {
	ur.lock.RLock()
	defer ur.lock.RUnlock()

	if id, ok := ur.usernameIds[username]; ok && username != "" {
		return ur.users[id].Clone(), nil
	}
	if id, ok := ur.emailIds[email]; ok && email != "" {
		return ur.users[id].Clone(), nil
	}
	return nil, users.ErrNotFound
}

func (ur *FakeUserRepo) FindByID(_ context.Context, id string) (*users.Account, error) {
	ur.lock.RLock()
	defer ur.lock.RUnlock()

	account, ok := ur.users[id]
	if !ok {
		return nil, users.ErrNotFound
	}
	return account.Clone(), nil
}

func (ur *FakeUserRepo) Insert(_ context.Context, account *users.Account) (*users.Account, error) {
	ur.lock.Lock()
	defer ur.lock.Unlock()

	if _, ok := ur.usernameIds[account.Username]; ok {
		return nil, users.ErrDuplicate
	}
	if _, ok := ur.emailIds[account.Email]; ok {
		return nil, users.ErrDuplicate
	}

	stored := account.Clone()
	if stored.ID == "" {
		stored.ID = uuid.New().String()
	}
	now := ur.nowFunc().UTC()
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = now
	}
	stored.UpdatedAt = now

	ur.users[stored.ID] = stored
	ur.usernameIds[stored.Username] = stored.ID
	ur.emailIds[stored.Email] = stored.ID
	return stored.Clone(), nil
}

func (ur *FakeUserRepo) Patch(_ context.Context, id string, patch users.Patch) (*users.Account, error) {
	ur.lock.Lock()
	defer ur.lock.Unlock()

	account, ok := ur.users[id]
	if !ok {
		return nil, users.ErrNotFound
	}
	if patch.IfRefreshToken != nil && *patch.IfRefreshToken != account.RefreshToken {
		return nil, users.ErrStaleRefreshToken
	}
	if patch.Username != nil && *patch.Username != account.Username {
		if _, taken := ur.usernameIds[*patch.Username]; taken {
			return nil, users.ErrDuplicate
		}
		delete(ur.usernameIds, account.Username)
		ur.usernameIds[*patch.Username] = id
	}

	patch.Apply(account)
	account.UpdatedAt = ur.nowFunc().UTC()
	return account.Clone(), nil
}
