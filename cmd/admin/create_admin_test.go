package admin

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradingjournal/src/model"
	"tradingjournal/src/security"
)

type mockUsers struct {
	byEmail map[string]*model.User
	created []*model.User
	updated []*model.User
}

func (m *mockUsers) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	return m.byEmail[email], nil
}

func (m *mockUsers) Create(ctx context.Context, user *model.User) error {
	user.ID = uint(len(m.created) + 1)
	m.created = append(m.created, user)
	return nil
}

func (m *mockUsers) Update(ctx context.Context, user *model.User) error {
	m.updated = append(m.updated, user)
	return nil
}

func TestEnsureAdmin_Creates(t *testing.T) {
	users := &mockUsers{}
	user, created, err := EnsureAdmin(context.Background(), users, " Boss@Example.com ", "Str0ng!Pass", "Boss")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "boss@example.com", user.Email)
	assert.Equal(t, model.RoleAdmin, user.Role)
	assert.True(t, user.IsActive)
	assert.True(t, security.CheckPassword(user.Password, "Str0ng!Pass"))
}

func TestEnsureAdmin_PromotesExisting(t *testing.T) {
	existing := &model.User{ID: 9, Email: "ann@example.com", Role: model.RoleUser, IsActive: true}
	users := &mockUsers{byEmail: map[string]*model.User{"ann@example.com": existing}}

	user, created, err := EnsureAdmin(context.Background(), users, "ann@example.com", "", "")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, uint(9), user.ID)
	assert.Equal(t, model.RoleAdmin, user.Role)
	assert.Len(t, users.updated, 1)
	assert.Empty(t, users.created)
}

func TestEnsureAdmin_RejectsWeakPassword(t *testing.T) {
	_, _, err := EnsureAdmin(context.Background(), &mockUsers{}, "new@example.com", "weak", "")
	assert.Error(t, err)

	_, _, err = EnsureAdmin(context.Background(), &mockUsers{}, "", "Str0ng!Pass", "")
	assert.Error(t, err)
}
