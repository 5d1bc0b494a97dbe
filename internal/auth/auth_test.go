package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"garden/internal/models"
	"garden/internal/store"
)

type captureMailer struct{ code string }

func (c *captureMailer) SendResetCode(_ context.Context, _, code string, _ time.Duration) error {
	c.code = code
	return nil
}

func newManager(t *testing.T) (*Manager, *store.Memory, *captureMailer) {
	t.Helper()
	mem := store.NewMemory()
	hash, err := HashPassword("secret")
	require.NoError(t, err)
	require.NoError(t, mem.CreateUser(context.Background(), models.User{Email: "a@b.com", PasswordHash: hash, Role: models.RoleUser}))
	mail := &captureMailer{}
	return NewManager(mem, mail, time.Hour, zap.NewNop()), mem, mail
}

func TestLoginSetsSession(t *testing.T) {
	m, _, _ := newManager(t)
	ctx := context.Background()

	w := httptest.NewRecorder()
	_, err := m.Login(ctx, w, "a@b.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = m.Login(ctx, w, "nobody@b.com", "secret")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = m.Login(ctx, w, "", "")
	assert.ErrorIs(t, err, ErrMissingCredentials)

	w = httptest.NewRecorder()
	u, err := m.Login(ctx, w, "a@b.com", "secret")
	require.NoError(t, err)
	assert.Equal(t, models.RoleUser, u.Role)
	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookies[0])
	cur, ok := m.CurrentUser(req)
	require.True(t, ok)
	assert.Equal(t, "a@b.com", cur.Email)

	w = httptest.NewRecorder()
	m.Destroy(w, req)
	_, ok = m.CurrentUser(req)
	assert.False(t, ok)
}

func TestExpiredSessionIsIgnored(t *testing.T) {
	m, _, _ := newManager(t)
	w := httptest.NewRecorder()
	_, err := m.Login(context.Background(), w, "a@b.com", "secret")
	require.NoError(t, err)

	m.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(w.Result().Cookies()[0])
	_, ok := m.CurrentUser(req)
	assert.False(t, ok)
}

func TestResetPasswordFlow(t *testing.T) {
	m, mem, mail := newManager(t)
	ctx := context.Background()

	assert.ErrorIs(t, m.SendResetCode(ctx, "ghost@b.com"), ErrUnknownEmail)
	require.NoError(t, m.SendResetCode(ctx, "a@b.com"))
	require.Len(t, mail.code, 6)

	assert.ErrorIs(t, m.ResetPassword(ctx, "a@b.com", "000000x", "new"), ErrBadCode)
	require.NoError(t, m.ResetPassword(ctx, "a@b.com", mail.code, "new"))
	assert.ErrorIs(t, m.ResetPassword(ctx, "a@b.com", mail.code, "again"), ErrBadCode, "codes are single use")

	u, err := mem.GetUser(ctx, "a@b.com")
	require.NoError(t, err)
	assert.True(t, CheckPassword("new", u.PasswordHash))
}

func TestResetCodeExpires(t *testing.T) {
	m, _, mail := newManager(t)
	ctx := context.Background()
	require.NoError(t, m.SendResetCode(ctx, "a@b.com"))
	m.now = func() time.Time { return time.Now().Add(CodeTTL + time.Second) }
	assert.ErrorIs(t, m.ResetPassword(ctx, "a@b.com", mail.code, "new"), ErrCodeExpired)
}

func TestChangeAdminPassword(t *testing.T) {
	m, mem, _ := newManager(t)
	ctx := context.Background()
	require.NoError(t, mem.CreateUser(ctx, models.User{Email: "admin@garden.com", PasswordHash: "x", Role: models.RoleAdmin}))
	assert.ErrorIs(t, m.ChangeAdminPassword(ctx, ""), ErrWeakPassword)
	require.NoError(t, m.ChangeAdminPassword(ctx, "fresh"))

	admin, err := mem.GetUser(ctx, "admin@garden.com")
	require.NoError(t, err)
	assert.True(t, CheckPassword("fresh", admin.PasswordHash))
	user, err := mem.GetUser(ctx, "a@b.com")
	require.NoError(t, err)
	assert.True(t, CheckPassword("secret", user.PasswordHash))
}
