package auth

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"garden/internal/models"
	"garden/internal/store"
)

const sessionCookie = "garden_session"

// CodeTTL is how long a password reset code stays valid.
const CodeTTL = 5 * time.Minute

var (
	ErrMissingCredentials = errors.New("email and password required")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUnknownEmail       = errors.New("email is not registered")
	ErrBadCode            = errors.New("verification code is wrong")
	ErrCodeExpired        = errors.New("verification code expired")
	ErrWeakPassword       = errors.New("password must not be empty")
)

// Repository is the slice of the store auth needs.
type Repository interface {
	store.Users
	store.Sessions
	store.ResetCodes
}

// Mailer delivers reset codes. Delivery itself is an external concern.
type Mailer interface {
	SendResetCode(ctx context.Context, to, code string, ttl time.Duration) error
}

// LogMailer writes reset codes to the log instead of sending mail.
type LogMailer struct {
	Log *zap.Logger
}

func (m LogMailer) SendResetCode(_ context.Context, to, code string, ttl time.Duration) error {
	m.Log.Info("reset code issued", zap.String("to", to), zap.String("code", code), zap.Duration("ttl", ttl))
	return nil
}

type Manager struct {
	repo   Repository
	mailer Mailer
	log    *zap.Logger
	maxAge time.Duration
	now    func() time.Time
}

func NewManager(repo Repository, mailer Mailer, maxAge time.Duration, log *zap.Logger) *Manager {
	return &Manager{repo: repo, mailer: mailer, log: log, maxAge: maxAge, now: time.Now}
}

func HashPassword(pw string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.DefaultCost)
	return string(b), err
}

func CheckPassword(pw, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pw)) == nil
}

// Login checks credentials, replaces any previous session of the user and
// sets the session cookie.
func (m *Manager) Login(ctx context.Context, w http.ResponseWriter, email, password string) (models.User, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return models.User{}, ErrMissingCredentials
	}
	u, err := m.repo.GetUser(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return models.User{}, ErrInvalidCredentials
	} else if err != nil {
		return models.User{}, err
	}
	if !CheckPassword(password, u.PasswordHash) {
		m.log.Info("login rejected", zap.String("email", email))
		return models.User{}, ErrInvalidCredentials
	}
	if err := m.repo.DeleteUserSessions(ctx, email); err != nil {
		return models.User{}, err
	}
	if err := m.create(ctx, w, email); err != nil {
		return models.User{}, err
	}
	return u, nil
}

func (m *Manager) create(ctx context.Context, w http.ResponseWriter, email string) error {
	id := uuid.New().String()
	expires := m.now().Add(m.maxAge)
	if err := m.repo.CreateSession(ctx, models.Session{ID: id, Email: email, ExpiresAt: expires}); err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   false,
		SameSite: http.SameSiteLaxMode,
		Expires:  expires,
	})
	return nil
}

func (m *Manager) Destroy(w http.ResponseWriter, r *http.Request) {
	c, _ := r.Cookie(sessionCookie)
	if c != nil && c.Value != "" {
		if err := m.repo.DeleteSession(r.Context(), c.Value); err != nil {
			m.log.Warn("delete session", zap.Error(err))
		}
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Expires:  time.Unix(0, 0),
	})
}

// CurrentUser resolves the request's session cookie to its user.
func (m *Manager) CurrentUser(r *http.Request) (models.User, bool) {
	c, err := r.Cookie(sessionCookie)
	if err != nil || c.Value == "" {
		return models.User{}, false
	}
	sess, err := m.repo.GetSession(r.Context(), c.Value)
	if err != nil || m.now().After(sess.ExpiresAt) {
		return models.User{}, false
	}
	u, err := m.repo.GetUser(r.Context(), sess.Email)
	if err != nil {
		return models.User{}, false
	}
	return u, true
}

// SendResetCode issues a six digit code for a registered email.
func (m *Manager) SendResetCode(ctx context.Context, email string) error {
	if _, err := m.repo.GetUser(ctx, email); errors.Is(err, store.ErrNotFound) {
		return ErrUnknownEmail
	} else if err != nil {
		return err
	}
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return err
	}
	code := fmt.Sprintf("%06d", 100000+n.Int64())
	if err := m.repo.PutResetCode(ctx, models.ResetCode{Email: email, Code: code, ExpiresAt: m.now().Add(CodeTTL)}); err != nil {
		return err
	}
	if err := m.mailer.SendResetCode(ctx, email, code, CodeTTL); err != nil {
		return fmt.Errorf("send reset code: %w", err)
	}
	return nil
}

// ResetPassword consumes a valid code and sets the new password.
func (m *Manager) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	if newPassword == "" {
		return ErrWeakPassword
	}
	rc, err := m.repo.GetResetCode(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return ErrBadCode
	} else if err != nil {
		return err
	}
	if rc.Code != code {
		return ErrBadCode
	}
	if m.now().After(rc.ExpiresAt) {
		return ErrCodeExpired
	}
	hash, err := HashPassword(newPassword)
	if err != nil {
		return err
	}
	if err := m.repo.SetPassword(ctx, email, hash); errors.Is(err, store.ErrNotFound) {
		return ErrUnknownEmail
	} else if err != nil {
		return err
	}
	m.log.Info("password reset", zap.String("email", email))
	return m.repo.DeleteResetCode(ctx, email)
}

// ChangeAdminPassword sets the password of every admin account.
func (m *Manager) ChangeAdminPassword(ctx context.Context, newPassword string) error {
	if newPassword == "" {
		return ErrWeakPassword
	}
	hash, err := HashPassword(newPassword)
	if err != nil {
		return err
	}
	return m.repo.SetRolePassword(ctx, models.RoleAdmin, hash)
}
