package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"garden/internal/models"
)

// SQLite is a Store over a database migrated by db.Migrate.
type SQLite struct {
	db *sql.DB
}

func NewSQLite(db *sql.DB) *SQLite {
	return &SQLite{db: db}
}

func (s *SQLite) Close() error { return s.db.Close() }

func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	return se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE || se.Code() == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
}

// affectedOne maps a statement that touched no row to ErrNotFound.
func affectedOne(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func parseDay(v string) time.Time {
	t, _ := time.Parse(models.DateLayout, v)
	return t
}

func fromMillis(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := time.UnixMilli(v.Int64)
	return &t
}

// checkVersioned maps a conditional update that touched no row to ErrNotFound / ErrStale.
func (s *SQLite) checkVersioned(ctx context.Context, res sql.Result, table, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 1 {
		return nil
	}
	var exists int
	err = s.db.QueryRowContext(ctx, `SELECT 1 FROM `+table+` WHERE id = ?`, id).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	} else if err != nil {
		return err
	}
	return ErrStale
}

const postColumns = `id, title, excerpt, content, author, date, category, tags, cover_image, read_time, status, version`

func scanPost(row interface{ Scan(...any) error }) (models.Post, error) {
	var p models.Post
	var date, tags, status string
	if err := row.Scan(&p.ID, &p.Title, &p.Excerpt, &p.Content, &p.Author, &date, &p.Category, &tags, &p.CoverImage, &p.ReadTime, &status, &p.Version); err != nil {
		return p, err
	}
	p.Date = parseDay(date)
	p.Status = models.PostStatus(status)
	if err := json.Unmarshal([]byte(tags), &p.Tags); err != nil {
		return p, err
	}
	return p, nil
}

func (s *SQLite) InsertPost(ctx context.Context, p models.Post) error {
	tags, err := json.Marshal(nonNil(p.Tags))
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO posts(`+postColumns+`) VALUES(?,?,?,?,?,?,?,?,?,?,?,1)`,
		p.ID, p.Title, p.Excerpt, p.Content, p.Author, p.Date.Format(models.DateLayout), p.Category, string(tags), p.CoverImage, p.ReadTime, string(p.Status))
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

func (s *SQLite) GetPost(ctx context.Context, id string) (models.Post, error) {
	p, err := scanPost(s.db.QueryRowContext(ctx, `SELECT `+postColumns+` FROM posts WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return p, ErrNotFound
	}
	return p, err
}

func (s *SQLite) ListPosts(ctx context.Context) ([]models.Post, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+postColumns+` FROM posts ORDER BY seq DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var posts []models.Post
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

func (s *SQLite) UpdatePostStatus(ctx context.Context, id string, to models.PostStatus, version int64) error {
	res, err := s.db.ExecContext(ctx, `UPDATE posts SET status = ?, version = version + 1 WHERE id = ? AND version = ?`, string(to), id, version)
	if err != nil {
		return err
	}
	return s.checkVersioned(ctx, res, "posts", id)
}

func (s *SQLite) DeletePost(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM comments WHERE post_id = ?`, id); err != nil {
		tx.Rollback()
		return err
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM posts WHERE id = ?`, id)
	if err != nil {
		tx.Rollback()
		return err
	}
	if err := affectedOne(res); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

const momentColumns = `id, content, date, likes, images, author, author_email, status, version`

func scanMoment(row interface{ Scan(...any) error }) (models.Moment, error) {
	var m models.Moment
	var date, images, status string
	if err := row.Scan(&m.ID, &m.Content, &date, &m.Likes, &images, &m.Author, &m.AuthorEmail, &status, &m.Version); err != nil {
		return m, err
	}
	m.Date = parseDay(date)
	m.Status = models.MomentStatus(status)
	if err := json.Unmarshal([]byte(images), &m.Images); err != nil {
		return m, err
	}
	return m, nil
}

func (s *SQLite) InsertMoment(ctx context.Context, m models.Moment) error {
	images, err := json.Marshal(nonNil(m.Images))
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO moments(`+momentColumns+`) VALUES(?,?,?,?,?,?,?,?,1)`,
		m.ID, m.Content, m.Date.Format(models.DateLayout), m.Likes, string(images), m.Author, m.AuthorEmail, string(m.Status))
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

func (s *SQLite) GetMoment(ctx context.Context, id string) (models.Moment, error) {
	m, err := scanMoment(s.db.QueryRowContext(ctx, `SELECT `+momentColumns+` FROM moments WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return m, ErrNotFound
	}
	return m, err
}

func (s *SQLite) ListMoments(ctx context.Context) ([]models.Moment, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+momentColumns+` FROM moments ORDER BY seq DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var moments []models.Moment
	for rows.Next() {
		m, err := scanMoment(rows)
		if err != nil {
			return nil, err
		}
		moments = append(moments, m)
	}
	return moments, rows.Err()
}

func (s *SQLite) UpdateMomentStatus(ctx context.Context, id string, to models.MomentStatus, version int64) error {
	res, err := s.db.ExecContext(ctx, `UPDATE moments SET status = ?, version = version + 1 WHERE id = ? AND version = ?`, string(to), id, version)
	if err != nil {
		return err
	}
	return s.checkVersioned(ctx, res, "moments", id)
}

func (s *SQLite) DeleteMoment(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM moments WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return affectedOne(res)
}

func (s *SQLite) LikeMoment(ctx context.Context, id string) (int, error) {
	var likes int
	err := s.db.QueryRowContext(ctx, `UPDATE moments SET likes = likes + 1 WHERE id = ? RETURNING likes`, id).Scan(&likes)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	return likes, err
}

const requestColumns = `id, email, password_hash, reason, date, status, version`

func scanJoinRequest(row interface{ Scan(...any) error }) (models.JoinRequest, error) {
	var r models.JoinRequest
	var date, status string
	if err := row.Scan(&r.ID, &r.Email, &r.PasswordHash, &r.Reason, &date, &status, &r.Version); err != nil {
		return r, err
	}
	r.Date = parseDay(date)
	r.Status = models.RequestStatus(status)
	return r, nil
}

func (s *SQLite) InsertJoinRequest(ctx context.Context, r models.JoinRequest) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO join_requests(`+requestColumns+`) VALUES(?,?,?,?,?,?,1)`,
		r.ID, r.Email, r.PasswordHash, r.Reason, r.Date.Format(models.DateLayout), string(r.Status))
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

func (s *SQLite) GetJoinRequest(ctx context.Context, id string) (models.JoinRequest, error) {
	r, err := scanJoinRequest(s.db.QueryRowContext(ctx, `SELECT `+requestColumns+` FROM join_requests WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return r, ErrNotFound
	}
	return r, err
}

func (s *SQLite) ListJoinRequests(ctx context.Context) ([]models.JoinRequest, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+requestColumns+` FROM join_requests ORDER BY seq DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.JoinRequest
	for rows.Next() {
		r, err := scanJoinRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLite) UpdateJoinRequestStatus(ctx context.Context, id string, to models.RequestStatus, version int64) error {
	res, err := s.db.ExecContext(ctx, `UPDATE join_requests SET status = ?, version = version + 1 WHERE id = ? AND version = ?`, string(to), id, version)
	if err != nil {
		return err
	}
	return s.checkVersioned(ctx, res, "join_requests", id)
}

func (s *SQLite) CreateUser(ctx context.Context, u models.User) error {
	var last sql.NullInt64
	if u.LastActive != nil {
		last = sql.NullInt64{Int64: u.LastActive.UnixMilli(), Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO users(email, password_hash, role, last_active) VALUES(?,?,?,?)`,
		u.Email, u.PasswordHash, string(u.Role), last)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

func scanUser(row interface{ Scan(...any) error }) (models.User, error) {
	var u models.User
	var role string
	var last sql.NullInt64
	if err := row.Scan(&u.Email, &u.PasswordHash, &role, &last); err != nil {
		return u, err
	}
	u.Role = models.Role(role)
	u.LastActive = fromMillis(last)
	return u, nil
}

func (s *SQLite) GetUser(ctx context.Context, email string) (models.User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, `SELECT email, password_hash, role, last_active FROM users WHERE email = ?`, email))
	if errors.Is(err, sql.ErrNoRows) {
		return u, ErrNotFound
	}
	return u, err
}

func (s *SQLite) ListUsers(ctx context.Context) ([]models.User, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT email, password_hash, role, last_active FROM users ORDER BY rowid`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var users []models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (s *SQLite) TouchUser(ctx context.Context, email string, at time.Time) error {
	res, err := s.db.ExecContext(ctx, `UPDATE users SET last_active = ? WHERE email = ?`, at.UnixMilli(), email)
	if err != nil {
		return err
	}
	return affectedOne(res)
}

func (s *SQLite) SetPassword(ctx context.Context, email, hash string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE users SET password_hash = ? WHERE email = ?`, hash, email)
	if err != nil {
		return err
	}
	return affectedOne(res)
}

func (s *SQLite) SetRolePassword(ctx context.Context, role models.Role, hash string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE users SET password_hash = ? WHERE role = ?`, hash, string(role))
	return err
}

func (s *SQLite) InsertComment(ctx context.Context, c models.Comment) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO comments(id, post_id, parent_id, name, text, date) VALUES(?,?,?,?,?,?)`,
		c.ID, c.PostID, c.ParentID, c.Name, c.Text, c.Date.Format(models.DateLayout))
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

func (s *SQLite) ListComments(ctx context.Context, postID string) ([]models.Comment, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, post_id, parent_id, name, text, date FROM comments WHERE post_id = ? ORDER BY seq`, postID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.Comment
	for rows.Next() {
		var c models.Comment
		var date string
		if err := rows.Scan(&c.ID, &c.PostID, &c.ParentID, &c.Name, &c.Text, &date); err != nil {
			return nil, err
		}
		c.Date = parseDay(date)
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *SQLite) PutResetCode(ctx context.Context, c models.ResetCode) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO reset_codes(email, code, expires_at) VALUES(?,?,?)
		ON CONFLICT(email) DO UPDATE SET code = excluded.code, expires_at = excluded.expires_at`,
		c.Email, c.Code, c.ExpiresAt.UnixMilli())
	return err
}

func (s *SQLite) GetResetCode(ctx context.Context, email string) (models.ResetCode, error) {
	c := models.ResetCode{Email: email}
	var exp int64
	err := s.db.QueryRowContext(ctx, `SELECT code, expires_at FROM reset_codes WHERE email = ?`, email).Scan(&c.Code, &exp)
	if errors.Is(err, sql.ErrNoRows) {
		return c, ErrNotFound
	} else if err != nil {
		return c, err
	}
	c.ExpiresAt = time.UnixMilli(exp)
	return c, nil
}

func (s *SQLite) DeleteResetCode(ctx context.Context, email string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM reset_codes WHERE email = ?`, email)
	return err
}

func (s *SQLite) CreateSession(ctx context.Context, sess models.Session) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO sessions(id, email, expires_at) VALUES(?,?,?)`,
		sess.ID, sess.Email, sess.ExpiresAt.UnixMilli())
	return err
}

func (s *SQLite) GetSession(ctx context.Context, id string) (models.Session, error) {
	sess := models.Session{ID: id}
	var exp int64
	err := s.db.QueryRowContext(ctx, `SELECT email, expires_at FROM sessions WHERE id = ?`, id).Scan(&sess.Email, &exp)
	if errors.Is(err, sql.ErrNoRows) {
		return sess, ErrNotFound
	} else if err != nil {
		return sess, err
	}
	sess.ExpiresAt = time.UnixMilli(exp)
	return sess, nil
}

func (s *SQLite) DeleteSession(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	return err
}

func (s *SQLite) DeleteUserSessions(ctx context.Context, email string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE email = ?`, email)
	return err
}

func nonNil(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}
