package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"garden/internal/models"
)

// Postgres is a Store over a pool migrated by db.MigratePostgres.
type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

func (s *Postgres) Close() error {
	s.pool.Close()
	return nil
}

func pgUnique(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func pgMillis(v *int64) *time.Time {
	if v == nil {
		return nil
	}
	t := time.UnixMilli(*v)
	return &t
}

func (s *Postgres) checkVersioned(ctx context.Context, tag pgconn.CommandTag, table, id string) error {
	if tag.RowsAffected() == 1 {
		return nil
	}
	var exists int
	err := s.pool.QueryRow(ctx, `SELECT 1 FROM `+table+` WHERE id = $1`, id).Scan(&exists)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	} else if err != nil {
		return err
	}
	return ErrStale
}

func scanPgPost(row pgx.Row) (models.Post, error) {
	var p models.Post
	var status string
	err := row.Scan(&p.ID, &p.Title, &p.Excerpt, &p.Content, &p.Author, &p.Date, &p.Category, &p.Tags, &p.CoverImage, &p.ReadTime, &status, &p.Version)
	p.Status = models.PostStatus(status)
	return p, err
}

func (s *Postgres) InsertPost(ctx context.Context, p models.Post) error {
	_, err := s.pool.Exec(ctx, `INSERT INTO posts(`+postColumns+`) VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,1)`,
		p.ID, p.Title, p.Excerpt, p.Content, p.Author, models.Day(p.Date), p.Category, nonNil(p.Tags), p.CoverImage, p.ReadTime, string(p.Status))
	if pgUnique(err) {
		return ErrDuplicate
	}
	return err
}

func (s *Postgres) GetPost(ctx context.Context, id string) (models.Post, error) {
	p, err := scanPgPost(s.pool.QueryRow(ctx, `SELECT `+postColumns+` FROM posts WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return p, ErrNotFound
	}
	return p, err
}

func (s *Postgres) ListPosts(ctx context.Context) ([]models.Post, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+postColumns+` FROM posts ORDER BY seq DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var posts []models.Post
	for rows.Next() {
		p, err := scanPgPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

func (s *Postgres) UpdatePostStatus(ctx context.Context, id string, to models.PostStatus, version int64) error {
	tag, err := s.pool.Exec(ctx, `UPDATE posts SET status = $1, version = version + 1 WHERE id = $2 AND version = $3`, string(to), id, version)
	if err != nil {
		return err
	}
	return s.checkVersioned(ctx, tag, "posts", id)
}

func (s *Postgres) DeletePost(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM posts WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanPgMoment(row pgx.Row) (models.Moment, error) {
	var m models.Moment
	var status string
	err := row.Scan(&m.ID, &m.Content, &m.Date, &m.Likes, &m.Images, &m.Author, &m.AuthorEmail, &status, &m.Version)
	m.Status = models.MomentStatus(status)
	return m, err
}

func (s *Postgres) InsertMoment(ctx context.Context, m models.Moment) error {
	_, err := s.pool.Exec(ctx, `INSERT INTO moments(`+momentColumns+`) VALUES($1,$2,$3,$4,$5,$6,$7,$8,1)`,
		m.ID, m.Content, models.Day(m.Date), m.Likes, nonNil(m.Images), m.Author, m.AuthorEmail, string(m.Status))
	if pgUnique(err) {
		return ErrDuplicate
	}
	return err
}

func (s *Postgres) GetMoment(ctx context.Context, id string) (models.Moment, error) {
	m, err := scanPgMoment(s.pool.QueryRow(ctx, `SELECT `+momentColumns+` FROM moments WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return m, ErrNotFound
	}
	return m, err
}

func (s *Postgres) ListMoments(ctx context.Context) ([]models.Moment, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+momentColumns+` FROM moments ORDER BY seq DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var moments []models.Moment
	for rows.Next() {
		m, err := scanPgMoment(rows)
		if err != nil {
			return nil, err
		}
		moments = append(moments, m)
	}
	return moments, rows.Err()
}

func (s *Postgres) UpdateMomentStatus(ctx context.Context, id string, to models.MomentStatus, version int64) error {
	tag, err := s.pool.Exec(ctx, `UPDATE moments SET status = $1, version = version + 1 WHERE id = $2 AND version = $3`, string(to), id, version)
	if err != nil {
		return err
	}
	return s.checkVersioned(ctx, tag, "moments", id)
}

func (s *Postgres) DeleteMoment(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM moments WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Postgres) LikeMoment(ctx context.Context, id string) (int, error) {
	var likes int
	err := s.pool.QueryRow(ctx, `UPDATE moments SET likes = likes + 1 WHERE id = $1 RETURNING likes`, id).Scan(&likes)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrNotFound
	}
	return likes, err
}

func scanPgJoinRequest(row pgx.Row) (models.JoinRequest, error) {
	var r models.JoinRequest
	var status string
	err := row.Scan(&r.ID, &r.Email, &r.PasswordHash, &r.Reason, &r.Date, &status, &r.Version)
	r.Status = models.RequestStatus(status)
	return r, err
}

func (s *Postgres) InsertJoinRequest(ctx context.Context, r models.JoinRequest) error {
	_, err := s.pool.Exec(ctx, `INSERT INTO join_requests(`+requestColumns+`) VALUES($1,$2,$3,$4,$5,$6,1)`,
		r.ID, r.Email, r.PasswordHash, r.Reason, models.Day(r.Date), string(r.Status))
	if pgUnique(err) {
		return ErrDuplicate
	}
	return err
}

func (s *Postgres) GetJoinRequest(ctx context.Context, id string) (models.JoinRequest, error) {
	r, err := scanPgJoinRequest(s.pool.QueryRow(ctx, `SELECT `+requestColumns+` FROM join_requests WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return r, ErrNotFound
	}
	return r, err
}

func (s *Postgres) ListJoinRequests(ctx context.Context) ([]models.JoinRequest, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+requestColumns+` FROM join_requests ORDER BY seq DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.JoinRequest
	for rows.Next() {
		r, err := scanPgJoinRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Postgres) UpdateJoinRequestStatus(ctx context.Context, id string, to models.RequestStatus, version int64) error {
	tag, err := s.pool.Exec(ctx, `UPDATE join_requests SET status = $1, version = version + 1 WHERE id = $2 AND version = $3`, string(to), id, version)
	if err != nil {
		return err
	}
	return s.checkVersioned(ctx, tag, "join_requests", id)
}

func (s *Postgres) CreateUser(ctx context.Context, u models.User) error {
	var last *int64
	if u.LastActive != nil {
		ms := u.LastActive.UnixMilli()
		last = &ms
	}
	_, err := s.pool.Exec(ctx, `INSERT INTO users(email, password_hash, role, last_active) VALUES($1,$2,$3,$4)`,
		u.Email, u.PasswordHash, string(u.Role), last)
	if pgUnique(err) {
		return ErrDuplicate
	}
	return err
}

func scanPgUser(row pgx.Row) (models.User, error) {
	var u models.User
	var role string
	var last *int64
	err := row.Scan(&u.Email, &u.PasswordHash, &role, &last)
	u.Role = models.Role(role)
	u.LastActive = pgMillis(last)
	return u, err
}

func (s *Postgres) GetUser(ctx context.Context, email string) (models.User, error) {
	u, err := scanPgUser(s.pool.QueryRow(ctx, `SELECT email, password_hash, role, last_active FROM users WHERE email = $1`, email))
	if errors.Is(err, pgx.ErrNoRows) {
		return u, ErrNotFound
	}
	return u, err
}

func (s *Postgres) ListUsers(ctx context.Context) ([]models.User, error) {
	rows, err := s.pool.Query(ctx, `SELECT email, password_hash, role, last_active FROM users ORDER BY email`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var users []models.User
	for rows.Next() {
		u, err := scanPgUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (s *Postgres) TouchUser(ctx context.Context, email string, at time.Time) error {
	tag, err := s.pool.Exec(ctx, `UPDATE users SET last_active = $1 WHERE email = $2`, at.UnixMilli(), email)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Postgres) SetPassword(ctx context.Context, email, hash string) error {
	tag, err := s.pool.Exec(ctx, `UPDATE users SET password_hash = $1 WHERE email = $2`, hash, email)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Postgres) SetRolePassword(ctx context.Context, role models.Role, hash string) error {
	_, err := s.pool.Exec(ctx, `UPDATE users SET password_hash = $1 WHERE role = $2`, hash, string(role))
	return err
}

func (s *Postgres) InsertComment(ctx context.Context, c models.Comment) error {
	_, err := s.pool.Exec(ctx, `INSERT INTO comments(id, post_id, parent_id, name, text, date) VALUES($1,$2,$3,$4,$5,$6)`,
		c.ID, c.PostID, c.ParentID, c.Name, c.Text, models.Day(c.Date))
	if pgUnique(err) {
		return ErrDuplicate
	}
	return err
}

func (s *Postgres) ListComments(ctx context.Context, postID string) ([]models.Comment, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, post_id, parent_id, name, text, date FROM comments WHERE post_id = $1 ORDER BY seq`, postID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.Comment
	for rows.Next() {
		var c models.Comment
		if err := rows.Scan(&c.ID, &c.PostID, &c.ParentID, &c.Name, &c.Text, &c.Date); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Postgres) PutResetCode(ctx context.Context, c models.ResetCode) error {
	_, err := s.pool.Exec(ctx, `INSERT INTO reset_codes(email, code, expires_at) VALUES($1,$2,$3)
		ON CONFLICT(email) DO UPDATE SET code = excluded.code, expires_at = excluded.expires_at`,
		c.Email, c.Code, c.ExpiresAt.UnixMilli())
	return err
}

func (s *Postgres) GetResetCode(ctx context.Context, email string) (models.ResetCode, error) {
	c := models.ResetCode{Email: email}
	var exp int64
	err := s.pool.QueryRow(ctx, `SELECT code, expires_at FROM reset_codes WHERE email = $1`, email).Scan(&c.Code, &exp)
	if errors.Is(err, pgx.ErrNoRows) {
		return c, ErrNotFound
	} else if err != nil {
		return c, err
	}
	c.ExpiresAt = time.UnixMilli(exp)
	return c, nil
}

func (s *Postgres) DeleteResetCode(ctx context.Context, email string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM reset_codes WHERE email = $1`, email)
	return err
}

func (s *Postgres) CreateSession(ctx context.Context, sess models.Session) error {
	_, err := s.pool.Exec(ctx, `INSERT INTO sessions(id, email, expires_at) VALUES($1,$2,$3)`,
		sess.ID, sess.Email, sess.ExpiresAt.UnixMilli())
	return err
}

func (s *Postgres) GetSession(ctx context.Context, id string) (models.Session, error) {
	sess := models.Session{ID: id}
	var exp int64
	err := s.pool.QueryRow(ctx, `SELECT email, expires_at FROM sessions WHERE id = $1`, id).Scan(&sess.Email, &exp)
	if errors.Is(err, pgx.ErrNoRows) {
		return sess, ErrNotFound
	} else if err != nil {
		return sess, err
	}
	sess.ExpiresAt = time.UnixMilli(exp)
	return sess, nil
}

func (s *Postgres) DeleteSession(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	return err
}

func (s *Postgres) DeleteUserSessions(ctx context.Context, email string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM sessions WHERE email = $1`, email)
	return err
}
