package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// DateLayout is the calendar-day format used for post, moment and request dates.
const DateLayout = "2006-01-02"

var (
	ErrInvalidStatus = errors.New("invalid status")
	ErrInvalidRole   = errors.New("invalid role")
)

type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

func (r Role) Valid() bool { return r == RoleAdmin || r == RoleUser }

// PostStatus is the publication state of a post. Posts have no rejected
// state: rejecting one deletes it.
type PostStatus string

const (
	PostPending  PostStatus = "pending"
	PostApproved PostStatus = "approved"
)

func (s PostStatus) Valid() bool { return s == PostPending || s == PostApproved }

func (s *PostStatus) UnmarshalJSON(b []byte) error {
	return unmarshalStatus(b, (*string)(s), func(v string) bool { return PostStatus(v).Valid() })
}

type MomentStatus string

const (
	MomentPending  MomentStatus = "pending"
	MomentApproved MomentStatus = "approved"
)

func (s MomentStatus) Valid() bool { return s == MomentPending || s == MomentApproved }

func (s *MomentStatus) UnmarshalJSON(b []byte) error {
	return unmarshalStatus(b, (*string)(s), func(v string) bool { return MomentStatus(v).Valid() })
}

// RequestStatus is the state of a join request. Approved and rejected are
// both terminal.
type RequestStatus string

const (
	RequestPending  RequestStatus = "pending"
	RequestApproved RequestStatus = "approved"
	RequestRejected RequestStatus = "rejected"
)

func (s RequestStatus) Valid() bool {
	return s == RequestPending || s == RequestApproved || s == RequestRejected
}

func (s RequestStatus) Terminal() bool { return s == RequestApproved || s == RequestRejected }

func (s *RequestStatus) UnmarshalJSON(b []byte) error {
	return unmarshalStatus(b, (*string)(s), func(v string) bool { return RequestStatus(v).Valid() })
}

func unmarshalStatus(b []byte, dst *string, valid func(string) bool) error {
	var v string
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	if v != "" && !valid(v) {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, v)
	}
	*dst = v
	return nil
}

type User struct {
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	Role         Role       `json:"role"`
	LastActive   *time.Time `json:"lastActive,omitempty"`
}

type Post struct {
	ID         string     `json:"id"`
	Title      string     `json:"title"`
	Excerpt    string     `json:"excerpt"`
	Content    string     `json:"content"`
	Author     string     `json:"author"`
	Date       time.Time  `json:"date"`
	Category   string     `json:"category"`
	Tags       []string   `json:"tags"`
	CoverImage string     `json:"coverImage"`
	ReadTime   string     `json:"readTime"`
	Status     PostStatus `json:"status"`
	Version    int64      `json:"version"`
}

func (p Post) PublishedOn() time.Time { return p.Date }
func (p Post) Approved() bool         { return p.Status == PostApproved }

type Moment struct {
	ID          string       `json:"id"`
	Content     string       `json:"content"`
	Date        time.Time    `json:"date"`
	Likes       int          `json:"likes"`
	Images      []string     `json:"images"`
	Author      string       `json:"author"`
	AuthorEmail string       `json:"authorEmail,omitempty"`
	Status      MomentStatus `json:"status"`
	Version     int64        `json:"version"`
}

func (m Moment) PublishedOn() time.Time { return m.Date }
func (m Moment) Approved() bool         { return m.Status == MomentApproved }

type JoinRequest struct {
	ID           string        `json:"id"`
	Email        string        `json:"email"`
	PasswordHash string        `json:"-"`
	Reason       string        `json:"reason"`
	Date         time.Time     `json:"date"`
	Status       RequestStatus `json:"status"`
	Version      int64         `json:"version"`
}

// Comment belongs to a post. ParentID is empty for top-level comments and
// holds the replied-to comment otherwise.
type Comment struct {
	ID       string    `json:"id"`
	PostID   string    `json:"postId"`
	ParentID string    `json:"parentId,omitempty"`
	Name     string    `json:"name"`
	Text     string    `json:"text"`
	Date     time.Time `json:"date"`
}

type ResetCode struct {
	Email     string
	Code      string
	ExpiresAt time.Time
}

type Session struct {
	ID        string
	Email     string
	ExpiresAt time.Time
}

// Day truncates t to the calendar day in UTC.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// MustDay parses a YYYY-MM-DD literal. Intended for seed data.
func MustDay(s string) time.Time {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}
