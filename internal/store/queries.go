// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/olegiv/staffblog/internal/model"
)

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

// Queries is the query catalog over a database or transaction.
type Queries struct {
	db DBTX
}

// New creates a Queries bound to db.
func New(db DBTX) *Queries {
	return &Queries{db: db}
}

// WithTx returns a Queries bound to the transaction.
func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

const postColumns = `id, title, slug, content, category, image_url, video_url, published, author_id, created_at, updated_at`

func scanPost(row interface{ Scan(...interface{}) error }) (model.Post, error) {
	var p model.Post
	err := row.Scan(
		&p.ID, &p.Title, &p.Slug, &p.Content,
		&p.Category, &p.ImageURL, &p.VideoURL,
		&p.Published, &p.AuthorID, &p.CreatedAt, &p.UpdatedAt,
	)
	return p, err
}

// CreatePostParams holds the values for a new post row.
type CreatePostParams struct {
	ID        string
	Title     string
	Slug      string
	Content   string
	Category  sql.NullString
	ImageURL  sql.NullString
	VideoURL  sql.NullString
	Published bool
	AuthorID  sql.NullString
	CreatedAt time.Time
}

func (q *Queries) CreatePost(ctx context.Context, arg CreatePostParams) (model.Post, error) {
	row := q.db.QueryRowContext(ctx, `
		INSERT INTO posts (id, title, slug, content, category, image_url, video_url, published, author_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING `+postColumns,
		arg.ID, arg.Title, arg.Slug, arg.Content, arg.Category,
		arg.ImageURL, arg.VideoURL, arg.Published, arg.AuthorID, arg.CreatedAt,
	)
	return scanPost(row)
}

func (q *Queries) GetPost(ctx context.Context, id string) (model.Post, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+postColumns+` FROM posts WHERE id = ?`, id)
	return scanPost(row)
}

func (q *Queries) GetPostBySlug(ctx context.Context, slug string) (model.Post, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+postColumns+` FROM posts WHERE slug = ?`, slug)
	return scanPost(row)
}

// ListPosts returns every post, newest first. Used by the admin list.
func (q *Queries) ListPosts(ctx context.Context) ([]model.Post, error) {
	return q.listPosts(ctx,
		`SELECT `+postColumns+` FROM posts ORDER BY created_at DESC, id DESC`)
}

// ListPublishedPosts returns published posts, newest first.
func (q *Queries) ListPublishedPosts(ctx context.Context) ([]model.Post, error) {
	return q.listPosts(ctx,
		`SELECT `+postColumns+` FROM posts WHERE published = 1 ORDER BY created_at DESC, id DESC`)
}

func (q *Queries) listPosts(ctx context.Context, query string, args ...interface{}) ([]model.Post, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var posts []model.Post
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

// UpdatePostParams holds the replacement values for an existing post.
type UpdatePostParams struct {
	ID        string
	Title     string
	Slug      string
	Content   string
	Category  sql.NullString
	ImageURL  sql.NullString
	VideoURL  sql.NullString
	Published bool
	UpdatedAt time.Time
}

func (q *Queries) UpdatePost(ctx context.Context, arg UpdatePostParams) (model.Post, error) {
	row := q.db.QueryRowContext(ctx, `
		UPDATE posts
		SET title = ?, slug = ?, content = ?, category = ?,
		    image_url = ?, video_url = ?, published = ?, updated_at = ?
		WHERE id = ?
		RETURNING `+postColumns,
		arg.Title, arg.Slug, arg.Content, arg.Category,
		arg.ImageURL, arg.VideoURL, arg.Published, arg.UpdatedAt, arg.ID,
	)
	return scanPost(row)
}

func (q *Queries) DeletePost(ctx context.Context, id string) error {
	res, err := q.db.ExecContext(ctx, `DELETE FROM posts WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// SlugExists reports whether any post uses the slug.
func (q *Queries) SlugExists(ctx context.Context, slug string) (bool, error) {
	var exists bool
	err := q.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM posts WHERE slug = ?)`, slug).Scan(&exists)
	return exists, err
}

// ListPostMediaURLsRow pairs the media columns of one post.
type ListPostMediaURLsRow struct {
	ImageURL sql.NullString
	VideoURL sql.NullString
}

// ListPostMediaURLs returns the media URLs referenced by any post.
// Used by the orphaned media sweep.
func (q *Queries) ListPostMediaURLs(ctx context.Context) ([]ListPostMediaURLsRow, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT image_url, video_url FROM posts WHERE image_url IS NOT NULL OR video_url IS NOT NULL`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ListPostMediaURLsRow
	for rows.Next() {
		var r ListPostMediaURLsRow
		if err := rows.Scan(&r.ImageURL, &r.VideoURL); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// CreateUserParams holds the values for a new user row.
type CreateUserParams struct {
	Email        string
	PasswordHash string
	Name         string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (model.User, error) {
	row := q.db.QueryRowContext(ctx, `
		INSERT INTO users (email, password_hash, name, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		RETURNING id, email, password_hash, name, created_at, updated_at, last_login_at`,
		arg.Email, arg.PasswordHash, arg.Name, arg.CreatedAt, arg.UpdatedAt,
	)
	return scanUser(row)
}

func scanUser(row interface{ Scan(...interface{}) error }) (model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Name,
		&u.CreatedAt, &u.UpdatedAt, &u.LastLoginAt)
	return u, err
}

func (q *Queries) GetUser(ctx context.Context, id int64) (model.User, error) {
	row := q.db.QueryRowContext(ctx, `
		SELECT id, email, password_hash, name, created_at, updated_at, last_login_at
		FROM users WHERE id = ?`, id)
	return scanUser(row)
}

func (q *Queries) GetUserByEmail(ctx context.Context, email string) (model.User, error) {
	row := q.db.QueryRowContext(ctx, `
		SELECT id, email, password_hash, name, created_at, updated_at, last_login_at
		FROM users WHERE email = ?`, email)
	return scanUser(row)
}

// UpdateUserPasswordParams rotates a user's credential.
type UpdateUserPasswordParams struct {
	ID           int64
	PasswordHash string
	UpdatedAt    time.Time
}

func (q *Queries) UpdateUserPassword(ctx context.Context, arg UpdateUserPasswordParams) error {
	_, err := q.db.ExecContext(ctx,
		`UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`,
		arg.PasswordHash, arg.UpdatedAt, arg.ID)
	return err
}

// TouchUserLogin records a successful login time.
func (q *Queries) TouchUserLogin(ctx context.Context, id int64, at time.Time) error {
	_, err := q.db.ExecContext(ctx,
		`UPDATE users SET last_login_at = ? WHERE id = ?`, at, id)
	return err
}

// CreateEventParams holds the values for a new event row.
type CreateEventParams struct {
	Level     string
	Category  string
	Message   string
	UserID    sql.NullInt64
	Metadata  string
	CreatedAt time.Time
}

func (q *Queries) CreateEvent(ctx context.Context, arg CreateEventParams) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO events (level, category, message, user_id, metadata, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		arg.Level, arg.Category, arg.Message, arg.UserID, arg.Metadata, arg.CreatedAt)
	return err
}

// ListEvents returns the most recent events, newest first.
func (q *Queries) ListEvents(ctx context.Context, limit int64) ([]model.Event, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT id, level, category, message, user_id, metadata, created_at
		FROM events ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []model.Event
	for rows.Next() {
		var e model.Event
		if err := rows.Scan(&e.ID, &e.Level, &e.Category, &e.Message,
			&e.UserID, &e.Metadata, &e.CreatedAt); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// DeleteEventsBefore removes events older than cutoff and reports how
// many were deleted.
func (q *Queries) DeleteEventsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := q.db.ExecContext(ctx, `DELETE FROM events WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
