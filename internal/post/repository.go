// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package post is the repository over posts: reads for the public
// site, writes for the admin, media persistence and slug assignment.
package post

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/olegiv/staffblog/internal/cache"
	"github.com/olegiv/staffblog/internal/form"
	"github.com/olegiv/staffblog/internal/imaging"
	"github.com/olegiv/staffblog/internal/model"
	"github.com/olegiv/staffblog/internal/storage"
	"github.com/olegiv/staffblog/internal/store"
	"github.com/olegiv/staffblog/internal/util"
)

// ErrNotFound means no post matches the id or slug.
var ErrNotFound = errors.New("post not found")

// thumbSize is the square thumbnail edge in pixels.
const thumbSize = 150

// Repository persists posts and their media.
type Repository struct {
	queries *store.Queries
	media   storage.Backend
	posts   *cache.PostsCache
	log     *slog.Logger

	now func() time.Time
}

// NewRepository wires the repository. cache may be nil to disable the
// published list cache.
func NewRepository(q *store.Queries, media storage.Backend, posts *cache.PostsCache, log *slog.Logger) *Repository {
	return &Repository{
		queries: q,
		media:   media,
		posts:   posts,
		log:     log,
		now:     time.Now,
	}
}

// ListPublished returns published posts, newest first. Satisfies the
// public browser's post source. Reads go through the cache.
func (r *Repository) ListPublished(ctx context.Context) ([]model.Post, error) {
	if r.posts != nil {
		if posts, ok := r.posts.GetPublished(ctx); ok {
			return posts, nil
		}
	}
	posts, err := r.queries.ListPublishedPosts(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing published posts: %w", err)
	}
	if r.posts != nil {
		r.posts.SetPublished(ctx, posts)
	}
	return posts, nil
}

// List returns every post for the admin list, drafts included.
func (r *Repository) List(ctx context.Context) ([]model.Post, error) {
	posts, err := r.queries.ListPosts(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing posts: %w", err)
	}
	return posts, nil
}

// GetByID fetches one post, checking the cached published list before
// the database so edit hydration reuses what the browse page already
// loaded.
func (r *Repository) GetByID(ctx context.Context, id string) (model.Post, error) {
	if r.posts != nil {
		if cached, ok := r.posts.GetPublished(ctx); ok {
			for i := range cached {
				if cached[i].ID == id {
					return cached[i], nil
				}
			}
		}
	}

	p, err := r.queries.GetPost(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Post{}, ErrNotFound
	}
	if err != nil {
		return model.Post{}, fmt.Errorf("getting post %s: %w", id, err)
	}
	return p, nil
}

// GetBySlug fetches one published post by its public URL slug.
func (r *Repository) GetBySlug(ctx context.Context, slug string) (model.Post, error) {
	p, err := r.queries.GetPostBySlug(ctx, slug)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Post{}, ErrNotFound
	}
	if err != nil {
		return model.Post{}, fmt.Errorf("getting post by slug %s: %w", slug, err)
	}
	if !p.Published {
		return model.Post{}, ErrNotFound
	}
	return p, nil
}

// Delete removes a post and its media objects. Media deletion is best
// effort; the orphan sweep catches leftovers.
func (r *Repository) Delete(ctx context.Context, id string) error {
	p, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := r.queries.DeletePost(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("deleting post %s: %w", id, err)
	}

	r.deleteMediaURL(ctx, p.ImageURL)
	r.deleteMediaURL(ctx, p.VideoURL)
	r.invalidate(ctx)

	r.log.Info("post deleted", "id", id, "title", p.Title)
	return nil
}

// SubmitterFor binds an author to the form submission flow.
func (r *Repository) SubmitterFor(authorID string) form.Submitter {
	return submitter{repo: r, authorID: authorID}
}

type submitter struct {
	repo     *Repository
	authorID string
}

func (s submitter) Submit(ctx context.Context, f *form.Form) (form.SubmitResult, error) {
	return s.repo.submitForm(ctx, f, s.authorID)
}

// submitForm persists a validated form: image upload, then video
// upload, then the row write. An upload failure aborts before any row
// changes.
func (r *Repository) submitForm(ctx context.Context, f *form.Form, authorID string) (form.SubmitResult, error) {
	values := f.Values()

	var existing model.Post
	if f.PostID() != "" {
		var err error
		existing, err = r.GetByID(ctx, f.PostID())
		if err != nil {
			return form.SubmitResult{}, err
		}
	}

	imageURL, oldImage, err := r.resolveMedia(ctx, f.Image(), existing.ImageURL)
	if err != nil {
		return form.SubmitResult{}, err
	}
	videoURL, oldVideo, err := r.resolveMedia(ctx, f.Video(), existing.VideoURL)
	if err != nil {
		return form.SubmitResult{}, err
	}

	category := sql.NullString{String: values.Category, Valid: values.Category != ""}
	now := r.now()

	var saved model.Post
	if f.PostID() == "" {
		slug, err := r.uniqueSlug(ctx, util.Slugify(values.Title), "")
		if err != nil {
			return form.SubmitResult{}, err
		}
		saved, err = r.queries.CreatePost(ctx, store.CreatePostParams{
			ID:        uuid.NewString(),
			Title:     values.Title,
			Slug:      slug,
			Content:   values.Content,
			Category:  category,
			ImageURL:  imageURL,
			VideoURL:  videoURL,
			Published: true,
			AuthorID:  sql.NullString{String: authorID, Valid: authorID != ""},
			CreatedAt: now,
		})
		if err != nil {
			return form.SubmitResult{}, fmt.Errorf("creating post: %w", err)
		}
		r.log.Info("post created", "id", saved.ID, "slug", saved.Slug, "title", saved.Title)
	} else {
		slug := existing.Slug
		if values.Title != existing.Title {
			slug, err = r.uniqueSlug(ctx, util.Slugify(values.Title), existing.ID)
			if err != nil {
				return form.SubmitResult{}, err
			}
		}
		saved, err = r.queries.UpdatePost(ctx, store.UpdatePostParams{
			ID:        existing.ID,
			Title:     values.Title,
			Slug:      slug,
			Content:   values.Content,
			Category:  category,
			ImageURL:  imageURL,
			VideoURL:  videoURL,
			Published: existing.Published,
			UpdatedAt: now,
		})
		if err != nil {
			return form.SubmitResult{}, fmt.Errorf("updating post: %w", err)
		}
		r.log.Info("post updated", "id", saved.ID, "slug", saved.Slug)
	}

	// Old objects are unreferenced now; removal can be best effort.
	r.deleteMediaURL(ctx, oldImage)
	r.deleteMediaURL(ctx, oldVideo)
	r.invalidate(ctx)

	return form.SubmitResult{ID: saved.ID, Slug: saved.Slug}, nil
}

// resolveMedia turns a form slot into the URL to store, uploading a
// staged file as needed. oldURL is returned non-null when the previous
// object should be deleted after the row write.
func (r *Repository) resolveMedia(ctx context.Context, slot form.MediaSlot, current sql.NullString) (url, oldURL sql.NullString, err error) {
	switch {
	case slot.Staged != nil:
		publicURL, err := r.uploadStaged(ctx, slot.Kind, slot.Staged)
		if err != nil {
			return sql.NullString{}, sql.NullString{}, err
		}
		return sql.NullString{String: publicURL, Valid: true}, current, nil
	case slot.Removed:
		return sql.NullString{}, current, nil
	default:
		return current, sql.NullString{}, nil
	}
}

func (r *Repository) uploadStaged(ctx context.Context, kind string, sf *form.StagedFile) (string, error) {
	data := sf.Data
	contentType := sf.MimeType

	if kind == model.MediaKindImage {
		res, err := imaging.Process(data)
		if err != nil {
			return "", fmt.Errorf("processing image %s: %w", sf.Name, err)
		}
		data = res.Data
		contentType = res.MimeType
	}

	key := storage.MakeKey(kind, sf.Name, r.now())
	url, err := r.media.Put(ctx, key, contentType, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("uploading %s: %w", key, err)
	}

	if kind == model.MediaKindImage {
		r.putThumbnail(ctx, key, data)
	}
	return url, nil
}

// putThumbnail stores the 150x150 crop next to the original. A failed
// thumbnail never fails the upload, the admin list just falls back to
// the original.
func (r *Repository) putThumbnail(ctx context.Context, imageKey string, data []byte) {
	thumb, err := imaging.Thumbnail(data, thumbSize, thumbSize)
	if err != nil {
		r.log.Warn("generating thumbnail failed", "key", imageKey, "error", err)
		return
	}
	key := storage.ThumbKey(imageKey)
	if _, err := r.media.Put(ctx, key, "image/jpeg", bytes.NewReader(thumb)); err != nil {
		r.log.Warn("uploading thumbnail failed", "key", key, "error", err)
	}
}

// uniqueSlug finds the first free slug: base, base-2, base-3 and so
// on. A slug held by selfID counts as free so edits keep their slug.
func (r *Repository) uniqueSlug(ctx context.Context, base, selfID string) (string, error) {
	if base == "" {
		base = "post"
	}
	slug := base
	for i := 2; ; i++ {
		free, err := r.slugFree(ctx, slug, selfID)
		if err != nil {
			return "", fmt.Errorf("checking slug %s: %w", slug, err)
		}
		if free {
			return slug, nil
		}
		slug = fmt.Sprintf("%s-%d", base, i)
	}
}

// slugFree reports whether slug is unused. Creates only need an
// existence check; edits must know who holds the slug so a post keeps
// its own.
func (r *Repository) slugFree(ctx context.Context, slug, selfID string) (bool, error) {
	if selfID == "" {
		exists, err := r.queries.SlugExists(ctx, slug)
		return !exists, err
	}
	existing, err := r.queries.GetPostBySlug(ctx, slug)
	if errors.Is(err, sql.ErrNoRows) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return existing.ID == selfID, nil
}

// DeleteOrphanedMedia removes stored objects no post references that
// are older than minAge, and reports how many were removed. The age
// floor keeps uploads from an in-flight submit safe.
func (r *Repository) DeleteOrphanedMedia(ctx context.Context, minAge time.Duration) (int, error) {
	rows, err := r.queries.ListPostMediaURLs(ctx)
	if err != nil {
		return 0, fmt.Errorf("listing media URLs: %w", err)
	}
	referenced := make(map[string]bool)
	for _, row := range rows {
		for _, u := range []sql.NullString{row.ImageURL, row.VideoURL} {
			if u.Valid {
				if key, ok := r.media.KeyFromURL(u.String); ok {
					referenced[key] = true
					referenced[storage.ThumbKey(key)] = true
				}
			}
		}
	}

	objects, err := r.media.List(ctx, "")
	if err != nil {
		return 0, fmt.Errorf("listing media objects: %w", err)
	}

	cutoff := r.now().Add(-minAge)
	removed := 0
	for _, obj := range objects {
		if referenced[obj.Key] || obj.Modified.After(cutoff) {
			continue
		}
		if err := r.media.Delete(ctx, obj.Key); err != nil {
			r.log.Warn("removing orphaned media failed", "key", obj.Key, "error", err)
			continue
		}
		removed++
	}
	if removed > 0 {
		r.log.Info("removed orphaned media", "count", removed)
	}
	return removed, nil
}

func (r *Repository) deleteMediaURL(ctx context.Context, u sql.NullString) {
	if !u.Valid {
		return
	}
	key, ok := r.media.KeyFromURL(u.String)
	if !ok {
		return
	}
	if err := r.media.Delete(ctx, key); err != nil {
		r.log.Warn("deleting media failed", "key", key, "error", err)
	}
	if strings.HasPrefix(key, "images/") {
		if err := r.media.Delete(ctx, storage.ThumbKey(key)); err != nil {
			r.log.Warn("deleting thumbnail failed", "key", key, "error", err)
		}
	}
}

func (r *Repository) invalidate(ctx context.Context) {
	if r.posts != nil {
		r.posts.Invalidate(ctx)
	}
}
