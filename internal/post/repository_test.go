// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package post

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/staffblog/internal/cache"
	"github.com/olegiv/staffblog/internal/form"
	"github.com/olegiv/staffblog/internal/model"
	"github.com/olegiv/staffblog/internal/storage"
	"github.com/olegiv/staffblog/internal/store"
)

var longContent = strings.Repeat("A staff announcement with plenty of body text. ", 5)

// fakeBackend is an in-memory storage.Backend.
type fakeBackend struct {
	mu      sync.Mutex
	objects map[string]storage.Object
	puts    []string
	deletes []string
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{objects: map[string]storage.Object{}}
}

func (f *fakeBackend) Put(_ context.Context, key, _ string, r io.Reader) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	f.objects[key] = storage.Object{Key: key, Size: int64(len(data)), Modified: time.Now()}
	f.puts = append(f.puts, key)
	return "/media/" + key, nil
}

func (f *fakeBackend) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, key)
	f.deletes = append(f.deletes, key)
	return nil
}

func (f *fakeBackend) List(_ context.Context, prefix string) ([]storage.Object, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []storage.Object
	for key, obj := range f.objects {
		if strings.HasPrefix(key, prefix) {
			out = append(out, obj)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (f *fakeBackend) KeyFromURL(url string) (string, bool) {
	key, ok := strings.CutPrefix(url, "/media/")
	return key, ok && key != ""
}

func (f *fakeBackend) setModified(key string, at time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	obj := f.objects[key]
	obj.Modified = at
	f.objects[key] = obj
}

func testRepo(t *testing.T) (*Repository, *fakeBackend) {
	t.Helper()

	f, err := os.CreateTemp(t.TempDir(), "staffblog-test-*.db")
	require.NoError(t, err)
	dbPath := f.Name()
	f.Close()

	db, err := store.NewDB(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, store.Migrate(db))

	backend := newFakeBackend()
	posts := cache.NewPostsCache(cache.NewMemoryCache(time.Hour, 0), time.Minute)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewRepository(store.New(db), backend, posts, log), backend
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 10, 10))
	for y := 0; y < 10; y++ {
		for x := 0; x < 10; x++ {
			img.Set(x, y, color.RGBA{R: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func submitNew(t *testing.T, repo *Repository, title string) form.SubmitResult {
	t.Helper()
	f := form.New()
	f.SetTitle(title)
	f.SetContent(longContent)
	res, err := f.Submit(context.Background(), repo.SubmitterFor("author-1"))
	require.NoError(t, err)
	return res
}

func TestSubmitCreatesPublishedPost(t *testing.T) {
	repo, _ := testRepo(t)
	ctx := context.Background()

	res := submitNew(t, repo, "Holiday Schedule")
	assert.Equal(t, "holiday-schedule", res.Slug)

	p, err := repo.GetByID(ctx, res.ID)
	require.NoError(t, err)
	assert.True(t, p.Published)
	assert.Equal(t, "Holiday Schedule", p.Title)
	assert.Equal(t, "author-1", p.AuthorID.String)
	assert.Equal(t, model.DefaultCategory, p.CategoryName())
}

func TestSubmitSlugCollisionGetsSuffix(t *testing.T) {
	repo, _ := testRepo(t)

	first := submitNew(t, repo, "Team Update")
	second := submitNew(t, repo, "Team Update")
	third := submitNew(t, repo, "Team Update!")

	assert.Equal(t, "team-update", first.Slug)
	assert.Equal(t, "team-update-2", second.Slug)
	assert.Equal(t, "team-update-3", third.Slug)
}

func TestSubmitUploadsStagedImage(t *testing.T) {
	repo, backend := testRepo(t)
	ctx := context.Background()

	f := form.New()
	f.SetTitle("With cover")
	f.SetContent(longContent)
	require.NoError(t, f.SelectFile(model.MediaKindImage, form.StagedFile{
		Name:     "cover.png",
		MimeType: "image/png",
		Size:     int64(len(pngBytes(t))),
		Data:     pngBytes(t),
	}))

	res, err := f.Submit(ctx, repo.SubmitterFor("author-1"))
	require.NoError(t, err)

	p, err := repo.GetByID(ctx, res.ID)
	require.NoError(t, err)
	require.True(t, p.ImageURL.Valid)
	assert.True(t, strings.HasPrefix(p.ImageURL.String, "/media/images/"))
	assert.True(t, strings.HasSuffix(p.ImageURL.String, "-cover.png"))

	require.Len(t, backend.puts, 2)
	assert.True(t, strings.HasPrefix(backend.puts[1], "thumbs/"))
	assert.True(t, strings.HasSuffix(backend.puts[1], "-cover.jpg"))
}

func TestSubmitEditKeepsSlugWhenTitleUnchanged(t *testing.T) {
	repo, _ := testRepo(t)
	ctx := context.Background()

	res := submitNew(t, repo, "Stable Title")
	p, err := repo.GetByID(ctx, res.ID)
	require.NoError(t, err)

	f := form.Hydrate(&p)
	f.SetContent(longContent + " Updated.")
	res2, err := f.Submit(ctx, repo.SubmitterFor("author-1"))
	require.NoError(t, err)
	assert.Equal(t, "stable-title", res2.Slug)

	updated, err := repo.GetByID(ctx, res.ID)
	require.NoError(t, err)
	assert.True(t, updated.UpdatedAt.Valid)
}

func TestSubmitEditRegeneratesSlugOnTitleChange(t *testing.T) {
	repo, _ := testRepo(t)
	ctx := context.Background()

	res := submitNew(t, repo, "Old Title")
	p, err := repo.GetByID(ctx, res.ID)
	require.NoError(t, err)

	f := form.Hydrate(&p)
	f.SetTitle("New Title")
	res2, err := f.Submit(ctx, repo.SubmitterFor("author-1"))
	require.NoError(t, err)
	assert.Equal(t, "new-title", res2.Slug)
}

func TestSubmitEditRemovesTombstonedImage(t *testing.T) {
	repo, backend := testRepo(t)
	ctx := context.Background()

	f := form.New()
	f.SetTitle("Has image")
	f.SetContent(longContent)
	require.NoError(t, f.SelectFile(model.MediaKindImage, form.StagedFile{
		Name: "a.png", MimeType: "image/png", Size: 10, Data: pngBytes(t),
	}))
	res, err := f.Submit(ctx, repo.SubmitterFor(""))
	require.NoError(t, err)

	p, err := repo.GetByID(ctx, res.ID)
	require.NoError(t, err)
	require.True(t, p.ImageURL.Valid)
	storedKey := strings.TrimPrefix(p.ImageURL.String, "/media/")

	edit := form.Hydrate(&p)
	edit.RemoveFile(model.MediaKindImage)
	_, err = edit.Submit(ctx, repo.SubmitterFor(""))
	require.NoError(t, err)

	updated, err := repo.GetByID(ctx, res.ID)
	require.NoError(t, err)
	assert.False(t, updated.ImageURL.Valid)
	assert.Contains(t, backend.deletes, storedKey)
	assert.Contains(t, backend.deletes, storage.ThumbKey(storedKey))
}

func TestGetBySlugHidesDrafts(t *testing.T) {
	repo, _ := testRepo(t)
	ctx := context.Background()

	res := submitNew(t, repo, "Visible")
	_, err := repo.GetBySlug(ctx, res.Slug)
	require.NoError(t, err)

	_, err = repo.GetBySlug(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteRemovesPostAndMedia(t *testing.T) {
	repo, backend := testRepo(t)
	ctx := context.Background()

	f := form.New()
	f.SetTitle("Doomed")
	f.SetContent(longContent)
	require.NoError(t, f.SelectFile(model.MediaKindVideo, form.StagedFile{
		Name: "clip.mp4", MimeType: "video/mp4", Size: 4, Data: []byte("mp4!"),
	}))
	res, err := f.Submit(ctx, repo.SubmitterFor(""))
	require.NoError(t, err)

	require.NoError(t, repo.Delete(ctx, res.ID))
	_, err = repo.GetByID(ctx, res.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	require.Len(t, backend.deletes, 1)
	assert.True(t, strings.HasPrefix(backend.deletes[0], "videos/"))

	assert.ErrorIs(t, repo.Delete(ctx, res.ID), ErrNotFound)
}

func TestListPublishedUsesCacheUntilInvalidated(t *testing.T) {
	repo, _ := testRepo(t)
	ctx := context.Background()

	submitNew(t, repo, "First")
	posts, err := repo.ListPublished(ctx)
	require.NoError(t, err)
	require.Len(t, posts, 1)

	// A later write invalidates and the new post appears.
	submitNew(t, repo, "Second")
	posts, err = repo.ListPublished(ctx)
	require.NoError(t, err)
	assert.Len(t, posts, 2)
}

func TestGetByIDPrefersCachedList(t *testing.T) {
	repo, _ := testRepo(t)
	ctx := context.Background()

	res := submitNew(t, repo, "Cached Lookup")
	_, err := repo.ListPublished(ctx)
	require.NoError(t, err)

	// Drop the row behind the cache's back; a hydrating read must
	// still be served from the cached list.
	require.NoError(t, repo.queries.DeletePost(ctx, res.ID))

	p, err := repo.GetByID(ctx, res.ID)
	require.NoError(t, err)
	assert.Equal(t, "Cached Lookup", p.Title)
}

func TestDeleteOrphanedMedia(t *testing.T) {
	repo, backend := testRepo(t)
	ctx := context.Background()

	f := form.New()
	f.SetTitle("Keeps its image")
	f.SetContent(longContent)
	require.NoError(t, f.SelectFile(model.MediaKindImage, form.StagedFile{
		Name: "keep.png", MimeType: "image/png", Size: 10, Data: pngBytes(t),
	}))
	_, err := f.Submit(ctx, repo.SubmitterFor(""))
	require.NoError(t, err)
	referencedKey := backend.puts[0]

	// An old unreferenced object and a fresh unreferenced one.
	_, err = backend.Put(ctx, "images/1-orphan.png", "image/png", bytes.NewReader([]byte("x")))
	require.NoError(t, err)
	backend.setModified("images/1-orphan.png", time.Now().Add(-48*time.Hour))
	_, err = backend.Put(ctx, "images/2-fresh.png", "image/png", bytes.NewReader([]byte("y")))
	require.NoError(t, err)

	// Referenced object is old too; age alone must not delete it.
	backend.setModified(referencedKey, time.Now().Add(-48*time.Hour))

	removed, err := repo.DeleteOrphanedMedia(ctx, 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	assert.Contains(t, backend.deletes, "images/1-orphan.png")
	assert.NotContains(t, backend.deletes, referencedKey)
	assert.NotContains(t, backend.deletes, "images/2-fresh.png")
}

func TestSlugFallsBackForEmptyBase(t *testing.T) {
	repo, _ := testRepo(t)
	res := submitNew(t, repo, "???!!!   12") // slugifies to "12"
	assert.NotEmpty(t, res.Slug)

	// A title with no sluggable characters still gets a slug.
	f := form.New()
	f.SetTitle("!!!")
	f.SetContent(longContent)
	res2, err := f.Submit(context.Background(), repo.SubmitterFor(""))
	require.NoError(t, err)
	assert.Equal(t, "post", res2.Slug)
}
