package repository

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/postboard/postboard/internal/model"
	"github.com/postboard/postboard/internal/testutil"
)

// runPostRepositoryContract exercises behaviour every PostRepository must
// share. newRepo must return an empty repository.
func runPostRepositoryContract(t *testing.T, newRepo func(t *testing.T) PostRepository) {
	t.Run("create assigns id and timestamps", func(t *testing.T) {
		ctx := context.Background()
		repo := newRepo(t)

		created, err := repo.Create(ctx, testutil.NewTestPost(t, "Hello World", "news", "alice"))
		if err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		if created.ID == "" {
			t.Fatal("expected id to be assigned")
		}
		if created.CreatedAt.IsZero() || !created.CreatedAt.Equal(created.UpdatedAt) {
			t.Errorf("timestamps = %v / %v, want equal non-zero", created.CreatedAt, created.UpdatedAt)
		}

		found, err := repo.FindByID(ctx, created.ID)
		if err != nil {
			t.Fatalf("FindByID failed: %v", err)
		}
		if found.Title != "Hello World" || found.Slug != "hello-world" || found.Author != "alice" {
			t.Errorf("unexpected post: %+v", found)
		}
		if !found.CreatedAt.Equal(created.CreatedAt) {
			t.Errorf("CreatedAt = %v, want %v", found.CreatedAt, created.CreatedAt)
		}
	})

	t.Run("create rejects foreign id format", func(t *testing.T) {
		ctx := context.Background()
		repo := newRepo(t)

		post := testutil.NewTestPost(t, "Bad id", "misc", "alice")
		post.ID = "not-a-native-id"
		if _, err := repo.Create(ctx, post); !errors.Is(err, ErrInvalidPostID) {
			t.Errorf("Create error = %v, want ErrInvalidPostID", err)
		}
		all, err := repo.Find(ctx, PostFilter{}, 0, 0)
		if err != nil {
			t.Fatalf("Find failed: %v", err)
		}
		if len(all) != 0 {
			t.Errorf("stored %d posts, want 0", len(all))
		}
	})

	t.Run("unknown and malformed ids are not found", func(t *testing.T) {
		ctx := context.Background()
		repo := newRepo(t)

		for _, id := range []string{"ffffffffffffffffffffffff", "not-an-id", ""} {
			if _, err := repo.FindByID(ctx, id); !errors.Is(err, ErrPostNotFound) {
				t.Errorf("FindByID(%q) error = %v, want ErrPostNotFound", id, err)
			}
			title := "x"
			if _, err := repo.Update(ctx, id, model.PostPatch{Title: &title}); !errors.Is(err, ErrPostNotFound) {
				t.Errorf("Update(%q) error = %v, want ErrPostNotFound", id, err)
			}
			if err := repo.Delete(ctx, id); !errors.Is(err, ErrPostNotFound) {
				t.Errorf("Delete(%q) error = %v, want ErrPostNotFound", id, err)
			}
		}
	})

	t.Run("find pages in insertion order", func(t *testing.T) {
		ctx := context.Background()
		repo := newRepo(t)

		var ids []string
		for i := 1; i <= 15; i++ {
			p, err := repo.Create(ctx, testutil.NewTestPost(t, fmt.Sprintf("Post %d", i), "general", "alice"))
			if err != nil {
				t.Fatalf("Create %d failed: %v", i, err)
			}
			ids = append(ids, p.ID)
		}

		tests := []struct {
			name      string
			skip      int
			limit     int
			wantFirst int
			wantLen   int
		}{
			{"first page", 0, 10, 0, 10},
			{"second page", 10, 10, 10, 5},
			{"past the end", 20, 10, 0, 0},
			{"no limit", 0, 0, 0, 15},
			{"middle window", 4, 3, 4, 3},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				got, err := repo.Find(ctx, PostFilter{}, tt.skip, tt.limit)
				if err != nil {
					t.Fatalf("Find failed: %v", err)
				}
				if got == nil {
					t.Fatal("Find returned nil slice")
				}
				if len(got) != tt.wantLen {
					t.Fatalf("len = %d, want %d", len(got), tt.wantLen)
				}
				for i, p := range got {
					if p.ID != ids[tt.wantFirst+i] {
						t.Errorf("position %d = %s, want %s", i, p.ID, ids[tt.wantFirst+i])
					}
				}
			})
		}
	})

	t.Run("find filters by category", func(t *testing.T) {
		ctx := context.Background()
		repo := newRepo(t)

		for i, cat := range []string{"go", "rust", "go", "go", "zig"} {
			if _, err := repo.Create(ctx, testutil.NewTestPost(t, fmt.Sprintf("P%d", i), cat, "bob")); err != nil {
				t.Fatalf("Create failed: %v", err)
			}
		}

		got, err := repo.Find(ctx, PostFilter{Category: "go"}, 1, 10)
		if err != nil {
			t.Fatalf("Find failed: %v", err)
		}
		if len(got) != 2 {
			t.Fatalf("len = %d, want 2", len(got))
		}
		if got[0].Title != "P2" || got[1].Title != "P3" {
			t.Errorf("titles = %q, %q; want P2, P3", got[0].Title, got[1].Title)
		}

		none, err := repo.Find(ctx, PostFilter{Category: "cobol"}, 0, 10)
		if err != nil {
			t.Fatalf("Find failed: %v", err)
		}
		if len(none) != 0 {
			t.Errorf("len = %d, want 0", len(none))
		}
	})

	t.Run("update merges patch", func(t *testing.T) {
		ctx := context.Background()
		repo := newRepo(t)

		created, err := repo.Create(ctx, testutil.NewTestPost(t, "Old Title", "misc", "alice"))
		if err != nil {
			t.Fatalf("Create failed: %v", err)
		}

		title, slug := "New Title", "new-title"
		updated, err := repo.Update(ctx, created.ID, model.PostPatch{Title: &title, Slug: &slug})
		if err != nil {
			t.Fatalf("Update failed: %v", err)
		}
		if updated.Title != title || updated.Slug != slug {
			t.Errorf("title/slug = %q/%q", updated.Title, updated.Slug)
		}
		if updated.Content != created.Content || updated.Category != "misc" || updated.Author != "alice" {
			t.Errorf("unpatched fields changed: %+v", updated)
		}
		if updated.UpdatedAt.Before(created.UpdatedAt) {
			t.Errorf("UpdatedAt went backwards: %v < %v", updated.UpdatedAt, created.UpdatedAt)
		}

		found, err := repo.FindByID(ctx, created.ID)
		if err != nil {
			t.Fatalf("FindByID failed: %v", err)
		}
		if found.Title != title {
			t.Errorf("persisted title = %q, want %q", found.Title, title)
		}
	})

	t.Run("delete removes post", func(t *testing.T) {
		ctx := context.Background()
		repo := newRepo(t)

		keep, err := repo.Create(ctx, testutil.NewTestPost(t, "Keep", "misc", "alice"))
		if err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		gone, err := repo.Create(ctx, testutil.NewTestPost(t, "Gone", "misc", "alice"))
		if err != nil {
			t.Fatalf("Create failed: %v", err)
		}

		if err := repo.Delete(ctx, gone.ID); err != nil {
			t.Fatalf("Delete failed: %v", err)
		}
		if _, err := repo.FindByID(ctx, gone.ID); !errors.Is(err, ErrPostNotFound) {
			t.Errorf("FindByID after delete error = %v, want ErrPostNotFound", err)
		}
		if err := repo.Delete(ctx, gone.ID); !errors.Is(err, ErrPostNotFound) {
			t.Errorf("second Delete error = %v, want ErrPostNotFound", err)
		}

		all, err := repo.Find(ctx, PostFilter{}, 0, 0)
		if err != nil {
			t.Fatalf("Find failed: %v", err)
		}
		if len(all) != 1 || all[0].ID != keep.ID {
			t.Errorf("remaining posts = %+v, want only %s", all, keep.ID)
		}
	})

	t.Run("ping", func(t *testing.T) {
		if err := newRepo(t).Ping(context.Background()); err != nil {
			t.Errorf("Ping failed: %v", err)
		}
	})
}

func TestMemoryPostRepository_Contract(t *testing.T) {
	runPostRepositoryContract(t, func(t *testing.T) PostRepository {
		return NewMemoryPostRepository()
	})
}
