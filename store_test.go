package folio

import (
	"errors"
	"path/filepath"
	"testing"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "data", "blog.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestNewStoreReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blog.db")
	s, err := NewStore(path)
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	s.Close()

	// Column migrations must tolerate an existing schema.
	s, err = NewStore(path)
	if err != nil {
		t.Fatalf("NewStore on existing db failed: %v", err)
	}
	s.Close()
}

func TestSaveAndGetPost(t *testing.T) {
	s := setupTestStore(t)

	post := Post{
		Slug:        "test-post",
		Title:       "Test Post",
		Date:        "2024-01-15",
		Tags:        []string{"Go", "testing"},
		Description: "A test post summary",
		Content:     "# Test Content\n\nThis is test content.",
		Cover:       "https://example.com/cover.jpg",
		Quick:       true,
		Published:   true,
	}
	if err := s.SavePost(post); err != nil {
		t.Fatalf("SavePost failed: %v", err)
	}

	got, err := s.GetPost("test-post")
	if err != nil {
		t.Fatalf("GetPost failed: %v", err)
	}
	if got.Title != post.Title {
		t.Errorf("Title = %q, want %q", got.Title, post.Title)
	}
	if got.Description != post.Description {
		t.Errorf("Description = %q, want %q", got.Description, post.Description)
	}
	if got.Content != post.Content {
		t.Errorf("Content = %q, want %q", got.Content, post.Content)
	}
	if got.Cover != post.Cover {
		t.Errorf("Cover = %q, want %q", got.Cover, post.Cover)
	}
	if got.Link != "/blog/test-post/" {
		t.Errorf("Link = %q, want %q", got.Link, "/blog/test-post/")
	}
	if !got.Quick || !got.Published {
		t.Errorf("Quick = %v, Published = %v, want both true", got.Quick, got.Published)
	}
	if got.Source != SourceAdmin {
		t.Errorf("Source = %q, want %q", got.Source, SourceAdmin)
	}
	if len(got.Tags) != 2 || got.Tags[0] != "go" || got.Tags[1] != "testing" {
		t.Errorf("Tags = %v, want [go testing]", got.Tags)
	}
}

func TestGetPostHidesDrafts(t *testing.T) {
	s := setupTestStore(t)

	if err := s.SavePost(Post{Slug: "draft", Title: "Draft", Date: "2024-01-01", Published: false}); err != nil {
		t.Fatalf("SavePost failed: %v", err)
	}
	if _, err := s.GetPost("draft"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("GetPost(draft) err = %v, want ErrNotFound", err)
	}
	got, err := s.GetPostAny("draft")
	if err != nil {
		t.Fatalf("GetPostAny failed: %v", err)
	}
	if got.Published {
		t.Error("draft should not be published")
	}
}

func TestListPostsOrderAndTagFilter(t *testing.T) {
	s := setupTestStore(t)

	posts := []Post{
		{Slug: "old", Title: "Old", Date: "2023-01-01", Tags: []string{"go"}, Published: true},
		{Slug: "new", Title: "New", Date: "2024-06-01", Tags: []string{"web", "go"}, Published: true},
		{Slug: "golang", Title: "Prefix", Date: "2024-03-01", Tags: []string{"golang"}, Published: true},
		{Slug: "hidden", Title: "Hidden", Date: "2025-01-01", Tags: []string{"go"}, Published: false},
	}
	for _, p := range posts {
		if err := s.SavePost(p); err != nil {
			t.Fatalf("SavePost(%s) failed: %v", p.Slug, err)
		}
	}

	all, err := s.ListPosts("")
	if err != nil {
		t.Fatalf("ListPosts failed: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("ListPosts returned %d posts, want 3", len(all))
	}
	if all[0].Slug != "new" || all[1].Slug != "golang" || all[2].Slug != "old" {
		t.Errorf("order = %s, %s, %s; want new, golang, old", all[0].Slug, all[1].Slug, all[2].Slug)
	}

	tagged, err := s.ListPosts("GO")
	if err != nil {
		t.Fatalf("ListPosts(go) failed: %v", err)
	}
	if len(tagged) != 2 {
		t.Fatalf("ListPosts(go) returned %d posts, want 2 (golang must not match)", len(tagged))
	}

	tags, err := s.ListTags()
	if err != nil {
		t.Fatalf("ListTags failed: %v", err)
	}
	want := []string{"go", "golang", "web"}
	if len(tags) != len(want) {
		t.Fatalf("ListTags = %v, want %v", tags, want)
	}
	for i := range want {
		if tags[i] != want[i] {
			t.Errorf("tags[%d] = %q, want %q", i, tags[i], want[i])
		}
	}

	everything, err := s.ListAllPosts()
	if err != nil {
		t.Fatalf("ListAllPosts failed: %v", err)
	}
	if len(everything) != 4 {
		t.Errorf("ListAllPosts returned %d posts, want 4", len(everything))
	}
}

func TestDeletePost(t *testing.T) {
	s := setupTestStore(t)

	if err := s.SavePost(Post{Slug: "gone", Title: "Gone", Date: "2024-01-01", Published: true}); err != nil {
		t.Fatalf("SavePost failed: %v", err)
	}
	if err := s.DeletePost("gone"); err != nil {
		t.Fatalf("DeletePost failed: %v", err)
	}
	if _, err := s.GetPostAny("gone"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("GetPostAny after delete err = %v, want ErrNotFound", err)
	}
}

func TestSyncFilePosts(t *testing.T) {
	s := setupTestStore(t)

	if err := s.SavePost(Post{Slug: "admin-only", Title: "Admin", Date: "2024-01-01", Published: true}); err != nil {
		t.Fatalf("SavePost failed: %v", err)
	}
	if err := s.SavePost(Post{Slug: "shared", Title: "Admin version", Date: "2024-01-01", Published: true}); err != nil {
		t.Fatalf("SavePost failed: %v", err)
	}

	first := []Post{
		{Slug: "shared", Title: "File version", Date: "2024-02-01", Published: true},
		{Slug: "removed-later", Title: "Temp", Date: "2024-02-02", Published: true},
	}
	if err := s.SyncFilePosts(first); err != nil {
		t.Fatalf("SyncFilePosts failed: %v", err)
	}
	shared, err := s.GetPost("shared")
	if err != nil {
		t.Fatalf("GetPost(shared) failed: %v", err)
	}
	if shared.Title != "File version" || shared.Source != SourceFile {
		t.Errorf("shared = %q from %q, want file version", shared.Title, shared.Source)
	}

	second := []Post{{Slug: "shared", Title: "File version 2", Date: "2024-02-01", Published: true}}
	if err := s.SyncFilePosts(second); err != nil {
		t.Fatalf("SyncFilePosts failed: %v", err)
	}
	if _, err := s.GetPostAny("removed-later"); !errors.Is(err, ErrNotFound) {
		t.Errorf("removed file post still present: err = %v", err)
	}
	if _, err := s.GetPost("admin-only"); err != nil {
		t.Errorf("admin post lost during sync: %v", err)
	}
}

func TestImages(t *testing.T) {
	s := setupTestStore(t)

	img := Image{Filename: "a.jpg", OriginalName: "A.png", Width: 10, Height: 5, Size: 100, UploadedAt: "2024-01-01T00:00:00Z"}
	if err := s.SaveImage(img); err != nil {
		t.Fatalf("SaveImage failed: %v", err)
	}
	ok, err := s.ImageExists("a.jpg")
	if err != nil || !ok {
		t.Fatalf("ImageExists(a.jpg) = %v, %v; want true", ok, err)
	}
	images, err := s.ListImages()
	if err != nil {
		t.Fatalf("ListImages failed: %v", err)
	}
	if len(images) != 1 || images[0] != img {
		t.Fatalf("ListImages = %+v, want [%+v]", images, img)
	}
	if err := s.DeleteImage("a.jpg"); err != nil {
		t.Fatalf("DeleteImage failed: %v", err)
	}
	if ok, _ := s.ImageExists("a.jpg"); ok {
		t.Error("image still exists after delete")
	}
}

func TestParseTags(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{",", nil},
		{",go,", []string{"go"}},
		{",go,web,", []string{"go", "web"}},
		{"go, web", []string{"go", "web"}},
	}
	for _, tt := range tests {
		got := ParseTags(tt.in)
		if len(got) != len(tt.want) {
			t.Errorf("ParseTags(%q) = %v, want %v", tt.in, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("ParseTags(%q)[%d] = %q, want %q", tt.in, i, got[i], tt.want[i])
			}
		}
	}
}

func TestFormatTags(t *testing.T) {
	if got := formatTags([]string{" Go ", "", "Web"}); got != ",go,web," {
		t.Errorf("formatTags = %q, want %q", got, ",go,web,")
	}
	if got := formatTags(nil); got != "" {
		t.Errorf("formatTags(nil) = %q, want empty", got)
	}
}
