package folio

import (
	"encoding/json"
	"testing"

	"github.com/folioblog/folio/covers"
)

func TestBuildURL(t *testing.T) {
	tests := []struct {
		base string
		segs []string
		want string
	}{
		{"https://example.com", nil, "https://example.com/"},
		{"https://example.com", []string{"blog", "hello"}, "https://example.com/blog/hello/"},
		{"https://example.com/", []string{"articles"}, "https://example.com/articles/"},
		{"https://example.com/sub", []string{"tags", "go"}, "https://example.com/sub/tags/go/"},
	}
	for _, tt := range tests {
		if got := BuildURL(tt.base, tt.segs...); got != tt.want {
			t.Errorf("BuildURL(%q, %v) = %q, want %q", tt.base, tt.segs, got, tt.want)
		}
	}
}

func TestTagURL(t *testing.T) {
	if got := TagURL("Go"); got != "/tags/go/" {
		t.Errorf("TagURL(Go) = %q", got)
	}
}

func TestFilterEmpty(t *testing.T) {
	got := FilterEmpty([]string{" go ", "", "  ", "web"})
	if len(got) != 2 || got[0] != "go" || got[1] != "web" {
		t.Errorf("FilterEmpty = %v, want [go web]", got)
	}
}

func TestFilterRelatedPosts(t *testing.T) {
	current := Post{Slug: "a", Tags: []string{"go", "Web"}}
	posts := []Post{
		current,
		{Slug: "b", Tags: []string{"web"}},
		{Slug: "c", Tags: []string{"rust"}},
		{Slug: "d", Tags: []string{"GO", "web"}},
	}
	got := FilterRelatedPosts(current, posts)
	if len(got) != 2 || got[0].Slug != "b" || got[1].Slug != "d" {
		t.Errorf("FilterRelatedPosts = %v, want [b d]", got)
	}
}

func TestNextPost(t *testing.T) {
	posts := []Post{{Slug: "newest"}, {Slug: "middle"}, {Slug: "oldest"}}

	tests := []struct {
		current string
		want    string
		ok      bool
	}{
		{"oldest", "middle", true},
		{"middle", "newest", true},
		{"newest", "middle", true},
		{"draft", "newest", true},
	}
	for _, tt := range tests {
		got, ok := NextPost(Post{Slug: tt.current}, posts)
		if ok != tt.ok || got.Slug != tt.want {
			t.Errorf("NextPost(%s) = %q, %v; want %q, %v", tt.current, got.Slug, ok, tt.want, tt.ok)
		}
	}

	if _, ok := NextPost(Post{Slug: "only"}, []Post{{Slug: "only"}}); ok {
		t.Error("NextPost with a single post should report false")
	}
}

func TestFormatDate(t *testing.T) {
	if got := FormatDate("2024-03-09"); got != "09 Mar 2024" {
		t.Errorf("FormatDate = %q", got)
	}
	if got := FormatDate("soon"); got != "soon" {
		t.Errorf("FormatDate(soon) = %q", got)
	}
}

func TestBlogPostingJSONLD(t *testing.T) {
	cfg := SiteConfig{Name: "Blog", URL: "https://example.com", Author: "Jane"}
	post := Post{
		Slug:        "hello",
		Title:       "Hello",
		Date:        "2024-01-01",
		Description: "Greeting",
		Tags:        []string{"go", "web"},
		CoverImage:  covers.Cover{Width: 1200, Height: 600, Variants: []covers.Variant{
			{Name: "hello-400.jpg", Width: 400, Height: 200},
			{Name: "hello-800.jpg", Width: 800, Height: 400},
		}},
	}
	var data map[string]any
	if err := json.Unmarshal([]byte(BlogPostingJSONLD(post, cfg)), &data); err != nil {
		t.Fatalf("invalid JSON-LD: %v", err)
	}
	if data["@type"] != "BlogPosting" {
		t.Errorf("@type = %v", data["@type"])
	}
	if data["url"] != "https://example.com/blog/hello/" {
		t.Errorf("url = %v", data["url"])
	}
	if data["keywords"] != "go, web" {
		t.Errorf("keywords = %v", data["keywords"])
	}
	img, _ := data["image"].(string)
	if img != "https://example.com/covers/hello-800.jpg" {
		t.Errorf("image = %q, want largest cover variant", img)
	}
}

func TestCoverURL(t *testing.T) {
	cfg := SiteConfig{URL: "https://example.com"}
	if got := CoverURL(cfg, Post{}); got != "" {
		t.Errorf("CoverURL without cover = %q", got)
	}
	if got := CoverURL(cfg, Post{Cover: "https://cdn.example.org/x.jpg"}); got != "https://cdn.example.org/x.jpg" {
		t.Errorf("remote CoverURL = %q", got)
	}
	if got := CoverURL(cfg, Post{Cover: "/public/x.jpg"}); got != "https://example.com/public/x.jpg" {
		t.Errorf("relative CoverURL = %q", got)
	}
}

func TestWebsiteJSONLD(t *testing.T) {
	var data map[string]any
	if err := json.Unmarshal([]byte(WebsiteJSONLD(SiteConfig{Name: "Blog", URL: "https://example.com"})), &data); err != nil {
		t.Fatalf("invalid JSON-LD: %v", err)
	}
	if data["@type"] != "WebSite" || data["url"] != "https://example.com/" {
		t.Errorf("unexpected WebSite JSON-LD: %v", data)
	}
	if _, ok := data["author"]; ok {
		t.Error("author should be omitted when unset")
	}
}
