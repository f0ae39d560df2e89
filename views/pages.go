package views

import (
	"github.com/a-h/templ"
	"github.com/dustin/go-humanize"
	"github.com/dustin/go-humanize/english"

	"github.com/folioblog/folio"
	"github.com/folioblog/folio/markdown"
)

// Home is the landing page: bio, latest posts and the tag cloud.
func Home(v folio.HomeView) templ.Component {
	return Layout(v.Site, v.Meta, component(func(w *writer) {
		w.render(Bio(v.Site))
		w.raw(`<h1>Latest posts</h1>`)
		if len(v.Posts) == 0 {
			w.raw(`<p>Nothing here yet.</p>`)
		} else {
			w.render(PostList(v.Site, v.Posts))
		}
		w.raw(`<p><a href="/articles/">All articles →</a></p>`)
		w.render(Tags(v.Site, v.Tags))
		w.render(Newsletter(v.Site))
	}))
}

// Articles lists every post with the live search box.
func Articles(v folio.ArticlesView) templ.Component {
	return Layout(v.Site, v.Meta, component(func(w *writer) {
		w.raw(`<h1>Articles</h1><form action="/articles/" method="get" role="search">`)
		w.raw(`<input class="search" type="search" name="q" data-search autocomplete="off"`)
		w.attr("placeholder", "Search "+humanize.Comma(int64(v.Total))+" "+english.PluralWord(v.Total, "post", "")+" by title or tag")
		w.attr("value", v.Query)
		w.raw(`></form><div id="article-list">`)
		w.render(ArticleList(v.Posts, v.Query, v.Site))
		w.raw(`</div>`)
		w.render(Tags(v.Site, v.Tags))
	}))
}

// ArticleList is the search result fragment swapped in by folio.js.
func ArticleList(posts []folio.Post, query string, site folio.SiteConfig) templ.Component {
	return component(func(w *writer) {
		w.raw(`<p class="search-count">`)
		if query == "" {
			w.text(english.Plural(len(posts), "post", ""))
		} else {
			w.text(english.Plural(len(posts), "result", "") + ` for "` + query + `"`)
		}
		w.raw(`</p>`)
		if len(posts) == 0 {
			w.raw(`<p>No posts match your search.</p>`)
			return
		}
		w.render(PostList(site, posts))
	})
}

// TagPage lists the posts carrying one tag.
func TagPage(v folio.TagView) templ.Component {
	return Layout(v.Site, v.Meta, component(func(w *writer) {
		w.raw(`<h1>#`)
		w.text(v.Tag)
		w.raw(`</h1><p class="search-count">`)
		w.text(english.Plural(len(v.Posts), "post", ""))
		w.raw(`</p>`)
		w.render(PostList(v.Site, v.Posts))
	}))
}

// Post renders a single article.
func Post(v folio.PostView) templ.Component {
	return Layout(v.Site, v.Meta, component(func(w *writer) {
		p := v.Post
		w.raw(`<article class="post"><h1>`)
		w.text(p.Title)
		w.raw(`</h1>`)
		w.render(PostInfos(p))
		w.render(Tags(v.Site, p.Tags))
		w.render(Cover(p, true))
		w.raw(`<div class="post-body">`)
		w.render(markdown.Component(p.Content))
		w.raw(`</div></article>`)
		w.render(Newsletter(v.Site))
		if v.Next != nil {
			w.render(NextPost(*v.Next))
		}
		if len(v.Related) > 0 {
			w.raw(`<section class="related"><h2>Related posts</h2>`)
			w.render(PostList(v.Site, v.Related))
			w.raw(`</section>`)
		}
		w.render(Comments(v.Site))
	}))
}

// Page renders a standalone page such as About.
func Page(v folio.PageView) templ.Component {
	return Layout(v.Site, v.Meta, component(func(w *writer) {
		w.raw(`<article class="page"><h1>`)
		w.text(v.Page.Title)
		w.raw(`</h1><div class="post-body">`)
		w.render(markdown.Component(v.Page.Content))
		w.raw(`</div></article>`)
		w.render(Contact(v.Site))
	}))
}

// NewsletterStatus is the fragment returned by the subscribe endpoint.
func NewsletterStatus(ok bool, message string) templ.Component {
	return component(func(w *writer) {
		class := "newsletter-status error"
		if ok {
			class = "newsletter-status ok"
		}
		w.raw(`<p`)
		w.attr("class", class)
		w.raw(`>`)
		w.text(message)
		w.raw(`</p>`)
	})
}

func errorPage(site folio.SiteConfig, title, message string) templ.Component {
	meta := folio.PageMeta{Title: title + " | " + site.Name}
	return Layout(site, meta, component(func(w *writer) {
		w.raw(`<h1>`)
		w.text(title)
		w.raw(`</h1><p>`)
		w.text(message)
		w.raw(`</p><p><a href="/">Back home</a> or <a href="/articles/">browse the articles</a>.</p>`)
	}))
}

// NotFound is the 404 page.
func NotFound(site folio.SiteConfig) templ.Component {
	return errorPage(site, "Page not found", "The page you are looking for does not exist.")
}

// ServerError is the 5xx page.
func ServerError(site folio.SiteConfig) templ.Component {
	return errorPage(site, "Something went wrong", "Please try again in a moment.")
}

// Default returns the built-in views.
func Default() folio.ViewFuncs {
	return folio.ViewFuncs{
		Home:             Home,
		Articles:         Articles,
		ArticleList:      ArticleList,
		TagPage:          TagPage,
		Post:             Post,
		Page:             Page,
		NewsletterStatus: NewsletterStatus,
		AdminLogin:       AdminLogin,
		AdminDashboard:   AdminDashboard,
		AdminFormPartial: AdminFormPartial,
		AdminImages:      AdminImages,
		AdminAnalytics:   AdminAnalytics,
		NotFound:         NotFound,
		ServerError:      ServerError,
	}
}
