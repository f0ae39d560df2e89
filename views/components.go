package views

import (
	"github.com/a-h/templ"
	"github.com/dustin/go-humanize"

	"github.com/folioblog/folio"
)

// Header is the site title and navigation.
func Header(site folio.SiteConfig) templ.Component {
	return component(func(w *writer) {
		w.raw(`<header class="site-header container"><a class="site-title" href="/">`)
		w.text(site.Name)
		w.raw(`</a><nav>`)
		for _, m := range site.Menu {
			w.raw(`<a`)
			w.href(m.URL)
			w.raw(`>`)
			w.text(m.Label)
			w.raw(`</a>`)
		}
		w.raw(`<a href="/feed.xml">RSS</a>`)
		if site.Social.GitHub != "" {
			w.raw(`<a`)
			w.href("https://github.com/" + site.Social.GitHub)
			w.raw(` rel="me">GitHub</a>`)
		}
		if site.Social.Twitter != "" {
			w.raw(`<a`)
			w.href("https://twitter.com/" + site.Social.Twitter)
			w.raw(` rel="me">Twitter</a>`)
		}
		w.raw(`</nav></header>`)
	})
}

// Bio introduces the author on the home page.
func Bio(site folio.SiteConfig) templ.Component {
	return component(func(w *writer) {
		if site.Bio == "" && site.Author == "" {
			return
		}
		w.raw(`<section class="bio"><div>`)
		if site.Author != "" {
			w.raw(`<strong>`)
			w.text(site.Author)
			w.raw(`</strong>`)
		}
		if site.Bio != "" {
			w.raw(`<p>`)
			w.text(site.Bio)
			w.raw(`</p>`)
		}
		w.raw(`</div></section>`)
	})
}

// Tags renders tag badges linking to their tag pages.
func Tags(site folio.SiteConfig, tags []string) templ.Component {
	return component(func(w *writer) {
		if len(tags) == 0 {
			return
		}
		w.raw(`<ul class="tags">`)
		for _, t := range tags {
			w.raw(`<li><a class="tag"`)
			w.href(folio.TagURL(t))
			if style := TagStyle(site, t); style != "" {
				w.attr("style", style)
			}
			w.raw(`>#`)
			w.text(t)
			w.raw(`</a></li>`)
		}
		w.raw(`</ul>`)
	})
}

// PostInfos shows the date, reading time and quick badge of a post.
func PostInfos(post folio.Post) templ.Component {
	return component(func(w *writer) {
		w.raw(`<p class="post-infos"><time`)
		w.attr("datetime", post.Date)
		w.raw(`>`)
		w.text(folio.FormatDate(post.Date))
		w.raw(`</time> · `)
		w.text(humanize.Comma(int64(ReadingTime(post.Content))) + " min read")
		if post.Quick {
			w.raw(` <span class="badge">Quick read</span>`)
		}
		w.raw(`</p>`)
	})
}

// Cover renders a post's cover image. Processed covers get a srcset and
// their blurred placeholder; other covers are linked as is.
func Cover(post folio.Post, eager bool) templ.Component {
	return component(func(w *writer) {
		if !post.HasCover() {
			return
		}
		w.raw(`<figure class="cover"`)
		if style := coverStyle(post); style != "" {
			w.attr("style", style)
		}
		w.raw(`><img`)
		if len(post.CoverImage.Variants) > 0 {
			c := post.CoverImage
			w.attr("src", folio.CoversPrefix+c.Src())
			w.attr("srcset", c.Srcset(folio.CoversPrefix))
			w.attr("sizes", CoverSizes)
			w.attr("width", itoa(c.Variants[len(c.Variants)-1].Width))
			w.attr("height", itoa(c.Variants[len(c.Variants)-1].Height))
		} else {
			w.attr("src", string(templ.URL(post.Cover)))
		}
		w.attr("alt", post.Title)
		if eager {
			w.attr("fetchpriority", "high")
		} else {
			w.attr("loading", "lazy")
		}
		w.attr("decoding", "async")
		w.raw(`></figure>`)
	})
}

// PostCard is one entry of a post list.
func PostCard(site folio.SiteConfig, post folio.Post) templ.Component {
	return component(func(w *writer) {
		w.raw(`<li class="post-card"`)
		w.attr("data-slug", post.Slug)
		w.raw(`><article>`)
		w.render(Cover(post, false))
		w.raw(`<h2><a`)
		w.href(post.Link)
		w.raw(`>`)
		w.text(post.Title)
		w.raw(`</a></h2>`)
		w.render(PostInfos(post))
		if post.Description != "" {
			w.raw(`<p>`)
			w.text(post.Description)
			w.raw(`</p>`)
		}
		w.render(Tags(site, post.Tags))
		w.raw(`</article></li>`)
	})
}

// PostList renders posts as cards.
func PostList(site folio.SiteConfig, posts []folio.Post) templ.Component {
	return component(func(w *writer) {
		w.raw(`<ul class="post-list">`)
		for _, p := range posts {
			w.render(PostCard(site, p))
		}
		w.raw(`</ul>`)
	})
}

// Newsletter is the signup form. It posts straight to the inbox service
// and is upgraded by folio.js to go through the engine when available.
func Newsletter(site folio.SiteConfig) templ.Component {
	return component(func(w *writer) {
		n := site.Newsletter
		if !n.Enabled {
			return
		}
		w.raw(`<section class="newsletter"><h3>`)
		w.text(n.Heading)
		w.raw(`</h3><p>`)
		w.text(n.Pitch)
		w.raw(`</p><form data-newsletter method="post"`)
		w.attr("action", string(templ.URL(n.Action)))
		w.raw(`><input type="email" name="email" placeholder="you@example.com" autocomplete="email" required>`)
		w.raw(`<input type="hidden" name="embed" value="1"><button type="submit">Subscribe</button></form>`)
		w.raw(`<div data-newsletter-status aria-live="polite"></div></section>`)
	})
}

// Comments embeds the utterances widget backed by GitHub issues.
func Comments(site folio.SiteConfig) templ.Component {
	return component(func(w *writer) {
		c := site.Comments
		if !c.Enabled {
			return
		}
		w.raw(`<section class="comments"><p>`)
		w.text(c.Prompt)
		w.raw(`</p><script src="https://utteranc.es/client.js"`)
		w.attr("repo", c.Repo)
		w.attr("issue-term", c.IssueTerm)
		w.attr("theme", c.Theme)
		w.raw(` crossorigin="anonymous" async></script></section>`)
	})
}

// NextPost suggests what to read after the current post.
func NextPost(post folio.Post) templ.Component {
	return component(func(w *writer) {
		w.raw(`<aside class="next-post"><small>Read next</small><h3><a`)
		w.href(post.Link)
		w.raw(`>`)
		w.text(post.Title)
		w.raw(`</a></h3>`)
		if post.Description != "" {
			w.raw(`<p>`)
			w.text(post.Description)
			w.raw(`</p>`)
		}
		w.raw(`</aside>`)
	})
}

// Contact invites readers to get in touch by email.
func Contact(site folio.SiteConfig) templ.Component {
	return component(func(w *writer) {
		if site.Social.Email == "" {
			return
		}
		w.raw(`<aside class="callout callout-info contact"><p class="callout-title">Get in touch</p><p>Questions, corrections or ideas? Write to <a`)
		w.href("mailto:" + site.Social.Email)
		w.raw(`>`)
		w.text(site.Social.Email)
		w.raw(`</a>.</p></aside>`)
	})
}
