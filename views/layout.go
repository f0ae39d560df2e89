package views

import (
	"time"

	"github.com/a-h/templ"

	"github.com/folioblog/folio"
)

// Layout is the HTML document shell shared by every public page.
func Layout(site folio.SiteConfig, meta folio.PageMeta, body templ.Component) templ.Component {
	return component(func(w *writer) {
		w.raw(`<!DOCTYPE html><html lang="en"`)
		w.attr("data-theme", string(site.Theme))
		if site.Static {
			w.raw(` data-static`)
		}
		w.raw(`><head><meta charset="utf-8"><meta name="viewport" content="width=device-width, initial-scale=1">`)
		w.raw(`<title>`)
		w.text(meta.Title)
		w.raw(`</title>`)
		w.render(head(site, meta))
		w.raw(`<link rel="stylesheet" href="/public/folio.css"><script src="/public/folio.js" defer></script></head><body`)
		if site.AnalyticsEnabled {
			w.raw(` data-analytics`)
		}
		w.raw(`>`)
		w.render(Header(site))
		w.raw(`<main class="container">`)
		w.render(body)
		w.raw(`</main><footer class="site-footer container">© `)
		w.text(itoa(time.Now().Year()) + " " + site.Name)
		w.raw(` · <a href="/feed.xml">RSS</a> · <a href="/sitemap.xml">Sitemap</a></footer></body></html>`)
	})
}

func metaTag(w *writer, key, name, content string) {
	if content == "" {
		return
	}
	w.raw(`<meta`)
	w.attr(key, name)
	w.attr("content", content)
	w.raw(`>`)
}

// head renders the SEO, OpenGraph and Twitter card tags.
func head(site folio.SiteConfig, meta folio.PageMeta) templ.Component {
	return component(func(w *writer) {
		metaTag(w, "name", "description", meta.Description)
		metaTag(w, "name", "author", site.Author)
		if meta.URL != "" {
			w.raw(`<link rel="canonical"`)
			w.attr("href", meta.URL)
			w.raw(`>`)
		}
		w.raw(`<link rel="alternate" type="application/rss+xml"`)
		w.attr("title", site.Name)
		w.raw(` href="/feed.xml"><link rel="icon" type="image/svg+xml" href="/favicon.svg">`)

		metaTag(w, "property", "og:site_name", site.Name)
		metaTag(w, "property", "og:title", meta.Title)
		metaTag(w, "property", "og:description", meta.Description)
		metaTag(w, "property", "og:url", meta.URL)
		metaTag(w, "property", "og:type", meta.OGType)
		metaTag(w, "property", "og:image", meta.Image)

		card := "summary"
		if meta.Image != "" {
			card = "summary_large_image"
		}
		metaTag(w, "name", "twitter:card", card)
		if site.Social.Twitter != "" {
			metaTag(w, "name", "twitter:site", "@"+site.Social.Twitter)
		}

		if meta.JSONLD != "" {
			// json.Marshal escapes <, > and &, so the payload cannot close the tag.
			w.raw(`<script type="application/ld+json">`, meta.JSONLD, `</script>`)
		}
	})
}
