package views

import (
	"time"

	"github.com/a-h/templ"
	"github.com/dustin/go-humanize"

	"github.com/folioblog/folio"
)

func adminPage(title, csrfToken string, body templ.Component) templ.Component {
	return component(func(w *writer) {
		w.raw(`<!DOCTYPE html><html lang="en" data-theme="auto"><head><meta charset="utf-8">`)
		w.raw(`<meta name="viewport" content="width=device-width, initial-scale=1"><meta name="robots" content="noindex">`)
		if csrfToken != "" {
			w.raw(`<meta name="csrf-token"`)
			w.attr("content", csrfToken)
			w.raw(`>`)
		}
		w.raw(`<title>`)
		w.text(title)
		w.raw(`</title><link rel="stylesheet" href="/public/folio.css"><script src="/public/folio.js" defer></script></head>`)
		w.raw(`<body class="admin"><main class="container">`)
		w.render(body)
		w.raw(`</main></body></html>`)
	})
}

func csrfField(w *writer, token string) {
	w.raw(`<input type="hidden" name="_csrf"`)
	w.attr("value", token)
	w.raw(`>`)
}

// AdminLogin is the password form.
func AdminLogin(showError bool, csrfToken string) templ.Component {
	return adminPage("Admin login", csrfToken, component(func(w *writer) {
		w.raw(`<h1>Admin</h1>`)
		if showError {
			w.raw(`<p class="newsletter-status error">Invalid password.</p>`)
		}
		w.raw(`<form method="post" action="/admin/login/">`)
		csrfField(w, csrfToken)
		w.raw(`<label>Password <input type="password" name="password" autocomplete="current-password" required autofocus></label>`)
		w.raw(`<button type="submit">Log in</button></form>`)
	}))
}

// AdminDashboard lists every post next to the editor.
func AdminDashboard(posts []folio.Post, message, csrfToken string) templ.Component {
	return adminPage("Admin", csrfToken, component(func(w *writer) {
		w.raw(`<header class="site-header"><h1>Posts</h1><nav><a href="/">View site</a><a href="/admin/images/">Images</a><a href="/admin/analytics/">Analytics</a>`)
		w.raw(`<form method="post" action="/admin/logout/" style="display:inline">`)
		csrfField(w, csrfToken)
		w.raw(`<button type="submit">Log out</button></form></nav></header>`)
		if message != "" {
			w.raw(`<p class="badge">`)
			w.text(message)
			w.raw(`</p>`)
		}
		w.raw(`<div id="editor">`)
		w.render(AdminFormPartial(folio.Post{Published: true}, csrfToken))
		w.raw(`</div><table><thead><tr><th>Title</th><th>Date</th><th>Status</th><th>Source</th><th></th></tr></thead><tbody>`)
		for _, p := range posts {
			w.raw(`<tr><td>`)
			w.text(p.Title)
			w.raw(`</td><td>`)
			w.text(p.Date)
			w.raw(`</td><td>`)
			if p.Published {
				w.raw(`published`)
			} else {
				w.raw(`draft`)
			}
			w.raw(`</td><td>`)
			w.text(p.Source)
			w.raw(`</td><td>`)
			if p.Source == folio.SourceFile {
				w.raw(`<small>edit the file</small>`)
			} else {
				w.raw(`<a href="#editor"`)
				w.attr("data-admin-load", "/admin/post/"+PathEscape(p.Slug)+"/")
				w.raw(`>Edit</a> <button type="button"`)
				w.attr("data-admin-delete", "/admin/post/"+PathEscape(p.Slug)+"/")
				w.raw(`>Delete</button>`)
			}
			w.raw(`</td></tr>`)
		}
		w.raw(`</tbody></table>`)
	}))
}

func checkbox(w *writer, name, label string, checked bool) {
	w.raw(`<label><input type="checkbox" value="true"`)
	w.attr("name", name)
	if checked {
		w.raw(` checked`)
	}
	w.raw(`> `)
	w.text(label)
	w.raw(`</label>`)
}

func textInput(w *writer, kind, name, label, value string) {
	w.raw(`<label>`)
	w.text(label)
	w.raw(` <input`)
	w.attr("type", kind)
	w.attr("name", name)
	w.attr("value", value)
	w.raw(`></label>`)
}

// AdminFormPartial is the post editor. An empty slug starts a new post.
func AdminFormPartial(post folio.Post, csrfToken string) templ.Component {
	return component(func(w *writer) {
		w.raw(`<form method="post" action="/admin/save/" class="editor">`)
		csrfField(w, csrfToken)
		textInput(w, "text", "title", "Title", post.Title)
		textInput(w, "text", "slug", "Slug", post.Slug)
		date := post.Date
		if date == "" {
			date = time.Now().Format("2006-01-02")
		}
		textInput(w, "date", "date", "Date", date)
		textInput(w, "text", "tags", "Tags", folio.JoinTags(post.Tags))
		textInput(w, "text", "description", "Description", post.Description)
		textInput(w, "text", "cover", "Cover URL", post.Cover)
		checkbox(w, "quick", "Quick read", post.Quick)
		checkbox(w, "published", "Published", post.Published)
		w.raw(`<textarea name="content">`)
		w.text(post.Content)
		w.raw(`</textarea><button type="submit">Save</button></form>`)
	})
}

// AdminImages is the upload page with the list of stored images.
func AdminImages(images []folio.Image, csrfToken string) templ.Component {
	return adminPage("Images", csrfToken, component(func(w *writer) {
		w.raw(`<header class="site-header"><h1>Images</h1><nav><a href="/admin/">Posts</a></nav></header>`)
		w.raw(`<form method="post" action="/admin/images/upload/" enctype="multipart/form-data">`)
		csrfField(w, csrfToken)
		w.raw(`<input type="file" name="image" accept="image/*" required><button type="submit">Upload</button></form>`)
		w.raw(`<table><thead><tr><th>File</th><th>Size</th><th>Uploaded</th><th>Markdown</th><th></th></tr></thead><tbody>`)
		for _, img := range images {
			src := folio.UploadsPrefix + img.Filename
			w.raw(`<tr><td><a`)
			w.href(src)
			w.raw(`>`)
			w.text(img.Filename)
			w.raw(`</a><br><small>`)
			w.text(itoa(img.Width) + "×" + itoa(img.Height))
			w.raw(`</small></td><td>`)
			w.text(humanize.Bytes(uint64(img.Size)))
			w.raw(`</td><td>`)
			if t, err := time.Parse(time.RFC3339, img.UploadedAt); err == nil {
				w.text(humanize.Time(t))
			} else {
				w.text(img.UploadedAt)
			}
			w.raw(`</td><td><code>`)
			w.text("![" + img.OriginalName + "](" + src + ")")
			w.raw(`</code></td><td><button type="button"`)
			w.attr("data-admin-delete", "/admin/images/"+PathEscape(img.Filename)+"/")
			w.raw(`>Delete</button></td></tr>`)
		}
		w.raw(`</tbody></table>`)
	}))
}
