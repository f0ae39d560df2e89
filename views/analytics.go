package views

import (
	"strings"

	"github.com/a-h/templ"
	"github.com/dustin/go-humanize"

	"github.com/folioblog/folio"
	"github.com/folioblog/folio/analytics"
)

var periodLabels = map[string]string{
	"today": "Last 24 hours",
	"week":  "Last 7 days",
	"month": "Last 30 days",
	"year":  "Last 12 months",
}

// AdminAnalytics is the analytics dashboard.
func AdminAnalytics(v folio.AnalyticsView) templ.Component {
	return adminPage("Analytics", v.CSRF, component(func(w *writer) {
		w.raw(`<header class="site-header"><h1>Analytics</h1><nav><a href="/admin/">Posts</a><a href="/admin/images/">Images</a></nav></header>`)
		if v.Report == nil {
			w.raw(`<section class="callout callout-info"><p class="callout-title">Analytics are disabled</p>`)
			w.raw(`<p>Set <code>analytics = true</code> in folio.toml and restart the server. Visits are counted without cookies; `)
			w.raw(`IP addresses are hashed with a salt that never leaves the database.</p></section>`)
			return
		}
		r := v.Report
		w.raw(`<nav class="periods">`)
		for _, p := range v.Periods {
			w.raw(`<a`)
			w.href("/admin/analytics/?period=" + p)
			if p == r.Period {
				w.raw(` aria-current="page"`)
			}
			w.raw(`>`)
			w.text(periodLabels[p])
			w.raw(`</a>`)
		}
		w.raw(`</nav>`)

		s := r.Visitors
		w.raw(`<dl class="totals">`)
		total(w, "Online now", humanize.Comma(int64(r.Realtime)))
		total(w, "Visitors", humanize.Comma(int64(s.UniqueVisitors)))
		total(w, "Page views", humanize.Comma(int64(s.TotalViews)))
		total(w, "Avg. time on page", duration(s.AvgDuration))
		total(w, "Crawler hits", humanize.Comma(int64(r.Bots.TotalVisits)))
		w.raw(`</dl>`)

		w.render(viewsChart("Page views", s.DailyViews))

		w.raw(`<div class="grid">`)
		pageTable(w, "Top pages", s.TopPages)
		w.raw(`<section><h2>Latest pages</h2><table><thead><tr><th>Page</th><th>Browser</th><th>When</th></tr></thead><tbody>`)
		for _, p := range s.LatestPages {
			w.raw(`<tr><td>`)
			w.text(p.Path)
			w.raw(`</td><td>`)
			w.text(p.Browser)
			w.raw(`</td><td>`)
			w.text(p.Timestamp)
			w.raw(`</td></tr>`)
		}
		w.raw(`</tbody></table></section>`)
		dimensionTable(w, "Referrers", "Source", s.ReferrerStats)
		dimensionTable(w, "Browsers", "Browser", s.BrowserStats)
		dimensionTable(w, "Operating systems", "OS", s.OSStats)
		dimensionTable(w, "Devices", "Device", s.DeviceStats)

		w.raw(`<section><h2>Goals</h2>`)
		if len(s.Goals) == 0 {
			w.raw(`<p>No goals completed in this period.</p>`)
		} else {
			w.raw(`<table class="goals"><thead><tr><th>Goal</th><th>Completions</th><th>Value</th></tr></thead><tbody>`)
			for _, g := range s.Goals {
				w.raw(`<tr><td>`)
				w.text(g.Name)
				w.raw(`</td><td>`)
				w.text(humanize.Comma(int64(g.Count)))
				w.raw(`</td><td>`)
				w.text(cents(g.Value))
				w.raw(`</td></tr>`)
			}
			w.raw(`</tbody></table>`)
		}
		w.raw(`</section>`)

		dimensionTable(w, "Crawlers", "Bot", r.Bots.TopBots)
		pageTable(w, "Pages crawled", r.Bots.TopPages)
		w.raw(`</div>`)

		w.raw(`<details class="setup"><summary>Tracking goals</summary><p>Newsletter signups are recorded as <code>newsletter_signup</code>. `)
		w.raw(`Other goals can be sent from custom templates with <code>POST /api/analytics/goal</code> and a JSON body such as `)
		w.raw(`<code>{"name":"download","path":"/blog/post/","value":0}</code>. Values are amounts in cents.</p></details>`)
	}))
}

func total(w *writer, label, value string) {
	w.raw(`<div><dt>`)
	w.text(label)
	w.raw(`</dt><dd>`)
	w.text(value)
	w.raw(`</dd></div>`)
}

func duration(sec int) string {
	if sec < 60 {
		return itoa(sec) + "s"
	}
	return itoa(sec/60) + "m " + itoa(sec%60) + "s"
}

// cents formats a goal value, stored in cents, as a decimal amount.
func cents(v int) string {
	if v == 0 {
		return "–"
	}
	frac := itoa(v % 100)
	if len(frac) == 1 {
		frac = "0" + frac
	}
	return humanize.Comma(int64(v/100)) + "." + frac
}

// viewsChart draws one bar per bucket, scaled to the busiest bucket.
func viewsChart(title string, buckets []analytics.DailyView) templ.Component {
	return component(func(w *writer) {
		peak := 0
		for _, b := range buckets {
			peak = max(peak, b.Views)
		}
		w.raw(`<figure class="chart"><figcaption>`)
		w.text(title)
		w.raw(`</figcaption><ol>`)
		for _, b := range buckets {
			pct := 0
			if peak > 0 {
				pct = b.Views * 100 / peak
			}
			w.raw(`<li`)
			w.attr("title", b.Date+": "+humanize.Comma(int64(b.Views)))
			w.attr("style", "--bar:"+itoa(pct)+"%")
			w.raw(`><span>`)
			w.text(chartLabel(b.Date))
			w.raw(`</span></li>`)
		}
		w.raw(`</ol></figure>`)
	})
}

// chartLabel shortens "2024-03-09" to "03-09"; hours and months pass
// through unchanged.
func chartLabel(date string) string {
	if strings.Count(date, "-") == 2 {
		return date[strings.Index(date, "-")+1:]
	}
	return date
}

func pageTable(w *writer, title string, pages []analytics.PageStat) {
	w.raw(`<section><h2>`)
	w.text(title)
	w.raw(`</h2><table><thead><tr><th>Page</th><th>Views</th></tr></thead><tbody>`)
	for _, p := range pages {
		w.raw(`<tr><td>`)
		w.text(p.Path)
		w.raw(`</td><td>`)
		w.text(humanize.Comma(int64(p.Views)))
		w.raw(`</td></tr>`)
	}
	w.raw(`</tbody></table></section>`)
}

func dimensionTable(w *writer, title, column string, rows []analytics.DimensionStat) {
	w.raw(`<section><h2>`)
	w.text(title)
	w.raw(`</h2><table><thead><tr><th>`)
	w.text(column)
	w.raw(`</th><th>Count</th></tr></thead><tbody>`)
	for _, d := range rows {
		w.raw(`<tr><td>`)
		w.text(d.Name)
		w.raw(`</td><td>`)
		w.text(humanize.Comma(int64(d.Count)))
		w.raw(`</td></tr>`)
	}
	w.raw(`</tbody></table></section>`)
}
