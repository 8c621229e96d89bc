// Package markdown renders the comment subset of Markdown into sanitized HTML.
//
// The grammar is closed: inline code, bare http/https/mailto links, bold, italic and
// line breaks. Headings, lists, images and raw HTML are never honored; anything that
// looks like them is emitted as escaped literal text.
package markdown

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// LinkRel is the rel attribute attached to every http(s) auto-link
const LinkRel = "nofollow noopener noreferrer"

// placeholder delimiters. NUL is stripped from input, so it cannot collide with user text.
const placeholderMark = "\x00"

var (
	htmlEscaper = strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		`"`, "&quot;",
		"'", "&#x27;",
	)

	codeSpanPattern    = regexp.MustCompile("`([^`\\x00]+)`")
	httpURLPattern     = regexp.MustCompile("https?://[^\\s<>&\"')\\]*`\\x00]+")
	mailtoPattern      = regexp.MustCompile("mailto:[^\\s<>&\"')\\]*`\\x00]+")
	boldPattern        = regexp.MustCompile(`\*\*([^*]+)\*\*`)
	italicPattern      = regexp.MustCompile(`\*([^*]+)\*`)
	placeholderPattern = regexp.MustCompile(`\x00([0-9]+)\x00`)

	policy = newPolicy()
)

// newPolicy allows exactly the elements the grammar can emit
func newPolicy() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowElements("p", "br", "strong", "em", "code")
	p.AllowAttrs("href").OnElements("a")
	p.AllowAttrs("rel").Matching(regexp.MustCompile(`^` + LinkRel + `$`)).OnElements("a")
	p.AllowAttrs("target").Matching(regexp.MustCompile(`^_blank$`)).OnElements("a")
	p.AllowURLSchemes("http", "https", "mailto")
	p.RequireParseableURLs(true)
	return p
}

// fragments holds markup produced by earlier steps so later steps cannot re-interpret it
type fragments []string

func (f *fragments) hold(markup string) string {
	*f = append(*f, markup)
	return placeholderMark + strconv.Itoa(len(*f)-1) + placeholderMark
}

func (f fragments) restore(s string) string {
	return placeholderPattern.ReplaceAllStringFunc(s, func(m string) string {
		idx, err := strconv.Atoi(strings.Trim(m, placeholderMark))
		if err != nil || idx >= len(f) {
			return ""
		}
		return f[idx]
	})
}

// EscapeHTML escapes the five HTML-significant characters
func EscapeHTML(s string) string {
	return htmlEscaper.Replace(s)
}

// Render converts comment text (already trimmed and length-checked) to HTML.
// Steps run in a fixed order: escape, code spans, auto-links, bold, italic, line breaks, paragraph.
func Render(text string) string {
	var held fragments

	text = strings.ReplaceAll(text, placeholderMark, "")
	text = strings.ReplaceAll(text, "\r\n", "\n")

	out := EscapeHTML(text)

	out = codeSpanPattern.ReplaceAllStringFunc(out, func(m string) string {
		inner := m[1 : len(m)-1]
		return held.hold("<code>" + inner + "</code>")
	})

	// Unparseable URLs stay plain text; the sanitizer would strip their href and leave a bare <a>.
	out = httpURLPattern.ReplaceAllStringFunc(out, func(link string) string {
		if !parseable(link) {
			return link
		}
		return held.hold(`<a href="` + link + `" rel="` + LinkRel + `" target="_blank">` + link + `</a>`)
	})
	out = mailtoPattern.ReplaceAllStringFunc(out, func(link string) string {
		if !parseable(link) {
			return link
		}
		display := strings.TrimPrefix(link, "mailto:")
		return held.hold(`<a href="` + link + `">` + display + `</a>`)
	})

	out = boldPattern.ReplaceAllString(out, "<strong>$1</strong>")
	out = italicPattern.ReplaceAllString(out, "<em>$1</em>")

	out = strings.ReplaceAll(out, "\n", "<br>")

	out = "<p>" + held.restore(out) + "</p>"

	// The sanitizer re-serializes text, so quotes come out as &#34; and &#39;
	// rather than the &quot; and &#x27; EscapeHTML produced. Both decode identically.
	return policy.Sanitize(out)
}

func parseable(link string) bool {
	_, err := url.Parse(link)
	return err == nil
}
