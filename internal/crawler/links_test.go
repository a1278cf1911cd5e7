package crawler

import (
	"slices"
	"testing"
)

func TestExtractLinks(t *testing.T) {
	t.Parallel()

	t.Run("resolves against the page URL", func(t *testing.T) {
		t.Parallel()

		doc := `<html><body>
			<a href="sibling">Sibling</a>
			<a href="../up">Up</a>
			<a href="/root?q=1#frag">Root</a>
			<a href="https://other.com/x">Other</a>
			<a href="//cdn.example.com/y">Protocol relative</a>
		</body></html>`

		got, err := ExtractLinks(doc, "https://example.com/docs/guide/")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := []string{
			"https://example.com/docs/guide/sibling",
			"https://example.com/docs/up",
			"https://example.com/root?q=1",
			"https://other.com/x",
			"https://cdn.example.com/y",
		}
		if !slices.Equal(got, want) {
			t.Errorf("ExtractLinks() = %v, want %v", got, want)
		}
	})

	t.Run("honours the base element", func(t *testing.T) {
		t.Parallel()

		doc := `<html><head><base href="https://example.com/v2/"></head>
			<body><a href="page">Page</a></body></html>`
		got, err := ExtractLinks(doc, "https://example.com/v1/index.html")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !slices.Equal(got, []string{"https://example.com/v2/page"}) {
			t.Errorf("ExtractLinks() = %v", got)
		}
	})

	t.Run("drops non navigational hrefs", func(t *testing.T) {
		t.Parallel()

		doc := `<a href="javascript:void(0)">JS</a>
			<a href="MAILTO:a@example.com">Mail</a>
			<a href="tel:+1234">Tel</a>
			<a href="data:text/plain,hi">Data</a>
			<a href="#section">Anchor</a>
			<a href="   ">Blank</a>
			<a>No href</a>
			<a href="/kept">Kept</a>`
		got, err := ExtractLinks(doc, "https://example.com/")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !slices.Equal(got, []string{"https://example.com/kept"}) {
			t.Errorf("ExtractLinks() = %v", got)
		}
	})

	t.Run("invalid page URL", func(t *testing.T) {
		t.Parallel()

		if _, err := ExtractLinks("<a href='/'>x</a>", "://bad"); err == nil {
			t.Error("expected error for invalid page URL")
		}
	})
}
