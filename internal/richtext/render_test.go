package richtext

import (
	"errors"
	"testing"
)

func TestToHTML(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		doc  string
		want string
	}{
		{
			name: "heading and bullet list",
			doc: `{"type":"doc","content":[
				{"type":"heading","attrs":{"level":2},"content":[{"type":"text","text":"Terms"}]},
				{"type":"bulletList","content":[
					{"type":"listItem","content":[{"type":"paragraph","content":[{"type":"text","text":"One"}]}]},
					{"type":"listItem","content":[{"type":"paragraph","content":[{"type":"text","text":"Two"}]}]},
					{"type":"listItem","content":[{"type":"paragraph","content":[{"type":"text","text":"Three"}]}]}
				]}
			]}`,
			want: "<h2>Terms</h2><ul><li><p>One</p></li><li><p>Two</p></li><li><p>Three</p></li></ul>",
		},
		{
			name: "marks nest in order",
			doc:  `{"type":"doc","content":[{"type":"paragraph","content":[{"type":"text","text":"hi","marks":[{"type":"bold"},{"type":"italic"}]}]}]}`,
			want: "<p><strong><em>hi</em></strong></p>",
		},
		{
			name: "text is escaped",
			doc:  `{"type":"doc","content":[{"type":"paragraph","content":[{"type":"text","text":"<script>alert(1)</script> & co"}]}]}`,
			want: "<p>&lt;script&gt;alert(1)&lt;/script&gt; &amp; co</p>",
		},
		{
			name: "safe link",
			doc:  `{"type":"doc","content":[{"type":"paragraph","content":[{"type":"text","text":"site","marks":[{"type":"link","attrs":{"href":"https://example.com/?a=1&b=2"}}]}]}]}`,
			want: `<p><a href="https://example.com/?a=1&amp;b=2">site</a></p>`,
		},
		{
			name: "script link dropped",
			doc:  `{"type":"doc","content":[{"type":"paragraph","content":[{"type":"text","text":"x","marks":[{"type":"link","attrs":{"href":"javascript:alert(1)"}}]}]}]}`,
			want: "<p>x</p>",
		},
		{
			name: "ordered list start",
			doc:  `{"type":"doc","content":[{"type":"orderedList","attrs":{"start":3},"content":[{"type":"listItem","content":[{"type":"text","text":"c"}]}]}]}`,
			want: `<ol start="3"><li>c</li></ol>`,
		},
		{
			name: "code block break and rule",
			doc:  `{"type":"doc","content":[{"type":"codeBlock","content":[{"type":"text","text":"a<b"}]},{"type":"paragraph","content":[{"type":"text","text":"x"},{"type":"hardBreak"},{"type":"text","text":"y"}]},{"type":"horizontalRule"}]}`,
			want: "<pre><code>a&lt;b</code></pre><p>x<br>y</p><hr>",
		},
		{
			name: "unknown node renders children",
			doc:  `{"type":"doc","content":[{"type":"callout","content":[{"type":"paragraph","content":[{"type":"text","text":"note"}]}]}]}`,
			want: "<p>note</p>",
		},
		{
			name: "empty doc",
			doc:  `{"type":"doc","content":[]}`,
			want: "&nbsp;",
		},
		{
			name: "not a doc",
			doc:  `{"type":"paragraph","content":[{"type":"text","text":"x"}]}`,
			want: "&nbsp;",
		},
		{
			name: "null",
			doc:  `null`,
			want: "&nbsp;",
		},
		{
			name: "malformed",
			doc:  `{"type":"doc",`,
			want: "&nbsp;",
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := ToHTML([]byte(tc.doc)); got != tc.want {
				t.Fatalf("ToHTML() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestNormalize(t *testing.T) {
	t.Parallel()

	if got := string(Normalize(nil)); got != EmptyDoc {
		t.Fatalf("expected empty doc for nil, got %s", got)
	}
	if got := string(Normalize([]byte(`[1,2]`))); got != EmptyDoc {
		t.Fatalf("expected empty doc for array, got %s", got)
	}
	doc := `{"type":"doc","content":[{"type":"paragraph"}]}`
	if got := string(Normalize([]byte(doc))); got != doc {
		t.Fatalf("expected doc to pass through, got %s", got)
	}
	if got := ToHTML([]byte(doc)); got != "<p></p>" {
		t.Fatalf("expected empty paragraph markup, got %q", got)
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	valid := `{"type":"doc","content":[{"type":"paragraph","content":[{"type":"text","text":"x","marks":[{"type":"bold"}]}]}]}`
	if err := Validate([]byte(valid)); err != nil {
		t.Fatalf("expected valid document, got %v", err)
	}

	invalid := []string{
		`{"type":"paragraph"}`,
		`{"type":"doc","content":[{"text":"missing type"}]}`,
		`{"type":"doc","content":"nope"}`,
		`not json`,
		`{"type":"doc"} {}`,
	}
	for _, doc := range invalid {
		if err := Validate([]byte(doc)); !errors.Is(err, ErrInvalidContent) {
			t.Fatalf("Validate(%s) expected ErrInvalidContent, got %v", doc, err)
		}
	}
}
