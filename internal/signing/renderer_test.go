package signing

import (
	"context"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"esign-backend/internal/pdfrender"
)

func renderInput() RenderInput {
	return RenderInput{
		DocumentID:    "doc-1",
		RecipientID:   "rec-1",
		DocumentTitle: "Lease <draft>",
		Content:       []byte(`{"type":"doc","content":[{"type":"paragraph","content":[{"type":"text","text":"Rent & terms"}]}]}`),
		SignerName:    "Ana",
		SignerEmail:   "ana@example.com",
		SignatureURL:  "http://localhost:8080/files/signatures/rec-1/1.png",
		SignedAt:      time.Date(2026, 3, 10, 15, 4, 5, 0, time.UTC),
	}
}

func TestRendererHTMLFormatsTimestampInZone(t *testing.T) {
	loc, err := time.LoadLocation("America/Sao_Paulo")
	require.NoError(t, err)
	r := NewRenderer(&fakePDFRenderer{}, loc)

	page, err := r.HTML(renderInput())
	require.NoError(t, err)
	assert.Contains(t, page, "10/03/2026 12:04:05")
	assert.Contains(t, page, "Lease &lt;draft&gt;")
	assert.Contains(t, page, "<p>Rent &amp; terms</p>")
	assert.Contains(t, page, "Not available")
	assert.Contains(t, page, "Digitally signed")
	assert.Contains(t, page, `src="http://localhost:8080/files/signatures/rec-1/1.png"`)
}

func TestRendererNormalizesMissingContent(t *testing.T) {
	r := NewRenderer(&fakePDFRenderer{}, time.UTC)
	in := renderInput()
	in.Content = []byte(`"not a doc"`)

	page, err := r.HTML(in)
	require.NoError(t, err)
	assert.Contains(t, page, `<div class="document-content">&nbsp;</div>`)
}

func TestRendererRequiresSignatureURLBeforeCallingRenderer(t *testing.T) {
	pdf := &fakePDFRenderer{}
	r := NewRenderer(pdf, time.UTC)
	in := renderInput()
	in.SignatureURL = ""

	_, err := r.Render(context.Background(), in)
	var pre *PreconditionError
	require.ErrorAs(t, err, &pre)
	assert.Zero(t, pdf.calls)
}

func TestRendererWrapsUpstreamError(t *testing.T) {
	pdf := &fakePDFRenderer{err: &pdfrender.UpstreamError{Status: 500, Body: "boom"}}
	r := NewRenderer(pdf, time.UTC)

	_, err := r.Render(context.Background(), renderInput())
	var renderErr *RenderError
	require.ErrorAs(t, err, &renderErr)
	assert.Equal(t, 500, renderErr.Status)
	assert.Equal(t, "boom", renderErr.Body)
}

func TestDecodeSignature(t *testing.T) {
	data, err := DecodeSignature(pngDataURL)
	require.NoError(t, err)
	assert.Equal(t, pngBytes, data)

	raw, err := DecodeSignature("aGVsbG8=")
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), raw)

	for _, in := range []string{"", "   ", "data:image/png;base64,", "data:image/png;base64,%%%"} {
		_, err := DecodeSignature(in)
		assert.ErrorIs(t, err, ErrEmptySignature, "input %q", in)
	}
}

func TestNormalizeSignerName(t *testing.T) {
	assert.Equal(t, "José Silva", NormalizeSignerName("  José \t Silva "))
	assert.Equal(t, "", NormalizeSignerName("   "))
	long := NormalizeSignerName(repeatRune('á', 200))
	assert.Equal(t, maxSignerNameLen, len([]rune(long)))
}

func repeatRune(r rune, n int) string {
	out := make([]rune, n)
	for i := range out {
		out[i] = r
	}
	return string(out)
}

func TestWellFormedToken(t *testing.T) {
	assert.True(t, wellFormedToken(token('a')))
	assert.True(t, wellFormedToken("0b8f0a1e-6c4d-4d1b-9d8e-2f9f5b7c1a23"))
	assert.False(t, wellFormedToken("short"))
	assert.False(t, wellFormedToken("../../etc/passwd/aaaaaaaaaaaaaaaa"))
	assert.False(t, wellFormedToken(token('a')+token('a')+"x"))
}
