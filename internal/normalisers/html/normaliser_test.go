package html

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-indexer/internal/core/ports/driven"
)

func TestSupportedMIMETypes(t *testing.T) {
	mimeTypes := New().SupportedMIMETypes()
	assert.Contains(t, mimeTypes, "text/html")
	assert.Contains(t, mimeTypes, "application/xhtml+xml")
	assert.Len(t, mimeTypes, 2)
}

func TestPriority(t *testing.T) {
	assert.Equal(t, 50, New().Priority())
}

func TestNormalise_Success(t *testing.T) {
	in := driven.NormaliseInput{
		SourceID: "test-source",
		Path:     "/path/to/document.html",
		MIMEType: "text/html",
		Content:  []byte("<html><head><title>Test Page</title></head><body><p>Hello World</p></body></html>"),
	}

	result, err := New().Normalise(context.Background(), in)

	require.NoError(t, err)
	assert.Equal(t, "Test Page", result.Title)
	assert.Equal(t, "Hello World", result.Text)
	assert.Equal(t, "text/html", result.Metadata["mime_type"])
	assert.Equal(t, "html", result.Metadata["format"])
}

func TestNormalise_TitleFallsBackToFilename(t *testing.T) {
	in := driven.NormaliseInput{Path: "/site/about-us.html", Content: []byte("<p>About</p>")}

	result, err := New().Normalise(context.Background(), in)

	require.NoError(t, err)
	assert.Equal(t, "about us", result.Title)
}

func TestExtract_DropsScriptsAndStyles(t *testing.T) {
	content := []byte(`<html><head><style>body { color: red }</style>
<script>var secret = 1;</script></head>
<body><h1>Heading</h1><p>First   paragraph</p><noscript>enable js</noscript>
<ul><li>one</li><li>two</li></ul><p>Fish &amp; chips</p></body></html>`)

	title, text, err := Extract(content)

	require.NoError(t, err)
	assert.Empty(t, title)
	assert.Equal(t, "Heading\nFirst paragraph\none\ntwo\nFish & chips", text)
}

func TestExtract_Empty(t *testing.T) {
	title, text, err := Extract(nil)

	require.NoError(t, err)
	assert.Empty(t, title)
	assert.Empty(t, text)
}
