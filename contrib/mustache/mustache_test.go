package mustache

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/crowgo/crow/contrib/json"
)

func TestRenderSimpleVariable(t *testing.T) {
	tmpl := Compile("Hello, {{name}}!")
	ctx := json.NewObject().Set("name", "world")
	require.Equal(t, "Hello, world!", tmpl.Render(ctx))
}

func TestRenderEscapesHTMLByDefault(t *testing.T) {
	tmpl := Compile("{{name}}")
	ctx := json.NewObject().Set("name", "<b>bold</b>")
	require.Equal(t, "&lt;b&gt;bold&lt;/b&gt;", tmpl.Render(ctx))
}

func TestRenderUnescapedTripleMustache(t *testing.T) {
	tmpl := Compile("{{{name}}}")
	ctx := json.NewObject().Set("name", "<b>bold</b>")
	require.Equal(t, "<b>bold</b>", tmpl.Render(ctx))
}

func TestRenderSectionOverList(t *testing.T) {
	tmpl := Compile("{{#items}}[{{name}}]{{/items}}")
	items := json.NewList()
	items.Append(json.NewObject().Set("name", "a"))
	items.Append(json.NewObject().Set("name", "b"))
	ctx := json.NewObject().Set("items", items)
	require.Equal(t, "[a][b]", tmpl.Render(ctx))
}

func TestRenderInvertedSection(t *testing.T) {
	tmpl := Compile("{{^items}}empty{{/items}}")
	ctx := json.NewObject()
	require.Equal(t, "empty", tmpl.Render(ctx))

	ctx2 := json.NewObject().Set("items", json.NewList().Append(1))
	require.Equal(t, "", tmpl.Render(ctx2))
}

func TestRenderDottedPath(t *testing.T) {
	tmpl := Compile("{{user.name}}")
	ctx := json.NewObject().Set("user", json.NewObject().Set("name", "ada"))
	require.Equal(t, "ada", tmpl.Render(ctx))
}

func TestRenderCommentIsIgnored(t *testing.T) {
	tmpl := Compile("a{{! this is a comment }}b")
	require.Equal(t, "ab", tmpl.Render(json.NewObject()))
}

func TestCompilePanicsOnMismatchedClose(t *testing.T) {
	require.Panics(t, func() {
		Compile("{{#a}}x{{/b}}")
	})
}
