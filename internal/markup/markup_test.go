package markup

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const taskDocument = `Intro line

{{task reference="Sandbox.Task_0" status=""}}Ping {{mention ref="U1"/}} {{date date="2024/01/01 00:00"/}}{{/task}}

Closing {{info/}} words`

func TestParse_XWiki(t *testing.T) {
	root, err := Parse(taskDocument, SyntaxXWiki)
	require.NoError(t, err)
	require.Len(t, root.Children, 3)

	assert.Equal(t, KindParagraph, root.Children[0].Kind)

	task := root.Children[1]
	assert.True(t, task.IsMacro("task"))
	assert.False(t, task.Inline)
	assert.Equal(t, "Sandbox.Task_0", task.Params.Value("reference"))
	v, ok := task.Params.Get("status")
	assert.True(t, ok)
	assert.Empty(t, v)
	assert.Equal(t, `Ping {{mention ref="U1"/}} {{date date="2024/01/01 00:00"/}}`, task.Content)

	closing := root.Children[2]
	require.Equal(t, KindParagraph, closing.Kind)
	require.Len(t, closing.Children, 3)
	assert.True(t, closing.Children[1].IsMacro("info"))
	assert.True(t, closing.Children[1].Inline)
}

func TestParse_XWikiRoundTrip(t *testing.T) {
	root, err := Parse(taskDocument, SyntaxXWiki)
	require.NoError(t, err)

	out, err := RenderTree(root, SyntaxXWiki)
	require.NoError(t, err)
	assert.Equal(t, taskDocument, out)
}

func TestParse_NestedSameName(t *testing.T) {
	src := `{{task reference="A.B"}}outer {{task reference="A.C"}}inner{{/task}} tail{{/task}}`

	root, err := Parse(src, SyntaxXWiki)
	require.NoError(t, err)
	require.Len(t, root.Children, 1)
	assert.Equal(t, `outer {{task reference="A.C"}}inner{{/task}} tail`, root.Children[0].Content)
}

func TestParse_Escapes(t *testing.T) {
	root, err := Parse(`literal ~{{ and {{m v="say ~"hi~""/}}`, SyntaxXWiki)
	require.NoError(t, err)

	para := root.Children[0]
	assert.Equal(t, "literal {{ and ", para.Children[0].Text)
	assert.Equal(t, `say "hi"`, para.Children[1].Params.Value("v"))

	out, err := RenderTree(root, SyntaxXWiki)
	require.NoError(t, err)
	again, err := Parse(out, SyntaxXWiki)
	require.NoError(t, err)
	assert.Equal(t, "literal {{ and ", again.Children[0].Children[0].Text)
}

func TestParse_Malformed(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{name: "unterminated tag", src: `text {{mention ref="U1"`},
		{name: "unclosed macro", src: `{{task}}never closed`},
		{name: "stray closing tag", src: `text {{/task}}`},
		{name: "unquoted value", src: `{{date date=2024/}}`},
		{name: "missing name", src: `{{ }}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.src, SyntaxXWiki)
			require.Error(t, err)
			var perr *ParseError
			assert.True(t, errors.As(err, &perr))
		})
	}
}

func TestParse_Plain(t *testing.T) {
	root, err := Parse("first {{not a macro}}\nsecond\n\nthird", SyntaxPlain)
	require.NoError(t, err)
	require.Len(t, root.Children, 2)
	assert.Equal(t, "first {{not a macro}}", root.Children[0].Children[0].Text)
	assert.Equal(t, KindNewLine, root.Children[0].Children[1].Kind)

	empty, err := Parse("  \n", SyntaxPlain)
	require.NoError(t, err)
	assert.Empty(t, empty.Children)
}

func TestUnknownSyntax(t *testing.T) {
	_, err := Parse("x", "confluence/1.0")
	assert.ErrorIs(t, err, ErrUnknownSyntax)

	_, err = Render([]*Block{NewText("x")}, "confluence/1.0")
	assert.ErrorIs(t, err, ErrUnknownSyntax)
}

func TestRender_Plain(t *testing.T) {
	root, err := Parse(taskDocument, SyntaxXWiki)
	require.NoError(t, err)

	out, err := RenderTree(root, SyntaxPlain)
	require.NoError(t, err)
	assert.Equal(t, "Intro line\n\nClosing  words", out)
}

func TestRender_HTML(t *testing.T) {
	root, err := Parse(`{{task reference="A.T" status="done"}}Ship **it** {{mention reference="U1"/}}{{/task}}

<script>alert(1)</script> plain`, SyntaxXWiki)
	require.NoError(t, err)

	out, err := RenderTree(root, SyntaxHTML)
	require.NoError(t, err)
	assert.Contains(t, out, "<del>Ship <strong>it</strong> <strong>@U1</strong></del>")
	assert.NotContains(t, out, "<script>")
}

func TestFindAndReplace(t *testing.T) {
	root, err := Parse(`{{task reference="A.One"}}a{{/task}}

para {{task reference="A.Two"/}}`, SyntaxXWiki)
	require.NoError(t, err)

	matches := FindMacros(root, "task")
	require.Len(t, matches, 2)
	assert.Equal(t, "A.One", matches[0].Block.Params.Value("reference"))
	assert.Equal(t, "A.Two", matches[1].Block.Params.Value("reference"))
	assert.Equal(t, 1, matches[1].Index)

	old := matches[1].Parent.Children
	ReplaceChild(matches[1].Parent, matches[1].Index, NewText("gone"))
	assert.True(t, old[1].IsMacro("task"), "previous child list is left untouched")
	assert.Equal(t, "gone", matches[1].Parent.Children[1].Text)

	RemoveChild(root, 0)
	assert.Nil(t, FirstMacro(root, "task"))
}

func TestParams_Set(t *testing.T) {
	var p Params
	p.Set("a", "1")
	p.Set("b", "2")
	p.Set("a", "3")

	assert.Equal(t, Params{{Key: "a", Value: "3"}, {Key: "b", Value: "2"}}, p)
}

func TestParams_Delete(t *testing.T) {
	p := Params{{Key: "a", Value: "1"}, {Key: "b", Value: "2"}, {Key: "c", Value: "3"}}
	orig := p.Clone()

	p.Delete("b")
	p.Delete("missing")

	assert.Equal(t, Params{{Key: "a", Value: "1"}, {Key: "c", Value: "3"}}, p)
	assert.Len(t, orig, 3)
}

func TestRenderHTML_FormatDate(t *testing.T) {
	blocks := []*Block{NewMacro("date", Params{{Key: "date", Value: "2024/01/01 00:00"}}, "", true)}

	out, err := RenderHTML(blocks, HTMLOptions{FormatDate: func(string) string { return "Jan 1" }})
	require.NoError(t, err)
	assert.Contains(t, out, "<em>Jan 1</em>")
}
