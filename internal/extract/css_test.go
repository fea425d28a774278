package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"build-watcher/internal/engine"
)

func TestCSSRules(t *testing.T) {
	src := `
/* header */
@charset "utf-8";
.a, .b { color: red; }
@media (max-width: 100px) { .c { color: blue; } }
.d { margin: 0; color: green; margin: 4px; }
.e { top: 0 !important; }
`
	rules, err := CSSRules([]byte(src))
	require.NoError(t, err)
	assert.Equal(t, []string{".a", ".b", ".d", ".e"}, rules.Keys())

	for _, sel := range []string{".a", ".b"} {
		decls, ok := rules.Get(sel)
		require.True(t, ok, sel)
		assert.Equal(t, []string{"color"}, decls.Keys())
		v, _ := decls.Get("color")
		assert.Equal(t, "red", v)
	}

	d, _ := rules.Get(".d")
	assert.Equal(t, []string{"margin", "color"}, d.Keys())
	margin, _ := d.Get("margin")
	assert.Equal(t, "4px", margin)

	e, _ := rules.Get(".e")
	top, _ := e.Get("top")
	assert.Equal(t, "0 !important", top)
}

func TestCSSRules_SelectorsAreIndependent(t *testing.T) {
	rules, err := CSSRules([]byte(`.a, .b { color: red; }`))
	require.NoError(t, err)

	a, _ := rules.Get(".a")
	a.Set("color", "blue")
	b, _ := rules.Get(".b")
	v, _ := b.Get("color")
	assert.Equal(t, "red", v)
}

func TestCSSRules_Empty(t *testing.T) {
	rules, err := CSSRules(nil)
	require.NoError(t, err)
	assert.Equal(t, 0, rules.Len())
}

func TestCSSRules_NestedCommas(t *testing.T) {
	src := `.x:not(.a, .b) { color: red; } [title="a,b"], .y:is(.c,.d) > p { top: 0; }`
	rules, err := CSSRules([]byte(src))
	require.NoError(t, err)
	assert.Equal(t, []string{".x:not(.a, .b)", `[title="a,b"]`, ".y:is(.c,.d) > p"}, rules.Keys())
}

func TestSelectors(t *testing.T) {
	tests := []struct {
		prelude string
		want    []string
	}{
		{".a", []string{".a"}},
		{" .a ,  .b ", []string{".a", ".b"}},
		{".a,,", []string{".a"}},
		{":where(.a, :not(.b, .c)), .d", []string{":where(.a, :not(.b, .c))", ".d"}},
		{`[data-x='1,2'], .e`, []string{`[data-x='1,2']`, ".e"}},
		{`.f\,g, .h`, []string{`.f\,g`, ".h"}},
	}

	for _, tt := range tests {
		t.Run(tt.prelude, func(t *testing.T) {
			assert.Equal(t, tt.want, selectors(tt.prelude))
		})
	}
}

func TestCSSRules_Malformed(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"stray closing brace", `} .a { color: red; }`},
		{"block without selector", `{ color: red; }`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := CSSRules([]byte(tt.src))
			assert.ErrorIs(t, err, engine.ErrMalformedAsset)
		})
	}
}

func TestCSSRules_UnterminatedBlockIsAccepted(t *testing.T) {
	rules, err := CSSRules([]byte(`.a { color: red`))
	require.NoError(t, err)
	a, ok := rules.Get(".a")
	require.True(t, ok)
	// The property survives; its unterminated value does not.
	assert.Equal(t, []string{"color"}, a.Keys())
	v, _ := a.Get("color")
	assert.Empty(t, v)
}
