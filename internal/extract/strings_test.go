package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"build-watcher/internal/engine"
)

const chunk = `(window.webpackJsonp=window.webpackJsonp||[]).push([[1],[
function(e,t,n){"use strict";t.a=1},
function(e,t){e.exports={FOO:"not it"}},
function(e,t){throw new Error("wrong context")},
function(e,t){e.exports=Object.freeze({INTERACTION_REQUIRED_TITLE:"Interaction required","HELLO":"Hello",COUNT:3,WHO:function(){return "x"}})},
function(e,t,n){var r=n(1);e.exports={INTERACTION_REQUIRED_TITLE:"second"}},
,
function(e,t){e.exports=JSON.parse('{"INTERACTION_REQUIRED_TITLE":"third","ZED":"Z","N":null}')}
]]);`

const marker = "INTERACTION_REQUIRED_TITLE"

func TestStringTable_FirstMatchAfterSkip(t *testing.T) {
	tests := []struct {
		name      string
		skip      int
		wantTitle string
		wantKeys  []string
	}{
		{"no skip", 0, "Interaction required", []string{marker, "HELLO"}},
		{"negative skip", -5, "Interaction required", []string{marker, "HELLO"}},
		{"skip past first match", 4, "second", []string{marker}},
		{"json parse module", 5, "third", []string{marker, "ZED"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tbl, err := StringTable([]byte(chunk), tt.skip, marker)
			require.NoError(t, err)
			title, ok := tbl.Get(marker)
			assert.True(t, ok)
			assert.Equal(t, tt.wantTitle, title)
			assert.Equal(t, tt.wantKeys, tbl.Keys())
		})
	}
}

func TestStringTable_NotFound(t *testing.T) {
	_, err := StringTable([]byte(chunk), 7, marker)
	assert.ErrorIs(t, err, engine.ErrExtractionNotFound)

	_, err = StringTable([]byte(chunk), 0, "NO_SUCH_KEY")
	assert.ErrorIs(t, err, engine.ErrExtractionNotFound)

	_, err = StringTable([]byte(`var a = 1;`), 0, marker)
	assert.ErrorIs(t, err, engine.ErrExtractionNotFound)
}

func TestStringTable_Malformed(t *testing.T) {
	_, err := StringTable([]byte(`(window.webpackJsonp=[]).push([[1],[function(e){e.exports={`), 0, marker)
	assert.ErrorIs(t, err, engine.ErrMalformedAsset)
}

func TestStringTable_NotExecuted(t *testing.T) {
	// A module with side effects is only inspected.
	src := `self.webpackJsonp.push([[0],[function(e){while(true){}},function(e){e.exports={` + marker + `:"ok"}}]]);`
	tbl, err := StringTable([]byte(src), 0, marker)
	require.NoError(t, err)
	assert.Equal(t, 1, tbl.Len())
}

func TestStringTable_ArrowModules(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"block body", `self.webpackJsonp.push([[0],[(e)=>{e.exports={` + marker + `:"arrow"}}]]);`},
		{"expression body", `self.webpackJsonp.push([[0],[e=>e.exports={` + marker + `:"arrow"}]]);`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tbl, err := StringTable([]byte(tt.src), 0, marker)
			require.NoError(t, err)
			title, _ := tbl.Get(marker)
			assert.Equal(t, "arrow", title)
		})
	}
}

func TestStringTable_TemplateValues(t *testing.T) {
	src := "self.webpackJsonp.push([[0],[function(e){e.exports={" + marker +
		":\"x\",GREETING:`hello`,TAGGED:t`no`,SUBST:`a${b}c`}}]]);"
	tbl, err := StringTable([]byte(src), 0, marker)
	require.NoError(t, err)
	assert.Equal(t, []string{marker, "GREETING"}, tbl.Keys())
	greeting, _ := tbl.Get("GREETING")
	assert.Equal(t, "hello", greeting)
}
