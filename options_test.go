package modpack

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseOptionsEmpty(t *testing.T) {
	opts := ParseOptions("")
	require.False(t, opts.Has("sign", false))
	require.True(t, opts.Has("song", true))
}

func TestParseOptionsBooleans(t *testing.T) {
	opts := ParseOptions("sign,-song,samples")
	require.True(t, opts.Has("sign", false))
	require.False(t, opts.Has("song", true))
	require.True(t, opts.Has("samples", false))
}

func TestParseOptionsRange(t *testing.T) {
	opts := ParseOptions("4bit[1-4:8-12]")
	require.True(t, opts.HasRange("4bit"))
	require.True(t, opts.InRange("4bit", 1))
	require.True(t, opts.InRange("4bit", 4))
	require.False(t, opts.InRange("4bit", 5))
	require.True(t, opts.InRange("4bit", 8))
	require.True(t, opts.InRange("4bit", 12))
	require.False(t, opts.InRange("4bit", 13))
}

func TestParseOptionsMalformedRangeIsEmpty(t *testing.T) {
	opts := ParseOptions("4bit[abc]")
	require.True(t, opts.HasRange("4bit"))
	require.False(t, opts.InRange("4bit", 1))
}

func TestParseOptionsNeverFails(t *testing.T) {
	require.NotPanics(t, func() {
		ParseOptions(",,,-[][1-,abc-,,--x[1")
	})
}

func TestParseOptionsUnmentionedNameUsesDefault(t *testing.T) {
	opts := ParseOptions("sign")
	require.True(t, opts.Has("unmentioned", true))
	require.False(t, opts.Has("unmentioned", false))
}

func TestNilOptionSet(t *testing.T) {
	var opts *OptionSet
	require.True(t, opts.Has("anything", true))
	require.False(t, opts.HasRange("anything"))
	require.False(t, opts.InRange("anything", 1))
}
