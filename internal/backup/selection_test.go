package backup_test

import (
	"testing"

	"github.com/flarebyte/tracker-snapshot/internal/backup"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSelection(t *testing.T) {
	cases := []struct {
		in      string
		match   []string
		noMatch []string
		str     string
	}{
		{in: "", match: []string{"1", "999"}, str: "all"},
		{in: "all", match: []string{"1"}, str: "all"},
		{in: "5,7", match: []string{"5", "7"}, noMatch: []string{"6", "x", "-5"}, str: "5,7"},
		{in: "3-9", match: []string{"3", "6", "9"}, noMatch: []string{"2", "10"}, str: "3-9"},
		{in: " 12, 1-2 ", match: []string{"1", "2", "12"}, noMatch: []string{"3"}, str: "12,1-2"},
	}
	for _, c := range cases {
		sel, err := backup.ParseSelection(c.in)
		require.NoError(t, err, c.in)
		for _, id := range c.match {
			assert.True(t, sel.Matches(id), "%q should match %s", c.in, id)
		}
		for _, id := range c.noMatch {
			assert.False(t, sel.Matches(id), "%q should not match %s", c.in, id)
		}
		assert.Equal(t, c.str, sel.String())
	}
}

func TestParseSelectionIgnoresUnreadableMembers(t *testing.T) {
	cases := []struct {
		in      string
		match   []string
		ignored []string
	}{
		{in: "5,99999999999999999999", match: []string{"5"}, ignored: []string{"99999999999999999999"}},
		{in: "5,-3", match: []string{"5"}, ignored: []string{"-3"}},
		{in: "5,abc", match: []string{"5"}, ignored: []string{"abc"}},
		{in: "9-3,1-,1-2-3,4", match: []string{"4"}, ignored: []string{"9-3", "1-", "1-2-3"}},
	}
	for _, c := range cases {
		sel, err := backup.ParseSelection(c.in)
		require.NoError(t, err, c.in)
		for _, id := range c.match {
			assert.True(t, sel.Matches(id), "%q should match %s", c.in, id)
		}
		assert.False(t, sel.Matches("3"), c.in)
		assert.Equal(t, c.ignored, sel.Ignored(), c.in)
	}
}

func TestParseSelectionWithOnlyUnreadableMembersMatchesNothing(t *testing.T) {
	sel, err := backup.ParseSelection("-1")
	require.NoError(t, err)
	assert.False(t, sel.All())
	assert.False(t, sel.Matches("1"))
	assert.Equal(t, "none", sel.String())
}

func TestParseSelectionWithoutMembers(t *testing.T) {
	for _, in := range []string{",", " , ,"} {
		_, err := backup.ParseSelection(in)
		assert.Error(t, err, in)
	}
}
