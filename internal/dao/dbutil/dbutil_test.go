package dbutil

import (
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParamSummary(t *testing.T) {
	var nilStr *string
	name := "alice"
	cases := []struct {
		in   any
		want string
	}{
		{nil, "p=null"},
		{nilStr, "p=null"},
		{"", "p=empty"},
		{"secret", "p=len=6"},
		{&name, "p=len=5"},
		{[]byte(`{"a":1}`), "p=len=7"},
		{42, "p=42"},
		{true, "p=true"},
		{1.5, "p=1.5"},
		{time.Time{}, "p=zero-time"},
		{time.Now(), "p=non-zero-time"},
		{sql.NullString{}, "p=null"},
		{sql.NullString{String: "x", Valid: true}, "p=len=1"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, ParamSummary("p", c.in))
	}
}

func TestErrWrap(t *testing.T) {
	require.NoError(t, ErrWrap("op", nil))
	base := errors.New("boom")
	err := ErrWrap("archive.write", base, ParamSummary("type", "labels"))
	require.ErrorIs(t, err, base)
	assert.Equal(t, "archive.write: boom; type=len=6", err.Error())
	assert.Equal(t, "op: boom", ErrWrap("op", base).Error())
}
