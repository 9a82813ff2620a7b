package backup

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetTopLevelFieldKeepsOtherBytes(t *testing.T) {
	in := []byte(`{"url":"https://x/labels/bug","name":"bug","color":"ff0000","nested":{"name":"keep"}}`)
	out, err := setTopLevelField(in, "name", `bug (restored "bug")`)
	require.NoError(t, err)
	assert.Equal(t, `{"url":"https://x/labels/bug","name":"bug (restored \"bug\")","color":"ff0000","nested":{"name":"keep"}}`, string(out))
}

func TestSetTopLevelFieldAppendsMissingField(t *testing.T) {
	out, err := setTopLevelField([]byte(`{"color":"ff0000"}`), "name", "docs")
	require.NoError(t, err)
	assert.Equal(t, `{"color":"ff0000","name":"docs"}`, string(out))

	out, err = setTopLevelField([]byte("{ }\n"), "title", "v1")
	require.NoError(t, err)
	assert.Equal(t, "{\"title\":\"v1\"}\n", string(out))
}

func TestSetTopLevelFieldRejectsNonObjects(t *testing.T) {
	for _, in := range []string{`[1,2]`, `"name"`, `{"name":`} {
		_, err := setTopLevelField([]byte(in), "name", "x")
		assert.Error(t, err, in)
	}
}
