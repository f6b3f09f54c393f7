package config

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const sample = `; top comment
general_key=1

[media]
max_nack_queue=300
rfc4588=true
# a comment
[certificates]
cert_pem=/etc/gw/cert.pem
`

func TestParseINI(t *testing.T) {
	doc, err := ParseINI(strings.NewReader(sample))
	require.NoError(t, err)

	require.True(t, doc.HasCategory("general"))
	require.True(t, doc.HasCategory("media"))
	require.True(t, doc.HasCategory("certificates"))

	v, ok := doc.Category("media").Get("max_nack_queue")
	require.True(t, ok)
	require.Equal(t, "300", v)

	v, ok = doc.Category("general").Get("general_key")
	require.True(t, ok)
	require.Equal(t, "1", v)
}

func TestRoundTrip(t *testing.T) {
	doc, err := ParseINI(strings.NewReader(sample))
	require.NoError(t, err)

	dumped := Dump(doc)
	reparsed, err := ParseINI(strings.NewReader(dumped))
	require.NoError(t, err)

	require.Equal(t, doc.Categories(), reparsed.Categories())
	v1, _ := doc.Category("media").Get("rfc4588")
	v2, _ := reparsed.Category("media").Get("rfc4588")
	require.Equal(t, v1, v2)
}

func TestCategoryRemove(t *testing.T) {
	doc := NewDocument()
	doc.Category("media").Set("a", "1")
	require.True(t, doc.HasCategory("media"))

	doc.RemoveCategory("media")
	require.False(t, doc.HasCategory("media"))
}

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()
	require.True(t, opts.RFC4588)
	require.Equal(t, 300, opts.MaxNACKQueue)
}
