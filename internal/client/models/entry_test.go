package models

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDetectContentType(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    ContentType
	}{
		{"plain prose", "remember to buy milk", ContentTypeText},
		{"empty", "", ContentTypeText},
		{"whitespace only", "   \n  ", ContentTypeText},
		{"https url", "https://example.com/a/b?q=1", ContentTypeURL},
		{"http url", "http://example.com", ContentTypeURL},
		{"url with surrounding spaces", "  https://example.com  ", ContentTypeURL},
		{"url mentioned inside prose", "see https://example.com for details", ContentTypeText},
		{"schemeless host is not a url", "example.com/path", ContentTypeText},
		{"go function", "func main() {\n\tprintln(\"hi\")\n}", ContentTypeCode},
		{"python def", "def handler(event):\n    return 1", ContentTypeCode},
		{"sql query", "SELECT id FROM entries WHERE user_id = $1", ContentTypeCode},
		{"json blob", `{"key": "value"}`, ContentTypeCode},
		{"html fragment", "<div></div>", ContentTypeCode},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, DetectContentType(tt.content))
		})
	}
}

func TestContentTypeValid(t *testing.T) {
	for _, ct := range []ContentType{ContentTypeText, ContentTypeCode, ContentTypeURL, ContentTypeOther} {
		require.True(t, ct.Valid())
	}
	require.False(t, ContentType("image").Valid())
	require.False(t, ContentType("").Valid())
}
