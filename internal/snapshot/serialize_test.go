package snapshot_test

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pagekeep/pagekeep/internal/snapshot"
)

func testContent() *snapshot.Content {
	return &snapshot.Content{
		Title:    "An Example Article",
		Byline:   "Jane Author",
		HTML:     "<p>Body with <a href=\"https://example.com\">a link</a> and some text.</p>",
		Text:     "Body with a link and some text.",
		Excerpt:  "Body with a link",
		SiteName: "Example",
		Length:   31,
		Language: "en",
	}
}

func TestSerialize_RoundTrip(t *testing.T) {
	t.Parallel()

	original := testContent()

	data, err := snapshot.Serialize(original)
	require.NoError(t, err)
	require.NotEmpty(t, data)

	restored, err := snapshot.Deserialize(data)
	require.NoError(t, err)
	assert.Equal(t, original, restored)
}

func TestSerialize_OutputIsGzip(t *testing.T) {
	t.Parallel()

	data, err := snapshot.Serialize(testContent())
	require.NoError(t, err)

	reader, err := gzip.NewReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer reader.Close()

	raw, err := io.ReadAll(reader)
	require.NoError(t, err)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(raw, &payload))

	// Wire field names must stay stable for stored snapshots.
	assert.Contains(t, payload, "content")
	assert.Contains(t, payload, "textContent")
	assert.Equal(t, "An Example Article", payload["title"])
}

func TestSerialize_NilContent(t *testing.T) {
	t.Parallel()

	_, err := snapshot.Serialize(nil)
	assert.Error(t, err)
}

func TestDeserialize_NotGzip(t *testing.T) {
	t.Parallel()

	_, err := snapshot.Deserialize([]byte("not gzip data"))
	assert.Error(t, err)
}

func TestDeserialize_GzipButNotJSON(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	writer := gzip.NewWriter(&buf)
	_, err := writer.Write([]byte("plain text, no json"))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	_, err = snapshot.Deserialize(buf.Bytes())
	assert.Error(t, err)
}

func TestSerialize_LargeBody(t *testing.T) {
	t.Parallel()

	original := testContent()
	original.HTML = "<p>" + strings.Repeat("lorem ipsum dolor sit amet ", 20000) + "</p>"
	original.Text = strings.Repeat("lorem ipsum dolor sit amet ", 20000)

	data, err := snapshot.Serialize(original)
	require.NoError(t, err)

	restored, err := snapshot.Deserialize(data)
	require.NoError(t, err)
	assert.Equal(t, original.HTML, restored.HTML)
}

func TestObjectPath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		prefix  string
		spaceID string
		saveID  string
		want    string
	}{
		{
			name:    "with prefix",
			prefix:  "snapshots",
			spaceID: "space-1",
			saveID:  "save-9",
			want:    "snapshots/space-1/save-9/latest.json.gz",
		},
		{
			name:    "empty prefix",
			prefix:  "",
			spaceID: "space-1",
			saveID:  "save-9",
			want:    "space-1/save-9/latest.json.gz",
		},
		{
			name:    "prefix with trailing slash",
			prefix:  "archive/",
			spaceID: "a",
			saveID:  "b",
			want:    "archive/a/b/latest.json.gz",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, snapshot.ObjectPath(tt.prefix, tt.spaceID, tt.saveID))
		})
	}
}
