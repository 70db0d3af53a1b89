package content

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolvePlainObject(t *testing.T) {
	pc := Resolve(json.RawMessage(`{"text":"hi"}`))
	assert.Equal(t, "hi", pc.Text)
	assert.False(t, pc.IsFile)
	assert.False(t, pc.IsTheme)
	assert.False(t, pc.IsForwarded)
}

func TestResolveLiteralString(t *testing.T) {
	pc := Resolve(json.RawMessage(`"just words"`))
	assert.Equal(t, "just words", pc.Text)
	assert.False(t, pc.IsFile)
}

func TestResolveNull(t *testing.T) {
	assert.Equal(t, ParsedContent{}, Resolve(nil))
	assert.Equal(t, ParsedContent{}, Resolve(json.RawMessage(`null`)))
}

func TestResolveStringEncodedObject(t *testing.T) {
	// The payload is a JSON string whose value is itself an encoded
	// object; it must resolve identically to the unwrapped form.
	wrapped := Resolve(json.RawMessage(`"{\"text\":\"hi\"}"`))
	plain := Resolve(json.RawMessage(`{"text":"hi"}`))
	assert.Equal(t, plain, wrapped)
}

func TestResolveDoubleEncodedObject(t *testing.T) {
	inner := `{"text":"deep"}`
	once, err := json.Marshal(inner)
	assert.NoError(t, err)
	twice, err := json.Marshal(string(once))
	assert.NoError(t, err)

	pc := Resolve(twice)
	assert.Equal(t, "deep", pc.Text)
}

func TestResolveDepthCap(t *testing.T) {
	payload := json.RawMessage(`{"text":"bottom"}`)
	for i := 0; i < maxUnwrap+2; i++ {
		wrapped, err := json.Marshal(string(payload))
		assert.NoError(t, err)
		payload = wrapped
	}

	// Past the cap the remaining string is literal text, not an object.
	pc := Resolve(payload)
	assert.False(t, pc.IsFile)
	assert.Contains(t, pc.Text, "text")
}

func TestResolveBrokenBraceString(t *testing.T) {
	pc := Resolve(json.RawMessage(`"{not json at all"`))
	assert.Equal(t, "{not json at all", pc.Text)
}

func TestResolveFileKinds(t *testing.T) {
	cases := []struct {
		mime string
		kind FileKind
	}{
		{"image/png", KindImage},
		{"video/mp4", KindVideo},
		{"audio/ogg", KindAudio},
		{"application/pdf", KindGeneric},
		{"", KindGeneric},
	}
	for _, tc := range cases {
		raw, err := json.Marshal(map[string]any{
			"text": "",
			"file": map[string]any{"name": "f", "url": "/u/f", "type": tc.mime, "size": 42},
		})
		assert.NoError(t, err)
		pc := Resolve(raw)
		assert.True(t, pc.IsFile)
		assert.Equal(t, tc.kind, pc.FileKind, "mime %q", tc.mime)
		assert.Equal(t, int64(42), pc.FileSize)
	}
}

func TestResolveStringEncodedFile(t *testing.T) {
	pc := Resolve(json.RawMessage(`{"text":"caption","file":"{\"name\":\"pic\",\"url\":\"/f/pic\",\"type\":\"image/jpeg\"}"}`))
	assert.True(t, pc.IsFile)
	assert.Equal(t, "pic", pc.FileName)
	assert.Equal(t, "/f/pic", pc.FileURL)
	assert.Equal(t, KindImage, pc.FileKind)
	assert.Equal(t, "caption", pc.Text)
}

func TestResolveUnparsableFileStillMarksFile(t *testing.T) {
	pc := Resolve(json.RawMessage(`{"file":"garbage"}`))
	assert.True(t, pc.IsFile)
	assert.Equal(t, KindGeneric, pc.FileKind)
	assert.Empty(t, pc.FileName)
}

func TestResolveTheme(t *testing.T) {
	pc := Resolve(json.RawMessage(`{"text":"","theme":{"name":"midnight"}}`))
	assert.True(t, pc.IsTheme)
	assert.Equal(t, "midnight", pc.ThemeName)
}

func TestResolveForwardedWithFileAndCaption(t *testing.T) {
	pc := Resolve(json.RawMessage(`{
		"text":"look at this",
		"file":{"name":"dog.png","url":"/f/dog.png","type":"image/png"},
		"forwardedInfo":{"from":"bob","originalTs":1700000000}
	}`))
	assert.True(t, pc.IsFile)
	assert.True(t, pc.IsForwarded)
	assert.Equal(t, "bob", pc.ForwardedFrom)
	assert.Equal(t, "look at this", pc.Text)
}

func TestResolveNonStringTextValue(t *testing.T) {
	pc := Resolve(json.RawMessage(`{"text":42}`))
	assert.Equal(t, "42", pc.Text)
}

func TestResolveBareNumber(t *testing.T) {
	pc := Resolve(json.RawMessage(`17`))
	assert.Equal(t, "17", pc.Text)
}
