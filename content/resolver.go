// Package content classifies raw message payloads into their displayable
// parts. Payloads arrive as plain strings, structured objects, or objects
// re-encoded as JSON strings (an observed server behaviour, sometimes
// stacked); Resolve handles all three.
package content

import (
	"encoding/json"
	"strings"
)

// FileKind buckets an attachment by mime-type prefix.
type FileKind string

const (
	KindImage   FileKind = "image"
	KindVideo   FileKind = "video"
	KindAudio   FileKind = "audio"
	KindGeneric FileKind = "generic"
)

// maxUnwrap caps how many layers of string re-encoding get peeled before
// the payload is treated as literal text.
const maxUnwrap = 3

// ParsedContent is the derived view of a message payload. It is computed
// on demand and never cached, so edits are always reflected.
type ParsedContent struct {
	Text string

	IsFile   bool
	FileName string
	FileURL  string
	FileKind FileKind
	FileSize int64

	IsTheme   bool
	ThemeName string

	IsForwarded   bool
	ForwardedFrom string
}

type rawContent struct {
	Text          json.RawMessage `json:"text"`
	File          json.RawMessage `json:"file"`
	Theme         json.RawMessage `json:"theme"`
	ForwardedInfo json.RawMessage `json:"forwardedInfo"`
}

type rawFile struct {
	Name string `json:"name"`
	URL  string `json:"url"`
	Type string `json:"type"`
	Size int64  `json:"size"`
}

// Resolve turns a raw content payload into a ParsedContent. It never
// fails: anything unparseable degrades to literal text.
func Resolve(raw json.RawMessage) ParsedContent {
	return resolve(raw, 0)
}

func resolve(raw json.RawMessage, depth int) ParsedContent {
	var pc ParsedContent

	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return pc
	}

	// A JSON string either carries literal text or one more layer of
	// encoded object.
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		inner := strings.TrimSpace(s)
		if strings.HasPrefix(inner, "{") && depth < maxUnwrap && json.Valid([]byte(inner)) {
			return resolve(json.RawMessage(inner), depth+1)
		}
		pc.Text = s
		return pc
	}

	var obj rawContent
	if err := json.Unmarshal(raw, &obj); err != nil {
		// Not a string, not an object: keep the literal form.
		pc.Text = trimmed
		return pc
	}

	pc.Text = textOf(obj.Text)

	if present(obj.File) {
		pc.IsFile = true
		pc.FileKind = KindGeneric
		if f, ok := decodeFile(obj.File); ok {
			pc.FileName = f.Name
			pc.FileURL = f.URL
			pc.FileSize = f.Size
			pc.FileKind = classify(f.Type)
		}
	}

	if present(obj.Theme) {
		pc.IsTheme = true
		var theme struct {
			Name string `json:"name"`
		}
		if err := json.Unmarshal(obj.Theme, &theme); err == nil {
			pc.ThemeName = theme.Name
		}
	}

	if present(obj.ForwardedInfo) {
		var fwd struct {
			From string `json:"from"`
		}
		if err := json.Unmarshal(obj.ForwardedInfo, &fwd); err == nil {
			pc.IsForwarded = true
			pc.ForwardedFrom = fwd.From
		}
	}

	return pc
}

// decodeFile parses a file sub-object, tolerating the same string
// re-encoding as the outer payload.
func decodeFile(raw json.RawMessage) (rawFile, bool) {
	var f rawFile
	if err := json.Unmarshal(raw, &f); err == nil {
		return f, true
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if err := json.Unmarshal([]byte(s), &f); err == nil {
			return f, true
		}
	}
	return rawFile{}, false
}

func textOf(raw json.RawMessage) string {
	if !present(raw) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	// Non-string text value: keep its literal JSON form.
	return strings.TrimSpace(string(raw))
}

func classify(mimeType string) FileKind {
	t := strings.ToLower(mimeType)
	switch {
	case strings.HasPrefix(t, "image"):
		return KindImage
	case strings.HasPrefix(t, "video"):
		return KindVideo
	case strings.HasPrefix(t, "audio"):
		return KindAudio
	default:
		return KindGeneric
	}
}

func present(raw json.RawMessage) bool {
	trimmed := strings.TrimSpace(string(raw))
	return trimmed != "" && trimmed != "null"
}
