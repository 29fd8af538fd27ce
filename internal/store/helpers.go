package store

import (
	"encoding/binary"
	"encoding/json"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
)

// newID mints an opaque entry/observation id.
func newID() string {
	return uuid.NewString()
}

// nowMillis returns the current time as epoch milliseconds.
func nowMillis() int64 {
	return time.Now().UTC().UnixMilli()
}

// encodeVector serializes a float32 slice as the little-endian byte blob
// stored in the embedding column.
func encodeVector(v []float32) []byte {
	if len(v) == 0 {
		return nil
	}
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// decodeVector is the inverse of encodeVector.
func decodeVector(b []byte) []float32 {
	if len(b) == 0 {
		return nil
	}
	out := make([]float32, len(b)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return out
}

// encodeTags, encodeMetadata and encodeRefs marshal tags/metadata/references to their JSON-text column
// representation; a nil/empty value encodes as an empty-array/object
// literal so scans never see SQL NULL for these columns.
func encodeTags(tags []string) string {
	if tags == nil {
		tags = []string{}
	}
	b, _ := json.Marshal(tags)
	return string(b)
}

func decodeTags(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	_ = json.Unmarshal([]byte(s), &out)
	return out
}

func encodeMetadata(m map[string]any) string {
	if m == nil {
		m = map[string]any{}
	}
	b, _ := json.Marshal(m)
	return string(b)
}

func decodeMetadata(s string) map[string]any {
	if s == "" {
		return nil
	}
	var out map[string]any
	_ = json.Unmarshal([]byte(s), &out)
	return out
}

func encodeRefs(refs []string) string {
	if refs == nil {
		refs = []string{}
	}
	b, _ := json.Marshal(refs)
	return string(b)
}

func decodeRefs(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	_ = json.Unmarshal([]byte(s), &out)
	return out
}

// sanitizeFTS wraps each word in double quotes so user text can never be
// parsed as FTS5 MATCH syntax.
func sanitizeFTS(query string) string {
	words := strings.Fields(query)
	for i, w := range words {
		w = strings.Trim(w, `"`)
		if w == "" {
			continue
		}
		words[i] = `"` + w + `"`
	}
	return strings.Join(words, " ")
}

// containsAllTags reports whether entryTags contains every tag in want.
func containsAllTags(entryTags, want []string) bool {
	if len(want) == 0 {
		return true
	}
	have := make(map[string]bool, len(entryTags))
	for _, t := range entryTags {
		have[t] = true
	}
	for _, w := range want {
		if !have[w] {
			return false
		}
	}
	return true
}
