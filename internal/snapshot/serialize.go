package snapshot

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
)

// maxSerializedBytes bounds how much decompressed snapshot data Deserialize
// will read. Stored snapshots are produced by this package and stay well
// under this; the cap guards against corrupted or hostile objects.
const maxSerializedBytes = 32 * 1024 * 1024 // 32 MB

// Serialize encodes content as gzip-compressed UTF-8 JSON, the on-disk
// format for stored snapshots.
func Serialize(content *Content) ([]byte, error) {
	if content == nil {
		return nil, fmt.Errorf("serialize: nil content")
	}

	var buf bytes.Buffer

	gz := gzip.NewWriter(&buf)
	if err := json.NewEncoder(gz).Encode(content); err != nil {
		return nil, fmt.Errorf("serialize: encode: %w", err)
	}

	if err := gz.Close(); err != nil {
		return nil, fmt.Errorf("serialize: close gzip: %w", err)
	}

	return buf.Bytes(), nil
}

// Deserialize decodes data produced by Serialize. Serialize and Deserialize
// are exact inverses for any valid Content.
func Deserialize(data []byte) (*Content, error) {
	gz, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("deserialize: open gzip: %w", err)
	}
	defer gz.Close()

	var content Content
	if err := json.NewDecoder(io.LimitReader(gz, maxSerializedBytes)).Decode(&content); err != nil {
		return nil, fmt.Errorf("deserialize: decode: %w", err)
	}

	return &content, nil
}
