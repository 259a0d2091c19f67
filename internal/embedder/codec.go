package embedder

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/cespare/xxhash/v2"
)

// CacheKey returns the cache key for text embedded by model:
// emb:<model>:<xxhash64 hex>
func CacheKey(model, text string) string {
	return fmt.Sprintf("emb:%s:%016x", model, xxhash.Sum64String(text))
}

// EncodeVector serializes v as little-endian float32 bytes
func EncodeVector(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}

// DecodeVector parses the output of EncodeVector. It fails unless the data
// holds exactly dimension values.
func DecodeVector(data string, dimension int) ([]float32, error) {
	if len(data) != dimension*4 {
		return nil, fmt.Errorf("encoded vector is %d bytes, want %d", len(data), dimension*4)
	}
	v := make([]float32, dimension)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32([]byte(data[i*4 : i*4+4])))
	}
	return v, nil
}
