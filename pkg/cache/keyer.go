package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// Keyer builds cache keys.
type Keyer interface {
	// ResultKey returns the key of a pipeline result for the given payload
	// hash and run options.
	ResultKey(payloadHash string, opts ResultKeyOpts) string

	// ArtifactKey returns the key of a rendered artifact for the given
	// layout hash.
	ArtifactKey(layoutHash string, opts ArtifactKeyOpts) string
}

// ResultKeyOpts holds every pipeline input besides the payload.
type ResultKeyOpts struct {
	Engine       string `json:"engine"`
	Intent       string `json:"intent"`
	PageSize     string `json:"page_size"`
	VariantIndex int    `json:"variant_index"`
	StylePreset  string `json:"style_preset"`
}

// ArtifactKeyOpts holds the render options of an artifact.
type ArtifactKeyOpts struct {
	Format string  `json:"format"`
	Scale  float64 `json:"scale,omitempty"`
}

// DefaultKeyer hashes key components into fixed-length keys of the form
// <Prefix><kind>:<sha256>. A prefix lets several deployments share one Redis
// instance without reading each other's entries.
type DefaultKeyer struct {
	Prefix string
}

// NewDefaultKeyer returns a DefaultKeyer without a prefix.
func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

// NewPrefixedKeyer returns a DefaultKeyer whose keys start with prefix.
func NewPrefixedKeyer(prefix string) Keyer { return DefaultKeyer{Prefix: prefix} }

// ResultKey implements Keyer.
func (k DefaultKeyer) ResultKey(payloadHash string, opts ResultKeyOpts) string {
	return k.key("result", payloadHash, opts)
}

// ArtifactKey implements Keyer.
func (k DefaultKeyer) ArtifactKey(layoutHash string, opts ArtifactKeyOpts) string {
	return k.key("artifact", layoutHash, opts)
}

func (k DefaultKeyer) key(kind, hash string, opts any) string {
	// Options are flat structs of strings and numbers; Marshal cannot fail.
	b, _ := json.Marshal(opts)
	return k.Prefix + kind + ":" + Hash(append([]byte(hash+"\x00"), b...))
}

// Patterns returns Redis glob patterns that match every key a keyer with
// prefix produces, and nothing else.
func Patterns(prefix string) []string {
	return []string{prefix + "result:*", prefix + "artifact:*"}
}

// Hash returns the hex SHA-256 of data (64 characters).
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
