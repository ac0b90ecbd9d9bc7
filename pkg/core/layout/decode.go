package layout

import (
	"bytes"
	"encoding/json"
	"io"
	"strings"

	"github.com/matzehuels/reportflow/pkg/errors"
)

// legacyBackgroundMarker is the id fragment older producers used instead of
// a role.
const legacyBackgroundMarker = "-bg-"

// DecodePages reads a layout from JSON. Nodes without a role become content
// nodes, except nodes whose id carries the legacy background marker, which
// become background nodes.
func DecodePages(r io.Reader) ([]Page, error) {
	var pages []Page
	dec := json.NewDecoder(r)
	if err := dec.Decode(&pages); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "decode layout")
	}
	MigrateRoles(pages)
	return pages, nil
}

// DecodePagesBytes is DecodePages for an in-memory document.
func DecodePagesBytes(data []byte) ([]Page, error) {
	return DecodePages(bytes.NewReader(data))
}

// MigrateRoles fills in missing roles in place.
func MigrateRoles(pages []Page) {
	for pi := range pages {
		for ni := range pages[pi].Nodes {
			n := &pages[pi].Nodes[ni]
			switch {
			case n.Role != "":
			case strings.Contains(n.ID, legacyBackgroundMarker):
				n.Role = RoleBackground
			default:
				n.Role = RoleContent
			}
		}
	}
}

// EncodePages writes pages as indented JSON.
func EncodePages(w io.Writer, pages []Page) error {
	if pages == nil {
		pages = []Page{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(pages)
}
