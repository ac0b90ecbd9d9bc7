package sink

import (
	"bytes"

	"github.com/matzehuels/reportflow/pkg/core/layout"
)

// RenderJSON exports the pages as the pretty-printed layout DSL. The output
// is accepted by [layout.DecodePages], so a saved layout can be validated or
// re-rendered later without the payload that produced it.
func RenderJSON(pages []layout.Page) ([]byte, error) {
	var buf bytes.Buffer
	if err := layout.EncodePages(&buf, pages); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
