package pipeline

import (
	"encoding/json"
	"io"
	"os"

	"github.com/matzehuels/reportflow/pkg/core/content"
	"github.com/matzehuels/reportflow/pkg/core/layout"
	"github.com/matzehuels/reportflow/pkg/errors"
)

// ParsePayloadFile reads a JSON or YAML payload from path. A path of "-"
// reads standard input.
func ParsePayloadFile(path string) (content.Payload, error) {
	r, closeFn, err := open(path)
	if err != nil {
		return content.Payload{}, err
	}
	defer closeFn()
	return content.DecodePayload(r)
}

// ParseLayoutFile reads a layout document. Both a bare page list and a
// serialized [Result] are accepted; for a result the layout pages are
// returned.
func ParseLayoutFile(path string) ([]layout.Page, error) {
	r, closeFn, err := open(path)
	if err != nil {
		return nil, err
	}
	defer closeFn()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "read %s", path)
	}
	return ParseLayout(data)
}

// ParseLayout decodes a page list or a serialized Result.
func ParseLayout(data []byte) ([]layout.Page, error) {
	var probe struct {
		OK     *bool           `json:"ok"`
		Layout json.RawMessage `json:"layout"`
	}
	if err := json.Unmarshal(data, &probe); err == nil && probe.OK != nil {
		if len(probe.Layout) == 0 {
			return nil, errors.New(errors.ErrCodeInvalidInput, "result has no layout (ok=%t)", *probe.OK)
		}
		return layout.DecodePagesBytes(probe.Layout)
	}
	return layout.DecodePagesBytes(data)
}

// ParseResultFile reads a serialized Result.
func ParseResultFile(path string) (Result, error) {
	r, closeFn, err := open(path)
	if err != nil {
		return Result{}, err
	}
	defer closeFn()

	var res Result
	if err := json.NewDecoder(r).Decode(&res); err != nil {
		return Result{}, errors.Wrap(errors.ErrCodeInvalidInput, err, "decode result %s", path)
	}
	layout.MigrateRoles(res.Layout)
	return res, nil
}

func open(path string) (io.Reader, func(), error) {
	if path == "-" {
		return os.Stdin, func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "open %s", path)
	}
	return f, func() { _ = f.Close() }, nil
}
