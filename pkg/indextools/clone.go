package indextools

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"    // Error wrapping.
	"github.com/tidwall/gjson" // Dynamic JSON parsing.
	"github.com/tidwall/sjson" // Dynamic JSON editing.
)

// ephemeralSettings are per-index values Elasticsearch assigns at
// creation time. They must not be part of a create-index body.
var ephemeralSettings = []string{
	"index.creation_date",
	"index.uuid",
	"index.version",
	"index.provided_name",
}

// CloneMapping returns the mapping body of an index as a JSON string
// ready to be passed to CreateService.Mapping().
// Returns ErrIndexNotFound if the index doesn't exist.
func (t *IndexTools) CloneMapping(ctx context.Context, name string) (string, error) {
	mapping, err := t.GetMapping(ctx, name)
	if err != nil {
		return "", err
	}
	out, err := json.Marshal(mapping)
	if err != nil {
		return "", errors.Wrap(err, "error marshaling mapping")
	}
	return string(out), nil
}

// CloneSettings returns the settings body of an index as a JSON string
// with per-index ephemera (creation date, UUID, version, provided
// name) removed, ready to be passed to CreateService.Settings().
// Returns ErrIndexNotFound if the index doesn't exist.
func (t *IndexTools) CloneSettings(ctx context.Context, name string) (string, error) {
	settings, err := t.GetSettings(ctx, name)
	if err != nil {
		return "", err
	}
	raw, err := json.Marshal(settings)
	if err != nil {
		return "", errors.Wrap(err, "error marshaling settings")
	}
	out := string(raw)
	if !gjson.Valid(out) {
		return "", errors.New("invalid settings json")
	}
	for _, path := range ephemeralSettings {
		if out, err = sjson.Delete(out, path); err != nil {
			return "", errors.Wrapf(err, "error removing %s", path)
		}
	}
	return out, nil
}
