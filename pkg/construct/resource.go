package construct

import (
	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
)

const AWSProvider = "aws"

type (
	Resource struct {
		ID         ResourceId
		Properties Properties
	}

	Properties map[string]any
)

func CreateResource(id ResourceId) *Resource {
	return &Resource{
		ID:         id,
		Properties: make(Properties),
	}
}

// NewResource creates a resource whose properties are the `mapstructure`-tagged fields of `props`.
func NewResource(id ResourceId, props any) (*Resource, error) {
	r := CreateResource(id)
	if err := mapstructure.Decode(props, &r.Properties); err != nil {
		return nil, errors.Wrapf(err, "could not encode properties of %s", id)
	}
	return r, nil
}

// DecodeProperties fills `out` from the resource's properties. It accepts both properties created in-process
// (typed values) and properties read back from YAML (generic maps and slices).
func (r *Resource) DecodeProperties(out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
		ErrorUnused:      false,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(map[string]any(r.Properties)); err != nil {
		return errors.Wrapf(err, "could not decode properties of %s", r.ID)
	}
	return nil
}
