package registry

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// Decode maps construction arguments onto a typed config struct.
// Field names come from `mapstructure` tags; input is weakly typed so that
// values coming from YAML, JSON or CLI flags ("3", 3, 3.0) all decode.
// Unknown keys are rejected to surface typos early.
func Decode(args map[string]any, out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return fmt.Errorf("registry: build decoder: %w", err)
	}
	if err := decoder.Decode(args); err != nil {
		return fmt.Errorf("registry: decode args: %w", err)
	}
	return nil
}
