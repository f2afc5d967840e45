package config

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// Decode maps loosely typed input, such as tool arguments or a JSON body
// decoded into a map, onto out using its mapstructure tags. Numbers given as
// strings and durations such as "90s" are converted; unknown keys are
// rejected.
func Decode(input map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(input); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	return nil
}
