package common

import (
	"encoding"
	"fmt"
	"net/netip"
	"reflect"
	"strings"

	"github.com/mitchellh/mapstructure"
)

var textUnmarshalerType = reflect.TypeOf((*encoding.TextUnmarshaler)(nil)).Elem()

func textUnmarshalerHook(f reflect.Type, t reflect.Type, data interface{}) (interface{}, error) {
	if !reflect.PointerTo(t).Implements(textUnmarshalerType) {
		return data, nil
	}

	var str string
	switch f.Kind() {
	case reflect.String:
		str = reflect.ValueOf(data).String()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		// TOML, YAML and JSON hand out numbers where INI hands out strings.
		str = fmt.Sprint(data)
	default:
		return data, nil
	}

	v := reflect.New(t)
	if err := v.Interface().(encoding.TextUnmarshaler).UnmarshalText([]byte(str)); err != nil {
		return nil, err
	}

	return v.Elem().Interface(), nil
}

func boolHook(f reflect.Type, t reflect.Type, data interface{}) (interface{}, error) {
	if f.Kind() != reflect.String || t.Kind() != reflect.Bool {
		return data, nil
	}

	switch strings.ToLower(strings.TrimSpace(reflect.ValueOf(data).String())) {
	case "1", "yes", "true", "on":
		return true, nil
	case "0", "no", "false", "off", "":
		return false, nil
	default:
		return nil, fmt.Errorf("not a boolean: %q", data)
	}
}

// WeakDecodeMap decodes a generic map into output, matching keys case-insensitively.
// Strings are converted into TextUnmarshaler targets, booleans, numbers and comma separated
// lists.
func WeakDecodeMap(input, output any) error {
	_, err := weakDecode(input, output)
	return err
}

// WeakDecodeMapUnused is WeakDecodeMap that also reports input keys without a destination.
func WeakDecodeMapUnused(input, output any) ([]string, error) {
	return weakDecode(input, output)
}

func weakDecode(input, output any) ([]string, error) {
	meta := &mapstructure.Metadata{}
	config := &mapstructure.DecoderConfig{
		Metadata:         meta,
		Result:           output,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			textUnmarshalerHook,
			boolHook,
			mapstructure.StringToSliceHookFunc(","),
		),
	}

	decoder, err := mapstructure.NewDecoder(config)
	if err != nil {
		return nil, err
	}

	if err := decoder.Decode(input); err != nil {
		return nil, err
	}

	return meta.Unused, nil
}

func DetectNormalizeAddr(addr string) (norm string, isIP bool) {
	if _, err := netip.ParseAddr(addr); err == nil {
		return addr, true
	}

	if len(addr) > 2 && addr[0] == '[' && addr[len(addr)-1] == ']' {
		addrStrip := addr[1 : len(addr)-1]
		if ip, err := netip.ParseAddr(addrStrip); err == nil {
			if ip.Is6() {
				return addrStrip, true
			}
		}
	}

	return addr, false
}

// SplitList trims every element and drops empty ones.
func SplitList(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
