// FILE: lixenwraith/profile/decode.go
package profile

import (
	"fmt"
	"net"
	"net/url"
	"reflect"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
)

// Scan decodes the merged section at path into target, which must be a
// non-nil pointer. Relations repeated across sources collect into a list; a
// scalar field receives the highest-priority value.
func (p *Profile) Scan(path []string, target any) error {
	rv := reflect.ValueOf(target)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return fmt.Errorf("scan target must be non-nil pointer, got %T", target)
	}

	data, err := p.mergedSection(path)
	if err != nil {
		return err
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           target,
		TagName:          "toml",
		WeaklyTypedInput: true,
		DecodeHook:       getDecodeHook(),
		ZeroFields:       true,
	})
	if err != nil {
		return fmt.Errorf("decoder creation failed: %w", err)
	}

	if err := decoder.Decode(data); err != nil {
		return fmt.Errorf("decode failed for path %q: %w", strings.Join(path, "."), err)
	}
	return nil
}

// mergedSection builds a nested map of every entry under path across all
// sources. A section shadows a relation of the same name.
func (p *Profile) mergedSection(path []string) (map[string]any, error) {
	entries, err := p.Entries(path, ListSection)
	if err != nil {
		return nil, err
	}

	out := make(map[string]any)
	values := make(map[string][]string)
	var order []string
	for _, e := range entries {
		if e.HasValue {
			if _, ok := values[e.Name]; !ok {
				order = append(order, e.Name)
			}
			values[e.Name] = append(values[e.Name], e.Value)
			continue
		}
		if _, done := out[e.Name]; done {
			continue
		}
		sub := append(append([]string(nil), path...), e.Name)
		child, err := p.mergedSection(sub)
		if err != nil {
			return nil, err
		}
		out[e.Name] = child
	}

	for _, name := range order {
		if _, isSection := out[name]; isSection {
			continue
		}
		if vals := values[name]; len(vals) == 1 {
			out[name] = vals[0]
		} else {
			out[name] = vals
		}
	}
	return out, nil
}

// getDecodeHook returns the composite decode hook for all type conversions
func getDecodeHook() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		firstValueHookFunc(),
		stringToNetworkHookFunc(),
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToTimeHookFunc(time.RFC3339),
		mapstructure.StringToSliceHookFunc(","),
	)
}

// firstValueHookFunc reduces a repeated relation to its highest-priority
// value when the target is not a list.
func firstValueHookFunc() mapstructure.DecodeHookFunc {
	return func(f reflect.Type, t reflect.Type, data any) (any, error) {
		vals, ok := data.([]string)
		if !ok || len(vals) == 0 {
			return data, nil
		}
		switch t.Kind() {
		case reflect.Slice, reflect.Array, reflect.Interface:
			return data, nil
		}
		return vals[0], nil
	}
}

// networkParsers build the network types a relation value can decode into.
// Each returns a pointer to the parsed value.
var networkParsers = map[reflect.Type]func(string) (any, error){
	reflect.TypeOf(net.IP{}):    parseIP,
	reflect.TypeOf(net.IPNet{}): parseCIDR,
	reflect.TypeOf(url.URL{}):   parseURL,
}

// stringToNetworkHookFunc decodes strings into net.IP, net.IPNet and url.URL
// fields, or pointers to them.
func stringToNetworkHookFunc() mapstructure.DecodeHookFunc {
	return func(f reflect.Type, t reflect.Type, data any) (any, error) {
		if f.Kind() != reflect.String {
			return data, nil
		}
		target, isPtr := t, t.Kind() == reflect.Ptr
		if isPtr {
			target = t.Elem()
		}
		parse, ok := networkParsers[target]
		if !ok {
			return data, nil
		}

		parsed, err := parse(reflect.ValueOf(data).String())
		if err != nil {
			return nil, err
		}
		if isPtr {
			return parsed, nil
		}
		return reflect.ValueOf(parsed).Elem().Interface(), nil
	}
}

func parseIP(s string) (any, error) {
	if len(s) > 45 { // longest textual IPv6
		return nil, fmt.Errorf("invalid IP length: %d", len(s))
	}
	ip := net.ParseIP(s)
	if ip == nil {
		return nil, fmt.Errorf("invalid IP address: %s", s)
	}
	return &ip, nil
}

func parseCIDR(s string) (any, error) {
	if len(s) > 49 {
		return nil, fmt.Errorf("invalid CIDR length: %d", len(s))
	}
	_, ipnet, err := net.ParseCIDR(s)
	if err != nil {
		return nil, fmt.Errorf("invalid CIDR: %w", err)
	}
	return ipnet, nil
}

func parseURL(s string) (any, error) {
	if len(s) > 2048 {
		return nil, fmt.Errorf("URL too long: %d bytes", len(s))
	}
	u, err := url.Parse(s)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	return u, nil
}
