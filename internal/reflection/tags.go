package reflection

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// TagKey is the struct tag key read for injection and context options.
const TagKey = "autowire"

// DefaultTagKey holds a literal default for an optional struct field.
const DefaultTagKey = "default"

var durationType = reflect.TypeFor[time.Duration]()

// Tag is a parsed `autowire:"..."` struct tag.
//
// The tag is a comma separated list of options. "-" on its own skips the
// field, "name=x" overrides the derived name and every other entry is kept
// as a flag (for example "optional", "eager" or "thread_local").
type Tag struct {
	Name  string
	Skip  bool
	flags map[string]bool
}

// ParseTag parses the raw value of an autowire tag.
func ParseTag(raw string) Tag {
	raw = strings.TrimSpace(raw)
	if raw == "-" {
		return Tag{Skip: true}
	}

	tag := Tag{flags: make(map[string]bool)}
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if name, ok := strings.CutPrefix(part, "name="); ok {
			tag.Name = strings.TrimSpace(name)
			continue
		}
		tag.flags[part] = true
	}
	return tag
}

// Has reports whether flag is set on the tag.
func (t Tag) Has(flag string) bool {
	return t.flags[flag]
}

// Flags returns the set flags in no particular order.
func (t Tag) Flags() []string {
	out := make([]string, 0, len(t.flags))
	for f := range t.flags {
		out = append(out, f)
	}
	return out
}

// ParseDefault converts the literal of a `default:"..."` tag into a value
// of type t. Untyped (empty interface) targets receive the literal as a
// string.
func ParseDefault(raw string, t reflect.Type) (reflect.Value, error) {
	if IsUntyped(t) {
		return reflect.ValueOf(raw), nil
	}

	out := reflect.New(t).Elem()
	if t == durationType {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return reflect.Value{}, fmt.Errorf("invalid default %q for %v: %w", raw, t, err)
		}
		out.SetInt(int64(d))
		return out, nil
	}

	switch t.Kind() {
	case reflect.String:
		out.SetString(raw)
	case reflect.Bool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return reflect.Value{}, fmt.Errorf("invalid default %q for %v: %w", raw, t, err)
		}
		out.SetBool(b)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(raw, 0, t.Bits())
		if err != nil {
			return reflect.Value{}, fmt.Errorf("invalid default %q for %v: %w", raw, t, err)
		}
		out.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(raw, 0, t.Bits())
		if err != nil {
			return reflect.Value{}, fmt.Errorf("invalid default %q for %v: %w", raw, t, err)
		}
		out.SetUint(n)
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(raw, t.Bits())
		if err != nil {
			return reflect.Value{}, fmt.Errorf("invalid default %q for %v: %w", raw, t, err)
		}
		out.SetFloat(f)
	default:
		return reflect.Value{}, fmt.Errorf("%w: defaults are not supported for %v", ErrTypeMismatch, t)
	}
	return out, nil
}
