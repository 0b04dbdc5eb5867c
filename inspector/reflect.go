package inspector

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// Widget selects how a field is drawn.
type Widget int

const (
	WidgetAuto Widget = iota
	WidgetLabel
	WidgetBar
	WidgetVec
	WidgetSkip
)

// Field is one exported struct field with its rendering hints.
type Field struct {
	Name    string
	Value   any
	Widget  Widget
	Options map[string]string
}

// Label is the display name: the label option, or the field name.
func (f Field) Label() string {
	if l, ok := f.Options["label"]; ok {
		return l
	}
	return f.Name
}

// ParseTag parses an inspect struct tag.
// Format: `inspect:"widget[,option:value...]"`
//
//	`inspect:"bar,max:2,warn:0.55"`
//	`inspect:"vec,fmt:%.3f"`
//	`inspect:"label,label:Rho/Rho0"`
//	`inspect:"skip"`
func ParseTag(tag string) (Widget, map[string]string) {
	options := make(map[string]string)
	if tag == "" {
		return WidgetAuto, options
	}

	parts := strings.Split(tag, ",")

	var widget Widget
	switch strings.TrimSpace(parts[0]) {
	case "label":
		widget = WidgetLabel
	case "bar":
		widget = WidgetBar
	case "vec":
		widget = WidgetVec
	case "skip":
		widget = WidgetSkip
	}

	for _, part := range parts[1:] {
		if k, v, ok := strings.Cut(strings.TrimSpace(part), ":"); ok {
			options[k] = v
		}
	}
	return widget, options
}

// ExtractFields lists the exported fields of a struct (or pointer to one)
// in declaration order, dropping those tagged skip.
func ExtractFields(v any) []Field {
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil
	}

	t := rv.Type()
	var fields []Field
	for i := 0; i < rv.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}

		widget, options := ParseTag(sf.Tag.Get("inspect"))
		if widget == WidgetSkip {
			continue
		}
		fv := rv.Field(i)
		if widget == WidgetAuto {
			widget = detectWidget(fv)
		}

		fields = append(fields, Field{
			Name:    sf.Name,
			Value:   fv.Interface(),
			Widget:  widget,
			Options: options,
		})
	}
	return fields
}

func detectWidget(v reflect.Value) Widget {
	if v.Kind() == reflect.Array && v.Len() == 3 {
		switch v.Type().Elem().Kind() {
		case reflect.Float32, reflect.Float64:
			return WidgetVec
		}
	}
	return WidgetLabel
}

// Format renders the value as text, honouring the fmt option. Vectors apply
// it per component.
func (f Field) Format() string {
	format := f.Options["fmt"]

	if f.Widget == WidgetVec {
		if xs, ok := floats(f.Value); ok {
			if format == "" {
				format = "%.3f"
			}
			parts := make([]string, len(xs))
			for i, x := range xs {
				parts[i] = fmt.Sprintf(format, x)
			}
			return "(" + strings.Join(parts, ", ") + ")"
		}
	}

	if format != "" {
		return fmt.Sprintf(format, f.Value)
	}
	switch v := f.Value.(type) {
	case float32:
		return fmt.Sprintf("%.3f", v)
	case float64:
		return fmt.Sprintf("%.3f", v)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// Fraction is the value over the max option (default 1), for bars.
func (f Field) Fraction() (float64, bool) {
	x, ok := toFloat(f.Value)
	if !ok {
		return 0, false
	}
	return x / optionFloat(f.Options, "max", 1), true
}

// Warn is the bar fraction above which the warning fill is used; 0 for
// none.
func (f Field) Warn() float64 {
	return optionFloat(f.Options, "warn", 0)
}

func optionFloat(options map[string]string, key string, def float64) float64 {
	if s, ok := options[key]; ok {
		if x, err := strconv.ParseFloat(s, 64); err == nil && x != 0 {
			return x
		}
	}
	return def
}

func toFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float32:
		return float64(v), true
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}

func floats(value any) ([]float64, bool) {
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Array && rv.Kind() != reflect.Slice {
		return nil, false
	}
	out := make([]float64, rv.Len())
	for i := range out {
		x, ok := toFloat(rv.Index(i).Interface())
		if !ok {
			return nil, false
		}
		out[i] = x
	}
	return out, true
}
