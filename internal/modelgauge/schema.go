package modelgauge

import (
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
)

// Attrs is one record projected onto its exportable attributes. Values may
// be nil, strings, bools, numbers or json.Number; anything else cannot be
// rendered as a label and panics when a schema selects it.
type Attrs map[string]any

// Schema fixes the set of record attributes a gauge exports and the label
// name each one maps to. Attributes are ordered lexicographically by name so
// a record always renders the same label combination.
type Schema struct {
	idAttr string
	attrs  []string
	labels []string
}

// NewSchema builds a schema from an attribute-to-label mapping. idAttr names
// the attribute that carries the record key and must be part of the mapping;
// leaving it out is a wiring bug and panics.
func NewSchema(idAttr string, attrToLabel map[string]string) Schema {
	if _, ok := attrToLabel[idAttr]; !ok {
		panic(fmt.Sprintf("modelgauge: id attribute %q missing from label schema", idAttr))
	}
	attrs := make([]string, 0, len(attrToLabel))
	for a := range attrToLabel {
		attrs = append(attrs, a)
	}
	slices.Sort(attrs)
	labels := make([]string, len(attrs))
	for i, a := range attrs {
		labels[i] = attrToLabel[a]
	}
	return Schema{idAttr: idAttr, attrs: attrs, labels: labels}
}

// Identity returns an attribute-to-label mapping that exports every
// attribute under its own name. Callers usually rename a few entries before
// building the schema.
func Identity(attrs ...string) map[string]string {
	m := make(map[string]string, len(attrs))
	for _, a := range attrs {
		m[a] = a
	}
	return m
}

// IDAttr returns the attribute carrying the record key.
func (s Schema) IDAttr() string { return s.idAttr }

// Labels returns the exported label names in schema order.
func (s Schema) Labels() []string { return slices.Clone(s.labels) }

// Combination renders the label values for one projected record in schema
// order. A schema attribute missing from the projection is a contract
// violation and panics; extra projection attributes are ignored.
func (s Schema) Combination(attrs Attrs) []string {
	values := make([]string, len(s.attrs))
	for i, a := range s.attrs {
		v, ok := attrs[a]
		if !ok {
			panic(fmt.Sprintf("modelgauge: projection is missing schema attribute %q", a))
		}
		values[i] = labelValue(a, v)
	}
	return values
}

// labelValue renders one attribute value as a label string. nil renders as
// the empty string so optional upstream fields produce empty labels instead
// of phantom series.
func labelValue(attr string, v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case int:
		return strconv.FormatInt(int64(x), 10)
	case int8:
		return strconv.FormatInt(int64(x), 10)
	case int16:
		return strconv.FormatInt(int64(x), 10)
	case int32:
		return strconv.FormatInt(int64(x), 10)
	case int64:
		return strconv.FormatInt(x, 10)
	case uint:
		return strconv.FormatUint(uint64(x), 10)
	case uint8:
		return strconv.FormatUint(uint64(x), 10)
	case uint16:
		return strconv.FormatUint(uint64(x), 10)
	case uint32:
		return strconv.FormatUint(uint64(x), 10)
	case uint64:
		return strconv.FormatUint(x, 10)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case json.Number:
		return x.String()
	default:
		panic(fmt.Sprintf("modelgauge: attribute %q has unsupported label value type %T", attr, v))
	}
}
