package normalize

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"photocat/internal/catalog"
)

// Names of the fields derived at query time.
const (
	FieldDateTaken    = "DateTaken"
	FieldLensInferred = "LensInferred"
)

// DateFields are the capture-time fields tried by DateTaken, in order.
var DateFields = []string{"DateTimeOriginal", "CreateDate", "DateTime"}

// DateLayouts are the EXIF timestamp layouts tried for each date field,
// sub-second precision first.
var DateLayouts = []string{
	"2006:01:02 15:04:05.999999999-07:00",
	"2006:01:02 15:04:05-07:00",
	"2006:01:02 15:04:05.999999999",
	"2006:01:02 15:04:05",
}

// LensFields are the raw lens fields, in order of preference.
var LensFields = []string{"Lens", "LensModel", "LensID"}

// ModelField names the camera model field.
const ModelField = "Model"

// PhoneMakers are substrings of Model values that identify phones, whose
// lens is fixed and rarely reported.
var PhoneMakers = []string{"iphone", "ipad", "pixel", "galaxy", "samsung", "huawei", "xiaomi", "oneplus", "nokia", "motorola"}

// Normalizer maps raw metadata values to canonical strings.
type Normalizer struct {
	rules *Rules
}

// New returns a Normalizer applying rules. A nil rules set maps nothing.
func New(rules *Rules) *Normalizer {
	return &Normalizer{rules: rules}
}

// Rules returns the rule set in use.
func (n *Normalizer) Rules() *Rules {
	return n.rules
}

// Value returns the canonical form of raw for field.
func (n *Normalizer) Value(field string, raw any) string {
	s := FormatValue(raw)
	if assigned, ok := n.rules.Lookup(field, s); ok {
		return assigned
	}
	return s
}

// FormatValue coerces a metadata value to a string. Integral numbers
// print without a decimal point and nil prints as "".
func FormatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return strconv.FormatInt(i, 10)
		}
		if f, err := t.Float64(); err == nil {
			return formatFloat(f)
		}
		return t.String()
	case float64:
		return formatFloat(t)
	case float32:
		return formatFloat(float64(t))
	case bool:
		return strconv.FormatBool(t)
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprint(t)
	case map[string]any, catalog.Document, []any:
		data, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(data)
	default:
		return fmt.Sprint(t)
	}
}

func formatFloat(f float64) string {
	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// DateTaken returns the capture time recorded in doc. When no date field
// parses it returns the record's creation time and exif=false.
func (n *Normalizer) DateTaken(doc catalog.Document, rec *catalog.FileRecord) (t time.Time, exif bool) {
	for _, field := range DateFields {
		s, ok := doc[field].(string)
		if !ok {
			continue
		}
		if parsed, ok := ParseExifTime(s); ok {
			return parsed, true
		}
	}
	return rec.CreatedAt.UTC(), false
}

// ParseExifTime parses an EXIF timestamp against DateLayouts. Stamps
// without a zone are read as UTC.
func ParseExifTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range DateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// LensInferred returns the lens of doc: the first non-empty lens field,
// else the model of a phone, else "".
func (n *Normalizer) LensInferred(doc catalog.Document) string {
	for _, field := range LensFields {
		raw, ok := doc[field]
		if !ok || raw == nil {
			continue
		}
		if v := n.Value(field, raw); v != "" {
			return v
		}
	}
	model := n.Value(ModelField, doc[ModelField])
	lower := strings.ToLower(model)
	for _, maker := range PhoneMakers {
		if strings.Contains(lower, maker) {
			return model
		}
	}
	return ""
}

// DerivedRow is a file record joined with its sidecar and the values
// derived from both.
type DerivedRow struct {
	Record       *catalog.FileRecord
	Meta         catalog.Document
	DateTaken    time.Time
	NoExifDate   bool
	LensInferred string

	norm *Normalizer
}

// Derive projects rec and its sidecar doc into a DerivedRow. doc may be
// nil when the file has no metadata.
func (n *Normalizer) Derive(rec *catalog.FileRecord, doc catalog.Document) *DerivedRow {
	taken, exif := n.DateTaken(doc, rec)
	return &DerivedRow{
		Record:       rec,
		Meta:         doc,
		DateTaken:    taken,
		NoExifDate:   !exif,
		LensInferred: n.LensInferred(doc),
		norm:         n,
	}
}

// Field returns the normalized value of a metadata or derived field.
func (r *DerivedRow) Field(name string) string {
	switch name {
	case FieldDateTaken:
		return r.DateTaken.Format(time.RFC3339)
	case FieldLensInferred:
		return r.LensInferred
	}
	return r.norm.Value(name, r.Meta[name])
}

// Has reports whether the row has a non-null value for name.
func (r *DerivedRow) Has(name string) bool {
	switch name {
	case FieldDateTaken:
		return true
	case FieldLensInferred:
		return r.LensInferred != ""
	}
	v, ok := r.Meta[name]
	return ok && v != nil
}
