package core

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Field is one key/value pair of a flat record.
type Field struct {
	Key   string
	Value string
}

// Fields is an ordered string mapping. Keys are unique; Set on an existing
// key replaces the value in place. It encodes as a JSON object whose members
// keep insertion order.
type Fields []Field

// RawRecord is one CSV row keyed by trimmed header names.
type RawRecord = Fields

// Get returns the value stored under key.
func (f Fields) Get(key string) (string, bool) {
	for _, field := range f {
		if field.Key == key {
			return field.Value, true
		}
	}
	return "", false
}

// Set stores value under key, keeping the original position of an existing key.
func (f *Fields) Set(key, value string) {
	for i := range *f {
		if (*f)[i].Key == key {
			(*f)[i].Value = value
			return
		}
	}
	*f = append(*f, Field{Key: key, Value: value})
}

// Keys returns the keys in order.
func (f Fields) Keys() []string {
	keys := make([]string, len(f))
	for i, field := range f {
		keys[i] = field.Key
	}
	return keys
}

func (f Fields) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, field := range f {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeJSONString(&buf, field.Key); err != nil {
			return nil, err
		}
		buf.WriteByte(':')
		if err := writeJSONString(&buf, field.Value); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON accepts a JSON object. Nested objects are flattened into
// dot-joined keys, numbers and booleans keep their literal text and null
// becomes the empty string, so both {"address.city":"NY"} and
// {"address":{"city":"NY"}} decode to the same record.
func (f *Fields) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok != json.Delim('{') {
		return fmt.Errorf("record must be a JSON object")
	}

	out := Fields{}
	if err := decodeFlat(dec, "", &out); err != nil {
		return err
	}
	*f = out
	return nil
}

func decodeFlat(dec *json.Decoder, prefix string, out *Fields) error {
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("unexpected object key %v", tok)
		}
		if prefix != "" {
			key = prefix + "." + key
		}

		tok, err = dec.Token()
		if err != nil {
			return err
		}
		switch v := tok.(type) {
		case json.Delim:
			if v != '{' {
				return fmt.Errorf("field %q: arrays are not supported", key)
			}
			if err := decodeFlat(dec, key, out); err != nil {
				return err
			}
		case string:
			out.Set(key, v)
		case json.Number:
			out.Set(key, v.String())
		case bool:
			out.Set(key, strconv.FormatBool(v))
		case nil:
			out.Set(key, "")
		}
	}
	// closing '}'
	_, err := dec.Token()
	return err
}

// InfoValue is either a leaf string or a nested Info level.
type InfoValue struct {
	Leaf   string
	Nested *Info
}

// LeafValue wraps s as a leaf.
func LeafValue(s string) InfoValue { return InfoValue{Leaf: s} }

// NestedValue wraps i as a nested level.
func NestedValue(i *Info) InfoValue { return InfoValue{Nested: i} }

// IsLeaf reports whether v holds a string rather than a nested level.
func (v InfoValue) IsLeaf() bool { return v.Nested == nil }

// InfoEntry is one member of an Info level.
type InfoEntry struct {
	Key   string
	Value InfoValue
}

// Info is the ordered, arbitrarily nested mapping built from dotted keys
// that are not otherwise claimed by a User field. The zero value is an
// empty mapping and encodes as {}.
type Info struct {
	entries []InfoEntry
}

// Get returns the value stored under key at this level.
func (i *Info) Get(key string) (InfoValue, bool) {
	if i == nil {
		return InfoValue{}, false
	}
	for _, e := range i.entries {
		if e.Key == key {
			return e.Value, true
		}
	}
	return InfoValue{}, false
}

// Set stores v under key, keeping the original position of an existing key.
func (i *Info) Set(key string, v InfoValue) {
	for idx := range i.entries {
		if i.entries[idx].Key == key {
			i.entries[idx].Value = v
			return
		}
	}
	i.entries = append(i.entries, InfoEntry{Key: key, Value: v})
}

// Flatten returns the leaves as dot-joined keys in depth-first order.
func (i *Info) Flatten() Fields {
	out := Fields{}
	i.flattenInto("", &out)
	return out
}

func (i *Info) flattenInto(prefix string, out *Fields) {
	if i == nil {
		return
	}
	for _, e := range i.entries {
		key := e.Key
		if prefix != "" {
			key = prefix + "." + key
		}
		if e.Value.IsLeaf() {
			*out = append(*out, Field{Key: key, Value: e.Value.Leaf})
			continue
		}
		e.Value.Nested.flattenInto(key, out)
	}
}

func (i Info) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := i.encode(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (i *Info) encode(buf *bytes.Buffer) error {
	buf.WriteByte('{')
	for n, e := range i.entries {
		if n > 0 {
			buf.WriteByte(',')
		}
		if err := writeJSONString(buf, e.Key); err != nil {
			return err
		}
		buf.WriteByte(':')
		if e.Value.IsLeaf() {
			if err := writeJSONString(buf, e.Value.Leaf); err != nil {
				return err
			}
			continue
		}
		if err := e.Value.Nested.encode(buf); err != nil {
			return err
		}
	}
	buf.WriteByte('}')
	return nil
}

func (i *Info) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*i = Info{}
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok != json.Delim('{') {
		return fmt.Errorf("additional info must be a JSON object")
	}

	out, err := decodeInfo(dec)
	if err != nil {
		return err
	}
	*i = *out
	return nil
}

func decodeInfo(dec *json.Decoder) (*Info, error) {
	info := &Info{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected object key %v", tok)
		}

		tok, err = dec.Token()
		if err != nil {
			return nil, err
		}
		switch v := tok.(type) {
		case json.Delim:
			if v != '{' {
				return nil, fmt.Errorf("field %q: arrays are not supported", key)
			}
			nested, err := decodeInfo(dec)
			if err != nil {
				return nil, err
			}
			info.Set(key, NestedValue(nested))
		case string:
			info.Set(key, LeafValue(v))
		case json.Number:
			info.Set(key, LeafValue(v.String()))
		case bool:
			info.Set(key, LeafValue(strconv.FormatBool(v)))
		case nil:
			info.Set(key, LeafValue(""))
		}
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return info, nil
}

// User is a reshaped record ready for persistence. ID is zero until the
// row has been inserted.
type User struct {
	ID             int64  `json:"id,omitempty"`
	Name           string `json:"name"`
	Age            int    `json:"age"`
	Address        Fields `json:"address"`
	AdditionalInfo Info   `json:"additionalInfo"`
}

// Flatten rebuilds a flat record from u. The whole Name is written to
// name.firstName, so Reshape(u.Flatten()) reproduces u apart from ID.
func (u User) Flatten() RawRecord {
	rec := RawRecord{}
	rec.Set(keyFirstName, u.Name)
	rec.Set(keyLastName, "")
	rec.Set(keyAge, strconv.Itoa(u.Age))
	for _, f := range u.Address {
		rec.Set(addressPrefix+f.Key, f.Value)
	}
	for _, f := range u.AdditionalInfo.Flatten() {
		rec.Set(f.Key, f.Value)
	}
	return rec
}

// Bracket is one of the fixed age ranges used for distribution reporting.
type Bracket int

const (
	BracketUnder20 Bracket = iota
	Bracket20To40
	Bracket40To60
	BracketOver60
)

// Brackets lists every bracket in reporting order.
var Brackets = []Bracket{BracketUnder20, Bracket20To40, Bracket40To60, BracketOver60}

// Label returns the report key for b.
func (b Bracket) Label() string {
	switch b {
	case BracketUnder20:
		return "<20"
	case Bracket20To40:
		return "20-40"
	case Bracket40To60:
		return "40-60"
	case BracketOver60:
		return ">60"
	default:
		return "unknown"
	}
}

// BracketFor returns the bracket an age falls into.
func BracketFor(age int) Bracket {
	switch {
	case age < 20:
		return BracketUnder20
	case age < 40:
		return Bracket20To40
	case age < 60:
		return Bracket40To60
	default:
		return BracketOver60
	}
}

// AgeCounts holds per-bracket row counts and the overall total.
type AgeCounts struct {
	Under20    int64 `json:"under20"`
	From20To40 int64 `json:"between20And40"`
	From40To60 int64 `json:"between40And60"`
	Over60     int64 `json:"over60"`
	Total      int64 `json:"total"`
}

// Count returns the count for b.
func (c AgeCounts) Count(b Bracket) int64 {
	switch b {
	case BracketUnder20:
		return c.Under20
	case Bracket20To40:
		return c.From20To40
	case Bracket40To60:
		return c.From40To60
	case BracketOver60:
		return c.Over60
	}
	return 0
}

// AgeDistribution holds integer percentages per bracket. Values sum to 100
// when any users exist and are all zero otherwise.
type AgeDistribution struct {
	Under20    int `json:"<20"`
	From20To40 int `json:"20-40"`
	From40To60 int `json:"40-60"`
	Over60     int `json:">60"`
}

// Percent returns the percentage for b.
func (d AgeDistribution) Percent(b Bracket) int {
	switch b {
	case BracketUnder20:
		return d.Under20
	case Bracket20To40:
		return d.From20To40
	case Bracket40To60:
		return d.From40To60
	case BracketOver60:
		return d.Over60
	}
	return 0
}

func (d *AgeDistribution) add(b Bracket, delta int) {
	switch b {
	case BracketUnder20:
		d.Under20 += delta
	case Bracket20To40:
		d.From20To40 += delta
	case Bracket40To60:
		d.From40To60 += delta
	case BracketOver60:
		d.Over60 += delta
	}
}

// Sum returns the total of all four percentages.
func (d AgeDistribution) Sum() int {
	return d.Under20 + d.From20To40 + d.From40To60 + d.Over60
}

// writeJSONString appends s as a JSON string without escaping <, > or &.
// json.Marshal escapes them again when it compacts a MarshalJSON result;
// encoders with SetEscapeHTML(false) keep them as written.
func writeJSONString(buf *bytes.Buffer, s string) error {
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return err
	}
	// Encode appends a newline.
	buf.Truncate(buf.Len() - 1)
	return nil
}

// splitKey splits a flattened key into its segments.
func splitKey(key string) []string {
	return strings.Split(key, ".")
}
