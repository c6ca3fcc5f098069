package models

import (
	"encoding/json"
	"reflect"
	"strings"
	"sync"
)

// Extra holds JSON fields the service does not interpret. They are kept so a
// roster survives a load/save round trip unchanged.
type Extra map[string]json.RawMessage

var knownFieldsCache sync.Map // reflect.Type -> map[string]bool

// knownFields returns the JSON names declared on a struct type
func knownFields(t reflect.Type) map[string]bool {
	if cached, ok := knownFieldsCache.Load(t); ok {
		return cached.(map[string]bool)
	}
	fields := make(map[string]bool, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		name, _, _ := strings.Cut(t.Field(i).Tag.Get("json"), ",")
		if name == "" || name == "-" {
			continue
		}
		fields[name] = true
	}
	knownFieldsCache.Store(t, fields)
	return fields
}

// splitExtra decodes the fields of data that v does not declare
func splitExtra(data []byte, v any) (Extra, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	known := knownFields(reflect.TypeOf(v).Elem())
	var extra Extra
	for k, val := range raw {
		if known[k] {
			continue
		}
		if extra == nil {
			extra = make(Extra)
		}
		extra[k] = val
	}
	return extra, nil
}

// mergeExtra marshals v and adds the extra fields that v does not already set
func mergeExtra(v any, extra Extra) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil || len(extra) == 0 {
		return data, err
	}
	var out map[string]json.RawMessage
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	for k, val := range extra {
		if _, ok := out[k]; !ok {
			out[k] = val
		}
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes a Person keeping unknown fields
func (p *Person) UnmarshalJSON(data []byte) error {
	type plain Person
	var v plain
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	extra, err := splitExtra(data, &v)
	if err != nil {
		return err
	}
	v.Extra = extra
	*p = Person(v)
	return nil
}

// MarshalJSON encodes a Person including unknown fields
func (p Person) MarshalJSON() ([]byte, error) {
	type plain Person
	return mergeExtra(plain(p), p.Extra)
}

// UnmarshalJSON decodes a Shift keeping unknown fields
func (s *Shift) UnmarshalJSON(data []byte) error {
	type plain Shift
	var v plain
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	extra, err := splitExtra(data, &v)
	if err != nil {
		return err
	}
	v.Extra = extra
	*s = Shift(v)
	return nil
}

// MarshalJSON encodes a Shift including unknown fields
func (s Shift) MarshalJSON() ([]byte, error) {
	type plain Shift
	return mergeExtra(plain(s), s.Extra)
}

// UnmarshalJSON decodes a Requirement keeping unknown fields
func (q *Requirement) UnmarshalJSON(data []byte) error {
	type plain Requirement
	var v plain
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	extra, err := splitExtra(data, &v)
	if err != nil {
		return err
	}
	v.Extra = extra
	*q = Requirement(v)
	return nil
}

// MarshalJSON encodes a Requirement including unknown fields
func (q Requirement) MarshalJSON() ([]byte, error) {
	type plain Requirement
	return mergeExtra(plain(q), q.Extra)
}

// UnmarshalJSON decodes Rules keeping unknown fields
func (r *Rules) UnmarshalJSON(data []byte) error {
	type plain Rules
	var v plain
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	extra, err := splitExtra(data, &v)
	if err != nil {
		return err
	}
	v.Extra = extra
	*r = Rules(v)
	return nil
}

// MarshalJSON encodes Rules including unknown fields
func (r Rules) MarshalJSON() ([]byte, error) {
	type plain Rules
	return mergeExtra(plain(r), r.Extra)
}

// UnmarshalJSON decodes a Roster keeping unknown fields
func (r *Roster) UnmarshalJSON(data []byte) error {
	type plain Roster
	var v plain
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	extra, err := splitExtra(data, &v)
	if err != nil {
		return err
	}
	v.Extra = extra
	*r = Roster(v)
	return nil
}

// MarshalJSON encodes a Roster including unknown fields
func (r Roster) MarshalJSON() ([]byte, error) {
	type plain Roster
	return mergeExtra(plain(r), r.Extra)
}
