package amap

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// FlexString decodes fields that are a string when set and an empty array
// (or a number) otherwise.
type FlexString string

func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		*f = ""
	case data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(s)
	case data[0] == '[':
		var items []json.RawMessage
		if err := json.Unmarshal(data, &items); err != nil {
			return err
		}
		parts := make([]string, 0, len(items))
		for _, item := range items {
			var s FlexString
			if err := s.UnmarshalJSON(item); err != nil {
				return err
			}
			if s != "" {
				parts = append(parts, string(s))
			}
		}
		*f = FlexString(strings.Join(parts, ";"))
	case data[0] == '{':
		*f = ""
	default:
		*f = FlexString(data)
	}
	return nil
}

// FlexCity is a FlexString that remembers whether the upstream sent an
// array. Regeo returns [] for the city of a municipality.
type FlexCity struct {
	Value   string
	IsArray bool
}

func (f *FlexCity) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	f.IsArray = len(data) > 0 && data[0] == '['
	var s FlexString
	if err := s.UnmarshalJSON(data); err != nil {
		return err
	}
	f.Value = string(s)
	return nil
}

// FlexFloat decodes numbers that may arrive as a number, a numeric string,
// an empty string or an empty array. Valid is false for anything that does
// not parse.
type FlexFloat struct {
	Value float64
	Valid bool
}

func (f *FlexFloat) UnmarshalJSON(data []byte) error {
	var s FlexString
	if err := s.UnmarshalJSON(data); err != nil {
		return err
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(string(s)), 64)
	if err != nil {
		*f = FlexFloat{}
		return nil
	}
	*f = FlexFloat{Value: v, Valid: true}
	return nil
}

// Ptr returns the value or nil when unknown
func (f FlexFloat) Ptr() *float64 {
	if !f.Valid {
		return nil
	}
	v := f.Value
	return &v
}
