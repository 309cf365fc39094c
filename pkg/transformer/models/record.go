package models

import (
	"bytes"
	"encoding/json"
)

// Field is one column/value pair of a Record.
type Field struct {
	Column string
	Value  string
}

// Record is an output row whose columns keep their table order when encoded.
type Record struct {
	Fields []Field
}

// Set assigns value to column, appending the column if it is new.
func (r *Record) Set(column, value string) {
	for i := range r.Fields {
		if r.Fields[i].Column == column {
			r.Fields[i].Value = value
			return
		}
	}
	r.Fields = append(r.Fields, Field{Column: column, Value: value})
}

// Get returns the value stored for column.
func (r Record) Get(column string) (string, bool) {
	for _, f := range r.Fields {
		if f.Column == column {
			return f.Value, true
		}
	}
	return "", false
}

// Columns returns the record's column names in order.
func (r Record) Columns() []string {
	cols := make([]string, len(r.Fields))
	for i, f := range r.Fields {
		cols[i] = f.Column
	}
	return cols
}

// MarshalJSON encodes the record as a JSON object in column order.
func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range r.Fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(f.Column)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(f.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
