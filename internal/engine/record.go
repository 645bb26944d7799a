package engine

import (
	"bytes"
	"encoding/json"
)

type Field struct {
	Name  string
	Value any
}

// Record is an ordered mapping from field name to value. Field order matches
// the engine's column order at read time; a duplicate column name keeps its
// first position and overwrites the value.
type Record struct {
	fields []Field
	byName map[string]int
}

func (r *Record) Set(name string, value any) {
	if index, ok := r.byName[name]; ok {
		r.fields[index].Value = value
		return
	}
	if r.byName == nil {
		r.byName = make(map[string]int)
	}
	r.byName[name] = len(r.fields)
	r.fields = append(r.fields, Field{Name: name, Value: value})
}

func (r Record) Get(name string) (any, bool) {
	index, ok := r.byName[name]
	if !ok {
		return nil, false
	}
	return r.fields[index].Value, true
}

func (r Record) Fields() []Field {
	return r.fields
}

func (r Record) Len() int {
	return len(r.fields)
}

// MarshalJSON emits the fields as a JSON object in insertion order. Consumers
// rely on the first record's keys as a header row, so the standard library's
// map-based object encoding cannot be used here.
func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, field := range r.fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		name, err := json.Marshal(field.Name)
		if err != nil {
			return nil, err
		}
		buf.Write(name)
		buf.WriteByte(':')
		value, err := json.Marshal(field.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Records converts the materialized rowset into ordered records, translating
// missing cells to null.
func (r Result) Records() []Record {
	records := make([]Record, 0, len(r.Rows))
	for _, row := range r.Rows {
		var record Record
		for i, column := range r.Columns {
			var value any
			if i < len(row) {
				value = row[i]
			}
			record.Set(column, value)
		}
		records = append(records, record)
	}
	return records
}
