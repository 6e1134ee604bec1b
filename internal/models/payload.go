// internal/models/payload.go
package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// FieldKind is the scalar type a payload field is stored as downstream.
type FieldKind int

const (
	KindReal FieldKind = iota
	KindInteger
)

// PayloadField describes one canonical payload key and its analytical column.
type PayloadField struct {
	Key    string
	Column string
	Kind   FieldKind
}

// PayloadFields is the shared contract between the mapper, the prediction
// client and both store writers. Order matters.
var PayloadFields = []PayloadField{
	{Key: "RevolvingUtilizationOfUnsecuredLines", Column: "REVOLVING_UTILIZATION_OF_UNSECURED_LINES", Kind: KindReal},
	{Key: "age", Column: "AGE", Kind: KindInteger},
	{Key: "NumberOfTime30_59DaysPastDueNotWorse", Column: "NUMBER_OF_TIME_30_59_DAYS_PAST_DUE_NOT_WORSE", Kind: KindInteger},
	{Key: "DebtRatio", Column: "DEBT_RATIO", Kind: KindReal},
	{Key: "MonthlyIncome", Column: "MONTHLY_INCOME", Kind: KindReal},
	{Key: "NumberOfOpenCreditLinesAndLoans", Column: "NUMBER_OF_OPEN_CREDIT_LINES_AND_LOANS", Kind: KindInteger},
	{Key: "NumberOfTimes90DaysLate", Column: "NUMBER_OF_TIMES_90_DAYS_LATE", Kind: KindInteger},
	{Key: "NumberRealEstateLoansOrLines", Column: "NUMBER_REAL_ESTATE_LOANS_OR_LINES", Kind: KindInteger},
	{Key: "NumberOfTime60_89DaysPastDueNotWorse", Column: "NUMBER_OF_TIME_60_89_DAYS_PAST_DUE_NOT_WORSE", Kind: KindInteger},
	{Key: "NumberOfDependents", Column: "NUMBER_OF_DEPENDENTS", Kind: KindInteger},
}

// PayloadKeys returns the canonical keys in order.
func PayloadKeys() []string {
	keys := make([]string, len(PayloadFields))
	for i, f := range PayloadFields {
		keys[i] = f.Key
	}
	return keys
}

func canonicalIndex(key string) int {
	for i, f := range PayloadFields {
		if f.Key == key {
			return i
		}
	}
	return -1
}

// PayloadEntry is one key/value of an ApplicationPayload. Values are
// loosely typed: numbers, strings or nil.
type PayloadEntry struct {
	Key   string
	Value interface{}
}

// ApplicationPayload is an ordered field mapping. It is immutable once built.
type ApplicationPayload struct {
	entries []PayloadEntry
}

func NewApplicationPayload(entries ...PayloadEntry) ApplicationPayload {
	cp := make([]PayloadEntry, len(entries))
	copy(cp, entries)
	return ApplicationPayload{entries: cp}
}

// Entries returns a copy of the entries in order.
func (p ApplicationPayload) Entries() []PayloadEntry {
	cp := make([]PayloadEntry, len(p.entries))
	copy(cp, p.entries)
	return cp
}

func (p ApplicationPayload) Keys() []string {
	keys := make([]string, len(p.entries))
	for i, e := range p.entries {
		keys[i] = e.Key
	}
	return keys
}

func (p ApplicationPayload) Len() int {
	return len(p.entries)
}

func (p ApplicationPayload) Get(key string) (interface{}, bool) {
	for _, e := range p.entries {
		if e.Key == key {
			return e.Value, true
		}
	}
	return nil, false
}

// MarshalJSON writes a flat object with keys in payload order.
func (p ApplicationPayload) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range p.entries {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(e.Key)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(e.Value)
		if err != nil {
			return nil, fmt.Errorf("marshal payload field %s: %w", e.Key, err)
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON restores canonical order; stores such as jsonb do not keep
// key order. Unknown keys follow the canonical ones, sorted. Numbers decode
// as json.Number.
func (p *ApplicationPayload) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		p.entries = nil
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw map[string]interface{}
	if err := dec.Decode(&raw); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}

	entries := make([]PayloadEntry, 0, len(raw))
	for _, f := range PayloadFields {
		if v, ok := raw[f.Key]; ok {
			entries = append(entries, PayloadEntry{Key: f.Key, Value: v})
		}
	}

	var extra []string
	for k := range raw {
		if canonicalIndex(k) < 0 {
			extra = append(extra, k)
		}
	}
	sort.Strings(extra)
	for _, k := range extra {
		entries = append(entries, PayloadEntry{Key: k, Value: raw[k]})
	}

	p.entries = entries
	return nil
}
