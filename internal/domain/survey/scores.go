// Package survey defines the wire format of survey templates, the score
// normalization rule, and the compiler that turns a payload into a
// persisted model.Template.
package survey

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// ScoreEntry is one category-label/score pair of an option.
type ScoreEntry struct {
	Category string
	Value    float64
}

// Scores is an ordered label -> score mapping. Its JSON form is an object;
// key order is preserved in both directions because category declaration
// order may be derived from it.
type Scores []ScoreEntry

// MarshalJSON writes the entries as a JSON object in order.
func (s Scores) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range s {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(e.Category)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.WriteString(strconv.FormatFloat(e.Value, 'f', -1, 64))
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

var errScoresShape = errors.New("scores must be an object of numbers")

// UnmarshalJSON reads a JSON object keeping key order. null decodes to an
// empty set.
func (s *Scores) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*s = nil
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return errScoresShape
	}

	out := Scores{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return errScoresShape
		}
		valTok, err := dec.Token()
		if err != nil {
			return err
		}
		num, ok := valTok.(json.Number)
		if !ok {
			return fmt.Errorf("%w: %q is not a number", errScoresShape, key)
		}
		v, err := num.Float64()
		if err != nil {
			return fmt.Errorf("%w: %q: %w", errScoresShape, key, err)
		}
		out = append(out, ScoreEntry{Category: key, Value: v})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*s = out
	return nil
}

// Normalize applies the storage rule for option scores: keep only nonzero
// entries, unless that leaves nothing, in which case the full (all-zero)
// set is kept so an authored zero is never confused with a missing key.
func Normalize(s Scores) Scores {
	nonzero := make(Scores, 0, len(s))
	for _, e := range s {
		if e.Value != 0 {
			nonzero = append(nonzero, e)
		}
	}
	if len(nonzero) > 0 {
		return nonzero
	}
	return append(Scores(nil), s...)
}

// NormalizeMap is Normalize for id-keyed maps.
func NormalizeMap(m map[string]int) map[string]int {
	out := make(map[string]int, len(m))
	for k, v := range m {
		if v != 0 {
			out[k] = v
		}
	}
	if len(out) > 0 {
		return out
	}
	for k, v := range m {
		out[k] = v
	}
	return out
}
