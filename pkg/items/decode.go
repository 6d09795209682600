package items

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tidwall/gjson"
)

// UnmarshalJSON decodes one item record. Absent and null fields stay absent,
// so {"in_source": false} and {} decode to different items.
func (it *Item) UnmarshalJSON(b []byte) error {
	if !gjson.ValidBytes(b) {
		return errors.New("malformed item json")
	}
	parsed, err := itemFromResult(gjson.ParseBytes(b))
	if err != nil {
		return err
	}
	*it = parsed
	return nil
}

// ParseItems decodes a JSON array of items, an object with an "items" array,
// or newline-delimited item objects.
func ParseItems(data []byte) ([]Item, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, nil
	}

	if gjson.ValidBytes(data) {
		root := gjson.ParseBytes(data)
		switch {
		case root.IsArray():
			return itemsFromArray(root)
		case root.IsObject():
			if list := root.Get("items"); list.IsArray() {
				return itemsFromArray(list)
			}
			it, err := itemFromResult(root)
			if err != nil {
				return nil, fmt.Errorf("record 0: %w", err)
			}
			return []Item{it}, nil
		default:
			return nil, errors.New("expected a json array or object of items")
		}
	}

	// A document that opens as an array, or as an object whose first line is
	// not a complete record, is one broken document rather than NDJSON.
	if data[0] == '[' || (data[0] == '{' && !gjson.ValidBytes(firstLine(data))) {
		return nil, malformedDocument(data)
	}

	// Newline-delimited records
	var out []Item
	for i, line := range bytes.Split(data, []byte("\n")) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		if !gjson.ValidBytes(line) {
			return nil, fmt.Errorf("line %d: malformed json", i+1)
		}
		it, err := itemFromResult(gjson.ParseBytes(line))
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", i+1, err)
		}
		out = append(out, it)
	}
	return out, nil
}

func itemsFromArray(list gjson.Result) ([]Item, error) {
	records := list.Array()
	out := make([]Item, 0, len(records))
	for i, r := range records {
		it, err := itemFromResult(r)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		out = append(out, it)
	}
	return out, nil
}

func itemFromResult(r gjson.Result) (Item, error) {
	if !r.IsObject() {
		return Item{}, errors.New("item is not a json object")
	}

	var it Item
	if id := r.Get("id"); id.Exists() && id.Type != gjson.Null {
		it.ID = id.String()
	}
	it.Title = r.Get("title").String()
	if it.Title == "" {
		it.Title = r.Get("name").String()
	}

	var err error
	if it.Expires, err = dateField(r, "expires"); err != nil {
		return Item{}, err
	}
	if it.DateFirstSeen, err = dateField(r, "date_first_seen"); err != nil {
		return Item{}, err
	}

	switch v := r.Get("in_source"); v.Type {
	case gjson.True:
		it.InSource = SourcePresent
	case gjson.False:
		it.InSource = SourceMissing
	case gjson.Null:
		// Both a missing key and an explicit null land here.
		it.InSource = SourceUnreported
	default:
		return Item{}, fmt.Errorf("in_source: expected boolean, got %s", v.Raw)
	}

	return it, nil
}

func dateField(r gjson.Result, name string) (*Date, error) {
	v := r.Get(name)
	switch v.Type {
	case gjson.Null:
		return nil, nil
	case gjson.String:
		return DateString(v.Str), nil
	case gjson.Number:
		return DateUnix(v.Float()), nil
	default:
		return nil, fmt.Errorf("%s: expected string or number, got %s", name, v.Raw)
	}
}

func firstLine(data []byte) []byte {
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		return data[:i]
	}
	return data
}

// malformedDocument locates the first syntax error in data. For arrays it
// names the offending record, otherwise the line.
func malformedDocument(data []byte) error {
	if data[0] == '[' {
		dec := json.NewDecoder(bytes.NewReader(data))
		if _, err := dec.Token(); err == nil {
			for i := 0; dec.More(); i++ {
				var raw json.RawMessage
				if err := dec.Decode(&raw); err != nil {
					return fmt.Errorf("record %d: malformed json", i)
				}
			}
		}
	}

	var (
		raw    json.RawMessage
		synErr *json.SyntaxError
	)
	if err := json.Unmarshal(data, &raw); errors.As(err, &synErr) {
		return fmt.Errorf("line %d: malformed json", bytes.Count(data[:synErr.Offset], []byte("\n"))+1)
	}
	return errors.New("malformed json")
}
