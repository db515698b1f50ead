package property

import (
	"bytes"
	"encoding/json"
)

// Code is a categorical value (tax area, roll year, zip, ...) that datasets
// carry either as a JSON string or a JSON number. It keeps the textual form
// and re-encodes in the form it arrived in, so it can be forwarded verbatim.
type Code struct {
	text    string
	numeric bool
	set     bool
}

func StringCode(s string) Code { return Code{text: s, set: true} }

func NumberCode(n json.Number) Code { return Code{text: n.String(), numeric: true, set: true} }

func (c Code) String() string { return c.text }

// IsZero reports whether the value was absent or null.
func (c Code) IsZero() bool { return !c.set }

func (c *Code) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if string(b) == "null" {
		*c = Code{}
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		*c = StringCode(str)
		return nil
	}
	var num json.Number
	if err := json.Unmarshal(b, &num); err != nil {
		return err
	}
	*c = NumberCode(num)
	return nil
}

func (c Code) MarshalJSON() ([]byte, error) {
	switch {
	case !c.set:
		return []byte("null"), nil
	case c.numeric:
		return []byte(c.text), nil
	default:
		return json.Marshal(c.text)
	}
}
