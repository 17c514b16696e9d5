package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Date accepts either a plain "2006-01-02" date or a full RFC 3339 timestamp
// in request bodies; the browser forms send the former. Values keep
// millisecond precision, the finest BSON datetimes store.
type Date struct {
	time.Time
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		return nil
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			d.Time = t.UTC().Truncate(time.Millisecond)
			return nil
		}
	}
	return fmt.Errorf("invalid date %q, expected YYYY-MM-DD or RFC 3339", s)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Time.Format(time.RFC3339))
}

// Ptr returns nil for a nil Date, else a pointer to its time.
func (d *Date) Ptr() *time.Time {
	if d == nil || d.IsZero() {
		return nil
	}
	t := d.Time
	return &t
}
