package common

import (
	"strconv"
	"strings"
	"time"
)

// Duration accepts a bare number of seconds ("60", "2.5") or a Go duration string ("5m").
type Duration time.Duration

func (d *Duration) UnmarshalText(b []byte) error {
	s := strings.TrimSpace(string(b))

	if secs, err := strconv.ParseFloat(s, 64); err == nil {
		*d = Duration(secs * float64(time.Second))
		return nil
	}

	dd, err := time.ParseDuration(s)
	if err != nil {
		return err
	}

	*d = Duration(dd)
	return nil
}

func (d Duration) String() string {
	return time.Duration(d).String()
}
