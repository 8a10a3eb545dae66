package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Number is a request quantity that accepts either a JSON number or a numeric string.
// Non-finite values are rejected while decoding.
type Number float64

// UnmarshalJSON implements json.Unmarshaler
func (n *Number) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return fmt.Errorf("%q is not a number", s)
		}
		return n.set(v)
	}

	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("%s is not a number", string(data))
	}
	return n.set(v)
}

func (n *Number) set(v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("%v is not a finite number", v)
	}
	*n = Number(v)
	return nil
}

// Float64Ptr converts an optional Number to an optional float64
func (n *Number) Float64Ptr() *float64 {
	if n == nil {
		return nil
	}
	v := float64(*n)
	return &v
}
