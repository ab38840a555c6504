// Package sampler provides the value sources an agent can be bound to.
package sampler

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/NetCenter-Dev/Fetcher/internal/domain"
)

// coerce converts a numeric or textual observation to the Go type
// domain.EncodeValue expects for t. Void agents always get nil.
func coerce(t domain.ValueType, v any) (any, error) {
	switch t {
	case domain.TypeVoid:
		return nil, nil
	case domain.TypeString:
		if s, ok := v.(string); ok {
			return s, nil
		}
		return fmt.Sprint(v), nil
	}

	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case float32:
		f = float64(x)
	case int:
		f = float64(x)
	case int8:
		f = float64(x)
	case int16:
		f = float64(x)
	case int32:
		f = float64(x)
	case int64:
		f = float64(x)
	case uint8:
		f = float64(x)
	case uint16:
		f = float64(x)
	case uint32:
		f = float64(x)
	case uint64:
		f = float64(x)
	case bool:
		if x {
			f = 1
		}
	case string:
		return parseText(t, x)
	default:
		return nil, fmt.Errorf("cannot use %T as %s", v, t)
	}

	if t == domain.TypeDouble {
		return f, nil
	}
	r := math.Round(f)
	if r < math.MinInt32 || r > math.MaxInt32 {
		return nil, fmt.Errorf("%v out of int range", v)
	}
	return int32(r), nil
}

// parseText reads a value of type t from a line of program output.
func parseText(t domain.ValueType, s string) (any, error) {
	s = strings.TrimSpace(s)
	switch t {
	case domain.TypeVoid:
		return nil, nil
	case domain.TypeString:
		return s, nil
	case domain.TypeInt:
		n, err := strconv.ParseInt(s, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("int value expected, got %q", s)
		}
		return int32(n), nil
	case domain.TypeDouble:
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("double value expected, got %q", s)
		}
		return f, nil
	default:
		return nil, fmt.Errorf("unknown value type %d", t)
	}
}
