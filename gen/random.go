package gen

import (
	"fmt"
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/syssam/dynafix/schema"
	"github.com/syssam/dynafix/schema/field"
)

const (
	alphanumeric = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	letters      = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

	defaultLength = 10
	maxRandom     = 1_000_000
)

// Random returns a strategy producing random values. Values of unique
// fields may collide.
func Random(opts ...Option) *Table {
	t := NewTable("random", opts...)
	ints := map[*field.Type]func(int64) any{
		field.TypeInt:    func(n int64) any { return int(n) },
		field.TypeInt8:   func(n int64) any { return int8(n % math.MaxInt8) },
		field.TypeInt16:  func(n int64) any { return int16(n % math.MaxInt16) },
		field.TypeInt32:  func(n int64) any { return int32(n) },
		field.TypeInt64:  func(n int64) any { return n },
		field.TypeUint:   func(n int64) any { return uint(n) },
		field.TypeUint8:  func(n int64) any { return uint8(n % math.MaxUint8) },
		field.TypeUint16: func(n int64) any { return uint16(n % math.MaxUint16) },
		field.TypeUint32: func(n int64) any { return uint32(n) },
		field.TypeUint64: func(n int64) any { return uint64(n) },
	}
	for typ, conv := range ints {
		t.Register(typ, func(*schema.Field) (any, error) {
			return conv(1 + t.intN(maxRandom)), nil
		})
	}
	t.Register(field.TypeFloat64, func(*schema.Field) (any, error) {
		return float64(1+t.intN(maxRandom)) + t.float(), nil
	})
	t.Register(field.TypeFloat32, func(*schema.Field) (any, error) {
		return float32(1 + t.intN(maxRandom)), nil
	})
	t.Register(field.TypeDecimal, func(f *schema.Field) (any, error) {
		n := 1 + t.intN(maxRandom)
		if max, ok := pow10(f.Precision - f.Scale); ok {
			n %= max
		}
		return decimal.NewFromInt(n), nil
	})
	t.Register(field.TypeString, func(f *schema.Field) (any, error) {
		return t.randomString(alphanumeric, length(f)), nil
	})
	t.Register(field.TypeEmail, func(*schema.Field) (any, error) {
		return fmt.Sprintf("a%s@example.com", t.randomString(alphanumeric, defaultLength)), nil
	})
	t.Register(field.TypeURL, func(*schema.Field) (any, error) {
		return fmt.Sprintf("http://example%s.com", t.randomString(alphanumeric, defaultLength)), nil
	})
	t.Register(field.TypeIP, func(*schema.Field) (any, error) {
		return fmt.Sprintf("%d.%d.%d.%d", 1+t.intN(254), t.intN(256), t.intN(256), 1+t.intN(254)), nil
	})
	t.Register(field.TypeBool, func(*schema.Field) (any, error) {
		return t.intN(2) == 0, nil
	})
	t.Register(field.TypeTime, func(*schema.Field) (any, error) {
		return t.clock().Add(-time.Duration(1+t.intN(36500)) * time.Second), nil
	})
	t.Register(field.TypeDate, func(*schema.Field) (any, error) {
		return today(t.clock()).AddDate(0, 0, -int(1+t.intN(36500))), nil
	})
	registerCommon(t)
	return t
}

// objectCount is the number of values per field the unique random strategy
// can produce before uniqueness is no longer guaranteed.
const objectCount = 512

// UniqueRandom returns a strategy producing random values that stay unique
// per field for the first 512 values: each value is drawn from a range
// reserved for its position in the field sequence.
func UniqueRandom(opts ...Option) *Table {
	t := NewTable("unique_random", opts...)
	var warned sync.Map
	next := func(f *schema.Field) int64 {
		n := t.counter.Next(key(f))
		if n > objectCount {
			if _, loaded := warned.LoadOrStore(key(f), true); !loaded {
				t.logger.Warn("unique random values exhausted, uniqueness is not guaranteed",
					"field", key(f), "max", objectCount)
			}
		}
		return n
	}
	// integer draws a random number from the window reserved for position n.
	integer := func(n int64, max int64) int64 {
		window := max / objectCount
		slot := (n - 1) % objectCount
		return window*slot + 1 + t.intN(window-1)
	}
	ints := map[*field.Type]func(int64) any{
		field.TypeInt:    func(n int64) any { return int(integer(n, 1<<15)) },
		field.TypeInt8:   func(n int64) any { return int8(n % math.MaxInt8) },
		field.TypeInt16:  func(n int64) any { return int16(integer(n, 1<<15)) },
		field.TypeInt32:  func(n int64) any { return int32(integer(n, 1<<15)) },
		field.TypeInt64:  func(n int64) any { return integer(n, 1<<15) },
		field.TypeUint:   func(n int64) any { return uint(integer(n, 1<<16)) },
		field.TypeUint8:  func(n int64) any { return uint8(n % math.MaxUint8) },
		field.TypeUint16: func(n int64) any { return uint16(integer(n, 1<<16) % math.MaxUint16) },
		field.TypeUint32: func(n int64) any { return uint32(integer(n, 1<<16)) },
		field.TypeUint64: func(n int64) any { return uint64(integer(n, 1<<16)) },
	}
	for typ, conv := range ints {
		t.Register(typ, func(f *schema.Field) (any, error) {
			return conv(next(f)), nil
		})
	}
	t.Register(field.TypeFloat64, func(f *schema.Field) (any, error) {
		return float64(integer(next(f), 1<<15)) + t.float(), nil
	})
	t.Register(field.TypeFloat32, func(f *schema.Field) (any, error) {
		return float32(integer(next(f), 1<<15)), nil
	})
	t.Register(field.TypeDecimal, func(f *schema.Field) (any, error) {
		n := integer(next(f), 1<<15)
		if max, ok := pow10(f.Precision - f.Scale); ok {
			n %= max
		}
		return decimal.NewFromInt(n), nil
	})
	t.Register(field.TypeString, func(f *schema.Field) (any, error) {
		prefix := strconv.FormatInt(next(f), 10)
		n := length(f) - len(prefix)
		if n < 0 {
			return truncate(prefix, length(f)), nil
		}
		return prefix + t.randomString(letters, n), nil
	})
	t.Register(field.TypeEmail, func(f *schema.Field) (any, error) {
		return fmt.Sprintf("a%d%s@example.com", next(f), t.randomString(letters, 4)), nil
	})
	t.Register(field.TypeURL, func(f *schema.Field) (any, error) {
		return fmt.Sprintf("http://example%d%s.com", next(f), t.randomString(letters, 4)), nil
	})
	t.Register(field.TypeIP, func(f *schema.Field) (any, error) {
		n := next(f)
		return fmt.Sprintf("10.%d.%d.%d", t.intN(256), (n>>8)%256, n%256), nil
	})
	t.Register(field.TypeBool, func(f *schema.Field) (any, error) {
		switch next(f) {
		case 1:
			return true, nil
		case 2:
			return false, nil
		default:
			return t.intN(2) == 0, nil
		}
	})
	t.Register(field.TypeTime, func(f *schema.Field) (any, error) {
		return t.clock().Add(-time.Duration(integer(next(f), 1<<15)) * time.Second), nil
	})
	t.Register(field.TypeDate, func(f *schema.Field) (any, error) {
		return today(t.clock()).AddDate(0, 0, -int(next(f))), nil
	})
	registerCommon(t)
	return t
}

// length returns the length of generated strings for f.
func length(f *schema.Field) int {
	if f.MaxLen > 0 && f.MaxLen < defaultLength {
		return f.MaxLen
	}
	return defaultLength
}

func (t *Table) randomString(charset string, n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = charset[t.intN(int64(len(charset)))]
	}
	return string(b)
}
