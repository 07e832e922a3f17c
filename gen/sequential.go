package gen

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/syssam/dynafix/schema"
	"github.com/syssam/dynafix/schema/field"
)

// numbering returns the sequence number used to generate a value for f.
type numbering func(t *Table, f *schema.Field) int64

// Sequential returns a strategy where every field has its own sequence,
// advanced on every generated value.
func Sequential(opts ...Option) *Table {
	return sequential("sequential", func(t *Table, f *schema.Field) int64 {
		return t.counter.Next(key(f))
	}, opts)
}

// StaticSequential returns a strategy where unique fields advance their
// sequence and all other fields repeat the current value.
func StaticSequential(opts ...Option) *Table {
	return sequential("static_sequential", func(t *Table, f *schema.Field) int64 {
		if f.Unique {
			return t.counter.Next(key(f))
		}
		return t.counter.Current(key(f))
	}, opts)
}

// GlobalSequential returns a strategy where all fields share one sequence.
func GlobalSequential(opts ...Option) *Table {
	return sequential("global_sequential", func(t *Table, _ *schema.Field) int64 {
		return t.counter.Next("global")
	}, opts)
}

func sequential(name string, next numbering, opts []Option) *Table {
	t := NewTable(name, opts...)
	ints := map[*field.Type]func(int64) any{
		field.TypeInt:    func(n int64) any { return int(n) },
		field.TypeInt8:   func(n int64) any { return int8(n % math.MaxInt8) },
		field.TypeInt16:  func(n int64) any { return int16(n % math.MaxInt16) },
		field.TypeInt32:  func(n int64) any { return int32(n % math.MaxInt32) },
		field.TypeInt64:  func(n int64) any { return n },
		field.TypeUint:   func(n int64) any { return uint(n) },
		field.TypeUint8:  func(n int64) any { return uint8(n % math.MaxUint8) },
		field.TypeUint16: func(n int64) any { return uint16(n % math.MaxUint16) },
		field.TypeUint32: func(n int64) any { return uint32(n % math.MaxUint32) },
		field.TypeUint64: func(n int64) any { return uint64(n) },
	}
	for typ, conv := range ints {
		t.Register(typ, func(f *schema.Field) (any, error) {
			return conv(next(t, f)), nil
		})
	}
	t.Register(field.TypeFloat64, func(f *schema.Field) (any, error) {
		return float64(next(t, f)), nil
	})
	t.Register(field.TypeFloat32, func(f *schema.Field) (any, error) {
		return float32(next(t, f)), nil
	})
	t.Register(field.TypeDecimal, func(f *schema.Field) (any, error) {
		n := next(t, f)
		if max, ok := pow10(f.Precision - f.Scale); ok {
			n %= max
		}
		return decimal.NewFromInt(n), nil
	})
	t.Register(field.TypeString, func(f *schema.Field) (any, error) {
		n := next(t, f)
		if max, ok := pow10(f.MaxLen); ok {
			n %= max - 1
		}
		return strconv.FormatInt(n, 10), nil
	})
	t.Register(field.TypeSlug, func(f *schema.Field) (any, error) {
		return truncate(fmt.Sprintf("slug-%d", next(t, f)), f.MaxLen), nil
	})
	t.Register(field.TypeEmail, func(f *schema.Field) (any, error) {
		return fmt.Sprintf("a%d@example.com", next(t, f)), nil
	})
	t.Register(field.TypeURL, func(f *schema.Field) (any, error) {
		return fmt.Sprintf("http://example%d.com", next(t, f)), nil
	})
	t.Register(field.TypeIP, func(f *schema.Field) (any, error) {
		n := next(t, f)
		return fmt.Sprintf("10.%d.%d.%d", (n>>16)%256, (n>>8)%256, n%256), nil
	})
	t.Register(field.TypeFile, func(f *schema.Field) (any, error) {
		return truncate(fmt.Sprintf("file%d.txt", next(t, f)), f.MaxLen), nil
	})
	t.Register(field.TypeBool, func(*schema.Field) (any, error) {
		return false, nil
	})
	t.Register(field.TypeTime, func(f *schema.Field) (any, error) {
		return t.clock().Add(-time.Duration(next(t, f)) * time.Second), nil
	})
	t.Register(field.TypeDate, func(f *schema.Field) (any, error) {
		return today(t.clock()).AddDate(0, 0, -int(next(t, f))), nil
	})
	registerCommon(t)
	return t
}

// registerCommon registers the types generated the same way by all strategies.
func registerCommon(t *Table) {
	t.Register(field.TypeUUID, func(*schema.Field) (any, error) {
		return uuid.New(), nil
	})
	t.Register(field.TypeBytes, func(*schema.Field) (any, error) {
		return []byte{0x00, 0x46, 0xFE}, nil
	})
	t.Register(field.TypeJSON, func(*schema.Field) (any, error) {
		return map[string]any{}, nil
	})
}

// pow10 returns 10^n if it fits in an int64 and n is positive.
func pow10(n int) (int64, bool) {
	if n <= 0 || n > 18 {
		return 0, false
	}
	p := int64(1)
	for range n {
		p *= 10
	}
	return p, true
}

func truncate(s string, n int) string {
	if n > 0 && len(s) > n {
		return s[len(s)-n:]
	}
	return s
}

func today(now time.Time) time.Time {
	y, m, d := now.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, now.Location())
}
