// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package parquetio

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/grailbio/filemanager/errors"
)

// valueKind classifies the Go values a record may hold.
type valueKind int

const (
	kindNull valueKind = iota
	kindBool
	kindInt
	kindFloat
	kindString
	kindBytes
	kindTime
	kindUnsupported
)

func kindOf(v interface{}) valueKind {
	switch v.(type) {
	case nil:
		return kindNull
	case bool:
		return kindBool
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return kindInt
	case float32, float64:
		return kindFloat
	case string:
		return kindString
	case []byte:
		return kindBytes
	case time.Time:
		return kindTime
	}
	return kindUnsupported
}

// inferType returns the column type of the given kinds.
func inferType(col string, kinds map[valueKind]bool) (arrow.DataType, error) {
	delete(kinds, kindNull)
	if kinds[kindUnsupported] {
		return nil, errors.E(errors.Invalid, fmt.Sprintf("column %s: unsupported value type", col))
	}
	switch {
	case len(kinds) == 0:
		return arrow.BinaryTypes.String, nil
	case len(kinds) == 1 && kinds[kindBool]:
		return arrow.FixedWidthTypes.Boolean, nil
	case len(kinds) == 1 && kinds[kindInt]:
		return arrow.PrimitiveTypes.Int64, nil
	case kindsOnly(kinds, kindInt, kindFloat):
		return arrow.PrimitiveTypes.Float64, nil
	case len(kinds) == 1 && kinds[kindString]:
		return arrow.BinaryTypes.String, nil
	case len(kinds) == 1 && kinds[kindBytes]:
		return arrow.BinaryTypes.Binary, nil
	case len(kinds) == 1 && kinds[kindTime]:
		return arrow.FixedWidthTypes.Timestamp_us, nil
	}
	return nil, errors.E(errors.Invalid, fmt.Sprintf("column %s: values of mixed types", col))
}

func kindsOnly(kinds map[valueKind]bool, allowed ...valueKind) bool {
	n := 0
	for _, k := range allowed {
		if kinds[k] {
			n++
		}
	}
	return n > 0 && n == len(kinds)
}

// inferSchema derives a file schema from a batch of records. Columns are
// sorted by name; the partition columns are left out.
func inferSchema(recs []map[string]interface{}, partitions map[string]bool) (*arrow.Schema, error) {
	kinds := make(map[string]map[valueKind]bool)
	for _, rec := range recs {
		for col, v := range rec {
			if partitions[col] {
				continue
			}
			if kinds[col] == nil {
				kinds[col] = make(map[valueKind]bool)
			}
			kinds[col][kindOf(v)] = true
		}
	}
	cols := make([]string, 0, len(kinds))
	for col := range kinds {
		cols = append(cols, col)
	}
	sort.Strings(cols)
	fields := make([]arrow.Field, len(cols))
	for i, col := range cols {
		typ, err := inferType(col, kinds[col])
		if err != nil {
			return nil, err
		}
		fields[i] = arrow.Field{Name: col, Type: typ, Nullable: true}
	}
	return arrow.NewSchema(fields, nil), nil
}

func toInt64(v interface{}) (int64, bool) {
	switch v := v.(type) {
	case int:
		return int64(v), true
	case int8:
		return int64(v), true
	case int16:
		return int64(v), true
	case int32:
		return int64(v), true
	case int64:
		return v, true
	case uint:
		return int64(v), uint64(v) <= math.MaxInt64
	case uint8:
		return int64(v), true
	case uint16:
		return int64(v), true
	case uint32:
		return int64(v), true
	case uint64:
		return int64(v), v <= math.MaxInt64
	}
	return 0, false
}

func toFloat64(v interface{}) (float64, bool) {
	switch v := v.(type) {
	case float32:
		return float64(v), true
	case float64:
		return v, true
	}
	if kindOf(v) == kindInt {
		switch v := v.(type) {
		case uint:
			return float64(v), true
		case uint64:
			return float64(v), true
		}
		i, _ := toInt64(v)
		return float64(i), true
	}
	return 0, false
}

// appendValue appends v to the builder of a column of type typ, widening
// integers into floating point columns.
func appendValue(b array.Builder, field arrow.Field, v interface{}) error {
	if v == nil {
		b.AppendNull()
		return nil
	}
	ok := false
	switch b := b.(type) {
	case *array.BooleanBuilder:
		var x bool
		if x, ok = v.(bool); ok {
			b.Append(x)
		}
	case *array.Int64Builder:
		var x int64
		if x, ok = toInt64(v); ok {
			b.Append(x)
		}
	case *array.Float64Builder:
		var x float64
		if x, ok = toFloat64(v); ok {
			b.Append(x)
		}
	case *array.StringBuilder:
		var x string
		if x, ok = v.(string); ok {
			b.Append(x)
		}
	case *array.BinaryBuilder:
		var x []byte
		if x, ok = v.([]byte); ok {
			b.Append(x)
		}
	case *array.TimestampBuilder:
		var x time.Time
		if x, ok = v.(time.Time); ok {
			b.Append(arrow.Timestamp(x.UnixMicro()))
		}
	}
	if !ok {
		return errors.E(errors.Invalid, fmt.Sprintf("column %s: value %v of type %T does not fit %s", field.Name, v, v, field.Type))
	}
	return nil
}

// value returns row i of column a as a Go value.
func value(a arrow.Array, i int) interface{} {
	if a.IsNull(i) {
		return nil
	}
	switch a := a.(type) {
	case *array.Boolean:
		return a.Value(i)
	case *array.Int64:
		return a.Value(i)
	case *array.Int32:
		return int64(a.Value(i))
	case *array.Float64:
		return a.Value(i)
	case *array.Float32:
		return float64(a.Value(i))
	case *array.String:
		return a.Value(i)
	case *array.Binary:
		return append([]byte(nil), a.Value(i)...)
	case *array.Timestamp:
		unit := a.DataType().(*arrow.TimestampType).Unit
		return a.Value(i).ToTime(unit).UTC()
	}
	return a.ValueStr(i)
}
