package table

import "strconv"

// Typed accessors for row values. ISS delivers numbers as JSON numbers and
// everything else as strings or null; accessors tolerate both encodings so
// domain mappers stay short. Missing columns and nulls yield zero values.

// String returns the value of col as a string.
func (r Row) String(col string) string {
	switch v := r[col].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return ""
	}
}

// Float returns the value of col as a float64.
func (r Row) Float(col string) float64 {
	switch v := r[col].(type) {
	case float64:
		return v
	case string:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}

// Int returns the value of col as an int64, truncating fractional parts.
func (r Row) Int(col string) int64 {
	return int64(r.Float(col))
}

// Bool returns the value of col interpreted as an ISS flag: the number 1 or
// the string "1" means true.
func (r Row) Bool(col string) bool {
	switch v := r[col].(type) {
	case float64:
		return v == 1
	case string:
		return v == "1"
	default:
		return false
	}
}

// IsNull reports whether col is absent or null.
func (r Row) IsNull(col string) bool {
	v, ok := r[col]
	return !ok || v == nil
}
