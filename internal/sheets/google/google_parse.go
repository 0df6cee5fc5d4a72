package google

import "fmt"

// toStrings converts a Sheets values matrix into strings. Numeric cells come
// back as float64 and are printed with two decimals.
func toStrings(values [][]interface{}) [][]string {
	out := make([][]string, 0, len(values))
	for _, row := range values {
		r := make([]string, len(row))
		for i, v := range row {
			switch x := v.(type) {
			case string:
				r[i] = x
			case float64:
				r[i] = fmt.Sprintf("%.2f", x)
			default:
				r[i] = fmt.Sprint(x)
			}
		}
		out = append(out, r)
	}
	return out
}

func toValues(rows [][]string) [][]interface{} {
	out := make([][]interface{}, 0, len(rows))
	for _, row := range rows {
		r := make([]interface{}, len(row))
		for i, v := range row {
			r[i] = v
		}
		out = append(out, r)
	}
	return out
}
