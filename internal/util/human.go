package util

import "fmt"

// Human formats a byte count with binary units, e.g. "1.50 KB".
func Human(n int64) string {
	if n < 1024 {
		return fmt.Sprintf("%d B", n)
	}

	v := float64(n)
	for _, unit := range []string{"KB", "MB", "GB"} {
		v /= 1024
		if v < 1024 || unit == "GB" {
			return fmt.Sprintf("%.2f %s", v, unit)
		}
	}

	return fmt.Sprintf("%d B", n)
}
