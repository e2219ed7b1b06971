package utils

import "strconv"

// FmtMemory renders a byte count as a compound human-readable string.
func FmtMemory(bytes uintptr) string {
	b := int(bytes)

	const (
		KB = 1024
		MB = KB * 1024
		GB = MB * 1024
	)
	switch {
	case b >= GB:
		g := b / GB
		rem := b % GB
		return strconv.Itoa(g) + "GB " +
			strconv.Itoa(rem/MB) + "MB " +
			strconv.Itoa((rem%MB)/KB) + "KB " +
			strconv.Itoa(rem%KB) + "B"
	case b >= MB:
		m := b / MB
		rem := b % MB
		return strconv.Itoa(m) + "MB " +
			strconv.Itoa(rem/KB) + "KB " +
			strconv.Itoa(rem%KB) + "B"
	case b >= KB:
		return strconv.Itoa(b/KB) + "KB " + strconv.Itoa(b%KB) + "B"
	default:
		return strconv.Itoa(b) + "B"
	}
}
