package output

import "fmt"

// ToMB converts a byte count to mebibytes.
func ToMB(bytes int64) float64 {
	return float64(bytes) / 1024 / 1024
}

// FileStatus renders the one-line summary printed after each file, e.g.
//
//	cover.jpg                                                 00.01 of 00.01 MB [100%]
//
// A non-positive total is shown as 100% of what was written.
func FileStatus(name string, written, total int64) string {
	if total <= 0 {
		total = written
	}
	percent := 100.0
	if total > 0 {
		percent = float64(written) * 100 / float64(total)
	}
	return fmt.Sprintf("%-50s        %05.2f of %05.2f MB [%3d%%]", name, ToMB(written), ToMB(total), int(percent))
}
