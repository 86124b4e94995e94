// Package listing renders a hex-dump style assembly listing, grounded on
// the teacher's dumpSymbolTable formatted-table style.
package listing

import (
	"fmt"
	"strings"
)

// Write renders data as a listing with bytesPerRow bytes per line, each
// line prefixed with its offset into data in hex.
func Write(data []byte, bytesPerRow int) string {
	if bytesPerRow <= 0 {
		bytesPerRow = 8
	}
	var sb strings.Builder
	for offset := 0; offset < len(data); offset += bytesPerRow {
		end := offset + bytesPerRow
		if end > len(data) {
			end = len(data)
		}
		row := data[offset:end]
		fmt.Fprintf(&sb, "%06X:", offset)
		for _, b := range row {
			fmt.Fprintf(&sb, " %02X", b)
		}
		sb.WriteString("\n")
	}
	return sb.String()
}
