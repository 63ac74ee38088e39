package main

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// overlayAt composites the overlay string on top of the background at
// position (x, y). Lines of the overlay that fall outside the background
// are dropped.
func overlayAt(bg, overlay string, x, y int) string {
	bgLines := strings.Split(bg, "\n")
	for i, line := range strings.Split(overlay, "\n") {
		row := y + i
		if row < 0 || row >= len(bgLines) {
			continue
		}
		bgLines[row] = spliceLineAt(bgLines[row], line, x)
	}
	return strings.Join(bgLines, "\n")
}

// spliceLineAt replaces the visible columns of bgLine covered by overlay.
// Escape sequences on either side of the overlay are kept; those under it
// are dropped.
func spliceLineAt(bgLine, overlay string, x int) string {
	w := lipgloss.Width(overlay)
	runes := []rune(bgLine)
	var prefix, suffix strings.Builder
	col := 0
	for i := 0; i < len(runes); {
		if runes[i] == '\x1b' {
			end := escapeEnd(runes, i)
			seq := string(runes[i:end])
			switch {
			case col < x:
				prefix.WriteString(seq)
			case col >= x+w:
				suffix.WriteString(seq)
			}
			i = end
			continue
		}
		switch {
		case col < x:
			prefix.WriteRune(runes[i])
		case col >= x+w:
			suffix.WriteRune(runes[i])
		}
		col++
		i++
	}
	// pad a short background line out to x
	for ; col < x; col++ {
		prefix.WriteByte(' ')
	}
	return prefix.String() + overlay + suffix.String()
}

// escapeEnd returns the index just past the escape sequence starting at i.
func escapeEnd(runes []rune, i int) int {
	j := i + 1
	if j >= len(runes) || runes[j] != '[' {
		return min(j+1, len(runes))
	}
	for j++; j < len(runes); j++ {
		if runes[j] >= 0x40 && runes[j] <= 0x7e {
			return j + 1
		}
	}
	return len(runes)
}
