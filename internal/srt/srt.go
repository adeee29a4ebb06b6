package srt

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"resplice/internal/cue"
)

// ReadFile loads and parses an SRT file.
func ReadFile(path, fallbackEncoding string) ([]cue.Cue, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read srt: %w", err)
	}
	text, err := Decode(data, fallbackEncoding)
	if err != nil {
		return nil, fmt.Errorf("read srt %s: %w", path, err)
	}
	return Parse(text), nil
}

// Parse extracts cues from decoded SRT content. Malformed blocks are skipped.
func Parse(content string) []cue.Cue {
	content = strings.TrimSpace(strings.ReplaceAll(content, "\r\n", "\n"))
	if content == "" {
		return nil
	}

	var cues []cue.Cue
	for _, block := range splitBlocks(content) {
		lines := strings.Split(block, "\n")
		if len(lines) < 2 {
			continue
		}

		var index int
		if _, err := fmt.Sscanf(strings.TrimSpace(lines[0]), "%d", &index); err != nil {
			continue
		}

		parts := strings.Split(lines[1], "-->")
		if len(parts) != 2 {
			continue
		}
		start, err := ParseTimestamp(parts[0])
		if err != nil {
			continue
		}
		end, err := ParseTimestamp(firstField(parts[1]))
		if err != nil {
			continue
		}

		cues = append(cues, cue.Cue{
			Index: index,
			Start: start,
			End:   end,
			Text:  strings.Join(lines[2:], "\n"),
		})
	}
	return cues
}

func splitBlocks(content string) []string {
	var blocks []string
	for _, block := range strings.Split(content, "\n\n") {
		block = strings.Trim(block, "\n")
		if strings.TrimSpace(block) != "" {
			blocks = append(blocks, block)
		}
	}
	return blocks
}

// firstField drops positional suffixes like "X1:40 X2:600" after the end time.
func firstField(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// ParseTimestamp parses "HH:MM:SS,mmm"; a period separator is also accepted.
func ParseTimestamp(value string) (time.Duration, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, fmt.Errorf("empty timestamp")
	}
	value = strings.ReplaceAll(value, ".", ",")
	timeParts := strings.Split(value, ",")
	if len(timeParts) != 2 {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	hms := strings.Split(timeParts[0], ":")
	if len(hms) != 3 {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	hours, errH := strconv.Atoi(hms[0])
	minutes, errM := strconv.Atoi(hms[1])
	seconds, errS := strconv.Atoi(hms[2])
	millis, errMS := strconv.Atoi(timeParts[1])
	if errH != nil || errM != nil || errS != nil || errMS != nil {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	if hours < 0 || minutes < 0 || seconds < 0 || millis < 0 {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	return time.Duration(hours)*time.Hour +
		time.Duration(minutes)*time.Minute +
		time.Duration(seconds)*time.Second +
		time.Duration(millis)*time.Millisecond, nil
}

// FormatTimestamp renders d as "HH:MM:SS,mmm". Negative values clamp to zero.
func FormatTimestamp(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	msTotal := int64((d + time.Millisecond/2) / time.Millisecond)
	hours := msTotal / 3_600_000
	msTotal %= 3_600_000
	minutes := msTotal / 60_000
	msTotal %= 60_000
	secs := msTotal / 1_000
	millis := msTotal % 1_000
	return fmt.Sprintf("%02d:%02d:%02d,%03d", hours, minutes, secs, millis)
}

// Format renders cues as SRT content.
func Format(cues []cue.Cue) string {
	var sb strings.Builder
	for i, c := range cues {
		if i > 0 {
			sb.WriteString("\n")
		}
		fmt.Fprintf(&sb, "%d\n", c.Index)
		fmt.Fprintf(&sb, "%s --> %s\n", FormatTimestamp(c.Start), FormatTimestamp(c.End))
		sb.WriteString(c.Text)
		sb.WriteString("\n")
	}
	return sb.String()
}

// WriteFile writes cues to path.
func WriteFile(path string, cues []cue.Cue) error {
	return os.WriteFile(path, []byte(Format(cues)), 0o644)
}
