package timeline

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// WriteSRT writes cues as a SubRip file, numbering them from 1. Timestamps are
// written as given.
func WriteSRT(w io.Writer, cues []SubtitleCue) error {
	for i, c := range cues {
		if i > 0 {
			if _, err := io.WriteString(w, "\n"); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintf(w, "%d\n%s --> %s\n%s\n", i+1, c.Start, c.End, c.Text); err != nil {
			return err
		}
	}
	return nil
}

// ReadSRT parses a SubRip file. Blocks without a timing line are skipped;
// multi-line cue text is joined with a space.
func ReadSRT(r io.Reader) ([]SubtitleCue, error) {
	scanner := bufio.NewScanner(r)
	var (
		cues    []SubtitleCue
		current *SubtitleCue
		text    []string
	)

	flush := func() {
		if current != nil {
			current.Text = strings.Join(text, " ")
			cues = append(cues, *current)
		}
		current = nil
		text = nil
	}

	for scanner.Scan() {
		line := strings.TrimSpace(strings.TrimPrefix(scanner.Text(), "\uFEFF"))
		switch {
		case line == "":
			flush()
		case current == nil && strings.Contains(line, "-->"):
			start, end, _ := strings.Cut(line, "-->")
			// position metadata may follow the end timestamp
			end = strings.TrimSpace(end)
			if i := strings.IndexAny(end, " \t"); i >= 0 {
				end = end[:i]
			}
			current = &SubtitleCue{Start: strings.TrimSpace(start), End: end}
		case current == nil:
			// cue index
		default:
			text = append(text, line)
		}
	}
	flush()

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read srt: %w", err)
	}
	return cues, nil
}
