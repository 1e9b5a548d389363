package structurer

import "strings"

// citation marker scanning.
//
// A marker is an ASCII bracket pair whose content is one or more positive
// integers separated by commas and/or spaces: [3], [1, 4], [ 2 , 7 ].
// Bracketed text containing anything else (e.g. "[sic]") is not a marker and
// is left untouched. Bracket pairs that only hold digits, commas and spaces
// but still fail to parse (e.g. "[]", "[,]") are reported as malformed.

type citationScan struct {
	// Cleaned is the input with every well-formed marker removed and
	// whitespace runs collapsed to single spaces.
	Cleaned string
	// Refs holds the citation numbers in order of appearance, duplicates kept.
	Refs []int
	// Malformed holds the raw text of bracket groups that looked like
	// citation markers but could not be parsed.
	Malformed []string
}

// scanCitations walks text once, extracting citation numbers and stripping
// the markers they came from.
func scanCitations(text string) citationScan {
	var out strings.Builder
	scan := citationScan{}

	i := 0
	for i < len(text) {
		c := text[i]
		if c != '[' {
			out.WriteByte(c)
			i++
			continue
		}

		end, refs, isMarker, ok := parseMarker(text, i)
		if !isMarker {
			// Not citation-shaped, keep the bracket as content.
			out.WriteByte(c)
			i++
			continue
		}
		if !ok {
			scan.Malformed = append(scan.Malformed, text[i:end])
			out.WriteString(text[i:end])
			i = end
			continue
		}
		scan.Refs = append(scan.Refs, refs...)
		i = end
	}

	scan.Cleaned = collapseSpaces(out.String())
	return scan
}

// parseMarker attempts to read a citation marker starting at the '[' at
// position start. It returns the position just past the closing bracket,
// the parsed numbers, whether the bracket group is citation-shaped (only
// digits, commas and spaces up to a closing bracket), and whether it parsed
// into at least one number.
func parseMarker(text string, start int) (end int, refs []int, isMarker bool, ok bool) {
	i := start + 1
	num := 0
	haveDigit := false

	for i < len(text) {
		c := text[i]
		switch {
		case c >= '0' && c <= '9':
			num = num*10 + int(c-'0')
			haveDigit = true
			i++
		case c == ',' || c == ' ' || c == '\t':
			if haveDigit {
				refs = append(refs, num)
				num = 0
				haveDigit = false
			}
			i++
		case c == ']':
			if haveDigit {
				refs = append(refs, num)
			}
			return i + 1, refs, true, len(refs) > 0
		default:
			// Some other character: this bracket group is ordinary text.
			return start, nil, false, false
		}
	}
	// Unterminated bracket, treat as ordinary text.
	return start, nil, false, false
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
