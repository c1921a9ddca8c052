// Package parser turns free-form request lines such as "Artist - Title"
// into match queries.
package parser

import (
	"bufio"
	"regexp"
	"strings"

	"github.com/gndm/catalogmatch/internal/match"
)

// bracketNoise matches bracketed tags that are not part of a track title,
// as found in pasted video titles and chat messages.
var bracketNoise = regexp.MustCompile(`(?i)\s*[\(\[](official\s*(music\s*|lyric\s*)?video|official\s*audio|lyrics?\s*(video)?|audio|hd|hq|4k|mv|visuali[sz]er|feat\.?[^\)\]]*|ft\.?[^\)\]]*|prod\.?[^\)\]]*)[\)\]]`)

// listMarker matches bullets and numbering at the start of a line.
var listMarker = regexp.MustCompile(`^\s*(?:[-*•]\s+|\d{1,3}[.)]\s+)`)

// featPattern normalizes featured artist notation.
var featPattern = regexp.MustCompile(`(?i)\s*\b(feat\.?|ft\.?)\s+`)

// delimiters in priority order.
var delimiters = []string{" - ", " – ", " — ", " | ", " ~ ", "\t"}

// quotedPattern matches Artist "Title" with straight or curly quotes.
var quotedPattern = regexp.MustCompile("^(.+?)\\s+[\"“](.+?)[\"”]$")

// byPattern matches "Title by Artist".
var byPattern = regexp.MustCompile(`(?i)^(.+?)\s+by\s+(.+)$`)

var extraWhitespace = regexp.MustCompile(`\s{2,}`)

// Parse splits a request line into artist and title. When no artist can be
// found the whole cleaned line becomes the title, which still works as a
// search query.
func Parse(line string) match.Query {
	cleaned := clean(line)

	for _, delim := range delimiters {
		if idx := strings.Index(cleaned, delim); idx > 0 {
			a := strings.TrimSpace(cleaned[:idx])
			t := strings.TrimSpace(cleaned[idx+len(delim):])
			if a != "" && t != "" {
				return query(a, t)
			}
		}
	}

	if m := quotedPattern.FindStringSubmatch(cleaned); m != nil {
		return query(m[1], m[2])
	}

	if m := byPattern.FindStringSubmatch(cleaned); m != nil {
		return query(m[2], m[1])
	}

	return match.Query{Title: normalizeFeat(cleaned)}
}

// ParseLines parses one query per non-blank line. Lines starting with '#'
// are comments.
func ParseLines(text string) []match.Query {
	var queries []match.Query
	sc := bufio.NewScanner(strings.NewReader(text))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if q := Parse(line); q.Title != "" || q.Artist != "" {
			queries = append(queries, q)
		}
	}
	return queries
}

func query(artist, title string) match.Query {
	return match.Query{
		Artist: normalizeFeat(strings.TrimSpace(artist)),
		Title:  normalizeFeat(strings.TrimSpace(title)),
	}
}

func clean(line string) string {
	s := listMarker.ReplaceAllString(line, "")
	s = bracketNoise.ReplaceAllString(s, "")
	s = extraWhitespace.ReplaceAllStringFunc(s, func(ws string) string {
		if strings.Contains(ws, "\t") {
			return "\t"
		}
		return " "
	})
	return strings.TrimSpace(s)
}

// normalizeFeat standardizes "feat." and "ft." to "feat.".
func normalizeFeat(s string) string {
	return strings.TrimSpace(featPattern.ReplaceAllString(s, " feat. "))
}
