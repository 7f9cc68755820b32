package mention

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Mentions holds the recipients found in a text. The lists are disjoint and de-duplicated.
type Mentions struct {
	Users    []string `json:"users"`
	Channels []string `json:"channels"`
	Emails   []string `json:"emails"`
}

// Empty reports whether nothing was found.
func (m Mentions) Empty() bool {
	return len(m.Users) == 0 && len(m.Channels) == 0 && len(m.Emails) == 0
}

var (
	emailRe     = regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`)
	fullEmailRe = regexp.MustCompile(`^[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}$`)
	channelRe   = regexp.MustCompile(`^#([\p{L}\p{N}_-]+)`)
)

// closers end a name: sentence punctuation, closing brackets and quotes.
const closers = ".!?;:)]}\"'»”’“‘"

// Scan extracts user mentions, channel mentions and e-mail addresses from text.
// knownNames are display names that may contain lowercase words; the longest one that
// matches after an @ wins. Without a match a name is the run of capitalised words.
func Scan(text string, knownNames ...string) Mentions {
	var m Mentions
	seenUser := make(map[string]struct{})
	seenChan := make(map[string]struct{})
	seenMail := make(map[string]struct{})

	for _, addr := range emailRe.FindAllString(text, -1) {
		if _, ok := seenMail[addr]; ok {
			continue
		}
		seenMail[addr] = struct{}{}
		m.Emails = append(m.Emails, addr)
	}

	known := sortedByLength(knownNames)
	for i := 0; i < len(text); i++ {
		c := text[i]
		if c != '@' && c != '#' {
			continue
		}
		if !mentionStart(text[:i]) {
			continue
		}
		switch c {
		case '#':
			if sm := channelRe.FindStringSubmatch(text[i:]); sm != nil {
				if _, ok := seenChan[sm[1]]; !ok {
					seenChan[sm[1]] = struct{}{}
					m.Channels = append(m.Channels, sm[1])
				}
				i += len(sm[0]) - 1
			}
		case '@':
			name := userName(text[i+1:], known)
			if name == "" {
				continue
			}
			if _, ok := seenUser[name]; !ok {
				seenUser[name] = struct{}{}
				m.Users = append(m.Users, name)
			}
		}
	}
	return m
}

// mentionStart reports whether a trigger may start right after prefix:
// at the start, after whitespace, a comma, an opening bracket or a quote.
func mentionStart(prefix string) bool {
	if prefix == "" {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(prefix)
	return unicode.IsSpace(r) || r == ',' || r == '"' || r == '\'' ||
		unicode.In(r, unicode.Ps, unicode.Pi)
}

func sortedByLength(names []string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			out = append(out, n)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return len(out[i]) > len(out[j]) })
	return out
}

func userName(rest string, known []string) string {
	for _, name := range known {
		if len(rest) < len(name) || !strings.EqualFold(rest[:len(name)], name) {
			continue
		}
		if nameBoundary(rest[len(name):]) {
			return name
		}
	}

	var words []string
	for {
		word, tail, last := nextWord(rest)
		if !nameWord(word, len(words) == 0) {
			break
		}
		words = append(words, word)
		if last || tail == "" {
			break
		}
		r, size := utf8.DecodeRuneInString(tail)
		if !unicode.IsSpace(r) {
			break
		}
		rest = tail[size:]
	}
	return strings.Join(words, " ")
}

// nextWord cuts the leading word off s. last is set when trailing punctuation or a comma
// ends the name.
func nextWord(s string) (word, tail string, last bool) {
	end := strings.IndexFunc(s, func(r rune) bool { return unicode.IsSpace(r) || r == ',' })
	if end < 0 {
		word, tail = s, ""
	} else {
		word, tail = s[:end], s[end:]
		last = s[end] == ','
	}
	trimmed := strings.TrimRight(word, closers)
	if trimmed != word {
		last = true
	}
	return trimmed, tail, last
}

func nameWord(word string, first bool) bool {
	if word == "" || fullEmailRe.MatchString(word) {
		return false
	}
	r, _ := utf8.DecodeRuneInString(word)
	if !unicode.IsLetter(r) {
		return false
	}
	if !first && !unicode.IsUpper(r) {
		return false
	}
	for _, r := range word {
		if !unicode.IsLetter(r) && !unicode.Is(unicode.Mn, r) && r != '-' {
			return false
		}
	}
	return true
}

func nameBoundary(s string) bool {
	if s == "" {
		return true
	}
	r, _ := utf8.DecodeRuneInString(s)
	return unicode.IsSpace(r) || r == ',' || strings.ContainsRune(closers, r)
}
