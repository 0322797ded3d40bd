package metar

import "strings"

// phenomena maps each two-letter present-weather code to its phrase.
// Proximity and recency qualifiers are peeled like any other code.
var phenomena = map[string]string{
	// precipitation
	"DZ": "Drizzle",
	"RA": "Rain",
	"SN": "Snow",
	"SG": "Snow Grains",
	"IC": "Ice Crystals",
	"PL": "Ice Pellets",
	"GR": "Hail",
	"GS": "Small Hail or Snow Pellets",
	"UP": "Unknown Precipitation",
	// obscuration
	"BR": "Mist",
	"FG": "Fog",
	"FU": "Smoke",
	"VA": "Volcanic Ash",
	"DU": "Widespread Dust",
	"SA": "Sand",
	"HZ": "Haze",
	"PY": "Spray",
	// other
	"PO": "Dust/Sand Whirls",
	"SQ": "Squalls",
	"FC": "Funnel Cloud",
	"SS": "Sandstorm",
	"DS": "Duststorm",
	// descriptors and qualifiers
	"SH": "Showers of",
	"TS": "Thunderstorm",
	"BL": "Blowing",
	"MI": "Shallow",
	"BC": "Patches",
	"PR": "Partial",
	"DR": "Low Drifting",
	"FZ": "Freezing",
	"VC": "In the Vicinity",
	"RE": "Recent",
}

// codeTrie is a byte-wise prefix tree over weather codes. Lookups return
// the longest code that prefixes the input, so the result never depends on
// map iteration order.
type codeTrie struct {
	root *trieNode
}

type trieNode struct {
	children map[byte]*trieNode
	phrase   string
	terminal bool
}

func newCodeTrie(codes map[string]string) *codeTrie {
	t := &codeTrie{root: &trieNode{}}
	for code, phrase := range codes {
		n := t.root
		for i := 0; i < len(code); i++ {
			if n.children == nil {
				n.children = make(map[byte]*trieNode)
			}
			next, ok := n.children[code[i]]
			if !ok {
				next = &trieNode{}
				n.children[code[i]] = next
			}
			n = next
		}
		n.phrase = phrase
		n.terminal = true
	}
	return t
}

// longestPrefix returns the length and phrase of the longest code that
// prefixes s.
func (t *codeTrie) longestPrefix(s string) (int, string, bool) {
	n := t.root
	bestLen, bestPhrase, found := 0, "", false
	for i := 0; i < len(s); i++ {
		next, ok := n.children[s[i]]
		if !ok {
			break
		}
		n = next
		if n.terminal {
			bestLen, bestPhrase, found = i+1, n.phrase, true
		}
	}
	return bestLen, bestPhrase, found
}

// describeWeather decodes a present-weather group such as -SHRA into
// "Light Showers of Rain". It reports false when any part of the group is
// not a known code.
func (l *Lexicon) describeWeather(tok string) (string, bool) {
	intensity := ""
	switch {
	case strings.HasPrefix(tok, "+"):
		intensity, tok = "Heavy ", tok[1:]
	case strings.HasPrefix(tok, "-"):
		intensity, tok = "Light ", tok[1:]
	}
	if tok == "" {
		return "", false
	}

	var parts []string
	for tok != "" {
		n, phrase, ok := l.weather.longestPrefix(tok)
		if !ok {
			return "", false
		}
		parts = append(parts, phrase)
		tok = tok[n:]
	}
	return intensity + strings.Join(parts, " "), true
}

func (l *Lexicon) isWeather(tok string) bool {
	_, ok := l.describeWeather(tok)
	return ok
}
