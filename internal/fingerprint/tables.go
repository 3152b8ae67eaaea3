package fingerprint

// invisible lists single zero-width, directional and filler code points.
// Variation selectors and tag characters are matched by range in
// isInvisible.
var invisible = map[rune]bool{
	// zero width
	0x200B: true, 0x200C: true, 0x200D: true, 0x200E: true, 0x200F: true,
	0xFEFF: true, 0x00AD: true,
	// joiners and invisible operators
	0x2060: true, 0x2061: true, 0x2062: true, 0x2063: true, 0x2064: true, 0x2065: true,
	// directional embeddings and overrides
	0x202A: true, 0x202B: true, 0x202C: true, 0x202D: true, 0x202E: true,
	// directional isolates
	0x2066: true, 0x2067: true, 0x2068: true, 0x2069: true,
	// deprecated shaping controls
	0x206A: true, 0x206B: true, 0x206C: true, 0x206D: true, 0x206E: true, 0x206F: true,
	// mongolian selectors and vowel separator
	0x180B: true, 0x180C: true, 0x180D: true, 0x180E: true,
	// fillers and marks
	0x034F: true, 0x061C: true, 0x115F: true, 0x1160: true, 0x17B4: true, 0x17B5: true,
	0x3164: true, 0xFFA0: true,
	// interlinear annotation
	0xFFF9: true, 0xFFFA: true, 0xFFFB: true,
}

func isInvisible(r rune) bool {
	switch {
	case r >= 0xFE00 && r <= 0xFE0F: // variation selectors
		return true
	case r >= 0xE0100 && r <= 0xE01EF: // variation selectors supplement
		return true
	case r >= 0xE0000 && r <= 0xE007F: // tags
		return true
	}
	return invisible[r]
}

// spaces are folded to U+0020.
var spaces = map[rune]bool{
	0x00A0: true, 0x1680: true,
	0x2000: true, 0x2001: true, 0x2002: true, 0x2003: true, 0x2004: true, 0x2005: true,
	0x2006: true, 0x2007: true, 0x2008: true, 0x2009: true, 0x200A: true,
	0x202F: true, 0x205F: true, 0x3000: true,
}

// homoglyphs maps look-alike code points to their ASCII form. U+0060 is
// ASCII and never folded.
var homoglyphs = map[rune]rune{
	// cyrillic lowercase
	'а': 'a', 'с': 'c', 'е': 'e', 'һ': 'h', 'і': 'i', 'ј': 'j',
	'о': 'o', 'р': 'p', 'ѕ': 's', 'х': 'x', 'у': 'y', 'ӏ': 'l',
	// cyrillic uppercase
	'А': 'A', 'В': 'B', 'С': 'C', 'Е': 'E', 'Н': 'H', 'І': 'I',
	'Ј': 'J', 'К': 'K', 'М': 'M', 'О': 'O', 'Р': 'P', 'Ѕ': 'S',
	'Т': 'T', 'Х': 'X', 'У': 'Y',
	// greek
	'α': 'a', 'ε': 'e', 'ι': 'i', 'κ': 'k', 'ν': 'v', 'ο': 'o',
	'ρ': 'p', 'υ': 'u', 'χ': 'x',
	'Α': 'A', 'Β': 'B', 'Ε': 'E', 'Η': 'H', 'Ι': 'I', 'Κ': 'K',
	'Μ': 'M', 'Ν': 'N', 'Ο': 'O', 'Ρ': 'P', 'Τ': 'T', 'Χ': 'X',
	'Υ': 'Y', 'Ζ': 'Z',
	// other scripts
	'ԁ': 'd', 'ո': 'n',
	// dashes
	'—': '-', '–': '-', '‐': '-', '‑': '-', '‒': '-', '―': '-',
	// quotes and primes
	'‘': '\'', '’': '\'', '‚': '\'', '‛': '\'',
	'“': '"', '”': '"', '„': '"', '‟': '"',
	'′': '\'', '″': '"', '‵': '\'', '‶': '"',
	'«': '"', '»': '"', '‹': '\'', '›': '\'',
	'ʼ': '\'', 'ʻ': '\'', '´': '\'',
	// math operators
	'−': '-', '∗': '*', '∕': '/', '⁄': '/', '∶': ':',
	// fullwidth punctuation
	'！': '!', '＂': '"', '＃': '#', '＄': '$', '％': '%', '＆': '&',
	'＇': '\'', '（': '(', '）': ')', '＊': '*', '＋': '+', '，': ',',
	'－': '-', '．': '.', '／': '/', '：': ':', '；': ';', '＜': '<',
	'＝': '=', '＞': '>', '？': '?', '＠': '@', '［': '[', '＼': '\\',
	'］': ']', '＾': '^', '＿': '_', '｀': '`', '｛': '{', '｜': '|',
	'｝': '}', '～': '~',
}
