package canonical

// foldRange maps a contiguous block of decorative unicode letters onto the
// plain ASCII alphabet. Blocks whose length is a multiple of 26 (the
// mathematical alphanumeric planes) wrap with modulo so a single entry can
// cover several styled alphabets at once.
type foldRange struct {
	lo, hi rune
	base   rune
	modulo bool
}

// fancyRanges covers the styled-alphabet blocks: circled, parenthesized,
// fullwidth, the mathematical bold/italic/script/fraktur/double-struck/
// sans/monospace planes, the mathematical Greek planes, negative circled
// and squared capitals, and regional indicators. Each folds to a-z.
var fancyRanges = []foldRange{
	{0x249C, 0x24B5, 'a', false}, // parenthesized a-z
	{0x24B6, 0x24CF, 'a', false}, // circled A-Z
	{0x24D0, 0x24E9, 'a', false}, // circled a-z
	{0xFF21, 0xFF3A, 'a', false}, // fullwidth A-Z
	{0xFF41, 0xFF5A, 'a', false}, // fullwidth a-z
	{0x1D400, 0x1D6A3, 'a', true}, // mathematical Latin, 26 alphabets back to back
	{0x1D6A4, 0x1D6A5, 'i', false}, // dotless i, j
	// mathematical Greek: folded sequentially onto a-z the same way the
	// plain Greek look-alike table is, alpha->a, beta->b, and so on.
	{0x1D6A8, 0x1D6C0, 'a', false},
	{0x1D6C2, 0x1D6DA, 'a', false},
	{0x1D6DC, 0x1D6E1, 'a', false},
	{0x1D6E2, 0x1D6FA, 'a', false},
	{0x1D6FC, 0x1D714, 'a', false},
	{0x1D716, 0x1D71B, 'a', false},
	{0x1D71C, 0x1D734, 'a', false},
	{0x1D736, 0x1D74E, 'a', false},
	{0x1D750, 0x1D755, 'a', false},
	{0x1D756, 0x1D76E, 'a', false},
	{0x1D770, 0x1D788, 'a', false},
	{0x1D78A, 0x1D78F, 'a', false},
	{0x1D790, 0x1D7A8, 'a', false},
	{0x1D7AA, 0x1D7C2, 'a', false},
	{0x1D7C4, 0x1D7C9, 'a', false},
	{0x1F150, 0x1F169, 'a', false}, // negative circled A-Z
	{0x1F170, 0x1F189, 'a', false}, // negative squared A-Z
	{0x1F1E6, 0x1F1FF, 'a', false}, // regional indicator symbols
}

// lookalikes folds single code points that visually impersonate ASCII
// letters: Greek, Cyrillic, letterlike symbols, Glagolitic, Old Italic,
// super/subscript modifiers, and a handful of symbols commonly used as
// letter stand-ins. Values are strings because a few circled ideographs
// expand to whole words.
var lookalikes = map[rune]string{
	// Greek
	'Α': "a", 'Β': "b", 'Ε': "e", 'Ζ': "z", 'Η': "h", 'Ι': "i", 'Κ': "k", 'Μ': "m",
	'Ν': "n", 'Ο': "o", 'Ρ': "p", 'Τ': "t", 'Υ': "y", 'Χ': "x", 'Γ': "g", 'Δ': "d",
	'Θ': "t", 'Λ': "l", 'Ξ': "x", 'Π': "p", 'Σ': "s", 'Φ': "f", 'Ψ': "p", 'Ω': "w",
	'α': "a", 'β': "b", 'γ': "g", 'δ': "d", 'ε': "e", 'ζ': "z", 'η': "h", 'θ': "t",
	'ι': "i", 'κ': "k", 'λ': "l", 'μ': "m", 'ν': "n", 'ξ': "x", 'ο': "o", 'π': "p",
	'ρ': "r", 'σ': "s", 'ς': "s", 'τ': "t", 'υ': "y", 'φ': "f", 'χ': "x", 'ψ': "p",
	'ω': "w",
	// Cyrillic
	'А': "a", 'В': "b", 'Е': "e", 'К': "k", 'М': "m", 'Н': "h", 'О': "o", 'Р': "p",
	'С': "c", 'Т': "t", 'У': "y", 'Х': "x", 'Ѕ': "s", 'І': "i", 'Ј': "j", 'Ґ': "g",
	'Ғ': "f", 'Ҝ': "k", 'Ӏ': "i", 'Ӧ': "o", 'Ӱ': "y",
	'а': "a", 'в': "b", 'е': "e", 'к': "k", 'м': "m", 'н': "h", 'о': "o", 'р': "p",
	'с': "c", 'т': "t", 'у': "y", 'х': "x", 'ѕ': "s", 'і': "i", 'ј': "j", 'ԁ': "d",
	'ԍ': "g", 'ԛ': "q", 'ԝ': "w", 'ҝ': "k", 'ӏ': "i", 'ӧ': "o", 'ӱ': "y",
	// letterlike symbols
	'Ꝋ': "o", 'ꝋ': "o", 'Ᏽ': "g", 'ℊ': "g", 'ℎ': "h", 'ℏ': "h", 'ℓ': "l", 'ℯ': "e",
	'ℴ': "o", 'ℹ': "i", 'ℼ': "p", 'ℽ': "p", 'ℾ': "p", 'ℿ': "p", 'ⅅ': "d", 'ⅆ': "d",
	'ⅇ': "e", 'ⅈ': "i", 'ⅉ': "j", 'ℂ': "c", 'ℍ': "h", 'ℕ': "n", 'ℙ': "p", 'ℚ': "q",
	'ℝ': "r", 'ℤ': "z",
	// Glagolitic
	'Ⰰ': "a", 'Ⰱ': "b", 'Ⰲ': "v", 'Ⰳ': "g", 'Ⰴ': "d", 'Ⰵ': "e", 'Ⰶ': "z", 'Ⰸ': "i",
	'Ⰹ': "i", 'Ⰺ': "j", 'Ⰻ': "k", 'Ⰼ': "l", 'Ⰽ': "m", 'Ⰾ': "n", 'Ⰿ': "o", 'Ⱀ': "p",
	'Ⱁ': "r", 'Ⱂ': "s", 'Ⱃ': "t", 'Ⱄ': "u",
	// Old Italic
	'𐌀': "a", '𐌁': "b", '𐌂': "c", '𐌃': "d", '𐌄': "e", '𐌅': "f", '𐌆': "z", '𐌇': "h",
	'𐌈': "i", '𐌉': "i", '𐌊': "k", '𐌋': "l", '𐌌': "m", '𐌍': "n", '𐌏': "o", '𐌐': "p",
	'𐌑': "q", '𐌒': "r", '𐌓': "s", '𐌔': "t", '𐌕': "t", '𐌖': "v", '𐌗': "x", '𐌵': "u",
	// superscript modifiers
	'ᵃ': "a", 'ᵇ': "b", 'ᶜ': "c", 'ᵈ': "d", 'ᵉ': "e", 'ᶠ': "f", 'ᵍ': "g", 'ʰ': "h",
	'ⁱ': "i", 'ʲ': "j", 'ᵏ': "k", 'ˡ': "l", 'ᵐ': "m", 'ⁿ': "n", 'ᵒ': "o", 'ᵖ': "p",
	'ʳ': "r", 'ˢ': "s", 'ᵗ': "t", 'ᵘ': "u", 'ᵛ': "v", 'ʷ': "w", 'ˣ': "x", 'ʸ': "y",
	'ᶻ': "z",
	// subscript letters
	'ₐ': "a", 'ₑ': "e", 'ₕ': "h", 'ᵢ': "i", 'ⱼ': "j", 'ₖ': "k", 'ₗ': "l", 'ₘ': "m",
	'ₙ': "n", 'ₒ': "o", 'ₚ': "p", 'ᵣ': "r", 'ₛ': "s", 'ₜ': "t", 'ᵤ': "u", 'ᵥ': "v",
	'ₓ': "x",
	// symbol stand-ins
	'♠': "s", '♣': "c", '♥': "h", '♦': "d", '★': "s", '☆': "s", '▪': "i",
	'●': "o", '○': "o", '◉': "o", '◐': "o", '◑': "o", '◒': "o", '◓': "o",
	'◔': "o", '◕': "o", '◖': "o", '◗': "o",
	'〇': "o",
	'㊀': "zero", '㊁': "one", '㊂': "two", '㊃': "three", '㊄': "four",
	'㊅': "five", '㊆': "six", '㊇': "seven", '㊈': "eight", '㊉': "nine",
}

// latinFold catches accented Latin letters that survive NFD mark stripping
// (precomposed forms with no decomposition, ligatures, and a few stragglers
// from Latin Extended-A).
var latinFold = map[rune]rune{
	'ā': 'a', 'ă': 'a', 'ą': 'a', 'ǎ': 'a', 'ǻ': 'a', 'à': 'a', 'á': 'a', 'â': 'a',
	'ã': 'a', 'ä': 'a', 'å': 'a', 'æ': 'a',
	'ē': 'e', 'ĕ': 'e', 'ė': 'e', 'ę': 'e', 'ě': 'e', 'è': 'e', 'é': 'e', 'ê': 'e', 'ë': 'e',
	'ī': 'i', 'ĭ': 'i', 'į': 'i', 'ı': 'i', 'ì': 'i', 'í': 'i', 'î': 'i', 'ï': 'i', 'ĩ': 'i',
	'ō': 'o', 'ŏ': 'o', 'ő': 'o', 'ǒ': 'o', 'ǿ': 'o', 'ø': 'o', 'ò': 'o', 'ó': 'o',
	'ô': 'o', 'õ': 'o', 'ö': 'o', 'œ': 'o',
	'ū': 'u', 'ŭ': 'u', 'ů': 'u', 'ű': 'u', 'ų': 'u', 'ù': 'u', 'ú': 'u', 'û': 'u',
	'ü': 'u', 'ũ': 'u',
	'ñ': 'n', 'ń': 'n', 'ņ': 'n', 'ň': 'n', 'ŋ': 'n',
	'ç': 'c', 'ć': 'c', 'ĉ': 'c', 'ċ': 'c', 'č': 'c',
	'ś': 's', 'ŝ': 's', 'ş': 's', 'š': 's', 'ß': 's',
	'ý': 'y', 'ÿ': 'y', 'ŷ': 'y',
	'ğ': 'g', 'ĝ': 'g', 'ģ': 'g',
	'ż': 'z', 'ź': 'z', 'ž': 'z',
	'ð': 'd', 'þ': 'd',
}

// symbolFold maps currency signs, math operators, and punctuation used as
// letter substitutes ($ for s, @ for a, ! for i) onto the letter they
// imitate, plus superscript and subscript digits onto the leetspeak
// alphabet.
var symbolFold = map[rune]rune{
	'Ø': 'o', '∅': 'o', '⊘': 'o', '⌀': 'o',
	'@': 'a', '&': 'a', '₳': 'a', 'Ⱥ': 'a',
	'₿': 'b', '฿': 'b',
	'¢': 'c', '₡': 'c', '₵': 'c', '₢': 'c',
	'₫': 'd',
	'€': 'e', '₤': 'e', '£': 'e', '₠': 'e',
	'₣': 'f',
	'₲': 'g',
	'₴': 'h',
	'₱': 'p', '₧': 'p',
	'₹': 'r', '₨': 'r',
	'$': 's', '₷': 's',
	'₮': 't', '₸': 't',
	'₦': 'n',
	'₩': 'w',
	'¥': 'y', '₺': 'y',
	'!': 'i', '¡': 'i', '|': 'i',
	'×': 'x', '∗': 'x', '∘': 'x', '⊗': 'x', '⊕': 'x',
	'#': 'h',
	'%': 'o', '‰': 'o',
	'+': 't',
	'~': 'n', '≈': 'n',
	'°': 'o',
	'¹': 'i', '²': 'z', '³': 'e', '⁴': 'a', '⁵': 's', '⁶': 'g', '⁷': 't', '⁸': 'b',
	'⁹': 'g', '⁰': 'o',
	'₀': 'o', '₁': 'i', '₂': 'z', '₃': 'e', '₄': 'a', '₅': 's', '₆': 'g', '₇': 't',
	'₈': 'b', '₉': 'g',
	'０': 'o', '１': 'i', '２': 'z', '３': 'e', '４': 'a', '５': 's', '６': 'g',
	'７': 't', '８': 'b', '９': 'g',
}

// leetFold decodes digit-for-letter substitution.
var leetFold = map[rune]rune{
	'0': 'o', '1': 'i', '2': 'z', '3': 'e', '4': 'a',
	'5': 's', '6': 'g', '7': 't', '8': 'b', '9': 'g',
}

// strippedPunct is deleted outright inside the fold loop rather than
// folded to a letter.
var strippedPunct = map[rune]bool{
	'.': true, ',': true, ':': true, ';': true, '\'': true, '"': true,
	'<': true, '>': true, '?': true, '{': true, '}': true, '[': true,
	']': true, '(': true, ')': true, '/': true, '\\': true, '*': true,
	'-': true, '_': true,
}

// abbreviations expands whole-word coded spellings to the phrase they
// stand for, so two-letter codes hit the same keywords as the long form.
var abbreviations = map[string]string{
	"tt": "tite",
	"pp": "pepe",
	"tn": "tanginamo",
	"tg": "tangina",
	"gg": "gago",
	"pt": "puta",
	"bs": "bobo",
	"ts": "tarantado",
}
