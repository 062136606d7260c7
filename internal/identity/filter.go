package identity

import (
	"fmt"
	"regexp"
	"strings"
)

// Token tables for the price-irrelevant vocabulary of German-language
// marketplace titles, plus the English and French spillover that shows up in
// cross-border listings. Tables are diacritic-folded (ae/oe/ue/ss); Strip
// folds its input the same way so ASCII word boundaries hold.

var colorWords = []string{
	// German
	"schwarz", "weiss", "grau", "silber", "gold", "rot", "blau", "gruen",
	"gelb", "braun", "rosa", "pink", "lila", "violett", "tuerkis", "beige",
	"anthrazit", "mitternacht", "polarstern",
	// English
	"black", "white", "gray", "grey", "silver", "golden", "red", "blue",
	"green", "yellow", "brown", "purple", "midnight", "starlight", "graphite",
	// French
	"noir", "blanc", "gris", "argent", "rouge", "bleu", "vert", "jaune",
	"rose", "violet",
}

var conditionPhrases = []string{
	"top zustand", "sehr guter zustand", "guter zustand", "wie neu",
	"neu & ovp", "neu und ovp", "neu ovp", "like new", "very good condition",
	"good condition", "etat neuf", "comme neuf",
}

var conditionWords = []string{
	"neuwertig", "gebraucht", "defekt", "defective", "ovp",
	"originalverpackung", "originalverpackt", "neu", "new", "used", "mint",
	"refurbished", "generalueberholt", "bastler", "bastlerware",
	"ungetragen", "unbenutzt",
}

var marketingPhrases = []string{
	"inkl. zubehoer", "inkl zubehoer", "mit zubehoer", "mit rechnung",
	"mit garantie", "free shipping", "fast shipping", "top angebot",
}

var marketingWords = []string{
	"top", "original", "rechnung", "garantie", "gewaehrleistung",
	"blitzversand", "versandkostenfrei", "sofortversand", "raritaet",
	"selten", "mega", "super", "wow", "look", "angebot", "schnaeppchen",
	"tausch", "sammlung",
}

var sizePatterns = []*regexp.Regexp{
	// Gr. 42, Groesse 38, size 10, EU 42
	regexp.MustCompile(`(?i)\b(?:gr(?:oesse)?\.?|groesse|size|eu)\s*\d{1,3}\b`),
	// Groesse M, size L
	regexp.MustCompile(`(?i)\b(?:gr(?:oesse)?\.?|groesse|size)\s*(?:xs|s|m|l|xl|xxl|xxxl)\b`),
	// standalone letter sizes; bare s/m/l stay, they collide with model names
	regexp.MustCompile(`(?i)\b(?:xs|xl|xxl|xxxl|2xl|3xl)\b`),
	// UK 9, US 10.5 shoe sizes
	regexp.MustCompile(`(?i)\b(?:uk|us)\s*\d{1,2}(?:[.,]5)?\b`),
}

// keepPatterns guard value-forming tokens for gear where weight, diameter and
// material decide the price. Matches are masked during removal and restored
// afterwards.
var keepPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b\d{1,3}(?:[.,]\d{1,2})?\s*kg\b`),
	regexp.MustCompile(`(?i)\b\d{1,3}(?:[.,]\d{1,2})?\s*cm\b`),
	regexp.MustCompile(`(?i)\b(?:gusseisen|cast iron|stahl|steel|neopren|vinyl|beton|competition)\b`),
}

var diacriticFolder = strings.NewReplacer(
	"ä", "ae", "ö", "oe", "ü", "ue", "Ä", "Ae", "Ö", "Oe", "Ü", "Ue",
	"ß", "ss", "é", "e", "è", "e", "ê", "e", "É", "E", "à", "a", "ç", "c",
)

func foldDiacritics(s string) string {
	return diacriticFolder.Replace(s)
}

// FilterResult is the cleaned text plus the tokens that were removed, in
// removal order.
type FilterResult struct {
	Cleaned string
	Removed []string
}

// Filter strips price-irrelevant tokens from listing text. Removal order is
// fixed: colors, then condition, then sizes, then marketing noise.
type Filter struct {
	colorRe      []*regexp.Regexp
	condPhrase   []*regexp.Regexp
	condWord     []*regexp.Regexp
	marketPhrase []*regexp.Regexp
	marketWord   []*regexp.Regexp
}

func NewFilter() *Filter {
	return &Filter{
		colorRe:      compileWords(colorWords),
		condPhrase:   compilePhrases(conditionPhrases),
		condWord:     compileWords(conditionWords),
		marketPhrase: compilePhrases(marketingPhrases),
		marketWord:   compileWords(marketingWords),
	}
}

// Strip removes the irrelevant vocabulary from text. When preserveUnits is
// set (fitness gear), weight, diameter and material tokens survive every
// removal pass.
func (f *Filter) Strip(text string, preserveUnits bool) FilterResult {
	res := FilterResult{}
	work := foldDiacritics(text)

	var masks []string
	if preserveUnits {
		work, masks = maskKeepTokens(work)
	}

	for _, re := range f.colorRe {
		work = removeAll(work, re, &res.Removed)
	}
	for _, re := range f.condPhrase {
		work = removeAll(work, re, &res.Removed)
	}
	for _, re := range f.condWord {
		work = removeAll(work, re, &res.Removed)
	}
	for _, re := range sizePatterns {
		work = removeAll(work, re, &res.Removed)
	}
	for _, re := range f.marketPhrase {
		work = removeAll(work, re, &res.Removed)
	}
	for _, re := range f.marketWord {
		work = removeAll(work, re, &res.Removed)
	}

	work = unmaskKeepTokens(work, masks)
	res.Cleaned = collapseSpaces(work)
	return res
}

func removeAll(text string, re *regexp.Regexp, removed *[]string) string {
	for _, m := range re.FindAllString(text, -1) {
		*removed = append(*removed, strings.ToLower(strings.TrimSpace(m)))
	}
	return re.ReplaceAllString(text, " ")
}

func maskKeepTokens(text string) (string, []string) {
	var kept []string
	for _, re := range keepPatterns {
		text = re.ReplaceAllStringFunc(text, func(m string) string {
			kept = append(kept, m)
			return fmt.Sprintf(" KEEPTOK%d ", len(kept)-1)
		})
	}
	return text, kept
}

func unmaskKeepTokens(text string, kept []string) string {
	for i, tok := range kept {
		text = strings.Replace(text, fmt.Sprintf("KEEPTOK%d", i), tok, 1)
	}
	return text
}

var punctRuns = regexp.MustCompile(`\s*([,;:])(?:\s*[,;:])*\s*`)

func collapseSpaces(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	// punctuation stranded by token removal
	s = punctRuns.ReplaceAllString(s, "$1 ")
	s = strings.Trim(s, " ,.;:-()[]")
	return s
}

func compileWords(words []string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(words))
	for _, w := range words {
		out = append(out, regexp.MustCompile(`(?i)\b`+regexp.QuoteMeta(w)+`\b`))
	}
	return out
}

func compilePhrases(phrases []string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(phrases))
	for _, p := range phrases {
		pattern := strings.ReplaceAll(regexp.QuoteMeta(p), ` `, `\s+`)
		out = append(out, regexp.MustCompile(`(?i)\b`+pattern+`\b`))
	}
	return out
}
