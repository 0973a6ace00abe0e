package domain

import "regexp"

// Pair is a currency pair in "SRC/TGT" form, e.g. "GBP/EUR".
type Pair string

var pairRe = regexp.MustCompile(`^[A-Z]{3}/[A-Z]{3}$`)

func NewPair(source, target string) Pair {
	return Pair(source + "/" + target)
}

func (p Pair) Source() string { return string(p)[:3] }
func (p Pair) Target() string { return string(p)[4:] }

// ValidatePair checks format, supported currencies and disallows
// identical source/target.
func ValidatePair(p string) bool {
	if !pairRe.MatchString(p) {
		return false
	}
	source := p[:3]
	target := p[4:]
	return IsSupportedCurrency(source) && IsSupportedCurrency(target) && source != target
}

// SplitPair returns the two legs of a pair string, ok=false on bad format.
func SplitPair(p string) (source, target string, ok bool) {
	if !pairRe.MatchString(p) {
		return "", "", false
	}
	return p[:3], p[4:], true
}

// Inverse flips the pair, e.g. GBP/EUR -> EUR/GBP.
func (p Pair) Inverse() Pair {
	return NewPair(p.Target(), p.Source())
}
