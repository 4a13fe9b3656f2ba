package catalog

import (
	"regexp"
	"slices"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/language"
)

// PickOptions carry the disambiguation hints for selecting a printing.
type PickOptions struct {
	Foil         bool
	SetCode      string
	Year         int
	PreferOldest bool
}

// Pick is the chosen printing together with how contested the choice
// was. MatchCount feeds the confidence gate; Pool keeps the surviving
// candidates for art-level refinement.
type Pick struct {
	Printing   *Printing
	MatchCount int
	Pool       []Printing
}

var nonDigits = regexp.MustCompile(`[^0-9]`)

// NormalizeCollector lowercases a collector number, removes whitespace,
// and strips leading zeros so OCR variants compare equal.
func NormalizeCollector(s string) string {
	s = strings.ToLower(s)
	s = strings.Join(strings.Fields(s), "")
	return strings.TrimLeft(s, "0")
}

// PickPrinting selects the best printing for a collector number from a
// full prints list. Non-playable set types and token layouts are
// dropped; an exact normalized collector match is preferred with a
// digits-only retry for OCR stragglers; set and year hints narrow the
// pool only when they still leave a match; the requested finish is
// preferred; ties break English first, non-promo second, then release
// date (newest first unless PreferOldest).
func PickPrinting(prints []Printing, collectorNumber string, opts PickOptions) Pick {
	target := NormalizeCollector(collectorNumber)
	if target == "" {
		return Pick{}
	}

	candidates := make([]Printing, 0, len(prints))
	for _, p := range prints {
		setType := strings.ToLower(p.SetType)
		if setType == "token" || setType == "memorabilia" || setType == "art_series" {
			continue
		}
		if strings.ToLower(p.Layout) == "token" {
			continue
		}
		candidates = append(candidates, p)
	}

	exact := filterPrintings(candidates, func(p Printing) bool {
		return NormalizeCollector(p.CollectorNumber) == target
	})
	if len(exact) == 0 {
		targetDigits := nonDigits.ReplaceAllString(target, "")
		if targetDigits != "" {
			exact = filterPrintings(candidates, func(p Printing) bool {
				return nonDigits.ReplaceAllString(NormalizeCollector(p.CollectorNumber), "") == targetDigits
			})
		}
	}

	if opts.SetCode != "" {
		want := strings.ToLower(opts.SetCode)
		bySet := filterPrintings(exact, func(p Printing) bool {
			return strings.ToLower(p.Set) == want
		})
		if len(bySet) > 0 {
			exact = bySet
		}
	}

	if opts.Year > 1900 && opts.Year < 2100 {
		byYear := filterPrintings(exact, func(p Printing) bool {
			year, ok := releaseYear(p)
			if !ok {
				return true
			}
			diff := year - opts.Year
			return diff >= -1 && diff <= 1
		})
		if len(byYear) > 0 {
			exact = byYear
		}
	}

	if len(exact) == 0 {
		return Pick{}
	}

	wantFinish := "nonfoil"
	if opts.Foil {
		wantFinish = "foil"
	}
	pool := filterPrintings(exact, func(p Printing) bool {
		return slices.Contains(p.Finishes, wantFinish)
	})
	if len(pool) == 0 {
		pool = exact
	}

	sort.SliceStable(pool, func(i, j int) bool {
		iEnglish, jEnglish := isEnglish(pool[i].Lang), isEnglish(pool[j].Lang)
		if iEnglish != jEnglish {
			return iEnglish
		}
		if pool[i].Promo != pool[j].Promo {
			return !pool[i].Promo
		}
		iDate, jDate := releaseDate(pool[i]), releaseDate(pool[j])
		if opts.PreferOldest {
			return iDate.Before(jDate)
		}
		return iDate.After(jDate)
	})

	return Pick{Printing: &pool[0], MatchCount: len(pool), Pool: pool}
}

func filterPrintings(prints []Printing, keep func(Printing) bool) []Printing {
	var out []Printing
	for _, p := range prints {
		if keep(p) {
			out = append(out, p)
		}
	}
	return out
}

func isEnglish(lang string) bool {
	tag, err := language.Parse(lang)
	if err != nil {
		return false
	}
	base, _ := tag.Base()
	return base.String() == "en"
}

func releaseYear(p Printing) (int, bool) {
	if len(p.ReleasedAt) < 4 {
		return 0, false
	}
	year, err := strconv.Atoi(p.ReleasedAt[:4])
	if err != nil {
		return 0, false
	}
	return year, true
}

func releaseDate(p Printing) time.Time {
	t, err := time.Parse("2006-01-02", p.ReleasedAt)
	if err != nil {
		return time.Time{}
	}
	return t
}
