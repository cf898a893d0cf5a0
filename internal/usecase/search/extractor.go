package search

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/kailas-cloud/prodsearch/internal/domain"
	"github.com/kailas-cloud/prodsearch/internal/domain/product"
	"github.com/kailas-cloud/prodsearch/internal/domain/search/filter"
)

const number = `(\d[\d,]*(?:\.\d+)?)`

var (
	priceCeilingRe = regexp.MustCompile(`(?i)\b(?:under|below|less\s+than|cheaper\s+than)\s+\$?\s*` + number)

	// Rating floors. "rating under N" deliberately matches none of these.
	ratingFloorRes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\brat(?:ing|ed)\s+(?:of\s+|above\s+|over\s+|at\s+least\s+|>=?\s*)?` + number),
		regexp.MustCompile(`(?i)` + number + `\s*\+\s*stars?\b`),
		regexp.MustCompile(`(?i)` + number + `\s*stars?\s+(?:and|&|or)\s+(?:up|above|higher|more|better)\b`),
		regexp.MustCompile(`(?i)\b(?:at\s+least|above|over|minimum(?:\s+of)?)\s+` + number + `\s*stars?\b`),
	}
)

// Extract derives structured filters from a free-text query and the
// entities a tagger found in it. Clauses that fail to parse impose no
// constraint.
func Extract(query string, ents domain.Entities) filter.Filters {
	f := filter.None()

	if p, ok := priceCeiling(query); ok {
		f = f.WithMaxPrice(p)
	}
	if r, ok := ratingFloor(query); ok {
		f = f.WithMinRating(r)
	}
	if b, ok := ents.First(domain.EntityBrand, domain.EntityOrg, domain.EntityProduct); ok {
		f = f.WithBrand(b)
	}
	if r, ok := ents.First(domain.EntityRegion, domain.EntityGPE, domain.EntityLoc); ok {
		f = f.WithRegion(r)
	}
	return f
}

// priceCeiling returns the first "under $N" style amount that is not part
// of a rating clause ("rating under 4", "under 4 stars").
func priceCeiling(query string) (float64, bool) {
	for _, m := range priceCeilingRe.FindAllStringSubmatchIndex(query, -1) {
		if isRatingContext(query[:m[0]], query[m[1]:]) {
			continue
		}
		v, ok := parseNumber(query[m[2]:m[3]])
		if !ok {
			continue
		}
		return v, true
	}
	return 0, false
}

func ratingFloor(query string) (float64, bool) {
	for _, re := range ratingFloorRes {
		for _, m := range re.FindAllStringSubmatch(query, -1) {
			v, ok := parseNumber(m[1])
			if !ok || v < 0 || v > product.MaxRating {
				continue
			}
			return v, true
		}
	}
	return 0, false
}

func isRatingContext(before, after string) bool {
	prev := strings.Fields(strings.ToLower(before))
	if len(prev) > 0 {
		switch prev[len(prev)-1] {
		case "rating", "rated", "ratings", "rate":
			return true
		}
	}
	next := strings.Fields(strings.ToLower(after))
	if len(next) > 0 && strings.HasPrefix(next[0], "star") {
		return true
	}
	return false
}

func parseNumber(s string) (float64, bool) {
	s = strings.TrimRight(strings.ReplaceAll(s, ",", ""), ".")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
