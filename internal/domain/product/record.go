package product

import (
	"encoding/binary"
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/kailas-cloud/prodsearch/internal/domain"
)

// Record is a catalog row as the store returns it: every field is text.
type Record struct {
	ID          string
	Title       string
	Description string
	Price       string
	Rating      string
	Stock       string
	Categories  string
	// Images is either a single URL or a list (JSON or bracketed, comma separated).
	Images    string
	ImageURL  string
	URL       string
	Embedding string
	Source    string
}

// Decode parses and validates a raw record. A missing stock value falls back
// to defaultStock, a missing rating means unrated (0).
// The returned error is always a *domain.DataQualityError.
func Decode(r Record, defaultStock int) (Product, error) {
	id := strings.TrimSpace(r.ID)

	if strings.TrimSpace(r.Price) == "" {
		return Product{}, domain.NewDataQualityError(id, "price is missing")
	}
	price, err := parsePrice(r.Price)
	if err != nil {
		return Product{}, domain.NewDataQualityError(id, "price %q is not a number", r.Price)
	}

	rating := 0.0
	if s := strings.TrimSpace(r.Rating); s != "" {
		if rating, err = strconv.ParseFloat(s, 64); err != nil {
			return Product{}, domain.NewDataQualityError(id, "rating %q is not a number", r.Rating)
		}
	}

	stock := defaultStock
	if s := strings.TrimSpace(r.Stock); s != "" {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || f != math.Trunc(f) {
			return Product{}, domain.NewDataQualityError(id, "stock %q is not an integer", r.Stock)
		}
		stock = int(f)
	}

	emb, err := ParseVector(r.Embedding)
	if err != nil {
		return Product{}, domain.NewDataQualityError(id, "embedding: %v", err)
	}

	imageURL := strings.TrimSpace(r.ImageURL)
	if imageURL == "" {
		if imgs := ParseList(r.Images); len(imgs) > 0 {
			imageURL = imgs[0]
		}
	}

	return New(Attrs{
		ID:               id,
		Title:            strings.TrimSpace(r.Title),
		Description:      strings.TrimSpace(r.Description),
		Price:            price,
		Rating:           rating,
		Stock:            stock,
		Categories:       ParseList(r.Categories),
		Embedding:        emb,
		ImageURL:         imageURL,
		URL:              strings.TrimSpace(r.URL),
		SourceCollection: strings.TrimSpace(r.Source),
	})
}

// parsePrice accepts quoted values, a leading currency sign and thousands separators.
func parsePrice(s string) (float64, error) {
	s = strings.Trim(strings.TrimSpace(s), `"'`)
	s = strings.TrimPrefix(s, "$")
	s = strings.ReplaceAll(s, ",", "")
	return strconv.ParseFloat(strings.TrimSpace(s), 64) //nolint:wrapcheck // caller builds DataQualityError
}

// ParseList splits a JSON list, a bracketed comma list, a pipe list or a
// single bare value into trimmed, non-empty items.
func ParseList(s string) []string {
	s = strings.Trim(strings.TrimSpace(s), `"'`)
	if s == "" {
		return nil
	}
	if strings.HasPrefix(s, "[") && strings.HasSuffix(s, "]") {
		var items []string
		if json.Unmarshal([]byte(s), &items) == nil {
			return compact(items)
		}
		if json.Unmarshal([]byte(strings.ReplaceAll(s, `\"`, `"`)), &items) == nil {
			return compact(items)
		}
		s = strings.TrimSuffix(strings.TrimPrefix(s, "["), "]")
		return compact(strings.Split(s, ","))
	}
	if strings.Contains(s, "|") {
		return compact(strings.Split(s, "|"))
	}
	if strings.Contains(s, ",") && !strings.Contains(s, "://") {
		return compact(strings.Split(s, ","))
	}
	return []string{s}
}

func compact(items []string) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		it = strings.Trim(strings.TrimSpace(it), `"' `)
		if it != "" {
			out = append(out, it)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// ParseVector decodes an embedding stored as a JSON array or as packed
// little-endian float32 bytes. Empty input means no embedding.
func ParseVector(s string) ([]float32, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	if t := strings.TrimSpace(s); strings.HasPrefix(t, "[") {
		var v []float32
		if err := json.Unmarshal([]byte(t), &v); err != nil {
			return nil, err //nolint:wrapcheck // caller builds DataQualityError
		}
		return v, nil
	}
	b := []byte(s)
	if len(b)%4 != 0 {
		return nil, errBadVectorLength
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v, nil
}

// EncodeVector packs v as little-endian float32 bytes.
func EncodeVector(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}

type vectorError string

func (e vectorError) Error() string { return string(e) }

const errBadVectorLength = vectorError("packed vector length is not a multiple of 4")
