package catalog

import (
	"strings"

	"github.com/kailas-cloud/prodsearch/internal/domain/product"
)

// Hash field names. Legacy aliases come from the scraped catalog export.
const (
	fieldID          = "id"
	fieldTitle       = "title"
	fieldDescription = "description"
	fieldPrice       = "price"
	fieldRating      = "rating"
	fieldStock       = "stock"
	fieldCategories  = "categories"
	fieldImages      = "images"
	fieldImageURL    = "image_url"
	fieldURL         = "url"
	fieldEmbedding   = "embedding"
	fieldSource      = "source"
)

var fieldAliases = map[string][]string{
	fieldDescription: {"product_description"},
	fieldPrice:       {"final_price"},
	fieldImages:      {"image", "image_list"},
	fieldSource:      {"source_collection"},
}

// recordFromHash maps a product hash onto a raw record. The id falls back
// to the key suffix when the hash carries none.
func recordFromHash(keyID string, m map[string]string) product.Record {
	get := func(name string) string {
		if v, ok := m[name]; ok {
			return v
		}
		for _, alias := range fieldAliases[name] {
			if v, ok := m[alias]; ok {
				return v
			}
		}
		return ""
	}

	id := strings.TrimSpace(get(fieldID))
	if id == "" {
		id = keyID
	}
	return product.Record{
		ID:          id,
		Title:       get(fieldTitle),
		Description: get(fieldDescription),
		Price:       get(fieldPrice),
		Rating:      get(fieldRating),
		Stock:       get(fieldStock),
		Categories:  get(fieldCategories),
		Images:      get(fieldImages),
		ImageURL:    get(fieldImageURL),
		URL:         get(fieldURL),
		Embedding:   get(fieldEmbedding),
		Source:      get(fieldSource),
	}
}

// RecordFromFields maps exported catalog fields (canonical names or legacy
// aliases) onto a raw record.
func RecordFromFields(m map[string]string) product.Record {
	return recordFromHash("", m)
}

// hashFromRecord is the inverse of recordFromHash; empty fields are omitted.
func hashFromRecord(r product.Record) map[string]string {
	m := make(map[string]string, 12)
	set := func(k, v string) {
		if v != "" {
			m[k] = v
		}
	}
	set(fieldID, r.ID)
	set(fieldTitle, r.Title)
	set(fieldDescription, r.Description)
	set(fieldPrice, r.Price)
	set(fieldRating, r.Rating)
	set(fieldStock, r.Stock)
	set(fieldCategories, r.Categories)
	set(fieldImages, r.Images)
	set(fieldImageURL, r.ImageURL)
	set(fieldURL, r.URL)
	set(fieldEmbedding, r.Embedding)
	set(fieldSource, r.Source)
	return m
}
