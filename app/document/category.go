package document

var categoryKeywords = []struct {
	category Category
	keywords []string
}{
	{CategoryPolitics, []string{"politics", "political", "election", "elections", "government", "parliament", "senate", "congress", "minister", "president", "policy", "vote"}},
	{CategorySports, []string{"sport", "sports", "football", "soccer", "cricket", "tennis", "basketball", "league", "match", "cup", "olympics", "athletics"}},
	{CategoryBusiness, []string{"business", "economy", "economic", "market", "markets", "finance", "financial", "stock", "stocks", "trade", "company", "companies", "money"}},
	{CategoryEntertainment, []string{"entertainment", "celebrity", "celebrities", "music", "film", "films", "movie", "movies", "showbiz", "tv", "television", "culture", "arts"}},
}

// InferCategory picks the first category whose keywords appear as whole words
// in any of the given texts, checking texts in order. General when none match.
func InferCategory(texts ...string) Category {
	for _, text := range texts {
		words := WordSet(text)
		for _, rule := range categoryKeywords {
			for _, kw := range rule.keywords {
				if _, ok := words[kw]; ok {
					return rule.category
				}
			}
		}
	}
	return CategoryGeneral
}

// Standardize maps a free-form label onto a known category, falling back to
// keyword inference over the label itself.
func Standardize(label string) Category {
	if c, ok := ParseCategory(label); ok {
		return c
	}
	return InferCategory(label)
}
