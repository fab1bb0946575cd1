package document

import "testing"

func TestInferCategory(t *testing.T) {
	tests := []struct {
		texts    []string
		expected Category
	}{
		{[]string{"https://news.example.com/politics/2024/05/01/vote"}, CategoryPolitics},
		{[]string{"https://example.com/sport/football/derby"}, CategorySports},
		{[]string{"https://example.com/business/markets-rally"}, CategoryBusiness},
		{[]string{"https://example.com/showbiz/new-film"}, CategoryEntertainment},
		{[]string{"https://example.com/2024/05/01/story"}, CategoryGeneral},
		{[]string{"https://example.com/2024/05/01/story", "Parliament debates the bill"}, CategoryPolitics},
		{[]string{"transport strike continues"}, CategoryGeneral},
	}

	for _, tt := range tests {
		if got := InferCategory(tt.texts...); got != tt.expected {
			t.Errorf("Expected %s for %v, got %s", tt.expected, tt.texts, got)
		}
	}
}

func TestStandardize(t *testing.T) {
	tests := map[string]Category{
		"Politics":          CategoryPolitics,
		"sports":            CategorySports,
		"Economy & Markets": CategoryBusiness,
		"Movies":            CategoryEntertainment,
		"Science":           CategoryGeneral,
		"":                  CategoryGeneral,
	}
	for label, expected := range tests {
		if got := Standardize(label); got != expected {
			t.Errorf("Expected %s for '%s', got %s", expected, label, got)
		}
	}
}
