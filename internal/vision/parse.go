package vision

import (
	"encoding/json"
	"slices"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/suplook/internal/model"
)

// MaxProducts caps the product list kept from a response.
const MaxProducts = 8

// ErrNoObject is returned when a response holds no balanced JSON object.
var ErrNoObject = eris.New("vision: no JSON object in response")

// ExtractObject returns the first balanced {...} substring of text. Braces
// inside JSON strings are ignored.
func ExtractObject(text string) (string, bool) {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		ch := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1], true
			}
		}
	}
	return "", false
}

// Parse extracts and validates a classification from a raw model response.
// Unknown cuisines become general, unknown confidence becomes low, and the
// product list is capped at MaxProducts. A response without products is an
// error.
func Parse(text string) (*model.VisionAnalysis, error) {
	obj, ok := ExtractObject(text)
	if !ok {
		return nil, ErrNoObject
	}

	var a model.VisionAnalysis
	if err := json.Unmarshal([]byte(obj), &a); err != nil {
		return nil, eris.Wrap(err, "vision: unmarshal response")
	}

	a.CuisineType = strings.ToLower(strings.TrimSpace(a.CuisineType))
	if !slices.Contains(Cuisines, a.CuisineType) {
		a.CuisineType = "general"
	}

	switch a.Confidence = strings.ToLower(strings.TrimSpace(a.Confidence)); a.Confidence {
	case model.ConfidenceLow, model.ConfidenceMedium, model.ConfidenceHigh:
	default:
		a.Confidence = model.ConfidenceLow
	}

	a.Products = slices.DeleteFunc(a.Products, func(p model.ProductPick) bool {
		return strings.TrimSpace(p.SKU) == "" && strings.TrimSpace(p.Name) == ""
	})
	if len(a.Products) == 0 {
		return nil, eris.New("vision: response has no products")
	}
	if len(a.Products) > MaxProducts {
		a.Products = a.Products[:MaxProducts]
	}
	a.Fallback = false

	return &a, nil
}
