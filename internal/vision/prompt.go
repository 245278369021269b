package vision

import (
	"fmt"
	"strings"

	"github.com/sells-group/suplook/internal/catalog"
)

// Cuisines the classifier may report. Anything else is normalized to general.
var Cuisines = []string{"pizza", "chinese", "mexican", "cafe", "deli", "bakery", "bar", "general"}

// VisualCues maps things visible in a photo to the supplies they imply.
var VisualCues = []string{
	"Pizza oven → Pizza boxes, pizza savers",
	"Espresso machine → Hot cups, lids, sleeves",
	"Deli counter/slicer → Deli paper, sandwich bags",
	"Outdoor patio → Heavy duty napkin dispensers",
	"Takeout counter → Foam containers, plastic bags",
	"Chinese wok → Takeout boxes, chopsticks",
	"Taco station → Foil sheets, portion cups",
	"Bakery display → Cake boxes, pastry bags",
	"Bar area → Cocktail napkins, straws",
}

// BuildPrompt renders the classification instructions with every catalog
// product and the visual cue table.
func BuildPrompt(cat *catalog.Catalog) string {
	var products strings.Builder
	for _, key := range cat.Keys() {
		c, _ := cat.Category(key)
		fmt.Fprintf(&products, "\n%s:\n", c.Name)
		for _, p := range c.Products {
			fmt.Fprintf(&products, "  - %s: %s - %s\n", p.SKU, p.Name, p.Description)
		}
	}

	var cues strings.Builder
	for _, c := range VisualCues {
		cues.WriteString("- " + c + "\n")
	}

	return fmt.Sprintf(`You are a restaurant supply expert for a disposable foodservice supplier.

Analyze this restaurant photo and determine what supplies they would need.

PRODUCT CATALOG:
%s
VISUAL CUES TO LOOK FOR:
%s
INSTRUCTIONS:
1. Describe what you see in the photo (2-3 sentences)
2. Identify the restaurant type/cuisine
3. List the TOP 5-8 products this restaurant would need
4. For each product, explain WHY based on what you see
5. Rate your confidence (low/medium/high)

RESPOND IN THIS EXACT JSON FORMAT:
{
  "description": "What I see in the photo...",
  "cuisine_type": "%s",
  "confidence": "low|medium|high",
  "products": [
    {
      "sku": "PB16",
      "name": "Pizza Box 16\"",
      "reason": "I can see a pizza oven in the background"
    }
  ],
  "visual_cues_detected": ["pizza oven", "takeout counter"]
}`, products.String(), cues.String(), strings.Join(Cuisines, "|"))
}

// userText is the per-image instruction sent alongside the photo.
func userText(restaurantName string) string {
	return fmt.Sprintf("Restaurant name: %s\n\nAnalyze this image and return JSON only.", restaurantName)
}
