// Package fallback assigns products from keyword rules when no vision
// result is available.
package fallback

import (
	"strings"

	"golang.org/x/text/cases"

	"github.com/sells-group/suplook/internal/model"
)

// GeneralCuisine is the label returned when no rule matches.
const GeneralCuisine = "general"

// Reason is attached to every rule-based product pick.
const Reason = "Rule-based match"

// Rule maps keywords found in a restaurant's name or type tags to a cuisine
// and a canonical product list.
type Rule struct {
	Cuisine      string
	NameKeywords []string
	TypeKeywords []string
	Products     []string
}

// Match is the result of evaluating the rule table.
type Match struct {
	Cuisine  string
	Products []model.ProductPick
}

// DefaultRules is evaluated top to bottom; the first matching rule wins.
// A name containing both "cafe" and "bar" resolves to cafe.
var DefaultRules = []Rule{
	{
		Cuisine:      "pizza",
		NameKeywords: []string{"pizza"},
		TypeKeywords: []string{"pizza"},
		Products:     []string{`Pizza Box 16"`, `Pizza Box 14"`, "Pizza Saver 100ct"},
	},
	{
		Cuisine:      "chinese",
		NameKeywords: []string{"chinese", "wok"},
		TypeKeywords: []string{"chinese"},
		Products:     []string{"Chinese Takeout Box 32oz", "Chopsticks Wrapped 500ct", "Soy Sauce Packet 500ct"},
	},
	{
		Cuisine:      "mexican",
		NameKeywords: []string{"taco", "mexican", "burrito"},
		Products:     []string{"Foil Sheet 12x12 500ct", "Portion Cup 2oz 2500ct", "Hot Sauce Packet"},
	},
	{
		Cuisine:      "cafe",
		NameKeywords: []string{"coffee", "cafe"},
		TypeKeywords: []string{"cafe"},
		Products:     []string{"Paper Hot Cup 12oz", "Hot Cup Lid Dome", "Cup Sleeve Kraft 1000ct"},
	},
	{
		Cuisine:      "deli",
		NameKeywords: []string{"deli", "sandwich", "bagel"},
		Products:     []string{"Deli Paper 12x12", "Paper Bag Kraft #20", "Toothpick Frilled"},
	},
	{
		Cuisine:      "bar",
		NameKeywords: []string{"bar", "pub"},
		TypeKeywords: []string{"bar"},
		Products:     []string{"Beverage Napkin White", `Straw Black 8"`, "Cocktail Pick Sword"},
	},
}

// GeneralProducts is returned when no rule matches.
var GeneralProducts = []string{"Foam Container 9x9", "Utensil Kit Fork/Knife/Napkin", "Paper Bag Kraft #20"}

// Matcher evaluates an ordered rule table. It performs no I/O.
type Matcher struct {
	rules   []Rule
	general []string
}

// NewMatcher creates a matcher over rules, falling back to general.
func NewMatcher(rules []Rule, general []string) *Matcher {
	return &Matcher{rules: rules, general: general}
}

// Default returns a matcher over DefaultRules.
func Default() *Matcher {
	return NewMatcher(DefaultRules, GeneralProducts)
}

// Match returns the cuisine and products for the first rule whose keywords
// appear in name or in the joined type tags.
func (m *Matcher) Match(name string, types []string) Match {
	// Casers carry state and are not safe to share across goroutines.
	fold := cases.Fold()
	n := fold.String(name)
	t := fold.String(strings.Join(types, " "))

	for _, r := range m.rules {
		if containsAny(n, r.NameKeywords) || containsAny(t, r.TypeKeywords) {
			return Match{Cuisine: r.Cuisine, Products: picks(r.Products)}
		}
	}
	return Match{Cuisine: GeneralCuisine, Products: picks(m.general)}
}

// Rules returns the rule table in evaluation order.
func (m *Matcher) Rules() []Rule { return m.rules }

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}

func picks(names []string) []model.ProductPick {
	out := make([]model.ProductPick, len(names))
	for i, n := range names {
		out[i] = model.ProductPick{Name: n, Reason: Reason}
	}
	return out
}
