package stats

import (
	"sort"
	"strings"
	"unicode"

	"go-resto-inventory/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

type LossCategory string

const (
	LossMissing   LossCategory = "missing"
	LossDamaged   LossCategory = "damaged"
	LossTransport LossCategory = "transport"
	LossExpired   LossCategory = "expired"
	LossBreakage  LossCategory = "breakage"
	LossTheft     LossCategory = "theft"
	LossOther     LossCategory = "other"
)

var LossCategories = []LossCategory{
	LossMissing, LossDamaged, LossTransport, LossExpired, LossBreakage, LossTheft, LossOther,
}

func (c LossCategory) Valid() bool {
	for _, v := range LossCategories {
		if v == c {
			return true
		}
	}
	return false
}

type keywordRule struct {
	category LossCategory
	exact    []string
	prefixes []string
}

// Evaluated in order; the first rule with a matching token wins.
var lossRules = []keywordRule{
	{LossTheft, []string{"vol", "vols", "vole", "volee", "voles", "volees"}, []string{"theft", "stolen", "cambriol"}},
	{LossBreakage, nil, []string{"cass", "bris", "broke", "break", "fissur"}},
	{LossExpired, nil, []string{"expir", "perim", "peremp", "dlc", "outdated"}},
	{LossTransport, nil, []string{"transport", "livraison", "shipping", "delivery", "transit"}},
	{LossDamaged, nil, []string{"gate", "endommag", "abim", "pourri", "avari", "damag", "spoil", "rotten", "moisi"}},
	{LossMissing, nil, []string{"manqu", "perdu", "missing", "dispar", "lost"}},
}

var folder = cases.Fold()

// Fold lowercases s and strips accents so "Gâté" and "gate" compare equal.
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return folder.String(out)
}

func tokens(s string) []string {
	return strings.FieldsFunc(Fold(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// CategorizeLoss maps a loss to a category. An explicit category naming a
// known value wins; otherwise the free text of both fields is matched
// against the keyword rules.
func CategorizeLoss(reason, category string) LossCategory {
	if c := LossCategory(Fold(strings.TrimSpace(category))); c.Valid() {
		return c
	}
	words := append(tokens(category), tokens(reason)...)
	for _, rule := range lossRules {
		for _, w := range words {
			for _, e := range rule.exact {
				if w == e {
					return rule.category
				}
			}
			for _, p := range rule.prefixes {
				if strings.HasPrefix(w, p) {
					return rule.category
				}
			}
		}
	}
	return LossOther
}

type CategoryLoss struct {
	Category LossCategory `json:"category"`
	Count    int          `json:"count"`
	Quantity int          `json:"quantity"`
	Cost     float64      `json:"cost"`
	Share    float64      `json:"share"`
}

type ProductLoss struct {
	ProductID   uuid.UUID `json:"product_id"`
	ProductName string    `json:"product_name"`
	Quantity    int       `json:"quantity"`
	Cost        float64   `json:"cost"`
}

type LossAnalysis struct {
	TotalEntries  int            `json:"total_entries"`
	TotalQuantity int            `json:"total_quantity"`
	TotalCost     float64        `json:"total_cost"`
	TotalRevenue  float64        `json:"total_revenue"`
	LossRate      float64        `json:"loss_rate"`
	ByCategory    []CategoryLoss `json:"by_category"`
	TopProducts   []ProductLoss  `json:"top_products"`
}

// AnalyzeLosses groups "perte" entries by category and by product. Other
// entry types are ignored. topN limits TopProducts, 0 keeps all.
func AnalyzeLosses(entries []model.InventoryEntry, totalRevenue float64, topN int) LossAnalysis {
	byCategory := make(map[LossCategory]*CategoryLoss, len(LossCategories))
	for _, c := range LossCategories {
		byCategory[c] = &CategoryLoss{Category: c}
	}
	byProduct := map[uuid.UUID]*ProductLoss{}
	total := decimal.Zero
	out := LossAnalysis{TotalRevenue: Round2(totalRevenue)}

	for _, e := range entries {
		if e.Type != model.EntryLoss {
			continue
		}
		cost := decimal.NewFromFloat(e.TotalCost)
		total = total.Add(cost)
		out.TotalEntries++
		out.TotalQuantity += e.Quantity

		cat := byCategory[CategorizeLoss(e.Reason, e.LossCategory)]
		cat.Count++
		cat.Quantity += e.Quantity
		cat.Cost = decimal.NewFromFloat(cat.Cost).Add(cost).InexactFloat64()

		p, ok := byProduct[e.ProductID]
		if !ok {
			p = &ProductLoss{ProductID: e.ProductID}
			if e.Product != nil {
				p.ProductName = e.Product.Name
			}
			byProduct[e.ProductID] = p
		}
		p.Quantity += e.Quantity
		p.Cost = decimal.NewFromFloat(p.Cost).Add(cost).InexactFloat64()
	}

	out.TotalCost = total.Round(2).InexactFloat64()
	out.LossRate = LossRate(out.TotalCost, totalRevenue)
	for _, c := range LossCategories {
		cat := byCategory[c]
		cat.Cost = Round2(cat.Cost)
		cat.Share = Percent(cat.Cost, out.TotalCost)
		out.ByCategory = append(out.ByCategory, *cat)
	}

	out.TopProducts = make([]ProductLoss, 0, len(byProduct))
	for _, p := range byProduct {
		p.Cost = Round2(p.Cost)
		out.TopProducts = append(out.TopProducts, *p)
	}
	sort.Slice(out.TopProducts, func(i, j int) bool {
		if out.TopProducts[i].Cost != out.TopProducts[j].Cost {
			return out.TopProducts[i].Cost > out.TopProducts[j].Cost
		}
		return out.TopProducts[i].ProductID.String() < out.TopProducts[j].ProductID.String()
	})
	if topN > 0 && len(out.TopProducts) > topN {
		out.TopProducts = out.TopProducts[:topN]
	}
	return out
}
