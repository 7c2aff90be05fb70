// Package intent classifies tokenized queries into a fixed set of intents.
package intent

import (
	"github.com/hrygo/shoptalk/ai/catalog"
)

// Intent is the classified purpose of a user query.
type Intent string

const (
	// IntentProduct is a question about a catalog product.
	IntentProduct Intent = "product_inquiry"
	// IntentPolicy is a question about a policy document.
	IntentPolicy Intent = "policy_inquiry"
	// IntentGeneral is small talk or anything without catalog signal.
	IntentGeneral Intent = "general_chat"
	// IntentAmbiguous means the top two categories scored too close to call;
	// retrieval queries both catalogs instead of guessing.
	IntentAmbiguous Intent = "ambiguous"
)

// defaultEpsilon is the score gap below which the top two categories are
// considered a tie.
const defaultEpsilon = 0.1

// Classifier scores each intent category by weighted keyword overlap.
// It is deterministic and side-effect-free, which the response cache
// relies on: the same tokens always classify the same way.
type Classifier struct {
	categories map[Intent]map[string]int
	stopwords  map[string]bool
	epsilon    float64
}

// NewClassifier creates a classifier with the built-in keyword tables.
func NewClassifier() *Classifier {
	return &Classifier{
		categories: map[Intent]map[string]int{
			IntentProduct: {
				"价格": 3, "价钱": 3, "多少钱": 3, "多少": 1, "贵": 2, "便宜": 2,
				"买": 2, "购买": 2, "下单": 2, "卖": 2, "规格": 2, "库存": 2,
				"现货": 2, "产品": 2, "商品": 2, "水果": 1, "蔬菜": 1, "推荐": 1,
				"优惠": 2, "打折": 2, "单价": 3, "包装": 1,
				"price": 3, "cost": 3, "buy": 2, "stock": 2, "product": 2,
			},
			IntentPolicy: {
				"配送": 3, "送货": 3, "发货": 2, "快递": 2, "物流": 2, "运费": 2,
				"几点": 2, "退货": 3, "退款": 3, "换货": 3, "售后": 2, "发票": 2,
				"营业": 2, "政策": 3, "规定": 2, "范围": 1, "自提": 2, "上门": 1,
				"delivery": 3, "refund": 3, "return": 3, "policy": 3,
				"shipping": 2, "invoice": 2,
			},
			IntentGeneral: {
				"你好": 1, "谢谢": 1, "再见": 1,
				"hello": 1, "hi": 1, "thanks": 1, "bye": 1,
			},
		},
		stopwords: map[string]bool{
			"的": true, "了": true, "吗": true, "呢": true, "啊": true,
			"请问": true, "请": true, "我": true, "你": true, "是": true,
			"a": true, "an": true, "the": true, "is": true, "are": true,
			"do": true, "does": true, "what": true, "please": true,
		},
		epsilon: defaultEpsilon,
	}
}

// Classify maps tokens to an intent with a confidence score.
// Empty or all-stopword input classifies as general chat with confidence 0.
func (c *Classifier) Classify(tokens []string) (Intent, float64) {
	content := c.filterStopwords(tokens)
	if len(content) == 0 {
		return IntentGeneral, 0
	}

	// Category score: sum of matched keyword weights, normalized by token
	// count so long queries do not dominate.
	score := func(keywords map[string]int) float64 {
		sum := 0
		for _, tok := range content {
			sum += keywords[tok]
		}
		return float64(sum) / float64(len(content))
	}

	productScore := score(c.categories[IntentProduct])
	policyScore := score(c.categories[IntentPolicy])
	greetScore := score(c.categories[IntentGeneral])

	if productScore == 0 && policyScore == 0 {
		if greetScore > 0 {
			return IntentGeneral, clamp(greetScore)
		}
		return IntentGeneral, 0
	}

	top, second := productScore, policyScore
	topIntent := IntentProduct
	if policyScore > productScore {
		top, second = policyScore, productScore
		topIntent = IntentPolicy
	}

	if second > 0 && top-second <= c.epsilon {
		return IntentAmbiguous, clamp(top)
	}
	return topIntent, clamp(top)
}

// ContentTokens strips stopwords and category signal keywords, leaving the
// tokens that name the thing being asked about. Retrieval matches on these
// so "苹果多少钱" searches for 苹果, not 多少钱.
func (c *Classifier) ContentTokens(tokens []string) []string {
	var out []string
	for _, tok := range c.filterStopwords(tokens) {
		if c.isSignal(tok) {
			continue
		}
		out = append(out, tok)
	}
	return out
}

// FilterStopwords drops stopword tokens but keeps category signal keywords.
// Policy retrieval matches on these: a policy section is named by the very
// words that signal the intent (配送, 退货), unlike product records.
func (c *Classifier) FilterStopwords(tokens []string) []string {
	return c.filterStopwords(tokens)
}

func (c *Classifier) filterStopwords(tokens []string) []string {
	var out []string
	for _, tok := range tokens {
		if c.stopwords[tok] {
			continue
		}
		out = append(out, tok)
	}
	return out
}

func (c *Classifier) isSignal(tok string) bool {
	for _, keywords := range c.categories {
		if keywords[tok] > 0 {
			return true
		}
	}
	return false
}

// Kinds returns the catalog kinds retrieval should query for an intent.
// Ambiguous and general queries search both catalogs rather than guessing.
func Kinds(it Intent) []catalog.Kind {
	switch it {
	case IntentProduct:
		return []catalog.Kind{catalog.KindProduct}
	case IntentPolicy:
		return []catalog.Kind{catalog.KindPolicy}
	default:
		return []catalog.Kind{catalog.KindProduct, catalog.KindPolicy}
	}
}

// PreferredKind returns the kind fuzzy-match tie-breaks favor, or "" when
// the intent does not prefer one.
func PreferredKind(it Intent) catalog.Kind {
	switch it {
	case IntentProduct:
		return catalog.KindProduct
	case IntentPolicy:
		return catalog.KindPolicy
	default:
		return ""
	}
}

func clamp(v float64) float64 {
	if v > 1 {
		return 1
	}
	return v
}
