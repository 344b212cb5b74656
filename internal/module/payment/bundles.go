package payment

// Bundle is a purchasable credit package with a fixed Stripe price.
type Bundle struct {
	PriceID  string
	Credits  int64
	Amount   float64
	Currency string
}

// creditBundles maps bundle keys to their Stripe price reference and
// charge amount. Keys are part of the public API; changing them breaks
// clients.
var creditBundles = map[string]Bundle{
	"10_credits": {PriceID: "price_credits_10", Credits: 10, Amount: 30, Currency: "usd"},
	"20_credits": {PriceID: "price_credits_20", Credits: 20, Amount: 50, Currency: "usd"},
	"50_credits": {PriceID: "price_credits_50", Credits: 50, Amount: 100, Currency: "usd"},
}

// BundleByKey resolves a bundle key.
func BundleByKey(key string) (Bundle, bool) {
	b, ok := creditBundles[key]
	return b, ok
}
