package obs

import "github.com/shopspring/decimal"

// UseNumericMoney makes every decimal in the process encode as a JSON number
// instead of a quoted string. Call it once from main before serving.
func UseNumericMoney() {
	decimal.MarshalJSONWithoutQuotes = true
}
