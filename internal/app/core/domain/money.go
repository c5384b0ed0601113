package domain

import "github.com/shopspring/decimal"

// MinorUnitPlaces 貨幣最小單位的小數位數 (分)
const MinorUnitPlaces int32 = 2

// RoundMoney 將金額四捨五入到最小貨幣單位。
// 所有金額在寫入儲存層之前都必須經過這裡，而不是在顯示時才處理。
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(MinorUnitPlaces)
}
