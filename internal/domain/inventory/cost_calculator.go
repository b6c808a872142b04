package inventory

import "github.com/shopspring/decimal"

// AverageCost implementa el costo promedio ponderado (servicio de dominio).
// NuevoCosto = ((StockActual * CostoActual) + (CantEntrada * CostoEntrada)) / (StockActual + CantEntrada)
// El resultado se redondea a 4 decimales.
func AverageCost(stock int, currentCost decimal.Decimal, incoming int, incomingCost decimal.Decimal) decimal.Decimal {
	if stock < 0 {
		stock = 0
	}
	sum := stock + incoming
	if sum <= 0 {
		return decimal.Zero
	}
	num := decimal.NewFromInt(int64(stock)).Mul(currentCost).
		Add(decimal.NewFromInt(int64(incoming)).Mul(incomingCost))
	return num.Div(decimal.NewFromInt(int64(sum))).Round(4)
}
