package ledger

// LoyaltyTerms are the program knobs that shape redemption and earning.
// Points redeem 1:1 against the currency minor unit; the exchange rate is
// fixed, not configurable per call.
type LoyaltyTerms struct {
	Enabled             bool
	EarnRatePerHundred  int64
	MinRedeemPoints     int64
	MaxRedeemPercentage int64
}

// Input is the full, consistent snapshot the bill is computed from. It must
// never mix states from different transitions: callers assemble it under one
// lock and hand it over whole.
type Input struct {
	ItemTotalPaise      int64
	DeliveryFeePaise    int64
	CouponDiscountPaise int64

	UseWallet          bool
	WalletBalancePaise int64

	UseLoyalty           bool
	LoyaltyBalancePoints int64
	Loyalty              LoyaltyTerms
}

// Bill is the single tagged result of the reduction pipeline. No other
// component recomputes partial sums.
type Bill struct {
	ItemTotalPaise        int64 `json:"item_total_paise"`
	DeliveryFeePaise      int64 `json:"delivery_fee_paise"`
	CouponDiscountPaise   int64 `json:"coupon_discount_paise"`
	GrandTotalPaise       int64 `json:"grand_total_paise"`
	WalletDeductionPaise  int64 `json:"wallet_deduction_paise"`
	LoyaltyDeductionPaise int64 `json:"loyalty_deduction_paise"`
	AmountToPayPaise      int64 `json:"amount_to_pay_paise"`
	WalletCoversAll       bool  `json:"wallet_covers_all"`
	EarnPreviewPoints     int64 `json:"earn_preview_points"`
}

// Compute runs the ordered reduction pipeline. The order is load-bearing:
// coupon applies to the item total, wallet drains the grand total, loyalty
// caps against the post-wallet remainder.
func Compute(in Input) Bill {
	grandTotal := in.ItemTotalPaise - in.CouponDiscountPaise + in.DeliveryFeePaise

	var walletDeduction int64
	if in.UseWallet {
		walletDeduction = min64(in.WalletBalancePaise, grandTotal)
	}
	afterWallet := grandTotal - walletDeduction

	var loyaltyDeduction int64
	if in.UseLoyalty && in.Loyalty.Enabled && in.LoyaltyBalancePoints >= in.Loyalty.MinRedeemPoints {
		cap := afterWallet * in.Loyalty.MaxRedeemPercentage / 100
		loyaltyDeduction = min64(in.LoyaltyBalancePoints, min64(afterWallet, cap))
	}

	amountToPay := afterWallet - loyaltyDeduction

	// one floor over the whole product, same as the redemption cap
	var earnPreview int64
	if in.Loyalty.Enabled {
		earnPreview = grandTotal * in.Loyalty.EarnRatePerHundred / 100
	}

	return Bill{
		ItemTotalPaise:        in.ItemTotalPaise,
		DeliveryFeePaise:      in.DeliveryFeePaise,
		CouponDiscountPaise:   in.CouponDiscountPaise,
		GrandTotalPaise:       grandTotal,
		WalletDeductionPaise:  walletDeduction,
		LoyaltyDeductionPaise: loyaltyDeduction,
		AmountToPayPaise:      amountToPay,
		WalletCoversAll:       amountToPay == 0 && (walletDeduction > 0 || loyaltyDeduction > 0),
		EarnPreviewPoints:     earnPreview,
	}
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
