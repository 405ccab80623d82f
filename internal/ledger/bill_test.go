package ledger

import "testing"

func TestComputeCouponAndWallet(t *testing.T) {
	t.Parallel()

	bill := Compute(Input{
		ItemTotalPaise:      500,
		DeliveryFeePaise:    40,
		CouponDiscountPaise: 50,
		UseWallet:           true,
		WalletBalancePaise:  100,
	})

	if bill.GrandTotalPaise != 490 {
		t.Fatalf("grand total = %d", bill.GrandTotalPaise)
	}
	if bill.WalletDeductionPaise != 100 {
		t.Fatalf("wallet deduction = %d", bill.WalletDeductionPaise)
	}
	if bill.AmountToPayPaise != 390 {
		t.Fatalf("amount to pay = %d", bill.AmountToPayPaise)
	}
	if bill.WalletCoversAll {
		t.Fatal("wallet does not cover all here")
	}
}

func TestComputeWalletCoversAll(t *testing.T) {
	t.Parallel()

	bill := Compute(Input{
		ItemTotalPaise:     1000,
		DeliveryFeePaise:   0,
		UseWallet:          true,
		WalletBalancePaise: 1000,
	})

	if bill.GrandTotalPaise != 1000 || bill.WalletDeductionPaise != 1000 {
		t.Fatalf("unexpected bill %+v", bill)
	}
	if bill.AmountToPayPaise != 0 || !bill.WalletCoversAll {
		t.Fatalf("expected wallet-covers-all, got %+v", bill)
	}
}

func TestComputeZeroDeductionsNeverCoversAll(t *testing.T) {
	t.Parallel()

	bill := Compute(Input{ItemTotalPaise: 0, DeliveryFeePaise: 0})
	if bill.WalletCoversAll {
		t.Fatal("zero-amount bill with no deductions must not report wallet_covers_all")
	}
}

func TestComputeLoyaltyCap(t *testing.T) {
	t.Parallel()

	terms := LoyaltyTerms{
		Enabled:             true,
		EarnRatePerHundred:  2,
		MinRedeemPoints:     50,
		MaxRedeemPercentage: 20,
	}

	bill := Compute(Input{
		ItemTotalPaise:       1000,
		DeliveryFeePaise:     0,
		UseWallet:            true,
		WalletBalancePaise:   200,
		UseLoyalty:           true,
		LoyaltyBalancePoints: 500,
		Loyalty:              terms,
	})

	// afterWallet = 800, cap = 160
	if bill.LoyaltyDeductionPaise != 160 {
		t.Fatalf("loyalty deduction = %d", bill.LoyaltyDeductionPaise)
	}
	if bill.AmountToPayPaise != 640 {
		t.Fatalf("amount to pay = %d", bill.AmountToPayPaise)
	}
	if bill.EarnPreviewPoints != 20 {
		t.Fatalf("earn preview = %d", bill.EarnPreviewPoints)
	}
}

func TestComputeEarnPreviewFloorsOnce(t *testing.T) {
	t.Parallel()

	// 150 * 2 / 100 = 3; flooring the division first would give 2
	bill := Compute(Input{
		ItemTotalPaise: 150,
		Loyalty:        LoyaltyTerms{Enabled: true, EarnRatePerHundred: 2},
	})
	if bill.EarnPreviewPoints != 3 {
		t.Fatalf("earn preview = %d", bill.EarnPreviewPoints)
	}

	bill = Compute(Input{
		ItemTotalPaise: 49,
		Loyalty:        LoyaltyTerms{Enabled: true, EarnRatePerHundred: 1},
	})
	if bill.EarnPreviewPoints != 0 {
		t.Fatalf("sub-unit totals earn nothing, got %d", bill.EarnPreviewPoints)
	}
}

func TestComputeLoyaltyBelowMinimum(t *testing.T) {
	t.Parallel()

	bill := Compute(Input{
		ItemTotalPaise:       1000,
		UseLoyalty:           true,
		LoyaltyBalancePoints: 49,
		Loyalty: LoyaltyTerms{
			Enabled:             true,
			MinRedeemPoints:     50,
			MaxRedeemPercentage: 100,
		},
	})

	if bill.LoyaltyDeductionPaise != 0 {
		t.Fatalf("below-minimum balance must not redeem, got %d", bill.LoyaltyDeductionPaise)
	}
}

func TestComputeLoyaltyDisabledProgram(t *testing.T) {
	t.Parallel()

	bill := Compute(Input{
		ItemTotalPaise:       1000,
		UseLoyalty:           true,
		LoyaltyBalancePoints: 500,
		Loyalty:              LoyaltyTerms{Enabled: false, MaxRedeemPercentage: 100},
	})

	if bill.LoyaltyDeductionPaise != 0 || bill.EarnPreviewPoints != 0 {
		t.Fatalf("disabled program must be inert, got %+v", bill)
	}
}

func TestComputeInvariants(t *testing.T) {
	t.Parallel()

	terms := LoyaltyTerms{Enabled: true, EarnRatePerHundred: 1, MinRedeemPoints: 0, MaxRedeemPercentage: 30}

	cases := []Input{
		{ItemTotalPaise: 0, DeliveryFeePaise: 0},
		{ItemTotalPaise: 100, DeliveryFeePaise: 40, CouponDiscountPaise: 100, UseWallet: true, WalletBalancePaise: 1},
		{ItemTotalPaise: 999, DeliveryFeePaise: 39, CouponDiscountPaise: 250, UseWallet: true, WalletBalancePaise: 100000},
		{ItemTotalPaise: 550, DeliveryFeePaise: 30, UseWallet: true, WalletBalancePaise: 75, UseLoyalty: true, LoyaltyBalancePoints: 10000, Loyalty: terms},
		{ItemTotalPaise: 123456, DeliveryFeePaise: 4000, CouponDiscountPaise: 5000, UseLoyalty: true, LoyaltyBalancePoints: 1, Loyalty: terms},
	}

	for _, in := range cases {
		bill := Compute(in)
		if bill.AmountToPayPaise < 0 {
			t.Fatalf("amount to pay went negative for %+v: %+v", in, bill)
		}
		if in.UseWallet {
			want := min64(in.WalletBalancePaise, bill.GrandTotalPaise)
			if bill.WalletDeductionPaise != want {
				t.Fatalf("wallet deduction %d != min(balance, grand total) %d", bill.WalletDeductionPaise, want)
			}
		} else if bill.WalletDeductionPaise != 0 {
			t.Fatalf("wallet off but deducted %d", bill.WalletDeductionPaise)
		}
		afterWallet := bill.GrandTotalPaise - bill.WalletDeductionPaise
		cap := afterWallet * in.Loyalty.MaxRedeemPercentage / 100
		if bill.LoyaltyDeductionPaise > cap || bill.LoyaltyDeductionPaise > in.LoyaltyBalancePoints {
			t.Fatalf("loyalty deduction %d exceeds cap %d or balance %d", bill.LoyaltyDeductionPaise, cap, in.LoyaltyBalancePoints)
		}
	}
}

func TestComputeMonotonicInDeductions(t *testing.T) {
	t.Parallel()

	base := Input{ItemTotalPaise: 800, DeliveryFeePaise: 40, UseWallet: true}

	prev := int64(1 << 40)
	for balance := int64(0); balance <= 1000; balance += 50 {
		in := base
		in.WalletBalancePaise = balance
		got := Compute(in).AmountToPayPaise
		if got > prev {
			t.Fatalf("amount to pay increased with wallet balance: %d -> %d", prev, got)
		}
		prev = got
	}

	prev = 1 << 40
	for coupon := int64(0); coupon <= 800; coupon += 40 {
		in := base
		in.UseWallet = false
		in.CouponDiscountPaise = coupon
		got := Compute(in).AmountToPayPaise
		if got > prev {
			t.Fatalf("amount to pay increased with coupon: %d -> %d", prev, got)
		}
		prev = got
	}
}
