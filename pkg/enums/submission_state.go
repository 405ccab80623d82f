package enums

// SubmissionState tracks the order submission and payment machine.
//
//	idle -> submitting -> {wallet_covered, awaiting_payment_method}
//	awaiting_payment_method -> {cod_confirmed, gateway_pending}
//	gateway_pending -> {paid, cancelled, gateway_unavailable}
type SubmissionState string

const (
	SubmissionIdle               SubmissionState = "idle"
	SubmissionSubmitting         SubmissionState = "submitting"
	SubmissionWalletCovered      SubmissionState = "wallet_covered"
	SubmissionAwaitingMethod     SubmissionState = "awaiting_payment_method"
	SubmissionCODConfirmed       SubmissionState = "cod_confirmed"
	SubmissionGatewayPending     SubmissionState = "gateway_pending"
	SubmissionPaid               SubmissionState = "paid"
	SubmissionCancelled          SubmissionState = "cancelled"
	SubmissionGatewayUnavailable SubmissionState = "gateway_unavailable"
)

// String implements fmt.Stringer.
func (s SubmissionState) String() string {
	return string(s)
}

// Terminal reports whether the state ends the payment machine; every
// terminal state routes the buyer to the success screen.
func (s SubmissionState) Terminal() bool {
	switch s {
	case SubmissionWalletCovered, SubmissionCODConfirmed, SubmissionPaid,
		SubmissionCancelled, SubmissionGatewayUnavailable:
		return true
	}
	return false
}
