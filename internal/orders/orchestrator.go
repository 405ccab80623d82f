package orders

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kailasramasamy/martly-backend/internal/cart"
	"github.com/kailasramasamy/martly-backend/internal/gateway"
	"github.com/kailasramasamy/martly-backend/internal/ledger"
	"github.com/kailasramasamy/martly-backend/pkg/enums"
	pkgerrors "github.com/kailasramasamy/martly-backend/pkg/errors"
	"github.com/kailasramasamy/martly-backend/pkg/logger"
	"github.com/kailasramasamy/martly-backend/pkg/redis"
)

type commerceAPI interface {
	CreateOrder(ctx context.Context, draft gateway.OrderDraft) (gateway.CreatedOrder, error)
	CreatePaymentSession(ctx context.Context, orderID uuid.UUID) (gateway.PaymentSession, error)
	VerifyPayment(ctx context.Context, orderID uuid.UUID, payload gateway.PaymentConfirmation) error
	GetPaymentPreference(ctx context.Context) (*gateway.PaymentPreference, error)
	SetPaymentPreference(ctx context.Context, method enums.PaymentMethod) error
}

type draftBuilder interface {
	BuildDraft(ctx context.Context, userID uuid.UUID, method enums.PaymentMethod) (gateway.OrderDraft, ledger.Bill, error)
	ResetAfterOrder(ctx context.Context, userID uuid.UUID)
}

type cartStore interface {
	Get(userID uuid.UUID) cart.Snapshot
	Clear(userID uuid.UUID)
}

type submitGuard interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
}

// Attempt is the externally visible submission state for one user. Terminal
// states all mean the order exists; payment may still settle server-side.
type Attempt struct {
	State   enums.SubmissionState   `json:"state"`
	OrderID *uuid.UUID              `json:"order_id,omitempty"`
	Method  enums.PaymentMethod     `json:"payment_method,omitempty"`
	Session *gateway.PaymentSession `json:"payment_session,omitempty"`
	Bill    *ledger.Bill            `json:"bill,omitempty"`
}

// Orchestrator drives order submission and the payment leg. One attempt per
// user at a time; a fresh immutable draft is built for every attempt.
type Orchestrator struct {
	api      commerceAPI
	checkout draftBuilder
	carts    cartStore
	guard    submitGuard
	guardTTL time.Duration
	logg     *logger.Logger

	mu       sync.Mutex
	attempts map[uuid.UUID]*Attempt
}

// NewOrchestrator builds the submission orchestrator. The guard is optional;
// without it only the in-memory single-flight check applies.
func NewOrchestrator(api commerceAPI, checkout draftBuilder, carts cartStore, guard submitGuard, guardTTL time.Duration, logg *logger.Logger) (*Orchestrator, error) {
	if api == nil {
		return nil, fmt.Errorf("commerce client required")
	}
	if checkout == nil {
		return nil, fmt.Errorf("checkout service required")
	}
	if carts == nil {
		return nil, fmt.Errorf("cart store required")
	}
	if guardTTL <= 0 {
		guardTTL = 30 * time.Second
	}
	return &Orchestrator{
		api:      api,
		checkout: checkout,
		carts:    carts,
		guard:    guard,
		guardTTL: guardTTL,
		logg:     logg,
		attempts: make(map[uuid.UUID]*Attempt),
	}, nil
}

// Submit runs one submission attempt end to end: draft, create, then the
// payment leg for the chosen method. A second submit while one is in flight
// gets CONFLICT. Failure before the order exists returns the user to idle
// with the cart retained; once the order exists nothing is rolled back.
func (o *Orchestrator) Submit(ctx context.Context, userID uuid.UUID, method enums.PaymentMethod) (Attempt, error) {
	if !method.IsValid() {
		return Attempt{}, pkgerrors.New(pkgerrors.CodeValidation, "unknown payment method")
	}

	if err := o.begin(userID); err != nil {
		return Attempt{}, err
	}

	snap := o.carts.Get(userID)
	guardKey := redis.SubmitGuardKey(userID.String(), snap.StoreID.String())
	if o.guard != nil {
		acquired, err := o.guard.SetNX(ctx, guardKey, "1", o.guardTTL)
		if err != nil {
			// the in-memory flag still protects this process
			o.warn(ctx, "submit guard unavailable", err)
		} else if !acquired {
			o.toIdle(userID)
			return Attempt{}, pkgerrors.New(pkgerrors.CodeConflict, "an order submission is already in flight")
		}
	}

	draft, bill, err := o.checkout.BuildDraft(ctx, userID, method)
	if err != nil {
		o.releaseGuard(ctx, guardKey)
		o.toIdle(userID)
		return Attempt{}, err
	}

	created, err := o.api.CreateOrder(ctx, draft)
	if err != nil {
		o.releaseGuard(ctx, guardKey)
		o.toIdle(userID)
		return Attempt{}, err
	}

	// the order exists: the cart and order-scoped session state are done
	o.carts.Clear(userID)
	o.checkout.ResetAfterOrder(ctx, userID)

	orderID := created.ID
	attempt := Attempt{OrderID: &orderID, Method: method, Bill: &bill}

	if created.WalletFullyCovered {
		attempt.State = enums.SubmissionWalletCovered
		o.store(userID, attempt)
		return attempt, nil
	}

	attempt.State = enums.SubmissionAwaitingMethod
	o.store(userID, attempt)

	switch method {
	case enums.PaymentMethodCOD:
		besteffort(ctx, o.logg, "persist payment preference", func(ctx context.Context) error {
			return o.api.SetPaymentPreference(ctx, enums.PaymentMethodCOD)
		})
		o.cachePreference(ctx, userID, enums.PaymentMethodCOD)
		attempt.State = enums.SubmissionCODConfirmed
	case enums.PaymentMethodOnline:
		session, err := o.api.CreatePaymentSession(ctx, orderID)
		if err != nil {
			// the order stays; payment can be completed later
			o.warn(ctx, "payment session creation failed, order kept as payment pending", err)
			attempt.State = enums.SubmissionGatewayUnavailable
		} else {
			attempt.State = enums.SubmissionGatewayPending
			attempt.Session = &session
		}
	}

	o.store(userID, attempt)
	return attempt, nil
}

// ConfirmPayment completes the online leg. Verification with the commerce
// API is best-effort: its webhook remains the settlement authority.
func (o *Orchestrator) ConfirmPayment(ctx context.Context, userID, orderID uuid.UUID, payload gateway.PaymentConfirmation) (Attempt, error) {
	attempt, err := o.activeAttempt(userID, orderID)
	if err != nil {
		return Attempt{}, err
	}
	if attempt.State != enums.SubmissionGatewayPending {
		return Attempt{}, pkgerrors.New(pkgerrors.CodeStateConflict, "no payment awaiting confirmation")
	}

	besteffort(ctx, o.logg, "verify payment", func(ctx context.Context) error {
		return o.api.VerifyPayment(ctx, orderID, payload)
	})

	attempt.State = enums.SubmissionPaid
	attempt.Session = nil
	o.store(userID, attempt)
	return attempt, nil
}

// CancelPayment abandons the gateway flow. The order is retained as payment
// pending, so the outcome is still a successful submission.
func (o *Orchestrator) CancelPayment(ctx context.Context, userID, orderID uuid.UUID) (Attempt, error) {
	attempt, err := o.activeAttempt(userID, orderID)
	if err != nil {
		return Attempt{}, err
	}
	switch attempt.State {
	case enums.SubmissionGatewayPending, enums.SubmissionGatewayUnavailable:
	default:
		return Attempt{}, pkgerrors.New(pkgerrors.CodeStateConflict, "no payment to cancel")
	}

	attempt.State = enums.SubmissionCancelled
	attempt.Session = nil
	o.store(userID, attempt)
	return attempt, nil
}

// Status returns the current attempt; idle when none exists.
func (o *Orchestrator) Status(userID uuid.UUID) Attempt {
	o.mu.Lock()
	defer o.mu.Unlock()
	if attempt, ok := o.attempts[userID]; ok {
		return *attempt
	}
	return Attempt{State: enums.SubmissionIdle}
}

// begin flips the in-memory single-flight flag. A terminal previous attempt
// is replaced; an in-flight one rejects the new submit.
func (o *Orchestrator) begin(userID uuid.UUID) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if current, ok := o.attempts[userID]; ok && !current.State.Terminal() && current.State != enums.SubmissionIdle {
		return pkgerrors.New(pkgerrors.CodeConflict, "an order submission is already in flight")
	}
	o.attempts[userID] = &Attempt{State: enums.SubmissionSubmitting}
	return nil
}

func (o *Orchestrator) toIdle(userID uuid.UUID) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.attempts[userID] = &Attempt{State: enums.SubmissionIdle}
}

func (o *Orchestrator) store(userID uuid.UUID, attempt Attempt) {
	o.mu.Lock()
	defer o.mu.Unlock()
	copied := attempt
	o.attempts[userID] = &copied
}

func (o *Orchestrator) activeAttempt(userID, orderID uuid.UUID) (Attempt, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	attempt, ok := o.attempts[userID]
	if !ok || attempt.OrderID == nil {
		return Attempt{}, pkgerrors.New(pkgerrors.CodeNotFound, "no active order attempt")
	}
	if *attempt.OrderID != orderID {
		return Attempt{}, pkgerrors.New(pkgerrors.CodeNotFound, "order does not match the active attempt")
	}
	return *attempt, nil
}

func (o *Orchestrator) releaseGuard(ctx context.Context, key string) {
	if o.guard == nil {
		return
	}
	if err := o.guard.Del(ctx, key); err != nil {
		o.warn(ctx, "submit guard release failed", err)
	}
}

func (o *Orchestrator) warn(ctx context.Context, msg string, err error) {
	if o.logg == nil {
		return
	}
	o.logg.Warn(o.logg.WithField(ctx, "cause", err.Error()), msg)
}
