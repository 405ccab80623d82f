package cart

import (
	"sync"

	"github.com/google/uuid"

	pkgerrors "github.com/kailasramasamy/martly-backend/pkg/errors"
)

// Item is one cart line.
type Item struct {
	ID             uuid.UUID `json:"id"`
	ProductID      uuid.UUID `json:"product_id"`
	VariantID      uuid.UUID `json:"variant_id"`
	Name           string    `json:"name"`
	UnitPricePaise int64     `json:"unit_price_paise"`
	Qty            int       `json:"qty"`
}

// Snapshot is an immutable view of one user's cart. Items are copied on
// every read so callers can never mutate the owned state.
type Snapshot struct {
	StoreID uuid.UUID `json:"store_id"`
	Items   []Item    `json:"items"`
}

// Empty reports whether the snapshot has no lines.
func (s Snapshot) Empty() bool {
	return len(s.Items) == 0
}

// TotalPaise is the item total: sum of unit price times quantity.
func (s Snapshot) TotalPaise() int64 {
	var total int64
	for _, item := range s.Items {
		total += item.UnitPricePaise * int64(item.Qty)
	}
	return total
}

type cartState struct {
	storeID uuid.UUID
	items   []Item
}

// Store owns all cart state, keyed by user. All reads return snapshots; all
// writes go through the mutation API.
type Store struct {
	mu    sync.Mutex
	carts map[uuid.UUID]*cartState
}

func NewStore() *Store {
	return &Store{carts: make(map[uuid.UUID]*cartState)}
}

// AddItem appends a line, enforcing the one-store-per-cart invariant. An
// existing line for the same variant gets its quantity bumped instead.
func (s *Store) AddItem(userID, storeID uuid.UUID, item Item) (Snapshot, error) {
	if item.Qty <= 0 {
		return Snapshot{}, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	if item.UnitPricePaise < 0 {
		return Snapshot{}, pkgerrors.New(pkgerrors.CodeValidation, "unit price must be non-negative")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.carts[userID]
	if !ok || len(state.items) == 0 {
		state = &cartState{storeID: storeID}
		s.carts[userID] = state
	} else if state.storeID != storeID {
		return Snapshot{}, pkgerrors.New(pkgerrors.CodeConflict, "cart holds items from another store")
	}

	for i := range state.items {
		if state.items[i].VariantID == item.VariantID {
			state.items[i].Qty += item.Qty
			return snapshotLocked(state), nil
		}
	}

	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	state.items = append(state.items, item)
	return snapshotLocked(state), nil
}

// UpdateQty sets the quantity of an existing line. Zero removes the line.
func (s *Store) UpdateQty(userID, itemID uuid.UUID, qty int) (Snapshot, error) {
	if qty < 0 {
		return Snapshot{}, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be non-negative")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.carts[userID]
	if !ok {
		return Snapshot{}, pkgerrors.New(pkgerrors.CodeNotFound, "cart is empty")
	}
	for i := range state.items {
		if state.items[i].ID != itemID {
			continue
		}
		if qty == 0 {
			state.items = append(state.items[:i], state.items[i+1:]...)
		} else {
			state.items[i].Qty = qty
		}
		return snapshotLocked(state), nil
	}
	return Snapshot{}, pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
}

// RemoveItem deletes a line.
func (s *Store) RemoveItem(userID, itemID uuid.UUID) (Snapshot, error) {
	return s.UpdateQty(userID, itemID, 0)
}

// Clear drops the user's cart entirely; called after successful order creation.
func (s *Store) Clear(userID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.carts, userID)
}

// Get returns the current snapshot; an empty snapshot when no cart exists.
func (s *Store) Get(userID uuid.UUID) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.carts[userID]
	if !ok {
		return Snapshot{}
	}
	return snapshotLocked(state)
}

func snapshotLocked(state *cartState) Snapshot {
	items := make([]Item, len(state.items))
	copy(items, state.items)
	return Snapshot{StoreID: state.storeID, Items: items}
}
