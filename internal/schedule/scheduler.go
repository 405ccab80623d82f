package schedule

import (
	"time"

	"github.com/google/uuid"

	"github.com/kailasramasamy/martly-backend/internal/gateway"
	"github.com/kailasramasamy/martly-backend/pkg/enums"
	pkgerrors "github.com/kailasramasamy/martly-backend/pkg/errors"
)

const DateLayout = "2006-01-02"

// DefaultWindowDays is how many calendar days (including today) a slot date
// may be picked from.
const DefaultWindowDays = 8

// State is the delivery mode and slot selection for one checkout session.
// It is owned by the session and mutated only under the session's lock.
type State struct {
	Mode           enums.DeliveryMode
	Capability     gateway.SlotCapability
	SelectedDate   string
	SelectedSlotID *uuid.UUID
	Slots          []gateway.Slot

	// generation stamps slot-list requests so responses for a date the user
	// already navigated away from are discarded.
	generation uint64
}

// RequestKey identifies one in-flight slot fetch.
type RequestKey struct {
	StoreID    uuid.UUID
	Date       string
	Generation uint64
}

// NewState starts in express mode, the default when available.
func NewState() *State {
	return &State{Mode: enums.DeliveryModeExpress}
}

// ApplyCapability records the store's capability and auto-corrects the mode:
// no slot capability pins EXPRESS (there is no alternative); express being
// disabled or outside operating hours switches to SCHEDULED when slots exist.
func (s *State) ApplyCapability(cap gateway.SlotCapability, now time.Time) {
	s.Capability = cap

	if !cap.HasSlots {
		s.setExpress()
		return
	}
	if !cap.Express.Enabled || !cap.Express.Available {
		s.setScheduled(now)
	}
}

// SetMode applies an explicit user choice.
func (s *State) SetMode(mode enums.DeliveryMode, now time.Time) error {
	switch mode {
	case enums.DeliveryModeExpress:
		if s.Capability.HasSlots && !s.Capability.Express.Enabled {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "express delivery is not offered by this store")
		}
		s.setExpress()
	case enums.DeliveryModeScheduled:
		if !s.Capability.HasSlots {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "store has no delivery slots")
		}
		s.setScheduled(now)
	default:
		return pkgerrors.New(pkgerrors.CodeValidation, "unknown delivery mode")
	}
	return nil
}

func (s *State) setExpress() {
	s.Mode = enums.DeliveryModeExpress
	s.SelectedSlotID = nil
	s.Slots = nil
}

func (s *State) setScheduled(now time.Time) {
	s.Mode = enums.DeliveryModeScheduled
	if s.SelectedDate == "" {
		s.SelectedDate = now.Format(DateLayout)
	}
}

// SelectDate picks a date inside the window and stamps a fetch request for
// it. The returned key must accompany the eventual ApplySlots call.
func (s *State) SelectDate(storeID uuid.UUID, date string, now time.Time, windowDays int) (RequestKey, error) {
	if s.Mode != enums.DeliveryModeScheduled {
		return RequestKey{}, pkgerrors.New(pkgerrors.CodeStateConflict, "date selection requires scheduled mode")
	}
	if !dateInWindow(date, now, windowDays) {
		return RequestKey{}, pkgerrors.New(pkgerrors.CodeValidation, "date outside the selectable window")
	}

	s.SelectedDate = date
	s.SelectedSlotID = nil
	s.Slots = nil
	s.generation++

	return RequestKey{StoreID: storeID, Date: date, Generation: s.generation}, nil
}

// ApplySlots merges a completed slot fetch. Stale responses, identified by a
// key that no longer matches the active date/generation, are discarded. The
// first non-full slot is auto-selected; none when all are full.
func (s *State) ApplySlots(key RequestKey, slots []gateway.Slot) bool {
	if key.Generation != s.generation || key.Date != s.SelectedDate {
		return false
	}

	s.Slots = slots
	s.SelectedSlotID = nil
	for _, slot := range slots {
		if !slot.Full() {
			id := slot.ID
			s.SelectedSlotID = &id
			break
		}
	}
	return true
}

// SelectSlot applies an explicit slot choice. Selecting a full or unknown
// slot is a no-op that keeps the prior selection.
func (s *State) SelectSlot(slotID uuid.UUID) {
	for _, slot := range s.Slots {
		if slot.ID != slotID {
			continue
		}
		if slot.Full() {
			return
		}
		id := slot.ID
		s.SelectedSlotID = &id
		return
	}
}

// Choice is what the order draft consumes: only meaningful when the mode is
// scheduled and a slot is chosen, otherwise the order goes out express.
func (s *State) Choice() (enums.DeliveryMode, *uuid.UUID, string) {
	if s.Mode == enums.DeliveryModeScheduled && s.SelectedSlotID != nil {
		return s.Mode, s.SelectedSlotID, s.SelectedDate
	}
	return enums.DeliveryModeExpress, nil, ""
}

// Window lists the selectable dates: the next windowDays calendar days
// including today.
func Window(now time.Time, windowDays int) []string {
	if windowDays <= 0 {
		windowDays = DefaultWindowDays
	}
	dates := make([]string, 0, windowDays)
	for i := 0; i < windowDays; i++ {
		dates = append(dates, now.AddDate(0, 0, i).Format(DateLayout))
	}
	return dates
}

func dateInWindow(date string, now time.Time, windowDays int) bool {
	for _, candidate := range Window(now, windowDays) {
		if candidate == date {
			return true
		}
	}
	return false
}
