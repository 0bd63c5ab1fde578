package cart

import "storefront/internal/domain"

// Command is a cart transition. The set is closed: only the types below
// implement it.
type Command interface {
	isCommand()
}

// AddItem adds one unit of Product.
type AddItem struct{ Product domain.Product }

// RemoveItem drops the line for ProductID.
type RemoveItem struct{ ProductID string }

// SetQuantity overwrites the quantity of ProductID; <= 0 removes the line
// and values above MaxQuantity are cut to it.
type SetQuantity struct {
	ProductID string
	Quantity  int64
}

// Clear empties the cart and leaves visibility alone.
type Clear struct{}

// ToggleVisible flips the side panel flag.
type ToggleVisible struct{}

// Close hides the side panel.
type Close struct{}

func (AddItem) isCommand()       {}
func (RemoveItem) isCommand()    {}
func (SetQuantity) isCommand()   {}
func (Clear) isCommand()         {}
func (ToggleVisible) isCommand() {}
func (Close) isCommand()         {}

// Reduce returns the state that results from applying cmd to s.
// s is never modified.
func Reduce(s State, cmd Command) State {
	switch c := cmd.(type) {
	case AddItem:
		next := s.clone()
		if i := next.indexOf(c.Product.ID); i >= 0 {
			if next.Items[i].Quantity < MaxQuantity {
				next.Items[i].Quantity++
			}
			return next
		}
		next.Items = append(next.Items, Item{ProductID: c.Product.ID, Quantity: 1})
		return next

	case RemoveItem:
		return s.without(c.ProductID)

	case SetQuantity:
		if c.Quantity <= 0 {
			return s.without(c.ProductID)
		}
		next := s.clone()
		if i := next.indexOf(c.ProductID); i >= 0 {
			next.Items[i].Quantity = min(c.Quantity, MaxQuantity)
		}
		return next

	case Clear:
		return State{Items: []Item{}, Visible: s.Visible}

	case ToggleVisible:
		next := s.clone()
		next.Visible = !s.Visible
		return next

	case Close:
		next := s.clone()
		next.Visible = false
		return next

	default:
		return s.clone()
	}
}

func (s State) without(productID string) State {
	items := make([]Item, 0, len(s.Items))
	for _, it := range s.Items {
		if it.ProductID != productID {
			items = append(items, it)
		}
	}
	return State{Items: items, Visible: s.Visible}
}
