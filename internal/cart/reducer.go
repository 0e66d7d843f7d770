package cart

import "github.com/vladislavdragonenkov/storefront/internal/domain"

// Action — переход состояния корзины.
type Action interface {
	// Name используется в логах и метриках.
	Name() string
}

// AddItem добавляет товар или увеличивает количество существующей позиции на 1.
type AddItem struct{ Product domain.Product }

// RemoveItem удаляет позицию по ID товара.
type RemoveItem struct{ ProductID string }

// UpdateQuantity заменяет количество позиции. Quantity < 1 отклоняется.
type UpdateQuantity struct {
	ProductID string
	Quantity  int
}

// MergeCart сливает серверную корзину: количества совпадающих позиций складываются.
type MergeCart struct{ Items []domain.LineItem }

// ClearCart сбрасывает корзину.
type ClearCart struct{}

// SetCart заменяет позиции целиком.
type SetCart struct{ Items []domain.LineItem }

func (AddItem) Name() string        { return "add" }
func (RemoveItem) Name() string     { return "remove" }
func (UpdateQuantity) Name() string { return "update_quantity" }
func (MergeCart) Name() string      { return "merge" }
func (ClearCart) Name() string      { return "clear" }
func (SetCart) Name() string        { return "set" }

// Reduce применяет action к state и возвращает новое состояние.
// applied=false означает, что переход отклонён или ничего не меняет;
// в этом случае возвращается исходное состояние.
// Входное состояние не модифицируется, Total всегда пересчитывается из позиций.
func Reduce(state domain.CartState, action Action) (next domain.CartState, applied bool) {
	switch a := action.(type) {
	case AddItem:
		items := copyItems(state.Items)
		if idx := state.Find(a.Product.ID); idx >= 0 {
			items[idx].Quantity++
		} else {
			items = append(items, domain.LineItem{Product: a.Product, Quantity: 1})
		}
		return domain.NewCartState(items), true

	case RemoveItem:
		if state.Find(a.ProductID) < 0 {
			return state, false
		}
		items := make([]domain.LineItem, 0, len(state.Items)-1)
		for _, item := range state.Items {
			if item.ID != a.ProductID {
				items = append(items, item)
			}
		}
		return domain.NewCartState(items), true

	case UpdateQuantity:
		if a.Quantity < 1 {
			return state, false
		}
		idx := state.Find(a.ProductID)
		if idx < 0 {
			return state, false
		}
		items := copyItems(state.Items)
		items[idx].Quantity = a.Quantity
		return domain.NewCartState(items), true

	case MergeCart:
		items := copyItems(state.Items)
		for _, incoming := range a.Items {
			merged := false
			for i := range items {
				if items[i].ID == incoming.ID {
					items[i].Quantity += incoming.Quantity
					merged = true
					break
				}
			}
			if !merged {
				items = append(items, incoming)
			}
		}
		return domain.NewCartState(items), true

	case SetCart:
		return domain.NewCartState(copyItems(a.Items)), true

	case ClearCart:
		return domain.NewCartState(nil), true

	default:
		return state, false
	}
}

func copyItems(items []domain.LineItem) []domain.LineItem {
	out := make([]domain.LineItem, len(items), len(items)+1)
	copy(out, items)
	return out
}
