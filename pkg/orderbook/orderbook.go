// Package orderbook implements the two ordered, disjoint liquidation-price
// interval lists described in spec.md §4.4: shortBook (sorted ascending by
// LowPrice, closest-to-spot node first) and longBook (sorted descending by
// HighPrice, closest-to-spot node first).
//
// Each book is an intrusive doubly-linked list addressed by string order
// IDs through a map, mirroring the Python source's dict-of-dicts — a
// deliberate choice over container/list or a balanced tree (spec.md §9):
// insertion points are supplied by the Hub's fast-open solver, so the book
// never searches for where to insert, it only validates adjacency.
//
// Book does not take its own lock: every exported method is always called
// from inside the Hub's single critical-section mutex (spec.md §5), so
// adding a second lock here would only cost overhead without adding any
// safety.
package orderbook

import "github.com/ethereum/go-ethereum/common"

type Book struct {
	shortMap      map[string]*Order
	nearShortNode string

	longMap      map[string]*Order
	nearLongNode string

	// addressNodeMap and addressHistoryMap are shared across both books:
	// a single address's short and long orders count against the same
	// ORDER_MAX_LENGTH cap, exactly as the Python source's single
	// addressNodeMap does.
	addressNodeMap    map[common.Address][]string
	addressHistoryMap map[common.Address][]Order

	orderCount     int
	orderMaxLength int
}

// NewBook returns an empty Book enforcing orderMaxLength open orders per
// address.
func NewBook(orderMaxLength int) *Book {
	return &Book{
		shortMap:          make(map[string]*Order),
		longMap:           make(map[string]*Order),
		addressNodeMap:    make(map[common.Address][]string),
		addressHistoryMap: make(map[common.Address][]Order),
		orderMaxLength:    orderMaxLength,
	}
}

// GenerateOrderID returns the next monotonic order ID with the given
// prefix ("short" or "long"), e.g. "short1", "long2".
func (b *Book) GenerateOrderID(head string) string {
	b.orderCount++
	return head + itoa(b.orderCount)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

func (b *Book) addToAddressMap(addr common.Address, orderID string) error {
	if len(b.addressNodeMap[addr]) >= b.orderMaxLength {
		return ErrAddressOrderLimit
	}
	b.addressNodeMap[addr] = append(b.addressNodeMap[addr], orderID)
	return nil
}

func (b *Book) removeFromAddressMap(addr common.Address, orderID string, archived Order) {
	ids := b.addressNodeMap[addr]
	for i, id := range ids {
		if id == orderID {
			b.addressNodeMap[addr] = append(ids[:i], ids[i+1:]...)
			break
		}
	}
	if len(b.addressNodeMap[addr]) == 0 {
		delete(b.addressNodeMap, addr)
	}
	b.addressHistoryMap[addr] = append(b.addressHistoryMap[addr], archived)
}

// InsertShortOrder inserts node into the short book immediately after
// afterID ("" inserts at the bottom, i.e. becomes the new nearest-to-spot
// node). Follows shortswapv1order.py's insterShortOrder, except that the
// adjacency comparisons are strict: an interval touching a neighbour's
// endpoint counts as overlap and is rejected (spec.md §8 B2).
func (b *Book) InsertShortOrder(node *Order, afterID string) error {
	if node.HighPrice <= node.LowPrice {
		return ErrZeroWidthInterval
	}

	if b.nearShortNode == "" {
		b.shortMap[node.OrderID] = node
		b.nearShortNode = node.OrderID
		return b.addToAddressMap(node.Address, node.OrderID)
	}

	if afterID == "" {
		lowest := b.shortMap[b.nearShortNode]
		if node.HighPrice < lowest.LowPrice {
			node.HighNode = b.nearShortNode
			lowest.LowNode = node.OrderID
			b.shortMap[node.OrderID] = node
			b.nearShortNode = node.OrderID
			return b.addToAddressMap(node.Address, node.OrderID)
		}
		return ErrOverlapsLowestNode
	}

	current, ok := b.shortMap[afterID]
	if !ok {
		return ErrInsertAfterNotFound
	}

	if node.LowPrice > current.HighPrice {
		if current.HighNode != "" {
			upper := b.shortMap[current.HighNode]
			if node.HighPrice < upper.LowPrice {
				node.HighNode = current.HighNode
				node.LowNode = current.OrderID
				current.HighNode = node.OrderID
				upper.LowNode = node.OrderID
				b.shortMap[node.OrderID] = node
				return b.addToAddressMap(node.Address, node.OrderID)
			}
			return ErrOverlapsUpperNode
		}
		node.HighNode = current.HighNode
		node.LowNode = current.OrderID
		current.HighNode = node.OrderID
		b.shortMap[node.OrderID] = node
		return b.addToAddressMap(node.Address, node.OrderID)
	}
	return ErrOverlapsCurrentNode
}

// InsertLongOrder inserts node into the long book immediately after
// afterID ("" inserts at the top, i.e. becomes the new nearest-to-spot
// node). Follows shortswapv1order.py's insterLongOrder (low/high and
// top/bottom mirrored relative to InsertShortOrder), with the same strict
// comparisons: touching endpoints are rejected as overlap.
func (b *Book) InsertLongOrder(node *Order, afterID string) error {
	if node.HighPrice <= node.LowPrice {
		return ErrZeroWidthInterval
	}

	if b.nearLongNode == "" {
		b.longMap[node.OrderID] = node
		b.nearLongNode = node.OrderID
		return b.addToAddressMap(node.Address, node.OrderID)
	}

	if afterID == "" {
		highest := b.longMap[b.nearLongNode]
		if node.LowPrice > highest.HighPrice {
			node.LowNode = b.nearLongNode
			highest.HighNode = node.OrderID
			b.longMap[node.OrderID] = node
			b.nearLongNode = node.OrderID
			return b.addToAddressMap(node.Address, node.OrderID)
		}
		return ErrOverlapsHighestNode
	}

	current, ok := b.longMap[afterID]
	if !ok {
		return ErrInsertAfterNotFound
	}

	if node.HighPrice < current.LowPrice {
		if current.LowNode != "" {
			lower := b.longMap[current.LowNode]
			if node.LowPrice > lower.HighPrice {
				node.LowNode = current.LowNode
				node.HighNode = current.OrderID
				current.LowNode = node.OrderID
				lower.HighNode = node.OrderID
				b.longMap[node.OrderID] = node
				return b.addToAddressMap(node.Address, node.OrderID)
			}
			return ErrOverlapsLowerNode
		}
		node.LowNode = current.LowNode
		node.HighNode = current.OrderID
		current.LowNode = node.OrderID
		b.longMap[node.OrderID] = node
		return b.addToAddressMap(node.Address, node.OrderID)
	}
	return ErrOverlapsCurrentNode
}

// DeleteShortOrder unlinks and archives a short order.
func (b *Book) DeleteShortOrder(orderID string, archived Order) error {
	node, ok := b.shortMap[orderID]
	if !ok {
		return ErrOrderNotFound
	}

	if node.HighNode != "" {
		upper := b.shortMap[node.HighNode]
		upper.LowNode = node.LowNode
	}
	if node.LowNode != "" {
		lower := b.shortMap[node.LowNode]
		lower.HighNode = node.HighNode
	} else {
		b.nearShortNode = node.HighNode
	}

	delete(b.shortMap, orderID)
	b.removeFromAddressMap(node.Address, orderID, archived)
	return nil
}

// DeleteLongOrder unlinks and archives a long order.
func (b *Book) DeleteLongOrder(orderID string, archived Order) error {
	node, ok := b.longMap[orderID]
	if !ok {
		return ErrOrderNotFound
	}

	if node.LowNode != "" {
		lower := b.longMap[node.LowNode]
		lower.HighNode = node.HighNode
	}
	if node.HighNode != "" {
		upper := b.longMap[node.HighNode]
		upper.LowNode = node.LowNode
	} else {
		b.nearLongNode = node.LowNode
	}

	delete(b.longMap, orderID)
	b.removeFromAddressMap(node.Address, orderID, archived)
	return nil
}

// CheckShortOrderRange reports whether [lowPrice, highPrice] intersects any
// short order other than excludeID, walking from nearShortNode upward and
// stopping early once nodes can no longer overlap. Touching endpoints
// count as overlap (inclusive <=/>=, spec.md §8 B2).
//
// shortswapv1order.py special-cases "orderID == nearShortNode" by
// returning no-overlap unconditionally, which skips checking every other
// node in the book whenever the excluded order happens to sit at the near
// end — a latent bug that would let a partial close sail past P1
// (disjoint book). This port instead simply skips excludeID itself while
// still scanning every other node, which is what spec.md §4.3.4's "reject
// on overlap with other short orders (own order excluded)" actually calls
// for.
func (b *Book) CheckShortOrderRange(highPrice, lowPrice float64, excludeID string) error {
	if b.nearShortNode == "" {
		return nil
	}

	currentID := b.nearShortNode
	for currentID != "" {
		node := b.shortMap[currentID]
		if currentID != excludeID {
			if (lowPrice <= node.HighPrice && highPrice >= node.LowPrice) ||
				(lowPrice >= node.LowPrice && lowPrice <= node.HighPrice) ||
				(highPrice >= node.LowPrice && highPrice <= node.HighPrice) {
				return &RangeOverlapError{OrderID: currentID}
			}
		}
		if highPrice < node.LowPrice {
			break
		}
		currentID = node.HighNode
	}
	return nil
}

// CheckLongOrderRange is the mirror of CheckShortOrderRange, walking from
// nearLongNode downward.
func (b *Book) CheckLongOrderRange(highPrice, lowPrice float64, excludeID string) error {
	if b.nearLongNode == "" {
		return nil
	}

	currentID := b.nearLongNode
	for currentID != "" {
		node := b.longMap[currentID]
		if currentID != excludeID {
			if (lowPrice <= node.HighPrice && highPrice >= node.LowPrice) ||
				(lowPrice >= node.LowPrice && lowPrice <= node.HighPrice) ||
				(highPrice >= node.LowPrice && highPrice <= node.HighPrice) {
				return &RangeOverlapError{OrderID: currentID}
			}
		}
		if lowPrice > node.HighPrice {
			break
		}
		currentID = node.LowNode
	}
	return nil
}

// GetShortOrder returns up to num orders walking from startID (or
// nearShortNode if startID is "") upward.
func (b *Book) GetShortOrder(startID string, num int) []*Order {
	return b.walk(b.shortMap, firstNonEmpty(startID, b.nearShortNode), num, func(o *Order) string { return o.HighNode })
}

// GetLongOrder returns up to num orders walking from startID (or
// nearLongNode if startID is "") downward.
func (b *Book) GetLongOrder(startID string, num int) []*Order {
	return b.walk(b.longMap, firstNonEmpty(startID, b.nearLongNode), num, func(o *Order) string { return o.LowNode })
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}

func (b *Book) walk(m map[string]*Order, startID string, num int, next func(*Order) string) []*Order {
	var out []*Order
	currentID := startID
	for currentID != "" && len(out) < num {
		node, ok := m[currentID]
		if !ok {
			break
		}
		out = append(out, node)
		currentID = next(node)
	}
	return out
}

// GetOrderByID looks up an order by ID in either book.
func (b *Book) GetOrderByID(orderID string) (*Order, bool) {
	if o, ok := b.shortMap[orderID]; ok {
		return o, true
	}
	if o, ok := b.longMap[orderID]; ok {
		return o, true
	}
	return nil, false
}

// GetOrdersByAddress returns every open order owned by addr, across both books.
func (b *Book) GetOrdersByAddress(addr common.Address) []*Order {
	ids := b.addressNodeMap[addr]
	orders := make([]*Order, 0, len(ids))
	for _, id := range ids {
		if o, ok := b.GetOrderByID(id); ok {
			orders = append(orders, o)
		}
	}
	return orders
}

// GetAddressHistoryOrders returns addr's append-only closed-order history.
func (b *Book) GetAddressHistoryOrders(addr common.Address) []Order {
	return b.addressHistoryMap[addr]
}

// NearShortNode returns the order ID closest to spot from above, or "" if
// the short book is empty.
func (b *Book) NearShortNode() string { return b.nearShortNode }

// NearLongNode returns the order ID closest to spot from below, or "" if
// the long book is empty.
func (b *Book) NearLongNode() string { return b.nearLongNode }

// ShortLen and LongLen report how many orders are currently open in each book.
func (b *Book) ShortLen() int { return len(b.shortMap) }
func (b *Book) LongLen() int  { return len(b.longMap) }
