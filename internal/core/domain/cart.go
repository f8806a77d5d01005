package domain

import (
	"strconv"

	"github.com/cespare/xxhash/v2"
)

type Location struct {
	Lat float64
	Lng float64
}

type CartLine struct {
	LineID         string
	ItemID         string
	Name           string
	UnitPrice      int64 // smallest currency unit
	PhotoRef       string
	Quantity       int
	StockAvailable int
	StoreName      string
	StoreAddress   string
	StoreLocation  *Location
}

func (l CartLine) Subtotal() int64 {
	return l.UnitPrice * int64(l.Quantity)
}

// Cart keeps lines in the order the server returned them.
type Cart struct {
	Lines []CartLine
}

type StoreGroup struct {
	StoreName string
	Lines     []CartLine
}

func (c Cart) IsEmpty() bool {
	return len(c.Lines) == 0
}

func (c Cart) Subtotal() int64 {
	var total int64
	for _, l := range c.Lines {
		total += l.Subtotal()
	}
	return total
}

// GroupByStore partitions lines by store name, groups ordered by the first
// line seen for each store.
func (c Cart) GroupByStore() []StoreGroup {
	groups := make([]StoreGroup, 0)
	index := make(map[string]int)

	for _, l := range c.Lines {
		i, ok := index[l.StoreName]
		if !ok {
			i = len(groups)
			index[l.StoreName] = i
			groups = append(groups, StoreGroup{StoreName: l.StoreName})
		}
		groups[i].Lines = append(groups[i].Lines, l)
	}

	return groups
}

// Clone returns a copy that shares no slice backing with c.
func (c Cart) Clone() Cart {
	lines := make([]CartLine, len(c.Lines))
	copy(lines, c.Lines)
	return Cart{Lines: lines}
}

// Fingerprint identifies the cart content (lines and quantities) for
// duplicate checkout detection. Every field is length prefixed, so IDs may
// contain any character.
func (c Cart) Fingerprint() uint64 {
	d := xxhash.New()
	for _, l := range c.Lines {
		writeField(d, l.LineID)
		writeField(d, l.ItemID)
		writeField(d, strconv.Itoa(l.Quantity))
	}
	return d.Sum64()
}

func writeField(d *xxhash.Digest, v string) {
	d.WriteString(strconv.Itoa(len(v)))
	d.WriteString(":")
	d.WriteString(v)
}
