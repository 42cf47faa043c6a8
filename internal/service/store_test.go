package service

import (
	"reflect"
	"testing"

	"crypto_dash/internal/domain"

	"github.com/shopspring/decimal"
)

func asset(id, symbol string, price int64) domain.AssetRecord {
	return domain.AssetRecord{
		ID:           id,
		Symbol:       symbol,
		Name:         id,
		CurrentPrice: decimal.NewFromInt(price),
		MarketCap:    decimal.NewFromInt(price * 1000),
	}
}

func ids(records []domain.AssetRecord) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.ID
	}
	return out
}

func dec(v int64) *decimal.Decimal {
	d := decimal.NewFromInt(v)
	return &d
}

func TestStore_LoadInitial(t *testing.T) {
	var changes []Change
	store := NewStore(func(c Change) { changes = append(changes, c) })

	n := store.LoadInitial([]domain.AssetRecord{
		asset("btc", "btc", 60000),
		asset("eth", "eth", 3000),
		asset("btc", "btc", 1), // Duplicate collapsed, first wins
	})
	if n != 2 {
		t.Errorf("Expected 2 rows, got %d", n)
	}

	list := store.CurrentList()
	if !reflect.DeepEqual(ids(list), []string{"btc", "eth"}) {
		t.Errorf("Unexpected order %v", ids(list))
	}
	if !list[0].CurrentPrice.Equal(decimal.NewFromInt(60000)) {
		t.Errorf("First occurrence should win, got %v", list[0].CurrentPrice)
	}

	// Replaces everything
	store.LoadInitial([]domain.AssetRecord{asset("sol", "sol", 150)})
	if !reflect.DeepEqual(ids(store.CurrentList()), []string{"sol"}) {
		t.Errorf("LoadInitial should replace the list, got %v", ids(store.CurrentList()))
	}

	if len(changes) != 2 || changes[0].Kind != ChangeLoad || changes[1].Version != 2 {
		t.Errorf("Unexpected notifications %+v", changes)
	}
}

func TestStore_PatchScenario(t *testing.T) {
	store := NewStore(nil)
	store.LoadInitial([]domain.AssetRecord{asset("btc", "btc", 60000), asset("eth", "eth", 3000)})

	if !store.Patch("btc", domain.AssetPatch{CurrentPrice: dec(61000)}) {
		t.Fatal("Patch should apply")
	}

	list := store.CurrentList()
	if !reflect.DeepEqual(ids(list), []string{"btc", "eth"}) {
		t.Fatalf("Patch must not reorder, got %v", ids(list))
	}
	if !list[0].CurrentPrice.Equal(decimal.NewFromInt(61000)) {
		t.Errorf("Expected 61000, got %v", list[0].CurrentPrice)
	}
	if !list[1].CurrentPrice.Equal(decimal.NewFromInt(3000)) {
		t.Errorf("eth should be untouched, got %v", list[1].CurrentPrice)
	}
	// Fields absent from the patch are kept
	if !list[0].MarketCap.Equal(decimal.NewFromInt(60000000)) {
		t.Errorf("MarketCap should be kept, got %v", list[0].MarketCap)
	}
}

func TestStore_PatchBySymbol(t *testing.T) {
	store := NewStore(nil)
	store.LoadInitial([]domain.AssetRecord{asset("bitcoin", "btc", 60000), asset("ethereum", "eth", 3000)})

	rate := decimal.NewFromFloat(-1.5)
	if !store.Patch("ETH", domain.AssetPatch{CurrentPrice: dec(3100), PriceChange24h: &rate}) {
		t.Fatal("Symbol match should be case-insensitive")
	}

	eth, ok := store.Get("ethereum")
	if !ok {
		t.Fatal("ethereum should exist")
	}
	if !eth.CurrentPrice.Equal(decimal.NewFromInt(3100)) || !eth.PriceChange24h.Equal(rate) {
		t.Errorf("Unexpected patched row %+v", eth)
	}
}

func TestStore_PatchUnknownIsNoop(t *testing.T) {
	var changes int
	store := NewStore(func(Change) { changes++ })
	store.LoadInitial([]domain.AssetRecord{asset("btc", "btc", 60000)})
	before := store.CurrentList()
	version := store.Version()

	tests := []struct {
		name  string
		key   string
		patch domain.AssetPatch
	}{
		{"unknown id", "doge", domain.AssetPatch{CurrentPrice: dec(1)}},
		{"empty key", "", domain.AssetPatch{CurrentPrice: dec(1)}},
		{"empty patch", "btc", domain.AssetPatch{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if store.Patch(tt.key, tt.patch) {
				t.Error("Patch should report not applied")
			}
		})
	}

	if !reflect.DeepEqual(before, store.CurrentList()) {
		t.Error("List changed after no-op patches")
	}
	if store.Version() != version || changes != 1 {
		t.Errorf("No-op patches must not notify (version %d, changes %d)", store.Version(), changes)
	}
}

func TestStore_AppendScenario(t *testing.T) {
	store := NewStore(nil)
	store.LoadInitial([]domain.AssetRecord{asset("btc", "btc", 60000), asset("eth", "eth", 3000)})

	added := store.Append([]domain.AssetRecord{
		asset("btc", "btc", 1), // Duplicate suppressed
		asset("sol", "sol", 150),
		asset("sol", "sol", 2), // Duplicate within the batch
	})
	if added != 1 {
		t.Errorf("Expected 1 added, got %d", added)
	}

	list := store.CurrentList()
	if !reflect.DeepEqual(ids(list), []string{"btc", "eth", "sol"}) {
		t.Errorf("Expected [btc eth sol], got %v", ids(list))
	}
	if !list[0].CurrentPrice.Equal(decimal.NewFromInt(60000)) {
		t.Error("Existing row must not be overwritten by append")
	}
}

func TestStore_CurrentListIsCopy(t *testing.T) {
	store := NewStore(nil)
	store.LoadInitial([]domain.AssetRecord{asset("btc", "btc", 60000)})

	list := store.CurrentList()
	list[0].CurrentPrice = decimal.Zero
	list[0].ID = "mutated"

	got := store.CurrentList()
	if got[0].ID != "btc" || got[0].CurrentPrice.IsZero() {
		t.Error("Callers must not be able to mutate the store")
	}
}

func TestStore_UpdateStatus(t *testing.T) {
	var kinds []string
	store := NewStore(func(c Change) { kinds = append(kinds, c.Kind) })

	if st := store.Status(); st.Page != 1 || st.Stream != domain.StreamClosed {
		t.Errorf("Unexpected initial status %+v", st)
	}

	store.UpdateStatus(func(s *domain.Status) { s.Loading = true })
	store.UpdateStatus(func(s *domain.Status) { s.Loading = true }) // Unchanged, no notify

	if len(kinds) != 1 || kinds[0] != ChangeStatus {
		t.Errorf("Expected one status notification, got %v", kinds)
	}

	view := store.View()
	if !view.Status.Loading || view.Version != 1 || len(view.Records) != 0 {
		t.Errorf("Unexpected view %+v", view)
	}
}
