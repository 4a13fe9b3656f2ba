package inventory_test

import (
	"context"
	"testing"

	"cardscan/internal/inventory"
	"cardscan/internal/testsupport"
)

func TestAddCopyInsertsThenIncrements(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	inv, err := inventory.NewStore(store.DB())
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	ctx := context.Background()

	item := inventory.Item{
		CardName: "Lightning Bolt",
		SetName:  "Magic 2010",
		Foil:     false,
		PriceUSD: 2.50,
		ImageURL: "https://img.test/bolt.jpg",
	}
	first, err := inv.AddCopy(ctx, item)
	if err != nil {
		t.Fatalf("AddCopy failed: %v", err)
	}
	if first.Quantity != 1 || first.Condition != "NM" {
		t.Fatalf("unexpected first copy: %#v", first)
	}

	// Same printing again: quantity bumps, listing details stay.
	item.PriceUSD = 99
	second, err := inv.AddCopy(ctx, item)
	if err != nil {
		t.Fatalf("AddCopy failed: %v", err)
	}
	if second.ID != first.ID || second.Quantity != 2 {
		t.Fatalf("expected the same row with quantity 2, got %#v", second)
	}
	if second.PriceUSD != 2.50 {
		t.Fatalf("price must be set only on insert, got %v", second.PriceUSD)
	}
}

func TestAddCopyDistinguishesFoilAndCondition(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	inv, err := inventory.NewStore(store.DB())
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	ctx := context.Background()

	base := inventory.Item{CardName: "Counterspell", SetName: "Seventh Edition"}
	if _, err := inv.AddCopy(ctx, base); err != nil {
		t.Fatalf("AddCopy failed: %v", err)
	}
	foil := base
	foil.Foil = true
	if _, err := inv.AddCopy(ctx, foil); err != nil {
		t.Fatalf("AddCopy failed: %v", err)
	}
	played := base
	played.Condition = "LP"
	if _, err := inv.AddCopy(ctx, played); err != nil {
		t.Fatalf("AddCopy failed: %v", err)
	}

	items, err := inv.List(ctx, 0)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("expected 3 distinct rows, got %d", len(items))
	}

	total, err := inv.TotalCopies(ctx)
	if err != nil {
		t.Fatalf("TotalCopies failed: %v", err)
	}
	if total != 3 {
		t.Fatalf("expected 3 copies total, got %d", total)
	}
}

func TestAddCopyRequiresName(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	inv, err := inventory.NewStore(store.DB())
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}

	if _, err := inv.AddCopy(context.Background(), inventory.Item{}); err == nil {
		t.Fatal("expected error for missing card name")
	}
}
