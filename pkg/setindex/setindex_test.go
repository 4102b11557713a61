package setindex

import (
	"context"
	"testing"

	"encore.app/pkg/kvstore"
)

func TestInsert_IsIdempotent(t *testing.T) {
	ctx := context.Background()
	idx := New[string](kvstore.NewMemoryStore(), "addresses", func(s string) string { return s })

	for i := 0; i < 3; i++ {
		if err := idx.Insert(ctx, "SP123"); err != nil {
			t.Fatalf("Insert: %v", err)
		}
	}
	if err := idx.Insert(ctx, "SP456"); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	members, err := idx.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(members) != 2 {
		t.Fatalf("len(members) = %d, want 2 (set semantics): %v", len(members), members)
	}
}

type contractRef struct {
	Address string `json:"contractAddress"`
	Name    string `json:"contractName"`
}

func TestInsert_StructIdentity(t *testing.T) {
	ctx := context.Background()
	idx := New[contractRef](kvstore.NewMemoryStore(), "contracts", func(c contractRef) string {
		return c.Address + "." + c.Name
	})

	if err := idx.Insert(ctx, contractRef{"SP1", "pox"}); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if err := idx.Insert(ctx, contractRef{"SP1", "pox"}); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if err := idx.Insert(ctx, contractRef{"SP1", "other"}); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	members, err := idx.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(members) != 2 {
		t.Fatalf("len(members) = %d, want 2", len(members))
	}
}
