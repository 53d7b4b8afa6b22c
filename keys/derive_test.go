package keys

import (
	"testing"
)

func TestDeriveRoleSeedDeterministic(t *testing.T) {
	root := make([]byte, SeedSize)
	for i := range root {
		root[i] = byte(i)
	}

	a, err := DeriveRoleSeed(root, "spending")
	if err != nil {
		t.Fatalf("DeriveRoleSeed: %v", err)
	}
	b, err := DeriveRoleSeed(root, "spending")
	if err != nil {
		t.Fatalf("DeriveRoleSeed: %v", err)
	}
	if string(a) != string(b) {
		t.Fatalf("expected deterministic derivation")
	}

	c, err := DeriveRoleSeed(root, "savings")
	if err != nil {
		t.Fatalf("DeriveRoleSeed: %v", err)
	}
	if string(a) == string(c) {
		t.Fatalf("expected different roles to derive different seeds")
	}
}

func TestDeriveRoleSeed_Rejects(t *testing.T) {
	if _, err := DeriveRoleSeed(make([]byte, 5), "x"); err == nil {
		t.Fatalf("expected short seed rejection")
	}
	if _, err := DeriveRoleSeed(make([]byte, SeedSize), "bad role"); err == nil {
		t.Fatalf("expected role character rejection")
	}
}
