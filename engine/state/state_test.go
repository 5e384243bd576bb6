package state

import (
	"errors"
	"sync"
	"testing"

	"github.com/nathoo/keepercore/types"
)

func testRole(name string) *types.Role {
	return &types.Role{
		Name:   name,
		HP:     10,
		Skills: map[string]int{"spot hidden": 50},
	}
}

func TestAdd_RejectsDuplicate(t *testing.T) {
	r := NewRegistry()
	if err := r.Add(testRole("Harvey")); err != nil {
		t.Fatalf("Add: %v", err)
	}
	err := r.Add(testRole("Harvey"))
	if !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
	if r.Len() != 1 {
		t.Errorf("expected 1 role, got %d", r.Len())
	}
}

func TestPut_Overwrites(t *testing.T) {
	r := NewRegistry()
	r.Put(testRole("Harvey"))
	replacement := testRole("Harvey")
	replacement.HP = 3
	r.Put(replacement)

	got, ok := r.Get("Harvey")
	if !ok {
		t.Fatal("expected Harvey registered")
	}
	if got.HP != 3 {
		t.Errorf("expected HP 3 after Put, got %d", got.HP)
	}
	if len(r.All()) != 1 {
		t.Errorf("expected a single entry, got %d", len(r.All()))
	}
}

func TestGet_ReturnsCopy(t *testing.T) {
	r := NewRegistry()
	r.Put(testRole("Harvey"))

	got, _ := r.Get("Harvey")
	got.HP = 0
	got.Skills["spot hidden"] = 99

	again, _ := r.Get("Harvey")
	if again.HP != 10 || again.Skills["spot hidden"] != 50 {
		t.Errorf("registry storage was aliased: %+v", again)
	}
}

func TestUpdate(t *testing.T) {
	r := NewRegistry()
	r.Put(testRole("Harvey"))

	if err := r.Update("Harvey", func(role *types.Role) { role.HP -= 4 }); err != nil {
		t.Fatalf("Update: %v", err)
	}
	got, _ := r.Get("Harvey")
	if got.HP != 6 {
		t.Errorf("expected HP 6, got %d", got.HP)
	}

	if err := r.Update("Nobody", func(*types.Role) {}); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestRemove(t *testing.T) {
	r := NewRegistry()
	r.Put(testRole("A"))
	r.Put(testRole("B"))
	r.Put(testRole("C"))

	if err := r.Remove("B"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if r.Has("B") {
		t.Error("B still registered")
	}

	all := r.All()
	if len(all) != 2 || all[0].Name != "A" || all[1].Name != "C" {
		t.Errorf("unexpected order after remove: %v", all)
	}

	if err := r.Remove("B"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound on second remove, got %v", err)
	}
}

func TestAll_RegistrationOrder(t *testing.T) {
	r := NewRegistry()
	names := []string{"Zed", "Alice", "Mia"}
	for _, n := range names {
		if err := r.Add(testRole(n)); err != nil {
			t.Fatal(err)
		}
	}
	for i, role := range r.All() {
		if role.Name != names[i] {
			t.Errorf("index %d: got %q, want %q", i, role.Name, names[i])
		}
	}
}

func TestUpdate_Concurrent(t *testing.T) {
	r := NewRegistry()
	r.Put(testRole("Harvey"))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = r.Update("Harvey", func(role *types.Role) { role.HP-- })
		}()
	}
	wg.Wait()

	got, _ := r.Get("Harvey")
	if got.HP != -40 {
		t.Errorf("expected HP -40 after 50 decrements, got %d", got.HP)
	}
}
