package services

import (
	"context"
	"errors"
	"testing"

	"finanz/internal/core"
	"finanz/internal/storage/storetest"
)

func seedFamily(t *testing.T, store *storetest.InMemory) core.Family {
	t.Helper()
	svc := NewFamilyService(store, nil)
	family, err := svc.Create(context.Background(), "admin-user", "Silva")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	return family
}

func TestFamilyService_Create_AdminMembership(t *testing.T) {
	store := storetest.New()
	family := seedFamily(t, store)

	members, _ := store.ListFamilyMembers(context.Background(), family.ID)
	if len(members) != 1 {
		t.Fatalf("members = %d, want 1", len(members))
	}
	if members[0].UserID != "admin-user" || members[0].Role != core.RoleAdmin {
		t.Errorf("creator membership = %+v, want admin-user as admin", members[0])
	}
}

func TestFamilyService_Create_RollsBackOnMembershipFailure(t *testing.T) {
	store := storetest.New()
	store.FailAddMember = true
	svc := NewFamilyService(store, nil)

	if _, err := svc.Create(context.Background(), "admin-user", "Silva"); err == nil {
		t.Fatal("Create() should fail when membership insert fails")
	}
	if len(store.Families) != 0 {
		t.Error("family row should be rolled back after membership failure")
	}
}

func TestFamilyService_AddMemberByEmail(t *testing.T) {
	store := storetest.New()
	family := seedFamily(t, store)
	store.UpsertProfile(context.Background(), core.Profile{ID: "user-b", Email: "b@example.com", FullName: "B"})
	svc := NewFamilyService(store, nil)

	t.Run("admin adds registered user", func(t *testing.T) {
		added, err := svc.AddMemberByEmail(context.Background(), "admin-user", family.ID, "b@example.com")
		if err != nil {
			t.Fatalf("AddMemberByEmail() error = %v", err)
		}
		if !added {
			t.Error("expected a new membership")
		}
	})

	t.Run("adding twice is idempotent", func(t *testing.T) {
		added, err := svc.AddMemberByEmail(context.Background(), "admin-user", family.ID, "b@example.com")
		if err != nil {
			t.Fatalf("AddMemberByEmail() error = %v", err)
		}
		if added {
			t.Error("second add should be a no-op")
		}
	})

	t.Run("email lookup is case-insensitive", func(t *testing.T) {
		if _, err := svc.AddMemberByEmail(context.Background(), "admin-user", family.ID, "B@Example.COM"); err != nil {
			t.Fatalf("AddMemberByEmail() error = %v", err)
		}
	})

	t.Run("unknown email", func(t *testing.T) {
		_, err := svc.AddMemberByEmail(context.Background(), "admin-user", family.ID, "nobody@example.com")
		if !errors.Is(err, ErrProfileNotFound) {
			t.Fatalf("error = %v, want ErrProfileNotFound", err)
		}
	})

	t.Run("non-admin cannot add", func(t *testing.T) {
		_, err := svc.AddMemberByEmail(context.Background(), "user-b", family.ID, "b@example.com")
		if !errors.Is(err, ErrNotAdmin) {
			t.Fatalf("error = %v, want ErrNotAdmin", err)
		}
	})

	t.Run("outsider cannot add", func(t *testing.T) {
		_, err := svc.AddMemberByEmail(context.Background(), "stranger", family.ID, "b@example.com")
		if !errors.Is(err, ErrNotAdmin) {
			t.Fatalf("error = %v, want ErrNotAdmin", err)
		}
	})
}

func TestFamilyService_RemoveMember(t *testing.T) {
	store := storetest.New()
	family := seedFamily(t, store)
	store.UpsertProfile(context.Background(), core.Profile{ID: "user-b", Email: "b@example.com"})
	svc := NewFamilyService(store, nil)
	svc.AddMemberByEmail(context.Background(), "admin-user", family.ID, "b@example.com")

	t.Run("admin cannot be removed", func(t *testing.T) {
		err := svc.RemoveMember(context.Background(), "admin-user", family.ID, "admin-user")
		if !errors.Is(err, ErrMemberIsAdmin) {
			t.Fatalf("error = %v, want ErrMemberIsAdmin", err)
		}
	})

	t.Run("non-admin cannot remove", func(t *testing.T) {
		err := svc.RemoveMember(context.Background(), "user-b", family.ID, "user-b")
		if !errors.Is(err, ErrNotAdmin) {
			t.Fatalf("error = %v, want ErrNotAdmin", err)
		}
	})

	t.Run("admin removes regular member", func(t *testing.T) {
		if err := svc.RemoveMember(context.Background(), "admin-user", family.ID, "user-b"); err != nil {
			t.Fatalf("RemoveMember() error = %v", err)
		}
		members, _ := store.ListFamilyMembers(context.Background(), family.ID)
		if len(members) != 1 {
			t.Errorf("members = %d, want 1", len(members))
		}
	})
}

func TestFamilyService_Delete_Cascades(t *testing.T) {
	store := storetest.New()
	family := seedFamily(t, store)
	svc := NewFamilyService(store, nil)

	t.Run("non-admin cannot delete", func(t *testing.T) {
		if err := svc.Delete(context.Background(), "stranger", family.ID); !errors.Is(err, ErrNotAdmin) {
			t.Fatalf("error = %v, want ErrNotAdmin", err)
		}
	})

	if err := svc.Delete(context.Background(), "admin-user", family.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if len(store.Families) != 0 || len(store.Members) != 0 {
		t.Error("family and memberships should cascade away")
	}
}

func TestFamilyService_ForUser(t *testing.T) {
	store := storetest.New()
	family := seedFamily(t, store)
	store.UpsertProfile(context.Background(), core.Profile{ID: "admin-user", Email: "a@example.com", FullName: "Ana"})

	svc := NewFamilyService(store, nil)
	view, err := svc.ForUser(context.Background(), "admin-user")
	if err != nil {
		t.Fatalf("ForUser() error = %v", err)
	}
	if view.Family.ID != family.ID {
		t.Errorf("family ID = %q, want %q", view.Family.ID, family.ID)
	}
	if len(view.Members) != 1 || view.Members[0].Profile.FullName != "Ana" {
		t.Errorf("members = %+v", view.Members)
	}

	if _, err := svc.ForUser(context.Background(), "loner"); !errors.Is(err, ErrNoFamily) {
		t.Fatalf("ForUser(loner) error = %v, want ErrNoFamily", err)
	}
}

func TestFamilyService_ForUser_PlaceholderProfile(t *testing.T) {
	store := storetest.New()
	seedFamily(t, store)

	svc := NewFamilyService(store, nil)
	view, err := svc.ForUser(context.Background(), "admin-user")
	if err != nil {
		t.Fatalf("ForUser() error = %v", err)
	}
	if view.Members[0].Profile.FullName != core.PlaceholderName {
		t.Errorf("missing profile name = %q, want %q", view.Members[0].Profile.FullName, core.PlaceholderName)
	}
}

func TestFamilyService_Members(t *testing.T) {
	store := storetest.New()
	family := seedFamily(t, store)
	store.UpsertProfile(context.Background(), core.Profile{ID: "admin-user", FullName: "Ana"})

	svc := NewFamilyService(store, nil)
	members, err := svc.Members(context.Background(), "admin-user", family.ID)
	if err != nil {
		t.Fatalf("Members() error = %v", err)
	}
	if len(members) != 1 || members[0].Profile.FullName != "Ana" {
		t.Errorf("members = %+v, want single Ana", members)
	}

	if _, err := svc.Members(context.Background(), "stranger", family.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("Members(stranger) error = %v, want ErrForbidden", err)
	}
}
