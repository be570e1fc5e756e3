package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"orderbuddy/internal/db"
	"orderbuddy/models"
)

func openTestDB(t *testing.T, name string) *sql.DB {
	t.Helper()
	d, err := db.Open("file:" + name + "?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })
	return d
}

func seedPair(t *testing.T, d *sql.DB) (owner, sender *models.User, order *models.Order) {
	t.Helper()
	ctx := context.Background()
	users := NewUserRepository(d)
	var err error
	owner, err = users.Create(ctx, "alice", "alice@example.com", "x")
	if err != nil {
		t.Fatal(err)
	}
	sender, err = users.Create(ctx, "bob", "bob@example.com", "x")
	if err != nil {
		t.Fatal(err)
	}
	order, err = NewOrderRepository(d).Create(ctx, &models.Order{
		Restaurant: "Truffles",
		Items:      []string{"burger"},
		SharedBy:   owner.ID,
		Location:   models.NewLocation(12.97, 77.59, ""),
	})
	if err != nil {
		t.Fatal(err)
	}
	return owner, sender, order
}

func TestCreatePending_DuplicateBlockedByConstraint(t *testing.T) {
	d := openTestDB(t, "req_dup")
	owner, sender, order := seedPair(t, d)
	repo := NewRequestRepository(d)
	ctx := context.Background()

	first, err := repo.CreatePending(ctx, order.ID, sender.ID, owner.ID)
	if err != nil {
		t.Fatal(err)
	}
	if first.Status != models.RequestStatusPending {
		t.Fatalf("status = %s, want pending", first.Status)
	}

	if _, err := repo.CreatePending(ctx, order.ID, sender.ID, owner.ID); !errors.Is(err, ErrDuplicatePending) {
		t.Fatalf("expected ErrDuplicatePending, got %v", err)
	}

	// A terminal record frees the slot.
	if ok, err := repo.ResolveReject(ctx, first.ID); err != nil || !ok {
		t.Fatalf("reject: ok=%v err=%v", ok, err)
	}
	if _, err := repo.CreatePending(ctx, order.ID, sender.ID, owner.ID); err != nil {
		t.Fatalf("create after terminal: %v", err)
	}
}

func TestResolveAccept_CASAndConnection(t *testing.T) {
	d := openTestDB(t, "req_cas")
	owner, sender, order := seedPair(t, d)
	repo := NewRequestRepository(d)
	ctx := context.Background()

	req, err := repo.CreatePending(ctx, order.ID, sender.ID, owner.ID)
	if err != nil {
		t.Fatal(err)
	}

	ok, err := repo.ResolveAccept(ctx, req.ID, &models.Contact{Email: "bob@example.com"}, &models.Contact{Email: "a@b.com"})
	if err != nil || !ok {
		t.Fatalf("accept: ok=%v err=%v", ok, err)
	}
	// CAS on a terminal record must lose without error.
	ok, err = repo.ResolveAccept(ctx, req.ID, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatalf("second accept won the CAS")
	}
	ok, err = repo.ResolveReject(ctx, req.ID)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatalf("reject after accept won the CAS")
	}

	got, err := repo.GetByID(ctx, req.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != models.RequestStatusAccepted {
		t.Fatalf("status = %s, want accepted", got.Status)
	}
	if got.SenderContact == nil || got.ReceiverContact == nil {
		t.Fatalf("contacts not stored: %+v", got)
	}

	// The connection was written in the same transaction.
	conns, err := NewConnectionRepository(d).ListForUser(ctx, sender.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(conns) != 1 {
		t.Fatalf("expected one connection, got %+v", conns)
	}
}

func TestConnectionUpsert_Idempotent(t *testing.T) {
	d := openTestDB(t, "conn_upsert")
	owner, sender, _ := seedPair(t, d)
	repo := NewConnectionRepository(d)
	ctx := context.Background()

	c := &models.Contact{Email: "a@b.com"}
	if err := repo.Upsert(ctx, sender.ID, owner.ID, nil, c); err != nil {
		t.Fatal(err)
	}
	if err := repo.Upsert(ctx, owner.ID, sender.ID, c, nil); err != nil {
		t.Fatal(err)
	}
	n, err := repo.Count(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("expected 1 connection row, got %d", n)
	}
}

func TestListPendingForReceiver_ExcludesTerminal(t *testing.T) {
	d := openTestDB(t, "req_list")
	owner, sender, order := seedPair(t, d)
	repo := NewRequestRepository(d)
	ctx := context.Background()

	req, err := repo.CreatePending(ctx, order.ID, sender.ID, owner.ID)
	if err != nil {
		t.Fatal(err)
	}
	got, err := repo.ListPendingForReceiver(ctx, owner.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].ID != req.ID {
		t.Fatalf("expected the pending request, got %+v", got)
	}

	if _, err := repo.ResolveReject(ctx, req.ID); err != nil {
		t.Fatal(err)
	}
	got, err = repo.ListPendingForReceiver(ctx, owner.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Fatalf("terminal request still listed: %+v", got)
	}
}
