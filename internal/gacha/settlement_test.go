package gacha

import (
	"context"
	stderrors "errors"
	"sync"
	"testing"

	"github.com/garagemint/garagemint/internal/domain/car"
	"github.com/garagemint/garagemint/internal/storage"
	"github.com/garagemint/garagemint/internal/storage/memory"
)

type countingSettler struct {
	mu       sync.Mutex
	failures int
	calls    int
	inner    storage.Settler
}

func (c *countingSettler) SettleDraw(ctx context.Context, userID string, cost int64, cr car.Car) (int64, error) {
	c.mu.Lock()
	c.calls++
	fail := c.failures > 0
	if fail {
		c.failures--
	}
	c.mu.Unlock()
	if fail {
		return 0, stderrors.New("transient store error")
	}
	return c.inner.SettleDraw(ctx, userID, cost, cr)
}

func pendingFixture(token string) PendingSettlement {
	return PendingSettlement{
		UserID: "u1",
		Cost:   100,
		Car:    car.Car{TokenID: token, OwnerID: "u1", ModelName: "Road Runner", MintTxHash: "0xabc"},
	}
}

func TestRetrierEnqueueIdempotent(t *testing.T) {
	r := NewSettlementRetrier(memory.New(), nil)

	r.Enqueue(pendingFixture("tok1"))
	r.Enqueue(pendingFixture("tok1"))
	r.Enqueue(pendingFixture("tok2"))

	if got := r.QueueDepth(); got != 2 {
		t.Fatalf("expected depth 2, got %d", got)
	}
}

func TestRetrierRecoversSettlement(t *testing.T) {
	store := memory.New()
	if _, err := store.UpsertUser(context.Background(), "u1", "NWallet", 500); err != nil {
		t.Fatalf("seed: %v", err)
	}
	settler := &countingSettler{failures: 1, inner: store}
	r := NewSettlementRetrier(settler, nil)

	p := pendingFixture("tok1")
	r.Enqueue(p)

	entry := r.pending["tok1"]
	r.attempt(context.Background(), entry)
	if r.QueueDepth() != 1 {
		t.Fatalf("entry dropped after transient failure")
	}
	if entry.Attempts != 1 {
		t.Fatalf("expected 1 attempt, got %d", entry.Attempts)
	}

	r.attempt(context.Background(), entry)
	if r.QueueDepth() != 0 {
		t.Fatalf("entry not removed after recovery")
	}

	u, _ := store.GetUser(context.Background(), "u1")
	if u.Coins != 400 {
		t.Fatalf("balance %d after recovered settlement, expected 400", u.Coins)
	}
	cars, _ := store.ListCarsByOwner(context.Background(), "u1")
	if len(cars) != 1 || cars[0].TokenID != "tok1" {
		t.Fatalf("car not recorded: %v", cars)
	}
}

func TestRetrierDropsDuplicateToken(t *testing.T) {
	store := memory.New()
	if _, err := store.UpsertUser(context.Background(), "u1", "NWallet", 500); err != nil {
		t.Fatalf("seed: %v", err)
	}
	// The settlement already landed.
	if _, err := store.SettleDraw(context.Background(), "u1", 100, pendingFixture("tok1").Car); err != nil {
		t.Fatalf("settle: %v", err)
	}

	r := NewSettlementRetrier(store, nil)
	r.Enqueue(pendingFixture("tok1"))
	r.attempt(context.Background(), r.pending["tok1"])

	if r.QueueDepth() != 0 {
		t.Fatalf("duplicate token entry not dropped")
	}
	u, _ := store.GetUser(context.Background(), "u1")
	if u.Coins != 400 {
		t.Fatalf("balance %d, double charge on duplicate retry", u.Coins)
	}
}

func TestRetrierDropsUnrecoverableEntries(t *testing.T) {
	r := NewSettlementRetrier(memory.New(), nil)
	r.Enqueue(pendingFixture("tok1"))

	// No such user in the store; retrying cannot succeed.
	r.attempt(context.Background(), r.pending["tok1"])
	if r.QueueDepth() != 0 {
		t.Fatalf("unrecoverable entry kept in queue")
	}
}

func TestRetrierExhaustsRetries(t *testing.T) {
	settler := &countingSettler{failures: 1000, inner: memory.New()}
	r := NewSettlementRetrier(settler, nil)
	r.maxTries = 3
	r.Enqueue(pendingFixture("tok1"))

	for i := 0; i < 5 && r.QueueDepth() > 0; i++ {
		r.attempt(context.Background(), r.pending["tok1"])
	}

	if r.QueueDepth() != 0 {
		t.Fatalf("entry kept after exhausting retries")
	}
	if settler.calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", settler.calls)
	}
}

func TestRetrierStartStop(t *testing.T) {
	r := NewSettlementRetrier(memory.New(), nil)

	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("second start: %v", err)
	}
	if err := r.Stop(context.Background()); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if err := r.Stop(context.Background()); err != nil {
		t.Fatalf("second stop: %v", err)
	}
}
