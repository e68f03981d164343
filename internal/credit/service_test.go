// AngelaMos | 2026
// service_test.go

package credit

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/copystudio/internal/core"
)

// memRepository mirrors the SQL guards: conditional debit and a unique
// reference per ledger row.
type memRepository struct {
	mu       sync.Mutex
	profiles map[string]*Profile
	txs      []Transaction
	refs     map[string]struct{}
}

func newMemRepository() *memRepository {
	return &memRepository{
		profiles: make(map[string]*Profile),
		refs:     make(map[string]struct{}),
	}
}

func (m *memRepository) CreateProfile(_ context.Context, userID string, bonus int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.profiles[userID]; ok {
		return false, nil
	}
	m.profiles[userID] = &Profile{UserID: userID, PlanTier: PlanFree, CreditBalance: bonus}
	if bonus > 0 {
		m.appendLocked(Transaction{UserID: userID, Kind: KindSignupBonus, CreditsDelta: bonus,
			BalanceAfter: bonus, Reference: "signup:" + userID})
	}
	return true, nil
}

func (m *memRepository) GetProfile(_ context.Context, userID string) (*Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.profiles[userID]
	if !ok {
		return nil, fmt.Errorf("get profile: %w", core.ErrNotFound)
	}
	cp := *p
	return &cp, nil
}

func (m *memRepository) Debit(_ context.Context, userID string, amount int, ref string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.profiles[userID]
	if !ok || p.CreditBalance < amount {
		return 0, fmt.Errorf("debit credits: %w", core.ErrInsufficientCredits)
	}
	if _, dup := m.refs[ref]; dup {
		return 0, fmt.Errorf("debit credits: %w", core.ErrAlreadyProcessed)
	}
	p.CreditBalance -= amount
	m.appendLocked(Transaction{UserID: userID, Kind: KindGeneration, CreditsDelta: -amount,
		BalanceAfter: p.CreditBalance, Reference: ref})
	return p.CreditBalance, nil
}

func (m *memRepository) Credit(_ context.Context, e Entry) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.profiles[e.UserID]
	if !ok {
		return 0, fmt.Errorf("credit: %w", core.ErrNotFound)
	}
	if _, dup := m.refs[e.Reference]; dup {
		return 0, fmt.Errorf("credit: %w", core.ErrAlreadyProcessed)
	}
	p.CreditBalance += e.Credits
	if e.UpgradePlan {
		p.PlanTier = PlanPro
	}
	m.appendLocked(Transaction{UserID: e.UserID, Kind: e.Kind, CreditsDelta: e.Credits,
		BalanceAfter: p.CreditBalance, Reference: e.Reference, PriceID: e.PriceID})
	return p.CreditBalance, nil
}

func (m *memRepository) appendLocked(t Transaction) {
	m.refs[t.Reference] = struct{}{}
	m.txs = append(m.txs, t)
}

func (m *memRepository) ListTransactions(_ context.Context, userID string, limit int) ([]Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []Transaction
	for i := len(m.txs) - 1; i >= 0 && len(out) < limit; i-- {
		if m.txs[i].UserID == userID {
			out = append(out, m.txs[i])
		}
	}
	return out, nil
}

func (m *memRepository) Summary(context.Context) (*Summary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return &Summary{Profiles: len(m.profiles)}, nil
}

func newTestLedger(t *testing.T, bonus int) (*Ledger, *memRepository) {
	t.Helper()
	repo := newMemRepository()
	return NewLedger(repo, bonus, nil), repo
}

func TestLedger_OpenAccountIsIdempotent(t *testing.T) {
	ledger, repo := newTestLedger(t, 3)
	ctx := context.Background()

	require.NoError(t, ledger.OpenAccount(ctx, "user-1"))
	require.NoError(t, ledger.OpenAccount(ctx, "user-1"))

	balance, err := ledger.GetBalance(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 3, balance)
	assert.Len(t, repo.txs, 1)
}

func TestLedger_ConcurrentDebitsNeverOverdraw(t *testing.T) {
	ledger, _ := newTestLedger(t, 1)
	ctx := context.Background()
	require.NoError(t, ledger.OpenAccount(ctx, "user-1"))

	var ok atomic.Int32
	var wg sync.WaitGroup
	for i := range 2 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := ledger.TryDebit(ctx, "user-1", 1, fmt.Sprintf("generation:%d", i)); err == nil {
				ok.Add(1)
			}
		}()
	}
	wg.Wait()

	balance, err := ledger.GetBalance(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, int32(1), ok.Load())
	assert.Equal(t, 0, balance)
}

func TestLedger_ManyConcurrentDebits(t *testing.T) {
	ledger, _ := newTestLedger(t, 10)
	ctx := context.Background()
	require.NoError(t, ledger.OpenAccount(ctx, "user-1"))

	var ok atomic.Int32
	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := ledger.TryDebit(ctx, "user-1", 1, fmt.Sprintf("generation:%d", i)); err == nil {
				ok.Add(1)
			}
		}()
	}
	wg.Wait()

	balance, _ := ledger.GetBalance(ctx, "user-1")
	assert.Equal(t, int32(10), ok.Load())
	assert.Equal(t, 0, balance)
}

func TestLedger_DebitThenRefundRoundTrips(t *testing.T) {
	ledger, _ := newTestLedger(t, 3)
	ctx := context.Background()
	require.NoError(t, ledger.OpenAccount(ctx, "user-1"))

	_, err := ledger.TryDebit(ctx, "user-1", 1, DebitReference("gen-1"))
	require.NoError(t, err)

	balance, err := ledger.Refund(ctx, "user-1", 1, RefundReference("gen-1"))
	require.NoError(t, err)
	assert.Equal(t, 3, balance)

	balance, err = ledger.Refund(ctx, "user-1", 1, RefundReference("gen-1"))
	require.NoError(t, err)
	assert.Equal(t, 3, balance)
}

func TestLedger_CreditIsIdempotentByReference(t *testing.T) {
	ledger, repo := newTestLedger(t, 0)
	ctx := context.Background()
	require.NoError(t, ledger.OpenAccount(ctx, "user-1"))

	purchase := Purchase{
		Credits:          50,
		AmountPaidCents:  900,
		Currency:         "usd",
		PaymentReference: "cs_test_1",
		PriceID:          "price_small",
	}

	balance, err := ledger.Credit(ctx, "user-1", purchase)
	require.NoError(t, err)
	assert.Equal(t, 50, balance)

	_, err = ledger.Credit(ctx, "user-1", purchase)
	assert.ErrorIs(t, err, core.ErrAlreadyProcessed)

	p, err := ledger.GetProfile(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 50, p.CreditBalance)
	assert.Equal(t, PlanPro, p.PlanTier)

	purchases := 0
	for _, tx := range repo.txs {
		if tx.Kind == KindPurchase {
			purchases++
		}
	}
	assert.Equal(t, 1, purchases)
}

func TestLedger_CreditUnknownUserIsDataIncomplete(t *testing.T) {
	ledger, _ := newTestLedger(t, 0)

	_, err := ledger.Credit(context.Background(), "ghost", Purchase{
		Credits:          50,
		PaymentReference: "cs_test_2",
	})
	assert.ErrorIs(t, err, core.ErrDataIncomplete)
}

func TestLedger_TryDebitRejectsNonPositive(t *testing.T) {
	ledger, _ := newTestLedger(t, 3)
	_, err := ledger.TryDebit(context.Background(), "user-1", 0, "generation:x")
	assert.ErrorIs(t, err, core.ErrInvalidInput)
}

func TestLedger_ListTransactionsNewestFirst(t *testing.T) {
	ledger, _ := newTestLedger(t, 3)
	ctx := context.Background()
	require.NoError(t, ledger.OpenAccount(ctx, "user-1"))
	_, err := ledger.TryDebit(ctx, "user-1", 1, DebitReference("gen-1"))
	require.NoError(t, err)
	_, err = ledger.Grant(ctx, "user-1", 5, "grant:1", "support")
	require.NoError(t, err)

	txs, err := ledger.ListTransactions(ctx, "user-1", 0)
	require.NoError(t, err)
	require.Len(t, txs, 3)

	kinds := []string{txs[0].Kind, txs[1].Kind, txs[2].Kind}
	assert.Equal(t, []string{KindGrant, KindGeneration, KindSignupBonus}, kinds)
	assert.Equal(t, 7, txs[0].BalanceAfter)
}
