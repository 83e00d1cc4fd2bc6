// Package economy implements the city's token ledger: agent balances, the
// vault, and the immutable transaction log from which every balance can be
// rebuilt.
package economy

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/aicity-project/aicity/internal/config"
	"github.com/aicity-project/aicity/internal/platform/logger"
	"github.com/aicity-project/aicity/internal/platform/metrics"
)

// Kind classifies a transaction.
type Kind string

const (
	KindMint     Kind = "mint"
	KindBurn     Kind = "burn"
	KindEarn     Kind = "earn"
	KindSpend    Kind = "spend"
	KindTransfer Kind = "transfer"
	KindTax      Kind = "tax"
	KindFine     Kind = "fine"
	KindWelfare  Kind = "welfare"
)

// Well-known account names in the transaction log.
const (
	VaultAccount = "city_vault"
	SinkAccount  = "sink"
)

var (
	ErrInsufficientFunds = errors.New("economy: insufficient funds")
	ErrUnknownAccount    = errors.New("economy: unknown account")
	ErrAccountClosed     = errors.New("economy: account closed")
	ErrUnauthorizedMint  = errors.New("economy: mint not authorized")
	ErrMintCapExceeded   = errors.New("economy: mint cap for period exceeded")
	ErrVaultInsufficient = errors.New("economy: vault cannot fund this")
)

// Transaction is one append-only ledger record. Never mutated, never deleted.
type Transaction struct {
	ID          int64  `json:"id" db:"id"`
	Day         int    `json:"day" db:"day"`
	From        string `json:"from_account" db:"from_account"`
	To          string `json:"to_account" db:"to_account"`
	Amount      int64  `json:"amount" db:"amount"`
	TaxWithheld int64  `json:"tax_withheld" db:"tax_withheld"`
	Reason      string `json:"reason" db:"reason"`
	Kind        Kind   `json:"kind" db:"kind"`
}

// Persister receives each committed transaction for durable storage.
type Persister interface {
	AppendTransaction(tx Transaction) error
}

// Ledger holds all balances and the vault behind one mutex. Every mutation
// writes exactly one transaction.
type Ledger struct {
	mu          sync.Mutex
	balances    map[string]int64
	closed      map[string]bool
	vault       int64
	burned      int64
	totalSupply int64

	mintedInPeriod  int64
	mintPeriodStart int

	txs       []Transaction
	nextTxID  int64
	cfg       config.Economy
	mintKey   string
	logger    *logger.Logger
	persister Persister
}

// NewLedger creates a ledger whose uncirculated supply sits in the vault.
// mintKey is the authorization token required by Mint.
func NewLedger(cfg config.Economy, mintKey string, log *logger.Logger, persister Persister) *Ledger {
	return &Ledger{
		balances:    make(map[string]int64),
		closed:      make(map[string]bool),
		vault:       cfg.TotalSupply,
		totalSupply: cfg.TotalSupply,
		cfg:         cfg,
		mintKey:     mintKey,
		logger:      log,
		persister:   persister,
	}
}

func (l *Ledger) record(day int, from, to string, amount, tax int64, reason string, kind Kind) {
	l.nextTxID++
	tx := Transaction{
		ID: l.nextTxID, Day: day, From: from, To: to,
		Amount: amount, TaxWithheld: tax, Reason: reason, Kind: kind,
	}
	l.txs = append(l.txs, tx)
	metrics.Get().RecordTransaction()
	if l.persister != nil {
		if err := l.persister.AppendTransaction(tx); err != nil {
			l.logger.Error("persist transaction %d: %v", tx.ID, err)
		}
	}
}

// wealthCap returns the maximum balance any single agent may hold.
func (l *Ledger) wealthCap() int64 {
	return int64(l.cfg.WealthCapPct * float64(l.totalSupply))
}

// Register opens an account and credits the starting balance from the vault.
// The credit is logged as a mint-kind transaction but does not change total
// supply and does not count against the periodic mint cap.
func (l *Ledger) Register(day int, agent string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.balances[agent]; ok {
		return fmt.Errorf("economy: account %q already registered", agent)
	}
	start := l.cfg.StartingTokens
	if l.vault < start {
		return ErrVaultInsufficient
	}
	l.vault -= start
	l.balances[agent] = start
	l.record(day, VaultAccount, agent, start, 0, "citizen registration", KindMint)
	return nil
}

// Earn credits gross income minus tax. Tax goes to the vault. If the net
// would push the agent past the wealth cap, the net is cut to exactly fit
// and the excess is discarded. Returns the net actually credited.
func (l *Ledger) Earn(day int, agent string, gross int64, reason string) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	bal, ok := l.balances[agent]
	if !ok {
		return 0, ErrUnknownAccount
	}
	if l.closed[agent] {
		return 0, ErrAccountClosed
	}
	if gross <= 0 {
		return 0, nil
	}
	tax := int64(float64(gross) * l.cfg.TaxRate)
	net := gross - tax
	if cap := l.wealthCap(); bal+net > cap {
		discarded := bal + net - cap
		net = cap - bal
		if net < 0 {
			net = 0
		}
		l.logger.Info("wealth cap trimmed %s's earnings by %d", agent, discarded)
	}
	// Wages are paid from the vault; the withheld tax never leaves it, so
	// the vault's net outlay is exactly what the agent receives.
	if l.vault < net {
		return 0, ErrVaultInsufficient
	}
	l.vault -= net
	l.balances[agent] = bal + net
	l.record(day, VaultAccount, agent, net, tax, reason, KindEarn)
	return net, nil
}

// Spend debits the agent, sending the tokens to the vault.
func (l *Ledger) Spend(day int, agent string, amount int64, reason string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	bal, ok := l.balances[agent]
	if !ok {
		return ErrUnknownAccount
	}
	if amount <= 0 {
		return nil
	}
	if bal < amount {
		return ErrInsufficientFunds
	}
	l.balances[agent] = bal - amount
	l.vault += amount
	l.record(day, agent, VaultAccount, amount, 0, reason, KindSpend)
	return nil
}

// Transfer moves tokens between two agents. The amount is clamped so the
// source never drops below the minimum balance floor; a clamp to zero fails.
// Returns the amount actually moved.
func (l *Ledger) Transfer(day int, from, to string, amount int64, reason string) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fromBal, ok := l.balances[from]
	if !ok {
		return 0, ErrUnknownAccount
	}
	toBal, ok := l.balances[to]
	if !ok {
		return 0, ErrUnknownAccount
	}
	if l.closed[to] {
		return 0, ErrAccountClosed
	}
	if amount <= 0 {
		return 0, nil
	}
	if max := fromBal - l.cfg.TransferFloor; amount > max {
		amount = max
	}
	// The receiver's wealth-cap headroom also bounds the transfer.
	if headroom := l.wealthCap() - toBal; amount > headroom {
		amount = headroom
	}
	if amount <= 0 {
		return 0, ErrInsufficientFunds
	}
	l.balances[from] = fromBal - amount
	l.balances[to] = toBal + amount
	l.record(day, from, to, amount, 0, reason, KindTransfer)
	return amount, nil
}

// BurnDaily applies the unconditional daily burn. Burned tokens leave
// circulation into the sink, not the vault. Returns true if the agent's
// balance hit zero — the starvation signal.
func (l *Ledger) BurnDaily(day int, agent string, amount int64) (starved bool, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	bal, ok := l.balances[agent]
	if !ok {
		return false, ErrUnknownAccount
	}
	burn := amount
	if burn > bal {
		burn = bal
	}
	l.balances[agent] = bal - burn
	l.burned += burn
	l.record(day, agent, SinkAccount, burn, 0, "daily burn", KindBurn)
	return bal-burn == 0, nil
}

// Fine moves tokens from a convicted agent to the vault, clamped to their
// available balance. Returns the amount actually collected.
func (l *Ledger) Fine(day int, criminal string, amount int64, reason string) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	bal, ok := l.balances[criminal]
	if !ok {
		return 0, ErrUnknownAccount
	}
	if amount > bal {
		amount = bal
	}
	if amount <= 0 {
		return 0, nil
	}
	l.balances[criminal] = bal - amount
	l.vault += amount
	l.record(day, criminal, VaultAccount, amount, 0, reason, KindFine)
	return amount, nil
}

// Welfare grants tokens from the vault to an agent, untaxed. The grant is
// clamped to what the vault still holds, so a low vault pays out partially
// rather than refusing. Returns the amount actually granted.
func (l *Ledger) Welfare(day int, agent string, amount int64) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.grantLocked(day, agent, amount, "welfare grant")
}

// Benefit credits an asset's daily grant from the vault. Benefits are civic
// payouts, not wages: no tax is withheld.
func (l *Ledger) Benefit(day int, agent string, amount int64, reason string) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.grantLocked(day, agent, amount, reason)
}

func (l *Ledger) grantLocked(day int, agent string, amount int64, reason string) (int64, error) {
	bal, ok := l.balances[agent]
	if !ok {
		return 0, ErrUnknownAccount
	}
	if l.closed[agent] {
		return 0, ErrAccountClosed
	}
	if headroom := l.wealthCap() - bal; amount > headroom {
		amount = headroom
	}
	if amount <= 0 {
		return 0, nil
	}
	if amount > l.vault {
		amount = l.vault
	}
	if amount == 0 {
		return 0, ErrVaultInsufficient
	}
	l.vault -= amount
	l.balances[agent] = bal + amount
	l.record(day, VaultAccount, agent, amount, 0, reason, KindWelfare)
	return amount, nil
}

// Mint creates new supply into the vault. Requires the operator key and is
// capped per 30-day period at a fraction of the supply at period start.
func (l *Ledger) Mint(day int, amount int64, authKey, authorizedBy string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if authKey != l.mintKey || l.mintKey == "" {
		l.logger.Error("rejected mint of %d by %s: bad authorization", amount, authorizedBy)
		return ErrUnauthorizedMint
	}
	if day-l.mintPeriodStart >= 30 {
		l.mintPeriodStart = day
		l.mintedInPeriod = 0
	}
	cap := int64(l.cfg.MintMonthlyPct * float64(l.totalSupply))
	if l.mintedInPeriod+amount > cap {
		return ErrMintCapExceeded
	}
	l.mintedInPeriod += amount
	l.totalSupply += amount
	l.vault += amount
	l.record(day, "", VaultAccount, amount, 0, "minted by "+authorizedBy, KindMint)
	return nil
}

// SettleDeath moves a dead agent's remaining balance to the vault and closes
// the account. A dead agent holds zero and can never earn again.
func (l *Ledger) SettleDeath(day int, agent string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	bal, ok := l.balances[agent]
	if !ok {
		return ErrUnknownAccount
	}
	if bal > 0 {
		l.balances[agent] = 0
		l.vault += bal
		l.record(day, agent, VaultAccount, bal, 0, "estate settlement", KindTransfer)
	}
	l.closed[agent] = true
	return nil
}

// Balance returns an agent's current balance.
func (l *Ledger) Balance(agent string) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	bal, ok := l.balances[agent]
	if !ok {
		return 0, ErrUnknownAccount
	}
	return bal, nil
}

// VaultState is a snapshot of the supply accounting.
type VaultState struct {
	TotalSupply  int64 `json:"total_supply"`
	VaultBalance int64 `json:"vault_balance"`
	Circulating  int64 `json:"circulating"`
	Burned       int64 `json:"burned"`
}

// Vault returns the current supply snapshot.
func (l *Ledger) Vault() VaultState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return VaultState{
		TotalSupply:  l.totalSupply,
		VaultBalance: l.vault,
		Circulating:  l.totalSupply - l.vault - l.burned,
		Burned:       l.burned,
	}
}

// Balances returns a copy of all balances.
func (l *Ledger) Balances() map[string]int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make(map[string]int64, len(l.balances))
	for k, v := range l.balances {
		out[k] = v
	}
	return out
}

// Transactions returns a copy of the full log in id order.
func (l *Ledger) Transactions() []Transaction {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Transaction(nil), l.txs...)
}

// Reconcile checks conservation: circulating balances plus the vault plus
// the burn sink must equal total supply.
func (l *Ledger) Reconcile() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	var sum int64
	for _, b := range l.balances {
		if b < 0 {
			return fmt.Errorf("economy: negative balance found")
		}
		sum += b
	}
	if got := sum + l.vault + l.burned; got != l.totalSupply {
		return fmt.Errorf("economy: conservation broken: balances+vault+burned=%d, total supply=%d", got, l.totalSupply)
	}
	return nil
}

// Replay rebuilds balances, vault, and burn sink from a transaction log
// alone, starting from a zero state with the configured initial supply.
// Used to verify the log is sufficient to reconstruct the ledger.
func Replay(cfg config.Economy, txs []Transaction) (balances map[string]int64, vault VaultState) {
	balances = make(map[string]int64)
	vault = VaultState{TotalSupply: cfg.TotalSupply, VaultBalance: cfg.TotalSupply}
	for _, tx := range txs {
		switch {
		case tx.Kind == KindMint && tx.From == "":
			vault.TotalSupply += tx.Amount
			vault.VaultBalance += tx.Amount
		case tx.From == VaultAccount:
			// Includes earn: the vault's outlay is the net amount; the
			// withheld tax never left the vault's side.
			vault.VaultBalance -= tx.Amount
			balances[tx.To] += tx.Amount
		case tx.To == VaultAccount:
			balances[tx.From] -= tx.Amount
			vault.VaultBalance += tx.Amount
		case tx.To == SinkAccount:
			balances[tx.From] -= tx.Amount
			vault.Burned += tx.Amount
		default:
			balances[tx.From] -= tx.Amount
			balances[tx.To] += tx.Amount
		}
	}
	vault.Circulating = vault.TotalSupply - vault.VaultBalance - vault.Burned
	return balances, vault
}

// State is the complete persisted shape of the ledger, minus the
// transaction log which is stored separately.
type State struct {
	Balances        map[string]int64 `json:"balances"`
	Closed          []string         `json:"closed"`
	Vault           VaultState       `json:"vault"`
	MintedInPeriod  int64            `json:"minted_in_period"`
	MintPeriodStart int              `json:"mint_period_start"`
	NextTxID        int64            `json:"next_tx_id"`
}

// State returns everything a checkpoint needs to Restore this ledger.
func (l *Ledger) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	s := State{
		Balances: make(map[string]int64, len(l.balances)),
		Vault: VaultState{
			TotalSupply:  l.totalSupply,
			VaultBalance: l.vault,
			Circulating:  l.totalSupply - l.vault - l.burned,
			Burned:       l.burned,
		},
		MintedInPeriod:  l.mintedInPeriod,
		MintPeriodStart: l.mintPeriodStart,
		NextTxID:        l.nextTxID,
	}
	for k, v := range l.balances {
		s.Balances[k] = v
	}
	for name := range l.closed {
		s.Closed = append(s.Closed, name)
	}
	sort.Strings(s.Closed)
	return s
}

// Restore loads a persisted ledger state, bypassing the operation rules.
// Only the persistence adapter should call this, during resume.
func (l *Ledger) Restore(balances map[string]int64, closed []string, vault VaultState, mintedInPeriod int64, mintPeriodStart int, nextTxID int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances = make(map[string]int64, len(balances))
	for k, v := range balances {
		l.balances[k] = v
	}
	l.closed = make(map[string]bool, len(closed))
	for _, name := range closed {
		l.closed[name] = true
	}
	l.vault = vault.VaultBalance
	l.burned = vault.Burned
	l.totalSupply = vault.TotalSupply
	l.mintedInPeriod = mintedInPeriod
	l.mintPeriodStart = mintPeriodStart
	l.nextTxID = nextTxID
}

// RestoreTransactions reloads the immutable log during resume so replay
// checks and case-window queries keep working across restarts.
func (l *Ledger) RestoreTransactions(txs []Transaction) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.txs = append([]Transaction(nil), txs...)
}
