// Package storage persists day checkpoints to SQLite. A checkpoint is
// all-or-nothing: one transaction replaces the full city state, so the
// database always holds exactly one consistent day boundary.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/aicity-project/aicity/internal/domain/agent"
	"github.com/aicity-project/aicity/internal/economy"
	"github.com/aicity-project/aicity/internal/engine"
	"github.com/aicity-project/aicity/internal/gangs"
	"github.com/aicity-project/aicity/internal/justice"
	"github.com/aicity-project/aicity/internal/memory"
	"github.com/aicity-project/aicity/internal/platform/logger"
	"github.com/aicity-project/aicity/internal/projects"
	"github.com/aicity-project/aicity/internal/social"
)

// ErrNoCheckpoint reports a database with no committed day to resume from.
var ErrNoCheckpoint = errors.New("storage: no checkpoint")

// Store wraps a SQLite connection. It satisfies engine.Persister.
type Store struct {
	db  *sqlx.DB
	log *logger.Logger
}

// Open opens or creates the city database at the given path.
func Open(path string, log *logger.Logger) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("storage: create directory: %w", err)
		}
	}

	db, err := sqlx.Connect("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("storage: open %s: %w", path, err)
	}

	s := &Store{db: db, log: log}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: migrate: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS agents (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		role TEXT NOT NULL,
		status TEXT NOT NULL,
		tokens INTEGER NOT NULL,
		age_days INTEGER NOT NULL,
		mood REAL NOT NULL,
		bribe_susceptibility REAL NOT NULL,
		comprehension_score INTEGER NOT NULL,
		assigned_teacher TEXT NOT NULL,
		home_lot TEXT NOT NULL,
		pos_x REAL NOT NULL,
		pos_y REAL NOT NULL,
		cause_of_death TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS accounts (
		account TEXT PRIMARY KEY,
		balance INTEGER NOT NULL,
		closed INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS vault (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		total_supply INTEGER NOT NULL,
		vault_balance INTEGER NOT NULL,
		circulating INTEGER NOT NULL,
		burned INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS transactions (
		id INTEGER PRIMARY KEY,
		day INTEGER NOT NULL,
		from_account TEXT NOT NULL,
		to_account TEXT NOT NULL,
		amount INTEGER NOT NULL,
		tax_withheld INTEGER NOT NULL,
		reason TEXT NOT NULL,
		kind TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS event_log (
		id TEXT PRIMARY KEY,
		seq INTEGER NOT NULL,
		day INTEGER NOT NULL,
		kind TEXT NOT NULL,
		actor TEXT NOT NULL,
		visibility TEXT NOT NULL
			CHECK (visibility IN ('private','witnessed','rumor','reported','public')),
		payload TEXT NOT NULL,
		knowers TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS police_cases (
		id TEXT PRIMARY KEY,
		status TEXT NOT NULL,
		suspect TEXT NOT NULL,
		opened_day INTEGER NOT NULL,
		payload TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS gangs (
		id TEXT PRIMARY KEY,
		leader TEXT NOT NULL,
		status TEXT NOT NULL,
		payload TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS shared_projects (
		id TEXT PRIMARY KEY,
		status TEXT NOT NULL,
		payload TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS city_assets (
		id TEXT PRIMARY KEY,
		asset_type TEXT NOT NULL,
		payload TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS messages (
		id TEXT PRIMARY KEY,
		day INTEGER NOT NULL,
		sender TEXT NOT NULL,
		recipient TEXT NOT NULL,
		body TEXT NOT NULL,
		event_ref TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS relationships (
		agent_a TEXT NOT NULL,
		agent_b TEXT NOT NULL,
		score REAL NOT NULL,
		context TEXT NOT NULL,
		PRIMARY KEY (agent_a, agent_b)
	);

	CREATE TABLE IF NOT EXISTS moods (
		agent TEXT PRIMARY KEY,
		mood REAL NOT NULL
	);

	CREATE TABLE IF NOT EXISTS memories (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		agent TEXT NOT NULL,
		day INTEGER NOT NULL,
		kind TEXT NOT NULL,
		content TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS stories (
		id TEXT PRIMARY KEY,
		day INTEGER NOT NULL,
		edition TEXT NOT NULL,
		body TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS graduations (
		day INTEGER NOT NULL,
		agent TEXT NOT NULL,
		new_role TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS home_lots (
		id TEXT PRIMARY KEY,
		x INTEGER NOT NULL,
		y INTEGER NOT NULL,
		owner TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS world_tiles (
		col INTEGER NOT NULL,
		row INTEGER NOT NULL,
		tile_type TEXT NOT NULL,
		layer INTEGER NOT NULL,
		built_by TEXT NOT NULL,
		built_day INTEGER NOT NULL,
		asset_id TEXT NOT NULL,
		PRIMARY KEY (col, row, layer)
	);

	CREATE TABLE IF NOT EXISTS positions (
		name TEXT PRIMARY KEY,
		x REAL NOT NULL,
		y REAL NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_event_log_day ON event_log(day);
	CREATE INDEX IF NOT EXISTS idx_event_log_visibility ON event_log(visibility);
	CREATE INDEX IF NOT EXISTS idx_transactions_day ON transactions(day);
	`
	_, err := s.db.Exec(schema)
	return err
}

// wipe lists every table a checkpoint replaces, children first.
var wipe = []string{
	"agents", "accounts", "vault", "transactions", "event_log",
	"police_cases", "gangs", "shared_projects", "city_assets",
	"messages", "relationships", "moods", "memories", "stories",
	"graduations", "home_lots", "world_tiles", "positions", "meta",
}

// Checkpoint replaces the stored state with the given snapshot in one
// transaction. Either the whole day commits or nothing does.
func (s *Store) Checkpoint(ctx context.Context, snap *engine.Snapshot) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage: begin checkpoint: %w", err)
	}
	defer tx.Rollback()

	for _, table := range wipe {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("storage: clear %s: %w", table, err)
		}
	}

	if err := s.writeSnapshot(ctx, tx, snap); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("storage: commit day %d: %w", snap.Day, err)
	}
	s.log.Info("Checkpoint committed for day %d (%d agents, %d events)",
		snap.Day, len(snap.Agents), len(snap.Events))
	return nil
}

func (s *Store) writeSnapshot(ctx context.Context, tx *sqlx.Tx, snap *engine.Snapshot) error {
	closedList, err := json.Marshal(snap.Ledger.Closed)
	if err != nil {
		return fmt.Errorf("storage: marshal closed accounts: %w", err)
	}
	for _, kv := range []struct{ key, value string }{
		{"day", strconv.Itoa(snap.Day)},
		{"seed", strconv.FormatInt(snap.Seed, 10)},
		{"city", snap.City},
		{"minted_in_period", strconv.FormatInt(snap.Ledger.MintedInPeriod, 10)},
		{"mint_period_start", strconv.Itoa(snap.Ledger.MintPeriodStart)},
		{"next_tx_id", strconv.FormatInt(snap.Ledger.NextTxID, 10)},
		{"closed_accounts", string(closedList)},
	} {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO meta (key, value) VALUES (?, ?)", kv.key, kv.value); err != nil {
			return fmt.Errorf("storage: meta %s: %w", kv.key, err)
		}
	}

	stmt, err := tx.PreparexContext(ctx, `INSERT INTO agents
		(id, name, role, status, tokens, age_days, mood, bribe_susceptibility,
		 comprehension_score, assigned_teacher, home_lot, pos_x, pos_y, cause_of_death)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, a := range snap.Agents {
		if _, err := stmt.ExecContext(ctx,
			a.ID, a.Name, a.Role, a.Status, a.Tokens, a.AgeDays, a.Mood,
			a.BribeSusceptibility, a.ComprehensionScore, a.AssignedTeacher,
			a.HomeLot, a.PosX, a.PosY, a.CauseOfDeath,
		); err != nil {
			return fmt.Errorf("storage: insert agent %s: %w", a.Name, err)
		}
	}

	closed := make(map[string]bool, len(snap.Ledger.Closed))
	for _, name := range snap.Ledger.Closed {
		closed[name] = true
	}
	for account, balance := range snap.Ledger.Balances {
		flag := 0
		if closed[account] {
			flag = 1
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO accounts (account, balance, closed) VALUES (?, ?, ?)",
			account, balance, flag); err != nil {
			return fmt.Errorf("storage: insert account %s: %w", account, err)
		}
	}
	v := snap.Ledger.Vault
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO vault (id, total_supply, vault_balance, circulating, burned)
		 VALUES (1, ?, ?, ?, ?)`,
		v.TotalSupply, v.VaultBalance, v.Circulating, v.Burned); err != nil {
		return fmt.Errorf("storage: insert vault: %w", err)
	}

	for _, t := range snap.Transactions {
		if _, err := tx.NamedExecContext(ctx, `INSERT INTO transactions
			(id, day, from_account, to_account, amount, tax_withheld, reason, kind)
			VALUES (:id, :day, :from_account, :to_account, :amount, :tax_withheld, :reason, :kind)`,
			t); err != nil {
			return fmt.Errorf("storage: insert transaction %d: %w", t.ID, err)
		}
	}

	for _, rec := range snap.Events {
		payload, err := json.Marshal(rec.Event)
		if err != nil {
			return fmt.Errorf("storage: marshal event %s: %w", rec.Event.ID, err)
		}
		knowers, _ := json.Marshal(rec.Knowers)
		if _, err := tx.ExecContext(ctx, `INSERT INTO event_log
			(id, seq, day, kind, actor, visibility, payload, knowers)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			rec.Event.ID, rec.Event.Seq, rec.Event.Day, rec.Event.Kind,
			rec.Event.Actor, rec.Event.Visibility.String(), string(payload), string(knowers),
		); err != nil {
			return fmt.Errorf("storage: insert event %s: %w", rec.Event.ID, err)
		}
	}

	for _, c := range snap.Cases {
		payload, err := json.Marshal(c)
		if err != nil {
			return fmt.Errorf("storage: marshal case %s: %w", c.ID, err)
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO police_cases (id, status, suspect, opened_day, payload) VALUES (?, ?, ?, ?, ?)",
			c.ID, c.Status, c.Suspect, c.OpenedDay, string(payload)); err != nil {
			return fmt.Errorf("storage: insert case %s: %w", c.ID, err)
		}
	}

	for _, g := range snap.Gangs {
		payload, err := json.Marshal(g)
		if err != nil {
			return fmt.Errorf("storage: marshal gang %s: %w", g.ID, err)
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO gangs (id, leader, status, payload) VALUES (?, ?, ?, ?)",
			g.ID, g.Leader, g.Status, string(payload)); err != nil {
			return fmt.Errorf("storage: insert gang %s: %w", g.ID, err)
		}
	}

	for _, p := range snap.Projects {
		payload, err := json.Marshal(p)
		if err != nil {
			return fmt.Errorf("storage: marshal project %s: %w", p.ID, err)
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO shared_projects (id, status, payload) VALUES (?, ?, ?)",
			p.ID, p.Status, string(payload)); err != nil {
			return fmt.Errorf("storage: insert project %s: %w", p.ID, err)
		}
	}

	for _, a := range snap.Assets {
		payload, err := json.Marshal(a)
		if err != nil {
			return fmt.Errorf("storage: marshal asset %s: %w", a.ID, err)
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO city_assets (id, asset_type, payload) VALUES (?, ?, ?)",
			a.ID, a.Type, string(payload)); err != nil {
			return fmt.Errorf("storage: insert asset %s: %w", a.ID, err)
		}
	}

	for _, m := range snap.Messages {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO messages (id, day, sender, recipient, body, event_ref) VALUES (?, ?, ?, ?, ?, ?)",
			m.ID, m.Day, m.From, m.To, m.Body, m.EventRef); err != nil {
			return fmt.Errorf("storage: insert message %s: %w", m.ID, err)
		}
	}

	for _, b := range snap.Bonds {
		if _, err := tx.NamedExecContext(ctx, `INSERT INTO relationships
			(agent_a, agent_b, score, context)
			VALUES (:agent_a, :agent_b, :score, :context)`, b); err != nil {
			return fmt.Errorf("storage: insert bond %s/%s: %w", b.AgentA, b.AgentB, err)
		}
	}

	for agentName, mood := range snap.Moods {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO moods (agent, mood) VALUES (?, ?)", agentName, mood); err != nil {
			return fmt.Errorf("storage: insert mood %s: %w", agentName, err)
		}
	}

	for _, e := range snap.Memories {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO memories (agent, day, kind, content) VALUES (?, ?, ?, ?)",
			e.Agent, e.Day, e.Kind, e.Content); err != nil {
			return fmt.Errorf("storage: insert memory: %w", err)
		}
	}

	for _, st := range snap.Stories {
		if _, err := tx.NamedExecContext(ctx,
			"INSERT INTO stories (id, day, edition, body) VALUES (:id, :day, :edition, :body)",
			st); err != nil {
			return fmt.Errorf("storage: insert story %s: %w", st.ID, err)
		}
	}

	for _, g := range snap.Graduations {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO graduations (day, agent, new_role) VALUES (?, ?, ?)",
			g.Day, g.Agent, g.NewRole); err != nil {
			return fmt.Errorf("storage: insert graduation %s: %w", g.Agent, err)
		}
	}

	for _, lot := range snap.HomeLots {
		if _, err := tx.NamedExecContext(ctx,
			"INSERT INTO home_lots (id, x, y, owner) VALUES (:id, :x, :y, :owner)",
			lot); err != nil {
			return fmt.Errorf("storage: insert lot %s: %w", lot.ID, err)
		}
	}

	for _, t := range snap.Tiles {
		if _, err := tx.NamedExecContext(ctx, `INSERT INTO world_tiles
			(col, row, tile_type, layer, built_by, built_day, asset_id)
			VALUES (:col, :row, :tile_type, :layer, :built_by, :built_day, :asset_id)`,
			t); err != nil {
			return fmt.Errorf("storage: insert tile %d/%d: %w", t.Col, t.Row, err)
		}
	}

	for _, p := range snap.Positions {
		if _, err := tx.NamedExecContext(ctx,
			"INSERT INTO positions (name, x, y) VALUES (:name, :x, :y)", p); err != nil {
			return fmt.Errorf("storage: insert position %s: %w", p.Name, err)
		}
	}

	return nil
}

// Load reads the last committed checkpoint, or ErrNoCheckpoint on a
// fresh database.
func (s *Store) Load(ctx context.Context) (*engine.Snapshot, error) {
	meta, err := s.loadMeta(ctx)
	if err != nil {
		return nil, err
	}
	if _, ok := meta["day"]; !ok {
		return nil, ErrNoCheckpoint
	}

	snap := &engine.Snapshot{City: meta["city"]}
	snap.Day, _ = strconv.Atoi(meta["day"])
	snap.Seed, _ = strconv.ParseInt(meta["seed"], 10, 64)

	ledger, err := s.loadLedger(ctx, meta)
	if err != nil {
		return nil, err
	}
	snap.Ledger = ledger

	if err := s.db.SelectContext(ctx, &snap.Transactions,
		`SELECT id, day, from_account, to_account, amount, tax_withheld, reason, kind
		 FROM transactions ORDER BY id`); err != nil {
		return nil, fmt.Errorf("storage: load transactions: %w", err)
	}

	if err := s.loadAgents(ctx, snap); err != nil {
		return nil, err
	}
	if err := s.loadEvents(ctx, snap); err != nil {
		return nil, err
	}
	snap.Cases, err = loadPayloads[justice.Case](ctx, s.db, "SELECT payload FROM police_cases ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("storage: load cases: %w", err)
	}
	snap.Gangs, err = loadPayloads[gangs.Gang](ctx, s.db, "SELECT payload FROM gangs ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("storage: load gangs: %w", err)
	}
	snap.Projects, err = loadPayloads[projects.Project](ctx, s.db, "SELECT payload FROM shared_projects ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("storage: load projects: %w", err)
	}
	snap.Assets, err = loadPayloads[projects.Asset](ctx, s.db, "SELECT payload FROM city_assets ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("storage: load assets: %w", err)
	}

	if err := s.loadSocial(ctx, snap); err != nil {
		return nil, err
	}
	if err := s.loadWorld(ctx, snap); err != nil {
		return nil, err
	}
	return snap, nil
}

func (s *Store) loadMeta(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT key, value FROM meta")
	if err != nil {
		return nil, fmt.Errorf("storage: load meta: %w", err)
	}
	defer rows.Close()
	meta := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		meta[k] = v
	}
	return meta, rows.Err()
}

func (s *Store) loadLedger(ctx context.Context, meta map[string]string) (economy.State, error) {
	state := economy.State{Balances: make(map[string]int64)}
	state.MintedInPeriod, _ = strconv.ParseInt(meta["minted_in_period"], 10, 64)
	state.MintPeriodStart, _ = strconv.Atoi(meta["mint_period_start"])
	state.NextTxID, _ = strconv.ParseInt(meta["next_tx_id"], 10, 64)
	if raw := meta["closed_accounts"]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &state.Closed); err != nil {
			return state, fmt.Errorf("storage: unmarshal closed accounts: %w", err)
		}
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT account, balance FROM accounts ORDER BY account")
	if err != nil {
		return state, fmt.Errorf("storage: load accounts: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var account string
		var balance int64
		if err := rows.Scan(&account, &balance); err != nil {
			return state, err
		}
		state.Balances[account] = balance
	}
	if err := rows.Err(); err != nil {
		return state, err
	}

	err = s.db.QueryRowContext(ctx,
		"SELECT total_supply, vault_balance, circulating, burned FROM vault WHERE id = 1").
		Scan(&state.Vault.TotalSupply, &state.Vault.VaultBalance,
			&state.Vault.Circulating, &state.Vault.Burned)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return state, fmt.Errorf("storage: load vault: %w", err)
	}
	return state, nil
}

func (s *Store) loadAgents(ctx context.Context, snap *engine.Snapshot) error {
	rows, err := s.db.QueryContext(ctx, `SELECT
		id, name, role, status, tokens, age_days, mood, bribe_susceptibility,
		comprehension_score, assigned_teacher, home_lot, pos_x, pos_y, cause_of_death
		FROM agents ORDER BY id`)
	if err != nil {
		return fmt.Errorf("storage: load agents: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var a agent.Agent
		if err := rows.Scan(
			&a.ID, &a.Name, &a.Role, &a.Status, &a.Tokens, &a.AgeDays, &a.Mood,
			&a.BribeSusceptibility, &a.ComprehensionScore, &a.AssignedTeacher,
			&a.HomeLot, &a.PosX, &a.PosY, &a.CauseOfDeath,
		); err != nil {
			return err
		}
		snap.Agents = append(snap.Agents, a)
	}
	return rows.Err()
}

func (s *Store) loadEvents(ctx context.Context, snap *engine.Snapshot) error {
	rows, err := s.db.QueryContext(ctx,
		"SELECT payload, knowers FROM event_log ORDER BY seq")
	if err != nil {
		return fmt.Errorf("storage: load events: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var payload, knowers string
		if err := rows.Scan(&payload, &knowers); err != nil {
			return err
		}
		var rec engine.EventRecord
		if err := json.Unmarshal([]byte(payload), &rec.Event); err != nil {
			return fmt.Errorf("storage: unmarshal event: %w", err)
		}
		if err := json.Unmarshal([]byte(knowers), &rec.Knowers); err != nil {
			return fmt.Errorf("storage: unmarshal knowers: %w", err)
		}
		snap.Events = append(snap.Events, rec)
	}
	return rows.Err()
}

func (s *Store) loadSocial(ctx context.Context, snap *engine.Snapshot) error {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, day, sender, recipient, body, event_ref FROM messages ORDER BY day, id")
	if err != nil {
		return fmt.Errorf("storage: load messages: %w", err)
	}
	for rows.Next() {
		var m social.Message
		if err := rows.Scan(&m.ID, &m.Day, &m.From, &m.To, &m.Body, &m.EventRef); err != nil {
			rows.Close()
			return err
		}
		snap.Messages = append(snap.Messages, m)
	}
	rows.Close()

	if err := s.db.SelectContext(ctx, &snap.Bonds,
		"SELECT agent_a, agent_b, score, context FROM relationships ORDER BY agent_a, agent_b"); err != nil {
		return fmt.Errorf("storage: load bonds: %w", err)
	}

	snap.Moods = make(map[string]float64)
	moodRows, err := s.db.QueryContext(ctx, "SELECT agent, mood FROM moods")
	if err != nil {
		return fmt.Errorf("storage: load moods: %w", err)
	}
	defer moodRows.Close()
	for moodRows.Next() {
		var name string
		var mood float64
		if err := moodRows.Scan(&name, &mood); err != nil {
			return err
		}
		snap.Moods[name] = mood
	}
	if err := moodRows.Err(); err != nil {
		return err
	}

	memRows, err := s.db.QueryContext(ctx,
		"SELECT agent, day, kind, content FROM memories ORDER BY seq")
	if err != nil {
		return fmt.Errorf("storage: load memories: %w", err)
	}
	defer memRows.Close()
	for memRows.Next() {
		var e memory.Entry
		if err := memRows.Scan(&e.Agent, &e.Day, &e.Kind, &e.Content); err != nil {
			return err
		}
		snap.Memories = append(snap.Memories, e)
	}
	return memRows.Err()
}

func (s *Store) loadWorld(ctx context.Context, snap *engine.Snapshot) error {
	if err := s.db.SelectContext(ctx, &snap.Stories,
		"SELECT id, day, edition, body FROM stories ORDER BY day, id"); err != nil {
		return fmt.Errorf("storage: load stories: %w", err)
	}
	if err := s.db.SelectContext(ctx, &snap.Graduations,
		"SELECT day, agent, new_role FROM graduations ORDER BY day, agent"); err != nil {
		return fmt.Errorf("storage: load graduations: %w", err)
	}
	if err := s.db.SelectContext(ctx, &snap.HomeLots,
		"SELECT id, x, y, owner FROM home_lots ORDER BY id"); err != nil {
		return fmt.Errorf("storage: load lots: %w", err)
	}
	if err := s.db.SelectContext(ctx, &snap.Tiles,
		`SELECT col, row, tile_type, layer, built_by, built_day, asset_id
		 FROM world_tiles ORDER BY layer, row, col`); err != nil {
		return fmt.Errorf("storage: load tiles: %w", err)
	}
	if err := s.db.SelectContext(ctx, &snap.Positions,
		"SELECT name, x, y FROM positions ORDER BY name"); err != nil {
		return fmt.Errorf("storage: load positions: %w", err)
	}
	return nil
}

// loadPayloads reads a JSON payload column into a typed slice.
func loadPayloads[T any](ctx context.Context, db *sqlx.DB, query string) ([]T, error) {
	var raw []string
	if err := db.SelectContext(ctx, &raw, query); err != nil {
		return nil, err
	}
	var out []T
	for _, payload := range raw {
		var item T
		if err := json.Unmarshal([]byte(payload), &item); err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, nil
}
