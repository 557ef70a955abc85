package session

import (
	"bytes"
	_ "embed"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"tradesim/internal/bot"
	"tradesim/internal/history"
	"tradesim/internal/ledger"
	"tradesim/internal/market"

	"github.com/google/uuid"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"
	"gopkg.in/yaml.v3"
)

const StateVersion = 1

var ErrSnapshotInvalid = errors.New("invalid session snapshot")

//go:embed state.schema.json
var stateSchemaJSON string

var (
	stateSchemaOnce sync.Once
	stateSchema     *jsonschema.Schema
	stateSchemaErr  error
)

// State is the export payload. It carries everything needed to continue the
// session, including the random source, so replaying the same tick times
// after Restore yields the same results.
type State struct {
	Version    int             `json:"version" yaml:"version"`
	SessionID  string          `json:"session_id" yaml:"session_id"`
	Symbol     string          `json:"symbol" yaml:"symbol"`
	Tick       uint64          `json:"tick" yaml:"tick"`
	Time       time.Time       `json:"time" yaml:"time"`
	Price      decimal.Decimal `json:"price" yaml:"price"`
	Cash       decimal.Decimal `json:"cash" yaml:"cash"`
	Holdings   decimal.Decimal `json:"holdings" yaml:"holdings"`
	EntryPrice decimal.Decimal `json:"entry_price" yaml:"entry_price"`
	TradeSeq   uint64          `json:"trade_seq" yaml:"trade_seq"`
	Bot        BotView         `json:"bot" yaml:"bot"`
	History    []ledger.Trade  `json:"history" yaml:"history"`
	Series     []market.Point  `json:"series" yaml:"series"`
	RandState  string          `json:"rand_state" yaml:"rand_state"`
}

func (s *Session) Export() (State, error) {
	rs, err := s.pcg.MarshalBinary()
	if err != nil {
		return State{}, fmt.Errorf("export random state: %w", err)
	}
	bal := s.ledger.Balances()
	trades := s.history.Query(0)
	if trades == nil {
		trades = []ledger.Trade{}
	}
	return State{
		Version:    StateVersion,
		SessionID:  s.id.String(),
		Symbol:     s.cfg.Symbol,
		Tick:       s.tick,
		Time:       s.now,
		Price:      s.price,
		Cash:       bal.Cash,
		Holdings:   bal.Holdings,
		EntryPrice: bal.EntryPrice,
		TradeSeq:   bal.TradeSeq,
		Bot:        s.botView(),
		History:    trades,
		Series:     s.series.Points(),
		RandState:  base64.StdEncoding.EncodeToString(rs),
	}, nil
}

// Restore rebuilds a session from st. Static settings (volatility, fee,
// capacities, the entry heuristic) come from cfg; thresholds and balances
// come from st.
func Restore(cfg Config, st State) (*Session, error) {
	if st.Version != StateVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrSnapshotInvalid, st.Version)
	}
	id, err := uuid.Parse(st.SessionID)
	if err != nil {
		return nil, fmt.Errorf("%w: session id: %v", ErrSnapshotInvalid, err)
	}
	if !st.Price.IsPositive() {
		return nil, fmt.Errorf("%w: price %s must be > 0", ErrSnapshotInvalid, st.Price)
	}
	if strings.TrimSpace(st.Symbol) != "" {
		cfg.Symbol = st.Symbol
	}
	cfg.Bot.TakeProfitPct = st.Bot.TakeProfitPct
	cfg.Bot.StopLossPct = st.Bot.StopLossPct
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSnapshotInvalid, err)
	}

	raw, err := base64.StdEncoding.DecodeString(st.RandState)
	if err != nil {
		return nil, fmt.Errorf("%w: rand state: %v", ErrSnapshotInvalid, err)
	}
	pcg := &rand.PCG{}
	if err := pcg.UnmarshalBinary(raw); err != nil {
		return nil, fmt.Errorf("%w: rand state: %v", ErrSnapshotInvalid, err)
	}
	rng := rand.New(pcg)

	led, err := ledger.Restore(id, ledger.Balances{
		Cash:       st.Cash,
		Holdings:   st.Holdings,
		EntryPrice: st.EntryPrice,
		TradeSeq:   st.TradeSeq,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSnapshotInvalid, err)
	}
	engine, err := bot.NewEngine(cfg.Bot, rng)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSnapshotInvalid, err)
	}
	engine.Restore(st.Bot.Active, st.Bot.State, st.Bot.Status)

	return &Session{
		cfg:     cfg,
		id:      id,
		pcg:     pcg,
		gen:     market.NewGenerator(rng, cfg.Volatility),
		series:  market.NewSeriesFrom(cfg.Window, st.Series),
		price:   st.Price,
		ledger:  led,
		bot:     engine,
		history: history.NewFrom(cfg.HistoryCapacity, st.History),
		tick:    st.Tick,
		now:     st.Time,
	}, nil
}

func compiledStateSchema() (*jsonschema.Schema, error) {
	stateSchemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("state.schema.json", strings.NewReader(stateSchemaJSON)); err != nil {
			stateSchemaErr = err
			return
		}
		stateSchema, stateSchemaErr = compiler.Compile("state.schema.json")
	})
	return stateSchema, stateSchemaErr
}

// DecodeState parses and validates a JSON export.
func DecodeState(raw []byte) (State, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return State{}, fmt.Errorf("%w: empty payload", ErrSnapshotInvalid)
	}
	if !gjson.ValidBytes(raw) {
		return State{}, fmt.Errorf("%w: malformed json", ErrSnapshotInvalid)
	}
	if v := gjson.GetBytes(raw, "version"); !v.Exists() || v.Int() != StateVersion {
		return State{}, fmt.Errorf("%w: unsupported version %s", ErrSnapshotInvalid, v.Raw)
	}

	schema, err := compiledStateSchema()
	if err != nil {
		return State{}, fmt.Errorf("compile state schema: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return State{}, fmt.Errorf("%w: %v", ErrSnapshotInvalid, err)
	}
	if err := schema.Validate(doc); err != nil {
		return State{}, fmt.Errorf("%w: %v", ErrSnapshotInvalid, err)
	}

	var st State
	if err := json.Unmarshal(raw, &st); err != nil {
		return State{}, fmt.Errorf("%w: %v", ErrSnapshotInvalid, err)
	}
	return st, nil
}

func EncodeYAML(st State) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(st); err != nil {
		return nil, fmt.Errorf("encode state yaml: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
