package gameserver

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nymirith/adventure/internal/config"
	"github.com/nymirith/adventure/internal/content"
	"github.com/nymirith/adventure/internal/game/character"
	"github.com/nymirith/adventure/internal/game/command"
	"github.com/nymirith/adventure/internal/game/commands"
	"github.com/nymirith/adventure/internal/game/session"
	"github.com/nymirith/adventure/internal/game/world"
	"github.com/nymirith/adventure/internal/scripting"
	"github.com/nymirith/adventure/internal/sentence"
	"github.com/nymirith/adventure/internal/storage/postgres"
)

// SnapshotStore persists character snapshots between sessions.
type SnapshotStore interface {
	Load(ctx context.Context, accountID int64) (character.Snapshot, error)
	Save(ctx context.Context, accountID int64, snap character.Snapshot) error
}

// Engine is the single-threaded heart of the game: every command dispatch,
// simulation tick, and session transition runs under its world lock, so
// the world data structures never need their own synchronization.
// Persistence happens outside the lock.
type Engine struct {
	mu sync.Mutex

	cfg       config.WorldConfig
	logger    *zap.Logger
	content   *content.Registry
	world     *world.Directory
	sessions  *session.Manager
	registry  *command.Registry
	providers *command.ProviderSet
	snapshots SnapshotStore
}

// NewEngine wires the world, command set, and session manager together.
//
// Precondition: reg must pass content validation; rng and logger must be
// non-nil. snapshots and hooks may be nil (no persistence, no script hooks).
func NewEngine(cfg config.WorldConfig, reg *content.Registry, snapshots SnapshotStore, hooks *scripting.Hooks, rng *rand.Rand, logger *zap.Logger) (*Engine, error) {
	dir, err := world.NewDirectory(cfg, reg, rng, logger)
	if err != nil {
		return nil, fmt.Errorf("building world: %w", err)
	}
	cmdReg, err := command.NewRegistry(commands.BuildGroups())
	if err != nil {
		return nil, fmt.Errorf("building command registry: %w", err)
	}

	e := &Engine{
		cfg:       cfg,
		logger:    logger,
		content:   reg,
		world:     dir,
		sessions:  session.NewManager(cfg.GraceWindow),
		registry:  cmdReg,
		providers: commands.DefaultProviders(),
		snapshots: snapshots,
	}
	if hooks != nil {
		dir.SetDefeatFunc(func(enemyID string) ([]string, error) {
			def, ok := reg.Enemy(enemyID)
			if !ok || def.OnDefeat == "" {
				return nil, nil
			}
			drops, overridden, err := hooks.DropOverride(def.OnDefeat, enemyID)
			if err != nil {
				return nil, err
			}
			if !overridden {
				return nil, nil
			}
			if drops == nil {
				drops = []string{}
			}
			return drops, nil
		})
	}
	return e, nil
}

// Sessions exposes the session manager for transport and tests.
func (e *Engine) Sessions() *session.Manager { return e.sessions }

// Connect establishes the game session for an authenticated connection.
// An existing live session for the account is superseded and its character
// adopted; a grace-held character is reclaimed; otherwise the character is
// restored from its snapshot or created fresh.
//
// Postcondition: The returned session is registered and its character's
// sink is attached.
func (e *Engine) Connect(ctx context.Context, accountID int64, username string, sink character.Sink) (*session.Session, error) {
	// Snapshot load happens before the world lock is taken.
	snap, haveSnap, err := e.loadSnapshot(ctx, accountID)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	connID := uuid.NewString()
	var ch *character.Character
	var dispatcher *command.Dispatcher

	if prev, ok := e.sessions.Supersede(accountID); ok {
		prev.Char.Notify(character.MsgGame, "You have logged in elsewhere.")
		prev.Char.DetachSink()
		if prev.Close != nil {
			prev.Close()
		}
		ch, dispatcher = prev.Char, prev.Dispatcher
		e.logger.Info("session superseded",
			zap.Int64("account", accountID),
			zap.String("username", username),
		)
	} else if graceChar, graceDispatcher, ok := e.sessions.Reclaim(accountID); ok {
		ch, dispatcher = graceChar, graceDispatcher
		e.logger.Info("grace-held character reclaimed",
			zap.Int64("account", accountID),
			zap.String("character", ch.Name),
		)
	} else {
		if haveSnap {
			ch = character.FromSnapshot(accountID, uuid.NewString(), snap)
			if ch.State == character.StateAdventure {
				e.world.Enter(ch)
			}
		} else {
			ch = character.New(accountID, uuid.NewString())
		}
		dispatcher = command.NewDispatcher(e.registry, e.providers, ch.State, e.logger)
	}

	sess := &session.Session{
		AccountID:  accountID,
		ConnID:     connID,
		Char:       ch,
		Dispatcher: dispatcher,
	}
	if err := e.sessions.Register(sess); err != nil {
		return nil, err
	}
	ch.AttachSink(sink)

	if ch.State == character.StateAdventure {
		ch.Notify(character.MsgGame, fmt.Sprintf("Welcome back, %s.", ch.Name))
	} else {
		ch.Notify(character.MsgGame,
			"Welcome to Nymirith. Choose a name with \"begin <name>\" to enter the world.")
	}
	return sess, nil
}

// Disconnect handles a dropped connection. An in-world character stays in
// the world under the grace window; its snapshot is persisted either way.
func (e *Engine) Disconnect(ctx context.Context, accountID int64, connID string) {
	e.mu.Lock()
	sess, graced := e.sessions.Disconnect(accountID, connID, time.Now())
	var save *character.Snapshot
	if sess != nil {
		sess.Char.DetachSink()
		if sess.Char.State == character.StateAdventure {
			snap := sess.Char.ToSnapshot()
			save = &snap
		}
		e.logger.Info("session disconnected",
			zap.Int64("account", accountID),
			zap.Bool("grace", graced),
		)
	}
	e.mu.Unlock()

	if save != nil {
		e.saveSnapshot(ctx, accountID, *save)
	}
}

// HandleLine dispatches one line of player input.
//
// Postcondition: Parse and state failures have been reported to the player
// and return nil; a non-nil return is an internal fault.
func (e *Engine) HandleLine(sess *session.Session, line string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	tokens := command.Tokenize(line)
	if sess.Char.Prefs["input"] == "sentence" {
		tokens = sentence.Reduce(tokens)
	}
	err := sess.Dispatcher.Dispatch(e.commandContext(sess), tokens)
	var dispatchErr *command.Error
	if errors.As(err, &dispatchErr) {
		return nil
	}
	return err
}

// HandleSuggest computes an autocomplete suggestion for a partial line.
func (e *Engine) HandleSuggest(sess *session.Session, line string, cycle bool) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return sess.Dispatcher.Suggest(e.commandContext(sess), line, cycle)
}

// Tick advances the simulation one step and evicts characters whose grace
// window has expired, persisting them outside the lock.
func (e *Engine) Tick(ctx context.Context) {
	e.mu.Lock()
	e.world.TickAll()

	saves := make(map[int64]character.Snapshot)
	for _, ch := range e.sessions.SweepExpired(time.Now()) {
		e.world.Leave(ch)
		saves[ch.AccountID] = ch.ToSnapshot()
		e.logger.Info("grace window expired, character evicted",
			zap.Int64("account", ch.AccountID),
			zap.String("character", ch.Name),
		)
	}
	e.mu.Unlock()

	for accountID, snap := range saves {
		e.saveSnapshot(ctx, accountID, snap)
	}
}

// Shutdown persists every remaining in-world character.
func (e *Engine) Shutdown(ctx context.Context) {
	e.mu.Lock()
	saves := make(map[int64]character.Snapshot)
	for _, sess := range e.sessions.Live() {
		sess.Char.Notify(character.MsgGame, "The world fades; the server is shutting down.")
		sess.Char.DetachSink()
		if sess.Char.State == character.StateAdventure {
			saves[sess.AccountID] = sess.Char.ToSnapshot()
		}
	}
	// Grace entries expire no later than one full window from now.
	for _, ch := range e.sessions.SweepExpired(time.Now().Add(e.cfg.GraceWindow + time.Second)) {
		e.world.Leave(ch)
		saves[ch.AccountID] = ch.ToSnapshot()
	}
	e.mu.Unlock()

	for accountID, snap := range saves {
		e.saveSnapshot(ctx, accountID, snap)
	}
}

// commandContext assembles the handler context for one session.
//
// Precondition: Caller holds the world lock.
func (e *Engine) commandContext(sess *session.Session) *command.Context {
	return &command.Context{
		Char:       sess.Char,
		World:      e.world,
		Content:    e.content,
		Registry:   e.registry,
		Dispatcher: sess.Dispatcher,
		Broadcast: func(kind, text string) {
			for _, s := range e.sessions.Live() {
				s.Char.Notify(kind, text)
			}
		},
	}
}

func (e *Engine) loadSnapshot(ctx context.Context, accountID int64) (character.Snapshot, bool, error) {
	if e.snapshots == nil {
		return character.Snapshot{}, false, nil
	}
	snap, err := e.snapshots.Load(ctx, accountID)
	if errors.Is(err, postgres.ErrSnapshotNotFound) {
		return character.Snapshot{}, false, nil
	}
	if err != nil {
		return character.Snapshot{}, false, fmt.Errorf("loading snapshot for account %d: %w", accountID, err)
	}
	return snap, true, nil
}

func (e *Engine) saveSnapshot(ctx context.Context, accountID int64, snap character.Snapshot) {
	if e.snapshots == nil {
		return
	}
	if err := e.snapshots.Save(ctx, accountID, snap); err != nil {
		e.logger.Error("persisting character snapshot",
			zap.Int64("account", accountID),
			zap.Error(err),
		)
	}
}
