package swap

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/btcsuite/btclog"
	"github.com/google/uuid"

	"github.com/swapnode/swapd/internal/action"
	"github.com/swapnode/swapd/internal/chainwatch"
	"github.com/swapnode/swapd/internal/secret"
	"github.com/swapnode/swapd/internal/store"
	"github.com/swapnode/swapd/internal/swaperrors"
)

// ActionHandler is the API boundary the coordinator hands recommended
// actions to, per spec.md §4.5 step 2: "present it to the API boundary;
// the boundary returns the signed artifact or a decision to abstain."
// Submit returning (false, nil) is an abstention, not an error.
type ActionHandler interface {
	Submit(ctx context.Context, swapID uuid.UUID, decision action.Decision) (submitted bool, err error)
}

// commandKind tags a request sent to a swap's owning goroutine.
type commandKind int

const (
	cmdStatus commandKind = iota
	cmdDecline
	cmdSnapshot
)

type command struct {
	kind commandKind
	resp chan commandResult
}

type commandResult struct {
	status   Status
	snapshot Swap
	err      error
}

// handle is the coordinator's bookkeeping for one in-flight swap: the
// cancel func that tears down its watchers and owning goroutine, and the
// channel its owning goroutine listens for queries on. Nothing here is
// mutated outside the owning goroutine except via cmds, matching spec.md
// §5's single-task-ownership requirement for the (alpha_state, beta_state)
// snapshot C4 reads.
type handle struct {
	cancel context.CancelFunc
	cmds   chan command
	done   chan struct{}
}

// Coordinator runs every active swap's watch-evaluate-act loop (C5). One
// goroutine per swap owns that swap's record exclusively; this struct only
// tracks which swaps exist and routes commands to them, the way peer.go's
// server tracks peers by ID without taking each peer's internal lock.
type Coordinator struct {
	mu      sync.Mutex
	handles map[uuid.UUID]*handle

	store   store.Store
	secrets *secret.Registry
	handler ActionHandler
	log     btclog.Logger
}

// NewCoordinator builds a Coordinator. st persists swap and ledger-state
// records; secrets holds this node's generated/extracted secrets; handler
// is the API boundary that signs and broadcasts recommended actions.
func NewCoordinator(st store.Store, secrets *secret.Registry, handler ActionHandler, log btclog.Logger) *Coordinator {
	return &Coordinator{
		handles: make(map[uuid.UUID]*handle),
		store:   st,
		secrets: secrets,
		handler: handler,
		log:     log,
	}
}

// StartSwap persists sw and spawns its watchers and owning goroutine, per
// spec.md §4.5 step 1. alphaSrc/betaSrc are already bound to sw's
// HtlcParams by the caller (internal/chainwatch/bitcoin.NewSource or
// internal/chainwatch/ethereum.NewSource). ctx's cancellation stops both
// watchers and the owning goroutine within one tick, per spec.md §5's
// cancellation guarantee.
func (c *Coordinator) StartSwap(ctx context.Context, sw *Swap, alphaSrc, betaSrc chainwatch.Source) error {
	c.mu.Lock()
	if _, exists := c.handles[sw.ID]; exists {
		c.mu.Unlock()
		return swaperrors.Newf(swaperrors.Internal, "swap %s already active", sw.ID)
	}
	c.mu.Unlock()

	record := store.Swap{
		ID:          sw.ID,
		Role:        roleString(sw.Role),
		AlphaLedger: sw.AlphaParams.Ledger.String(),
		BetaLedger:  sw.BetaParams.Ledger.String(),
		SecretHash:  sw.SecretHash,
		AlphaExpiry: sw.AlphaExpiry,
		BetaExpiry:  sw.BetaExpiry,
		Status:      StatusPending.String(),
		CreatedAt:   sw.StartOfSwap,
	}
	if err := c.store.InsertSwap(ctx, record); err != nil {
		return swaperrors.Wrap(swaperrors.Internal, err)
	}

	swapCtx, cancel := context.WithCancel(ctx)
	alphaEvents := chainwatch.Watch(swapCtx, alphaSrc, sw.StartOfSwap)
	betaEvents := chainwatch.Watch(swapCtx, betaSrc, sw.StartOfSwap)

	h := &handle{
		cancel: cancel,
		cmds:   make(chan command),
		done:   make(chan struct{}),
	}

	c.mu.Lock()
	c.handles[sw.ID] = h
	c.mu.Unlock()

	go c.run(swapCtx, sw, alphaEvents, betaEvents, h)

	return nil
}

// run is the per-swap owning goroutine: it is the only goroutine that ever
// reads or writes sw's fields, so every action.Input it builds is
// necessarily a consistent snapshot.
func (c *Coordinator) run(ctx context.Context, sw *Swap, alphaEvents, betaEvents <-chan chainwatch.SwapEvent, h *handle) {
	defer close(h.done)
	defer func() {
		c.mu.Lock()
		delete(c.handles, sw.ID)
		c.mu.Unlock()
	}()

	for {
		select {
		case ev, ok := <-alphaEvents:
			if !ok {
				alphaEvents = nil
				break
			}
			c.applyEvent(ctx, sw, true, ev)

		case ev, ok := <-betaEvents:
			if !ok {
				betaEvents = nil
				break
			}
			c.applyEvent(ctx, sw, false, ev)

		case cmd := <-h.cmds:
			c.handleCommand(sw, cmd)
			continue

		case <-ctx.Done():
			return
		}

		if sw.Alpha.State.Terminal() && sw.Beta.State.Terminal() {
			status := terminalStatus(sw.Communication, sw.Alpha.State, sw.Beta.State)
			if err := c.store.UpdateStatus(ctx, sw.ID, status.String()); err != nil {
				c.log.Errorf("swap %s: persist terminal status %s: %v", sw.ID, status, err)
			}
			return
		}
	}
}

// applyEvent folds one chain-watch observation into sw's record, persists
// it, extracts a revealed secret if this event carried one, and — per
// spec.md §4.5 steps 2-3 — re-evaluates C4 and offers any recommended
// action this node is responsible for to the ActionHandler.
func (c *Coordinator) applyEvent(ctx context.Context, sw *Swap, isAlpha bool, ev chainwatch.SwapEvent) {
	state := fromWatchEvent(ev.Kind)
	ledgerTag := "beta"
	if isAlpha {
		ledgerTag = "alpha"
		sw.Alpha = LedgerRecord{State: state, Location: ev.Location, Amount: ev.Amount}
	} else {
		sw.Beta = LedgerRecord{State: state, Location: ev.Location, Amount: ev.Amount}
	}

	if err := c.store.RecordLedgerState(ctx, store.LedgerStateRecord{
		SwapID:     sw.ID,
		Ledger:     ledgerTag,
		State:      ev.Kind.String(),
		Amount:     ev.Amount,
		Location:   ev.Location,
		ObservedAt: ev.BlockTime,
	}); err != nil {
		c.log.Errorf("swap %s: persist %s ledger state: %v", sw.ID, ledgerTag, err)
	}

	// On β-Redeemed, extract the secret (C3) and mark it in the swap
	// record, per spec.md §4.5 step 3. The watcher already performed the
	// extraction (internal/chainwatch/{bitcoin,ethereum}'s matchers call
	// secret.ExtractFromWitnessElements/ExtractFromCalldata); the
	// coordinator's job is only to commit it to the registry so RedeemAlpha
	// can be recommended.
	if !isAlpha && ev.Kind == chainwatch.EventRedeemed && ev.Secret != nil {
		if err := c.secrets.RecordRevealed(sw.ID, *ev.Secret); err != nil {
			c.log.Errorf("swap %s: record revealed secret: %v", sw.ID, err)
		}
	}

	c.evaluateAndAct(ctx, sw)
}

// evaluateAndAct re-runs C4 against sw's current snapshot and, if the
// recommendation belongs to this node's role, hands it to the
// ActionHandler. Returning None (waiting) is legal and does nothing.
func (c *Coordinator) evaluateAndAct(ctx context.Context, sw *Swap) {
	kind := action.Recommend(sw.actionInput(time.Now()))
	if kind == action.None {
		return
	}
	if !c.responsibleFor(sw, kind) {
		return
	}

	decision := action.Decision{Kind: kind}
	submitted, err := c.handler.Submit(ctx, sw.ID, decision)
	if err != nil {
		c.log.Warnf("swap %s: action %s submission failed: %v", sw.ID, kind, err)
		return
	}
	if !submitted {
		c.log.Debugf("swap %s: action %s abstained by API boundary", sw.ID, kind)
	}
}

// responsibleFor mirrors the decision table's role column: only the role
// named in the matching row may act on a recommendation, since C4's
// decision already folds role into its rules — this is a defensive
// second check against a handler acting on the wrong leg.
func (c *Coordinator) responsibleFor(sw *Swap, kind action.Kind) bool {
	switch kind {
	case action.FundAlpha, action.RedeemBeta, action.RefundAlpha:
		return sw.Role == action.RoleAlice
	case action.DeployBeta, action.FundBeta, action.RedeemAlpha, action.RefundBeta:
		return sw.Role == action.RoleBob
	default:
		return false
	}
}

func (c *Coordinator) handleCommand(sw *Swap, cmd command) {
	switch cmd.kind {
	case cmdStatus:
		var status Status
		if sw.Alpha.State.Terminal() && sw.Beta.State.Terminal() {
			status = terminalStatus(sw.Communication, sw.Alpha.State, sw.Beta.State)
		} else {
			status = StatusPending
		}
		cmd.resp <- commandResult{status: status}
	case cmdDecline:
		sw.Communication = CommunicationDeclined
		cmd.resp <- commandResult{}
	case cmdSnapshot:
		cmd.resp <- commandResult{snapshot: *sw}
	default:
		cmd.resp <- commandResult{err: fmt.Errorf("swap: unknown command %d", cmd.kind)}
	}
}

// Status returns the swap's current status by asking its owning goroutine,
// the only reader/writer of its record.
func (c *Coordinator) Status(ctx context.Context, id uuid.UUID) (Status, error) {
	res, err := c.sendCommand(ctx, id, command{kind: cmdStatus})
	if err != nil {
		return StatusPending, err
	}
	return res.status, nil
}

// Decline marks the swap Declined, after which C4 recommends no action at
// all on any re-evaluation: action.Recommend returns None for a declined
// swap before checking any rule, the refund rules included.
func (c *Coordinator) Decline(ctx context.Context, id uuid.UUID) error {
	_, err := c.sendCommand(ctx, id, command{kind: cmdDecline})
	return err
}

// Snapshot returns a copy of the swap's current record.
func (c *Coordinator) Snapshot(ctx context.Context, id uuid.UUID) (Swap, error) {
	res, err := c.sendCommand(ctx, id, command{kind: cmdSnapshot})
	if err != nil {
		return Swap{}, err
	}
	return res.snapshot, nil
}

// Shutdown cancels every active swap's watchers and owning goroutine and
// waits for each to exit, per spec.md §5's cancellation guarantee that no
// in-flight RPC continues once cancellation returns.
func (c *Coordinator) Shutdown() {
	c.mu.Lock()
	handles := make([]*handle, 0, len(c.handles))
	for _, h := range c.handles {
		handles = append(handles, h)
	}
	c.mu.Unlock()

	for _, h := range handles {
		h.cancel()
		<-h.done
	}
}

func (c *Coordinator) sendCommand(ctx context.Context, id uuid.UUID, cmd command) (commandResult, error) {
	c.mu.Lock()
	h, ok := c.handles[id]
	c.mu.Unlock()
	if !ok {
		return commandResult{}, swaperrors.Newf(swaperrors.Internal, "swap %s not active", id)
	}

	cmd.resp = make(chan commandResult, 1)
	select {
	case h.cmds <- cmd:
	case <-ctx.Done():
		return commandResult{}, ctx.Err()
	case <-h.done:
		return commandResult{}, swaperrors.Newf(swaperrors.Internal, "swap %s no longer active", id)
	}

	select {
	case res := <-cmd.resp:
		return res, res.err
	case <-ctx.Done():
		return commandResult{}, ctx.Err()
	}
}

func roleString(r action.Role) string {
	if r == action.RoleAlice {
		return "alice"
	}
	return "bob"
}
