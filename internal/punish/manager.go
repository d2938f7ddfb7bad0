package punish

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	apperrors "github.com/PancyStudios/PancyMod/pkg/errors"
	"github.com/PancyStudios/PancyMod/pkg/logger"
	"github.com/PancyStudios/PancyMod/pkg/models"
	"github.com/bwmarrin/discordgo"
	"github.com/google/uuid"
)

const (
	DefaultFlowTimeout   = 300 * time.Second
	DefaultDialogTimeout = 120 * time.Second

	// SuspendLength and SuspendReason are used by /mod suspend
	SuspendLength = 7 * 24 * time.Hour
	SuspendReason = "Comunicaciones suspendidas"

	opTimeout = 15 * time.Second
	// busyWait bounds how long a click waits for a flow that is still
	// handling the previous one
	busyWait = 2 * time.Second
)

// Options tune a Manager
type Options struct {
	FlowTimeout   time.Duration
	DialogTimeout time.Duration
	// AllowPeers disables self and peer protection
	AllowPeers bool
}

// StartRequest is a /mod punish invocation
type StartRequest struct {
	GuildID   string
	ChannelID string
	Issuer    *discordgo.Member
	Target    *discordgo.User
}

type eventKind int

const (
	evComponent eventKind = iota
	evDialog
	evDialogExpired
)

type event struct {
	kind      eventKind
	userID    string
	id        ComponentID
	value     string
	responder Responder
}

type pendingDialog struct {
	token string
	field dialogField
	timer *time.Timer
}

// session owns a Flow. Only its goroutine touches the flow after Start.
type session struct {
	flow     *Flow
	issuerID string
	target   Target
	origin   Responder
	events   chan event
	done     chan struct{}
	dialog   *pendingDialog
}

// Manager validates /mod punish invocations, owns the per-target locks and
// runs one goroutine per open flow
type Manager struct {
	deps     *Deps
	configs  GuildConfigs
	locks    *LockRegistry
	opts     Options
	newID    func() string
	busyWait time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	sessions map[string]*session
}

// NewManager creates a Manager. Zero timeouts take the defaults.
func NewManager(deps *Deps, configs GuildConfigs, locks *LockRegistry, opts Options) *Manager {
	if opts.FlowTimeout <= 0 {
		opts.FlowTimeout = DefaultFlowTimeout
	}
	if opts.DialogTimeout <= 0 {
		opts.DialogTimeout = DefaultDialogTimeout
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		deps:     deps,
		configs:  configs,
		locks:    locks,
		opts:     opts,
		newID:    uuid.NewString,
		busyWait: busyWait,
		ctx:      ctx,
		cancel:   cancel,
		sessions: make(map[string]*session),
	}
}

// Locks exposes the registry shared with the expiry watcher
func (m *Manager) Locks() *LockRegistry { return m.locks }

var rejectLabels = map[error]string{
	ErrNoTarget:            "no_target",
	ErrTargetIsBot:         "target_bot",
	ErrNotModerator:        "not_moderator",
	ErrTargetAboveBot:      "above_bot",
	ErrTargetSharesBotRole: "shares_bot_role",
	ErrTargetAboveIssuer:   "above_issuer",
	ErrTargetIsModerator:   "target_moderator",
	ErrSelfPunishment:      "self",
	ErrFlowInProgress:      "in_progress",
}

func (m *Manager) reject(err error) error {
	m.deps.Metrics.FlowRejected(rejectLabels[err])
	return err
}

type ranks struct {
	issuer Authority
	bot    Authority
	target Authority
	member *discordgo.Member
}

// resolve loads the authority of everyone involved
func (m *Manager) resolve(ctx context.Context, guildID string, issuer *discordgo.Member, targetID string) (*ranks, error) {
	p := m.deps.Platform
	r := &ranks{}

	var err error
	if r.issuer, err = p.Authority(ctx, guildID, issuer); err != nil {
		return nil, fmt.Errorf("issuer authority: %w", err)
	}
	bot, err := p.Member(ctx, guildID, p.BotID())
	if err != nil {
		return nil, fmt.Errorf("bot member: %w", err)
	}
	if bot == nil {
		return nil, fmt.Errorf("bot is not a member of guild %s", guildID)
	}
	if r.bot, err = p.Authority(ctx, guildID, bot); err != nil {
		return nil, fmt.Errorf("bot authority: %w", err)
	}
	if r.member, err = p.Member(ctx, guildID, targetID); err != nil {
		return nil, fmt.Errorf("target member: %w", err)
	}
	if r.member != nil {
		if r.target, err = p.Authority(ctx, guildID, r.member); err != nil {
			return nil, fmt.Errorf("target authority: %w", err)
		}
	}
	return r, nil
}

// checkRanks applies the bot and peer checks, in that order
func (m *Manager) checkRanks(r *ranks, issuerID, targetID string) error {
	if r.member != nil {
		if r.target.Outranks(r.bot) {
			return ErrTargetAboveBot
		}
		if !r.bot.Outranks(r.target) {
			return ErrTargetSharesBotRole
		}
	}
	if m.opts.AllowPeers {
		return nil
	}
	if targetID == issuerID {
		return ErrSelfPunishment
	}
	if r.member != nil {
		if !r.issuer.Outranks(r.target) {
			return ErrTargetAboveIssuer
		}
		if r.target.Level != LevelNone {
			return ErrTargetIsModerator
		}
	}
	return nil
}

// Start validates the invocation, locks the target and shows the type
// selector. Rejections happen before any state changes.
func (m *Manager) Start(ctx context.Context, req StartRequest, r Responder) error {
	if req.Target == nil {
		return m.reject(ErrNoTarget)
	}
	if req.Target.Bot {
		return m.reject(ErrTargetIsBot)
	}

	rk, err := m.resolve(ctx, req.GuildID, req.Issuer, req.Target.ID)
	if err != nil {
		return err
	}
	if rk.issuer.Level == LevelNone {
		return m.reject(ErrNotModerator)
	}
	if err := m.checkRanks(rk, req.Issuer.User.ID, req.Target.ID); err != nil {
		return m.reject(err)
	}
	if m.locks.IsLocked(req.GuildID, req.Target.ID) {
		m.deps.Metrics.Contention()
		return m.reject(ErrFlowInProgress)
	}

	cfg, err := m.configs.Get(req.GuildID)
	if err != nil {
		logger.Warn(fmt.Sprintf("No se pudo leer la configuración de %s: %v", req.GuildID, err), "Punish")
		cfg = &models.GuildConfig{GuildID: req.GuildID}
	}
	state, err := m.targetState(ctx, req.GuildID, req.Target.ID, rk.member, cfg)
	if err != nil {
		return err
	}

	if err := m.locks.TryAcquire(req.GuildID, req.Target.ID); err != nil {
		return m.reject(err)
	}

	now := m.deps.now()
	f := NewFlow(FlowParams{
		ID:        m.newID(),
		GuildID:   req.GuildID,
		ChannelID: req.ChannelID,
		Issuer:    req.Issuer.User,
		Target:    req.Target,
		Types: TypeOptions(OptionContext{
			Issuer:        rk.issuer,
			Bot:           rk.bot,
			Target:        state,
			JailRoleSet:   cfg.JailRole != "",
			KidnapEnabled: cfg.KidnapEnabled,
		}),
		Created: now,
		Timeout: m.opts.FlowTimeout,
	})
	s := &session{
		flow:     f,
		issuerID: req.Issuer.User.ID,
		target: Target{
			GuildID:    req.GuildID,
			ChannelID:  req.ChannelID,
			Issuer:     req.Issuer.User,
			User:       req.Target,
			IsMember:   state.IsMember,
			JailRole:   cfg.JailRole,
			LogChannel: cfg.LogChannel,
		},
		origin: r,
		events: make(chan event),
		done:   make(chan struct{}),
	}

	m.mu.Lock()
	m.sessions[f.ID] = s
	m.mu.Unlock()

	if err := r.Show(ctx, Render(f)); err != nil {
		m.mu.Lock()
		delete(m.sessions, f.ID)
		m.mu.Unlock()
		close(s.done)
		if rerr := m.locks.Release(req.GuildID, req.Target.ID); rerr != nil {
			logger.Error(fmt.Sprintf("Liberación inválida del bloqueo %s/%s: %v", req.GuildID, req.Target.ID, rerr), "PunishLock")
		}
		return fmt.Errorf("show menu: %w", err)
	}

	m.deps.Metrics.FlowStarted()
	logger.Info(fmt.Sprintf("Menú de sanción %s abierto por %s para %s", f.ID, req.Issuer.User.ID, req.Target.ID), "Punish")

	m.wg.Add(1)
	go m.run(s)
	return nil
}

func (m *Manager) targetState(ctx context.Context, guildID, userID string, member *discordgo.Member, cfg *models.GuildConfig) (TargetState, error) {
	state := TargetState{IsMember: member != nil}

	banned, err := m.deps.Platform.IsBanned(ctx, guildID, userID)
	if err != nil {
		return state, fmt.Errorf("fetch ban: %w", err)
	}
	state.Banned = banned

	if member == nil {
		return state, nil
	}
	now := m.deps.now()
	state.TimedOut = member.CommunicationDisabledUntil != nil && member.CommunicationDisabledUntil.After(now)

	if cfg.JailRole != "" && hasRole(member, cfg.JailRole) {
		active, err := m.deps.Store.FindActive(ctx, guildID, userID, models.KindJail, now.Unix())
		if err != nil {
			return state, fmt.Errorf("find jail case: %w", err)
		}
		state.Jailed = active != nil
	}
	return state, nil
}

func hasRole(m *discordgo.Member, roleID string) bool {
	for _, r := range m.Roles {
		if r == roleID {
			return true
		}
	}
	return false
}

// HandleComponent routes a button press to its flow
func (m *Manager) HandleComponent(ctx context.Context, userID, customID string, r Responder) error {
	id, ok := ParseComponentID(customID)
	if !ok || id.Kind == idDialog {
		return r.Notify(ctx, UserMessage(ErrWrongStep))
	}
	return m.dispatch(ctx, event{kind: evComponent, userID: userID, id: id, responder: r})
}

// HandleDialog routes a submitted custom dialog to its flow
func (m *Manager) HandleDialog(ctx context.Context, userID, customID, value string, r Responder) error {
	id, ok := ParseComponentID(customID)
	if !ok || id.Kind != idDialog {
		return r.Notify(ctx, UserMessage(ErrDialogExpired))
	}
	return m.dispatch(ctx, event{kind: evDialog, userID: userID, id: id, value: value, responder: r})
}

func (m *Manager) dispatch(ctx context.Context, ev event) error {
	m.mu.Lock()
	s := m.sessions[ev.id.FlowID]
	m.mu.Unlock()

	if s == nil {
		return ev.responder.Notify(ctx, UserMessage(ErrFlowFinished))
	}
	if ev.userID != s.issuerID {
		return ev.responder.Notify(ctx, UserMessage(ErrNotIssuer))
	}

	wait, cancel := context.WithTimeout(ctx, m.busyWait)
	defer cancel()
	if err := m.deliver(wait, s, ev); err != nil {
		return ev.responder.Notify(ctx, UserMessage(err))
	}
	return nil
}

// deliver hands ev to the session goroutine. It fails with ErrFlowFinished
// once the session ended and with ErrFlowBusy when ctx is done first.
func (m *Manager) deliver(ctx context.Context, s *session, ev event) error {
	select {
	case s.events <- ev:
		return nil
	case <-s.done:
		return ErrFlowFinished
	case <-ctx.Done():
		return ErrFlowBusy
	}
}

func opContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), opTimeout)
}

// run is the session loop. The deferred finish releases the lock on every
// exit path, panics included.
func (m *Manager) run(s *session) {
	defer m.wg.Done()
	defer m.finish(s)
	defer func() {
		if r := recover(); r != nil {
			apperrors.Capture(r)
			ctx, cancel := opContext()
			defer cancel()
			m.fail(ctx, s, nil, fmt.Errorf("panic: %v", r))
		}
	}()

	timer := time.NewTimer(s.flow.Deadline.Sub(m.deps.now()))
	defer timer.Stop()

	for {
		select {
		case ev := <-s.events:
			m.handle(s, ev)
			if s.flow.Step().Terminal() {
				return
			}
		case <-timer.C:
			if s.flow.Expire() {
				m.showFinal(s)
			}
			return
		case <-m.ctx.Done():
			if s.flow.Cancel() {
				m.showFinal(s)
			}
			return
		}
	}
}

func (m *Manager) showFinal(s *session) {
	ctx, cancel := opContext()
	defer cancel()
	m.show(ctx, s.origin, s)
}

func (m *Manager) finish(s *session) {
	m.dropDialog(s)

	m.mu.Lock()
	delete(m.sessions, s.flow.ID)
	m.mu.Unlock()
	close(s.done)

	if err := m.locks.Release(s.target.GuildID, s.target.User.ID); err != nil {
		logger.Error(fmt.Sprintf("Liberación inválida del bloqueo %s/%s: %v", s.target.GuildID, s.target.User.ID, err), "PunishLock")
	}

	step := s.flow.Step()
	m.deps.Metrics.FlowFinished(step.String(), m.deps.now().Sub(s.flow.Created))
	logger.Debug(fmt.Sprintf("Menú de sanción %s terminado: %s", s.flow.ID, step), "Punish")
}

func (m *Manager) handle(s *session, ev event) {
	ctx, cancel := opContext()
	defer cancel()

	var err error
	switch ev.kind {
	case evComponent:
		err = m.onComponent(ctx, s, ev)
	case evDialog:
		err = m.onDialog(ctx, s, ev)
	case evDialogExpired:
		m.onDialogExpired(ctx, s, ev)
	}
	if err == nil {
		return
	}
	if IsValidation(err) || errors.Is(err, ErrFlowFinished) || errors.Is(err, ErrDialogExpired) {
		m.notify(ctx, ev.responder, UserMessage(err))
		return
	}
	m.fail(ctx, s, ev.responder, err)
}

func (m *Manager) onComponent(ctx context.Context, s *session, ev event) error {
	f := s.flow
	switch ev.id.Kind {
	case idCancel:
		if !f.Cancel() {
			return ErrFlowFinished
		}
		m.show(ctx, ev.responder, s)
		return nil

	case idType:
		a, ok := ParseAction(ev.id.Value)
		if !ok {
			return ErrOptionDisabled
		}
		if err := f.ChooseType(a); err != nil {
			return err
		}
		if a.IsRevoke() {
			return m.issue(ctx, s, ev.responder)
		}
		m.show(ctx, ev.responder, s)
		return nil

	case idLength, idReason:
		i, err := strconv.Atoi(ev.id.Value)
		if err != nil {
			return ErrOptionDisabled
		}
		var custom bool
		field := fieldLength
		if ev.id.Kind == idLength {
			custom, err = f.ChooseLength(i)
		} else {
			field = fieldReason
			custom, err = f.ChooseReason(i)
		}
		if err != nil {
			return err
		}
		if custom {
			m.prompt(ctx, s, ev.responder, field)
			return nil
		}
		m.dropDialog(s)
		m.show(ctx, ev.responder, s)
		return nil

	case idConfirm:
		if err := f.Expect(StepConfirm); err != nil {
			return err
		}
		return m.issue(ctx, s, ev.responder)
	}
	return ErrWrongStep
}

// prompt opens a custom dialog with its own timer. A dialog that expires
// only tells the moderator; the flow keeps its step and deadline.
func (m *Manager) prompt(ctx context.Context, s *session, r Responder, field dialogField) {
	m.dropDialog(s)

	token := m.newID()
	d := &pendingDialog{token: token, field: field}
	d.timer = time.AfterFunc(m.opts.DialogTimeout, func() {
		_ = m.deliver(m.ctx, s, event{kind: evDialogExpired, userID: s.issuerID, value: token})
	})
	s.dialog = d

	if err := r.Prompt(ctx, newDialog(s.flow.ID, token, field)); err != nil {
		d.timer.Stop()
		s.dialog = nil
		logger.Warn(fmt.Sprintf("No se pudo abrir el formulario del menú %s: %v", s.flow.ID, err), "Punish")
	}
}

// dropDialog forgets the open custom dialog, if any, and stops its timer
func (m *Manager) dropDialog(s *session) {
	if s.dialog != nil {
		s.dialog.timer.Stop()
		s.dialog = nil
	}
}

func (m *Manager) onDialog(ctx context.Context, s *session, ev event) error {
	d := s.dialog
	if d == nil || d.token != ev.id.Value {
		return ErrDialogExpired
	}
	d.timer.Stop()
	s.dialog = nil

	var err error
	if d.field == fieldLength {
		err = s.flow.ApplyCustomLength(ev.value, m.deps.now())
	} else {
		err = s.flow.ApplyCustomReason(ev.value)
	}
	if err != nil {
		if IsValidation(err) {
			// the menu stays on the same step
			m.notify(ctx, ev.responder, UserMessage(err))
			m.show(ctx, s.origin, s)
			return nil
		}
		return err
	}

	m.show(ctx, ev.responder, s)
	return nil
}

func (m *Manager) onDialogExpired(ctx context.Context, s *session, ev event) {
	if s.dialog == nil || s.dialog.token != ev.value {
		return
	}
	s.dialog = nil
	m.notify(ctx, s.origin, UserMessage(ErrDialogExpired))
}

// issue runs the strategy for the selected action and ends the flow
func (m *Manager) issue(ctx context.Context, s *session, r Responder) error {
	if err := r.Defer(ctx); err != nil {
		logger.Warn(fmt.Sprintf("No se pudo diferir la interacción del menú %s: %v", s.flow.ID, err), "Punish")
	}

	f := s.flow
	st := NewStrategy(f.Action(), m.deps, s.target)

	var (
		n   *Notice
		err error
	)
	if f.Action().IsRevoke() {
		n, err = st.Revoke(ctx, "Revocado por "+f.Issuer.Username)
	} else {
		if l, ok := f.Length(); ok {
			st.SetLength(&l)
		}
		if reason, ok := f.Reason(); ok {
			st.SetReason(reason)
		}
		n, err = st.Issue(ctx)
	}
	if err != nil {
		return err
	}
	if err := f.Complete(n); err != nil {
		return err
	}

	logger.Info(fmt.Sprintf("Sanción %s aplicada a %s por %s", f.Action(), f.Target.ID, f.Issuer.ID), "Punish")
	m.show(ctx, r, s)
	return nil
}

// fail ends the flow in StepErrored. r may be nil when no interaction is
// waiting for an answer.
func (m *Manager) fail(ctx context.Context, s *session, r Responder, err error) {
	logger.Error(fmt.Sprintf("El menú de sanción %s falló: %v", s.flow.ID, err), "Punish")
	msg := UserMessage(err)
	if !s.flow.Fail(msg) {
		return
	}
	m.show(ctx, s.origin, s)
	if r == nil {
		r = s.origin
	}
	m.notify(ctx, r, msg)
}

// show renders the flow. Rendering is best effort: a deleted message must
// not break the flow.
func (m *Manager) show(ctx context.Context, r Responder, s *session) {
	if err := r.Show(ctx, Render(s.flow)); err != nil {
		logger.Warn(fmt.Sprintf("No se pudo actualizar el menú %s: %v", s.flow.ID, err), "Punish")
	}
}

func (m *Manager) notify(ctx context.Context, r Responder, text string) {
	if r == nil {
		return
	}
	if err := r.Notify(ctx, text); err != nil {
		logger.Warn(fmt.Sprintf("No se pudo enviar el aviso: %v", err), "Punish")
	}
}

// IsOpen reports whether a flow holds the target
func (m *Manager) IsOpen(guildID, userID string) bool {
	return m.locks.IsLocked(guildID, userID)
}

// OpenFlows lists the flows currently running
func (m *Manager) OpenFlows() []models.FlowSummary {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]models.FlowSummary, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, models.FlowSummary{
			ID:       s.flow.ID,
			GuildID:  s.target.GuildID,
			TargetID: s.target.User.ID,
			IssuerID: s.issuerID,
			Created:  s.flow.Created,
			Deadline: s.flow.Deadline,
		})
	}
	return out
}

// Shutdown cancels every open flow and waits for them to finish
func (m *Manager) Shutdown() {
	m.cancel()
	m.wg.Wait()
}

// SuspendRequest is a /mod suspend invocation
type SuspendRequest struct {
	GuildID   string
	ChannelID string
	Issuer    *discordgo.Member
	Target    *discordgo.Member
}

// Suspend applies a one-week timeout without opening a menu. It holds the
// target's lock while it runs, so it never overlaps a flow.
func (m *Manager) Suspend(ctx context.Context, req SuspendRequest) (*Notice, error) {
	if req.Target == nil || req.Target.User == nil {
		return nil, ErrNoTarget
	}
	target := req.Target.User
	if target.ID == req.Issuer.User.ID {
		return nil, ErrSelfPunishment
	}
	if target.Bot {
		return nil, ErrTargetIsBot
	}

	rk, err := m.resolve(ctx, req.GuildID, req.Issuer, target.ID)
	if err != nil {
		return nil, err
	}
	if rk.member == nil {
		return nil, ErrNotMember
	}
	if !rk.issuer.Outranks(rk.target) {
		return nil, ErrTargetAboveIssuer
	}
	if rk.target.Outranks(rk.bot) {
		return nil, ErrTargetAboveBot
	}
	if rk.target.Level != LevelNone {
		return nil, ErrTargetIsModerator
	}

	if err := m.locks.TryAcquire(req.GuildID, target.ID); err != nil {
		return nil, err
	}
	defer func() {
		if err := m.locks.Release(req.GuildID, target.ID); err != nil {
			logger.Error(fmt.Sprintf("Liberación inválida del bloqueo %s/%s: %v", req.GuildID, target.ID, err), "PunishLock")
		}
	}()

	cfg, err := m.configs.Get(req.GuildID)
	if err != nil {
		cfg = &models.GuildConfig{GuildID: req.GuildID}
	}

	st := NewStrategy(ActionTimeout, m.deps, Target{
		GuildID:    req.GuildID,
		ChannelID:  req.ChannelID,
		Issuer:     req.Issuer.User,
		User:       target,
		IsMember:   true,
		LogChannel: cfg.LogChannel,
	})
	st.SetLength(&Length{Duration: SuspendLength})
	st.SetReason(SuspendReason)
	return st.Issue(ctx)
}
