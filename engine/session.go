package engine

import (
	"sync"
	"time"

	"github.com/antonmedv/expr/vm"
	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"github.com/tcriess/lightspeed-chat-client/config"
	"github.com/tcriess/lightspeed-chat-client/filter"
	"github.com/tcriess/lightspeed-chat-client/globals"
	"github.com/tcriess/lightspeed-chat-client/persistence"
	"github.com/tcriess/lightspeed-chat-client/protocol"
	"github.com/tcriess/lightspeed-chat-client/types"
)

const inboundChannelSize = 1000

// ErrSessionClosed rejects commands issued after Close.
var ErrSessionClosed = errors.New("session closed")

// Sender is the outbound half of the connection lifecycle adapter, strictly
// fire-and-forget from the session's point of view.
type Sender interface {
	Send(payload []byte)
}

// Reporter receives every non-fatal error (protocol faults, ordering
// violations, persistence trouble). The default reporter only logs.
type Reporter func(err error)

type compiledFilter struct {
	name string
	prog *vm.Program
}

// Session is the explicit per-connection object owning the engine, the
// projection handle and the optional transcript persister. All inbound
// events and all local commands serialize through its single run loop, so
// command validation always observes a consistent store snapshot.
type Session struct {
	engine     *Engine
	projection Projection
	sender     Sender
	persister  persistence.Persister
	reporter   Reporter
	cfg        *config.Config
	filters    []compiledFilter

	inbound  chan []byte
	actions  chan func()
	doneChan chan struct{}

	closeOnce sync.Once
}

func NewSession(cfg *config.Config, projection Projection, sender Sender, persister persistence.Persister, reporter Reporter) *Session {
	if reporter == nil {
		reporter = func(err error) {
			globals.AppLogger.Warn("session error", "error", err)
		}
	}
	s := &Session{
		engine:     New(),
		projection: projection,
		sender:     sender,
		persister:  persister,
		reporter:   reporter,
		cfg:        cfg,
		inbound:    make(chan []byte, inboundChannelSize),
		actions:    make(chan func()),
		doneChan:   make(chan struct{}),
	}
	if cfg.HistoryConfig.MaxLogSize > 0 {
		s.engine.Store().SetMaxLogLen(cfg.HistoryConfig.MaxLogSize)
	}
	for _, filterCfg := range cfg.FilterConfigs {
		prog, err := filter.Program(filterCfg.Expression)
		if err != nil {
			globals.AppLogger.Error("could not compile notification filter", "name", filterCfg.Name, "error", err)
			continue
		}
		s.filters = append(s.filters, compiledFilter{name: filterCfg.Name, prog: prog})
	}
	return s
}

// SetSender wires the outbound transport. Must be called before Run, the
// session and the connection adapter reference each other.
func (s *Session) SetSender(sender Sender) {
	s.sender = sender
}

// Run is the session main loop. Exactly one goroutine runs it, everything
// else talks to the session through channels.
func (s *Session) Run() {
	cronRunner := cron.New(cron.WithLocation(time.UTC), cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)))
	if s.persister != nil && s.cfg.HistoryConfig.PruneSpec != "" && s.cfg.HistoryConfig.RetentionDays > 0 {
		retention := time.Duration(s.cfg.HistoryConfig.RetentionDays) * 24 * time.Hour
		_, err := cronRunner.AddFunc(s.cfg.HistoryConfig.PruneSpec, func() {
			_ = s.do(func() {
				if err := s.persister.PruneMessages(time.Now().Add(-retention)); err != nil {
					globals.AppLogger.Error("could not prune transcript", "error", err)
				}
			})
		})
		if err != nil {
			globals.AppLogger.Error("could not schedule transcript pruning", "error", err)
		}
	}
	cronRunner.Start()
	defer cronRunner.Stop()
	for {
		select {
		case raw := <-s.inbound:
			s.handleRaw(raw)

		case action := <-s.actions:
			action()

		case <-s.doneChan:
			return
		}
	}
}

func (s *Session) Close() {
	s.closeOnce.Do(func() {
		close(s.doneChan)
	})
}

// do runs fn on the session loop and waits for it, the caller observes a
// consistent snapshot and never interleaves with inbound processing. After
// Close it reports ErrSessionClosed, fn never ran.
func (s *Session) do(fn func()) error {
	select {
	case <-s.doneChan:
		return ErrSessionClosed
	default:
	}
	done := make(chan struct{})
	select {
	case s.actions <- func() {
		defer close(done)
		fn()
	}:
		<-done
		return nil
	case <-s.doneChan:
		return ErrSessionClosed
	}
}

// HandleMessage feeds one raw inbound payload into the session. Called by
// the connection adapter's read loop.
func (s *Session) HandleMessage(raw []byte) {
	select {
	case s.inbound <- raw:
	case <-s.doneChan:
	}
}

// HandleConnected reports a (re-)established transport. The server follows
// up with an enter replay for every visible room, which the engine
// reconciles idempotently.
func (s *Session) HandleConnected() {
	_ = s.do(func() {
		s.projectStatus(true)
	})
}

// HandleDisconnected reports a lost transport, this is a lifecycle signal
// towards the projection, not an error on any specific room.
func (s *Session) HandleDisconnected(err error) {
	if err != nil {
		globals.AppLogger.Warn("connection lost", "error", err)
	}
	_ = s.do(func() {
		s.projectStatus(false)
	})
}

func (s *Session) handleRaw(raw []byte) {
	event, err := protocol.DecodeEvent(raw)
	if err != nil {
		// one bad message never halts the stream
		s.reporter(err)
		return
	}
	deltas, err := s.engine.Apply(event)
	if err != nil {
		s.reporter(err)
		return
	}
	if len(deltas) == 0 {
		return
	}
	s.decorate(deltas)
	s.persist(deltas)
	s.project(deltas)
}

// decorate runs the notification filters over appended messages.
func (s *Session) decorate(deltas []types.Delta) {
	if len(s.filters) == 0 {
		return
	}
	for _, delta := range deltas {
		appended, ok := delta.(*types.DeltaMessageAppended)
		if !ok {
			continue
		}
		room := s.engine.Store().Get(appended.RoomId)
		if room == nil {
			continue
		}
		env := filter.Env{
			Room: filter.Room{
				Id:       room.Id,
				Name:     room.Name,
				Archived: room.Archived,
			},
			Sender:    filter.Sender{Nick: appended.Message.Nick},
			Body:      appended.Message.Body,
			Timestamp: appended.Message.Timestamp.Unix(),
			Current:   s.engine.Store().CurrentRoomId() == room.Id,
		}
		for _, f := range s.filters {
			if filter.Match(f.prog, env) {
				appended.Notify = true
				break
			}
		}
	}
}

// persist mirrors room state and appended messages into the transcript
// store, persistence failure only logs.
func (s *Session) persist(deltas []types.Delta) {
	if s.persister == nil {
		return
	}
	messages := make([]*types.Message, 0, len(deltas))
	for _, delta := range deltas {
		switch d := delta.(type) {
		case *types.DeltaMessageAppended:
			message := d.Message
			if message.Id == "" {
				if err := message.CreateId(); err != nil {
					globals.AppLogger.Error("could not hash message", "error", err)
					continue
				}
			}
			messages = append(messages, &message)

		case *types.DeltaRoomAdded, *types.DeltaRoomRenamed, *types.DeltaRoomRemoved, *types.DeltaRosterChanged:
			if room := s.engine.Store().Get(delta.GetRoomId()); room != nil {
				if err := s.persister.StoreRoom(*room); err != nil {
					globals.AppLogger.Error("could not persist room", "error", err)
				}
			}
		}
	}
	if len(messages) > 0 {
		if err := s.persister.StoreMessages(messages); err != nil {
			globals.AppLogger.Error("could not persist messages", "error", err)
		}
	}
}

// project hands a delta batch to the projection, isolating the store from
// any projection failure.
func (s *Session) project(deltas []types.Delta) {
	defer func() {
		if r := recover(); r != nil {
			globals.AppLogger.Error("projection failed, display may be stale", "panic", r)
		}
	}()
	s.projection.ApplyDeltas(deltas)
}

func (s *Session) projectStatus(connected bool) {
	defer func() {
		if r := recover(); r != nil {
			globals.AppLogger.Error("projection failed, display may be stale", "panic", r)
		}
	}()
	s.projection.ConnectionStatus(connected)
}

// The user-intent entry points. Each one validates, serializes and hands
// the payload to the sender on the session loop.

func (s *Session) SendText(body string) error {
	var err error
	if doErr := s.do(func() {
		err = s.sendCommand(func() (types.Command, error) {
			return s.engine.BuildSendText(body)
		})
	}); doErr != nil {
		return doErr
	}
	return err
}

func (s *Session) CreateRoom(name string, inviteUsers []string) error {
	var err error
	if doErr := s.do(func() {
		err = s.sendCommand(func() (types.Command, error) {
			return s.engine.BuildCreateRoom(name, inviteUsers)
		})
	}); doErr != nil {
		return doErr
	}
	return err
}

func (s *Session) RenameRoom(roomId, newName string, inviteUsers, removeUsers []string) error {
	var err error
	if doErr := s.do(func() {
		err = s.sendCommand(func() (types.Command, error) {
			return s.engine.BuildRenameRoom(roomId, newName, inviteUsers, removeUsers)
		})
	}); doErr != nil {
		return doErr
	}
	return err
}

func (s *Session) DeleteRoom(roomId string) error {
	var err error
	if doErr := s.do(func() {
		err = s.sendCommand(func() (types.Command, error) {
			return s.engine.BuildDeleteRoom(roomId)
		})
	}); doErr != nil {
		return doErr
	}
	return err
}

func (s *Session) sendCommand(build func() (types.Command, error)) error {
	command, err := build()
	if err != nil {
		s.reporter(err)
		return err
	}
	raw, err := protocol.EncodeCommand(command)
	if err != nil {
		s.reporter(err)
		return err
	}
	if s.sender == nil {
		err = errors.New("no transport wired")
		s.reporter(err)
		return err
	}
	s.sender.Send(raw)
	return nil
}

// SelectRoom changes the current room, a local action that never reaches
// the server.
func (s *Session) SelectRoom(roomId string) error {
	var err error
	if doErr := s.do(func() {
		var deltas []types.Delta
		deltas, err = s.engine.SelectRoom(roomId)
		if err != nil {
			s.reporter(err)
			return
		}
		if len(deltas) > 0 {
			s.project(deltas)
		}
	}); doErr != nil {
		return doErr
	}
	return err
}

// RoomInfo is a read-only room snapshot handed out of the session loop.
type RoomInfo struct {
	Id       string              `json:"id"`
	Name     string              `json:"name"`
	Archived bool                `json:"archived"`
	Current  bool                `json:"current"`
	Roster   []types.RosterEntry `json:"roster"`
	LogSize  int                 `json:"log_size"`
}

// Rooms returns a consistent snapshot of all known rooms in arrival order,
// archived rooms included.
func (s *Session) Rooms() []RoomInfo {
	var infos []RoomInfo
	_ = s.do(func() {
		rooms := s.engine.Store().Rooms()
		currentId := s.engine.Store().CurrentRoomId()
		infos = make([]RoomInfo, 0, len(rooms))
		for _, room := range rooms {
			infos = append(infos, RoomInfo{
				Id:       room.Id,
				Name:     room.Name,
				Archived: room.Archived,
				Current:  room.Id == currentId,
				Roster:   room.Roster.Entries(),
				LogSize:  len(room.Log),
			})
		}
	})
	return infos
}

// RoomLog returns a copy of the room's message log.
func (s *Session) RoomLog(roomId string) ([]types.Message, error) {
	var (
		log []types.Message
		err error
	)
	if doErr := s.do(func() {
		room := s.engine.Store().Get(roomId)
		if room == nil {
			err = &types.UnknownRoomError{RoomId: roomId}
			return
		}
		log = make([]types.Message, len(room.Log))
		copy(log, room.Log)
	}); doErr != nil {
		return nil, doErr
	}
	return log, err
}
