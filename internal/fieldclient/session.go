// Package fieldclient keeps one in-progress inspection usable on a device with
// a flaky connection. Structural edits apply locally at once and are sent in
// order by a single worker; failed sends roll the local change back.
package fieldclient

import (
	"context"
	"encoding/json"
	"errors"
	"rentflow/internal/lifecycle"
	"rentflow/internal/types"
	"rentflow/pkg/logger"
	"sync"
	"time"

	"github.com/google/uuid"
)

const defaultRequestTimeout = 20 * time.Second

var (
	ErrNotLoaded = errors.New("inspection is not loaded")
	ErrClosed    = errors.New("session is closed")

	errParentDiscarded = errors.New("parent record was rolled back")
)

// Rollback describes a local change undone after the server refused it or
// could not be reached.
type Rollback struct {
	Operation string
	LocalID   uuid.UUID
	Err       error
}

type intent struct {
	operation string
	localID   uuid.UUID
	// previous is the value undo restores. A rejected write whose record has a
	// later write queued hands it on instead of restoring it.
	previous any
	send      func(ctx context.Context) (merge func(view *types.InspectionView), err error)
	undo      func(view *types.InspectionView)
}

type Option func(*Session)

func WithClock(clock Clock) Option {
	return func(s *Session) { s.clock = clock }
}

// WithDevice sets the fingerprint sent with touches, photos and signatures.
func WithDevice(fingerprint string) Option {
	return func(s *Session) { s.device = fingerprint }
}

func WithRequestTimeout(timeout time.Duration) Option {
	return func(s *Session) { s.timeout = timeout }
}

type Session struct {
	inspectionID uuid.UUID
	remote       Remote
	cache        *Cache
	clock        Clock
	device       string
	timeout      time.Duration
	log          logger.Logger
	touch        *Debouncer

	mu         sync.Mutex
	state      *types.InspectionView
	offline    bool
	remap      map[uuid.UUID]uuid.UUID
	temporary  map[uuid.UUID]bool
	queue      []*intent
	onRollback func(Rollback)
	closed     bool
	// idle is closed whenever the queue is empty.
	idle chan struct{}

	wake   chan struct{}
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// NewSession starts the send worker for inspectionID. Call Load before any
// edit and Close when the inspection leaves the screen.
func NewSession(inspectionID uuid.UUID, remote Remote, cache *Cache, opts ...Option) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		inspectionID: inspectionID,
		remote:       remote,
		cache:        cache,
		clock:        SystemClock,
		timeout:      defaultRequestTimeout,
		log:          logger.New("fieldclient").File("session"),
		remap:        make(map[uuid.UUID]uuid.UUID),
		temporary:    make(map[uuid.UUID]bool),
		idle:         make(chan struct{}),
		wake:         make(chan struct{}, 1),
		ctx:          ctx,
		cancel:       cancel,
		done:         make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	close(s.idle)
	s.touch = NewDebouncer(s.clock, TouchDelay, s.sendTouch)

	go s.run()
	return s
}

// OnRollback registers the callback told about undone local changes.
func (s *Session) OnRollback(fn func(Rollback)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onRollback = fn
}

// Load fetches the inspection. Transport and server failures fall back to a
// local copy younger than CacheFreshness; NOT_FOUND, FORBIDDEN and other
// definitive answers never do.
func (s *Session) Load(ctx context.Context) (*types.InspectionView, error) {
	log := s.log.Function("Load")

	view, err := s.remote.GetInspection(ctx, s.inspectionID)
	if err == nil {
		s.mu.Lock()
		s.state = view
		s.offline = false
		snapshot := clone(view)
		s.mu.Unlock()

		s.persist(ctx, snapshot)
		return clone(view), nil
	}

	if Authoritative(err) {
		switch types.KindOf(err) {
		case types.ErrNotFound, types.ErrForbidden:
			if purgeErr := s.cache.Purge(ctx, s.inspectionID); purgeErr != nil {
				log.Warn("failed to purge local copy", "inspectionID", s.inspectionID, "error", purgeErr)
			}
		}
		return nil, err
	}

	log.Warn("failed to fetch inspection, trying local copy", "inspectionID", s.inspectionID, "error", err)
	cached, cacheErr := s.cache.Load(ctx, s.inspectionID)
	if cacheErr != nil {
		log.Info("no usable local copy", "inspectionID", s.inspectionID, "reason", cacheErr)
		return nil, err
	}

	s.mu.Lock()
	s.state = cached
	s.offline = true
	s.mu.Unlock()
	return clone(cached), nil
}

// Snapshot returns a copy of the local state, optimistic changes included.
func (s *Session) Snapshot() *types.InspectionView {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == nil {
		return nil
	}
	return clone(s.state)
}

// Offline reports whether the state came from the local copy.
func (s *Session) Offline() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.offline
}

// Pending is the number of structural writes not yet answered.
func (s *Session) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

// Touch records activity; calls within TouchDelay of each other are sent once.
func (s *Session) Touch() {
	s.mu.Lock()
	skip := s.closed || s.state == nil || s.state.Status.IsFinalized()
	s.mu.Unlock()
	if skip {
		return
	}
	s.touch.Trigger()
}

func (s *Session) sendTouch() {
	log := s.log.Function("sendTouch")

	ctx, cancel := context.WithTimeout(s.ctx, s.timeout)
	defer cancel()

	request := &types.TouchRequest{DeviceFingerprint: s.device}
	if err := s.remote.Touch(ctx, s.inspectionID, request); err != nil {
		log.Warn("touch was not delivered", "inspectionID", s.inspectionID, "error", err)
	}
}

// Drain waits until every queued write has been answered.
func (s *Session) Drain(ctx context.Context) error {
	s.mu.Lock()
	idle := s.idle
	s.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close sends a pending touch, stops the worker and abandons unsent writes.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	s.touch.Flush()
	s.touch.Stop()
	s.cancel()
	<-s.done

	s.mu.Lock()
	abandoned := len(s.queue)
	s.queue = nil
	if abandoned > 0 {
		close(s.idle)
	}
	s.mu.Unlock()
	if abandoned > 0 {
		s.log.Function("Close").Warn("abandoned unsent writes", "inspectionID", s.inspectionID, "count", abandoned)
	}
}

func (s *Session) run() {
	defer close(s.done)
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-s.wake:
		}

		for {
			next := s.peek()
			if next == nil {
				break
			}
			s.process(next)
			if s.ctx.Err() != nil {
				return
			}
		}
	}
}

func (s *Session) peek() *intent {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.queue) == 0 {
		return nil
	}
	return s.queue[0]
}

func (s *Session) process(in *intent) {
	log := s.log.Function("process")

	ctx, cancel := context.WithTimeout(s.ctx, s.timeout)
	merge, err := in.send(ctx)
	cancel()

	s.mu.Lock()
	if s.ctx.Err() != nil && err != nil {
		// Close abandons this write with the rest of the queue.
		s.mu.Unlock()
		return
	}
	s.queue = s.queue[1:]

	var rollback func(Rollback)
	if err != nil {
		in.undo(s.state)
		rollback = s.onRollback
	} else {
		merge(s.state)
	}

	var snapshot *types.InspectionView
	var idle chan struct{}
	if len(s.queue) == 0 {
		snapshot = clone(s.state)
		idle = s.idle
	}
	s.mu.Unlock()

	if err != nil {
		log.Warn("write rejected, local change rolled back",
			"operation", in.operation,
			"localID", in.localID,
			"error", err,
		)
		if rollback != nil {
			rollback(Rollback{Operation: in.operation, LocalID: in.localID, Err: err})
		}
	}
	if snapshot != nil {
		s.persist(s.ctx, snapshot)
	}
	if idle != nil {
		close(idle)
	}
}

// persist mirrors confirmed state into the cache, or purges it once the
// inspection is signed.
func (s *Session) persist(ctx context.Context, view *types.InspectionView) {
	log := s.log.Function("persist")

	if view.Status.IsFinalized() {
		if err := s.cache.Purge(ctx, view.ID); err != nil {
			log.Warn("failed to purge local copy", "inspectionID", view.ID, "error", err)
		}
		return
	}
	if err := s.cache.Save(ctx, view); err != nil {
		log.Warn("failed to save local copy", "inspectionID", view.ID, "error", err)
	}
}

// enqueueLocked must be called with mu held.
func (s *Session) enqueueLocked(in *intent) {
	if len(s.queue) == 0 {
		s.idle = make(chan struct{})
	}
	s.queue = append(s.queue, in)
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// editableLocked checks the local state before an optimistic change.
func (s *Session) editableLocked() error {
	if s.closed {
		return ErrClosed
	}
	if s.state == nil {
		return ErrNotLoaded
	}
	return lifecycle.EnsureEditable(&s.state.Inspection)
}

func (s *Session) tempIDLocked() uuid.UUID {
	id := uuid.Must(uuid.NewV7())
	s.temporary[id] = true
	return id
}

// localIDLocked maps a temporary ID the caller still holds to the confirmed one.
func (s *Session) localIDLocked(id uuid.UUID) uuid.UUID {
	if confirmed, ok := s.remap[id]; ok {
		return confirmed
	}
	return id
}

// laterLocked returns the next queued write for the record behind localID.
// The answered write must already be off the queue.
func (s *Session) laterLocked(localID uuid.UUID) *intent {
	id := s.localIDLocked(localID)
	for _, queued := range s.queue {
		if s.localIDLocked(queued.localID) == id {
			return queued
		}
	}
	return nil
}

// handOffLocked passes in's previous value to the next queued write of the
// same kind. It reports false when no such write exists and in must restore
// the value itself.
func (s *Session) handOffLocked(in *intent) bool {
	later := s.laterLocked(in.localID)
	if later == nil {
		return false
	}
	if later.operation == in.operation {
		later.previous = in.previous
	}
	return true
}

func (s *Session) confirmLocked(tempID, confirmed uuid.UUID) {
	delete(s.temporary, tempID)
	s.remap[tempID] = confirmed
}

// resolve returns the server ID for id at send time. A temporary ID that was
// never confirmed belongs to a rolled-back parent.
func (s *Session) resolve(id uuid.UUID) (uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if confirmed, ok := s.remap[id]; ok {
		return confirmed, nil
	}
	if s.temporary[id] {
		return uuid.Nil, errParentDiscarded
	}
	return id, nil
}

func validation(err error) error {
	return types.Errorf(types.ErrValidation, "%s", err.Error())
}

func notFound(entity string) error {
	return types.Errorf(types.ErrNotFound, "%s not found", entity)
}

func clone(view *types.InspectionView) *types.InspectionView {
	payload, err := json.Marshal(view)
	if err != nil {
		return nil
	}
	var out types.InspectionView
	if err := json.Unmarshal(payload, &out); err != nil {
		return nil
	}
	return &out
}
