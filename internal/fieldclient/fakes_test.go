package fieldclient

import (
	"context"
	"errors"
	"net/http"
	"rentflow/internal/models"
	"rentflow/internal/types"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

type fakeTimer struct {
	clock   *fakeClock
	at      time.Time
	fn      func()
	stopped bool
	fired   bool
}

func newFakeClock(now time.Time) *fakeClock {
	return &fakeClock{now: now}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	timer := &fakeTimer{clock: c, at: c.now.Add(d), fn: f}
	c.timers = append(c.timers, timer)
	return timer
}

// Advance moves time forward and runs every timer that came due, in order.
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	var due []*fakeTimer
	for _, timer := range c.timers {
		if !timer.stopped && !timer.fired && !timer.at.After(c.now) {
			timer.fired = true
			due = append(due, timer)
		}
	}
	c.mu.Unlock()

	sort.Slice(due, func(i, j int) bool { return due[i].at.Before(due[j].at) })
	for _, timer := range due {
		timer.fn()
	}
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	active := !t.stopped && !t.fired
	t.stopped = true
	return active
}

var errOffline = errors.New("dial tcp: connection refused")

type remoteCall struct {
	op       string
	parentID uuid.UUID
	childID  uuid.UUID
}

type fakeRemote struct {
	mu       sync.Mutex
	clock    Clock
	view     *types.InspectionView
	getErr   error
	touchErr error
	fail     map[string]error
	hold     chan struct{}
	holdOps  map[string]chan struct{}
	calls    []remoteCall
	touches  int
}

func newFakeRemote(view *types.InspectionView, clock Clock) *fakeRemote {
	return &fakeRemote{view: view, clock: clock, fail: map[string]error{}, holdOps: map[string]chan struct{}{}}
}

// holdOp blocks every call to op until the returned channel is closed.
func (r *fakeRemote) holdOp(op string) chan struct{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	release := make(chan struct{})
	r.holdOps[op] = release
	return release
}

func (r *fakeRemote) setGetErr(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.getErr = err
}

func (r *fakeRemote) failOp(op string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fail[op] = err
}

func (r *fakeRemote) record(ctx context.Context, call remoteCall) error {
	r.mu.Lock()
	holds := []chan struct{}{r.hold, r.holdOps[call.op]}
	r.mu.Unlock()
	for _, hold := range holds {
		if hold == nil {
			continue
		}
		select {
		case <-hold:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, call)
	return r.fail[call.op]
}

func (r *fakeRemote) recorded() []remoteCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]remoteCall(nil), r.calls...)
}

func (r *fakeRemote) touchCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.touches
}

func (r *fakeRemote) GetInspection(ctx context.Context, inspectionID uuid.UUID) (*types.InspectionView, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.getErr != nil {
		return nil, r.getErr
	}
	return clone(r.view), nil
}

func (r *fakeRemote) Touch(ctx context.Context, inspectionID uuid.UUID, request *types.TouchRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.touches++
	return r.touchErr
}

func (r *fakeRemote) AddRoom(
	ctx context.Context,
	inspectionID uuid.UUID,
	request *types.CreateRoomRequest,
) (*models.Room, error) {
	if err := r.record(ctx, remoteCall{op: "AddRoom"}); err != nil {
		return nil, err
	}
	room := request.Room(0)
	room.ID = uuid.Must(uuid.NewV7())
	room.InspectionID = inspectionID
	return &room, nil
}

func (r *fakeRemote) AddElement(
	ctx context.Context,
	inspectionID, roomID uuid.UUID,
	request *types.ElementRequest,
) (*models.Element, error) {
	if err := r.record(ctx, remoteCall{op: "AddElement", parentID: roomID}); err != nil {
		return nil, err
	}
	element := request.Element()
	element.ID = uuid.Must(uuid.NewV7())
	element.RoomID = roomID
	element.InspectionID = inspectionID
	return element, nil
}

func (r *fakeRemote) ReplaceElement(
	ctx context.Context,
	inspectionID, elementID uuid.UUID,
	request *types.ElementRequest,
) (*models.Element, error) {
	if err := r.record(ctx, remoteCall{op: "ReplaceElement", childID: elementID}); err != nil {
		return nil, err
	}
	element := request.Element()
	element.ID = elementID
	element.InspectionID = inspectionID
	return element, nil
}

func (r *fakeRemote) AttachPhoto(
	ctx context.Context,
	inspectionID, roomID uuid.UUID,
	request *types.PhotoRequest,
) (*models.Photo, error) {
	call := remoteCall{op: "AttachPhoto", parentID: roomID}
	if request.ElementID != nil {
		call.childID = *request.ElementID
	}
	if err := r.record(ctx, call); err != nil {
		return nil, err
	}
	photo := request.Photo()
	photo.ID = uuid.Must(uuid.NewV7())
	photo.RoomID = roomID
	photo.InspectionID = inspectionID
	return photo, nil
}

func (r *fakeRemote) UpsertMeter(
	ctx context.Context,
	inspectionID uuid.UUID,
	meterType models.MeterType,
	request *types.MeterRequest,
) (*models.Meter, error) {
	if err := r.record(ctx, remoteCall{op: "UpsertMeter"}); err != nil {
		return nil, err
	}
	meter := request.Meter(meterType)
	meter.ID = uuid.Must(uuid.NewV7())
	meter.InspectionID = inspectionID
	return meter, nil
}

func (r *fakeRemote) UpsertKey(
	ctx context.Context,
	inspectionID uuid.UUID,
	keyType string,
	request *types.KeyRequest,
) (*models.Key, error) {
	if err := r.record(ctx, remoteCall{op: "UpsertKey"}); err != nil {
		return nil, err
	}
	key := &models.Key{InspectionID: inspectionID, Type: keyType, Quantity: request.Quantity}
	key.ID = uuid.Must(uuid.NewV7())
	return key, nil
}

func (r *fakeRemote) Sign(
	ctx context.Context,
	inspectionID uuid.UUID,
	request *types.SignRequest,
) (*types.SignResponse, error) {
	if err := r.record(ctx, remoteCall{op: "Sign"}); err != nil {
		return nil, err
	}
	status := models.StatusPendingSignature
	if request.Role == models.RoleOccupant {
		status = models.StatusSigned
	}
	return &types.SignResponse{
		InspectionID: inspectionID,
		Status:       status,
		SignedAt:     r.clock.Now().UTC(),
	}, nil
}

func notFoundResponse() error {
	return &RemoteError{Status: http.StatusNotFound, Kind: types.ErrNotFound, Message: "inspection not found"}
}
