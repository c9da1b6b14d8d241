package fieldclient

import (
	"context"
	"rentflow/internal/lifecycle"
	"rentflow/internal/models"
	"rentflow/internal/types"
	"strings"
	"time"

	"github.com/google/uuid"
)

// AddRoom appends the room locally under a temporary ID and queues its
// creation. The returned room carries that temporary ID, which the session
// keeps accepting after the server assigns the real one.
func (s *Session) AddRoom(request types.CreateRoomRequest) (*models.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.editableLocked(); err != nil {
		return nil, err
	}

	room := request.Room(s.state.NextRoomPosition())
	room.InspectionID = s.inspectionID
	if err := room.Validate(); err != nil {
		return nil, validation(err)
	}
	tempID := s.tempIDLocked()
	room.ID = tempID
	s.state.Rooms = append(s.state.Rooms, room)

	s.enqueueLocked(&intent{
		operation: "AddRoom",
		localID:   tempID,
		send: func(ctx context.Context) (func(*types.InspectionView), error) {
			confirmed, err := s.remote.AddRoom(ctx, s.inspectionID, &request)
			if err != nil {
				return nil, err
			}
			return func(view *types.InspectionView) {
				s.confirmLocked(tempID, confirmed.ID)
				local := view.FindRoom(tempID)
				if local == nil {
					return
				}
				elements, photos := local.Elements, local.Photos
				*local = *confirmed
				local.Elements, local.Photos = elements, photos
				for i := range local.Elements {
					local.Elements[i].RoomID = confirmed.ID
				}
				for i := range local.Photos {
					local.Photos[i].RoomID = confirmed.ID
				}
			}, nil
		},
		undo: func(view *types.InspectionView) {
			for i := range view.Rooms {
				if view.Rooms[i].ID == tempID {
					view.Rooms = append(view.Rooms[:i], view.Rooms[i+1:]...)
					return
				}
			}
		},
	})

	out := room
	return &out, nil
}

func (s *Session) AddElement(roomID uuid.UUID, request types.ElementRequest) (*models.Element, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.editableLocked(); err != nil {
		return nil, err
	}
	room := s.state.FindRoom(s.localIDLocked(roomID))
	if room == nil {
		return nil, notFound("room")
	}

	element := request.Element()
	element.RoomID = room.ID
	element.InspectionID = s.inspectionID
	if err := element.Validate(); err != nil {
		return nil, validation(err)
	}
	tempID := s.tempIDLocked()
	element.ID = tempID
	room.Elements = append(room.Elements, *element)

	parentID := room.ID
	s.enqueueLocked(&intent{
		operation: "AddElement",
		localID:   tempID,
		send: func(ctx context.Context) (func(*types.InspectionView), error) {
			serverRoomID, err := s.resolve(parentID)
			if err != nil {
				return nil, err
			}
			confirmed, err := s.remote.AddElement(ctx, s.inspectionID, serverRoomID, &request)
			if err != nil {
				return nil, err
			}
			return func(view *types.InspectionView) {
				s.confirmLocked(tempID, confirmed.ID)
				_, local := view.FindElement(tempID)
				if local == nil {
					return
				}
				if s.laterLocked(tempID) != nil {
					local.BaseUUIDModel = confirmed.BaseUUIDModel
					local.RoomID = confirmed.RoomID
					return
				}
				*local = *confirmed
			}, nil
		},
		undo: func(view *types.InspectionView) {
			removeElement(view, tempID)
		},
	})

	out := *element
	return &out, nil
}

// UpdateElement replaces the element's values locally and queues the
// replacement. A rejected update restores the previous values.
func (s *Session) UpdateElement(elementID uuid.UUID, request types.ElementRequest) (*models.Element, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.editableLocked(); err != nil {
		return nil, err
	}
	localID := s.localIDLocked(elementID)
	room, existing := s.state.FindElement(localID)
	if existing == nil {
		return nil, notFound("element")
	}

	candidate := request.Element()
	candidate.BaseUUIDModel = existing.BaseUUIDModel
	candidate.RoomID = room.ID
	candidate.InspectionID = s.inspectionID
	if err := candidate.Validate(); err != nil {
		return nil, validation(err)
	}
	in := &intent{operation: "UpdateElement", localID: localID, previous: *existing}
	*existing = *candidate

	in.send = func(ctx context.Context) (func(*types.InspectionView), error) {
		serverID, err := s.resolve(localID)
		if err != nil {
			return nil, err
		}
		confirmed, err := s.remote.ReplaceElement(ctx, s.inspectionID, serverID, &request)
		if err != nil {
			return nil, err
		}
		return func(view *types.InspectionView) {
			if s.laterLocked(localID) != nil {
				return
			}
			if _, local := view.FindElement(confirmed.ID); local != nil {
				*local = *confirmed
			}
		}, nil
	}
	in.undo = func(view *types.InspectionView) {
		if s.handOffLocked(in) {
			return
		}
		_, local := view.FindElement(s.localIDLocked(localID))
		previous, ok := in.previous.(models.Element)
		if local == nil || !ok {
			return
		}
		base, roomID := local.BaseUUIDModel, local.RoomID
		*local = previous
		local.BaseUUIDModel, local.RoomID = base, roomID
	}
	s.enqueueLocked(in)

	out := *candidate
	return &out, nil
}

func (s *Session) AttachPhoto(roomID uuid.UUID, request types.PhotoRequest) (*models.Photo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.editableLocked(); err != nil {
		return nil, err
	}
	room := s.state.FindRoom(s.localIDLocked(roomID))
	if room == nil {
		return nil, notFound("room")
	}
	if request.DeviceFingerprint == nil && s.device != "" {
		device := s.device
		request.DeviceFingerprint = &device
	}

	photo := request.Photo()
	photo.RoomID = room.ID
	photo.InspectionID = s.inspectionID
	var elementID *uuid.UUID
	if request.ElementID != nil {
		local := s.localIDLocked(*request.ElementID)
		owner, element := s.state.FindElement(local)
		if element == nil || owner.ID != room.ID {
			return nil, types.Errorf(types.ErrNotFound, "element not found in this room")
		}
		elementID = &local
		photo.ElementID = &local
	}
	if err := photo.Validate(); err != nil {
		return nil, validation(err)
	}
	request.ContentHash = photo.ContentHash
	tempID := s.tempIDLocked()
	photo.ID = tempID
	room.Photos = append(room.Photos, *photo)

	parentID := room.ID
	s.enqueueLocked(&intent{
		operation: "AttachPhoto",
		localID:   tempID,
		send: func(ctx context.Context) (func(*types.InspectionView), error) {
			serverRoomID, err := s.resolve(parentID)
			if err != nil {
				return nil, err
			}
			if elementID != nil {
				serverElementID, err := s.resolve(*elementID)
				if err != nil {
					return nil, err
				}
				request.ElementID = &serverElementID
			}
			confirmed, err := s.remote.AttachPhoto(ctx, s.inspectionID, serverRoomID, &request)
			if err != nil {
				return nil, err
			}
			return func(view *types.InspectionView) {
				s.confirmLocked(tempID, confirmed.ID)
				if room, idx := findPhoto(view, tempID); room != nil {
					room.Photos[idx] = *confirmed
				}
			}, nil
		},
		undo: func(view *types.InspectionView) {
			if room, idx := findPhoto(view, tempID); room != nil {
				room.Photos = append(room.Photos[:idx], room.Photos[idx+1:]...)
			}
		},
	})

	out := *photo
	return &out, nil
}

func (s *Session) UpsertMeter(meterType models.MeterType, request types.MeterRequest) (*models.Meter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.editableLocked(); err != nil {
		return nil, err
	}

	meter := request.Meter(meterType)
	meter.InspectionID = s.inspectionID
	if err := meter.Validate(); err != nil {
		return nil, validation(err)
	}

	var previous *models.Meter
	idx := findMeter(s.state, meterType)
	if idx >= 0 {
		prev := s.state.Meters[idx]
		previous = &prev
		meter.BaseUUIDModel = prev.BaseUUIDModel
		s.state.Meters[idx] = *meter
	} else {
		meter.ID = s.tempIDLocked()
		s.state.Meters = append(s.state.Meters, *meter)
	}
	localID := meter.ID

	in := &intent{operation: "UpsertMeter", localID: localID, previous: previous}
	in.send = func(ctx context.Context) (func(*types.InspectionView), error) {
		confirmed, err := s.remote.UpsertMeter(ctx, s.inspectionID, meterType, &request)
		if err != nil {
			return nil, err
		}
		return func(view *types.InspectionView) {
			if s.temporary[localID] {
				s.confirmLocked(localID, confirmed.ID)
			}
			i := findMeter(view, meterType)
			switch {
			case i < 0:
				view.Meters = append(view.Meters, *confirmed)
			case s.laterLocked(localID) != nil:
				view.Meters[i].BaseUUIDModel = confirmed.BaseUUIDModel
			default:
				view.Meters[i] = *confirmed
			}
		}, nil
	}
	in.undo = func(view *types.InspectionView) {
		if s.handOffLocked(in) {
			return
		}
		i := findMeter(view, meterType)
		previous, _ := in.previous.(*models.Meter)
		switch {
		case i < 0:
		case previous != nil:
			view.Meters[i] = *previous
		default:
			view.Meters = append(view.Meters[:i], view.Meters[i+1:]...)
		}
	}
	s.enqueueLocked(in)

	out := *meter
	return &out, nil
}

func (s *Session) UpsertKey(keyType string, request types.KeyRequest) (*models.Key, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.editableLocked(); err != nil {
		return nil, err
	}

	key := models.Key{InspectionID: s.inspectionID, Type: keyType, Quantity: request.Quantity}
	if err := key.Validate(); err != nil {
		return nil, validation(err)
	}
	keyType = key.Type

	var previous *models.Key
	idx := findKey(s.state, keyType)
	if idx >= 0 {
		prev := s.state.Keys[idx]
		previous = &prev
		key.BaseUUIDModel = prev.BaseUUIDModel
		s.state.Keys[idx] = key
	} else {
		key.ID = s.tempIDLocked()
		s.state.Keys = append(s.state.Keys, key)
	}
	localID := key.ID

	in := &intent{operation: "UpsertKey", localID: localID, previous: previous}
	in.send = func(ctx context.Context) (func(*types.InspectionView), error) {
		confirmed, err := s.remote.UpsertKey(ctx, s.inspectionID, keyType, &request)
		if err != nil {
			return nil, err
		}
		return func(view *types.InspectionView) {
			if s.temporary[localID] {
				s.confirmLocked(localID, confirmed.ID)
			}
			i := findKey(view, keyType)
			switch {
			case i < 0:
				view.Keys = append(view.Keys, *confirmed)
			case s.laterLocked(localID) != nil:
				view.Keys[i].BaseUUIDModel = confirmed.BaseUUIDModel
			default:
				view.Keys[i] = *confirmed
			}
		}, nil
	}
	in.undo = func(view *types.InspectionView) {
		if s.handOffLocked(in) {
			return
		}
		i := findKey(view, keyType)
		previous, _ := in.previous.(*models.Key)
		switch {
		case i < 0:
		case previous != nil:
			view.Keys[i] = *previous
		default:
			view.Keys = append(view.Keys[:i], view.Keys[i+1:]...)
		}
	}
	s.enqueueLocked(in)

	out := key
	return &out, nil
}

type signingState struct {
	status            models.InspectionStatus
	ownerSignature    *models.Signature
	ownerSignedAt     *time.Time
	occupantSignature *models.Signature
	occupantSignedAt  *time.Time
	occupantReserves  *string
}

func captureSigning(i *models.Inspection) signingState {
	return signingState{
		status:            i.Status,
		ownerSignature:    i.OwnerSignature,
		ownerSignedAt:     i.OwnerSignedAt,
		occupantSignature: i.OccupantSignature,
		occupantSignedAt:  i.OccupantSignedAt,
		occupantReserves:  i.OccupantReserves,
	}
}

func (st signingState) restore(i *models.Inspection) {
	i.Status = st.status
	i.OwnerSignature = st.ownerSignature
	i.OwnerSignedAt = st.ownerSignedAt
	i.OccupantSignature = st.occupantSignature
	i.OccupantSignedAt = st.occupantSignedAt
	i.OccupantReserves = st.occupantReserves
}

// Sign records the signature locally under the same ordering rules the
// server applies, then queues it behind any pending structural writes.
func (s *Session) Sign(request types.SignRequest) (*types.SignResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrClosed
	}
	if s.state == nil {
		return nil, ErrNotLoaded
	}
	if request.Signature.DeviceFingerprint == "" {
		request.Signature.DeviceFingerprint = s.device
	}

	saved := captureSigning(&s.state.Inspection)
	signature := models.Signature{
		SVG:               request.Signature.SVG,
		DeviceFingerprint: strings.TrimSpace(request.Signature.DeviceFingerprint),
		Geolocation:       request.Signature.Geolocation,
	}
	if err := lifecycle.RecordSignature(
		&s.state.Inspection,
		request.Role,
		signature,
		request.Reserves,
		s.clock.Now(),
	); err != nil {
		saved.restore(&s.state.Inspection)
		return nil, err
	}

	local := &types.SignResponse{InspectionID: s.inspectionID, Status: s.state.Status}
	switch request.Role {
	case models.RoleOwner:
		local.SignedAt = *s.state.OwnerSignedAt
	case models.RoleOccupant:
		local.SignedAt = *s.state.OccupantSignedAt
	}

	role := request.Role
	s.enqueueLocked(&intent{
		operation: "Sign",
		localID:   s.inspectionID,
		send: func(ctx context.Context) (func(*types.InspectionView), error) {
			confirmed, err := s.remote.Sign(ctx, s.inspectionID, &request)
			if err != nil {
				return nil, err
			}
			return func(view *types.InspectionView) {
				signedAt := confirmed.SignedAt
				view.Status = confirmed.Status
				switch role {
				case models.RoleOwner:
					view.OwnerSignedAt = &signedAt
					if view.OwnerSignature != nil {
						view.OwnerSignature.SignedAt = signedAt
					}
				case models.RoleOccupant:
					view.OccupantSignedAt = &signedAt
					if view.OccupantSignature != nil {
						view.OccupantSignature.SignedAt = signedAt
					}
					if deadline, ok := lifecycle.AmendmentDeadline(&view.Inspection); ok {
						view.AmendmentDeadline = &deadline
					}
				}
			}, nil
		},
		undo: func(view *types.InspectionView) {
			saved.restore(&view.Inspection)
		},
	})

	return local, nil
}

func removeElement(view *types.InspectionView, id uuid.UUID) {
	for r := range view.Rooms {
		room := &view.Rooms[r]
		for e := range room.Elements {
			if room.Elements[e].ID == id {
				room.Elements = append(room.Elements[:e], room.Elements[e+1:]...)
				return
			}
		}
	}
}

func findPhoto(view *types.InspectionView, id uuid.UUID) (*models.Room, int) {
	for r := range view.Rooms {
		room := &view.Rooms[r]
		for p := range room.Photos {
			if room.Photos[p].ID == id {
				return room, p
			}
		}
	}
	return nil, -1
}

func findMeter(view *types.InspectionView, meterType models.MeterType) int {
	for i := range view.Meters {
		if view.Meters[i].Type == meterType {
			return i
		}
	}
	return -1
}

func findKey(view *types.InspectionView, keyType string) int {
	for i := range view.Keys {
		if view.Keys[i].Type == keyType {
			return i
		}
	}
	return -1
}
