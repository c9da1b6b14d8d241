package fieldclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"rentflow/internal/models"
	"rentflow/internal/types"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Remote is the server surface the field client relies on.
type Remote interface {
	GetInspection(ctx context.Context, inspectionID uuid.UUID) (*types.InspectionView, error)
	Touch(ctx context.Context, inspectionID uuid.UUID, request *types.TouchRequest) error
	AddRoom(ctx context.Context, inspectionID uuid.UUID, request *types.CreateRoomRequest) (*models.Room, error)
	AddElement(
		ctx context.Context,
		inspectionID, roomID uuid.UUID,
		request *types.ElementRequest,
	) (*models.Element, error)
	ReplaceElement(
		ctx context.Context,
		inspectionID, elementID uuid.UUID,
		request *types.ElementRequest,
	) (*models.Element, error)
	AttachPhoto(
		ctx context.Context,
		inspectionID, roomID uuid.UUID,
		request *types.PhotoRequest,
	) (*models.Photo, error)
	UpsertMeter(
		ctx context.Context,
		inspectionID uuid.UUID,
		meterType models.MeterType,
		request *types.MeterRequest,
	) (*models.Meter, error)
	UpsertKey(ctx context.Context, inspectionID uuid.UUID, keyType string, request *types.KeyRequest) (*models.Key, error)
	Sign(ctx context.Context, inspectionID uuid.UUID, request *types.SignRequest) (*types.SignResponse, error)
}

// RemoteError is a non-2xx answer from the server.
type RemoteError struct {
	Status  int
	Kind    types.ErrorKind
	Message string
}

func (e *RemoteError) Error() string {
	if e.Kind != "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
}

func (e *RemoteError) Unwrap() error {
	if e.Kind == "" {
		return nil
	}
	return e.Kind
}

// Authoritative reports whether err is a definitive answer from the server,
// as opposed to a transport failure or a server-side fault.
func Authoritative(err error) bool {
	var remote *RemoteError
	if !errors.As(err, &remote) {
		return false
	}
	return remote.Status < http.StatusInternalServerError && remote.Kind != ""
}

const defaultRemoteTimeout = 30 * time.Second

type HTTPRemote struct {
	baseURL string
	token   string
	client  *http.Client
}

// NewHTTPRemote talks to the API rooted at baseURL (e.g. https://host/api)
// with a bearer session token.
func NewHTTPRemote(baseURL, token string, client *http.Client) *HTTPRemote {
	if client == nil {
		client = &http.Client{Timeout: defaultRemoteTimeout}
	}
	return &HTTPRemote{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client:  client,
	}
}

func inspectionPath(inspectionID uuid.UUID, parts ...string) string {
	path := "/inspections/" + inspectionID.String()
	for _, part := range parts {
		path += "/" + url.PathEscape(part)
	}
	return path
}

func (r *HTTPRemote) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, r.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if r.token != "" {
		req.Header.Set("Authorization", "Bearer "+r.token)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("request %s %s failed: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= http.StatusBadRequest {
		return decodeRemoteError(resp)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func decodeRemoteError(resp *http.Response) error {
	remote := &RemoteError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}

	var body types.ErrorResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&body); err == nil {
		remote.Kind = body.Code
		if body.Error != "" {
			remote.Message = body.Error
		}
		if body.InspectionID != nil && remote.Kind == types.ErrDuplicateInspection {
			return fmt.Errorf("%w: %w", remote, &types.DuplicateInspectionError{InspectionID: *body.InspectionID})
		}
	}
	return remote
}

func (r *HTTPRemote) GetInspection(ctx context.Context, inspectionID uuid.UUID) (*types.InspectionView, error) {
	var view types.InspectionView
	if err := r.do(ctx, http.MethodGet, inspectionPath(inspectionID), nil, &view); err != nil {
		return nil, err
	}
	return &view, nil
}

func (r *HTTPRemote) Touch(ctx context.Context, inspectionID uuid.UUID, request *types.TouchRequest) error {
	return r.do(ctx, http.MethodPost, inspectionPath(inspectionID, "touch"), request, nil)
}

func (r *HTTPRemote) AddRoom(
	ctx context.Context,
	inspectionID uuid.UUID,
	request *types.CreateRoomRequest,
) (*models.Room, error) {
	var room models.Room
	if err := r.do(ctx, http.MethodPost, inspectionPath(inspectionID, "rooms"), request, &room); err != nil {
		return nil, err
	}
	return &room, nil
}

func (r *HTTPRemote) AddElement(
	ctx context.Context,
	inspectionID, roomID uuid.UUID,
	request *types.ElementRequest,
) (*models.Element, error) {
	var element models.Element
	path := inspectionPath(inspectionID, "rooms", roomID.String(), "elements")
	if err := r.do(ctx, http.MethodPost, path, request, &element); err != nil {
		return nil, err
	}
	return &element, nil
}

func (r *HTTPRemote) ReplaceElement(
	ctx context.Context,
	inspectionID, elementID uuid.UUID,
	request *types.ElementRequest,
) (*models.Element, error) {
	var element models.Element
	path := inspectionPath(inspectionID, "elements", elementID.String())
	if err := r.do(ctx, http.MethodPut, path, request, &element); err != nil {
		return nil, err
	}
	return &element, nil
}

func (r *HTTPRemote) AttachPhoto(
	ctx context.Context,
	inspectionID, roomID uuid.UUID,
	request *types.PhotoRequest,
) (*models.Photo, error) {
	var photo models.Photo
	path := inspectionPath(inspectionID, "rooms", roomID.String(), "photos")
	if err := r.do(ctx, http.MethodPost, path, request, &photo); err != nil {
		return nil, err
	}
	return &photo, nil
}

func (r *HTTPRemote) UpsertMeter(
	ctx context.Context,
	inspectionID uuid.UUID,
	meterType models.MeterType,
	request *types.MeterRequest,
) (*models.Meter, error) {
	var meter models.Meter
	path := inspectionPath(inspectionID, "meters", string(meterType))
	if err := r.do(ctx, http.MethodPut, path, request, &meter); err != nil {
		return nil, err
	}
	return &meter, nil
}

func (r *HTTPRemote) UpsertKey(
	ctx context.Context,
	inspectionID uuid.UUID,
	keyType string,
	request *types.KeyRequest,
) (*models.Key, error) {
	var key models.Key
	if err := r.do(ctx, http.MethodPut, inspectionPath(inspectionID, "keys", keyType), request, &key); err != nil {
		return nil, err
	}
	return &key, nil
}

func (r *HTTPRemote) Sign(
	ctx context.Context,
	inspectionID uuid.UUID,
	request *types.SignRequest,
) (*types.SignResponse, error) {
	var resp types.SignResponse
	if err := r.do(ctx, http.MethodPost, inspectionPath(inspectionID, "sign"), request, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
