package http

import (
	"context"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/homevista/brokerage/internal/domain"
	"github.com/homevista/brokerage/internal/service"
	apperrors "github.com/homevista/brokerage/pkg/errors"
	"github.com/homevista/brokerage/pkg/httputil"
	"github.com/homevista/brokerage/pkg/middleware"
	"github.com/homevista/brokerage/pkg/validator"
)

// Multipart form field names for property submissions.
const (
	fieldPropertyData = "propertyData"
	fieldImages       = "images[]"
	fieldVideos       = "videos[]"
)

// maxMultipartMemory bounds the in-memory portion of multipart parsing;
// larger file parts spill to temp files.
const maxMultipartMemory = 32 << 20

// PropertyHandler handles HTTP requests for property listings and their media.
type PropertyHandler struct {
	service *service.PropertyService
	logger  *slog.Logger
}

// NewPropertyHandler creates a new property HTTP handler.
func NewPropertyHandler(svc *service.PropertyService, logger *slog.Logger) *PropertyHandler {
	return &PropertyHandler{service: svc, logger: logger}
}

// --- Request DTOs ---

// PropertyDataRequest is the JSON payload describing a property. In multipart
// submissions it arrives as the propertyData part; unknown fields are
// rejected.
type PropertyDataRequest struct {
	Title       string   `json:"title" validate:"required,min=1,max=255"`
	Description string   `json:"description" validate:"omitempty,max=5000"`
	Price       float64  `json:"price" validate:"required,gt=0"`
	Currency    string   `json:"currency" validate:"omitempty,len=3"`
	ListingType string   `json:"listing_type" validate:"required,oneof=sale rent"`
	Status      string   `json:"status" validate:"omitempty,oneof=draft available pending sold rented archived"`
	Address     string   `json:"address" validate:"omitempty,max=500"`
	City        string   `json:"city" validate:"required,min=1,max=100"`
	PostalCode  string   `json:"postal_code" validate:"omitempty,max=20"`
	Bedrooms    int      `json:"bedrooms" validate:"omitempty,gte=0,lte=50"`
	Bathrooms   int      `json:"bathrooms" validate:"omitempty,gte=0,lte=50"`
	AreaSqm     float64  `json:"area_sqm" validate:"omitempty,gt=0"`
	Amenities   []string `json:"amenities" validate:"omitempty,max=50,dive,max=100"`
}

// UpdatePropertyDataRequest relaxes the required fields for partial updates.
type UpdatePropertyDataRequest struct {
	Title       string   `json:"title" validate:"omitempty,min=1,max=255"`
	Description string   `json:"description" validate:"omitempty,max=5000"`
	Price       float64  `json:"price" validate:"omitempty,gt=0"`
	Currency    string   `json:"currency" validate:"omitempty,len=3"`
	ListingType string   `json:"listing_type" validate:"omitempty,oneof=sale rent"`
	Status      string   `json:"status" validate:"omitempty,oneof=draft available pending sold rented archived"`
	Address     string   `json:"address" validate:"omitempty,max=500"`
	City        string   `json:"city" validate:"omitempty,min=1,max=100"`
	PostalCode  string   `json:"postal_code" validate:"omitempty,max=20"`
	Bedrooms    int      `json:"bedrooms" validate:"omitempty,gte=0,lte=50"`
	Bathrooms   int      `json:"bathrooms" validate:"omitempty,gte=0,lte=50"`
	AreaSqm     float64  `json:"area_sqm" validate:"omitempty,gt=0"`
	Amenities   []string `json:"amenities" validate:"omitempty,max=50,dive,max=100"`
}

// DeleteMediaRequest identifies a media item by its public URL.
type DeleteMediaRequest struct {
	URL string `json:"url" validate:"required,url"`
}

// --- Handlers ---

// Create handles POST /api/v1/properties (plain JSON, no media).
func (h *PropertyHandler) Create(w http.ResponseWriter, r *http.Request) {
	agentID := middleware.UserIDFromContext(r.Context())

	var req PropertyDataRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	property, err := h.service.Create(r.Context(), agentID, toInput(req))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: property})
}

// CreateWithMedia handles POST /api/v1/properties/with-media. The body is
// multipart/form-data: a propertyData JSON part plus images[] and videos[]
// file parts.
func (h *PropertyHandler) CreateWithMedia(w http.ResponseWriter, r *http.Request) {
	agentID := middleware.UserIDFromContext(r.Context())

	var req PropertyDataRequest
	images, videos, cleanup, err := h.parseMultipart(r, &req)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	defer cleanup()

	property, err := h.service.CreateWithMedia(r.Context(), agentID, toInput(req), images, videos)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: property})
}

// UpdateWithMedia handles PUT /api/v1/properties/{id}/with-media.
func (h *PropertyHandler) UpdateWithMedia(w http.ResponseWriter, r *http.Request) {
	propertyID := chi.URLParam(r, "id")
	if _, ok := httputil.ParseUUID(w, propertyID); !ok {
		return
	}

	var req UpdatePropertyDataRequest
	images, videos, cleanup, err := h.parseMultipart(r, &req)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	defer cleanup()

	callerID := middleware.UserIDFromContext(r.Context())
	callerRole := middleware.RoleFromContext(r.Context())

	property, err := h.service.UpdateWithMedia(r.Context(), callerID, callerRole, propertyID, updateToInput(req), images, videos)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: property})
}

// Get handles GET /api/v1/properties/{id}
func (h *PropertyHandler) Get(w http.ResponseWriter, r *http.Request) {
	propertyID := chi.URLParam(r, "id")
	if _, ok := httputil.ParseUUID(w, propertyID); !ok {
		return
	}

	property, err := h.service.Get(r.Context(), propertyID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: property})
}

// List handles GET /api/v1/properties
func (h *PropertyHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	perPage, _ := strconv.Atoi(q.Get("per_page"))

	properties, total, err := h.service.List(r.Context(), service.ListInput{
		AgentID: q.Get("agent_id"),
		Status:  q.Get("status"),
		City:    q.Get("city"),
		Page:    page,
		PerPage: perPage,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.NewPaginatedResponse(properties, total, page, perPage))
}

// Delete handles DELETE /api/v1/properties/{id}
func (h *PropertyHandler) Delete(w http.ResponseWriter, r *http.Request) {
	propertyID := chi.URLParam(r, "id")
	if _, ok := httputil.ParseUUID(w, propertyID); !ok {
		return
	}

	callerID := middleware.UserIDFromContext(r.Context())
	callerRole := middleware.RoleFromContext(r.Context())

	if err := h.service.Delete(r.Context(), callerID, callerRole, propertyID); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// UploadImages handles POST /api/v1/properties/{id}/images (multipart,
// images[] parts only).
func (h *PropertyHandler) UploadImages(w http.ResponseWriter, r *http.Request) {
	h.uploadMedia(w, r, fieldImages, h.service.AddImages)
}

// UploadVideos handles POST /api/v1/properties/{id}/videos (multipart,
// videos[] parts only).
func (h *PropertyHandler) UploadVideos(w http.ResponseWriter, r *http.Request) {
	h.uploadMedia(w, r, fieldVideos, h.service.AddVideos)
}

func (h *PropertyHandler) uploadMedia(w http.ResponseWriter, r *http.Request, field string, add func(ctx context.Context, callerID, callerRole, propertyID string, uploads []service.MediaUpload) (*domain.Property, error)) {
	propertyID := chi.URLParam(r, "id")
	if _, ok := httputil.ParseUUID(w, propertyID); !ok {
		return
	}

	uploads, cleanup, err := h.parseMediaForm(r, field)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	defer cleanup()

	callerID := middleware.UserIDFromContext(r.Context())
	callerRole := middleware.RoleFromContext(r.Context())

	property, err := add(r.Context(), callerID, callerRole, propertyID, uploads)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: property})
}

// VideoInfo handles GET /api/v1/properties/{id}/videos/info?url=
func (h *PropertyHandler) VideoInfo(w http.ResponseWriter, r *http.Request) {
	propertyID := chi.URLParam(r, "id")
	if _, ok := httputil.ParseUUID(w, propertyID); !ok {
		return
	}

	url := r.URL.Query().Get("url")
	if url == "" {
		httputil.WriteError(w, r, apperrors.InvalidInput("url query parameter is required"), h.logger)
		return
	}

	video, err := h.service.VideoInfo(r.Context(), propertyID, url)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: video})
}

// DeleteImage handles DELETE /api/v1/properties/{id}/images
func (h *PropertyHandler) DeleteImage(w http.ResponseWriter, r *http.Request) {
	h.deleteMedia(w, r, h.service.DeleteImage)
}

// DeleteVideo handles DELETE /api/v1/properties/{id}/videos
func (h *PropertyHandler) DeleteVideo(w http.ResponseWriter, r *http.Request) {
	h.deleteMedia(w, r, h.service.DeleteVideo)
}

func (h *PropertyHandler) deleteMedia(w http.ResponseWriter, r *http.Request, del func(ctx context.Context, callerID, callerRole, propertyID, url string) error) {
	propertyID := chi.URLParam(r, "id")
	if _, ok := httputil.ParseUUID(w, propertyID); !ok {
		return
	}

	var req DeleteMediaRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	callerID := middleware.UserIDFromContext(r.Context())
	callerRole := middleware.RoleFromContext(r.Context())

	if err := del(r.Context(), callerID, callerRole, propertyID, req.URL); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// --- Multipart parsing ---

// parseMultipart decodes the propertyData part into dst and collects the file
// parts. The returned cleanup releases the parsed form's temp files and must
// be called after the uploads have been consumed.
func (h *PropertyHandler) parseMultipart(r *http.Request, dst any) (images, videos []service.MediaUpload, cleanup func(), err error) {
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		return nil, nil, nil, apperrors.InvalidInput("invalid multipart form: " + err.Error())
	}
	form := r.MultipartForm
	cleanup = func() { _ = form.RemoveAll() }

	values := form.Value[fieldPropertyData]
	if len(values) != 1 {
		cleanup()
		return nil, nil, nil, apperrors.InvalidInput(fmt.Sprintf("exactly one %s part is required", fieldPropertyData))
	}

	if err := validator.DecodeStrict([]byte(values[0]), dst); err != nil {
		cleanup()
		return nil, nil, nil, apperrors.InvalidInput("invalid propertyData: " + err.Error())
	}
	if err := validator.Validate(dst); err != nil {
		cleanup()
		return nil, nil, nil, apperrors.InvalidInput(err.Error())
	}

	// Any form field beyond the known three is rejected rather than ignored.
	for name := range form.Value {
		if name != fieldPropertyData {
			cleanup()
			return nil, nil, nil, apperrors.InvalidInput(fmt.Sprintf("unexpected form field %q", name))
		}
	}
	for name := range form.File {
		if name != fieldImages && name != fieldVideos {
			cleanup()
			return nil, nil, nil, apperrors.InvalidInput(fmt.Sprintf("unexpected file field %q", name))
		}
	}

	images, err = openUploads(form.File[fieldImages])
	if err != nil {
		cleanup()
		return nil, nil, nil, err
	}
	videos, err = openUploads(form.File[fieldVideos])
	if err != nil {
		cleanup()
		return nil, nil, nil, err
	}

	return images, videos, cleanup, nil
}

// parseMediaForm collects the file parts of a media-only multipart form. Any
// value field or file field other than the expected one is rejected.
func (h *PropertyHandler) parseMediaForm(r *http.Request, field string) (uploads []service.MediaUpload, cleanup func(), err error) {
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		return nil, nil, apperrors.InvalidInput("invalid multipart form: " + err.Error())
	}
	form := r.MultipartForm
	cleanup = func() { _ = form.RemoveAll() }

	for name := range form.Value {
		cleanup()
		return nil, nil, apperrors.InvalidInput(fmt.Sprintf("unexpected form field %q", name))
	}
	for name := range form.File {
		if name != field {
			cleanup()
			return nil, nil, apperrors.InvalidInput(fmt.Sprintf("unexpected file field %q", name))
		}
	}

	uploads, err = openUploads(form.File[field])
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return uploads, cleanup, nil
}

// openUploads converts multipart file headers into media uploads.
func openUploads(headers []*multipart.FileHeader) ([]service.MediaUpload, error) {
	uploads := make([]service.MediaUpload, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			return nil, apperrors.InvalidInput("unreadable file part: " + fh.Filename)
		}
		uploads = append(uploads, service.MediaUpload{
			FileName:    fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Size:        fh.Size,
			Data:        f,
		})
	}
	return uploads, nil
}

// --- Helpers ---

func toInput(req PropertyDataRequest) service.PropertyInput {
	return service.PropertyInput{
		Title:       req.Title,
		Description: req.Description,
		Price:       req.Price,
		Currency:    req.Currency,
		ListingType: req.ListingType,
		Status:      req.Status,
		Address:     req.Address,
		City:        req.City,
		PostalCode:  req.PostalCode,
		Bedrooms:    req.Bedrooms,
		Bathrooms:   req.Bathrooms,
		AreaSqm:     req.AreaSqm,
		Amenities:   req.Amenities,
	}
}

func updateToInput(req UpdatePropertyDataRequest) service.PropertyInput {
	return service.PropertyInput{
		Title:       req.Title,
		Description: req.Description,
		Price:       req.Price,
		Currency:    req.Currency,
		ListingType: req.ListingType,
		Status:      req.Status,
		Address:     req.Address,
		City:        req.City,
		PostalCode:  req.PostalCode,
		Bedrooms:    req.Bedrooms,
		Bathrooms:   req.Bathrooms,
		AreaSqm:     req.AreaSqm,
		Amenities:   req.Amenities,
	}
}
