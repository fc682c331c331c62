package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/homevista/brokerage/internal/domain"
	"github.com/homevista/brokerage/internal/repository"
	"github.com/homevista/brokerage/internal/storage"
	apperrors "github.com/homevista/brokerage/pkg/errors"
)

// PropertyEventPublisher publishes property lifecycle events.
type PropertyEventPublisher interface {
	PublishPropertyCreated(ctx context.Context, property *domain.Property) error
	PublishPropertyUpdated(ctx context.Context, property *domain.Property) error
	PublishPropertyDeleted(ctx context.Context, id string) error
}

// PropertyService implements property listing business logic, including the
// multi-step create-with-media flow.
type PropertyService struct {
	propertyRepo repository.PropertyRepository
	mediaRepo    repository.MediaRepository
	userRepo     repository.UserRepository
	store        storage.Storage
	publisher    PropertyEventPublisher
	logger       *slog.Logger

	now func() time.Time
}

// NewPropertyService creates a new property service.
func NewPropertyService(
	propertyRepo repository.PropertyRepository,
	mediaRepo repository.MediaRepository,
	userRepo repository.UserRepository,
	store storage.Storage,
	publisher PropertyEventPublisher,
	logger *slog.Logger,
) *PropertyService {
	return &PropertyService{
		propertyRepo: propertyRepo,
		mediaRepo:    mediaRepo,
		userRepo:     userRepo,
		store:        store,
		publisher:    publisher,
		logger:       logger,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// --- Input types ---

// PropertyInput holds the descriptive fields of a property listing.
type PropertyInput struct {
	Title       string
	Description string
	Price       float64
	Currency    string
	ListingType string
	Status      string
	Address     string
	City        string
	PostalCode  string
	Bedrooms    int
	Bathrooms   int
	AreaSqm     float64
	Amenities   []string
}

// MediaUpload is one file submitted alongside a property.
type MediaUpload struct {
	FileName    string
	ContentType string
	Size        int64
	Data        io.Reader
}

// ListInput narrows and pages property listings.
type ListInput struct {
	AgentID string
	Status  string
	City    string
	Page    int
	PerPage int
}

// --- Operations ---

// Create inserts a plain property listing without media.
func (s *PropertyService) Create(ctx context.Context, agentID string, input PropertyInput) (*domain.Property, error) {
	property, err := s.buildProperty(ctx, agentID, input)
	if err != nil {
		return nil, err
	}

	if err := s.propertyRepo.Create(ctx, property); err != nil {
		return nil, fmt.Errorf("create property: %w", err)
	}

	s.publishCreated(ctx, property)

	s.logger.InfoContext(ctx, "property created",
		slog.String("property_id", property.ID),
		slog.String("agent_id", agentID),
	)

	return property, nil
}

// CreateWithMedia creates a property and links its uploaded images and videos
// in one flow. The property row is created first; if any later step fails,
// the row and any files already uploaded are removed before the error is
// returned, so a failed call leaves nothing behind.
func (s *PropertyService) CreateWithMedia(ctx context.Context, agentID string, input PropertyInput, images, videos []MediaUpload) (*domain.Property, error) {
	if err := validateMedia(images, videos); err != nil {
		return nil, err
	}

	property, err := s.buildProperty(ctx, agentID, input)
	if err != nil {
		return nil, err
	}

	if err := s.propertyRepo.Create(ctx, property); err != nil {
		return nil, fmt.Errorf("create property: %w", err)
	}

	var uploadedKeys []string
	undo := func(cause error) {
		s.compensateCreate(ctx, property.ID, uploadedKeys, cause)
	}

	for i, img := range images {
		key, err := s.linkImage(ctx, property.ID, i, img)
		if key != "" {
			uploadedKeys = append(uploadedKeys, key)
		}
		if err != nil {
			undo(err)
			return nil, err
		}
	}

	for i, vid := range videos {
		key, err := s.linkVideo(ctx, property.ID, i, vid)
		if key != "" {
			uploadedKeys = append(uploadedKeys, key)
		}
		if err != nil {
			undo(err)
			return nil, err
		}
	}

	// Re-fetch so the caller sees the full aggregate with media rows.
	created, err := s.propertyRepo.GetByID(ctx, property.ID)
	if err != nil {
		undo(err)
		return nil, fmt.Errorf("fetch created property: %w", err)
	}

	s.publishCreated(ctx, created)

	s.logger.InfoContext(ctx, "property created with media",
		slog.String("property_id", created.ID),
		slog.String("agent_id", agentID),
		slog.Int("images", len(images)),
		slog.Int("videos", len(videos)),
	)

	return created, nil
}

// UpdateWithMedia updates a property's fields and appends any newly uploaded
// media. The property must already exist; a missing ID fails before any file
// is touched.
func (s *PropertyService) UpdateWithMedia(ctx context.Context, callerID, callerRole, propertyID string, input PropertyInput, images, videos []MediaUpload) (*domain.Property, error) {
	if err := validateMedia(images, videos); err != nil {
		return nil, err
	}

	existing, err := s.propertyRepo.GetByID(ctx, propertyID)
	if err != nil {
		return nil, err
	}

	if err := authorizeOwner(existing, callerID, callerRole); err != nil {
		return nil, err
	}

	applyInput(existing, input)
	existing.UpdatedAt = s.now()

	if err := s.propertyRepo.Update(ctx, existing); err != nil {
		return nil, fmt.Errorf("update property: %w", err)
	}

	offset := len(existing.Images)
	for i, img := range images {
		if _, err := s.linkImage(ctx, propertyID, offset+i, img); err != nil {
			return nil, err
		}
	}

	offset = len(existing.Videos)
	for i, vid := range videos {
		if _, err := s.linkVideo(ctx, propertyID, offset+i, vid); err != nil {
			return nil, err
		}
	}

	updated, err := s.propertyRepo.GetByID(ctx, propertyID)
	if err != nil {
		return nil, fmt.Errorf("fetch updated property: %w", err)
	}

	if err := s.publisher.PublishPropertyUpdated(ctx, updated); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish property.updated event",
			slog.String("property_id", updated.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "property updated",
		slog.String("property_id", updated.ID),
	)

	return updated, nil
}

// AddImages appends images to an existing property without touching its
// fields. Uploads are sorted after the property's current images.
func (s *PropertyService) AddImages(ctx context.Context, callerID, callerRole, propertyID string, images []MediaUpload) (*domain.Property, error) {
	return s.addMedia(ctx, callerID, callerRole, propertyID, images, nil)
}

// AddVideos appends videos to an existing property, probing duration and size
// from the stored files.
func (s *PropertyService) AddVideos(ctx context.Context, callerID, callerRole, propertyID string, videos []MediaUpload) (*domain.Property, error) {
	return s.addMedia(ctx, callerID, callerRole, propertyID, nil, videos)
}

func (s *PropertyService) addMedia(ctx context.Context, callerID, callerRole, propertyID string, images, videos []MediaUpload) (*domain.Property, error) {
	if len(images) == 0 && len(videos) == 0 {
		return nil, apperrors.InvalidInput("no media files provided")
	}
	if err := validateMedia(images, videos); err != nil {
		return nil, err
	}

	existing, err := s.propertyRepo.GetByID(ctx, propertyID)
	if err != nil {
		return nil, err
	}
	if err := authorizeOwner(existing, callerID, callerRole); err != nil {
		return nil, err
	}

	offset := len(existing.Images)
	for i, img := range images {
		if _, err := s.linkImage(ctx, propertyID, offset+i, img); err != nil {
			return nil, err
		}
	}

	offset = len(existing.Videos)
	for i, vid := range videos {
		if _, err := s.linkVideo(ctx, propertyID, offset+i, vid); err != nil {
			return nil, err
		}
	}

	updated, err := s.propertyRepo.GetByID(ctx, propertyID)
	if err != nil {
		return nil, fmt.Errorf("fetch updated property: %w", err)
	}

	if err := s.publisher.PublishPropertyUpdated(ctx, updated); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish property.updated event",
			slog.String("property_id", updated.ID),
			slog.String("error", err.Error()),
		)
	}

	return updated, nil
}

// VideoInfo returns the stored metadata for one of a property's videos,
// identified by its public URL. Duration and size were derived at link time.
func (s *PropertyService) VideoInfo(ctx context.Context, propertyID, url string) (*domain.PropertyVideo, error) {
	property, err := s.propertyRepo.GetByID(ctx, propertyID)
	if err != nil {
		return nil, err
	}
	for i := range property.Videos {
		if property.Videos[i].URL == url {
			return &property.Videos[i], nil
		}
	}
	return nil, apperrors.NotFound("video", url)
}

// Get retrieves a property aggregate by ID.
func (s *PropertyService) Get(ctx context.Context, id string) (*domain.Property, error) {
	property, err := s.propertyRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return property, nil
}

// List returns a page of properties matching the filter.
func (s *PropertyService) List(ctx context.Context, input ListInput) ([]domain.Property, int, error) {
	if input.Page < 1 {
		input.Page = 1
	}
	if input.PerPage < 1 || input.PerPage > 100 {
		input.PerPage = 20
	}

	if input.Status != "" && !domain.IsValidPropertyStatus(input.Status) {
		return nil, 0, apperrors.InvalidInput(fmt.Sprintf("invalid status %q", input.Status))
	}

	filter := repository.PropertyFilter{
		AgentID: input.AgentID,
		Status:  input.Status,
		City:    input.City,
	}

	properties, total, err := s.propertyRepo.List(ctx, filter, input.Page, input.PerPage)
	if err != nil {
		return nil, 0, fmt.Errorf("list properties: %w", err)
	}

	return properties, total, nil
}

// Delete removes a property, its media rows, and its stored files.
func (s *PropertyService) Delete(ctx context.Context, callerID, callerRole, propertyID string) error {
	property, err := s.propertyRepo.GetByID(ctx, propertyID)
	if err != nil {
		return err
	}

	if err := authorizeOwner(property, callerID, callerRole); err != nil {
		return err
	}

	if err := s.propertyRepo.Delete(ctx, propertyID); err != nil {
		return fmt.Errorf("delete property: %w", err)
	}

	// Stored files are removed best-effort after the rows are gone.
	for _, img := range property.Images {
		s.removeStored(ctx, mediaKey(propertyID, img.FileName, img.ID))
	}
	for _, vid := range property.Videos {
		s.removeStored(ctx, mediaKey(propertyID, vid.FileName, vid.ID))
	}

	if err := s.publisher.PublishPropertyDeleted(ctx, propertyID); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish property.deleted event",
			slog.String("property_id", propertyID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "property deleted",
		slog.String("property_id", propertyID),
	)

	return nil
}

// DeleteImage removes a single image from a property by its URL.
func (s *PropertyService) DeleteImage(ctx context.Context, callerID, callerRole, propertyID, url string) error {
	property, err := s.propertyRepo.GetByID(ctx, propertyID)
	if err != nil {
		return err
	}
	if err := authorizeOwner(property, callerID, callerRole); err != nil {
		return err
	}

	img, err := s.mediaRepo.DeleteImageByURL(ctx, propertyID, url)
	if err != nil {
		return err
	}

	s.removeStored(ctx, mediaKey(propertyID, img.FileName, img.ID))
	return nil
}

// DeleteVideo removes a single video from a property by its URL.
func (s *PropertyService) DeleteVideo(ctx context.Context, callerID, callerRole, propertyID, url string) error {
	property, err := s.propertyRepo.GetByID(ctx, propertyID)
	if err != nil {
		return err
	}
	if err := authorizeOwner(property, callerID, callerRole); err != nil {
		return err
	}

	vid, err := s.mediaRepo.DeleteVideoByURL(ctx, propertyID, url)
	if err != nil {
		return err
	}

	s.removeStored(ctx, mediaKey(propertyID, vid.FileName, vid.ID))
	return nil
}

// --- Steps ---

// buildProperty validates the input and the owning agent, returning a new
// unsaved property.
func (s *PropertyService) buildProperty(ctx context.Context, agentID string, input PropertyInput) (*domain.Property, error) {
	if input.Title == "" {
		return nil, apperrors.InvalidInput("title is required")
	}
	if input.Price <= 0 {
		return nil, apperrors.InvalidInput("price must be positive")
	}
	if input.ListingType != domain.ListingTypeSale && input.ListingType != domain.ListingTypeRent {
		return nil, apperrors.InvalidInput(fmt.Sprintf("invalid listing type %q", input.ListingType))
	}
	if input.City == "" {
		return nil, apperrors.InvalidInput("city is required")
	}

	status := input.Status
	if status == "" {
		status = domain.PropertyStatusDraft
	}
	if !domain.IsValidPropertyStatus(status) {
		return nil, apperrors.InvalidInput(fmt.Sprintf("invalid status %q", status))
	}

	agent, err := s.userRepo.GetByID(ctx, agentID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.InvalidInput("agent does not exist")
		}
		return nil, fmt.Errorf("verify agent: %w", err)
	}
	if agent.Role != domain.RoleAgent && agent.Role != domain.RoleAdmin && agent.Role != domain.RoleSuperAdmin {
		return nil, apperrors.Forbidden("only agents can own property listings")
	}

	currency := input.Currency
	if currency == "" {
		currency = "EUR"
	}

	now := s.now()
	return &domain.Property{
		ID:          uuid.New().String(),
		AgentID:     agentID,
		Title:       input.Title,
		Description: input.Description,
		Price:       input.Price,
		Currency:    currency,
		ListingType: input.ListingType,
		Status:      status,
		Address:     input.Address,
		City:        input.City,
		PostalCode:  input.PostalCode,
		Bedrooms:    input.Bedrooms,
		Bathrooms:   input.Bathrooms,
		AreaSqm:     input.AreaSqm,
		Amenities:   input.Amenities,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// linkImage uploads one image and inserts its media row. Returns the storage
// key for compensation.
func (s *PropertyService) linkImage(ctx context.Context, propertyID string, sortOrder int, img MediaUpload) (string, error) {
	id := uuid.New().String()
	key := mediaKey(propertyID, img.FileName, id)

	result, err := s.store.Upload(ctx, &storage.UploadInput{
		Key:         key,
		ContentType: img.ContentType,
		Size:        img.Size,
		Data:        img.Data,
	})
	if err != nil {
		return "", fmt.Errorf("upload image %q: %w", img.FileName, err)
	}

	row := &domain.PropertyImage{
		ID:         id,
		PropertyID: propertyID,
		FileName:   img.FileName,
		URL:        result.URL,
		Size:       img.Size,
		SortOrder:  sortOrder,
		CreatedAt:  s.now(),
	}
	if err := s.mediaRepo.CreateImage(ctx, row); err != nil {
		return key, fmt.Errorf("link image %q: %w", img.FileName, err)
	}

	return key, nil
}

// linkVideo uploads one video, probes its metadata, and inserts its media row.
func (s *PropertyService) linkVideo(ctx context.Context, propertyID string, sortOrder int, vid MediaUpload) (string, error) {
	id := uuid.New().String()
	key := mediaKey(propertyID, vid.FileName, id)

	result, err := s.store.Upload(ctx, &storage.UploadInput{
		Key:         key,
		ContentType: vid.ContentType,
		Size:        vid.Size,
		Data:        vid.Data,
	})
	if err != nil {
		return "", fmt.Errorf("upload video %q: %w", vid.FileName, err)
	}

	// Duration and size come from the stored file, not from the client.
	meta, err := s.store.VideoInfo(ctx, key)
	if err != nil {
		return key, fmt.Errorf("probe video %q: %w", vid.FileName, err)
	}

	row := &domain.PropertyVideo{
		ID:         id,
		PropertyID: propertyID,
		FileName:   vid.FileName,
		URL:        result.URL,
		Size:       meta.Size,
		Duration:   meta.Duration,
		SortOrder:  sortOrder,
		CreatedAt:  s.now(),
	}
	if err := s.mediaRepo.CreateVideo(ctx, row); err != nil {
		return key, fmt.Errorf("link video %q: %w", vid.FileName, err)
	}

	return key, nil
}

// compensateCreate rolls back a partially created property: the row (which
// cascades to media rows) and any files already in storage.
func (s *PropertyService) compensateCreate(ctx context.Context, propertyID string, uploadedKeys []string, cause error) {
	s.logger.WarnContext(ctx, "rolling back property creation",
		slog.String("property_id", propertyID),
		slog.String("cause", cause.Error()),
	)

	if err := s.propertyRepo.Delete(ctx, propertyID); err != nil {
		s.logger.ErrorContext(ctx, "compensation failed: delete property row",
			slog.String("property_id", propertyID),
			slog.String("error", err.Error()),
		)
	}

	for _, key := range uploadedKeys {
		s.removeStored(ctx, key)
	}
}

func (s *PropertyService) removeStored(ctx context.Context, key string) {
	if err := s.store.Delete(ctx, key); err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		s.logger.ErrorContext(ctx, "failed to delete stored file",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
	}
}

func (s *PropertyService) publishCreated(ctx context.Context, property *domain.Property) {
	if err := s.publisher.PublishPropertyCreated(ctx, property); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish property.created event",
			slog.String("property_id", property.ID),
			slog.String("error", err.Error()),
		)
	}
}

// --- Helpers ---

// authorizeOwner allows the owning agent and admin roles.
func authorizeOwner(p *domain.Property, callerID, callerRole string) error {
	if p.AgentID == callerID {
		return nil
	}
	if callerRole == domain.RoleAdmin || callerRole == domain.RoleSuperAdmin {
		return nil
	}
	return apperrors.Forbidden("not the owner of this property")
}

// applyInput copies the descriptive fields onto an existing property.
func applyInput(p *domain.Property, input PropertyInput) {
	if input.Title != "" {
		p.Title = input.Title
	}
	if input.Description != "" {
		p.Description = input.Description
	}
	if input.Price > 0 {
		p.Price = input.Price
	}
	if input.Currency != "" {
		p.Currency = input.Currency
	}
	if input.ListingType != "" {
		p.ListingType = input.ListingType
	}
	if input.Status != "" {
		p.Status = input.Status
	}
	if input.Address != "" {
		p.Address = input.Address
	}
	if input.City != "" {
		p.City = input.City
	}
	if input.PostalCode != "" {
		p.PostalCode = input.PostalCode
	}
	if input.Bedrooms > 0 {
		p.Bedrooms = input.Bedrooms
	}
	if input.Bathrooms > 0 {
		p.Bathrooms = input.Bathrooms
	}
	if input.AreaSqm > 0 {
		p.AreaSqm = input.AreaSqm
	}
	if input.Amenities != nil {
		p.Amenities = input.Amenities
	}
}

// validateMedia checks content types and sizes before any upload starts.
func validateMedia(images, videos []MediaUpload) error {
	for _, img := range images {
		if !domain.AllowedImageTypes[img.ContentType] {
			return apperrors.InvalidInput(fmt.Sprintf("unsupported image type %q", img.ContentType))
		}
		if img.Size > domain.MaxImageSize {
			return apperrors.InvalidInput(fmt.Sprintf("image %q exceeds the %d byte limit", img.FileName, domain.MaxImageSize))
		}
	}
	for _, vid := range videos {
		if !domain.AllowedVideoTypes[vid.ContentType] {
			return apperrors.InvalidInput(fmt.Sprintf("unsupported video type %q", vid.ContentType))
		}
		if vid.Size > domain.MaxVideoSize {
			return apperrors.InvalidInput(fmt.Sprintf("video %q exceeds the %d byte limit", vid.FileName, domain.MaxVideoSize))
		}
	}
	return nil
}

// mediaKey builds the storage key for a media file.
func mediaKey(propertyID, fileName, mediaID string) string {
	return fmt.Sprintf("properties/%s/%s-%s", propertyID, mediaID, fileName)
}
