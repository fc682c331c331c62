package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"time"
)

// Multipart field names the property endpoints expect.
const (
	fieldPropertyData = "propertyData"
	fieldImages       = "images[]"
	fieldVideos       = "videos[]"
)

// PropertyData describes a listing for creation or update. Zero-valued
// optional fields are omitted so partial updates leave them untouched.
type PropertyData struct {
	Title       string   `json:"title,omitempty"`
	Description string   `json:"description,omitempty"`
	Price       float64  `json:"price,omitempty"`
	Currency    string   `json:"currency,omitempty"`
	ListingType string   `json:"listing_type,omitempty"`
	Status      string   `json:"status,omitempty"`
	Address     string   `json:"address,omitempty"`
	City        string   `json:"city,omitempty"`
	PostalCode  string   `json:"postal_code,omitempty"`
	Bedrooms    int      `json:"bedrooms,omitempty"`
	Bathrooms   int      `json:"bathrooms,omitempty"`
	AreaSqm     float64  `json:"area_sqm,omitempty"`
	Amenities   []string `json:"amenities,omitempty"`
}

// PropertyImage is an image attached to a listing.
type PropertyImage struct {
	ID        string `json:"id"`
	FileName  string `json:"file_name"`
	URL       string `json:"url"`
	Size      int64  `json:"size"`
	SortOrder int    `json:"sort_order"`
}

// PropertyVideo is a video attached to a listing, with server-derived
// duration metadata.
type PropertyVideo struct {
	ID        string  `json:"id"`
	FileName  string  `json:"file_name"`
	URL       string  `json:"url"`
	Size      int64   `json:"size"`
	Duration  float64 `json:"duration_seconds"`
	SortOrder int     `json:"sort_order"`
}

// Property is a listing as the API returns it.
type Property struct {
	ID          string          `json:"id"`
	AgentID     string          `json:"agent_id"`
	Title       string          `json:"title"`
	Description string          `json:"description,omitempty"`
	Price       float64         `json:"price"`
	Currency    string          `json:"currency"`
	ListingType string          `json:"listing_type"`
	Status      string          `json:"status"`
	Address     string          `json:"address"`
	City        string          `json:"city"`
	PostalCode  string          `json:"postal_code,omitempty"`
	Bedrooms    int             `json:"bedrooms"`
	Bathrooms   int             `json:"bathrooms"`
	AreaSqm     float64         `json:"area_sqm"`
	Amenities   []string        `json:"amenities,omitempty"`
	Images      []PropertyImage `json:"property_images"`
	Videos      []PropertyVideo `json:"property_videos"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// FileUpload is one media file in a multipart submission.
type FileUpload struct {
	// FileName is the client-side name, kept as part of the stored key.
	FileName string
	// ContentType must be one of the server's allowed media types.
	ContentType string
	// Size, when known, lets the client reject oversized files before
	// uploading. Zero skips the check; the server stays authoritative.
	Size int64
	// Data supplies the file bytes. It is read exactly once.
	Data io.Reader
}

// Soft size guards applied before submission, matching the server's limits.
const (
	maxImageUploadSize = 10 << 20
	maxVideoUploadSize = 200 << 20
)

func checkUploadSizes(images, videos []FileUpload) error {
	for _, f := range images {
		if f.Size > maxImageUploadSize {
			return fmt.Errorf("image %q exceeds the %d byte limit", f.FileName, int64(maxImageUploadSize))
		}
	}
	for _, f := range videos {
		if f.Size > maxVideoUploadSize {
			return fmt.Errorf("video %q exceeds the %d byte limit", f.FileName, int64(maxVideoUploadSize))
		}
	}
	return nil
}

// PropertyList is a page of listings.
type PropertyList struct {
	Data       []Property `json:"data"`
	TotalCount int        `json:"total_count"`
	Page       int        `json:"page"`
	PerPage    int        `json:"per_page"`
	TotalPages int        `json:"total_pages"`
	HasNext    bool       `json:"has_next"`
}

// ListPropertiesInput holds the optional list filters.
type ListPropertiesInput struct {
	City    string
	AgentID string
	Status  string
	Page    int
	PerPage int
}

// CreateProperty creates a listing without media.
func (c *Client) CreateProperty(ctx context.Context, data PropertyData) (*Property, error) {
	var property Property
	if err := c.postJSON(ctx, "/properties", data, &property); err != nil {
		return nil, err
	}
	return &property, nil
}

// CreatePropertyWithMedia creates a listing and uploads its media in a single
// multipart request: one propertyData JSON part plus images[] and videos[]
// file parts. The server derives video duration itself; callers only supply
// bytes. Creation is atomic server-side: on any failure nothing is persisted.
func (c *Client) CreatePropertyWithMedia(ctx context.Context, data PropertyData, images, videos []FileUpload) (*Property, error) {
	req, err := c.newMultipartRequest(ctx, http.MethodPost, "/properties/with-media", data, images, videos)
	if err != nil {
		return nil, err
	}
	var property Property
	if err := c.do(ctx, req, &property); err != nil {
		return nil, err
	}
	return &property, nil
}

// UpdatePropertyWithMedia applies a partial update and appends new media.
func (c *Client) UpdatePropertyWithMedia(ctx context.Context, propertyID string, data PropertyData, images, videos []FileUpload) (*Property, error) {
	req, err := c.newMultipartRequest(ctx, http.MethodPut, "/properties/"+url.PathEscape(propertyID)+"/with-media", data, images, videos)
	if err != nil {
		return nil, err
	}
	var property Property
	if err := c.do(ctx, req, &property); err != nil {
		return nil, err
	}
	return &property, nil
}

// GetProperty fetches a single listing with its media.
func (c *Client) GetProperty(ctx context.Context, propertyID string) (*Property, error) {
	var property Property
	if err := c.getJSON(ctx, "/properties/"+url.PathEscape(propertyID), &property); err != nil {
		return nil, err
	}
	return &property, nil
}

// ListProperties fetches a filtered page of listings.
func (c *Client) ListProperties(ctx context.Context, input ListPropertiesInput) (*PropertyList, error) {
	query := url.Values{}
	if input.City != "" {
		query.Set("city", input.City)
	}
	if input.AgentID != "" {
		query.Set("agent_id", input.AgentID)
	}
	if input.Status != "" {
		query.Set("status", input.Status)
	}
	if input.Page > 0 {
		query.Set("page", strconv.Itoa(input.Page))
	}
	if input.PerPage > 0 {
		query.Set("per_page", strconv.Itoa(input.PerPage))
	}

	path := "/properties"
	if len(query) > 0 {
		path += "?" + query.Encode()
	}

	req, err := c.newJSONRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.send(ctx, req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, parseResponseError(resp)
	}

	// The list endpoint returns the pagination envelope directly.
	var list PropertyList
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return nil, fmt.Errorf("decode property list: %w", err)
	}
	return &list, nil
}

// DeleteProperty removes a listing and its stored media.
func (c *Client) DeleteProperty(ctx context.Context, propertyID string) error {
	req, err := c.newJSONRequest(ctx, http.MethodDelete, "/properties/"+url.PathEscape(propertyID), nil)
	if err != nil {
		return err
	}
	return c.do(ctx, req, nil)
}

// DeletePropertyImage removes one image, identified by its public URL.
func (c *Client) DeletePropertyImage(ctx context.Context, propertyID, mediaURL string) error {
	return c.deleteMedia(ctx, propertyID, "images", mediaURL)
}

// DeletePropertyVideo removes one video, identified by its public URL.
func (c *Client) DeletePropertyVideo(ctx context.Context, propertyID, mediaURL string) error {
	return c.deleteMedia(ctx, propertyID, "videos", mediaURL)
}

func (c *Client) deleteMedia(ctx context.Context, propertyID, kind, mediaURL string) error {
	path := "/properties/" + url.PathEscape(propertyID) + "/" + kind
	req, err := c.newJSONRequest(ctx, http.MethodDelete, path, map[string]string{"url": mediaURL})
	if err != nil {
		return err
	}
	return c.do(ctx, req, nil)
}

// newMultipartRequest assembles the mixed JSON+files body. The whole body is
// buffered in memory so the 401-refresh path can replay it.
func (c *Client) newMultipartRequest(ctx context.Context, method, path string, data PropertyData, images, videos []FileUpload) (*http.Request, error) {
	if err := checkUploadSizes(images, videos); err != nil {
		return nil, err
	}

	payload, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encode property data: %w", err)
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	jsonHeader := textproto.MIMEHeader{}
	jsonHeader.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q`, fieldPropertyData))
	jsonHeader.Set("Content-Type", "application/json")
	part, err := writer.CreatePart(jsonHeader)
	if err != nil {
		return nil, fmt.Errorf("create property data part: %w", err)
	}
	if _, err := part.Write(payload); err != nil {
		return nil, fmt.Errorf("write property data part: %w", err)
	}

	if err := writeFileParts(writer, fieldImages, images); err != nil {
		return nil, err
	}
	if err := writeFileParts(writer, fieldVideos, videos); err != nil {
		return nil, err
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("finalize multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path), bytes.NewReader(buf.Bytes()))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Accept", "application/json")
	return req, nil
}

// newMediaOnlyRequest builds a multipart body containing only file parts, for
// the append-media endpoints.
func (c *Client) newMediaOnlyRequest(ctx context.Context, path, field string, files []FileUpload) (*http.Request, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	if err := writeFileParts(writer, field, files); err != nil {
		return nil, err
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("finalize multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(path), bytes.NewReader(buf.Bytes()))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Accept", "application/json")
	return req, nil
}

// UploadPropertyImages appends images to an existing listing.
func (c *Client) UploadPropertyImages(ctx context.Context, propertyID string, images []FileUpload) (*Property, error) {
	if err := checkUploadSizes(images, nil); err != nil {
		return nil, err
	}
	req, err := c.newMediaOnlyRequest(ctx, "/properties/"+url.PathEscape(propertyID)+"/images", fieldImages, images)
	if err != nil {
		return nil, err
	}
	var property Property
	if err := c.do(ctx, req, &property); err != nil {
		return nil, err
	}
	return &property, nil
}

// UploadPropertyVideos appends videos to an existing listing.
func (c *Client) UploadPropertyVideos(ctx context.Context, propertyID string, videos []FileUpload) (*Property, error) {
	if err := checkUploadSizes(nil, videos); err != nil {
		return nil, err
	}
	req, err := c.newMediaOnlyRequest(ctx, "/properties/"+url.PathEscape(propertyID)+"/videos", fieldVideos, videos)
	if err != nil {
		return nil, err
	}
	var property Property
	if err := c.do(ctx, req, &property); err != nil {
		return nil, err
	}
	return &property, nil
}

// PropertyVideoInfo fetches the stored metadata of one video by its URL.
func (c *Client) PropertyVideoInfo(ctx context.Context, propertyID, mediaURL string) (*PropertyVideo, error) {
	path := "/properties/" + url.PathEscape(propertyID) + "/videos/info?url=" + url.QueryEscape(mediaURL)
	var video PropertyVideo
	if err := c.getJSON(ctx, path, &video); err != nil {
		return nil, err
	}
	return &video, nil
}

func writeFileParts(writer *multipart.Writer, field string, files []FileUpload) error {
	for _, file := range files {
		header := textproto.MIMEHeader{}
		header.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, field, file.FileName))
		if file.ContentType != "" {
			header.Set("Content-Type", file.ContentType)
		}
		part, err := writer.CreatePart(header)
		if err != nil {
			return fmt.Errorf("create %s part: %w", field, err)
		}
		if _, err := io.Copy(part, file.Data); err != nil {
			return fmt.Errorf("write %s %s: %w", field, file.FileName, err)
		}
	}
	return nil
}
