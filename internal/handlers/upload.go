package handlers

import (
	"io"
	"mime"
	"net/http"

	"qrstudio/internal/dto"
	"qrstudio/internal/logging"
	"qrstudio/internal/upload"

	"github.com/gin-gonic/gin"
)

type UploadHandler struct {
	svc *upload.Service
	log logging.Logger
}

func NewUploadHandler(svc *upload.Service, log logging.Logger) *UploadHandler {
	return &UploadHandler{svc: svc, log: log}
}

func (h *UploadHandler) incoming(c *gin.Context, field string) (upload.Incoming, io.Closer, error) {
	fh, err := c.FormFile(field)
	if err != nil {
		return upload.Incoming{}, nil, upload.ErrNoFile
	}
	f, err := fh.Open()
	if err != nil {
		return upload.Incoming{}, nil, err
	}
	return upload.Incoming{
		Name:        fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Size:        fh.Size,
		Body:        f,
	}, f, nil
}

// UploadFile godoc
// @Summary      Upload a file for a file QR code
// @Tags         upload
// @Accept       mpfd
// @Produce      json
// @Security     CookieAuth
// @Param        file  formData  file  true  "PDF or image, up to 10 MB"
// @Success      200   {object}  dto.UploadFileResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      401   {object}  dto.ErrorResponse
// @Router       /upload [post]
func (h *UploadHandler) UploadFile(c *gin.Context) {
	in, closer, err := h.incoming(c, "file")
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	defer closer.Close()

	id, err := h.svc.SaveFile(c.Request.Context(), in)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, dto.UploadFileResponse{FileID: id})
}

// UploadProfile godoc
// @Summary      Upload a vCard profile photo
// @Tags         upload
// @Accept       mpfd
// @Produce      json
// @Security     CookieAuth
// @Param        photo  formData  file  true  "Image, up to 5 MB"
// @Success      200    {object}  dto.UploadPhotoResponse
// @Failure      400    {object}  dto.ErrorResponse
// @Failure      401    {object}  dto.ErrorResponse
// @Router       /upload/profile [post]
func (h *UploadHandler) UploadProfile(c *gin.Context) {
	in, closer, err := h.incoming(c, "photo")
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	defer closer.Close()

	name, err := h.svc.SaveProfilePhoto(c.Request.Context(), in)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, dto.UploadPhotoResponse{PhotoURL: upload.ProfileURLPrefix + name, Filename: name})
}

// Download streams an uploaded file as an attachment. Public: file QR codes point here.
func (h *UploadHandler) Download(c *gin.Context) {
	rc, meta, err := h.svc.OpenFile(c.Request.Context(), c.Param("fileId"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	defer rc.Close()
	h.stream(c, rc, meta, "attachment", "")
}

// ProfilePhoto serves a stored vCard photo inline.
func (h *UploadHandler) ProfilePhoto(c *gin.Context) {
	rc, meta, err := h.svc.OpenProfilePhoto(c.Request.Context(), c.Param("name"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	defer rc.Close()
	h.stream(c, rc, meta, "inline", "public, max-age=86400")
}

func (h *UploadHandler) stream(c *gin.Context, rc io.Reader, meta upload.Meta, disposition, cacheControl string) {
	contentType := meta.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	headers := map[string]string{
		"Content-Disposition":    mime.FormatMediaType(disposition, map[string]string{"filename": meta.Name}),
		"X-Content-Type-Options": "nosniff",
	}
	if cacheControl != "" {
		headers["Cache-Control"] = cacheControl
	}
	c.DataFromReader(http.StatusOK, meta.Size, contentType, rc, headers)
}
