package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"qrstudio/internal/auth"
	"qrstudio/internal/dto"
	"qrstudio/internal/logging"
	"qrstudio/internal/service"

	"github.com/gin-gonic/gin"
)

type CreationHandler struct {
	svc        *service.CreationService
	trustProxy bool
	log        logging.Logger
}

func NewCreationHandler(svc *service.CreationService, trustProxy bool, log logging.Logger) *CreationHandler {
	return &CreationHandler{svc: svc, trustProxy: trustProxy, log: log}
}

// parseID reads the :id param. An id that cannot name a row is a miss.
func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return 0, false
	}
	return id, true
}

func bindQR(c *gin.Context) (service.CreationInput, error) {
	var req dto.QRRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return service.CreationInput{}, fmt.Errorf("%w: type and data are required", errBadRequest)
	}
	fields, err := req.Fields()
	if err != nil {
		return service.CreationInput{}, err
	}
	return service.CreationInput{Fields: fields, Options: req.Options}, nil
}

func writePNG(c *gin.Context, b []byte, headers map[string]string) {
	for k, v := range headers {
		c.Header(k, v)
	}
	c.Data(http.StatusOK, "image/png", b)
}

// Generate godoc
// @Summary      Generate a QR code and save it
// @Tags         qr
// @Accept       json
// @Produce      png
// @Security     CookieAuth
// @Param        body  body  dto.QRRequest  true  "Payload and options"
// @Success      200   {file}    binary
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      401   {object}  dto.ErrorResponse
// @Failure      500   {object}  dto.ErrorResponse
// @Router       /qr [post]
func (h *CreationHandler) Generate(c *gin.Context) {
	in, err := bindQR(c)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	out, err := h.svc.Generate(c.Request.Context(), auth.UserIDFromContext(c), siteFromRequest(c, h.trustProxy), in)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	headers := map[string]string{
		"Content-Disposition": fmt.Sprintf(`attachment; filename="qr-code-%s.png"`, in.Fields.Kind()),
	}
	if out.Creation.ID != 0 {
		headers["X-Creation-Id"] = strconv.FormatInt(out.Creation.ID, 10)
	}
	writePNG(c, out.PNG, headers)
}

// List godoc
// @Summary      List my creations, newest first
// @Tags         creations
// @Produce      json
// @Security     CookieAuth
// @Success      200  {object}  dto.ListCreationsResponse
// @Failure      401  {object}  dto.ErrorResponse
// @Failure      503  {object}  dto.ErrorResponse
// @Router       /creations [get]
func (h *CreationHandler) List(c *gin.Context) {
	list, err := h.svc.List(c.Request.Context(), auth.UserIDFromContext(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	site := siteFromRequest(c, h.trustProxy)
	items := make([]dto.CreationResponse, 0, len(list))
	for _, cr := range list {
		items = append(items, dto.NewCreationResponse(cr, site.VCardURL(cr.ID)))
	}
	c.JSON(http.StatusOK, dto.ListCreationsResponse{Creations: items})
}

// Edit godoc
// @Summary      Get one creation for editing
// @Tags         creations
// @Produce      json
// @Security     CookieAuth
// @Param        id   path      int  true  "Creation ID"
// @Success      200  {object}  dto.CreationResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      500  {object}  dto.ErrorResponse
// @Router       /creations/{id}/edit [get]
func (h *CreationHandler) Edit(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	cr, err := h.svc.GetForEdit(c.Request.Context(), auth.UserIDFromContext(c), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewCreationResponse(cr, siteFromRequest(c, h.trustProxy).VCardURL(cr.ID)))
}

// Image godoc
// @Summary      Thumbnail PNG of a creation
// @Tags         creations
// @Produce      png
// @Security     CookieAuth
// @Param        id   path      int  true  "Creation ID"
// @Success      200  {file}    binary
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /creations/{id}/image [get]
func (h *CreationHandler) Image(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	out, err := h.svc.RenderImage(c.Request.Context(), auth.UserIDFromContext(c), id, siteFromRequest(c, h.trustProxy))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	writePNG(c, out.PNG, map[string]string{"Cache-Control": "public, max-age=3600"})
}

// Download godoc
// @Summary      Download a creation at its saved size
// @Tags         creations
// @Produce      png
// @Security     CookieAuth
// @Param        id   path      int  true  "Creation ID"
// @Success      200  {file}    binary
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /creations/{id}/download [get]
func (h *CreationHandler) Download(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	out, err := h.svc.RenderDownload(c.Request.Context(), auth.UserIDFromContext(c), id, siteFromRequest(c, h.trustProxy))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	writePNG(c, out.PNG, map[string]string{
		"Content-Disposition": fmt.Sprintf(`attachment; filename="qr-code-%s-%d.png"`, out.Creation.Kind, id),
	})
}

// Update godoc
// @Summary      Replace a creation's payload and options
// @Tags         creations
// @Accept       json
// @Produce      json
// @Security     CookieAuth
// @Param        id    path      int            true  "Creation ID"
// @Param        body  body      dto.QRRequest  true  "Payload and options"
// @Success      200   {object}  dto.OKResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /creations/{id} [put]
func (h *CreationHandler) Update(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	in, err := bindQR(c)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	if err := h.svc.Update(c.Request.Context(), auth.UserIDFromContext(c), id, in); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, dto.OKResponse{Success: true, Message: "QR code updated"})
}

// Delete godoc
// @Summary      Delete a creation
// @Tags         creations
// @Produce      json
// @Security     CookieAuth
// @Param        id   path      int  true  "Creation ID"
// @Success      200  {object}  dto.OKResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /creations/{id} [delete]
func (h *CreationHandler) Delete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), auth.UserIDFromContext(c), id); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, dto.OKResponse{Success: true, Message: "QR code deleted"})
}
