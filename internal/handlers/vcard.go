package handlers

import (
	"errors"
	"net/http"
	"strconv"

	dom "qrstudio/internal/domain"
	"qrstudio/internal/logging"
	"qrstudio/internal/service"
	"qrstudio/internal/utils"
	"qrstudio/internal/vcard"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/render"
)

// VCardHandler serves the public contact page. No session needed.
type VCardHandler struct {
	svc *service.CreationService
	log logging.Logger
}

func NewVCardHandler(svc *service.CreationService, log logging.Logger) *VCardHandler {
	return &VCardHandler{svc: svc, log: log}
}

func (h *VCardHandler) Show(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.String(http.StatusNotFound, "vCard not found")
		return
	}
	cr, err := h.svc.PublicVCard(c.Request.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotFound):
			c.String(http.StatusNotFound, "vCard not found")
		case errors.Is(err, service.ErrCorruptRecord):
			c.String(http.StatusInternalServerError, "this vCard cannot be displayed")
		case utils.IsStoreUnavailable(err):
			h.log.Error(c.Request.Context(), "store unavailable", "path", c.FullPath(), "error", err)
			c.String(http.StatusServiceUnavailable, msgUnavailable)
		default:
			h.log.Error(c.Request.Context(), "load vcard failed", "creation_id", id, "error", err)
			c.String(http.StatusInternalServerError, "error loading vCard")
		}
		return
	}
	fields, _ := cr.Fields.(dom.VCardFields)
	c.Render(http.StatusOK, render.HTML{
		Template: vcard.Templates,
		Name:     vcard.TemplateName,
		Data:     vcard.NewPage(fields, cr.PhotoRef),
	})
}
