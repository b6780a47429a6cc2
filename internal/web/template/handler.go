package template

import (
	"errors"
	"net/http"

	"gitee.com/flycash/live-reminder-platform/internal/domain"
	"gitee.com/flycash/live-reminder-platform/internal/errs"
	templatesvc "gitee.com/flycash/live-reminder-platform/internal/service/template"
	"gitee.com/flycash/live-reminder-platform/internal/web"
	webjwt "gitee.com/flycash/live-reminder-platform/internal/web/jwt"

	"github.com/gin-gonic/gin"
)

// Handler 提醒模板管理接口
type Handler struct {
	svc  templatesvc.Service
	auth *webjwt.JwtAuth
}

func NewHandler(svc templatesvc.Service, auth *webjwt.JwtAuth) *Handler {
	return &Handler{
		svc:  svc,
		auth: auth,
	}
}

func (h *Handler) PrivateRoutes(engine *gin.Engine) {
	g := engine.Group("/api/v1/templates")
	g.Use(h.auth.Middleware())
	g.POST("", h.Create)
	g.GET("/:id", h.GetByID)
	g.POST("/:id/activate", h.Activate)
}

type TemplateVO struct {
	ID       int64  `json:"id"`
	Category string `json:"category"`
	Channel  string `json:"channel"`
	Name     string `json:"name"`
	Content  string `json:"content"`
	Active   bool   `json:"active"`
}

func toVO(t domain.ReminderTemplate) TemplateVO {
	return TemplateVO{
		ID:       t.ID,
		Category: t.Category,
		Channel:  t.Channel.String(),
		Name:     t.Name,
		Content:  t.Content,
		Active:   t.Active,
	}
}

type CreateTemplateReq struct {
	Category string `json:"category" binding:"required"`
	Channel  string `json:"channel" binding:"required"`
	Name     string `json:"name" binding:"required"`
	Content  string `json:"content" binding:"required"`
}

func (h *Handler) Create(c *gin.Context) {
	var req CreateTemplateReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, web.Result[any]{Code: http.StatusBadRequest, Msg: err.Error()})
		return
	}
	created, err := h.svc.CreateTemplate(c.Request.Context(), domain.ReminderTemplate{
		Category: req.Category,
		Channel:  domain.Channel(req.Channel),
		Name:     req.Name,
		Content:  req.Content,
	})
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, web.Result[TemplateVO]{Data: toVO(created)})
}

type GetTemplateReq struct {
	ID int64 `uri:"id" binding:"required"`
}

func (h *Handler) GetByID(c *gin.Context) {
	var req GetTemplateReq
	if err := c.ShouldBindUri(&req); err != nil {
		c.JSON(http.StatusBadRequest, web.Result[any]{Code: http.StatusBadRequest, Msg: err.Error()})
		return
	}
	tpl, err := h.svc.GetTemplate(c.Request.Context(), req.ID)
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, web.Result[TemplateVO]{Data: toVO(tpl)})
}

func (h *Handler) Activate(c *gin.Context) {
	var req GetTemplateReq
	if err := c.ShouldBindUri(&req); err != nil {
		c.JSON(http.StatusBadRequest, web.Result[any]{Code: http.StatusBadRequest, Msg: err.Error()})
		return
	}
	if err := h.svc.ActivateTemplate(c.Request.Context(), req.ID); err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, web.Result[any]{})
}

func (h *Handler) renderError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, errs.ErrInvalidParameter):
		c.JSON(http.StatusBadRequest, web.Result[any]{Code: http.StatusBadRequest, Msg: err.Error()})
	case errors.Is(err, errs.ErrTemplateNotFound):
		c.JSON(http.StatusNotFound, web.Result[any]{Code: http.StatusNotFound, Msg: err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, web.Result[any]{Code: http.StatusInternalServerError, Msg: "系统错误"})
	}
}
