package stream

import (
	"errors"
	"net/http"
	"time"

	"gitee.com/flycash/live-reminder-platform/internal/domain"
	"gitee.com/flycash/live-reminder-platform/internal/errs"
	"gitee.com/flycash/live-reminder-platform/internal/service/planner"
	streamsvc "gitee.com/flycash/live-reminder-platform/internal/service/stream"
	"gitee.com/flycash/live-reminder-platform/internal/web"
	webjwt "gitee.com/flycash/live-reminder-platform/internal/web/jwt"

	"github.com/ecodeclub/ekit/slice"
	"github.com/gin-gonic/gin"
)

// Handler 直播排期管理接口
type Handler struct {
	svc        streamsvc.Registry
	plannerSvc planner.Service
	auth       *webjwt.JwtAuth
}

func NewHandler(svc streamsvc.Registry, plannerSvc planner.Service, auth *webjwt.JwtAuth) *Handler {
	return &Handler{
		svc:        svc,
		plannerSvc: plannerSvc,
		auth:       auth,
	}
}

func (h *Handler) PrivateRoutes(engine *gin.Engine) {
	g := engine.Group("/api/v1/streams")
	g.Use(h.auth.Middleware())
	g.POST("", h.Create)
	g.GET("/:id", h.GetByID)
	g.POST("/:id/reschedule", h.Reschedule)
	g.POST("/:id/transition", h.Transition)
	g.POST("/:id/reminders", h.PlanReminders)
}

type StreamVO struct {
	ID                 int64  `json:"id"`
	Title              string `json:"title"`
	Description        string `json:"description"`
	Artist             string `json:"artist"`
	Category           string `json:"category"`
	ScheduledStartTime int64  `json:"scheduledStartTime"`
	ExpectedViewers    int64  `json:"expectedViewers"`
	ActualViewers      int64  `json:"actualViewers"`
	Featured           bool   `json:"featured"`
	Status             string `json:"status"`
}

func toVO(s domain.Stream) StreamVO {
	return StreamVO{
		ID:                 s.ID,
		Title:              s.Title,
		Description:        s.Description,
		Artist:             s.Artist,
		Category:           s.Category,
		ScheduledStartTime: s.ScheduledStartTime.UnixMilli(),
		ExpectedViewers:    s.ExpectedViewers,
		ActualViewers:      s.ActualViewers,
		Featured:           s.Featured,
		Status:             s.Status.String(),
	}
}

type CreateStreamReq struct {
	Title              string `json:"title" binding:"required"`
	Description        string `json:"description"`
	Artist             string `json:"artist" binding:"required"`
	Category           string `json:"category" binding:"required"`
	ScheduledStartTime int64  `json:"scheduledStartTime" binding:"required"`
	ExpectedViewers    int64  `json:"expectedViewers"`
	Featured           bool   `json:"featured"`
}

func (h *Handler) Create(c *gin.Context) {
	var req CreateStreamReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, web.Result[any]{Code: http.StatusBadRequest, Msg: err.Error()})
		return
	}

	created, err := h.svc.Create(c.Request.Context(), domain.Stream{
		Title:              req.Title,
		Description:        req.Description,
		Artist:             req.Artist,
		Category:           req.Category,
		ScheduledStartTime: time.UnixMilli(req.ScheduledStartTime),
		ExpectedViewers:    req.ExpectedViewers,
		Featured:           req.Featured,
	})
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, web.Result[StreamVO]{Data: toVO(created)})
}

type GetStreamReq struct {
	ID int64 `uri:"id" binding:"required"`
}

func (h *Handler) GetByID(c *gin.Context) {
	var req GetStreamReq
	if err := c.ShouldBindUri(&req); err != nil {
		c.JSON(http.StatusBadRequest, web.Result[any]{Code: http.StatusBadRequest, Msg: err.Error()})
		return
	}
	stream, err := h.svc.GetByID(c.Request.Context(), req.ID)
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, web.Result[StreamVO]{Data: toVO(stream)})
}

type RescheduleReq struct {
	NewStartTime int64 `json:"newStartTime" binding:"required"`
}

func (h *Handler) Reschedule(c *gin.Context) {
	var uriReq GetStreamReq
	if err := c.ShouldBindUri(&uriReq); err != nil {
		c.JSON(http.StatusBadRequest, web.Result[any]{Code: http.StatusBadRequest, Msg: err.Error()})
		return
	}
	var req RescheduleReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, web.Result[any]{Code: http.StatusBadRequest, Msg: err.Error()})
		return
	}
	stream, err := h.svc.Reschedule(c.Request.Context(), uriReq.ID, time.UnixMilli(req.NewStartTime))
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, web.Result[StreamVO]{Data: toVO(stream)})
}

type TransitionReq struct {
	To string `json:"to" binding:"required"`
}

func (h *Handler) Transition(c *gin.Context) {
	var uriReq GetStreamReq
	if err := c.ShouldBindUri(&uriReq); err != nil {
		c.JSON(http.StatusBadRequest, web.Result[any]{Code: http.StatusBadRequest, Msg: err.Error()})
		return
	}
	var req TransitionReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, web.Result[any]{Code: http.StatusBadRequest, Msg: err.Error()})
		return
	}
	err := h.svc.Transition(c.Request.Context(), uriReq.ID, domain.StreamStatus(req.To))
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, web.Result[any]{})
}

type SubscriberVO struct {
	UserID   int64  `json:"userId" binding:"required"`
	UserName string `json:"userName"`
	Receiver string `json:"receiver" binding:"required"`
}

type PlanRemindersReq struct {
	LeadTimes   []string       `json:"leadTimes"`
	Subscribers []SubscriberVO `json:"subscribers" binding:"required"`
}

type PlanRemindersResp struct {
	Created int64 `json:"created"`
}

func (h *Handler) PlanReminders(c *gin.Context) {
	var uriReq GetStreamReq
	if err := c.ShouldBindUri(&uriReq); err != nil {
		c.JSON(http.StatusBadRequest, web.Result[any]{Code: http.StatusBadRequest, Msg: err.Error()})
		return
	}
	var req PlanRemindersReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, web.Result[any]{Code: http.StatusBadRequest, Msg: err.Error()})
		return
	}

	kinds := slice.Map(req.LeadTimes, func(_ int, src string) domain.LeadTime {
		return domain.LeadTime(src)
	})
	subscribers := slice.Map(req.Subscribers, func(_ int, src SubscriberVO) domain.Subscriber {
		return domain.Subscriber{
			UserID:   src.UserID,
			UserName: src.UserName,
			Receiver: src.Receiver,
		}
	})

	created, err := h.plannerSvc.PlanFor(c.Request.Context(), uriReq.ID, kinds, subscribers)
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, web.Result[PlanRemindersResp]{Data: PlanRemindersResp{Created: created}})
}

func (h *Handler) renderError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, errs.ErrInvalidParameter):
		c.JSON(http.StatusBadRequest, web.Result[any]{Code: http.StatusBadRequest, Msg: err.Error()})
	case errors.Is(err, errs.ErrStreamNotFound):
		c.JSON(http.StatusNotFound, web.Result[any]{Code: http.StatusNotFound, Msg: err.Error()})
	case errors.Is(err, errs.ErrInvalidTransition),
		errors.Is(err, errs.ErrInvalidStreamState),
		errors.Is(err, errs.ErrStreamVersionMismatch):
		c.JSON(http.StatusConflict, web.Result[any]{Code: http.StatusConflict, Msg: err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, web.Result[any]{Code: http.StatusInternalServerError, Msg: "系统错误"})
	}
}
