//go:build unit

package stream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"gitee.com/flycash/live-reminder-platform/internal/domain"
	"gitee.com/flycash/live-reminder-platform/internal/errs"
	"gitee.com/flycash/live-reminder-platform/internal/web"
	webjwt "gitee.com/flycash/live-reminder-platform/internal/web/jwt"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testJwtKey = "test-key"

// fakeRegistry 预埋返回值的注册服务
type fakeRegistry struct {
	streams map[int64]domain.Stream
}

func (f *fakeRegistry) Create(_ context.Context, stream domain.Stream) (domain.Stream, error) {
	stream.ID = 1001
	stream.Status = domain.StreamStatusScheduled
	stream.Version = 1
	return stream, nil
}

func (f *fakeRegistry) GetByID(_ context.Context, id int64) (domain.Stream, error) {
	s, ok := f.streams[id]
	if !ok {
		return domain.Stream{}, fmt.Errorf("%w: id %d", errs.ErrStreamNotFound, id)
	}
	return s, nil
}

func (f *fakeRegistry) Reschedule(_ context.Context, id int64, newStart time.Time) (domain.Stream, error) {
	s, ok := f.streams[id]
	if !ok {
		return domain.Stream{}, fmt.Errorf("%w: id %d", errs.ErrStreamNotFound, id)
	}
	if s.Status != domain.StreamStatusScheduled {
		return domain.Stream{}, fmt.Errorf("%w", errs.ErrInvalidStreamState)
	}
	s.ScheduledStartTime = newStart
	return s, nil
}

func (f *fakeRegistry) Transition(_ context.Context, id int64, to domain.StreamStatus) error {
	s, ok := f.streams[id]
	if !ok {
		return fmt.Errorf("%w: id %d", errs.ErrStreamNotFound, id)
	}
	if !s.Status.CanTransitionTo(to) {
		return fmt.Errorf("%w: %s -> %s", errs.ErrInvalidTransition, s.Status, to)
	}
	return nil
}

func (f *fakeRegistry) UpdateActualViewers(_ context.Context, _, _ int64) error {
	return nil
}

type fakePlanner struct {
	created int64
}

func (f *fakePlanner) PlanFor(_ context.Context, _ int64, _ []domain.LeadTime, _ []domain.Subscriber) (int64, error) {
	return f.created, nil
}

func (f *fakePlanner) OnRescheduled(_ context.Context, _ int64, _ time.Time) error {
	return nil
}

func (f *fakePlanner) OnCancelled(_ context.Context, _ int64) (int64, error) {
	return 0, nil
}

func newTestServer(t *testing.T, registry *fakeRegistry, planner *fakePlanner) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	h := NewHandler(registry, planner, webjwt.NewJwtAuth(testJwtKey))
	h.PrivateRoutes(engine)
	return engine
}

func authToken(t *testing.T) string {
	t.Helper()
	token, err := webjwt.NewJwtAuth(testJwtKey).Encode(jwt.MapClaims{"sub": "admin"})
	require.NoError(t, err)
	return token
}

func doRequest(t *testing.T, engine *gin.Engine, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", token)
	}
	recorder := httptest.NewRecorder()
	engine.ServeHTTP(recorder, req)
	return recorder
}

func TestHandler_Auth(t *testing.T) {
	t.Parallel()

	engine := newTestServer(t, &fakeRegistry{}, &fakePlanner{})

	t.Run("缺少令牌", func(t *testing.T) {
		t.Parallel()
		recorder := doRequest(t, engine, http.MethodGet, "/api/v1/streams/1", nil, "")
		assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	})

	t.Run("令牌签名不对", func(t *testing.T) {
		t.Parallel()
		token, err := webjwt.NewJwtAuth("wrong-key").Encode(jwt.MapClaims{"sub": "admin"})
		require.NoError(t, err)
		recorder := doRequest(t, engine, http.MethodGet, "/api/v1/streams/1", nil, token)
		assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	})
}

func TestHandler_Create(t *testing.T) {
	t.Parallel()

	engine := newTestServer(t, &fakeRegistry{}, &fakePlanner{})
	token := authToken(t)

	t.Run("创建成功", func(t *testing.T) {
		t.Parallel()
		start := time.Now().Add(48 * time.Hour).UnixMilli()
		recorder := doRequest(t, engine, http.MethodPost, "/api/v1/streams", CreateStreamReq{
			Title:              "周年纪念演唱会",
			Artist:             "林夏",
			Category:           "music",
			ScheduledStartTime: start,
			ExpectedViewers:    10000,
		}, token)
		require.Equal(t, http.StatusOK, recorder.Code)

		var res web.Result[StreamVO]
		require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &res))
		assert.Equal(t, int64(1001), res.Data.ID)
		assert.Equal(t, domain.StreamStatusScheduled.String(), res.Data.Status)
		assert.Equal(t, start, res.Data.ScheduledStartTime)
	})

	t.Run("缺少必填字段", func(t *testing.T) {
		t.Parallel()
		recorder := doRequest(t, engine, http.MethodPost, "/api/v1/streams", CreateStreamReq{
			Title: "没有艺人的直播",
		}, token)
		assert.Equal(t, http.StatusBadRequest, recorder.Code)
	})
}

func TestHandler_GetByID(t *testing.T) {
	t.Parallel()

	start := time.Now().Add(24 * time.Hour)
	engine := newTestServer(t, &fakeRegistry{streams: map[int64]domain.Stream{
		1: {ID: 1, Title: "演唱会", Artist: "林夏", Category: "music", ScheduledStartTime: start, Status: domain.StreamStatusScheduled},
	}}, &fakePlanner{})
	token := authToken(t)

	t.Run("查询成功", func(t *testing.T) {
		t.Parallel()
		recorder := doRequest(t, engine, http.MethodGet, "/api/v1/streams/1", nil, token)
		require.Equal(t, http.StatusOK, recorder.Code)

		var res web.Result[StreamVO]
		require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &res))
		assert.Equal(t, int64(1), res.Data.ID)
	})

	t.Run("直播不存在", func(t *testing.T) {
		t.Parallel()
		recorder := doRequest(t, engine, http.MethodGet, "/api/v1/streams/999", nil, token)
		assert.Equal(t, http.StatusNotFound, recorder.Code)
	})
}

func TestHandler_Transition(t *testing.T) {
	t.Parallel()

	engine := newTestServer(t, &fakeRegistry{streams: map[int64]domain.Stream{
		1: {ID: 1, Status: domain.StreamStatusEnded},
		2: {ID: 2, Status: domain.StreamStatusScheduled},
	}}, &fakePlanner{})
	token := authToken(t)

	t.Run("合法流转", func(t *testing.T) {
		t.Parallel()
		recorder := doRequest(t, engine, http.MethodPost, "/api/v1/streams/2/transition", TransitionReq{To: "LIVE"}, token)
		assert.Equal(t, http.StatusOK, recorder.Code)
	})

	t.Run("非法流转返回冲突", func(t *testing.T) {
		t.Parallel()
		recorder := doRequest(t, engine, http.MethodPost, "/api/v1/streams/1/transition", TransitionReq{To: "LIVE"}, token)
		assert.Equal(t, http.StatusConflict, recorder.Code)
	})
}

func TestHandler_PlanReminders(t *testing.T) {
	t.Parallel()

	engine := newTestServer(t, &fakeRegistry{}, &fakePlanner{created: 6})
	token := authToken(t)

	recorder := doRequest(t, engine, http.MethodPost, "/api/v1/streams/1/reminders", PlanRemindersReq{
		LeadTimes: []string{"24H", "1H", "15MIN"},
		Subscribers: []SubscriberVO{
			{UserID: 1, UserName: "阿珍", Receiver: "13800000001"},
			{UserID: 2, UserName: "阿强", Receiver: "13800000002"},
		},
	}, token)
	require.Equal(t, http.StatusOK, recorder.Code)

	var res web.Result[PlanRemindersResp]
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &res))
	assert.Equal(t, int64(6), res.Data.Created)
}
