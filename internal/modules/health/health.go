package health

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mx-space/wsgateway/internal/modules/gateway/gateway"
	"github.com/mx-space/wsgateway/internal/pkg/cron"
	"github.com/mx-space/wsgateway/internal/pkg/nativelog"
	pkgredis "github.com/mx-space/wsgateway/internal/pkg/redis"
	"github.com/mx-space/wsgateway/internal/pkg/response"
)

const pingTimeout = 2 * time.Second

// StatsSource reports live gateway counters.
type StatsSource interface {
	Stats() gateway.Stats
}

// Deps are what the health endpoints inspect. Redis may be nil.
type Deps struct {
	Hub     StatsSource
	Redis   *pkgredis.Client
	Sched   *cron.Scheduler
	LogDir  string
	Started time.Time
	Now     func() time.Time
}

type statusResponse struct {
	Status  string        `json:"status"`
	Redis   *bool         `json:"redis,omitempty"`
	Uptime  int64         `json:"uptime"`
	Gateway gateway.Stats `json:"gateway"`
}

type logItem struct {
	Filename string `json:"filename"`
	Size     int64  `json:"size"`
	Created  int64  `json:"created"`
}

// RegisterRoutes mounts the public health and clock endpoints plus the
// admin-only cron and log endpoints.
func RegisterRoutes(rg *gin.RouterGroup, d Deps, adminMW gin.HandlerFunc) {
	if d.Now == nil {
		d.Now = time.Now
	}

	rg.GET("/health", func(c *gin.Context) {
		resp := statusResponse{
			Status:  "ok",
			Uptime:  int64(d.Now().Sub(d.Started) / time.Second),
			Gateway: d.Hub.Stats(),
		}
		code := http.StatusOK
		if d.Redis != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), pingTimeout)
			ok := d.Redis.Ping(ctx) == nil
			cancel()
			resp.Redis = &ok
			if !ok {
				resp.Status = "degraded"
				code = http.StatusServiceUnavailable
			}
		}
		c.JSON(code, resp)
	})

	// t2 is receipt time and t3 send time, for client clock offset estimation.
	rg.GET("/server-time", func(c *gin.Context) {
		t2 := d.Now().UnixMilli()
		c.JSON(http.StatusOK, gin.H{
			"t2": t2,
			"t3": d.Now().UnixMilli(),
		})
	})

	admin := rg.Group("/health", adminMW)

	cronGroup := admin.Group("/cron")
	{
		cronGroup.GET("", func(c *gin.Context) {
			response.OK(c, d.Sched.List())
		})

		cronGroup.GET("/:name", func(c *gin.Context) {
			item, ok := d.Sched.Get(c.Param("name"))
			if !ok {
				response.NotFoundMsg(c, "job not found")
				return
			}
			response.OK(c, item)
		})

		cronGroup.POST("/run/:name", func(c *gin.Context) {
			// detached from the request so the job outlives the response
			if err := d.Sched.Run(context.WithoutCancel(c.Request.Context()), c.Param("name")); err != nil {
				response.NotFoundMsg(c, err.Error())
				return
			}
			response.OK(c, gin.H{"message": "job triggered"})
		})
	}

	logGroup := admin.Group("/log")
	{
		logGroup.GET("/list", func(c *gin.Context) {
			files, err := nativelog.List(d.LogDir)
			if err != nil {
				response.InternalError(c, err)
				return
			}
			items := make([]logItem, 0, len(files))
			for _, f := range files {
				items = append(items, logItem{Filename: f.Filename, Size: f.Size, Created: f.Modified.UnixMilli()})
			}
			response.OK(c, items)
		})

		logGroup.GET("", func(c *gin.Context) {
			path, err := nativelog.Path(d.LogDir, c.Query("filename"))
			if err != nil {
				response.UnprocessableEntity(c, "filename must be a log file name")
				return
			}
			data, err := os.ReadFile(path)
			if err != nil {
				if errors.Is(err, os.ErrNotExist) {
					response.NotFoundMsg(c, "log file not exists")
					return
				}
				response.InternalError(c, err)
				return
			}
			c.Data(http.StatusOK, "text/plain; charset=utf-8", data)
		})

		logGroup.DELETE("", func(c *gin.Context) {
			err := nativelog.Remove(d.LogDir, c.Query("filename"), d.Now())
			if errors.Is(err, nativelog.ErrBadFilename) {
				response.UnprocessableEntity(c, "filename must be a log file name")
				return
			}
			if err != nil {
				response.InternalError(c, err)
				return
			}
			c.Status(http.StatusNoContent)
		})
	}
}
