package main

import (
	"net/http"
	"os"
	"strconv"

	"github.com/bytedance/sonic"
	"github.com/cyw0ng95/sojourn/pkg/broker"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// setupRouter builds the broker's HTTP surface, grounded on the teacher's
// access-service gin+cors+sonic wiring: release mode, stderr logging, a
// recovery middleware, and the ask outcome, async handle and /stats bodies
// encoded with sonic; error responses and the cancel reply go through
// gin's own c.JSON (the hot matching path inside pkg/broker never touches
// either).
func setupRouter(b *broker.Broker) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	gin.DefaultWriter = os.Stderr
	gin.DefaultErrorWriter = os.Stderr

	router := gin.New()
	router.Use(gin.RecoveryWithWriter(os.Stderr))
	router.Use(cors.Default())

	router.POST("/ask", askHandler(b, broker.Ask, false))
	router.POST("/ask_r", askHandler(b, broker.AskR, false))
	router.POST("/async_ask", askHandler(b, broker.Ask, true))
	router.POST("/async_ask_r", askHandler(b, broker.AskR, true))
	router.POST("/cancel/:handle", cancelHandler(b))
	router.GET("/stats", statsHandler(b))

	return router
}

type askRequest struct {
	Tag any `json:"tag"`
}

func askHandler(b *broker.Broker, side broker.Side, async bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req askRequest
		if c.Request.ContentLength != 0 {
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
		}

		if async {
			var handle uint64
			var err error
			if side == broker.Ask {
				handle, err = b.AsyncAsk(c.Request.Context(), req.Tag)
			} else {
				handle, err = b.AsyncAskR(c.Request.Context(), req.Tag)
			}
			if err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
				return
			}
			body, _ := sonic.Marshal(gin.H{"handle": handle})
			c.Data(http.StatusAccepted, "application/json", body)
			return
		}

		var oc broker.Outcome
		var err error
		if side == broker.Ask {
			oc, err = b.Ask(c.Request.Context(), req.Tag)
		} else {
			oc, err = b.AskR(c.Request.Context(), req.Tag)
		}
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
			return
		}
		body, _ := sonic.Marshal(outcomeJSON(oc))
		c.Data(http.StatusOK, "application/json", body)
	}
}

func cancelHandler(b *broker.Broker) gin.HandlerFunc {
	return func(c *gin.Context) {
		handle, err := strconv.ParseUint(c.Param("handle"), 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid handle"})
			return
		}
		ok, err := b.Cancel(handle)
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"cancelled": ok})
	}
}

func statsHandler(b *broker.Broker) gin.HandlerFunc {
	return func(c *gin.Context) {
		snap, err := b.Snapshot()
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
			return
		}
		body, err := sonic.Marshal(snapshotJSON(snap))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.Data(http.StatusOK, "application/json", body)
	}
}

func outcomeJSON(oc broker.Outcome) gin.H {
	h := gin.H{"matched": oc.Kind == broker.OutcomeMatched, "sojourn_ms": oc.SojournMs}
	if oc.Kind == broker.OutcomeMatched {
		h["ref"] = oc.Ref
	} else {
		h["reason"] = oc.Reason.String()
	}
	return h
}

func sideJSON(s broker.SideSnapshot) gin.H {
	h := gin.H{"len": s.Len, "drops": dropsJSON(s.Drops)}
	if s.CoDel != nil {
		h["codel"] = gin.H{
			"dropping":       s.CoDel.Dropping,
			"count":          s.CoDel.Count,
			"drop_next_ms":   s.CoDel.DropNextMs,
			"first_above_ms": s.CoDel.FirstAboveMs,
		}
	}
	return h
}

func dropsJSON(drops map[broker.DropReason]int64) gin.H {
	h := gin.H{}
	for reason, count := range drops {
		h[reason.String()] = count
	}
	return h
}

func snapshotJSON(snap broker.Snapshot) gin.H {
	return gin.H{"ask": sideJSON(snap.Ask), "ask_r": sideJSON(snap.AskR)}
}
