package api

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/Borislavv/transfer-cache/internal/allocator/config"
	"github.com/Borislavv/transfer-cache/pkg/transfercache"
	"github.com/fasthttp/router"
	"github.com/rs/zerolog/log"
	gstrconv "github.com/savsgio/gotils/strconv"
	"github.com/valyala/fasthttp"
)

const TransferCacheStatsPath = "/api/v1/transfer-cache/stats"

var badRequestResponseBytes = []byte(`{
	  "status": 400,
	  "error": "Bad Request",
	  "message": "query param 'class' must be a valid size class index"
	}`)

// StatsSource is the slice of the cache manager the stats endpoint needs.
type StatsSource interface {
	Stats() []transfercache.Stats
	TotalCapacity() int
	NumSizeClasses() int
}

type statsResponse struct {
	Mode           string                `json:"mode"`
	BudgetBatches  int                   `json:"budget_batches"`
	NumSizeClasses int                   `json:"num_size_classes"`
	Classes        []transfercache.Stats `json:"classes"`
}

type StatsController struct {
	ctx    context.Context
	cfg    *config.Config
	source StatsSource
}

func NewStatsController(ctx context.Context, cfg *config.Config, source StatsSource) *StatsController {
	return &StatsController{ctx: ctx, cfg: cfg, source: source}
}

func (c *StatsController) Index(r *fasthttp.RequestCtx) {
	classes := c.source.Stats()

	if raw := r.QueryArgs().Peek("class"); len(raw) > 0 {
		sc, err := strconv.Atoi(gstrconv.B2S(raw))
		if err != nil || sc < 0 || sc >= c.source.NumSizeClasses() {
			c.respondThatTheRequestIsBad(err, r)
			return
		}
		classes = classes[sc : sc+1]
	}

	body, err := json.Marshal(statsResponse{
		Mode:           c.cfg.TransferCacheMode,
		BudgetBatches:  c.source.TotalCapacity(),
		NumSizeClasses: c.source.NumSizeClasses(),
		Classes:        classes,
	})
	if err != nil {
		r.SetStatusCode(fasthttp.StatusInternalServerError)
		log.Err(err).Msg("[stats-controller] failed to marshal stats response")
		return
	}

	if _, err = r.Write(body); err != nil {
		log.Err(err).Msg("[stats-controller] failed to write into *fasthttp.RequestCtx")
	}
}

func (c *StatsController) respondThatTheRequestIsBad(err error, ctx *fasthttp.RequestCtx) {
	if err != nil {
		log.Err(err).Msg("[stats-controller] bad request was caught")
	}

	ctx.SetStatusCode(fasthttp.StatusBadRequest)
	if _, werr := ctx.Write(badRequestResponseBytes); werr != nil {
		log.Err(werr).Msg("[stats-controller] failed to write into *fasthttp.RequestCtx")
	}
}

func (c *StatsController) AddRoute(router *router.Router) {
	router.GET(TransferCacheStatsPath, c.Index)
}
