package controller

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/Kenkkila/grimoire-site/internal/model"
	"github.com/Kenkkila/grimoire-site/internal/service/cypher"
	"github.com/Kenkkila/grimoire-site/internal/service/graphdb"
	"github.com/Kenkkila/grimoire-site/internal/service/grimoire"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// GraphController serves the read-only graph API
type GraphController struct {
	service *grimoire.GraphService
	logger  *zap.Logger
}

// NewGraphController creates a new GraphController
func NewGraphController(service *grimoire.GraphService, logger *zap.Logger) *GraphController {
	return &GraphController{
		service: service,
		logger:  logger,
	}
}

// -----------------------------------------------------------------------------
// Response Types
// -----------------------------------------------------------------------------

type LabelsResponse struct {
	Labels []string `json:"labels"`
}

// UnknownLabelResponse is returned with 404 so clients can offer the valid labels
type UnknownLabelResponse struct {
	Error  string   `json:"error"`
	Label  string   `json:"label"`
	Labels []string `json:"labels"`
}

// ItemNotFoundResponse suggests other items of the label and nodes matching the uid as text
type ItemNotFoundResponse struct {
	Error  string        `json:"error"`
	Label  string        `json:"label"`
	Items  []*model.Node `json:"items"`
	Search []*model.Node `json:"search"`
}

// -----------------------------------------------------------------------------
// Helpers
// -----------------------------------------------------------------------------

// statusClientClosedRequest is nginx's code for a client that went away mid-request
const statusClientClosedRequest = 499

// respondError maps service errors onto status codes
func (c *GraphController) respondError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		c.logger.Debug("Request ended before the query finished", zap.String("path", ctx.Request.URL.Path), zap.Error(err))
		ctx.AbortWithStatus(statusClientClosedRequest)
	case errors.Is(err, cypher.ErrInvalidQueryShape):
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, graphdb.ErrStoreUnavailable):
		c.logger.Error("Graph store unavailable", zap.String("path", ctx.Request.URL.Path), zap.Error(err))
		ctx.JSON(http.StatusServiceUnavailable, gin.H{"error": "graph store unavailable"})
	default:
		c.logger.Error("Graph query failed", zap.String("path", ctx.Request.URL.Path), zap.Error(err))
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func (c *GraphController) respondResult(ctx *gin.Context, rs model.ResultSet, err error) {
	if err != nil {
		c.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, rs)
}

// labelParam reads and validates the :label path parameter, writing a 404 when unknown
func (c *GraphController) labelParam(ctx *gin.Context) (string, bool) {
	label := sanitize(ctx.Param("label"))
	if !c.service.ValidateLabel(label) {
		c.logger.Info("Invalid label", zap.String("label", label))
		ctx.JSON(http.StatusNotFound, UnknownLabelResponse{
			Error:  "unknown label",
			Label:  label,
			Labels: c.service.GetLabels(),
		})
		return "", false
	}
	return label, true
}

// -----------------------------------------------------------------------------
// Handlers
// -----------------------------------------------------------------------------

func (c *GraphController) GetLabels(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, LabelsResponse{Labels: c.service.GetLabels()})
}

func (c *GraphController) GetEntityLabels(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, LabelsResponse{Labels: c.service.GetEntityLabels()})
}

func (c *GraphController) Random(ctx *gin.Context) {
	rs, err := c.service.Random(ctx.Request.Context())
	c.respondResult(ctx, rs, err)
}

func (c *GraphController) FrontPage(ctx *gin.Context) {
	rs, err := c.service.GetFrontpageRandom(ctx.Request.Context())
	c.respondResult(ctx, rs, err)
}

func (c *GraphController) Timeline(ctx *gin.Context) {
	rs, err := c.service.Timeline(ctx.Request.Context())
	c.respondResult(ctx, rs, err)
}

func (c *GraphController) SpellsByOutcome(ctx *gin.Context) {
	rs, err := c.service.GetSpellsByOutcome(ctx.Request.Context())
	c.respondResult(ctx, rs, err)
}

// Search matches ?q= against node names; a blank term returns an empty result
func (c *GraphController) Search(ctx *gin.Context) {
	term := sanitize(ctx.Query("q"))
	rs, err := c.service.Search(ctx.Request.Context(), term)
	c.respondResult(ctx, rs, err)
}

// WithParam lists nodes that have the property named in the path
func (c *GraphController) WithParam(ctx *gin.Context) {
	rs, err := c.service.GetWithParam(ctx.Request.Context(), sanitize(ctx.Param("param")))
	c.respondResult(ctx, rs, err)
}

// GrimoireEntities groups an entity type by grimoire. ?single=true lists the entities that
// only one grimoire mentions, otherwise those shared by several.
func (c *GraphController) GrimoireEntities(ctx *gin.Context) {
	entity := sanitize(ctx.Param("entity"))
	if !c.service.ValidateEntityLabel(entity) {
		ctx.JSON(http.StatusNotFound, UnknownLabelResponse{
			Error:  "unknown entity",
			Label:  entity,
			Labels: c.service.GetEntityLabels(),
		})
		return
	}

	single, _ := strconv.ParseBool(ctx.DefaultQuery("single", "false"))

	var rs model.ResultSet
	var err error
	if single {
		rs, err = c.service.GetSingleGrimoireEntities(ctx.Request.Context(), entity)
	} else {
		rs, err = c.service.GetGrimoireEntities(ctx.Request.Context(), entity)
	}
	c.respondResult(ctx, rs, err)
}

// ListLabel returns every node of a label, optionally only those adjacent to ?connection=
func (c *GraphController) ListLabel(ctx *gin.Context) {
	label, ok := c.labelParam(ctx)
	if !ok {
		return
	}

	rs, err := c.service.GetAll(ctx.Request.Context(), label, sanitize(ctx.Query("connection")))
	c.respondResult(ctx, rs, err)
}

// Filter narrows a label to nodes connected to item1, and to or not to item2
func (c *GraphController) Filter(ctx *gin.Context) {
	label, ok := c.labelParam(ctx)
	if !ok {
		return
	}

	item1 := sanitize(ctx.Query("item1"))
	if item1 == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "item1 is required"})
		return
	}

	rs, err := c.service.GetFiltered(ctx.Request.Context(), label, item1,
		sanitize(ctx.Query("item2")), sanitize(ctx.Query("operator")))
	c.respondResult(ctx, rs, err)
}

// Item returns one node with its neighborhood and sidebars. An unknown uid answers 404
// with nodes of the label and search hits for the uid.
func (c *GraphController) Item(ctx *gin.Context) {
	label, ok := c.labelParam(ctx)
	if !ok {
		return
	}

	uid := sanitize(ctx.Param("uid"))
	c.logger.Info("Loading item", zap.String("label", label), zap.String("uid", uid))

	item, found, err := c.service.GetItem(ctx.Request.Context(), label, uid)
	if err != nil {
		c.respondError(ctx, err)
		return
	}

	if !found {
		c.logger.Info("Invalid uid", zap.String("uid", uid))
		resp := ItemNotFoundResponse{
			Error:  "node not found",
			Label:  label,
			Items:  []*model.Node{},
			Search: []*model.Node{},
		}
		if items, err := c.service.GetAll(ctx.Request.Context(), label, ""); err == nil {
			resp.Items = items.Nodes
		}
		if hits, err := c.service.Search(ctx.Request.Context(), uid); err == nil {
			resp.Search = hits.Nodes
		}
		ctx.JSON(http.StatusNotFound, resp)
		return
	}

	ctx.JSON(http.StatusOK, item)
}

// Health reports 503 while the graph store is unreachable
func (c *GraphController) Health(ctx *gin.Context) {
	if err := c.service.Health(ctx.Request.Context()); err != nil {
		ctx.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "degraded",
			"error":  err.Error(),
		})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"status": "healthy"})
}
