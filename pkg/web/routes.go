package web

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/PancyStudios/PancyMod/pkg/database"
	"github.com/PancyStudios/PancyMod/pkg/models"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const queryTimeout = 5 * time.Second

// CaseReader is the read side of the punishment store
type CaseReader interface {
	FindCase(ctx context.Context, guildID, caseID string) (*models.Punishment, error)
	ListCases(ctx context.Context, guildID, userID string) ([]models.Punishment, error)
	ListWarnings(ctx context.Context, guildID, userID string, activeOnly bool, now int64) ([]models.Punishment, error)
	Statistics(ctx context.Context, guildID, moderatorID string) (*models.ModerationStats, error)
}

// FlowLister reports the punishment menus currently open
type FlowLister interface {
	OpenFlows() []models.FlowSummary
}

// DatabaseStatus is implemented by *database.Database
type DatabaseStatus interface {
	GetStatus() (string, bool)
}

// ConfigCache is implemented by *database.GuildConfigService
type ConfigCache interface {
	CachedGuilds() int
}

// BotStatus is implemented by *discord.ExtendedClient
type BotStatus interface {
	IsReady() bool
	GuildCount() int
}

// API holds what the routes read from. Nil fields answer 503.
type API struct {
	Cases    CaseReader
	Flows    FlowLister
	DB       DatabaseStatus
	Configs  ConfigCache
	Bot      BotStatus
	Gatherer prometheus.Gatherer
	Now      func() time.Time
}

// SetupAPIRoutes sets up the API routes
func SetupAPIRoutes(s *Server, a *API) {
	if a.Now == nil {
		a.Now = time.Now
	}

	api := s.Group("/api")
	{
		api.GET("/status", a.status)
		api.GET("/health", a.health)
		api.GET("/punish/flows", a.flows)

		guild := api.Group("/guilds/:guild")
		guild.GET("/cases/:case", a.caseByID)
		guild.GET("/users/:user/cases", a.userCases)
		guild.GET("/users/:user/warnings", a.userWarnings)
		guild.GET("/stats", a.stats)
	}

	if a.Gatherer != nil {
		s.GET("/metrics", gin.WrapH(promhttp.HandlerFor(a.Gatherer, promhttp.HandlerOpts{})))
	}
}

func unavailable(c *gin.Context) {
	c.JSON(http.StatusServiceUnavailable, gin.H{
		"error":   "Service Unavailable",
		"message": "La base de datos no está disponible en este momento.",
	})
}

// storeError answers a failed store call
func storeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, database.ErrCaseNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Not Found", "message": "El caso no existe."})
	case errors.Is(err, database.ErrStoreUnavailable):
		unavailable(c)
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal Server Error", "message": err.Error()})
	}
}

func (a *API) status(c *gin.Context) {
	dbStatus, dbOnline := "Desconectado", false
	if a.DB != nil {
		dbStatus, dbOnline = a.DB.GetStatus()
	}
	botOnline, guilds := false, 0
	if a.Bot != nil {
		botOnline, guilds = a.Bot.IsReady(), a.Bot.GuildCount()
	}
	openFlows := 0
	if a.Flows != nil {
		openFlows = len(a.Flows.OpenFlows())
	}
	cached := 0
	if a.Configs != nil {
		cached = a.Configs.CachedGuilds()
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"database": gin.H{
			"status":        dbStatus,
			"isOnline":      dbOnline,
			"cachedConfigs": cached,
		},
		"bot": gin.H{
			"isOnline": botOnline,
			"guilds":   guilds,
		},
		"openFlows": openFlows,
	})
}

func (a *API) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"message": "PancyMod is running",
	})
}

func (a *API) flows(c *gin.Context) {
	if a.Flows == nil {
		c.JSON(http.StatusOK, []models.FlowSummary{})
		return
	}
	c.JSON(http.StatusOK, a.Flows.OpenFlows())
}

func (a *API) caseByID(c *gin.Context) {
	if a.Cases == nil {
		unavailable(c)
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), queryTimeout)
	defer cancel()

	p, err := a.Cases.FindCase(ctx, c.Param("guild"), c.Param("case"))
	if err != nil {
		storeError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (a *API) userCases(c *gin.Context) {
	if a.Cases == nil {
		unavailable(c)
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), queryTimeout)
	defer cancel()

	cases, err := a.Cases.ListCases(ctx, c.Param("guild"), c.Param("user"))
	if err != nil {
		storeError(c, err)
		return
	}
	c.JSON(http.StatusOK, cases)
}

func (a *API) userWarnings(c *gin.Context) {
	if a.Cases == nil {
		unavailable(c)
		return
	}
	activeOnly := false
	if raw := c.Query("active"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Bad Request", "message": "El parámetro active debe ser true o false."})
			return
		}
		activeOnly = v
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), queryTimeout)
	defer cancel()

	warnings, err := a.Cases.ListWarnings(ctx, c.Param("guild"), c.Param("user"), activeOnly, a.Now().Unix())
	if err != nil {
		storeError(c, err)
		return
	}
	c.JSON(http.StatusOK, warnings)
}

func (a *API) stats(c *gin.Context) {
	if a.Cases == nil {
		unavailable(c)
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), queryTimeout)
	defer cancel()

	stats, err := a.Cases.Statistics(ctx, c.Param("guild"), c.Query("moderator"))
	if err != nil {
		storeError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
