package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"luckyroll/internal/address"
	"luckyroll/internal/models"
	"luckyroll/internal/oracle"
	"luckyroll/internal/services"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"github.com/gocarina/gocsv"
	"github.com/google/logger"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SenderHeader carries the address of the caller. Authenticating it is the
// job of whatever sits in front of this service.
const SenderHeader = "X-Sender"

const senderKey = "sender"

// HTTPHandler holds the dependencies for the HTTP handlers.
type HTTPHandler struct {
	service   *services.RoundService
	queue     *oracle.Queue
	validator address.Validator
	now       func() time.Time
}

// NewHTTPHandler creates a new HTTPHandler. now supplies the time every
// operation is evaluated at.
func NewHTTPHandler(service *services.RoundService, queue *oracle.Queue, validator address.Validator, now func() time.Time) *HTTPHandler {
	if now == nil {
		now = time.Now
	}
	return &HTTPHandler{
		service:   service,
		queue:     queue,
		validator: validator,
		now:       now,
	}
}

type fundsBody struct {
	Funds []models.Coin `json:"funds"`
}

type resetBody struct {
	fundsBody
	Oracle    string `json:"oracle" binding:"required"`
	TimeStart string `json:"time_start" binding:"required"`
	TimeEnd   string `json:"time_end" binding:"required"`
}

type prizesBody struct {
	fundsBody
	Prizes []string `json:"prizes"`
}

type whitelistBody struct {
	fundsBody
	Attendees []string `json:"attendees"`
}

type receiveBody struct {
	Callback oracle.Callback `json:"callback"`
}

type whitelistRow struct {
	Address string `csv:"address"`
}

type distributionRow struct {
	Address string `csv:"address"`
	Prize   string `csv:"prize"`
}

// RegisterRoutes registers all the application routes.
func (h *HTTPHandler) RegisterRoutes(router *gin.Engine) {
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	query := router.Group("/query")
	query.GET("/prizes", h.GetPrizes)
	query.GET("/distribution", h.GetDistribution)
	query.GET("/attendees", h.GetAttendees)
	query.GET("/config", h.GetConfig)
	query.GET("/state", h.GetState)
	router.GET("/export/distribution.csv", h.ExportDistributionCSV)
	router.GET("/oracle/requests", h.DrainRequests)

	execute := router.Group("/execute")
	execute.Use(h.SenderMiddleware())
	execute.POST("/reset", h.Reset)
	execute.POST("/prizes", h.SetPrizes)
	execute.POST("/whitelist", h.SetWhitelist)
	execute.POST("/whitelist/csv", h.UploadWhitelistCSV)
	execute.POST("/roll", h.Roll)
	execute.POST("/lucky-number", h.Register)

	router.POST("/oracle/receive", h.SenderMiddleware(), h.ReceiveRandomness)
}

// SenderMiddleware validates the caller address and stores it in the context.
func (h *HTTPHandler) SenderMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		sender, err := h.validator.Validate(c.GetHeader(SenderHeader))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid " + SenderHeader})
			return
		}
		c.Set(senderKey, sender)
		c.Next()
	}
}

func (h *HTTPHandler) call(c *gin.Context, funds []models.Coin) models.Call {
	call := models.Call{Funds: funds, Time: h.now()}
	if v, ok := c.Get(senderKey); ok {
		call.Sender = v.(common.Address)
	}
	return call
}

// bindOptional binds a JSON body if one was sent.
func bindOptional(c *gin.Context, v any) error {
	if c.Request.ContentLength == 0 {
		return nil
	}
	return c.ShouldBindJSON(v)
}

// respond writes the result of an operation, mapping error kinds to statuses.
func respond(c *gin.Context, resp *models.Response, err error) {
	if err == nil {
		c.JSON(http.StatusOK, resp)
		return
	}
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, services.ErrUnauthorized), errors.Is(err, services.ErrUnauthorizedReceive):
		status = http.StatusForbidden
	case errors.Is(err, services.ErrRoundEnd), errors.Is(err, services.ErrAlreadyInstantiated):
		status = http.StatusConflict
	case errors.Is(err, services.ErrDomain):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, services.ErrInvalidProxyAddress), errors.Is(err, services.ErrInvalidTime),
		errors.Is(err, address.ErrInvalidAddress), errors.Is(err, oracle.ErrInvalidRandomness):
		status = http.StatusBadRequest
	case errors.Is(err, services.ErrNotInstantiated):
		status = http.StatusServiceUnavailable
	case errors.Is(err, oracle.ErrOutboxFull):
		status = http.StatusTooManyRequests
	default:
		logger.Errorf("Unexpected error: %v", err)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// ParseTime accepts RFC 3339 timestamps.
func ParseTime(raw string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, services.ErrInvalidTime
	}
	return t, nil
}

// Reset handles a new round configuration.
func (h *HTTPHandler) Reset(c *gin.Context) {
	var body resetBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	start, err := ParseTime(body.TimeStart)
	if err != nil {
		respond(c, nil, err)
		return
	}
	end, err := ParseTime(body.TimeEnd)
	if err != nil {
		respond(c, nil, err)
		return
	}
	resp, err := h.service.Reset(h.call(c, body.Funds), services.RoundParams{
		Oracle:    body.Oracle,
		TimeStart: start,
		TimeEnd:   end,
	})
	respond(c, resp, err)
}

// SetPrizes handles the prize list submission.
func (h *HTTPHandler) SetPrizes(c *gin.Context) {
	var body prizesBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	resp, err := h.service.SetPrizes(c.Request.Context(), h.call(c, body.Funds), body.Prizes)
	respond(c, resp, err)
}

// SetWhitelist handles the whitelist submission.
func (h *HTTPHandler) SetWhitelist(c *gin.Context) {
	var body whitelistBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	resp, err := h.service.SetWhitelist(h.call(c, body.Funds), body.Attendees)
	respond(c, resp, err)
}

// UploadWhitelistCSV handles a CSV upload with an "address" column. A
// malformed file leaves the whitelist untouched.
func (h *HTTPHandler) UploadWhitelistCSV(c *gin.Context) {
	file, _, err := c.Request.FormFile("whitelistCSV")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "error retrieving file: " + err.Error()})
		return
	}
	defer file.Close()

	var rows []*whitelistRow
	if err := gocsv.Unmarshal(file, &rows); err != nil {
		logger.Infof("Rejecting whitelist CSV: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "error reading CSV: " + err.Error()})
		return
	}
	attendees := make([]string, 0, len(rows))
	for _, row := range rows {
		if strings.TrimSpace(row.Address) == "" {
			continue
		}
		attendees = append(attendees, row.Address)
	}
	resp, err := h.service.SetWhitelist(h.call(c, nil), attendees)
	respond(c, resp, err)
}

// Roll handles the request to distribute prizes.
func (h *HTTPHandler) Roll(c *gin.Context) {
	resp, err := h.service.Roll(h.call(c, nil))
	respond(c, resp, err)
}

// Register handles a participant asking for a lucky number.
func (h *HTTPHandler) Register(c *gin.Context) {
	var body fundsBody
	if err := bindOptional(c, &body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	resp, err := h.service.Register(c.Request.Context(), h.call(c, body.Funds))
	respond(c, resp, err)
}

// ReceiveRandomness handles the oracle callback.
func (h *HTTPHandler) ReceiveRandomness(c *gin.Context) {
	var body receiveBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	resp, err := h.service.ReceiveRandomness(h.call(c, nil), body.Callback)
	respond(c, resp, err)
}

// DrainRequests hands pending randomness requests to the oracle relay.
func (h *HTTPHandler) DrainRequests(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"requests": h.queue.Drain()})
}

func (h *HTTPHandler) GetPrizes(c *gin.Context) {
	prizes, err := h.service.Prizes()
	if err != nil {
		respond(c, nil, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"prizes": prizes})
}

func (h *HTTPHandler) GetDistribution(c *gin.Context) {
	dist, err := h.service.Distribution()
	if err != nil {
		respond(c, nil, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"prizes": dist})
}

func (h *HTTPHandler) GetAttendees(c *gin.Context) {
	attendees, err := h.service.Attendees()
	if err != nil {
		respond(c, nil, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"number": len(attendees), "attendees": attendees})
}

func (h *HTTPHandler) GetConfig(c *gin.Context) {
	cfg, err := h.service.Configs()
	if err != nil {
		respond(c, nil, err)
		return
	}
	owner, err := h.service.Owner()
	if err != nil {
		respond(c, nil, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"owner": owner, "config": cfg})
}

func (h *HTTPHandler) GetState(c *gin.Context) {
	state, err := h.service.State()
	if err != nil {
		respond(c, nil, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": state})
}

// ExportDistributionCSV handles the request to download the distribution as a CSV file.
func (h *HTTPHandler) ExportDistributionCSV(c *gin.Context) {
	dist, err := h.service.Distribution()
	if err != nil {
		respond(c, nil, err)
		return
	}
	rows := make([]*distributionRow, 0, len(dist))
	for _, d := range dist {
		rows = append(rows, &distributionRow{Address: d.Address.Hex(), Prize: d.Prize})
	}

	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", "attachment;filename=distribution.csv")

	// Add BOM to ensure UTF-8 compatibility in Excel
	c.Writer.Write([]byte("\xef\xbb\xbf"))

	if err := gocsv.Marshal(rows, c.Writer); err != nil {
		logger.Infof("Error writing CSV: %v", err)
		c.String(http.StatusInternalServerError, "Error writing CSV")
	}
}
