package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/joseph-ayodele/contracts-extractor/constants"
	"github.com/joseph-ayodele/contracts-extractor/internal/common"
	"github.com/joseph-ayodele/contracts-extractor/internal/services/contracts"
)

const xlsxMIME = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// HealthFunc reports whether a dependency is reachable.
type HealthFunc func(ctx context.Context) error

// HTTPConfig configures the REST API.
type HTTPConfig struct {
	ServiceName   string
	MaxUploadSize int64
	Health        HealthFunc
}

// ContractHandler serves the REST API under /api/contracts.
type ContractHandler struct {
	svc    *contracts.Service
	cfg    HTTPConfig
	logger *slog.Logger
}

func NewContractHandler(svc *contracts.Service, cfg HTTPConfig, logger *slog.Logger) *ContractHandler {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxUploadSize <= 0 {
		cfg.MaxUploadSize = constants.MaxUploadSizeDefault
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = "contractd"
	}
	return &ContractHandler{svc: svc, cfg: cfg, logger: logger}
}

// NewRouter builds the gin engine with tracing, request IDs, access logs and recovery.
func NewRouter(h *ContractHandler) *gin.Engine {
	r := gin.New()
	r.Use(otelgin.Middleware(h.cfg.ServiceName))
	r.Use(RequestID())
	r.Use(Recovery(h.logger))
	r.Use(RequestLogger(h.logger))

	r.GET("/health", h.Health)

	api := r.Group("/api/contracts")
	{
		api.POST("/upload", h.Upload)
		api.GET("", h.List)
		api.GET("/export", h.Export)
		api.GET("/:id", h.Get)
		api.GET("/:id/status", h.Status)
		api.GET("/:id/result", h.Result)
		api.GET("/:id/download", h.Download)
		api.POST("/:id/reprocess", h.Reprocess)
		api.DELETE("/:id", h.Delete)
	}
	return r
}

func (h *ContractHandler) Health(c *gin.Context) {
	db := "healthy"
	code := http.StatusOK
	if h.cfg.Health != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()
		if err := h.cfg.Health(ctx); err != nil {
			h.logger.Warn("health check failed", "error", err)
			db = "unhealthy"
			code = http.StatusServiceUnavailable
		}
	}
	status := "healthy"
	if code != http.StatusOK {
		status = "degraded"
	}
	c.JSON(code, gin.H{
		"status":    status,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"services":  gin.H{"api": "healthy", "database": db},
	})
}

// Upload accepts a multipart "file" field plus optional use_ocr/use_model.
func (h *ContractHandler) Upload(c *gin.Context) {
	// Multipart framing needs some room beyond the file itself.
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.cfg.MaxUploadSize+1<<20)

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			abortWithError(c, common.InvalidInputf("file exceeds the %d byte limit", h.cfg.MaxUploadSize))
			return
		}
		abortWithError(c, common.InvalidInput("multipart field \"file\" is required"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, h.cfg.MaxUploadSize+1))
	if err != nil {
		abortWithError(c, common.InvalidInput("failed to read uploaded file"))
		return
	}
	if int64(len(data)) > h.cfg.MaxUploadSize {
		abortWithError(c, common.InvalidInputf("file exceeds the %d byte limit", h.cfg.MaxUploadSize))
		return
	}
	useOCR, err := formBool(c, "use_ocr")
	if err != nil {
		abortWithError(c, err)
		return
	}
	useModel, err := formBool(c, "use_model")
	if err != nil {
		abortWithError(c, err)
		return
	}

	res, err := h.svc.Upload(c.Request.Context(), contracts.UploadRequest{
		Filename: header.Filename,
		MIMEType: partMIME(header.Header.Get("Content-Type"), header.Filename),
		Data:     data,
		UseOCR:   useOCR != nil && *useOCR,
		UseModel: useModel != nil && *useModel,
	})
	if err != nil {
		abortWithError(c, err)
		return
	}

	code, msg := http.StatusAccepted, "contract uploaded and queued for processing"
	if res.Duplicate {
		code, msg = http.StatusOK, "contract already exists"
	}
	c.JSON(code, gin.H{
		"contract_id": res.Document.ID,
		"status":      res.Document.Status,
		"duplicate":   res.Duplicate,
		"message":     msg,
	})
}

func (h *ContractHandler) List(c *gin.Context) {
	page, err := queryInt(c, "page", defaultPage)
	if err != nil {
		abortWithError(c, err)
		return
	}
	limit, err := queryInt(c, "limit", defaultLimit)
	if err != nil {
		abortWithError(c, err)
		return
	}
	q, err := listParams{
		Page:      page,
		Limit:     limit,
		Status:    c.Query("status"),
		SortBy:    c.Query("sort_by"),
		SortOrder: c.Query("sort_order"),
	}.query()
	if err != nil {
		abortWithError(c, err)
		return
	}
	out, err := h.svc.List(c.Request.Context(), q)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *ContractHandler) Get(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	doc, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

func (h *ContractHandler) Status(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	st, err := h.svc.Status(c.Request.Context(), id)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

func (h *ContractHandler) Result(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	out, err := h.svc.Result(c.Request.Context(), id)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *ContractHandler) Download(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	dl, err := h.svc.Download(c.Request.Context(), id)
	if err != nil {
		abortWithError(c, err)
		return
	}
	defer dl.Body.Close()
	c.DataFromReader(http.StatusOK, dl.Size, dl.MIMEType, dl.Body, map[string]string{
		"Content-Disposition": mime.FormatMediaType("attachment", map[string]string{"filename": dl.Filename}),
	})
}

// Reprocess takes optional use_ocr/use_model query flags; absent flags keep the stored options.
func (h *ContractHandler) Reprocess(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	useOCR, err := queryBool(c, "use_ocr")
	if err != nil {
		abortWithError(c, err)
		return
	}
	useModel, err := queryBool(c, "use_model")
	if err != nil {
		abortWithError(c, err)
		return
	}
	st, err := h.svc.Reprocess(c.Request.Context(), id, contracts.ReprocessRequest{UseOCR: useOCR, UseModel: useModel})
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{
		"contract_id": st.ID,
		"status":      st.Status,
		"progress":    st.Progress,
		"message":     "reprocessing started",
	})
}

func (h *ContractHandler) Delete(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	force, err := queryBool(c, "force")
	if err != nil {
		abortWithError(c, err)
		return
	}
	if err := h.svc.Delete(c.Request.Context(), id, force != nil && *force); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"contract_id": id, "message": "contract deleted"})
}

func (h *ContractHandler) Export(c *gin.Context) {
	q, err := exportQuery(c.Query("status"), c.Query("category"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	xlsx, err := h.svc.Export(c.Request.Context(), q)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": "contracts.xlsx"}))
	c.Data(http.StatusOK, xlsxMIME, xlsx)
}

// partMIME trusts the part header unless it is missing or generic, in which
// case a .pdf name is taken at its word. The magic check still runs later.
func partMIME(header, filename string) string {
	if ct := constants.NormalizeMIME(header); ct != "" && ct != "application/octet-stream" {
		return header
	}
	if constants.NormalizeExt(filepath.Ext(filename)) == "pdf" {
		return constants.MIMETypePDF
	}
	return header
}

func queryBool(c *gin.Context, key string) (*bool, error) {
	raw, ok := c.GetQuery(key)
	if !ok || raw == "" {
		return nil, nil
	}
	return parseBool(key, raw)
}

func formBool(c *gin.Context, key string) (*bool, error) {
	raw, ok := c.GetPostForm(key)
	if !ok || raw == "" {
		return queryBool(c, key)
	}
	return parseBool(key, raw)
}

func parseBool(key, raw string) (*bool, error) {
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, common.InvalidInputf("%s must be a boolean", key)
	}
	return &b, nil
}

func queryInt(c *gin.Context, key string, def int) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, common.InvalidInputf("%s must be an integer", key)
	}
	return n, nil
}
