package importfile

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"labstock/internal/bulkimport"
	custom_error "labstock/pkg/errors"
	"labstock/pkg/roles"
	"labstock/pkg/security"

	"github.com/gin-gonic/gin"
)

const maxUploadBytes = 10 << 20 // 10 MiB

// Handler exposes the two-phase import flow: upload runs a dry run and
// stages the parsed rows under a handle, commit replays the staged batch for
// real. Export and template downloads share the same schema.
type Handler struct {
	Importer *bulkimport.Importer
	Exporter *bulkimport.Exporter
	Staging  *bulkimport.Staging
}

func NewHandler(importer *bulkimport.Importer, exporter *bulkimport.Exporter) *Handler {
	return &Handler{
		Importer: importer,
		Exporter: exporter,
		Staging:  bulkimport.NewStaging(30 * time.Minute),
	}
}

func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	router.POST("/equipment/import", security.Authorize(roles.CapBulkImport), h.Upload)
	router.POST("/equipment/import/:handle/commit", security.Authorize(roles.CapBulkImport), h.Commit)
	router.GET("/equipment/import/template", security.Authorize(roles.CapRead), h.Template)
	router.GET("/equipment/export", security.Authorize(roles.CapRead), h.Export)
}

// Upload parses the file, validates every row and stages the batch. Nothing
// is written; the response carries the dry-run outcome and, when any row was
// accepted, the handle to commit with.
func (h *Handler) Upload(c *gin.Context) {
	actorID, err := security.CurrentUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing file upload"})
		return
	}
	if fileHeader.Size > maxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "File too large"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unable to read upload"})
		return
	}
	defer file.Close()

	payload, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unable to read upload"})
		return
	}

	rows, err := Parse(fileHeader.Filename, payload)
	if err != nil {
		if errors.Is(err, ErrUnsupportedFormat) {
			c.JSON(http.StatusUnsupportedMediaType, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.Importer.Run(rows, actorID, true, 1)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Validation failed", "details": err.Error()})
		return
	}

	response := gin.H{"result": result}
	if result.Accepted > 0 {
		response["handle"] = h.Staging.Stage(rows)
	}

	c.JSON(http.StatusOK, response)
}

// Commit replays a staged batch and persists it in one transaction. Rows are
// re-validated so changes made since the dry run still get caught.
func (h *Handler) Commit(c *gin.Context) {
	actorID, err := security.CurrentUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
		return
	}

	handle := c.Param("handle")
	rows, found := h.Staging.Fetch(handle)
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "Unknown or expired import handle"})
		return
	}

	result, err := h.Importer.Run(rows, actorID, false, 1)
	if err != nil {
		var persistenceErr *custom_error.PersistenceError
		if errors.As(err, &persistenceErr) {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Import failed, no rows were written", "result": result})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error(), "result": result})
		return
	}

	h.Staging.Discard(handle)
	c.JSON(http.StatusOK, gin.H{"result": result})
}

func (h *Handler) Template(c *gin.Context) {
	h.writeFile(c, nil, "equipment_template")
}

func (h *Handler) Export(c *gin.Context) {
	rows, err := h.Exporter.Rows()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Export failed", "details": err.Error()})
		return
	}

	name := fmt.Sprintf("equipment_export_%s", time.Now().Format("2006-01-02"))
	h.writeFile(c, rows, name)
}

func (h *Handler) writeFile(c *gin.Context, rows []bulkimport.Row, basename string) {
	format := c.DefaultQuery("format", "csv")
	switch format {
	case "csv":
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s.csv", basename))
		c.Header("Content-Type", "text/csv")
		if err := WriteCSV(c.Writer, rows); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to write file"})
		}
	case "xlsx":
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s.xlsx", basename))
		c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		if err := WriteExcel(c.Writer, rows); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to write file"})
		}
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown format", "details": format})
	}
}
