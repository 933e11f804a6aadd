package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"gxpcheck-backend/models"
	"gxpcheck-backend/parser"
	"gxpcheck-backend/service"

	"github.com/gin-gonic/gin"
)

// Analyzer is the slice of the analysis service this handler drives
type Analyzer interface {
	Analyze(ctx context.Context, req service.AnalyzeRequest) (*models.AnalysisResult, error)
	AnalyzeBatch(ctx context.Context, files []service.AnalyzeRequest) []service.BatchEntry
}

// AnalysisHandler handles HTTP requests for document analysis
type AnalysisHandler struct {
	analyzer    Analyzer
	maxFileSize int64
}

// NewAnalysisHandler creates a new analysis handler. maxFileSize <= 0
// falls back to 10MB.
func NewAnalysisHandler(analyzer Analyzer, maxFileSize int64) *AnalysisHandler {
	if maxFileSize <= 0 {
		maxFileSize = 10 * 1024 * 1024
	}
	return &AnalysisHandler{
		analyzer:    analyzer,
		maxFileSize: maxFileSize,
	}
}

// AnalyzeSOP handles POST /analyze-sop/
func (h *AnalysisHandler) AnalyzeSOP(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "MISSING_FILE",
				"message": "File is required",
			},
		})
		return
	}

	if code, message := h.validateUpload(fileHeader.Filename, fileHeader.Size); code != "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    code,
				"message": message,
			},
		})
		return
	}

	data, err := readUpload(fileHeader)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "FILE_READ_ERROR",
				"message": err.Error(),
			},
		})
		return
	}

	result, err := h.analyzer.Analyze(c.Request.Context(), service.AnalyzeRequest{
		Filename: fileHeader.Filename,
		Data:     data,
	})
	if err != nil {
		status, code := http.StatusInternalServerError, "ANALYSIS_FAILED"
		switch {
		case errors.Is(err, parser.ErrUnsupportedFormat):
			status, code = http.StatusBadRequest, "UNSUPPORTED_FORMAT"
		case errors.Is(err, parser.ErrCorruptDocument):
			status, code = http.StatusBadRequest, "CORRUPT_DOCUMENT"
		}
		c.JSON(status, gin.H{
			"success": false,
			"error": gin.H{
				"code":    code,
				"message": err.Error(),
			},
		})
		return
	}

	c.JSON(http.StatusOK, result)
}

// AnalyzeBatch handles POST /analyze-sop/batch. The response carries one
// entry per submitted file; a file that fails validation or parsing gets
// an error entry without blocking its siblings.
func (h *AnalysisHandler) AnalyzeBatch(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_FORM",
				"message": err.Error(),
			},
		})
		return
	}
	fileHeaders := form.File["files"]
	if len(fileHeaders) == 0 {
		fileHeaders = form.File["file"]
	}
	if len(fileHeaders) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "MISSING_FILE",
				"message": "At least one file is required",
			},
		})
		return
	}

	entries := make([]service.BatchEntry, len(fileHeaders))
	var accepted []service.AnalyzeRequest
	var acceptedAt []int
	for i, fileHeader := range fileHeaders {
		entries[i].Filename = fileHeader.Filename

		if code, message := h.validateUpload(fileHeader.Filename, fileHeader.Size); code != "" {
			entries[i].Error = &service.BatchError{
				Stage:   string(service.StageReceived),
				Message: message,
			}
			continue
		}
		data, err := readUpload(fileHeader)
		if err != nil {
			entries[i].Error = &service.BatchError{
				Stage:   string(service.StageReceived),
				Message: err.Error(),
			}
			continue
		}
		accepted = append(accepted, service.AnalyzeRequest{
			Filename: fileHeader.Filename,
			Data:     data,
		})
		acceptedAt = append(acceptedAt, i)
	}

	for i, entry := range h.analyzer.AnalyzeBatch(c.Request.Context(), accepted) {
		entries[acceptedAt[i]] = entry
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"results": entries,
	})
}

// validateUpload enforces the size limit and PDF/DOCX-only policy before
// any bytes are read. Returns an empty code when the upload is acceptable.
func (h *AnalysisHandler) validateUpload(filename string, size int64) (code, message string) {
	if size > h.maxFileSize {
		return "FILE_TOO_LARGE", fmt.Sprintf("File size exceeds maximum of %d bytes", h.maxFileSize)
	}
	lower := strings.ToLower(filename)
	if !strings.HasSuffix(lower, ".pdf") && !strings.HasSuffix(lower, ".docx") {
		return "INVALID_FILE_TYPE", "Only DOCX and PDF files are supported"
	}
	return "", ""
}

func readUpload(fileHeader *multipart.FileHeader) ([]byte, error) {
	file, err := fileHeader.Open()
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return io.ReadAll(file)
}
