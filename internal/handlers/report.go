package handlers

import (
	"github.com/gofiber/fiber/v2"

	"amlguard/internal/services/report"
	"amlguard/internal/utils"
)

// MaxUploadBytes bounds multipart uploads; set as fiber's BodyLimit too.
const MaxUploadBytes = 10 << 20

type ReportHandler struct {
	reportService *report.Service
}

func NewReportHandler(reportService *report.Service) *ReportHandler {
	return &ReportHandler{reportService: reportService}
}

// Export sends every transaction with its assessment as a CSV attachment.
func (h *ReportHandler) Export(c *fiber.Ctx) error {
	if _, err := h.reportService.Export(c.UserContext(), c.Response().BodyWriter()); err != nil {
		c.Response().ResetBody()
		return respondError(c, err, "failed to export transactions")
	}

	c.Attachment(report.ExportFilename)
	c.Set(fiber.HeaderContentType, "text/csv; charset=utf-8")
	return nil
}

// Upload ingests the multipart field "file". The format comes from the
// file extension unless ?format= overrides it.
func (h *ReportHandler) Upload(c *fiber.Ctx) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return utils.BadRequest(c, "multipart field \"file\" is required")
	}
	if fh.Size > MaxUploadBytes {
		return utils.BadRequest(c, "file too large")
	}

	format := c.Query("format")
	if format == "" {
		if format, err = report.FormatFromFilename(fh.Filename); err != nil {
			return respondError(c, err, "failed to detect upload format")
		}
	}

	file, err := fh.Open()
	if err != nil {
		return respondError(c, err, "failed to open upload")
	}
	defer file.Close()

	result, err := h.reportService.Upload(c.UserContext(), file, format)
	if err != nil {
		return respondError(c, err, "failed to process upload")
	}
	return utils.Created(c, result)
}
