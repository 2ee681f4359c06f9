package v1

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/pcprep/pcprep-api/internal/api/handler/v1/response"
	"github.com/pcprep/pcprep-api/internal/domain"
	"github.com/pcprep/pcprep-api/internal/report"
)

type ReportHandler struct {
	events EventService
	uSvc   UserGetter
	loc    *time.Location
}

func NewReportHandler(events EventService, uSvc UserGetter, loc *time.Location) *ReportHandler {
	if loc == nil {
		loc = time.UTC
	}

	return &ReportHandler{
		events: events,
		uSvc:   uSvc,
		loc:    loc,
	}
}

// HandleReportCSV godoc
// @Summary      Export the verification state of an event as CSV
// @Tags         reports
// @Produce      text/csv
// @Param        eventID  path      int  true  "event id"
// @Success      200      {file}    file
// @Failure      404      {object}  response.Err
// @Router       /events/{eventID}/report.csv [get]
// @Security BearerAuth
func (h *ReportHandler) HandleReportCSV(ctx *gin.Context) {
	event, tree, ok := h.load(ctx, "v1.HandleReportCSV")
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := report.WriteCSV(&buf, tree, h.loc); err != nil {
		response.RenderErr(ctx, response.ErrInternalServerError(fmt.Errorf("v1.HandleReportCSV -> report.WriteCSV -> %w", err)))
		return
	}

	h.attach(ctx, report.Filename(event, "csv"), "text/csv; charset=utf-8", buf.Bytes())
}

// HandleReportPDF godoc
// @Summary      Export the verification state of an event as PDF
// @Tags         reports
// @Produce      application/pdf
// @Param        eventID  path      int  true  "event id"
// @Success      200      {file}    file
// @Failure      404      {object}  response.Err
// @Router       /events/{eventID}/report.pdf [get]
// @Security BearerAuth
func (h *ReportHandler) HandleReportPDF(ctx *gin.Context) {
	event, tree, ok := h.load(ctx, "v1.HandleReportPDF")
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := report.WritePDF(&buf, event, tree, h.loc); err != nil {
		response.RenderErr(ctx, response.ErrInternalServerError(fmt.Errorf("v1.HandleReportPDF -> report.WritePDF -> %w", err)))
		return
	}

	h.attach(ctx, report.Filename(event, "pdf"), "application/pdf", buf.Bytes())
}

// HandleLogsCSV godoc
// @Summary      Export the whole log of an event as CSV
// @Tags         reports
// @Produce      text/csv
// @Param        eventID  path      int  true  "event id"
// @Success      200      {file}    file
// @Failure      404      {object}  response.Err
// @Router       /events/{eventID}/logs.csv [get]
// @Security BearerAuth
func (h *ReportHandler) HandleLogsCSV(ctx *gin.Context) {
	if _, ok := requireUser(ctx, h.uSvc); !ok {
		return
	}

	eventID, ok := parseIDParam(ctx, "eventID")
	if !ok {
		return
	}

	event, entries, err := h.events.LogHistory(ctx.Request.Context(), eventID)
	if err != nil {
		renderServiceErr(ctx, "v1.HandleLogsCSV -> h.events.LogHistory", err)
		return
	}

	var buf bytes.Buffer
	if err := report.WriteLogsCSV(&buf, entries, h.loc); err != nil {
		response.RenderErr(ctx, response.ErrInternalServerError(fmt.Errorf("v1.HandleLogsCSV -> report.WriteLogsCSV -> %w", err)))
		return
	}

	h.attach(ctx, report.LogsFilename(event), "text/csv; charset=utf-8", buf.Bytes())
}

func (h *ReportHandler) load(ctx *gin.Context, op string) (domain.Event, domain.EventTree, bool) {
	if _, ok := requireUser(ctx, h.uSvc); !ok {
		return domain.Event{}, domain.EventTree{}, false
	}

	eventID, ok := parseIDParam(ctx, "eventID")
	if !ok {
		return domain.Event{}, domain.EventTree{}, false
	}

	event, tree, err := h.events.Tree(ctx.Request.Context(), eventID)
	if err != nil {
		renderServiceErr(ctx, op+" -> h.events.Tree", err)
		return domain.Event{}, domain.EventTree{}, false
	}

	return event, tree, true
}

func (h *ReportHandler) attach(ctx *gin.Context, filename, contentType string, body []byte) {
	ctx.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	ctx.Data(http.StatusOK, contentType, body)
}
