// Package handlers contains the HTTP handlers of the estimator API. Each
// handler owns a RegisterRoutes method that main passes to the server as a
// /v1 route registrar.
package handlers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"solarfarm/internal/core"
	"solarfarm/internal/estimator"
	"solarfarm/internal/report"
	"solarfarm/internal/sunlight"
	"solarfarm/internal/types"
)

// defaultSweepSteps applies when the steps query parameter is omitted.
const defaultSweepSteps = 20

// EstimateRecorder counts estimates by outcome.
type EstimateRecorder interface {
	RecordEstimate(outcome string)
}

// EstimateHandler serves estimates, batches, sweeps and the model and
// parameter metadata.
type EstimateHandler struct {
	model     estimator.Model
	lookup    sunlight.Lookup
	validator *core.Validator
	metrics   EstimateRecorder
	logger    *slog.Logger
}

// NewEstimateHandler creates an EstimateHandler. lookup and metrics may be
// nil; without a lookup, requests that name a city_id are rejected.
func NewEstimateHandler(
	model estimator.Model,
	lookup sunlight.Lookup,
	val *core.Validator,
	metrics EstimateRecorder,
	logger *slog.Logger,
) *EstimateHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &EstimateHandler{
		model:     model,
		lookup:    lookup,
		validator: val,
		metrics:   metrics,
		logger:    logger,
	}
}

// RegisterRoutes mounts the estimate endpoints.
func (h *EstimateHandler) RegisterRoutes(r chi.Router) {
	r.Post("/estimates", h.HandleEstimate)
	r.Post("/estimates/batch", h.HandleBatch)
	r.Get("/estimates/sweep", h.HandleSweep)
	r.Get("/model", h.HandleGetModel)
	r.Get("/parameters", h.HandleListParameters)
	r.Get("/parameters/{key}", h.HandleGetParameter)
}

// EstimateResponse is the data of a successful POST /v1/estimates.
type EstimateResponse struct {
	CityID  string            `json:"city_id,omitempty"`
	Input   estimator.Input   `json:"input"`
	Result  *estimator.Result `json:"result"`
	Summary []report.Line     `json:"summary"`
	Badges  []report.Badge    `json:"badges"`
	Chart   report.Chart      `json:"chart"`
}

// HandleEstimate handles POST /v1/estimates.
//  1. Decode and validate the body.
//  2. Resolve sunlight_hours from city_id when it is absent.
//  3. Estimate and render the summary, badges and chart, or a PDF report
//     when format=pdf.
func (h *EstimateHandler) HandleEstimate(w http.ResponseWriter, r *http.Request) {
	var req EstimateRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}

	warnings, err := h.validate(&req)
	if err != nil {
		h.record(types.OutcomeInvalid)
		core.Error(w, r, err)
		return
	}

	in, err := h.resolveInput(r.Context(), &req)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	res, err := estimator.Estimate(h.model, in)
	if err != nil {
		h.recordFailure(r.Context(), err)
		core.Error(w, r, err)
		return
	}
	h.recordResult(res)

	if r.URL.Query().Get("format") == "pdf" {
		title := report.ChartTitle
		if req.CityID != "" {
			title += " - " + req.CityID
		}
		h.attachment(w, r, report.PDFContentType, "estimate.pdf", func(w io.Writer) error {
			return report.WriteSummaryPDF(w, title, in, res)
		})
		return
	}

	for _, wn := range res.Warnings {
		warnings = append(warnings, wn.Message)
	}

	core.JSON(w, r, http.StatusOK, core.APIResponse{
		Data: EstimateResponse{
			CityID:  req.CityID,
			Input:   in,
			Result:  res,
			Summary: report.Summarize(in, res),
			Badges:  report.Badges(in),
			Chart:   report.BuildChart(res),
		},
		Meta: metaWithWarnings(warnings),
	})
}

// HandleBatch handles POST /v1/estimates/batch. Scenarios that fail
// validation or city lookup are reported as failed items; the rest are
// estimated concurrently. The response keeps request order.
func (h *EstimateHandler) HandleBatch(w http.ResponseWriter, r *http.Request) {
	var req BatchRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}

	if len(req.Scenarios) > estimator.MaxBatchSize {
		core.Error(w, r, types.NewAppErrorWithDetails(
			types.ErrCodeValidationBatchSize,
			fmt.Sprintf("batch size exceeds maximum of %d scenarios", estimator.MaxBatchSize),
			nil,
			map[string]any{"max": estimator.MaxBatchSize, "got": len(req.Scenarios)},
		))
		return
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		core.Error(w, r, err)
		return
	}

	ctx := r.Context()
	items := make([]estimator.BatchItem, len(req.Scenarios))
	inputs := make([]estimator.Input, 0, len(req.Scenarios))
	positions := make([]int, 0, len(req.Scenarios))

	for i := range req.Scenarios {
		scenario := &req.Scenarios[i]
		_, err := h.validate(scenario)
		var in estimator.Input
		if err == nil {
			in, err = h.resolveInput(ctx, scenario)
		}
		if err != nil {
			h.record(types.OutcomeInvalid)
			items[i] = estimator.BatchItem{Index: i, ID: uuid.NewString(), Error: estimator.NewItemError(err)}
			continue
		}
		inputs = append(inputs, in)
		positions = append(positions, i)
	}

	if len(inputs) > 0 {
		evaluated, err := estimator.EstimateBatch(ctx, h.model, inputs)
		if err != nil {
			core.Error(w, r, err)
			return
		}
		for j, item := range evaluated {
			item.Index = positions[j]
			items[item.Index] = item
			if item.Error != nil {
				h.recordFailure(ctx, item.Error)
			} else {
				h.recordResult(item.Result)
			}
		}
	}

	failed := 0
	for _, item := range items {
		if item.Error != nil {
			failed++
		}
	}

	core.JSON(w, r, http.StatusOK, core.APIResponse{
		Data: items,
		Meta: &core.ResponseMeta{Count: len(items), Failed: failed},
	})
}

// HandleSweep handles GET /v1/estimates/sweep?param=land_area&steps=20.
// The sweep starts from the default scenario. format=csv and format=xlsx
// return a file download instead of JSON.
func (h *EstimateHandler) HandleSweep(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	param := q.Get("param")
	if param == "" {
		core.Error(w, r, types.NewAppError(
			types.ErrCodeValidationMissingField,
			"param query parameter is required",
			nil,
		))
		return
	}

	steps := defaultSweepSteps
	if s := q.Get("steps"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			core.Error(w, r, types.NewAppError(
				types.ErrCodeValidationInvalidInput,
				"steps must be an integer",
				nil,
			))
			return
		}
		steps = n
	}

	format := q.Get("format")
	switch format {
	case "", "json", "csv", "xlsx":
	default:
		core.Error(w, r, types.NewAppError(
			types.ErrCodeValidationInvalidInput,
			"format must be json, csv or xlsx",
			nil,
		))
		return
	}

	series, err := estimator.Sweep(h.model, estimator.DefaultInput(), param, steps)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	switch format {
	case "csv":
		h.attachment(w, r, "text/csv; charset=utf-8", "sweep-"+param+".csv", func(w io.Writer) error {
			return report.WriteSweepCSV(w, series)
		})
	case "xlsx":
		h.attachment(w, r, report.XLSXContentType, "sweep-"+param+".xlsx", func(w io.Writer) error {
			return report.WriteSweepXLSX(w, series)
		})
	default:
		core.JSON(w, r, http.StatusOK, core.APIResponse{
			Data: series,
			Meta: &core.ResponseMeta{Count: len(series.Points)},
		})
	}
}

// attachment renders a file download into memory before any header is
// written; a render failure becomes a JSON error instead.
func (h *EstimateHandler) attachment(w http.ResponseWriter, r *http.Request, contentType, filename string, render func(io.Writer) error) {
	var buf bytes.Buffer
	if err := render(&buf); err != nil {
		types.LoggerFromContext(r.Context(), h.logger).Error("failed to render attachment", "filename", filename, "error", err)
		core.Error(w, r, err)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// HandleGetModel handles GET /v1/model.
func (h *EstimateHandler) HandleGetModel(w http.ResponseWriter, r *http.Request) {
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: h.model})
}

// HandleListParameters handles GET /v1/parameters.
func (h *EstimateHandler) HandleListParameters(w http.ResponseWriter, r *http.Request) {
	params := estimator.Parameters()
	core.JSON(w, r, http.StatusOK, core.APIResponse{
		Data: params,
		Meta: &core.ResponseMeta{Count: len(params)},
	})
}

// HandleGetParameter handles GET /v1/parameters/{key}.
func (h *EstimateHandler) HandleGetParameter(w http.ResponseWriter, r *http.Request) {
	p, err := estimator.Describe(chi.URLParam(r, "key"))
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: p})
}

// validate runs struct validation plus the sunlight source rule and
// returns the advisory warnings.
func (h *EstimateHandler) validate(req *EstimateRequest) ([]string, error) {
	res := h.validator.ValidateStructWithWarnings(req)
	if !res.IsValid() {
		return nil, types.NewAppErrorWithDetails(
			types.ErrorCode(res.Errors[0].Code),
			res.Errors[0].Message,
			nil,
			map[string]any{"validation_errors": res.Errors},
		)
	}
	if err := req.checkSunlightSource(); err != nil {
		return nil, err
	}
	return res.Warnings, nil
}

// resolveInput fills sunlight_hours from the city lookup when needed.
func (h *EstimateHandler) resolveInput(ctx context.Context, req *EstimateRequest) (estimator.Input, error) {
	if !req.needsSunlight() {
		return req.ToInput(0), nil
	}
	if h.lookup == nil {
		return estimator.Input{}, types.NewAppError(
			types.ErrCodeValidationInvalidInput,
			"city lookup is not available; send sunlight_hours instead",
			nil,
		)
	}

	hours, err := h.lookup.SunlightHours(ctx, req.CityID)
	if err != nil {
		return estimator.Input{}, err
	}
	return req.ToInput(hours), nil
}

func (h *EstimateHandler) recordResult(res *estimator.Result) {
	if res.PayoffStatus == estimator.PayoffNever {
		h.record(types.OutcomeNever)
		return
	}
	h.record(types.OutcomeOK)
}

func (h *EstimateHandler) recordFailure(ctx context.Context, err error) {
	logger := types.LoggerFromContext(ctx, h.logger)
	if errors.Is(err, estimator.ErrZeroRevenue) {
		h.record(types.OutcomeZeroRevenue)
		logger.Warn("estimate has zero revenue", "error", err)
		return
	}
	h.record(types.OutcomeInvalid)
	logger.Warn("estimate rejected", "error", err)
}

func (h *EstimateHandler) record(outcome string) {
	if h.metrics != nil {
		h.metrics.RecordEstimate(outcome)
	}
}

func metaWithWarnings(warnings []string) *core.ResponseMeta {
	if len(warnings) == 0 {
		return nil
	}
	return &core.ResponseMeta{Warnings: warnings}
}
