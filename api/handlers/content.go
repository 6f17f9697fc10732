package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/BaSui01/contentcycle/internal/metrics"
	"github.com/BaSui01/contentcycle/orchestrator"
	"github.com/BaSui01/contentcycle/service"
	"github.com/BaSui01/contentcycle/types"
)

// =============================================================================
// Content Iteration Handler
// =============================================================================

// ContentHandler 内容迭代处理器
type ContentHandler struct {
	svc       *service.Service
	orch      *orchestrator.Orchestrator
	collector *metrics.Collector
	logger    *zap.Logger
}

// NewContentHandler 创建内容处理器
func NewContentHandler(svc *service.Service, orch *orchestrator.Orchestrator, collector *metrics.Collector, logger *zap.Logger) *ContentHandler {
	return &ContentHandler{
		svc:       svc,
		orch:      orch,
		collector: collector,
		logger:    logger,
	}
}

// RunFocusGroupRequest 焦点小组评估请求
type RunFocusGroupRequest struct {
	PersonaIDs []string `json:"personaIds,omitempty"`
}

// RunEditorRequest 编辑修订请求
type RunEditorRequest struct {
	EditorInstructions   string   `json:"editorInstructions,omitempty"`
	SelectedParticipants []string `json:"selectedParticipants,omitempty"`
}

// OrchestrateRequest 自治编排请求
type OrchestrateRequest struct {
	TargetRating       float64  `json:"targetRating"`
	MaxCycles          int      `json:"maxCycles"`
	PersonaIDs         []string `json:"personaIds,omitempty"`
	EditorInstructions string   `json:"editorInstructions,omitempty"`
}

// =============================================================================
// HTTP Handlers
// =============================================================================

// HandleCreateContent 创建内容并开启第一轮循环
// @Summary 创建内容
// @Tags content
// @Accept json
// @Produce json
// @Param request body service.CreateContentRequest true "创建请求"
// @Success 201 {object} Response "内容与首轮循环"
// @Failure 400 {object} Response "参数错误"
// @Router /v1/content [post]
func (h *ContentHandler) HandleCreateContent(w http.ResponseWriter, r *http.Request) {
	var req service.CreateContentRequest
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}

	state, err := h.svc.CreateContent(r.Context(), req)
	if err != nil {
		WriteFromError(w, err, h.logger)
		return
	}

	h.collector.ContentCreated()
	WriteCreated(w, state)
}

// HandleListContent 列出内容
// @Summary 内容列表
// @Tags content
// @Produce json
// @Param limit query int false "条数上限"
// @Param offset query int false "偏移"
// @Success 200 {object} Response "内容列表"
// @Router /v1/content [get]
func (h *ContentHandler) HandleListContent(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 50)
	offset := queryInt(r, "offset", 0)

	items, err := h.svc.ListContent(r.Context(), limit, offset)
	if err != nil {
		WriteFromError(w, err, h.logger)
		return
	}
	WriteSuccess(w, items)
}

// HandleGetContent 获取内容的迭代状态
// @Summary 迭代状态
// @Tags content
// @Produce json
// @Param id path string true "内容 ID"
// @Param cycle query int false "循环序号，缺省为最新一轮"
// @Success 200 {object} Response "迭代状态"
// @Failure 404 {object} Response "内容不存在"
// @Router /v1/content/{id} [get]
func (h *ContentHandler) HandleGetContent(w http.ResponseWriter, r *http.Request) {
	contentID := extractContentID(r)
	if contentID == "" {
		WriteErrorMessage(w, http.StatusBadRequest, types.ErrInvalidRequest, "content ID is required", h.logger)
		return
	}

	state, err := h.svc.GetIterationState(r.Context(), contentID, queryInt(r, "cycle", 0))
	if err != nil {
		WriteFromError(w, err, h.logger)
		return
	}
	WriteSuccess(w, state)
}

// HandleDeleteContent 删除内容及其全部循环
// @Summary 删除内容
// @Tags content
// @Produce json
// @Param id path string true "内容 ID"
// @Success 200 {object} Response "已删除"
// @Failure 404 {object} Response "内容不存在"
// @Router /v1/content/{id} [delete]
func (h *ContentHandler) HandleDeleteContent(w http.ResponseWriter, r *http.Request) {
	contentID := extractContentID(r)
	if contentID == "" {
		WriteErrorMessage(w, http.StatusBadRequest, types.ErrInvalidRequest, "content ID is required", h.logger)
		return
	}

	if err := h.svc.DeleteContent(r.Context(), contentID); err != nil {
		WriteFromError(w, err, h.logger)
		return
	}
	WriteSuccess(w, map[string]string{"deleted": contentID})
}

// HandleHistory 获取内容的完整迭代轨迹
// @Summary 迭代历史
// @Tags content
// @Produce json
// @Param id path string true "内容 ID"
// @Success 200 {object} Response "全部循环与反馈"
// @Failure 404 {object} Response "内容不存在"
// @Router /v1/content/{id}/history [get]
func (h *ContentHandler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	contentID := extractContentID(r)
	if contentID == "" {
		WriteErrorMessage(w, http.StatusBadRequest, types.ErrInvalidRequest, "content ID is required", h.logger)
		return
	}

	history, err := h.svc.History(r.Context(), contentID)
	if err != nil {
		WriteFromError(w, err, h.logger)
		return
	}
	WriteSuccess(w, history)
}

// HandleExport 导出内容的完整迭代记录为可下载文件
// @Summary 导出迭代记录
// @Tags content
// @Produce json
// @Param id path string true "内容 ID"
// @Param format query string false "导出格式，仅支持 json"
// @Success 200 {object} store.ContentHistory "完整迭代记录"
// @Failure 404 {object} Response "内容不存在"
// @Failure 501 {object} Response "不支持的格式"
// @Router /v1/content/{id}/export [get]
func (h *ContentHandler) HandleExport(w http.ResponseWriter, r *http.Request) {
	contentID := extractContentID(r)
	if contentID == "" {
		WriteErrorMessage(w, http.StatusBadRequest, types.ErrInvalidRequest, "content ID is required", h.logger)
		return
	}

	switch format := r.URL.Query().Get("format"); format {
	case "", "json":
	case "csv":
		WriteErrorMessage(w, http.StatusNotImplemented, types.ErrInvalidRequest, "csv export is not implemented", h.logger)
		return
	default:
		WriteErrorMessage(w, http.StatusBadRequest, types.ErrInvalidRequest, "unsupported export format: "+format, h.logger)
		return
	}

	history, err := h.svc.History(r.Context(), contentID)
	if err != nil {
		WriteFromError(w, err, h.logger)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", contentID+"-export.json"))
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(history); err != nil {
		h.logger.Error("导出编码失败", zap.String("content_id", contentID), zap.Error(err))
	}
}

// HandleRunFocusGroup 执行焦点小组评估
// @Summary 焦点小组评估
// @Tags cycle
// @Accept json
// @Produce json
// @Param id path string true "内容 ID"
// @Param request body RunFocusGroupRequest false "评估选项"
// @Success 200 {object} Response "聚合反馈"
// @Failure 409 {object} Response "循环状态不允许"
// @Router /v1/content/{id}/focus-group [post]
func (h *ContentHandler) HandleRunFocusGroup(w http.ResponseWriter, r *http.Request) {
	contentID := extractContentID(r)
	if contentID == "" {
		WriteErrorMessage(w, http.StatusBadRequest, types.ErrInvalidRequest, "content ID is required", h.logger)
		return
	}

	var req RunFocusGroupRequest
	if r.ContentLength > 0 {
		if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
			return
		}
	}

	state, err := h.svc.RunFocusGroup(r.Context(), contentID, service.RunFocusGroupOptions{
		PersonaIDs: req.PersonaIDs,
	})
	if err != nil {
		h.collector.FocusGroupRun("error")
		WriteFromError(w, err, h.logger)
		return
	}

	h.collector.FocusGroupRun("ok")
	if agg := state.Cycle.Aggregate; agg != nil {
		h.collector.RatingObserved(agg.AverageRating)
	}
	WriteSuccess(w, state)
}

// HandleRunEditor 执行主持人综述与编辑修订
// @Summary 编辑修订
// @Tags cycle
// @Accept json
// @Produce json
// @Param id path string true "内容 ID"
// @Param request body RunEditorRequest false "修订选项"
// @Success 200 {object} Response "修订结果"
// @Failure 409 {object} Response "循环状态不允许"
// @Router /v1/content/{id}/editor [post]
func (h *ContentHandler) HandleRunEditor(w http.ResponseWriter, r *http.Request) {
	contentID := extractContentID(r)
	if contentID == "" {
		WriteErrorMessage(w, http.StatusBadRequest, types.ErrInvalidRequest, "content ID is required", h.logger)
		return
	}

	var req RunEditorRequest
	if r.ContentLength > 0 {
		if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
			return
		}
	}

	state, err := h.svc.RunEditor(r.Context(), contentID, service.RunEditorOptions{
		Instructions:         req.EditorInstructions,
		SelectedParticipants: req.SelectedParticipants,
	})
	if err != nil {
		h.collector.EditorRun("error")
		WriteFromError(w, err, h.logger)
		return
	}

	h.collector.EditorRun("ok")
	WriteSuccess(w, state)
}

// HandleSubmitReview 提交人工评审决定
// @Summary 人工评审
// @Tags cycle
// @Accept json
// @Produce json
// @Param id path string true "内容 ID"
// @Param request body service.UserReviewRequest true "评审决定"
// @Success 200 {object} Response "评审后的状态"
// @Failure 409 {object} Response "循环状态不允许"
// @Router /v1/content/{id}/review [post]
func (h *ContentHandler) HandleSubmitReview(w http.ResponseWriter, r *http.Request) {
	contentID := extractContentID(r)
	if contentID == "" {
		WriteErrorMessage(w, http.StatusBadRequest, types.ErrInvalidRequest, "content ID is required", h.logger)
		return
	}

	var req service.UserReviewRequest
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}

	state, err := h.svc.SubmitUserReview(r.Context(), contentID, req)
	if err != nil {
		WriteFromError(w, err, h.logger)
		return
	}
	WriteSuccess(w, state)
}

// HandleOrchestrate 启动自治收敛循环
// @Summary 自治编排
// @Tags cycle
// @Accept json
// @Produce json
// @Param id path string true "内容 ID"
// @Param request body OrchestrateRequest true "编排参数"
// @Success 200 {object} Response "编排结论"
// @Failure 400 {object} Response "参数错误"
// @Router /v1/content/{id}/orchestrate [post]
func (h *ContentHandler) HandleOrchestrate(w http.ResponseWriter, r *http.Request) {
	contentID := extractContentID(r)
	if contentID == "" {
		WriteErrorMessage(w, http.StatusBadRequest, types.ErrInvalidRequest, "content ID is required", h.logger)
		return
	}

	var req OrchestrateRequest
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}

	result, err := h.orch.Run(r.Context(), orchestrator.Request{
		ContentID:          contentID,
		TargetRating:       req.TargetRating,
		MaxCycles:          req.MaxCycles,
		PersonaIDs:         req.PersonaIDs,
		EditorInstructions: req.EditorInstructions,
	})
	if err != nil {
		h.collector.OrchestrationFinished("error")
		WriteFromError(w, err, h.logger)
		return
	}

	h.collector.OrchestrationFinished(result.Reason)
	if result.State != nil {
		h.collector.RatingObserved(result.FinalRating)
	}
	WriteSuccess(w, result)
}

// =============================================================================
// Helper Functions
// =============================================================================

// queryInt 读取整型查询参数，缺省或非法时返回 def。
func queryInt(r *http.Request, key string, def int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}

// extractContentID extracts the content ID from the URL path.
// Supports both /v1/content/{id} (PathValue) and prefix trimming.
func extractContentID(r *http.Request) string {
	if id := r.PathValue("id"); id != "" {
		return id
	}
	path := strings.TrimPrefix(r.URL.Path, "/v1/content/")
	if path != "" && path != r.URL.Path {
		if i := strings.IndexByte(path, '/'); i >= 0 {
			path = path[:i]
		}
		return path
	}
	return ""
}
