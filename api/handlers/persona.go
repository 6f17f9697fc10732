package handlers

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/BaSui01/contentcycle/service"
	"github.com/BaSui01/contentcycle/types"
)

// =============================================================================
// Persona Management Handler
// =============================================================================

// PersonaHandler 评审画像管理处理器
type PersonaHandler struct {
	svc    *service.Service
	logger *zap.Logger
}

// NewPersonaHandler 创建画像处理器
func NewPersonaHandler(svc *service.Service, logger *zap.Logger) *PersonaHandler {
	return &PersonaHandler{svc: svc, logger: logger}
}

// =============================================================================
// HTTP Handlers
// =============================================================================

// HandleListPersonas 列出画像
// @Summary 画像列表
// @Tags persona
// @Produce json
// @Param type query string false "画像类型 target_market|random"
// @Success 200 {object} Response "画像列表"
// @Router /v1/personas [get]
func (h *PersonaHandler) HandleListPersonas(w http.ResponseWriter, r *http.Request) {
	typ := types.PersonaType(r.URL.Query().Get("type"))
	personas, err := h.svc.ListPersonas(r.Context(), typ)
	if err != nil {
		WriteFromError(w, err, h.logger)
		return
	}
	WriteSuccess(w, personas)
}

// HandleGetPersona 获取单个画像
// @Summary 获取画像
// @Tags persona
// @Produce json
// @Param id path string true "画像 ID"
// @Success 200 {object} Response "画像"
// @Failure 404 {object} Response "画像不存在"
// @Router /v1/personas/{id} [get]
func (h *PersonaHandler) HandleGetPersona(w http.ResponseWriter, r *http.Request) {
	id := extractPersonaID(r)
	if id == "" {
		WriteErrorMessage(w, http.StatusBadRequest, types.ErrInvalidRequest, "persona ID is required", h.logger)
		return
	}

	p, err := h.svc.GetPersona(r.Context(), id)
	if err != nil {
		WriteFromError(w, err, h.logger)
		return
	}
	WriteSuccess(w, p)
}

// HandleCreatePersona 创建画像
// @Summary 创建画像
// @Tags persona
// @Accept json
// @Produce json
// @Param request body service.PersonaRequest true "画像定义"
// @Success 201 {object} Response "新建的画像"
// @Failure 400 {object} Response "参数错误"
// @Router /v1/personas [post]
func (h *PersonaHandler) HandleCreatePersona(w http.ResponseWriter, r *http.Request) {
	var req service.PersonaRequest
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}

	p, err := h.svc.CreatePersona(r.Context(), req)
	if err != nil {
		WriteFromError(w, err, h.logger)
		return
	}
	WriteCreated(w, p)
}

// HandleUpdatePersona 更新画像
// @Summary 更新画像
// @Tags persona
// @Accept json
// @Produce json
// @Param id path string true "画像 ID"
// @Param request body service.PersonaRequest true "画像定义"
// @Success 200 {object} Response "更新后的画像"
// @Failure 404 {object} Response "画像不存在"
// @Router /v1/personas/{id} [put]
func (h *PersonaHandler) HandleUpdatePersona(w http.ResponseWriter, r *http.Request) {
	id := extractPersonaID(r)
	if id == "" {
		WriteErrorMessage(w, http.StatusBadRequest, types.ErrInvalidRequest, "persona ID is required", h.logger)
		return
	}

	var req service.PersonaRequest
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}

	p, err := h.svc.UpdatePersona(r.Context(), id, req)
	if err != nil {
		WriteFromError(w, err, h.logger)
		return
	}
	WriteSuccess(w, p)
}

// HandleDeletePersona 删除画像（内置画像不可删）
// @Summary 删除画像
// @Tags persona
// @Produce json
// @Param id path string true "画像 ID"
// @Success 200 {object} Response "已删除"
// @Failure 400 {object} Response "内置画像不可删"
// @Failure 404 {object} Response "画像不存在"
// @Router /v1/personas/{id} [delete]
func (h *PersonaHandler) HandleDeletePersona(w http.ResponseWriter, r *http.Request) {
	id := extractPersonaID(r)
	if id == "" {
		WriteErrorMessage(w, http.StatusBadRequest, types.ErrInvalidRequest, "persona ID is required", h.logger)
		return
	}

	if err := h.svc.DeletePersona(r.Context(), id); err != nil {
		WriteFromError(w, err, h.logger)
		return
	}
	WriteSuccess(w, map[string]string{"deleted": id})
}

// extractPersonaID extracts the persona ID from the URL path.
func extractPersonaID(r *http.Request) string {
	if id := r.PathValue("id"); id != "" {
		return id
	}
	path := strings.TrimPrefix(r.URL.Path, "/v1/personas/")
	if path != "" && path != r.URL.Path && !strings.Contains(path, "/") {
		return path
	}
	return ""
}
