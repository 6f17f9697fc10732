package service

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/BaSui01/contentcycle/store"
	"github.com/BaSui01/contentcycle/types"
)

// PersonaRequest 新建/更新画像的入参。
type PersonaRequest struct {
	Type         types.PersonaType `json:"type"`
	Name         string            `json:"name"`
	Description  string            `json:"description"`
	SystemPrompt string            `json:"systemPrompt"`
}

func (r *PersonaRequest) validate() error {
	if r.Type != types.PersonaTargetMarket && r.Type != types.PersonaRandom {
		return types.NewErrorf(types.ErrInvalidRequest, "unknown persona type %q", r.Type).WithHTTPStatus(400)
	}
	if strings.TrimSpace(r.Name) == "" {
		return types.NewError(types.ErrInvalidRequest, "name is required").WithHTTPStatus(400)
	}
	if strings.TrimSpace(r.SystemPrompt) == "" {
		return types.NewError(types.ErrInvalidRequest, "systemPrompt is required").WithHTTPStatus(400)
	}
	return nil
}

// CreatePersona 新建画像。
func (s *Service) CreatePersona(ctx context.Context, req PersonaRequest) (*store.Persona, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	p := &store.Persona{
		ID:           "persona-" + uuid.NewString()[:8],
		Type:         req.Type,
		Name:         req.Name,
		Description:  req.Description,
		SystemPrompt: req.SystemPrompt,
	}
	if err := s.store.CreatePersona(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// UpdatePersona 更新画像。
func (s *Service) UpdatePersona(ctx context.Context, id string, req PersonaRequest) (*store.Persona, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	p, err := s.store.GetPersona(ctx, id)
	if err != nil {
		return nil, err
	}
	p.Type = req.Type
	p.Name = req.Name
	p.Description = req.Description
	p.SystemPrompt = req.SystemPrompt
	if err := s.store.UpdatePersona(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// GetPersona 按 ID 取画像。
func (s *Service) GetPersona(ctx context.Context, id string) (*store.Persona, error) {
	return s.store.GetPersona(ctx, id)
}

// ListPersonas 列出画像，typ 为空返回全部。
func (s *Service) ListPersonas(ctx context.Context, typ types.PersonaType) ([]store.Persona, error) {
	return s.store.ListPersonas(ctx, typ)
}

// DeletePersona 删除画像，内置种子画像不可删。
func (s *Service) DeletePersona(ctx context.Context, id string) error {
	return s.store.DeletePersona(ctx, id)
}

// seedPersonas 内置的种子画像：三个目标受众与两个随机大众。
var seedPersonas = []store.Persona{
	{
		ID:          "persona-startup-founder",
		Type:        types.PersonaTargetMarket,
		Name:        "Maya, startup founder",
		Description: "Time-poor founder scanning for immediate, practical value.",
		SystemPrompt: "You are Maya, a 34-year-old startup founder with very little spare time. " +
			"You skim content first and only read deeply when the value is obvious. " +
			"You dislike fluff, buzzwords, and burying the point. You reward concrete examples and clear structure. " +
			"Evaluate content strictly from this perspective and be specific about what would make you stop reading.",
	},
	{
		ID:          "persona-marketing-lead",
		Type:        types.PersonaTargetMarket,
		Name:        "Daniel, marketing lead",
		Description: "B2B marketing lead judging persuasion and positioning.",
		SystemPrompt: "You are Daniel, a 41-year-old B2B marketing lead. You evaluate content for persuasion: " +
			"is the value proposition sharp, is the audience obvious, does the call to action land? " +
			"You notice weak hooks and generic claims instantly. Give honest ratings and name the exact sentences that work or fail.",
	},
	{
		ID:          "persona-senior-engineer",
		Type:        types.PersonaTargetMarket,
		Name:        "Priya, senior engineer",
		Description: "Skeptical engineer allergic to hype and vagueness.",
		SystemPrompt: "You are Priya, a 38-year-old senior software engineer. You distrust marketing language and " +
			"value precision, evidence, and honesty about trade-offs. Overclaiming loses you immediately. " +
			"Evaluate the content for technical credibility and say exactly where it overreaches or stays vague.",
	},
	{
		ID:          "persona-casual-reader",
		Type:        types.PersonaRandom,
		Name:        "Tom, casual reader",
		Description: "General reader encountering the content with zero context.",
		SystemPrompt: "You are Tom, a 52-year-old casual reader with no background in the content's subject. " +
			"You judge whether the content is understandable, interesting, and worth your attention without prior context. " +
			"Flag jargon and anything that assumes knowledge you do not have.",
	},
	{
		ID:          "persona-college-student",
		Type:        types.PersonaRandom,
		Name:        "Lena, college student",
		Description: "Short attention span, scrolls past anything slow.",
		SystemPrompt: "You are Lena, a 21-year-old college student who consumes most content on a phone. " +
			"If the first two sentences do not grab you, you scroll on. You like energy, brevity, and a human voice. " +
			"Rate the content on whether it would actually hold your attention and say what made you stay or leave.",
	},
}

// SeedPersonas 写入内置画像，已存在的 ID 跳过。返回新增数量。
func (s *Service) SeedPersonas(ctx context.Context) (int, error) {
	created := 0
	for _, p := range seedPersonas {
		if _, err := s.store.GetPersona(ctx, p.ID); err == nil {
			continue
		} else if types.GetErrorCode(err) != types.ErrPersonaNotFound {
			return created, err
		}
		p.Builtin = true
		if err := s.store.CreatePersona(ctx, &p); err != nil {
			return created, err
		}
		created++
	}
	if created > 0 {
		s.logger.Info("种子画像已写入", zap.Int("created", created))
	}
	return created, nil
}
