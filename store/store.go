package store

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/BaSui01/contentcycle/types"
)

// TxRunner 执行一次事务闭包。注入自定义 Runner 可以在事务外层
// 附加重试等策略（见 internal/database 的 WithTransactionRetry）。
type TxRunner func(ctx context.Context, fn func(tx *gorm.DB) error) error

// Store 持久化入口。
type Store struct {
	db     *gorm.DB
	logger *zap.Logger
	txRun  TxRunner
}

// New 创建 Store。
func New(db *gorm.DB, logger *zap.Logger) *Store {
	return &Store{db: db, logger: logger.With(zap.String("component", "store"))}
}

// WithTxRunner 返回使用指定事务 Runner 的 Store 副本。
func (s *Store) WithTxRunner(run TxRunner) *Store {
	return &Store{db: s.db, logger: s.logger, txRun: run}
}

// AutoMigrate 建表与补列。
func (s *Store) AutoMigrate() error {
	return s.db.AutoMigrate(
		&ContentItem{},
		&Cycle{},
		&Persona{},
		&Feedback{},
	)
}

// WithTransaction 在事务中执行 fn，fn 收到绑定事务的 Store。
func (s *Store) WithTransaction(ctx context.Context, fn func(tx *Store) error) error {
	run := s.txRun
	if run == nil {
		run = func(ctx context.Context, inner func(tx *gorm.DB) error) error {
			return s.db.WithContext(ctx).Transaction(inner)
		}
	}
	return run(ctx, func(tx *gorm.DB) error {
		return fn(&Store{db: tx, logger: s.logger})
	})
}

// ===== 内容 =====

// CreateContent 新建内容。
func (s *Store) CreateContent(ctx context.Context, item *ContentItem) error {
	if err := s.db.WithContext(ctx).Create(item).Error; err != nil {
		return types.NewError(types.ErrInternalError, "create content failed").WithCause(err)
	}
	return nil
}

// GetContent 按 ID 取内容。
func (s *Store) GetContent(ctx context.Context, id string) (*ContentItem, error) {
	var item ContentItem
	err := s.db.WithContext(ctx).First(&item, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, types.NewErrorf(types.ErrContentNotFound, "content %s not found", id).WithHTTPStatus(404)
	}
	if err != nil {
		return nil, types.NewError(types.ErrInternalError, "get content failed").WithCause(err)
	}
	return &item, nil
}

// UpdateContent 全量保存内容。
func (s *Store) UpdateContent(ctx context.Context, item *ContentItem) error {
	if err := s.db.WithContext(ctx).Save(item).Error; err != nil {
		return types.NewError(types.ErrInternalError, "update content failed").WithCause(err)
	}
	return nil
}

// ListContent 按创建时间倒序分页列出内容。
func (s *Store) ListContent(ctx context.Context, limit, offset int) ([]ContentItem, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	var items []ContentItem
	err := s.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).Offset(offset).
		Find(&items).Error
	if err != nil {
		return nil, types.NewError(types.ErrInternalError, "list content failed").WithCause(err)
	}
	return items, nil
}

// DeleteContent 删除内容及其全部循环与反馈。
func (s *Store) DeleteContent(ctx context.Context, id string) error {
	return s.WithTransaction(ctx, func(tx *Store) error {
		var cycleIDs []string
		if err := tx.db.Model(&Cycle{}).Where("content_id = ?", id).Pluck("id", &cycleIDs).Error; err != nil {
			return types.NewError(types.ErrInternalError, "collect cycles failed").WithCause(err)
		}
		if len(cycleIDs) > 0 {
			if err := tx.db.Where("cycle_id IN ?", cycleIDs).Delete(&Feedback{}).Error; err != nil {
				return types.NewError(types.ErrInternalError, "delete feedback failed").WithCause(err)
			}
		}
		if err := tx.db.Where("content_id = ?", id).Delete(&Cycle{}).Error; err != nil {
			return types.NewError(types.ErrInternalError, "delete cycles failed").WithCause(err)
		}
		res := tx.db.Delete(&ContentItem{}, "id = ?", id)
		if res.Error != nil {
			return types.NewError(types.ErrInternalError, "delete content failed").WithCause(res.Error)
		}
		if res.RowsAffected == 0 {
			return types.NewErrorf(types.ErrContentNotFound, "content %s not found", id).WithHTTPStatus(404)
		}
		return nil
	})
}

// ===== 循环 =====

// CreateCycle 新建循环。
func (s *Store) CreateCycle(ctx context.Context, c *Cycle) error {
	if err := s.db.WithContext(ctx).Create(c).Error; err != nil {
		return types.NewError(types.ErrInternalError, "create cycle failed").WithCause(err)
	}
	return nil
}

// GetCycle 按内容与轮次取循环。
func (s *Store) GetCycle(ctx context.Context, contentID string, number int) (*Cycle, error) {
	var c Cycle
	err := s.db.WithContext(ctx).
		First(&c, "content_id = ? AND cycle_number = ?", contentID, number).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, types.NewErrorf(types.ErrCycleNotFound,
			"cycle %d not found for content %s", number, contentID).WithHTTPStatus(404)
	}
	if err != nil {
		return nil, types.NewError(types.ErrInternalError, "get cycle failed").WithCause(err)
	}
	return &c, nil
}

// GetCycleByID 按循环 ID 取循环。
func (s *Store) GetCycleByID(ctx context.Context, id string) (*Cycle, error) {
	var c Cycle
	err := s.db.WithContext(ctx).First(&c, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, types.NewErrorf(types.ErrCycleNotFound, "cycle %s not found", id).WithHTTPStatus(404)
	}
	if err != nil {
		return nil, types.NewError(types.ErrInternalError, "get cycle failed").WithCause(err)
	}
	return &c, nil
}

// LatestCycle 返回内容的最新一轮循环，无循环时返回 CYCLE_NOT_FOUND。
func (s *Store) LatestCycle(ctx context.Context, contentID string) (*Cycle, error) {
	var c Cycle
	err := s.db.WithContext(ctx).
		Where("content_id = ?", contentID).
		Order("cycle_number DESC").
		First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, types.NewErrorf(types.ErrCycleNotFound, "no cycles for content %s", contentID).WithHTTPStatus(404)
	}
	if err != nil {
		return nil, types.NewError(types.ErrInternalError, "latest cycle failed").WithCause(err)
	}
	return &c, nil
}

// ListCycles 按轮次升序列出内容的全部循环。
func (s *Store) ListCycles(ctx context.Context, contentID string) ([]Cycle, error) {
	var cycles []Cycle
	err := s.db.WithContext(ctx).
		Where("content_id = ?", contentID).
		Order("cycle_number ASC").
		Find(&cycles).Error
	if err != nil {
		return nil, types.NewError(types.ErrInternalError, "list cycles failed").WithCause(err)
	}
	return cycles, nil
}

// CountCycles 返回内容已有的循环数。
func (s *Store) CountCycles(ctx context.Context, contentID string) (int, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&Cycle{}).
		Where("content_id = ?", contentID).Count(&n).Error
	if err != nil {
		return 0, types.NewError(types.ErrInternalError, "count cycles failed").WithCause(err)
	}
	return int(n), nil
}

// UpdateCycle 全量保存循环。
func (s *Store) UpdateCycle(ctx context.Context, c *Cycle) error {
	if err := s.db.WithContext(ctx).Save(c).Error; err != nil {
		return types.NewError(types.ErrInternalError, "update cycle failed").WithCause(err)
	}
	return nil
}

// TransitionCycle 原子地把循环从 from 推进到 to 并追加状态历史。
// 当前状态不是 from 时返回 INVALID_TRANSITION。
// 转入 error 时 note 作为失败原因在同一笔写入中落到 ErrorMessage。
func (s *Store) TransitionCycle(ctx context.Context, cycleID string, from, to types.CycleStatus, note string) (*Cycle, error) {
	var out *Cycle
	err := s.WithTransaction(ctx, func(tx *Store) error {
		var c Cycle
		err := tx.db.First(&c, "id = ?", cycleID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return types.NewErrorf(types.ErrCycleNotFound, "cycle %s not found", cycleID).WithHTTPStatus(404)
		}
		if err != nil {
			return types.NewError(types.ErrInternalError, "load cycle failed").WithCause(err)
		}
		if c.Status != from {
			return types.NewErrorf(types.ErrInvalidTransition,
				"cycle %s is %s, expected %s", cycleID, c.Status, from).WithHTTPStatus(409)
		}
		c.Status = to
		if to == types.StatusError {
			c.ErrorMessage = note
		}
		c.StatusHistory = append(c.StatusHistory, StatusChange{Status: to, At: time.Now().UTC(), Note: note})
		if err := tx.db.Save(&c).Error; err != nil {
			return types.NewError(types.ErrInternalError, "save transition failed").WithCause(err)
		}
		out = &c
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("循环状态转移",
		zap.String("cycle_id", cycleID),
		zap.String("from", string(from)),
		zap.String("to", string(to)))
	return out, nil
}

// AddCycleCosts 累加循环的 token 与费用。
func (s *Store) AddCycleCosts(ctx context.Context, cycleID string, promptTokens, completionTokens int, cost float64) error {
	err := s.db.WithContext(ctx).Model(&Cycle{}).
		Where("id = ?", cycleID).
		Updates(map[string]any{
			"prompt_tokens":     gorm.Expr("prompt_tokens + ?", promptTokens),
			"completion_tokens": gorm.Expr("completion_tokens + ?", completionTokens),
			"total_cost":        gorm.Expr("total_cost + ?", cost),
		}).Error
	if err != nil {
		return types.NewError(types.ErrInternalError, "add cycle costs failed").WithCause(err)
	}
	return nil
}

// CostTotals 内容维度的费用累计。
type CostTotals struct {
	PromptTokens     int     `json:"promptTokens"`
	CompletionTokens int     `json:"completionTokens"`
	TotalCost        float64 `json:"totalCost"`
}

// ContentTotals 汇总内容下全部循环的 token 与费用。
func (s *Store) ContentTotals(ctx context.Context, contentID string) (CostTotals, error) {
	var totals CostTotals
	err := s.db.WithContext(ctx).Model(&Cycle{}).
		Where("content_id = ?", contentID).
		Select("COALESCE(SUM(prompt_tokens),0) AS prompt_tokens, " +
			"COALESCE(SUM(completion_tokens),0) AS completion_tokens, " +
			"COALESCE(SUM(total_cost),0) AS total_cost").
		Scan(&totals).Error
	if err != nil {
		return CostTotals{}, types.NewError(types.ErrInternalError, "content totals failed").WithCause(err)
	}
	return totals, nil
}

// ===== 反馈 =====

// ReplaceFeedback 原子地替换循环的全部反馈，保证重评估幂等。
func (s *Store) ReplaceFeedback(ctx context.Context, cycleID string, items []Feedback) error {
	return s.WithTransaction(ctx, func(tx *Store) error {
		if err := tx.db.Where("cycle_id = ?", cycleID).Delete(&Feedback{}).Error; err != nil {
			return types.NewError(types.ErrInternalError, "clear feedback failed").WithCause(err)
		}
		for i := range items {
			items[i].ID = 0
			items[i].CycleID = cycleID
		}
		if len(items) == 0 {
			return nil
		}
		if err := tx.db.Create(&items).Error; err != nil {
			return types.NewError(types.ErrInternalError, "insert feedback failed").WithCause(err)
		}
		return nil
	})
}

// ListFeedback 按参与者 ID 升序列出循环的反馈。
func (s *Store) ListFeedback(ctx context.Context, cycleID string) ([]Feedback, error) {
	var items []Feedback
	err := s.db.WithContext(ctx).
		Where("cycle_id = ?", cycleID).
		Order("participant_id ASC").
		Find(&items).Error
	if err != nil {
		return nil, types.NewError(types.ErrInternalError, "list feedback failed").WithCause(err)
	}
	return items, nil
}

// ===== 画像 =====

// CreatePersona 新建画像。
func (s *Store) CreatePersona(ctx context.Context, p *Persona) error {
	if err := s.db.WithContext(ctx).Create(p).Error; err != nil {
		return types.NewError(types.ErrInternalError, "create persona failed").WithCause(err)
	}
	return nil
}

// GetPersona 按 ID 取画像。
func (s *Store) GetPersona(ctx context.Context, id string) (*Persona, error) {
	var p Persona
	err := s.db.WithContext(ctx).First(&p, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, types.NewErrorf(types.ErrPersonaNotFound, "persona %s not found", id).WithHTTPStatus(404)
	}
	if err != nil {
		return nil, types.NewError(types.ErrInternalError, "get persona failed").WithCause(err)
	}
	return &p, nil
}

// UpdatePersona 全量保存画像。
func (s *Store) UpdatePersona(ctx context.Context, p *Persona) error {
	if err := s.db.WithContext(ctx).Save(p).Error; err != nil {
		return types.NewError(types.ErrInternalError, "update persona failed").WithCause(err)
	}
	return nil
}

// DeletePersona 删除画像，内置种子画像除外。
func (s *Store) DeletePersona(ctx context.Context, id string) error {
	p, err := s.GetPersona(ctx, id)
	if err != nil {
		return err
	}
	if p.Builtin {
		return types.NewErrorf(types.ErrInvalidRequest, "persona %s is builtin and cannot be deleted", id).WithHTTPStatus(400)
	}
	if err := s.db.WithContext(ctx).Delete(&Persona{}, "id = ?", id).Error; err != nil {
		return types.NewError(types.ErrInternalError, "delete persona failed").WithCause(err)
	}
	return nil
}

// ListPersonas 列出画像，typ 为空时返回全部，按名称升序。
func (s *Store) ListPersonas(ctx context.Context, typ types.PersonaType) ([]Persona, error) {
	q := s.db.WithContext(ctx).Order("name ASC")
	if typ != "" {
		q = q.Where("type = ?", typ)
	}
	var out []Persona
	if err := q.Find(&out).Error; err != nil {
		return nil, types.NewError(types.ErrInternalError, "list personas failed").WithCause(err)
	}
	return out, nil
}

// PersonasByIDs 按给定顺序返回画像，缺失的 ID 静默跳过。
func (s *Store) PersonasByIDs(ctx context.Context, ids []string) ([]Persona, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var found []Persona
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&found).Error; err != nil {
		return nil, types.NewError(types.ErrInternalError, "load personas failed").WithCause(err)
	}
	byID := make(map[string]Persona, len(found))
	for _, p := range found {
		byID[p.ID] = p
	}
	out := make([]Persona, 0, len(ids))
	for _, id := range ids {
		if p, ok := byID[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

// CountPersonas 返回画像总数。
func (s *Store) CountPersonas(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&Persona{}).Count(&n).Error; err != nil {
		return 0, types.NewError(types.ErrInternalError, "count personas failed").WithCause(err)
	}
	return n, nil
}
