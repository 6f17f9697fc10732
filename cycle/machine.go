// Package cycle 实现打磨循环的状态机。
//
// 状态流转：
//
//	draft → focus-group-running → focus-group-complete
//	      → editor-running → editor-complete → approved | rejected
//
// 任何非终态都可因不可恢复错误转入 error。
package cycle

import (
	"context"

	"go.uber.org/zap"

	"github.com/BaSui01/contentcycle/store"
	"github.com/BaSui01/contentcycle/types"
)

// allowed 合法的前进转移表，error 单独处理。
var allowed = map[types.CycleStatus][]types.CycleStatus{
	types.StatusDraft:              {types.StatusFocusGroupRunning},
	types.StatusFocusGroupRunning:  {types.StatusFocusGroupComplete},
	types.StatusFocusGroupComplete: {types.StatusEditorRunning},
	types.StatusEditorRunning:      {types.StatusEditorComplete},
	types.StatusEditorComplete:     {types.StatusApproved, types.StatusRejected},
}

// CanTransition 返回 from 到 to 是否为合法转移。
func CanTransition(from, to types.CycleStatus) bool {
	if to == types.StatusError {
		return !from.Terminal()
	}
	for _, next := range allowed[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Machine 负责循环状态的受控推进。
type Machine struct {
	store  *store.Store
	logger *zap.Logger
}

// NewMachine 创建状态机。
func NewMachine(st *store.Store, logger *zap.Logger) *Machine {
	return &Machine{store: st, logger: logger.With(zap.String("component", "cycle_machine"))}
}

// Advance 把循环推进到 to。当前状态不允许该转移时返回 INVALID_TRANSITION。
// 底层落库带 compare-and-swap，并发推进只有一方成功。
func (m *Machine) Advance(ctx context.Context, c *store.Cycle, to types.CycleStatus, note string) (*store.Cycle, error) {
	if !CanTransition(c.Status, to) {
		return nil, types.NewErrorf(types.ErrInvalidTransition,
			"cannot transition cycle %s from %s to %s", c.ID, c.Status, to).WithHTTPStatus(409)
	}
	return m.store.TransitionCycle(ctx, c.ID, c.Status, to, note)
}

// Fail 把循环转入 error 终态并记录失败原因。
// 已是终态时不做任何事，返回当前循环。
func (m *Machine) Fail(ctx context.Context, c *store.Cycle, cause error) (*store.Cycle, error) {
	if c.Status.Terminal() {
		return c, nil
	}
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	// 状态与失败原因由 TransitionCycle 一笔写入，中途崩溃不会丢原因。
	failed, err := m.store.TransitionCycle(ctx, c.ID, c.Status, types.StatusError, msg)
	if err != nil {
		return nil, err
	}
	m.logger.Warn("循环进入 error 终态",
		zap.String("cycle_id", c.ID),
		zap.String("cause", msg))
	return failed, nil
}
