// Package store 维护所有比赛的最新评估状态。
// 轮询器写入，HTTP 接口与推送读取；读写通过读写锁隔离。
package store

import (
	"sort"
	"sync"

	"live-strategy-monitor/internal/core/model"
)

// Store 比赛状态缓存
// 写入按轮询序号门控：序号小于已存状态的写入被丢弃，保证慢周期不会覆盖新数据。
type Store struct {
	mu sync.RWMutex
	// matches 比赛列表，key: 比赛 ID
	matches map[string]model.LiveMatch
	// listSeq 最近一次列表写入的序号
	listSeq uint64
	// states 比赛评估状态，key: 比赛 ID
	states map[string]*model.MatchState
}

// New 创建新的状态缓存
func New() *Store {
	return &Store{
		matches: make(map[string]model.LiveMatch),
		states:  make(map[string]*model.MatchState),
	}
}

// ReplaceMatches 用一轮列表轮询的结果整体替换比赛列表
// 参数 seq: 轮询序号
// 参数 matches: 本轮进行中的比赛
// 返回: 是否被接受；不再出现在列表中的比赛其评估状态一并移除
func (s *Store) ReplaceMatches(seq uint64, matches []model.LiveMatch) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if seq < s.listSeq {
		return false
	}
	s.listSeq = seq

	next := make(map[string]model.LiveMatch, len(matches))
	for _, m := range matches {
		if m.ID == "" {
			continue
		}
		next[m.ID] = m
	}
	for id := range s.states {
		if _, ok := next[id]; !ok {
			delete(s.states, id)
		}
	}
	s.matches = next
	return true
}

// Update 写入一场比赛的评估状态
// 参数 st: 评估状态，Seq 必须由调用方设置
// 返回: 是否被接受
func (s *Store) Update(st model.MatchState) bool {
	id := st.Match.ID
	if id == "" {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if cur, ok := s.states[id]; ok && st.Seq < cur.Seq {
		return false
	}
	// 比赛已被更新的列表移除，早于该列表的写入不能让它复活
	if _, listed := s.matches[id]; !listed && st.Seq < s.listSeq {
		return false
	}
	s.states[id] = &st
	return true
}

// Get 获取一场比赛的最新评估状态
func (s *Store) Get(id string) (model.MatchState, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.states[id]
	if !ok {
		return model.MatchState{}, false
	}
	return *st, true
}

// Match 获取比赛列表中的一场比赛
func (s *Store) Match(id string) (model.LiveMatch, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.matches[id]
	return m, ok
}

// Matches 返回比赛列表，按联赛、ID 排序
func (s *Store) Matches() []model.LiveMatch {
	s.mu.RLock()
	out := make([]model.LiveMatch, 0, len(s.matches))
	for _, m := range s.matches {
		out = append(out, m)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].League != out[j].League {
			return out[i].League < out[j].League
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// States 返回全部评估状态，按 ID 排序
func (s *Store) States() []model.MatchState {
	s.mu.RLock()
	out := make([]model.MatchState, 0, len(s.states))
	for _, st := range s.states {
		out = append(out, *st)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Match.ID < out[j].Match.ID })
	return out
}

// Len 返回比赛列表长度
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.matches)
}
