// Package feed 负责从上游比分数据源获取进行中比赛与比赛统计，并归一化为内部模型。
package feed

import (
	"bytes"
	"encoding/json"

	"live-strategy-monitor/internal/util/fastparse"
)

// Number 宽松数字字段
// 上游可能返回 JSON 数字、数字字符串（含 "35'" 之类后缀）或 null，无法解析时为 0。
type Number int

// UnmarshalJSON 实现 json.Unmarshaler
func (n *Number) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*n = 0
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			*n = 0
			return nil
		}
		*n = Number(fastparse.LeadingInt(s))
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		*n = 0
		return nil
	}
	*n = Number(fastparse.FloatToInt(f))
	return nil
}

// Int 转换为 int
func (n Number) Int() int {
	return int(n)
}

// ID 宽松标识字段，兼容数字与字符串
type ID string

// UnmarshalJSON 实现 json.Unmarshaler
func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var num json.Number
	if err := json.Unmarshal(b, &num); err != nil {
		return err
	}
	*id = ID(num.String())
	return nil
}

// LiveScoresResponse 比赛列表响应
// API: GET {base}/livescores
type LiveScoresResponse struct {
	Data struct {
		// SortedCategorizedFixtures 按联赛分组的比赛
		SortedCategorizedFixtures []RawLeague `json:"sortedCategorizedFixtures"`
	} `json:"data"`
}

// RawLeague 一个联赛分组
type RawLeague struct {
	LeagueName  string       `json:"leagueName"`
	CountryName string       `json:"countryName"`
	Fixtures    []RawFixture `json:"fixtures"`
}

// FixtureResponse 比赛详情响应
// API: GET {base}/fixture/{id}
type FixtureResponse struct {
	Data RawFixture `json:"data"`
}

// RawFixture 上游比赛记录（列表与详情共用字段）
type RawFixture struct {
	// ID 比赛 ID，部分响应只有 fixtureId
	ID        ID `json:"id"`
	FixtureID ID `json:"fixtureId"`

	LeagueName  string `json:"leagueName"`
	CountryName string `json:"countryName"`

	// Status 状态: NS / 1st / HT / 2nd / FT
	Status string `json:"status"`
	Minute Number `json:"minute"`

	LocalTeamName   string `json:"localTeamName"`
	VisitorTeamName string `json:"visitorTeamName"`

	ScoresLocalTeam   Number `json:"scoresLocalTeam"`
	ScoresVisitorTeam Number `json:"scoresVisitorTeam"`

	LocalAttacksDangerousAttacks   Number `json:"localAttacksDangerousAttacks"`
	VisitorAttacksDangerousAttacks Number `json:"visitorAttacksDangerousAttacks"`

	LocalShotsOnGoal    Number `json:"localShotsOnGoal"`
	VisitorShotsOnGoal  Number `json:"visitorShotsOnGoal"`
	LocalShotsOffGoal   Number `json:"localShotsOffGoal"`
	VisitorShotsOffGoal Number `json:"visitorShotsOffGoal"`

	LocalCorners   Number `json:"localCorners"`
	VisitorCorners Number `json:"visitorCorners"`
}

// MatchID 返回比赛标识，id 缺失时回退到 fixtureId
func (f *RawFixture) MatchID() string {
	if f.ID != "" && f.ID != "0" {
		return string(f.ID)
	}
	return string(f.FixtureID)
}
