package feed

import (
	"strings"

	"live-strategy-monitor/internal/core/model"
)

// FlattenLiveScores 将按联赛分组的响应展开为比赛列表
// 联赛信息写入每场比赛；缺少 ID 的记录被丢弃。
func FlattenLiveScores(resp *LiveScoresResponse) []model.LiveMatch {
	if resp == nil {
		return nil
	}
	var out []model.LiveMatch
	for _, league := range resp.Data.SortedCategorizedFixtures {
		for i := range league.Fixtures {
			raw := &league.Fixtures[i]
			if raw.LeagueName == "" {
				raw.LeagueName = league.LeagueName
			}
			if raw.CountryName == "" {
				raw.CountryName = league.CountryName
			}
			m := ToLiveMatch(raw)
			if m.ID == "" {
				continue
			}
			out = append(out, m)
		}
	}
	return out
}

// ToLiveMatch 归一化比分板信息
func ToLiveMatch(raw *RawFixture) model.LiveMatch {
	return model.LiveMatch{
		ID:        raw.MatchID(),
		League:    strings.TrimSpace(raw.LeagueName),
		Country:   strings.TrimSpace(raw.CountryName),
		Status:    strings.TrimSpace(raw.Status),
		Minute:    raw.Minute.Int(),
		HomeName:  strings.TrimSpace(raw.LocalTeamName),
		AwayName:  strings.TrimSpace(raw.VisitorTeamName),
		HomeScore: raw.ScoresLocalTeam.Int(),
		AwayScore: raw.ScoresVisitorTeam.Int(),
	}
}

// ToSnapshot 归一化比赛统计快照
// 缺失或无法解析的字段为 0；队名仅用于信号描述。
func ToSnapshot(raw *RawFixture) model.Snapshot {
	return model.Snapshot{
		ElapsedMinutes:       raw.Minute.Int(),
		HomeScore:            raw.ScoresLocalTeam.Int(),
		AwayScore:            raw.ScoresVisitorTeam.Int(),
		HomeDangerousAttacks: raw.LocalAttacksDangerousAttacks.Int(),
		AwayDangerousAttacks: raw.VisitorAttacksDangerousAttacks.Int(),
		HomeShotsOnTarget:    raw.LocalShotsOnGoal.Int(),
		AwayShotsOnTarget:    raw.VisitorShotsOnGoal.Int(),
		HomeShotsOffTarget:   raw.LocalShotsOffGoal.Int(),
		AwayShotsOffTarget:   raw.VisitorShotsOffGoal.Int(),
		HomeCorners:          raw.LocalCorners.Int(),
		AwayCorners:          raw.VisitorCorners.Int(),
		HomeLabel:            labelOr(raw.LocalTeamName, "Home"),
		AwayLabel:            labelOr(raw.VisitorTeamName, "Away"),
	}
}

func labelOr(name, fallback string) string {
	if name = strings.TrimSpace(name); name != "" {
		return name
	}
	return fallback
}
