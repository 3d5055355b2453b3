// Package feed 数据源模块测试
package feed

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

const liveScoresBody = `{
  "data": {
    "sortedCategorizedFixtures": [
      {
        "leagueName": "Premier League",
        "countryName": "England",
        "fixtures": [
          {"id": 1001, "status": "1st", "minute": "35'", "localTeamName": "Arsenal", "visitorTeamName": "Chelsea", "scoresLocalTeam": 0, "scoresVisitorTeam": "1"},
          {"fixtureId": "1002", "status": "NS", "localTeamName": "Spurs", "visitorTeamName": "Everton"},
          {"status": "2nd", "localTeamName": "NoID", "visitorTeamName": "NoID"}
        ]
      },
      {
        "leagueName": "Serie A",
        "countryName": "Italy",
        "fixtures": [
          {"id": "2001", "leagueName": "Coppa", "status": "HT", "minute": 45}
        ]
      }
    ]
  }
}`

const fixtureBody = `{
  "data": {
    "id": 1001,
    "status": "2nd",
    "minute": 60,
    "localTeamName": "Arsenal",
    "visitorTeamName": "Chelsea",
    "scoresLocalTeam": 1,
    "scoresVisitorTeam": 0,
    "localAttacksDangerousAttacks": "48",
    "visitorAttacksDangerousAttacks": 24,
    "localShotsOnGoal": 4,
    "visitorShotsOnGoal": 3,
    "localShotsOffGoal": 3,
    "visitorShotsOffGoal": null,
    "localCorners": 5.0,
    "visitorCorners": "-"
  }
}`

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/livescores", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Accept") != "application/json" {
			t.Errorf("Accept = %q", r.Header.Get("Accept"))
		}
		_, _ = w.Write([]byte(liveScoresBody))
	})
	mux.HandleFunc("/api/fixture/1001", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(fixtureBody))
	})
	mux.HandleFunc("/api/fixture/500", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	mux.HandleFunc("/api/fixture/slow", func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestHTTPFetcher_FetchLiveScores(t *testing.T) {
	srv := newTestServer(t)
	f := NewHTTPFetcher(srv.URL+"/api/", 5*time.Second, "test")

	matches, err := f.FetchLiveScores(context.Background())
	if err != nil {
		t.Fatalf("FetchLiveScores 失败: %v", err)
	}
	if len(matches) != 3 {
		t.Fatalf("比赛数 = %d, want 3 (缺少 ID 的记录应丢弃)", len(matches))
	}

	first := matches[0]
	if first.ID != "1001" || first.League != "Premier League" || first.Country != "England" {
		t.Errorf("first = %+v", first)
	}
	if first.Minute != 35 || first.AwayScore != 1 {
		t.Errorf("Minute/AwayScore = %d/%d, want 35/1", first.Minute, first.AwayScore)
	}
	if matches[1].ID != "1002" {
		t.Errorf("fixtureId 回退失败: %+v", matches[1])
	}
	if matches[2].League != "Coppa" || matches[2].Country != "Italy" {
		t.Errorf("比赛自带联赛名应优先: %+v", matches[2])
	}
}

func TestHTTPFetcher_FetchFixture(t *testing.T) {
	srv := newTestServer(t)
	f := NewHTTPFetcher(srv.URL+"/api", 5*time.Second, "test")

	snap, match, err := f.FetchFixture(context.Background(), "1001")
	if err != nil {
		t.Fatalf("FetchFixture 失败: %v", err)
	}
	if match.ID != "1001" || match.Status != "2nd" {
		t.Errorf("match = %+v", match)
	}
	if snap.ElapsedMinutes != 60 || snap.HomeScore != 1 {
		t.Errorf("snapshot = %+v", snap)
	}
	if snap.HomeDangerousAttacks != 48 || snap.AwayDangerousAttacks != 24 {
		t.Errorf("危险进攻 = %d/%d", snap.HomeDangerousAttacks, snap.AwayDangerousAttacks)
	}
	if snap.AwayShotsOffTarget != 0 || snap.AwayCorners != 0 {
		t.Errorf("缺失字段应为 0: %+v", snap)
	}
	if snap.HomeCorners != 5 {
		t.Errorf("HomeCorners = %d, want 5", snap.HomeCorners)
	}
	if snap.HomeLabel != "Arsenal" || snap.AwayLabel != "Chelsea" {
		t.Errorf("labels = %s/%s", snap.HomeLabel, snap.AwayLabel)
	}
}

func TestHTTPFetcher_StatusError(t *testing.T) {
	srv := newTestServer(t)
	f := NewHTTPFetcher(srv.URL+"/api", 5*time.Second, "test")

	_, _, err := f.FetchFixture(context.Background(), "500")
	if !errors.Is(err, ErrStatus) {
		t.Fatalf("非 2xx 应返回 ErrStatus, got %v", err)
	}
}

func TestHTTPFetcher_ContextTimeout(t *testing.T) {
	srv := newTestServer(t)
	f := NewHTTPFetcher(srv.URL+"/api", 5*time.Second, "test")

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, _, err := f.FetchFixture(ctx, "slow")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("超时应返回 DeadlineExceeded, got %v", err)
	}
}

func TestToSnapshot_DefaultLabels(t *testing.T) {
	snap := ToSnapshot(&RawFixture{})
	if snap.HomeLabel != "Home" || snap.AwayLabel != "Away" {
		t.Errorf("labels = %s/%s", snap.HomeLabel, snap.AwayLabel)
	}
}

// 属性: 数字与数字字符串解析结果相同
func TestNumber_Lenient_Property(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("数字与字符串形式等价", prop.ForAll(
		func(n int) bool {
			var a, b struct {
				V Number `json:"v"`
			}
			raw, _ := json.Marshal(map[string]any{"v": n})
			str, _ := json.Marshal(map[string]any{"v": strconv.Itoa(n) + "'"})
			if err := json.Unmarshal(raw, &a); err != nil {
				return false
			}
			if err := json.Unmarshal(str, &b); err != nil {
				return false
			}
			return a.V.Int() == n && b.V.Int() == n
		},
		gen.IntRange(0, 500),
	))

	properties.Property("任意字符串都不会导致解析失败", prop.ForAll(
		func(s string) bool {
			var v struct {
				V Number `json:"v"`
			}
			raw, _ := json.Marshal(map[string]string{"v": s})
			return json.Unmarshal(raw, &v) == nil && v.V >= 0
		},
		gen.AnyString(),
	))

	properties.TestingRun(t)
}
