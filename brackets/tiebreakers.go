// tournament-system/brackets/tiebreakers.go
package brackets

import (
	"math/rand"
	"sort"
)

const (
	owpFloor   = 0.25
	droppedCap = 0.75
)

// TiebreakPlayer — вход/выход калькулятора тай-брейков.
// Opponents — различные оппоненты за весь турнир (bye не входит).
type TiebreakPlayer struct {
	UserID    int
	Score     int
	Wins      int
	Losses    int
	Draws     int
	Matches   int // всего сыграно, включая bye
	Opponents []int
	HadBye    bool
	Dropped   bool // снялся сам или снят организатором
	Frozen    bool // вылетел по срезу день-1: тай-брейки не пересчитываются
	OWP       float64
	OOWP      float64
}

// HeadToHead возвращает победы a над b минус победы b над a
// по личным встречам; вызывающий строит ее по списку матчей.
type HeadToHead func(a, b int) int

// TiebreakerCalculator считает OWP/OOWP и строит порядок таблицы.
// Случайная развязка полного тай-брейка — намеренная и документированная
// недетерминированность; rng инжектируется ради воспроизводимых тестов.
type TiebreakerCalculator struct {
	rng *rand.Rand
}

func NewTiebreakerCalculator(rng *rand.Rand) *TiebreakerCalculator {
	return &TiebreakerCalculator{rng: rng}
}

// Compute заполняет OWP и OOWP для всех незамороженных игроков.
// OWP обязан быть посчитан для всех до прохода OOWP.
func (c *TiebreakerCalculator) Compute(players []*TiebreakPlayer) {
	byID := make(map[int]*TiebreakPlayer, len(players))
	for _, p := range players {
		byID[p.UserID] = p
	}

	for _, p := range players {
		if p.Frozen {
			continue
		}
		p.OWP = c.opponentWinPct(p, byID)
	}

	for _, p := range players {
		if p.Frozen {
			continue
		}
		if len(p.Opponents) == 0 {
			p.OOWP = 0
			continue
		}
		var sum float64
		for _, oppID := range p.Opponents {
			if opp, ok := byID[oppID]; ok {
				sum += opp.OWP
			}
		}
		p.OOWP = sum / float64(len(p.Opponents))
	}
}

// opponentWinPct — среднее по различным оппонентам от max(0.25, winrate),
// где winrate оппонента исключает его собственную bye-победу из числителя
// и знаменателя. Для снявшегося оппонента (не по срезу фаз) результат
// дополнительно ограничен сверху 0.75.
func (c *TiebreakerCalculator) opponentWinPct(p *TiebreakPlayer, byID map[int]*TiebreakPlayer) float64 {
	if len(p.Opponents) == 0 {
		return 0
	}

	var sum float64
	for _, oppID := range p.Opponents {
		opp, ok := byID[oppID]
		if !ok {
			continue
		}
		wins, games := opp.Wins, opp.Matches
		if opp.HadBye {
			wins--
			games--
		}
		rate := 0.0 // оппонент без не-bye матчей дает 0 до применения пола
		if games > 0 {
			rate = float64(wins) / float64(games)
		}
		if rate < owpFloor {
			rate = owpFloor
		}
		cap := 1.0
		if opp.Dropped && !opp.Frozen {
			cap = droppedCap
		}
		if rate > cap {
			rate = cap
		}
		sum += rate
	}
	return sum / float64(len(p.Opponents))
}

// SortStandings упорядочивает таблицу: по убыванию (сыграно матчей, очки,
// OWP, OOWP). Полный тай-брейк решается личными встречами, а при равенстве —
// случайно: слайс предварительно перемешивается, дальше только стабильная
// сортировка, так что порядок внутри неразличимых групп и есть жребий.
func (c *TiebreakerCalculator) SortStandings(players []*TiebreakPlayer, h2h HeadToHead) {
	c.rng.Shuffle(len(players), func(i, j int) {
		players[i], players[j] = players[j], players[i]
	})
	sort.SliceStable(players, func(i, j int) bool {
		a, b := players[i], players[j]
		if a.Matches != b.Matches {
			return a.Matches > b.Matches
		}
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.OWP != b.OWP {
			return a.OWP > b.OWP
		}
		if a.OOWP != b.OOWP {
			return a.OOWP > b.OOWP
		}
		if h2h != nil {
			if d := h2h(a.UserID, b.UserID); d != 0 {
				return d > 0
			}
		}
		return false
	})
}
