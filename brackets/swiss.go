// tournament-system/brackets/swiss.go
package brackets

import (
	"errors"
	"math/rand"
	"sort"
)

var (
	// ErrPairingImpossible: перебор с возвратом исчерпан, полной расстановки
	// без повторных встреч не существует. Раунд не должен продвигаться.
	ErrPairingImpossible = errors.New("swiss pairing: no complete pairing without rematches exists")
	ErrNoActivePlayers   = errors.New("swiss pairing: no active players to pair")
)

// SwissPlayer — снимок игрока на момент генерации раунда.
// Opponents уже приведен вызывающим к нужному скоупу фазы.
type SwissPlayer struct {
	UserID    int
	Score     int
	OWP       float64
	OOWP      float64
	HadBye    bool
	Opponents map[int]struct{}
}

// SwissPairing — одна пара раунда.
type SwissPairing struct {
	Player1 int
	Player2 int
}

// SwissRound — результат генерации: пары плюс получатель bye (0 = нет).
type SwissRound struct {
	Pairings  []SwissPairing
	ByeUserID int
}

// SwissPairingEngine подбирает пары раунда швейцарки: группировка по очкам,
// перемешивание внутри групп и рекурсивный поиск с возвратом под ограничением
// "не играть дважды". Источник случайности инжектируется, чтобы тесты могли
// зафиксировать seed.
type SwissPairingEngine struct {
	rng *rand.Rand
}

func NewSwissPairingEngine(rng *rand.Rand) *SwissPairingEngine {
	return &SwissPairingEngine{rng: rng}
}

// PairRound строит полный раунд для списка активных игроков.
func (e *SwissPairingEngine) PairRound(players []SwissPlayer) (*SwissRound, error) {
	if len(players) == 0 {
		return nil, ErrNoActivePlayers
	}

	pool := make([]SwissPlayer, len(players))
	copy(pool, players)

	round := &SwissRound{}

	if len(pool)%2 != 0 {
		byeIdx := e.pickByeRecipient(pool)
		round.ByeUserID = pool[byeIdx].UserID
		pool = append(pool[:byeIdx], pool[byeIdx+1:]...)
	}

	if len(pool) == 0 {
		return round, nil
	}

	e.orderPool(pool)

	used := make([]bool, len(pool))
	pairings := make([]SwissPairing, 0, len(pool)/2)
	if !pairRemaining(pool, used, &pairings) {
		return nil, ErrPairingImpossible
	}

	round.Pairings = pairings
	return round, nil
}

// pickByeRecipient выбирает получателя bye: предпочитаем того, кто bye еще
// не получал; среди кандидатов — худший по (Score, OWP, OOWP).
func (e *SwissPairingEngine) pickByeRecipient(pool []SwissPlayer) int {
	candidates := make([]int, 0, len(pool))
	for i, p := range pool {
		if !p.HadBye {
			candidates = append(candidates, i)
		}
	}
	if len(candidates) == 0 {
		for i := range pool {
			candidates = append(candidates, i)
		}
	}

	best := candidates[0]
	for _, i := range candidates[1:] {
		if swissWorse(pool[i], pool[best]) {
			best = i
		}
	}
	return best
}

func swissWorse(a, b SwissPlayer) bool {
	if a.Score != b.Score {
		return a.Score < b.Score
	}
	if a.OWP != b.OWP {
		return a.OWP < b.OWP
	}
	return a.OOWP < b.OOWP
}

// orderPool сортирует по очкам по убыванию и перемешивает внутри каждой
// скобки очков: случайный порядок убирает детерминированный перекос,
// сохраняя предпочтение пар внутри скобки.
func (e *SwissPairingEngine) orderPool(pool []SwissPlayer) {
	e.rng.Shuffle(len(pool), func(i, j int) {
		pool[i], pool[j] = pool[j], pool[i]
	})
	sort.SliceStable(pool, func(i, j int) bool {
		return pool[i].Score > pool[j].Score
	})
}

// pairRemaining — чистая рекурсия над замороженным списком: берем первого
// свободного игрока, пробуем оппонентов по порядку списка, пропуская уже
// сыгранных, и рекурсивно добиваем остаток. Возвращается первое полное решение.
func pairRemaining(pool []SwissPlayer, used []bool, pairings *[]SwissPairing) bool {
	first := -1
	for i := range pool {
		if !used[i] {
			first = i
			break
		}
	}
	if first == -1 {
		return true
	}

	used[first] = true
	for j := first + 1; j < len(pool); j++ {
		if used[j] {
			continue
		}
		if _, met := pool[first].Opponents[pool[j].UserID]; met {
			continue
		}
		used[j] = true
		*pairings = append(*pairings, SwissPairing{Player1: pool[first].UserID, Player2: pool[j].UserID})
		if pairRemaining(pool, used, pairings) {
			return true
		}
		*pairings = (*pairings)[:len(*pairings)-1]
		used[j] = false
	}
	used[first] = false
	return false
}
