// tournament-system/brackets/single_elimination.go
package brackets

import (
	"errors"
	"fmt"
)

var (
	// ErrBracketInconsistent: данные сетки неполны или противоречивы.
	// Частичная сетка не коммитится — лучше явная ошибка, чем догадка.
	ErrBracketInconsistent = errors.New("bracket generation: inconsistent seed or advancement data")
)

// BracketMatch — матч сетки single elimination. Pos кодирует слот
// ("R1M2"), WinnerTo — слот, куда проходит победитель ("" для финала).
type BracketMatch struct {
	Round    int // раунд внутри сетки, с 1
	Order    int // номер в раунде, с 1
	Pos      string
	WinnerTo string

	Player1 int
	Player2 *int // nil = автопроход (bye)
}

// ReportedBracketMatch — завершенный матч сетки, вход для генерации
// следующего раунда.
type ReportedBracketMatch struct {
	Order    int
	WinnerTo string
	WinnerID int
}

// SingleEliminationGenerator строит топологию сетки для произвольного
// размера-степени двойки: рассадка зеркальная (сид 1 против сида N,
// 2 против N-1), так что топовые сиды встречаются как можно позже.
type SingleEliminationGenerator struct{}

func NewSingleEliminationGenerator() *SingleEliminationGenerator {
	return &SingleEliminationGenerator{}
}

func (g *SingleEliminationGenerator) GetName() string {
	return "SingleElimination"
}

// SeedOrder возвращает номера сидов (с 1) в порядке слотов сетки.
// Рекурсивное зеркалирование: [1] → [1 2] → [1 4 2 3] → [1 8 4 5 2 7 3 6]...
// Обобщено на любой размер-степень двойки, а не только 4/8/16.
func SeedOrder(size int) ([]int, error) {
	if size < 2 || size&(size-1) != 0 {
		return nil, fmt.Errorf("%w: bracket size %d is not a power of two >= 2", ErrBracketInconsistent, size)
	}
	order := []int{1}
	for len(order) < size {
		doubled := len(order) * 2
		next := make([]int, 0, doubled)
		for _, s := range order {
			next = append(next, s, doubled+1-s)
		}
		order = next
	}
	return order, nil
}

// FirstRound раздает слоты первого раунда по зеркальной рассадке.
// seeds — id игроков в порядке сидов (seeds[0] = сид 1). Сид без
// оппонента (сетка больше числа вышедших) получает автопроход.
func (g *SingleEliminationGenerator) FirstRound(size int, seeds []int) ([]BracketMatch, error) {
	order, err := SeedOrder(size)
	if err != nil {
		return nil, err
	}
	if len(seeds) < 2 {
		return nil, fmt.Errorf("%w: need at least 2 qualified players, got %d", ErrBracketInconsistent, len(seeds))
	}
	if len(seeds) > size {
		return nil, fmt.Errorf("%w: %d qualified players do not fit bracket of %d", ErrBracketInconsistent, len(seeds), size)
	}
	for i, id := range seeds {
		if id == 0 {
			return nil, fmt.Errorf("%w: seed %d has no player", ErrBracketInconsistent, i+1)
		}
	}

	matches := make([]BracketMatch, 0, size/2)
	for i := 0; i < size; i += 2 {
		seedA, seedB := order[i], order[i+1]
		if seedA > seedB {
			seedA, seedB = seedB, seedA
		}
		if seedA > len(seeds) {
			// Оба слота пусты — при size = nextPow2(len(seeds)) недостижимо.
			return nil, fmt.Errorf("%w: both slots of match %d are empty", ErrBracketInconsistent, i/2+1)
		}

		m := BracketMatch{
			Round:   1,
			Order:   i/2 + 1,
			Player1: seeds[seedA-1],
		}
		if seedB <= len(seeds) {
			p2 := seeds[seedB-1]
			m.Player2 = &p2
		}
		m.Pos = bracketPos(1, m.Order)
		m.WinnerTo = winnerTarget(size, 1, m.Order)
		matches = append(matches, m)
	}
	return matches, nil
}

// NextRound строит раунд prevRound+1 из победителей: для каждого слота
// находятся ровно два питающих матча; иначе — ошибка без частичной сетки.
func (g *SingleEliminationGenerator) NextRound(size, prevRound int, prev []ReportedBracketMatch) ([]BracketMatch, error) {
	if len(prev) < 2 || len(prev)%2 != 0 {
		return nil, fmt.Errorf("%w: round %d has %d reported matches", ErrBracketInconsistent, prevRound, len(prev))
	}

	type feeders struct {
		winners []int
		orders  []int
	}
	byTarget := make(map[string]*feeders)
	for _, m := range prev {
		if m.WinnerTo == "" || m.WinnerID == 0 {
			return nil, fmt.Errorf("%w: match %d of round %d has no advancement target or winner", ErrBracketInconsistent, m.Order, prevRound)
		}
		f := byTarget[m.WinnerTo]
		if f == nil {
			f = &feeders{}
			byTarget[m.WinnerTo] = f
		}
		// Победитель матча с меньшим номером занимает верхний слот.
		if len(f.orders) == 1 && f.orders[0] > m.Order {
			f.winners = []int{m.WinnerID, f.winners[0]}
			f.orders = []int{m.Order, f.orders[0]}
		} else {
			f.winners = append(f.winners, m.WinnerID)
			f.orders = append(f.orders, m.Order)
		}
	}

	round := prevRound + 1
	matches := make([]BracketMatch, len(prev)/2)
	for pos, f := range byTarget {
		if len(f.winners) != 2 {
			return nil, fmt.Errorf("%w: slot %s is fed by %d matches, want 2", ErrBracketInconsistent, pos, len(f.winners))
		}
		order := (f.orders[0] + 1) / 2
		if order < 1 || order > len(matches) {
			return nil, fmt.Errorf("%w: slot %s resolves to match %d of %d", ErrBracketInconsistent, pos, order, len(matches))
		}
		p2 := f.winners[1]
		matches[order-1] = BracketMatch{
			Round:    round,
			Order:    order,
			Pos:      pos,
			WinnerTo: winnerTarget(size, round, order),
			Player1:  f.winners[0],
			Player2:  &p2,
		}
	}
	for i := range matches {
		if matches[i].Pos == "" {
			return nil, fmt.Errorf("%w: match %d of round %d was never fed", ErrBracketInconsistent, i+1, round)
		}
	}
	return matches, nil
}

func bracketPos(round, order int) string {
	return fmt.Sprintf("R%dM%d", round, order)
}

// winnerTarget вычисляет слот следующего раунда; "" — это финал.
func winnerTarget(size, round, order int) string {
	if size>>uint(round) <= 1 {
		return ""
	}
	return bracketPos(round+1, (order+1)/2)
}

// RoundName — имя раунда по числу оставшихся игроков.
func RoundName(playersLeft int) string {
	switch playersLeft {
	case 2:
		return "Finals"
	case 4:
		return "Semifinals"
	case 8:
		return "Quarterfinals"
	default:
		return fmt.Sprintf("Top %d", playersLeft)
	}
}

// NextPowerOfTwo — минимальная степень двойки >= n (минимум 2).
func NextPowerOfTwo(n int) int {
	size := 2
	for size < n {
		size <<= 1
	}
	return size
}
