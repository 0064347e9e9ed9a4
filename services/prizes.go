package services

import "github.com/GaburaisuVGC/fumble-bot-reloaded/models"

// prizeBand — полоса мест с общей долей фонда в процентах. Доля полосы
// делится поровну между занятыми местами с округлением вниз.
type prizeBand struct {
	FromRank int
	ToRank   int
	Percent  int
}

// Таблицы долей по размеру квалификационной сетки. Сумма долей может
// быть меньше ста: нераспределенный хвост вместе с остатками округления
// достается первому месту.
var prizeTables = map[int][]prizeBand{
	4: {
		{1, 1, 50},
		{2, 2, 25},
		{3, 4, 25},
	},
	8: {
		{1, 1, 40},
		{2, 2, 20},
		{3, 4, 10},
		{5, 8, 5},
	},
	16: {
		{1, 1, 30},
		{2, 2, 15},
		{3, 4, 12},
		{5, 8, 12},
		{9, 16, 8},
	},
	32: {
		{1, 1, 25},
		{2, 2, 12},
		{3, 4, 10},
		{5, 8, 10},
		{9, 16, 8},
		{17, 32, 8},
	},
}

// PrizeByRank распределяет фонд по итоговым местам.
// Режим all и сетки меньше 4 отдают весь фонд первому месту.
// В режиме spread каждая полоса получает floor(pool*percent/100), делит
// поровну с floor между местами в пределах playerCount, а весь остаток
// (округление плюс пустые полосы) уходит на первое место.
// Сумма выплат всегда равна pool.
func PrizeByRank(mode models.PrizeMode, pool, bracketSize, playerCount int) map[int]int {
	prizes := make(map[int]int)
	if pool <= 0 || playerCount <= 0 {
		return prizes
	}

	table, ok := prizeTables[bracketSize]
	if mode != models.PrizeModeSpread || !ok {
		prizes[1] = pool
		return prizes
	}

	distributed := 0
	for _, band := range table {
		if band.FromRank == 1 && band.ToRank == 1 {
			continue // первое место получает остаток, не долю
		}
		occupants := band.ToRank
		if occupants > playerCount {
			occupants = playerCount
		}
		occupants -= band.FromRank - 1
		if occupants <= 0 {
			continue
		}
		perRank := pool * band.Percent / 100 / occupants
		if perRank <= 0 {
			continue
		}
		for rank := band.FromRank; rank < band.FromRank+occupants; rank++ {
			prizes[rank] = perRank
			distributed += perRank
		}
	}

	prizes[1] = pool - distributed
	return prizes
}
