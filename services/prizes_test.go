package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GaburaisuVGC/fumble-bot-reloaded/models"
)

func TestPrizeByRank_AllModeWinnerTakesPool(t *testing.T) {
	prizes := PrizeByRank(models.PrizeModeAll, 800, 2, 8)
	require.Len(t, prizes, 1)
	assert.Equal(t, 800, prizes[1])
}

func TestPrizeByRank_SpreadTop8(t *testing.T) {
	prizes := PrizeByRank(models.PrizeModeSpread, 1000, 8, 8)

	assert.Equal(t, 200, prizes[2])
	assert.Equal(t, 50, prizes[3])
	assert.Equal(t, 50, prizes[4])
	for rank := 5; rank <= 8; rank++ {
		assert.Equal(t, 12, prizes[rank], "rank %d", rank)
	}
	// Весь остаток округления уходит первому месту.
	assert.Equal(t, 1000-(200+50+50+12*4), prizes[1])

	total := 0
	for _, p := range prizes {
		total += p
	}
	assert.Equal(t, 1000, total)
}

func TestPrizeByRank_SpreadTop4(t *testing.T) {
	prizes := PrizeByRank(models.PrizeModeSpread, 1000, 4, 4)

	assert.Equal(t, 250, prizes[2])
	assert.Equal(t, 125, prizes[3])
	assert.Equal(t, 125, prizes[4])
	assert.Equal(t, 500, prizes[1])
}

func TestPrizeByRank_BandClampedToPlayerCount(t *testing.T) {
	// Полоса 5-8 занята только местами 5 и 6.
	prizes := PrizeByRank(models.PrizeModeSpread, 1000, 8, 6)

	assert.Equal(t, 25, prizes[5])
	assert.Equal(t, 25, prizes[6])
	assert.NotContains(t, prizes, 7)
	assert.NotContains(t, prizes, 8)

	total := 0
	for _, p := range prizes {
		total += p
	}
	assert.Equal(t, 1000, total)
}

func TestPrizeByRank_SmallBracketFallsBackToWinner(t *testing.T) {
	prizes := PrizeByRank(models.PrizeModeSpread, 700, 2, 8)
	require.Len(t, prizes, 1)
	assert.Equal(t, 700, prizes[1])

	prizes = PrizeByRank(models.PrizeModeSpread, 700, 0, 7)
	assert.Equal(t, 700, prizes[1])
}

func TestPrizeByRank_SumAlwaysEqualsPool(t *testing.T) {
	for _, size := range []int{4, 8, 16, 32} {
		for _, pool := range []int{100, 999, 12345} {
			prizes := PrizeByRank(models.PrizeModeSpread, pool, size, size)
			total := 0
			for _, p := range prizes {
				total += p
			}
			assert.Equal(t, pool, total, "size %d pool %d", size, pool)
		}
	}
}

func TestPrizeByRank_EmptyPool(t *testing.T) {
	assert.Empty(t, PrizeByRank(models.PrizeModeSpread, 0, 8, 8))
	assert.Empty(t, PrizeByRank(models.PrizeModeAll, 100, 8, 0))
}
