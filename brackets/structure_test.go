package brackets

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStructureForThresholds(t *testing.T) {
	cases := []struct {
		players int
		want    Structure
	}{
		{4, Structure{SwissRounds: 3}},
		{7, Structure{SwissRounds: 3}},
		{8, Structure{SwissRounds: 3, TopCutSize: 2}},
		{9, Structure{SwissRounds: 4, TopCutSize: 4}},
		{16, Structure{SwissRounds: 4, TopCutSize: 4}},
		{17, Structure{SwissRounds: 5, TopCutSize: 8}},
		{32, Structure{SwissRounds: 5, TopCutSize: 8}},
		{33, Structure{SwissRounds: 6, TopCutSize: 8}},
		{64, Structure{SwissRounds: 6, TopCutSize: 8}},
		{65, Structure{SwissRounds: 8, TopCutSize: 16, TwoPhase: true, Phase1Rounds: 6, Phase2Rounds: 2}},
		{128, Structure{SwissRounds: 8, TopCutSize: 16, TwoPhase: true, Phase1Rounds: 6, Phase2Rounds: 2}},
		{129, Structure{SwissRounds: 9, TopCutSize: 16, TwoPhase: true, Phase1Rounds: 7, Phase2Rounds: 2}},
		{257, Structure{SwissRounds: 10, TopCutSize: 32, TwoPhase: true, Phase1Rounds: 8, Phase2Rounds: 2}},
		{513, Structure{SwissRounds: 11, TopCutSize: 32, TwoPhase: true, Phase1Rounds: 8, Phase2Rounds: 3}},
		{1025, Structure{SwissRounds: 12, TopCutSize: 32, TwoPhase: true, Phase1Rounds: 8, Phase2Rounds: 4}},
		{2049, Structure{SwissRounds: 13, TopCutSize: 32, TwoPhase: true, Phase1Rounds: 9, Phase2Rounds: 4}},
		{5000, Structure{SwissRounds: 13, TopCutSize: 32, TwoPhase: true, Phase1Rounds: 9, Phase2Rounds: 4}},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, StructureFor(tc.players), "players=%d", tc.players)
	}
}

func TestDay2Threshold(t *testing.T) {
	assert.Equal(t, 10, Day2Threshold(6))
	assert.Equal(t, 13, Day2Threshold(7))
	assert.Equal(t, 16, Day2Threshold(8))
	assert.Equal(t, 19, Day2Threshold(9))
}
