// tournament-system/brackets/structure.go
package brackets

// Structure — число раундов швейцарки и размер топ-ката для данного
// количества участников, включая двухдневный формат для больших полей.
type Structure struct {
	SwissRounds  int
	TopCutSize   int // 0 = без топ-ката
	TwoPhase     bool
	Phase1Rounds int
	Phase2Rounds int
}

// structureTable — пороги по количеству участников. MaxPlayers = 0
// закрывает хвост таблицы.
var structureTable = []struct {
	MaxPlayers int
	S          Structure
}{
	{7, Structure{SwissRounds: 3}},
	{8, Structure{SwissRounds: 3, TopCutSize: 2}},
	{16, Structure{SwissRounds: 4, TopCutSize: 4}},
	{32, Structure{SwissRounds: 5, TopCutSize: 8}},
	{64, Structure{SwissRounds: 6, TopCutSize: 8}},
	{128, Structure{SwissRounds: 8, TopCutSize: 16, TwoPhase: true, Phase1Rounds: 6, Phase2Rounds: 2}},
	{256, Structure{SwissRounds: 9, TopCutSize: 16, TwoPhase: true, Phase1Rounds: 7, Phase2Rounds: 2}},
	{512, Structure{SwissRounds: 10, TopCutSize: 32, TwoPhase: true, Phase1Rounds: 8, Phase2Rounds: 2}},
	{1024, Structure{SwissRounds: 11, TopCutSize: 32, TwoPhase: true, Phase1Rounds: 8, Phase2Rounds: 3}},
	{2048, Structure{SwissRounds: 12, TopCutSize: 32, TwoPhase: true, Phase1Rounds: 8, Phase2Rounds: 4}},
	{0, Structure{SwissRounds: 13, TopCutSize: 32, TwoPhase: true, Phase1Rounds: 9, Phase2Rounds: 4}},
}

// StructureFor возвращает структуру турнира по числу участников.
func StructureFor(playerCount int) Structure {
	for _, row := range structureTable {
		if row.MaxPlayers != 0 && playerCount <= row.MaxPlayers {
			return row.S
		}
	}
	return structureTable[len(structureTable)-1].S
}

// Day2Threshold — порог очков для прохода из первой фазы во вторую.
func Day2Threshold(phase1Rounds int) int {
	return (phase1Rounds-3)*3 + 1
}
