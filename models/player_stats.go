package models

// PlayerStats — накопленная статистика игрока в рамках одного турнира.
// Создается при join, мутируется каждым report и validate, удаляется
// при завершении турнира (после агрегации призов и пожизненной статистики).
type PlayerStats struct {
	TournamentID string `json:"tournament_id" db:"tournament_id"`
	UserID       int    `json:"user_id" db:"user_id"`
	Tag          string `json:"tag" db:"tag"`

	Score  int `json:"score" db:"score"` // 3 за победу, 1 за ничью
	Wins   int `json:"wins" db:"wins"`
	Losses int `json:"losses" db:"losses"`
	Draws  int `json:"draws" db:"draws"`

	// Инвариант: Wins+Losses+Draws == len(MatchesPlayed); Opponents не содержит bye.
	MatchesPlayed   []int64 `json:"matches_played" db:"matches_played"`
	Opponents       []int64 `json:"opponents" db:"opponents"`
	Phase2Opponents []int64 `json:"phase2_opponents" db:"phase2_opponents"`

	OWP  float64 `json:"owp" db:"owp"`
	OOWP float64 `json:"oowp" db:"oowp"`

	ByeRound int  `json:"bye_round" db:"bye_round"` // 0 = bye не получал
	Active   bool `json:"active" db:"active"`       // false после drop или вылета по кату
	Frozen   bool `json:"frozen" db:"frozen"`       // тай-брейки заморожены (срез день-1 → день-2)

	Seed      int    `json:"seed" db:"seed"`             // только для вышедших в топ-кат
	FinalRank int    `json:"final_rank" db:"final_rank"` // только при завершении турнира
	Stage     string `json:"stage" db:"stage"`           // метка стадии вылета
}

// OpponentScope возвращает список оппонентов для проверки "уже играли"
// в нужном скоупе: вторая фаза двухдневной швейцарки считается с нуля.
func (ps *PlayerStats) OpponentScope(phase2 bool) []int64 {
	if phase2 {
		return ps.Phase2Opponents
	}
	return ps.Opponents
}

// AddOpponent дописывает оппонента в оба множества: Opponents всегда
// полный список для тай-брейков, Phase2Opponents — скоуп пар второй фазы.
func (ps *PlayerStats) AddOpponent(userID int, phase2 bool) {
	ps.Opponents = append(ps.Opponents, int64(userID))
	if phase2 {
		ps.Phase2Opponents = append(ps.Phase2Opponents, int64(userID))
	}
}

// Snapshot возвращает копию счетных полей для сохранения на матче
// перед применением результата (нужно для обратимого reset).
func (ps *PlayerStats) Snapshot() *StatsSnapshot {
	return &StatsSnapshot{
		Score:           ps.Score,
		Wins:            ps.Wins,
		Losses:          ps.Losses,
		Draws:           ps.Draws,
		MatchesPlayed:   append([]int64(nil), ps.MatchesPlayed...),
		Opponents:       append([]int64(nil), ps.Opponents...),
		Phase2Opponents: append([]int64(nil), ps.Phase2Opponents...),
		ByeRound:        ps.ByeRound,
	}
}

// Restore откатывает счетные поля к снапшоту. Поля, не зависящие от
// результата матча (Active, Frozen, Seed), не трогаем.
func (ps *PlayerStats) Restore(s *StatsSnapshot) {
	ps.Score = s.Score
	ps.Wins = s.Wins
	ps.Losses = s.Losses
	ps.Draws = s.Draws
	ps.MatchesPlayed = append([]int64(nil), s.MatchesPlayed...)
	ps.Opponents = append([]int64(nil), s.Opponents...)
	ps.Phase2Opponents = append([]int64(nil), s.Phase2Opponents...)
	ps.ByeRound = s.ByeRound
}

// StatsSnapshot — состояние счетных полей PlayerStats до репорта матча.
type StatsSnapshot struct {
	Score           int     `json:"score"`
	Wins            int     `json:"wins"`
	Losses          int     `json:"losses"`
	Draws           int     `json:"draws"`
	MatchesPlayed   []int64 `json:"matches_played"`
	Opponents       []int64 `json:"opponents"`
	Phase2Opponents []int64 `json:"phase2_opponents"`
	ByeRound        int     `json:"bye_round"`
}
