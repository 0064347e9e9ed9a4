package models

import "time"

// User — пожизненная запись игрока, переживает любой отдельный турнир.
type User struct {
	ID           int    `json:"id" db:"id"`
	Nickname     string `json:"nickname" db:"nickname"`
	Email        string `json:"email" db:"email"`
	PasswordHash string `json:"-" db:"password_hash"`

	Aura       int    `json:"aura" db:"aura"`
	RankTitle  string `json:"rank_title" db:"rank_title"`
	PeakAura   int    `json:"peak_aura" db:"peak_aura"`
	LowestAura int    `json:"lowest_aura" db:"lowest_aura"`

	TournamentWins    int `json:"tournament_wins" db:"tournament_wins"`
	TournamentsPlayed int `json:"tournaments_played" db:"tournaments_played"`
	MatchWins         int `json:"match_wins" db:"match_wins"`
	MatchLosses       int `json:"match_losses" db:"match_losses"`

	AuraFromTournaments    int `json:"aura_from_tournaments" db:"aura_from_tournaments"`
	AuraSpentOnTournaments int `json:"aura_spent_on_tournaments" db:"aura_spent_on_tournaments"`

	Servers   []string  `json:"servers" db:"servers"` // text[], серверы, где играл
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// BaseAura — стартовый баланс нового игрока.
const BaseAura = 1000

// rankThresholds — монотонная таблица порогов Aura → титул.
// Порядок важен: ищем последний порог, который не превышает баланс.
var rankThresholds = []struct {
	Min   int
	Title string
}{
	{0, "Bronze"},
	{900, "Silver"},
	{1100, "Gold"},
	{1300, "Platinum"},
	{1600, "Diamond"},
	{2000, "Master"},
	{2500, "Grandmaster"},
}

// RankTitleFor возвращает титул для баланса Aura.
func RankTitleFor(aura int) string {
	title := rankThresholds[0].Title
	for _, t := range rankThresholds {
		if aura >= t.Min {
			title = t.Title
		}
	}
	return title
}

// ApplyAuraDelta изменяет баланс и пересчитывает производные поля
// (пик, минимум, титул). Баланс не опускается ниже нуля.
func (u *User) ApplyAuraDelta(delta int) {
	u.Aura += delta
	if u.Aura < 0 {
		u.Aura = 0
	}
	if u.Aura > u.PeakAura {
		u.PeakAura = u.Aura
	}
	if u.Aura < u.LowestAura {
		u.LowestAura = u.Aura
	}
	u.RankTitle = RankTitleFor(u.Aura)
}

// HasServer проверяет, отмечен ли сервер в профиле.
func (u *User) HasServer(guildID string) bool {
	for _, s := range u.Servers {
		if s == guildID {
			return true
		}
	}
	return false
}
