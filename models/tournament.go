package models

import "time"

// TournamentStatus представляет статусы турнира, соответствующие ENUM в БД.
type TournamentStatus string

const (
	StatusPending   TournamentStatus = "pending"
	StatusActive    TournamentStatus = "active"
	StatusFinished  TournamentStatus = "finished"
	StatusCancelled TournamentStatus = "cancelled"
)

// PrizeMode определяет схему распределения призового фонда.
type PrizeMode string

const (
	PrizeModeAll    PrizeMode = "all"    // весь фонд победителю
	PrizeModeSpread PrizeMode = "spread" // распределение по таблице долей
)

// CutMethod определяет способ отбора в топ-кат.
type CutMethod string

const (
	CutByRank   CutMethod = "rank"   // срез по месту в таблице
	CutByPoints CutMethod = "points" // все, кто набрал порог очков
)

// Tournament представляет турнир: швейцарка + опциональный single elimination топ-кат.
type Tournament struct {
	ID           string           `json:"id" db:"id"` // 6-символьный код
	GuildID      string           `json:"guild_id" db:"guild_id"`
	OrganizerID  int              `json:"organizer_id" db:"organizer_id"`
	Stake        int              `json:"stake" db:"stake"`
	PrizeMode    PrizeMode        `json:"prize_mode" db:"prize_mode"`
	CutMethod    CutMethod        `json:"cut_method" db:"cut_method"`
	Status       TournamentStatus `json:"status" db:"status"`
	CurrentRound int              `json:"current_round" db:"current_round"`

	SwissRounds    int  `json:"swiss_rounds" db:"swiss_rounds"`
	TopCutSize     int  `json:"top_cut_size" db:"top_cut_size"`
	PointsRequired int  `json:"points_required" db:"points_required"`
	TwoPhase       bool `json:"two_phase" db:"two_phase"`
	Phase1Rounds   int  `json:"phase1_rounds" db:"phase1_rounds"`
	Phase2Rounds   int  `json:"phase2_rounds" db:"phase2_rounds"`

	MaxPlayers   int `json:"max_players" db:"max_players"` // 0 = без ограничения
	MatchCounter int `json:"-" db:"match_counter"`

	FinalStandings []FinalStanding `json:"final_standings,omitempty" db:"-"` // jsonb, заполняется только при завершении
	LogoKey        *string         `json:"-" db:"logo_key"`
	LogoURL        *string         `json:"logo_url,omitempty" db:"-"`
	CreatedAt      time.Time       `json:"created_at" db:"created_at"`

	// Опциональные связанные сущности (не мапятся напрямую)
	Participants []Participant `json:"participants,omitempty" db:"-"`
}

// FinalStanding — строка итоговой таблицы, единственный долговечный след
// матчевой детализации после завершения турнира.
type FinalStanding struct {
	Rank   int     `json:"rank"`
	UserID int     `json:"user_id"`
	Tag    string  `json:"tag"`
	Score  int     `json:"score"`
	Wins   int     `json:"wins"`
	Losses int     `json:"losses"`
	Draws  int     `json:"draws"`
	OWP    float64 `json:"owp"`
	OOWP   float64 `json:"oowp"`
	Stage  string  `json:"stage,omitempty"`
	Prize  int     `json:"prize"`
}

// Participant — запись об участии (user + отображаемый тег).
// Список изменяем только пока турнир в статусе pending (плюс drop убирает запись).
type Participant struct {
	TournamentID string    `json:"tournament_id" db:"tournament_id"`
	UserID       int       `json:"user_id" db:"user_id"`
	Tag          string    `json:"tag" db:"tag"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// PhaseKind — явная фаза турнира вместо арифметики над номером раунда.
type PhaseKind int

const (
	PhaseSwiss PhaseKind = iota
	PhaseTopCut
	PhaseFinished
)

// Phase — тегированная фаза: швейцарка (раунд N), топ-кат (раунд сетки N) или финиш.
type Phase struct {
	Kind        PhaseKind
	Round       int // номер раунда внутри фазы, с 1
	BracketSize int // только для топ-ката
}

// Phase выводит текущую фазу в одном месте. Все остальные проверки
// "мы уже в топ-кате?" обязаны идти через этот метод.
func (t *Tournament) Phase() Phase {
	if t.Status == StatusFinished || t.Status == StatusCancelled {
		return Phase{Kind: PhaseFinished}
	}
	if t.CurrentRound <= t.SwissRounds || t.TopCutSize == 0 {
		return Phase{Kind: PhaseSwiss, Round: t.CurrentRound}
	}
	return Phase{
		Kind:        PhaseTopCut,
		Round:       t.CurrentRound - t.SwissRounds,
		BracketSize: t.TopCutSize,
	}
}

// InTopCut сообщает, идет ли сейчас стадия single elimination.
func (t *Tournament) InTopCut() bool {
	return t.Status == StatusActive && t.Phase().Kind == PhaseTopCut
}

// InPhase2 сообщает, идет ли вторая фаза двухдневной швейцарки.
// Скоуп "уже играли" для пар раунда сбрасывается на границе фаз.
func (t *Tournament) InPhase2(round int) bool {
	return t.TwoPhase && round > t.Phase1Rounds
}
