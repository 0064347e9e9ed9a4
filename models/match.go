package models

// Match — одна пара внутри раунда.
// Инварианты: bye-матч создается сразу Reported=true с WinnerID=Player1ID;
// у отрепорченного не-bye матча выставлено ровно одно из {WinnerID, IsDraw}.
type Match struct {
	ID           int    `json:"-" db:"id"`
	TournamentID string `json:"tournament_id" db:"tournament_id"`
	Seq          int    `json:"seq" db:"seq"` // человекочитаемый номер внутри турнира
	Round        int    `json:"round" db:"round"`
	IsTopCut     bool   `json:"is_top_cut" db:"is_top_cut"`

	// Только для топ-ката: слот сетки и слот, куда проходит победитель.
	BracketPos *string `json:"bracket_pos,omitempty" db:"bracket_pos"`
	WinnerTo   *string `json:"winner_to,omitempty" db:"winner_to"`

	Player1ID int  `json:"player1_id" db:"player1_id"`
	Player2ID *int `json:"player2_id,omitempty" db:"player2_id"` // nil = bye
	WinnerID  *int `json:"winner_id,omitempty" db:"winner_id"`
	IsDraw    bool `json:"is_draw" db:"is_draw"`
	Reported  bool `json:"reported" db:"reported"`

	// Снапшоты статистики обоих игроков до репорта, для обратимого reset.
	P1Snapshot *StatsSnapshot `json:"-" db:"p1_snapshot"`
	P2Snapshot *StatsSnapshot `json:"-" db:"p2_snapshot"`
}

// IsBye сообщает, является ли матч автопобедой без оппонента.
func (m *Match) IsBye() bool {
	return m.Player2ID == nil
}

// HasPlayer проверяет, участвует ли игрок в матче.
func (m *Match) HasPlayer(userID int) bool {
	if m.Player1ID == userID {
		return true
	}
	return m.Player2ID != nil && *m.Player2ID == userID
}

// OpponentOf возвращает оппонента игрока в матче (ок=false для bye
// или если игрок в матче не участвует).
func (m *Match) OpponentOf(userID int) (int, bool) {
	if m.Player2ID == nil {
		return 0, false
	}
	switch userID {
	case m.Player1ID:
		return *m.Player2ID, true
	case *m.Player2ID:
		return m.Player1ID, true
	}
	return 0, false
}
