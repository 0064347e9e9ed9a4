package services

import "errors"

// Общие ошибки, используемые в разных сервисах и маппинге HTTP.
var (
	// Ресурс не найден (универсальная)
	ErrNotFound = errors.New("requested resource not found")

	// Ошибки валидации и бизнес-правил
	ErrValidationFailed      = errors.New("validation failed")
	ErrPasswordTooShort      = errors.New("password is too short")
	ErrInvalidCredentials    = errors.New("invalid email or password")
	ErrInvalidState          = errors.New("operation not allowed in the current tournament status")
	ErrTournamentFull        = errors.New("tournament registration is full")
	ErrInsufficientBalance   = errors.New("aura balance is too low for the entry stake")
	ErrNotEnoughPlayers      = errors.New("not enough players to start the tournament")
	ErrRoundNotComplete      = errors.New("current round still has unreported matches")
	ErrAlreadyReported       = errors.New("match result has already been reported")
	ErrByeMatchNotReportable = errors.New("bye matches are resolved automatically and cannot be reported")
	ErrMalformedDraw         = errors.New("draw declaration does not match the two match participants")
	ErrNotMatchParticipant   = errors.New("declared winner is not a participant of this match")
	ErrPlayerNotInTournament = errors.New("player has no record in this tournament")
	ErrInvalidStake          = errors.New("entry stake must be non-negative")
	ErrInvalidRound          = errors.New("round number is out of range for this tournament")

	// Ошибки конфликтов
	ErrUserEmailConflict    = errors.New("email address is already in use")
	ErrUserNicknameConflict = errors.New("nickname is already in use")
	ErrRegistrationConflict = errors.New("user is already registered for this tournament")

	// Ошибки аутентификации и авторизации
	ErrAuthenticationFailed = errors.New("authentication failed")
	ErrForbiddenOperation   = errors.New("operation not allowed for the current user")
	ErrOrganizerOnly        = errors.New("only the tournament organizer can perform this action")
	ErrReporterNotAllowed   = errors.New("only a match participant or the organizer can report a result")

	// Ошибки, специфичные для сущностей
	ErrUserNotFound       = errors.New("user not found")
	ErrTournamentNotFound = errors.New("tournament not found")
	ErrMatchNotFound      = errors.New("match not found")
)
