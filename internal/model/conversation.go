package model

type Stage string

const (
	StageIdle             Stage = "idle"
	StageAwaitingService  Stage = "awaiting_service"
	StageAwaitingDateTime Stage = "awaiting_datetime"
)

func (s Stage) String() string { return string(s) }

func (s Stage) Valid() bool {
	return s == StageIdle || s == StageAwaitingService || s == StageAwaitingDateTime
}

// State is the per-recipient conversation state kept in Redis.
type State struct {
	Stage   Stage  `json:"stage"`
	Service string `json:"service,omitempty"` // pending service while awaiting a date
}
