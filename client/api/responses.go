package api

import (
	"net/http"

	"github.com/gridgame/boardlink/board"
)

// Response lets endpoint results control their own status code, mirroring
// the transport contract used across the codebase.
type Response interface {
	Code() int
}

var (
	_ Response = (*statusResponse)(nil)
	_ Response = (*coefficientsResponse)(nil)
)

type statusResponse struct {
	InstanceID string         `json:"instance_id"`
	Board      board.Identity `json:"board"`
	State      string         `json:"state"`
	GameActive bool           `json:"game_active"`
}

func (r statusResponse) Code() int {
	return http.StatusOK
}

type coefficientsResponse struct {
	GameActive   bool                   `json:"game_active"`
	Coefficients board.CoefficientTable `json:"coefficients"`
}

func (r coefficientsResponse) Code() int {
	return http.StatusOK
}
