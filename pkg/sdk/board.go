package sdk

import (
	"encoding/json"
	"net/http"

	"github.com/gridgame/boardlink/board"
)

const (
	statusEndpoint       = "/status"
	coefficientsEndpoint = "/coefficients"
	healthEndpoint       = "/healthz"
)

type Status struct {
	InstanceID string         `json:"instance_id"`
	Board      board.Identity `json:"board"`
	State      string         `json:"state"`
	GameActive bool           `json:"game_active"`
}

type Coefficients struct {
	GameActive   bool                   `json:"game_active"`
	Coefficients board.CoefficientTable `json:"coefficients"`
}

type Health struct {
	Status     string `json:"status"`
	InstanceID string `json:"instance_id"`
}

func (sdk *boardSDK) Status() (Status, error) {
	url := sdk.boardURL + statusEndpoint

	body, err := sdk.processRequest(http.MethodGet, url, nil, http.StatusOK)
	if err != nil {
		return Status{}, err
	}

	var s Status
	if err := json.Unmarshal(body, &s); err != nil {
		return Status{}, err
	}

	return s, nil
}

func (sdk *boardSDK) Coefficients() (Coefficients, error) {
	url := sdk.boardURL + coefficientsEndpoint

	body, err := sdk.processRequest(http.MethodGet, url, nil, http.StatusOK)
	if err != nil {
		return Coefficients{}, err
	}

	var c Coefficients
	if err := json.Unmarshal(body, &c); err != nil {
		return Coefficients{}, err
	}

	return c, nil
}

func (sdk *boardSDK) Health() (Health, error) {
	url := sdk.boardURL + healthEndpoint

	body, err := sdk.processRequest(http.MethodGet, url, nil, http.StatusOK)
	if err != nil {
		return Health{}, err
	}

	var h Health
	if err := json.Unmarshal(body, &h); err != nil {
		return Health{}, err
	}

	return h, nil
}
