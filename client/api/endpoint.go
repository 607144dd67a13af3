package api

import (
	"context"

	"github.com/go-kit/kit/endpoint"

	"github.com/gridgame/boardlink/board"
	"github.com/gridgame/boardlink/client"
)

// Observer is the read-only view of the client the status API exposes.
type Observer interface {
	Identity() board.Identity
	State() client.State
	GameActive() bool
	Coefficients() board.CoefficientTable
}

func statusEndpoint(obs Observer, instanceID string) endpoint.Endpoint {
	return func(_ context.Context, _ any) (any, error) {
		return statusResponse{
			InstanceID: instanceID,
			Board:      obs.Identity(),
			State:      obs.State().String(),
			GameActive: obs.GameActive(),
		}, nil
	}
}

func coefficientsEndpoint(obs Observer) endpoint.Endpoint {
	return func(_ context.Context, _ any) (any, error) {
		return coefficientsResponse{
			GameActive:   obs.GameActive(),
			Coefficients: obs.Coefficients(),
		}, nil
	}
}
