// Package sdk is a small client for the board's local status API, used by
// the CLI and by bench tooling that watches a running board.
package sdk

import (
	"bytes"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
)

const CTJSON string = "application/json"

type SDK interface {
	// Status returns the board's identity and lifecycle position.
	//
	// example:
	//  status, _ := sdk.Status()
	//  fmt.Println(status)
	Status() (Status, error)

	// Coefficients returns the latest coefficient tables the board polled.
	//
	// example:
	//  coeffs, _ := sdk.Coefficients()
	//  fmt.Println(coeffs)
	Coefficients() (Coefficients, error)

	// Health reports whether the board process is up.
	//
	// example:
	//  health, _ := sdk.Health()
	//  fmt.Println(health)
	Health() (Health, error)
}

type boardSDK struct {
	boardURL string
	client   *http.Client
}

type Config struct {
	BoardURL        string
	TLSVerification bool
}

func NewSDK(cfg Config) SDK {
	return &boardSDK{
		boardURL: cfg.BoardURL,
		client: &http.Client{
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{
					InsecureSkipVerify: !cfg.TLSVerification,
				},
			},
		},
	}
}

func (sdk *boardSDK) processRequest(method, reqURL string, data []byte, expectedRespCode int) ([]byte, error) {
	req, err := http.NewRequest(method, reqURL, bytes.NewReader(data))
	if err != nil {
		return []byte{}, err
	}

	req.Header.Add("Content-Type", CTJSON)

	resp, err := sdk.client.Do(req)
	if err != nil {
		return []byte{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return []byte{}, err
	}

	if resp.StatusCode != expectedRespCode {
		return []byte{}, fmt.Errorf("unexpected response code: %d", resp.StatusCode)
	}

	return body, nil
}
