// Package codec encodes and decodes the bodies of the game server's
// /coreapi endpoints. All multi-byte integers are big-endian and all power
// values travel as signed 32-bit milliwatts; the rest of the system speaks
// watts and never touches byte order.
package codec

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"math"

	"github.com/gridgame/boardlink/board"
)

const (
	CTJSON        = "application/json"
	CTOctetStream = "application/octet-stream"

	milliwattsPerWatt = 1000

	coefficientSize = 5 // u8 id + i32 milliwatts
	plantSize       = 8 // u32 plant id + i32 milliwatts
	consumerSize    = 4 // u32 consumer id

	registrationOK     = 0x01
	registrationMsgCap = 64
)

var ErrMalformed = errors.New("malformed response body")

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
}

// EncodeLogin builds the JSON body for POST /coreapi/login.
func EncodeLogin(username, password string) ([]byte, error) {
	return json.Marshal(loginRequest{Username: username, Password: password})
}

// DecodeLogin extracts the bearer token from the login response.
func DecodeLogin(body []byte) (string, error) {
	var resp loginResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", errors.Join(ErrMalformed, err)
	}
	if resp.Token == "" {
		return "", ErrMalformed
	}

	return resp.Token, nil
}

// Registration is the decoded response of POST /coreapi/register.
type Registration struct {
	OK      bool
	Message string
}

// DecodeRegistration parses the 1-byte success flag, 1-byte message length
// and ASCII message of the register response. Messages longer than 64 bytes
// are truncated.
func DecodeRegistration(body []byte) (Registration, error) {
	if len(body) < 2 {
		return Registration{}, ErrMalformed
	}
	msgLen := int(body[1])
	if len(body) < 2+msgLen {
		return Registration{}, ErrMalformed
	}
	if msgLen > registrationMsgCap {
		msgLen = registrationMsgCap
	}

	return Registration{
		OK:      body[0] == registrationOK,
		Message: string(body[2 : 2+msgLen]),
	}, nil
}

// DecodePoll parses the body of GET /coreapi/poll_binary. A zero-length body
// is the paused signal: it decodes to empty tables and active = false. Any
// non-empty body must carry both counted sections or the whole body is
// rejected as malformed.
func DecodePoll(body []byte) (board.CoefficientTable, bool, error) {
	if len(body) == 0 {
		return board.CoefficientTable{}, false, nil
	}

	production, rest, err := decodeProduction(body)
	if err != nil {
		return board.CoefficientTable{}, false, err
	}
	consumption, _, err := decodeConsumption(rest)
	if err != nil {
		return board.CoefficientTable{}, false, err
	}

	return board.CoefficientTable{Production: production, Consumption: consumption}, true, nil
}

// DecodeProduction parses the body of GET /coreapi/prod_vals. The body must
// be exactly one counted section.
func DecodeProduction(body []byte) ([]board.ProductionCoefficient, error) {
	coeffs, rest, err := decodeProduction(body)
	if err != nil {
		return nil, err
	}
	if len(rest) != 0 {
		return nil, ErrMalformed
	}

	return coeffs, nil
}

// DecodeConsumption parses the body of GET /coreapi/cons_vals.
func DecodeConsumption(body []byte) ([]board.ConsumptionCoefficient, error) {
	coeffs, rest, err := decodeConsumption(body)
	if err != nil {
		return nil, err
	}
	if len(rest) != 0 {
		return nil, ErrMalformed
	}

	return coeffs, nil
}

func decodeProduction(body []byte) ([]board.ProductionCoefficient, []byte, error) {
	if len(body) < 1 {
		return nil, nil, ErrMalformed
	}
	count := int(body[0])
	if len(body) < 1+count*coefficientSize {
		return nil, nil, ErrMalformed
	}

	coeffs := make([]board.ProductionCoefficient, 0, count)
	offset := 1
	for range count {
		coeffs = append(coeffs, board.ProductionCoefficient{
			SourceID:    body[offset],
			Coefficient: wattsFrom(body[offset+1:]),
		})
		offset += coefficientSize
	}

	return coeffs, body[offset:], nil
}

func decodeConsumption(body []byte) ([]board.ConsumptionCoefficient, []byte, error) {
	if len(body) < 1 {
		return nil, nil, ErrMalformed
	}
	count := int(body[0])
	if len(body) < 1+count*coefficientSize {
		return nil, nil, ErrMalformed
	}

	coeffs := make([]board.ConsumptionCoefficient, 0, count)
	offset := 1
	for range count {
		coeffs = append(coeffs, board.ConsumptionCoefficient{
			BuildingID:  body[offset],
			Consumption: wattsFrom(body[offset+1:]),
		})
		offset += coefficientSize
	}

	return coeffs, body[offset:], nil
}

// EncodePoll builds a poll_binary body from a table. The server side of the
// protocol; used by tests and local tooling.
func EncodePoll(table board.CoefficientTable) []byte {
	out := make([]byte, 0, 2+len(table.Production)*coefficientSize+len(table.Consumption)*coefficientSize)
	out = append(out, byte(len(table.Production)))
	for _, c := range table.Production {
		out = append(out, c.SourceID)
		out = appendMilliwatts(out, c.Coefficient)
	}
	out = append(out, byte(len(table.Consumption)))
	for _, c := range table.Consumption {
		out = append(out, c.BuildingID)
		out = appendMilliwatts(out, c.Consumption)
	}

	return out
}

// EncodePowerReport builds the body of POST /coreapi/post_vals: production
// then consumption, each a signed 32-bit milliwatt value.
func EncodePowerReport(productionWatts, consumptionWatts float64) []byte {
	out := make([]byte, 0, 8)
	out = appendMilliwatts(out, productionWatts)
	out = appendMilliwatts(out, consumptionWatts)

	return out
}

// EncodeConnectedPlants builds the body of POST /coreapi/prod_connected.
func EncodeConnectedPlants(plants []board.ConnectedPlant) []byte {
	out := make([]byte, 0, 1+len(plants)*plantSize)
	out = append(out, byte(len(plants)))
	for _, p := range plants {
		out = binary.BigEndian.AppendUint32(out, p.PlantID)
		out = appendMilliwatts(out, p.SetPower)
	}

	return out
}

// EncodeConnectedConsumers builds the body of POST /coreapi/cons_connected.
func EncodeConnectedConsumers(consumers []board.ConnectedConsumer) []byte {
	out := make([]byte, 0, 1+len(consumers)*consumerSize)
	out = append(out, byte(len(consumers)))
	for _, c := range consumers {
		out = binary.BigEndian.AppendUint32(out, c.ConsumerID)
	}

	return out
}

func appendMilliwatts(dst []byte, watts float64) []byte {
	return binary.BigEndian.AppendUint32(dst, uint32(int32(math.Round(watts*milliwattsPerWatt))))
}

func wattsFrom(src []byte) float64 {
	raw := int32(binary.BigEndian.Uint32(src))

	return float64(raw) / milliwattsPerWatt
}
