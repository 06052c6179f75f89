package mlserving

import (
	"encoding/json"
	"fmt"
	"github.com/pkg/errors"
)

const DefaultPayloadKey = "dataframe_split"

// Tabular is a single row of named numeric features.
type Tabular interface {
	Columns() []string
	Row() []float64
}

// DataFrameSplit is the split-oriented JSON encoding of a table:
// column names plus row-major data in the same column order.
type DataFrameSplit struct {
	Columns []string    `json:"columns"`
	Data    [][]float64 `json:"data"`
}

func SplitOf(record Tabular) (DataFrameSplit, error) {
	if record == nil {
		return DataFrameSplit{}, ProtocolError("mlserving.SplitOf", "record is nil")
	}

	columns := record.Columns()
	row := record.Row()

	if len(columns) == 0 {
		return DataFrameSplit{}, ProtocolError("mlserving.SplitOf", "record has no columns")
	}

	if len(columns) != len(row) {
		return DataFrameSplit{}, ProtocolError(
			"mlserving.SplitOf",
			fmt.Sprintf("record has %d columns but %d values", len(columns), len(row)),
		)
	}

	return DataFrameSplit{
		Columns: append([]string(nil), columns...),
		Data:    [][]float64{append([]float64(nil), row...)},
	}, nil
}

func EncodeRequest(payloadKey string, record Tabular) ([]byte, error) {
	if payloadKey == "" {
		payloadKey = DefaultPayloadKey
	}

	split, err := SplitOf(record)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(map[string]DataFrameSplit{payloadKey: split})
	if err != nil {
		return nil, errors.Wrap(err, "json.Marshal")
	}

	return body, nil
}

// DecodeSplit reads a request body produced by EncodeRequest back into a
// column name to value mapping of its single row.
func DecodeSplit(payloadKey string, body []byte) (map[string]float64, error) {
	if payloadKey == "" {
		payloadKey = DefaultPayloadKey
	}

	var payload map[string]DataFrameSplit
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, newError(KindProtocol, "mlserving.DecodeSplit", err)
	}

	split, ok := payload[payloadKey]
	if !ok {
		return nil, ProtocolError("mlserving.DecodeSplit", "payload key "+payloadKey+" is missing")
	}

	if len(split.Data) != 1 || len(split.Data[0]) != len(split.Columns) {
		return nil, ProtocolError("mlserving.DecodeSplit", "payload must hold exactly one row matching the columns")
	}

	values := make(map[string]float64, len(split.Columns))
	for i, c := range split.Columns {
		values[c] = split.Data[0][i]
	}

	return values, nil
}
