package mlserving

import (
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"testing"
)

func TestEncodeRequest(t *testing.T) {
	t.Run("keeps column order and round trips", func(t *testing.T) {
		body, err := EncodeRequest("", irisRow)
		require.NoError(t, err)

		assert.JSONEq(t, `{"dataframe_split": {
			"columns": ["sepal length (cm)", "sepal width (cm)", "petal length (cm)", "petal width (cm)"],
			"data": [[6.1, 2.8, 4.7, 1.2]]
		}}`, string(body))

		values, err := DecodeSplit(DefaultPayloadKey, body)
		require.NoError(t, err)
		for i, c := range irisRow.columns {
			assert.Equal(t, irisRow.values[i], values[c], c)
		}
	})

	t.Run("rejects empty record", func(t *testing.T) {
		_, err := EncodeRequest("", row{})

		assert.Equal(t, KindProtocol, KindOf(err))
	})

	t.Run("rejects nil record", func(t *testing.T) {
		_, err := EncodeRequest("", nil)

		assert.Equal(t, KindProtocol, KindOf(err))
	})
}

func TestDecodeSplit(t *testing.T) {
	t.Run("missing payload key", func(t *testing.T) {
		_, err := DecodeSplit("dataframe_split", []byte(`{"dataframe_records": []}`))

		assert.Equal(t, KindProtocol, KindOf(err))
	})

	t.Run("more than one row", func(t *testing.T) {
		_, err := DecodeSplit("", []byte(`{"dataframe_split": {"columns": ["a"], "data": [[1], [2]]}}`))

		assert.Equal(t, KindProtocol, KindOf(err))
	})
}

func TestKindOf(t *testing.T) {
	wrapped := errors.Wrap(newStatusError(KindInference, "op", 503, []byte("busy")), "ucase")

	assert.Equal(t, KindInference, KindOf(wrapped))
	assert.True(t, IsUpstream(wrapped))
	assert.Equal(t, KindUnknown, KindOf(errors.New("plain")))
	assert.False(t, IsUpstream(errors.New("plain")))
	assert.Equal(t, "unknown label", KindUnknownLabel.String())
}
